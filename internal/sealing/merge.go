package sealing

import (
	"fmt"
	"maps"
	"path/filepath"

	"github.com/PolarWolf314/sealctl/internal/manifests"
)

// OutputDirName is the directory holding generated SealedSecrets inside a resource.
const OutputDirName = manifests.SealedSecretsDir

// OutputPath returns where the SealedSecret for name/namespace is written.
func OutputPath(resourceBaseDir, name, namespace string) string {
	return filepath.Join(resourceBaseDir, OutputDirName, fmt.Sprintf("sealed-secret-%s-%s.yaml", name, namespace))
}

// MergeEncryptedData overlays fresh on previous and drops every key not in current.
func MergeEncryptedData(previous, fresh map[string]string, current []string) map[string]string {
	keep := make(map[string]bool, len(current))
	for _, k := range current {
		keep[k] = true
	}

	merged := make(map[string]string, len(previous)+len(fresh))
	maps.Copy(merged, previous)
	maps.Copy(merged, fresh)

	maps.DeleteFunc(merged, func(k, _ string) bool { return !keep[k] })
	return merged
}

// BuildSealedSecret assembles the SealedSecret for secret. Annotations of the
// existing document are carried over.
func BuildSealedSecret(secret *manifests.SecretDoc, existing *manifests.SealedSecretDoc, encrypted map[string]string) *manifests.SealedSecret {
	annotations := map[string]string{}
	if existing != nil {
		maps.Copy(annotations, existing.Sealed.Annotations)
	}
	annotations[manifests.ManagedAnnotation] = "true"

	sealed := &manifests.SealedSecret{}
	sealed.APIVersion = manifests.SealedSecretAPIVersion
	sealed.Kind = manifests.KindSealedSecret
	sealed.Name = secret.Name
	sealed.Namespace = secret.Namespace
	sealed.Annotations = annotations

	sealed.Spec.EncryptedData = encrypted
	sealed.Spec.Template.Name = secret.Name
	sealed.Spec.Template.Namespace = secret.Namespace
	sealed.Spec.Template.Labels = maps.Clone(secret.Secret.Labels)
	sealed.Spec.Template.Annotations = maps.Clone(secret.Secret.Annotations)
	sealed.Spec.Template.Type = secret.Secret.Type

	return sealed
}
