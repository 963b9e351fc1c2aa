package manifests

import (
	"maps"
	"slices"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// Well-known kinds.
const (
	KindSecret                   = "Secret"
	KindSealedSecret             = "SealedSecret"
	KindCustomResourceDefinition = "CustomResourceDefinition"
)

// SealedSecretsDir holds the generated SealedSecrets of a resource.
const SealedSecretsDir = "sealed-secrets"

// Document is one parsed manifest document.
type Document struct {
	Kind        string
	APIVersion  string
	Name        string
	Namespace   string
	Annotations map[string]string

	// SourcePath is the absolute path of the file the document was read from.
	SourcePath string
	// ResourceBaseDir is the manifest subtree root of the owning resource.
	ResourceBaseDir string
	// Index is the position of the document inside its file.
	Index int

	Raw []byte
}

// Ref returns the namespace/name identity of the document.
func (d *Document) Ref() Ref {
	return Ref{Namespace: d.Namespace, Name: d.Name}
}

// Ref identifies a namespaced object.
type Ref struct {
	Namespace string
	Name      string
}

func (r Ref) String() string {
	return r.Namespace + "/" + r.Name
}

// header is the part of every document needed to classify it.
type header struct {
	metav1.TypeMeta `json:",inline"`
	Metadata        metav1.ObjectMeta `json:"metadata,omitempty"`
}

// SecretDoc is a Secret document with its decoded object.
type SecretDoc struct {
	*Document
	Secret *corev1.Secret
}

// Fields returns the plaintext values of the Secret: data overlaid with stringData.
func (s *SecretDoc) Fields() map[string]string {
	fields := make(map[string]string, len(s.Secret.Data)+len(s.Secret.StringData))
	for k, v := range s.Secret.Data {
		fields[k] = string(v)
	}
	maps.Copy(fields, s.Secret.StringData)
	return fields
}

// FieldKeys returns the sorted field names of the Secret.
func (s *SecretDoc) FieldKeys() []string {
	return slices.Sorted(maps.Keys(s.Fields()))
}

// SealedSecretDoc is a SealedSecret document with its decoded object.
type SealedSecretDoc struct {
	*Document
	Sealed *SealedSecret
}

// SealedSecretAPIVersion is the API version written on every SealedSecret.
const SealedSecretAPIVersion = "bitnami.com/v1alpha1"

// ManagedAnnotation marks SealedSecrets maintained by the controller.
const ManagedAnnotation = "sealedsecrets.bitnami.com/managed"

// SealedSecret mirrors the bitnami.com/v1alpha1 SealedSecret resource.
type SealedSecret struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata"`

	Spec SealedSecretSpec `json:"spec"`
}

type SealedSecretSpec struct {
	Template      SecretTemplateSpec `json:"template"`
	EncryptedData map[string]string  `json:"encryptedData"`
}

// SecretTemplateSpec describes the Secret the controller will create.
type SecretTemplateSpec struct {
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Type corev1.SecretType `json:"type,omitempty"`
}
