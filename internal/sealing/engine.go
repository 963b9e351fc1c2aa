package sealing

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"

	sigsyaml "sigs.k8s.io/yaml"

	kerrors "github.com/PolarWolf314/sealctl/internal/errors"
	logger "github.com/PolarWolf314/sealctl/internal/logging"
	"github.com/PolarWolf314/sealctl/internal/manifests"
	"github.com/PolarWolf314/sealctl/internal/selector"
)

// Skip records one secret or field left out of a run.
type Skip struct {
	Ref manifests.Ref
	// Field is empty when the whole secret was skipped.
	Field string
	Err   error
}

// Result is the outcome of one sealing run.
type Result struct {
	// Written lists the files that were created or changed.
	Written []string
	// Unchanged lists target files whose content was already up to date.
	Unchanged []string
	// Planned lists target files in dry-run mode.
	Planned []string
	// Sealed maps each secret to the fields freshly sealed for it.
	Sealed  map[manifests.Ref][]string
	Skipped []Skip
}

// Engine seals selections and writes the merged SealedSecrets.
type Engine struct {
	Encryptor Encryptor
	Logger    logger.Logger
	// DryRun reports target paths without sealing or writing.
	DryRun bool
}

// Seal processes every secret in selection. Secret-level and field-level
// failures are recorded in Result.Skipped. The returned error is non-nil only
// when ctx is cancelled; the partial result is returned with it.
func (e *Engine) Seal(ctx context.Context, selection selector.Selection, secrets []*manifests.SecretDoc, sealed []*manifests.SealedSecretDoc) (*Result, error) {
	result := &Result{Sealed: map[manifests.Ref][]string{}}

	for _, ref := range selection.Refs() {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if err := e.sealOne(ctx, ref, selection[ref], secrets, sealed, result); err != nil {
			return result, err
		}
	}

	return result, nil
}

func (e *Engine) sealOne(ctx context.Context, ref manifests.Ref, fields []string, secrets []*manifests.SecretDoc, sealed []*manifests.SealedSecretDoc, result *Result) error {
	secret := findSecret(secrets, ref)
	if secret == nil {
		err := &kerrors.InvalidSecretError{Name: ref.Name, Namespace: ref.Namespace, Reason: "no Secret document with this name and namespace"}
		e.Logger.Warnf("Skipping %s: %v", ref, err)
		result.Skipped = append(result.Skipped, Skip{Ref: ref, Err: err})
		return nil
	}

	existing, dupes := manifests.FindSealed(sealed, ref)
	for _, d := range dupes {
		e.Logger.Warnf("Ignoring duplicate SealedSecret %s in %s, using %s", ref, d.SourcePath, existing.SourcePath)
	}

	target := OutputPath(secret.ResourceBaseDir, secret.Name, secret.Namespace)
	if existing != nil && existing.SourcePath != target {
		e.Logger.Warnf("SealedSecret %s was read from %s but is written to %s", ref, existing.SourcePath, target)
	}

	if e.DryRun {
		e.Logger.Infof("Would seal %v of %s into %s", fields, ref, target)
		result.Planned = append(result.Planned, target)
		return nil
	}

	plaintext := secret.Fields()
	fresh := map[string]string{}
	for _, field := range fields {
		value, ok := plaintext[field]
		if !ok {
			err := &kerrors.InvalidSecretError{Path: secret.SourcePath, Name: ref.Name, Namespace: ref.Namespace, Reason: "field " + field + " no longer exists"}
			e.Logger.Warnf("Skipping %s field %s: %v", ref, field, err)
			result.Skipped = append(result.Skipped, Skip{Ref: ref, Field: field, Err: err})
			continue
		}

		ciphertext, err := e.Encryptor.Seal(ctx, ref.Namespace, ref.Name, value)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			err = withField(err, ref, field)
			e.Logger.Warnf("Skipping %s field %s, keeping previous value: %v", ref, field, err)
			result.Skipped = append(result.Skipped, Skip{Ref: ref, Field: field, Err: err})
			continue
		}
		fresh[field] = ciphertext
		result.Sealed[ref] = append(result.Sealed[ref], field)
	}

	var previous map[string]string
	if existing != nil {
		previous = existing.Sealed.Spec.EncryptedData
	}
	merged := MergeEncryptedData(previous, fresh, secret.FieldKeys())

	if existing == nil && len(merged) == 0 {
		e.Logger.Warnf("Nothing sealed for %s, not creating %s", ref, target)
		return nil
	}

	doc := BuildSealedSecret(secret, existing, merged)
	written, err := WriteSealedSecret(target, doc)
	if err != nil {
		e.Logger.Warnf("Could not write %s: %v", target, err)
		result.Skipped = append(result.Skipped, Skip{Ref: ref, Err: err})
		return nil
	}

	if written {
		e.Logger.Infof("Wrote %s", target)
		result.Written = append(result.Written, target)
	} else {
		e.Logger.Infof("%s is already up to date", target)
		result.Unchanged = append(result.Unchanged, target)
	}
	return nil
}

func findSecret(secrets []*manifests.SecretDoc, ref manifests.Ref) *manifests.SecretDoc {
	for _, s := range secrets {
		if s.Ref() == ref {
			return s
		}
	}
	return nil
}

// withField attaches identity to an encryptor error.
func withField(err error, ref manifests.Ref, field string) error {
	var encErr *kerrors.EncryptionCommandError
	if errors.As(err, &encErr) {
		copied := *encErr
		copied.Name, copied.Namespace, copied.Field = ref.Name, ref.Namespace, field
		return &copied
	}
	return &kerrors.EncryptionCommandError{Name: ref.Name, Namespace: ref.Namespace, Field: field, Err: err}
}

// MarshalSealedSecret renders doc as YAML with sorted keys.
func MarshalSealedSecret(doc *manifests.SealedSecret) ([]byte, error) {
	return sigsyaml.Marshal(doc)
}

// WriteSealedSecret replaces path with doc. It reports false when the file
// already had exactly this content.
func WriteSealedSecret(path string, doc *manifests.SealedSecret) (bool, error) {
	data, err := MarshalSealedSecret(doc)
	if err != nil {
		return false, &kerrors.SerializationError{Path: path, Err: err}
	}

	if current, err := os.ReadFile(path); err == nil && bytes.Equal(current, data) {
		return false, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return false, &kerrors.SerializationError{Path: path, Err: err}
	}
	// #nosec G306 -- sealed secrets are safe to commit.
	if err := os.WriteFile(path, data, 0644); err != nil {
		return false, &kerrors.SerializationError{Path: path, Err: err}
	}
	return true, nil
}
