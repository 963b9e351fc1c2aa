package workflows

import (
	"context"
	"slices"
	"sort"

	"github.com/PolarWolf314/sealctl/internal/manifests"
	"github.com/PolarWolf314/sealctl/internal/sealing"
	"github.com/PolarWolf314/sealctl/internal/selector"
)

// SecretState summarizes one Secret.
type SecretState string

const (
	// StateCurrent means every field is sealed and nothing is stale.
	StateCurrent SecretState = "current"
	// StatePartial means some fields are sealed.
	StatePartial SecretState = "partial"
	// StateUnsealed means no field is sealed.
	StateUnsealed SecretState = "unsealed"
)

// SecretStatus describes how one Secret relates to its SealedSecret.
type SecretStatus struct {
	Ref manifests.Ref

	// SourcePath is the Secret manifest.
	SourcePath string

	// SealedPath is where its SealedSecret is written.
	SealedPath string

	// Fields are all data keys of the Secret.
	Fields []string

	// Sealed lists fields with ciphertext.
	Sealed []string

	// Missing lists fields without ciphertext.
	Missing []string

	// Stale lists ciphertext keys with no matching field. The next seal prunes them.
	Stale []string
}

// State classifies the status.
func (s SecretStatus) State() SecretState {
	switch {
	case len(s.Missing) == 0 && len(s.Stale) == 0:
		return StateCurrent
	case len(s.Sealed) == 0:
		return StateUnsealed
	default:
		return StatePartial
	}
}

// StatusSummary holds counts of secrets by state.
type StatusSummary struct {
	Current  int `json:"current"`
	Partial  int `json:"partial"`
	Unsealed int `json:"unsealed"`
	// Orphaned counts SealedSecrets with no matching Secret.
	Orphaned int `json:"orphaned"`
}

// StatusResult contains the outcome of a status operation.
type StatusResult struct {
	Environment string
	Root        string

	// Secrets are ordered by namespace group, then load order.
	Secrets []SecretStatus

	// Orphans are SealedSecrets whose Secret no longer exists.
	Orphans []manifests.Ref

	LoadErrors []error
	Summary    StatusSummary
}

// Status reports the sealing state of every Secret in the environment.
//
// Returns ErrUnknownEnvironment if the environment is not configured.
// Returns a DirectoryNotFoundError if the environment has no manifests directory.
func Status(ctx context.Context, rc *RunContext) (*StatusResult, error) {
	if err := rc.validate(); err != nil {
		return nil, err
	}

	loaded := &SealResult{Environment: rc.Environment, Root: rc.manifestsRoot()}
	_, secrets, sealed, err := loadEnvironment(ctx, rc, loaded)
	if err != nil {
		return nil, err
	}

	result := &StatusResult{
		Environment: rc.Environment,
		Root:        loaded.Root,
		LoadErrors:  loaded.LoadErrors,
	}

	known := map[manifests.Ref]bool{}
	for _, group := range selector.GroupByNamespace(secrets) {
		for _, secret := range group.Secrets {
			status := secretStatus(secret, sealed)
			known[status.Ref] = true
			result.Secrets = append(result.Secrets, status)

			switch status.State() {
			case StateCurrent:
				result.Summary.Current++
			case StatePartial:
				result.Summary.Partial++
			default:
				result.Summary.Unsealed++
			}
		}
	}

	for _, doc := range sealed {
		ref := doc.Ref()
		if known[ref] || slices.Contains(result.Orphans, ref) {
			continue
		}
		result.Orphans = append(result.Orphans, ref)
	}
	result.Summary.Orphaned = len(result.Orphans)

	return result, nil
}

func secretStatus(secret *manifests.SecretDoc, sealed []*manifests.SealedSecretDoc) SecretStatus {
	existing, _ := manifests.FindSealed(sealed, secret.Ref())
	status := SecretStatus{
		Ref:        secret.Ref(),
		SourcePath: secret.SourcePath,
		SealedPath: sealing.OutputPath(secret.ResourceBaseDir, secret.Name, secret.Namespace),
		Fields:     secret.FieldKeys(),
		Missing:    selector.UnsealedFields(secret, existing),
	}

	if existing == nil {
		return status
	}

	for _, field := range status.Fields {
		if !slices.Contains(status.Missing, field) {
			status.Sealed = append(status.Sealed, field)
		}
	}
	for key := range existing.Sealed.Spec.EncryptedData {
		if !slices.Contains(status.Fields, key) {
			status.Stale = append(status.Stale, key)
		}
	}
	sort.Strings(status.Stale)
	return status
}
