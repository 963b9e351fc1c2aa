package workflows

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/PolarWolf314/sealctl/internal/audit"
	kerrors "github.com/PolarWolf314/sealctl/internal/errors"
	"github.com/PolarWolf314/sealctl/internal/manifests"
	"github.com/PolarWolf314/sealctl/internal/sealing"
	"github.com/PolarWolf314/sealctl/internal/selector"
)

// SealMode chooses how the selection is built.
type SealMode int

const (
	// SealInteractive asks the operator through the Prompter.
	SealInteractive SealMode = iota
	// SealUnsealed selects every field missing from its SealedSecret.
	SealUnsealed
	// SealEverything reseals every field of every Secret.
	SealEverything
)

// SealOptions configures the seal workflow.
type SealOptions struct {
	Mode SealMode

	// DryRun reports the target files without sealing or writing.
	DryRun bool

	// DeletePlain removes Secret manifest files once all their secrets are sealed.
	DeletePlain bool

	// ResetPlain empties the plain secret file of the environment after a seal
	// that skipped nothing.
	ResetPlain bool
}

// SealResult contains the outcome of a seal operation.
type SealResult struct {
	Environment string

	// Root is the manifests directory of the environment.
	Root string

	// Selection is what was sealed, per secret.
	Selection selector.Selection

	// Sealing is the engine outcome. Nil when nothing was selected.
	Sealing *sealing.Result

	// LoadErrors are files and documents skipped while loading the store.
	LoadErrors []error

	// DeletedFiles lists plaintext manifests removed by DeletePlain.
	DeletedFiles []string

	// PlainReset is true when the plain secret file was reset.
	PlainReset bool

	DryRun bool
}

// Seal loads the environment's manifests, selects fields, seals them and
// writes the merged SealedSecrets.
//
// Returns ErrUnknownEnvironment if the environment is not configured.
// Returns a DirectoryNotFoundError if the environment has no manifests directory.
// Returns ErrEmptySelection if the operator chose nothing.
// On cancellation the partial result is returned together with ctx.Err().
func Seal(ctx context.Context, rc *RunContext, opts SealOptions) (*SealResult, error) {
	if err := rc.validate(); err != nil {
		return nil, err
	}

	result := &SealResult{
		Environment: rc.Environment,
		Root:        rc.manifestsRoot(),
		DryRun:      opts.DryRun,
	}

	store, secrets, sealed, err := loadEnvironment(ctx, rc, result)
	if err != nil {
		return nil, err
	}

	selection, err := buildSelection(ctx, rc, opts.Mode, secrets, sealed)
	if err != nil {
		return result, err
	}
	result.Selection = selection
	if len(selection) == 0 {
		rc.Logger.Infof("Nothing to seal in %s", rc.Environment)
		return result, nil
	}

	engine := &sealing.Engine{Encryptor: rc.Encryptor, Logger: rc.Logger, DryRun: opts.DryRun}
	sealResult, err := engine.Seal(ctx, selection, secrets, sealed)
	result.Sealing = sealResult
	if err != nil {
		rc.logSeal(result)
		return result, err
	}

	if opts.DryRun {
		return result, nil
	}

	if opts.DeletePlain {
		result.DeletedFiles = deletePlainManifests(rc, store, fullySealed(secrets, sealed, sealResult))
	}

	if opts.ResetPlain {
		if err := canResetPlain(sealResult); err != nil {
			rc.Logger.Warnf("Keeping plain secrets for %s: %v", rc.Environment, err)
		} else if err := resetPlain(rc); err != nil {
			rc.Logger.Warnf("Could not reset plain secrets for %s: %v", rc.Environment, err)
		} else {
			result.PlainReset = true
		}
	}

	rc.logSeal(result)
	return result, nil
}

// loadEnvironment loads the store and its typed Secret and SealedSecret views.
func loadEnvironment(ctx context.Context, rc *RunContext, result *SealResult) (*manifests.Store, []*manifests.SecretDoc, []*manifests.SealedSecretDoc, error) {
	store, report, err := manifests.Load(ctx, result.Root, manifests.LoadOptions{Only: rc.Only}, rc.Logger)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("environment %s: %w", rc.Environment, err)
	}
	result.LoadErrors = append(result.LoadErrors, report.Errors...)

	secrets, errs := store.Secrets()
	for _, err := range errs {
		rc.Logger.Warnf("Skipping Secret: %v", err)
	}
	result.LoadErrors = append(result.LoadErrors, errs...)

	sealed, errs := store.SealedSecrets()
	for _, err := range errs {
		rc.Logger.Warnf("Skipping SealedSecret: %v", err)
	}
	result.LoadErrors = append(result.LoadErrors, errs...)

	rc.Logger.Debugf("Loaded %d Secrets and %d SealedSecrets from %s", len(secrets), len(sealed), result.Root)
	return store, secrets, sealed, nil
}

func buildSelection(ctx context.Context, rc *RunContext, mode SealMode, secrets []*manifests.SecretDoc, sealed []*manifests.SealedSecretDoc) (selector.Selection, error) {
	switch mode {
	case SealUnsealed:
		return selector.SelectUnsealed(secrets, sealed), nil
	case SealEverything:
		return selector.SelectAll(secrets), nil
	}

	if len(secrets) == 0 {
		return selector.Selection{}, nil
	}
	if rc.Prompter == nil {
		return nil, kerrors.ErrNoTerminal
	}
	s := &selector.Selector{Prompter: rc.Prompter, Logger: rc.Logger}
	selection, err := s.Select(ctx, secrets, sealed)
	if err != nil {
		return nil, err
	}
	if len(selection) == 0 {
		return nil, kerrors.ErrEmptySelection
	}
	return selection, nil
}

// fullySealed returns the secrets that were touched by this run, had nothing
// skipped, and now have every field sealed.
func fullySealed(secrets []*manifests.SecretDoc, sealed []*manifests.SealedSecretDoc, res *sealing.Result) map[manifests.Ref]bool {
	failed := map[manifests.Ref]bool{}
	for _, skip := range res.Skipped {
		failed[skip.Ref] = true
	}

	done := map[manifests.Ref]bool{}
	for _, secret := range secrets {
		ref := secret.Ref()
		fresh := res.Sealed[ref]
		if len(fresh) == 0 || failed[ref] {
			continue
		}
		existing, _ := manifests.FindSealed(sealed, ref)
		missing := slices.DeleteFunc(selector.UnsealedFields(secret, existing), func(f string) bool {
			return slices.Contains(fresh, f)
		})
		if len(missing) == 0 {
			done[ref] = true
		}
	}
	return done
}

// deletePlainManifests removes source files whose documents are all fully sealed Secrets.
func deletePlainManifests(rc *RunContext, store *manifests.Store, done map[manifests.Ref]bool) []string {
	byFile := map[string][]*manifests.Document{}
	var files []string
	for _, doc := range store.Documents() {
		if _, ok := byFile[doc.SourcePath]; !ok {
			files = append(files, doc.SourcePath)
		}
		byFile[doc.SourcePath] = append(byFile[doc.SourcePath], doc)
	}

	var deleted []string
	for _, file := range files {
		docs := byFile[file]
		if !slices.ContainsFunc(docs, isSecret) {
			continue
		}

		removable := true
		for _, doc := range docs {
			if doc.Kind != manifests.KindSecret || !done[doc.Ref()] {
				removable = false
				break
			}
		}
		if !removable {
			rc.Logger.Debugf("Keeping %s, it holds documents that were not sealed", file)
			continue
		}

		if err := os.Remove(file); err != nil && !errors.Is(err, os.ErrNotExist) {
			rc.Logger.Warnf("Could not delete %s: %v", file, err)
			continue
		}
		rc.Logger.Infof("Deleted %s", file)
		deleted = append(deleted, file)
	}
	return deleted
}

func isSecret(doc *manifests.Document) bool {
	return doc.Kind == manifests.KindSecret
}

// canResetPlain allows a reset only after a seal that sealed something and skipped nothing.
func canResetPlain(res *sealing.Result) error {
	if n := len(res.Skipped); n > 0 {
		return fmt.Errorf("%d secrets or fields could not be sealed", n)
	}
	if len(res.Sealed) == 0 {
		return errors.New("nothing was sealed")
	}
	return nil
}

func resetPlain(rc *RunContext) error {
	m, err := rc.plainManager()
	if err != nil {
		return err
	}
	return m.Reset(rc.Environment)
}

// logSeal records the seal run in the audit log.
func (rc *RunContext) logSeal(result *SealResult) {
	if result.DryRun || result.Sealing == nil {
		return
	}

	entry := audit.NewEntry(audit.OpSeal, rc.Environment)
	entry.Files = rc.relative(append(slices.Clone(result.Sealing.Written), result.DeletedFiles...))
	for _, ref := range selector.Selection(result.Sealing.Sealed).Refs() {
		entry.Secrets = append(entry.Secrets, ref.String())
	}
	for _, skip := range result.Sealing.Skipped {
		s := skip.Ref.String()
		if skip.Field != "" {
			s += ":" + skip.Field
		}
		entry.Skipped = append(entry.Skipped, s)
	}

	rc.logEntry(entry)
}
