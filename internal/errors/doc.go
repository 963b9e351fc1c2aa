// Package errors provides typed error values for sealctl.
//
// Sentinel errors let callers branch with errors.Is() instead of matching on
// message text. Failures that belong to one document or one field are
// reported through the structured error types in this package, which carry
// the identity of the thing that failed and unwrap to a sentinel.
//
// # Error Categories
//
//   - Environment errors abort a run (ErrDirectoryNotFound, ErrUnknownEnvironment)
//   - Document errors skip one file or object (ErrManifestParse, ErrInvalidSecret)
//   - Field errors skip one value (ErrEncryptionCommand)
//   - Prompt errors are surfaced to the operator (ErrEmptySelection, ErrPromptAborted)
//
// # Usage
//
//	store, _, err := manifests.Load(ctx, root, manifests.LoadOptions{}, log)
//	if errors.Is(err, kerrors.ErrDirectoryNotFound) {
//	    // nothing to seal for this environment
//	}
//
//	var encErr *kerrors.EncryptionCommandError
//	if errors.As(err, &encErr) {
//	    log.Warnf("could not seal %s/%s[%s]", encErr.Namespace, encErr.Name, encErr.Field)
//	}
package errors
