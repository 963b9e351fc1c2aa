// Package workflows provides high-level orchestration for sealctl commands.
//
// Workflows coordinate multiple operations across packages (manifests,
// selector, sealing, plain, audit) to implement complete user-facing
// features. Each workflow handles a single command's business logic,
// independent of CLI concerns like flag parsing, spinners, and output
// formatting.
//
// # Design Philosophy
//
// The cmd/ package should be a thin layer that:
//   - Parses command-line flags and arguments
//   - Builds a RunContext for the chosen environment
//   - Calls the appropriate workflow function
//   - Formats the result for display
//
// Workflows handle everything else:
//   - Validating the environment against the project config
//   - Loading the manifest store and the plain secret schema
//   - Performing the core operation
//   - Recording audit trail entries
//
// # Available Workflows
//
//   - Seal: Selects secret fields and writes the merged SealedSecrets
//   - Status: Reports which fields of every Secret are sealed
//   - PlainSync, PlainReset, PlainExport: Maintain the plaintext secret files
//   - Log: Reads and filters the audit trail
//   - Init: Writes a default .sealctl.toml
//
// # Error Handling
//
// Workflows return typed errors from the internal/errors package, allowing
// the CLI layer to provide appropriate user-facing messages without string
// matching:
//
//	result, err := workflows.Seal(ctx, rc, opts)
//	if errors.Is(err, kerrors.ErrEmptySelection) {
//	    // Ask again
//	}
//
// # Context Usage
//
// All blocking workflow functions accept a context.Context as their first
// parameter. Cancelling it stops a seal run between kubeseal invocations.
package workflows
