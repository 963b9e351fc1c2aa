// Package audit provides the audit trail of sealctl operations.
//
// Every run that writes to the repository (seal, plain sync, plain reset,
// plain export, init) is recorded in a project-level audit log, so a team can
// see who resealed which secrets for which environment and when.
//
// # Log Format
//
// The audit log is stored as JSON Lines (one JSON object per line) at:
//
//	.sealctl/audit.jsonl
//
// Each entry contains:
//   - Timestamp (RFC3339 with microseconds, UTC)
//   - Run ID (a UUID shared by every entry of one invocation)
//   - User name
//   - Operation name and environment
//   - Operation-specific details (files, sealed secrets, skipped fields)
//
// # Failure Handling
//
// Audit logging is best-effort. If logging fails (permissions, disk full,
// etc.), the operation continues without error.
//
// # Reading Logs
//
// Use ReadEntries to parse the audit log for display. Malformed entries are
// skipped to handle partial writes.
package audit
