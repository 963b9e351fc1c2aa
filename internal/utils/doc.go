// Package utils provides small helpers shared by the sealctl commands.
//
// # Terminal Detection
//
// IsTerminal and IsOutputTerminal report whether stdin and stdout are
// interactive, so commands can refuse to prompt in CI and skip spinners
// when output is redirected.
//
// # Formatting
//
// FormatPaths and Pluralize build the human-readable summaries printed at
// the end of a command.
package utils
