// Package logger provides leveled, color-coded logging for sealctl commands.
//
// # Verbosity Levels
//
//   - --verbose: info messages are shown
//   - --debug: info and debug messages are shown
//
// Warnings and errors are always written to the error stream, because every
// skipped document or field has to be visible to the operator for a manual
// retry.
//
// # Log Methods
//
//	Logger.Infof()          // Shown with --verbose or --debug
//	Logger.Debugf()         // Shown only with --debug
//	Logger.Warnf()          // Always shown
//	Logger.Errorf()         // Always shown
//	Logger.ErrorfAndReturn() // Logs and returns the message as an error
//
// # Usage
//
//	log := logger.Logger{Verbose: verbose, Debug: debug}
//	log.Infof("Loaded %d manifests", count)
//
// A zero Logger writes to os.Stdout and os.Stderr. Tests set Out and Err to
// buffers.
package logger
