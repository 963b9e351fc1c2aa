package errors

import (
	"errors"
	"fmt"
)

// Environment errors abort the whole run.
var (
	// ErrDirectoryNotFound indicates the generated manifests root for an environment is missing.
	ErrDirectoryNotFound = errors.New("manifest directory not found")

	// ErrUnknownEnvironment indicates the environment is not declared in the project config.
	ErrUnknownEnvironment = errors.New("unknown environment")
)

// Project errors indicate issues with the project configuration.
var (
	// ErrProjectNotInitialized indicates no .sealctl.toml was found.
	ErrProjectNotInitialized = errors.New("project has not been initialized")

	// ErrConfigExists indicates a project config is already present.
	ErrConfigExists = errors.New("project config already exists")

	// ErrInvalidSchema indicates the declared secret schema is malformed.
	ErrInvalidSchema = errors.New("invalid secret schema")
)

// Document errors skip a single file or object.
var (
	// ErrManifestParse indicates a manifest file is not valid YAML.
	ErrManifestParse = errors.New("failed to parse manifest")

	// ErrInvalidSecret indicates a Secret is missing its identity fields.
	ErrInvalidSecret = errors.New("invalid secret")

	// ErrSerialization indicates an output document could not be written.
	ErrSerialization = errors.New("failed to serialize document")
)

// Field errors skip a single value.
var (
	// ErrEncryptionCommand indicates the external sealing command failed.
	ErrEncryptionCommand = errors.New("encryption command failed")
)

// Prompt errors are shown to the operator.
var (
	// ErrEmptySelection indicates nothing was chosen in the secret picker.
	ErrEmptySelection = errors.New("You must choose at least one secret")

	// ErrPromptAborted indicates the operator closed the prompt.
	ErrPromptAborted = errors.New("prompt aborted")

	// ErrNoTerminal indicates an interactive prompt was needed but stdin is not a terminal.
	ErrNoTerminal = errors.New("stdin is not a terminal")
)

// DirectoryNotFoundError reports a missing environment manifest root.
type DirectoryNotFoundError struct {
	Path string
}

func (e *DirectoryNotFoundError) Error() string {
	return fmt.Sprintf("%s: %s", ErrDirectoryNotFound, e.Path)
}

func (e *DirectoryNotFoundError) Unwrap() error { return ErrDirectoryNotFound }

// ManifestParseError reports a file that could not be decoded.
type ManifestParseError struct {
	Path string
	Err  error
}

func (e *ManifestParseError) Error() string {
	return fmt.Sprintf("%s %s: %v", ErrManifestParse, e.Path, e.Err)
}

func (e *ManifestParseError) Unwrap() []error { return []error{ErrManifestParse, e.Err} }

// InvalidSecretError reports a Secret that cannot take part in sealing.
type InvalidSecretError struct {
	Path      string
	Name      string
	Namespace string
	Reason    string
}

func (e *InvalidSecretError) Error() string {
	return fmt.Sprintf("%s %q in namespace %q (%s): %s", ErrInvalidSecret, e.Name, e.Namespace, e.Path, e.Reason)
}

func (e *InvalidSecretError) Unwrap() error { return ErrInvalidSecret }

// EncryptionCommandError reports one field the external command failed to seal.
type EncryptionCommandError struct {
	Name      string
	Namespace string
	Field     string
	Stderr    string
	Err       error
}

func (e *EncryptionCommandError) Error() string {
	msg := fmt.Sprintf("%s for %s/%s", ErrEncryptionCommand, e.Namespace, e.Name)
	if e.Field != "" {
		msg += fmt.Sprintf(" field %q", e.Field)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *EncryptionCommandError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrEncryptionCommand}
	}
	return []error{ErrEncryptionCommand, e.Err}
}

// SerializationError reports an output document that failed to serialize or write.
type SerializationError struct {
	Path string
	Err  error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("%s %s: %v", ErrSerialization, e.Path, e.Err)
}

func (e *SerializationError) Unwrap() []error { return []error{ErrSerialization, e.Err} }
