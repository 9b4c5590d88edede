package chain

import "errors"

// Sentinel errors for schema construction and project configuration.
var (
	// ErrUnknownDocType indicates a document type that the schema does not declare.
	ErrUnknownDocType = errors.New("unknown document type")
	// ErrDuplicateDocType indicates a document type declared more than once.
	ErrDuplicateDocType = errors.New("duplicate document type")
	// ErrPathEscape indicates a path that resolves outside its base directory.
	ErrPathEscape = errors.New("path escapes base directory")
)

// ConfigError records a problem in a project configuration file.
type ConfigError struct {
	SourceFile string
	Key        string
	Err        error
}

// Error returns a human-readable string including the file and key.
func (e *ConfigError) Error() string {
	if e.Key != "" {
		return e.SourceFile + ": " + e.Key + ": " + e.Err.Error()
	}
	return e.SourceFile + ": " + e.Err.Error()
}

// Unwrap returns the underlying error for use with errors.Is/As.
func (e *ConfigError) Unwrap() error {
	return e.Err
}
