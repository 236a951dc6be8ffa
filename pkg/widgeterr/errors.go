package widgeterr

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// ConfigurationError reports a missing or inconsistent collaborator: a data
// client, an endpoint, or a primary key when row selection is enabled. It is
// returned from constructors and mount hooks and must not be swallowed.
type ConfigurationError struct {
	Component string
	Reason    string
}

func (e *ConfigurationError) Error() string {
	if e == nil {
		return "configuration error"
	}
	if e.Component == "" {
		return "configuration: " + e.Reason
	}
	return fmt.Sprintf("%s: configuration: %s", e.Component, e.Reason)
}

// Configuration builds a ConfigurationError with a formatted reason.
func Configuration(component, format string, args ...any) error {
	return &ConfigurationError{
		Component: component,
		Reason:    fmt.Sprintf(format, args...),
	}
}

// NetworkError wraps a failed fetch, upload or export call.
type NetworkError struct {
	Op     string
	URL    string
	Status int
	Err    error
}

func (e *NetworkError) Error() string {
	if e == nil {
		return "network error"
	}
	var b strings.Builder
	b.WriteString("network: ")
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(" ")
	}
	b.WriteString(e.URL)
	if e.Status > 0 {
		fmt.Fprintf(&b, ": status %d %s", e.Status, http.StatusText(e.Status))
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *NetworkError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// UploadConstraintError is raised before any upload is dispatched when a file
// breaks a size or count limit. Message is the user-facing text.
type UploadConstraintError struct {
	Field   string
	Message string
}

func (e *UploadConstraintError) Error() string {
	if e == nil {
		return "upload constraint"
	}
	if e.Field == "" {
		return "upload: " + e.Message
	}
	return fmt.Sprintf("upload: %s: %s", e.Field, e.Message)
}

// FieldErrors maps field names to validation messages. Validation results are
// data; the error implementation lets submit handlers hand server-side field
// errors back to the form engine.
type FieldErrors map[string]string

func (f FieldErrors) Error() string {
	if len(f) == 0 {
		return "validation: no errors"
	}
	names := make([]string, 0, len(f))
	for name := range f {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+f[name])
	}
	return "validation: " + strings.Join(parts, "; ")
}

// IsConfiguration reports whether err carries a ConfigurationError.
func IsConfiguration(err error) bool {
	var target *ConfigurationError
	return errors.As(err, &target)
}

// IsNetwork reports whether err carries a NetworkError.
func IsNetwork(err error) bool {
	var target *NetworkError
	return errors.As(err, &target)
}

// IsUploadConstraint reports whether err carries an UploadConstraintError.
func IsUploadConstraint(err error) bool {
	var target *UploadConstraintError
	return errors.As(err, &target)
}
