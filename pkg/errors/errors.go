// Package errors defines the error taxonomy shared by the index manager, the
// transport shim and the audit layer. Callers match categories with errors.Is
// against the sentinels and extract context with errors.As.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation       = errors.New("invalid index spec")
	ErrConflict         = errors.New("conflicting index exists")
	ErrNotFound         = errors.New("not found")
	ErrTransport        = errors.New("transport failure")
	ErrUnexpectedStatus = errors.New("unexpected server response")
)

// ValidationError is returned before any network call when an index spec is
// rejected. Option names the offending spec field (e.g. "unique", "fields").
type ValidationError struct {
	Kind   string
	Option string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Kind == "" {
		return fmt.Sprintf("%s: %s: %s", ErrValidation.Error(), e.Option, e.Reason)
	}
	return fmt.Sprintf("%s: %s index: %s: %s", ErrValidation.Error(), e.Kind, e.Option, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// NewValidation builds a ValidationError with a formatted reason.
func NewValidation(kind, option, format string, args ...any) *ValidationError {
	return &ValidationError{
		Kind:   kind,
		Option: option,
		Reason: fmt.Sprintf(format, args...),
	}
}

// IndexError carries the operation context of a failed list, create or delete.
// Err is one of the sentinels above, or a transport error that itself unwraps
// to ErrTransport.
type IndexError struct {
	Op         string
	Collection string
	Kind       string
	Fields     []string
	Identifier string
	StatusCode int
	ErrorNum   int
	Message    string
	Err        error
}

func (e *IndexError) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	b.WriteString(" index")
	if e.Identifier != "" {
		fmt.Fprintf(&b, " %q", e.Identifier)
	}
	fmt.Fprintf(&b, " on %q", e.Collection)
	if e.Kind != "" || len(e.Fields) > 0 {
		fmt.Fprintf(&b, " (%s %v)", e.Kind, e.Fields)
	}
	b.WriteString(": ")
	if e.Err != nil {
		b.WriteString(e.Err.Error())
	}
	if e.StatusCode != 0 {
		if e.ErrorNum != 0 {
			fmt.Fprintf(&b, ": [HTTP %d][ERR %d]", e.StatusCode, e.ErrorNum)
		} else {
			fmt.Fprintf(&b, ": [HTTP %d]", e.StatusCode)
		}
	}
	if e.Message != "" {
		b.WriteString(" ")
		b.WriteString(e.Message)
	}
	return b.String()
}

func (e *IndexError) Unwrap() error {
	return e.Err
}
