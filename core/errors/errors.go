// Package errors provides the error taxonomy shared by every dataset parser.
//
// Parsers either return a fully validated dataset or one of the typed errors
// below. Each type unwraps to a sentinel so callers can branch with errors.Is
// without caring which format produced the failure.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for the failure classes.
var (
	// ErrMalformed indicates input that does not follow its format's contract
	ErrMalformed = errors.New("malformed input")
	// ErrAlignment indicates a mention that does not match the text at its offsets
	ErrAlignment = errors.New("mention alignment")
	// ErrConsistency indicates two records that disagree about the same key
	ErrConsistency = errors.New("inconsistent annotation")
	// ErrConfig indicates an invalid caller configuration (unknown mode, bad flag)
	ErrConfig = errors.New("invalid configuration")
	// ErrNotFound indicates a referenced resource was not found
	ErrNotFound = errors.New("not found")
)

// ParseError reports input that breaks the format contract.
type ParseError struct {
	Format  string // Format being parsed (e.g., "token-tag", "nif-2015")
	Path    string // File path, if applicable
	Line    int    // 1-based line number, 0 when unknown
	Message string // Error details
	Err     error  // Underlying error, if any
}

func (e *ParseError) Error() string {
	loc := e.Path
	if e.Line > 0 {
		loc = fmt.Sprintf("%s:%d", e.Path, e.Line)
	}
	if loc != "" {
		return fmt.Sprintf("failed to parse %s at %s: %s", e.Format, loc, e.Message)
	}
	return fmt.Sprintf("failed to parse %s: %s", e.Format, e.Message)
}

func (e *ParseError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrMalformed
}

// AlignmentError reports a mention whose offsets do not select the mention text.
type AlignmentError struct {
	Doc     string // Document name
	Start   int    // Code-point start offset
	End     int    // Code-point end offset
	Mention string // Annotated mention
	Found   string // Text actually found at [Start, End)
}

func (e *AlignmentError) Error() string {
	return fmt.Sprintf("mention %q at [%d,%d) in %s does not match text %q",
		e.Mention, e.Start, e.End, e.Doc, e.Found)
}

func (e *AlignmentError) Unwrap() error {
	return ErrAlignment
}

// ConsistencyError reports two records that bind the same key to different values.
type ConsistencyError struct {
	Key      string // Key bound twice
	Existing string // Value already bound
	Incoming string // Conflicting value
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("conflicting values for %s: %q already bound, got %q", e.Key, e.Existing, e.Incoming)
}

func (e *ConsistencyError) Unwrap() error {
	return ErrConsistency
}

// ConfigError reports a caller configuration problem detected before any I/O.
type ConfigError struct {
	Field   string // Option name
	Value   string // Offending value
	Message string
}

func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Message)
	}
	return fmt.Sprintf("invalid configuration: %s", e.Message)
}

func (e *ConfigError) Unwrap() error {
	return ErrConfig
}

// NotFoundError represents a resource not found error with context
type NotFoundError struct {
	Resource string // Type of resource (e.g., "raw text", "sentence")
	ID       string // Identifier of the resource
	Err      error  // Underlying error, if any
}

func (e *NotFoundError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

func (e *NotFoundError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrNotFound
}

// IOError represents an I/O operation error with context
type IOError struct {
	Operation string // Operation being performed (e.g., "read", "write", "open")
	Path      string // File/resource path involved
	Err       error  // Underlying error
}

func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("failed to %s %s: %v", e.Operation, e.Path, e.Err)
	}
	return fmt.Sprintf("failed to %s: %v", e.Operation, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// NewParse creates a ParseError
func NewParse(format, path string, line int, message string) *ParseError {
	return &ParseError{
		Format:  format,
		Path:    path,
		Line:    line,
		Message: message,
	}
}

// NewParsef creates a ParseError with a formatted message.
func NewParsef(format, path string, line int, msg string, args ...interface{}) *ParseError {
	return NewParse(format, path, line, fmt.Sprintf(msg, args...))
}

// NewAlignment creates an AlignmentError
func NewAlignment(doc string, start, end int, mention, found string) *AlignmentError {
	return &AlignmentError{
		Doc:     doc,
		Start:   start,
		End:     end,
		Mention: mention,
		Found:   found,
	}
}

// NewConsistency creates a ConsistencyError
func NewConsistency(key, existing, incoming string) *ConsistencyError {
	return &ConsistencyError{
		Key:      key,
		Existing: existing,
		Incoming: incoming,
	}
}

// NewConfig creates a ConfigError
func NewConfig(field, value, message string) *ConfigError {
	return &ConfigError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// NewNotFound creates a NotFoundError
func NewNotFound(resource, id string) *NotFoundError {
	return &NotFoundError{
		Resource: resource,
		ID:       id,
	}
}

// NewIO creates an IOError
func NewIO(operation, path string, err error) *IOError {
	return &IOError{
		Operation: operation,
		Path:      path,
		Err:       err,
	}
}

// Wrap adds context to an error. If err is nil, returns nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf adds formatted context to an error. If err is nil, returns nil.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	message := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s: %w", message, err)
}

// Is wraps errors.Is for convenience
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As wraps errors.As for convenience
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
