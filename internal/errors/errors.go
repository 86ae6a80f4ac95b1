// Package errors provides custom error types for domain-specific errors.
//
// The taxonomy follows the engine's failure classes: configuration errors
// (raised at build time), lookup errors (raised at read time), and
// sequencing errors (raised at update time). All are programmer/integration
// errors and are never silently recovered.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Standard sentinel errors
var (
	ErrConfigInvalid   = errors.New("invalid configuration")
	ErrUnknownDetector = errors.New("unknown detector type")
	ErrDuplicateKey    = errors.New("duplicate detector key")
	ErrUnknownKey      = errors.New("unknown key")
	ErrMalformedPath   = errors.New("malformed value path")
	ErrOutOfOrder      = errors.New("bar index out of order")
	ErrDataNotFound    = errors.New("data not found")
	ErrDatabaseError   = errors.New("database error")
)

// ParamError reports a missing or invalid detector parameter. Example shows
// the caller a corrective value for the offending field.
type ParamError struct {
	Detector string
	Param    string
	Value    interface{}
	Message  string
	Example  string
}

func (e *ParamError) Error() string {
	msg := fmt.Sprintf("detector %q: parameter %q: %s", e.Detector, e.Param, e.Message)
	if e.Value != nil {
		msg = fmt.Sprintf("detector %q: parameter %q (got %v): %s", e.Detector, e.Param, e.Value, e.Message)
	}
	if e.Example != "" {
		msg += fmt.Sprintf(" (example: %s)", e.Example)
	}
	return msg
}

// NewParamError creates a new ParamError.
func NewParamError(detector, param string, value interface{}, message, example string) *ParamError {
	return &ParamError{
		Detector: detector,
		Param:    param,
		Value:    value,
		Message:  message,
		Example:  example,
	}
}

// DependencyError reports an unresolved, forward, or wrongly typed detector
// dependency.
type DependencyError struct {
	Detector string
	Role     string
	Key      string
	Message  string
}

func (e *DependencyError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("detector %q: dependency role %q -> key %q: %s", e.Detector, e.Role, e.Key, e.Message)
	}
	return fmt.Sprintf("detector %q: dependency role %q: %s", e.Detector, e.Role, e.Message)
}

// NewDependencyError creates a new DependencyError.
func NewDependencyError(detector, role, key, message string) *DependencyError {
	return &DependencyError{Detector: detector, Role: role, Key: key, Message: message}
}

// DuplicateKeyError reports two detector specs sharing a key within one
// timeframe.
type DuplicateKeyError struct {
	Key       string
	Timeframe string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate detector key %q in timeframe %q: every spec needs a unique key", e.Key, e.Timeframe)
}

func (e *DuplicateKeyError) Unwrap() error { return ErrDuplicateKey }

// UnknownTypeError reports an unregistered detector type, listing the types
// the registry knows.
type UnknownTypeError struct {
	Type       string
	Registered []string
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("unknown detector type %q: registered types are [%s]",
		e.Type, strings.Join(e.Registered, ", "))
}

func (e *UnknownTypeError) Unwrap() error { return ErrUnknownDetector }

// KeyError reports a lookup against an unknown output or detector key. It
// always enumerates the valid alternatives: this is the single most common
// integration error and the message has to make the fix obvious.
type KeyError struct {
	What  string // "output key", "detector key", "timeframe"
	Key   string
	Valid []string
}

func (e *KeyError) Error() string {
	return fmt.Sprintf("unknown %s %q: valid keys are [%s]", e.What, e.Key, strings.Join(e.Valid, ", "))
}

func (e *KeyError) Unwrap() error { return ErrUnknownKey }

// NewKeyError creates a new KeyError.
func NewKeyError(what, key string, valid []string) *KeyError {
	return &KeyError{What: what, Key: key, Valid: valid}
}

// PathError reports a malformed dotted value path.
type PathError struct {
	Path    string
	Message string
}

func (e *PathError) Error() string {
	return fmt.Sprintf("value path %q: %s (expected \"exec.<key>.<output>\" or \"high_tf_<name>.<key>.<output>\")", e.Path, e.Message)
}

func (e *PathError) Unwrap() error { return ErrMalformedPath }

// SequenceError reports a non-monotonic bar index fed to a state container.
type SequenceError struct {
	Timeframe string
	LastIdx   int
	GotIdx    int
}

func (e *SequenceError) Error() string {
	return fmt.Sprintf("timeframe %q: bar index %d is not greater than last processed index %d: bars must be fed strictly in increasing index order",
		e.Timeframe, e.GotIdx, e.LastIdx)
}

func (e *SequenceError) Unwrap() error { return ErrOutOfOrder }

// DataError represents a data-related error from the storage boundary.
type DataError struct {
	DataType string
	Symbol   string
	Message  string
	Err      error
}

func (e *DataError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("data error [%s] %s: %s: %v", e.DataType, e.Symbol, e.Message, e.Err)
	}
	return fmt.Sprintf("data error [%s] %s: %s", e.DataType, e.Symbol, e.Message)
}

func (e *DataError) Unwrap() error { return e.Err }

// NewDataError creates a new DataError.
func NewDataError(dataType, symbol, message string, err error) *DataError {
	return &DataError{DataType: dataType, Symbol: symbol, Message: message, Err: err}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
