package rainbow

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyTable is returned by operations that need at least one chain.
	ErrEmptyTable = errors.New("rainbow table is empty")

	// ErrDriverDoesNotExist is the error returned by NewHashOracle and
	// NewReductionPolicy when no driver with that name was registered.
	ErrDriverDoesNotExist = errors.New("driver with that name does not exist")
)

// ConfigurationError signals an invalid engine setup: a bad iteration count,
// an empty alphabet, a digest of the wrong length and the like.
// These are never retried.
type ConfigurationError struct {
	Field string
	Msg   string
	Err   error
}

func (e *ConfigurationError) Error() string {
	msg := e.Msg
	if e.Field != "" {
		msg = e.Field + ": " + msg
	}
	if e.Err != nil {
		return fmt.Sprintf("configuration error: %s: %v", msg, e.Err)
	}
	return "configuration error: " + msg
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// configErrorf builds a ConfigurationError for the given field.
func configErrorf(field, format string, args ...interface{}) *ConfigurationError {
	return &ConfigurationError{Field: field, Msg: fmt.Sprintf(format, args...)}
}

// PersistenceError wraps failures while reading or writing a table file.
// Line is 1-based and zero when the failure is not tied to a row.
type PersistenceError struct {
	Path string
	Line int
	Err  error
}

func (e *PersistenceError) Error() string {
	switch {
	case e.Path != "" && e.Line > 0:
		return fmt.Sprintf("table file %s, line %d: %v", e.Path, e.Line, e.Err)
	case e.Path != "":
		return fmt.Sprintf("table file %s: %v", e.Path, e.Err)
	case e.Line > 0:
		return fmt.Sprintf("table row %d: %v", e.Line, e.Err)
	default:
		return fmt.Sprintf("table persistence: %v", e.Err)
	}
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// WorkerComputationError reports a single candidate that could not be turned
// into a chain during a parallel fill. The batch carries on without it.
type WorkerComputationError struct {
	Worker    int
	Candidate string
	Err       error
}

func (e *WorkerComputationError) Error() string {
	return fmt.Sprintf("worker %d: candidate %q: %v", e.Worker, e.Candidate, e.Err)
}

func (e *WorkerComputationError) Unwrap() error {
	return e.Err
}

// MalformedCandidateError is returned by Table.Insert for plaintexts that
// cannot be stored in a table file.
type MalformedCandidateError struct {
	Candidate string
	Reason    string
}

func (e *MalformedCandidateError) Error() string {
	return fmt.Sprintf("malformed candidate %q: %s", e.Candidate, e.Reason)
}

// IsConfigurationError reports whether err or anything it wraps is a
// ConfigurationError.
func IsConfigurationError(err error) bool {
	var cfgErr *ConfigurationError
	return errors.As(err, &cfgErr)
}
