package errors

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ErrorCollector accumulates errors from a pass that keeps going after the
// first failure, such as document validation.
type ErrorCollector struct {
	errors []*MailError
	mutex  sync.RWMutex
}

// NewErrorCollector creates a new error collector.
func NewErrorCollector() *ErrorCollector {
	return &ErrorCollector{}
}

// Add records an error. Nil errors are ignored.
func (ec *ErrorCollector) Add(err *MailError) {
	if err == nil {
		return
	}
	ec.mutex.Lock()
	defer ec.mutex.Unlock()
	ec.errors = append(ec.errors, err)
}

// Errors returns a copy of the collected errors.
func (ec *ErrorCollector) Errors() []*MailError {
	ec.mutex.RLock()
	defer ec.mutex.RUnlock()

	out := make([]*MailError, len(ec.errors))
	copy(out, ec.errors)
	return out
}

// HasErrors reports whether anything was collected.
func (ec *ErrorCollector) HasErrors() bool {
	ec.mutex.RLock()
	defer ec.mutex.RUnlock()
	return len(ec.errors) > 0
}

// Len returns the number of collected errors.
func (ec *ErrorCollector) Len() int {
	ec.mutex.RLock()
	defer ec.mutex.RUnlock()
	return len(ec.errors)
}

// Clear removes all collected errors.
func (ec *ErrorCollector) Clear() {
	ec.mutex.Lock()
	defer ec.mutex.Unlock()
	ec.errors = nil
}

// Err returns nil when nothing was collected, the single error when there
// is one, and a *MultiError otherwise.
func (ec *ErrorCollector) Err() error {
	errs := ec.Errors()
	switch len(errs) {
	case 0:
		return nil
	case 1:
		return errs[0]
	default:
		return &MultiError{Errors: errs}
	}
}

// MultiError groups several errors found in one pass.
type MultiError struct {
	Errors []*MailError
}

func (m *MultiError) Error() string {
	lines := make([]string, 0, len(m.Errors)+1)
	lines = append(lines, fmt.Sprintf("%d problems found:", len(m.Errors)))
	for _, err := range m.Errors {
		lines = append(lines, "  "+err.Error())
	}
	return strings.Join(lines, "\n")
}

// Unwrap exposes the grouped errors to errors.Is and errors.As.
func (m *MultiError) Unwrap() []error {
	out := make([]error, len(m.Errors))
	for i, err := range m.Errors {
		out[i] = err
	}
	return out
}

// Flatten lists the MailErrors carried by err. A MultiError yields its
// members and any other error is wrapped as an internal error.
func Flatten(err error) []*MailError {
	if err == nil {
		return nil
	}
	var multi *MultiError
	if errors.As(err, &multi) {
		return multi.Errors
	}
	var me *MailError
	if errors.As(err, &me) {
		return []*MailError{me}
	}
	return []*MailError{NewInternalError(ErrCodeInternalError, "unexpected error", err)}
}
