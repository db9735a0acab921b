package monitor

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrAlreadyExists is returned when the scope already monitors the url
	ErrAlreadyExists = errors.New("source is already being monitored")
	// ErrNotFound is returned when the scope does not monitor the url
	ErrNotFound = errors.New("no such monitored source found")
)

// InputError rejects an administrative request before it reaches the store
type InputError struct {
	Field  string
	Reason string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func invalidInput(field, format string, args ...interface{}) error {
	return &InputError{
		Field:  field,
		Reason: fmt.Sprintf(format, args...),
	}
}

// IsInvalidInput reports whether err was caused by an InputError
func IsInvalidInput(err error) bool {
	_, ok := errors.Cause(err).(*InputError)
	return ok
}

// StoreError reports a failed store round trip, the current pass or command is abandoned
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return "store unavailable: " + e.Op + ": " + e.Err.Error()
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// IsStoreUnavailable reports whether err was caused by a failed store round trip
func IsStoreUnavailable(err error) bool {
	var storeErr *StoreError
	return errors.As(err, &storeErr)
}
