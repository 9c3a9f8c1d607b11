package booking

import (
	"errors"
	"fmt"
)

type Kind string

const (
	InvalidInput          Kind = "invalid_input"
	NotFound              Kind = "not_found"
	DuplicateBooking      Kind = "duplicate_booking"
	InsufficientInventory Kind = "insufficient_inventory"
	StorageFailure        Kind = "storage_failure"
)

// Error is the failure returned by every Service operation. Remaining is only
// meaningful for InsufficientInventory.
type Error struct {
	Kind      Kind
	Message   string
	Remaining int
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Kind == StorageFailure {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf classifies err. Anything that is not a *Error counts as a storage failure.
func KindOf(err error) Kind {
	var bookingErr *Error
	if errors.As(err, &bookingErr) {
		return bookingErr.Kind
	}
	return StorageFailure
}

// Retryable reports whether the caller may try the same operation again.
// Business-rule failures are final.
func Retryable(err error) bool {
	return err != nil && KindOf(err) == StorageFailure
}

func invalidInput(format string, args ...interface{}) *Error {
	return &Error{Kind: InvalidInput, Message: fmt.Sprintf(format, args...)}
}
