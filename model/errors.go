package model

import (
	"errors"
	"fmt"
)

var (
	ErrUserNotFound        = errors.New("user not found")
	ErrEventNotFound       = errors.New("event not found")
	ErrEmailTaken          = errors.New("email already registered")
	ErrDuplicateBooking    = errors.New("user has already booked tickets for this event")
	ErrInsufficientTickets = errors.New("insufficient tickets")
	ErrTicketLimitExceeded = errors.New("ticket limit exceeded")
)

// InsufficientTicketsError reports the inventory seen when a booking was refused.
type InsufficientTicketsError struct {
	Remaining int
}

func (e *InsufficientTicketsError) Error() string {
	return fmt.Sprintf("only %d ticket(s) available", e.Remaining)
}

func (e *InsufficientTicketsError) Is(target error) bool {
	return target == ErrInsufficientTickets
}
