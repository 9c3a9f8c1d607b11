package booking

import (
	"context"

	"event-ticketing/model"
)

// Store is everything the booking flow needs from persistence.
//
// CommitBooking must re-check uniqueness of (UserId, EventId) and the
// remaining inventory inside one atomic unit, decrement the event's tickets by
// NumberOfTickets and persist the attendee. It returns the stored attendee and
// the event as it was right after the decrement. On failure nothing is
// changed and the error is one of model.ErrEventNotFound,
// model.ErrDuplicateBooking or *model.InsufficientTicketsError.
//
// AddTickets increments tickets atomically. A limit above zero caps the
// resulting inventory and yields model.ErrTicketLimitExceeded when crossed.
type Store interface {
	FindUser(ctx context.Context, id string) (model.UserData, error)
	FindEvent(ctx context.Context, id string) (model.Event, error)
	FindAttendee(ctx context.Context, userId, eventId string) (*model.Attendee, error)
	CommitBooking(ctx context.Context, attendee model.Attendee) (model.Attendee, model.Event, error)
	AddTickets(ctx context.Context, eventId string, quantity, limit int) (model.Event, error)
	ListAttendees(ctx context.Context, eventId string) (AttendeeCursor, error)
	EventsCreatedBy(ctx context.Context, adminId string) ([]model.Event, error)
	AttendeesForEvents(ctx context.Context, eventIds []string) ([]model.Attendee, error)
}

// AttendeeCursor walks the bookings of one event in creation order. It is
// single pass; query again to restart.
type AttendeeCursor interface {
	Next(ctx context.Context) bool
	Current() model.AttendeeSummary
	Err() error
	Close(ctx context.Context) error
}

// Publisher delivers domain notifications. Delivery is best effort.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload interface{}) error
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, string, interface{}) error {
	return nil
}

// Collect drains cur into a slice and closes it.
func Collect(ctx context.Context, cur AttendeeCursor) ([]model.AttendeeSummary, error) {
	defer cur.Close(ctx)

	summaries := []model.AttendeeSummary{}
	for cur.Next(ctx) {
		summaries = append(summaries, cur.Current())
	}
	if err := cur.Err(); err != nil {
		return nil, &Error{Kind: StorageFailure, Message: "failed to read bookings", Err: err}
	}
	return summaries, nil
}
