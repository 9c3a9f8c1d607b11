package booking

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"event-ticketing/model"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	RoutingBookingCreated = "booking.created"
	RoutingEventRestocked = "event.restocked"
)

const tracerName = "event-ticketing/booking"

type Pricing string

const (
	// PricingCurrent values sold tickets at the event's price at query time.
	PricingCurrent Pricing = "current"
	// PricingBooked values sold tickets at the price captured on each booking.
	PricingBooked Pricing = "booked"
)

func ParsePricing(s string) (Pricing, error) {
	switch p := Pricing(strings.ToLower(strings.TrimSpace(s))); p {
	case PricingCurrent, PricingBooked:
		return p, nil
	case "":
		return PricingCurrent, nil
	default:
		return "", fmt.Errorf("unknown analytics pricing %q, expected %q or %q", s, PricingCurrent, PricingBooked)
	}
}

type Service struct {
	store       Store
	publisher   Publisher
	pricing     Pricing
	ticketLimit int
	now         func() time.Time
	tracer      trace.Tracer
}

type Option func(*Service)

func WithPublisher(p Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.publisher = p
		}
	}
}

func WithPricing(p Pricing) Option {
	return func(s *Service) {
		if p != "" {
			s.pricing = p
		}
	}
}

// WithTicketLimit caps the inventory a restock may reach. Zero means no cap.
func WithTicketLimit(limit int) Option {
	return func(s *Service) {
		if limit >= 0 {
			s.ticketLimit = limit
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithTracerProvider replaces the global provider for the service spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Service) {
		if tp != nil {
			s.tracer = tp.Tracer(tracerName)
		}
	}
}

func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:     store,
		publisher: nopPublisher{},
		pricing:   PricingCurrent,
		now:       func() time.Time { return time.Now().UTC() },
		tracer:    otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type Result struct {
	BookingId       string  `json:"bookingId"`
	NumberOfTickets int     `json:"numberOfTickets"`
	TotalPrice      float64 `json:"totalPrice"`
}

type bookingCreated struct {
	BookingId       string    `json:"bookingId"`
	UserId          string    `json:"userId"`
	EventId         string    `json:"eventId"`
	NumberOfTickets int       `json:"numberOfTickets"`
	TotalPrice      float64   `json:"totalPrice"`
	TicketsLeft     int       `json:"ticketsLeft"`
	CreatedAt       time.Time `json:"createdAt"`
}

type eventRestocked struct {
	EventId string `json:"eventId"`
	Added   int    `json:"added"`
	Tickets int    `json:"tickets"`
}

// Book buys quantity tickets of eventId for userId. The availability and
// duplicate checks done here only short-circuit obvious failures; the store
// repeats both atomically while committing.
func (s *Service) Book(ctx context.Context, userId, eventId string, quantity int) (Result, error) {
	userId = strings.TrimSpace(userId)
	eventId = strings.TrimSpace(eventId)

	ctx, span := s.tracer.Start(ctx, "booking.Book", trace.WithAttributes(
		attribute.String("event.id", eventId),
		attribute.String("user.id", userId),
		attribute.Int("booking.quantity", quantity),
	))
	defer span.End()

	if userId == "" || eventId == "" || quantity <= 0 {
		return Result{}, s.fail(span, "book", invalidInput("userId, eventId, and a valid numberOfTickets are required"))
	}

	event, err := s.store.FindEvent(ctx, eventId)
	if err != nil {
		return Result{}, s.fail(span, "find event", err)
	}
	if _, err := s.store.FindUser(ctx, userId); err != nil {
		return Result{}, s.fail(span, "find user", err)
	}

	existing, err := s.store.FindAttendee(ctx, userId, eventId)
	if err != nil {
		return Result{}, s.fail(span, "find attendee", err)
	}
	if existing != nil {
		return Result{}, s.fail(span, "book", model.ErrDuplicateBooking)
	}
	if event.Tickets < quantity {
		return Result{}, s.fail(span, "book", &model.InsufficientTicketsError{Remaining: event.Tickets})
	}

	attendee, snapshot, err := s.store.CommitBooking(ctx, model.Attendee{
		UserId:          userId,
		EventId:         eventId,
		NumberOfTickets: quantity,
		CreatedAt:       s.now(),
	})
	if err != nil {
		return Result{}, s.fail(span, "commit booking", err)
	}

	result := Result{
		BookingId:       attendee.Id,
		NumberOfTickets: attendee.NumberOfTickets,
		TotalPrice:      float64(attendee.NumberOfTickets) * snapshot.TicketPrice,
	}
	span.SetAttributes(attribute.String("booking.id", result.BookingId))

	s.publish(ctx, RoutingBookingCreated, bookingCreated{
		BookingId:       attendee.Id,
		UserId:          userId,
		EventId:         eventId,
		NumberOfTickets: attendee.NumberOfTickets,
		TotalPrice:      result.TotalPrice,
		TicketsLeft:     snapshot.Tickets,
		CreatedAt:       attendee.CreatedAt,
	})

	return result, nil
}

func (s *Service) Restock(ctx context.Context, eventId string, quantity int) (model.Event, error) {
	eventId = strings.TrimSpace(eventId)

	ctx, span := s.tracer.Start(ctx, "booking.Restock", trace.WithAttributes(
		attribute.String("event.id", eventId),
		attribute.Int("restock.quantity", quantity),
	))
	defer span.End()

	if eventId == "" {
		return model.Event{}, s.fail(span, "restock", invalidInput("eventId is required"))
	}
	if quantity <= 0 {
		return model.Event{}, s.fail(span, "restock", invalidInput("additionalQuantity must be a positive number"))
	}

	event, err := s.store.AddTickets(ctx, eventId, quantity, s.ticketLimit)
	if err != nil {
		return model.Event{}, s.fail(span, "add tickets", err)
	}

	s.publish(ctx, RoutingEventRestocked, eventRestocked{
		EventId: event.Id,
		Added:   quantity,
		Tickets: event.Tickets,
	})

	return event, nil
}

// ListBookings opens a cursor over the bookings of eventId joined with the
// booking user's name and email. The caller closes the cursor.
func (s *Service) ListBookings(ctx context.Context, eventId string) (AttendeeCursor, error) {
	eventId = strings.TrimSpace(eventId)

	ctx, span := s.tracer.Start(ctx, "booking.ListBookings", trace.WithAttributes(
		attribute.String("event.id", eventId),
	))
	defer span.End()

	if eventId == "" {
		return nil, s.fail(span, "list bookings", invalidInput("eventId is required"))
	}

	cur, err := s.store.ListAttendees(ctx, eventId)
	if err != nil {
		return nil, s.fail(span, "list attendees", err)
	}
	return cur, nil
}

func (s *Service) Analytics(ctx context.Context, adminId string) (model.Analytics, error) {
	adminId = strings.TrimSpace(adminId)

	ctx, span := s.tracer.Start(ctx, "booking.Analytics", trace.WithAttributes(
		attribute.String("admin.id", adminId),
	))
	defer span.End()

	if adminId == "" {
		return model.Analytics{}, s.fail(span, "analytics", invalidInput("adminId is required"))
	}

	events, err := s.store.EventsCreatedBy(ctx, adminId)
	if err != nil {
		return model.Analytics{}, s.fail(span, "events created by", err)
	}
	if len(events) == 0 {
		return model.Analytics{}, s.fail(span, "analytics", &Error{
			Kind:    NotFound,
			Message: fmt.Sprintf("no events found for admin %v", adminId),
		})
	}

	eventIds := make([]string, 0, len(events))
	for _, event := range events {
		eventIds = append(eventIds, event.Id)
	}
	attendees, err := s.store.AttendeesForEvents(ctx, eventIds)
	if err != nil {
		return model.Analytics{}, s.fail(span, "attendees for events", err)
	}

	report := Summarize(events, attendees, s.pricing)
	report.AdminId = adminId
	return report, nil
}

func (s *Service) publish(ctx context.Context, routingKey string, payload interface{}) {
	if err := s.publisher.Publish(ctx, routingKey, payload); err != nil {
		log.Printf("publish %v: %v", routingKey, err)
	}
}

// fail converts store and validation errors into *Error, records them on the
// span and logs storage failures.
func (s *Service) fail(span trace.Span, op string, err error) error {
	bookingErr := classify(err)
	span.SetAttributes(attribute.String("booking.failure", string(bookingErr.Kind)))
	if bookingErr.Kind == StorageFailure {
		span.RecordError(err)
		span.SetStatus(codes.Error, op)
		log.Printf("booking %v: %v", op, err)
	}
	return bookingErr
}

func classify(err error) *Error {
	var bookingErr *Error
	if errors.As(err, &bookingErr) {
		return bookingErr
	}

	var insufficient *model.InsufficientTicketsError
	switch {
	case errors.As(err, &insufficient):
		return &Error{
			Kind:      InsufficientInventory,
			Message:   fmt.Sprintf("Only %d ticket(s) available.", insufficient.Remaining),
			Remaining: insufficient.Remaining,
			Err:       err,
		}
	case errors.Is(err, model.ErrEventNotFound):
		return &Error{Kind: NotFound, Message: "Event not found.", Err: err}
	case errors.Is(err, model.ErrUserNotFound):
		return &Error{Kind: NotFound, Message: "User not found.", Err: err}
	case errors.Is(err, model.ErrDuplicateBooking):
		return &Error{Kind: DuplicateBooking, Message: "User has already booked tickets for this event.", Err: err}
	case errors.Is(err, model.ErrTicketLimitExceeded):
		return &Error{Kind: InvalidInput, Message: "restock would exceed the ticket limit for this event", Err: err}
	default:
		return &Error{Kind: StorageFailure, Message: "storage failure", Err: err}
	}
}
