package booking_test

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"event-ticketing/booking"
	"event-ticketing/database"
	"event-ticketing/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

type fixture struct {
	store *database.MemoryStore
	admin model.UserData
	event model.Event
}

func newFixture(t *testing.T, tickets int, price float64) *fixture {
	t.Helper()
	ctx := context.Background()
	store := database.NewMemoryStore()

	admin, err := store.CreateUser(ctx, model.UserData{Name: "Admin", Email: "admin@example.com", Role: model.RoleAdmin})
	require.NoError(t, err)
	event, err := store.CreateEvent(ctx, model.Event{
		Title:       "Go Conf",
		Date:        time.Date(2030, 6, 1, 18, 0, 0, 0, time.UTC),
		CreatedBy:   admin.Id,
		Tickets:     tickets,
		TicketPrice: price,
		Category:    model.CategoryTechnology,
		Location:    "Berlin",
	})
	require.NoError(t, err)

	return &fixture{store: store, admin: admin, event: event}
}

func (f *fixture) user(t *testing.T, name string) model.UserData {
	t.Helper()
	user, err := f.store.CreateUser(context.Background(), model.UserData{
		Name:  name,
		Email: name + "@example.com",
		Role:  model.RoleUser,
	})
	require.NoError(t, err)
	return user
}

func (f *fixture) tickets(t *testing.T) int {
	t.Helper()
	event, err := f.store.FindEvent(context.Background(), f.event.Id)
	require.NoError(t, err)
	return event.Tickets
}

func requireKind(t *testing.T, err error, kind booking.Kind) *booking.Error {
	t.Helper()
	var bookingErr *booking.Error
	require.True(t, stderrors.As(err, &bookingErr), "expected *booking.Error, got %v", err)
	require.Equal(t, kind, bookingErr.Kind, bookingErr.Message)
	return bookingErr
}

type publishedMessage struct {
	routingKey string
	payload    interface{}
}

type recordingPublisher struct {
	mu       sync.Mutex
	messages []publishedMessage
	err      error
}

func (p *recordingPublisher) Publish(_ context.Context, routingKey string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, publishedMessage{routingKey: routingKey, payload: payload})
	return p.err
}

// failingStore breaks the write paths of an otherwise working store.
type failingStore struct {
	*database.MemoryStore
	err error
}

func (s failingStore) CommitBooking(context.Context, model.Attendee) (model.Attendee, model.Event, error) {
	return model.Attendee{}, model.Event{}, s.err
}

func (s failingStore) AddTickets(context.Context, string, int, int) (model.Event, error) {
	return model.Event{}, s.err
}

func TestBookingWalkthrough(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 10, 20)
	svc := booking.NewService(f.store)
	alice, bob := f.user(t, "alice"), f.user(t, "bob")

	result, err := svc.Book(ctx, alice.Id, f.event.Id, 3)
	require.NoError(t, err)
	assert.NotEmpty(t, result.BookingId)
	assert.Equal(t, 3, result.NumberOfTickets)
	assert.Equal(t, 60.0, result.TotalPrice)
	assert.Equal(t, 7, f.tickets(t))

	_, err = svc.Book(ctx, alice.Id, f.event.Id, 1)
	requireKind(t, err, booking.DuplicateBooking)
	assert.Equal(t, 7, f.tickets(t))

	_, err = svc.Book(ctx, bob.Id, f.event.Id, 8)
	bookingErr := requireKind(t, err, booking.InsufficientInventory)
	assert.Equal(t, 7, bookingErr.Remaining)
	assert.Equal(t, "Only 7 ticket(s) available.", bookingErr.Message)
	assert.Equal(t, 7, f.tickets(t))

	carol, dave := f.user(t, "carol"), f.user(t, "dave")
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, user := range []model.UserData{carol, dave} {
		wg.Add(1)
		go func(i int, userId string) {
			defer wg.Done()
			_, errs[i] = svc.Book(ctx, userId, f.event.Id, 4)
		}(i, user.Id)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.Equal(t, 3, requireKind(t, err, booking.InsufficientInventory).Remaining)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 3, f.tickets(t))

	event, err := svc.Restock(ctx, f.event.Id, 5)
	require.NoError(t, err)
	assert.Equal(t, 8, event.Tickets)
	assert.Equal(t, 8, f.tickets(t))
}

func TestConcurrentBookingsNeverOversell(t *testing.T) {
	ctx := context.Background()
	const inventory = 25
	f := newFixture(t, inventory, 10)
	svc := booking.NewService(f.store)

	users := make([]model.UserData, 60)
	for i := range users {
		users[i] = f.user(t, fmt.Sprintf("user%d", i))
	}

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		booked int
	)
	for i, user := range users {
		wg.Add(1)
		go func(userId string, quantity int) {
			defer wg.Done()
			result, err := svc.Book(ctx, userId, f.event.Id, quantity)
			if err != nil {
				assert.Equal(t, booking.InsufficientInventory, booking.KindOf(err))
				return
			}
			mu.Lock()
			booked += result.NumberOfTickets
			mu.Unlock()
		}(user.Id, i%3+1)
	}
	wg.Wait()

	remaining := f.tickets(t)
	assert.LessOrEqual(t, booked, inventory)
	assert.GreaterOrEqual(t, remaining, 0)
	assert.Equal(t, inventory, booked+remaining)
}

func TestConcurrentDuplicateBookings(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 100, 5)
	svc := booking.NewService(f.store)
	alice := f.user(t, "alice")

	const attempts = 20
	var wg sync.WaitGroup
	errs := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Book(ctx, alice.Id, f.event.Id, 2)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		requireKind(t, err, booking.DuplicateBooking)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 98, f.tickets(t))
}

func TestBookRejectsInvalidInput(t *testing.T) {
	f := newFixture(t, 10, 20)
	svc := booking.NewService(f.store)
	alice := f.user(t, "alice")

	tests := []struct {
		description string
		userId      string
		eventId     string
		quantity    int
	}{
		{description: "missing user", userId: "", eventId: f.event.Id, quantity: 1},
		{description: "blank event", userId: alice.Id, eventId: "   ", quantity: 1},
		{description: "zero tickets", userId: alice.Id, eventId: f.event.Id, quantity: 0},
		{description: "negative tickets", userId: alice.Id, eventId: f.event.Id, quantity: -2},
	}

	for _, test := range tests {
		t.Run(test.description, func(t *testing.T) {
			_, err := svc.Book(context.Background(), test.userId, test.eventId, test.quantity)
			requireKind(t, err, booking.InvalidInput)
			assert.False(t, booking.Retryable(err))
		})
	}
	assert.Equal(t, 10, f.tickets(t))
}

func TestBookUnknownUserOrEvent(t *testing.T) {
	f := newFixture(t, 10, 20)
	svc := booking.NewService(f.store)
	alice := f.user(t, "alice")

	_, err := svc.Book(context.Background(), alice.Id, "missing-event", 1)
	assert.Equal(t, "Event not found.", requireKind(t, err, booking.NotFound).Message)

	_, err = svc.Book(context.Background(), "missing-user", f.event.Id, 1)
	assert.Equal(t, "User not found.", requireKind(t, err, booking.NotFound).Message)
	assert.Equal(t, 10, f.tickets(t))
}

func TestBookSnapshotsPrice(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 10, 20)
	alice := f.user(t, "alice")

	result, err := booking.NewService(f.store).Book(ctx, alice.Id, f.event.Id, 2)
	require.NoError(t, err)
	assert.Equal(t, 40.0, result.TotalPrice)

	price := 50.0
	_, err = f.store.UpdateEvent(ctx, f.event.Id, model.EventChanges{TicketPrice: &price})
	require.NoError(t, err)

	current, err := booking.NewService(f.store).Analytics(ctx, f.admin.Id)
	require.NoError(t, err)
	assert.Equal(t, 2, current.TotalTicketsSold)
	assert.Equal(t, 100.0, current.TotalRevenue)

	booked, err := booking.NewService(f.store, booking.WithPricing(booking.PricingBooked)).Analytics(ctx, f.admin.Id)
	require.NoError(t, err)
	assert.Equal(t, 40.0, booked.TotalRevenue)
	require.Len(t, booked.PerEvent, 1)
	assert.Equal(t, f.event.Id, booked.PerEvent[0].EventId)
	assert.Equal(t, f.admin.Id, booked.AdminId)
}

func TestAnalytics(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 10, 20)
	svc := booking.NewService(f.store)

	second, err := f.store.CreateEvent(ctx, model.Event{
		Title:       "Jazz Night",
		Date:        time.Date(2030, 7, 1, 20, 0, 0, 0, time.UTC),
		CreatedBy:   f.admin.Id,
		Tickets:     5,
		TicketPrice: 12.5,
		Category:    model.CategoryMusic,
		Location:    "Paris",
	})
	require.NoError(t, err)

	alice, bob := f.user(t, "alice"), f.user(t, "bob")
	_, err = svc.Book(ctx, alice.Id, f.event.Id, 3)
	require.NoError(t, err)
	_, err = svc.Book(ctx, bob.Id, f.event.Id, 1)
	require.NoError(t, err)
	_, err = svc.Book(ctx, alice.Id, second.Id, 2)
	require.NoError(t, err)

	report, err := svc.Analytics(ctx, f.admin.Id)
	require.NoError(t, err)
	assert.Equal(t, 6, report.TotalTicketsSold)
	assert.Equal(t, 4*20.0+2*12.5, report.TotalRevenue)

	perEvent := map[string]model.EventSales{}
	for _, sales := range report.PerEvent {
		perEvent[sales.EventId] = sales
	}
	assert.Equal(t, 4, perEvent[f.event.Id].TicketsSold)
	assert.Equal(t, 25.0, perEvent[second.Id].Revenue)

	_, err = svc.Analytics(ctx, alice.Id)
	requireKind(t, err, booking.NotFound)

	_, err = svc.Analytics(ctx, " ")
	requireKind(t, err, booking.InvalidInput)
}

func TestRestock(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 10, 20)
	svc := booking.NewService(f.store, booking.WithTicketLimit(12))

	_, err := svc.Restock(ctx, f.event.Id, 0)
	requireKind(t, err, booking.InvalidInput)

	_, err = svc.Restock(ctx, f.event.Id, 5)
	requireKind(t, err, booking.InvalidInput)
	assert.Equal(t, 10, f.tickets(t))

	_, err = svc.Restock(ctx, "missing-event", 1)
	requireKind(t, err, booking.NotFound)

	event, err := svc.Restock(ctx, f.event.Id, 2)
	require.NoError(t, err)
	assert.Equal(t, 12, event.Tickets)
}

func TestListBookings(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 10, 20)

	now := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	svc := booking.NewService(f.store, booking.WithClock(func() time.Time {
		now = now.Add(time.Minute)
		return now
	}))

	alice, bob := f.user(t, "alice"), f.user(t, "bob")
	_, err := svc.Book(ctx, bob.Id, f.event.Id, 1)
	require.NoError(t, err)
	_, err = svc.Book(ctx, alice.Id, f.event.Id, 2)
	require.NoError(t, err)

	cur, err := svc.ListBookings(ctx, f.event.Id)
	require.NoError(t, err)
	bookings, err := booking.Collect(ctx, cur)
	require.NoError(t, err)

	require.Len(t, bookings, 2)
	assert.Equal(t, "bob", bookings[0].User.Name)
	assert.Equal(t, "bob@example.com", bookings[0].User.Email)
	assert.Equal(t, 2, bookings[1].NumberOfTickets)
	assert.True(t, bookings[0].CreatedAt.Before(bookings[1].CreatedAt))

	cur, err = svc.ListBookings(ctx, "missing-event")
	require.NoError(t, err)
	bookings, err = booking.Collect(ctx, cur)
	require.NoError(t, err)
	assert.Empty(t, bookings)
}

func TestStorageFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 10, 20)
	svc := booking.NewService(failingStore{MemoryStore: f.store, err: stderrors.New("connection reset")})
	alice := f.user(t, "alice")

	_, err := svc.Book(ctx, alice.Id, f.event.Id, 1)
	bookingErr := requireKind(t, err, booking.StorageFailure)
	assert.True(t, booking.Retryable(err))
	assert.NotContains(t, bookingErr.Message, "connection reset")

	_, err = svc.Restock(ctx, f.event.Id, 1)
	requireKind(t, err, booking.StorageFailure)
	assert.Equal(t, 10, f.tickets(t))
}

func TestPublishesNotifications(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 10, 20)
	publisher := &recordingPublisher{}
	svc := booking.NewService(f.store, booking.WithPublisher(publisher))
	alice := f.user(t, "alice")

	_, err := svc.Book(ctx, alice.Id, f.event.Id, 2)
	require.NoError(t, err)
	_, err = svc.Book(ctx, alice.Id, f.event.Id, 2)
	require.Error(t, err)
	_, err = svc.Restock(ctx, f.event.Id, 3)
	require.NoError(t, err)

	require.Len(t, publisher.messages, 2)
	assert.Equal(t, booking.RoutingBookingCreated, publisher.messages[0].routingKey)
	assert.Equal(t, booking.RoutingEventRestocked, publisher.messages[1].routingKey)

	publisher.err = stderrors.New("broker down")
	bob := f.user(t, "bob")
	_, err = svc.Book(ctx, bob.Id, f.event.Id, 1)
	assert.NoError(t, err)
}

func TestParsePricing(t *testing.T) {
	tests := []struct {
		input    string
		expected booking.Pricing
		fails    bool
	}{
		{input: "", expected: booking.PricingCurrent},
		{input: "current", expected: booking.PricingCurrent},
		{input: " Booked ", expected: booking.PricingBooked},
		{input: "average", fails: true},
	}

	for _, test := range tests {
		pricing, err := booking.ParsePricing(test.input)
		if test.fails {
			assert.Errorf(t, err, test.input)
			continue
		}
		assert.NoErrorf(t, err, test.input)
		assert.Equalf(t, test.expected, pricing, test.input)
	}
}

func spanAttributes(span sdktrace.ReadOnlySpan) map[string]string {
	attrs := map[string]string{}
	for _, kv := range span.Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	return attrs
}

func TestSpansCarryTrimmedIds(t *testing.T) {
	ctx := context.Background()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer tp.Shutdown(ctx)

	f := newFixture(t, 10, 20)
	svc := booking.NewService(f.store, booking.WithTracerProvider(tp))
	alice := f.user(t, "alice")

	_, err := svc.Book(ctx, " "+alice.Id+" ", "\t"+f.event.Id, 1)
	require.NoError(t, err)
	_, err = svc.Restock(ctx, f.event.Id+"\n", 1)
	require.NoError(t, err)
	_, err = svc.Analytics(ctx, "  "+f.admin.Id)
	require.NoError(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 3)

	book := spanAttributes(spans[0])
	assert.Equal(t, "booking.Book", spans[0].Name())
	assert.Equal(t, alice.Id, book["user.id"])
	assert.Equal(t, f.event.Id, book["event.id"])
	assert.Equal(t, f.event.Id, spanAttributes(spans[1])["event.id"])
	assert.Equal(t, f.admin.Id, spanAttributes(spans[2])["admin.id"])
}
