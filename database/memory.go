package database

import (
	"context"
	"sort"
	"sync"
	"time"

	"event-ticketing/booking"
	"event-ticketing/model"

	"github.com/google/uuid"
)

type bookerKey struct {
	userId  string
	eventId string
}

// MemoryStore is an in-process store. Every write to an event, including
// bookings, runs under that event's lock, and the booking checks are repeated
// inside it; mu only guards the maps themselves.
type MemoryStore struct {
	mu        sync.RWMutex
	users     map[string]model.UserData
	emails    map[string]string
	events    map[string]model.Event
	attendees []model.Attendee
	booked    map[bookerKey]struct{}

	eventLocks keyedMutex
	newId      func() string
	now        func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:  make(map[string]model.UserData),
		emails: make(map[string]string),
		events: make(map[string]model.Event),
		booked: make(map[bookerKey]struct{}),
		newId:  uuid.NewString,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

var _ booking.Store = (*MemoryStore)(nil)

func (s *MemoryStore) FindUser(_ context.Context, id string) (model.UserData, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return model.UserData{}, model.ErrUserNotFound
	}
	return user, nil
}

func (s *MemoryStore) FindUserByEmail(_ context.Context, email string) (model.UserData, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.emails[email]
	if !ok {
		return model.UserData{}, model.ErrUserNotFound
	}
	return s.users[id], nil
}

func (s *MemoryStore) CreateUser(_ context.Context, user model.UserData) (model.UserData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.emails[user.Email]; taken {
		return model.UserData{}, model.ErrEmailTaken
	}
	user.Id = s.newId()
	user.CreatedAt = s.now()
	s.users[user.Id] = user
	s.emails[user.Email] = user.Id
	return user, nil
}

func (s *MemoryStore) FindEvent(_ context.Context, id string) (model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	event, ok := s.events[id]
	if !ok {
		return model.Event{}, model.ErrEventNotFound
	}
	return event, nil
}

func (s *MemoryStore) CreateEvent(_ context.Context, event model.Event) (model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[event.CreatedBy]; !ok {
		return model.Event{}, model.ErrUserNotFound
	}
	now := s.now()
	event.Id = s.newId()
	event.CreatedAt = now
	event.UpdatedAt = now
	s.events[event.Id] = event
	return event, nil
}

func (s *MemoryStore) ListEvents(_ context.Context) ([]model.Event, error) {
	s.mu.RLock()
	events := make([]model.Event, 0, len(s.events))
	for _, event := range s.events {
		events = append(events, event)
	}
	s.mu.RUnlock()

	sort.SliceStable(events, func(i, j int) bool {
		if events[i].Date.Equal(events[j].Date) {
			return events[i].CreatedAt.Before(events[j].CreatedAt)
		}
		return events[i].Date.Before(events[j].Date)
	})
	return events, nil
}

func (s *MemoryStore) EventsCreatedBy(_ context.Context, adminId string) ([]model.Event, error) {
	s.mu.RLock()
	events := []model.Event{}
	for _, event := range s.events {
		if event.CreatedBy == adminId {
			events = append(events, event)
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Date.After(events[j].Date)
	})
	return events, nil
}

func (s *MemoryStore) UpdateEvent(_ context.Context, id string, changes model.EventChanges) (model.Event, error) {
	unlock := s.eventLocks.lock(id)
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	event, ok := s.events[id]
	if !ok {
		return model.Event{}, model.ErrEventNotFound
	}
	changes.Apply(&event)
	event.UpdatedAt = s.now()
	s.events[id] = event
	return event, nil
}

func (s *MemoryStore) DeleteEvent(_ context.Context, id string) error {
	unlock := s.eventLocks.lock(id)
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[id]; !ok {
		return model.ErrEventNotFound
	}
	delete(s.events, id)

	kept := s.attendees[:0]
	for _, attendee := range s.attendees {
		if attendee.EventId == id {
			delete(s.booked, bookerKey{userId: attendee.UserId, eventId: id})
			continue
		}
		kept = append(kept, attendee)
	}
	s.attendees = kept
	return nil
}

func (s *MemoryStore) FindAttendee(_ context.Context, userId, eventId string) (*model.Attendee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.booked[bookerKey{userId: userId, eventId: eventId}]; !ok {
		return nil, nil
	}
	for _, attendee := range s.attendees {
		if attendee.UserId == userId && attendee.EventId == eventId {
			found := attendee
			return &found, nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) CommitBooking(_ context.Context, attendee model.Attendee) (model.Attendee, model.Event, error) {
	unlock := s.eventLocks.lock(attendee.EventId)
	defer unlock()

	key := bookerKey{userId: attendee.UserId, eventId: attendee.EventId}

	s.mu.RLock()
	event, eventExists := s.events[attendee.EventId]
	_, userExists := s.users[attendee.UserId]
	_, alreadyBooked := s.booked[key]
	s.mu.RUnlock()

	switch {
	case !eventExists:
		return model.Attendee{}, model.Event{}, model.ErrEventNotFound
	case !userExists:
		return model.Attendee{}, model.Event{}, model.ErrUserNotFound
	case alreadyBooked:
		return model.Attendee{}, model.Event{}, model.ErrDuplicateBooking
	case event.Tickets < attendee.NumberOfTickets:
		return model.Attendee{}, model.Event{}, &model.InsufficientTicketsError{Remaining: event.Tickets}
	}

	event.Tickets -= attendee.NumberOfTickets
	event.UpdatedAt = s.now()
	attendee.Id = s.newId()
	attendee.TicketPrice = event.TicketPrice

	s.mu.Lock()
	s.events[event.Id] = event
	s.attendees = append(s.attendees, attendee)
	s.booked[key] = struct{}{}
	s.mu.Unlock()

	return attendee, event, nil
}

func (s *MemoryStore) AddTickets(_ context.Context, eventId string, quantity, limit int) (model.Event, error) {
	unlock := s.eventLocks.lock(eventId)
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	event, ok := s.events[eventId]
	if !ok {
		return model.Event{}, model.ErrEventNotFound
	}
	if limit > 0 && event.Tickets+quantity > limit {
		return model.Event{}, model.ErrTicketLimitExceeded
	}
	event.Tickets += quantity
	event.UpdatedAt = s.now()
	s.events[eventId] = event
	return event, nil
}

func (s *MemoryStore) ListAttendees(_ context.Context, eventId string) (booking.AttendeeCursor, error) {
	s.mu.RLock()
	summaries := []model.AttendeeSummary{}
	for _, attendee := range s.attendees {
		if attendee.EventId != eventId {
			continue
		}
		user := s.users[attendee.UserId]
		summaries = append(summaries, model.AttendeeSummary{
			Id: attendee.Id,
			User: model.AttendeeUser{
				Id:    user.Id,
				Name:  user.Name,
				Email: user.Email,
			},
			NumberOfTickets: attendee.NumberOfTickets,
			CreatedAt:       attendee.CreatedAt,
		})
	}
	s.mu.RUnlock()

	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].CreatedAt.Before(summaries[j].CreatedAt)
	})
	return newSliceCursor(summaries), nil
}

func (s *MemoryStore) AttendeesForEvents(_ context.Context, eventIds []string) ([]model.Attendee, error) {
	wanted := make(map[string]struct{}, len(eventIds))
	for _, id := range eventIds {
		wanted[id] = struct{}{}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	attendees := []model.Attendee{}
	for _, attendee := range s.attendees {
		if _, ok := wanted[attendee.EventId]; ok {
			attendees = append(attendees, attendee)
		}
	}
	return attendees, nil
}

// keyedMutex hands out one mutex per key and forgets it once nobody holds or
// waits for it.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func (k *keyedMutex) lock(key string) (unlock func()) {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*refMutex)
	}
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
