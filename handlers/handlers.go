package handlers

import (
	"context"
	"time"

	"event-ticketing/booking"
	"event-ticketing/model"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
)

type EventStore interface {
	CreateEvent(ctx context.Context, event model.Event) (model.Event, error)
	ListEvents(ctx context.Context) ([]model.Event, error)
	FindEvent(ctx context.Context, id string) (model.Event, error)
	EventsCreatedBy(ctx context.Context, adminId string) ([]model.Event, error)
	UpdateEvent(ctx context.Context, id string, changes model.EventChanges) (model.Event, error)
	DeleteEvent(ctx context.Context, id string) error
}

type UserStore interface {
	CreateUser(ctx context.Context, user model.UserData) (model.UserData, error)
	FindUserByEmail(ctx context.Context, email string) (model.UserData, error)
}

type Handlers struct {
	Bookings   *booking.Service
	Events     EventStore
	Users      UserStore
	SigningKey []byte
	TokenTTL   time.Duration
	// TicketLimit caps the inventory of a new event; zero means no cap.
	TicketLimit int
	HashCost    int
	Now         func() time.Time
}

func New(bookings *booking.Service, events EventStore, users UserStore, signingKey string) *Handlers {
	return &Handlers{
		Bookings:   bookings,
		Events:     events,
		Users:      users,
		SigningKey: []byte(signingKey),
		TokenTTL:   8 * time.Hour,
		HashCost:   bcrypt.DefaultCost,
		Now:        time.Now,
	}
}

func HealthCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}
