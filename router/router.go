package router

import (
	"event-ticketing/handlers"
	"event-ticketing/middleware"
	"event-ticketing/model"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
)

const logFormat = "${time} ${locals:requestid} ${status} - ${latency} ${method} ${path}\n"

func SetupRoutes(app *fiber.App, h *handlers.Handlers, signingKey string) {
	api := app.Group("/",
		recover.New(),
		requestid.New(requestid.Config{Generator: uuid.NewString}),
		logger.New(logger.Config{Format: logFormat}))
	api.Get("/health", handlers.HealthCheck)

	admin := []fiber.Handler{middleware.Authorize(signingKey), middleware.RequireAdmin()}

	//Accounts
	users := api.Group("/users")
	users.Post("/signup", h.SignUp(model.RoleUser))
	users.Post("/signin", h.SignIn(model.RoleUser))

	admins := api.Group("/admins")
	admins.Post("/signup", h.SignUp(model.RoleAdmin))
	admins.Post("/signin", h.SignIn(model.RoleAdmin))
	admins.Get("/:adminId/analytics", h.GetAnalytics)

	//Events
	events := api.Group("/events")
	events.Get("/", h.GetEvents)
	events.Get("/admin/:adminId", h.GetAdminEvents)
	events.Get("/:eventId", h.GetEvent)
	events.Get("/:eventId/bookings", h.GetBookings)
	events.Post("/", append(admin, h.CreateEvent)...)
	events.Put("/:eventId/edit", append(admin, h.UpdateEvent)...)
	events.Put("/:eventId/restock", append(admin, h.RestockEvent)...)
	events.Delete("/:eventId", append(admin, h.DeleteEvent)...)

	//Booking
	api.Post("/bookings", h.CreateBooking)
}
