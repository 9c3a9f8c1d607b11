package handlers

import (
	"event-ticketing/booking"
	"event-ticketing/errors"

	"github.com/gofiber/fiber/v2"
)

type bookingRequest struct {
	UserId          string `json:"userId"`
	EventId         string `json:"eventId"`
	NumberOfTickets int    `json:"numberOfTickets"`
}

type restockRequest struct {
	AdditionalQuantity int `json:"additionalQuantity"`
	// TicketsToAdd is the field name older clients send.
	TicketsToAdd int `json:"ticketsToAdd"`
}

func (h *Handlers) CreateBooking(c *fiber.Ctx) error {
	req := new(bookingRequest)
	if err := c.BodyParser(req); err != nil {
		return errors.RaiseBadRequestError(c, "userId, eventId, and a valid numberOfTickets are required.")
	}

	result, err := h.Bookings.Book(c.UserContext(), req.UserId, req.EventId, req.NumberOfTickets)
	if err != nil {
		return errors.RaiseBookingError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(result)
}

func (h *Handlers) GetBookings(c *fiber.Ctx) error {
	cur, err := h.Bookings.ListBookings(c.UserContext(), c.Params("eventId"))
	if err != nil {
		return errors.RaiseBookingError(c, err)
	}

	bookings, err := booking.Collect(c.UserContext(), cur)
	if err != nil {
		return errors.RaiseBookingError(c, err)
	}

	return c.JSON(bookings)
}

func (h *Handlers) RestockEvent(c *fiber.Ctx) error {
	req := new(restockRequest)
	if err := c.BodyParser(req); err != nil {
		return errors.RaiseBadRequestError(c, "additionalQuantity must be a positive number")
	}
	quantity := req.AdditionalQuantity
	if quantity == 0 {
		quantity = req.TicketsToAdd
	}

	event, err := h.Bookings.Restock(c.UserContext(), c.Params("eventId"), quantity)
	if err != nil {
		return errors.RaiseBookingError(c, err)
	}

	return c.JSON(event)
}

func (h *Handlers) GetAnalytics(c *fiber.Ctx) error {
	report, err := h.Bookings.Analytics(c.UserContext(), c.Params("adminId"))
	if err != nil {
		return errors.RaiseBookingError(c, err)
	}

	return c.JSON(report)
}
