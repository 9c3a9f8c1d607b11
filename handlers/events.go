package handlers

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"event-ticketing/errors"
	"event-ticketing/middleware"
	"event-ticketing/model"

	"github.com/gofiber/fiber/v2"
)

var dateLayouts = []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02"}

type eventRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Date        string   `json:"date"`
	Tickets     *int     `json:"tickets"`
	TicketPrice *float64 `json:"ticketPrice"`
	Category    string   `json:"category"`
	Image       string   `json:"image"`
	Location    string   `json:"location"`
}

type editEventRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Date        string   `json:"date"`
	TicketPrice *float64 `json:"ticketPrice"`
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("date %q is not a valid date", s)
}

func (h *Handlers) newEvent(req *eventRequest, adminId string) (model.Event, string) {
	title := strings.TrimSpace(req.Title)
	location := strings.TrimSpace(req.Location)
	if title == "" || req.Date == "" || req.Tickets == nil || req.TicketPrice == nil || location == "" {
		return model.Event{}, "Title, date, tickets, ticketPrice, and location are required."
	}

	date, err := parseDate(req.Date)
	if err != nil {
		return model.Event{}, err.Error()
	}
	if *req.Tickets < 0 {
		return model.Event{}, "tickets must not be negative"
	}
	if h.TicketLimit > 0 && *req.Tickets > h.TicketLimit {
		return model.Event{}, fmt.Sprintf("tickets must not exceed %d", h.TicketLimit)
	}
	if *req.TicketPrice < 0 {
		return model.Event{}, "ticketPrice must not be negative"
	}

	category := model.Category(strings.TrimSpace(req.Category))
	if category == "" {
		category = model.CategoryOther
	}
	if !category.Valid() {
		return model.Event{}, fmt.Sprintf("unknown category %q", req.Category)
	}

	return model.Event{
		Title:       title,
		Description: req.Description,
		Date:        date,
		CreatedBy:   adminId,
		Tickets:     *req.Tickets,
		TicketPrice: *req.TicketPrice,
		Image:       req.Image,
		Category:    category,
		Location:    location,
	}, ""
}

func (h *Handlers) CreateEvent(c *fiber.Ctx) error {
	req := new(eventRequest)
	if err := c.BodyParser(req); err != nil {
		return errors.RaiseBadRequestError(c, "Error on parsing request body")
	}

	event, problem := h.newEvent(req, middleware.UserId(c))
	if problem != "" {
		return errors.RaiseBadRequestError(c, problem)
	}

	created, err := h.Events.CreateEvent(c.UserContext(), event)
	if stderrors.Is(err, model.ErrUserNotFound) {
		return errors.RaisePermissionsError(c, "token subject is not a known admin")
	}
	if err != nil {
		return errors.RaiseInternalServerError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *Handlers) GetEvents(c *fiber.Ctx) error {
	events, err := h.Events.ListEvents(c.UserContext())
	if err != nil {
		return errors.RaiseInternalServerError(c, err)
	}
	return c.JSON(events)
}

func (h *Handlers) GetEvent(c *fiber.Ctx) error {
	event, err := h.Events.FindEvent(c.UserContext(), c.Params("eventId"))
	if stderrors.Is(err, model.ErrEventNotFound) {
		return errors.RaiseNotFoundError(c, "Event not found.")
	}
	if err != nil {
		return errors.RaiseInternalServerError(c, err)
	}
	return c.JSON(event)
}

func (h *Handlers) GetAdminEvents(c *fiber.Ctx) error {
	events, err := h.Events.EventsCreatedBy(c.UserContext(), c.Params("adminId"))
	if err != nil {
		return errors.RaiseInternalServerError(c, err)
	}
	return c.JSON(events)
}

func (h *Handlers) UpdateEvent(c *fiber.Ctx) error {
	req := new(editEventRequest)
	if err := c.BodyParser(req); err != nil {
		return errors.RaiseBadRequestError(c, "Error on parsing request body")
	}

	// Empty fields are left unchanged. Tickets are only changed by restock.
	var changes model.EventChanges
	if title := strings.TrimSpace(req.Title); title != "" {
		changes.Title = &title
	}
	if req.Description != "" {
		changes.Description = &req.Description
	}
	if req.Date != "" {
		date, err := parseDate(req.Date)
		if err != nil {
			return errors.RaiseBadRequestError(c, err.Error())
		}
		changes.Date = &date
	}
	if req.TicketPrice != nil {
		if *req.TicketPrice < 0 {
			return errors.RaiseBadRequestError(c, "ticketPrice must not be negative")
		}
		changes.TicketPrice = req.TicketPrice
	}

	event, err := h.Events.UpdateEvent(c.UserContext(), c.Params("eventId"), changes)
	if stderrors.Is(err, model.ErrEventNotFound) {
		return errors.RaiseNotFoundError(c, "Event not found.")
	}
	if err != nil {
		return errors.RaiseInternalServerError(c, err)
	}
	return c.JSON(event)
}

func (h *Handlers) DeleteEvent(c *fiber.Ctx) error {
	err := h.Events.DeleteEvent(c.UserContext(), c.Params("eventId"))
	if stderrors.Is(err, model.ErrEventNotFound) {
		return errors.RaiseNotFoundError(c, "Event not found.")
	}
	if err != nil {
		return errors.RaiseInternalServerError(c, err)
	}
	return c.JSON(fiber.Map{"status": "success", "message": "Event deleted", "data": nil})
}
