package model

import "time"

// Attendee is a committed booking of NumberOfTickets by one user for one event.
// TicketPrice is the event price at the moment the booking was committed.
type Attendee struct {
	Id              string    `json:"_id"`
	UserId          string    `json:"userId"`
	EventId         string    `json:"eventId"`
	NumberOfTickets int       `json:"numberOfTickets"`
	TicketPrice     float64   `json:"ticketPrice"`
	CreatedAt       time.Time `json:"createdAt"`
}

// AttendeeUser is the slice of a user shown next to a booking.
type AttendeeUser struct {
	Id    string `json:"_id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type AttendeeSummary struct {
	Id              string       `json:"_id"`
	User            AttendeeUser `json:"user"`
	NumberOfTickets int          `json:"numberOfTickets"`
	CreatedAt       time.Time    `json:"createdAt"`
}
