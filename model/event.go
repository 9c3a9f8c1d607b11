package model

import "time"

type Category string

const (
	CategoryMusic      Category = "Music"
	CategoryEducation  Category = "Education"
	CategorySports     Category = "Sports"
	CategoryTechnology Category = "Technology"
	CategoryArt        Category = "Art"
	CategoryHealth     Category = "Health"
	CategoryBusiness   Category = "Business"
	CategoryOther      Category = "Other"
)

var Categories = []Category{
	CategoryMusic,
	CategoryEducation,
	CategorySports,
	CategoryTechnology,
	CategoryArt,
	CategoryHealth,
	CategoryBusiness,
	CategoryOther,
}

func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Event is a ticketed occurrence. Tickets holds the remaining sellable
// inventory and is only changed by booking, restock and creation.
type Event struct {
	Id          string    `json:"_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Date        time.Time `json:"date"`
	CreatedBy   string    `json:"createdBy"`
	Tickets     int       `json:"tickets"`
	TicketPrice float64   `json:"ticketPrice"`
	Image       string    `json:"image"`
	Category    Category  `json:"category"`
	Location    string    `json:"location"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// EventChanges carries the fields an admin may edit. Nil fields are left as is.
type EventChanges struct {
	Title       *string
	Description *string
	Date        *time.Time
	TicketPrice *float64
}

func (ch EventChanges) Apply(event *Event) {
	if ch.Title != nil {
		event.Title = *ch.Title
	}
	if ch.Description != nil {
		event.Description = *ch.Description
	}
	if ch.Date != nil {
		event.Date = *ch.Date
	}
	if ch.TicketPrice != nil {
		event.TicketPrice = *ch.TicketPrice
	}
}
