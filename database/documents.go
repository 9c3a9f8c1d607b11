package database

import (
	"time"

	"event-ticketing/model"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type eventDoc struct {
	Id          primitive.ObjectID `bson:"_id"`
	Title       string             `bson:"title"`
	Description string             `bson:"description"`
	Date        time.Time          `bson:"date"`
	CreatedBy   primitive.ObjectID `bson:"createdBy"`
	Tickets     int                `bson:"tickets"`
	TicketPrice float64            `bson:"ticketPrice"`
	Image       string             `bson:"image"`
	Category    string             `bson:"category"`
	Location    string             `bson:"location"`
	CreatedAt   time.Time          `bson:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt"`
}

func (d eventDoc) model() model.Event {
	return model.Event{
		Id:          d.Id.Hex(),
		Title:       d.Title,
		Description: d.Description,
		Date:        d.Date,
		CreatedBy:   hexOrEmpty(d.CreatedBy),
		Tickets:     d.Tickets,
		TicketPrice: d.TicketPrice,
		Image:       d.Image,
		Category:    model.Category(d.Category),
		Location:    d.Location,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

type attendeeDoc struct {
	Id              primitive.ObjectID `bson:"_id"`
	User            primitive.ObjectID `bson:"user"`
	Event           primitive.ObjectID `bson:"event"`
	NumberOfTickets int                `bson:"numberOfTickets"`
	TicketPrice     float64            `bson:"ticketPrice"`
	CreatedAt       time.Time          `bson:"createdAt"`
	UpdatedAt       time.Time          `bson:"updatedAt"`
}

func (d attendeeDoc) model() model.Attendee {
	return model.Attendee{
		Id:              d.Id.Hex(),
		UserId:          d.User.Hex(),
		EventId:         d.Event.Hex(),
		NumberOfTickets: d.NumberOfTickets,
		TicketPrice:     d.TicketPrice,
		CreatedAt:       d.CreatedAt,
	}
}

type userDoc struct {
	Id        primitive.ObjectID `bson:"_id"`
	Name      string             `bson:"name"`
	Email     string             `bson:"email"`
	Password  string             `bson:"password"`
	Role      string             `bson:"role"`
	CreatedAt time.Time          `bson:"createdAt"`
}

func (d userDoc) model() model.UserData {
	return model.UserData{
		Id:             d.Id.Hex(),
		Name:           d.Name,
		Email:          d.Email,
		HashedPassword: d.Password,
		Role:           d.Role,
		CreatedAt:      d.CreatedAt,
	}
}

// summaryDoc is the shape produced by the attendee/user $lookup pipeline.
type summaryDoc struct {
	Id   primitive.ObjectID `bson:"_id"`
	User struct {
		Id    primitive.ObjectID `bson:"_id"`
		Name  string             `bson:"name"`
		Email string             `bson:"email"`
	} `bson:"user"`
	NumberOfTickets int       `bson:"numberOfTickets"`
	CreatedAt       time.Time `bson:"createdAt"`
}

func (d summaryDoc) model() model.AttendeeSummary {
	return model.AttendeeSummary{
		Id: d.Id.Hex(),
		User: model.AttendeeUser{
			Id:    hexOrEmpty(d.User.Id),
			Name:  d.User.Name,
			Email: d.User.Email,
		},
		NumberOfTickets: d.NumberOfTickets,
		CreatedAt:       d.CreatedAt,
	}
}

func hexOrEmpty(id primitive.ObjectID) string {
	if id.IsZero() {
		return ""
	}
	return id.Hex()
}
