package database

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"event-ticketing/booking"
	"event-ticketing/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const releaseTimeout = 5 * time.Second

// MongoStore keeps users, events and attendees in three collections.
//
// Bookings decrement inventory with a conditional findOneAndUpdate, so the
// counter can never be driven below zero. When transactions are enabled the
// duplicate check, the decrement and the attendee insert share one session
// transaction. Otherwise tickets are given back only when the server rejected
// the attendee insert; an insert in unknown state keeps them.
type MongoStore struct {
	client       *mongo.Client
	users        *mongo.Collection
	events       *mongo.Collection
	attendees    *mongo.Collection
	transactions bool
	now          func() time.Time
}

func NewMongoStore(db *mongo.Database, transactions bool) *MongoStore {
	return &MongoStore{
		client:       db.Client(),
		users:        db.Collection(UsersCollection),
		events:       db.Collection(EventsCollection),
		attendees:    db.Collection(AttendeesCollection),
		transactions: transactions,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

var _ booking.Store = (*MongoStore)(nil)

func (s *MongoStore) FindUser(ctx context.Context, id string) (model.UserData, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return model.UserData{}, model.ErrUserNotFound
	}

	var doc userDoc
	err = s.users.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return model.UserData{}, model.ErrUserNotFound
	}
	if err != nil {
		return model.UserData{}, fmt.Errorf("find user: %w", err)
	}
	return doc.model(), nil
}

func (s *MongoStore) FindUserByEmail(ctx context.Context, email string) (model.UserData, error) {
	var doc userDoc
	err := s.users.FindOne(ctx, bson.M{"email": email}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return model.UserData{}, model.ErrUserNotFound
	}
	if err != nil {
		return model.UserData{}, fmt.Errorf("find user by email: %w", err)
	}
	return doc.model(), nil
}

func (s *MongoStore) CreateUser(ctx context.Context, user model.UserData) (model.UserData, error) {
	doc := userDoc{
		Id:        primitive.NewObjectID(),
		Name:      user.Name,
		Email:     user.Email,
		Password:  user.HashedPassword,
		Role:      user.Role,
		CreatedAt: s.now(),
	}

	if _, err := s.users.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return model.UserData{}, model.ErrEmailTaken
		}
		return model.UserData{}, fmt.Errorf("insert user: %w", err)
	}
	return doc.model(), nil
}

func (s *MongoStore) FindEvent(ctx context.Context, id string) (model.Event, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return model.Event{}, model.ErrEventNotFound
	}

	doc, err := s.findEventDoc(ctx, oid)
	if err != nil {
		return model.Event{}, err
	}
	return doc.model(), nil
}

func (s *MongoStore) findEventDoc(ctx context.Context, id primitive.ObjectID) (eventDoc, error) {
	var doc eventDoc
	err := s.events.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return eventDoc{}, model.ErrEventNotFound
	}
	if err != nil {
		return eventDoc{}, fmt.Errorf("find event: %w", err)
	}
	return doc, nil
}

func (s *MongoStore) CreateEvent(ctx context.Context, event model.Event) (model.Event, error) {
	createdBy, err := primitive.ObjectIDFromHex(event.CreatedBy)
	if err != nil {
		return model.Event{}, model.ErrUserNotFound
	}

	now := s.now()
	doc := eventDoc{
		Id:          primitive.NewObjectID(),
		Title:       event.Title,
		Description: event.Description,
		Date:        event.Date,
		CreatedBy:   createdBy,
		Tickets:     event.Tickets,
		TicketPrice: event.TicketPrice,
		Image:       event.Image,
		Category:    string(event.Category),
		Location:    event.Location,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if _, err := s.events.InsertOne(ctx, doc); err != nil {
		return model.Event{}, fmt.Errorf("insert event: %w", err)
	}
	return doc.model(), nil
}

func (s *MongoStore) ListEvents(ctx context.Context) ([]model.Event, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}})
	return s.findEvents(ctx, bson.M{}, opts)
}

func (s *MongoStore) EventsCreatedBy(ctx context.Context, adminId string) ([]model.Event, error) {
	oid, err := primitive.ObjectIDFromHex(adminId)
	if err != nil {
		return []model.Event{}, nil
	}
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}})
	return s.findEvents(ctx, bson.M{"createdBy": oid}, opts)
}

func (s *MongoStore) findEvents(ctx context.Context, filter interface{}, opts *options.FindOptions) ([]model.Event, error) {
	cur, err := s.events.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find events: %w", err)
	}

	var docs []eventDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("read events: %w", err)
	}

	events := make([]model.Event, 0, len(docs))
	for _, doc := range docs {
		events = append(events, doc.model())
	}
	return events, nil
}

func (s *MongoStore) UpdateEvent(ctx context.Context, id string, changes model.EventChanges) (model.Event, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return model.Event{}, model.ErrEventNotFound
	}

	set := bson.M{"updatedAt": s.now()}
	if changes.Title != nil {
		set["title"] = *changes.Title
	}
	if changes.Description != nil {
		set["description"] = *changes.Description
	}
	if changes.Date != nil {
		set["date"] = *changes.Date
	}
	if changes.TicketPrice != nil {
		set["ticketPrice"] = *changes.TicketPrice
	}

	var doc eventDoc
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err = s.events.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set}, opts).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return model.Event{}, model.ErrEventNotFound
	}
	if err != nil {
		return model.Event{}, fmt.Errorf("update event: %w", err)
	}
	return doc.model(), nil
}

func (s *MongoStore) DeleteEvent(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return model.ErrEventNotFound
	}

	res, err := s.events.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if res.DeletedCount == 0 {
		return model.ErrEventNotFound
	}

	if _, err := s.attendees.DeleteMany(ctx, bson.M{"event": oid}); err != nil {
		return fmt.Errorf("delete attendees of event %v: %w", id, err)
	}
	return nil
}

func (s *MongoStore) FindAttendee(ctx context.Context, userId, eventId string) (*model.Attendee, error) {
	userOid, err := primitive.ObjectIDFromHex(userId)
	if err != nil {
		return nil, nil
	}
	eventOid, err := primitive.ObjectIDFromHex(eventId)
	if err != nil {
		return nil, nil
	}

	var doc attendeeDoc
	err = s.attendees.FindOne(ctx, bson.M{"user": userOid, "event": eventOid}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find attendee: %w", err)
	}
	attendee := doc.model()
	return &attendee, nil
}

func (s *MongoStore) CommitBooking(ctx context.Context, attendee model.Attendee) (model.Attendee, model.Event, error) {
	userOid, err := primitive.ObjectIDFromHex(attendee.UserId)
	if err != nil {
		return model.Attendee{}, model.Event{}, model.ErrUserNotFound
	}
	eventOid, err := primitive.ObjectIDFromHex(attendee.EventId)
	if err != nil {
		return model.Attendee{}, model.Event{}, model.ErrEventNotFound
	}

	doc := attendeeDoc{
		Id:              primitive.NewObjectID(),
		User:            userOid,
		Event:           eventOid,
		NumberOfTickets: attendee.NumberOfTickets,
		CreatedAt:       attendee.CreatedAt,
		UpdatedAt:       attendee.CreatedAt,
	}

	var event eventDoc
	if s.transactions {
		event, err = s.commitInTransaction(ctx, &doc)
	} else {
		event, err = s.commitWithCompensation(ctx, &doc)
	}
	if err != nil {
		return model.Attendee{}, model.Event{}, err
	}
	return doc.model(), event.model(), nil
}

func (s *MongoStore) commitInTransaction(ctx context.Context, doc *attendeeDoc) (eventDoc, error) {
	session, err := s.client.StartSession()
	if err != nil {
		return eventDoc{}, fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	var event eventDoc
	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		booked, err := s.hasAttendee(sc, doc.User, doc.Event)
		if err != nil {
			return nil, err
		}
		if booked {
			return nil, model.ErrDuplicateBooking
		}
		taken, err := s.takeTickets(sc, doc.Event, doc.NumberOfTickets)
		if err != nil {
			return nil, err
		}
		doc.TicketPrice = taken.TicketPrice
		if _, err := s.attendees.InsertOne(sc, doc); err != nil {
			return nil, attendeeInsertError(err)
		}
		event = taken
		return nil, nil
	})
	if err != nil {
		return eventDoc{}, err
	}
	return event, nil
}

func (s *MongoStore) commitWithCompensation(ctx context.Context, doc *attendeeDoc) (eventDoc, error) {
	event, err := s.takeTickets(ctx, doc.Event, doc.NumberOfTickets)
	if errors.Is(err, model.ErrInsufficientTickets) {
		// When the same user's concurrent booking took the tickets, the
		// duplicate is what gets reported.
		booked, lookupErr := s.hasAttendee(ctx, doc.User, doc.Event)
		if lookupErr != nil {
			return eventDoc{}, lookupErr
		}
		if booked {
			return eventDoc{}, model.ErrDuplicateBooking
		}
		return eventDoc{}, err
	}
	if err != nil {
		return eventDoc{}, err
	}

	doc.TicketPrice = event.TicketPrice
	if _, err := s.attendees.InsertOne(ctx, doc); err != nil {
		if !insertRejected(err) {
			// The attendee may be stored, so the tickets stay taken.
			log.Printf("booking %v of event %v in unknown state, keeping %d tickets: %v",
				doc.Id.Hex(), doc.Event.Hex(), doc.NumberOfTickets, err)
			return eventDoc{}, fmt.Errorf("insert attendee: %w", err)
		}
		s.releaseTickets(ctx, doc.Event, doc.NumberOfTickets)
		return eventDoc{}, attendeeInsertError(err)
	}
	return event, nil
}

// insertRejected reports whether the server refused the insert, so no
// attendee document was written.
func insertRejected(err error) bool {
	if mongo.IsDuplicateKeyError(err) {
		return true
	}
	var we mongo.WriteException
	return errors.As(err, &we) && len(we.WriteErrors) > 0 && we.WriteConcernError == nil
}

// releaseTickets gives back tickets taken for a booking that was not stored.
// It outlives the request context so a cancelled request still returns them.
func (s *MongoStore) releaseTickets(ctx context.Context, eventId primitive.ObjectID, n int) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()

	release := bson.M{"$inc": bson.M{"tickets": n}}
	if _, err := s.events.UpdateOne(ctx, bson.M{"_id": eventId}, release); err != nil {
		log.Printf("release %d tickets of event %v: %v", n, eventId.Hex(), err)
	}
}

func (s *MongoStore) hasAttendee(ctx context.Context, userId, eventId primitive.ObjectID) (bool, error) {
	err := s.attendees.FindOne(ctx, bson.M{"user": userId, "event": eventId}).Err()
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("find attendee: %w", err)
	}
	return true, nil
}

// takeTickets decrements the inventory only when at least n tickets are left
// and returns the event after the decrement.
func (s *MongoStore) takeTickets(ctx context.Context, eventId primitive.ObjectID, n int) (eventDoc, error) {
	filter := bson.M{"_id": eventId, "tickets": bson.M{"$gte": n}}
	update := bson.M{
		"$inc": bson.M{"tickets": -n},
		"$set": bson.M{"updatedAt": s.now()},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var event eventDoc
	err := s.events.FindOneAndUpdate(ctx, filter, update, opts).Decode(&event)
	if err == mongo.ErrNoDocuments {
		current, findErr := s.findEventDoc(ctx, eventId)
		if findErr != nil {
			return eventDoc{}, findErr
		}
		return eventDoc{}, &model.InsufficientTicketsError{Remaining: current.Tickets}
	}
	if err != nil {
		return eventDoc{}, fmt.Errorf("take tickets: %w", err)
	}
	return event, nil
}

// attendeeInsertError keeps non-duplicate errors untouched so transaction
// retry labels survive.
func attendeeInsertError(err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return model.ErrDuplicateBooking
	}
	return err
}

func (s *MongoStore) AddTickets(ctx context.Context, eventId string, quantity, limit int) (model.Event, error) {
	oid, err := primitive.ObjectIDFromHex(eventId)
	if err != nil {
		return model.Event{}, model.ErrEventNotFound
	}

	filter := bson.M{"_id": oid}
	if limit > 0 {
		if quantity > limit {
			if _, err := s.findEventDoc(ctx, oid); err != nil {
				return model.Event{}, err
			}
			return model.Event{}, model.ErrTicketLimitExceeded
		}
		filter["tickets"] = bson.M{"$lte": limit - quantity}
	}
	update := bson.M{
		"$inc": bson.M{"tickets": quantity},
		"$set": bson.M{"updatedAt": s.now()},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc eventDoc
	err = s.events.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		if limit <= 0 {
			return model.Event{}, model.ErrEventNotFound
		}
		if _, findErr := s.findEventDoc(ctx, oid); findErr != nil {
			return model.Event{}, findErr
		}
		return model.Event{}, model.ErrTicketLimitExceeded
	}
	if err != nil {
		return model.Event{}, fmt.Errorf("add tickets: %w", err)
	}
	return doc.model(), nil
}

func (s *MongoStore) ListAttendees(ctx context.Context, eventId string) (booking.AttendeeCursor, error) {
	oid, err := primitive.ObjectIDFromHex(eventId)
	if err != nil {
		return newSliceCursor(nil), nil
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "event", Value: oid}}}},
		{{Key: "$sort", Value: bson.D{{Key: "createdAt", Value: 1}}}},
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: UsersCollection},
			{Key: "localField", Value: "user"},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "user"},
		}}},
		{{Key: "$unwind", Value: bson.D{
			{Key: "path", Value: "$user"},
			{Key: "preserveNullAndEmptyArrays", Value: true},
		}}},
		{{Key: "$project", Value: bson.D{
			{Key: "user._id", Value: 1},
			{Key: "user.name", Value: 1},
			{Key: "user.email", Value: 1},
			{Key: "numberOfTickets", Value: 1},
			{Key: "createdAt", Value: 1},
		}}},
	}

	cur, err := s.attendees.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate attendees: %w", err)
	}
	return &mongoCursor{cur: cur}, nil
}

func (s *MongoStore) AttendeesForEvents(ctx context.Context, eventIds []string) ([]model.Attendee, error) {
	oids := make([]primitive.ObjectID, 0, len(eventIds))
	for _, id := range eventIds {
		oid, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			continue
		}
		oids = append(oids, oid)
	}
	if len(oids) == 0 {
		return []model.Attendee{}, nil
	}

	cur, err := s.attendees.Find(ctx, bson.M{"event": bson.M{"$in": oids}})
	if err != nil {
		return nil, fmt.Errorf("find attendees: %w", err)
	}

	var docs []attendeeDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("read attendees: %w", err)
	}

	attendees := make([]model.Attendee, 0, len(docs))
	for _, doc := range docs {
		attendees = append(attendees, doc.model())
	}
	return attendees, nil
}
