package database

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"event-ticketing/model"
)

type localUser struct {
	model.UserData
	PasswordHash string `json:"passwordHash"`
}

// LocalDB is the on-disk form of a MemoryStore.
type LocalDB struct {
	Users     []localUser      `json:"users"`
	Events    []model.Event    `json:"events"`
	Attendees []model.Attendee `json:"attendees"`
}

// ReadLocalDB loads the snapshot at path, creating an empty one if the file
// does not exist yet.
func ReadLocalDB(path string) (LocalDB, error) {
	db := LocalDB{}

	fileBytes, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		if err := CommitLocalDB(path, db); err != nil {
			return LocalDB{}, err
		}
		return db, nil
	} else if err != nil {
		return LocalDB{}, fmt.Errorf("read local db: %w", err)
	}

	if err := json.Unmarshal(fileBytes, &db); err != nil {
		return LocalDB{}, fmt.Errorf("decode local db %v: %w", path, err)
	}
	return db, nil
}

func CommitLocalDB(path string, db LocalDB) error {
	dbBytes, err := json.MarshalIndent(db, "", "	")
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, dbBytes, 0644); err != nil {
		return fmt.Errorf("write local db: %w", err)
	}
	return nil
}

// Restore replaces the store content with db.
func (s *MemoryStore) Restore(db LocalDB) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.users = make(map[string]model.UserData, len(db.Users))
	s.emails = make(map[string]string, len(db.Users))
	for _, u := range db.Users {
		user := u.UserData
		user.HashedPassword = u.PasswordHash
		s.users[user.Id] = user
		s.emails[user.Email] = user.Id
	}

	s.events = make(map[string]model.Event, len(db.Events))
	for _, event := range db.Events {
		s.events[event.Id] = event
	}

	s.attendees = append([]model.Attendee(nil), db.Attendees...)
	s.booked = make(map[bookerKey]struct{}, len(db.Attendees))
	for _, attendee := range db.Attendees {
		s.booked[bookerKey{userId: attendee.UserId, eventId: attendee.EventId}] = struct{}{}
	}
}

// Snapshot copies the store content in a stable order.
func (s *MemoryStore) Snapshot() LocalDB {
	s.mu.RLock()
	defer s.mu.RUnlock()

	db := LocalDB{
		Users:     make([]localUser, 0, len(s.users)),
		Events:    make([]model.Event, 0, len(s.events)),
		Attendees: append([]model.Attendee{}, s.attendees...),
	}
	for _, user := range s.users {
		db.Users = append(db.Users, localUser{UserData: user, PasswordHash: user.HashedPassword})
	}
	for _, event := range s.events {
		db.Events = append(db.Events, event)
	}

	sort.Slice(db.Users, func(i, j int) bool { return db.Users[i].Id < db.Users[j].Id })
	sort.Slice(db.Events, func(i, j int) bool { return db.Events[i].Id < db.Events[j].Id })
	return db
}
