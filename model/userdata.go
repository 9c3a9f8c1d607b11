package model

import "time"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type UserData struct {
	Id             string    `json:"_id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	HashedPassword string    `json:"-"`
	Role           string    `json:"role"`
	CreatedAt      time.Time `json:"createdAt"`
}

func (u UserData) IsAdmin() bool {
	return u.Role == RoleAdmin
}
