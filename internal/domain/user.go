package domain

import "time"

// Bootstrap administrator
const (
	AdminID       = "admin-1"
	AdminUsername = "admin"
)

// User represents a clan member.
// Password is a bcrypt hash in the local store and empty for remote profiles.
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Password  string    `json:"password,omitempty"`
	IsAdmin   bool      `json:"isAdmin"`
	CreatedAt time.Time `json:"createdAt"`
}

// Public returns a copy of the user without the password hash
func (u User) Public() User {
	u.Password = ""
	return u
}

// FindUser returns the index of the user with the given ID, or -1
func FindUser(users []User, id string) int {
	for i := range users {
		if users[i].ID == id {
			return i
		}
	}
	return -1
}

// FindUsername returns the index of the user with the given username, or -1
func FindUsername(users []User, username string) int {
	for i := range users {
		if users[i].Username == username {
			return i
		}
	}
	return -1
}
