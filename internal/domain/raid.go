package domain

import (
	"strings"
	"time"
)

// Role is a raid participation category
type Role string

const (
	RoleDD    Role = "dd"
	RoleMedic Role = "medic"
	RoleTank  Role = "tank"
	RoleFlex  Role = "flex"
)

// DefaultMaxPlayers is the raid capacity used when none is given
const DefaultMaxPlayers = 5

// Valid reports whether r is one of the four known roles
func (r Role) Valid() bool {
	switch r {
	case RoleDD, RoleMedic, RoleTank, RoleFlex:
		return true
	}
	return false
}

// Participant is a user signed up for a raid
type Participant struct {
	UserID string `json:"userId"`
	Role   Role   `json:"role"`
}

// Raid is a scheduled group activity with fixed capacity
type Raid struct {
	ID             string        `json:"id"`
	Title          string        `json:"title"`
	Description    string        `json:"description"`
	Date           string        `json:"date"`
	Time           string        `json:"time"`
	MaxPlayers     int           `json:"maxPlayers"`
	CurrentPlayers []Participant `json:"currentPlayers"`
	AuthorID       string        `json:"authorId"`
	CreatedAt      time.Time     `json:"createdAt"`
}

// RaidInput holds the user-supplied fields of a raid
type RaidInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	MaxPlayers  int    `json:"maxPlayers"`
}

// Normalize validates the input and applies the default capacity
func (in RaidInput) Normalize() (RaidInput, error) {
	if strings.TrimSpace(in.Title) == "" ||
		strings.TrimSpace(in.Description) == "" ||
		in.Date == "" || in.Time == "" {
		return in, ErrMissingFields
	}
	if in.MaxPlayers == 0 {
		in.MaxPlayers = DefaultMaxPlayers
	}
	if in.MaxPlayers < 1 {
		return in, ErrInvalidRequest
	}
	return in, nil
}

// HasPlayer reports whether the user already takes part in the raid
func (r *Raid) HasPlayer(userID string) bool {
	for _, p := range r.CurrentPlayers {
		if p.UserID == userID {
			return true
		}
	}
	return false
}

// Full reports whether the raid reached its capacity
func (r *Raid) Full() bool {
	return len(r.CurrentPlayers) >= r.MaxPlayers
}

// Join adds the user with the given role
func (r *Raid) Join(userID string, role Role) error {
	if !role.Valid() {
		return ErrInvalidRole
	}
	if r.HasPlayer(userID) {
		return ErrAlreadyInRaid
	}
	if r.Full() {
		return ErrRaidFull
	}
	r.CurrentPlayers = append(r.CurrentPlayers, Participant{UserID: userID, Role: role})
	return nil
}

// Leave removes the user from the raid
func (r *Raid) Leave(userID string) error {
	for i, p := range r.CurrentPlayers {
		if p.UserID == userID {
			players := make([]Participant, 0, len(r.CurrentPlayers)-1)
			players = append(players, r.CurrentPlayers[:i]...)
			r.CurrentPlayers = append(players, r.CurrentPlayers[i+1:]...)
			return nil
		}
	}
	return ErrNotInRaid
}

// FindRaid returns the index of the raid with the given ID, or -1
func FindRaid(raids []Raid, id string) int {
	for i := range raids {
		if raids[i].ID == id {
			return i
		}
	}
	return -1
}
