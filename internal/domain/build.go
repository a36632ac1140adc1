package domain

import (
	"slices"
	"strings"
	"time"
)

// Build is a shareable loadout. Only approved builds are listed publicly.
type Build struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Image       string    `json:"image"`
	Likes       int       `json:"likes"`
	Views       int       `json:"views"`
	AuthorID    string    `json:"authorId"`
	Approved    bool      `json:"approved"`
	CreatedAt   time.Time `json:"createdAt"`
}

// PendingBuild is a build awaiting moderation
type PendingBuild struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Image       string    `json:"image"`
	AuthorID    string    `json:"authorId"`
	CreatedAt   time.Time `json:"createdAt"`
}

// BuildInput holds the user-supplied fields of a build submission or edit
type BuildInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Image       string `json:"image"`
}

// Validate checks that every field is present
func (in BuildInput) Validate() error {
	if strings.TrimSpace(in.Title) == "" ||
		strings.TrimSpace(in.Description) == "" ||
		strings.TrimSpace(in.Image) == "" {
		return ErrMissingFields
	}
	return nil
}

// Promote converts a pending build into an approved build with fresh counters.
// The ID is kept so both stores refer to the same record.
func (p PendingBuild) Promote() Build {
	return Build{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		Image:       p.Image,
		AuthorID:    p.AuthorID,
		Approved:    true,
		CreatedAt:   p.CreatedAt,
	}
}

// FindBuild returns the index of the build with the given ID, or -1
func FindBuild(builds []Build, id string) int {
	for i := range builds {
		if builds[i].ID == id {
			return i
		}
	}
	return -1
}

// FindPendingBuild returns the index of the pending build with the given ID, or -1
func FindPendingBuild(builds []PendingBuild, id string) int {
	for i := range builds {
		if builds[i].ID == id {
			return i
		}
	}
	return -1
}

// ApprovedOnly filters out builds that have not passed moderation
func ApprovedOnly(builds []Build) []Build {
	out := make([]Build, 0, len(builds))
	for _, b := range builds {
		if b.Approved {
			out = append(out, b)
		}
	}
	return out
}

// UserLikes maps a user ID to the set of build IDs the user liked
type UserLikes map[string][]string

// Has reports whether the user liked the build
func (l UserLikes) Has(userID, buildID string) bool {
	return slices.Contains(l[userID], buildID)
}

// Add records a like, returning false when it already existed
func (l UserLikes) Add(userID, buildID string) bool {
	if l.Has(userID, buildID) {
		return false
	}
	l[userID] = append(l[userID], buildID)
	return true
}

// Remove drops a like, returning false when it did not exist
func (l UserLikes) Remove(userID, buildID string) bool {
	ids := l[userID]
	idx := slices.Index(ids, buildID)
	if idx < 0 {
		return false
	}
	l[userID] = slices.Delete(slices.Clone(ids), idx, idx+1)
	return true
}

// Count returns the number of distinct users that liked the build
func (l UserLikes) Count(buildID string) int {
	n := 0
	for _, ids := range l {
		if slices.Contains(ids, buildID) {
			n++
		}
	}
	return n
}

// BuildViews maps a build ID to its view counter
type BuildViews map[string]int
