// Package recordstore is the local key-value persistence for the hub.
// Every collection is stored as one JSON document under a logical key.
package recordstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/venom-hub/internal/domain"
)

// Key names a persisted collection
type Key string

const (
	KeyUsers         Key = "users"
	KeyBuilds        Key = "builds"
	KeyRaids         Key = "raids"
	KeyPendingBuilds Key = "pending_builds"
	KeyCurrentUser   Key = "current_user"
	KeyUserLikes     Key = "user_likes"
	KeyBuildViews    Key = "build_views"
)

// Options configures a Store
type Options struct {
	// Prefix is prepended to every key, e.g. app_users
	Prefix string
	// AdminPasswordHash is the bcrypt hash stored for the bootstrap admin
	AdminPasswordHash string
}

// Store reads and writes JSON collections through a Backend
type Store struct {
	backend Backend
	opts    Options
	logger  *slog.Logger
	// bootMu serializes the users bootstrap check
	bootMu sync.Mutex
}

// New creates a Store on top of backend
func New(backend Backend, opts Options, logger *slog.Logger) *Store {
	return &Store{
		backend: backend,
		opts:    opts,
		logger:  logger,
	}
}

// Close closes the underlying backend
func (s *Store) Close() error {
	return s.backend.Close()
}

func (s *Store) fullKey(key Key) string {
	if s.opts.Prefix == "" {
		return string(key)
	}
	return s.opts.Prefix + "_" + string(key)
}

// Read returns the value stored under key, or def when it is absent,
// unreadable or malformed. Malformed data is never fatal.
func Read[T any](ctx context.Context, s *Store, key Key, def T) T {
	data, ok, err := s.backend.Get(ctx, s.fullKey(key))
	if err != nil {
		s.logger.Warn("local store read failed, using default", "key", key, "error", err)
		return def
	}
	if !ok || len(data) == 0 {
		return def
	}

	var value T
	if err := json.Unmarshal(data, &value); err != nil {
		s.logger.Warn("corrupt local record, using default", "key", key, "error", err)
		return def
	}
	return value
}

// Write serializes value and replaces whatever was stored under key
func Write[T any](ctx context.Context, s *Store, key Key, value T) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", key, err)
	}
	if err := s.backend.Set(ctx, s.fullKey(key), data); err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	return nil
}

// Users returns the user collection, creating the bootstrap admin when the
// collection is empty
func (s *Store) Users(ctx context.Context) ([]domain.User, error) {
	s.bootMu.Lock()
	defer s.bootMu.Unlock()

	users := Read(ctx, s, KeyUsers, []domain.User{})
	if len(users) > 0 {
		return users, nil
	}

	admin := s.BootstrapAdmin()
	users = []domain.User{admin}
	if err := Write(ctx, s, KeyUsers, users); err != nil {
		return nil, fmt.Errorf("bootstrapping admin: %w", err)
	}
	s.logger.Info("created bootstrap admin user", "username", admin.Username)
	return users, nil
}

// BootstrapAdmin is the administrator an empty user collection starts with
func (s *Store) BootstrapAdmin() domain.User {
	return domain.User{
		ID:        domain.AdminID,
		Username:  domain.AdminUsername,
		Password:  s.opts.AdminPasswordHash,
		IsAdmin:   true,
		CreatedAt: time.Now().UTC(),
	}
}

// SaveUsers replaces the user collection
func (s *Store) SaveUsers(ctx context.Context, users []domain.User) error {
	return Write(ctx, s, KeyUsers, nonNil(users))
}

// Builds returns every build, approved or not
func (s *Store) Builds(ctx context.Context) []domain.Build {
	return Read(ctx, s, KeyBuilds, []domain.Build{})
}

// SaveBuilds replaces the build collection
func (s *Store) SaveBuilds(ctx context.Context, builds []domain.Build) error {
	return Write(ctx, s, KeyBuilds, nonNil(builds))
}

// Raids returns every raid
func (s *Store) Raids(ctx context.Context) []domain.Raid {
	return Read(ctx, s, KeyRaids, []domain.Raid{})
}

// SaveRaids replaces the raid collection
func (s *Store) SaveRaids(ctx context.Context, raids []domain.Raid) error {
	return Write(ctx, s, KeyRaids, nonNil(raids))
}

// PendingBuilds returns builds awaiting moderation
func (s *Store) PendingBuilds(ctx context.Context) []domain.PendingBuild {
	return Read(ctx, s, KeyPendingBuilds, []domain.PendingBuild{})
}

// SavePendingBuilds replaces the moderation queue
func (s *Store) SavePendingBuilds(ctx context.Context, builds []domain.PendingBuild) error {
	return Write(ctx, s, KeyPendingBuilds, nonNil(builds))
}

// UserLikes returns the like sets of every user
func (s *Store) UserLikes(ctx context.Context) domain.UserLikes {
	likes := Read(ctx, s, KeyUserLikes, domain.UserLikes{})
	if likes == nil {
		likes = domain.UserLikes{}
	}
	return likes
}

// SaveUserLikes replaces the like sets
func (s *Store) SaveUserLikes(ctx context.Context, likes domain.UserLikes) error {
	return Write(ctx, s, KeyUserLikes, likes)
}

// BuildViews returns the view counters
func (s *Store) BuildViews(ctx context.Context) domain.BuildViews {
	views := Read(ctx, s, KeyBuildViews, domain.BuildViews{})
	if views == nil {
		views = domain.BuildViews{}
	}
	return views
}

// SaveBuildViews replaces the view counters
func (s *Store) SaveBuildViews(ctx context.Context, views domain.BuildViews) error {
	return Write(ctx, s, KeyBuildViews, views)
}

// CurrentUser returns the signed-in user of this device, or nil
func (s *Store) CurrentUser(ctx context.Context) *domain.User {
	return Read[*domain.User](ctx, s, KeyCurrentUser, nil)
}

// SetCurrentUser stores the signed-in user; nil removes the session
func (s *Store) SetCurrentUser(ctx context.Context, user *domain.User) error {
	if user == nil {
		if err := s.backend.Delete(ctx, s.fullKey(KeyCurrentUser)); err != nil {
			return fmt.Errorf("clearing current user: %w", err)
		}
		return nil
	}
	public := user.Public()
	return Write(ctx, s, KeyCurrentUser, &public)
}

// nonNil keeps empty collections serialized as [] rather than null
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
