// Package storage is the single entry point the hub uses for persistence.
// Reads try the remote backend first and fall back to the local record
// store. Writes always land in the local store and are mirrored to the
// remote backend when it is configured.
package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/venom-hub/internal/domain"
)

// Options tunes the facade
type Options struct {
	// RemoteTimeout bounds every remote call so a hung backend falls back
	RemoteTimeout time.Duration
	BcryptCost    int
}

// Facade decides per call which store is authoritative
type Facade struct {
	local  *LocalSource
	remote Remote
	opts   Options
	logger *slog.Logger
	now    func() time.Time
	newID  func() string
}

// New creates a facade. remote may be nil, in which case every call is
// served by the local store.
func New(local *LocalSource, remote Remote, opts Options, logger *slog.Logger) *Facade {
	if opts.RemoteTimeout == 0 {
		opts.RemoteTimeout = 5 * time.Second
	}
	return &Facade{
		local:  local,
		remote: remote,
		opts:   opts,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
		newID:  func() string { return uuid.New().String() },
	}
}

// RemoteAvailable reports whether a remote backend is configured
func (f *Facade) RemoteAvailable() bool {
	return f.remote != nil
}

// callRemote runs fn against the remote backend under the remote timeout
func (f *Facade) callRemote(ctx context.Context, op string, fn func(context.Context, Remote) error) error {
	if f.remote == nil {
		return ErrUnavailable
	}
	rctx, cancel := context.WithTimeout(ctx, f.opts.RemoteTimeout)
	defer cancel()

	if err := fn(rctx, f.remote); err != nil {
		if !domain.IsValidation(err) {
			f.logger.Warn("remote call failed, using local store", "op", op, "error", err)
		}
		return err
	}
	return nil
}

// readThrough serves a read from the remote backend, or from the local
// store when the remote is absent or fails
func readThrough[T any](ctx context.Context, f *Facade, op string, fn func(context.Context, Source) (T, error)) (Result[T], error) {
	var value T
	remoteErr := f.callRemote(ctx, op, func(rctx context.Context, r Remote) error {
		v, err := fn(rctx, r)
		if err != nil {
			return err
		}
		value = v
		return nil
	})
	if remoteErr == nil {
		return remoteResult(value), nil
	}

	value, err := fn(ctx, f.local)
	if err != nil {
		return Result[T]{}, fmt.Errorf("%s: %w", op, err)
	}
	return localResult(value, remoteErr), nil
}

// writeThrough applies a mutation to the local store, then to the remote
// backend. A remote failure is logged and reported in the result, never
// rolled back.
func writeThrough[T any](ctx context.Context, f *Facade, op string, value T, local func(context.Context) error, remote func(context.Context, Remote) error) (Result[T], error) {
	if err := local(ctx); err != nil {
		return Result[T]{}, fmt.Errorf("%s: writing local store: %w", op, err)
	}
	return outcome(value, f.callRemote(ctx, op, remote)), nil
}

// mutate is writeThrough for read-modify-write operations. The local change
// is applied by local against the stored record, so concurrent calls never
// overwrite each other. When the precondition was checked against the
// remote view (src) and the local copy rejects the change, the local copy
// is stale and adopt stores the remote-derived value instead. A fallback
// result carries the value the local store produced.
func mutate[T any](ctx context.Context, f *Facade, op string, value T, src SourceKind, local func(context.Context) (T, error), adopt func(context.Context) error, remote func(context.Context, Remote) error) (Result[T], error) {
	stored := value
	res, err := writeThrough(ctx, f, op, value, func(ctx context.Context) error {
		v, err := local(ctx)
		if err != nil && src == SourceRemote && domain.IsValidation(err) {
			f.logger.Debug("local copy behind remote, adopting remote value", "op", op, "reason", err)
			return adopt(ctx)
		}
		if err == nil {
			stored = v
		}
		return err
	}, remote)
	if err != nil {
		return res, err
	}
	if res.Fallback() {
		res.Value = stored
	}
	return res, nil
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

// GetUsers returns every user without password hashes
func (f *Facade) GetUsers(ctx context.Context) (Result[[]domain.User], error) {
	return readThrough(ctx, f, "get users", func(ctx context.Context, s Source) ([]domain.User, error) {
		users, err := s.Users(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]domain.User, len(users))
		for i, u := range users {
			out[i] = u.Public()
		}
		return out, nil
	})
}

// GetBuilds returns the approved builds shown in the public listing
func (f *Facade) GetBuilds(ctx context.Context) (Result[[]domain.Build], error) {
	return readThrough(ctx, f, "get builds", func(ctx context.Context, s Source) ([]domain.Build, error) {
		builds, err := s.Builds(ctx)
		if err != nil {
			return nil, err
		}
		return domain.ApprovedOnly(builds), nil
	})
}

// GetAllBuilds returns every build regardless of moderation state
func (f *Facade) GetAllBuilds(ctx context.Context) (Result[[]domain.Build], error) {
	return readThrough(ctx, f, "get all builds", func(ctx context.Context, s Source) ([]domain.Build, error) {
		builds, err := s.Builds(ctx)
		return nonNil(builds), err
	})
}

// GetPendingBuilds returns the moderation queue
func (f *Facade) GetPendingBuilds(ctx context.Context) (Result[[]domain.PendingBuild], error) {
	return readThrough(ctx, f, "get pending builds", func(ctx context.Context, s Source) ([]domain.PendingBuild, error) {
		pending, err := s.PendingBuilds(ctx)
		return nonNil(pending), err
	})
}

// GetRaids returns every raid
func (f *Facade) GetRaids(ctx context.Context) (Result[[]domain.Raid], error) {
	return readThrough(ctx, f, "get raids", func(ctx context.Context, s Source) ([]domain.Raid, error) {
		raids, err := s.Raids(ctx)
		return nonNil(raids), err
	})
}

// GetUserLikes returns the IDs of the builds the user liked
func (f *Facade) GetUserLikes(ctx context.Context, userID string) (Result[[]string], error) {
	return readThrough(ctx, f, "get user likes", func(ctx context.Context, s Source) ([]string, error) {
		likes, err := s.UserLikes(ctx)
		if err != nil {
			return nil, err
		}
		return nonNil(likes[userID]), nil
	})
}

// GetBuildViews returns the view counters of every build
func (f *Facade) GetBuildViews(ctx context.Context) (Result[domain.BuildViews], error) {
	return readThrough(ctx, f, "get build views", func(ctx context.Context, s Source) (domain.BuildViews, error) {
		views, err := s.BuildViews(ctx)
		if views == nil && err == nil {
			views = domain.BuildViews{}
		}
		return views, err
	})
}

// GetCurrentUser returns the signed-in user, or nil
func (f *Facade) GetCurrentUser(ctx context.Context) (Result[*domain.User], error) {
	return readThrough(ctx, f, "get current user", func(ctx context.Context, s Source) (*domain.User, error) {
		return s.CurrentUser(ctx)
	})
}

// Snapshot is a full copy of every collection
type Snapshot struct {
	Users         []domain.User
	Builds        []domain.Build
	PendingBuilds []domain.PendingBuild
	Raids         []domain.Raid
	UserLikes     domain.UserLikes
	BuildViews    domain.BuildViews
}

// SeedRemoteAdmin creates the bootstrap administrator, password included,
// in a remote backend that holds no users yet
func (f *Facade) SeedRemoteAdmin(ctx context.Context) error {
	return f.callRemote(ctx, "seed remote admin", func(ctx context.Context, r Remote) error {
		users, err := r.Users(ctx)
		if err != nil || len(users) > 0 {
			return err
		}
		admin := f.local.store.BootstrapAdmin()
		if _, err := r.SignUp(ctx, admin); err != nil && !errors.Is(err, domain.ErrDuplicateUser) {
			return err
		}
		f.logger.Info("seeded remote admin user", "username", admin.Username)
		return nil
	})
}

// RefreshLocal copies every remote collection into the local store. It
// never pushes local data to the remote backend.
func (f *Facade) RefreshLocal(ctx context.Context) error {
	var snap Snapshot
	err := f.callRemote(ctx, "refresh local", func(ctx context.Context, r Remote) error {
		var err error
		if snap.Users, err = r.Users(ctx); err != nil {
			return err
		}
		if snap.Builds, err = r.Builds(ctx); err != nil {
			return err
		}
		if snap.PendingBuilds, err = r.PendingBuilds(ctx); err != nil {
			return err
		}
		if snap.Raids, err = r.Raids(ctx); err != nil {
			return err
		}
		if snap.UserLikes, err = r.UserLikes(ctx); err != nil {
			return err
		}
		snap.BuildViews, err = r.BuildViews(ctx)
		return err
	})
	if err != nil {
		return fmt.Errorf("reading remote snapshot: %w", err)
	}

	if err := f.local.Replace(ctx, snap); err != nil {
		return fmt.Errorf("writing local snapshot: %w", err)
	}
	return nil
}
