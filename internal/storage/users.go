package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/venom-hub/internal/auth"
	"github.com/venom-hub/internal/domain"
)

// SignUp registers a new user. Identity errors raised by the remote backend
// are returned as is; only a remote that could not be reached falls through
// to the local path.
func (f *Facade) SignUp(ctx context.Context, username, password string) (Result[domain.User], error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return Result[domain.User]{}, domain.ErrMissingFields
	}

	hash, err := auth.HashPassword(password, f.opts.BcryptCost)
	if err != nil {
		return Result[domain.User]{}, err
	}
	user := domain.User{
		ID:        f.newID(),
		Username:  username,
		Password:  hash,
		CreatedAt: f.now(),
	}

	var created domain.User
	remoteErr := f.callRemote(ctx, "sign up", func(ctx context.Context, r Remote) error {
		u, err := r.SignUp(ctx, user)
		created = u
		return err
	})
	if domain.IsValidation(remoteErr) {
		return Result[domain.User]{}, remoteErr
	}
	if remoteErr == nil {
		// keep the fallback able to authenticate this user
		created.Password = hash
		if err := f.local.SaveUser(ctx, created); err != nil {
			f.logger.Warn("failed to mirror signed up user locally", "username", username, "error", err)
		}
		return remoteResult(created.Public()), nil
	}

	if err := f.local.SignUp(ctx, user); err != nil {
		return Result[domain.User]{}, err
	}
	return localResult(user.Public(), remoteErr), nil
}

// SignIn authenticates a user and records the device session
func (f *Facade) SignIn(ctx context.Context, username, password string) (Result[domain.User], error) {
	var user domain.User
	remoteErr := f.callRemote(ctx, "sign in", func(ctx context.Context, r Remote) error {
		u, err := r.SignIn(ctx, username, password)
		user = u
		return err
	})
	if domain.IsValidation(remoteErr) {
		return Result[domain.User]{}, remoteErr
	}

	if remoteErr == nil {
		if hash, err := auth.HashPassword(password, f.opts.BcryptCost); err == nil {
			mirrored := user
			mirrored.Password = hash
			if err := f.local.SaveUser(ctx, mirrored); err != nil {
				f.logger.Warn("failed to mirror signed in user locally", "username", username, "error", err)
			}
		}
	} else {
		var err error
		user, err = f.local.Authenticate(ctx, username, password)
		if err != nil {
			return Result[domain.User]{}, err
		}
	}

	public := user.Public()
	if err := f.local.SetCurrentUser(ctx, &public); err != nil {
		return Result[domain.User]{}, fmt.Errorf("sign in: storing session: %w", err)
	}
	return outcome(public, remoteErr), nil
}

// SignOut ends the session on both stores
func (f *Facade) SignOut(ctx context.Context) (Result[struct{}], error) {
	return writeThrough(ctx, f, "sign out", struct{}{},
		func(ctx context.Context) error { return f.local.SetCurrentUser(ctx, nil) },
		func(ctx context.Context, r Remote) error { return r.SignOut(ctx) },
	)
}

// SaveUsers replaces the whole user collection. A password given for a
// user is taken as plain text and stored hashed; users without one keep
// their stored hash.
func (f *Facade) SaveUsers(ctx context.Context, users []domain.User) (Result[[]domain.User], error) {
	users = nonNil(users)
	seen := make(map[string]bool, len(users))
	incoming := make([]domain.User, len(users))
	for i, u := range users {
		if seen[u.Username] {
			return Result[[]domain.User]{}, domain.ErrDuplicateUser
		}
		seen[u.Username] = true
		if u.Password != "" {
			hash, err := auth.HashPassword(u.Password, f.opts.BcryptCost)
			if err != nil {
				return Result[[]domain.User]{}, err
			}
			u.Password = hash
		}
		incoming[i] = u
	}

	public := make([]domain.User, len(users))
	for i, u := range incoming {
		public[i] = u.Public()
	}
	var stored []domain.User
	return writeThrough(ctx, f, "save users", public,
		func(ctx context.Context) error {
			var err error
			stored, err = f.local.ReplaceUsers(ctx, incoming)
			return err
		},
		func(ctx context.Context, r Remote) error { return r.ReplaceUsers(ctx, stored) },
	)
}

// UserUpdate holds the editable fields of a user
type UserUpdate struct {
	Username *string `json:"username,omitempty"`
	IsAdmin  *bool   `json:"isAdmin,omitempty"`
}

func (f *Facade) findUser(ctx context.Context, match func(domain.User) bool) (domain.User, []domain.User, error) {
	res, err := f.GetUsers(ctx)
	if err != nil {
		return domain.User{}, nil, err
	}
	for _, u := range res.Value {
		if match(u) {
			return u, res.Value, nil
		}
	}
	return domain.User{}, res.Value, domain.ErrUserNotFound
}

// UpdateUser edits a user's username or admin flag
func (f *Facade) UpdateUser(ctx context.Context, userID string, upd UserUpdate) (Result[domain.User], error) {
	user, users, err := f.findUser(ctx, func(u domain.User) bool { return u.ID == userID })
	if err != nil {
		return Result[domain.User]{}, err
	}

	if upd.Username != nil {
		name := strings.TrimSpace(*upd.Username)
		if name == "" {
			return Result[domain.User]{}, domain.ErrMissingFields
		}
		if idx := domain.FindUsername(users, name); idx >= 0 && users[idx].ID != userID {
			return Result[domain.User]{}, domain.ErrDuplicateUser
		}
		user.Username = name
	}
	if upd.IsAdmin != nil {
		user.IsAdmin = *upd.IsAdmin
	}
	return f.saveUser(ctx, "update user", user)
}

// MakeAdmin grants admin rights to the user with the given username
func (f *Facade) MakeAdmin(ctx context.Context, username string) (Result[domain.User], error) {
	user, _, err := f.findUser(ctx, func(u domain.User) bool { return u.Username == username })
	if err != nil {
		return Result[domain.User]{}, err
	}
	if user.IsAdmin {
		return Result[domain.User]{}, domain.ErrAlreadyAdmin
	}
	user.IsAdmin = true
	return f.saveUser(ctx, "make admin", user)
}

func (f *Facade) saveUser(ctx context.Context, op string, user domain.User) (Result[domain.User], error) {
	public := user.Public()
	return writeThrough(ctx, f, op, public,
		func(ctx context.Context) error { return f.local.SaveUser(ctx, user) },
		func(ctx context.Context, r Remote) error { return r.SaveUser(ctx, public) },
	)
}

// DeleteUser removes a user. Administrators cannot delete themselves.
func (f *Facade) DeleteUser(ctx context.Context, actorID, userID string) (Result[struct{}], error) {
	if actorID == userID {
		return Result[struct{}]{}, domain.ErrSelfDelete
	}
	if _, _, err := f.findUser(ctx, func(u domain.User) bool { return u.ID == userID }); err != nil {
		return Result[struct{}]{}, err
	}
	return writeThrough(ctx, f, "delete user", struct{}{},
		func(ctx context.Context) error { return f.local.DeleteUser(ctx, userID) },
		func(ctx context.Context, r Remote) error { return r.DeleteUser(ctx, userID) },
	)
}
