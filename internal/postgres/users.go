package postgres

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/venom-hub/internal/auth"
	"github.com/venom-hub/internal/domain"
)

var profileColumns = []string{"id", "username", "is_admin", "created_at"}

func scanProfile(row pgx.Row) (domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Username, &u.IsAdmin, &u.CreatedAt)
	return u, err
}

// Users lists every profile, newest first. Profiles carry no password.
func (r *Repository) Users(ctx context.Context) ([]domain.User, error) {
	rows, err := qQuery(ctx, r.pool, psql.Select(profileColumns...).From("profiles").OrderBy("created_at DESC"))
	if err != nil {
		return nil, fmt.Errorf("listing profiles: %w", err)
	}
	defer rows.Close()

	users := []domain.User{}
	for rows.Next() {
		u, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning profile: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing profiles: %w", err)
	}
	return users, nil
}

func upsertProfile(user domain.User) sq.InsertBuilder {
	return psql.Insert("profiles").
		Columns(profileColumns...).
		Values(user.ID, user.Username, user.IsAdmin, user.CreatedAt).
		Suffix("ON CONFLICT (id) DO UPDATE SET username = EXCLUDED.username, is_admin = EXCLUDED.is_admin")
}

// saveProfile upserts the profile and keeps its identity address in step
// with the username
func (r *Repository) saveProfile(ctx context.Context, tx pgx.Tx, user domain.User) error {
	if _, err := qExec(ctx, tx, upsertProfile(user)); err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateUser
		}
		return fmt.Errorf("upserting profile: %w", err)
	}
	_, err := qExec(ctx, tx, psql.Update("identities").
		Set("address", auth.Address(user.Username, r.addrDomain)).
		Where(sq.Eq{"profile_id": user.ID}))
	if err != nil {
		return fmt.Errorf("updating identity address: %w", err)
	}
	return nil
}

// SaveUser upserts a profile
func (r *Repository) SaveUser(ctx context.Context, user domain.User) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		return r.saveProfile(ctx, tx, user)
	})
}

// insertIdentity creates the sign-in identity of a profile that has none.
// An existing identity keeps its password.
func (r *Repository) insertIdentity(user domain.User) sq.InsertBuilder {
	return psql.Insert("identities").
		Columns("address", "profile_id", "password_hash").
		Values(auth.Address(user.Username, r.addrDomain), user.ID, user.Password).
		Suffix("ON CONFLICT (profile_id) DO NOTHING")
}

// ReplaceUsers makes the profile table match users exactly. Users that
// carry a password hash get an identity when they have none; the others
// stay profiles that cannot sign in until they sign up.
func (r *Repository) ReplaceUsers(ctx context.Context, users []domain.User) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		ids := make([]string, 0, len(users))
		for _, u := range users {
			ids = append(ids, u.ID)
		}
		if _, err := qExec(ctx, tx, psql.Delete("profiles").Where(sq.NotEq{"id": ids})); err != nil {
			return fmt.Errorf("deleting stale profiles: %w", err)
		}
		for _, u := range users {
			if err := r.saveProfile(ctx, tx, u); err != nil {
				return err
			}
			if u.Password == "" {
				continue
			}
			if _, err := qExec(ctx, tx, r.insertIdentity(u)); err != nil {
				if isUniqueViolation(err) {
					return domain.ErrDuplicateUser
				}
				return fmt.Errorf("creating identity: %w", err)
			}
		}
		return nil
	})
}

// DeleteUser removes a profile together with its identity
func (r *Repository) DeleteUser(ctx context.Context, userID string) error {
	tag, err := qExec(ctx, r.pool, psql.Delete("profiles").Where(sq.Eq{"id": userID}))
	if err != nil {
		return fmt.Errorf("deleting profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// SignUp creates a profile and its identity. user.Password must already be
// a bcrypt hash.
func (r *Repository) SignUp(ctx context.Context, user domain.User) (domain.User, error) {
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		_, err := qExec(ctx, tx, psql.Insert("profiles").
			Columns(profileColumns...).
			Values(user.ID, user.Username, user.IsAdmin, user.CreatedAt))
		if err != nil {
			if isUniqueViolation(err) {
				return domain.ErrDuplicateUser
			}
			return fmt.Errorf("creating profile: %w", err)
		}
		_, err = qExec(ctx, tx, psql.Insert("identities").
			Columns("address", "profile_id", "password_hash").
			Values(auth.Address(user.Username, r.addrDomain), user.ID, user.Password))
		if err != nil {
			if isUniqueViolation(err) {
				return domain.ErrDuplicateUser
			}
			return fmt.Errorf("creating identity: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.User{}, err
	}
	return user.Public(), nil
}

// SignIn verifies the credentials of the identity derived from username
// and holds the session
func (r *Repository) SignIn(ctx context.Context, username, password string) (domain.User, error) {
	q := psql.Select("p.id", "p.username", "p.is_admin", "p.created_at", "i.password_hash").
		From("identities i").
		Join("profiles p ON p.id = i.profile_id").
		Where(sq.Eq{"i.address": auth.Address(username, r.addrDomain)})

	var u domain.User
	var hash string
	err := qRow(ctx, r.pool, q).Scan(&u.ID, &u.Username, &u.IsAdmin, &u.CreatedAt, &hash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, domain.ErrInvalidCredentials
		}
		return domain.User{}, fmt.Errorf("looking up identity: %w", err)
	}
	if !auth.CheckPassword(hash, password) {
		return domain.User{}, domain.ErrInvalidCredentials
	}

	r.mu.Lock()
	r.session = u.ID
	r.mu.Unlock()
	return u, nil
}

// SignOut drops the held session
func (r *Repository) SignOut(ctx context.Context) error {
	r.mu.Lock()
	r.session = ""
	r.mu.Unlock()
	return nil
}

// CurrentUser returns the profile of the held session, or nil
func (r *Repository) CurrentUser(ctx context.Context) (*domain.User, error) {
	r.mu.Lock()
	id := r.session
	r.mu.Unlock()
	if id == "" {
		return nil, nil
	}

	u, err := scanProfile(qRow(ctx, r.pool, psql.Select(profileColumns...).From("profiles").Where(sq.Eq{"id": id})))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting session profile: %w", err)
	}
	return &u, nil
}
