package postgres

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/venom-hub/internal/domain"
)

var (
	buildColumns   = []string{"id", "title", "description", "image", "likes", "views", "author_id", "approved", "created_at"}
	pendingColumns = []string{"id", "title", "description", "image", "author_id", "created_at"}
)

// Builds lists every build, newest first
func (r *Repository) Builds(ctx context.Context) ([]domain.Build, error) {
	rows, err := qQuery(ctx, r.pool, psql.Select(buildColumns...).From("builds").OrderBy("created_at DESC"))
	if err != nil {
		return nil, fmt.Errorf("listing builds: %w", err)
	}
	defer rows.Close()

	builds := []domain.Build{}
	for rows.Next() {
		var b domain.Build
		err := rows.Scan(&b.ID, &b.Title, &b.Description, &b.Image, &b.Likes, &b.Views, &b.AuthorID, &b.Approved, &b.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scanning build: %w", err)
		}
		builds = append(builds, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing builds: %w", err)
	}
	return builds, nil
}

func upsertBuild(b domain.Build) sq.InsertBuilder {
	return psql.Insert("builds").
		Columns(buildColumns...).
		Values(b.ID, b.Title, b.Description, b.Image, b.Likes, b.Views, b.AuthorID, b.Approved, b.CreatedAt).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			image = EXCLUDED.image,
			approved = EXCLUDED.approved`)
}

// SaveBuild upserts a build. Counters of an existing row are left to
// Like, Unlike and IncrementViews.
func (r *Repository) SaveBuild(ctx context.Context, build domain.Build) error {
	if _, err := qExec(ctx, r.pool, upsertBuild(build)); err != nil {
		return fmt.Errorf("saving build: %w", err)
	}
	return nil
}

func (r *Repository) DeleteBuild(ctx context.Context, buildID string) error {
	tag, err := qExec(ctx, r.pool, psql.Delete("builds").Where(sq.Eq{"id": buildID}))
	if err != nil {
		return fmt.Errorf("deleting build: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrBuildNotFound
	}
	return nil
}

// PendingBuilds lists the moderation queue, newest first
func (r *Repository) PendingBuilds(ctx context.Context) ([]domain.PendingBuild, error) {
	rows, err := qQuery(ctx, r.pool, psql.Select(pendingColumns...).From("pending_builds").OrderBy("created_at DESC"))
	if err != nil {
		return nil, fmt.Errorf("listing pending builds: %w", err)
	}
	defer rows.Close()

	pending := []domain.PendingBuild{}
	for rows.Next() {
		var p domain.PendingBuild
		if err := rows.Scan(&p.ID, &p.Title, &p.Description, &p.Image, &p.AuthorID, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning pending build: %w", err)
		}
		pending = append(pending, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing pending builds: %w", err)
	}
	return pending, nil
}

func (r *Repository) SavePendingBuild(ctx context.Context, p domain.PendingBuild) error {
	q := psql.Insert("pending_builds").
		Columns(pendingColumns...).
		Values(p.ID, p.Title, p.Description, p.Image, p.AuthorID, p.CreatedAt).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			image = EXCLUDED.image`)
	if _, err := qExec(ctx, r.pool, q); err != nil {
		return fmt.Errorf("saving pending build: %w", err)
	}
	return nil
}

func deletePending(ctx context.Context, db querier, pendingID string) error {
	tag, err := qExec(ctx, db, psql.Delete("pending_builds").Where(sq.Eq{"id": pendingID}))
	if err != nil {
		return fmt.Errorf("deleting pending build: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPendingBuildNotFound
	}
	return nil
}

func (r *Repository) DeletePendingBuild(ctx context.Context, pendingID string) error {
	return deletePending(ctx, r.pool, pendingID)
}

// ApproveBuild removes the pending row and inserts the promoted build in
// one transaction
func (r *Repository) ApproveBuild(ctx context.Context, pendingID string, build domain.Build) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		if err := deletePending(ctx, tx, pendingID); err != nil {
			return err
		}
		if _, err := qExec(ctx, tx, upsertBuild(build)); err != nil {
			return fmt.Errorf("inserting approved build: %w", err)
		}
		return nil
	})
}

// UserLikes returns every like set
func (r *Repository) UserLikes(ctx context.Context) (domain.UserLikes, error) {
	rows, err := qQuery(ctx, r.pool, psql.Select("user_id", "build_id").From("user_likes").OrderBy("id"))
	if err != nil {
		return nil, fmt.Errorf("listing likes: %w", err)
	}
	defer rows.Close()

	likes := domain.UserLikes{}
	for rows.Next() {
		var userID, buildID string
		if err := rows.Scan(&userID, &buildID); err != nil {
			return nil, fmt.Errorf("scanning like: %w", err)
		}
		likes.Add(userID, buildID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing likes: %w", err)
	}
	return likes, nil
}

func adjustLikes(ctx context.Context, tx pgx.Tx, buildID, expr string) error {
	tag, err := qExec(ctx, tx, psql.Update("builds").Set("likes", sq.Expr(expr)).Where(sq.Eq{"id": buildID}))
	if err != nil {
		return fmt.Errorf("updating like counter: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrBuildNotFound
	}
	return nil
}

// Like records the like row and bumps the counter atomically
func (r *Repository) Like(ctx context.Context, userID, buildID string) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		if err := adjustLikes(ctx, tx, buildID, "likes + 1"); err != nil {
			return err
		}
		_, err := qExec(ctx, tx, psql.Insert("user_likes").Columns("user_id", "build_id").Values(userID, buildID))
		if err != nil {
			if isUniqueViolation(err) {
				return domain.ErrAlreadyLiked
			}
			return fmt.Errorf("inserting like: %w", err)
		}
		return nil
	})
}

// Unlike removes the like row and lowers the counter, never below zero
func (r *Repository) Unlike(ctx context.Context, userID, buildID string) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		tag, err := qExec(ctx, tx, psql.Delete("user_likes").Where(sq.Eq{"user_id": userID, "build_id": buildID}))
		if err != nil {
			return fmt.Errorf("deleting like: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrNotLiked
		}
		return adjustLikes(ctx, tx, buildID, "GREATEST(likes - 1, 0)")
	})
}

// BuildViews returns the view counter of every build
func (r *Repository) BuildViews(ctx context.Context) (domain.BuildViews, error) {
	rows, err := qQuery(ctx, r.pool, psql.Select("id", "views").From("builds"))
	if err != nil {
		return nil, fmt.Errorf("listing views: %w", err)
	}
	defer rows.Close()

	views := domain.BuildViews{}
	for rows.Next() {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, fmt.Errorf("scanning views: %w", err)
		}
		views[id] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing views: %w", err)
	}
	return views, nil
}

// IncrementViews adds delta to the counter server side and returns the
// new value
func (r *Repository) IncrementViews(ctx context.Context, buildID string, delta int) (int, error) {
	q := psql.Update("builds").
		Set("views", sq.Expr("views + ?", delta)).
		Where(sq.Eq{"id": buildID}).
		Suffix("RETURNING views")

	var views int
	if err := qRow(ctx, r.pool, q).Scan(&views); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domain.ErrBuildNotFound
		}
		return 0, fmt.Errorf("incrementing views: %w", err)
	}
	return views, nil
}
