// Package postgres is the hosted relational backend of the hub. It maps
// every logical storage operation onto the profiles, builds, raids and
// related tables and normalizes the rows into domain records.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/venom-hub/internal/config"
)

const uniqueViolation = "23505"

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Repository provides PostgreSQL-based data access
type Repository struct {
	pool       *pgxpool.Pool
	addrDomain string
	logger     *slog.Logger

	// mu guards session, the profile ID of the signed-in user
	mu      sync.Mutex
	session string
}

// NewRepository creates a new PostgreSQL repository. addrDomain is the
// domain of the synthesized identity addresses.
func NewRepository(ctx context.Context, cfg *config.RemoteConfig, addrDomain string, logger *slog.Logger) (*Repository, error) {
	connString, err := cfg.ConnectionString()
	if err != nil {
		return nil, err
	}
	poolConfig, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConnections)
	poolConfig.MinConns = int32(cfg.MinConnections)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	return &Repository{
		pool:       pool,
		addrDomain: addrDomain,
		logger:     logger,
	}, nil
}

// Close closes the database connection pool
func (r *Repository) Close() {
	r.pool.Close()
}

// Ping checks that the database answers
func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// RunMigrations executes database migrations
func (r *Repository) RunMigrations(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS profiles (
			id VARCHAR(64) PRIMARY KEY,
			username VARCHAR(255) NOT NULL UNIQUE,
			is_admin BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS identities (
			address VARCHAR(320) PRIMARY KEY,
			profile_id VARCHAR(64) NOT NULL UNIQUE REFERENCES profiles(id) ON DELETE CASCADE,
			password_hash TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS builds (
			id VARCHAR(64) PRIMARY KEY,
			title TEXT NOT NULL,
			description TEXT NOT NULL,
			image TEXT NOT NULL,
			likes INT NOT NULL DEFAULT 0 CHECK (likes >= 0),
			views INT NOT NULL DEFAULT 0,
			author_id VARCHAR(64) NOT NULL,
			approved BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS pending_builds (
			id VARCHAR(64) PRIMARY KEY,
			title TEXT NOT NULL,
			description TEXT NOT NULL,
			image TEXT NOT NULL,
			author_id VARCHAR(64) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS raids (
			id VARCHAR(64) PRIMARY KEY,
			title TEXT NOT NULL,
			description TEXT NOT NULL,
			raid_date VARCHAR(32) NOT NULL,
			raid_time VARCHAR(32) NOT NULL,
			max_players INT NOT NULL DEFAULT 5 CHECK (max_players >= 1),
			author_id VARCHAR(64) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS raid_participants (
			id BIGSERIAL PRIMARY KEY,
			raid_id VARCHAR(64) NOT NULL REFERENCES raids(id) ON DELETE CASCADE,
			user_id VARCHAR(64) NOT NULL,
			role VARCHAR(16) NOT NULL,
			joined_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(raid_id, user_id)
		)`,
		`CREATE TABLE IF NOT EXISTS user_likes (
			id BIGSERIAL PRIMARY KEY,
			user_id VARCHAR(64) NOT NULL,
			build_id VARCHAR(64) NOT NULL REFERENCES builds(id) ON DELETE CASCADE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(user_id, build_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_builds_created ON builds(created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_raids_created ON raids(created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_raid_participants_raid ON raid_participants(raid_id, id)`,
	}

	for _, migration := range migrations {
		_, err := r.pool.Exec(ctx, migration)
		if err != nil {
			return fmt.Errorf("executing migration: %w", err)
		}
	}

	r.logger.Info("database migrations completed")
	return nil
}

// querier is satisfied by both the pool and a transaction
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func qExec(ctx context.Context, db querier, q sq.Sqlizer) (pgconn.CommandTag, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return pgconn.CommandTag{}, fmt.Errorf("building query: %w", err)
	}
	return db.Exec(ctx, sql, args...)
}

func qQuery(ctx context.Context, db querier, q sq.SelectBuilder) (pgx.Rows, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building query: %w", err)
	}
	return db.Query(ctx, sql, args...)
}

func qRow(ctx context.Context, db querier, q sq.Sqlizer) pgx.Row {
	sql, args, err := q.ToSql()
	if err != nil {
		return errRow{err}
	}
	return db.QueryRow(ctx, sql, args...)
}

// errRow reports a query build failure from Scan
type errRow struct{ err error }

func (e errRow) Scan(...any) error { return fmt.Errorf("building query: %w", e.err) }

// inTx runs fn in a transaction, committing when it returns nil
func (r *Repository) inTx(ctx context.Context, fn func(pgx.Tx) error) error {
	return pgx.BeginFunc(ctx, r.pool, fn)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
