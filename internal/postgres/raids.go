package postgres

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/venom-hub/internal/domain"
)

var raidColumns = []string{"id", "title", "description", "raid_date", "raid_time", "max_players", "author_id", "created_at"}

// Raids lists every raid, newest first, with participant rows flattened
// into CurrentPlayers in join order
func (r *Repository) Raids(ctx context.Context) ([]domain.Raid, error) {
	rows, err := qQuery(ctx, r.pool, psql.Select(raidColumns...).From("raids").OrderBy("created_at DESC"))
	if err != nil {
		return nil, fmt.Errorf("listing raids: %w", err)
	}
	defer rows.Close()

	raids := []domain.Raid{}
	index := map[string]int{}
	for rows.Next() {
		var raid domain.Raid
		err := rows.Scan(&raid.ID, &raid.Title, &raid.Description, &raid.Date, &raid.Time, &raid.MaxPlayers, &raid.AuthorID, &raid.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scanning raid: %w", err)
		}
		raid.CurrentPlayers = []domain.Participant{}
		index[raid.ID] = len(raids)
		raids = append(raids, raid)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing raids: %w", err)
	}

	participants, err := qQuery(ctx, r.pool, psql.Select("raid_id", "user_id", "role").From("raid_participants").OrderBy("id"))
	if err != nil {
		return nil, fmt.Errorf("listing participants: %w", err)
	}
	defer participants.Close()

	for participants.Next() {
		var raidID string
		var p domain.Participant
		if err := participants.Scan(&raidID, &p.UserID, &p.Role); err != nil {
			return nil, fmt.Errorf("scanning participant: %w", err)
		}
		if i, ok := index[raidID]; ok {
			raids[i].CurrentPlayers = append(raids[i].CurrentPlayers, p)
		}
	}
	if err := participants.Err(); err != nil {
		return nil, fmt.Errorf("listing participants: %w", err)
	}
	return raids, nil
}

// SaveRaid upserts the raid row and replaces its participant rows
func (r *Repository) SaveRaid(ctx context.Context, raid domain.Raid) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		q := psql.Insert("raids").
			Columns(raidColumns...).
			Values(raid.ID, raid.Title, raid.Description, raid.Date, raid.Time, raid.MaxPlayers, raid.AuthorID, raid.CreatedAt).
			Suffix(`ON CONFLICT (id) DO UPDATE SET
				title = EXCLUDED.title,
				description = EXCLUDED.description,
				raid_date = EXCLUDED.raid_date,
				raid_time = EXCLUDED.raid_time,
				max_players = EXCLUDED.max_players`)
		if _, err := qExec(ctx, tx, q); err != nil {
			return fmt.Errorf("saving raid: %w", err)
		}

		if _, err := qExec(ctx, tx, psql.Delete("raid_participants").Where(sq.Eq{"raid_id": raid.ID})); err != nil {
			return fmt.Errorf("clearing participants: %w", err)
		}
		if len(raid.CurrentPlayers) == 0 {
			return nil
		}
		ins := psql.Insert("raid_participants").Columns("raid_id", "user_id", "role")
		for _, p := range raid.CurrentPlayers {
			ins = ins.Values(raid.ID, p.UserID, string(p.Role))
		}
		if _, err := qExec(ctx, tx, ins); err != nil {
			if isUniqueViolation(err) {
				return domain.ErrAlreadyInRaid
			}
			return fmt.Errorf("inserting participants: %w", err)
		}
		return nil
	})
}

func (r *Repository) DeleteRaid(ctx context.Context, raidID string) error {
	tag, err := qExec(ctx, r.pool, psql.Delete("raids").Where(sq.Eq{"id": raidID}))
	if err != nil {
		return fmt.Errorf("deleting raid: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRaidNotFound
	}
	return nil
}

// AddParticipant inserts a participant row. The raid row is locked so
// concurrent joins cannot exceed max_players.
func (r *Repository) AddParticipant(ctx context.Context, raidID string, p domain.Participant) error {
	if !p.Role.Valid() {
		return domain.ErrInvalidRole
	}
	return r.inTx(ctx, func(tx pgx.Tx) error {
		var maxPlayers int
		err := qRow(ctx, tx, psql.Select("max_players").From("raids").Where(sq.Eq{"id": raidID}).Suffix("FOR UPDATE")).Scan(&maxPlayers)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrRaidNotFound
			}
			return fmt.Errorf("locking raid: %w", err)
		}

		var present bool
		err = qRow(ctx, tx, psql.Select().Column(sq.Expr("EXISTS(SELECT 1 FROM raid_participants WHERE raid_id = ? AND user_id = ?)", raidID, p.UserID))).Scan(&present)
		if err != nil {
			return fmt.Errorf("checking participant: %w", err)
		}
		if present {
			return domain.ErrAlreadyInRaid
		}

		var count int
		err = qRow(ctx, tx, psql.Select("COUNT(*)").From("raid_participants").Where(sq.Eq{"raid_id": raidID})).Scan(&count)
		if err != nil {
			return fmt.Errorf("counting participants: %w", err)
		}
		if count >= maxPlayers {
			return domain.ErrRaidFull
		}

		_, err = qExec(ctx, tx, psql.Insert("raid_participants").
			Columns("raid_id", "user_id", "role").
			Values(raidID, p.UserID, string(p.Role)))
		if err != nil {
			if isUniqueViolation(err) {
				return domain.ErrAlreadyInRaid
			}
			return fmt.Errorf("inserting participant: %w", err)
		}
		return nil
	})
}

func (r *Repository) RemoveParticipant(ctx context.Context, raidID, userID string) error {
	tag, err := qExec(ctx, r.pool, psql.Delete("raid_participants").Where(sq.Eq{"raid_id": raidID, "user_id": userID}))
	if err != nil {
		return fmt.Errorf("removing participant: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotInRaid
	}
	return nil
}
