package storage

import (
	"context"

	"github.com/venom-hub/internal/domain"
)

func (f *Facade) findRaid(ctx context.Context, raidID string) (domain.Raid, error) {
	raid, _, err := f.lookupRaid(ctx, raidID)
	return raid, err
}

// lookupRaid also reports which store served the raid
func (f *Facade) lookupRaid(ctx context.Context, raidID string) (domain.Raid, SourceKind, error) {
	res, err := f.GetRaids(ctx)
	if err != nil {
		return domain.Raid{}, "", err
	}
	idx := domain.FindRaid(res.Value, raidID)
	if idx < 0 {
		return domain.Raid{}, res.Source, domain.ErrRaidNotFound
	}
	raid := res.Value[idx]
	raid.CurrentPlayers = append([]domain.Participant{}, raid.CurrentPlayers...)
	return raid, res.Source, nil
}

// CreateRaid schedules a raid. The author joins it as its first
// participant with the dd role.
func (f *Facade) CreateRaid(ctx context.Context, authorID string, in domain.RaidInput) (Result[domain.Raid], error) {
	in, err := in.Normalize()
	if err != nil {
		return Result[domain.Raid]{}, err
	}
	raid := domain.Raid{
		ID:             f.newID(),
		Title:          in.Title,
		Description:    in.Description,
		Date:           in.Date,
		Time:           in.Time,
		MaxPlayers:     in.MaxPlayers,
		CurrentPlayers: []domain.Participant{{UserID: authorID, Role: domain.RoleDD}},
		AuthorID:       authorID,
		CreatedAt:      f.now(),
	}
	return f.saveRaid(ctx, "create raid", raid)
}

// UpdateRaid edits a raid's details. Capacity cannot drop below the
// number of players already signed up.
func (f *Facade) UpdateRaid(ctx context.Context, raidID string, in domain.RaidInput) (Result[domain.Raid], error) {
	in, err := in.Normalize()
	if err != nil {
		return Result[domain.Raid]{}, err
	}
	raid, err := f.findRaid(ctx, raidID)
	if err != nil {
		return Result[domain.Raid]{}, err
	}
	if in.MaxPlayers < len(raid.CurrentPlayers) {
		return Result[domain.Raid]{}, domain.ErrInvalidRequest
	}
	raid.Title = in.Title
	raid.Description = in.Description
	raid.Date = in.Date
	raid.Time = in.Time
	raid.MaxPlayers = in.MaxPlayers
	return f.saveRaid(ctx, "update raid", raid)
}

func (f *Facade) saveRaid(ctx context.Context, op string, raid domain.Raid) (Result[domain.Raid], error) {
	return writeThrough(ctx, f, op, raid,
		func(ctx context.Context) error { return f.local.SaveRaid(ctx, raid) },
		func(ctx context.Context, r Remote) error { return r.SaveRaid(ctx, raid) },
	)
}

// DeleteRaid cancels a raid together with its participant list
func (f *Facade) DeleteRaid(ctx context.Context, raidID string) (Result[struct{}], error) {
	if _, err := f.findRaid(ctx, raidID); err != nil {
		return Result[struct{}]{}, err
	}
	return writeThrough(ctx, f, "delete raid", struct{}{},
		func(ctx context.Context) error { return f.local.DeleteRaid(ctx, raidID) },
		func(ctx context.Context, r Remote) error { return r.DeleteRaid(ctx, raidID) },
	)
}

// JoinRaid signs the user up with the given role. A full raid or a user
// already present leaves the raid untouched.
func (f *Facade) JoinRaid(ctx context.Context, raidID, userID string, role domain.Role) (Result[domain.Raid], error) {
	raid, src, err := f.lookupRaid(ctx, raidID)
	if err != nil {
		return Result[domain.Raid]{}, err
	}
	if err := raid.Join(userID, role); err != nil {
		return Result[domain.Raid]{}, err
	}
	p := domain.Participant{UserID: userID, Role: role}
	return mutate(ctx, f, "join raid", raid, src,
		func(ctx context.Context) (domain.Raid, error) { return f.local.JoinRaid(ctx, raidID, p) },
		func(ctx context.Context) error { return f.local.SaveRaid(ctx, raid) },
		func(ctx context.Context, r Remote) error { return r.AddParticipant(ctx, raidID, p) },
	)
}

// LeaveRaid removes the user from the raid
func (f *Facade) LeaveRaid(ctx context.Context, raidID, userID string) (Result[domain.Raid], error) {
	raid, src, err := f.lookupRaid(ctx, raidID)
	if err != nil {
		return Result[domain.Raid]{}, err
	}
	if err := raid.Leave(userID); err != nil {
		return Result[domain.Raid]{}, err
	}
	return mutate(ctx, f, "leave raid", raid, src,
		func(ctx context.Context) (domain.Raid, error) { return f.local.LeaveRaid(ctx, raidID, userID) },
		func(ctx context.Context) error { return f.local.SaveRaid(ctx, raid) },
		func(ctx context.Context, r Remote) error { return r.RemoveParticipant(ctx, raidID, userID) },
	)
}
