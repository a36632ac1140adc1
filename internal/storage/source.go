package storage

import (
	"context"
	"errors"

	"github.com/venom-hub/internal/domain"
)

// ErrUnavailable is reported when the remote backend is not configured
var ErrUnavailable = errors.New("remote store not configured")

// Source is the read side shared by the local and the remote store
type Source interface {
	Users(ctx context.Context) ([]domain.User, error)
	Builds(ctx context.Context) ([]domain.Build, error)
	PendingBuilds(ctx context.Context) ([]domain.PendingBuild, error)
	Raids(ctx context.Context) ([]domain.Raid, error)
	UserLikes(ctx context.Context) (domain.UserLikes, error)
	BuildViews(ctx context.Context) (domain.BuildViews, error)
	CurrentUser(ctx context.Context) (*domain.User, error)
}

// Remote is the hosted backend. Every method returns the underlying failure
// instead of substituting a default; falling back is the facade's decision.
type Remote interface {
	Source

	SignUp(ctx context.Context, user domain.User) (domain.User, error)
	SignIn(ctx context.Context, username, password string) (domain.User, error)
	SignOut(ctx context.Context) error

	SaveUser(ctx context.Context, user domain.User) error
	ReplaceUsers(ctx context.Context, users []domain.User) error
	DeleteUser(ctx context.Context, userID string) error

	SaveBuild(ctx context.Context, build domain.Build) error
	DeleteBuild(ctx context.Context, buildID string) error
	SavePendingBuild(ctx context.Context, build domain.PendingBuild) error
	DeletePendingBuild(ctx context.Context, pendingID string) error
	ApproveBuild(ctx context.Context, pendingID string, build domain.Build) error

	Like(ctx context.Context, userID, buildID string) error
	Unlike(ctx context.Context, userID, buildID string) error
	IncrementViews(ctx context.Context, buildID string, delta int) (int, error)

	SaveRaid(ctx context.Context, raid domain.Raid) error
	DeleteRaid(ctx context.Context, raidID string) error
	AddParticipant(ctx context.Context, raidID string, p domain.Participant) error
	RemoveParticipant(ctx context.Context, raidID, userID string) error
}

var (
	_ Source = (*LocalSource)(nil)
)
