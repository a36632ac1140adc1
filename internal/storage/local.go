package storage

import (
	"context"
	"slices"
	"sync"

	"github.com/venom-hub/internal/auth"
	"github.com/venom-hub/internal/domain"
	"github.com/venom-hub/internal/recordstore"
)

// LocalSource serves the facade from the record store. Every mutation is a
// read-modify-write of whole collections done under mu, so counters and
// participant lists never lose an update within the process. Updates
// spanning two collections are two independent writes.
type LocalSource struct {
	store *recordstore.Store
	mu    sync.Mutex
}

// NewLocalSource wraps a record store
func NewLocalSource(store *recordstore.Store) *LocalSource {
	return &LocalSource{store: store}
}

func (l *LocalSource) Users(ctx context.Context) ([]domain.User, error) {
	return l.store.Users(ctx)
}

func (l *LocalSource) Builds(ctx context.Context) ([]domain.Build, error) {
	return l.store.Builds(ctx), nil
}

func (l *LocalSource) PendingBuilds(ctx context.Context) ([]domain.PendingBuild, error) {
	return l.store.PendingBuilds(ctx), nil
}

func (l *LocalSource) Raids(ctx context.Context) ([]domain.Raid, error) {
	return l.store.Raids(ctx), nil
}

func (l *LocalSource) UserLikes(ctx context.Context) (domain.UserLikes, error) {
	return l.store.UserLikes(ctx), nil
}

func (l *LocalSource) BuildViews(ctx context.Context) (domain.BuildViews, error) {
	return l.store.BuildViews(ctx), nil
}

func (l *LocalSource) CurrentUser(ctx context.Context) (*domain.User, error) {
	return l.store.CurrentUser(ctx), nil
}

// SetCurrentUser records the device session
func (l *LocalSource) SetCurrentUser(ctx context.Context, user *domain.User) error {
	return l.store.SetCurrentUser(ctx, user)
}

// SignUp appends a new user, refusing a username that is taken
func (l *LocalSource) SignUp(ctx context.Context, user domain.User) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	users, err := l.store.Users(ctx)
	if err != nil {
		return err
	}
	if domain.FindUsername(users, user.Username) >= 0 {
		return domain.ErrDuplicateUser
	}
	return l.store.SaveUsers(ctx, append(users, user))
}

// Authenticate returns the user whose username and password match
func (l *LocalSource) Authenticate(ctx context.Context, username, password string) (domain.User, error) {
	users, err := l.store.Users(ctx)
	if err != nil {
		return domain.User{}, err
	}
	idx := domain.FindUsername(users, username)
	if idx < 0 || !auth.CheckPassword(users[idx].Password, password) {
		return domain.User{}, domain.ErrInvalidCredentials
	}
	return users[idx], nil
}

// SaveUser upserts a user matched by ID, then by username. A stored password
// hash survives when the incoming user carries none.
func (l *LocalSource) SaveUser(ctx context.Context, user domain.User) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	users, err := l.store.Users(ctx)
	if err != nil {
		return err
	}
	idx := domain.FindUser(users, user.ID)
	if idx < 0 {
		idx = domain.FindUsername(users, user.Username)
	}
	if idx < 0 {
		return l.store.SaveUsers(ctx, append(users, user))
	}
	if user.Password == "" {
		user.Password = users[idx].Password
	}
	users[idx] = user
	return l.store.SaveUsers(ctx, users)
}

// ReplaceUsers replaces the whole collection, keeping known password
// hashes. It returns the users as stored.
func (l *LocalSource) ReplaceUsers(ctx context.Context, users []domain.User) ([]domain.User, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.replaceUsers(ctx, users, false)
}

// replaceUsers merges hashes by ID. With keepAdmins set, the stored
// administrators survive a collection that holds none.
func (l *LocalSource) replaceUsers(ctx context.Context, users []domain.User, keepAdmins bool) ([]domain.User, error) {
	existing, err := l.store.Users(ctx)
	if err != nil {
		return nil, err
	}
	merged := make([]domain.User, 0, len(users))
	for _, u := range users {
		if u.Password == "" {
			if idx := domain.FindUser(existing, u.ID); idx >= 0 {
				u.Password = existing[idx].Password
			}
		}
		merged = append(merged, u)
	}
	if keepAdmins && !slices.ContainsFunc(merged, func(u domain.User) bool { return u.IsAdmin }) {
		for _, u := range existing {
			if u.IsAdmin && domain.FindUsername(merged, u.Username) < 0 {
				merged = append(merged, u)
			}
		}
	}
	return merged, l.store.SaveUsers(ctx, merged)
}

func (l *LocalSource) DeleteUser(ctx context.Context, userID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	users, err := l.store.Users(ctx)
	if err != nil {
		return err
	}
	kept := users[:0]
	for _, u := range users {
		if u.ID != userID {
			kept = append(kept, u)
		}
	}
	return l.store.SaveUsers(ctx, kept)
}

// SaveBuild upserts a build by ID
func (l *LocalSource) SaveBuild(ctx context.Context, build domain.Build) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.saveBuild(ctx, build)
}

func (l *LocalSource) saveBuild(ctx context.Context, build domain.Build) error {
	builds := l.store.Builds(ctx)
	if idx := domain.FindBuild(builds, build.ID); idx >= 0 {
		builds[idx] = build
	} else {
		builds = append(builds, build)
	}
	return l.store.SaveBuilds(ctx, builds)
}

func (l *LocalSource) DeleteBuild(ctx context.Context, buildID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	builds := l.store.Builds(ctx)
	if idx := domain.FindBuild(builds, buildID); idx >= 0 {
		builds = append(builds[:idx], builds[idx+1:]...)
	}
	return l.store.SaveBuilds(ctx, builds)
}

// SavePendingBuild upserts a pending build by ID
func (l *LocalSource) SavePendingBuild(ctx context.Context, build domain.PendingBuild) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	pending := l.store.PendingBuilds(ctx)
	if idx := domain.FindPendingBuild(pending, build.ID); idx >= 0 {
		pending[idx] = build
	} else {
		pending = append(pending, build)
	}
	return l.store.SavePendingBuilds(ctx, pending)
}

func (l *LocalSource) DeletePendingBuild(ctx context.Context, pendingID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.deletePending(ctx, pendingID)
}

func (l *LocalSource) deletePending(ctx context.Context, pendingID string) error {
	pending := l.store.PendingBuilds(ctx)
	if idx := domain.FindPendingBuild(pending, pendingID); idx >= 0 {
		pending = append(pending[:idx], pending[idx+1:]...)
	}
	return l.store.SavePendingBuilds(ctx, pending)
}

// ApproveBuild writes the promoted build, then drops it from the queue
func (l *LocalSource) ApproveBuild(ctx context.Context, pendingID string, build domain.Build) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.saveBuild(ctx, build); err != nil {
		return err
	}
	return l.deletePending(ctx, pendingID)
}

// Like adds the build to the user's like set and bumps the stored counter
func (l *LocalSource) Like(ctx context.Context, userID, buildID string) (domain.Build, error) {
	return l.adjustLike(ctx, userID, buildID, true)
}

// Unlike removes the build from the user's like set and lowers the stored
// counter, never below zero
func (l *LocalSource) Unlike(ctx context.Context, userID, buildID string) (domain.Build, error) {
	return l.adjustLike(ctx, userID, buildID, false)
}

func (l *LocalSource) adjustLike(ctx context.Context, userID, buildID string, like bool) (domain.Build, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	builds := l.store.Builds(ctx)
	idx := domain.FindBuild(builds, buildID)
	if idx < 0 {
		return domain.Build{}, domain.ErrBuildNotFound
	}
	build := builds[idx]
	likes := l.store.UserLikes(ctx)
	switch {
	case like && !likes.Add(userID, buildID):
		return domain.Build{}, domain.ErrAlreadyLiked
	case !like && !likes.Remove(userID, buildID):
		return domain.Build{}, domain.ErrNotLiked
	case like:
		build.Likes++
	case build.Likes > 0:
		build.Likes--
	}
	builds[idx] = build
	if err := l.store.SaveBuilds(ctx, builds); err != nil {
		return domain.Build{}, err
	}
	return build, l.store.SaveUserLikes(ctx, likes)
}

// SetLike stores a build as read from the remote backend together with
// the user's like state
func (l *LocalSource) SetLike(ctx context.Context, userID string, build domain.Build, liked bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.saveBuild(ctx, build); err != nil {
		return err
	}
	likes := l.store.UserLikes(ctx)
	if liked {
		likes.Add(userID, build.ID)
	} else {
		likes.Remove(userID, build.ID)
	}
	return l.store.SaveUserLikes(ctx, likes)
}

// AddViews raises the stored view counter of a build by delta
func (l *LocalSource) AddViews(ctx context.Context, buildID string, delta int) (domain.Build, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	builds := l.store.Builds(ctx)
	idx := domain.FindBuild(builds, buildID)
	if idx < 0 {
		return domain.Build{}, domain.ErrBuildNotFound
	}
	builds[idx].Views += delta
	return builds[idx], l.storeViews(ctx, builds, idx)
}

// SetViews overwrites the view counter of a stored build
func (l *LocalSource) SetViews(ctx context.Context, buildID string, views int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	builds := l.store.Builds(ctx)
	idx := domain.FindBuild(builds, buildID)
	if idx < 0 {
		return domain.ErrBuildNotFound
	}
	builds[idx].Views = views
	return l.storeViews(ctx, builds, idx)
}

// storeViews writes the counter of builds[idx] to the view map, then the
// build collection
func (l *LocalSource) storeViews(ctx context.Context, builds []domain.Build, idx int) error {
	views := l.store.BuildViews(ctx)
	views[builds[idx].ID] = builds[idx].Views
	if err := l.store.SaveBuildViews(ctx, views); err != nil {
		return err
	}
	return l.store.SaveBuilds(ctx, builds)
}

// SaveRaid upserts a raid by ID, participants included
func (l *LocalSource) SaveRaid(ctx context.Context, raid domain.Raid) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	raids := l.store.Raids(ctx)
	if idx := domain.FindRaid(raids, raid.ID); idx >= 0 {
		raids[idx] = raid
	} else {
		raids = append(raids, raid)
	}
	return l.store.SaveRaids(ctx, raids)
}

// JoinRaid signs p up for the stored raid
func (l *LocalSource) JoinRaid(ctx context.Context, raidID string, p domain.Participant) (domain.Raid, error) {
	return l.updateRaid(ctx, raidID, func(raid *domain.Raid) error {
		return raid.Join(p.UserID, p.Role)
	})
}

// LeaveRaid removes the user from the stored raid
func (l *LocalSource) LeaveRaid(ctx context.Context, raidID, userID string) (domain.Raid, error) {
	return l.updateRaid(ctx, raidID, func(raid *domain.Raid) error {
		return raid.Leave(userID)
	})
}

func (l *LocalSource) updateRaid(ctx context.Context, raidID string, fn func(*domain.Raid) error) (domain.Raid, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	raids := l.store.Raids(ctx)
	idx := domain.FindRaid(raids, raidID)
	if idx < 0 {
		return domain.Raid{}, domain.ErrRaidNotFound
	}
	raid := raids[idx]
	if err := fn(&raid); err != nil {
		return domain.Raid{}, err
	}
	raids[idx] = raid
	return raid, l.store.SaveRaids(ctx, raids)
}

func (l *LocalSource) DeleteRaid(ctx context.Context, raidID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	raids := l.store.Raids(ctx)
	if idx := domain.FindRaid(raids, raidID); idx >= 0 {
		raids = append(raids[:idx], raids[idx+1:]...)
	}
	return l.store.SaveRaids(ctx, raids)
}

// Replace overwrites every collection with a snapshot taken elsewhere.
// Local administrators are kept when the snapshot has none.
func (l *LocalSource) Replace(ctx context.Context, snap Snapshot) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := l.replaceUsers(ctx, snap.Users, true); err != nil {
		return err
	}
	if err := l.store.SaveBuilds(ctx, snap.Builds); err != nil {
		return err
	}
	if err := l.store.SavePendingBuilds(ctx, snap.PendingBuilds); err != nil {
		return err
	}
	if err := l.store.SaveRaids(ctx, snap.Raids); err != nil {
		return err
	}
	if err := l.store.SaveUserLikes(ctx, snap.UserLikes); err != nil {
		return err
	}
	return l.store.SaveBuildViews(ctx, snap.BuildViews)
}
