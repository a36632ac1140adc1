package storage

import (
	"context"
	"errors"
	"sync"

	"github.com/venom-hub/internal/auth"
	"github.com/venom-hub/internal/domain"
)

var errRemoteDown = errors.New("connection refused")

// fakeRemote is an in-memory Remote. Setting down makes every call fail
// with errRemoteDown.
type fakeRemote struct {
	mu      sync.Mutex
	down    bool
	calls   int
	users   []domain.User
	hashes  map[string]string
	builds  []domain.Build
	pending []domain.PendingBuild
	raids   []domain.Raid
	likes   domain.UserLikes
	views   domain.BuildViews
	session *domain.User
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		hashes: map[string]string{},
		likes:  domain.UserLikes{},
		views:  domain.BuildViews{},
	}
}

func (r *fakeRemote) setDown(down bool) {
	r.mu.Lock()
	r.down = down
	r.mu.Unlock()
}

// enter locks the fake and reports the configured failure
func (r *fakeRemote) enter() error {
	r.mu.Lock()
	r.calls++
	if r.down {
		return errRemoteDown
	}
	return nil
}

func (r *fakeRemote) Users(ctx context.Context) ([]domain.User, error) {
	defer r.mu.Unlock()
	if err := r.enter(); err != nil {
		return nil, err
	}
	return append([]domain.User{}, r.users...), nil
}

func (r *fakeRemote) Builds(ctx context.Context) ([]domain.Build, error) {
	defer r.mu.Unlock()
	if err := r.enter(); err != nil {
		return nil, err
	}
	return append([]domain.Build{}, r.builds...), nil
}

func (r *fakeRemote) PendingBuilds(ctx context.Context) ([]domain.PendingBuild, error) {
	defer r.mu.Unlock()
	if err := r.enter(); err != nil {
		return nil, err
	}
	return append([]domain.PendingBuild{}, r.pending...), nil
}

func (r *fakeRemote) Raids(ctx context.Context) ([]domain.Raid, error) {
	defer r.mu.Unlock()
	if err := r.enter(); err != nil {
		return nil, err
	}
	out := make([]domain.Raid, len(r.raids))
	for i, raid := range r.raids {
		raid.CurrentPlayers = append([]domain.Participant{}, raid.CurrentPlayers...)
		out[i] = raid
	}
	return out, nil
}

func (r *fakeRemote) UserLikes(ctx context.Context) (domain.UserLikes, error) {
	defer r.mu.Unlock()
	if err := r.enter(); err != nil {
		return nil, err
	}
	out := domain.UserLikes{}
	for k, v := range r.likes {
		out[k] = append([]string{}, v...)
	}
	return out, nil
}

func (r *fakeRemote) BuildViews(ctx context.Context) (domain.BuildViews, error) {
	defer r.mu.Unlock()
	if err := r.enter(); err != nil {
		return nil, err
	}
	out := domain.BuildViews{}
	for k, v := range r.views {
		out[k] = v
	}
	return out, nil
}

func (r *fakeRemote) CurrentUser(ctx context.Context) (*domain.User, error) {
	defer r.mu.Unlock()
	if err := r.enter(); err != nil {
		return nil, err
	}
	return r.session, nil
}

func (r *fakeRemote) SignUp(ctx context.Context, user domain.User) (domain.User, error) {
	defer r.mu.Unlock()
	if err := r.enter(); err != nil {
		return domain.User{}, err
	}
	if _, ok := r.hashes[user.Username]; ok {
		return domain.User{}, domain.ErrDuplicateUser
	}
	r.hashes[user.Username] = user.Password
	public := user.Public()
	r.users = append(r.users, public)
	return public, nil
}

func (r *fakeRemote) SignIn(ctx context.Context, username, password string) (domain.User, error) {
	defer r.mu.Unlock()
	if err := r.enter(); err != nil {
		return domain.User{}, err
	}
	idx := domain.FindUsername(r.users, username)
	if idx < 0 || !auth.CheckPassword(r.hashes[username], password) {
		return domain.User{}, domain.ErrInvalidCredentials
	}
	u := r.users[idx]
	r.session = &u
	return u, nil
}

func (r *fakeRemote) SignOut(ctx context.Context) error {
	defer r.mu.Unlock()
	if err := r.enter(); err != nil {
		return err
	}
	r.session = nil
	return nil
}

func (r *fakeRemote) SaveUser(ctx context.Context, user domain.User) error {
	defer r.mu.Unlock()
	if err := r.enter(); err != nil {
		return err
	}
	if idx := domain.FindUser(r.users, user.ID); idx >= 0 {
		r.users[idx] = user
		return nil
	}
	r.users = append(r.users, user)
	return nil
}

func (r *fakeRemote) ReplaceUsers(ctx context.Context, users []domain.User) error {
	defer r.mu.Unlock()
	if err := r.enter(); err != nil {
		return err
	}
	r.users = make([]domain.User, len(users))
	for i, u := range users {
		if _, ok := r.hashes[u.Username]; !ok && u.Password != "" {
			r.hashes[u.Username] = u.Password
		}
		r.users[i] = u.Public()
	}
	return nil
}

func (r *fakeRemote) DeleteUser(ctx context.Context, userID string) error {
	defer r.mu.Unlock()
	if err := r.enter(); err != nil {
		return err
	}
	if idx := domain.FindUser(r.users, userID); idx >= 0 {
		r.users = append(r.users[:idx], r.users[idx+1:]...)
	}
	return nil
}

func (r *fakeRemote) SaveBuild(ctx context.Context, build domain.Build) error {
	defer r.mu.Unlock()
	if err := r.enter(); err != nil {
		return err
	}
	r.saveBuild(build)
	return nil
}

func (r *fakeRemote) saveBuild(build domain.Build) {
	if idx := domain.FindBuild(r.builds, build.ID); idx >= 0 {
		r.builds[idx] = build
		return
	}
	r.builds = append(r.builds, build)
}

func (r *fakeRemote) DeleteBuild(ctx context.Context, buildID string) error {
	defer r.mu.Unlock()
	if err := r.enter(); err != nil {
		return err
	}
	if idx := domain.FindBuild(r.builds, buildID); idx >= 0 {
		r.builds = append(r.builds[:idx], r.builds[idx+1:]...)
	}
	return nil
}

func (r *fakeRemote) SavePendingBuild(ctx context.Context, build domain.PendingBuild) error {
	defer r.mu.Unlock()
	if err := r.enter(); err != nil {
		return err
	}
	r.pending = append(r.pending, build)
	return nil
}

func (r *fakeRemote) DeletePendingBuild(ctx context.Context, pendingID string) error {
	defer r.mu.Unlock()
	if err := r.enter(); err != nil {
		return err
	}
	r.deletePending(pendingID)
	return nil
}

func (r *fakeRemote) deletePending(pendingID string) {
	if idx := domain.FindPendingBuild(r.pending, pendingID); idx >= 0 {
		r.pending = append(r.pending[:idx], r.pending[idx+1:]...)
	}
}

func (r *fakeRemote) ApproveBuild(ctx context.Context, pendingID string, build domain.Build) error {
	defer r.mu.Unlock()
	if err := r.enter(); err != nil {
		return err
	}
	if domain.FindPendingBuild(r.pending, pendingID) < 0 {
		return domain.ErrPendingBuildNotFound
	}
	r.saveBuild(build)
	r.deletePending(pendingID)
	return nil
}

func (r *fakeRemote) Like(ctx context.Context, userID, buildID string) error {
	defer r.mu.Unlock()
	if err := r.enter(); err != nil {
		return err
	}
	if !r.likes.Add(userID, buildID) {
		return domain.ErrAlreadyLiked
	}
	if idx := domain.FindBuild(r.builds, buildID); idx >= 0 {
		r.builds[idx].Likes++
	}
	return nil
}

func (r *fakeRemote) Unlike(ctx context.Context, userID, buildID string) error {
	defer r.mu.Unlock()
	if err := r.enter(); err != nil {
		return err
	}
	if !r.likes.Remove(userID, buildID) {
		return domain.ErrNotLiked
	}
	if idx := domain.FindBuild(r.builds, buildID); idx >= 0 && r.builds[idx].Likes > 0 {
		r.builds[idx].Likes--
	}
	return nil
}

func (r *fakeRemote) IncrementViews(ctx context.Context, buildID string, delta int) (int, error) {
	defer r.mu.Unlock()
	if err := r.enter(); err != nil {
		return 0, err
	}
	idx := domain.FindBuild(r.builds, buildID)
	if idx < 0 {
		return 0, domain.ErrBuildNotFound
	}
	r.builds[idx].Views += delta
	r.views[buildID] = r.builds[idx].Views
	return r.builds[idx].Views, nil
}

func (r *fakeRemote) SaveRaid(ctx context.Context, raid domain.Raid) error {
	defer r.mu.Unlock()
	if err := r.enter(); err != nil {
		return err
	}
	raid.CurrentPlayers = append([]domain.Participant{}, raid.CurrentPlayers...)
	if idx := domain.FindRaid(r.raids, raid.ID); idx >= 0 {
		r.raids[idx] = raid
		return nil
	}
	r.raids = append(r.raids, raid)
	return nil
}

func (r *fakeRemote) DeleteRaid(ctx context.Context, raidID string) error {
	defer r.mu.Unlock()
	if err := r.enter(); err != nil {
		return err
	}
	if idx := domain.FindRaid(r.raids, raidID); idx >= 0 {
		r.raids = append(r.raids[:idx], r.raids[idx+1:]...)
	}
	return nil
}

func (r *fakeRemote) AddParticipant(ctx context.Context, raidID string, p domain.Participant) error {
	defer r.mu.Unlock()
	if err := r.enter(); err != nil {
		return err
	}
	idx := domain.FindRaid(r.raids, raidID)
	if idx < 0 {
		return domain.ErrRaidNotFound
	}
	return r.raids[idx].Join(p.UserID, p.Role)
}

func (r *fakeRemote) RemoveParticipant(ctx context.Context, raidID, userID string) error {
	defer r.mu.Unlock()
	if err := r.enter(); err != nil {
		return err
	}
	idx := domain.FindRaid(r.raids, raidID)
	if idx < 0 {
		return domain.ErrRaidNotFound
	}
	return r.raids[idx].Leave(userID)
}

var _ Remote = (*fakeRemote)(nil)
