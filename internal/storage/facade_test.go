package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/venom-hub/internal/auth"
	"github.com/venom-hub/internal/domain"
	"github.com/venom-hub/internal/recordstore"
)

// newTestFacade builds a facade over a memory store. remote may be nil.
func newTestFacade(t *testing.T, remote Remote) (*Facade, *recordstore.Store) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	hash, err := auth.HashPassword("admin123", bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	store := recordstore.New(recordstore.NewMemoryBackend(), recordstore.Options{
		Prefix:            "app",
		AdminPasswordHash: hash,
	}, logger)

	f := New(NewLocalSource(store), remote, Options{BcryptCost: bcrypt.MinCost}, logger)
	seq := 0
	f.newID = func() string {
		seq++
		return fmt.Sprintf("id-%d", seq)
	}
	f.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return f, store
}

// mustOK unwraps a result, panicking on error so calls can be nested
func mustOK[T any](res Result[T], err error) T {
	if err != nil {
		panic(fmt.Sprintf("unexpected error: %v", err))
	}
	return res.Value
}

var buildInput = domain.BuildInput{Title: "Glass cannon", Description: "all damage", Image: "cannon.png"}

var raidInput = domain.RaidInput{Title: "Night raid", Description: "bring potions", Date: "2024-05-02", Time: "21:00", MaxPlayers: 2}

func TestReadTagsSource(t *testing.T) {
	ctx := context.Background()

	t.Run("absent remote", func(t *testing.T) {
		f, _ := newTestFacade(t, nil)
		res, err := f.GetUsers(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if res.Source != SourceLocal || res.Cause != CauseUnavailable || res.RemoteErr != nil {
			t.Fatalf("got %+v, want local/unavailable", res)
		}
	})

	t.Run("healthy remote", func(t *testing.T) {
		remote := newFakeRemote()
		remote.users = []domain.User{{ID: "u1", Username: "vex"}}
		f, _ := newTestFacade(t, remote)

		res, err := f.GetUsers(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if res.Source != SourceRemote || res.Fallback() {
			t.Fatalf("got %+v, want remote", res)
		}
		if len(res.Value) != 1 || res.Value[0].Username != "vex" {
			t.Fatalf("unexpected users %+v", res.Value)
		}
	})

	t.Run("failing remote", func(t *testing.T) {
		remote := newFakeRemote()
		remote.setDown(true)
		f, _ := newTestFacade(t, remote)

		res, err := f.GetUsers(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if res.Source != SourceLocal || res.Cause != CauseTransient || !errors.Is(res.RemoteErr, errRemoteDown) {
			t.Fatalf("got %+v, want local/transient", res)
		}
		if len(res.Value) != 1 || res.Value[0].Username != domain.AdminUsername {
			t.Fatalf("local fallback should serve the bootstrap admin, got %+v", res.Value)
		}
	})
}

// scenario runs a fixed sequence of operations and returns the resulting state
func scenario(t *testing.T, f *Facade) ([]domain.Build, []domain.Raid) {
	t.Helper()
	ctx := context.Background()

	user := mustOK(f.SignUp(ctx, "vex", "pw"))
	mustOK(f.SubmitBuild(ctx, user.ID, buildInput))
	pending := mustOK(f.GetPendingBuilds(ctx))
	build := mustOK(f.ApproveBuild(ctx, pending[0].ID))
	mustOK(f.LikeBuild(ctx, user.ID, build.ID))
	mustOK(f.IncrementBuildViews(ctx, build.ID))
	raid := mustOK(f.CreateRaid(ctx, domain.AdminID, raidInput))
	mustOK(f.JoinRaid(ctx, raid.ID, user.ID, domain.RoleMedic))

	return mustOK(f.GetBuilds(ctx)), mustOK(f.GetRaids(ctx))
}

func TestFallbackMatchesLocalOnly(t *testing.T) {
	localOnly, _ := newTestFacade(t, nil)
	remote := newFakeRemote()
	remote.setDown(true)
	failing, _ := newTestFacade(t, remote)

	buildsA, raidsA := scenario(t, localOnly)
	buildsB, raidsB := scenario(t, failing)

	if fmt.Sprint(buildsA) != fmt.Sprint(buildsB) {
		t.Fatalf("builds differ:\n%v\n%v", buildsA, buildsB)
	}
	if fmt.Sprint(raidsA) != fmt.Sprint(raidsB) {
		t.Fatalf("raids differ:\n%v\n%v", raidsA, raidsB)
	}
	if len(buildsA) != 1 || buildsA[0].Likes != 1 || buildsA[0].Views != 1 {
		t.Fatalf("unexpected build state %+v", buildsA)
	}
}

func TestWritesAlwaysReachLocalStore(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	f, store := newTestFacade(t, remote)

	res, err := f.CreateBuild(ctx, "u1", buildInput)
	if err != nil {
		t.Fatal(err)
	}
	if res.Source != SourceRemote {
		t.Fatalf("write should report remote success, got %+v", res)
	}
	if len(remote.builds) != 1 {
		t.Fatalf("remote builds = %d, want 1", len(remote.builds))
	}
	local := store.Builds(ctx)
	if len(local) != 1 || local[0].ID != res.Value.ID {
		t.Fatalf("local copy missing, got %+v", local)
	}
}

func TestRemoteWriteFailureKeepsLocalWrite(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	f, store := newTestFacade(t, remote)
	remote.setDown(true)

	res, err := f.SubmitBuild(ctx, "u1", buildInput)
	if err != nil {
		t.Fatal(err)
	}
	if res.Source != SourceLocal || res.Cause != CauseTransient || res.RemoteErr == nil {
		t.Fatalf("got %+v, want local/transient", res)
	}
	if got := store.PendingBuilds(ctx); len(got) != 1 {
		t.Fatalf("local pending = %d, want 1", len(got))
	}
	if len(remote.pending) != 0 {
		t.Fatalf("remote should be untouched, got %+v", remote.pending)
	}
}

func TestModerationIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f, _ := newTestFacade(t, nil)

	p1 := mustOK(f.SubmitBuild(ctx, "u1", buildInput))
	p2 := mustOK(f.SubmitBuild(ctx, "u1", buildInput))

	build := mustOK(f.ApproveBuild(ctx, p1.ID))
	if build.ID != p1.ID || !build.Approved || build.Likes != 0 || build.Views != 0 {
		t.Fatalf("unexpected promoted build %+v", build)
	}
	if _, err := f.ApproveBuild(ctx, p1.ID); !errors.Is(err, domain.ErrPendingBuildNotFound) {
		t.Fatalf("second approve: got %v, want ErrPendingBuildNotFound", err)
	}

	mustOK(f.RejectBuild(ctx, p2.ID))
	if _, err := f.RejectBuild(ctx, p2.ID); !errors.Is(err, domain.ErrPendingBuildNotFound) {
		t.Fatalf("second reject: got %v", err)
	}

	pending := mustOK(f.GetPendingBuilds(ctx))
	builds := mustOK(f.GetBuilds(ctx))
	if len(pending) != 0 || len(builds) != 1 {
		t.Fatalf("pending=%d builds=%d, want 0 and 1", len(pending), len(builds))
	}
}

func TestRaidCapacity(t *testing.T) {
	remotes := map[string]func() Remote{
		"local only": func() Remote { return nil },
		"remote":     func() Remote { return newFakeRemote() },
	}
	for name, mk := range remotes {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			f, _ := newTestFacade(t, mk())

			raid := mustOK(f.CreateRaid(ctx, "author", raidInput))
			if len(raid.CurrentPlayers) != 1 || raid.CurrentPlayers[0].Role != domain.RoleDD {
				t.Fatalf("author should join as dd, got %+v", raid.CurrentPlayers)
			}

			raid = mustOK(f.JoinRaid(ctx, raid.ID, "second", domain.RoleMedic))
			if len(raid.CurrentPlayers) != 2 {
				t.Fatalf("players = %d, want 2", len(raid.CurrentPlayers))
			}

			if _, err := f.JoinRaid(ctx, raid.ID, "third", domain.RoleTank); !errors.Is(err, domain.ErrRaidFull) {
				t.Fatalf("third join: got %v, want ErrRaidFull", err)
			}
			if _, err := f.JoinRaid(ctx, raid.ID, "second", domain.RoleTank); !errors.Is(err, domain.ErrAlreadyInRaid) {
				t.Fatalf("rejoin: got %v, want ErrAlreadyInRaid", err)
			}

			raids := mustOK(f.GetRaids(ctx))
			if len(raids[0].CurrentPlayers) != 2 {
				t.Fatalf("failed joins must not mutate, got %+v", raids[0].CurrentPlayers)
			}
		})
	}
}

func TestJoinRaidRejectsUnknownRole(t *testing.T) {
	ctx := context.Background()
	f, _ := newTestFacade(t, nil)
	raid := mustOK(f.CreateRaid(ctx, "author", raidInput))

	if _, err := f.JoinRaid(ctx, raid.ID, "u2", domain.Role("bard")); !errors.Is(err, domain.ErrInvalidRole) {
		t.Fatalf("got %v, want ErrInvalidRole", err)
	}
}

func TestLeaveRaid(t *testing.T) {
	ctx := context.Background()
	f, _ := newTestFacade(t, newFakeRemote())
	raid := mustOK(f.CreateRaid(ctx, "author", raidInput))
	mustOK(f.JoinRaid(ctx, raid.ID, "u2", domain.RoleFlex))

	raid = mustOK(f.LeaveRaid(ctx, raid.ID, "u2"))
	if len(raid.CurrentPlayers) != 1 {
		t.Fatalf("players = %+v", raid.CurrentPlayers)
	}
	if _, err := f.LeaveRaid(ctx, raid.ID, "u2"); !errors.Is(err, domain.ErrNotInRaid) {
		t.Fatalf("got %v, want ErrNotInRaid", err)
	}
}

func TestUpdateRaidKeepsCapacityAbovePlayers(t *testing.T) {
	ctx := context.Background()
	f, _ := newTestFacade(t, nil)
	raid := mustOK(f.CreateRaid(ctx, "author", raidInput))
	mustOK(f.JoinRaid(ctx, raid.ID, "u2", domain.RoleTank))

	in := raidInput
	in.MaxPlayers = 1
	if _, err := f.UpdateRaid(ctx, raid.ID, in); !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("got %v, want ErrInvalidRequest", err)
	}

	in.MaxPlayers = 4
	in.Title = "Dawn raid"
	updated := mustOK(f.UpdateRaid(ctx, raid.ID, in))
	if updated.Title != "Dawn raid" || updated.MaxPlayers != 4 || len(updated.CurrentPlayers) != 2 {
		t.Fatalf("unexpected raid %+v", updated)
	}
}

func TestDeleteRaid(t *testing.T) {
	ctx := context.Background()
	f, _ := newTestFacade(t, nil)
	raid := mustOK(f.CreateRaid(ctx, "author", raidInput))

	mustOK(f.DeleteRaid(ctx, raid.ID))
	if _, err := f.DeleteRaid(ctx, raid.ID); !errors.Is(err, domain.ErrRaidNotFound) {
		t.Fatalf("got %v, want ErrRaidNotFound", err)
	}
}

func TestLikeRoundTrip(t *testing.T) {
	ctx := context.Background()
	f, _ := newTestFacade(t, nil)
	build := mustOK(f.CreateBuild(ctx, "author", buildInput))

	liked := mustOK(f.LikeBuild(ctx, "u1", build.ID))
	if liked.Likes != 1 {
		t.Fatalf("likes = %d, want 1", liked.Likes)
	}
	if _, err := f.LikeBuild(ctx, "u1", build.ID); !errors.Is(err, domain.ErrAlreadyLiked) {
		t.Fatalf("got %v, want ErrAlreadyLiked", err)
	}
	if ids := mustOK(f.GetUserLikes(ctx, "u1")); len(ids) != 1 || ids[0] != build.ID {
		t.Fatalf("user likes = %v", ids)
	}

	unliked := mustOK(f.UnlikeBuild(ctx, "u1", build.ID))
	if unliked.Likes != 0 {
		t.Fatalf("likes = %d, want 0", unliked.Likes)
	}
	if ids := mustOK(f.GetUserLikes(ctx, "u1")); len(ids) != 0 {
		t.Fatalf("user likes = %v, want empty", ids)
	}
	if _, err := f.UnlikeBuild(ctx, "u1", build.ID); !errors.Is(err, domain.ErrNotLiked) {
		t.Fatalf("got %v, want ErrNotLiked", err)
	}
}

func TestToggleLike(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	f, _ := newTestFacade(t, remote)
	build := mustOK(f.CreateBuild(ctx, "author", buildInput))

	res, liked, err := f.ToggleLike(ctx, "u1", build.ID)
	if err != nil || !liked || res.Value.Likes != 1 {
		t.Fatalf("first toggle: liked=%v likes=%d err=%v", liked, res.Value.Likes, err)
	}
	res, liked, err = f.ToggleLike(ctx, "u1", build.ID)
	if err != nil || liked || res.Value.Likes != 0 {
		t.Fatalf("second toggle: liked=%v likes=%d err=%v", liked, res.Value.Likes, err)
	}
	if remote.builds[0].Likes != 0 || remote.likes.Has("u1", build.ID) {
		t.Fatalf("remote out of sync: %+v %v", remote.builds[0], remote.likes)
	}
}

func TestIncrementViewsUsesRemoteCounter(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	f, store := newTestFacade(t, remote)
	build := mustOK(f.CreateBuild(ctx, "author", buildInput))
	remote.builds[0].Views = 41

	res, err := f.IncrementBuildViews(ctx, build.ID)
	if err != nil {
		t.Fatal(err)
	}
	if res.Value.Views != 42 || res.Source != SourceRemote {
		t.Fatalf("got %+v, want 42 from remote", res)
	}
	if got := store.BuildViews(ctx)[build.ID]; got != 42 {
		t.Fatalf("local views = %d, want 42", got)
	}
}

func TestRecordBuildViewsSkipsUnknownBuilds(t *testing.T) {
	ctx := context.Background()
	f, _ := newTestFacade(t, nil)
	build := mustOK(f.CreateBuild(ctx, "author", buildInput))

	got, err := f.RecordBuildViews(ctx, map[string]int{build.ID: 3, "missing": 2, "zero": 0})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[build.ID] != 3 {
		t.Fatalf("got %v", got)
	}
	views := mustOK(f.GetBuildViews(ctx))
	if views[build.ID] != 3 {
		t.Fatalf("views = %v", views)
	}
}

func TestBuildValidation(t *testing.T) {
	ctx := context.Background()
	f, _ := newTestFacade(t, nil)

	if _, err := f.SubmitBuild(ctx, "u1", domain.BuildInput{Title: "only title"}); !errors.Is(err, domain.ErrMissingFields) {
		t.Fatalf("got %v, want ErrMissingFields", err)
	}
	if _, err := f.UpdateBuild(ctx, "nope", buildInput); !errors.Is(err, domain.ErrBuildNotFound) {
		t.Fatalf("got %v, want ErrBuildNotFound", err)
	}
	if _, err := f.DeleteBuild(ctx, "nope"); !errors.Is(err, domain.ErrBuildNotFound) {
		t.Fatalf("got %v, want ErrBuildNotFound", err)
	}
}

func TestUpdateAndDeleteBuild(t *testing.T) {
	ctx := context.Background()
	f, _ := newTestFacade(t, newFakeRemote())
	build := mustOK(f.CreateBuild(ctx, "author", buildInput))

	in := buildInput
	in.Title = "Tank"
	updated := mustOK(f.UpdateBuild(ctx, build.ID, in))
	if updated.Title != "Tank" || updated.ID != build.ID {
		t.Fatalf("unexpected build %+v", updated)
	}

	mustOK(f.DeleteBuild(ctx, build.ID))
	if builds := mustOK(f.GetAllBuilds(ctx)); len(builds) != 0 {
		t.Fatalf("builds = %+v, want none", builds)
	}
}

func TestGetBuildsListsApprovedOnly(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	remote.builds = []domain.Build{{ID: "a", Approved: true}, {ID: "b"}}
	f, _ := newTestFacade(t, remote)

	if got := mustOK(f.GetBuilds(ctx)); len(got) != 1 || got[0].ID != "a" {
		t.Fatalf("got %+v", got)
	}
	if got := mustOK(f.GetAllBuilds(ctx)); len(got) != 2 {
		t.Fatalf("got %+v", got)
	}
}

func TestSignUpRejectsDuplicateWithoutMutation(t *testing.T) {
	ctx := context.Background()
	f, store := newTestFacade(t, nil)

	mustOK(f.SignUp(ctx, "vex", "pw"))
	before, _ := store.Users(ctx)

	if _, err := f.SignUp(ctx, "vex", "other"); !errors.Is(err, domain.ErrDuplicateUser) {
		t.Fatalf("got %v, want ErrDuplicateUser", err)
	}
	after, _ := store.Users(ctx)
	if len(after) != len(before) {
		t.Fatalf("users changed from %d to %d", len(before), len(after))
	}
	if _, err := f.SignUp(ctx, "admin", "x"); !errors.Is(err, domain.ErrDuplicateUser) {
		t.Fatalf("bootstrap admin name should be taken, got %v", err)
	}
}

func TestSignUpSurfacesRemoteDuplicate(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	remote.hashes["vex"] = "x"
	f, store := newTestFacade(t, remote)

	if _, err := f.SignUp(ctx, "vex", "pw"); !errors.Is(err, domain.ErrDuplicateUser) {
		t.Fatalf("got %v, want ErrDuplicateUser", err)
	}
	users, _ := store.Users(ctx)
	if domain.FindUsername(users, "vex") >= 0 {
		t.Fatal("rejected sign up must not reach the local store")
	}
}

func TestSignUpMissingFields(t *testing.T) {
	f, _ := newTestFacade(t, nil)
	if _, err := f.SignUp(context.Background(), "  ", "pw"); !errors.Is(err, domain.ErrMissingFields) {
		t.Fatalf("got %v, want ErrMissingFields", err)
	}
}

func TestBootstrapAdminCanSignInLocally(t *testing.T) {
	ctx := context.Background()
	f, _ := newTestFacade(t, nil)

	res, err := f.SignIn(ctx, "admin", "admin123")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Value.IsAdmin || res.Value.Password != "" {
		t.Fatalf("unexpected user %+v", res.Value)
	}
	if _, err := f.SignIn(ctx, "admin", "wrong"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("got %v, want ErrInvalidCredentials", err)
	}

	cur := mustOK(f.GetCurrentUser(ctx))
	if cur == nil || cur.Username != "admin" {
		t.Fatalf("current user = %+v", cur)
	}
	mustOK(f.SignOut(ctx))
	if cur := mustOK(f.GetCurrentUser(ctx)); cur != nil {
		t.Fatalf("session should be cleared, got %+v", cur)
	}
}

func TestRemoteSignUpCanSignInAfterOutage(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	f, _ := newTestFacade(t, remote)

	res, err := f.SignUp(ctx, "vex", "pw")
	if err != nil {
		t.Fatal(err)
	}
	if res.Source != SourceRemote {
		t.Fatalf("got %+v, want remote", res)
	}

	remote.setDown(true)
	in, err := f.SignIn(ctx, "vex", "pw")
	if err != nil {
		t.Fatalf("local sign in after outage: %v", err)
	}
	if in.Source != SourceLocal || in.Value.ID != res.Value.ID {
		t.Fatalf("got %+v", in)
	}
}

func TestRemoteSignInRejectsWrongPassword(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	f, _ := newTestFacade(t, remote)
	mustOK(f.SignUp(ctx, "vex", "pw"))

	if _, err := f.SignIn(ctx, "vex", "nope"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("got %v, want ErrInvalidCredentials", err)
	}
}

func TestUserAdministration(t *testing.T) {
	ctx := context.Background()
	f, _ := newTestFacade(t, nil)
	user := mustOK(f.SignUp(ctx, "vex", "pw"))

	if _, err := f.DeleteUser(ctx, domain.AdminID, domain.AdminID); !errors.Is(err, domain.ErrSelfDelete) {
		t.Fatalf("got %v, want ErrSelfDelete", err)
	}

	promoted := mustOK(f.MakeAdmin(ctx, "vex"))
	if !promoted.IsAdmin {
		t.Fatal("user should be admin")
	}
	if _, err := f.MakeAdmin(ctx, "vex"); !errors.Is(err, domain.ErrAlreadyAdmin) {
		t.Fatalf("got %v, want ErrAlreadyAdmin", err)
	}
	if _, err := f.MakeAdmin(ctx, "ghost"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("got %v, want ErrUserNotFound", err)
	}

	taken := "admin"
	if _, err := f.UpdateUser(ctx, user.ID, UserUpdate{Username: &taken}); !errors.Is(err, domain.ErrDuplicateUser) {
		t.Fatalf("got %v, want ErrDuplicateUser", err)
	}
	name := "vexx"
	renamed := mustOK(f.UpdateUser(ctx, user.ID, UserUpdate{Username: &name}))
	if renamed.Username != "vexx" {
		t.Fatalf("username = %q", renamed.Username)
	}
	if _, err := f.SignIn(ctx, "vexx", "pw"); err != nil {
		t.Fatalf("renamed user must keep password: %v", err)
	}

	mustOK(f.DeleteUser(ctx, domain.AdminID, user.ID))
	if _, err := f.DeleteUser(ctx, domain.AdminID, user.ID); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("got %v, want ErrUserNotFound", err)
	}
}

func TestSaveUsersRejectsDuplicateNames(t *testing.T) {
	f, _ := newTestFacade(t, nil)
	users := []domain.User{{ID: "a", Username: "x"}, {ID: "b", Username: "x"}}
	if _, err := f.SaveUsers(context.Background(), users); !errors.Is(err, domain.ErrDuplicateUser) {
		t.Fatalf("got %v, want ErrDuplicateUser", err)
	}
}

func TestRefreshLocalCopiesRemote(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	remote.users = []domain.User{{ID: "u1", Username: "vex"}}
	remote.builds = []domain.Build{{ID: "b1", Approved: true, Views: 7}}
	remote.raids = []domain.Raid{{ID: "r1", MaxPlayers: 5}}
	remote.views = domain.BuildViews{"b1": 7}
	f, store := newTestFacade(t, remote)

	if err := f.RefreshLocal(ctx); err != nil {
		t.Fatal(err)
	}
	users, _ := store.Users(ctx)
	if len(users) != 2 || users[0].ID != "u1" || users[1].ID != domain.AdminID {
		t.Fatalf("users = %+v, want u1 and the kept admin", users)
	}
	if builds := store.Builds(ctx); len(builds) != 1 {
		t.Fatalf("builds = %+v", builds)
	}
	if views := store.BuildViews(ctx); views["b1"] != 7 {
		t.Fatalf("views = %v", views)
	}

	remote.setDown(true)
	if err := f.RefreshLocal(ctx); err == nil {
		t.Fatal("refresh against a failing remote should fail")
	}
}

func TestRefreshLocalWithoutRemote(t *testing.T) {
	f, _ := newTestFacade(t, nil)
	if err := f.RefreshLocal(context.Background()); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("got %v, want ErrUnavailable", err)
	}
}

// slowRemote blocks until its context is done
type slowRemote struct{ *fakeRemote }

func (s slowRemote) Users(ctx context.Context) ([]domain.User, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestRemoteTimeoutFallsBack(t *testing.T) {
	f, _ := newTestFacade(t, slowRemote{newFakeRemote()})
	f.opts.RemoteTimeout = 10 * time.Millisecond

	res, err := f.GetUsers(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Source != SourceLocal || !errors.Is(res.RemoteErr, context.DeadlineExceeded) {
		t.Fatalf("got %+v, want local after timeout", res)
	}
}

func TestSeedRemoteAdmin(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	f, _ := newTestFacade(t, remote)

	if err := f.SeedRemoteAdmin(ctx); err != nil {
		t.Fatal(err)
	}
	users, err := f.GetUsers(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if users.Source != SourceRemote || len(users.Value) != 1 || users.Value[0].ID != domain.AdminID || !users.Value[0].IsAdmin {
		t.Fatalf("got %+v, want the seeded admin from the remote", users)
	}
	res, err := f.SignIn(ctx, domain.AdminUsername, "admin123")
	if err != nil || res.Source != SourceRemote || !res.Value.IsAdmin {
		t.Fatalf("remote admin sign in: %+v %v", res, err)
	}

	if err := f.SeedRemoteAdmin(ctx); err != nil {
		t.Fatalf("second seed: %v", err)
	}
	if len(remote.users) != 1 {
		t.Fatalf("remote users = %+v, want a single admin", remote.users)
	}
}

func TestSeedRemoteAdminLeavesPopulatedRemote(t *testing.T) {
	remote := newFakeRemote()
	remote.users = []domain.User{{ID: "u1", Username: "vex"}}
	f, _ := newTestFacade(t, remote)

	if err := f.SeedRemoteAdmin(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(remote.users) != 1 || remote.users[0].ID != "u1" {
		t.Fatalf("remote users = %+v", remote.users)
	}
}

func TestRefreshFromEmptyRemoteKeepsLocalAdmin(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	f, store := newTestFacade(t, remote)

	if err := f.RefreshLocal(ctx); err != nil {
		t.Fatal(err)
	}
	users, _ := store.Users(ctx)
	if len(users) != 1 || users[0].ID != domain.AdminID {
		t.Fatalf("users = %+v, want the bootstrap admin", users)
	}

	remote.setDown(true)
	if _, err := f.SignIn(ctx, domain.AdminUsername, "admin123"); err != nil {
		t.Fatalf("local admin sign in after refresh: %v", err)
	}
}

func TestSaveUsersHashesPasswords(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	f, store := newTestFacade(t, remote)

	res, err := f.SaveUsers(ctx, []domain.User{
		{ID: domain.AdminID, Username: domain.AdminUsername, IsAdmin: true},
		{ID: "u9", Username: "nyx", Password: "pw"},
	})
	if err != nil {
		t.Fatal(err)
	}
	for _, u := range res.Value {
		if u.Password != "" {
			t.Fatalf("result leaks password of %s", u.Username)
		}
	}

	stored, _ := store.Users(ctx)
	if idx := domain.FindUser(stored, "u9"); idx < 0 || stored[idx].Password == "pw" || !auth.CheckPassword(stored[idx].Password, "pw") {
		t.Fatalf("stored users = %+v", stored)
	}
	if _, err := f.SignIn(ctx, "nyx", "pw"); err != nil {
		t.Fatalf("remote sign in of replaced user: %v", err)
	}
	remote.setDown(true)
	if _, err := f.SignIn(ctx, domain.AdminUsername, "admin123"); err != nil {
		t.Fatalf("admin must keep its hash: %v", err)
	}
}
