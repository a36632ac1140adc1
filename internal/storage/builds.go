package storage

import (
	"context"
	"slices"

	"github.com/venom-hub/internal/domain"
)

func (f *Facade) findBuild(ctx context.Context, buildID string) (domain.Build, error) {
	build, _, err := f.lookupBuild(ctx, buildID)
	return build, err
}

// lookupBuild also reports which store served the build
func (f *Facade) lookupBuild(ctx context.Context, buildID string) (domain.Build, SourceKind, error) {
	res, err := f.GetAllBuilds(ctx)
	if err != nil {
		return domain.Build{}, "", err
	}
	idx := domain.FindBuild(res.Value, buildID)
	if idx < 0 {
		return domain.Build{}, res.Source, domain.ErrBuildNotFound
	}
	return res.Value[idx], res.Source, nil
}

func (f *Facade) findPending(ctx context.Context, pendingID string) (domain.PendingBuild, error) {
	res, err := f.GetPendingBuilds(ctx)
	if err != nil {
		return domain.PendingBuild{}, err
	}
	idx := domain.FindPendingBuild(res.Value, pendingID)
	if idx < 0 {
		return domain.PendingBuild{}, domain.ErrPendingBuildNotFound
	}
	return res.Value[idx], nil
}

// SubmitBuild queues a build for moderation
func (f *Facade) SubmitBuild(ctx context.Context, authorID string, in domain.BuildInput) (Result[domain.PendingBuild], error) {
	if err := in.Validate(); err != nil {
		return Result[domain.PendingBuild]{}, err
	}
	pending := domain.PendingBuild{
		ID:          f.newID(),
		Title:       in.Title,
		Description: in.Description,
		Image:       in.Image,
		AuthorID:    authorID,
		CreatedAt:   f.now(),
	}
	return writeThrough(ctx, f, "submit build", pending,
		func(ctx context.Context) error { return f.local.SavePendingBuild(ctx, pending) },
		func(ctx context.Context, r Remote) error { return r.SavePendingBuild(ctx, pending) },
	)
}

// CreateBuild publishes a build directly, bypassing moderation
func (f *Facade) CreateBuild(ctx context.Context, authorID string, in domain.BuildInput) (Result[domain.Build], error) {
	if err := in.Validate(); err != nil {
		return Result[domain.Build]{}, err
	}
	build := domain.Build{
		ID:          f.newID(),
		Title:       in.Title,
		Description: in.Description,
		Image:       in.Image,
		AuthorID:    authorID,
		Approved:    true,
		CreatedAt:   f.now(),
	}
	return f.saveBuild(ctx, "create build", build)
}

// UpdateBuild edits the content of an existing build
func (f *Facade) UpdateBuild(ctx context.Context, buildID string, in domain.BuildInput) (Result[domain.Build], error) {
	if err := in.Validate(); err != nil {
		return Result[domain.Build]{}, err
	}
	build, err := f.findBuild(ctx, buildID)
	if err != nil {
		return Result[domain.Build]{}, err
	}
	build.Title = in.Title
	build.Description = in.Description
	build.Image = in.Image
	return f.saveBuild(ctx, "update build", build)
}

func (f *Facade) saveBuild(ctx context.Context, op string, build domain.Build) (Result[domain.Build], error) {
	return writeThrough(ctx, f, op, build,
		func(ctx context.Context) error { return f.local.SaveBuild(ctx, build) },
		func(ctx context.Context, r Remote) error { return r.SaveBuild(ctx, build) },
	)
}

// DeleteBuild removes a published build
func (f *Facade) DeleteBuild(ctx context.Context, buildID string) (Result[struct{}], error) {
	if _, err := f.findBuild(ctx, buildID); err != nil {
		return Result[struct{}]{}, err
	}
	return writeThrough(ctx, f, "delete build", struct{}{},
		func(ctx context.Context) error { return f.local.DeleteBuild(ctx, buildID) },
		func(ctx context.Context, r Remote) error { return r.DeleteBuild(ctx, buildID) },
	)
}

// ApproveBuild promotes a pending build to the public listing. A second
// approval of the same ID fails with ErrPendingBuildNotFound.
func (f *Facade) ApproveBuild(ctx context.Context, pendingID string) (Result[domain.Build], error) {
	pending, err := f.findPending(ctx, pendingID)
	if err != nil {
		return Result[domain.Build]{}, err
	}
	build := pending.Promote()
	return writeThrough(ctx, f, "approve build", build,
		func(ctx context.Context) error { return f.local.ApproveBuild(ctx, pendingID, build) },
		func(ctx context.Context, r Remote) error { return r.ApproveBuild(ctx, pendingID, build) },
	)
}

// RejectBuild discards a pending build
func (f *Facade) RejectBuild(ctx context.Context, pendingID string) (Result[struct{}], error) {
	if _, err := f.findPending(ctx, pendingID); err != nil {
		return Result[struct{}]{}, err
	}
	return writeThrough(ctx, f, "reject build", struct{}{},
		func(ctx context.Context) error { return f.local.DeletePendingBuild(ctx, pendingID) },
		func(ctx context.Context, r Remote) error { return r.DeletePendingBuild(ctx, pendingID) },
	)
}

// likeState reads the build and whether the user likes it. The source is
// remote only when both reads came from the remote backend.
func (f *Facade) likeState(ctx context.Context, userID, buildID string) (domain.Build, bool, SourceKind, error) {
	build, src, err := f.lookupBuild(ctx, buildID)
	if err != nil {
		return domain.Build{}, false, "", err
	}
	res, err := f.GetUserLikes(ctx, userID)
	if err != nil {
		return domain.Build{}, false, "", err
	}
	if res.Source != SourceRemote {
		src = SourceLocal
	}
	return build, slices.Contains(res.Value, buildID), src, nil
}

// LikeBuild adds the build to the user's like set and bumps its counter
func (f *Facade) LikeBuild(ctx context.Context, userID, buildID string) (Result[domain.Build], error) {
	build, liked, src, err := f.likeState(ctx, userID, buildID)
	if err != nil {
		return Result[domain.Build]{}, err
	}
	if liked {
		return Result[domain.Build]{}, domain.ErrAlreadyLiked
	}
	return f.like(ctx, userID, build, src)
}

func (f *Facade) like(ctx context.Context, userID string, build domain.Build, src SourceKind) (Result[domain.Build], error) {
	build.Likes++
	return mutate(ctx, f, "like build", build, src,
		func(ctx context.Context) (domain.Build, error) { return f.local.Like(ctx, userID, build.ID) },
		func(ctx context.Context) error { return f.local.SetLike(ctx, userID, build, true) },
		func(ctx context.Context, r Remote) error { return r.Like(ctx, userID, build.ID) },
	)
}

// UnlikeBuild removes the build from the user's like set and lowers its
// counter, never below zero
func (f *Facade) UnlikeBuild(ctx context.Context, userID, buildID string) (Result[domain.Build], error) {
	build, liked, src, err := f.likeState(ctx, userID, buildID)
	if err != nil {
		return Result[domain.Build]{}, err
	}
	if !liked {
		return Result[domain.Build]{}, domain.ErrNotLiked
	}
	return f.unlike(ctx, userID, build, src)
}

func (f *Facade) unlike(ctx context.Context, userID string, build domain.Build, src SourceKind) (Result[domain.Build], error) {
	if build.Likes > 0 {
		build.Likes--
	}
	return mutate(ctx, f, "unlike build", build, src,
		func(ctx context.Context) (domain.Build, error) { return f.local.Unlike(ctx, userID, build.ID) },
		func(ctx context.Context) error { return f.local.SetLike(ctx, userID, build, false) },
		func(ctx context.Context, r Remote) error { return r.Unlike(ctx, userID, build.ID) },
	)
}

// ToggleLike likes the build, or unlikes it when the user already did.
// The boolean reports the like state after the call.
func (f *Facade) ToggleLike(ctx context.Context, userID, buildID string) (Result[domain.Build], bool, error) {
	build, liked, src, err := f.likeState(ctx, userID, buildID)
	if err != nil {
		return Result[domain.Build]{}, false, err
	}
	if liked {
		res, err := f.unlike(ctx, userID, build, src)
		return res, false, err
	}
	res, err := f.like(ctx, userID, build, src)
	return res, true, err
}

// IncrementBuildViews counts one view of the build
func (f *Facade) IncrementBuildViews(ctx context.Context, buildID string) (Result[domain.Build], error) {
	return f.addViews(ctx, buildID, 1)
}

// RecordBuildViews applies aggregated view counts. Unknown builds are
// skipped; the returned map holds the new counters of the known ones.
func (f *Facade) RecordBuildViews(ctx context.Context, counts map[string]int) (map[string]int, error) {
	out := make(map[string]int, len(counts))
	for buildID, n := range counts {
		if n <= 0 {
			continue
		}
		res, err := f.addViews(ctx, buildID, n)
		if err != nil {
			if domain.IsNotFoundError(err) {
				f.logger.Debug("skipping views of unknown build", "build_id", buildID)
				continue
			}
			return out, err
		}
		out[buildID] = res.Value.Views
	}
	return out, nil
}

// addViews raises the counter in both stores. On success the remote
// counter wins and is copied to the local store.
func (f *Facade) addViews(ctx context.Context, buildID string, delta int) (Result[domain.Build], error) {
	build, src, err := f.lookupBuild(ctx, buildID)
	if err != nil {
		return Result[domain.Build]{}, err
	}
	build.Views += delta

	var remoteViews int
	res, err := mutate(ctx, f, "increment build views", build, src,
		func(ctx context.Context) (domain.Build, error) { return f.local.AddViews(ctx, buildID, delta) },
		func(ctx context.Context) error {
			if err := f.local.SaveBuild(ctx, build); err != nil {
				return err
			}
			return f.local.SetViews(ctx, buildID, build.Views)
		},
		func(ctx context.Context, r Remote) error {
			views, err := r.IncrementViews(ctx, buildID, delta)
			remoteViews = views
			return err
		},
	)
	if err != nil || res.Fallback() {
		return res, err
	}
	res.Value.Views = remoteViews
	if err := f.local.SetViews(ctx, buildID, remoteViews); err != nil {
		f.logger.Warn("failed to copy remote view counter", "build_id", buildID, "error", err)
	}
	return res, nil
}
