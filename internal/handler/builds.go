package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/venom-hub/internal/domain"
	"github.com/venom-hub/internal/websocket"
)

// ListBuilds returns the approved builds
func (h *Handler) ListBuilds(w http.ResponseWriter, r *http.Request) {
	res, err := h.store.GetBuilds(r.Context())
	writeResult(h, w, http.StatusOK, "list builds", res, err)
}

// ListAllBuilds returns every build regardless of moderation state
func (h *Handler) ListAllBuilds(w http.ResponseWriter, r *http.Request) {
	res, err := h.store.GetAllBuilds(r.Context())
	writeResult(h, w, http.StatusOK, "list all builds", res, err)
}

// GetBuildViews returns the view counters
func (h *Handler) GetBuildViews(w http.ResponseWriter, r *http.Request) {
	res, err := h.store.GetBuildViews(r.Context())
	writeResult(h, w, http.StatusOK, "get build views", res, err)
}

// SubmitBuild queues a build for moderation
func (h *Handler) SubmitBuild(w http.ResponseWriter, r *http.Request) {
	var in domain.BuildInput
	if !h.decode(w, r, &in) {
		return
	}
	claims, _ := claimsFrom(r.Context())
	res, err := h.store.SubmitBuild(r.Context(), claims.UserID, in)
	if writeResult(h, w, http.StatusCreated, "submit build", res, err) {
		h.notify(websocket.TopicBuilds, "Build \""+res.Value.Title+"\" submitted for moderation")
	}
}

// CreateBuild publishes a build without moderation
func (h *Handler) CreateBuild(w http.ResponseWriter, r *http.Request) {
	var in domain.BuildInput
	if !h.decode(w, r, &in) {
		return
	}
	claims, _ := claimsFrom(r.Context())
	res, err := h.store.CreateBuild(r.Context(), claims.UserID, in)
	if writeResult(h, w, http.StatusCreated, "create build", res, err) {
		h.notify(websocket.TopicBuilds, "Build \""+res.Value.Title+"\" published")
	}
}

// UpdateBuild edits a build
func (h *Handler) UpdateBuild(w http.ResponseWriter, r *http.Request) {
	var in domain.BuildInput
	if !h.decode(w, r, &in) {
		return
	}
	res, err := h.store.UpdateBuild(r.Context(), chi.URLParam(r, "buildID"), in)
	if writeResult(h, w, http.StatusOK, "update build", res, err) {
		h.notify(websocket.TopicBuilds, "Build \""+res.Value.Title+"\" updated")
	}
}

// DeleteBuild removes a build
func (h *Handler) DeleteBuild(w http.ResponseWriter, r *http.Request) {
	res, err := h.store.DeleteBuild(r.Context(), chi.URLParam(r, "buildID"))
	if err != nil {
		h.fail(w, "delete build", err)
		return
	}
	setSource(w, res.Source, res.Cause)
	h.writeSuccess(w, map[string]string{"status": "deleted"})
	h.notify(websocket.TopicBuilds, "Build deleted")
}

// ListPending returns the moderation queue
func (h *Handler) ListPending(w http.ResponseWriter, r *http.Request) {
	res, err := h.store.GetPendingBuilds(r.Context())
	writeResult(h, w, http.StatusOK, "list pending builds", res, err)
}

// ApproveBuild promotes a pending build
func (h *Handler) ApproveBuild(w http.ResponseWriter, r *http.Request) {
	res, err := h.store.ApproveBuild(r.Context(), chi.URLParam(r, "pendingID"))
	if writeResult(h, w, http.StatusOK, "approve build", res, err) {
		h.notify(websocket.TopicBuilds, "Build \""+res.Value.Title+"\" approved")
	}
}

// RejectBuild discards a pending build
func (h *Handler) RejectBuild(w http.ResponseWriter, r *http.Request) {
	res, err := h.store.RejectBuild(r.Context(), chi.URLParam(r, "pendingID"))
	if err != nil {
		h.fail(w, "reject build", err)
		return
	}
	setSource(w, res.Source, res.Cause)
	h.writeSuccess(w, map[string]string{"status": "rejected"})
}

// LikeBuild likes a build as the caller
func (h *Handler) LikeBuild(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFrom(r.Context())
	res, err := h.store.LikeBuild(r.Context(), claims.UserID, chi.URLParam(r, "buildID"))
	writeResult(h, w, http.StatusOK, "like build", res, err)
}

// UnlikeBuild removes the caller's like
func (h *Handler) UnlikeBuild(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFrom(r.Context())
	res, err := h.store.UnlikeBuild(r.Context(), claims.UserID, chi.URLParam(r, "buildID"))
	writeResult(h, w, http.StatusOK, "unlike build", res, err)
}

type toggleLikeResponse struct {
	Build domain.Build `json:"build"`
	Liked bool         `json:"liked"`
}

// ToggleLike flips the caller's like on a build
func (h *Handler) ToggleLike(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFrom(r.Context())
	res, liked, err := h.store.ToggleLike(r.Context(), claims.UserID, chi.URLParam(r, "buildID"))
	if err != nil {
		h.fail(w, "toggle like", err)
		return
	}
	setSource(w, res.Source, res.Cause)
	h.writeSuccess(w, toggleLikeResponse{Build: res.Value, Liked: liked})
}

// IncrementViews counts one view of a build
func (h *Handler) IncrementViews(w http.ResponseWriter, r *http.Request) {
	res, err := h.store.IncrementBuildViews(r.Context(), chi.URLParam(r, "buildID"))
	writeResult(h, w, http.StatusOK, "increment views", res, err)
}
