package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/venom-hub/internal/domain"
	"github.com/venom-hub/internal/websocket"
)

// ListRaids returns every raid
func (h *Handler) ListRaids(w http.ResponseWriter, r *http.Request) {
	res, err := h.store.GetRaids(r.Context())
	writeResult(h, w, http.StatusOK, "list raids", res, err)
}

// CreateRaid schedules a raid organized by the caller
func (h *Handler) CreateRaid(w http.ResponseWriter, r *http.Request) {
	var in domain.RaidInput
	if !h.decode(w, r, &in) {
		return
	}
	claims, _ := claimsFrom(r.Context())
	res, err := h.store.CreateRaid(r.Context(), claims.UserID, in)
	if writeResult(h, w, http.StatusCreated, "create raid", res, err) {
		h.notify(websocket.TopicRaids, "Raid \""+res.Value.Title+"\" scheduled")
	}
}

// UpdateRaid edits a raid
func (h *Handler) UpdateRaid(w http.ResponseWriter, r *http.Request) {
	var in domain.RaidInput
	if !h.decode(w, r, &in) {
		return
	}
	res, err := h.store.UpdateRaid(r.Context(), chi.URLParam(r, "raidID"), in)
	if writeResult(h, w, http.StatusOK, "update raid", res, err) {
		h.notify(websocket.TopicRaids, "Raid \""+res.Value.Title+"\" updated")
	}
}

// DeleteRaid cancels a raid
func (h *Handler) DeleteRaid(w http.ResponseWriter, r *http.Request) {
	res, err := h.store.DeleteRaid(r.Context(), chi.URLParam(r, "raidID"))
	if err != nil {
		h.fail(w, "delete raid", err)
		return
	}
	setSource(w, res.Source, res.Cause)
	h.writeSuccess(w, map[string]string{"status": "deleted"})
	h.notify(websocket.TopicRaids, "Raid cancelled")
}

type joinRequest struct {
	Role domain.Role `json:"role"`
}

// JoinRaid signs the caller up with a role
func (h *Handler) JoinRaid(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if !h.decode(w, r, &req) {
		return
	}
	claims, _ := claimsFrom(r.Context())
	res, err := h.store.JoinRaid(r.Context(), chi.URLParam(r, "raidID"), claims.UserID, req.Role)
	if writeResult(h, w, http.StatusOK, "join raid", res, err) {
		h.notify(websocket.TopicRaids, claims.Username+" joined \""+res.Value.Title+"\" as "+string(req.Role))
	}
}

// LeaveRaid removes the caller from a raid
func (h *Handler) LeaveRaid(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFrom(r.Context())
	res, err := h.store.LeaveRaid(r.Context(), chi.URLParam(r, "raidID"), claims.UserID)
	if writeResult(h, w, http.StatusOK, "leave raid", res, err) {
		h.notify(websocket.TopicRaids, claims.Username+" left \""+res.Value.Title+"\"")
	}
}
