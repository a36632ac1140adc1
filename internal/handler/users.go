package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/venom-hub/internal/domain"
	"github.com/venom-hub/internal/storage"
	"github.com/venom-hub/internal/websocket"
)

// ListUsers returns every user
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	res, err := h.store.GetUsers(r.Context())
	writeResult(h, w, http.StatusOK, "list users", res, err)
}

// ReplaceUsers replaces the whole user collection
func (h *Handler) ReplaceUsers(w http.ResponseWriter, r *http.Request) {
	var users []domain.User
	if !h.decode(w, r, &users) {
		return
	}
	for _, u := range users {
		if u.ID == "" || u.Username == "" {
			h.writeError(w, http.StatusBadRequest, domain.ErrMissingFields)
			return
		}
	}
	res, err := h.store.SaveUsers(r.Context(), users)
	if writeResult(h, w, http.StatusOK, "replace users", res, err) {
		h.notify(websocket.TopicUsers, "User list updated")
	}
}

// UpdateUser edits a user's username or admin flag
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var upd storage.UserUpdate
	if !h.decode(w, r, &upd) {
		return
	}
	res, err := h.store.UpdateUser(r.Context(), chi.URLParam(r, "userID"), upd)
	if writeResult(h, w, http.StatusOK, "update user", res, err) {
		h.notify(websocket.TopicUsers, "User "+res.Value.Username+" updated")
	}
}

// DeleteUser removes a user. Admins cannot delete themselves.
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFrom(r.Context())
	res, err := h.store.DeleteUser(r.Context(), claims.UserID, chi.URLParam(r, "userID"))
	if err != nil {
		h.fail(w, "delete user", err)
		return
	}
	setSource(w, res.Source, res.Cause)
	h.writeSuccess(w, map[string]string{"status": "deleted"})
	h.notify(websocket.TopicUsers, "User deleted")
}

// MakeAdmin grants admin rights by username
func (h *Handler) MakeAdmin(w http.ResponseWriter, r *http.Request) {
	res, err := h.store.MakeAdmin(r.Context(), chi.URLParam(r, "username"))
	if writeResult(h, w, http.StatusOK, "make admin", res, err) {
		h.notify(websocket.TopicUsers, res.Value.Username+" is now an admin")
	}
}

// GetUserLikes returns the IDs of the builds a user liked
func (h *Handler) GetUserLikes(w http.ResponseWriter, r *http.Request) {
	res, err := h.store.GetUserLikes(r.Context(), chi.URLParam(r, "userID"))
	writeResult(h, w, http.StatusOK, "get user likes", res, err)
}
