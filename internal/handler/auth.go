package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/venom-hub/internal/auth"
	"github.com/venom-hub/internal/domain"
)

type ctxKey struct{}

// claimsFrom returns the verified token claims of the request, if any
func claimsFrom(ctx context.Context) (*auth.Claims, bool) {
	c, ok := ctx.Value(ctxKey{}).(*auth.Claims)
	return c, ok
}

// authenticate attaches the claims of a valid bearer token to the request.
// Requests without a usable token pass through anonymously.
func (h *Handler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			next.ServeHTTP(w, r)
			return
		}
		claims, err := h.tokens.Parse(raw)
		if err != nil {
			h.logger.Debug("rejecting bearer token", "error", err)
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, claims)))
	})
}

func denied(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(APIResponse{Success: false, Error: err.Error()})
}

func requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := claimsFrom(r.Context()); !ok {
			denied(w, http.StatusUnauthorized, domain.ErrUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := claimsFrom(r.Context())
		if !ok {
			denied(w, http.StatusUnauthorized, domain.ErrUnauthorized)
			return
		}
		if !claims.IsAdmin {
			denied(w, http.StatusForbidden, domain.ErrForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type signInResponse struct {
	User      domain.User `json:"user"`
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
}

// SignUp registers a user
func (h *Handler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.store.SignUp(r.Context(), req.Username, req.Password)
	if writeResult(h, w, http.StatusCreated, "sign up", res, err) {
		h.notify("", "Welcome, "+res.Value.Username+"!")
	}
}

// SignIn authenticates a user and issues a session token
func (h *Handler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if !h.decode(w, r, &req) {
		return
	}
	if req.Username == "" || req.Password == "" {
		h.writeError(w, http.StatusBadRequest, domain.ErrMissingFields)
		return
	}

	res, err := h.store.SignIn(r.Context(), req.Username, req.Password)
	if err != nil {
		h.fail(w, "sign in", err)
		return
	}
	token, expiresAt, err := h.tokens.Issue(res.Value.ID, res.Value.Username, res.Value.IsAdmin)
	if err != nil {
		h.fail(w, "sign in", err)
		return
	}
	setSource(w, res.Source, res.Cause)
	h.writeSuccess(w, signInResponse{User: res.Value, Token: token, ExpiresAt: expiresAt})
}

// SignOut ends the stored session
func (h *Handler) SignOut(w http.ResponseWriter, r *http.Request) {
	res, err := h.store.SignOut(r.Context())
	if err != nil {
		h.fail(w, "sign out", err)
		return
	}
	setSource(w, res.Source, res.Cause)
	h.writeSuccess(w, map[string]string{"status": "signed out"})
}

// Me returns the identity carried by the request token
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFrom(r.Context())
	h.writeSuccess(w, map[string]interface{}{
		"id":       claims.UserID,
		"username": claims.Username,
		"isAdmin":  claims.IsAdmin,
	})
}

// Session returns the user of the stored session, or null
func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	res, err := h.store.GetCurrentUser(r.Context())
	writeResult(h, w, http.StatusOK, "get session", res, err)
}
