// Package handler exposes the storage facade over JSON HTTP.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/venom-hub/internal/auth"
	"github.com/venom-hub/internal/domain"
	"github.com/venom-hub/internal/storage"
	"github.com/venom-hub/internal/websocket"
)

// Response headers describing which store served a call
const (
	HeaderDataSource    = "X-Data-Source"
	HeaderFallbackCause = "X-Fallback-Cause"
)

// Handler provides HTTP handlers for the hub API
type Handler struct {
	store  *storage.Facade
	tokens *auth.Tokens
	hub    *websocket.Hub
	logger *slog.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(store *storage.Facade, tokens *auth.Tokens, hub *websocket.Hub, logger *slog.Logger) *Handler {
	return &Handler{
		store:  store,
		tokens: tokens,
		hub:    hub,
		logger: logger,
	}
}

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Router creates and configures the HTTP router
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(corsMiddleware)
	r.Use(h.authenticate)

	r.Get("/health", h.HealthCheck)
	r.Get("/ready", h.ReadyCheck)
	r.Get("/ws", h.HandleWebSocket)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/ws/stats", h.GetWebSocketStats)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup", h.SignUp)
			r.Post("/signin", h.SignIn)
			r.Get("/session", h.Session)
			r.With(requireUser).Post("/signout", h.SignOut)
			r.With(requireUser).Get("/me", h.Me)
		})

		r.Route("/users", func(r chi.Router) {
			r.With(requireUser).Get("/{userID}/likes", h.GetUserLikes)

			r.Group(func(r chi.Router) {
				r.Use(requireAdmin)
				r.Get("/", h.ListUsers)
				r.Put("/", h.ReplaceUsers)
				r.Put("/{userID}", h.UpdateUser)
				r.Delete("/{userID}", h.DeleteUser)
				r.Post("/{username}/admin", h.MakeAdmin)
			})
		})

		r.Route("/builds", func(r chi.Router) {
			r.Get("/", h.ListBuilds)
			r.Get("/views", h.GetBuildViews)
			r.Post("/{buildID}/views", h.IncrementViews)

			r.Group(func(r chi.Router) {
				r.Use(requireUser)
				r.Post("/", h.SubmitBuild)
				r.Post("/{buildID}/like", h.LikeBuild)
				r.Delete("/{buildID}/like", h.UnlikeBuild)
				r.Post("/{buildID}/toggle-like", h.ToggleLike)
			})

			r.Group(func(r chi.Router) {
				r.Use(requireAdmin)
				r.Put("/{buildID}", h.UpdateBuild)
				r.Delete("/{buildID}", h.DeleteBuild)
			})
		})

		r.Route("/admin/builds", func(r chi.Router) {
			r.Use(requireAdmin)
			r.Get("/", h.ListAllBuilds)
			r.Post("/", h.CreateBuild)
		})

		r.Route("/pending", func(r chi.Router) {
			r.Use(requireAdmin)
			r.Get("/", h.ListPending)
			r.Post("/{pendingID}/approve", h.ApproveBuild)
			r.Post("/{pendingID}/reject", h.RejectBuild)
		})

		r.Route("/raids", func(r chi.Router) {
			r.Get("/", h.ListRaids)

			r.Group(func(r chi.Router) {
				r.Use(requireUser)
				r.Post("/", h.CreateRaid)
				r.Post("/{raidID}/join", h.JoinRaid)
				r.Post("/{raidID}/leave", h.LeaveRaid)
			})

			r.Group(func(r chi.Router) {
				r.Use(requireAdmin)
				r.Put("/{raidID}", h.UpdateRaid)
				r.Delete("/{raidID}", h.DeleteRaid)
			})
		})
	})

	return r
}

// corsMiddleware adds CORS headers
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, X-Request-ID")
		w.Header().Set("Access-Control-Expose-Headers", HeaderDataSource+", "+HeaderFallbackCause)

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Warn("failed to encode response", "error", err)
	}
}

// writeSuccess writes a successful JSON response
func (h *Handler) writeSuccess(w http.ResponseWriter, data interface{}) {
	h.writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    data,
	})
}

// writeError writes an error JSON response
func (h *Handler) writeError(w http.ResponseWriter, status int, err error) {
	h.writeJSON(w, status, APIResponse{
		Success: false,
		Error:   err.Error(),
	})
}

// statusFor maps a facade error onto an HTTP status
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrDuplicateUser):
		return http.StatusConflict
	case domain.IsNotFoundError(err):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidCredentials), errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case domain.IsValidation(err), errors.Is(err, domain.ErrInvalidRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err with its mapped status. Unexpected errors are logged and
// hidden behind ErrInternalError.
func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", "op", op, "error", err)
		err = domain.ErrInternalError
	}
	h.writeError(w, status, err)
}

// writeResult writes the value of a facade call with its source headers.
// It reports whether the call succeeded.
func writeResult[T any](h *Handler, w http.ResponseWriter, status int, op string, res storage.Result[T], err error) bool {
	if err != nil {
		h.fail(w, op, err)
		return false
	}
	setSource(w, res.Source, res.Cause)
	h.writeJSON(w, status, APIResponse{Success: true, Data: res.Value})
	return true
}

func setSource(w http.ResponseWriter, source storage.SourceKind, cause storage.Cause) {
	w.Header().Set(HeaderDataSource, string(source))
	if cause != storage.CauseNone {
		w.Header().Set(HeaderFallbackCause, string(cause))
	}
}

// decode reads a JSON body into v
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return false
	}
	return true
}

// notify pushes a success notification to the topic's subscribers
func (h *Handler) notify(topic, message string) {
	h.hub.Notify(topic, domain.NewNotification(message, domain.NotificationSuccess))
}

// HandleWebSocket handles WebSocket upgrade requests
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.ServeWs(h.hub, h.logger, w, r)
}

// GetWebSocketStats returns WebSocket connection statistics
func (h *Handler) GetWebSocketStats(w http.ResponseWriter, r *http.Request) {
	h.writeSuccess(w, map[string]interface{}{
		"total_connections": h.hub.GetTotalConnections(),
		"subscribers": map[string]int{
			websocket.TopicBuilds: h.hub.GetSubscriberCount(websocket.TopicBuilds),
			websocket.TopicRaids:  h.hub.GetSubscriberCount(websocket.TopicRaids),
			websocket.TopicUsers:  h.hub.GetSubscriberCount(websocket.TopicUsers),
		},
	})
}

// HealthCheck returns service health status
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	h.writeSuccess(w, map[string]string{"status": "healthy"})
}

// ReadyCheck returns service readiness and whether a remote store is in use
func (h *Handler) ReadyCheck(w http.ResponseWriter, r *http.Request) {
	h.writeSuccess(w, map[string]interface{}{
		"status": "ready",
		"remote": h.store.RemoteAvailable(),
	})
}
