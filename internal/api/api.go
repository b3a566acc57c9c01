// ABOUTME: HTTP API handler wiring and shared response helpers
// ABOUTME: Routes auth and admin endpoints with guard middleware

package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/clubkinawa/lab-auth/internal/auth"
	"github.com/clubkinawa/lab-auth/internal/store"
)

// StatsStore provides the aggregate counts shown on the admin dashboard.
type StatsStore interface {
	CountUsersByRole(ctx context.Context, role store.Role) (int, error)
	CountActiveSessions(ctx context.Context) (int, error)
	CountSessionsSince(ctx context.Context, t time.Time) (int, error)
}

// Handler serves the authentication and admin API.
type Handler struct {
	users    store.UserStore
	stats    StatsStore
	sessions *auth.SessionManager
	limiter  auth.RateLimiter
	authn    *auth.Authenticator
	gate     *auth.Gate
	logger   *slog.Logger
}

// New creates the API handler.
func New(users store.UserStore, stats StatsStore, sessions *auth.SessionManager, limiter auth.RateLimiter) *Handler {
	return &Handler{
		users:    users,
		stats:    stats,
		sessions: sessions,
		limiter:  limiter,
		authn:    auth.NewAuthenticator(sessions),
		gate:     auth.NewGate(users),
		logger:   slog.Default().With("component", "api"),
	}
}

// Authenticator exposes the guard primitives for downstream routers
// (project CRUD, admin panels) that mount alongside this API.
func (h *Handler) Authenticator() *auth.Authenticator {
	return h.authn
}

// RegisterRoutes registers all API routes on the given mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	requireAuth := h.authn.RequireAuthenticated
	requireAdmin := h.authn.RequireRole(store.RoleAdmin)

	// Public routes
	mux.HandleFunc("POST /api/auth/login", h.handleLogin)
	mux.HandleFunc("POST /api/auth/register", h.handleRegister)
	mux.HandleFunc("GET /api/auth/health", h.handleHealth)

	// Authenticated routes
	mux.Handle("POST /api/auth/logout", requireAuth(http.HandlerFunc(h.handleLogout)))
	mux.Handle("GET /api/auth/me", requireAuth(http.HandlerFunc(h.handleMe)))

	// Admin routes
	mux.Handle("GET /api/admin/users", requireAdmin(http.HandlerFunc(h.handleAdminListUsers)))
	mux.Handle("POST /api/admin/users", requireAdmin(http.HandlerFunc(h.handleAdminCreateUser)))
	mux.Handle("PATCH /api/admin/users/{id}", requireAdmin(http.HandlerFunc(h.handleAdminUpdateUser)))
	mux.Handle("POST /api/admin/users/{id}/deactivate", requireAdmin(http.HandlerFunc(h.handleAdminDeactivateUser)))
	mux.Handle("GET /api/admin/stats", requireAdmin(http.HandlerFunc(h.handleAdminStats)))

	h.logger.Info("api routes registered")
}

// userJSON is the outward representation of a user. It has no field
// for the PIN hash, so the hash cannot leak through serialization.
type userJSON struct {
	ID          string     `json:"id"`
	Username    string     `json:"username"`
	Role        string     `json:"role"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	LastLoginAt *time.Time `json:"last_login,omitempty"`
}

func toUserJSON(u *store.User) userJSON {
	return userJSON{
		ID:          u.ID,
		Username:    u.Username,
		Role:        string(u.Role),
		Status:      string(u.Status),
		CreatedAt:   u.CreatedAt,
		LastLoginAt: u.LastLoginAt,
	}
}

// writeJSON writes a success payload with the standard envelope.
func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload map[string]any) {
	body := map[string]any{"success": true}
	for k, v := range payload {
		body[k] = v
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("encoding response", "error", err)
	}
}

// writeError writes an error with the standard envelope.
func (h *Handler) writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"error":   msg,
	}); err != nil {
		h.logger.Error("encoding error response", "error", err)
	}
}

// writeInternalError logs the real error and returns an opaque 500.
func (h *Handler) writeInternalError(w http.ResponseWriter, op string, err error) {
	h.logger.Error(op, "error", err)
	h.writeError(w, http.StatusInternalServerError, "internal error")
}

// clientIP returns the client address used as the rate-limit key.
// X-Forwarded-For is checked first to handle reverse proxies.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	if real := r.Header.Get("X-Real-IP"); real != "" {
		return real
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
