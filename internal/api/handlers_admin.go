// ABOUTME: Admin endpoints for user management and lab stats
// ABOUTME: All mutations pass through the authorization gate first

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/clubkinawa/lab-auth/internal/auth"
	"github.com/clubkinawa/lab-auth/internal/pin"
	"github.com/clubkinawa/lab-auth/internal/store"
)

type adminCreateUserRequest struct {
	Username string `json:"username"`
	PIN      string `json:"pin"`
	Role     string `json:"role"`
}

type adminUpdateUserRequest struct {
	Role   *string `json:"role"`
	PIN    *string `json:"pin"`
	Active *bool   `json:"active"`
}

// handleAdminListUsers returns all users, any status.
func (h *Handler) handleAdminListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.ListUsers(r.Context())
	if err != nil {
		h.writeInternalError(w, "listing users", err)
		return
	}

	out := make([]userJSON, 0, len(users))
	for _, u := range users {
		out = append(out, toUserJSON(u))
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"users": out})
}

// handleAdminCreateUser creates an account with a chosen role.
func (h *Handler) handleAdminCreateUser(w http.ResponseWriter, r *http.Request) {
	var req adminCreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "request must be JSON")
		return
	}

	role := store.RoleMember
	if req.Role != "" {
		parsed, err := store.ParseRole(req.Role)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "role must be admin or member")
			return
		}
		role = parsed
	}

	user, status, msg := h.createUser(r, strings.TrimSpace(req.Username), req.PIN, role)
	if user == nil {
		h.writeError(w, status, msg)
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]any{"user": toUserJSON(user)})
}

// handleAdminUpdateUser updates a user's role, PIN, or active state.
func (h *Handler) handleAdminUpdateUser(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.MustFromContext(r.Context())
	id := r.PathValue("id")

	var req adminUpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "request must be JSON")
		return
	}

	target, err := h.users.GetUser(r.Context(), id)
	if errors.Is(err, store.ErrUserNotFound) {
		h.writeError(w, http.StatusNotFound, "user not found")
		return
	}
	if err != nil {
		h.writeInternalError(w, "looking up user", err)
		return
	}

	upd := store.UserUpdate{}

	if req.Role != nil {
		role, err := store.ParseRole(*req.Role)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "role must be admin or member")
			return
		}
		upd.Role = &role
	}

	if req.PIN != nil {
		hash, err := pin.Hash(*req.PIN)
		if errors.Is(err, pin.ErrInvalidPIN) {
			h.writeError(w, http.StatusBadRequest, "pin must be exactly 4 digits")
			return
		}
		if err != nil {
			h.writeInternalError(w, "hashing pin", err)
			return
		}
		upd.PINHash = &hash
	}

	if req.Active != nil {
		status := store.UserActive
		if !*req.Active {
			status = store.UserDeactivated
		}
		upd.Status = &status
	}

	if err := h.gate.CheckUpdate(r.Context(), authCtx.UserID, target, upd.Role, upd.Status); err != nil {
		h.writeGateError(w, "checking user update", err)
		return
	}

	updated, err := h.users.UpdateUser(r.Context(), id, upd)
	if errors.Is(err, store.ErrUserNotFound) {
		h.writeError(w, http.StatusNotFound, "user not found")
		return
	}
	if err != nil {
		h.writeInternalError(w, "updating user", err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"user": toUserJSON(updated)})
}

// handleAdminDeactivateUser soft deletes a user.
func (h *Handler) handleAdminDeactivateUser(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.MustFromContext(r.Context())
	id := r.PathValue("id")

	target, err := h.users.GetUser(r.Context(), id)
	if errors.Is(err, store.ErrUserNotFound) {
		h.writeError(w, http.StatusNotFound, "user not found")
		return
	}
	if err != nil {
		h.writeInternalError(w, "looking up user", err)
		return
	}

	if err := h.gate.CheckDeactivate(r.Context(), authCtx.UserID, target); err != nil {
		h.writeGateError(w, "checking deactivation", err)
		return
	}

	if err := h.users.DeactivateUser(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			h.writeError(w, http.StatusNotFound, "user not found")
			return
		}
		h.writeInternalError(w, "deactivating user", err)
		return
	}

	h.writeJSON(w, http.StatusOK, nil)
}

// handleAdminStats returns aggregate counts for the admin dashboard.
func (h *Handler) handleAdminStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	adminCount, err := h.stats.CountUsersByRole(ctx, store.RoleAdmin)
	if err != nil {
		h.writeInternalError(w, "counting admins", err)
		return
	}

	memberCount, err := h.stats.CountUsersByRole(ctx, store.RoleMember)
	if err != nil {
		h.writeInternalError(w, "counting members", err)
		return
	}

	activeSessions, err := h.stats.CountActiveSessions(ctx)
	if err != nil {
		h.writeInternalError(w, "counting sessions", err)
		return
	}

	midnight := time.Now().UTC().Truncate(24 * time.Hour)
	sessionsToday, err := h.stats.CountSessionsSince(ctx, midnight)
	if err != nil {
		h.writeInternalError(w, "counting sessions today", err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"stats": map[string]any{
			"admin_count":     adminCount,
			"member_count":    memberCount,
			"total_users":     adminCount + memberCount,
			"active_sessions": activeSessions,
			"sessions_today":  sessionsToday,
		},
	})
}

// writeGateError maps authorization gate errors onto HTTP statuses.
func (h *Handler) writeGateError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, auth.ErrSelfDeactivation):
		h.writeError(w, http.StatusBadRequest, "cannot deactivate your own account")
	case errors.Is(err, auth.ErrLastAdmin):
		h.writeError(w, http.StatusBadRequest, "at least one active admin must exist")
	default:
		h.writeInternalError(w, op, err)
	}
}
