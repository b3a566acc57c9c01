// ABOUTME: Login, logout, register, and whoami endpoint handlers
// ABOUTME: Rate limiting and credential checks happen in a fixed order

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clubkinawa/lab-auth/internal/auth"
	"github.com/clubkinawa/lab-auth/internal/pin"
	"github.com/clubkinawa/lab-auth/internal/store"
)

// Username rules: 3-30 characters of letters, digits, underscores, hyphens.
var usernameRegex = regexp.MustCompile(`^[A-Za-z0-9_-]{3,30}$`)

// dummyPINHash is compared against when the username is unknown, so
// login timing does not reveal whether an account exists.
const dummyPINHash = "$2a$12$R9h/cIPz0gi.URNNX3kh2OPST9/PgBkqquzi.Ss7KIUgO2t0jWMUW"

type loginRequest struct {
	Username string `json:"username"`
	PIN      string `json:"pin"`
}

type registerRequest struct {
	Username string `json:"username"`
	PIN      string `json:"pin"`
}

// handleLogin authenticates a username + PIN and issues a session token.
//
// The order of checks is load-bearing: the rate limiter is consulted
// before any credential work, and every attempt that reaches credential
// validation and fails - including a malformed PIN - is recorded
// against the caller's window.
func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	ip := clientIP(r)
	if h.limiter.IsLimited(ip) {
		h.writeError(w, http.StatusTooManyRequests, "too many login attempts, please wait a minute and try again")
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "request must be JSON")
		return
	}

	username := strings.TrimSpace(req.Username)
	if username == "" || req.PIN == "" {
		h.writeError(w, http.StatusBadRequest, "username and pin are required")
		return
	}

	if !pin.Valid(req.PIN) {
		h.limiter.RecordAttempt(ip)
		h.writeError(w, http.StatusBadRequest, "pin must be exactly 4 digits")
		return
	}

	user, err := h.users.GetUserByUsername(r.Context(), username)
	if errors.Is(err, store.ErrUserNotFound) {
		// Burn a bcrypt comparison so unknown usernames take as long
		// as wrong PINs.
		pin.Verify(req.PIN, dummyPINHash)
		h.limiter.RecordAttempt(ip)
		h.writeError(w, http.StatusUnauthorized, "invalid username or pin")
		return
	}
	if err != nil {
		h.writeInternalError(w, "looking up user", err)
		return
	}

	if !pin.Verify(req.PIN, user.PINHash) {
		h.limiter.RecordAttempt(ip)
		h.writeError(w, http.StatusUnauthorized, "invalid username or pin")
		return
	}

	if err := h.users.TouchLastLogin(r.Context(), user.ID); err != nil {
		h.logger.Warn("updating last login", "user_id", user.ID, "error", err)
	}

	token, err := h.sessions.Issue(r.Context(), user.ID)
	if err != nil {
		h.writeInternalError(w, "issuing session", err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.TokenCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.sessions.Duration() / time.Second),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})

	h.logger.Info("login successful", "username", user.Username)
	h.writeJSON(w, http.StatusOK, map[string]any{
		"token": token,
		"user":  toUserJSON(user),
	})
}

// handleLogout revokes the current session token.
func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := auth.TokenFromRequest(r)
	if _, err := h.sessions.Revoke(r.Context(), token); err != nil {
		h.writeInternalError(w, "revoking session", err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.TokenCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})

	h.writeJSON(w, http.StatusOK, nil)
}

// handleRegister creates a new member account.
func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "request must be JSON")
		return
	}

	username := strings.TrimSpace(req.Username)
	user, status, msg := h.createUser(r, username, req.PIN, store.RoleMember)
	if user == nil {
		h.writeError(w, status, msg)
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]any{"user": toUserJSON(user)})
}

// handleMe returns the authenticated user's public fields.
func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.MustFromContext(r.Context())
	h.writeJSON(w, http.StatusOK, map[string]any{
		"user": userJSON{
			ID:          authCtx.UserID,
			Username:    authCtx.Username,
			Role:        string(authCtx.Role),
			Status:      string(store.UserActive),
			CreatedAt:   authCtx.CreatedAt,
			LastLoginAt: authCtx.LastLoginAt,
		},
	})
}

// handleHealth is a liveness check, no auth required.
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok","service":"lab-auth"}`))
}

// createUser validates inputs and inserts a new account. Returns the
// user on success, otherwise a status code and error message.
func (h *Handler) createUser(r *http.Request, username, rawPIN string, role store.Role) (*store.User, int, string) {
	if username == "" || rawPIN == "" {
		return nil, http.StatusBadRequest, "username and pin are required"
	}
	if !usernameRegex.MatchString(username) {
		return nil, http.StatusBadRequest, "username must be 3-30 characters of letters, numbers, underscores, or hyphens"
	}

	hash, err := pin.Hash(rawPIN)
	if errors.Is(err, pin.ErrInvalidPIN) {
		return nil, http.StatusBadRequest, "pin must be exactly 4 digits"
	}
	if err != nil {
		h.logger.Error("hashing pin", "error", err)
		return nil, http.StatusInternalServerError, "internal error"
	}

	user := &store.User{
		ID:        uuid.NewString(),
		Username:  username,
		PINHash:   hash,
		Role:      role,
		Status:    store.UserActive,
		CreatedAt: time.Now().UTC(),
	}

	if err := h.users.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, store.ErrUsernameExists) {
			return nil, http.StatusConflict, "username is already taken"
		}
		h.logger.Error("creating user", "error", err)
		return nil, http.StatusInternalServerError, "internal error"
	}

	user.PINHash = ""
	return user, 0, ""
}
