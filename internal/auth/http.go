// ABOUTME: HTTP request authentication middleware for session tokens
// ABOUTME: Extracts bearer or cookie tokens and adds the user to the request context

package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/clubkinawa/lab-auth/internal/store"
)

// TokenCookieName is the cookie carrying a session token for browser
// clients. API clients use the Authorization header instead; when both
// are present the header wins.
const TokenCookieName = "lab_auth_token"

// TokenFromRequest extracts a session token from the Authorization
// header or, failing that, the session cookie. Returns "" when neither
// carries a token.
func TokenFromRequest(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") && parts[1] != "" {
			return parts[1]
		}
		return ""
	}

	if cookie, err := r.Cookie(TokenCookieName); err == nil {
		return cookie.Value
	}
	return ""
}

// Authenticator resolves request tokens into authenticated contexts.
type Authenticator struct {
	sessions *SessionManager
	logger   *slog.Logger
}

// NewAuthenticator creates an Authenticator backed by the session manager.
func NewAuthenticator(sessions *SessionManager) *Authenticator {
	return &Authenticator{
		sessions: sessions,
		logger:   slog.Default().With("component", "auth"),
	}
}

// Authenticate extracts and validates the request's token. It returns
// ErrNotAuthenticated when the token is absent, malformed, or does not
// resolve to an active user.
func (a *Authenticator) Authenticate(r *http.Request) (*AuthContext, error) {
	token := TokenFromRequest(r)
	if token == "" {
		return nil, ErrNotAuthenticated
	}

	user, err := a.sessions.Validate(r.Context(), token)
	if err != nil {
		return nil, err
	}

	return NewAuthContext(user), nil
}

// RequireAuthenticated wraps a handler to require a valid session.
// The resolved AuthContext is attached to the request context.
func (a *Authenticator) RequireAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authCtx, err := a.Authenticate(r)
		if err != nil {
			if !errors.Is(err, ErrNotAuthenticated) {
				a.logger.Error("authentication failed", "error", err)
				writeAuthError(w, "internal error", http.StatusInternalServerError)
				return
			}
			writeAuthError(w, "invalid or expired session token", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithAuth(r.Context(), authCtx)))
	})
}

// RequireRole wraps a handler to require a valid session with the
// given role. Composes the same way as RequireAuthenticated.
func (a *Authenticator) RequireRole(role store.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return a.RequireAuthenticated(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authCtx := MustFromContext(r.Context())
			if authCtx.Role != role {
				writeAuthError(w, string(role)+" access required", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		}))
	}
}

// writeAuthError writes the standard error envelope used across the API.
func writeAuthError(w http.ResponseWriter, msg string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"success":false,"error":"` + msg + `"}`))
}
