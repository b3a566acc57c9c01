// ABOUTME: Session token lifecycle - issuance, validation, revocation, purge
// ABOUTME: Tokens are opaque 256-bit random values persisted in the session store

package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/clubkinawa/lab-auth/internal/store"
)

// DefaultSessionDuration is the token lifetime when none is configured.
const DefaultSessionDuration = 24 * time.Hour

// tokenBytes gives 256 bits of entropy per token.
const tokenBytes = 32

// ErrNotAuthenticated is returned by Validate for any token that does
// not resolve to an active user: unknown, expired, and
// deactivated-user tokens are deliberately indistinguishable.
var ErrNotAuthenticated = errors.New("not authenticated")

// SessionManager issues, validates, revokes, and purges session tokens.
type SessionManager struct {
	sessions store.SessionStore
	users    store.UserStore
	duration time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

// NewSessionManager creates a session manager with the given token
// lifetime. A non-positive duration falls back to DefaultSessionDuration.
func NewSessionManager(sessions store.SessionStore, users store.UserStore, duration time.Duration) *SessionManager {
	if duration <= 0 {
		duration = DefaultSessionDuration
	}
	return &SessionManager{
		sessions: sessions,
		users:    users,
		duration: duration,
		now:      time.Now,
		logger:   slog.Default().With("component", "sessions"),
	}
}

// SetClock overrides the wall clock. Used by tests to force expiry.
func (m *SessionManager) SetClock(now func() time.Time) {
	m.now = now
}

// Duration returns the configured session lifetime.
func (m *SessionManager) Duration() time.Duration {
	return m.duration
}

// Issue creates a new session for the given user and returns its token.
// Concurrent logins for the same user each get an independent session.
func (m *SessionManager) Issue(ctx context.Context, userID string) (string, error) {
	token, err := generateToken(tokenBytes)
	if err != nil {
		return "", fmt.Errorf("generating session token: %w", err)
	}

	now := m.now()
	session := &store.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		Token:     token,
		CreatedAt: now,
		ExpiresAt: now.Add(m.duration),
	}

	if err := m.sessions.CreateSession(ctx, session); err != nil {
		return "", fmt.Errorf("persisting session: %w", err)
	}

	return token, nil
}

// Validate resolves a token to its user's public fields. It returns
// ErrNotAuthenticated unless the session exists, has not expired, and
// the user is still active.
func (m *SessionManager) Validate(ctx context.Context, token string) (*store.User, error) {
	if token == "" {
		return nil, ErrNotAuthenticated
	}

	session, err := m.sessions.GetSession(ctx, token)
	if errors.Is(err, store.ErrSessionNotFound) {
		return nil, ErrNotAuthenticated
	}
	if err != nil {
		return nil, fmt.Errorf("looking up session: %w", err)
	}

	// Expiry is checked by the store predicate, but the clock may be
	// overridden in tests; re-check against the injected clock.
	if !session.ExpiresAt.After(m.now()) {
		return nil, ErrNotAuthenticated
	}

	user, err := m.users.GetUser(ctx, session.UserID)
	if errors.Is(err, store.ErrUserNotFound) {
		return nil, ErrNotAuthenticated
	}
	if err != nil {
		return nil, fmt.Errorf("looking up session user: %w", err)
	}

	if user.Status != store.UserActive {
		return nil, ErrNotAuthenticated
	}

	return user, nil
}

// Revoke deletes a session, reporting whether one was found. Revoking
// an unknown token is not an error.
func (m *SessionManager) Revoke(ctx context.Context, token string) (bool, error) {
	found, err := m.sessions.DeleteSession(ctx, token)
	if err != nil {
		return false, fmt.Errorf("revoking session: %w", err)
	}
	return found, nil
}

// PurgeExpired deletes all expired sessions and returns the count.
// Idempotent; safe to run concurrently with Validate because the store
// delete is a single predicate statement.
func (m *SessionManager) PurgeExpired(ctx context.Context) (int64, error) {
	count, err := m.sessions.DeleteExpiredSessions(ctx)
	if err != nil {
		return 0, fmt.Errorf("purging sessions: %w", err)
	}
	if count > 0 {
		m.logger.Debug("purged expired sessions", "count", count)
	}
	return count, nil
}

// generateToken generates a cryptographically secure random token
// encoded as hex.
func generateToken(bytes int) (string, error) {
	b := make([]byte, bytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
