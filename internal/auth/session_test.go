// ABOUTME: Tests for session issuance, validation, revocation, and purge
// ABOUTME: Uses in-memory stores and an injected clock to force expiry

package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/clubkinawa/lab-auth/internal/store"
)

func newTestManager(t *testing.T) (*SessionManager, *mockUserStore, *mockSessionStore) {
	t.Helper()
	users := newMockUserStore()
	sessions := newMockSessionStore()
	return NewSessionManager(sessions, users, time.Hour), users, sessions
}

func TestIssueThenValidate(t *testing.T) {
	m, users, _ := newTestManager(t)
	activeUser(t, users, "user-1", "kid1", store.RoleMember)

	token, err := m.Issue(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if len(token) != 64 {
		t.Errorf("expected 64-char hex token, got %d chars", len(token))
	}

	user, err := m.Validate(context.Background(), token)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if user.ID != "user-1" {
		t.Errorf("expected user-1, got %s", user.ID)
	}
}

func TestValidate_Expired(t *testing.T) {
	m, users, sessions := newTestManager(t)
	activeUser(t, users, "user-1", "kid1", store.RoleMember)

	token, err := m.Issue(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	// Move both clocks past the session lifetime
	future := func() time.Time { return time.Now().Add(2 * time.Hour) }
	m.SetClock(future)
	sessions.now = future

	if _, err := m.Validate(context.Background(), token); !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("Validate() error = %v, want ErrNotAuthenticated", err)
	}
}

func TestValidate_DeactivatedUser(t *testing.T) {
	m, users, _ := newTestManager(t)
	activeUser(t, users, "user-1", "kid1", store.RoleMember)

	token, err := m.Issue(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	if err := users.DeactivateUser(context.Background(), "user-1"); err != nil {
		t.Fatalf("DeactivateUser() error = %v", err)
	}

	// Session still exists, but the user is no longer active
	if _, err := m.Validate(context.Background(), token); !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("Validate() error = %v, want ErrNotAuthenticated", err)
	}
}

func TestValidate_EmptyAndUnknownToken(t *testing.T) {
	m, _, _ := newTestManager(t)

	if _, err := m.Validate(context.Background(), ""); !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("Validate(\"\") error = %v, want ErrNotAuthenticated", err)
	}
	if _, err := m.Validate(context.Background(), "deadbeef"); !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("Validate(unknown) error = %v, want ErrNotAuthenticated", err)
	}
}

func TestRevoke(t *testing.T) {
	m, users, _ := newTestManager(t)
	activeUser(t, users, "user-1", "kid1", store.RoleMember)

	token, err := m.Issue(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	found, err := m.Revoke(context.Background(), token)
	if err != nil {
		t.Fatalf("Revoke() error = %v", err)
	}
	if !found {
		t.Error("expected Revoke to report the session was found")
	}

	if _, err := m.Validate(context.Background(), token); !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("Validate() after revoke error = %v, want ErrNotAuthenticated", err)
	}

	// Revoking an unknown token is not an error
	found, err = m.Revoke(context.Background(), "no-such-token")
	if err != nil {
		t.Fatalf("Revoke(unknown) error = %v", err)
	}
	if found {
		t.Error("expected Revoke on unknown token to report not found")
	}
}

func TestPurgeExpired(t *testing.T) {
	m, users, sessions := newTestManager(t)
	activeUser(t, users, "user-1", "kid1", store.RoleMember)

	// One live session via the manager
	liveToken, err := m.Issue(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	// Two already-expired sessions inserted directly
	for _, token := range []string{"expired-1", "expired-2"} {
		err := sessions.CreateSession(context.Background(), &store.Session{
			ID:        token,
			UserID:    "user-1",
			Token:     token,
			CreatedAt: time.Now().Add(-3 * time.Hour),
			ExpiresAt: time.Now().Add(-2 * time.Hour),
		})
		if err != nil {
			t.Fatalf("CreateSession() error = %v", err)
		}
	}

	count, err := m.PurgeExpired(context.Background())
	if err != nil {
		t.Fatalf("PurgeExpired() error = %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 purged, got %d", count)
	}

	// The live session survives
	if _, err := m.Validate(context.Background(), liveToken); err != nil {
		t.Errorf("Validate() after purge error = %v", err)
	}

	// Idempotent: a second purge removes nothing
	count, err = m.PurgeExpired(context.Background())
	if err != nil {
		t.Fatalf("PurgeExpired() error = %v", err)
	}
	if count != 0 {
		t.Errorf("expected 0 purged on second call, got %d", count)
	}
}

func TestTokenUniqueness(t *testing.T) {
	seen := make(map[string]struct{}, 10000)
	for i := 0; i < 10000; i++ {
		token, err := generateToken(tokenBytes)
		if err != nil {
			t.Fatalf("generateToken() error = %v", err)
		}
		if _, dup := seen[token]; dup {
			t.Fatalf("duplicate token after %d generations", i)
		}
		seen[token] = struct{}{}
	}
}
