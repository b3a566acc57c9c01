// ABOUTME: In-memory store mocks shared by the auth package tests
// ABOUTME: Implement store.UserStore and store.SessionStore over maps

package auth

import (
	"context"
	"sync"
	"time"

	"github.com/clubkinawa/lab-auth/internal/store"
)

// mockUserStore is an in-memory store.UserStore.
type mockUserStore struct {
	mu    sync.Mutex
	users map[string]*store.User
}

var _ store.UserStore = (*mockUserStore)(nil)

func newMockUserStore() *mockUserStore {
	return &mockUserStore{users: make(map[string]*store.User)}
}

func (m *mockUserStore) CreateUser(_ context.Context, user *store.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == user.Username {
			return store.ErrUsernameExists
		}
	}
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

func (m *mockUserStore) GetUser(_ context.Context, id string) (*store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	cp := *u
	cp.PINHash = ""
	return &cp, nil
}

func (m *mockUserStore) GetUserByUsername(_ context.Context, username string) (*store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username && u.Status == store.UserActive {
			cp := *u
			return &cp, nil
		}
	}
	return nil, store.ErrUserNotFound
}

func (m *mockUserStore) ListUsers(_ context.Context) ([]*store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*store.User, 0, len(m.users))
	for _, u := range m.users {
		cp := *u
		cp.PINHash = ""
		out = append(out, &cp)
	}
	return out, nil
}

func (m *mockUserStore) UpdateUser(ctx context.Context, id string, upd store.UserUpdate) (*store.User, error) {
	m.mu.Lock()
	u, ok := m.users[id]
	if !ok {
		m.mu.Unlock()
		return nil, store.ErrUserNotFound
	}
	if upd.Role != nil {
		u.Role = *upd.Role
	}
	if upd.PINHash != nil {
		u.PINHash = *upd.PINHash
	}
	if upd.Status != nil {
		u.Status = *upd.Status
	}
	m.mu.Unlock()
	return m.GetUser(ctx, id)
}

func (m *mockUserStore) TouchLastLogin(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		now := time.Now()
		u.LastLoginAt = &now
	}
	return nil
}

func (m *mockUserStore) DeactivateUser(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return store.ErrUserNotFound
	}
	u.Status = store.UserDeactivated
	return nil
}

func (m *mockUserStore) CountActiveAdmins(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, u := range m.users {
		if u.Role == store.RoleAdmin && u.Status == store.UserActive {
			count++
		}
	}
	return count, nil
}

// mockSessionStore is an in-memory store.SessionStore keyed by token.
// Expiry predicates use the injected clock so tests can time travel.
type mockSessionStore struct {
	mu       sync.Mutex
	sessions map[string]*store.Session
	now      func() time.Time
}

var _ store.SessionStore = (*mockSessionStore)(nil)

func newMockSessionStore() *mockSessionStore {
	return &mockSessionStore{
		sessions: make(map[string]*store.Session),
		now:      time.Now,
	}
}

func (m *mockSessionStore) CreateSession(_ context.Context, session *store.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *session
	m.sessions[session.Token] = &cp
	return nil
}

func (m *mockSessionStore) GetSession(_ context.Context, token string) (*store.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[token]
	if !ok || !s.ExpiresAt.After(m.now()) {
		return nil, store.ErrSessionNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *mockSessionStore) DeleteSession(_ context.Context, token string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[token]; !ok {
		return false, nil
	}
	delete(m.sessions, token)
	return true, nil
}

func (m *mockSessionStore) DeleteExpiredSessions(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for token, s := range m.sessions {
		if s.ExpiresAt.Before(m.now()) {
			delete(m.sessions, token)
			count++
		}
	}
	return count, nil
}

func (m *mockSessionStore) CountActiveSessions(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, s := range m.sessions {
		if s.ExpiresAt.After(m.now()) {
			count++
		}
	}
	return count, nil
}

func (m *mockSessionStore) CountSessionsSince(_ context.Context, t time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, s := range m.sessions {
		if !s.CreatedAt.Before(t) {
			count++
		}
	}
	return count, nil
}

// activeUser inserts an active user into the mock store.
func activeUser(t interface{ Fatalf(string, ...any) }, users *mockUserStore, id, username string, role store.Role) *store.User {
	u := &store.User{
		ID:        id,
		Username:  username,
		Role:      role,
		Status:    store.UserActive,
		CreatedAt: time.Now(),
	}
	if err := users.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	return u
}
