// ABOUTME: Tests for the SQLite store against a real temp database
// ABOUTME: Covers user CRUD, hash visibility, and session expiry predicates

package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	st, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func insertUser(t *testing.T, st *SQLiteStore, username string, role Role) *User {
	t.Helper()
	u := &User{
		ID:        uuid.NewString(),
		Username:  username,
		PINHash:   "$2a$12$fakefakefakefakefakefakefakefakefakefakefakefakefakef",
		Role:      role,
		Status:    UserActive,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, st.CreateUser(context.Background(), u))
	return u
}

func insertSession(t *testing.T, st *SQLiteStore, userID, token string, expiresAt time.Time) *Session {
	t.Helper()
	s := &Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		Token:     token,
		CreatedAt: time.Now().UTC(),
		ExpiresAt: expiresAt,
	}
	require.NoError(t, st.CreateSession(context.Background(), s))
	return s
}

func TestCreateAndGetUser(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	created := insertUser(t, st, "kid1", RoleMember)

	got, err := st.GetUser(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "kid1", got.Username)
	assert.Equal(t, RoleMember, got.Role)
	assert.Equal(t, UserActive, got.Status)
	assert.Empty(t, got.PINHash, "GetUser must not expose the hash")
	assert.Nil(t, got.LastLoginAt)
}

func TestCreateUser_DuplicateUsername(t *testing.T) {
	st := newTestStore(t)

	insertUser(t, st, "kid1", RoleMember)

	dup := &User{
		ID:        uuid.NewString(),
		Username:  "kid1",
		PINHash:   "hash",
		Role:      RoleMember,
		Status:    UserActive,
		CreatedAt: time.Now().UTC(),
	}
	err := st.CreateUser(context.Background(), dup)
	assert.ErrorIs(t, err, ErrUsernameExists)
}

func TestGetUser_NotFound(t *testing.T) {
	st := newTestStore(t)
	_, err := st.GetUser(context.Background(), "no-such-id")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestGetUserByUsername(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	created := insertUser(t, st, "kid1", RoleMember)

	got, err := st.GetUserByUsername(ctx, "kid1")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.NotEmpty(t, got.PINHash, "the credential lookup includes the hash")

	// Deactivated users are invisible to the credential lookup
	require.NoError(t, st.DeactivateUser(ctx, created.ID))
	_, err = st.GetUserByUsername(ctx, "kid1")
	assert.ErrorIs(t, err, ErrUserNotFound)

	// But still visible by ID
	byID, err := st.GetUser(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, UserDeactivated, byID.Status)
}

func TestListUsers(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	insertUser(t, st, "kid1", RoleMember)
	insertUser(t, st, "kid2", RoleMember)
	admin := insertUser(t, st, "boss", RoleAdmin)
	require.NoError(t, st.DeactivateUser(ctx, admin.ID))

	users, err := st.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 3, "listing includes deactivated users")
	for _, u := range users {
		assert.Empty(t, u.PINHash)
	}
}

func TestUpdateUser(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	created := insertUser(t, st, "kid1", RoleMember)

	admin := RoleAdmin
	newHash := "$2a$12$replacementreplacementreplacementreplacementreplacem"
	updated, err := st.UpdateUser(ctx, created.ID, UserUpdate{Role: &admin, PINHash: &newHash})
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, updated.Role)
	assert.Empty(t, updated.PINHash, "updated user is returned without the hash")

	// The new hash is live for credential lookups
	byName, err := st.GetUserByUsername(ctx, "kid1")
	require.NoError(t, err)
	assert.Equal(t, newHash, byName.PINHash)

	// Empty update is a no-op, not an error
	same, err := st.UpdateUser(ctx, created.ID, UserUpdate{})
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, same.Role)

	_, err = st.UpdateUser(ctx, "no-such-id", UserUpdate{Role: &admin})
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestTouchLastLogin(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	created := insertUser(t, st, "kid1", RoleMember)
	require.NoError(t, st.TouchLastLogin(ctx, created.ID))

	got, err := st.GetUser(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastLoginAt)
	assert.WithinDuration(t, time.Now(), *got.LastLoginAt, 5*time.Second)
}

func TestDeactivateUser_NotFound(t *testing.T) {
	st := newTestStore(t)
	err := st.DeactivateUser(context.Background(), "no-such-id")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestCountActiveAdmins(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	count, err := st.CountActiveAdmins(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	boss := insertUser(t, st, "boss", RoleAdmin)
	insertUser(t, st, "deputy", RoleAdmin)
	insertUser(t, st, "kid1", RoleMember)

	count, err = st.CountActiveAdmins(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	// A deactivated admin no longer counts
	require.NoError(t, st.DeactivateUser(ctx, boss.ID))
	count, err = st.CountActiveAdmins(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSessionLifecycle(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	user := insertUser(t, st, "kid1", RoleMember)
	insertSession(t, st, user.ID, "token-live", time.Now().Add(time.Hour))

	got, err := st.GetSession(ctx, "token-live")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.UserID)

	found, err := st.DeleteSession(ctx, "token-live")
	require.NoError(t, err)
	assert.True(t, found)

	_, err = st.GetSession(ctx, "token-live")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	found, err = st.DeleteSession(ctx, "token-live")
	require.NoError(t, err)
	assert.False(t, found, "deleting twice reports not found")
}

func TestGetSession_Expired(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	user := insertUser(t, st, "kid1", RoleMember)
	insertSession(t, st, user.ID, "token-old", time.Now().Add(-time.Hour))

	_, err := st.GetSession(ctx, "token-old")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestDeleteExpiredSessions(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	user := insertUser(t, st, "kid1", RoleMember)
	insertSession(t, st, user.ID, "token-live", time.Now().Add(time.Hour))
	insertSession(t, st, user.ID, "token-old-1", time.Now().Add(-time.Hour))
	insertSession(t, st, user.ID, "token-old-2", time.Now().Add(-2*time.Hour))

	count, err := st.DeleteExpiredSessions(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	_, err = st.GetSession(ctx, "token-live")
	assert.NoError(t, err)

	count, err = st.DeleteExpiredSessions(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 0, count)
}

func TestSessionCounts(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	user := insertUser(t, st, "kid1", RoleMember)
	insertSession(t, st, user.ID, "token-1", time.Now().Add(time.Hour))
	insertSession(t, st, user.ID, "token-2", time.Now().Add(time.Hour))
	insertSession(t, st, user.ID, "token-old", time.Now().Add(-time.Hour))

	active, err := st.CountActiveSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, active)

	since, err := st.CountSessionsSince(ctx, time.Now().Add(-time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 3, since)

	since, err = st.CountSessionsSince(ctx, time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 0, since)
}

func TestParseRole(t *testing.T) {
	role, err := ParseRole("admin")
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, role)

	role, err = ParseRole("member")
	require.NoError(t, err)
	assert.Equal(t, RoleMember, role)

	_, err = ParseRole("superuser")
	assert.Error(t, err)
	_, err = ParseRole("")
	assert.Error(t, err)
}

func TestParseUserStatus(t *testing.T) {
	status, err := ParseUserStatus("active")
	require.NoError(t, err)
	assert.Equal(t, UserActive, status)

	_, err = ParseUserStatus("banned")
	assert.Error(t, err)
}
