// ABOUTME: Store interfaces and data types for lab-auth persistence
// ABOUTME: Defines User, Session structs and the UserStore/SessionStore interfaces

package store

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrUserNotFound is returned when a requested user does not exist.
var ErrUserNotFound = errors.New("user not found")

// ErrUsernameExists is returned when creating a user with a taken username.
var ErrUsernameExists = errors.New("username already exists")

// ErrSessionNotFound is returned when a session doesn't exist or is expired.
var ErrSessionNotFound = errors.New("session not found")

// Role is a closed user role enumeration. Unknown role strings never
// pass ParseRole, so they cannot silently satisfy authorization checks.
type Role string

const (
	// RoleAdmin can manage users and view lab-wide stats.
	RoleAdmin Role = "admin"

	// RoleMember is a regular lab member account.
	RoleMember Role = "member"
)

// ParseRole converts a string into a Role, rejecting unknown values.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAdmin:
		return RoleAdmin, nil
	case RoleMember:
		return RoleMember, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// UserStatus is the two-state user lifecycle. Users are never hard
// deleted; deactivation is the terminal state.
type UserStatus string

const (
	UserActive      UserStatus = "active"
	UserDeactivated UserStatus = "deactivated"
)

// ParseUserStatus converts a string into a UserStatus, rejecting unknown values.
func ParseUserStatus(s string) (UserStatus, error) {
	switch UserStatus(s) {
	case UserActive:
		return UserActive, nil
	case UserDeactivated:
		return UserDeactivated, nil
	default:
		return "", fmt.Errorf("unknown user status %q", s)
	}
}

// User represents a lab member account authenticated by a 4-digit PIN.
// PINHash is populated only by GetUserByUsername, the single read used
// for credential verification; every other read leaves it empty.
type User struct {
	ID          string
	Username    string
	PINHash     string
	Role        Role
	Status      UserStatus
	CreatedAt   time.Time
	LastLoginAt *time.Time
}

// Session represents an issued session token. A session references an
// existing user and carries a fixed expiry set at issuance.
type Session struct {
	ID        string
	UserID    string
	Token     string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// UserUpdate describes an administrative update to a user. Nil fields
// are left unchanged.
type UserUpdate struct {
	Role    *Role
	PINHash *string
	Status  *UserStatus
}

// UserStore defines the persistence boundary for user accounts.
type UserStore interface {
	// CreateUser inserts a new user. Returns ErrUsernameExists on a
	// unique-username violation.
	CreateUser(ctx context.Context, user *User) error

	// GetUser retrieves a user of any status by ID. The PIN hash is
	// not included.
	GetUser(ctx context.Context, id string) (*User, error)

	// GetUserByUsername retrieves an active user including the PIN
	// hash. This is the only read that surfaces the hash; it exists
	// solely for credential verification.
	GetUserByUsername(ctx context.Context, username string) (*User, error)

	// ListUsers returns all users of any status, newest first,
	// without PIN hashes.
	ListUsers(ctx context.Context) ([]*User, error)

	// UpdateUser applies the non-nil fields of upd and returns the
	// updated user. Returns ErrUserNotFound if no row matched.
	UpdateUser(ctx context.Context, id string, upd UserUpdate) (*User, error)

	// TouchLastLogin sets last_login to the current time.
	TouchLastLogin(ctx context.Context, id string) error

	// DeactivateUser marks a user deactivated. Returns ErrUserNotFound
	// if no row matched.
	DeactivateUser(ctx context.Context, id string) error

	// CountActiveAdmins counts users with role admin and status active.
	CountActiveAdmins(ctx context.Context) (int, error)
}

// SessionStore defines the persistence boundary for sessions.
type SessionStore interface {
	// CreateSession inserts a new session. Token uniqueness is
	// enforced by the store.
	CreateSession(ctx context.Context, session *Session) error

	// GetSession retrieves a session by token only if it has not
	// expired. Returns ErrSessionNotFound otherwise.
	GetSession(ctx context.Context, token string) (*Session, error)

	// DeleteSession deletes a session by token, reporting whether one
	// was found.
	DeleteSession(ctx context.Context, token string) (bool, error)

	// DeleteExpiredSessions removes every expired session in a single
	// predicate delete and returns the number removed. Safe to call
	// repeatedly and concurrently with GetSession.
	DeleteExpiredSessions(ctx context.Context) (int64, error)

	// CountActiveSessions counts sessions that have not yet expired.
	CountActiveSessions(ctx context.Context) (int, error)

	// CountSessionsSince counts sessions created at or after t.
	CountSessionsSince(ctx context.Context, t time.Time) (int, error)
}
