// ABOUTME: Authentication context for tracking identity through request handlers
// ABOUTME: Provides WithAuth/FromContext for propagating auth info via context

package auth

import (
	"context"
	"time"

	"github.com/clubkinawa/lab-auth/internal/store"
)

// AuthContext holds the authenticated identity extracted from a request.
// It is populated by the Authenticator and can be retrieved from context
// in handlers. It never carries the PIN hash.
type AuthContext struct {
	UserID      string
	Username    string
	Role        store.Role
	CreatedAt   time.Time
	LastLoginAt *time.Time
}

// IsAdmin returns true if the authenticated user has the admin role.
func (a *AuthContext) IsAdmin() bool {
	return a.Role == store.RoleAdmin
}

// NewAuthContext builds an AuthContext from a user's public fields.
func NewAuthContext(user *store.User) *AuthContext {
	return &AuthContext{
		UserID:      user.ID,
		Username:    user.Username,
		Role:        user.Role,
		CreatedAt:   user.CreatedAt,
		LastLoginAt: user.LastLoginAt,
	}
}

// authContextKey is the key type for storing AuthContext in context.Context.
type authContextKey struct{}

// WithAuth returns a new context with the AuthContext attached.
func WithAuth(ctx context.Context, auth *AuthContext) context.Context {
	return context.WithValue(ctx, authContextKey{}, auth)
}

// FromContext retrieves the AuthContext from the context, returning nil if not present.
func FromContext(ctx context.Context) *AuthContext {
	val := ctx.Value(authContextKey{})
	if val == nil {
		return nil
	}
	auth, ok := val.(*AuthContext)
	if !ok {
		return nil
	}
	return auth
}

// MustFromContext retrieves the AuthContext from the context, panicking if not present.
func MustFromContext(ctx context.Context) *AuthContext {
	auth := FromContext(ctx)
	if auth == nil {
		panic("auth: AuthContext not found in context")
	}
	return auth
}
