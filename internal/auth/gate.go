// ABOUTME: Role enforcement and the last-admin safety invariant
// ABOUTME: Guards demotion, deactivation, and self-deactivation of admin accounts

package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/clubkinawa/lab-auth/internal/store"
)

// ErrForbidden is returned when an authenticated user lacks the required role.
var ErrForbidden = errors.New("forbidden")

// ErrLastAdmin is returned when a change would leave zero active admins.
var ErrLastAdmin = errors.New("at least one active admin must exist")

// ErrSelfDeactivation is returned when a user attempts to deactivate
// their own account. This rule holds regardless of admin count.
var ErrSelfDeactivation = errors.New("cannot deactivate your own account")

// Gate enforces role requirements and the last-admin invariant.
type Gate struct {
	users store.UserStore
}

// NewGate creates a Gate backed by the given user store.
func NewGate(users store.UserStore) *Gate {
	return &Gate{users: users}
}

// RequireRole fails with ErrForbidden unless the authenticated user
// holds exactly the given role.
func (g *Gate) RequireRole(authCtx *AuthContext, role store.Role) error {
	if authCtx == nil {
		return ErrNotAuthenticated
	}
	if authCtx.Role != role {
		return fmt.Errorf("%w: %s role required", ErrForbidden, role)
	}
	return nil
}

// CheckUpdate validates an administrative change to target before it is
// applied. The self-deactivation rule is checked first and applies
// unconditionally; then, if the change would demote or deactivate the
// last active admin, it fails with ErrLastAdmin.
func (g *Gate) CheckUpdate(ctx context.Context, actorID string, target *store.User, newRole *store.Role, newStatus *store.UserStatus) error {
	deactivating := newStatus != nil && *newStatus == store.UserDeactivated
	demoting := newRole != nil && *newRole != store.RoleAdmin

	if deactivating && actorID == target.ID {
		return ErrSelfDeactivation
	}

	// The invariant can only be threatened by changing an active admin.
	if target.Role != store.RoleAdmin || target.Status != store.UserActive {
		return nil
	}
	if !deactivating && !demoting {
		return nil
	}

	count, err := g.users.CountActiveAdmins(ctx)
	if err != nil {
		return fmt.Errorf("counting active admins: %w", err)
	}
	if count <= 1 {
		return ErrLastAdmin
	}

	return nil
}

// CheckDeactivate validates deactivating target, applying the same
// rules as CheckUpdate.
func (g *Gate) CheckDeactivate(ctx context.Context, actorID string, target *store.User) error {
	deactivated := store.UserDeactivated
	return g.CheckUpdate(ctx, actorID, target, nil, &deactivated)
}
