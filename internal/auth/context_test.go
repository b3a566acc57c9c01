// ABOUTME: Tests for AuthContext propagation through context.Context
// ABOUTME: Covers WithAuth, FromContext, and MustFromContext panic behavior

package auth

import (
	"context"
	"testing"

	"github.com/clubkinawa/lab-auth/internal/store"
)

func TestWithAuthRoundTrip(t *testing.T) {
	authCtx := &AuthContext{UserID: "user-1", Username: "kid1", Role: store.RoleMember}
	ctx := WithAuth(context.Background(), authCtx)

	got := FromContext(ctx)
	if got == nil {
		t.Fatal("expected auth context, got nil")
	}
	if got.UserID != "user-1" || got.Username != "kid1" {
		t.Errorf("unexpected auth context: %+v", got)
	}
}

func TestFromContext_Missing(t *testing.T) {
	if got := FromContext(context.Background()); got != nil {
		t.Errorf("expected nil from empty context, got %+v", got)
	}
}

func TestMustFromContext_Panics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic from MustFromContext on empty context")
		}
	}()
	MustFromContext(context.Background())
}

func TestIsAdmin(t *testing.T) {
	admin := &AuthContext{Role: store.RoleAdmin}
	member := &AuthContext{Role: store.RoleMember}
	if !admin.IsAdmin() {
		t.Error("expected admin role to report IsAdmin")
	}
	if member.IsAdmin() {
		t.Error("expected member role to not report IsAdmin")
	}
}
