// Package auth provides session-based authentication and authorization
// for lab-auth.
//
// # Session Tokens
//
// Users authenticate once with username + 4-digit PIN and receive an
// opaque session token: 32 bytes from crypto/rand, hex encoded, with a
// fixed lifetime (24h by default). Tokens are persisted server-side,
// so revocation takes effect immediately:
//
//	token, err := sessions.Issue(ctx, userID)
//	user, err := sessions.Validate(ctx, token)
//	found, err := sessions.Revoke(ctx, token)
//
// Validate collapses every failure mode - unknown token, expired
// session, deactivated user - into ErrNotAuthenticated so callers
// cannot distinguish them.
//
// # Rate Limiting
//
// Login attempts are rate limited per source address with a sliding
// window (5 attempts / 60s by default). The limiter is process-local,
// in-memory state behind the RateLimiter interface; running multiple
// instances requires externalizing it.
//
// # Authorization
//
// Gate enforces role requirements and the last-admin invariant: the
// system always keeps at least one active admin, and no user may
// deactivate their own account.
//
// # Middleware
//
// The Authenticator exposes guard primitives for downstream handlers:
//
//	mux.Handle("GET /api/auth/me", authn.RequireAuthenticated(handler))
//	mux.Handle("GET /api/admin/users", authn.RequireRole(store.RoleAdmin)(handler))
//
// Both attach an AuthContext to the request context, retrievable with
// FromContext. Handlers read identity and role from that value only.
package auth
