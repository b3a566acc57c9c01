// Package api serves the lab-auth HTTP surface.
//
// All responses use a consistent JSON envelope:
//
//	Success: {"success": true, ...data}
//	Error:   {"success": false, "error": "message"}
//
// # Endpoints
//
// Public:
//
//   - POST /api/auth/login    - authenticate, returns token + cookie
//   - POST /api/auth/register - create a member account
//   - GET  /api/auth/health   - liveness check
//
// Authenticated (bearer header or session cookie):
//
//   - POST /api/auth/logout - revoke the current session
//   - GET  /api/auth/me     - current user info
//
// Admin only:
//
//   - GET    /api/admin/users                 - list all users
//   - POST   /api/admin/users                 - create user with role
//   - PATCH  /api/admin/users/{id}            - update role/pin/active
//   - POST   /api/admin/users/{id}/deactivate - soft delete
//   - GET    /api/admin/stats                 - dashboard counts
//
// Login is rate limited per source address. Unexpected persistence
// failures return an opaque 500; details go to the log only.
package api
