// Package store provides persistent storage for lab-auth using SQLite.
//
// # Architecture
//
// The store package uses an interface-driven architecture with two
// specialized interfaces:
//
//   - UserStore: Account creation, lookup, admin updates, soft deletion
//   - SessionStore: Session token persistence with expiry predicates
//
// SQLiteStore implements both interfaces in a single struct, allowing
// easy composition while maintaining clear interface boundaries.
//
// # Data Models
//
//   - User: Lab member account with username, bcrypt PIN hash, role,
//     and a two-state lifecycle (active, deactivated). Accounts are
//     never hard-deleted.
//   - Session: Opaque token with fixed expiry referencing its user.
//
// PIN hashes never leave the store except through GetUserByUsername,
// the single read used for credential verification.
//
// # SQLite Configuration
//
// The store uses SQLite with WAL mode for concurrent reads:
//
//	PRAGMA journal_mode=WAL;
//	PRAGMA foreign_keys=ON;
//
// Mutations rely on SQLite's own atomicity: unique-constraint inserts
// and predicate-qualified updates/deletes checked via RowsAffected.
// There is no in-process locking around store calls.
//
// # Error Handling
//
// Common errors:
//
//   - ErrUserNotFound: Requested user does not exist
//   - ErrUsernameExists: Username unique constraint violated
//   - ErrSessionNotFound: Session missing or expired
//
// All methods accept context.Context for cancellation support.
package store
