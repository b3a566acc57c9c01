// ABOUTME: User store methods for the SQLite implementation
// ABOUTME: Handles account creation, lookup, admin updates, and soft deletion

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// publicUserColumns deliberately excludes pin_hash. Only
// GetUserByUsername selects the hash, for credential verification.
const publicUserColumns = "id, username, role, status, created_at, last_login"

// CreateUser inserts a new user account.
func (s *SQLiteStore) CreateUser(ctx context.Context, user *User) error {
	query := `
		INSERT INTO users (id, username, pin_hash, role, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		user.ID,
		user.Username,
		user.PINHash,
		string(user.Role),
		string(user.Status),
		user.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrUsernameExists
		}
		return fmt.Errorf("inserting user: %w", err)
	}

	s.logger.Info("created user", "id", user.ID, "username", user.Username, "role", user.Role)
	return nil
}

// GetUser retrieves a user of any status by ID, without the PIN hash.
func (s *SQLiteStore) GetUser(ctx context.Context, id string) (*User, error) {
	query := `SELECT ` + publicUserColumns + ` FROM users WHERE id = ?`

	user, err := s.scanUser(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying user: %w", err)
	}
	return user, nil
}

// GetUserByUsername retrieves an active user including the PIN hash.
func (s *SQLiteStore) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	query := `
		SELECT id, username, pin_hash, role, status, created_at, last_login
		FROM users
		WHERE username = ? AND status = ?
	`

	var user User
	var roleStr, statusStr, createdAtStr string
	var lastLoginStr sql.NullString

	err := s.db.QueryRowContext(ctx, query, username, string(UserActive)).Scan(
		&user.ID,
		&user.Username,
		&user.PINHash,
		&roleStr,
		&statusStr,
		&createdAtStr,
		&lastLoginStr,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying user by username: %w", err)
	}

	if err := fillUserTimes(&user, roleStr, statusStr, createdAtStr, lastLoginStr); err != nil {
		return nil, err
	}
	return &user, nil
}

// ListUsers returns all users of any status, newest first, without PIN hashes.
func (s *SQLiteStore) ListUsers(ctx context.Context) ([]*User, error) {
	query := `SELECT ` + publicUserColumns + ` FROM users ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying users: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var users []*User
	for rows.Next() {
		user, err := s.scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating users: %w", err)
	}

	return users, nil
}

// UpdateUser applies the non-nil fields of upd and returns the updated user.
func (s *SQLiteStore) UpdateUser(ctx context.Context, id string, upd UserUpdate) (*User, error) {
	sets := make([]string, 0, 3)
	args := make([]any, 0, 4)

	if upd.Role != nil {
		sets = append(sets, "role = ?")
		args = append(args, string(*upd.Role))
	}
	if upd.PINHash != nil {
		sets = append(sets, "pin_hash = ?")
		args = append(args, *upd.PINHash)
	}
	if upd.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, string(*upd.Status))
	}

	if len(sets) == 0 {
		return s.GetUser(ctx, id)
	}

	query := "UPDATE users SET " + joinSets(sets) + " WHERE id = ?"
	args = append(args, id)

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("updating user: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, ErrUserNotFound
	}

	s.logger.Info("updated user", "id", id)
	return s.GetUser(ctx, id)
}

// TouchLastLogin sets last_login to the current time.
func (s *SQLiteStore) TouchLastLogin(ctx context.Context, id string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx, "UPDATE users SET last_login = ? WHERE id = ?", now, id)
	if err != nil {
		return fmt.Errorf("updating last login: %w", err)
	}
	return nil
}

// DeactivateUser marks a user deactivated.
func (s *SQLiteStore) DeactivateUser(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE users SET status = ? WHERE id = ?",
		string(UserDeactivated), id,
	)
	if err != nil {
		return fmt.Errorf("deactivating user: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrUserNotFound
	}

	s.logger.Info("deactivated user", "id", id)
	return nil
}

// CountActiveAdmins counts users with role admin and status active.
func (s *SQLiteStore) CountActiveAdmins(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM users WHERE role = ? AND status = ?",
		string(RoleAdmin), string(UserActive),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting active admins: %w", err)
	}
	return count, nil
}

// CountUsersByRole counts active users with the given role.
func (s *SQLiteStore) CountUsersByRole(ctx context.Context, role Role) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM users WHERE role = ? AND status = ?",
		string(role), string(UserActive),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting users by role: %w", err)
	}
	return count, nil
}

// scanner abstracts sql.Row and sql.Rows for shared scan logic.
type scanner interface {
	Scan(dest ...any) error
}

// scanUser scans a public user row (no pin_hash column).
func (s *SQLiteStore) scanUser(row scanner) (*User, error) {
	var user User
	var roleStr, statusStr, createdAtStr string
	var lastLoginStr sql.NullString

	if err := row.Scan(
		&user.ID,
		&user.Username,
		&roleStr,
		&statusStr,
		&createdAtStr,
		&lastLoginStr,
	); err != nil {
		return nil, err
	}

	if err := fillUserTimes(&user, roleStr, statusStr, createdAtStr, lastLoginStr); err != nil {
		return nil, err
	}
	return &user, nil
}

// fillUserTimes parses role, status, and timestamp columns into the user.
func fillUserTimes(user *User, roleStr, statusStr, createdAtStr string, lastLoginStr sql.NullString) error {
	role, err := ParseRole(roleStr)
	if err != nil {
		return fmt.Errorf("parsing role: %w", err)
	}
	user.Role = role

	status, err := ParseUserStatus(statusStr)
	if err != nil {
		return fmt.Errorf("parsing status: %w", err)
	}
	user.Status = status

	user.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr)
	if err != nil {
		return fmt.Errorf("parsing created_at: %w", err)
	}

	if lastLoginStr.Valid {
		lastLogin, err := time.Parse(time.RFC3339, lastLoginStr.String)
		if err != nil {
			return fmt.Errorf("parsing last_login: %w", err)
		}
		user.LastLoginAt = &lastLogin
	}

	return nil
}

func joinSets(sets []string) string {
	out := sets[0]
	for _, s := range sets[1:] {
		out += ", " + s
	}
	return out
}
