package storage

import (
	"context"
	"fmt"

	"spendbook/internal/core"
)

// CreateUser inserts a user and its role link in one transaction. The
// credential arrives already hashed; this layer never sees plaintext.
func (s *Store) CreateUser(ctx context.Context, username, passwordHash string, role core.Role) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var roleID int64
	err = tx.QueryRowContext(ctx,
		"SELECT role_id FROM Role WHERE role_name = ?", string(role)).Scan(&roleID)
	if err != nil {
		return lookupErr(err, core.ErrUnknownRole, string(role))
	}

	res, err := tx.ExecContext(ctx,
		"INSERT INTO User (username, password) VALUES (?, ?) ON CONFLICT DO NOTHING",
		username, passwordHash)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("rows affected: %w", err)
	} else if n == 0 {
		return fmt.Errorf("username %q: %w", username, core.ErrAlreadyExists)
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO user_role (username, role_id) VALUES (?, ?)", username, roleID); err != nil {
		return fmt.Errorf("insert user role: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// GetUser returns the stored credential hash and role for a username.
// Returns core.ErrInvalidCredentials for unknown usernames so callers do
// not leak which usernames exist.
func (s *Store) GetUser(ctx context.Context, username string) (hash string, role core.Role, err error) {
	err = s.db.QueryRowContext(ctx, `
		SELECT u.password, r.role_name
		FROM User u
		JOIN user_role ur ON u.username = ur.username
		JOIN Role r ON ur.role_id = r.role_id
		WHERE u.username = ?`, username).Scan(&hash, &role)
	if err != nil {
		if isNoRows(err) {
			return "", "", core.ErrInvalidCredentials
		}
		return "", "", fmt.Errorf("get user: %w", err)
	}
	return hash, role, nil
}

// ListUsers returns every username with its role.
func (s *Store) ListUsers(ctx context.Context) ([]core.UserInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ur.username, r.role_name
		FROM user_role ur
		JOIN Role r ON ur.role_id = r.role_id
		ORDER BY ur.username`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []core.UserInfo
	for rows.Next() {
		var u core.UserInfo
		if err := rows.Scan(&u.Username, &u.Role); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

// CountUsers reports how many accounts exist, used for first-run bootstrap.
func (s *Store) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM User").Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}
