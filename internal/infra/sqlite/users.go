package sqlite

import (
	"database/sql"
	"strings"
	"time"

	"github.com/trendscout-net/trendscout/internal/domain"
	"github.com/trendscout-net/trendscout/internal/security"
)

// ─── User Repository ────────────────────────────────────────────────────────

// CreateUser inserts a new user. Fails with domain.ErrUserExists when the
// email is already registered.
func (d *DB) CreateUser(u security.User) error {
	_, err := d.db.Exec(
		`INSERT INTO users (id, email, hashed_password, is_admin, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.HashedPassword, u.IsAdmin, u.CreatedAt.Unix(),
	)
	if err != nil && isUniqueViolation(err) {
		return domain.ErrUserExists
	}
	return err
}

// GetUserByEmail retrieves a user by email.
func (d *DB) GetUserByEmail(email string) (*security.User, error) {
	row := d.db.QueryRow(
		`SELECT id, email, hashed_password, is_admin, created_at
		 FROM users WHERE email = ?`, email,
	)
	return scanUser(row)
}

// GetUser retrieves a user by id.
func (d *DB) GetUser(id string) (*security.User, error) {
	row := d.db.QueryRow(
		`SELECT id, email, hashed_password, is_admin, created_at
		 FROM users WHERE id = ?`, id,
	)
	return scanUser(row)
}

func scanUser(s scanner) (*security.User, error) {
	var u security.User
	var createdAt int64

	err := s.Scan(&u.ID, &u.Email, &u.HashedPassword, &u.IsAdmin, &createdAt)
	if err == sql.ErrNoRows {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	u.CreatedAt = time.Unix(createdAt, 0)
	return &u, nil
}

// isUniqueViolation detects the sqlite unique-constraint error without
// depending on driver error codes.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE")
}
