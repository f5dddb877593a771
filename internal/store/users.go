package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/erazemk/skrbnik/internal/db"
	"github.com/erazemk/skrbnik/internal/model"
)

const userColumns = `id, company_id, username, password_hash, role, created_at, deleted_at`

// CreateUser creates a new user in a company.
func CreateUser(ctx context.Context, d *db.DB, companyID, username, passwordHash, role string) (*model.User, error) {
	id := uuid.NewString()
	_, err := d.ExecContext(ctx,
		`INSERT INTO users (id, company_id, username, password_hash, role, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, companyID, username, passwordHash, role, time.Now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	return GetUser(ctx, d, id)
}

// GetUser returns a user by ID, regardless of company or deletion.
func GetUser(ctx context.Context, d *db.DB, id string) (*model.User, error) {
	return getUser(ctx, d, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

// GetCompanyUser returns an active user only if it belongs to the company.
// Users of other companies are indistinguishable from missing ones.
func GetCompanyUser(ctx context.Context, d *db.DB, companyID, id string) (*model.User, error) {
	return getUser(ctx, d,
		`SELECT `+userColumns+` FROM users WHERE id = ? AND company_id = ? AND deleted_at IS NULL`,
		id, companyID,
	)
}

// GetUserByUsername returns a user by username (including soft-deleted for auth checks).
func GetUserByUsername(ctx context.Context, d *db.DB, username string) (*model.User, error) {
	return getUser(ctx, d,
		`SELECT `+userColumns+` FROM users WHERE username = ? ORDER BY deleted_at IS NULL DESC LIMIT 1`,
		username,
	)
}

func getUser(ctx context.Context, d *db.DB, query string, args ...any) (*model.User, error) {
	u := &model.User{}
	err := d.QueryRowContext(ctx, query, args...).
		Scan(&u.ID, &u.CompanyID, &u.Username, &u.PasswordHash, &u.Role, &u.CreatedAt, &u.DeletedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return u, nil
}

// ListUsers returns all non-deleted users of a company.
func ListUsers(ctx context.Context, d *db.DB, companyID string) ([]model.User, error) {
	rows, err := d.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users
		 WHERE company_id = ? AND deleted_at IS NULL ORDER BY username`, companyID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.CompanyID, &u.Username, &u.PasswordHash, &u.Role, &u.CreatedAt, &u.DeletedAt); err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// UpdateUserPassword updates a user's password hash.
func UpdateUserPassword(ctx context.Context, d *db.DB, id, passwordHash string) error {
	_, err := d.ExecContext(ctx,
		`UPDATE users SET password_hash = ? WHERE id = ? AND deleted_at IS NULL`,
		passwordHash, id,
	)
	if err != nil {
		return fmt.Errorf("updating user password: %w", err)
	}
	return nil
}

// DeleteUser soft-deletes a user. Fails if the user still holds tools.
func DeleteUser(ctx context.Context, d *db.DB, companyID, id string) error {
	var count int
	err := d.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tools WHERE custodian_id = ? AND deleted_at IS NULL`, id,
	).Scan(&count)
	if err != nil {
		return fmt.Errorf("checking user custody: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("cannot delete user: still holds %d tools", count)
	}

	_, err = d.ExecContext(ctx,
		`UPDATE users SET deleted_at = ? WHERE id = ? AND company_id = ? AND deleted_at IS NULL`,
		time.Now().UTC(), id, companyID,
	)
	if err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}
	return nil
}
