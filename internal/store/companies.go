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

// CreateCompany creates a new tenant.
func CreateCompany(ctx context.Context, d *db.DB, name string) (*model.Company, error) {
	c := &model.Company{ID: uuid.NewString(), Name: name, CreatedAt: time.Now().UTC()}
	_, err := d.ExecContext(ctx,
		`INSERT INTO companies (id, name, created_at) VALUES (?, ?, ?)`,
		c.ID, c.Name, c.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("creating company: %w", err)
	}
	return c, nil
}

// GetCompany returns a company by ID.
func GetCompany(ctx context.Context, d *db.DB, id string) (*model.Company, error) {
	return getCompany(ctx, d, `SELECT id, name, created_at FROM companies WHERE id = ?`, id)
}

// GetCompanyByName returns a company by its unique name.
func GetCompanyByName(ctx context.Context, d *db.DB, name string) (*model.Company, error) {
	return getCompany(ctx, d, `SELECT id, name, created_at FROM companies WHERE name = ?`, name)
}

func getCompany(ctx context.Context, d *db.DB, query string, arg any) (*model.Company, error) {
	c := &model.Company{}
	err := d.QueryRowContext(ctx, query, arg).Scan(&c.ID, &c.Name, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting company: %w", err)
	}
	return c, nil
}
