package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/erazemk/skrbnik/internal/db"
	"github.com/erazemk/skrbnik/internal/model"
)

// UpsertLocationAlias maps alias to location for a company, replacing any
// existing mapping of the same alias (case-insensitive).
func UpsertLocationAlias(ctx context.Context, d *db.DB, companyID, alias, location string) error {
	alias = strings.TrimSpace(alias)
	if alias == "" || strings.TrimSpace(location) == "" {
		return fmt.Errorf("alias and location are required")
	}

	_, err := d.ExecContext(ctx,
		`DELETE FROM location_aliases WHERE company_id = ? AND lower(alias) = lower(?)`,
		companyID, alias,
	)
	if err != nil {
		return fmt.Errorf("replacing location alias: %w", err)
	}

	_, err = d.ExecContext(ctx,
		`INSERT INTO location_aliases (id, company_id, alias, location) VALUES (?, ?, ?, ?)`,
		uuid.NewString(), companyID, alias, location,
	)
	if err != nil {
		return fmt.Errorf("creating location alias: %w", err)
	}
	return nil
}

// ListLocationAliases returns a company's aliases.
func ListLocationAliases(ctx context.Context, d *db.DB, companyID string) ([]model.LocationAlias, error) {
	rows, err := d.QueryContext(ctx,
		`SELECT id, company_id, alias, location FROM location_aliases
		 WHERE company_id = ? ORDER BY alias`, companyID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing location aliases: %w", err)
	}
	defer rows.Close()

	var aliases []model.LocationAlias
	for rows.Next() {
		var a model.LocationAlias
		if err := rows.Scan(&a.ID, &a.CompanyID, &a.Alias, &a.Location); err != nil {
			return nil, fmt.Errorf("scanning location alias: %w", err)
		}
		aliases = append(aliases, a)
	}
	return aliases, rows.Err()
}

// LookupLocation resolves alias to its canonical location within a company.
// The second return value is false when no alias matches.
func LookupLocation(ctx context.Context, d *db.DB, companyID, alias string) (string, bool, error) {
	var location string
	err := d.QueryRowContext(ctx,
		`SELECT location FROM location_aliases WHERE company_id = ? AND lower(alias) = lower(?)`,
		companyID, strings.TrimSpace(alias),
	).Scan(&location)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("looking up location alias: %w", err)
	}
	return location, true, nil
}
