package store

import (
	"context"
	"fmt"

	"github.com/erazemk/skrbnik/internal/db"
	"github.com/erazemk/skrbnik/internal/model"
)

// ListCustody returns the current holder of every active tool in a company.
// This is the latest-state projection of the ledger.
func ListCustody(ctx context.Context, d *db.DB, companyID string) ([]model.CustodyEntry, error) {
	rows, err := d.QueryContext(ctx,
		`SELECT t.id, t.name, t.custodian_id, COALESCE(u.username, '')
		 FROM tools t
		 LEFT JOIN users u ON u.id = t.custodian_id
		 WHERE t.company_id = ? AND t.deleted_at IS NULL
		 ORDER BY u.username, t.name`, companyID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing custody: %w", err)
	}
	defer rows.Close()

	var entries []model.CustodyEntry
	for rows.Next() {
		var e model.CustodyEntry
		if err := rows.Scan(&e.ToolID, &e.ToolName, &e.CustodianID, &e.CustodianName); err != nil {
			return nil, fmt.Errorf("scanning custody: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
