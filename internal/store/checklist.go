package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/erazemk/skrbnik/internal/db"
	"github.com/erazemk/skrbnik/internal/model"
)

// CreateChecklistItem defines an inspection point for a tool.
func CreateChecklistItem(ctx context.Context, d *db.DB, companyID, toolID, label string) (*model.ChecklistItem, error) {
	item := &model.ChecklistItem{
		ID:        uuid.NewString(),
		CompanyID: companyID,
		ToolID:    toolID,
		Label:     label,
		CreatedAt: time.Now().UTC(),
	}
	_, err := d.ExecContext(ctx,
		`INSERT INTO checklist_items (id, company_id, tool_id, label, created_at) VALUES (?, ?, ?, ?, ?)`,
		item.ID, item.CompanyID, item.ToolID, item.Label, item.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("creating checklist item: %w", err)
	}
	return item, nil
}

// ListChecklistItems returns the checklist items of the given tools within a
// company.
func ListChecklistItems(ctx context.Context, d *db.DB, companyID string, toolIDs []string) ([]model.ChecklistItem, error) {
	if len(toolIDs) == 0 {
		return nil, nil
	}

	args := make([]any, 0, len(toolIDs)+1)
	args = append(args, companyID)
	for _, id := range toolIDs {
		args = append(args, id)
	}

	rows, err := d.QueryContext(ctx,
		`SELECT id, company_id, tool_id, label, created_at FROM checklist_items
		 WHERE company_id = ? AND tool_id IN (`+db.Placeholders(len(toolIDs))+`)
		 ORDER BY label`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("listing checklist items: %w", err)
	}
	defer rows.Close()

	var items []model.ChecklistItem
	for rows.Next() {
		var item model.ChecklistItem
		if err := rows.Scan(&item.ID, &item.CompanyID, &item.ToolID, &item.Label, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning checklist item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
