package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/skrbnik/internal/db"
	"github.com/erazemk/skrbnik/internal/model"
)

// CreateConditionReport attaches a report to a ledger row. The caller assigns
// the ID.
func CreateConditionReport(ctx context.Context, d *db.DB, r *model.ConditionReport) error {
	_, err := d.ExecContext(ctx,
		`INSERT INTO condition_reports (id, transaction_id, tool_id, checklist_item_id, status, comments, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.TransactionID, r.ToolID, r.ChecklistItemID, string(r.Status), r.Comments, r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("recording condition report: %w", err)
	}
	return nil
}

// ListBatchConditionReports returns every report attached to a batch's
// ledger rows.
func ListBatchConditionReports(ctx context.Context, d *db.DB, batchID string) ([]model.ConditionReport, error) {
	rows, err := d.QueryContext(ctx,
		`SELECT r.id, r.transaction_id, r.tool_id, r.checklist_item_id, r.status, r.comments, r.created_at
		 FROM condition_reports r
		 JOIN transactions x ON x.id = r.transaction_id
		 WHERE x.batch_id = ?
		 ORDER BY r.created_at, r.id`, batchID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing condition reports: %w", err)
	}
	defer rows.Close()

	var reports []model.ConditionReport
	for rows.Next() {
		var r model.ConditionReport
		var status string
		var comments sql.NullString
		if err := rows.Scan(&r.ID, &r.TransactionID, &r.ToolID, &r.ChecklistItemID, &status, &comments, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning condition report: %w", err)
		}
		r.Status = model.ReportStatus(status)
		r.Comments = comments.String
		reports = append(reports, r)
	}
	return reports, rows.Err()
}

// DeleteBatchConditionReports removes every report attached to a batch's
// ledger rows.
func DeleteBatchConditionReports(ctx context.Context, d *db.DB, batchID string) (int64, error) {
	result, err := d.ExecContext(ctx,
		`DELETE FROM condition_reports
		 WHERE transaction_id IN (SELECT id FROM transactions WHERE batch_id = ?)`, batchID,
	)
	if err != nil {
		return 0, fmt.Errorf("deleting condition reports: %w", err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}
