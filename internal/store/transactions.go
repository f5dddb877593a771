package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/skrbnik/internal/db"
	"github.com/erazemk/skrbnik/internal/model"
)

const transactionSelect = `SELECT x.id, x.batch_id, x.company_id, x.tool_id, x.position, x.from_user_id, x.to_user_id,
	        x.location, x.stored_at, x.notes, x.created_at,
	        t.name AS tool_name, COALESCE(fu.username, '') AS from_username, tu.username AS to_username
	 FROM transactions x
	 JOIN tools t ON t.id = x.tool_id
	 LEFT JOIN users fu ON fu.id = x.from_user_id
	 JOIN users tu ON tu.id = x.to_user_id`

// CreateTransaction appends a ledger row. The caller assigns the ID.
func CreateTransaction(ctx context.Context, d *db.DB, rec *model.TransactionRecord) error {
	_, err := d.ExecContext(ctx,
		`INSERT INTO transactions (id, batch_id, company_id, tool_id, position, from_user_id, to_user_id,
		                           location, stored_at, notes, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.BatchID, rec.CompanyID, rec.ToolID, rec.Position, rec.FromUserID, rec.ToUserID,
		rec.Location, rec.StoredAt, rec.Notes, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("recording transaction: %w", err)
	}
	return nil
}

// ListBatchTransactions returns the ledger rows of a batch in input order.
func ListBatchTransactions(ctx context.Context, d *db.DB, batchID string) ([]model.TransactionRecord, error) {
	rows, err := d.QueryContext(ctx,
		transactionSelect+` WHERE x.batch_id = ? ORDER BY x.position`, batchID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing batch transactions: %w", err)
	}
	defer rows.Close()

	return scanTransactions(rows)
}

// GetToolHistory returns the ledger rows of a tool, newest first.
func GetToolHistory(ctx context.Context, d *db.DB, companyID, toolID string) ([]model.TransactionRecord, error) {
	rows, err := d.QueryContext(ctx,
		transactionSelect+` WHERE x.company_id = ? AND x.tool_id = ? ORDER BY x.created_at DESC, x.position DESC`,
		companyID, toolID,
	)
	if err != nil {
		return nil, fmt.Errorf("getting tool history: %w", err)
	}
	defer rows.Close()

	return scanTransactions(rows)
}

// DeleteBatchTransactions removes every ledger row of a batch. Condition
// reports must be deleted first.
func DeleteBatchTransactions(ctx context.Context, d *db.DB, batchID string) (int64, error) {
	result, err := d.ExecContext(ctx, `DELETE FROM transactions WHERE batch_id = ?`, batchID)
	if err != nil {
		return 0, fmt.Errorf("deleting batch transactions: %w", err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}

func scanTransactions(rows *sql.Rows) ([]model.TransactionRecord, error) {
	var records []model.TransactionRecord
	for rows.Next() {
		var r model.TransactionRecord
		var notes sql.NullString
		if err := rows.Scan(&r.ID, &r.BatchID, &r.CompanyID, &r.ToolID, &r.Position, &r.FromUserID, &r.ToUserID,
			&r.Location, &r.StoredAt, &notes, &r.CreatedAt,
			&r.ToolName, &r.FromUsername, &r.ToUsername); err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}
		r.Notes = notes.String
		records = append(records, r)
	}
	return records, rows.Err()
}
