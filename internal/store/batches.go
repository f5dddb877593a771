package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/erazemk/skrbnik/internal/db"
	"github.com/erazemk/skrbnik/internal/model"
)

const batchColumns = `id, company_id, created_by, from_user_id, to_user_id, location, stored_at,
	notes, status, snapshot, created_at`

// CreateBatch inserts a batch anchor row, including its custody snapshot.
// The caller assigns the ID.
func CreateBatch(ctx context.Context, d *db.DB, b *model.TransferBatch) error {
	snapshot, err := json.Marshal(b.Snapshot)
	if err != nil {
		return fmt.Errorf("encoding batch snapshot: %w", err)
	}

	_, err = d.ExecContext(ctx,
		`INSERT INTO transfer_batches (`+batchColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.CompanyID, b.CreatedBy, b.FromUserID, b.ToUserID, b.Location, b.StoredAt,
		b.Notes, string(b.Status), string(snapshot), b.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating batch: %w", err)
	}
	return nil
}

// GetBatch returns a company's batch by ID.
func GetBatch(ctx context.Context, d *db.DB, companyID, id string) (*model.TransferBatch, error) {
	row := d.QueryRowContext(ctx,
		`SELECT `+batchColumns+` FROM transfer_batches WHERE id = ? AND company_id = ?`, id, companyID,
	)
	b, err := scanBatch(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting batch: %w", err)
	}
	return b, nil
}

// ListBatches returns a company's batches, newest first, optionally filtered
// by status.
func ListBatches(ctx context.Context, d *db.DB, companyID string, status model.BatchStatus) ([]model.TransferBatch, error) {
	query := `SELECT ` + batchColumns + ` FROM transfer_batches WHERE company_id = ?`
	args := []any{companyID}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at DESC`

	rows, err := d.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing batches: %w", err)
	}
	defer rows.Close()

	var batches []model.TransferBatch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning batch: %w", err)
		}
		batches = append(batches, *b)
	}
	return batches, rows.Err()
}

// SetBatchStatus changes a batch's status.
func SetBatchStatus(ctx context.Context, d *db.DB, id string, status model.BatchStatus) error {
	result, err := d.ExecContext(ctx,
		`UPDATE transfer_batches SET status = ? WHERE id = ?`, string(status), id,
	)
	if err != nil {
		return fmt.Errorf("setting batch status: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("setting batch status: batch %s not found", id)
	}
	return nil
}

// DeleteBatch removes a batch anchor row. Its transactions must already be
// gone.
func DeleteBatch(ctx context.Context, d *db.DB, id string) error {
	_, err := d.ExecContext(ctx, `DELETE FROM transfer_batches WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting batch: %w", err)
	}
	return nil
}

func scanBatch(row rowScanner) (*model.TransferBatch, error) {
	b := &model.TransferBatch{}
	var notes sql.NullString
	var status, snapshot string
	if err := row.Scan(&b.ID, &b.CompanyID, &b.CreatedBy, &b.FromUserID, &b.ToUserID, &b.Location,
		&b.StoredAt, &notes, &status, &snapshot, &b.CreatedAt); err != nil {
		return nil, err
	}
	b.Notes = notes.String
	b.Status = model.BatchStatus(status)
	if err := json.Unmarshal([]byte(snapshot), &b.Snapshot); err != nil {
		return nil, fmt.Errorf("decoding batch snapshot: %w", err)
	}
	return b, nil
}
