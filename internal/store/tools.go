package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/erazemk/skrbnik/internal/db"
	"github.com/erazemk/skrbnik/internal/model"
)

// ErrCustodyConflict is returned when a custody update finds the tool at a
// different version than the caller expected.
var ErrCustodyConflict = errors.New("tool custody changed concurrently")

const toolColumns = `t.id, t.company_id, t.name, t.description, t.custodian_id, t.version,
	t.created_at, t.updated_at, t.deleted_at, COALESCE(u.username, '')`

const toolFrom = ` FROM tools t LEFT JOIN users u ON u.id = t.custodian_id`

// CreateTool registers a new tool with no custodian.
func CreateTool(ctx context.Context, d *db.DB, companyID, name, description string) (*model.Tool, error) {
	id := uuid.NewString()
	now := time.Now().UTC()
	_, err := d.ExecContext(ctx,
		`INSERT INTO tools (id, company_id, name, description, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, companyID, name, description, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("creating tool: %w", err)
	}

	return GetTool(ctx, d, companyID, id)
}

// GetTool returns a tool of the company by ID, including soft-deleted ones
// so that history stays readable.
func GetTool(ctx context.Context, d *db.DB, companyID, id string) (*model.Tool, error) {
	row := d.QueryRowContext(ctx,
		`SELECT `+toolColumns+toolFrom+` WHERE t.id = ? AND t.company_id = ?`, id, companyID,
	)
	t, err := scanTool(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting tool: %w", err)
	}
	return t, nil
}

// ListTools returns non-deleted tools of a company, optionally only those
// held by custodianID.
func ListTools(ctx context.Context, d *db.DB, companyID, custodianID string) ([]model.Tool, error) {
	query := `SELECT ` + toolColumns + toolFrom + ` WHERE t.company_id = ? AND t.deleted_at IS NULL`
	args := []any{companyID}
	if custodianID != "" {
		query += ` AND t.custodian_id = ?`
		args = append(args, custodianID)
	}
	query += ` ORDER BY t.name`

	rows, err := d.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing tools: %w", err)
	}
	defer rows.Close()

	return scanTools(rows)
}

// GetToolsByIDs returns the active tools of the company among ids. Missing,
// deleted and foreign tools are simply absent from the result.
func GetToolsByIDs(ctx context.Context, d *db.DB, companyID string, ids []string) ([]model.Tool, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	args := make([]any, 0, len(ids)+1)
	args = append(args, companyID)
	for _, id := range ids {
		args = append(args, id)
	}

	rows, err := d.QueryContext(ctx,
		`SELECT `+toolColumns+toolFrom+`
		 WHERE t.company_id = ? AND t.deleted_at IS NULL AND t.id IN (`+db.Placeholders(len(ids))+`)`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("getting tools: %w", err)
	}
	defer rows.Close()

	return scanTools(rows)
}

// DeleteTool soft-deletes a tool. Ledger rows keep referencing it.
func DeleteTool(ctx context.Context, d *db.DB, companyID, id string) error {
	_, err := d.ExecContext(ctx,
		`UPDATE tools SET deleted_at = ? WHERE id = ? AND company_id = ? AND deleted_at IS NULL`,
		time.Now().UTC(), id, companyID,
	)
	if err != nil {
		return fmt.Errorf("deleting tool: %w", err)
	}
	return nil
}

// AssignCustody moves a tool to custodianID on behalf of batchID if the tool
// is still at expectedVersion, bumping the version. Returns
// ErrCustodyConflict otherwise. An empty batchID records no batch.
func AssignCustody(ctx context.Context, d *db.DB, toolID, custodianID, batchID string, expectedVersion int64) error {
	var batch any
	if batchID != "" {
		batch = batchID
	}
	result, err := d.ExecContext(ctx,
		`UPDATE tools SET custodian_id = ?, custody_batch_id = ?, version = version + 1, updated_at = ?
		 WHERE id = ? AND version = ? AND deleted_at IS NULL`,
		custodianID, batch, time.Now().UTC(), toolID, expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("assigning custody: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("assigning custody: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("tool %s: %w", toolID, ErrCustodyConflict)
	}
	return nil
}

// RestoreCustody puts prior back as the tool's custodian, but only while the
// tool still carries the assignment batchID made at assignedVersion.
// Reports whether anything changed; a tool the batch never assigned, or that
// someone moved since, is left alone.
func RestoreCustody(ctx context.Context, d *db.DB, toolID string, prior *string, batchID string, assignedVersion int64) (bool, error) {
	result, err := d.ExecContext(ctx,
		`UPDATE tools SET custodian_id = ?, custody_batch_id = NULL, version = version + 1, updated_at = ?
		 WHERE id = ? AND version = ? AND custody_batch_id = ?`,
		prior, time.Now().UTC(), toolID, assignedVersion, batchID,
	)
	if err != nil {
		return false, fmt.Errorf("restoring custody: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("restoring custody: %w", err)
	}
	return n > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTool(row rowScanner) (*model.Tool, error) {
	t := &model.Tool{}
	var description sql.NullString
	if err := row.Scan(&t.ID, &t.CompanyID, &t.Name, &description, &t.CustodianID, &t.Version,
		&t.CreatedAt, &t.UpdatedAt, &t.DeletedAt, &t.CustodianName); err != nil {
		return nil, err
	}
	t.Description = description.String
	return t, nil
}

func scanTools(rows *sql.Rows) ([]model.Tool, error) {
	var tools []model.Tool
	for rows.Next() {
		t, err := scanTool(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning tool: %w", err)
		}
		tools = append(tools, *t)
	}
	return tools, rows.Err()
}
