package model

import "time"

// BatchStatus is the lifecycle state of a transfer batch.
type BatchStatus string

// Batch statuses. A compensated batch is deleted, so it has no status.
const (
	BatchStatusPending             BatchStatus = "pending"
	BatchStatusCommitted           BatchStatus = "committed"
	BatchStatusNeedsReconciliation BatchStatus = "needs_reconciliation"
)

// Valid reports whether s is a known batch status.
func (s BatchStatus) Valid() bool {
	switch s {
	case BatchStatusPending, BatchStatusCommitted, BatchStatusNeedsReconciliation:
		return true
	}
	return false
}

// TransferBatch anchors one batch transfer. It is written before any per-tool
// change so that every later write can be attributed to it and unwound.
type TransferBatch struct {
	ID         string      `json:"id"`
	CompanyID  string      `json:"company_id"`
	CreatedBy  string      `json:"created_by"`
	FromUserID *string     `json:"from_user_id,omitempty"`
	ToUserID   string      `json:"to_user_id"`
	Location   string      `json:"location"`
	StoredAt   string      `json:"stored_at"`
	Notes      string      `json:"notes,omitempty"`
	Status     BatchStatus `json:"status"`
	CreatedAt  time.Time   `json:"created_at"`

	// Snapshot holds each tool's custody as it was before the batch began,
	// in input order. Never sent to clients.
	Snapshot []CustodySnapshot `json:"-"`
}

// CustodySnapshot is the pre-batch custody state of one tool.
type CustodySnapshot struct {
	ToolID      string  `json:"tool_id"`
	CustodianID *string `json:"custodian_id"`
	Version     int64   `json:"version"`
}

// TransactionRecord is an immutable ledger row describing one tool's
// movement within one batch.
type TransactionRecord struct {
	ID         string    `json:"id"`
	BatchID    string    `json:"batch_id"`
	CompanyID  string    `json:"company_id"`
	ToolID     string    `json:"tool_id"`
	Position   int       `json:"position"`
	FromUserID *string   `json:"from_user_id"`
	ToUserID   string    `json:"to_user_id"`
	Location   string    `json:"location"`
	StoredAt   string    `json:"stored_at"`
	Notes      string    `json:"notes,omitempty"`
	CreatedAt  time.Time `json:"created_at"`

	// Joined fields (not always populated).
	ToolName     string `json:"tool_name,omitempty"`
	FromUsername string `json:"from_username,omitempty"`
	ToUsername   string `json:"to_username,omitempty"`
}

// CustodyEntry is one row of the current custody overview.
type CustodyEntry struct {
	ToolID        string  `json:"tool_id"`
	ToolName      string  `json:"tool_name"`
	CustodianID   *string `json:"custodian_id"`
	CustodianName string  `json:"custodian_name,omitempty"`
}
