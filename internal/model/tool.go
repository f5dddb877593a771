package model

import "time"

// Tool is an individually tracked physical asset.
type Tool struct {
	ID          string     `json:"id"`
	CompanyID   string     `json:"company_id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	CustodianID *string    `json:"custodian_id"`
	Version     int64      `json:"version"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`

	// Joined fields (not always populated).
	CustodianName string `json:"custodian_name,omitempty"`
}

// ChecklistItem is an inspection point defined for one tool. Condition
// reports may only target items of the tool they describe.
type ChecklistItem struct {
	ID        string    `json:"id"`
	CompanyID string    `json:"company_id"`
	ToolID    string    `json:"tool_id"`
	Label     string    `json:"label"`
	CreatedAt time.Time `json:"created_at"`
}
