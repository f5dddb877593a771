package model

import (
	"fmt"
	"strings"
	"time"
)

// ReportStatus classifies a condition report. It is a closed set.
type ReportStatus string

// Report statuses.
const (
	ReportStatusDefect           ReportStatus = "defect"
	ReportStatusNeedsReplacement ReportStatus = "needs_replacement"
)

// Labels clients show and submit for each status.
const (
	ReportLabelDefect           = "Damaged/Needs Repair"
	ReportLabelNeedsReplacement = "Needs Replacement/Resupply"
)

// ParseReportStatus accepts either the status tag or its display label,
// case-insensitively.
func ParseReportStatus(s string) (ReportStatus, error) {
	v := strings.TrimSpace(s)
	switch {
	case strings.EqualFold(v, string(ReportStatusDefect)), strings.EqualFold(v, ReportLabelDefect):
		return ReportStatusDefect, nil
	case strings.EqualFold(v, string(ReportStatusNeedsReplacement)), strings.EqualFold(v, ReportLabelNeedsReplacement):
		return ReportStatusNeedsReplacement, nil
	}
	return "", fmt.Errorf("unknown report status %q", s)
}

// Label returns the display label for the status.
func (s ReportStatus) Label() string {
	switch s {
	case ReportStatusDefect:
		return ReportLabelDefect
	case ReportStatusNeedsReplacement:
		return ReportLabelNeedsReplacement
	}
	return string(s)
}

// ConditionReport records a problem found on one checklist item during a
// transfer. It lives and dies with its transaction record.
type ConditionReport struct {
	ID              string       `json:"id"`
	TransactionID   string       `json:"transaction_id"`
	ToolID          string       `json:"tool_id"`
	ChecklistItemID string       `json:"checklist_item_id"`
	Status          ReportStatus `json:"status"`
	Comments        string       `json:"comments,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
}
