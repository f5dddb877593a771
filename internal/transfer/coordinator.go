// Package transfer moves a set of tools to a new custodian as one logical
// step on top of a datastore without multi-statement transactions.
//
// A batch anchor row carrying the pre-batch custody snapshot is written
// first. Ledger rows, condition reports and custody updates follow tool by
// tool in input order. On the first failure the Compensator unwinds
// everything written for the batch.
package transfer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/erazemk/skrbnik/internal/model"
)

// DefaultMaxBatchSize caps the number of distinct tools in one batch.
const DefaultMaxBatchSize = 500

// DefaultStaleAfter is how old a pending batch must be before Reconcile
// treats it as abandoned.
const DefaultStaleAfter = 10 * time.Minute

// Store is the datastore surface the transfer engine needs. Lookups return
// nil without error when a row does not exist.
type Store interface {
	ToolsByID(ctx context.Context, companyID string, ids []string) ([]model.Tool, error)
	CompanyUser(ctx context.Context, companyID, id string) (*model.User, error)
	ChecklistItems(ctx context.Context, companyID string, toolIDs []string) ([]model.ChecklistItem, error)

	GetBatch(ctx context.Context, companyID, id string) (*model.TransferBatch, error)
	CreateBatch(ctx context.Context, b *model.TransferBatch) error
	SetBatchStatus(ctx context.Context, id string, status model.BatchStatus) error
	DeleteBatch(ctx context.Context, id string) error

	CreateTransaction(ctx context.Context, rec *model.TransactionRecord) error
	DeleteBatchTransactions(ctx context.Context, batchID string) (int64, error)

	CreateConditionReport(ctx context.Context, r *model.ConditionReport) error
	DeleteBatchConditionReports(ctx context.Context, batchID string) (int64, error)

	AssignCustody(ctx context.Context, toolID, custodianID, batchID string, expectedVersion int64) error
	RestoreCustody(ctx context.Context, toolID string, prior *string, batchID string, assignedVersion int64) (bool, error)
}

// Normalizer resolves a free-text location to the company's canonical name.
// It never fails.
type Normalizer interface {
	Normalize(ctx context.Context, companyID, raw string) string
}

// Request is one batch transfer, already bound to the caller's company and
// identity.
type Request struct {
	CompanyID   string
	RequesterID string

	ToolIDs    []string
	FromUserID string
	ToUserID   string
	Location   string
	StoredAt   string
	Notes      string
	Reports    []ReportInput
}

// ReportInput is a condition report as submitted with a batch.
type ReportInput struct {
	ToolID          string `json:"tool_id"`
	ChecklistItemID string `json:"checklist_item_id"`
	Status          string `json:"status"`
	Comments        string `json:"comments,omitempty"`
}

// Result is the commit signal of a batch.
type Result struct {
	Batch               *model.TransferBatch `json:"batch"`
	TransactionsCreated int                  `json:"transactions_created"`
}

// Coordinator runs batch transfers.
type Coordinator struct {
	Store       Store
	Locations   Normalizer
	Compensator *Compensator
	Metrics     *Metrics
	Logger      *slog.Logger

	// MaxBatchSize caps distinct tools per batch. Zero means
	// DefaultMaxBatchSize.
	MaxBatchSize int
	// StaleAfter is the minimum age of a pending batch for Reconcile. Zero
	// means DefaultStaleAfter.
	StaleAfter time.Duration
	// Now returns the current time. Nil means time.Now.
	Now func() time.Time
}

// NewCoordinator returns a Coordinator with default limits and a compensator
// sharing its store, logger and metrics.
func NewCoordinator(s Store, locations Normalizer, metrics *Metrics, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		Store:       s,
		Locations:   locations,
		Compensator: &Compensator{Store: s, Logger: logger, Metrics: metrics},
		Metrics:     metrics,
		Logger:      logger,
	}
}

// plan is a validated request.
type plan struct {
	toolIDs  []string
	to       string
	from     *string
	snapshot []model.CustodySnapshot
	reports  map[string][]model.ConditionReport
}

// Transfer validates req and, if it is sound, applies it. Errors before the
// batch anchor is written leave no trace. Errors after it are returned as
// *WriteError once compensation has run.
func (c *Coordinator) Transfer(ctx context.Context, req Request) (*Result, error) {
	p, err := c.validate(ctx, req)
	if err != nil {
		c.Metrics.outcome(OutcomeRejected)
		return nil, err
	}

	location := req.Location
	if c.Locations != nil {
		location = c.Locations.Normalize(ctx, req.CompanyID, req.Location)
	}

	batch := &model.TransferBatch{
		ID:         uuid.NewString(),
		CompanyID:  req.CompanyID,
		CreatedBy:  req.RequesterID,
		FromUserID: p.from,
		ToUserID:   p.to,
		Location:   location,
		StoredAt:   req.StoredAt,
		Notes:      req.Notes,
		Status:     model.BatchStatusPending,
		Snapshot:   p.snapshot,
		CreatedAt:  c.now().UTC(),
	}

	// From here on the batch is driven to commit or compensation regardless
	// of the caller going away.
	wctx := context.WithoutCancel(ctx)

	if err := c.write(wctx, batch, p); err != nil {
		return nil, c.fail(wctx, batch, err)
	}

	batch.Status = model.BatchStatusCommitted
	c.Metrics.committed(len(p.toolIDs))
	c.logger().Info("batch transfer committed",
		"batch", batch.ID, "tools", len(p.toolIDs), "to", batch.ToUserID, "location", batch.Location)

	return &Result{Batch: batch, TransactionsCreated: len(p.toolIDs)}, nil
}

// write performs the saga's side effects. The final status update is the
// commit point.
func (c *Coordinator) write(ctx context.Context, batch *model.TransferBatch, p *plan) error {
	if err := c.Store.CreateBatch(ctx, batch); err != nil {
		return err
	}

	for i, snap := range p.snapshot {
		from := snap.CustodianID
		if p.from != nil {
			from = p.from
		}

		rec := &model.TransactionRecord{
			ID:         uuid.NewString(),
			BatchID:    batch.ID,
			CompanyID:  batch.CompanyID,
			ToolID:     snap.ToolID,
			Position:   i,
			FromUserID: from,
			ToUserID:   batch.ToUserID,
			Location:   batch.Location,
			StoredAt:   batch.StoredAt,
			Notes:      batch.Notes,
			CreatedAt:  batch.CreatedAt,
		}
		if err := c.Store.CreateTransaction(ctx, rec); err != nil {
			return err
		}

		for _, r := range p.reports[snap.ToolID] {
			r.ID = uuid.NewString()
			r.TransactionID = rec.ID
			r.CreatedAt = batch.CreatedAt
			if err := c.Store.CreateConditionReport(ctx, &r); err != nil {
				return err
			}
		}

		if err := c.Store.AssignCustody(ctx, snap.ToolID, batch.ToUserID, batch.ID, snap.Version); err != nil {
			return err
		}
	}

	return c.Store.SetBatchStatus(ctx, batch.ID, model.BatchStatusCommitted)
}

func (c *Coordinator) fail(ctx context.Context, batch *model.TransferBatch, cause error) error {
	c.logger().Error("batch transfer failed, compensating", "batch", batch.ID, "error", cause)

	compErr := c.compensator().Compensate(ctx, batch)
	if compErr != nil {
		c.Metrics.outcome(OutcomeNeedsReconciliation)
		c.logger().Error("batch left for reconciliation", "batch", batch.ID, "error", compErr)
	} else {
		c.Metrics.outcome(OutcomeCompensated)
	}

	return &WriteError{BatchID: batch.ID, Err: cause, Compensated: compErr == nil}
}

// validate checks the request shape, then every referenced entity, without
// writing anything.
func (c *Coordinator) validate(ctx context.Context, req Request) (*plan, error) {
	p := &plan{}
	req.ToUserID = strings.TrimSpace(req.ToUserID)
	req.FromUserID = strings.TrimSpace(req.FromUserID)

	seen := make(map[string]bool, len(req.ToolIDs))
	for _, id := range req.ToolIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			return nil, invalidf("tool_ids must not contain empty ids")
		}
		if !seen[id] {
			seen[id] = true
			p.toolIDs = append(p.toolIDs, id)
		}
	}
	switch {
	case len(p.toolIDs) == 0:
		return nil, invalidf("tool_ids is required")
	case len(p.toolIDs) > c.maxBatchSize():
		return nil, invalidf("at most %d tools per batch", c.maxBatchSize())
	case req.ToUserID == "":
		return nil, invalidf("to_user_id is required")
	case strings.TrimSpace(req.Location) == "":
		return nil, invalidf("location is required")
	case strings.TrimSpace(req.StoredAt) == "":
		return nil, invalidf("stored_at is required")
	}

	p.reports = make(map[string][]model.ConditionReport)
	for i, r := range req.Reports {
		toolID := strings.TrimSpace(r.ToolID)
		itemID := strings.TrimSpace(r.ChecklistItemID)
		if toolID == "" || itemID == "" {
			return nil, invalidf("checklist report %d: tool_id and checklist_item_id are required", i+1)
		}
		if !seen[toolID] {
			return nil, invalidf("checklist report %d: tool %s is not part of the batch", i+1, toolID)
		}
		status, err := model.ParseReportStatus(r.Status)
		if err != nil {
			return nil, invalidf("checklist report %d: %v", i+1, err)
		}
		p.reports[toolID] = append(p.reports[toolID], model.ConditionReport{
			ToolID:          toolID,
			ChecklistItemID: itemID,
			Status:          status,
			Comments:        r.Comments,
		})
	}

	tools, err := c.Store.ToolsByID(ctx, req.CompanyID, p.toolIDs)
	if err != nil {
		return nil, fmt.Errorf("loading tools: %w", err)
	}
	byID := make(map[string]model.Tool, len(tools))
	for _, t := range tools {
		byID[t.ID] = t
	}
	for _, id := range p.toolIDs {
		t, ok := byID[id]
		if !ok {
			return nil, ErrToolNotFound
		}
		p.snapshot = append(p.snapshot, model.CustodySnapshot{
			ToolID:      t.ID,
			CustodianID: t.CustodianID,
			Version:     t.Version,
		})
	}

	to, err := c.Store.CompanyUser(ctx, req.CompanyID, req.ToUserID)
	if err != nil {
		return nil, fmt.Errorf("loading destination user: %w", err)
	}
	if to == nil {
		return nil, ErrDestinationUserNotFound
	}
	p.to = to.ID

	if req.FromUserID != "" {
		from, err := c.Store.CompanyUser(ctx, req.CompanyID, req.FromUserID)
		if err != nil {
			return nil, fmt.Errorf("loading source user: %w", err)
		}
		if from == nil {
			return nil, ErrSourceUserNotFound
		}
		p.from = &from.ID
	}

	if len(req.Reports) > 0 {
		items, err := c.Store.ChecklistItems(ctx, req.CompanyID, p.toolIDs)
		if err != nil {
			return nil, fmt.Errorf("loading checklist items: %w", err)
		}
		owner := make(map[string]string, len(items))
		for _, item := range items {
			owner[item.ID] = item.ToolID
		}
		for toolID, reports := range p.reports {
			for _, r := range reports {
				if owner[r.ChecklistItemID] != toolID {
					return nil, fmt.Errorf("%w: item %s, tool %s", ErrChecklistItemMismatch, r.ChecklistItemID, toolID)
				}
			}
		}
	}

	return p, nil
}

// Reconcile re-runs compensation for a batch that was left behind: one marked
// needs_reconciliation, or one still pending after the staleness window.
func (c *Coordinator) Reconcile(ctx context.Context, companyID, batchID string) error {
	batch, err := c.Store.GetBatch(ctx, companyID, batchID)
	if err != nil {
		return fmt.Errorf("loading batch: %w", err)
	}
	if batch == nil {
		return ErrBatchNotFound
	}

	switch batch.Status {
	case model.BatchStatusNeedsReconciliation:
	case model.BatchStatusPending:
		if age := c.now().Sub(batch.CreatedAt); age < c.staleAfter() {
			return fmt.Errorf("%w: pending for only %s", ErrBatchNotReconcilable, age.Round(time.Second))
		}
	default:
		return fmt.Errorf("%w: batch is %s", ErrBatchNotReconcilable, batch.Status)
	}

	if err := c.compensator().Compensate(context.WithoutCancel(ctx), batch); err != nil {
		return fmt.Errorf("reconciling batch %s: %w", batch.ID, err)
	}

	c.Metrics.outcome(OutcomeCompensated)
	c.logger().Info("batch reconciled", "batch", batch.ID)
	return nil
}

func (c *Coordinator) compensator() *Compensator {
	if c.Compensator != nil {
		return c.Compensator
	}
	return &Compensator{Store: c.Store, Logger: c.Logger, Metrics: c.Metrics}
}

func (c *Coordinator) maxBatchSize() int {
	if c.MaxBatchSize > 0 {
		return c.MaxBatchSize
	}
	return DefaultMaxBatchSize
}

func (c *Coordinator) staleAfter() time.Duration {
	if c.StaleAfter > 0 {
		return c.StaleAfter
	}
	return DefaultStaleAfter
}

func (c *Coordinator) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func (c *Coordinator) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}
