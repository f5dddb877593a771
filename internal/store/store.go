package store

import (
	"context"

	"github.com/erazemk/skrbnik/internal/db"
	"github.com/erazemk/skrbnik/internal/model"
)

// Store binds the package functions to one database handle, for callers
// that depend on an interface rather than on *db.DB.
type Store struct {
	DB *db.DB
}

// New returns a Store over d.
func New(d *db.DB) *Store {
	return &Store{DB: d}
}

func (s *Store) ToolsByID(ctx context.Context, companyID string, ids []string) ([]model.Tool, error) {
	return GetToolsByIDs(ctx, s.DB, companyID, ids)
}

func (s *Store) CompanyUser(ctx context.Context, companyID, id string) (*model.User, error) {
	return GetCompanyUser(ctx, s.DB, companyID, id)
}

func (s *Store) ChecklistItems(ctx context.Context, companyID string, toolIDs []string) ([]model.ChecklistItem, error) {
	return ListChecklistItems(ctx, s.DB, companyID, toolIDs)
}

func (s *Store) LookupLocation(ctx context.Context, companyID, alias string) (string, bool, error) {
	return LookupLocation(ctx, s.DB, companyID, alias)
}

func (s *Store) GetBatch(ctx context.Context, companyID, id string) (*model.TransferBatch, error) {
	return GetBatch(ctx, s.DB, companyID, id)
}

func (s *Store) CreateBatch(ctx context.Context, b *model.TransferBatch) error {
	return CreateBatch(ctx, s.DB, b)
}

func (s *Store) SetBatchStatus(ctx context.Context, id string, status model.BatchStatus) error {
	return SetBatchStatus(ctx, s.DB, id, status)
}

func (s *Store) DeleteBatch(ctx context.Context, id string) error {
	return DeleteBatch(ctx, s.DB, id)
}

func (s *Store) CreateTransaction(ctx context.Context, rec *model.TransactionRecord) error {
	return CreateTransaction(ctx, s.DB, rec)
}

func (s *Store) DeleteBatchTransactions(ctx context.Context, batchID string) (int64, error) {
	return DeleteBatchTransactions(ctx, s.DB, batchID)
}

func (s *Store) CreateConditionReport(ctx context.Context, r *model.ConditionReport) error {
	return CreateConditionReport(ctx, s.DB, r)
}

func (s *Store) DeleteBatchConditionReports(ctx context.Context, batchID string) (int64, error) {
	return DeleteBatchConditionReports(ctx, s.DB, batchID)
}

func (s *Store) AssignCustody(ctx context.Context, toolID, custodianID, batchID string, expectedVersion int64) error {
	return AssignCustody(ctx, s.DB, toolID, custodianID, batchID, expectedVersion)
}

func (s *Store) RestoreCustody(ctx context.Context, toolID string, prior *string, batchID string, assignedVersion int64) (bool, error) {
	return RestoreCustody(ctx, s.DB, toolID, prior, batchID, assignedVersion)
}
