package transfer

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/skrbnik/internal/location"
	"github.com/erazemk/skrbnik/internal/model"
	"github.com/erazemk/skrbnik/internal/store"
)

func TestTransferCommitsBatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	drill := f.tool(t, f.acme.ID, "Drill", f.alice)
	saw := f.tool(t, f.acme.ID, "Saw", f.bob)
	level := f.tool(t, f.acme.ID, "Level", nil)

	res, err := f.coord.Transfer(ctx, f.request(f.carol, drill, saw, level))
	require.NoError(t, err)
	assert.Equal(t, 3, res.TransactionsCreated)
	assert.Equal(t, model.BatchStatusCommitted, res.Batch.Status)

	stored, err := store.GetBatch(ctx, f.db, f.acme.ID, res.Batch.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, model.BatchStatusCommitted, stored.Status)
	assert.Len(t, stored.Snapshot, 3)

	for _, tool := range []*model.Tool{drill, saw, level} {
		got := f.reload(t, tool)
		require.NotNil(t, got.CustodianID)
		assert.Equal(t, f.carol.ID, *got.CustodianID, tool.Name)
		assert.Equal(t, tool.Version+1, got.Version, tool.Name)
	}

	records, err := store.ListBatchTransactions(ctx, f.db, res.Batch.ID)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, drill.ID, records[0].ToolID)
	assert.Equal(t, f.alice.ID, *records[0].FromUserID)
	assert.Equal(t, saw.ID, records[1].ToolID)
	assert.Equal(t, f.bob.ID, *records[1].FromUserID)
	assert.Equal(t, level.ID, records[2].ToolID)
	assert.Nil(t, records[2].FromUserID)
	for _, r := range records {
		assert.Equal(t, f.carol.ID, r.ToUserID)
		assert.Equal(t, "Main Warehouse", r.Location)
		assert.Equal(t, "Shelf B", r.StoredAt)
	}

	assert.Equal(t, 1.0, testutil.ToFloat64(f.coord.Metrics.Batches.WithLabelValues(OutcomeCommitted)))
}

func TestTransferFromIsolation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// The first tool moves to bob, who already holds the second one. The
	// second tool's "from" must still be bob's pre-batch custody, and the
	// first tool's write must not leak into anything else.
	first := f.tool(t, f.acme.ID, "First", f.alice)
	second := f.tool(t, f.acme.ID, "Second", f.carol)

	res, err := f.coord.Transfer(ctx, f.request(f.bob, first, second))
	require.NoError(t, err)

	records, err := store.ListBatchTransactions(ctx, f.db, res.Batch.ID)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, f.alice.ID, *records[0].FromUserID)
	assert.Equal(t, f.carol.ID, *records[1].FromUserID)
}

func TestTransferExplicitSource(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	drill := f.tool(t, f.acme.ID, "Drill", f.alice)
	saw := f.tool(t, f.acme.ID, "Saw", nil)

	req := f.request(f.carol, drill, saw)
	req.FromUserID = f.bob.ID
	res, err := f.coord.Transfer(ctx, req)
	require.NoError(t, err)
	require.NotNil(t, res.Batch.FromUserID)
	assert.Equal(t, f.bob.ID, *res.Batch.FromUserID)

	records, err := store.ListBatchTransactions(ctx, f.db, res.Batch.ID)
	require.NoError(t, err)
	for _, r := range records {
		require.NotNil(t, r.FromUserID)
		assert.Equal(t, f.bob.ID, *r.FromUserID)
	}
}

func TestTransferTrimsUserIDs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	drill := f.tool(t, f.acme.ID, "Drill", f.alice)

	req := f.request(f.carol, drill)
	req.ToUserID = "  " + f.carol.ID + "\t"
	req.FromUserID = " " + f.bob.ID + " "
	res, err := f.coord.Transfer(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, f.carol.ID, res.Batch.ToUserID)
	require.NotNil(t, res.Batch.FromUserID)
	assert.Equal(t, f.bob.ID, *res.Batch.FromUserID)
	assert.Equal(t, f.carol.ID, *f.reload(t, drill).CustodianID)

	// A blank source means "take it from whoever holds it".
	saw := f.tool(t, f.acme.ID, "Saw", f.alice)
	req = f.request(f.bob, saw)
	req.FromUserID = "   "
	res, err = f.coord.Transfer(ctx, req)
	require.NoError(t, err)
	assert.Nil(t, res.Batch.FromUserID)

	records, err := store.ListBatchTransactions(ctx, f.db, res.Batch.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.NotNil(t, records[0].FromUserID)
	assert.Equal(t, f.alice.ID, *records[0].FromUserID)
}

func TestTransferDeduplicatesToolIDs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	drill := f.tool(t, f.acme.ID, "Drill", nil)
	saw := f.tool(t, f.acme.ID, "Saw", nil)

	req := f.request(f.bob, drill, saw)
	req.ToolIDs = []string{saw.ID, drill.ID, saw.ID, " " + drill.ID + " "}
	res, err := f.coord.Transfer(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 2, res.TransactionsCreated)

	records, err := store.ListBatchTransactions(ctx, f.db, res.Batch.ID)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, saw.ID, records[0].ToolID)
	assert.Equal(t, drill.ID, records[1].ToolID)
	assert.Equal(t, int64(1), f.reload(t, saw).Version)
}

func TestTransferRejectsInvalidInput(t *testing.T) {
	f := newFixture(t)
	f.coord.MaxBatchSize = 2

	drill := f.tool(t, f.acme.ID, "Drill", nil)
	saw := f.tool(t, f.acme.ID, "Saw", nil)
	level := f.tool(t, f.acme.ID, "Level", nil)
	item, err := store.CreateChecklistItem(context.Background(), f.db, f.acme.ID, drill.ID, "Chuck key")
	require.NoError(t, err)

	tests := map[string]func(r *Request){
		"no tools":         func(r *Request) { r.ToolIDs = nil },
		"empty tool id":    func(r *Request) { r.ToolIDs = append(r.ToolIDs, "  ") },
		"too many tools":   func(r *Request) { r.ToolIDs = []string{drill.ID, saw.ID, level.ID} },
		"no destination":   func(r *Request) { r.ToUserID = "" },
		"no location":      func(r *Request) { r.Location = "  " },
		"no storage":       func(r *Request) { r.StoredAt = "" },
		"report no item":   func(r *Request) { r.Reports = []ReportInput{{ToolID: drill.ID, Status: "defect"}} },
		"report bad status": func(r *Request) {
			r.Reports = []ReportInput{{ToolID: drill.ID, ChecklistItemID: item.ID, Status: "scratched"}}
		},
		"report tool outside batch": func(r *Request) {
			r.Reports = []ReportInput{{ToolID: level.ID, ChecklistItemID: item.ID, Status: "defect"}}
		},
	}

	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			req := f.request(f.bob, drill, saw)
			mutate(&req)
			_, err := f.coord.Transfer(context.Background(), req)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}

	assert.Zero(t, f.count(t, `SELECT COUNT(*) FROM transfer_batches`))
	assert.Zero(t, f.store.callCount("CreateBatch"))
	assert.Equal(t, float64(len(tests)), testutil.ToFloat64(f.coord.Metrics.Batches.WithLabelValues(OutcomeRejected)))
}

func TestTransferRejectsCrossTenantReferences(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	drill := f.tool(t, f.acme.ID, "Drill", f.alice)
	foreign := f.tool(t, f.globex.ID, "Foreign", f.mallory)
	saw := f.tool(t, f.acme.ID, "Saw", nil)
	deleted := f.tool(t, f.acme.ID, "Old", nil)
	require.NoError(t, store.DeleteTool(ctx, f.db, f.acme.ID, deleted.ID))

	tests := []struct {
		name string
		req  Request
		want error
	}{
		{"foreign tool", f.request(f.bob, drill, foreign, saw), ErrToolNotFound},
		{"deleted tool", f.request(f.bob, drill, deleted), ErrToolNotFound},
		{"unknown tool", func() Request {
			r := f.request(f.bob, drill)
			r.ToolIDs = append(r.ToolIDs, "no-such-tool")
			return r
		}(), ErrToolNotFound},
		{"foreign destination", f.request(f.mallory, drill, saw), ErrDestinationUserNotFound},
		{"foreign source", func() Request {
			r := f.request(f.bob, drill, saw)
			r.FromUserID = f.mallory.ID
			return r
		}(), ErrSourceUserNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.coord.Transfer(ctx, tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	assert.Zero(t, f.count(t, `SELECT COUNT(*) FROM transfer_batches`))
	assert.Zero(t, f.count(t, `SELECT COUNT(*) FROM transactions`))
	assert.Equal(t, f.alice.ID, *f.reload(t, drill).CustodianID)
	assert.Equal(t, f.mallory.ID, *f.reload(t, foreign).CustodianID)
	assert.Equal(t, drill.Version, f.reload(t, drill).Version)
}

func TestTransferRecordsConditionReports(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	drill := f.tool(t, f.acme.ID, "Drill", f.alice)
	saw := f.tool(t, f.acme.ID, "Saw", nil)
	chuck, err := store.CreateChecklistItem(ctx, f.db, f.acme.ID, drill.ID, "Chuck key")
	require.NoError(t, err)
	blade, err := store.CreateChecklistItem(ctx, f.db, f.acme.ID, saw.ID, "Blade")
	require.NoError(t, err)

	req := f.request(f.bob, drill, saw)
	req.Reports = []ReportInput{
		{ToolID: drill.ID, ChecklistItemID: chuck.ID, Status: model.ReportLabelDefect, Comments: "bent"},
		{ToolID: saw.ID, ChecklistItemID: blade.ID, Status: "NEEDS_REPLACEMENT"},
	}
	res, err := f.coord.Transfer(ctx, req)
	require.NoError(t, err)

	reports, err := store.ListBatchConditionReports(ctx, f.db, res.Batch.ID)
	require.NoError(t, err)
	require.Len(t, reports, 2)

	byTool := map[string]model.ConditionReport{}
	for _, r := range reports {
		byTool[r.ToolID] = r
	}
	assert.Equal(t, model.ReportStatusDefect, byTool[drill.ID].Status)
	assert.Equal(t, "bent", byTool[drill.ID].Comments)
	assert.Equal(t, model.ReportStatusNeedsReplacement, byTool[saw.ID].Status)

	records, err := store.ListBatchTransactions(ctx, f.db, res.Batch.ID)
	require.NoError(t, err)
	assert.Equal(t, records[0].ID, byTool[drill.ID].TransactionID)
	assert.Equal(t, records[1].ID, byTool[saw.ID].TransactionID)
}

func TestTransferRejectsChecklistItemOfAnotherTool(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	drill := f.tool(t, f.acme.ID, "Drill", nil)
	saw := f.tool(t, f.acme.ID, "Saw", nil)
	chuck, err := store.CreateChecklistItem(ctx, f.db, f.acme.ID, drill.ID, "Chuck key")
	require.NoError(t, err)
	blade, err := store.CreateChecklistItem(ctx, f.db, f.acme.ID, saw.ID, "Blade")
	require.NoError(t, err)

	req := f.request(f.bob, drill, saw)
	req.Reports = []ReportInput{
		{ToolID: drill.ID, ChecklistItemID: chuck.ID, Status: "defect"},
		{ToolID: drill.ID, ChecklistItemID: blade.ID, Status: "defect"},
	}
	_, err = f.coord.Transfer(ctx, req)
	assert.ErrorIs(t, err, ErrChecklistItemMismatch)
	assert.ErrorIs(t, err, ErrInvalidInput)

	assert.Zero(t, f.count(t, `SELECT COUNT(*) FROM condition_reports`))
	assert.Zero(t, f.count(t, `SELECT COUNT(*) FROM transfer_batches`))
}

func TestTransferNormalizesLocationOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, store.UpsertLocationAlias(ctx, f.db, f.acme.ID, "wh1", "Main Warehouse"))

	counter := &countingNormalizer{next: location.NewNormalizer(store.New(f.db))}
	f.coord.Locations = counter

	drill := f.tool(t, f.acme.ID, "Drill", nil)
	saw := f.tool(t, f.acme.ID, "Saw", nil)

	req := f.request(f.bob, drill, saw)
	req.Location = "WH1"
	res, err := f.coord.Transfer(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "Main Warehouse", res.Batch.Location)
	assert.Equal(t, 1, counter.calls)

	records, err := store.ListBatchTransactions(ctx, f.db, res.Batch.ID)
	require.NoError(t, err)
	for _, r := range records {
		assert.Equal(t, "Main Warehouse", r.Location)
	}

	req.Location = "Truck 7"
	res, err = f.coord.Transfer(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "Truck 7", res.Batch.Location)
}

type countingNormalizer struct {
	next  Normalizer
	calls int
}

func (c *countingNormalizer) Normalize(ctx context.Context, companyID, raw string) string {
	c.calls++
	return c.next.Normalize(ctx, companyID, raw)
}

func TestTransferSurvivesCallerCancellation(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	drill := f.tool(t, f.acme.ID, "Drill", nil)
	saw := f.tool(t, f.acme.ID, "Saw", nil)

	f.store.on("CreateBatch", func(int) error {
		cancel()
		return nil
	})

	res, err := f.coord.Transfer(ctx, f.request(f.bob, drill, saw))
	require.NoError(t, err)
	assert.Equal(t, 2, res.TransactionsCreated)
	assert.Equal(t, f.bob.ID, *f.reload(t, saw).CustodianID)
}

func TestReconcile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	drill := f.tool(t, f.acme.ID, "Drill", f.alice)
	created := time.Now().UTC().Add(-time.Hour)

	// A batch abandoned halfway: one ledger row and one custody write, never
	// committed.
	batch := &model.TransferBatch{
		ID:        "abandoned",
		CompanyID: f.acme.ID,
		CreatedBy: f.alice.ID,
		ToUserID:  f.bob.ID,
		Location:  "Yard",
		StoredAt:  "Rack",
		Status:    model.BatchStatusPending,
		Snapshot:  []model.CustodySnapshot{{ToolID: drill.ID, CustodianID: drill.CustodianID, Version: drill.Version}},
		CreatedAt: created,
	}
	require.NoError(t, store.CreateBatch(ctx, f.db, batch))
	require.NoError(t, store.CreateTransaction(ctx, f.db, &model.TransactionRecord{
		ID: "half", BatchID: batch.ID, CompanyID: f.acme.ID, ToolID: drill.ID,
		FromUserID: drill.CustodianID, ToUserID: f.bob.ID, Location: "Yard", StoredAt: "Rack", CreatedAt: created,
	}))
	require.NoError(t, store.AssignCustody(ctx, f.db, drill.ID, f.bob.ID, batch.ID, drill.Version))

	err := f.coord.Reconcile(ctx, f.acme.ID, "missing")
	assert.ErrorIs(t, err, ErrBatchNotFound)

	err = f.coord.Reconcile(ctx, f.globex.ID, batch.ID)
	assert.ErrorIs(t, err, ErrBatchNotFound)

	f.coord.Now = func() time.Time { return created.Add(5 * time.Minute) }
	err = f.coord.Reconcile(ctx, f.acme.ID, batch.ID)
	assert.ErrorIs(t, err, ErrBatchNotReconcilable)

	f.coord.Now = func() time.Time { return created.Add(11 * time.Minute) }
	require.NoError(t, f.coord.Reconcile(ctx, f.acme.ID, batch.ID))

	assert.Zero(t, f.count(t, `SELECT COUNT(*) FROM transfer_batches`))
	assert.Zero(t, f.count(t, `SELECT COUNT(*) FROM transactions`))
	restored := f.reload(t, drill)
	assert.Equal(t, f.alice.ID, *restored.CustodianID)
	assert.Equal(t, drill.Version+2, restored.Version)
}

func TestReconcileRejectsCommittedBatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	drill := f.tool(t, f.acme.ID, "Drill", nil)
	res, err := f.coord.Transfer(ctx, f.request(f.bob, drill))
	require.NoError(t, err)

	err = f.coord.Reconcile(ctx, f.acme.ID, res.Batch.ID)
	assert.ErrorIs(t, err, ErrBatchNotReconcilable)
	assert.Equal(t, f.bob.ID, *f.reload(t, drill).CustodianID)
}
