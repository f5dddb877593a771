package transfer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/skrbnik/internal/db"
	"github.com/erazemk/skrbnik/internal/model"
	"github.com/erazemk/skrbnik/internal/store"
)

var errDatastore = errors.New("datastore unavailable")

// faultyStore wraps a real store and fails chosen calls. Hooks are keyed by
// method name; SetBatchStatus hooks are keyed as "SetBatchStatus:<status>".
type faultyStore struct {
	Store

	mu    sync.Mutex
	calls map[string]int
	hooks map[string]func(call int) error
}

func newFaultyStore(s Store) *faultyStore {
	return &faultyStore{Store: s, calls: map[string]int{}, hooks: map[string]func(int) error{}}
}

func (f *faultyStore) on(method string, hook func(call int) error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hooks[method] = hook
}

func (f *faultyStore) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = map[string]int{}
	f.hooks = map[string]func(int) error{}
}

func (f *faultyStore) callCount(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *faultyStore) hit(method string) error {
	f.mu.Lock()
	f.calls[method]++
	n := f.calls[method]
	hook := f.hooks[method]
	f.mu.Unlock()

	if hook == nil {
		return nil
	}
	return hook(n)
}

func failOnCall(n int) func(int) error {
	return func(call int) error {
		if call == n {
			return errDatastore
		}
		return nil
	}
}

func failFirst(n int) func(int) error {
	return func(call int) error {
		if call <= n {
			return errDatastore
		}
		return nil
	}
}

func failAlways(int) error { return errDatastore }

func (f *faultyStore) CreateBatch(ctx context.Context, b *model.TransferBatch) error {
	if err := f.hit("CreateBatch"); err != nil {
		return err
	}
	return f.Store.CreateBatch(ctx, b)
}

func (f *faultyStore) SetBatchStatus(ctx context.Context, id string, status model.BatchStatus) error {
	if err := f.hit("SetBatchStatus:" + string(status)); err != nil {
		return err
	}
	return f.Store.SetBatchStatus(ctx, id, status)
}

func (f *faultyStore) DeleteBatch(ctx context.Context, id string) error {
	if err := f.hit("DeleteBatch"); err != nil {
		return err
	}
	return f.Store.DeleteBatch(ctx, id)
}

func (f *faultyStore) CreateTransaction(ctx context.Context, rec *model.TransactionRecord) error {
	if err := f.hit("CreateTransaction"); err != nil {
		return err
	}
	return f.Store.CreateTransaction(ctx, rec)
}

func (f *faultyStore) DeleteBatchTransactions(ctx context.Context, batchID string) (int64, error) {
	if err := f.hit("DeleteBatchTransactions"); err != nil {
		return 0, err
	}
	return f.Store.DeleteBatchTransactions(ctx, batchID)
}

func (f *faultyStore) CreateConditionReport(ctx context.Context, r *model.ConditionReport) error {
	if err := f.hit("CreateConditionReport"); err != nil {
		return err
	}
	return f.Store.CreateConditionReport(ctx, r)
}

func (f *faultyStore) DeleteBatchConditionReports(ctx context.Context, batchID string) (int64, error) {
	if err := f.hit("DeleteBatchConditionReports"); err != nil {
		return 0, err
	}
	return f.Store.DeleteBatchConditionReports(ctx, batchID)
}

func (f *faultyStore) AssignCustody(ctx context.Context, toolID, custodianID, batchID string, expectedVersion int64) error {
	if err := f.hit("AssignCustody"); err != nil {
		return err
	}
	return f.Store.AssignCustody(ctx, toolID, custodianID, batchID, expectedVersion)
}

func (f *faultyStore) RestoreCustody(ctx context.Context, toolID string, prior *string, batchID string, assignedVersion int64) (bool, error) {
	if err := f.hit("RestoreCustody"); err != nil {
		return false, err
	}
	return f.Store.RestoreCustody(ctx, toolID, prior, batchID, assignedVersion)
}

type fixture struct {
	db    *db.DB
	store *faultyStore
	coord *Coordinator

	acme, globex      *model.Company
	alice, bob, carol *model.User
	mallory           *model.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	d := db.NewTestDB(t)
	ctx := context.Background()

	f := &fixture{db: d, store: newFaultyStore(store.New(d))}

	var err error
	f.acme, err = store.CreateCompany(ctx, d, "Acme")
	require.NoError(t, err)
	f.globex, err = store.CreateCompany(ctx, d, "Globex")
	require.NoError(t, err)

	f.alice = f.user(t, f.acme.ID, "alice")
	f.bob = f.user(t, f.acme.ID, "bob")
	f.carol = f.user(t, f.acme.ID, "carol")
	f.mallory = f.user(t, f.globex.ID, "mallory")

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	metrics := NewMetrics(prometheus.NewRegistry())
	f.coord = NewCoordinator(f.store, nil, metrics, logger)
	f.coord.Compensator.MaxTries = 3
	f.coord.Compensator.InitialInterval = time.Millisecond

	return f
}

func (f *fixture) user(t *testing.T, companyID, name string) *model.User {
	t.Helper()
	u, err := store.CreateUser(context.Background(), f.db, companyID, name, "hash", model.RoleUser)
	require.NoError(t, err)
	return u
}

// tool creates a tool, optionally already held by holder.
func (f *fixture) tool(t *testing.T, companyID, name string, holder *model.User) *model.Tool {
	t.Helper()
	ctx := context.Background()
	tool, err := store.CreateTool(ctx, f.db, companyID, name, "")
	require.NoError(t, err)
	if holder != nil {
		require.NoError(t, store.AssignCustody(ctx, f.db, tool.ID, holder.ID, "", tool.Version))
	}
	return f.reload(t, tool)
}

func (f *fixture) reload(t *testing.T, tool *model.Tool) *model.Tool {
	t.Helper()
	got, err := store.GetTool(context.Background(), f.db, tool.CompanyID, tool.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	return got
}

func (f *fixture) count(t *testing.T, query string, args ...any) int {
	t.Helper()
	var n int
	require.NoError(t, f.db.QueryRowContext(context.Background(), query, args...).Scan(&n))
	return n
}

func (f *fixture) request(to *model.User, tools ...*model.Tool) Request {
	ids := make([]string, len(tools))
	for i, tool := range tools {
		ids[i] = tool.ID
	}
	return Request{
		CompanyID:   f.acme.ID,
		RequesterID: f.alice.ID,
		ToolIDs:     ids,
		ToUserID:    to.ID,
		Location:    "Main Warehouse",
		StoredAt:    "Shelf B",
	}
}
