package transfer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/erazemk/skrbnik/internal/model"
)

// Compensation steps, used in logs and metrics.
const (
	StepDeleteReports      = "delete_reports"
	StepDeleteTransactions = "delete_transactions"
	StepRestoreCustody     = "restore_custody"
	StepDeleteBatch        = "delete_batch"
	StepMarkBatch          = "mark_batch"
)

// Defaults for Compensator retries.
const (
	DefaultMaxTries        = 4
	DefaultInitialInterval = 50 * time.Millisecond
)

// Compensator unwinds a failed batch. Every step is idempotent, so it may be
// run again for a batch it could not finish.
type Compensator struct {
	Store   Store
	Logger  *slog.Logger
	Metrics *Metrics

	// MaxTries bounds the attempts per step. Zero means DefaultMaxTries.
	MaxTries uint
	// InitialInterval is the first retry delay. Zero means
	// DefaultInitialInterval.
	InitialInterval time.Duration
}

// Compensate deletes the batch's reports and ledger rows, restores custody
// from the batch snapshot and finally deletes the batch. Every step runs even
// when an earlier one failed. If anything remains undone the batch is kept
// and marked needs_reconciliation, and the step errors are returned.
func (c *Compensator) Compensate(ctx context.Context, batch *model.TransferBatch) error {
	var errs []error

	if err := c.step(ctx, batch.ID, StepDeleteReports, func() error {
		_, err := c.Store.DeleteBatchConditionReports(ctx, batch.ID)
		return err
	}); err != nil {
		errs = append(errs, err)
	}

	if err := c.step(ctx, batch.ID, StepDeleteTransactions, func() error {
		_, err := c.Store.DeleteBatchTransactions(ctx, batch.ID)
		return err
	}); err != nil {
		errs = append(errs, err)
	}

	for _, snap := range batch.Snapshot {
		if err := c.step(ctx, batch.ID, StepRestoreCustody, func() error {
			_, err := c.Store.RestoreCustody(ctx, snap.ToolID, snap.CustodianID, batch.ID, snap.Version+1)
			if err != nil {
				return fmt.Errorf("tool %s: %w", snap.ToolID, err)
			}
			return nil
		}); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) == 0 {
		err := c.step(ctx, batch.ID, StepDeleteBatch, func() error {
			return c.Store.DeleteBatch(ctx, batch.ID)
		})
		if err == nil {
			return nil
		}
		errs = append(errs, err)
	}

	if err := c.step(ctx, batch.ID, StepMarkBatch, func() error {
		return c.Store.SetBatchStatus(ctx, batch.ID, model.BatchStatusNeedsReconciliation)
	}); err != nil {
		errs = append(errs, err)
	} else {
		batch.Status = model.BatchStatusNeedsReconciliation
	}

	return errors.Join(errs...)
}

// step runs fn with retries and logs the final failure.
func (c *Compensator) step(ctx context.Context, batchID, name string, fn func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.initialInterval()

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, fn()
	}, backoff.WithBackOff(b), backoff.WithMaxTries(c.maxTries()))
	if err != nil {
		c.logger().Error("compensation step failed", "batch", batchID, "step", name, "error", err)
		c.Metrics.stepFailed(name)
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

func (c *Compensator) maxTries() uint {
	if c.MaxTries > 0 {
		return c.MaxTries
	}
	return DefaultMaxTries
}

func (c *Compensator) initialInterval() time.Duration {
	if c.InitialInterval > 0 {
		return c.InitialInterval
	}
	return DefaultInitialInterval
}

func (c *Compensator) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}
