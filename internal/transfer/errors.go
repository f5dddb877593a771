package transfer

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput marks a malformed request. Nothing was read or written.
	ErrInvalidInput = errors.New("invalid input")

	// ErrToolNotFound is returned when a tool is unknown, deleted or belongs
	// to another company.
	ErrToolNotFound = errors.New("tool not found")

	// ErrDestinationUserNotFound is returned when the receiving user is not a
	// member of the company.
	ErrDestinationUserNotFound = errors.New("destination user not found")

	// ErrSourceUserNotFound is returned when an explicit source user is not a
	// member of the company.
	ErrSourceUserNotFound = errors.New("source user not found")

	// ErrChecklistItemMismatch is returned when a condition report targets a
	// checklist item that does not belong to the reported tool.
	ErrChecklistItemMismatch = fmt.Errorf("%w: checklist item does not belong to tool", ErrInvalidInput)

	// ErrBatchNotFound is returned by Reconcile for unknown batches.
	ErrBatchNotFound = errors.New("batch not found")

	// ErrBatchNotReconcilable is returned by Reconcile for committed batches
	// and for pending batches that may still be in flight.
	ErrBatchNotReconcilable = errors.New("batch cannot be reconciled")
)

// WriteError reports a failure after the batch anchor was written.
// Compensation has already run when it is returned; Compensated tells
// whether it fully undid the batch.
type WriteError struct {
	BatchID     string
	Err         error
	Compensated bool
}

func (e *WriteError) Error() string {
	return e.Err.Error()
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
