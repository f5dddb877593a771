package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/erazemk/skrbnik/internal/db"
	"github.com/erazemk/skrbnik/internal/model"
	"github.com/erazemk/skrbnik/internal/store"
	"github.com/erazemk/skrbnik/internal/transfer"
)

// BatchesHandler handles batch transfer and batch inspection endpoints.
type BatchesHandler struct {
	DB        *db.DB
	Transfers *transfer.Coordinator
}

type batchTransferRequest struct {
	ToolIDs          []string               `json:"tool_ids"`
	FromUserID       string                 `json:"from_user_id"`
	ToUserID         string                 `json:"to_user_id"`
	Location         string                 `json:"location"`
	StoredAt         string                 `json:"stored_at"`
	Notes            string                 `json:"notes"`
	ChecklistReports []transfer.ReportInput `json:"checklist_reports"`
}

type batchTransferResponse struct {
	Success             bool                 `json:"success"`
	Batch               *model.TransferBatch `json:"batch"`
	TransactionsCreated int                  `json:"transactions_created"`
}

// Transfer handles POST /api/transfers/batch.
func (h *BatchesHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req batchTransferRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	claims := GetClaims(r.Context())
	res, err := h.Transfers.Transfer(r.Context(), transfer.Request{
		CompanyID:   claims.CompanyID,
		RequesterID: claims.UserID,
		ToolIDs:     req.ToolIDs,
		FromUserID:  strings.TrimSpace(req.FromUserID),
		ToUserID:    strings.TrimSpace(req.ToUserID),
		Location:    strings.TrimSpace(req.Location),
		StoredAt:    strings.TrimSpace(req.StoredAt),
		Notes:       req.Notes,
		Reports:     req.ChecklistReports,
	})
	if err != nil {
		writeTransferError(w, err)
		return
	}

	slog.Info("batch transfer", "user", claims.Username,
		"batch", res.Batch.ID, "tools", res.TransactionsCreated, "to", res.Batch.ToUserID)
	jsonResponse(w, http.StatusOK, batchTransferResponse{
		Success:             true,
		Batch:               res.Batch,
		TransactionsCreated: res.TransactionsCreated,
	})
}

// List handles GET /api/batches.
func (h *BatchesHandler) List(w http.ResponseWriter, r *http.Request) {
	status := model.BatchStatus(r.URL.Query().Get("status"))
	if status != "" && !status.Valid() {
		jsonError(w, http.StatusBadRequest, "invalid status")
		return
	}

	claims := GetClaims(r.Context())
	batches, err := store.ListBatches(r.Context(), h.DB, claims.CompanyID, status)
	if err != nil {
		slog.Error("failed to list batches", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list batches")
		return
	}
	jsonResponse(w, http.StatusOK, emptyIfNil(batches))
}

// Get handles GET /api/batches/{id}: the batch with its ledger rows and
// condition reports.
func (h *BatchesHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	batch, err := store.GetBatch(r.Context(), h.DB, claims.CompanyID, r.PathValue("id"))
	if err != nil {
		slog.Error("failed to get batch", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get batch")
		return
	}
	if batch == nil {
		jsonError(w, http.StatusNotFound, "batch not found")
		return
	}

	transactions, err := store.ListBatchTransactions(r.Context(), h.DB, batch.ID)
	if err != nil {
		slog.Error("failed to list batch transactions", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get batch")
		return
	}
	reports, err := store.ListBatchConditionReports(r.Context(), h.DB, batch.ID)
	if err != nil {
		slog.Error("failed to list batch reports", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get batch")
		return
	}

	jsonResponse(w, http.StatusOK, map[string]any{
		"batch":        batch,
		"transactions": emptyIfNil(transactions),
		"reports":      emptyIfNil(reports),
	})
}

// Reconcile handles POST /api/batches/{id}/reconcile.
func (h *BatchesHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	id := r.PathValue("id")

	if err := h.Transfers.Reconcile(r.Context(), claims.CompanyID, id); err != nil {
		writeTransferError(w, err)
		return
	}

	slog.Info("batch reconciled", "user", claims.Username, "batch", id)
	jsonResponse(w, http.StatusOK, map[string]any{"success": true})
}

// writeTransferError maps transfer engine errors to status codes.
func writeTransferError(w http.ResponseWriter, err error) {
	var writeErr *transfer.WriteError
	switch {
	case errors.Is(err, transfer.ErrInvalidInput):
		jsonError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, transfer.ErrToolNotFound),
		errors.Is(err, transfer.ErrDestinationUserNotFound),
		errors.Is(err, transfer.ErrSourceUserNotFound),
		errors.Is(err, transfer.ErrBatchNotFound):
		jsonError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrCustodyConflict),
		errors.Is(err, transfer.ErrBatchNotReconcilable):
		jsonError(w, http.StatusConflict, err.Error())
	case errors.As(err, &writeErr):
		jsonError(w, http.StatusBadRequest, err.Error())
	default:
		slog.Error("batch operation failed", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
	}
}
