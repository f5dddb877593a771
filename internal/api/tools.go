package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/erazemk/skrbnik/internal/db"
	"github.com/erazemk/skrbnik/internal/model"
	"github.com/erazemk/skrbnik/internal/store"
)

// ToolsHandler handles tool CRUD, history and checklist endpoints.
type ToolsHandler struct {
	DB *db.DB
}

type createToolRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type createChecklistItemRequest struct {
	Label string `json:"label"`
}

// List handles GET /api/tools. An optional custodian_id narrows the list to
// the tools one user holds.
func (h *ToolsHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	tools, err := store.ListTools(r.Context(), h.DB, claims.CompanyID, r.URL.Query().Get("custodian_id"))
	if err != nil {
		slog.Error("failed to list tools", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list tools")
		return
	}
	jsonResponse(w, http.StatusOK, emptyIfNil(tools))
}

// Create handles POST /api/tools.
func (h *ToolsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createToolRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		jsonError(w, http.StatusBadRequest, "name required")
		return
	}

	claims := GetClaims(r.Context())
	tool, err := store.CreateTool(r.Context(), h.DB, claims.CompanyID, req.Name, req.Description)
	if err != nil {
		slog.Error("failed to create tool", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to create tool")
		return
	}

	slog.Info("tool created", "user", claims.Username, "tool", tool.Name)
	jsonResponse(w, http.StatusCreated, tool)
}

// Get handles GET /api/tools/{id}.
func (h *ToolsHandler) Get(w http.ResponseWriter, r *http.Request) {
	tool, ok := h.lookup(w, r)
	if !ok {
		return
	}

	checklist, err := store.ListChecklistItems(r.Context(), h.DB, tool.CompanyID, []string{tool.ID})
	if err != nil {
		slog.Error("failed to list checklist", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get tool checklist")
		return
	}

	jsonResponse(w, http.StatusOK, map[string]any{
		"tool":      tool,
		"checklist": emptyIfNil(checklist),
	})
}

// Delete handles DELETE /api/tools/{id}.
func (h *ToolsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	tool, ok := h.lookup(w, r)
	if !ok {
		return
	}

	if err := store.DeleteTool(r.Context(), h.DB, tool.CompanyID, tool.ID); err != nil {
		slog.Error("failed to delete tool", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to delete tool")
		return
	}

	slog.Info("tool deleted", "user", GetClaims(r.Context()).Username, "tool", tool.Name)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "tool deleted"})
}

// GetHistory handles GET /api/tools/{id}/history.
func (h *ToolsHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	tool, ok := h.lookup(w, r)
	if !ok {
		return
	}

	history, err := store.GetToolHistory(r.Context(), h.DB, tool.CompanyID, tool.ID)
	if err != nil {
		slog.Error("failed to get tool history", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get tool history")
		return
	}
	jsonResponse(w, http.StatusOK, emptyIfNil(history))
}

// ListChecklist handles GET /api/tools/{id}/checklist.
func (h *ToolsHandler) ListChecklist(w http.ResponseWriter, r *http.Request) {
	tool, ok := h.lookup(w, r)
	if !ok {
		return
	}

	items, err := store.ListChecklistItems(r.Context(), h.DB, tool.CompanyID, []string{tool.ID})
	if err != nil {
		slog.Error("failed to list checklist", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list checklist")
		return
	}
	jsonResponse(w, http.StatusOK, emptyIfNil(items))
}

// CreateChecklistItem handles POST /api/tools/{id}/checklist.
func (h *ToolsHandler) CreateChecklistItem(w http.ResponseWriter, r *http.Request) {
	tool, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var req createChecklistItemRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Label = strings.TrimSpace(req.Label)
	if req.Label == "" {
		jsonError(w, http.StatusBadRequest, "label required")
		return
	}

	item, err := store.CreateChecklistItem(r.Context(), h.DB, tool.CompanyID, tool.ID, req.Label)
	if err != nil {
		slog.Error("failed to create checklist item", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to create checklist item")
		return
	}
	jsonResponse(w, http.StatusCreated, item)
}

// lookup loads the tool named by the {id} path value within the caller's
// company, writing a 404 when there is none.
func (h *ToolsHandler) lookup(w http.ResponseWriter, r *http.Request) (*model.Tool, bool) {
	claims := GetClaims(r.Context())
	tool, err := store.GetTool(r.Context(), h.DB, claims.CompanyID, r.PathValue("id"))
	if err != nil {
		slog.Error("failed to get tool", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get tool")
		return nil, false
	}
	if tool == nil {
		jsonError(w, http.StatusNotFound, "tool not found")
		return nil, false
	}
	return tool, true
}
