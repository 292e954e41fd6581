package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/mergetab/mergetab-engine/pkg/services"
)

// AddColumnRequest for POST /api/groups/{gid}/columns. Position -1 appends.
type AddColumnRequest struct {
	Name     string `json:"name"`
	Position *int   `json:"position,omitempty"`
}

// RenameColumnRequest for PUT /api/groups/{gid}/columns/{col}
type RenameColumnRequest struct {
	NewName string `json:"new_name"`
}

// ColumnsHandler handles schema editing HTTP requests.
type ColumnsHandler struct {
	tables services.TableService
	logger *zap.Logger
}

// NewColumnsHandler creates a new columns handler.
func NewColumnsHandler(tables services.TableService, logger *zap.Logger) *ColumnsHandler {
	return &ColumnsHandler{tables: tables, logger: logger}
}

// RegisterRoutes registers the columns handler's routes on the given mux.
func (h *ColumnsHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/groups/{gid}/columns", h.Add)
	mux.HandleFunc("PUT /api/groups/{gid}/columns/{col}", h.Rename)
	mux.HandleFunc("DELETE /api/groups/{gid}/columns/{col}", h.Retire)
}

// Add handles POST /api/groups/{gid}/columns
func (h *ColumnsHandler) Add(w http.ResponseWriter, r *http.Request) {
	groupID, ok := ParsePathUUID(w, r, "gid", h.logger)
	if !ok {
		return
	}

	var req AddColumnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		if err := ErrorResponse(w, http.StatusBadRequest, "validation_error", "Column name is required"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	position := -1
	if req.Position != nil {
		position = *req.Position
	}

	col, err := h.tables.AddColumn(r.Context(), groupID, req.Name, position)
	if err != nil {
		h.logger.Error("Failed to add column",
			zap.String("group_id", groupID.String()),
			zap.Error(err))
		WriteServiceError(w, err, "add_column_failed", h.logger)
		return
	}

	if err := WriteJSON(w, http.StatusCreated, ApiResponse{Success: true, Data: col}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Rename handles PUT /api/groups/{gid}/columns/{col}
func (h *ColumnsHandler) Rename(w http.ResponseWriter, r *http.Request) {
	groupID, ok := ParsePathUUID(w, r, "gid", h.logger)
	if !ok {
		return
	}
	oldName := r.PathValue("col")

	var req RenameColumnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	req.NewName = strings.TrimSpace(req.NewName)
	if req.NewName == "" {
		if err := ErrorResponse(w, http.StatusBadRequest, "validation_error", "New column name is required"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := h.tables.RenameColumn(r.Context(), groupID, oldName, req.NewName); err != nil {
		h.logger.Error("Failed to rename column",
			zap.String("group_id", groupID.String()),
			zap.Error(err))
		WriteServiceError(w, err, "rename_column_failed", h.logger)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Retire handles DELETE /api/groups/{gid}/columns/{col}
func (h *ColumnsHandler) Retire(w http.ResponseWriter, r *http.Request) {
	groupID, ok := ParsePathUUID(w, r, "gid", h.logger)
	if !ok {
		return
	}
	name := r.PathValue("col")

	if err := h.tables.RetireColumn(r.Context(), groupID, name); err != nil {
		h.logger.Error("Failed to retire column",
			zap.String("group_id", groupID.String()),
			zap.Error(err))
		WriteServiceError(w, err, "retire_column_failed", h.logger)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
