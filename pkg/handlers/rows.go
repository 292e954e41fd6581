package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/mergetab/mergetab-engine/pkg/models"
	"github.com/mergetab/mergetab-engine/pkg/services"
)

// AddRowRequest for POST /api/groups/{gid}/rows. Position -1 appends.
type AddRowRequest struct {
	Data     models.RowData `json:"data"`
	Position *int64         `json:"position,omitempty"`
}

// UpdateRowRequest for PUT /api/rows/{rid}
type UpdateRowRequest struct {
	Data models.RowData `json:"data"`
}

// RowListResponse for GET /api/groups/{gid}/rows
type RowListResponse struct {
	Rows   []*models.DataRow `json:"rows"`
	Total  int               `json:"total"`
	Limit  int               `json:"limit"`
	Offset int               `json:"offset"`
}

// RowsHandler handles row-level editing HTTP requests.
type RowsHandler struct {
	tables services.TableService
	logger *zap.Logger
}

// NewRowsHandler creates a new rows handler.
func NewRowsHandler(tables services.TableService, logger *zap.Logger) *RowsHandler {
	return &RowsHandler{tables: tables, logger: logger}
}

// RegisterRoutes registers the rows handler's routes on the given mux.
func (h *RowsHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/groups/{gid}/rows", h.List)
	mux.HandleFunc("POST /api/groups/{gid}/rows", h.Add)
	mux.HandleFunc("DELETE /api/groups/{gid}/rows", h.Clear)
	mux.HandleFunc("PUT /api/rows/{rid}", h.Update)
	mux.HandleFunc("DELETE /api/rows/{rid}", h.Delete)
}

// List handles GET /api/groups/{gid}/rows with optional limit/offset query
// parameters.
func (h *RowsHandler) List(w http.ResponseWriter, r *http.Request) {
	groupID, ok := ParsePathUUID(w, r, "gid", h.logger)
	if !ok {
		return
	}

	limit := queryInt(r, "limit", 100)
	offset := queryInt(r, "offset", 0)

	rows, total, err := h.tables.ListRows(r.Context(), groupID, limit, offset)
	if err != nil {
		WriteServiceError(w, err, "list_rows_failed", h.logger)
		return
	}

	response := RowListResponse{Rows: rows, Total: total, Limit: limit, Offset: offset}
	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: response}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Add handles POST /api/groups/{gid}/rows
func (h *RowsHandler) Add(w http.ResponseWriter, r *http.Request) {
	groupID, ok := ParsePathUUID(w, r, "gid", h.logger)
	if !ok {
		return
	}

	var req AddRowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if len(req.Data) == 0 {
		if err := ErrorResponse(w, http.StatusBadRequest, "validation_error", "Row data is required"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	position := int64(-1)
	if req.Position != nil {
		position = *req.Position
	}

	row, err := h.tables.AddRow(r.Context(), groupID, req.Data, position)
	if err != nil {
		h.logger.Error("Failed to add row",
			zap.String("group_id", groupID.String()),
			zap.Error(err))
		WriteServiceError(w, err, "add_row_failed", h.logger)
		return
	}

	if err := WriteJSON(w, http.StatusCreated, ApiResponse{Success: true, Data: row}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Clear handles DELETE /api/groups/{gid}/rows
func (h *RowsHandler) Clear(w http.ResponseWriter, r *http.Request) {
	groupID, ok := ParsePathUUID(w, r, "gid", h.logger)
	if !ok {
		return
	}

	deleted, err := h.tables.ClearRows(r.Context(), groupID)
	if err != nil {
		WriteServiceError(w, err, "clear_rows_failed", h.logger)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: map[string]int64{"deleted": deleted}}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Update handles PUT /api/rows/{rid}
func (h *RowsHandler) Update(w http.ResponseWriter, r *http.Request) {
	rowID, ok := ParsePathUUID(w, r, "rid", h.logger)
	if !ok {
		return
	}

	var req UpdateRowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := h.tables.UpdateRow(r.Context(), rowID, req.Data); err != nil {
		WriteServiceError(w, err, "update_row_failed", h.logger)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Delete handles DELETE /api/rows/{rid}
func (h *RowsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	rowID, ok := ParsePathUUID(w, r, "rid", h.logger)
	if !ok {
		return
	}

	if err := h.tables.DeleteRow(r.Context(), rowID); err != nil {
		WriteServiceError(w, err, "delete_row_failed", h.logger)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

func queryInt(r *http.Request, name string, fallback int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
