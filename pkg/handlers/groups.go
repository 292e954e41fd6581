package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/mergetab/mergetab-engine/pkg/models"
	"github.com/mergetab/mergetab-engine/pkg/services"
)

// RenameGroupRequest for PUT /api/groups/{gid}
type RenameGroupRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// GroupListResponse for GET /api/groups
type GroupListResponse struct {
	Groups []*models.TableGroup `json:"groups"`
	Total  int                  `json:"total"`
}

// GroupsHandler handles table group HTTP requests.
type GroupsHandler struct {
	tables services.TableService
	naming services.NamingService
	logger *zap.Logger
}

// NewGroupsHandler creates a new groups handler.
func NewGroupsHandler(tables services.TableService, naming services.NamingService, logger *zap.Logger) *GroupsHandler {
	return &GroupsHandler{tables: tables, naming: naming, logger: logger}
}

// RegisterRoutes registers the groups handler's routes on the given mux.
func (h *GroupsHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/groups", h.List)
	mux.HandleFunc("GET /api/groups/{gid}", h.Get)
	mux.HandleFunc("PUT /api/groups/{gid}", h.Rename)
	mux.HandleFunc("DELETE /api/groups/{gid}", h.Delete)
	mux.HandleFunc("GET /api/groups/{gid}/mappings", h.ListMappings)
	mux.HandleFunc("POST /api/mappings/{mid}/confirm", h.ConfirmMapping)
	mux.HandleFunc("POST /api/groups/{gid}/ai-name", h.SuggestName)
}

// List handles GET /api/groups
func (h *GroupsHandler) List(w http.ResponseWriter, r *http.Request) {
	groups, err := h.tables.ListGroups(r.Context())
	if err != nil {
		h.logger.Error("Failed to list groups", zap.Error(err))
		WriteServiceError(w, err, "list_groups_failed", h.logger)
		return
	}

	response := GroupListResponse{Groups: groups, Total: len(groups)}
	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: response}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Get handles GET /api/groups/{gid}
func (h *GroupsHandler) Get(w http.ResponseWriter, r *http.Request) {
	groupID, ok := ParsePathUUID(w, r, "gid", h.logger)
	if !ok {
		return
	}

	detail, err := h.tables.GetGroup(r.Context(), groupID)
	if err != nil {
		WriteServiceError(w, err, "get_group_failed", h.logger)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: detail}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Rename handles PUT /api/groups/{gid}
func (h *GroupsHandler) Rename(w http.ResponseWriter, r *http.Request) {
	groupID, ok := ParsePathUUID(w, r, "gid", h.logger)
	if !ok {
		return
	}

	var req RenameGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		if err := ErrorResponse(w, http.StatusBadRequest, "validation_error", "Group name is required"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := h.tables.RenameGroup(r.Context(), groupID, req.Name, req.Description); err != nil {
		h.logger.Error("Failed to rename group",
			zap.String("group_id", groupID.String()),
			zap.Error(err))
		WriteServiceError(w, err, "rename_group_failed", h.logger)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Delete handles DELETE /api/groups/{gid}
func (h *GroupsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	groupID, ok := ParsePathUUID(w, r, "gid", h.logger)
	if !ok {
		return
	}

	if err := h.tables.DeleteGroup(r.Context(), groupID); err != nil {
		WriteServiceError(w, err, "delete_group_failed", h.logger)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// ListMappings handles GET /api/groups/{gid}/mappings
func (h *GroupsHandler) ListMappings(w http.ResponseWriter, r *http.Request) {
	groupID, ok := ParsePathUUID(w, r, "gid", h.logger)
	if !ok {
		return
	}

	mappings, err := h.tables.ListMappings(r.Context(), groupID)
	if err != nil {
		WriteServiceError(w, err, "list_mappings_failed", h.logger)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: mappings}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// ConfirmMapping handles POST /api/mappings/{mid}/confirm
func (h *GroupsHandler) ConfirmMapping(w http.ResponseWriter, r *http.Request) {
	mappingID, ok := ParsePathUUID(w, r, "mid", h.logger)
	if !ok {
		return
	}

	if err := h.tables.ConfirmMapping(r.Context(), mappingID); err != nil {
		WriteServiceError(w, err, "confirm_mapping_failed", h.logger)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// SuggestName handles POST /api/groups/{gid}/ai-name
func (h *GroupsHandler) SuggestName(w http.ResponseWriter, r *http.Request) {
	groupID, ok := ParsePathUUID(w, r, "gid", h.logger)
	if !ok {
		return
	}

	detail, err := h.tables.GetGroup(r.Context(), groupID)
	if err != nil {
		WriteServiceError(w, err, "get_group_failed", h.logger)
		return
	}

	columns := make([]string, 0, len(detail.Columns))
	for _, c := range detail.Columns {
		columns = append(columns, c.ColumnName)
	}

	suggestion, err := h.naming.SuggestName(r.Context(), groupID, columns)
	if err != nil {
		h.logger.Error("Failed to suggest group name",
			zap.String("group_id", groupID.String()),
			zap.Error(err))
		WriteServiceError(w, err, "suggest_name_failed", h.logger)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: suggestion}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
