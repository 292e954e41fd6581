package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/mergetab/mergetab-engine/pkg/models"
	"github.com/mergetab/mergetab-engine/pkg/services"
)

// SearchResponse for GET /api/search
type SearchResponse struct {
	Rows  []*models.DataRow `json:"rows"`
	Total int               `json:"total"`
}

// SearchHandler handles full-text row search requests.
type SearchHandler struct {
	search services.SearchService
	logger *zap.Logger
}

// NewSearchHandler creates a new search handler.
func NewSearchHandler(search services.SearchService, logger *zap.Logger) *SearchHandler {
	return &SearchHandler{search: search, logger: logger}
}

// RegisterRoutes registers the search handler's routes on the given mux.
func (h *SearchHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/search", h.Search)
}

// Search handles GET /api/search?q=term
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	term := r.URL.Query().Get("q")
	if term == "" {
		if err := ErrorResponse(w, http.StatusBadRequest, "validation_error", "Query parameter q is required"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	rows, err := h.search.Search(r.Context(), term, queryInt(r, "limit", 0))
	if err != nil {
		WriteServiceError(w, err, "search_failed", h.logger)
		return
	}

	response := SearchResponse{Rows: rows, Total: len(rows)}
	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: response}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
