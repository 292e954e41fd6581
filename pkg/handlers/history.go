package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/mergetab/mergetab-engine/pkg/services"
)

// HistoryHandler exposes upload history and aggregate statistics.
type HistoryHandler struct {
	stats  services.StatsService
	logger *zap.Logger
}

// NewHistoryHandler creates a new history handler.
func NewHistoryHandler(stats services.StatsService, logger *zap.Logger) *HistoryHandler {
	return &HistoryHandler{stats: stats, logger: logger}
}

// RegisterRoutes registers the history handler's routes on the given mux.
func (h *HistoryHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/history", h.History)
	mux.HandleFunc("GET /api/stats", h.Stats)
}

// History handles GET /api/history
func (h *HistoryHandler) History(w http.ResponseWriter, r *http.Request) {
	records, err := h.stats.History(r.Context(), queryInt(r, "limit", 0))
	if err != nil {
		WriteServiceError(w, err, "list_history_failed", h.logger)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: records}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Stats handles GET /api/stats
func (h *HistoryHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.stats.Stats(r.Context())
	if err != nil {
		WriteServiceError(w, err, "get_stats_failed", h.logger)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: stats}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
