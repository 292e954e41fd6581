package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/mergetab/mergetab-engine/pkg/services"
)

// MaintenanceHandler exposes administrative operations.
type MaintenanceHandler struct {
	grouping services.GroupingService
	logger   *zap.Logger
}

// NewMaintenanceHandler creates a new maintenance handler.
func NewMaintenanceHandler(grouping services.GroupingService, logger *zap.Logger) *MaintenanceHandler {
	return &MaintenanceHandler{grouping: grouping, logger: logger}
}

// RegisterRoutes registers the maintenance handler's routes on the given mux.
func (h *MaintenanceHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/maintenance/reconcile", h.Reconcile)
}

// Reconcile handles POST /api/maintenance/reconcile. Merges groups that
// ended up sharing a schema fingerprint.
func (h *MaintenanceHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	report, err := h.grouping.ReconcileDuplicates(r.Context())
	if err != nil {
		h.logger.Error("Reconciliation failed", zap.Error(err))
		WriteServiceError(w, err, "reconcile_failed", h.logger)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: report}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
