package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/mergetab/mergetab-engine/pkg/services"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExportHandler serves xlsx downloads of merged tables.
type ExportHandler struct {
	export services.ExportService
	logger *zap.Logger
}

// NewExportHandler creates a new export handler.
func NewExportHandler(export services.ExportService, logger *zap.Logger) *ExportHandler {
	return &ExportHandler{export: export, logger: logger}
}

// RegisterRoutes registers the export handler's routes on the given mux.
func (h *ExportHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/groups/{gid}/export", h.ExportGroup)
	mux.HandleFunc("GET /api/export", h.ExportAll)
}

// ExportGroup handles GET /api/groups/{gid}/export
func (h *ExportHandler) ExportGroup(w http.ResponseWriter, r *http.Request) {
	groupID, ok := ParsePathUUID(w, r, "gid", h.logger)
	if !ok {
		return
	}

	buf, name, err := h.export.ExportGroup(r.Context(), groupID)
	if err != nil {
		h.logger.Error("Failed to export group",
			zap.String("group_id", groupID.String()),
			zap.Error(err))
		WriteServiceError(w, err, "export_group_failed", h.logger)
		return
	}

	writeWorkbook(w, buf.Bytes(), name)
}

// ExportAll handles GET /api/export
func (h *ExportHandler) ExportAll(w http.ResponseWriter, r *http.Request) {
	buf, err := h.export.ExportAll(r.Context())
	if err != nil {
		h.logger.Error("Failed to export workbook", zap.Error(err))
		WriteServiceError(w, err, "export_failed", h.logger)
		return
	}

	writeWorkbook(w, buf.Bytes(), "merged_tables")
}

func writeWorkbook(w http.ResponseWriter, data []byte, name string) {
	filename := sanitizeFilename(name) + ".xlsx"
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, filename))
	w.Header().Set("Content-Length", fmt.Sprintf("%d", len(data)))
	w.Write(data)
}

// sanitizeFilename strips characters that break Content-Disposition or
// filesystems.
func sanitizeFilename(name string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', '\n', '\r':
			return '_'
		}
		return r
	}, strings.TrimSpace(name))

	if cleaned == "" {
		return "export"
	}
	return cleaned
}
