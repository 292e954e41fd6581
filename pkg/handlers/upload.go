package handlers

import (
	"errors"
	"net/http"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/mergetab/mergetab-engine/pkg/apperrors"
	"github.com/mergetab/mergetab-engine/pkg/config"
	"github.com/mergetab/mergetab-engine/pkg/logging"
	"github.com/mergetab/mergetab-engine/pkg/services"
)

// UploadHandler accepts spreadsheet uploads.
type UploadHandler struct {
	ingestion services.IngestionService
	cfg       config.UploadConfig
	logger    *zap.Logger
}

// NewUploadHandler creates a new upload handler.
func NewUploadHandler(ingestion services.IngestionService, cfg config.UploadConfig, logger *zap.Logger) *UploadHandler {
	return &UploadHandler{ingestion: ingestion, cfg: cfg, logger: logger}
}

// RegisterRoutes registers the upload handler's routes on the given mux.
func (h *UploadHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/upload", h.Upload)
}

// Upload handles POST /api/upload. Expects a multipart form with the
// workbook in the "file" field.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxFileSizeBytes())

	if err := r.ParseMultipartForm(h.cfg.MaxFileSizeBytes()); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			WriteServiceError(w, apperrors.ErrFileTooLarge, "file_too_large", h.logger)
			return
		}
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_form", "Invalid multipart form"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "missing_file", "No file in request"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}
	defer file.Close()

	filename := filepath.Base(header.Filename)
	if !strings.HasSuffix(strings.ToLower(filename), ".xlsx") {
		if err := ErrorResponse(w, http.StatusBadRequest, "unsupported_format", "Only .xlsx files are supported"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	result, err := h.ingestion.ProcessUpload(r.Context(), filename, file)
	if err != nil {
		h.logger.Error("Upload failed",
			zap.String("filename", logging.SanitizeField(filename)),
			zap.Error(err))
		WriteServiceError(w, err, "upload_failed", h.logger)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: result}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
