package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/mergetab/mergetab-engine/pkg/apperrors"
)

func TestWriteServiceError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{apperrors.ErrNotFound, http.StatusNotFound},
		{fmt.Errorf("group: %w", apperrors.ErrNotFound), http.StatusNotFound},
		{apperrors.ErrConflict, http.StatusConflict},
		{apperrors.ErrColumnExists, http.StatusConflict},
		{apperrors.ErrNameTaken, http.StatusConflict},
		{apperrors.ErrLastColumn, http.StatusBadRequest},
		{apperrors.ErrQueryRejected, http.StatusBadRequest},
		{apperrors.ErrFileTooLarge, http.StatusRequestEntityTooLarge},
		{apperrors.ErrTooManyRows, http.StatusRequestEntityTooLarge},
		{apperrors.ErrTooManyColumns, http.StatusRequestEntityTooLarge},
		{errors.New("something else"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteServiceError(rec, tt.err, "test_error", zap.NewNop())

			assert.Equal(t, tt.want, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		})
	}
}
