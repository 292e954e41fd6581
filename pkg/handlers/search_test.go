package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mergetab/mergetab-engine/pkg/apperrors"
	"github.com/mergetab/mergetab-engine/pkg/models"
)

// mockSearchService implements services.SearchService.
type mockSearchService struct {
	rows      []*models.DataRow
	err       error
	lastTerm  string
	lastLimit int
}

func (m *mockSearchService) Search(_ context.Context, term string, limit int) ([]*models.DataRow, error) {
	m.lastTerm = term
	m.lastLimit = limit
	return m.rows, m.err
}

func TestSearchHandler(t *testing.T) {
	search := &mockSearchService{rows: []*models.DataRow{
		{Data: models.RowData{"Name": "Alice"}},
		{Data: models.RowData{"Name": "Alina"}},
	}}
	h := NewSearchHandler(search, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/search?q=ali&limit=25", nil)
	rec := httptest.NewRecorder()
	h.Search(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ali", search.lastTerm)
	assert.Equal(t, 25, search.lastLimit)

	var resp struct {
		Success bool           `json:"success"`
		Data    SearchResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 2, resp.Data.Total)
}

func TestSearchHandlerRequiresQuery(t *testing.T) {
	h := NewSearchHandler(&mockSearchService{}, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/search", nil)
	rec := httptest.NewRecorder()
	h.Search(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchHandlerRejectedQuery(t *testing.T) {
	h := NewSearchHandler(&mockSearchService{err: apperrors.ErrQueryRejected}, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/search?q=%27+OR+1%3D1+--", nil)
	rec := httptest.NewRecorder()
	h.Search(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
