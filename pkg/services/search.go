package services

import (
	"context"
	"strings"

	libinjection "github.com/corazawaf/libinjection-go"
	"go.uber.org/zap"

	"github.com/mergetab/mergetab-engine/pkg/apperrors"
	"github.com/mergetab/mergetab-engine/pkg/logging"
	"github.com/mergetab/mergetab-engine/pkg/models"
	"github.com/mergetab/mergetab-engine/pkg/repositories"
)

// defaultSearchLimit bounds result size when the caller does not specify one.
const defaultSearchLimit = 100

// SearchService finds rows whose cell values contain a search term.
type SearchService interface {
	Search(ctx context.Context, term string, limit int) ([]*models.DataRow, error)
}

type searchService struct {
	rows   repositories.RowRepository
	logger *zap.Logger
}

// NewSearchService creates a new SearchService.
func NewSearchService(rows repositories.RowRepository, logger *zap.Logger) SearchService {
	return &searchService{rows: rows, logger: logger}
}

var _ SearchService = (*searchService)(nil)

// Search runs a case-insensitive substring search over all cell values.
// The query itself is parameterized; the libinjection screen rejects
// hostile terms before they reach the database at all.
func (s *searchService) Search(ctx context.Context, term string, limit int) ([]*models.DataRow, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, nil
	}

	if isSQLi, fingerprint := libinjection.IsSQLi(term); isSQLi {
		s.logger.Warn("rejected search term",
			zap.String("term", logging.SanitizeField(term)),
			zap.String("fingerprint", fingerprint))
		return nil, apperrors.ErrQueryRejected
	}

	if limit <= 0 || limit > 1000 {
		limit = defaultSearchLimit
	}

	return s.rows.Search(ctx, term, limit)
}
