package services

import (
	"context"

	"github.com/mergetab/mergetab-engine/pkg/models"
	"github.com/mergetab/mergetab-engine/pkg/repositories"
)

// defaultHistoryLimit bounds the upload history listing.
const defaultHistoryLimit = 50

// SystemStats is an aggregate snapshot of the engine's contents.
type SystemStats struct {
	GroupCount    int `json:"group_count"`
	RowCount      int `json:"row_count"`
	UploadsOK     int `json:"uploads_ok"`
	UploadsFailed int `json:"uploads_failed"`
}

// StatsService reports upload history and aggregate statistics.
type StatsService interface {
	History(ctx context.Context, limit int) ([]*models.UploadRecord, error)
	Stats(ctx context.Context) (*SystemStats, error)
}

type statsService struct {
	groups  repositories.GroupRepository
	rows    repositories.RowRepository
	history repositories.HistoryRepository
}

// NewStatsService creates a new StatsService.
func NewStatsService(
	groups repositories.GroupRepository,
	rows repositories.RowRepository,
	history repositories.HistoryRepository,
) StatsService {
	return &statsService{groups: groups, rows: rows, history: history}
}

var _ StatsService = (*statsService)(nil)

func (s *statsService) History(ctx context.Context, limit int) ([]*models.UploadRecord, error) {
	if limit <= 0 || limit > 500 {
		limit = defaultHistoryLimit
	}
	return s.history.List(ctx, limit)
}

func (s *statsService) Stats(ctx context.Context) (*SystemStats, error) {
	groupCount, err := s.groups.Count(ctx)
	if err != nil {
		return nil, err
	}

	rowCount, err := s.rows.CountAll(ctx)
	if err != nil {
		return nil, err
	}

	ok, err := s.history.CountByStatus(ctx, models.UploadStatusSuccess)
	if err != nil {
		return nil, err
	}

	failed, err := s.history.CountByStatus(ctx, models.UploadStatusFailed)
	if err != nil {
		return nil, err
	}

	return &SystemStats{
		GroupCount:    groupCount,
		RowCount:      rowCount,
		UploadsOK:     ok,
		UploadsFailed: failed,
	}, nil
}
