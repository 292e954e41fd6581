package services

import (
	"bytes"
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mergetab/mergetab-engine/pkg/excel"
	"github.com/mergetab/mergetab-engine/pkg/models"
	"github.com/mergetab/mergetab-engine/pkg/repositories"
)

// ExportService renders groups back into xlsx workbooks.
type ExportService interface {
	// ExportGroup renders one group as a single-sheet workbook and returns
	// the bytes along with the group's name for the download filename.
	ExportGroup(ctx context.Context, groupID uuid.UUID) (*bytes.Buffer, string, error)

	// ExportAll renders every group as its own sheet in one workbook.
	ExportAll(ctx context.Context) (*bytes.Buffer, error)
}

type exportService struct {
	groups  repositories.GroupRepository
	schemas repositories.SchemaRepository
	rows    repositories.RowRepository
	logger  *zap.Logger
}

// NewExportService creates a new ExportService.
func NewExportService(
	groups repositories.GroupRepository,
	schemas repositories.SchemaRepository,
	rows repositories.RowRepository,
	logger *zap.Logger,
) ExportService {
	return &exportService{groups: groups, schemas: schemas, rows: rows, logger: logger}
}

var _ ExportService = (*exportService)(nil)

func (s *exportService) ExportGroup(ctx context.Context, groupID uuid.UUID) (*bytes.Buffer, string, error) {
	group, err := s.groups.GetByID(ctx, groupID)
	if err != nil {
		return nil, "", err
	}

	table, err := s.buildTable(ctx, group)
	if err != nil {
		return nil, "", err
	}

	buf, err := excel.WriteWorkbook([]excel.Table{*table})
	if err != nil {
		return nil, "", err
	}

	return buf, group.Name, nil
}

func (s *exportService) ExportAll(ctx context.Context) (*bytes.Buffer, error) {
	groups, err := s.groups.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	tables := make([]excel.Table, 0, len(groups))
	for _, group := range groups {
		table, err := s.buildTable(ctx, group)
		if err != nil {
			return nil, err
		}
		tables = append(tables, *table)
	}

	s.logger.Info("exporting workbook", zap.Int("sheets", len(tables)))
	return excel.WriteWorkbook(tables)
}

func (s *exportService) buildTable(ctx context.Context, group *models.TableGroup) (*excel.Table, error) {
	columns, err := s.schemas.ActiveNames(ctx, group.ID)
	if err != nil {
		return nil, err
	}

	rows, err := s.rows.ListByGroup(ctx, group.ID, 0, 0)
	if err != nil {
		return nil, err
	}

	data := make([]map[string]string, 0, len(rows))
	for _, r := range rows {
		data = append(data, r.Data)
	}

	return &excel.Table{Name: group.Name, Columns: columns, Rows: data}, nil
}
