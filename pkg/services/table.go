package services

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mergetab/mergetab-engine/pkg/apperrors"
	"github.com/mergetab/mergetab-engine/pkg/matching"
	"github.com/mergetab/mergetab-engine/pkg/models"
	"github.com/mergetab/mergetab-engine/pkg/repositories"
)

// GroupDetail bundles a group with its schema and row statistics.
type GroupDetail struct {
	Group       *models.TableGroup     `json:"group"`
	Columns     []*models.SchemaColumn `json:"columns"`
	RowCount    int                    `json:"row_count"`
	SourceFiles []string               `json:"source_files"`
}

// TableService manages groups, their schemas, and their rows after
// ingestion.
type TableService interface {
	ListGroups(ctx context.Context) ([]*models.TableGroup, error)
	GetGroup(ctx context.Context, groupID uuid.UUID) (*GroupDetail, error)
	RenameGroup(ctx context.Context, groupID uuid.UUID, name, description string) error
	DeleteGroup(ctx context.Context, groupID uuid.UUID) error

	ListRows(ctx context.Context, groupID uuid.UUID, limit, offset int) ([]*models.DataRow, int, error)
	AddRow(ctx context.Context, groupID uuid.UUID, data models.RowData, position int64) (*models.DataRow, error)
	UpdateRow(ctx context.Context, rowID uuid.UUID, data models.RowData) error
	DeleteRow(ctx context.Context, rowID uuid.UUID) error
	ClearRows(ctx context.Context, groupID uuid.UUID) (int64, error)

	AddColumn(ctx context.Context, groupID uuid.UUID, name string, position int) (*models.SchemaColumn, error)
	RenameColumn(ctx context.Context, groupID uuid.UUID, oldName, newName string) error
	RetireColumn(ctx context.Context, groupID uuid.UUID, name string) error

	ListMappings(ctx context.Context, groupID uuid.UUID) ([]*models.ColumnMapping, error)
	ConfirmMapping(ctx context.Context, mappingID uuid.UUID) error
}

type tableService struct {
	engine   *matching.Engine
	groups   repositories.GroupRepository
	schemas  repositories.SchemaRepository
	rows     repositories.RowRepository
	mappings repositories.MappingRepository
	logger   *zap.Logger
}

// NewTableService creates a new TableService.
func NewTableService(
	engine *matching.Engine,
	groups repositories.GroupRepository,
	schemas repositories.SchemaRepository,
	rows repositories.RowRepository,
	mappings repositories.MappingRepository,
	logger *zap.Logger,
) TableService {
	return &tableService{
		engine:   engine,
		groups:   groups,
		schemas:  schemas,
		rows:     rows,
		mappings: mappings,
		logger:   logger,
	}
}

var _ TableService = (*tableService)(nil)

func (s *tableService) ListGroups(ctx context.Context) ([]*models.TableGroup, error) {
	return s.groups.ListAll(ctx)
}

func (s *tableService) GetGroup(ctx context.Context, groupID uuid.UUID) (*GroupDetail, error) {
	group, err := s.groups.GetByID(ctx, groupID)
	if err != nil {
		return nil, err
	}

	columns, err := s.schemas.ListActive(ctx, groupID)
	if err != nil {
		return nil, err
	}

	rowCount, err := s.rows.CountByGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}

	files, err := s.rows.DistinctSourceFiles(ctx, groupID)
	if err != nil {
		return nil, err
	}

	return &GroupDetail{
		Group:       group,
		Columns:     columns,
		RowCount:    rowCount,
		SourceFiles: files,
	}, nil
}

func (s *tableService) RenameGroup(ctx context.Context, groupID uuid.UUID, name, description string) error {
	group, err := s.groups.GetByID(ctx, groupID)
	if err != nil {
		return err
	}

	if name != group.Name {
		taken, err := s.groups.ExistsByName(ctx, name)
		if err != nil {
			return err
		}
		if taken {
			return apperrors.ErrNameTaken
		}
	}

	return s.groups.Rename(ctx, groupID, name, description)
}

func (s *tableService) DeleteGroup(ctx context.Context, groupID uuid.UUID) error {
	if err := s.groups.Delete(ctx, groupID); err != nil {
		return err
	}

	s.logger.Info("deleted table group", zap.String("group_id", groupID.String()))
	return nil
}

func (s *tableService) ListRows(ctx context.Context, groupID uuid.UUID, limit, offset int) ([]*models.DataRow, int, error) {
	if _, err := s.groups.GetByID(ctx, groupID); err != nil {
		return nil, 0, err
	}

	rows, err := s.rows.ListByGroup(ctx, groupID, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.rows.CountByGroup(ctx, groupID)
	if err != nil {
		return nil, 0, err
	}

	return rows, total, nil
}

// AddRow inserts a manual row. A negative position appends; otherwise the
// rows at and after the position shift down to make room.
func (s *tableService) AddRow(ctx context.Context, groupID uuid.UUID, data models.RowData, position int64) (*models.DataRow, error) {
	if _, err := s.groups.GetByID(ctx, groupID); err != nil {
		return nil, err
	}

	if position < 0 {
		max, err := s.rows.MaxOrder(ctx, groupID)
		if err != nil {
			return nil, err
		}
		position = max + 1
	} else {
		if err := s.rows.ShiftOrders(ctx, groupID, position); err != nil {
			return nil, err
		}
	}

	row := &models.DataRow{
		GroupID:    &groupID,
		SourceFile: models.SourceFileManual,
		RowOrder:   position,
		Data:       data,
	}

	if err := s.rows.Insert(ctx, row); err != nil {
		return nil, err
	}

	return row, nil
}

func (s *tableService) UpdateRow(ctx context.Context, rowID uuid.UUID, data models.RowData) error {
	return s.rows.UpdateData(ctx, rowID, data)
}

func (s *tableService) DeleteRow(ctx context.Context, rowID uuid.UUID) error {
	return s.rows.Delete(ctx, rowID)
}

func (s *tableService) ClearRows(ctx context.Context, groupID uuid.UUID) (int64, error) {
	if _, err := s.groups.GetByID(ctx, groupID); err != nil {
		return 0, err
	}
	return s.rows.DeleteByGroup(ctx, groupID)
}

func (s *tableService) AddColumn(ctx context.Context, groupID uuid.UUID, name string, position int) (*models.SchemaColumn, error) {
	if _, err := s.groups.GetByID(ctx, groupID); err != nil {
		return nil, err
	}

	col, err := s.schemas.Add(ctx, groupID, name, position)
	if err != nil {
		return nil, err
	}

	if err := s.refreshFingerprint(ctx, groupID); err != nil {
		return nil, err
	}

	return col, nil
}

func (s *tableService) RenameColumn(ctx context.Context, groupID uuid.UUID, oldName, newName string) error {
	if oldName == newName {
		return nil
	}

	names, err := s.schemas.ActiveNames(ctx, groupID)
	if err != nil {
		return err
	}
	for _, n := range names {
		if n == newName {
			return apperrors.ErrColumnExists
		}
	}

	if err := s.schemas.Rename(ctx, groupID, oldName, newName); err != nil {
		return err
	}
	if err := s.rows.RenameColumnKey(ctx, groupID, oldName, newName); err != nil {
		return err
	}

	return s.refreshFingerprint(ctx, groupID)
}

// RetireColumn removes the column from the active schema and strips its
// values from the group's rows.
func (s *tableService) RetireColumn(ctx context.Context, groupID uuid.UUID, name string) error {
	if err := s.schemas.Retire(ctx, groupID, name); err != nil {
		return err
	}
	if err := s.rows.StripColumn(ctx, groupID, name); err != nil {
		return err
	}

	return s.refreshFingerprint(ctx, groupID)
}

func (s *tableService) ListMappings(ctx context.Context, groupID uuid.UUID) ([]*models.ColumnMapping, error) {
	if _, err := s.groups.GetByID(ctx, groupID); err != nil {
		return nil, err
	}
	return s.mappings.ListByGroup(ctx, groupID)
}

func (s *tableService) ConfirmMapping(ctx context.Context, mappingID uuid.UUID) error {
	return s.mappings.Confirm(ctx, mappingID)
}

// refreshFingerprint re-derives the group's fingerprint and column count
// from its active schema after any schema edit.
func (s *tableService) refreshFingerprint(ctx context.Context, groupID uuid.UUID) error {
	names, err := s.schemas.ActiveNames(ctx, groupID)
	if err != nil {
		return err
	}

	fingerprint := s.engine.Fingerprint(names)
	return s.groups.UpdateFingerprint(ctx, groupID, fingerprint, len(names))
}
