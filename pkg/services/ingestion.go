package services

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mergetab/mergetab-engine/pkg/apperrors"
	"github.com/mergetab/mergetab-engine/pkg/config"
	"github.com/mergetab/mergetab-engine/pkg/excel"
	"github.com/mergetab/mergetab-engine/pkg/logging"
	"github.com/mergetab/mergetab-engine/pkg/matching"
	"github.com/mergetab/mergetab-engine/pkg/models"
	"github.com/mergetab/mergetab-engine/pkg/repositories"
)

// UploadResult reports what happened to one uploaded file.
type UploadResult struct {
	GroupID       uuid.UUID `json:"group_id"`
	GroupName     string    `json:"group_name"`
	CreatedGroup  bool      `json:"created_group"`
	Similarity    float64   `json:"similarity"`
	RowsImported  int       `json:"rows_imported"`
	RowsSkipped   int       `json:"rows_skipped"`
	Columns       []string  `json:"columns"`
	MappingsAdded int       `json:"mappings_added"`
}

// IngestionService turns an uploaded spreadsheet into rows of a table group.
type IngestionService interface {
	ProcessUpload(ctx context.Context, filename string, file io.Reader) (*UploadResult, error)
}

type ingestionService struct {
	cfg      config.UploadConfig
	match    config.MatchingConfig
	engine   *matching.Engine
	grouping GroupingService
	schemas  repositories.SchemaRepository
	rows     repositories.RowRepository
	mappings repositories.MappingRepository
	history  repositories.HistoryRepository
	logger   *zap.Logger
}

// NewIngestionService creates a new IngestionService.
func NewIngestionService(
	cfg config.UploadConfig,
	match config.MatchingConfig,
	engine *matching.Engine,
	grouping GroupingService,
	schemas repositories.SchemaRepository,
	rows repositories.RowRepository,
	mappings repositories.MappingRepository,
	history repositories.HistoryRepository,
	logger *zap.Logger,
) IngestionService {
	return &ingestionService{
		cfg:      cfg,
		match:    match,
		engine:   engine,
		grouping: grouping,
		schemas:  schemas,
		rows:     rows,
		mappings: mappings,
		history:  history,
		logger:   logger,
	}
}

var _ IngestionService = (*ingestionService)(nil)

// ProcessUpload parses the workbook, matches its schema to a group
// (creating one when nothing matches), and imports its rows. Every attempt
// leaves an upload record, failed ones included.
func (s *ingestionService) ProcessUpload(ctx context.Context, filename string, file io.Reader) (*UploadResult, error) {
	result, columns, err := s.process(ctx, filename, file)
	if err != nil {
		s.recordHistory(ctx, filename, nil, 0, columns, err)
		return nil, err
	}

	s.recordHistory(ctx, filename, &result.GroupID, result.RowsImported, result.Columns, nil)
	return result, nil
}

func (s *ingestionService) process(ctx context.Context, filename string, file io.Reader) (*UploadResult, []string, error) {
	grid, err := excel.ParseFirstSheet(file)
	if err != nil {
		return nil, nil, err
	}

	headerIdx := excel.DetectHeaderRow(grid.Rows)
	header, data := excel.SplitHeader(grid.Rows, headerIdx)
	if len(header) == 0 {
		return nil, nil, fmt.Errorf("no header row found in %s", filename)
	}

	if len(header) > s.cfg.MaxColumns {
		return nil, nil, fmt.Errorf("%w: %d columns exceeds limit of %d",
			apperrors.ErrTooManyColumns, len(header), s.cfg.MaxColumns)
	}
	if len(data) > s.cfg.MaxRows {
		return nil, nil, fmt.Errorf("%w: %d rows exceeds limit of %d",
			apperrors.ErrTooManyRows, len(data), s.cfg.MaxRows)
	}

	columns := s.engine.CleanColumnNames(header)

	s.logger.Info("processing upload",
		zap.String("filename", logging.SanitizeField(filename)),
		zap.Int("columns", len(columns)),
		zap.Int("rows", len(data)))

	match, err := s.grouping.FindMatch(ctx, columns)
	if err != nil {
		return nil, columns, err
	}

	result := &UploadResult{Columns: columns, Similarity: matching.ExactMatchThreshold}
	var group *models.TableGroup

	if match != nil {
		group = match.Group
		result.Similarity = match.Similarity
	} else {
		group, err = s.grouping.Create(ctx, columns, filename)
		if err != nil {
			return nil, columns, err
		}
		result.CreatedGroup = true
	}

	result.GroupID = group.ID
	result.GroupName = group.Name

	targetColumns, keyByUploaded, err := s.mapColumns(ctx, group, columns, filename, result)
	if err != nil {
		return nil, columns, err
	}

	imported, skipped, err := s.importRows(ctx, group.ID, filename, columns, keyByUploaded, data)
	if err != nil {
		return nil, columns, err
	}
	result.RowsImported = imported
	result.RowsSkipped = skipped

	if err := s.grouping.RecordMerge(ctx, group.ID, result.Similarity); err != nil {
		return nil, columns, err
	}

	s.logger.Info("upload complete",
		zap.String("group", group.Name),
		zap.Int("imported", imported),
		zap.Int("skipped", skipped),
		zap.Float64("similarity", result.Similarity),
		zap.Bool("created_group", result.CreatedGroup),
		zap.Int("schema_columns", len(targetColumns)))

	return result, columns, nil
}

// mapColumns aligns the uploaded columns with the group's schema. For a
// fresh or fingerprint-identical group the names line up directly. For a
// fuzzy match with matching cardinality the columns pair up positionally;
// pairs whose names differ get a mapping record, auto-confirmed only when
// the per-column similarity clears the high threshold. Exact matches never
// record mappings: a case or ordering variant of the same schema is not a
// renamed column. Returns the schema column list and the storage key for
// each uploaded column.
func (s *ingestionService) mapColumns(ctx context.Context, group *models.TableGroup, columns []string, filename string, result *UploadResult) ([]string, map[int]string, error) {
	target, err := s.schemas.ActiveNames(ctx, group.ID)
	if err != nil {
		return nil, nil, err
	}

	keys := make(map[int]string, len(columns))

	if len(target) != len(columns) {
		// Cardinality differs, so positional pairing is meaningless.
		// Store under the uploaded names; unmatched schema columns stay
		// empty for these rows.
		for i, c := range columns {
			keys[i] = c
		}
		return target, keys, nil
	}

	exact := result.Similarity >= matching.ExactMatchThreshold

	var pending []*models.ColumnMapping
	for i, uploaded := range columns {
		keys[i] = target[i]
		if exact || uploaded == target[i] {
			continue
		}

		sim := s.engine.ColumnSimilarity(uploaded, target[i])
		pending = append(pending, &models.ColumnMapping{
			GroupID:        group.ID,
			OriginalColumn: uploaded,
			MappedColumn:   target[i],
			SourceFile:     filename,
			Similarity:     sim,
			Confirmed:      sim >= s.match.HighSimilarity,
		})
	}

	if len(pending) > 0 {
		if err := s.mappings.CreateBatch(ctx, pending); err != nil {
			return nil, nil, err
		}
		result.MappingsAdded = len(pending)
	}

	return target, keys, nil
}

// importRows batches inserts, salvaging row by row when a batch fails so a
// single poison row cannot sink the whole file. Blank rows are skipped.
func (s *ingestionService) importRows(ctx context.Context, groupID uuid.UUID, filename string, columns []string, keys map[int]string, data [][]string) (imported, skipped int, err error) {
	nextOrder, err := s.rows.MaxOrder(ctx, groupID)
	if err != nil {
		return 0, 0, err
	}
	nextOrder++

	var batch []*models.DataRow
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := s.rows.InsertBatch(ctx, batch); err != nil {
			s.logger.Warn("row batch failed, retrying rows individually",
				zap.String("filename", logging.SanitizeField(filename)),
				zap.Int("batch_size", len(batch)),
				zap.Error(err))
			for _, row := range batch {
				if rowErr := s.rows.Insert(ctx, row); rowErr != nil {
					skipped++
					imported--
				}
			}
		}
		batch = batch[:0]
		return nil
	}

	for _, cells := range data {
		rowData := make(models.RowData, len(columns))
		for i := range columns {
			if i < len(cells) {
				rowData[keys[i]] = strings.TrimSpace(cells[i])
			} else {
				rowData[keys[i]] = ""
			}
		}

		if rowData.Empty() {
			skipped++
			continue
		}

		batch = append(batch, &models.DataRow{
			GroupID:    &groupID,
			SourceFile: filename,
			RowOrder:   nextOrder,
			Data:       rowData,
		})
		nextOrder++
		imported++

		if len(batch) >= s.cfg.BatchSize {
			if err := flush(); err != nil {
				return imported, skipped, err
			}
		}
	}

	if err := flush(); err != nil {
		return imported, skipped, err
	}

	return imported, skipped, nil
}

func (s *ingestionService) recordHistory(ctx context.Context, filename string, groupID *uuid.UUID, rows int, columns []string, procErr error) {
	record := &models.UploadRecord{
		Filename:     filename,
		GroupID:      groupID,
		RowsImported: rows,
		Columns:      columns,
		Status:       models.UploadStatusSuccess,
	}
	if procErr != nil {
		record.Status = models.UploadStatusFailed
		record.ErrorMessage = procErr.Error()
	}

	if err := s.history.Create(ctx, record); err != nil {
		s.logger.Error("failed to record upload history",
			zap.String("filename", logging.SanitizeField(filename)),
			zap.Error(err))
	}
}
