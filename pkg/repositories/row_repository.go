package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mergetab/mergetab-engine/pkg/apperrors"
	"github.com/mergetab/mergetab-engine/pkg/database"
	"github.com/mergetab/mergetab-engine/pkg/models"
)

// RowRepository provides data access for imported data rows.
type RowRepository interface {
	Insert(ctx context.Context, row *models.DataRow) error
	InsertBatch(ctx context.Context, rows []*models.DataRow) error
	GetByID(ctx context.Context, rowID uuid.UUID) (*models.DataRow, error)
	ListByGroup(ctx context.Context, groupID uuid.UUID, limit, offset int) ([]*models.DataRow, error)
	CountByGroup(ctx context.Context, groupID uuid.UUID) (int, error)
	CountAll(ctx context.Context) (int, error)
	MaxOrder(ctx context.Context, groupID uuid.UUID) (int64, error)
	ShiftOrders(ctx context.Context, groupID uuid.UUID, from int64) error
	UpdateData(ctx context.Context, rowID uuid.UUID, data models.RowData) error
	Delete(ctx context.Context, rowID uuid.UUID) error
	DeleteByGroup(ctx context.Context, groupID uuid.UUID) (int64, error)
	ReassignGroup(ctx context.Context, fromGroup, toGroup uuid.UUID) (int64, error)
	StripColumn(ctx context.Context, groupID uuid.UUID, column string) error
	RenameColumnKey(ctx context.Context, groupID uuid.UUID, oldName, newName string) error
	Search(ctx context.Context, term string, limit int) ([]*models.DataRow, error)
	DistinctSourceFiles(ctx context.Context, groupID uuid.UUID) ([]string, error)
}

type rowRepository struct {
	db *database.DB
}

// NewRowRepository creates a new RowRepository.
func NewRowRepository(db *database.DB) RowRepository {
	return &rowRepository{db: db}
}

var _ RowRepository = (*rowRepository)(nil)

const rowInsert = `
	INSERT INTO data_rows (group_id, source_file, row_order, data, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6)
	RETURNING id`

func (r *rowRepository) Insert(ctx context.Context, row *models.DataRow) error {
	now := time.Now()
	row.CreatedAt = now
	row.UpdatedAt = now

	err := r.db.QueryRow(ctx, rowInsert,
		row.GroupID, row.SourceFile, row.RowOrder, row.Data, row.CreatedAt, row.UpdatedAt,
	).Scan(&row.ID)
	if err != nil {
		return fmt.Errorf("failed to insert row: %w", err)
	}

	return nil
}

// InsertBatch inserts all rows in one transaction. Either every row lands
// or none does; callers that want per-row salvage fall back to Insert.
func (r *rowRepository) InsertBatch(ctx context.Context, rows []*models.DataRow) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	now := time.Now()
	for _, row := range rows {
		row.CreatedAt = now
		row.UpdatedAt = now
		err := tx.QueryRow(ctx, rowInsert,
			row.GroupID, row.SourceFile, row.RowOrder, row.Data, row.CreatedAt, row.UpdatedAt,
		).Scan(&row.ID)
		if err != nil {
			return fmt.Errorf("failed to insert row batch: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit row batch: %w", err)
	}

	return nil
}

func (r *rowRepository) GetByID(ctx context.Context, rowID uuid.UUID) (*models.DataRow, error) {
	query := rowSelect + ` WHERE id = $1`

	row, err := scanRow(r.db.QueryRow(ctx, query, rowID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}

	return row, nil
}

// ListByGroup returns the group's rows in explicit row order. limit <= 0
// means no paging.
func (r *rowRepository) ListByGroup(ctx context.Context, groupID uuid.UUID, limit, offset int) ([]*models.DataRow, error) {
	query := rowSelect + ` WHERE group_id = $1 ORDER BY row_order, created_at, id`
	args := []any{groupID}

	if limit > 0 {
		query += ` LIMIT $2 OFFSET $3`
		args = append(args, limit, offset)
	}

	return r.queryRows(ctx, query, args...)
}

func (r *rowRepository) CountByGroup(ctx context.Context, groupID uuid.UUID) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM data_rows WHERE group_id = $1`, groupID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count rows: %w", err)
	}
	return count, nil
}

func (r *rowRepository) CountAll(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM data_rows`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count rows: %w", err)
	}
	return count, nil
}

// MaxOrder returns the highest row_order in the group, or -1 when the group
// has no rows.
func (r *rowRepository) MaxOrder(ctx context.Context, groupID uuid.UUID) (int64, error) {
	var max int64
	query := `SELECT COALESCE(MAX(row_order), -1) FROM data_rows WHERE group_id = $1`
	if err := r.db.QueryRow(ctx, query, groupID).Scan(&max); err != nil {
		return 0, fmt.Errorf("failed to read max row order: %w", err)
	}
	return max, nil
}

// ShiftOrders makes room at position from by incrementing the order of
// every row at or after it.
func (r *rowRepository) ShiftOrders(ctx context.Context, groupID uuid.UUID, from int64) error {
	query := `
		UPDATE data_rows
		SET row_order = row_order + 1
		WHERE group_id = $1 AND row_order >= $2`

	if _, err := r.db.Exec(ctx, query, groupID, from); err != nil {
		return fmt.Errorf("failed to shift row order: %w", err)
	}
	return nil
}

func (r *rowRepository) UpdateData(ctx context.Context, rowID uuid.UUID, data models.RowData) error {
	query := `
		UPDATE data_rows
		SET data = $2, updated_at = NOW()
		WHERE id = $1`

	result, err := r.db.Exec(ctx, query, rowID, data)
	if err != nil {
		return fmt.Errorf("failed to update row: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

func (r *rowRepository) Delete(ctx context.Context, rowID uuid.UUID) error {
	result, err := r.db.Exec(ctx, `DELETE FROM data_rows WHERE id = $1`, rowID)
	if err != nil {
		return fmt.Errorf("failed to delete row: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

func (r *rowRepository) DeleteByGroup(ctx context.Context, groupID uuid.UUID) (int64, error) {
	result, err := r.db.Exec(ctx, `DELETE FROM data_rows WHERE group_id = $1`, groupID)
	if err != nil {
		return 0, fmt.Errorf("failed to clear group rows: %w", err)
	}
	return result.RowsAffected(), nil
}

// ReassignGroup moves every row from one group to another, appending after
// the destination group's existing rows so orderings never interleave.
func (r *rowRepository) ReassignGroup(ctx context.Context, fromGroup, toGroup uuid.UUID) (int64, error) {
	query := `
		UPDATE data_rows
		SET group_id = $2,
		    row_order = row_order + 1 + (SELECT COALESCE(MAX(row_order), -1) FROM data_rows WHERE group_id = $2),
		    updated_at = NOW()
		WHERE group_id = $1`

	result, err := r.db.Exec(ctx, query, fromGroup, toGroup)
	if err != nil {
		return 0, fmt.Errorf("failed to reassign rows: %w", err)
	}
	return result.RowsAffected(), nil
}

// StripColumn removes the key from every row's data object.
func (r *rowRepository) StripColumn(ctx context.Context, groupID uuid.UUID, column string) error {
	query := `
		UPDATE data_rows
		SET data = data - $2, updated_at = NOW()
		WHERE group_id = $1 AND data ? $2`

	if _, err := r.db.Exec(ctx, query, groupID, column); err != nil {
		return fmt.Errorf("failed to strip column from rows: %w", err)
	}
	return nil
}

// RenameColumnKey moves the value stored under oldName to newName in every
// row that carries it.
func (r *rowRepository) RenameColumnKey(ctx context.Context, groupID uuid.UUID, oldName, newName string) error {
	query := `
		UPDATE data_rows
		SET data = (data - $2) || jsonb_build_object($3::text, data -> $2),
		    updated_at = NOW()
		WHERE group_id = $1 AND data ? $2`

	if _, err := r.db.Exec(ctx, query, groupID, oldName, newName); err != nil {
		return fmt.Errorf("failed to rename column key in rows: %w", err)
	}
	return nil
}

// Search matches the term case-insensitively against any cell value.
func (r *rowRepository) Search(ctx context.Context, term string, limit int) ([]*models.DataRow, error) {
	query := rowSelect + `
		WHERE EXISTS (
			SELECT 1 FROM jsonb_each_text(data) AS kv
			WHERE kv.value ILIKE '%' || $1 || '%'
		)
		ORDER BY created_at DESC, id
		LIMIT $2`

	return r.queryRows(ctx, query, term, limit)
}

func (r *rowRepository) DistinctSourceFiles(ctx context.Context, groupID uuid.UUID) ([]string, error) {
	query := `
		SELECT DISTINCT source_file FROM data_rows
		WHERE group_id = $1
		ORDER BY source_file`

	rows, err := r.db.Query(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to query source files: %w", err)
	}
	defer rows.Close()

	var files []string
	for rows.Next() {
		var f string
		if err := rows.Scan(&f); err != nil {
			return nil, fmt.Errorf("failed to scan source file: %w", err)
		}
		files = append(files, f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating source files: %w", err)
	}

	return files, nil
}

const rowSelect = `
	SELECT id, group_id, source_file, row_order, data, created_at, updated_at
	FROM data_rows`

func (r *rowRepository) queryRows(ctx context.Context, query string, args ...any) ([]*models.DataRow, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query rows: %w", err)
	}
	defer rows.Close()

	var result []*models.DataRow
	for rows.Next() {
		row, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return result, nil
}

func scanRow(row pgx.Row) (*models.DataRow, error) {
	var d models.DataRow
	err := row.Scan(
		&d.ID,
		&d.GroupID,
		&d.SourceFile,
		&d.RowOrder,
		&d.Data,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan row: %w", err)
	}

	return &d, nil
}
