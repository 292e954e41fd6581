package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mergetab/mergetab-engine/pkg/apperrors"
	"github.com/mergetab/mergetab-engine/pkg/database"
	"github.com/mergetab/mergetab-engine/pkg/models"
)

// SchemaRepository provides data access for group schema columns.
type SchemaRepository interface {
	ListActive(ctx context.Context, groupID uuid.UUID) ([]*models.SchemaColumn, error)
	ActiveNames(ctx context.Context, groupID uuid.UUID) ([]string, error)
	CountActive(ctx context.Context, groupID uuid.UUID) (int, error)
	Add(ctx context.Context, groupID uuid.UUID, name string, position int) (*models.SchemaColumn, error)
	Rename(ctx context.Context, groupID uuid.UUID, oldName, newName string) error
	Retire(ctx context.Context, groupID uuid.UUID, name string) error
}

type schemaRepository struct {
	db *database.DB
}

// NewSchemaRepository creates a new SchemaRepository.
func NewSchemaRepository(db *database.DB) SchemaRepository {
	return &schemaRepository{db: db}
}

var _ SchemaRepository = (*schemaRepository)(nil)

func (r *schemaRepository) ListActive(ctx context.Context, groupID uuid.UUID) ([]*models.SchemaColumn, error) {
	query := `
		SELECT id, group_id, column_name, column_order, state, created_at
		FROM schema_columns
		WHERE group_id = $1 AND state = $2
		ORDER BY column_order, created_at`

	rows, err := r.db.Query(ctx, query, groupID, models.ColumnStateActive)
	if err != nil {
		return nil, fmt.Errorf("failed to query schema columns: %w", err)
	}
	defer rows.Close()

	var columns []*models.SchemaColumn
	for rows.Next() {
		var c models.SchemaColumn
		if err := rows.Scan(&c.ID, &c.GroupID, &c.ColumnName, &c.ColumnOrder, &c.State, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan schema column: %w", err)
		}
		columns = append(columns, &c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating schema columns: %w", err)
	}

	return columns, nil
}

// ActiveNames returns the active column names in display order.
func (r *schemaRepository) ActiveNames(ctx context.Context, groupID uuid.UUID) ([]string, error) {
	columns, err := r.ListActive(ctx, groupID)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(columns))
	for _, c := range columns {
		names = append(names, c.ColumnName)
	}
	return names, nil
}

func (r *schemaRepository) CountActive(ctx context.Context, groupID uuid.UUID) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM schema_columns WHERE group_id = $1 AND state = $2`
	if err := r.db.QueryRow(ctx, query, groupID, models.ColumnStateActive).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count schema columns: %w", err)
	}
	return count, nil
}

// Add inserts a new active column at the given position, shifting the order
// of every active column at or after it. A negative position appends.
func (r *schemaRepository) Add(ctx context.Context, groupID uuid.UUID, name string, position int) (*models.SchemaColumn, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var exists bool
	dupQuery := `
		SELECT EXISTS(
			SELECT 1 FROM schema_columns
			WHERE group_id = $1 AND column_name = $2 AND state = $3
		)`
	if err := tx.QueryRow(ctx, dupQuery, groupID, name, models.ColumnStateActive).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to check column name: %w", err)
	}
	if exists {
		return nil, apperrors.ErrColumnExists
	}

	if position < 0 {
		maxQuery := `
			SELECT COALESCE(MAX(column_order) + 1, 0)
			FROM schema_columns
			WHERE group_id = $1 AND state = $2`
		if err := tx.QueryRow(ctx, maxQuery, groupID, models.ColumnStateActive).Scan(&position); err != nil {
			return nil, fmt.Errorf("failed to compute column position: %w", err)
		}
	} else {
		shiftQuery := `
			UPDATE schema_columns
			SET column_order = column_order + 1
			WHERE group_id = $1 AND state = $2 AND column_order >= $3`
		if _, err := tx.Exec(ctx, shiftQuery, groupID, models.ColumnStateActive, position); err != nil {
			return nil, fmt.Errorf("failed to shift column order: %w", err)
		}
	}

	col := &models.SchemaColumn{
		GroupID:     groupID,
		ColumnName:  name,
		ColumnOrder: position,
		State:       models.ColumnStateActive,
		CreatedAt:   time.Now(),
	}

	insertQuery := `
		INSERT INTO schema_columns (group_id, column_name, column_order, state, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`
	if err := tx.QueryRow(ctx, insertQuery, col.GroupID, col.ColumnName, col.ColumnOrder, col.State, col.CreatedAt).Scan(&col.ID); err != nil {
		return nil, fmt.Errorf("failed to insert schema column: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit column insert: %w", err)
	}

	return col, nil
}

func (r *schemaRepository) Rename(ctx context.Context, groupID uuid.UUID, oldName, newName string) error {
	query := `
		UPDATE schema_columns
		SET column_name = $3
		WHERE group_id = $1 AND column_name = $2 AND state = $4`

	result, err := r.db.Exec(ctx, query, groupID, oldName, newName, models.ColumnStateActive)
	if err != nil {
		return fmt.Errorf("failed to rename schema column: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

// Retire marks the column inactive. Refuses to retire the last active
// column so a group always has a schema.
func (r *schemaRepository) Retire(ctx context.Context, groupID uuid.UUID, name string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var count int
	countQuery := `
		SELECT COUNT(*) FROM schema_columns
		WHERE group_id = $1 AND state = $2`
	if err := tx.QueryRow(ctx, countQuery, groupID, models.ColumnStateActive).Scan(&count); err != nil {
		return fmt.Errorf("failed to count schema columns: %w", err)
	}
	if count <= 1 {
		return apperrors.ErrLastColumn
	}

	query := `
		UPDATE schema_columns
		SET state = $3
		WHERE group_id = $1 AND column_name = $2 AND state = $4`

	result, err := tx.Exec(ctx, query, groupID, name, models.ColumnStateRetired, models.ColumnStateActive)
	if err != nil {
		return fmt.Errorf("failed to retire schema column: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit column retirement: %w", err)
	}

	return nil
}
