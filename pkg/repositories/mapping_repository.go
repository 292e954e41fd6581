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

// MappingRepository provides data access for column mappings.
type MappingRepository interface {
	CreateBatch(ctx context.Context, mappings []*models.ColumnMapping) error
	ListByGroup(ctx context.Context, groupID uuid.UUID) ([]*models.ColumnMapping, error)
	Confirm(ctx context.Context, mappingID uuid.UUID) error
}

type mappingRepository struct {
	db *database.DB
}

// NewMappingRepository creates a new MappingRepository.
func NewMappingRepository(db *database.DB) MappingRepository {
	return &mappingRepository{db: db}
}

var _ MappingRepository = (*mappingRepository)(nil)

func (r *mappingRepository) CreateBatch(ctx context.Context, mappings []*models.ColumnMapping) error {
	if len(mappings) == 0 {
		return nil
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO column_mappings (
			group_id, original_column, mapped_column, source_file,
			similarity, confirmed, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`

	now := time.Now()
	for _, m := range mappings {
		m.CreatedAt = now
		err := tx.QueryRow(ctx, query,
			m.GroupID, m.OriginalColumn, m.MappedColumn, m.SourceFile,
			m.Similarity, m.Confirmed, m.CreatedAt,
		).Scan(&m.ID)
		if err != nil {
			return fmt.Errorf("failed to insert column mapping: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit column mappings: %w", err)
	}

	return nil
}

func (r *mappingRepository) ListByGroup(ctx context.Context, groupID uuid.UUID) ([]*models.ColumnMapping, error) {
	query := `
		SELECT id, group_id, original_column, mapped_column, source_file,
		       similarity, confirmed, created_at
		FROM column_mappings
		WHERE group_id = $1
		ORDER BY created_at, id`

	rows, err := r.db.Query(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to query column mappings: %w", err)
	}
	defer rows.Close()

	var mappings []*models.ColumnMapping
	for rows.Next() {
		var m models.ColumnMapping
		err := rows.Scan(
			&m.ID, &m.GroupID, &m.OriginalColumn, &m.MappedColumn,
			&m.SourceFile, &m.Similarity, &m.Confirmed, &m.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan column mapping: %w", err)
		}
		mappings = append(mappings, &m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating column mappings: %w", err)
	}

	return mappings, nil
}

func (r *mappingRepository) Confirm(ctx context.Context, mappingID uuid.UUID) error {
	result, err := r.db.Exec(ctx, `UPDATE column_mappings SET confirmed = TRUE WHERE id = $1`, mappingID)
	if err != nil {
		return fmt.Errorf("failed to confirm column mapping: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}
