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

// GroupRepository provides data access for table groups.
type GroupRepository interface {
	CreateWithSchema(ctx context.Context, group *models.TableGroup, columns []string) error
	GetByID(ctx context.Context, groupID uuid.UUID) (*models.TableGroup, error)
	ListAll(ctx context.Context) ([]*models.TableGroup, error)
	ListByColumnCount(ctx context.Context, columnCount int) ([]*models.TableGroup, error)
	ListByFingerprint(ctx context.Context, fingerprint string, columnCount int) ([]*models.TableGroup, error)
	UpdateConfidence(ctx context.Context, groupID uuid.UUID, confidence float64, fileCount int) error
	UpdateFingerprint(ctx context.Context, groupID uuid.UUID, fingerprint string, columnCount int) error
	Rename(ctx context.Context, groupID uuid.UUID, name, description string) error
	Delete(ctx context.Context, groupID uuid.UUID) error
	ExistsByName(ctx context.Context, name string) (bool, error)
	Count(ctx context.Context) (int, error)
}

type groupRepository struct {
	db *database.DB
}

// NewGroupRepository creates a new GroupRepository.
func NewGroupRepository(db *database.DB) GroupRepository {
	return &groupRepository{db: db}
}

var _ GroupRepository = (*groupRepository)(nil)

// CreateWithSchema inserts the group and its schema columns in a single
// transaction so a partially created group can never be observed.
func (r *groupRepository) CreateWithSchema(ctx context.Context, group *models.TableGroup, columns []string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	now := time.Now()

	query := `
		INSERT INTO table_groups (
			name, description, schema_fingerprint, column_count,
			confidence_score, file_count, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`

	err = tx.QueryRow(ctx, query,
		group.Name,
		group.Description,
		group.SchemaFingerprint,
		group.ColumnCount,
		group.ConfidenceScore,
		group.FileCount,
		now,
		now,
	).Scan(&group.ID, &group.CreatedAt, &group.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create table group: %w", err)
	}

	colQuery := `
		INSERT INTO schema_columns (group_id, column_name, column_order, state, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	for i, name := range columns {
		if _, err := tx.Exec(ctx, colQuery, group.ID, name, i, models.ColumnStateActive, now); err != nil {
			return fmt.Errorf("failed to create schema column: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit group creation: %w", err)
	}

	return nil
}

func (r *groupRepository) GetByID(ctx context.Context, groupID uuid.UUID) (*models.TableGroup, error) {
	query := groupSelect + ` WHERE id = $1`

	group, err := scanGroup(r.db.QueryRow(ctx, query, groupID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}

	return group, nil
}

func (r *groupRepository) ListAll(ctx context.Context) ([]*models.TableGroup, error) {
	query := groupSelect + ` ORDER BY created_at, id`
	return r.queryGroups(ctx, query)
}

func (r *groupRepository) ListByColumnCount(ctx context.Context, columnCount int) ([]*models.TableGroup, error) {
	query := groupSelect + ` WHERE column_count = $1 ORDER BY created_at, id`
	return r.queryGroups(ctx, query, columnCount)
}

// ListByFingerprint returns every group carrying the fingerprint, oldest
// first. Under normal operation there is at most one, but concurrent
// uploads can race a duplicate into existence.
func (r *groupRepository) ListByFingerprint(ctx context.Context, fingerprint string, columnCount int) ([]*models.TableGroup, error) {
	query := groupSelect + ` WHERE schema_fingerprint = $1 AND column_count = $2 ORDER BY created_at, id`
	return r.queryGroups(ctx, query, fingerprint, columnCount)
}

func (r *groupRepository) UpdateConfidence(ctx context.Context, groupID uuid.UUID, confidence float64, fileCount int) error {
	query := `
		UPDATE table_groups
		SET confidence_score = $2, file_count = $3, updated_at = NOW()
		WHERE id = $1`

	result, err := r.db.Exec(ctx, query, groupID, confidence, fileCount)
	if err != nil {
		return fmt.Errorf("failed to update group confidence: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

func (r *groupRepository) UpdateFingerprint(ctx context.Context, groupID uuid.UUID, fingerprint string, columnCount int) error {
	query := `
		UPDATE table_groups
		SET schema_fingerprint = $2, column_count = $3, updated_at = NOW()
		WHERE id = $1`

	result, err := r.db.Exec(ctx, query, groupID, fingerprint, columnCount)
	if err != nil {
		return fmt.Errorf("failed to update group fingerprint: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

func (r *groupRepository) Rename(ctx context.Context, groupID uuid.UUID, name, description string) error {
	query := `
		UPDATE table_groups
		SET name = $2, description = $3, updated_at = NOW()
		WHERE id = $1`

	result, err := r.db.Exec(ctx, query, groupID, name, description)
	if err != nil {
		return fmt.Errorf("failed to rename group: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

// Delete removes the group. Schema columns, rows and mappings cascade via
// foreign keys.
func (r *groupRepository) Delete(ctx context.Context, groupID uuid.UUID) error {
	result, err := r.db.Exec(ctx, `DELETE FROM table_groups WHERE id = $1`, groupID)
	if err != nil {
		return fmt.Errorf("failed to delete group: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

func (r *groupRepository) ExistsByName(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM table_groups WHERE name = $1)`, name).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check group name: %w", err)
	}
	return exists, nil
}

func (r *groupRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM table_groups`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count groups: %w", err)
	}
	return count, nil
}

const groupSelect = `
	SELECT id, name, description, schema_fingerprint, column_count,
	       confidence_score, file_count, created_at, updated_at
	FROM table_groups`

func (r *groupRepository) queryGroups(ctx context.Context, query string, args ...any) ([]*models.TableGroup, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query groups: %w", err)
	}
	defer rows.Close()

	var groups []*models.TableGroup
	for rows.Next() {
		group, err := scanGroup(rows)
		if err != nil {
			return nil, err
		}
		groups = append(groups, group)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating groups: %w", err)
	}

	return groups, nil
}

func scanGroup(row pgx.Row) (*models.TableGroup, error) {
	var g models.TableGroup
	err := row.Scan(
		&g.ID,
		&g.Name,
		&g.Description,
		&g.SchemaFingerprint,
		&g.ColumnCount,
		&g.ConfidenceScore,
		&g.FileCount,
		&g.CreatedAt,
		&g.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan group: %w", err)
	}

	return &g, nil
}
