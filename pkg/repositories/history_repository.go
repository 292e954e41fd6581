package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/mergetab/mergetab-engine/pkg/database"
	"github.com/mergetab/mergetab-engine/pkg/models"
)

// HistoryRepository provides data access for upload history records.
type HistoryRepository interface {
	Create(ctx context.Context, record *models.UploadRecord) error
	List(ctx context.Context, limit int) ([]*models.UploadRecord, error)
	CountByStatus(ctx context.Context, status string) (int, error)
}

type historyRepository struct {
	db *database.DB
}

// NewHistoryRepository creates a new HistoryRepository.
func NewHistoryRepository(db *database.DB) HistoryRepository {
	return &historyRepository{db: db}
}

var _ HistoryRepository = (*historyRepository)(nil)

func (r *historyRepository) Create(ctx context.Context, record *models.UploadRecord) error {
	record.CreatedAt = time.Now()

	query := `
		INSERT INTO upload_records (
			filename, group_id, rows_imported, columns, status, error_message, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`

	err := r.db.QueryRow(ctx, query,
		record.Filename,
		record.GroupID,
		record.RowsImported,
		record.Columns,
		record.Status,
		record.ErrorMessage,
		record.CreatedAt,
	).Scan(&record.ID)
	if err != nil {
		return fmt.Errorf("failed to create upload record: %w", err)
	}

	return nil
}

func (r *historyRepository) List(ctx context.Context, limit int) ([]*models.UploadRecord, error) {
	query := `
		SELECT id, filename, group_id, rows_imported, columns, status,
		       COALESCE(error_message, ''), created_at
		FROM upload_records
		ORDER BY created_at DESC, id
		LIMIT $1`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query upload records: %w", err)
	}
	defer rows.Close()

	var records []*models.UploadRecord
	for rows.Next() {
		var rec models.UploadRecord
		err := rows.Scan(
			&rec.ID, &rec.Filename, &rec.GroupID, &rec.RowsImported,
			&rec.Columns, &rec.Status, &rec.ErrorMessage, &rec.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan upload record: %w", err)
		}
		records = append(records, &rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating upload records: %w", err)
	}

	return records, nil
}

func (r *historyRepository) CountByStatus(ctx context.Context, status string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM upload_records WHERE status = $1`, status).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count upload records: %w", err)
	}
	return count, nil
}
