package models

import (
	"time"

	"github.com/google/uuid"
)

// ColumnMapping records that an as-uploaded column name was matched to a
// group's canonical column without being identical to it. Mappings are
// created only for ingestions whose file-level similarity was below the
// exact-match threshold, and are kept until the group is deleted.
type ColumnMapping struct {
	ID             uuid.UUID `json:"id"`
	GroupID        uuid.UUID `json:"group_id"`
	OriginalColumn string    `json:"original_column"`
	MappedColumn   string    `json:"mapped_column"`
	SourceFile     string    `json:"source_file"`

	// Similarity is the per-column score between the normalized forms of
	// the original and mapped names. Confirmed defaults to true only when
	// it met the high-similarity threshold at ingestion time.
	Similarity float64 `json:"similarity"`
	Confirmed  bool    `json:"confirmed"`

	CreatedAt time.Time `json:"created_at"`
}
