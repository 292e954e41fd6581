package models

import (
	"time"

	"github.com/google/uuid"
)

// TableGroup is a logical table identity that one or more uploaded files'
// rows are merged into. Its fingerprint is always derivable by re-hashing
// the active schema's normalized column names, and ColumnCount always equals
// the number of active schema columns.
type TableGroup struct {
	ID                uuid.UUID `json:"id"`
	Name              string    `json:"name"`
	Description       string    `json:"description"`
	SchemaFingerprint string    `json:"schema_fingerprint"`
	ColumnCount       int       `json:"column_count"`

	// ConfidenceScore is the running average of the match similarities of
	// every file merged into this group, weighted by FileCount.
	ConfidenceScore float64 `json:"confidence_score"`
	FileCount       int     `json:"file_count"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Schema column states. Columns are retired rather than deleted so that
// historical column mappings stay traceable.
const (
	ColumnStateActive  = "active"
	ColumnStateRetired = "retired"
)

// SchemaColumn is one column of a group's schema, stored in display form
// (cleaned, not comparison-normalized). Order indices need not stay
// contiguous after retirements; only their relative order is meaningful.
type SchemaColumn struct {
	ID          uuid.UUID `json:"id"`
	GroupID     uuid.UUID `json:"group_id"`
	ColumnName  string    `json:"column_name"`
	ColumnOrder int       `json:"column_order"`
	State       string    `json:"state"`
	CreatedAt   time.Time `json:"created_at"`
}

// Active reports whether the column is part of the group's current schema.
func (c *SchemaColumn) Active() bool {
	return c.State == ColumnStateActive
}
