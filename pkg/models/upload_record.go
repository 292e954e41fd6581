package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Upload statuses.
const (
	UploadStatusSuccess = "success"
	UploadStatusFailed  = "failed"
)

// ColumnList is a JSONB-stored list of the column names detected in an
// uploaded file, in header order.
type ColumnList []string

// Scan implements sql.Scanner.
func (l *ColumnList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		*l = nil
		return nil
	}

	return json.Unmarshal(bytes, l)
}

// Value implements driver.Valuer.
func (l ColumnList) Value() (interface{}, error) {
	if l == nil {
		return json.Marshal(ColumnList{})
	}
	return json.Marshal(l)
}

// UploadRecord is one entry of the ingestion history: which file was
// processed, into which group, how many rows landed, and why it failed if
// it did.
type UploadRecord struct {
	ID           uuid.UUID  `json:"id"`
	Filename     string     `json:"filename"`
	GroupID      *uuid.UUID `json:"group_id,omitempty"`
	RowsImported int        `json:"rows_imported"`
	Columns      ColumnList `json:"columns"`
	Status       string     `json:"status"`
	ErrorMessage string     `json:"error_message,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}
