package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/mergetab/mergetab-engine/pkg/jsonutil"
)

// RowData maps canonical column names to cell values. All values are stored
// as text; the engine does not type columns. Stored as JSONB.
type RowData map[string]string

// UnmarshalJSON accepts numbers and booleans as cell values, coercing them
// to text, so API clients do not have to quote every cell.
func (d *RowData) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	out := make(RowData, len(raw))
	for k, v := range raw {
		out[k] = jsonutil.FlexibleStringValue(v)
	}
	*d = out
	return nil
}

// Scan implements sql.Scanner for reading JSONB from the database.
func (d *RowData) Scan(value interface{}) error {
	if value == nil {
		*d = RowData{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		*d = RowData{}
		return nil
	}

	return json.Unmarshal(bytes, d)
}

// Value implements driver.Valuer for writing JSONB to the database.
func (d RowData) Value() (interface{}, error) {
	if d == nil {
		return json.Marshal(RowData{})
	}
	return json.Marshal(d)
}

// Empty reports whether every value is blank after trimming.
func (d RowData) Empty() bool {
	for _, v := range d {
		for _, r := range v {
			if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
				return false
			}
		}
	}
	return true
}

// SourceFileManual marks rows added by hand rather than imported from a file.
const SourceFileManual = "manual"

// DataRow is one imported or manually added record. GroupID is nil only for
// legacy ungrouped data. RowOrder is an explicit sort key within the group;
// inserting between rows shifts subsequent keys.
type DataRow struct {
	ID         uuid.UUID  `json:"id"`
	GroupID    *uuid.UUID `json:"group_id,omitempty"`
	SourceFile string     `json:"source_file"`
	RowOrder   int64      `json:"row_order"`
	Data       RowData    `json:"data"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}
