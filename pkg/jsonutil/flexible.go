// Package jsonutil provides lenient JSON decoding helpers.
package jsonutil

import (
	"encoding/json"
	"fmt"
)

// FlexibleStringValue converts a raw JSON value to a string cell value.
// API clients routinely send numbers or booleans for spreadsheet cells;
// the engine stores every cell as text, so those coerce instead of
// failing the request. Null and empty become the empty string.
func FlexibleStringValue(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}

	var strVal string
	if err := json.Unmarshal(raw, &strVal); err == nil {
		return strVal
	}

	var numVal float64
	if err := json.Unmarshal(raw, &numVal); err == nil {
		if numVal == float64(int64(numVal)) {
			return fmt.Sprintf("%d", int64(numVal))
		}
		return fmt.Sprintf("%g", numVal)
	}

	var boolVal bool
	if err := json.Unmarshal(raw, &boolVal); err == nil {
		return fmt.Sprintf("%t", boolVal)
	}

	return string(raw)
}
