// Package excel parses and produces .xlsx workbooks.
package excel

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// headerScanDepth limits how far down a sheet the header detector looks.
const headerScanDepth = 5

// Grid is the raw cell content of a single worksheet.
type Grid struct {
	SheetName string
	Rows      [][]string
}

// ParseFirstSheet reads an xlsx workbook and returns the cell grid of its
// first sheet. Trailing empty cells are preserved as empty strings so every
// row has the width excelize reports for it.
func ParseFirstSheet(r io.Reader) (*Grid, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}

	return &Grid{SheetName: sheets[0], Rows: rows}, nil
}

// DetectHeaderRow scans the top of the grid for the most likely header row.
// A row qualifies when at least half its cells are filled and at least 70%
// of the filled cells are textual rather than numeric. Returns 0 when no
// row qualifies.
func DetectHeaderRow(rows [][]string) int {
	limit := len(rows)
	if limit > headerScanDepth {
		limit = headerScanDepth
	}

	for i := 0; i < limit; i++ {
		row := rows[i]
		if len(row) == 0 {
			continue
		}

		nonEmpty := 0
		textual := 0
		for _, cell := range row {
			v := strings.TrimSpace(cell)
			if v == "" {
				continue
			}
			nonEmpty++
			if !isNumeric(v) {
				textual++
			}
		}

		if nonEmpty*2 >= len(row) && float64(textual) >= float64(nonEmpty)*0.7 {
			return i
		}
	}

	return 0
}

func isNumeric(s string) bool {
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

// SplitHeader separates the grid into a header row and the data rows below
// it, padding or truncating each data row to the header width.
func SplitHeader(rows [][]string, headerIdx int) (header []string, data [][]string) {
	if headerIdx >= len(rows) {
		return nil, nil
	}

	header = rows[headerIdx]
	width := len(header)

	for _, row := range rows[headerIdx+1:] {
		padded := make([]string, width)
		copy(padded, row)
		data = append(data, padded)
	}

	return header, data
}
