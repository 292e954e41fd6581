package excel

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// maxSheetNameLength is the limit Excel imposes on worksheet names.
const maxSheetNameLength = 31

// Table is one worksheet worth of export data. Rows are keyed by column
// name; missing keys render as empty cells.
type Table struct {
	Name    string
	Columns []string
	Rows    []map[string]string
}

// WriteWorkbook renders the tables into an xlsx workbook, one sheet per
// table, and returns the serialized bytes.
func WriteWorkbook(tables []Table) (*bytes.Buffer, error) {
	if len(tables) == 0 {
		return nil, fmt.Errorf("nothing to export")
	}

	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"DDEBF7"}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	used := make(map[string]bool)
	for i, table := range tables {
		sheet := uniqueSheetName(table.Name, i, used)
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sheet); err != nil {
				return nil, fmt.Errorf("failed to rename sheet: %w", err)
			}
		} else {
			if _, err := f.NewSheet(sheet); err != nil {
				return nil, fmt.Errorf("failed to add sheet %q: %w", sheet, err)
			}
		}

		if err := writeSheet(f, sheet, table, headerStyle); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize workbook: %w", err)
	}
	return buf, nil
}

func writeSheet(f *excelize.File, sheet string, table Table, headerStyle int) error {
	for col, name := range table.Columns {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fmt.Errorf("invalid header coordinate: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, name); err != nil {
			return fmt.Errorf("failed to write header cell: %w", err)
		}
	}

	if len(table.Columns) > 0 {
		last, _ := excelize.CoordinatesToCellName(len(table.Columns), 1)
		if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
			return fmt.Errorf("failed to style header row: %w", err)
		}
	}

	for r, row := range table.Rows {
		for col, name := range table.Columns {
			cell, err := excelize.CoordinatesToCellName(col+1, r+2)
			if err != nil {
				return fmt.Errorf("invalid cell coordinate: %w", err)
			}
			if err := f.SetCellValue(sheet, cell, row[name]); err != nil {
				return fmt.Errorf("failed to write cell: %w", err)
			}
		}
	}

	return nil
}

// uniqueSheetName sanitizes a table name into a legal, unused worksheet
// name. Excel forbids a handful of characters and caps names at 31 runes.
func uniqueSheetName(name string, idx int, used map[string]bool) string {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return -1
		}
		return r
	}, strings.TrimSpace(name))

	if cleaned == "" {
		cleaned = fmt.Sprintf("Sheet%d", idx+1)
	}
	cleaned = truncateRunes(cleaned, maxSheetNameLength)

	candidate := cleaned
	for n := 2; used[candidate]; n++ {
		suffix := fmt.Sprintf("_%d", n)
		candidate = truncateRunes(cleaned, maxSheetNameLength-len(suffix)) + suffix
	}

	used[candidate] = true
	return candidate
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
