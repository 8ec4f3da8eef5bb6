package table

import (
	"fmt"
	"io"
	"strings"

	"github.com/poiesic/attest/core"
	"github.com/xuri/excelize/v2"
)

// maxSheetName is the longest sheet name a workbook accepts.
const maxSheetName = 31

// LoadWorkbook reads every sheet of the workbook at path into tables for docID.
func LoadWorkbook(path, docID string) ([]core.Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening workbook %s: %w", path, err)
	}
	defer f.Close()
	return readSheets(f, docID)
}

// ReadWorkbook reads every sheet of the workbook in r into tables for docID.
func ReadWorkbook(r io.Reader, docID string) ([]core.Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("reading workbook: %w", err)
	}
	defer f.Close()
	return readSheets(f, docID)
}

// readSheets converts each non-empty sheet to a table. The first non-blank
// row is the header; blank header cells become column_N and short rows are
// padded to the header width.
func readSheets(f *excelize.File, docID string) ([]core.Table, error) {
	var tables []core.Table
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("reading sheet %q: %w", sheet, err)
		}

		var nonBlank [][]string
		for _, r := range rows {
			if !blankRow(r) {
				nonBlank = append(nonBlank, r)
			}
		}
		if len(nonBlank) == 0 {
			continue
		}

		width := 0
		for _, r := range nonBlank {
			width = max(width, len(r))
		}

		header := pad(nonBlank[0], width)
		for i, h := range header {
			h = strings.TrimSpace(h)
			if h == "" {
				h = fmt.Sprintf("column_%d", i+1)
			}
			header[i] = h
		}

		t := core.Table{
			Name:    sheet,
			DocID:   docID,
			Index:   len(tables),
			Columns: header,
			Rows:    make([][]string, 0, len(nonBlank)-1),
		}
		for _, r := range nonBlank[1:] {
			t.Rows = append(t.Rows, pad(r, width))
		}
		tables = append(tables, t)
	}

	if len(tables) == 0 {
		return nil, ErrEmptyWorkbook
	}
	return tables, nil
}

// WriteWorkbook writes tables to w as an XLSX workbook, one sheet per table
// with the columns as the first row.
func WriteWorkbook(w io.Writer, tables []core.Table) error {
	if len(tables) == 0 {
		return ErrNoTables
	}

	f := excelize.NewFile()
	defer f.Close()

	used := make(map[string]bool)
	for i, t := range tables {
		name := sheetName(t, i, used)
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), name); err != nil {
				return fmt.Errorf("naming sheet %q: %w", name, err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("creating sheet %q: %w", name, err)
		}

		if err := writeRow(f, name, 1, t.Columns); err != nil {
			return err
		}
		for r, row := range t.Rows {
			if err := writeRow(f, name, r+2, row); err != nil {
				return err
			}
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	cells := make([]any, len(values))
	for i, v := range values {
		cells[i] = v
	}
	if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
		return fmt.Errorf("writing row %d of %q: %w", row, sheet, err)
	}
	return nil
}

func sheetName(t core.Table, i int, used map[string]bool) string {
	name := strings.Map(func(r rune) rune {
		if strings.ContainsRune(`:\/?*[]`, r) {
			return -1
		}
		return r
	}, strings.TrimSpace(t.Name))
	if name == "" {
		name = fmt.Sprintf("Table%d", i+1)
	}
	if r := []rune(name); len(r) > maxSheetName {
		name = string(r[:maxSheetName])
	}
	base := name
	for n := 2; used[strings.ToLower(name)]; n++ {
		suffix := fmt.Sprintf(" (%d)", n)
		r := []rune(base)
		if len(r)+len(suffix) > maxSheetName {
			r = r[:maxSheetName-len(suffix)]
		}
		name = string(r) + suffix
	}
	used[strings.ToLower(name)] = true
	return name
}

func blankRow(r []string) bool {
	for _, c := range r {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func pad(r []string, width int) []string {
	out := make([]string, width)
	copy(out, r)
	return out
}
