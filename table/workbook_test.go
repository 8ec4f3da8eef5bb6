package table

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/poiesic/attest/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWorkbook_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteWorkbook(&buf, trialTables()))

	tables, err := ReadWorkbook(&buf, "copy.xlsx")
	require.NoError(t, err)
	require.Len(t, tables, 2)

	assert.Equal(t, "Outcomes", tables[0].Name)
	assert.Equal(t, "copy.xlsx", tables[0].DocID)
	assert.Equal(t, 0, tables[0].Index)
	assert.Equal(t, trialTables()[0].Columns, tables[0].Columns)
	assert.Equal(t, trialTables()[0].Rows, tables[0].Rows)

	assert.Equal(t, "Demographics", tables[1].Name)
	assert.Equal(t, 1, tables[1].Index)
}

func TestLoadWorkbook_HeaderAndPadding(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ragged.xlsx")

	f := excelize.NewFile()
	require.NoError(t, f.SetCellValue("Sheet1", "A2", "Arm"))
	require.NoError(t, f.SetCellValue("Sheet1", "A3", "Placebo"))
	require.NoError(t, f.SetCellValue("Sheet1", "B3", "12"))
	require.NoError(t, f.SetCellValue("Sheet1", "A5", "Drug"))
	_, err := f.NewSheet("Empty")
	require.NoError(t, err)
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	tables, err := LoadWorkbook(path, "ragged.xlsx")
	require.NoError(t, err)
	require.Len(t, tables, 1, "blank sheets are skipped")

	tbl := tables[0]
	assert.Equal(t, []string{"Arm", "column_2"}, tbl.Columns)
	assert.Equal(t, [][]string{{"Placebo", "12"}, {"Drug", ""}}, tbl.Rows)
	assert.NoError(t, core.ValidateTable(&tbl))
}

func TestLoadWorkbook_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.xlsx")
	f := excelize.NewFile()
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	_, err := LoadWorkbook(path, "empty.xlsx")
	assert.ErrorIs(t, err, ErrEmptyWorkbook)

	_, err = LoadWorkbook(filepath.Join(t.TempDir(), "missing.xlsx"), "x")
	assert.Error(t, err)
}

func TestWriteWorkbook_SheetNames(t *testing.T) {
	tables := []core.Table{
		{DocID: "d", Columns: []string{"a"}},
		{DocID: "d", Name: "Results: 2024/Q1", Columns: []string{"a"}},
		{DocID: "d", Name: "Results 2024Q1", Columns: []string{"a"}},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteWorkbook(&buf, tables))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"Table1", "Results 2024Q1", "Results 2024Q1 (2)"}, f.GetSheetList())

	assert.ErrorIs(t, WriteWorkbook(&buf, nil), ErrNoTables)
}
