package xlsx

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Veraticus/packflow/internal/blob"
	"github.com/Veraticus/packflow/internal/common"
	"github.com/Veraticus/packflow/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func balanceTable(t *testing.T, columns []string) *model.Table {
	t.Helper()
	table := model.NewTable("mass_balance", columns)
	require.NoError(t, table.Append([]any{
		time.Date(2025, 7, 11, 0, 0, 0, 0, time.UTC),
		"EXCELLENCE FRUIT S.A.C",
		5.5,
		model.NewRatio(1, 0),
	}))
	require.NoError(t, table.Append([]any{nil, model.CategoryUnspecified, 1000.0, model.NewRatio(50, 1000)}))
	return table
}

func open(t *testing.T, data []byte) *excelize.File {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func TestRender_ValidHeaders(t *testing.T) {
	table := balanceTable(t, []string{"FECHA", "EMPRESA", "KG", "PCT DESCARTE"})
	data, err := Render(table)
	require.NoError(t, err)

	f := open(t, data)
	assert.Equal(t, []string{"mass_balance"}, f.GetSheetList())

	rows, err := f.GetRows("mass_balance", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"FECHA", "EMPRESA", "KG", "PCT DESCARTE"}, rows[0])
	assert.Equal(t, "45849", rows[1][0])
	assert.Equal(t, "EXCELLENCE FRUIT S.A.C", rows[1][1])
	assert.Equal(t, "5.5", rows[1][2])
	assert.Equal(t, model.UnspecifiedLabel, rows[2][1])
	assert.Equal(t, "0.05", rows[2][3])

	tables, err := f.GetTables("mass_balance")
	require.NoError(t, err)
	require.Len(t, tables, 1)
	assert.Equal(t, "A1:D3", tables[0].Range)
	assert.Equal(t, TableStyle, tables[0].StyleName)

	panes, err := f.GetPanes("mass_balance")
	require.NoError(t, err)
	assert.True(t, panes.Freeze)
	assert.Equal(t, 1, panes.YSplit)
	assert.Equal(t, "A2", panes.TopLeftCell)

	styleID, err := f.GetCellStyle("mass_balance", "B1")
	require.NoError(t, err)
	style, err := f.GetStyle(styleID)
	require.NoError(t, err)
	require.NotNil(t, style.Font)
	assert.True(t, style.Font.Bold)
	require.NotEmpty(t, style.Fill.Color)
	assert.Contains(t, strings.ToUpper(style.Fill.Color[0]), HeaderFill)

	width, err := f.GetColWidth("mass_balance", "B")
	require.NoError(t, err)
	assert.InDelta(t, float64(len("EXCELLENCE FRUIT S.A.C")+2), width, 0.01)
}

func TestRender_InvalidHeadersSkipTable(t *testing.T) {
	table := balanceTable(t, []string{"FECHA", "EMPRESA", "CAJA 4.4OZ C/E", "PCT"})
	require.False(t, table.HeadersValid)

	data, err := Render(table)
	require.NoError(t, err)

	f := open(t, data)
	tables, err := f.GetTables("mass_balance")
	require.NoError(t, err)
	assert.Empty(t, tables)

	rows, err := f.GetRows("mass_balance")
	require.NoError(t, err)
	assert.Equal(t, "CAJA 4.4OZ C/E", rows[0][2])
}

func TestRender_EmptyTableKeepsHeader(t *testing.T) {
	table := model.NewTable("time_trace", []string{"FECHA RECEPCION", "CODIGO QR"})
	data, err := Render(table)
	require.NoError(t, err)

	rows, err := open(t, data).GetRows("time_trace")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"FECHA RECEPCION", "CODIGO QR"}}, rows)
}

func TestRender_MultipleSheets(t *testing.T) {
	a := model.NewTable("time_trace", []string{"QR"})
	b := model.NewTable("production_summary", []string{"SEMANA"})
	data, err := Render(a, b)
	require.NoError(t, err)
	assert.Equal(t, []string{"time_trace", "production_summary"}, open(t, data).GetSheetList())

	_, err = Render()
	assert.Error(t, err)
}

func TestColumnWidths(t *testing.T) {
	table := model.NewTable("t", []string{"A", "DESCRIPCION"})
	require.NoError(t, table.Append([]any{strings.Repeat("x", 100), "y"}))
	assert.Equal(t, []float64{maxColWidth, float64(len("DESCRIPCION") + 2)}, columnWidths(table))
}

func TestWriter_WriteTable(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := blob.NewFSStore(filepath.Join(dir, "bucket"))
	require.NoError(t, err)

	w := NewWriter(filepath.Join(dir, "out"), store, common.DiscardLogger())
	assert.Equal(t, "xlsx+fs", w.Name())

	table := balanceTable(t, []string{"FECHA", "EMPRESA", "KG", "PCT"})
	require.NoError(t, w.WriteTable(ctx, table))

	saved, err := os.ReadFile(filepath.Join(dir, "out", "mass_balance.xlsx"))
	require.NoError(t, err)
	uploaded, err := store.Get(ctx, "mass_balance.xlsx")
	require.NoError(t, err)
	assert.Equal(t, saved, uploaded)

	assert.Equal(t, "xlsx", NewWriter(dir, nil, common.DiscardLogger()).Name())
}
