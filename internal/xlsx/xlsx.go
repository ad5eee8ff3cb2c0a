// Package xlsx renders output tables as formatted Excel workbooks.
package xlsx

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
	"unicode/utf8"

	"github.com/Veraticus/packflow/internal/blob"
	"github.com/Veraticus/packflow/internal/model"
	"github.com/xuri/excelize/v2"
)

const (
	// HeaderFill is the background of header cells.
	HeaderFill = "B7DEE8"
	// TableStyle is the native table style applied when headers allow it.
	TableStyle = "TableStyleMedium9"

	dateFormat   = "yyyy-mm-dd"
	minColWidth  = 8.0
	maxColWidth  = 60.0
	defaultSheet = "Sheet1"
)

// Render builds a workbook with one sheet per table, in order.
func Render(tables ...*model.Table) ([]byte, error) {
	if len(tables) == 0 {
		return nil, fmt.Errorf("render workbook: no tables")
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	for i, t := range tables {
		if i == 0 {
			if err := f.SetSheetName(defaultSheet, t.Name); err != nil {
				return nil, fmt.Errorf("name sheet %s: %w", t.Name, err)
			}
		} else if _, err := f.NewSheet(t.Name); err != nil {
			return nil, fmt.Errorf("add sheet %s: %w", t.Name, err)
		}
		if err := writeSheet(f, t); err != nil {
			return nil, fmt.Errorf("sheet %s: %w", t.Name, err)
		}
	}
	f.SetActiveSheet(0)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("serialize workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSheet(f *excelize.File, t *model.Table) error {
	sheet := t.Name
	header := make([]any, len(t.Columns))
	for i, c := range t.Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}

	dateCols := make(map[int]bool)
	for r, row := range t.Rows {
		cells := make([]any, len(row))
		for c, v := range row {
			cells[c] = cellValue(v)
			if _, ok := v.(time.Time); ok {
				dateCols[c] = true
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
			return err
		}
	}

	if len(t.Columns) == 0 {
		return nil
	}
	return format(f, t, dateCols)
}

// format styles the header, freezes the first row, sizes columns and adds a
// native table when the headers are valid table headers.
func format(f *excelize.File, t *model.Table, dateCols map[int]bool) error {
	sheet := t.Name
	lastCol, err := excelize.ColumnNumberToName(len(t.Columns))
	if err != nil {
		return err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{HeaderFill}},
	})
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", lastCol+"1", headerStyle); err != nil {
		return err
	}

	if len(dateCols) > 0 && t.Len() > 0 {
		custom := dateFormat
		dateStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &custom})
		if err != nil {
			return err
		}
		for c := range dateCols {
			col, _ := excelize.ColumnNumberToName(c + 1)
			if err := f.SetCellStyle(sheet, col+"2", fmt.Sprintf("%s%d", col, t.Len()+1), dateStyle); err != nil {
				return err
			}
		}
	}

	if err := f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return err
	}

	for i, width := range columnWidths(t) {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(sheet, col, col, width); err != nil {
			return err
		}
	}

	if t.HeadersValid && t.Len() > 0 {
		showStripes := true
		if err := f.AddTable(sheet, &excelize.Table{
			Range:          fmt.Sprintf("A1:%s%d", lastCol, t.Len()+1),
			Name:           t.Name,
			StyleName:      TableStyle,
			ShowRowStripes: &showStripes,
		}); err != nil {
			return fmt.Errorf("add table: %w", err)
		}
	}
	return nil
}

// columnWidths sizes each column to its longest rendered value.
func columnWidths(t *model.Table) []float64 {
	widths := make([]float64, len(t.Columns))
	for i, c := range t.Columns {
		widths[i] = float64(utf8.RuneCountInString(c))
	}
	for _, row := range t.Rows {
		for i, v := range row {
			if n := float64(utf8.RuneCountInString(model.FormatCell(v))); n > widths[i] {
				widths[i] = n
			}
		}
	}
	for i := range widths {
		widths[i] += 2
		if widths[i] < minColWidth {
			widths[i] = minColWidth
		}
		if widths[i] > maxColWidth {
			widths[i] = maxColWidth
		}
	}
	return widths
}

func cellValue(v any) any {
	switch val := v.(type) {
	case model.Ratio:
		return val.Cell()
	case model.Category:
		return val.String()
	default:
		return val
	}
}

// Writer is a sink that renders each table to <name>.xlsx, saves it under
// Dir when set and uploads it to Store when set.
type Writer struct {
	store  blob.Store
	logger *slog.Logger
	dir    string
}

// NewWriter creates a workbook sink. Either dir or store may be empty.
func NewWriter(dir string, store blob.Store, logger *slog.Logger) *Writer {
	return &Writer{dir: dir, store: store, logger: logger}
}

// Name identifies the sink in logs and run history.
func (w *Writer) Name() string {
	if w.store != nil {
		return "xlsx+" + w.store.Driver()
	}
	return "xlsx"
}

// WriteTable renders t and delivers the workbook.
func (w *Writer) WriteTable(ctx context.Context, t *model.Table) error {
	data, err := Render(t)
	if err != nil {
		return err
	}
	file := FileName(t)

	if w.dir != "" {
		if err := os.MkdirAll(w.dir, 0o750); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
		path := filepath.Join(w.dir, file)
		if err := os.WriteFile(path, data, 0o600); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		w.logger.Info("Workbook saved", "path", path, "rows", t.Len())
	}

	if w.store != nil {
		if err := w.store.Put(ctx, file, data, blob.XLSXContentType); err != nil {
			return err
		}
		w.logger.Info("Workbook uploaded", "driver", w.store.Driver(), "key", file, "bytes", len(data))
	}
	return nil
}

// FileName returns the workbook name used for t.
func FileName(t *model.Table) string {
	return t.Name + ".xlsx"
}
