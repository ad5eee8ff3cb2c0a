package sheets

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Veraticus/packflow/internal/common"
	"github.com/Veraticus/packflow/internal/model"
	"google.golang.org/api/sheets/v4"
)

// headerColor is the fill used for header rows (#B7DEE8).
var headerColor = &sheets.Color{Red: 0xB7 / 255.0, Green: 0xDE / 255.0, Blue: 0xE8 / 255.0}

// Writer publishes output tables as tabs of a spreadsheet. Each table
// replaces the contents of the tab with the same name.
type Writer struct {
	service       *sheets.Service
	logger        *slog.Logger
	spreadsheetID string
	config        Config
	mu            sync.Mutex
}

// NewWriter creates a new Google Sheets table writer.
func NewWriter(ctx context.Context, config Config, logger *slog.Logger) (*Writer, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	srv, err := newService(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return &Writer{
		config:  config,
		service: srv,
		logger:  logger,
	}, nil
}

// Name identifies the sink in logs and run history.
func (w *Writer) Name() string {
	return "sheets"
}

// WriteTable replaces the tab named after t with its header and rows.
func (w *Writer) WriteTable(ctx context.Context, t *model.Table) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.logger.Info("writing table to sheets", "table", t.Name, "rows", t.Len())

	spreadsheetID, err := w.getOrCreateSpreadsheet(ctx)
	if err != nil {
		return fmt.Errorf("failed to get spreadsheet: %w", err)
	}

	retryOpts := w.config.retryOptions()

	var tab *sheets.Sheet
	err = common.WithRetry(ctx, func() error {
		var err error
		tab, err = w.ensureTab(ctx, spreadsheetID, t.Name)
		return err
	}, retryOpts)
	if err != nil {
		return fmt.Errorf("failed to prepare tab %s: %w", t.Name, err)
	}

	err = common.WithRetry(ctx, func() error {
		return w.clearTab(ctx, spreadsheetID, t.Name)
	}, retryOpts)
	if err != nil {
		return fmt.Errorf("failed to clear tab %s: %w", t.Name, err)
	}

	values := tableValues(t)
	err = common.WithRetry(ctx, func() error {
		return w.writeData(ctx, spreadsheetID, t.Name, values)
	}, retryOpts)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", common.ErrUploadFailed, t.Name, err)
	}

	if w.config.EnableFormatting {
		requests := formatRequests(tab, t)
		err = common.WithRetry(ctx, func() error {
			_, err := w.service.Spreadsheets.BatchUpdate(spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
				Requests: requests,
			}).Context(ctx).Do()
			return err
		}, retryOpts)
		if err != nil {
			// Data is already written; an unformatted tab is still usable.
			w.logger.Warn("failed to apply formatting", "table", t.Name, "error", err)
		}
	}

	w.logger.Info("table written",
		"spreadsheet_id", spreadsheetID,
		"table", t.Name,
		"rows_written", len(values))

	return nil
}

// getOrCreateSpreadsheet gets the configured spreadsheet or creates a new one.
func (w *Writer) getOrCreateSpreadsheet(ctx context.Context) (string, error) {
	if w.spreadsheetID != "" {
		return w.spreadsheetID, nil
	}

	if w.config.SpreadsheetID != "" {
		_, err := w.service.Spreadsheets.Get(w.config.SpreadsheetID).Fields("spreadsheetId").Context(ctx).Do()
		if err != nil {
			return "", fmt.Errorf("unable to access spreadsheet %s: %w", w.config.SpreadsheetID, err)
		}
		w.spreadsheetID = w.config.SpreadsheetID
		return w.spreadsheetID, nil
	}

	spreadsheet := &sheets.Spreadsheet{
		Properties: &sheets.SpreadsheetProperties{
			Title:    w.config.SpreadsheetName,
			TimeZone: w.config.TimeZone,
		},
	}

	created, err := w.service.Spreadsheets.Create(spreadsheet).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("unable to create spreadsheet: %w", err)
	}

	w.logger.Info("created new spreadsheet",
		"id", created.SpreadsheetId,
		"url", created.SpreadsheetUrl)

	w.spreadsheetID = created.SpreadsheetId
	return w.spreadsheetID, nil
}

// ensureTab returns the tab called name, adding it when missing.
func (w *Writer) ensureTab(ctx context.Context, spreadsheetID, name string) (*sheets.Sheet, error) {
	ss, err := w.service.Spreadsheets.Get(spreadsheetID).
		Fields("sheets(properties(sheetId,title),bandedRanges(bandedRangeId))").
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}
	if tab := findTab(ss.Sheets, name); tab != nil {
		return tab, nil
	}

	resp, err := w.service.Spreadsheets.BatchUpdate(spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			AddSheet: &sheets.AddSheetRequest{
				Properties: &sheets.SheetProperties{Title: name},
			},
		}},
	}).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	if len(resp.Replies) == 0 || resp.Replies[0].AddSheet == nil {
		return nil, fmt.Errorf("add sheet %s: empty reply", name)
	}

	w.logger.Debug("added tab", "tab", name, "sheet_id", resp.Replies[0].AddSheet.Properties.SheetId)
	return &sheets.Sheet{Properties: resp.Replies[0].AddSheet.Properties}, nil
}

func findTab(tabs []*sheets.Sheet, name string) *sheets.Sheet {
	for _, tab := range tabs {
		if tab.Properties != nil && tab.Properties.Title == name {
			return tab
		}
	}
	return nil
}

func (w *Writer) clearTab(ctx context.Context, spreadsheetID, name string) error {
	_, err := w.service.Spreadsheets.Values.Clear(spreadsheetID, tabRange(name, ""), &sheets.ClearValuesRequest{}).
		Context(ctx).
		Do()
	return err
}

// writeData writes values in batches to avoid API limits.
func (w *Writer) writeData(ctx context.Context, spreadsheetID, tab string, values [][]any) error {
	for i := 0; i < len(values); i += w.config.BatchSize {
		end := i + w.config.BatchSize
		if end > len(values) {
			end = len(values)
		}

		batch := values[i:end]
		rangeStr := tabRange(tab, fmt.Sprintf("A%d", i+1))
		_, err := w.service.Spreadsheets.Values.Update(spreadsheetID, rangeStr, &sheets.ValueRange{Values: batch}).
			ValueInputOption("USER_ENTERED").
			Context(ctx).
			Do()
		if err != nil {
			return fmt.Errorf("failed to write batch starting at row %d: %w", i+1, err)
		}

		w.logger.Debug("wrote batch", "tab", tab, "start_row", i+1, "rows", len(batch))
	}

	return nil
}

// tableValues renders t for the Values API, header first. Absent cells are
// written as empty strings and dates in ISO form.
func tableValues(t *model.Table) [][]any {
	values := make([][]any, 0, t.Len()+1)
	header := make([]any, len(t.Columns))
	for i, c := range t.Columns {
		header[i] = c
	}
	values = append(values, header)

	for _, row := range t.Rows {
		cells := make([]any, len(row))
		for i, v := range row {
			cells[i] = cellValue(v)
		}
		values = append(values, cells)
	}
	return values
}

func cellValue(v any) any {
	switch val := v.(type) {
	case nil:
		return ""
	case float64, int64, int, string:
		return val
	case time.Time:
		return val.Format(model.DateLayout)
	case model.Ratio:
		if !val.Defined {
			return ""
		}
		return val.Value
	default:
		return model.FormatCell(val)
	}
}

// formatRequests builds the header styling for tab: bold filled header,
// frozen first row and auto-sized columns. Alternating row colors are added
// only when the headers are valid table headers; earlier bandings are
// removed first so repeated runs stay idempotent.
func formatRequests(tab *sheets.Sheet, t *model.Table) []*sheets.Request {
	sheetID := tab.Properties.SheetId
	cols := int64(len(t.Columns))
	rows := int64(t.Len() + 1)

	requests := make([]*sheets.Request, 0, 4+len(tab.BandedRanges))
	for _, br := range tab.BandedRanges {
		requests = append(requests, &sheets.Request{
			DeleteBanding: &sheets.DeleteBandingRequest{BandedRangeId: br.BandedRangeId},
		})
	}

	requests = append(requests,
		&sheets.Request{
			RepeatCell: &sheets.RepeatCellRequest{
				Range: &sheets.GridRange{
					SheetId:          sheetID,
					StartRowIndex:    0,
					EndRowIndex:      1,
					StartColumnIndex: 0,
					EndColumnIndex:   cols,
				},
				Cell: &sheets.CellData{
					UserEnteredFormat: &sheets.CellFormat{
						BackgroundColor: headerColor,
						TextFormat:      &sheets.TextFormat{Bold: true},
					},
				},
				Fields: "userEnteredFormat(backgroundColor,textFormat)",
			},
		},
		&sheets.Request{
			UpdateSheetProperties: &sheets.UpdateSheetPropertiesRequest{
				Properties: &sheets.SheetProperties{
					SheetId: sheetID,
					GridProperties: &sheets.GridProperties{
						FrozenRowCount: 1,
					},
				},
				Fields: "gridProperties.frozenRowCount",
			},
		},
		&sheets.Request{
			AutoResizeDimensions: &sheets.AutoResizeDimensionsRequest{
				Dimensions: &sheets.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "COLUMNS",
					StartIndex: 0,
					EndIndex:   cols,
				},
			},
		},
	)

	if t.HeadersValid && rows > 1 {
		requests = append(requests, &sheets.Request{
			AddBanding: &sheets.AddBandingRequest{
				BandedRange: &sheets.BandedRange{
					Range: &sheets.GridRange{
						SheetId:          sheetID,
						StartRowIndex:    0,
						EndRowIndex:      rows,
						StartColumnIndex: 0,
						EndColumnIndex:   cols,
					},
					RowProperties: &sheets.BandingProperties{
						HeaderColor:     headerColor,
						FirstBandColor:  &sheets.Color{Red: 1, Green: 1, Blue: 1},
						SecondBandColor: &sheets.Color{Red: 0.93, Green: 0.97, Blue: 0.98},
					},
				},
			},
		})
	}

	return requests
}
