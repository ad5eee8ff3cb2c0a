package sheets

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Veraticus/packflow/internal/common"
	"github.com/Veraticus/packflow/internal/model"
	"google.golang.org/api/sheets/v4"
)

// Reader fetches input streams from the tabs of the input spreadsheet.
type Reader struct {
	service *sheets.Service
	logger  *slog.Logger
	config  Config
}

// NewReader creates a reader for config.InputSpreadsheetID.
func NewReader(ctx context.Context, config Config, logger *slog.Logger) (*Reader, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if config.InputSpreadsheetID == "" {
		return nil, fmt.Errorf("%w: input spreadsheet id", common.ErrMissingConfig)
	}

	srv, err := newService(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return &Reader{service: srv, config: config, logger: logger}, nil
}

// Fetch reads the tab configured for kind. Cells are read as displayed so
// that locale formatting is resolved by the normalizer.
func (r *Reader) Fetch(ctx context.Context, kind model.StreamKind) (model.RawTable, error) {
	tab := r.config.Tab(kind)
	var resp *sheets.ValueRange

	err := common.WithRetry(ctx, func() error {
		var err error
		resp, err = r.service.Spreadsheets.Values.Get(r.config.InputSpreadsheetID, tabRange(tab, "")).
			ValueRenderOption("FORMATTED_VALUE").
			Context(ctx).
			Do()
		return err
	}, r.config.retryOptions())
	if err != nil {
		return model.RawTable{}, fmt.Errorf("failed to read tab %q for %s: %w", tab, kind, err)
	}

	table := model.NewRawTable(kind, valuesToStrings(resp.Values))
	r.logger.Debug("fetched stream", "stream", kind, "tab", tab, "rows", table.Len())
	return table, nil
}

// valuesToStrings converts API cells to text and pads ragged rows to the
// header width. The API omits trailing empty cells.
func valuesToStrings(values [][]any) [][]string {
	if len(values) == 0 {
		return nil
	}
	width := len(values[0])
	out := make([][]string, 0, len(values))
	for _, row := range values {
		n := width
		if len(row) > n {
			n = len(row)
		}
		cells := make([]string, n)
		for i, v := range row {
			switch val := v.(type) {
			case nil:
			case string:
				cells[i] = strings.TrimSpace(val)
			default:
				cells[i] = fmt.Sprint(val)
			}
		}
		out = append(out, cells)
	}
	return out
}
