// Package source loads the raw input streams the engine reconciles.
package source

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Veraticus/packflow/internal/model"
	"github.com/Veraticus/packflow/internal/service"
	"golang.org/x/sync/errgroup"
)

// Source is re-exported so callers depending only on this package can name it.
type Source = service.Source

// CSVDir reads one CSV file per stream from a directory. The file for a
// stream is <dir>/<kind>.csv unless overridden in Files.
type CSVDir struct {
	Files     map[model.StreamKind]string
	Dir       string
	Delimiter rune
}

// NewCSVDir creates a CSVDir reading comma separated files from dir.
func NewCSVDir(dir string) *CSVDir {
	return &CSVDir{Dir: dir, Delimiter: ','}
}

// Path returns the file read for kind.
func (c *CSVDir) Path(kind model.StreamKind) string {
	if name, ok := c.Files[kind]; ok && name != "" {
		if filepath.IsAbs(name) {
			return name
		}
		return filepath.Join(c.Dir, name)
	}
	return filepath.Join(c.Dir, string(kind)+".csv")
}

// Fetch reads the CSV file of kind. A missing file is reported as
// os.ErrNotExist so callers can tell it apart from malformed content.
func (c *CSVDir) Fetch(ctx context.Context, kind model.StreamKind) (model.RawTable, error) {
	if err := ctx.Err(); err != nil {
		return model.RawTable{}, err
	}

	path := c.Path(kind)
	f, err := os.Open(path) // #nosec G304
	if err != nil {
		return model.RawTable{}, fmt.Errorf("open %s stream: %w", kind, err)
	}
	defer func() { _ = f.Close() }()

	values, err := ReadCSV(f, c.Delimiter)
	if err != nil {
		return model.RawTable{}, fmt.Errorf("read %s: %w", path, err)
	}
	return model.NewRawTable(kind, values), nil
}

// ReadCSV parses r into rows of trimmed cells. Ragged rows are allowed and
// a UTF-8 byte order mark on the first cell is removed.
func ReadCSV(r io.Reader, delimiter rune) ([][]string, error) {
	reader := csv.NewReader(r)
	if delimiter != 0 {
		reader.Comma = delimiter
	}
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var out [][]string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		for i := range record {
			record[i] = strings.TrimSpace(record[i])
		}
		if len(out) == 0 && len(record) > 0 {
			record[0] = strings.TrimPrefix(record[0], "\ufeff")
		}
		out = append(out, record)
	}
	return out, nil
}

// FetchAll fetches kinds concurrently and returns them keyed by stream. The
// first failure cancels the remaining fetches.
func FetchAll(ctx context.Context, src Source, kinds []model.StreamKind, logger *slog.Logger) (map[model.StreamKind]model.RawTable, error) {
	var mu sync.Mutex
	out := make(map[model.StreamKind]model.RawTable, len(kinds))

	g, gCtx := errgroup.WithContext(ctx)
	for _, kind := range kinds {
		g.Go(func() error {
			table, err := src.Fetch(gCtx, kind)
			if err != nil {
				return fmt.Errorf("fetch %s: %w", kind, err)
			}
			logger.Info("Stream loaded", "stream", kind, "rows", table.Len())

			mu.Lock()
			out[kind] = table
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
