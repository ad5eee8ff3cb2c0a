// Package loader reloads output tables into a relational database.
package loader

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/Veraticus/packflow/internal/common"
	"github.com/Veraticus/packflow/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ProgressFunc is called after each copied row with the running count.
type ProgressFunc func(done, total int)

// Config holds the Postgres connection settings.
type Config struct {
	DSN    string
	Schema string
}

type beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Postgres replaces the contents of one table per output with the rows of
// the latest run. Each reload runs in a single transaction so readers see
// either the old or the new rows.
type Postgres struct {
	db       beginner
	close    func()
	logger   *slog.Logger
	Progress ProgressFunc
	schema   string
	retry    common.RetryOptions
}

// NewPostgres connects to cfg.DSN.
func NewPostgres(ctx context.Context, cfg Config, logger *slog.Logger) (*Postgres, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("%w: postgres dsn", common.ErrMissingConfig)
	}
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	schema := cfg.Schema
	if schema == "" {
		schema = "public"
	}
	return &Postgres{
		db:     pool,
		close:  pool.Close,
		logger: logger,
		schema: schema,
		retry:  common.DefaultRetryOptions(),
	}, nil
}

// Name identifies the sink in logs and run history.
func (p *Postgres) Name() string {
	return "postgres"
}

// Close releases the connection pool.
func (p *Postgres) Close() error {
	if p.close != nil {
		p.close()
	}
	return nil
}

// WriteTable clears and reloads the table named after t. An empty table
// leaves the existing rows in place.
func (p *Postgres) WriteTable(ctx context.Context, t *model.Table) error {
	if t.Len() == 0 {
		p.logger.Warn("No rows to load, keeping existing data", "table", t.Name)
		return nil
	}

	start := time.Now()
	err := common.WithRetry(ctx, func() error {
		return p.reload(ctx, t)
	}, p.retry)
	if err != nil {
		return fmt.Errorf("reload %s: %w", t.Name, err)
	}

	p.logger.Info("Table reloaded",
		"table", t.Name,
		"rows", t.Len(),
		"duration", time.Since(start))
	return nil
}

func (p *Postgres) reload(ctx context.Context, t *model.Table) (err error) {
	tx, err := p.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(context.WithoutCancel(ctx))
		}
	}()

	columns := ColumnNames(t.Columns)
	target := pgx.Identifier{p.schema, TableName(t.Name)}
	staging := pgx.Identifier{TableName(t.Name) + "_staging"}

	for _, stmt := range []string{
		createTableSQL(target, columns, ColumnTypes(t)),
		fmt.Sprintf("CREATE TEMP TABLE %s (LIKE %s INCLUDING ALL) ON COMMIT DROP", staging.Sanitize(), target.Sanitize()),
	} {
		if _, err = tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("prepare: %w", err)
		}
	}

	src := &progressSource{rows: t.Rows, progress: p.Progress}
	copied, err := tx.CopyFrom(ctx, staging, columns, src)
	if err != nil {
		return fmt.Errorf("copy rows: %w", err)
	}
	if int(copied) != t.Len() {
		return common.Permanent(fmt.Errorf("copied %d of %d rows", copied, t.Len()))
	}

	if _, err = tx.Exec(ctx, "DELETE FROM "+target.Sanitize()); err != nil {
		return fmt.Errorf("clear: %w", err)
	}
	insert := fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s",
		target.Sanitize(), quoteList(columns), quoteList(columns), staging.Sanitize())
	if _, err = tx.Exec(ctx, insert); err != nil {
		return fmt.Errorf("insert: %w", err)
	}

	return tx.Commit(ctx)
}

// progressSource feeds table rows to COPY and reports progress.
type progressSource struct {
	progress ProgressFunc
	rows     [][]any
	idx      int
}

func (s *progressSource) Next() bool {
	if s.idx >= len(s.rows) {
		return false
	}
	s.idx++
	if s.progress != nil {
		s.progress(s.idx, len(s.rows))
	}
	return true
}

func (s *progressSource) Values() ([]any, error) {
	row := s.rows[s.idx-1]
	out := make([]any, len(row))
	for i, v := range row {
		out[i] = dbValue(v)
	}
	return out, nil
}

func (s *progressSource) Err() error { return nil }

func dbValue(v any) any {
	switch val := v.(type) {
	case model.Ratio:
		return val.Cell()
	case model.Category:
		return val.String()
	default:
		return val
	}
}

// ColumnType is the SQL type a column is created with.
type ColumnType string

// Column types.
const (
	TypeText   ColumnType = "text"
	TypeNumber ColumnType = "double precision"
	TypeInt    ColumnType = "bigint"
	TypeDate   ColumnType = "date"
)

// ColumnTypes infers one SQL type per column from the first non-null cell.
// Columns that are always null are text.
func ColumnTypes(t *model.Table) []ColumnType {
	types := make([]ColumnType, len(t.Columns))
	for i := range types {
		types[i] = TypeText
		for _, row := range t.Rows {
			if typ, ok := sqlType(row[i]); ok {
				types[i] = typ
				break
			}
		}
	}
	return types
}

func sqlType(v any) (ColumnType, bool) {
	switch v.(type) {
	case nil:
		return "", false
	case float64, model.Ratio:
		return TypeNumber, true
	case int64, int:
		return TypeInt, true
	case time.Time:
		return TypeDate, true
	default:
		return TypeText, true
	}
}

// ColumnNames converts display headers into unique SQL column names, e.g.
// "% Kg Exportables" becomes "pct_kg_exportables".
func ColumnNames(headers []string) []string {
	out := make([]string, len(headers))
	seen := make(map[string]int, len(headers))
	for i, h := range headers {
		name := identifier(h)
		if n := seen[name]; n > 0 {
			seen[name] = n + 1
			name = fmt.Sprintf("%s_%d", name, n+1)
		} else {
			seen[name] = 1
		}
		out[i] = name
	}
	return out
}

// TableName converts a table name into a SQL identifier.
func TableName(name string) string {
	return identifier(name)
}

func identifier(s string) string {
	var b strings.Builder
	s = strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "%", " pct ")
	underscore := false
	for _, r := range s {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
			underscore = false
		case r == 'ñ':
			b.WriteRune('n')
			underscore = false
		default:
			if !underscore && b.Len() > 0 {
				b.WriteByte('_')
				underscore = true
			}
		}
	}
	name := strings.TrimSuffix(b.String(), "_")
	if name == "" {
		return "col"
	}
	if unicode.IsDigit(rune(name[0])) {
		name = "c_" + name
	}
	return name
}

func createTableSQL(target pgx.Identifier, columns []string, types []ColumnType) string {
	defs := make([]string, len(columns))
	for i, c := range columns {
		defs[i] = pgx.Identifier{c}.Sanitize() + " " + string(types[i])
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", target.Sanitize(), strings.Join(defs, ", "))
}

func quoteList(columns []string) string {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = pgx.Identifier{c}.Sanitize()
	}
	return strings.Join(quoted, ", ")
}
