package loader

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/Veraticus/packflow/internal/common"
	"github.com/Veraticus/packflow/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColumnNames(t *testing.T) {
	got := ColumnNames([]string{
		"SEMANA",
		"FECHA DE COSECHA",
		"% Kg Exportables",
		"KG 4.4OZ C/E BERRY FRESH CHINA",
		"CAJA 12x125 gr 1.5 KG (4.4 OZ)",
		"Año",
		"kg descarte",
		"KG-DESCARTE",
		"  ",
	})
	assert.Equal(t, []string{
		"semana",
		"fecha_de_cosecha",
		"pct_kg_exportables",
		"kg_4_4oz_c_e_berry_fresh_china",
		"caja_12x125_gr_1_5_kg_4_4_oz",
		"ano",
		"kg_descarte",
		"kg_descarte_2",
		"col",
	}, got)
}

func TestTableName(t *testing.T) {
	assert.Equal(t, "mass_balance", TableName("mass_balance"))
	assert.Equal(t, "c_2025_report", TableName("2025 report"))
}

func TestColumnTypes(t *testing.T) {
	table := model.NewTable("t", []string{"SEMANA", "FECHA", "KG", "EMPRESA", "VACIA"})
	require.NoError(t, table.Append([]any{int64(28), nil, 5.5, "ACME", nil}))
	require.NoError(t, table.Append([]any{int64(28), time.Date(2025, 7, 11, 0, 0, 0, 0, time.UTC), 1.0, "ACME", nil}))

	assert.Equal(t, []ColumnType{TypeInt, TypeDate, TypeNumber, TypeText, TypeText}, ColumnTypes(table))
}

func TestCreateTableSQL(t *testing.T) {
	sql := createTableSQL(pgx.Identifier{"public", "mass_balance"}, []string{"semana", "kg_procesados"}, []ColumnType{TypeInt, TypeNumber})
	assert.Equal(t, `CREATE TABLE IF NOT EXISTS "public"."mass_balance" ("semana" bigint, "kg_procesados" double precision)`, sql)
	assert.Equal(t, `"a", "b"`, quoteList([]string{"a", "b"}))
}

func TestProgressSource(t *testing.T) {
	var seen []int
	src := &progressSource{
		rows:     [][]any{{model.NewRatio(1, 2), model.CategoryUnspecified}, {model.NewRatio(1, 0), "x"}},
		progress: func(done, total int) { seen = append(seen, done*10+total) },
	}

	require.True(t, src.Next())
	values, err := src.Values()
	require.NoError(t, err)
	assert.Equal(t, []any{0.5, model.UnspecifiedLabel}, values)

	require.True(t, src.Next())
	values, err = src.Values()
	require.NoError(t, err)
	assert.Equal(t, []any{nil, "x"}, values)

	assert.False(t, src.Next())
	assert.NoError(t, src.Err())
	assert.Equal(t, []int{12, 22}, seen)
}

func TestNewPostgres_RequiresDSN(t *testing.T) {
	_, err := NewPostgres(context.Background(), Config{}, common.DiscardLogger())
	assert.ErrorIs(t, err, common.ErrMissingConfig)
}

func TestWriteTable_EmptyIsNoop(t *testing.T) {
	p := &Postgres{logger: common.DiscardLogger()}
	assert.NoError(t, p.WriteTable(context.Background(), model.NewTable("mass_balance", []string{"A"})))
}

func TestPostgres_Reload(t *testing.T) {
	dsn := os.Getenv("PACKFLOW_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("PACKFLOW_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()

	p, err := NewPostgres(ctx, Config{DSN: dsn}, common.DiscardLogger())
	require.NoError(t, err)
	defer func() { _ = p.Close() }()

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	defer pool.Close()
	_, err = pool.Exec(ctx, `DROP TABLE IF EXISTS public.packflow_reload_test`)
	require.NoError(t, err)

	day := time.Date(2025, 7, 11, 0, 0, 0, 0, time.UTC)
	first := model.NewTable("packflow_reload_test", []string{"SEMANA", "FECHA", "KG Procesados"})
	require.NoError(t, first.Append([]any{int64(28), day, 1000.0}))
	require.NoError(t, first.Append([]any{int64(28), day, 500.0}))
	require.NoError(t, p.WriteTable(ctx, first))

	second := model.NewTable("packflow_reload_test", []string{"SEMANA", "FECHA", "KG Procesados"})
	require.NoError(t, second.Append([]any{int64(29), day.AddDate(0, 0, 7), 42.0}))
	require.NoError(t, p.WriteTable(ctx, second))

	var count int
	var total float64
	err = pool.QueryRow(ctx, `SELECT count(*), sum(kg_procesados) FROM public.packflow_reload_test`).Scan(&count, &total)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.InDelta(t, 42.0, total, 1e-9)
}
