package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/packflow/internal/common"
	"github.com/Veraticus/packflow/internal/model"
	"github.com/Veraticus/packflow/internal/taxonomy"
)

func day(d int) time.Time {
	return time.Date(2025, 7, d, 0, 0, 0, 0, time.UTC)
}

func testTaxonomy(t *testing.T) *taxonomy.Taxonomy {
	t.Helper()
	tax, err := taxonomy.New(taxonomy.File{
		Presentations: []taxonomy.Entry{
			{Presentation: "CAJA 12x125", Group: "CAT 1", UnitsPerBox: 12, UnitKg: 0.125},
			{Presentation: "CAJA 8x18", Group: "CAT 1", UnitsPerBox: 8, UnitKg: 0.5},
			{Presentation: "GRANEL 5KG", Group: "GRANEL", UnitsPerBox: 1, UnitKg: 5},
		},
		Products: map[string]string{
			"125 GRS SAN LUCAR": "CAJA 12x125",
		},
		Synonyms: map[string]string{
			"125 GRS SAN LUCAR OLD": "125 GRS SAN LUCAR",
		},
	})
	require.NoError(t, err)
	return tax
}

func newTestEngine(t *testing.T, mutate ...func(*Config)) *Engine {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Taxonomy = testTaxonomy(t)
	cfg.Logger = common.DiscardLogger()
	cfg.ReportingStart = day(10)
	cfg.CompanyAliases = map[string]string{"EXCELLENCE FRUIT SAC": "EXCELLENCE FRUIT S.A.C"}
	for _, m := range mutate {
		m(&cfg)
	}
	e, err := New(cfg)
	require.NoError(t, err)
	return e
}

func receptionTable(rows ...[]string) model.RawTable {
	return model.NewRawTable(model.StreamReception, append([][]string{
		{"FECHA RECEPCION", "HORA RECEPCION", "N° PALLET", "CODIGO QR", "KILOS BRUTO"},
	}, rows...))
}

func coolingTable(rows ...[]string) model.RawTable {
	return model.NewRawTable(model.StreamCooling, append([][]string{
		{"FECHA", "HORA INICIAL", "HORA FINAL", "QR", "FORMATO"},
	}, rows...))
}

var dumpingHeader = []string{
	"SEMANA", "FECHA DE COSECHA", "FECHA DE PROCESO", "TURNO DE PROCESO", "PROVEEDOR",
	"TIPO DE PRODUCTO", "FUNDO", "VARIEDAD", "PESO NETO", "HORA INICIO", "HORA FINAL", "QR", "FORMATO",
}

func dumpingTable(rows ...[]string) model.RawTable {
	return model.NewRawTable(model.StreamDumping, append([][]string{dumpingHeader}, rows...))
}

func discardTable(rows ...[]string) model.RawTable {
	return model.NewRawTable(model.StreamDiscard, append([][]string{
		{"SEMANA", "FECHA DE COSECHA", "FECHA DE PROCESO", "EMPRESA", "FUNDO", "VARIEDAD", "KG DESCARTE"},
	}, rows...))
}

func finishedTable(rows ...[]string) model.RawTable {
	return model.NewRawTable(model.StreamFinishedProduct, append([][]string{
		{"SEMANA", "F. COSECHA", "F. PRODUCCION", "TURNO", "CLIENTE", "DESCRIPCION DEL PRODUCTO", "FUNDO", "VARIEDAD", "Nº CAJAS"},
	}, rows...))
}

func productionTable(rows ...[]string) model.RawTable {
	return model.NewRawTable(model.StreamProductionReport, append([][]string{
		{"Semana", "Fecha de cosecha", "Fecha de proceso", "Turno Proceso", "Empresa", "Tipo", "Fundo", "Variedad", "Kg Procesados", "Kg Descarte", "%. Kg Exportables"},
	}, rows...))
}

func TestNew(t *testing.T) {
	_, err := New(Config{})
	assert.ErrorIs(t, err, common.ErrMissingConfig)

	cfg := DefaultConfig()
	cfg.ShrinkageThreshold = 1.5
	_, err = New(cfg)
	assert.ErrorIs(t, err, common.ErrInvalidConfig)

	_, err = New(DefaultConfig())
	assert.NoError(t, err)
}

func TestRun_MissingStream(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.TimeTrace(context.Background(), Inputs{model.StreamReception: receptionTable()})
	assert.ErrorIs(t, err, common.ErrMissingStream)
}

func TestRun_CanceledContext(t *testing.T) {
	e := newTestEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.Run(ctx, Inputs{model.StreamProductionReport: productionTable()}, PipelineProduction)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParsePipeline(t *testing.T) {
	p, err := ParsePipeline(" Mass-Balance ")
	require.NoError(t, err)
	assert.Equal(t, PipelineMassBalance, p)

	_, err = ParsePipeline("costs")
	assert.ErrorIs(t, err, common.ErrInvalidConfig)

	assert.Equal(t,
		[]model.StreamKind{model.StreamReception, model.StreamCooling, model.StreamDumping, model.StreamDiscard, model.StreamFinishedProduct},
		StreamsFor([]Pipeline{PipelineMassBalance, PipelineTimeTrace}))
}

func TestResult_Totals(t *testing.T) {
	res := &Result{MassBalance: []model.WideRecord{
		{Balance: model.MassBalance{KgProcessed: 1000, KgDiscard: 100, KgExportable: 800, KgOverweight: 100, TotalBoxes: 200}},
		{Balance: model.MassBalance{KgProcessed: 500, KgDiscard: 50, KgExportable: 450, TotalBoxes: 90}},
	}}

	got := res.Totals()
	assert.InDelta(t, 1500, got.KgProcessed, 1e-9)
	assert.InDelta(t, 150, got.KgDiscard, 1e-9)
	assert.InDelta(t, 1250, got.KgExportable, 1e-9)
	assert.InDelta(t, 290, got.TotalBoxes, 1e-9)
	assert.True(t, got.PctDiscard.Defined)
	assert.InDelta(t, 0.1, got.PctDiscard.Value, 1e-9)
	assert.InDelta(t, 1250.0/1500, got.PctYield.Value, 1e-9)

	empty := (&Result{}).Totals()
	assert.False(t, empty.PctYield.Defined)
}
