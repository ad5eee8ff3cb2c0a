package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/packflow/internal/model"
)

func traceInputs() Inputs {
	return Inputs{
		model.StreamReception: receptionTable(
			[]string{"11/07/2025", "09:00:00", "P-01", "A1", "410,5"},
			[]string{"09/07/2025", "08:00:00", "P-00", "OLD", "300"},
			[]string{"11/07/2025", "10:30:00", "P-02", "B2", "380"},
		),
		model.StreamCooling: coolingTable(
			[]string{"11/07/2025", "14:00", "16:00", "A1", "CLAMSHELL"},
			[]string{"09/07/2025", "10:00", "11:00", "OLD", "CLAMSHELL"},
		),
		model.StreamDumping: dumpingTable(
			[]string{"28", "10/07/2025", "12/07/2025", "DIA", "EXCELLENCE FRUIT SAC", "CONVENCIONAL", "LAS LOMAS", "BILOXI", "120,5", "08:00", "09:30", " A1 ", "CLAMSHELL"},
			[]string{"28", "08/07/2025", "09/07/2025", "DIA", "AGRO SUR", "CONVENCIONAL", "LAS LOMAS", "BILOXI", "90", "07:00", "07:40", "OLD", "CLAMSHELL"},
		),
	}
}

func TestTimeTrace_EndToEnd(t *testing.T) {
	e := newTestEngine(t)

	res, err := e.TimeTrace(context.Background(), traceInputs())
	require.NoError(t, err)

	require.Len(t, res.TimeTrace, 2)
	a1 := res.TimeTrace[0]
	assert.Equal(t, "A1", a1.QR)
	assert.Equal(t, day(11), a1.ReceptionDate)
	assert.Equal(t, "21:00:00", a1.ReceptionHour)
	assert.Equal(t, "P-01", a1.Pallet)

	require.NotNil(t, a1.Cooling)
	assert.Equal(t, "14:00:00", a1.Cooling.Start)
	assert.Equal(t, "16:00:00", a1.Cooling.End)

	require.NotNil(t, a1.Dumping)
	assert.Equal(t, day(12), a1.Dumping.ProcessDate)
	assert.Equal(t, "08:00:00", a1.Dumping.Start)
	assert.Equal(t, "09:30:00", a1.Dumping.End)
	assert.Equal(t, "EXCELLENCE FRUIT S.A.C", a1.Dumping.Company.String())

	b2 := res.TimeTrace[1]
	assert.Equal(t, "B2", b2.QR)
	assert.Equal(t, "22:30:00", b2.ReceptionHour)
	assert.Nil(t, b2.Cooling)
	assert.Nil(t, b2.Dumping)

	for _, tr := range res.TimeTrace {
		assert.NotEqual(t, "OLD", tr.QR, "rows before the reporting start are excluded")
	}

	table, ok := res.Table(TimeTraceTable)
	require.True(t, ok)
	assert.Equal(t, TimeTraceColumns, table.Columns)
	assert.True(t, table.HeadersValid)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, []any{
		day(11), "21:00:00", "P-01", "A1",
		day(11), "14:00:00", "16:00:00",
		day(12), "08:00:00", "09:30:00", "EXCELLENCE FRUIT S.A.C", "CLAMSHELL",
	}, table.Rows[0])
	assert.Equal(t, []any{
		day(11), "22:30:00", "P-02", "B2",
		nil, nil, nil,
		nil, nil, nil, nil, nil,
	}, table.Rows[1])

	assert.Equal(t, 2, res.StreamRows[model.StreamReception])
	assert.Equal(t, 1, res.StreamRows[model.StreamCooling])
	assert.Equal(t, 1, res.StreamRows[model.StreamDumping])
}

func TestTimeTrace_MultipleEventsPerQR(t *testing.T) {
	e := newTestEngine(t)
	in := traceInputs()
	in[model.StreamCooling] = coolingTable(
		[]string{"11/07/2025", "15:00", "15:30", "A1", "CLAMSHELL"},
		[]string{"11/07/2025", "14:00", "14:45", "A1", "CLAMSHELL"},
		[]string{"12/07/2025", "07:00", "17:10", "A1", "CLAMSHELL"},
	)

	res, err := e.TimeTrace(context.Background(), in)
	require.NoError(t, err)
	require.NotNil(t, res.TimeTrace[0].Cooling)
	assert.Equal(t, day(11), res.TimeTrace[0].Cooling.Date)
	assert.Equal(t, "14:00:00", res.TimeTrace[0].Cooling.Start)
	assert.Equal(t, "17:10:00", res.TimeTrace[0].Cooling.End)
}

func TestTimeTrace_EmptyStreams(t *testing.T) {
	e := newTestEngine(t)
	res, err := e.TimeTrace(context.Background(), Inputs{
		model.StreamReception: receptionTable(),
		model.StreamCooling:   coolingTable(),
		model.StreamDumping:   dumpingTable(),
	})
	require.NoError(t, err)
	assert.Empty(t, res.TimeTrace)
	table, ok := res.Table(TimeTraceTable)
	require.True(t, ok)
	assert.Equal(t, 0, table.Len())
	assert.Equal(t, 0, res.Defects.Len())
}

func TestTimeTrace_Defects(t *testing.T) {
	e := newTestEngine(t)
	in := traceInputs()
	in[model.StreamReception] = receptionTable(
		[]string{"11/07/2025", "09:00:00", "P-01", "A1", "410,5"},
		[]string{"", "09:00:00", "P-03", "C3", "1"},
		[]string{"11/07/2025", "09:00:00", "P-04", "", "1"},
	)
	in[model.StreamCooling] = coolingTable(
		[]string{"11/07/2025", "14:00", "16:00", "ZZ", "CLAMSHELL"},
	)

	res, err := e.TimeTrace(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, res.TimeTrace, 1)

	counts := res.Defects.Counts()
	assert.Equal(t, 1, counts[model.DefectDroppedRow])
	assert.Equal(t, 1, counts[model.DefectMissingKey])
	assert.Equal(t, 1, counts[model.DefectOrphan])

	orphan := res.Defects.Filter(model.DefectOrphan)[0]
	assert.Equal(t, model.StreamCooling, orphan.Stream)
	assert.Equal(t, "(ZZ)", orphan.Value)
}
