package engine

import (
	"time"

	"github.com/Veraticus/packflow/internal/aggregate"
	"github.com/Veraticus/packflow/internal/model"
	"github.com/Veraticus/packflow/internal/reconcile"
)

// TimeTraceTable is the name of the time-trace output table.
const TimeTraceTable = "time_trace"

// TimeTraceColumns is the column order of the time-trace table.
var TimeTraceColumns = []string{
	"FECHA RECEPCION",
	"HORA RECEPCION",
	"N° PALLET",
	"QR",
	"FECHA ENFRIAMIENTO",
	"HORA INICIAL ENFRIAMIENTO",
	"HORA FINAL ENFRIAMIENTO",
	"FECHA DE PROCESO",
	"HORA INICIO PROCESO",
	"HORA FINAL PROCESO",
	"PROVEEDOR",
	"FORMATO",
}

var (
	coolingFields = []string{model.FieldCoolingDate, model.FieldCoolingStart, model.FieldCoolingEnd}
	dumpingFields = []string{model.FieldProcessDate, model.FieldDumpStart, model.FieldDumpEnd, model.FieldCompany, model.FieldFormat}
)

// perQR collapses a time-trace stream to one row per QR. Rows are ordered
// chronologically first so the first date and start time belong to the
// earliest event, while the end time is the latest seen.
func (s *session) perQR(kind model.StreamKind, dateField, startField, endField string, extra ...aggregate.Measure) []model.Row {
	rows := s.prepared[kind]
	ordered := append([]model.Row(nil), rows...)
	aggregate.SortRows(ordered, []string{dateField, startField})

	measures := []aggregate.Measure{
		{Field: dateField, Reducer: aggregate.First},
		{Field: startField, Reducer: aggregate.First},
	}
	if endField != "" {
		measures = append(measures, aggregate.Measure{Field: endField, Reducer: aggregate.Max})
	}
	measures = append(measures, extra...)

	return s.aggregate(ordered, aggregate.Spec{
		Stream:   kind,
		GroupBy:  []string{model.FieldQR},
		Measures: measures,
	})
}

func (s *session) timeTrace() ([]model.TimeTrace, *model.Table, error) {
	for _, k := range PipelineTimeTrace.Streams() {
		if _, err := s.rows(k); err != nil {
			return nil, nil, err
		}
	}

	reception := s.perQR(model.StreamReception, model.FieldReceptionDate, model.FieldReceptionHour, "",
		aggregate.Measure{Field: model.FieldPallet, Reducer: aggregate.Distinct})
	cooling := s.perQR(model.StreamCooling, model.FieldCoolingDate, model.FieldCoolingStart, model.FieldCoolingEnd)
	dumping := s.perQR(model.StreamDumping, model.FieldProcessDate, model.FieldDumpStart, model.FieldDumpEnd,
		aggregate.Measure{Field: model.FieldCompany, Reducer: aggregate.Distinct},
		aggregate.Measure{Field: model.FieldFormat, Reducer: aggregate.Distinct})

	qr := []string{model.FieldQR}
	withCooling, err := reconcile.LeftJoin(reception, cooling, reconcile.JoinSpec{
		Stage:      "time-trace cooling",
		On:         qr,
		Take:       coolingFields,
		UniqueLeft: true,
	})
	if err != nil {
		return nil, nil, err
	}
	s.orphans(model.StreamCooling, withCooling.UnmatchedRight, qr, "cooling record has no reception in window")

	withDumping, err := reconcile.LeftJoin(withCooling.Rows, dumping, reconcile.JoinSpec{
		Stage: "time-trace dumping",
		On:    qr,
		Take:  dumpingFields,
	})
	if err != nil {
		return nil, nil, err
	}
	s.orphans(model.StreamDumping, withDumping.UnmatchedRight, qr, "dumping record has no reception in window")

	s.engine.logger.Info("Time trace joined",
		"pallets", len(withDumping.Rows),
		"cooled", withCooling.Matched,
		"dumped", withDumping.Matched)

	table := model.NewTable(TimeTraceTable, TimeTraceColumns)
	traces := make([]model.TimeTrace, 0, len(withDumping.Rows))
	for _, r := range withDumping.Rows {
		tr := buildTrace(r)
		traces = append(traces, tr)
		if err := table.Append(traceCells(tr)); err != nil {
			return nil, nil, err
		}
	}
	return traces, table, nil
}

func buildTrace(r model.Row) model.TimeTrace {
	tr := model.TimeTrace{
		QR:            r.Text(model.FieldQR),
		ReceptionHour: r.Text(model.FieldReceptionHour),
		Pallet:        r.Text(model.FieldPallet),
	}
	tr.ReceptionDate, _ = r.Date(model.FieldReceptionDate)

	if d, ok := r.Date(model.FieldCoolingDate); ok {
		tr.Cooling = &model.CoolingWindow{
			Date:  d,
			Start: r.Text(model.FieldCoolingStart),
			End:   r.Text(model.FieldCoolingEnd),
		}
	}
	if d, ok := r.Date(model.FieldProcessDate); ok {
		tr.Dumping = &model.DumpingWindow{
			ProcessDate: d,
			Start:       r.Text(model.FieldDumpStart),
			End:         r.Text(model.FieldDumpEnd),
			Company:     model.NewCategory(r.Text(model.FieldCompany)),
			Format:      model.NewCategory(r.Text(model.FieldFormat)),
		}
	}
	return tr
}

func traceCells(tr model.TimeTrace) []any {
	cells := []any{
		dateCell(tr.ReceptionDate),
		textCell(tr.ReceptionHour),
		textCell(tr.Pallet),
		tr.QR,
		nil, nil, nil,
		nil, nil, nil, nil, nil,
	}
	if c := tr.Cooling; c != nil {
		cells[4] = dateCell(c.Date)
		cells[5] = textCell(c.Start)
		cells[6] = textCell(c.End)
	}
	if d := tr.Dumping; d != nil {
		cells[7] = dateCell(d.ProcessDate)
		cells[8] = textCell(d.Start)
		cells[9] = textCell(d.End)
		cells[10] = d.Company.String()
		cells[11] = d.Format.String()
	}
	return cells
}

func dateCell(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

func textCell(s string) any {
	if s == "" {
		return nil
	}
	return s
}
