package engine

import (
	"github.com/Veraticus/packflow/internal/aggregate"
	"github.com/Veraticus/packflow/internal/model"
)

// ProductionTable is the name of the production summary table.
const ProductionTable = "production_summary"

// ProductionColumns is the column order of the production summary.
var ProductionColumns = []string{
	"SEMANA",
	"FECHA",
	"VARIEDAD",
	"FUNDO",
	"EMPRESA",
	"KG_EXPORTABLES",
	"KG_DESCARTE",
	"KG_PROCESADOS",
}

var productionKey = []string{
	model.FieldWeek,
	model.FieldProcessDate,
	model.FieldVariety,
	model.FieldFarm,
	model.FieldCompany,
}

func (s *session) production() ([]model.ProductionSummary, *model.Table, error) {
	src, err := s.rows(model.StreamProductionReport)
	if err != nil {
		return nil, nil, err
	}

	withExportable := make([]model.Row, 0, len(src))
	for _, r := range src {
		out := r.Clone()
		out[model.FieldKgExportable] = r.Float(model.FieldKgProcessed) * r.Float(model.FieldPctExportable) / 100
		withExportable = append(withExportable, out)
	}

	rows := s.aggregate(withExportable, aggregate.Spec{
		Stream:  model.StreamProductionReport,
		GroupBy: productionKey,
		Measures: []aggregate.Measure{
			{Field: model.FieldKgExportable, Reducer: aggregate.Sum},
			{Field: model.FieldKgDiscard, Reducer: aggregate.Sum},
			{Field: model.FieldKgProcessed, Reducer: aggregate.Sum},
		},
	})

	table := model.NewTable(ProductionTable, ProductionColumns)
	summary := make([]model.ProductionSummary, 0, len(rows))
	for _, r := range rows {
		p := model.ProductionSummary{
			Variety:      r.Category(model.FieldVariety),
			Farm:         r.Category(model.FieldFarm),
			Company:      r.Category(model.FieldCompany),
			KgExportable: r.Float(model.FieldKgExportable),
			KgDiscard:    r.Float(model.FieldKgDiscard),
			KgProcessed:  r.Float(model.FieldKgProcessed),
		}
		if w, ok := r[model.FieldWeek].(int64); ok {
			p.Week = w
		}
		p.ProcessDate, _ = r.Date(model.FieldProcessDate)
		summary = append(summary, p)

		if err := table.Append([]any{
			p.Week,
			dateCell(p.ProcessDate),
			p.Variety.String(),
			p.Farm.String(),
			p.Company.String(),
			p.KgExportable,
			p.KgDiscard,
			p.KgProcessed,
		}); err != nil {
			return nil, nil, err
		}
	}
	return summary, table, nil
}
