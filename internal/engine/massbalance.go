package engine

import (
	"fmt"
	"sort"

	"github.com/Veraticus/packflow/internal/aggregate"
	"github.com/Veraticus/packflow/internal/model"
	"github.com/Veraticus/packflow/internal/pivot"
	"github.com/Veraticus/packflow/internal/reconcile"
	"github.com/Veraticus/packflow/internal/taxonomy"
)

// MassBalanceTable is the name of the mass-balance output table.
const MassBalanceTable = "mass_balance"

// Column prefixes of the group pivots.
const (
	GroupBoxesPrefix = "CAJAS "
	GroupKgPrefix    = "KG "
)

// Leading and metric columns of the mass-balance table. Presentation and
// group columns are inserted from the taxonomy.
var (
	massBalanceKeyColumns = []string{
		"SEMANA",
		"FECHA DE COSECHA",
		"FECHA DE PROCESO",
		"TURNO DE PROCESO",
		"EMPRESA",
		"TIPO DE PRODUCTO",
		"FUNDO",
		"VARIEDAD",
	}
	massBalanceMetricColumns = []string{
		"Kg Procesados",
		"KG DESCARTE",
		"% Descarte",
		"Kg Sobre Peso1",
		"% Sobre Peso",
		"% Merma",
		"Kg merma",
		"Kg Sobre Peso",
		"% Rendimiento MP",
	}
	massBalanceTotalColumns = []string{
		"Kg Exportables",
		"% Kg Exportables",
		"TOTAL CAJAS EXPORTADAS",
	}
)

// MassBalanceColumns returns the full column set for a taxonomy. It depends
// only on the taxonomy, never on the batch.
func MassBalanceColumns(tax *taxonomy.Taxonomy) []string {
	cols := append([]string(nil), massBalanceKeyColumns...)
	cols = append(cols, massBalanceMetricColumns...)
	cols = append(cols, tax.Presentations()...)
	cols = append(cols, massBalanceTotalColumns...)
	for _, g := range tax.Groups() {
		cols = append(cols, GroupBoxesPrefix+g)
	}
	for _, g := range tax.Groups() {
		cols = append(cols, GroupKgPrefix+g)
	}
	return cols
}

func (s *session) massBalance() ([]model.WideRecord, *model.Table, error) {
	for _, k := range PipelineMassBalance.Streams() {
		if _, err := s.rows(k); err != nil {
			return nil, nil, err
		}
	}
	tax := s.engine.taxonomy

	dumping := s.aggregate(s.prepared[model.StreamDumping], aggregate.Spec{
		Stream:  model.StreamDumping,
		GroupBy: model.HarvestKeyFields,
		Measures: []aggregate.Measure{
			{Field: model.FieldKgNet, Reducer: aggregate.Sum, As: model.FieldKgProcessed},
			{Field: model.FieldProductType, Reducer: aggregate.Distinct},
		},
	})
	discard := s.aggregate(s.prepared[model.StreamDiscard], aggregate.Spec{
		Stream:   model.StreamDiscard,
		GroupBy:  model.DiscardKeyFields,
		Measures: []aggregate.Measure{{Field: model.FieldKgDiscard, Reducer: aggregate.Sum}},
	})

	// Discard carries no shift, so every shift of a day gets the day's
	// discard kg.
	balanced, err := reconcile.LeftJoin(dumping, discard, reconcile.JoinSpec{
		Stage: "mass-balance discard",
		On:    model.DiscardKeyFields,
		Take:  []string{model.FieldKgDiscard},
		Fill:  map[string]any{model.FieldKgDiscard: 0.0},
	})
	if err != nil {
		return nil, nil, err
	}
	s.orphans(model.StreamDiscard, balanced.UnmatchedRight, model.DiscardKeyFields, "discard has no dumping record")

	boxes := s.boxes()
	byPresentation := pivot.Pivot(boxes, pivot.Spec{
		GroupBy:     model.HarvestKeyFields,
		Category:    model.FieldPresentation,
		Value:       model.FieldBoxes,
		Vocabulary:  tax.Presentations(),
		Contingency: taxonomy.Contingency,
	})
	byGroup := pivot.Pivot(boxes, pivot.Spec{
		GroupBy:     model.HarvestKeyFields,
		Category:    model.FieldGroup,
		Value:       model.FieldBoxes,
		Vocabulary:  tax.Groups(),
		Contingency: taxonomy.Contingency,
		Prefix:      GroupBoxesPrefix,
	})
	kgByGroup := pivot.Pivot(boxes, pivot.Spec{
		GroupBy:     model.HarvestKeyFields,
		Category:    model.FieldGroup,
		Value:       model.FieldGroupKg,
		Vocabulary:  tax.Groups(),
		Contingency: taxonomy.Contingency,
		Prefix:      GroupKgPrefix,
	})

	rows := balanced.Rows
	for i, p := range []pivot.Result{byPresentation, byGroup, kgByGroup} {
		joined, err := reconcile.LeftJoin(rows, p.Rows, reconcile.JoinSpec{
			Stage: fmt.Sprintf("mass-balance boxes %d", i+1),
			On:    model.HarvestKeyFields,
			Take:  p.Columns,
			Fill:  zeros(p.Columns),
		})
		if err != nil {
			return nil, nil, err
		}
		if i == 0 {
			s.orphans(model.StreamFinishedProduct, joined.UnmatchedRight, model.HarvestKeyFields, "finished product has no dumping record")
		}
		rows = joined.Rows
	}

	s.engine.logger.Info("Mass balance joined",
		"batches", len(rows),
		"with_discard", balanced.Matched,
		"box_keys", len(byPresentation.Rows))

	table := model.NewTable(MassBalanceTable, MassBalanceColumns(tax))
	records := make([]model.WideRecord, 0, len(rows))
	for _, r := range rows {
		rec := s.wideRecord(r, byPresentation.Columns, byGroup.Columns, kgByGroup.Columns)
		records = append(records, rec)
		if err := table.Append(wideCells(rec, tax)); err != nil {
			return nil, nil, err
		}
	}
	return records, table, nil
}

// boxes resolves finished-product labels through the taxonomy and sums box
// counts per batch and presentation.
func (s *session) boxes() []model.Row {
	tax := s.engine.taxonomy
	src := s.prepared[model.StreamFinishedProduct]

	unmapped := make(map[string]int)
	resolved := make([]model.Row, 0, len(src))
	for _, r := range src {
		res := tax.Resolve(r.Category(model.FieldProduct).Raw())
		if !res.Mapped {
			unmapped[r.Category(model.FieldProduct).String()]++
		}
		out := r.Clone()
		out[model.FieldPresentation] = res.Presentation
		out[model.FieldGroup] = res.Group
		resolved = append(resolved, out)
	}

	labels := make([]string, 0, len(unmapped))
	for l := range unmapped {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	for _, l := range labels {
		s.engine.logger.Warn("Unmapped product label", "label", l, "rows", unmapped[l])
		s.defects.Add(model.Defect{
			Stream:  model.StreamFinishedProduct,
			Kind:    model.DefectUnmappedCategory,
			Field:   model.FieldProduct,
			Value:   l,
			Message: fmt.Sprintf("%d rows routed to %s", unmapped[l], taxonomy.Contingency),
		})
	}

	groupBy := append(append([]string(nil), model.HarvestKeyFields...), model.FieldPresentation, model.FieldGroup)
	summed := s.aggregate(resolved, aggregate.Spec{
		Stream:   model.StreamFinishedProduct,
		GroupBy:  groupBy,
		Measures: []aggregate.Measure{{Field: model.FieldBoxes, Reducer: aggregate.Sum}},
	})
	for _, r := range summed {
		r[model.FieldGroupKg] = r.Float(model.FieldBoxes) * tax.UnitWeight(r.Text(model.FieldPresentation))
	}
	return summed
}

func (s *session) wideRecord(r model.Row, presentationCols, groupCols, kgCols []string) model.WideRecord {
	tax := s.engine.taxonomy
	rec := model.WideRecord{
		Key:          model.HarvestKeyFromRow(r),
		ProductType:  r.Text(model.FieldProductType),
		Presentation: make(map[string]float64, len(presentationCols)),
		GroupBoxes:   make(map[string]float64, len(groupCols)),
		GroupKg:      make(map[string]float64, len(kgCols)),
	}
	for _, p := range tax.Presentations() {
		rec.Presentation[p] = r.Float(p)
	}
	for _, g := range tax.Groups() {
		rec.GroupBoxes[g] = r.Float(GroupBoxesPrefix + g)
		rec.GroupKg[g] = r.Float(GroupKgPrefix + g)
	}

	exportable := pivot.Total(r, kgCols)
	rec.Balance = s.engine.calculator.Compute(r.Float(model.FieldKgProcessed), r.Float(model.FieldKgDiscard), exportable)
	rec.Balance.TotalBoxes = pivot.Total(r, presentationCols)
	return rec
}

func wideCells(rec model.WideRecord, tax *taxonomy.Taxonomy) []any {
	k := rec.Key
	mb := rec.Balance
	cells := []any{
		k.Week,
		dateCell(k.HarvestDate),
		dateCell(k.ProcessDate),
		k.Shift.String(),
		k.Company.String(),
		textCell(rec.ProductType),
		k.Farm.String(),
		k.Variety.String(),
		mb.KgProcessed,
		mb.KgDiscard,
		mb.PctDiscard.Cell(),
		mb.KgOverweight,
		mb.PctOverweight.Cell(),
		mb.PctShrinkage.Cell(),
		mb.KgShrinkage,
		mb.KgOverweightNet,
		mb.PctYield.Cell(),
	}
	for _, p := range tax.Presentations() {
		cells = append(cells, rec.Presentation[p])
	}
	cells = append(cells, mb.KgExportable, mb.PctExportable.Cell(), mb.TotalBoxes)
	for _, g := range tax.Groups() {
		cells = append(cells, rec.GroupBoxes[g])
	}
	for _, g := range tax.Groups() {
		cells = append(cells, rec.GroupKg[g])
	}
	return cells
}

func zeros(columns []string) map[string]any {
	out := make(map[string]any, len(columns))
	for _, c := range columns {
		out[c] = 0.0
	}
	return out
}
