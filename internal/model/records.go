package model

import "time"

// Ratio is a percentage that may be undefined when its denominator is zero.
type Ratio struct {
	Value   float64
	Defined bool
}

// NewRatio divides num by den, yielding an undefined Ratio when den is zero.
func NewRatio(num, den float64) Ratio {
	if den == 0 {
		return Ratio{}
	}
	return Ratio{Value: num / den, Defined: true}
}

// Cell returns the value for an output table: the fraction or nil.
func (r Ratio) Cell() any {
	if !r.Defined {
		return nil
	}
	return r.Value
}

// Percent returns the value scaled to 0-100 for display.
func (r Ratio) Percent() any {
	if !r.Defined {
		return nil
	}
	return r.Value * 100
}

// HarvestKey identifies a harvest/process batch for mass-balance joins.
type HarvestKey struct {
	Week        int64
	HarvestDate time.Time
	ProcessDate time.Time
	Shift       Category
	Company     Category
	Farm        Category
	Variety     Category
}

// HarvestKeyFromRow extracts the key fields from a normalized row.
func HarvestKeyFromRow(r Row) HarvestKey {
	k := HarvestKey{
		Shift:   r.Category(FieldShift),
		Company: r.Category(FieldCompany),
		Farm:    r.Category(FieldFarm),
		Variety: r.Category(FieldVariety),
	}
	if w, ok := r[FieldWeek].(int64); ok {
		k.Week = w
	}
	k.HarvestDate, _ = r.Date(FieldHarvestDate)
	k.ProcessDate, _ = r.Date(FieldProcessDate)
	return k
}

// CoolingWindow is the cold-room interval of a pallet.
type CoolingWindow struct {
	Date  time.Time
	Start string
	End   string
}

// DumpingWindow is the line-feed interval of a pallet.
type DumpingWindow struct {
	ProcessDate time.Time
	Start       string
	End         string
	Company     Category
	Format      Category
}

// TimeTrace follows one pallet from reception to dumping. Cooling and
// Dumping are nil when the QR never reached that stage.
type TimeTrace struct {
	QR            string
	ReceptionDate time.Time
	ReceptionHour string
	Pallet        string
	Cooling       *CoolingWindow
	Dumping       *DumpingWindow
}

// MassBalance holds the derived kilogram and percentage metrics of a batch.
// Percentages are fractions of KgProcessed.
type MassBalance struct {
	KgProcessed     float64
	KgDiscard       float64
	KgExportable    float64
	KgOverweight    float64
	KgShrinkage     float64
	KgOverweightNet float64
	PctDiscard      Ratio
	PctOverweight   Ratio
	PctShrinkage    Ratio
	PctYield        Ratio
	PctExportable   Ratio
	TotalBoxes      float64
}

// WideRecord is one mass-balance output row: the batch key plus one box
// column per presentation and one box and kg column per group.
type WideRecord struct {
	Key          HarvestKey
	ProductType  string
	Presentation map[string]float64
	GroupBoxes   map[string]float64
	GroupKg      map[string]float64
	Balance      MassBalance
}

// ProductionSummary is the per-day production roll-up of the report feed.
type ProductionSummary struct {
	Week         int64
	ProcessDate  time.Time
	Variety      Category
	Farm         Category
	Company      Category
	KgExportable float64
	KgDiscard    float64
	KgProcessed  float64
}
