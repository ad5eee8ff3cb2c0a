package model

// Canonical field names. Every stream maps its own source headers onto these
// names during normalization so joins can be expressed on shared fields.
const (
	FieldQR            = "qr"
	FieldPallet        = "pallet"
	FieldReceptionDate = "reception_date"
	FieldReceptionHour = "reception_hour"
	FieldCoolingDate   = "cooling_date"
	FieldCoolingStart  = "cooling_start"
	FieldCoolingEnd    = "cooling_end"
	FieldDumpStart     = "dump_start"
	FieldDumpEnd       = "dump_end"
	FieldFormat        = "format"

	FieldWeek        = "week"
	FieldHarvestDate = "harvest_date"
	FieldProcessDate = "process_date"
	FieldShift       = "shift"
	FieldCompany     = "company"
	FieldFarm        = "farm"
	FieldVariety     = "variety"
	FieldProductType = "product_type"
	FieldProduct     = "product"

	FieldKgGross       = "kg_gross"
	FieldKgNet         = "kg_net"
	FieldKgProcessed   = "kg_processed"
	FieldKgDiscard     = "kg_discard"
	FieldKgExportable  = "kg_exportable"
	FieldPctExportable = "pct_exportable"
	FieldBoxes         = "boxes"
	FieldPresentation  = "presentation"
	FieldGroup         = "group"
	FieldGroupKg       = "group_kg"
	FieldEvents        = "events"

	// FieldSourceLine carries the 1-based sheet line a row was read from.
	FieldSourceLine = "_line"
)

// HarvestKeyFields is the full mass-balance key, in output order.
var HarvestKeyFields = []string{
	FieldWeek,
	FieldHarvestDate,
	FieldProcessDate,
	FieldShift,
	FieldCompany,
	FieldFarm,
	FieldVariety,
}

// DiscardKeyFields is the mass-balance key without the shift; discard is not
// recorded per shift.
var DiscardKeyFields = []string{
	FieldWeek,
	FieldHarvestDate,
	FieldProcessDate,
	FieldCompany,
	FieldFarm,
	FieldVariety,
}
