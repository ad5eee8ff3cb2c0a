package engine

import (
	"github.com/Veraticus/packflow/internal/model"
	"github.com/Veraticus/packflow/internal/normalize"
)

// StreamSpec describes how one source stream is normalized and windowed.
type StreamSpec struct {
	Kind model.StreamKind
	// DateField is compared against the reporting start date.
	DateField string
	Fields    []normalize.FieldSpec
}

func text(name, column string, aliases ...string) normalize.FieldSpec {
	return normalize.FieldSpec{Name: name, Column: column, Aliases: aliases, Kind: normalize.KindText}
}

func category(name, column string, aliases ...string) normalize.FieldSpec {
	return normalize.FieldSpec{Name: name, Column: column, Aliases: aliases, Kind: normalize.KindCategorical}
}

func kilos(name, column string, aliases ...string) normalize.FieldSpec {
	return normalize.FieldSpec{Name: name, Column: column, Aliases: aliases, Kind: normalize.KindDecimalLocale, Default: 0.0}
}

func clock(name, column string, aliases ...string) normalize.FieldSpec {
	return normalize.FieldSpec{Name: name, Column: column, Aliases: aliases, Kind: normalize.KindTime}
}

func date(name, column string, required bool, aliases ...string) normalize.FieldSpec {
	return normalize.FieldSpec{Name: name, Column: column, Aliases: aliases, Kind: normalize.KindDate, Required: required}
}

func week(column string) normalize.FieldSpec {
	return normalize.FieldSpec{Name: model.FieldWeek, Column: column, Kind: normalize.KindInteger}
}

var streamSpecs = map[model.StreamKind]StreamSpec{
	model.StreamReception: {
		Kind:      model.StreamReception,
		DateField: model.FieldReceptionDate,
		Fields: []normalize.FieldSpec{
			date(model.FieldReceptionDate, "FECHA RECEPCION", true),
			clock(model.FieldReceptionHour, "HORA RECEPCION"),
			text(model.FieldPallet, "N° PALLET", "Nº PALLET", "NRO PALLET"),
			text(model.FieldQR, "CODIGO QR", "QR"),
			kilos(model.FieldKgGross, "KILOS BRUTO"),
		},
	},
	model.StreamCooling: {
		Kind:      model.StreamCooling,
		DateField: model.FieldCoolingDate,
		Fields: []normalize.FieldSpec{
			date(model.FieldCoolingDate, "FECHA", true),
			clock(model.FieldCoolingStart, "HORA INICIAL"),
			clock(model.FieldCoolingEnd, "HORA FINAL"),
			text(model.FieldQR, "QR", "CODIGO QR"),
			category(model.FieldFormat, "FORMATO"),
		},
	},
	model.StreamDumping: {
		Kind:      model.StreamDumping,
		DateField: model.FieldProcessDate,
		Fields: []normalize.FieldSpec{
			week("SEMANA"),
			date(model.FieldHarvestDate, "FECHA DE COSECHA", false),
			date(model.FieldProcessDate, "FECHA DE PROCESO", true),
			category(model.FieldShift, "TURNO DE PROCESO", "TURNO"),
			category(model.FieldCompany, "PROVEEDOR", "EMPRESA"),
			category(model.FieldProductType, "TIPO DE PRODUCTO"),
			category(model.FieldFarm, "FUNDO"),
			category(model.FieldVariety, "VARIEDAD"),
			kilos(model.FieldKgNet, "PESO NETO"),
			clock(model.FieldDumpStart, "HORA INICIO"),
			clock(model.FieldDumpEnd, "HORA FINAL"),
			text(model.FieldQR, "QR", "CODIGO QR"),
			category(model.FieldFormat, "FORMATO"),
		},
	},
	model.StreamDiscard: {
		Kind:      model.StreamDiscard,
		DateField: model.FieldProcessDate,
		Fields: []normalize.FieldSpec{
			week("SEMANA"),
			date(model.FieldHarvestDate, "FECHA DE COSECHA", false),
			date(model.FieldProcessDate, "FECHA DE PROCESO", true),
			category(model.FieldCompany, "EMPRESA", "PROVEEDOR"),
			category(model.FieldFarm, "FUNDO"),
			category(model.FieldVariety, "VARIEDAD"),
			kilos(model.FieldKgDiscard, "KG DESCARTE"),
		},
	},
	model.StreamFinishedProduct: {
		Kind:      model.StreamFinishedProduct,
		DateField: model.FieldProcessDate,
		Fields: []normalize.FieldSpec{
			week("SEMANA"),
			date(model.FieldHarvestDate, "F. COSECHA", false, "FECHA DE COSECHA"),
			date(model.FieldProcessDate, "F. PRODUCCION", true, "FECHA DE PROCESO"),
			category(model.FieldShift, "TURNO", "TURNO DE PROCESO"),
			category(model.FieldCompany, "CLIENTE", "EMPRESA"),
			category(model.FieldProduct, "DESCRIPCION DEL PRODUCTO"),
			category(model.FieldFarm, "FUNDO"),
			category(model.FieldVariety, "VARIEDAD"),
			kilos(model.FieldBoxes, "Nº CAJAS", "N° CAJAS", "CAJAS"),
		},
	},
	model.StreamProductionReport: {
		Kind:      model.StreamProductionReport,
		DateField: model.FieldProcessDate,
		Fields: []normalize.FieldSpec{
			week("Semana"),
			date(model.FieldHarvestDate, "Fecha de cosecha", false),
			date(model.FieldProcessDate, "Fecha de proceso", true),
			category(model.FieldShift, "Turno Proceso"),
			category(model.FieldCompany, "Empresa"),
			category(model.FieldProductType, "Tipo"),
			category(model.FieldFarm, "Fundo"),
			category(model.FieldVariety, "Variedad"),
			kilos(model.FieldKgProcessed, "Kg Procesados"),
			kilos(model.FieldKgDiscard, "Kg Descarte"),
			kilos(model.FieldPctExportable, "%. Kg Exportables", "% Kg Exportables"),
		},
	},
}

// SpecFor returns the normalization spec of a stream kind.
func SpecFor(kind model.StreamKind) (StreamSpec, bool) {
	s, ok := streamSpecs[kind]
	return s, ok
}
