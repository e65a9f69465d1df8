package excel

// RawRowData represents a row of raw sheet data keyed by normalized header
type RawRowData map[string]string

// SheetData represents the complete workbook or CSV table
type SheetData struct {
	Headers []string     // Normalized column headers
	Rows    []RawRowData // Data rows
}

// Workbook columns, one row per marker value
const (
	ColReportID       = "report_id"
	ColTestDate       = "test_date"
	ColMarker         = "marker"
	ColValue          = "value"
	ColUnit           = "unit"
	ColRefMin         = "ref_min"
	ColRefMax         = "ref_max"
	ColFlag           = "flag"
	ColProtocolID     = "protocol_id"
	ColSamplingTiming = "sampling_timing"
	ColDose           = "dose"
	ColFrequency      = "frequency"
	ColCompound       = "compound"
	ColSupplements    = "supplements"
	ColSymptoms       = "symptoms"
	ColNotes          = "notes"
	ColBaseline       = "baseline"
)

// Columns is the canonical column order used when writing workbooks
var Columns = []string{
	ColReportID, ColTestDate, ColMarker, ColValue, ColUnit, ColRefMin, ColRefMax,
	ColFlag, ColProtocolID, ColSamplingTiming, ColDose, ColFrequency, ColCompound,
	ColSupplements, ColSymptoms, ColNotes, ColBaseline,
}

// headerAliases maps common alternative headings onto workbook columns
var headerAliases = map[string]string{
	"report":        ColReportID,
	"id":            ColReportID,
	"date":          ColTestDate,
	"datum":         ColTestDate,
	"test":          ColMarker,
	"analyte":       ColMarker,
	"result":        ColValue,
	"waarde":        ColValue,
	"eenheid":       ColUnit,
	"reference_min": ColRefMin,
	"reference_max": ColRefMax,
	"abnormal":      ColFlag,
	"protocol":      ColProtocolID,
	"timing":        ColSamplingTiming,
	"dosage":        ColDose,
	"is_baseline":   ColBaseline,
}
