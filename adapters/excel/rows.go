package excel

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"labsignal/domain/core"
	"labsignal/domain/lab"
	"labsignal/internal/errors"
)

// RowIssue is a sheet row that could not be imported
type RowIssue struct {
	Row    int    `json:"row"` // 1-based sheet row, header is row 1
	Reason string `json:"reason"`
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"02-01-2006",
	"02/01/2006",
	"2006/01/02",
	"2-1-2006",
	"02.01.2006",
}

// ToDataset groups marker rows into reports. Rows are grouped by report_id,
// or by test date when report_id is blank; annotation fields are taken from
// the first row of a report that sets them.
func ToDataset(data *SheetData) (lab.Dataset, []RowIssue, error) {
	if !hasColumn(data, ColTestDate) || !hasColumn(data, ColMarker) || !hasColumn(data, ColValue) {
		return lab.Dataset{}, nil, errors.InvalidInput("workbook needs test_date, marker and value columns")
	}

	reports := make(map[string]*lab.LabReport)
	var order []string
	var issues []RowIssue

	for i, row := range data.Rows {
		sheetRow := i + 2
		date, err := ParseDate(row[ColTestDate])
		if err != nil {
			issues = append(issues, RowIssue{Row: sheetRow, Reason: err.Error()})
			continue
		}
		name := row[ColMarker]
		if name == "" {
			issues = append(issues, RowIssue{Row: sheetRow, Reason: "marker is empty"})
			continue
		}
		value, ok := ParseNumber(row[ColValue])
		if !ok {
			issues = append(issues, RowIssue{Row: sheetRow, Reason: fmt.Sprintf("value %q is not a number", row[ColValue])})
			continue
		}

		key := row[ColReportID]
		if key == "" {
			key = core.FormatDate(date)
		}
		report, seen := reports[key]
		if !seen {
			id, err := core.ParseReportID(row[ColReportID])
			if err != nil {
				id = core.ReportID(core.NewStableID("report", key))
			}
			report = &lab.LabReport{ID: id, TestDate: date, Markers: []lab.MarkerValue{}}
			reports[key] = report
			order = append(order, key)
		}
		mergeAnnotation(report, row)

		mv := lab.MarkerValue{
			RawName:    name,
			Value:      value,
			Unit:       row[ColUnit],
			Abnormal:   lab.NormalizeFlag(row[ColFlag]),
			Confidence: 1,
		}
		if v, ok := ParseNumber(row[ColRefMin]); ok {
			mv.ReferenceMin = &v
		}
		if v, ok := ParseNumber(row[ColRefMax]); ok {
			mv.ReferenceMax = &v
		}
		report.Markers = append(report.Markers, mv)
	}

	out := lab.Dataset{Reports: make([]lab.LabReport, 0, len(order)), Protocols: []lab.Protocol{}}
	for _, key := range order {
		out.Reports = append(out.Reports, *reports[key])
	}
	sort.SliceStable(out.Reports, func(i, j int) bool {
		return out.Reports[i].TestDate.Before(out.Reports[j].TestDate)
	})
	return out, issues, nil
}

func mergeAnnotation(report *lab.LabReport, row RawRowData) {
	ann := &report.Annotation
	setIfEmpty := func(dst *string, col string) {
		if *dst == "" {
			*dst = row[col]
		}
	}
	if ann.ProtocolID.IsEmpty() {
		ann.ProtocolID = core.ParseProtocolID(row[ColProtocolID])
	}
	setIfEmpty(&ann.Compound, ColCompound)
	setIfEmpty(&ann.Dosage, ColDose)
	setIfEmpty(&ann.Frequency, ColFrequency)
	setIfEmpty(&ann.Supplements, ColSupplements)
	setIfEmpty(&ann.Symptoms, ColSymptoms)
	setIfEmpty(&ann.Notes, ColNotes)
	if ann.SamplingTiming == "" && row[ColSamplingTiming] != "" {
		ann.SamplingTiming = lab.NormalizeTiming(row[ColSamplingTiming])
	}
	if b, err := strconv.ParseBool(row[ColBaseline]); err == nil && b {
		report.IsBaseline = true
	}
}

// ParseDate accepts ISO and day-first dates as well as Excel serial numbers
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, core.NewValidationError("test_date", "empty")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial > 0 {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", core.ErrInvalidDate, s)
}

// ParseNumber reads lab values such as "4,5", "< 0.5" or "12.0*"
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimLeft(s, "<>=≤≥~ ")
	s = strings.TrimRight(s, "*HL ")
	if s == "" {
		return 0, false
	}
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func hasColumn(data *SheetData, col string) bool {
	for _, h := range data.Headers {
		if h == col {
			return true
		}
	}
	return false
}
