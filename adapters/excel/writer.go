package excel

import (
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"labsignal/domain/core"
	"labsignal/domain/insight"
	"labsignal/domain/lab"
	"labsignal/internal/errors"
)

// Sheet names of an exported dashboard workbook
const (
	SheetSummary     = "Summary"
	SheetSeries      = "Series"
	SheetEvents      = "Events"
	SheetImpacts     = "Impacts"
	SheetPredictions = "Predictions"
	SheetAlerts      = "Alerts"
	SheetStability   = "Stability"
)

// sheetWriter appends rows to one sheet with a bold header
type sheetWriter struct {
	f     *excelize.File
	sheet string
	row   int
}

func newSheet(f *excelize.File, name string, header []interface{}, bold int) (*sheetWriter, error) {
	if _, err := f.NewSheet(name); err != nil {
		return nil, err
	}
	w := &sheetWriter{f: f, sheet: name, row: 1}
	if err := w.append(header); err != nil {
		return nil, err
	}
	last, _ := excelize.CoordinatesToCellName(len(header), 1)
	if err := f.SetCellStyle(name, "A1", last, bold); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *sheetWriter) append(values []interface{}) error {
	cell, _ := excelize.CoordinatesToCellName(1, w.row)
	w.row++
	return w.f.SetSheetRow(w.sheet, cell, &values)
}

func opt(v *float64) interface{} {
	if v == nil {
		return ""
	}
	return *v
}

func header(cols ...string) []interface{} {
	out := make([]interface{}, len(cols))
	for i, c := range cols {
		out[i] = c
	}
	return out
}

// WriteDataset writes reports as a workbook in the import column layout, one
// row per marker value
func WriteDataset(ds lab.Dataset, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return errors.Wrap(err, "failed to create header style")
	}
	const sheet = "Reports"
	sw, err := newSheet(f, sheet, header(Columns...), bold)
	if err != nil {
		return errors.Wrap(err, "failed to create sheet")
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return errors.Wrap(err, "failed to remove default sheet")
	}

	for _, r := range ds.Reports {
		ann := r.Annotation
		for _, m := range r.Markers {
			name := m.RawName
			if name == "" {
				name = m.Name
			}
			row := []interface{}{
				r.ID.String(), core.FormatDate(r.TestDate), name, m.Value, m.Unit,
				opt(m.ReferenceMin), opt(m.ReferenceMax), flagText(m.Abnormal),
				ann.ProtocolID.String(), string(ann.SamplingTiming), ann.Dosage, ann.Frequency,
				ann.Compound, ann.Supplements, ann.Symptoms, ann.Notes, baselineText(r.IsBaseline),
			}
			if err := sw.append(row); err != nil {
				return errors.Wrapf(err, "failed to write report %s", r.ID)
			}
		}
	}
	if err := f.Write(w); err != nil {
		return errors.IOError("write", "workbook", err)
	}
	return nil
}

func flagText(f lab.AbnormalFlag) string {
	if f == lab.FlagUnknown {
		return ""
	}
	return string(f)
}

func baselineText(b bool) string {
	if b {
		return "true"
	}
	return ""
}

// WriteDashboard exports every dashboard section to its own sheet
func WriteDashboard(d insight.Dashboard, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return errors.Wrap(err, "failed to create header style")
	}
	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return errors.Wrap(err, "failed to rename default sheet")
	}
	summary := [][]interface{}{
		{"fingerprint", d.Fingerprint.String()},
		{"unit_system", string(d.UnitSystem)},
		{"window_days", d.WindowDays},
		{"language", d.Language},
		{"markers", strings.Join(d.Markers, ", ")},
		{"stability", string(d.Stability.Label)},
		{"stability_score", d.Stability.Score},
	}
	for i, row := range summary {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(SheetSummary, cell, &row); err != nil {
			return errors.Wrap(err, "failed to write summary")
		}
	}
	if err := f.SetCellStyle(SheetSummary, "A1", "A7", bold); err != nil {
		return errors.Wrap(err, "failed to style summary")
	}

	for _, write := range []func(*excelize.File, insight.Dashboard, int) error{
		writeSeries, writeEvents, writePredictions, writeAlerts, writeStability,
	} {
		if err := write(f, d, bold); err != nil {
			return errors.Wrap(err, "failed to write dashboard sheet")
		}
	}

	if err := f.Write(w); err != nil {
		return errors.IOError("write", "dashboard workbook", err)
	}
	return nil
}

func writeSeries(f *excelize.File, d insight.Dashboard, bold int) error {
	sw, err := newSheet(f, SheetSeries, header("marker", "date", "value", "unit", "ref_min", "ref_max",
		"abnormal", "calculated", "dose_mg_per_week", "timing", "report_id"), bold)
	if err != nil {
		return err
	}
	for _, s := range d.Series {
		for _, p := range s.Points {
			err := sw.append([]interface{}{
				s.Marker, core.FormatDate(p.Date), p.Value, p.Unit, opt(p.ReferenceMin), opt(p.ReferenceMax),
				string(p.Abnormal), p.IsCalculated, opt(p.Context.DoseMgPerWeek), string(p.Context.SamplingTiming), p.ReportID.String(),
			})
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func writeEvents(f *excelize.File, d insight.Dashboard, bold int) error {
	ew, err := newSheet(f, SheetEvents, header("event_id", "change_date", "date_source", "type", "subtype",
		"dose_before", "dose_after", "frequency_before", "frequency_after", "compounds_before", "compounds_after",
		"trigger_strength", "confidence", "status", "headline"), bold)
	if err != nil {
		return err
	}
	iw, err := newSheet(f, SheetImpacts, header("event_id", "marker", "unit", "lag_days", "before_avg", "after_avg",
		"delta_abs", "delta_pct", "n_before", "n_after", "impact_score", "confidence_score", "confidence",
		"status", "readiness", "confounders", "observed"), bold)
	if err != nil {
		return err
	}
	for _, e := range d.Events {
		err := ew.append([]interface{}{
			e.ID.String(), core.FormatDate(e.ChangeDate), string(e.ChangeDateSource), string(e.EventType), string(e.EventSubtype),
			opt(e.DoseBefore), opt(e.DoseAfter), opt(e.FrequencyBefore), opt(e.FrequencyAfter),
			strings.Join(e.CompoundsBefore, ", "), strings.Join(e.CompoundsAfter, ", "),
			e.TriggerStrength, e.EventConfidence, string(e.SignalStatus), e.Headline,
		})
		if err != nil {
			return err
		}
		for _, r := range e.Rows {
			err := iw.append([]interface{}{
				e.ID.String(), r.Marker, r.Unit, r.LagDays, opt(r.BeforeAvg), opt(r.AfterAvg),
				opt(r.DeltaAbs), opt(r.DeltaPct), r.NBefore, r.NAfter, r.ImpactScore, r.ConfidenceScore,
				string(r.ConfidenceLabel), string(r.SignalStatus), string(r.Readiness),
				strings.Join(r.Confounders, ", "), r.Narrative.Observed,
			})
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func writePredictions(f *excelize.File, d insight.Dashboard, bold int) error {
	sw, err := newSheet(f, SheetPredictions, header("marker", "unit", "status", "model", "source", "confidence",
		"slope", "correlation", "samples", "dose_levels", "current_dose", "suggested_dose", "current_estimate",
		"suggested_estimate", "suggested_lower", "suggested_upper", "relevance", "scenarios", "summary"), bold)
	if err != nil {
		return err
	}
	for _, p := range d.Predictions {
		err := sw.append([]interface{}{
			p.Marker, p.Unit, string(p.Status), string(p.ModelType), string(p.Source), string(p.Confidence),
			opt(p.Slope), opt(p.Correlation), p.SampleCount, p.DoseLevels, opt(p.CurrentDose), opt(p.SuggestedDose),
			opt(p.CurrentEstimate), opt(p.SuggestedEstimate), opt(p.SuggestedLower), opt(p.SuggestedUpper),
			p.RelevanceScore, scenarioText(p.Scenarios), p.Summary,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func scenarioText(scenarios []insight.DoseScenario) string {
	parts := make([]string, len(scenarios))
	for i, s := range scenarios {
		parts[i] = strconv.FormatFloat(s.DoseMgPerWeek, 'f', -1, 64) + "mg→" + strconv.FormatFloat(s.Estimate, 'f', 2, 64)
	}
	return strings.Join(parts, "; ")
}

func writeAlerts(f *excelize.File, d insight.Dashboard, bold int) error {
	sw, err := newSheet(f, SheetAlerts, header("marker", "label", "direction", "threshold", "unit",
		"current_value", "current_date", "slope_per_day", "days_until", "projected_date", "points", "confidence"), bold)
	if err != nil {
		return err
	}
	for _, a := range d.Alerts {
		err := sw.append([]interface{}{
			a.Marker, a.Label, string(a.Direction), a.Threshold, a.Unit, a.CurrentValue, core.FormatDate(a.CurrentDate),
			a.SlopePerDay, a.DaysUntil, core.FormatDate(a.ProjectedDate), a.Points, string(a.Confidence),
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func writeStability(f *excelize.File, d insight.Dashboard, bold int) error {
	sw, err := newSheet(f, SheetStability, header("marker", "unit", "latest", "direction", "zone_min", "zone_max", "in_zone"), bold)
	if err != nil {
		return err
	}
	for _, m := range d.Stability.Markers {
		inZone := ""
		if m.InZone != nil {
			inZone = strconv.FormatBool(*m.InZone)
		}
		if err := sw.append([]interface{}{m.Marker, m.Unit, m.Latest, string(m.Direction), opt(m.ZoneMin), opt(m.ZoneMax), inZone}); err != nil {
			return err
		}
	}
	sw.row++
	for _, reason := range d.Stability.Reasons {
		if err := sw.append([]interface{}{reason}); err != nil {
			return err
		}
	}
	return nil
}
