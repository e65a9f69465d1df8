package render

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"

	"labsignal/domain/core"
	"labsignal/domain/insight"
)

// headings holds the section titles of a report per language
var headings = map[string]map[string]string{
	"en": {
		"title":       "Lab signal report",
		"stability":   "Protocol stability",
		"events":      "Protocol changes",
		"predictions": "Dose response",
		"alerts":      "Projected threshold crossings",
		"series":      "Latest values",
		"none":        "Nothing to report.",
	},
	"nl": {
		"title":       "Labsignaal rapport",
		"stability":   "Stabiliteit van het protocol",
		"events":      "Protocolwijzigingen",
		"predictions": "Dosisrespons",
		"alerts":      "Verwachte grensoverschrijdingen",
		"series":      "Laatste waarden",
		"none":        "Niets te melden.",
	},
}

func heading(lang, key string) string {
	if h, ok := headings[lang]; ok {
		return h[key]
	}
	return headings["en"][key]
}

// Markdown renders a dashboard as a markdown document
func Markdown(d *insight.Dashboard) []byte {
	var b bytes.Buffer
	lang := d.Language

	fmt.Fprintf(&b, "# %s\n\n", heading(lang, "title"))
	fmt.Fprintf(&b, "Fingerprint `%s` · units %s · window %d days\n\n", d.Fingerprint.Short(), strings.ToUpper(string(d.UnitSystem)), d.WindowDays)

	writeStability(&b, d)
	writeEvents(&b, d)
	writePredictions(&b, d)
	writeAlerts(&b, d)
	writeLatest(&b, d)
	return b.Bytes()
}

func writeStability(b *bytes.Buffer, d *insight.Dashboard) {
	s := d.Stability
	fmt.Fprintf(b, "## %s\n\n", heading(d.Language, "stability"))
	fmt.Fprintf(b, "**%s** (score %d, %d days, %d reports on protocol)\n\n", s.Label, s.Score, s.DaysOnProtocol, s.ReportsOnProtocol)
	for _, r := range s.Reasons {
		fmt.Fprintf(b, "- %s\n", r)
	}
	if len(s.Reasons) > 0 {
		b.WriteString("\n")
	}
}

func writeEvents(b *bytes.Buffer, d *insight.Dashboard) {
	fmt.Fprintf(b, "## %s\n\n", heading(d.Language, "events"))
	if len(d.Events) == 0 {
		fmt.Fprintf(b, "%s\n\n", heading(d.Language, "none"))
		return
	}
	for _, e := range d.Events {
		fmt.Fprintf(b, "### %s: %s\n\n", core.FormatDate(e.ChangeDate), e.Headline)
		fmt.Fprintf(b, "%s %s, confidence %d, %s\n\n", e.EventType, e.EventSubtype, e.EventConfidence, e.SignalStatus)
		if len(e.TopImpacts) == 0 {
			continue
		}
		b.WriteString("| Marker | Before | After | Change | Confidence |\n")
		b.WriteString("|---|---|---|---|---|\n")
		for _, r := range e.TopImpacts {
			fmt.Fprintf(b, "| %s | %s | %s | %s | %s |\n",
				r.Marker, num(r.BeforeAvg, r.Unit), num(r.AfterAvg, r.Unit), pct(r.DeltaPct), r.ConfidenceLabel)
		}
		b.WriteString("\n")
		for _, r := range e.TopImpacts {
			if r.Narrative.Observed != "" {
				fmt.Fprintf(b, "- **%s**: %s %s\n", r.Marker, r.Narrative.Observed, r.Narrative.Interpretation)
			}
		}
		b.WriteString("\n")
	}
}

func writePredictions(b *bytes.Buffer, d *insight.Dashboard) {
	fmt.Fprintf(b, "## %s\n\n", heading(d.Language, "predictions"))
	if len(d.Predictions) == 0 {
		fmt.Fprintf(b, "%s\n\n", heading(d.Language, "none"))
		return
	}
	b.WriteString("| Marker | Status | Model | Slope per mg | Now | Suggested |\n")
	b.WriteString("|---|---|---|---|---|---|\n")
	for _, p := range d.Predictions {
		fmt.Fprintf(b, "| %s | %s | %s | %s | %s | %s |\n",
			p.Marker, p.Status, p.ModelType, sig(p.Slope), num(p.CurrentEstimate, p.Unit), num(p.SuggestedEstimate, p.Unit))
	}
	b.WriteString("\n")
	for _, p := range d.Predictions {
		if p.Summary != "" {
			fmt.Fprintf(b, "- %s\n", p.Summary)
		}
	}
	b.WriteString("\n")
}

func writeAlerts(b *bytes.Buffer, d *insight.Dashboard) {
	fmt.Fprintf(b, "## %s\n\n", heading(d.Language, "alerts"))
	if len(d.Alerts) == 0 {
		fmt.Fprintf(b, "%s\n\n", heading(d.Language, "none"))
		return
	}
	for _, a := range d.Alerts {
		fmt.Fprintf(b, "- **%s** %s %s %s in %d days (%s, %s confidence)\n",
			a.Marker, a.Direction, a.Label, fmtFloat(a.Threshold)+" "+a.Unit, a.DaysUntil, core.FormatDate(a.ProjectedDate), a.Confidence)
	}
	b.WriteString("\n")
}

func writeLatest(b *bytes.Buffer, d *insight.Dashboard) {
	if len(d.Series) == 0 {
		return
	}
	fmt.Fprintf(b, "## %s\n\n", heading(d.Language, "series"))
	b.WriteString("| Marker | Value | Date | Trend |\n")
	b.WriteString("|---|---|---|---|\n")
	for _, s := range d.Series {
		last := s.Points[len(s.Points)-1]
		fmt.Fprintf(b, "| %s | %s %s | %s | %s |\n", s.Marker, fmtFloat(last.Value), last.Unit, core.FormatDate(last.Date), s.Trend.Direction)
	}
	b.WriteString("\n")
}

func fmtFloat(v float64) string {
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64)
}

func num(v *float64, unit string) string {
	if v == nil {
		return "–"
	}
	return fmtFloat(*v) + " " + unit
}

func sig(v *float64) string {
	if v == nil {
		return "–"
	}
	return fmt.Sprintf("%.3g", *v)
}

func pct(v *float64) string {
	if v == nil {
		return "–"
	}
	return fmt.Sprintf("%+.1f%%", *v)
}
