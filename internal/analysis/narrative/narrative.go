package narrative

import (
	"fmt"
	"math"
	"strings"

	"labsignal/domain/core"
	"labsignal/domain/insight"
)

// DefaultLanguage is used for unknown or empty language codes
const DefaultLanguage = "en"

// flatBandPct is the |delta%| below which a row reads as unchanged
const flatBandPct = 3.0

// Languages lists the supported language codes
func Languages() []string {
	return []string{"en", "nl"}
}

// Normalize maps a language code onto a supported one
func Normalize(lang string) string {
	l := strings.ToLower(strings.TrimSpace(lang))
	if i := strings.IndexAny(l, "-_"); i > 0 {
		l = l[:i]
	}
	if _, ok := templates[l]; ok {
		return l
	}
	return DefaultLanguage
}

func text(lang, key string, args ...interface{}) string {
	format, ok := templates[Normalize(lang)][key]
	if !ok {
		format = templates[DefaultLanguage][key]
	}
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}

// EventFacts are the computed values an event headline is built from
type EventFacts struct {
	Type            insight.EventType
	Subtype         insight.EventSubtype
	DoseBefore      float64
	DoseAfter       float64
	FrequencyBefore float64
	FrequencyAfter  float64
	CompoundsAfter  []string
	AwaitingPost    bool
}

// Headline renders the one-line summary of a protocol change
func Headline(lang string, f EventFacts) string {
	var h string
	start := f.Subtype == insight.SubtypeStart
	switch f.Type {
	case insight.EventDose:
		if start {
			h = text(lang, keyHeadlineDoseStart, Number(f.DoseAfter))
		} else {
			h = text(lang, keyHeadlineDoseAdjust, Number(f.DoseBefore), Number(f.DoseAfter))
		}
	case insight.EventFrequency:
		if start {
			h = text(lang, keyHeadlineFrequencyStart, Number(f.FrequencyAfter))
		} else {
			h = text(lang, keyHeadlineFrequencyAdjust, Number(f.FrequencyBefore), Number(f.FrequencyAfter))
		}
	case insight.EventCompound:
		h = text(lang, keyHeadlineCompound, compoundList(f.CompoundsAfter))
	default:
		parts := make([]string, 0, 3)
		if f.DoseBefore != f.DoseAfter {
			parts = append(parts, text(lang, keyPartDose, Number(f.DoseBefore), Number(f.DoseAfter)))
		}
		if f.FrequencyBefore != f.FrequencyAfter {
			parts = append(parts, text(lang, keyPartFrequency, Number(f.FrequencyBefore), Number(f.FrequencyAfter)))
		}
		if len(parts) < 2 || len(f.CompoundsAfter) > 0 {
			parts = append(parts, text(lang, keyPartCompound, compoundList(f.CompoundsAfter)))
		}
		h = text(lang, keyHeadlineMixed, strings.Join(parts, ", "))
	}
	if f.AwaitingPost {
		h += text(lang, keyHeadlineWaiting)
	}
	return h
}

// Row renders the sentences for one marker row
func Row(lang string, row insight.MarkerImpactRow) insight.RowNarrative {
	var n insight.RowNarrative
	if row.InsufficientData || row.BeforeAvg == nil || row.AfterAvg == nil {
		n.Observed = text(lang, keyObservedInsufficient, row.Marker)
		n.Interpretation = text(lang, keyInterpretationPrefix+"insufficient", row.Marker)
	} else {
		n.Observed = text(lang, keyObserved, row.Marker, Number(*row.BeforeAvg), Number(*row.AfterAvg), row.Unit, Percent(row.DeltaPct))
		n.Interpretation = text(lang, keyInterpretationPrefix+string(row.SignalStatus)+"."+direction(row.DeltaPct), row.Marker)
	}

	n.Effect = text(lang, keyEffect, row.EffectScore, row.ClinicalWeight, row.ImpactScore)
	n.Reliability = text(lang, keyReliability, row.ConfidenceLabel, row.ConfidenceScore, row.NBefore, row.NAfter)
	if row.UsedPreFallback || row.UsedPostFallback {
		n.Reliability += text(lang, keyFallback)
	}
	if row.RecommendedRetest != nil {
		n.Reliability += text(lang, keyRetest, core.FormatDate(*row.RecommendedRetest))
	}
	return n
}

// PredictionFacts are the values a dose prediction summary is built from
type PredictionFacts struct {
	Marker            string
	Unit              string
	Status            insight.RelationshipStatus
	Source            insight.PredictionSource
	Reason            string
	SuggestedDose     float64
	CurrentEstimate   float64
	SuggestedEstimate float64
}

// Prediction renders the summary sentence of a dose prediction
func Prediction(lang string, f PredictionFacts) string {
	var s string
	switch f.Status {
	case insight.StatusClear:
		s = text(lang, keyPredictionClear, Number(f.SuggestedDose), f.Marker, Number(f.SuggestedEstimate), f.Unit, Number(f.CurrentEstimate))
	case insight.StatusUnclear:
		s = text(lang, keyPredictionUnclear, f.Marker, f.Reason)
	default:
		s = text(lang, keyPredictionInsufficient, f.Marker)
	}
	if f.Source == insight.SourceStudyPrior || f.Source == insight.SourceHybrid {
		s += " " + text(lang, keyPredictionPrior, f.Marker)
	}
	return s
}

// Reason renders a prediction reason or warning key with its arguments
func Reason(lang, key string, args ...interface{}) string {
	return text(lang, key, args...)
}

// StabilityReason is one templated stability finding
type StabilityReason struct {
	key  string
	args []interface{}
}

func Steady(days int) StabilityReason {
	return StabilityReason{keyStabilitySteady, []interface{}{days}}
}

func NotSteady(days int) StabilityReason {
	return StabilityReason{keyStabilityNotSteady, []interface{}{days}}
}

func Volatile(marker string) StabilityReason {
	return StabilityReason{keyStabilityVolatile, []interface{}{marker}}
}

func OutOfZone(marker string) StabilityReason {
	return StabilityReason{keyStabilityOutOfZone, []interface{}{marker}}
}

func HematocritRising() StabilityReason { return StabilityReason{key: keyStabilityHctRising} }

func FewReports() StabilityReason { return StabilityReason{key: keyStabilityFewReports} }

func NoProtocol() StabilityReason { return StabilityReason{key: keyStabilityNoProtocol} }

// Stability renders stability findings in order
func Stability(lang string, reasons []StabilityReason) []string {
	out := make([]string, len(reasons))
	for i, r := range reasons {
		out[i] = text(lang, r.key, r.args...)
	}
	return out
}

// Number formats a value with precision that suits its magnitude
func Number(v float64) string {
	a := math.Abs(v)
	switch {
	case a >= 100:
		return fmt.Sprintf("%.0f", v)
	case a >= 10:
		return fmt.Sprintf("%.1f", v)
	default:
		return fmt.Sprintf("%.2f", v)
	}
}

// Percent formats an optional signed percentage
func Percent(p *float64) string {
	if p == nil {
		return "n/a"
	}
	return fmt.Sprintf("%+.1f%%", *p)
}

func direction(pct *float64) string {
	switch {
	case pct == nil || math.Abs(*pct) < flatBandPct:
		return "flat"
	case *pct > 0:
		return "up"
	default:
		return "down"
	}
}

func compoundList(compounds []string) string {
	if len(compounds) == 0 {
		return "-"
	}
	return strings.Join(compounds, ", ")
}
