package lab

import (
	"strings"
	"time"

	"labsignal/domain/core"
)

// UnitSystem selects the unit family results are expressed in
type UnitSystem string

const (
	UnitSystemEU UnitSystem = "eu"
	UnitSystemUS UnitSystem = "us"
)

// ParseUnitSystem accepts eu/us in any case; empty input defaults to eu.
func ParseUnitSystem(s string) (UnitSystem, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "eu", "si":
		return UnitSystemEU, nil
	case "us", "conventional":
		return UnitSystemUS, nil
	}
	return "", core.ErrInvalidUnitSystem
}

// SamplingTiming records where in the dosing interval a blood draw happened
type SamplingTiming string

const (
	TimingTrough  SamplingTiming = "trough"
	TimingPeak    SamplingTiming = "peak"
	TimingUnknown SamplingTiming = "unknown"
)

// NormalizeTiming maps free text onto a SamplingTiming
func NormalizeTiming(s string) SamplingTiming {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trough", "dal", "pre-injection", "pre injection":
		return TimingTrough
	case "peak", "piek", "post-injection", "post injection":
		return TimingPeak
	}
	return TimingUnknown
}

// AbnormalFlag is the lab's own high/low marking
type AbnormalFlag string

const (
	FlagHigh    AbnormalFlag = "high"
	FlagLow     AbnormalFlag = "low"
	FlagNormal  AbnormalFlag = "normal"
	FlagUnknown AbnormalFlag = "unknown"
)

// NormalizeFlag maps lab flag notations (H, L, *, empty) onto AbnormalFlag
func NormalizeFlag(s string) AbnormalFlag {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "h", "high", "hoog", "+", "↑":
		return FlagHigh
	case "l", "low", "laag", "-", "↓":
		return FlagLow
	case "n", "normal", "normaal", "ok":
		return FlagNormal
	}
	return FlagUnknown
}

// MarkerValue is one measured (or derived) analyte inside a report
type MarkerValue struct {
	RawName      string       `json:"raw_name" yaml:"raw_name"`
	Name         string       `json:"name" yaml:"name"`
	Value        float64      `json:"value" yaml:"value"`
	Unit         string       `json:"unit" yaml:"unit"`
	ReferenceMin *float64     `json:"reference_min,omitempty" yaml:"reference_min,omitempty"`
	ReferenceMax *float64     `json:"reference_max,omitempty" yaml:"reference_max,omitempty"`
	Abnormal     AbnormalFlag `json:"abnormal,omitempty" yaml:"abnormal,omitempty"`
	Confidence   float64      `json:"confidence" yaml:"confidence"`
	IsCalculated bool         `json:"is_calculated" yaml:"is_calculated"`
}

// ProtocolAnnotation ties a report to the protocol it was taken under. When
// ProtocolID is empty or unknown the free-text fields are used instead.
type ProtocolAnnotation struct {
	ProtocolID     core.ProtocolID `json:"protocol_id,omitempty" yaml:"protocol_id,omitempty"`
	Compound       string          `json:"compound,omitempty" yaml:"compound,omitempty"`
	Dosage         string          `json:"dosage,omitempty" yaml:"dosage,omitempty"`
	Frequency      string          `json:"frequency,omitempty" yaml:"frequency,omitempty"`
	Supplements    string          `json:"supplements,omitempty" yaml:"supplements,omitempty"`
	Symptoms       string          `json:"symptoms,omitempty" yaml:"symptoms,omitempty"`
	Notes          string          `json:"notes,omitempty" yaml:"notes,omitempty"`
	SamplingTiming SamplingTiming  `json:"sampling_timing,omitempty" yaml:"sampling_timing,omitempty"`
}

// LabReport is an immutable set of marker values from one blood draw
type LabReport struct {
	ID         core.ReportID      `json:"id" yaml:"id"`
	TestDate   time.Time          `json:"test_date" yaml:"test_date"`
	CreatedAt  time.Time          `json:"created_at" yaml:"created_at"`
	Markers    []MarkerValue      `json:"markers" yaml:"markers"`
	Annotation ProtocolAnnotation `json:"annotation" yaml:"annotation"`
	IsBaseline bool               `json:"is_baseline" yaml:"is_baseline"`
}

// WithMarkers returns a copy of the report carrying the given markers
func (r LabReport) WithMarkers(markers []MarkerValue) LabReport {
	out := r
	out.Markers = append([]MarkerValue(nil), markers...)
	return out
}

// Timing returns the annotated sampling timing, defaulting to unknown
func (r LabReport) Timing() SamplingTiming {
	if r.Annotation.SamplingTiming == "" {
		return TimingUnknown
	}
	return r.Annotation.SamplingTiming
}

// Compound is one administered substance of a protocol
type Compound struct {
	Name      string  `json:"name" yaml:"name"`
	DoseMg    float64 `json:"dose_mg" yaml:"dose_mg"`
	Frequency string  `json:"frequency" yaml:"frequency"`
}

// Supplement is a non-protocol co-intervention
type Supplement struct {
	Name string `json:"name" yaml:"name"`
	Dose string `json:"dose,omitempty" yaml:"dose,omitempty"`
}

// Protocol is a medication regimen a report can reference
type Protocol struct {
	ID          core.ProtocolID `json:"id" yaml:"id"`
	Name        string          `json:"name" yaml:"name"`
	Compounds   []Compound      `json:"compounds" yaml:"compounds"`
	Supplements []Supplement    `json:"supplements,omitempty" yaml:"supplements,omitempty"`
	Notes       string          `json:"notes,omitempty" yaml:"notes,omitempty"`
	StartedAt   *time.Time      `json:"started_at,omitempty" yaml:"started_at,omitempty"`
	CreatedAt   time.Time       `json:"created_at" yaml:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" yaml:"updated_at"`
}

// DoseRange bounds the doses a study prior was observed over
type DoseRange struct {
	Min float64 `json:"min" yaml:"min" validate:"gte=0"`
	Max float64 `json:"max" yaml:"max" validate:"gtefield=Min"`
}

// DosePrior is an externally sourced population dose-response slope
type DosePrior struct {
	Marker     string     `json:"marker" yaml:"marker" validate:"required"`
	UnitSystem UnitSystem `json:"unit_system" yaml:"unit_system" validate:"required,oneof=eu us"`
	SlopePerMg float64    `json:"slope_per_mg" yaml:"slope_per_mg"`
	Sigma      float64    `json:"sigma" yaml:"sigma" validate:"gte=0"`
	DoseRange  DoseRange  `json:"dose_range" yaml:"dose_range"`
	Citations  []string   `json:"citations,omitempty" yaml:"citations,omitempty"`
}

// Dataset is the interchange bundle handed to the analysis core
type Dataset struct {
	Reports   []LabReport `json:"reports" yaml:"reports"`
	Protocols []Protocol  `json:"protocols" yaml:"protocols"`
	Priors    []DosePrior `json:"priors,omitempty" yaml:"priors,omitempty"`
}
