package insight

import (
	"time"

	"labsignal/domain/core"
	"labsignal/domain/lab"
)

// MarkerSeriesPoint is one converted observation of a marker with the
// protocol context that was active on the report's date
type MarkerSeriesPoint struct {
	ReportID     core.ReportID       `json:"report_id"`
	Date         time.Time           `json:"date"`
	CreatedAt    time.Time           `json:"created_at"`
	Value        float64             `json:"value"`
	Unit         string              `json:"unit"`
	ReferenceMin *float64            `json:"reference_min"`
	ReferenceMax *float64            `json:"reference_max"`
	Abnormal     lab.AbnormalFlag    `json:"abnormal"`
	IsCalculated bool                `json:"is_calculated"`
	Context      lab.ProtocolContext `json:"context"`
}

// TrendDirection classifies the recent movement of a series
type TrendDirection string

const (
	TrendRising   TrendDirection = "rising"
	TrendFalling  TrendDirection = "falling"
	TrendStable   TrendDirection = "stable"
	TrendVolatile TrendDirection = "volatile"
)

// MarkerTrend summarizes the last few points of a series
type MarkerTrend struct {
	Marker                 string         `json:"marker"`
	Direction              TrendDirection `json:"direction"`
	Slope                  float64        `json:"slope"`
	Mean                   float64        `json:"mean"`
	StdDev                 float64        `json:"std_dev"`
	CoefficientOfVariation float64        `json:"coefficient_of_variation"`
	Points                 int            `json:"points"`
}

// MarkerSeries bundles a marker's points with its trend for display
type MarkerSeries struct {
	Marker string              `json:"marker"`
	Unit   string              `json:"unit"`
	Trend  MarkerTrend         `json:"trend"`
	Points []MarkerSeriesPoint `json:"points"`
}

// ConfidenceLabel is the coarse High/Medium/Low grading used by events and
// dose predictions
type ConfidenceLabel string

const (
	ConfidenceHigh   ConfidenceLabel = "High"
	ConfidenceMedium ConfidenceLabel = "Medium"
	ConfidenceLow    ConfidenceLabel = "Low"
)

// LabelForScore maps a 0-100 confidence score onto a label
func LabelForScore(score int) ConfidenceLabel {
	switch {
	case score >= 75:
		return ConfidenceHigh
	case score >= 50:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}
