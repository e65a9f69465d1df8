package insight

import (
	"labsignal/domain/core"
	"labsignal/domain/lab"
)

type StabilityLabel string

const (
	StabilityStable       StabilityLabel = "stable"
	StabilitySettling     StabilityLabel = "settling"
	StabilityUnstable     StabilityLabel = "unstable"
	StabilityInsufficient StabilityLabel = "insufficient"
)

// StabilityMarker is the state of one key marker on the current protocol
type StabilityMarker struct {
	Marker    string         `json:"marker"`
	Unit      string         `json:"unit"`
	Latest    float64        `json:"latest"`
	Direction TrendDirection `json:"direction"`
	ZoneMin   *float64       `json:"zone_min"`
	ZoneMax   *float64       `json:"zone_max"`
	InZone    *bool          `json:"in_zone"`
}

// TrtStabilityResult grades how settled the current protocol is
type TrtStabilityResult struct {
	Label             StabilityLabel      `json:"label"`
	Score             int                 `json:"score"`
	SteadyState       bool                `json:"steady_state"`
	DaysOnProtocol    int                 `json:"days_on_protocol"`
	ReportsOnProtocol int                 `json:"reports_on_protocol"`
	Context           lab.ProtocolContext `json:"context"`
	Markers           []StabilityMarker   `json:"markers"`
	Reasons           []string            `json:"reasons"`
}

// Dashboard bundles every analysis output for one dataset
type Dashboard struct {
	Fingerprint core.Hash                 `json:"fingerprint"`
	UnitSystem  lab.UnitSystem            `json:"unit_system"`
	WindowDays  int                       `json:"window_days"`
	Language    string                    `json:"language"`
	Markers     []string                  `json:"markers"`
	Series      []MarkerSeries            `json:"series"`
	Events      []ProtocolImpactDoseEvent `json:"events"`
	Predictions []DosePrediction          `json:"predictions"`
	Alerts      []PredictiveAlert         `json:"alerts"`
	Stability   TrtStabilityResult        `json:"stability"`
}
