package insight

import (
	"time"

	"labsignal/domain/core"
)

type EventType string

const (
	EventDose      EventType = "dose"
	EventFrequency EventType = "frequency"
	EventCompound  EventType = "compound"
	EventMixed     EventType = "mixed"
)

type EventSubtype string

const (
	SubtypeStart      EventSubtype = "start"
	SubtypeAdjustment EventSubtype = "adjustment"
)

// SignalStatus describes how mature the evidence for a shift is
type SignalStatus string

const (
	SignalEarly       SignalStatus = "early_signal"
	SignalBuilding    SignalStatus = "building_signal"
	SignalEstablished SignalStatus = "established_pattern"
)

// Readiness says which side of a change still needs a blood draw
type Readiness string

const (
	ReadinessReady       Readiness = "ready"
	ReadinessWaitingPre  Readiness = "waiting_pre"
	ReadinessWaitingPost Readiness = "waiting_post"
	ReadinessWaitingBoth Readiness = "waiting_both"
)

// ChangeDateSource records where an event's change date came from
type ChangeDateSource string

const (
	ChangeDateProtocolStart ChangeDateSource = "protocol_start"
	ChangeDateInferred      ChangeDateSource = "day_after_previous_report"
)

// RowNarrative holds the templated sentences for one marker row
type RowNarrative struct {
	Observed       string `json:"observed"`
	Interpretation string `json:"interpretation"`
	Effect         string `json:"effect"`
	Reliability    string `json:"reliability"`
}

// MarkerImpactRow is the before/after comparison of one marker around a
// protocol change
type MarkerImpactRow struct {
	Marker             string          `json:"marker"`
	Unit               string          `json:"unit"`
	LagDays            int             `json:"lag_days"`
	BeforeAvg          *float64        `json:"before_avg"`
	AfterAvg           *float64        `json:"after_avg"`
	BeforeStdDev       *float64        `json:"before_std_dev"`
	AfterStdDev        *float64        `json:"after_std_dev"`
	DeltaAbs           *float64        `json:"delta_abs"`
	DeltaPct           *float64        `json:"delta_pct"`
	NBefore            int             `json:"n_before"`
	NAfter             int             `json:"n_after"`
	PreWindowEmpty     bool            `json:"pre_window_empty"`
	PostWindowEmpty    bool            `json:"post_window_empty"`
	UsedPreFallback    bool            `json:"used_pre_fallback"`
	UsedPostFallback   bool            `json:"used_post_fallback"`
	InsufficientData   bool            `json:"insufficient_data"`
	SampleScore        int             `json:"sample_score"`
	ConsistencyScore   int             `json:"consistency_score"`
	EffectScore        int             `json:"effect_score"`
	EffectClarityScore int             `json:"effect_clarity_score"`
	SignalToNoise      *float64        `json:"signal_to_noise"`
	ClinicalWeight     int             `json:"clinical_weight"`
	ImpactScore        int             `json:"impact_score"`
	ConfounderPenalty  int             `json:"confounder_penalty"`
	Confounders        []string        `json:"confounders"`
	ConfidenceScore    int             `json:"confidence_score"`
	ConfidenceLabel    ConfidenceLabel `json:"confidence_label"`
	SignalStatus       SignalStatus    `json:"signal_status"`
	Readiness          Readiness       `json:"readiness"`
	RecommendedRetest  *time.Time      `json:"recommended_retest"`
	Narrative          RowNarrative    `json:"narrative"`
}

// ProtocolImpactDoseEvent is one detected discontinuity between two
// chronologically adjacent reports
type ProtocolImpactDoseEvent struct {
	ID               core.EventID      `json:"id"`
	BeforeReportID   core.ReportID     `json:"before_report_id"`
	AfterReportID    core.ReportID     `json:"after_report_id"`
	BeforeDate       time.Time         `json:"before_date"`
	AfterDate        time.Time         `json:"after_date"`
	ChangeDate       time.Time         `json:"change_date"`
	ChangeDateSource ChangeDateSource  `json:"change_date_source"`
	EventType        EventType         `json:"event_type"`
	EventSubtype     EventSubtype      `json:"event_subtype"`
	DoseBefore       *float64          `json:"dose_before"`
	DoseAfter        *float64          `json:"dose_after"`
	FrequencyBefore  *float64          `json:"frequency_before"`
	FrequencyAfter   *float64          `json:"frequency_after"`
	CompoundsBefore  []string          `json:"compounds_before"`
	CompoundsAfter   []string          `json:"compounds_after"`
	TriggerStrength  int               `json:"trigger_strength"`
	WindowDays       int               `json:"window_days"`
	Rows             []MarkerImpactRow `json:"rows"`
	TopImpacts       []MarkerImpactRow `json:"top_impacts"`
	EventConfidence  int               `json:"event_confidence"`
	SignalStatus     SignalStatus      `json:"signal_status"`
	Headline         string            `json:"headline"`
}
