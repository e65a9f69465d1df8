package insight

import (
	"time"

	"labsignal/domain/core"
	"labsignal/domain/lab"
)

type ModelType string

const (
	ModelLinear   ModelType = "linear"
	ModelTheilSen ModelType = "theil-sen"
	ModelHybrid   ModelType = "hybrid"
	ModelPrior    ModelType = "prior"
)

type RelationshipStatus string

const (
	StatusClear        RelationshipStatus = "clear"
	StatusUnclear      RelationshipStatus = "unclear"
	StatusInsufficient RelationshipStatus = "insufficient"
)

// PredictionSource distinguishes personal fits from prior-backed ones
type PredictionSource string

const (
	SourcePersonal   PredictionSource = "personal"
	SourceStudyPrior PredictionSource = "study_prior"
	SourceHybrid     PredictionSource = "hybrid"
)

// DoseScenario is a projected marker value at a hypothetical weekly dose
type DoseScenario struct {
	DoseMgPerWeek float64  `json:"dose_mg_per_week"`
	Estimate      float64  `json:"estimate"`
	Lower         *float64 `json:"lower"`
	Upper         *float64 `json:"upper"`
	IsSuggested   bool     `json:"is_suggested"`
}

// ExcludedPoint is a sample left out of a dose-response fit
type ExcludedPoint struct {
	ReportID core.ReportID `json:"report_id"`
	Date     time.Time     `json:"date"`
	Dose     float64       `json:"dose"`
	Value    float64       `json:"value"`
	Unit     string        `json:"unit"`
	Reason   string        `json:"reason"`
}

// DosePrediction is the dose-response model of one marker
type DosePrediction struct {
	Marker               string             `json:"marker"`
	Unit                 string             `json:"unit"`
	UnitSystem           lab.UnitSystem     `json:"unit_system"`
	Status               RelationshipStatus `json:"status"`
	StatusReason         string             `json:"status_reason"`
	ModelType            ModelType          `json:"model_type"`
	Source               PredictionSource   `json:"source"`
	Confidence           ConfidenceLabel    `json:"confidence"`
	Slope                *float64           `json:"slope"`
	Intercept            *float64           `json:"intercept"`
	SlopeStdErr          *float64           `json:"slope_std_err"`
	Correlation          *float64           `json:"correlation"`
	PValue               *float64           `json:"p_value"`
	PersonalWeight       *float64           `json:"personal_weight"`
	SampleCount          int                `json:"sample_count"`
	DoseLevels           int                `json:"dose_levels"`
	TroughOnly           bool               `json:"trough_only"`
	CurrentDose          *float64           `json:"current_dose"`
	SuggestedDose        *float64           `json:"suggested_dose"`
	CurrentEstimate      *float64           `json:"current_estimate"`
	SuggestedEstimate    *float64           `json:"suggested_estimate"`
	SuggestedLower       *float64           `json:"suggested_lower"`
	SuggestedUpper       *float64           `json:"suggested_upper"`
	ResidualSigma        *float64           `json:"residual_sigma"`
	Scenarios            []DoseScenario     `json:"scenarios"`
	Excluded             []ExcludedPoint    `json:"excluded"`
	Warnings             []string           `json:"warnings"`
	Citations            []string           `json:"citations,omitempty"`
	ClinicalWeight       int                `json:"clinical_weight"`
	DataQualityScore     int                `json:"data_quality_score"`
	EffectPotentialScore int                `json:"effect_potential_score"`
	RelevanceScore       int                `json:"relevance_score"`
	Summary              string             `json:"summary"`
}

// AlertConfidence grades a projection by how many points back it
type AlertConfidence string

const (
	AlertHigh   AlertConfidence = "high"
	AlertMedium AlertConfidence = "medium"
	AlertLow    AlertConfidence = "low"
)

// ThresholdDirection is the direction a marker must move to cross a threshold
type ThresholdDirection string

const (
	DirectionRising  ThresholdDirection = "rising"
	DirectionFalling ThresholdDirection = "falling"
)

// PredictiveAlert is a projected threshold crossing for one marker
type PredictiveAlert struct {
	Marker        string             `json:"marker"`
	Direction     ThresholdDirection `json:"direction"`
	Label         string             `json:"label"`
	Threshold     float64            `json:"threshold"`
	Unit          string             `json:"unit"`
	CurrentValue  float64            `json:"current_value"`
	CurrentDate   time.Time          `json:"current_date"`
	SlopePerDay   float64            `json:"slope_per_day"`
	DaysUntil     int                `json:"days_until"`
	ProjectedDate time.Time          `json:"projected_date"`
	Points        int                `json:"points"`
	Confidence    AlertConfidence    `json:"confidence"`
}
