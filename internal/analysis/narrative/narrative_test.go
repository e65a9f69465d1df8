package narrative

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"labsignal/domain/insight"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "en"},
		{"en", "en"},
		{"NL", "nl"},
		{"nl-BE", "nl"},
		{"nl_NL", "nl"},
		{"de", "en"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Normalize(tt.in), tt.in)
	}
}

func TestTemplatesCoverEveryLanguage(t *testing.T) {
	for key := range templates[DefaultLanguage] {
		for _, lang := range Languages() {
			_, ok := templates[lang][key]
			assert.True(t, ok, "%s missing %s", lang, key)
		}
	}
}

func TestHeadline(t *testing.T) {
	facts := EventFacts{
		Type:            insight.EventDose,
		Subtype:         insight.SubtypeAdjustment,
		DoseBefore:      100,
		DoseAfter:       130,
		FrequencyBefore: 2,
		FrequencyAfter:  2,
	}
	assert.Equal(t, "Dose changed from 100 to 130 mg/week", Headline("en", facts))
	assert.Equal(t, "Dosis gewijzigd van 100 naar 130 mg/week", Headline("nl", facts))
	assert.Equal(t, Headline("en", facts), Headline("fr", facts))

	facts.AwaitingPost = true
	assert.Equal(t, "Dose changed from 100 to 130 mg/week (waiting for follow-up labs)", Headline("en", facts))
}

func TestHeadlineMixed(t *testing.T) {
	h := Headline("en", EventFacts{
		Type:           insight.EventMixed,
		Subtype:        insight.SubtypeStart,
		DoseAfter:      120,
		FrequencyAfter: 2,
		CompoundsAfter: []string{"testosterone cypionate"},
	})
	assert.Equal(t, "Protocol changed: dose 0.00 → 120 mg/week, frequency 0.00 → 2.00 per week, compounds testosterone cypionate", h)
}

func TestRow(t *testing.T) {
	before, after, pct := 20.0, 24.0, 20.0
	retest := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	row := insight.MarkerImpactRow{
		Marker:            "Testosterone",
		Unit:              "nmol/L",
		BeforeAvg:         &before,
		AfterAvg:          &after,
		DeltaPct:          &pct,
		NBefore:           1,
		NAfter:            1,
		EffectScore:       44,
		ClinicalWeight:    95,
		ImpactScore:       67,
		ConfidenceScore:   40,
		ConfidenceLabel:   insight.ConfidenceLow,
		SignalStatus:      insight.SignalEarly,
		UsedPostFallback:  true,
		RecommendedRetest: &retest,
	}

	n := Row("en", row)
	assert.Equal(t, "Testosterone went from 20.0 to 24.0 nmol/L (+20.0%).", n.Observed)
	assert.Equal(t, "Early readings suggest Testosterone may be rising.", n.Interpretation)
	assert.Contains(t, n.Reliability, "Nearest report used")
	assert.Contains(t, n.Reliability, "2025-03-10")

	nl := Row("nl", row)
	assert.Equal(t, "Testosterone ging van 20.0 naar 24.0 nmol/L (+20.0%).", nl.Observed)
	assert.Equal(t, n, Row("en", row))
}

func TestRowInsufficient(t *testing.T) {
	n := Row("en", insight.MarkerImpactRow{Marker: "LDL Cholesterol", InsufficientData: true})
	assert.Equal(t, "LDL Cholesterol has no measurement on one side of the change yet.", n.Observed)
	assert.Equal(t, "Not enough data to interpret LDL Cholesterol yet.", n.Interpretation)
}

func TestPrediction(t *testing.T) {
	s := Prediction("en", PredictionFacts{
		Marker:            "Hematocrit",
		Unit:              "%",
		Status:            insight.StatusClear,
		Source:            insight.SourcePersonal,
		SuggestedDose:     100,
		CurrentEstimate:   50.5,
		SuggestedEstimate: 48.2,
	})
	assert.Equal(t, "At 100 mg/week Hematocrit is expected around 48.2 % (now about 50.5).", s)

	prior := Prediction("en", PredictionFacts{Marker: "Hematocrit", Status: insight.StatusUnclear, Source: insight.SourceStudyPrior, Reason: "no personal data"})
	assert.Contains(t, prior, "published study data")
}

func TestStability(t *testing.T) {
	out := Stability("nl", []StabilityReason{Steady(84), Volatile("Estradiol"), HematocritRising()})
	assert.Equal(t, []string{
		"84 dagen op het huidige protocol.",
		"Estradiol schommelt.",
		"Hematocriet loopt op.",
	}, out)
}

func TestNumberAndPercent(t *testing.T) {
	assert.Equal(t, "520", Number(520.4))
	assert.Equal(t, "18.3", Number(18.26))
	assert.Equal(t, "0.95", Number(0.951))
	assert.Equal(t, "n/a", Percent(nil))
	p := -4.26
	assert.Equal(t, "-4.3%", Percent(&p))
}
