package testkit

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"labsignal/domain/core"
	"labsignal/domain/lab"
	"labsignal/internal/markers"
)

// Phase is one stretch of a synthetic protocol
type Phase struct {
	Days          int     `json:"days"`
	DoseMgPerWeek float64 `json:"dose_mg_per_week"`
	Frequency     string  `json:"frequency"`
	Compound      string  `json:"compound"`
	Supplements   string  `json:"supplements,omitempty"`
}

// TRTGeneratorConfig configures the synthetic lab history
type TRTGeneratorConfig struct {
	StartDate     time.Time `json:"start_date"`
	BaselineDays  int       `json:"baseline_days"`
	DrawEveryDays int       `json:"draw_every_days"`
	Phases        []Phase   `json:"phases"`
	Noise         float64   `json:"noise"`          // relative std-dev of measurement noise
	PeakEvery     int       `json:"peak_every"`     // every n-th draw is a peak sample, 0 for never
	AnnotateEvery int       `json:"annotate_every"` // every n-th draw uses free-text annotation instead of a protocol id
	DutchNames    bool      `json:"dutch_names"`
	Seed          int64     `json:"seed"`
}

// DefaultTRTConfig returns a year of bloodwork across three dose phases
func DefaultTRTConfig() TRTGeneratorConfig {
	return TRTGeneratorConfig{
		StartDate:     time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC),
		BaselineDays:  28,
		DrawEveryDays: 28,
		Phases: []Phase{
			{Days: 112, DoseMgPerWeek: 100, Frequency: "2x/week", Compound: "Testosterone Cypionate"},
			{Days: 112, DoseMgPerWeek: 140, Frequency: "2x/week", Compound: "Testosterone Cypionate"},
			{Days: 140, DoseMgPerWeek: 120, Frequency: "3x/week", Compound: "Testosterone Cypionate", Supplements: "Vitamin D 2000IU"},
		},
		Noise:         0.03,
		PeakEvery:     5,
		AnnotateEvery: 4,
		Seed:          42,
	}
}

// response describes how a marker moves with weekly dose, in EU units
type response struct {
	marker   string
	dutch    string
	unit     string
	baseline float64
	perMg    float64
	lag      int
	floor    float64
}

var responses = []response{
	{markers.Testosterone, "Testosteron", "nmol/L", 11, 0.13, 10, 1},
	{markers.Estradiol, "Oestradiol", "pmol/L", 70, 0.55, 10, 10},
	{markers.SHBG, "SHBG", "nmol/L", 38, -0.05, 10, 5},
	{markers.Albumin, "Albumine", "g/L", 44, 0, 0, 30},
	{markers.Hematocrit, "Hematocriet", "%", 44, 0.035, 21, 30},
	{markers.Hemoglobin, "Hemoglobine", "mmol/L", 9.3, 0.006, 21, 6},
	{markers.LDLCholesterol, "LDL", "mmol/L", 3.0, 0.004, 28, 0.5},
	{markers.HDLCholesterol, "HDL", "mmol/L", 1.3, -0.0015, 28, 0.3},
	{markers.Triglycerides, "Triglyceriden", "mmol/L", 1.1, 0.001, 28, 0.3},
	{markers.PSA, "PSA", "ug/L", 0.8, 0.002, 28, 0.05},
}

// TRTDataGenerator produces a deterministic TRT dataset for tests and demos
type TRTDataGenerator struct {
	config TRTGeneratorConfig
	rng    *rand.Rand
}

// NewTRTDataGenerator creates a generator seeded from the config
func NewTRTDataGenerator(config TRTGeneratorConfig) *TRTDataGenerator {
	if config.DrawEveryDays <= 0 {
		config.DrawEveryDays = 28
	}
	return &TRTDataGenerator{
		config: config,
		rng:    rand.New(rand.NewSource(config.Seed)),
	}
}

type phaseSpan struct {
	Phase
	id    core.ProtocolID
	start time.Time
	end   time.Time
}

// Generate builds the dataset: one baseline draw, then draws every
// DrawEveryDays through all phases
func (g *TRTDataGenerator) Generate() lab.Dataset {
	cfg := g.config
	start := core.DayStart(cfg.StartDate)
	protocolStart := core.AddDays(start, cfg.BaselineDays)

	var spans []phaseSpan
	var protocols []lab.Protocol
	cursor := protocolStart
	for i, p := range cfg.Phases {
		id := core.ProtocolID(fmt.Sprintf("phase-%d", i+1))
		begin := cursor
		end := core.AddDays(begin, p.Days)
		spans = append(spans, phaseSpan{Phase: p, id: id, start: begin, end: end})
		protocols = append(protocols, lab.Protocol{
			ID:        id,
			Name:      fmt.Sprintf("%s %gmg/week", p.Compound, p.DoseMgPerWeek),
			Compounds: []lab.Compound{{Name: p.Compound, DoseMg: perInjection(p), Frequency: p.Frequency}},
			StartedAt: &begin,
			CreatedAt: begin,
			UpdatedAt: begin,
		})
		if p.Supplements != "" {
			protocols[i].Supplements = []lab.Supplement{{Name: p.Supplements}}
		}
		cursor = end
	}

	reports := []lab.LabReport{g.report(0, start, nil, spans)}
	draw := 1
	for day := core.AddDays(protocolStart, cfg.DrawEveryDays); !day.After(cursor); day = core.AddDays(day, cfg.DrawEveryDays) {
		span := activeSpan(spans, day)
		reports = append(reports, g.report(draw, day, span, spans))
		draw++
	}

	if protocols == nil {
		protocols = []lab.Protocol{}
	}
	return lab.Dataset{Reports: reports, Protocols: protocols, Priors: []lab.DosePrior{}}
}

func (g *TRTDataGenerator) report(n int, day time.Time, span *phaseSpan, spans []phaseSpan) lab.LabReport {
	cfg := g.config
	r := lab.LabReport{
		ID:        core.ReportID(fmt.Sprintf("report-%03d", n)),
		TestDate:  day,
		CreatedAt: day.Add(36 * time.Hour),
		Markers:   []lab.MarkerValue{},
	}

	peak := false
	if span == nil {
		r.IsBaseline = true
		r.Annotation.Notes = "baseline"
	} else {
		peak = cfg.PeakEvery > 0 && n%cfg.PeakEvery == 0
		timing := lab.TimingTrough
		if peak {
			timing = lab.TimingPeak
		}
		if cfg.AnnotateEvery > 0 && n%cfg.AnnotateEvery == 0 {
			r.Annotation = lab.ProtocolAnnotation{
				Compound:    span.Compound,
				Dosage:      fmt.Sprintf("%gmg", perInjection(span.Phase)),
				Frequency:   span.Frequency,
				Supplements: span.Supplements,
			}
		} else {
			r.Annotation.ProtocolID = span.id
		}
		r.Annotation.SamplingTiming = timing
	}

	for _, resp := range responses {
		dose := effectiveDose(spans, day, resp.lag)
		value := resp.baseline + resp.perMg*dose
		if peak && resp.lag == 10 && resp.perMg > 0 {
			value *= 1.25
		}
		value *= 1 + g.rng.NormFloat64()*cfg.Noise
		value = math.Max(resp.floor, value)

		name := resp.marker
		if cfg.DutchNames {
			name = resp.dutch
		}
		r.Markers = append(r.Markers, lab.MarkerValue{
			RawName:    name,
			Value:      round(value, 2),
			Unit:       resp.unit,
			Confidence: 1,
		})
	}
	return r
}

// effectiveDose is the weekly dose in effect lag days before day
func effectiveDose(spans []phaseSpan, day time.Time, lag int) float64 {
	span := activeSpan(spans, core.AddDays(day, -lag))
	if span == nil {
		return 0
	}
	return span.DoseMgPerWeek
}

func activeSpan(spans []phaseSpan, day time.Time) *phaseSpan {
	for i := range spans {
		if !day.Before(spans[i].start) && day.Before(spans[i].end) {
			return &spans[i]
		}
	}
	if n := len(spans); n > 0 && day.Equal(spans[n-1].end) {
		return &spans[n-1]
	}
	return nil
}

func perInjection(p Phase) float64 {
	switch p.Frequency {
	case "3x/week":
		return round(p.DoseMgPerWeek/3, 1)
	case "2x/week":
		return p.DoseMgPerWeek / 2
	case "daily":
		return round(p.DoseMgPerWeek/7, 1)
	}
	return p.DoseMgPerWeek
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
