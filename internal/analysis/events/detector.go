package events

import (
	"math"
	"sort"
	"strings"
	"time"

	"labsignal/domain/core"
	"labsignal/domain/insight"
	"labsignal/domain/lab"
	"labsignal/internal/analysis/brief"
	"labsignal/internal/analysis/narrative"
	"labsignal/internal/analysis/series"
	"labsignal/internal/markers"
	"labsignal/internal/protocol"
)

const (
	DefaultWindowDays = 45
	MinWindowDays     = 21
	MaxWindowDays     = 90

	doseTriggerMg     = 1.0
	frequencyTrigger  = 0.25
	compoundStrength  = 0.7
	multiTriggerBonus = 10
	topImpactLimit    = 4
	retestBufferDays  = 14
	emptyWindowCap    = 40
	noRowsConfidence  = 35
)

// Options tune event detection
type Options struct {
	WindowDays int
	Language   string
}

// ClampWindow bounds a window length to 21..90 days; zero or negative means
// the default
func ClampWindow(days int) int {
	if days <= 0 {
		return DefaultWindowDays
	}
	if days < MinWindowDays {
		return MinWindowDays
	}
	if days > MaxWindowDays {
		return MaxWindowDays
	}
	return days
}

// Detector finds protocol changes between adjacent reports and compares
// markers around them
type Detector struct {
	catalog  *markers.Catalog
	resolver *protocol.Resolver
	builder  *series.Builder
}

// NewDetector creates an event detector
func NewDetector(catalog *markers.Catalog, resolver *protocol.Resolver) *Detector {
	return &Detector{
		catalog:  catalog,
		resolver: resolver,
		builder:  series.NewBuilder(catalog, resolver),
	}
}

// change is one detected discontinuity before marker rows are attached
type change struct {
	prev, cur         lab.LabReport
	prevCtx, curCtx   lab.ProtocolContext
	date              time.Time
	dateSource        insight.ChangeDateSource
	doseChanged       bool
	frequencyChanged  bool
	compoundChanged   bool
	triggerStrength   int
	supplementChanged bool
	symptomChanged    bool
}

// Detect returns every protocol-change event, most recent first
func (d *Detector) Detect(reports []lab.LabReport, system lab.UnitSystem, opts Options) []insight.ProtocolImpactDoseEvent {
	window := ClampWindow(opts.WindowDays)
	sorted := series.SortReports(reports)
	if len(sorted) < 2 {
		return []insight.ProtocolImpactDoseEvent{}
	}

	contexts := d.resolver.Contexts(sorted)
	var changes []change
	for i := 1; i < len(sorted); i++ {
		if c, ok := d.compare(sorted[i-1], sorted[i], contexts[i-1], contexts[i]); ok {
			changes = append(changes, c)
		}
	}
	if len(changes) == 0 {
		return []insight.ProtocolImpactDoseEvent{}
	}

	allSeries := make(map[string][]insight.MarkerSeriesPoint)
	names := d.builder.Markers(sorted)
	for _, m := range names {
		allSeries[m] = d.builder.Build(sorted, m, system)
	}

	events := make([]insight.ProtocolImpactDoseEvent, 0, len(changes))
	for _, c := range changes {
		events = append(events, d.buildEvent(c, names, allSeries, window, opts.Language))
	}

	sort.SliceStable(events, func(i, j int) bool {
		if !events[i].ChangeDate.Equal(events[j].ChangeDate) {
			return events[i].ChangeDate.After(events[j].ChangeDate)
		}
		return events[i].ID < events[j].ID
	})
	return events
}

func (d *Detector) compare(prev, cur lab.LabReport, prevCtx, curCtx lab.ProtocolContext) (change, bool) {
	c := change{prev: prev, cur: cur, prevCtx: prevCtx, curCtx: curCtx}

	doseDelta := math.Abs(curCtx.Dose() - prevCtx.Dose())
	freqDelta := math.Abs(curCtx.Frequency() - prevCtx.Frequency())
	c.doseChanged = (prevCtx.HasDose() || curCtx.HasDose()) && doseDelta >= doseTriggerMg
	c.frequencyChanged = (prevCtx.HasFrequency() || curCtx.HasFrequency()) && freqDelta >= frequencyTrigger
	c.compoundChanged = !protocol.SameSet(prevCtx.Compounds, curCtx.Compounds)
	if !c.doseChanged && !c.frequencyChanged && !c.compoundChanged {
		return change{}, false
	}

	var components []float64
	if c.doseChanged {
		if prevCtx.Dose() <= 0 {
			components = append(components, 1)
		} else {
			components = append(components, brief.Clip(doseDelta/prevCtx.Dose()/0.25, 0, 1))
		}
	}
	if c.frequencyChanged {
		components = append(components, brief.Clip(freqDelta/1.0, 0, 1))
	}
	if c.compoundChanged {
		components = append(components, compoundStrength)
	}
	strength := 0.0
	for _, v := range components {
		strength = math.Max(strength, v)
	}
	strength *= 100
	if len(components) >= 2 {
		strength += multiTriggerBonus
	}
	c.triggerStrength = int(math.Round(math.Min(strength, 100)))

	c.date, c.dateSource = d.changeDate(prev, cur, curCtx)
	c.supplementChanged = !protocol.SameSet(prevCtx.Supplements, curCtx.Supplements)
	before, after := normalizeText(prevCtx.Symptoms), normalizeText(curCtx.Symptoms)
	c.symptomChanged = before != after && (before != "" || after != "")
	return c, true
}

func (d *Detector) changeDate(prev, cur lab.LabReport, curCtx lab.ProtocolContext) (time.Time, insight.ChangeDateSource) {
	if p, ok := d.resolver.Protocol(curCtx.ProtocolID); ok && p.StartedAt != nil {
		start := core.DayStart(*p.StartedAt)
		if start.After(core.DayStart(prev.TestDate)) && !start.After(core.DayStart(cur.TestDate)) {
			return start, insight.ChangeDateProtocolStart
		}
	}
	date := core.AddDays(prev.TestDate, 1)
	if curDay := core.DayStart(cur.TestDate); date.After(curDay) {
		date = curDay
	}
	return date, insight.ChangeDateInferred
}

func (d *Detector) buildEvent(c change, names []string, allSeries map[string][]insight.MarkerSeriesPoint, window int, lang string) insight.ProtocolImpactDoseEvent {
	ev := insight.ProtocolImpactDoseEvent{
		ID:               core.NewEventID(c.prev.ID, c.cur.ID),
		BeforeReportID:   c.prev.ID,
		AfterReportID:    c.cur.ID,
		BeforeDate:       c.prev.TestDate,
		AfterDate:        c.cur.TestDate,
		ChangeDate:       c.date,
		ChangeDateSource: c.dateSource,
		EventType:        eventType(c),
		EventSubtype:     insight.SubtypeAdjustment,
		DoseBefore:       c.prevCtx.DoseMgPerWeek,
		DoseAfter:        c.curCtx.DoseMgPerWeek,
		FrequencyBefore:  c.prevCtx.InjectionsPerWeek,
		FrequencyAfter:   c.curCtx.InjectionsPerWeek,
		CompoundsBefore:  append([]string{}, c.prevCtx.Compounds...),
		CompoundsAfter:   append([]string{}, c.curCtx.Compounds...),
		TriggerStrength:  c.triggerStrength,
		WindowDays:       window,
		Rows:             []insight.MarkerImpactRow{},
		TopImpacts:       []insight.MarkerImpactRow{},
	}
	if !c.prevCtx.HasSignal() {
		ev.EventSubtype = insight.SubtypeStart
	}

	for _, m := range names {
		if row, ok := d.markerRow(c, m, allSeries[m], window, lang); ok {
			ev.Rows = append(ev.Rows, row)
		}
	}
	sortRows(ev.Rows)

	for _, row := range ev.Rows {
		if len(ev.TopImpacts) == topImpactLimit {
			break
		}
		if !row.InsufficientData {
			ev.TopImpacts = append(ev.TopImpacts, row)
		}
	}
	ev.EventConfidence = eventConfidence(ev.TopImpacts)
	ev.SignalStatus = eventStatus(ev.Rows, ev.TopImpacts, ev.EventConfidence)

	awaiting := true
	for _, row := range ev.Rows {
		if !row.PostWindowEmpty {
			awaiting = false
			break
		}
	}
	ev.Headline = narrative.Headline(lang, narrative.EventFacts{
		Type:            ev.EventType,
		Subtype:         ev.EventSubtype,
		DoseBefore:      c.prevCtx.Dose(),
		DoseAfter:       c.curCtx.Dose(),
		FrequencyBefore: c.prevCtx.Frequency(),
		FrequencyAfter:  c.curCtx.Frequency(),
		CompoundsAfter:  c.curCtx.Compounds,
		AwaitingPost:    awaiting,
	})
	return ev
}

func eventType(c change) insight.EventType {
	triggered := 0
	for _, b := range []bool{c.doseChanged, c.frequencyChanged, c.compoundChanged} {
		if b {
			triggered++
		}
	}
	switch {
	case triggered >= 2:
		return insight.EventMixed
	case c.doseChanged:
		return insight.EventDose
	case c.frequencyChanged:
		return insight.EventFrequency
	default:
		return insight.EventCompound
	}
}

// sortRows orders rows by sufficiency, impact and effect size
func sortRows(rows []insight.MarkerImpactRow) {
	absPct := func(r insight.MarkerImpactRow) float64 {
		if r.DeltaPct == nil {
			return 0
		}
		return math.Abs(*r.DeltaPct)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.InsufficientData != b.InsufficientData {
			return !a.InsufficientData
		}
		if a.ImpactScore != b.ImpactScore {
			return a.ImpactScore > b.ImpactScore
		}
		if absPct(a) != absPct(b) {
			return absPct(a) > absPct(b)
		}
		return a.Marker < b.Marker
	})
}

func eventConfidence(top []insight.MarkerImpactRow) int {
	if len(top) == 0 {
		return noRowsConfidence
	}
	sum := 0
	for _, r := range top {
		sum += r.ConfidenceScore
	}
	return int(math.Round(float64(sum) / float64(len(top))))
}

func eventStatus(rows, top []insight.MarkerImpactRow, confidence int) insight.SignalStatus {
	established, building := 0, 0
	for _, r := range rows {
		if r.InsufficientData {
			continue
		}
		switch r.SignalStatus {
		case insight.SignalEstablished:
			established++
		case insight.SignalBuilding:
			building++
		}
	}

	switch {
	case established >= 2,
		established == 1 && confidence >= 68,
		len(top) >= 2 && confidence >= 60,
		confidence >= 78:
		return insight.SignalEstablished
	case building > 0 || established > 0 || confidence >= 50:
		return insight.SignalBuilding
	default:
		return insight.SignalEarly
	}
}

func normalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
