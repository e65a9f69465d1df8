package lab

import "labsignal/domain/core"

// ContextSource records how a report's protocol context was resolved
type ContextSource string

const (
	ContextFromProtocol   ContextSource = "protocol"
	ContextFromAnnotation ContextSource = "annotation"
	ContextNone           ContextSource = "none"
)

// ProtocolContext is the protocol snapshot in effect at a report's date
type ProtocolContext struct {
	Source            ContextSource   `json:"source"`
	ProtocolID        core.ProtocolID `json:"protocol_id,omitempty"`
	ProtocolName      string          `json:"protocol_name,omitempty"`
	DoseMgPerWeek     *float64        `json:"dose_mg_per_week"`
	InjectionsPerWeek *float64        `json:"injections_per_week"`
	CompoundText      string          `json:"compound_text"`
	Compounds         []string        `json:"compounds"`
	FrequencyText     string          `json:"frequency_text"`
	SupplementText    string          `json:"supplement_text"`
	Supplements       []string        `json:"supplements"`
	SamplingTiming    SamplingTiming  `json:"sampling_timing"`
	Symptoms          string          `json:"symptoms,omitempty"`
}

// HasDose reports whether a positive weekly dose was resolved
func (c ProtocolContext) HasDose() bool {
	return c.DoseMgPerWeek != nil && *c.DoseMgPerWeek > 0
}

// HasFrequency reports whether an injection frequency was resolved
func (c ProtocolContext) HasFrequency() bool {
	return c.InjectionsPerWeek != nil && *c.InjectionsPerWeek > 0
}

// HasSignal reports whether any dose, frequency or compound information exists
func (c ProtocolContext) HasSignal() bool {
	return c.HasDose() || c.HasFrequency() || len(c.Compounds) > 0
}

// Dose returns the weekly dose or 0 when unknown
func (c ProtocolContext) Dose() float64 {
	if c.DoseMgPerWeek == nil {
		return 0
	}
	return *c.DoseMgPerWeek
}

// Frequency returns injections per week or 0 when unknown
func (c ProtocolContext) Frequency() float64 {
	if c.InjectionsPerWeek == nil {
		return 0
	}
	return *c.InjectionsPerWeek
}
