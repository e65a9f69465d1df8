package protocol

import (
	"sort"
	"strings"
	"unicode"

	"labsignal/domain/core"
	"labsignal/domain/lab"
)

// primaryKeywords identify androgen compounds that define the weekly dose
var primaryKeywords = []string{
	"testosteron", "cypionate", "cipionate", "enanthate", "enantaat", "propionate",
	"undecanoate", "undecanoaat", "sustanon", "nebido", "trt", "test c", "test e",
}

// Resolver resolves the protocol context active for a report
type Resolver struct {
	protocols map[core.ProtocolID]lab.Protocol
}

// NewResolver indexes protocols by id. Later duplicates win.
func NewResolver(protocols []lab.Protocol) *Resolver {
	r := &Resolver{protocols: make(map[core.ProtocolID]lab.Protocol, len(protocols))}
	for _, p := range protocols {
		r.protocols[p.ID] = p
	}
	return r
}

// Protocol looks a protocol up by id
func (r *Resolver) Protocol(id core.ProtocolID) (lab.Protocol, bool) {
	if r == nil || id.IsEmpty() {
		return lab.Protocol{}, false
	}
	p, ok := r.protocols[id]
	return p, ok
}

// Resolve returns the context for a report: the referenced protocol when it
// exists, else the report's free-text annotation, else an empty context.
func (r *Resolver) Resolve(report lab.LabReport) lab.ProtocolContext {
	ann := report.Annotation
	ctx := lab.ProtocolContext{
		Source:         lab.ContextNone,
		SamplingTiming: report.Timing(),
		Symptoms:       strings.TrimSpace(ann.Symptoms),
		SupplementText: strings.TrimSpace(ann.Supplements),
		Supplements:    NormalizeSet(SplitList(ann.Supplements)),
		Compounds:      []string{},
	}

	if p, ok := r.Protocol(ann.ProtocolID); ok {
		return fromProtocol(ctx, p)
	}
	if hasAnnotationSignal(ann) {
		return fromAnnotation(ctx, ann)
	}
	return ctx
}

// Contexts resolves the context of each report in a chronologically sorted
// slice. A report that carries no protocol information and is not a
// baseline inherits the previous context, so an unannotated draw does not
// read as stopping and restarting.
func (r *Resolver) Contexts(sorted []lab.LabReport) []lab.ProtocolContext {
	out := make([]lab.ProtocolContext, len(sorted))
	for i, report := range sorted {
		ctx := r.Resolve(report)
		if i > 0 && !ctx.HasSignal() && !report.IsBaseline {
			inherited := out[i-1]
			inherited.SamplingTiming = ctx.SamplingTiming
			inherited.Symptoms = ctx.Symptoms
			ctx = inherited
		}
		out[i] = ctx
	}
	return out
}

func fromProtocol(ctx lab.ProtocolContext, p lab.Protocol) lab.ProtocolContext {
	ctx.Source = lab.ContextFromProtocol
	ctx.ProtocolID = p.ID
	ctx.ProtocolName = p.Name

	names := make([]string, 0, len(p.Compounds))
	for _, c := range p.Compounds {
		names = append(names, c.Name)
	}
	ctx.CompoundText = strings.Join(names, ", ")
	ctx.Compounds = NormalizeSet(names)

	dosing := primaryCompounds(p.Compounds)
	var dose, perWeek float64
	var freqTexts []string
	parsed := false
	for _, c := range dosing {
		if c.Frequency != "" {
			freqTexts = append(freqTexts, c.Frequency)
		}
		f, ok := ParseFrequency(c.Frequency)
		if !ok {
			continue
		}
		perWeek += f
		parsed = true
		if c.DoseMg > 0 {
			dose += c.DoseMg * f
		}
	}
	ctx.FrequencyText = strings.Join(freqTexts, ", ")
	if parsed {
		ctx.InjectionsPerWeek = floatPtr(perWeek)
		if dose > 0 {
			ctx.DoseMgPerWeek = floatPtr(dose)
		}
	}

	supplements := make([]string, 0, len(p.Supplements))
	texts := make([]string, 0, len(p.Supplements))
	for _, s := range p.Supplements {
		supplements = append(supplements, s.Name)
		texts = append(texts, strings.TrimSpace(s.Name+" "+s.Dose))
	}
	if len(texts) > 0 {
		if ctx.SupplementText != "" {
			texts = append(texts, ctx.SupplementText)
		}
		ctx.SupplementText = strings.Join(texts, ", ")
	}
	ctx.Supplements = NormalizeSet(append(supplements, ctx.Supplements...))
	return ctx
}

func fromAnnotation(ctx lab.ProtocolContext, ann lab.ProtocolAnnotation) lab.ProtocolContext {
	ctx.Source = lab.ContextFromAnnotation
	ctx.CompoundText = strings.TrimSpace(ann.Compound)
	ctx.Compounds = NormalizeSet(SplitList(ann.Compound))
	ctx.FrequencyText = strings.TrimSpace(ann.Frequency)

	freq, freqOK := ParseFrequency(ann.Frequency)
	if !freqOK && ann.Frequency == "" {
		freq, freqOK = ParseFrequency(ann.Dosage)
	}
	if freqOK {
		ctx.InjectionsPerWeek = floatPtr(freq)
	}

	if mg, perWeek, ok := ParseDose(ann.Dosage); ok {
		switch {
		case perWeek:
			ctx.DoseMgPerWeek = floatPtr(mg)
		case freqOK:
			ctx.DoseMgPerWeek = floatPtr(mg * freq)
		default:
			// no frequency to scale by; free-text doses are written as weekly totals
			ctx.DoseMgPerWeek = floatPtr(mg)
		}
	}
	return ctx
}

func hasAnnotationSignal(ann lab.ProtocolAnnotation) bool {
	return strings.TrimSpace(ann.Compound) != "" ||
		strings.TrimSpace(ann.Dosage) != "" ||
		strings.TrimSpace(ann.Frequency) != ""
}

func primaryCompounds(compounds []lab.Compound) []lab.Compound {
	var primary []lab.Compound
	for _, c := range compounds {
		if IsPrimaryCompound(c.Name) {
			primary = append(primary, c)
		}
	}
	if len(primary) == 0 {
		return compounds
	}
	return primary
}

// IsPrimaryCompound reports whether a compound name is an androgen that
// counts toward the weekly dose
func IsPrimaryCompound(name string) bool {
	n := normalizeName(name)
	for _, kw := range primaryKeywords {
		if strings.Contains(n, kw) {
			return true
		}
	}
	return false
}

// SplitList splits free text on commas, semicolons, plus signs and newlines
func SplitList(text string) []string {
	parts := strings.FieldsFunc(text, func(r rune) bool {
		switch r {
		case ',', ';', '+', '\n', '&', '|':
			return true
		}
		return false
	})
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// NormalizeSet lower-cases, collapses whitespace, dedupes and sorts names.
// Amount and unit tokens ("4000iu", "mg") are removed so the set compares
// substances rather than doses.
func NormalizeSet(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		n := normalizeName(name)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// SameSet compares two normalized sets
func SameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func normalizeName(name string) string {
	fields := strings.Fields(strings.ToLower(name))
	kept := fields[:0]
	for _, f := range fields {
		if isAmountToken(f) {
			continue
		}
		kept = append(kept, f)
	}
	return strings.Join(kept, " ")
}

var unitTokens = map[string]bool{
	"iu": true, "ie": true, "mg": true, "mcg": true, "µg": true, "ug": true,
	"g": true, "ml": true, "caps": true, "tabs": true, "daily": true, "dagelijks": true,
}

func isAmountToken(f string) bool {
	r := []rune(f)
	return unicode.IsDigit(r[0]) || unitTokens[f]
}

func floatPtr(v float64) *float64 {
	return &v
}
