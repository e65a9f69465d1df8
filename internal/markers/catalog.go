package markers

import (
	"sort"

	"labsignal/domain/insight"
	"labsignal/domain/lab"
)

// Zone is a target range in canonical EU units
type Zone struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// ThresholdRule is a clinically meaningful level expressed in both unit systems
type ThresholdRule struct {
	Marker    string                     `json:"marker" yaml:"marker"`
	Direction insight.ThresholdDirection `json:"direction" yaml:"direction"`
	EU        float64                    `json:"eu" yaml:"eu"`
	US        float64                    `json:"us" yaml:"us"`
	Label     string                     `json:"label" yaml:"label"`
}

// Threshold is a ThresholdRule resolved for one unit system
type Threshold struct {
	Marker    string
	Direction insight.ThresholdDirection
	Value     float64
	Unit      string
	Label     string
}

// Tables is the raw configuration a Catalog is built from
type Tables struct {
	Aliases          map[string]string
	Units            map[string]UnitDef
	LagDays          map[string]int
	DefaultLagDays   int
	Weights          map[string]int
	DefaultWeight    int
	ExpectedPositive []string
	Zones            map[string]Zone
	Thresholds       []ThresholdRule
}

// Catalog is the immutable marker knowledge shared by every analysis step
type Catalog struct {
	aliases    map[string]string
	units      map[string]UnitDef
	lags       map[string]int
	defaultLag int
	weights    map[string]int
	defaultWt  int
	positive   map[string]bool
	zones      map[string]Zone
	thresholds []ThresholdRule
}

// MarkerInfo describes a known marker for listings
type MarkerInfo struct {
	Name           string `json:"name"`
	EUUnit         string `json:"eu_unit"`
	USUnit         string `json:"us_unit"`
	LagDays        int    `json:"lag_days"`
	ClinicalWeight int    `json:"clinical_weight"`
}

// NewCatalog copies the given tables into a Catalog. Alias keys are
// normalized, and every canonical name is registered as its own alias.
func NewCatalog(t Tables) *Catalog {
	c := &Catalog{
		aliases:    make(map[string]string, len(t.Aliases)),
		units:      make(map[string]UnitDef, len(t.Units)),
		lags:       make(map[string]int, len(t.LagDays)),
		defaultLag: t.DefaultLagDays,
		weights:    make(map[string]int, len(t.Weights)),
		defaultWt:  t.DefaultWeight,
		positive:   make(map[string]bool, len(t.ExpectedPositive)),
		zones:      make(map[string]Zone, len(t.Zones)),
		thresholds: append([]ThresholdRule(nil), t.Thresholds...),
	}
	if c.defaultLag <= 0 {
		c.defaultLag = 21
	}
	if c.defaultWt <= 0 {
		c.defaultWt = 55
	}

	register := func(name string) {
		c.aliases[normalizeKey(name)] = name
	}
	for name, def := range t.Units {
		c.units[name] = def
		register(name)
	}
	for name, lag := range t.LagDays {
		c.lags[name] = lag
		register(name)
	}
	for name, w := range t.Weights {
		c.weights[name] = w
		register(name)
	}
	for _, name := range t.ExpectedPositive {
		c.positive[name] = true
	}
	for name, z := range t.Zones {
		c.zones[name] = z
	}
	for alias, name := range t.Aliases {
		c.aliases[normalizeKey(alias)] = name
	}
	return c
}

// LagDays returns how many days a marker needs to respond to a protocol change
func (c *Catalog) LagDays(marker string) int {
	if lag, ok := c.lags[marker]; ok {
		return lag
	}
	return c.defaultLag
}

// ClinicalWeight returns the fixed 0-100 importance of a marker
func (c *Catalog) ClinicalWeight(marker string) int {
	if w, ok := c.weights[marker]; ok {
		return w
	}
	return c.defaultWt
}

// ExpectedPositive reports whether the marker should rise with dose
func (c *Catalog) ExpectedPositive(marker string) bool {
	return c.positive[marker]
}

// TargetZone returns the marker's target range converted to the unit system
func (c *Catalog) TargetZone(marker string, system lab.UnitSystem) (Zone, string, bool) {
	z, ok := c.zones[marker]
	if !ok {
		return Zone{}, "", false
	}
	def, hasUnits := c.units[marker]
	if !hasUnits {
		return z, "", true
	}
	if system == lab.UnitSystemUS {
		return Zone{Min: def.toUS(z.Min), Max: def.toUS(z.Max)}, def.US, true
	}
	return z, def.EU, true
}

// ZoneMarkers lists the markers that carry a target zone, sorted
func (c *Catalog) ZoneMarkers() []string {
	out := make([]string, 0, len(c.zones))
	for name := range c.zones {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Thresholds resolves the threshold table for a unit system
func (c *Catalog) Thresholds(system lab.UnitSystem) []Threshold {
	out := make([]Threshold, 0, len(c.thresholds))
	for _, rule := range c.thresholds {
		value := rule.EU
		if system == lab.UnitSystemUS {
			value = rule.US
		}
		out = append(out, Threshold{
			Marker:    rule.Marker,
			Direction: rule.Direction,
			Value:     value,
			Unit:      c.UnitFor(rule.Marker, system),
			Label:     rule.Label,
		})
	}
	return out
}

// Known lists every marker with unit or weight data, sorted by name
func (c *Catalog) Known() []MarkerInfo {
	seen := make(map[string]bool)
	for name := range c.units {
		seen[name] = true
	}
	for name := range c.weights {
		seen[name] = true
	}
	for name := range c.lags {
		seen[name] = true
	}

	out := make([]MarkerInfo, 0, len(seen))
	for name := range seen {
		info := MarkerInfo{
			Name:           name,
			LagDays:        c.LagDays(name),
			ClinicalWeight: c.ClinicalWeight(name),
		}
		if def, ok := c.units[name]; ok {
			info.EUUnit = def.EU
			info.USUnit = def.US
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
