package markers

import (
	"math"
	"strings"

	"labsignal/domain/lab"
)

// UnitDef relates a marker's canonical EU unit to its US unit by
// us = eu*Factor + Offset. Inputs lists further accepted units with the
// multiplier that brings them into the EU unit.
type UnitDef struct {
	EU     string
	US     string
	Factor float64
	Offset float64
	Inputs map[string]float64
}

func (d UnitDef) factor() float64 {
	if d.Factor == 0 {
		return 1
	}
	return d.Factor
}

func (d UnitDef) toUS(eu float64) float64 {
	return eu*d.factor() + d.Offset
}

func (d UnitDef) toEU(value float64, unit string) (float64, bool) {
	u := normalizeUnit(unit)
	switch {
	case u == normalizeUnit(d.EU):
		return value, true
	case u == normalizeUnit(d.US):
		return (value - d.Offset) / d.factor(), true
	}
	for alias, mult := range d.Inputs {
		if normalizeUnit(alias) == u {
			return value * mult, true
		}
	}
	return 0, false
}

// Convert expresses value, measured in fromUnit, in the marker's unit for the
// given system. Unknown markers and units pass through unchanged; non-finite
// input returns NaN.
func (c *Catalog) Convert(marker string, value float64, fromUnit string, system lab.UnitSystem) (float64, string) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return math.NaN(), fromUnit
	}
	def, ok := c.units[marker]
	if !ok {
		return value, fromUnit
	}
	eu, ok := def.toEU(value, fromUnit)
	if !ok {
		return value, fromUnit
	}
	if system == lab.UnitSystemUS {
		return def.toUS(eu), def.US
	}
	return eu, def.EU
}

// ConvertBound converts an optional reference bound, dropping it when the
// result is not finite
func (c *Catalog) ConvertBound(marker string, bound *float64, fromUnit string, system lab.UnitSystem) *float64 {
	if bound == nil {
		return nil
	}
	v, _ := c.Convert(marker, *bound, fromUnit, system)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// UnitFor returns the marker's unit in the given system, or "" when unknown
func (c *Catalog) UnitFor(marker string, system lab.UnitSystem) string {
	def, ok := c.units[marker]
	if !ok {
		return ""
	}
	if system == lab.UnitSystemUS {
		return def.US
	}
	return def.EU
}

// SlopeFactor is the multiplier that moves a per-mg slope between unit
// systems. Offsets cancel for slopes.
func (c *Catalog) SlopeFactor(marker string, from, to lab.UnitSystem) float64 {
	def, ok := c.units[marker]
	if !ok || from == to {
		return 1
	}
	if to == lab.UnitSystemUS {
		return def.factor()
	}
	return 1 / def.factor()
}

// SystemOf reports which system a unit belongs to for the marker
func (c *Catalog) SystemOf(marker, unit string) (lab.UnitSystem, bool) {
	def, ok := c.units[marker]
	if !ok {
		return "", false
	}
	u := normalizeUnit(unit)
	switch u {
	case normalizeUnit(def.EU):
		return lab.UnitSystemEU, true
	case normalizeUnit(def.US):
		return lab.UnitSystemUS, true
	}
	return "", false
}

func normalizeUnit(u string) string {
	u = strings.ToLower(strings.TrimSpace(u))
	u = strings.NewReplacer("µ", "u", "μ", "u", "mcg", "ug", " ", "").Replace(u)
	return u
}
