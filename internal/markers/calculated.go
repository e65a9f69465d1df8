package markers

import (
	"math"

	"labsignal/domain/lab"
)

// Vermeulen mass-action constants
const (
	albuminAssociation = 3.6e4 // L/mol
	shbgAssociation    = 1e9   // L/mol
	albuminMolarMass   = 69000 // g/mol
	homaDenominator    = 22.5
)

// BestValue picks the preferred value of a canonical marker in a report:
// measured over calculated, then higher confidence, then higher value.
func (c *Catalog) BestValue(report lab.LabReport, marker string) (lab.MarkerValue, bool) {
	var best lab.MarkerValue
	found := false
	for _, m := range report.Markers {
		if c.nameOf(m) != marker {
			continue
		}
		if !found || better(m, best) {
			best = m
			found = true
		}
	}
	return best, found
}

func better(a, b lab.MarkerValue) bool {
	if a.IsCalculated != b.IsCalculated {
		return !a.IsCalculated
	}
	if a.Confidence != b.Confidence {
		return a.Confidence > b.Confidence
	}
	return a.Value > b.Value
}

func (c *Catalog) nameOf(m lab.MarkerValue) string {
	if m.Name != "" {
		return m.Name
	}
	return c.Canonicalize(m.RawName)
}

// Canonical returns a copy of the report whose marker names are canonical
func (c *Catalog) Canonical(report lab.LabReport) lab.LabReport {
	out := make([]lab.MarkerValue, len(report.Markers))
	for i, m := range report.Markers {
		if m.RawName == "" {
			m.RawName = m.Name
		}
		m.Name = c.Canonicalize(m.RawName)
		out[i] = m
	}
	return report.WithMarkers(out)
}

// Derive returns a copy of the report with calculated markers appended.
// A calculated marker is only added when the report holds no marker of
// that name already.
func (c *Catalog) Derive(report lab.LabReport) lab.LabReport {
	present := make(map[string]bool, len(report.Markers))
	for _, m := range report.Markers {
		present[c.nameOf(m)] = true
	}

	eu := func(marker string) (float64, float64, bool) {
		m, ok := c.BestValue(report, marker)
		if !ok {
			return 0, 0, false
		}
		v, unit := c.Convert(marker, m.Value, m.Unit, lab.UnitSystemEU)
		if !finite(v) || unit != c.UnitFor(marker, lab.UnitSystemEU) {
			return 0, 0, false
		}
		return v, m.Confidence, true
	}

	derived := make([]lab.MarkerValue, 0, 7)
	add := func(name string, value float64, unit string, confidence float64) {
		if present[name] || !finite(value) {
			return
		}
		present[name] = true
		derived = append(derived, lab.MarkerValue{
			RawName:      name,
			Name:         name,
			Value:        value,
			Unit:         unit,
			Abnormal:     lab.FlagUnknown,
			Confidence:   confidence,
			IsCalculated: true,
		})
	}

	tt, ttConf, hasTT := eu(Testosterone)
	shbg, shbgConf, hasSHBG := eu(SHBG)
	if hasTT && hasSHBG {
		if alb, albConf, ok := eu(Albumin); ok {
			if ft, ok := FreeTestosteroneVermeulen(tt, shbg, alb); ok {
				add(FreeTestosterone, ft, c.UnitFor(FreeTestosterone, lab.UnitSystemEU), minConf(ttConf, shbgConf, albConf))
			}
		}
		if tt > 0 && shbg > 0 {
			add(FreeAndrogenIndex, tt/shbg*100, "", minConf(ttConf, shbgConf))
		}
	}

	if glu, gluConf, ok := eu(Glucose); ok && glu > 0 {
		if ins, insConf, ok := eu(Insulin); ok && ins > 0 {
			// insulin is held in pmol/L; HOMA-IR wants µIU/mL
			add(HOMAIR, glu*(ins/6)/homaDenominator, "", minConf(gluConf, insConf))
		}
	}

	hdl, hdlConf, hasHDL := eu(HDLCholesterol)
	if hasHDL && hdl > 0 {
		if tg, tgConf, ok := eu(Triglycerides); ok && tg > 0 {
			add(TGHDLRatio, tg/hdl, "", minConf(tgConf, hdlConf))
		}
		if ldl, ldlConf, ok := eu(LDLCholesterol); ok && ldl > 0 {
			add(LDLHDLRatio, ldl/hdl, "", minConf(ldlConf, hdlConf))
		}
		if tc, tcConf, ok := eu(TotalCholesterol); ok && tc > hdl {
			add(AtherogenicCoefficient, (tc-hdl)/hdl, "", minConf(tcConf, hdlConf))
			add(NonHDLCholesterol, tc-hdl, c.UnitFor(NonHDLCholesterol, lab.UnitSystemEU), minConf(tcConf, hdlConf))
		}
	}

	if len(derived) == 0 {
		return report
	}
	return report.WithMarkers(append(append([]lab.MarkerValue(nil), report.Markers...), derived...))
}

// FreeTestosteroneVermeulen solves the binding equilibrium for free
// testosterone. Inputs are total testosterone and SHBG in nmol/L and albumin
// in g/L; the result is pmol/L.
func FreeTestosteroneVermeulen(totalNmol, shbgNmol, albuminGL float64) (float64, bool) {
	if !finite(totalNmol) || !finite(shbgNmol) || !finite(albuminGL) {
		return 0, false
	}
	if totalNmol <= 0 || shbgNmol <= 0 || albuminGL <= 0 {
		return 0, false
	}

	tt := totalNmol * 1e-9
	shbg := shbgNmol * 1e-9
	alb := albuminGL / albuminMolarMass

	n := 1 + albuminAssociation*alb
	a := n * shbgAssociation
	b := n + shbgAssociation*(shbg-tt)
	c := -tt

	disc := b*b - 4*a*c
	if disc < 0 || a == 0 {
		return 0, false
	}
	ft := (-b + math.Sqrt(disc)) / (2 * a)
	if !finite(ft) || ft <= 0 {
		return 0, false
	}
	return ft * 1e12, true
}

func minConf(values ...float64) float64 {
	out := 1.0
	for _, v := range values {
		if v < out {
			out = v
		}
	}
	if out < 0 {
		return 0
	}
	return out
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
