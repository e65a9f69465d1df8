package protocol

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	everyNDays   = regexp.MustCompile(`(?:^|\b)(?:e|every|elke|om de)\s*(\d+(?:[.,]\d+)?)\s*(?:d|days?|dagen)\b`)
	everyNWeeks  = regexp.MustCompile(`(?:^|\b)(?:e|every|elke|om de)\s*(\d+(?:[.,]\d+)?)\s*(?:w|wk|wks|weeks?|weken)\b`)
	timesPerWeek = regexp.MustCompile(`(\d+(?:[.,]\d+)?)\s*(?:x|times|keer|maal)\s*(?:/|per|a|in de|p\.?)?\s*(?:w|wk|week|weeks)\b`)
	timesWeekly  = regexp.MustCompile(`(\d+(?:[.,]\d+)?)\s*(?:x|times|keer)\s*(?:weekly|wekelijks)\b`)
	doseAmount   = regexp.MustCompile(`(\d+(?:[.,]\d+)?)\s*(?:mg|milligrams?)`)
	bareDose     = regexp.MustCompile(`^(\d+(?:[.,]\d+)?)\s*(?:/\s*(?:w|wk|week)|per\s+week|pw|weekly|wekelijks)?$`)
	perWeekHint  = regexp.MustCompile(`(?:/\s*(?:w|wk|week)\b|per\s+week|p/w|\bpw\b|\bweekly\b|\bwekelijks\b|/wk)`)
)

var wordCounts = map[string]float64{
	"once":   1,
	"twice":  2,
	"thrice": 3,
	"three":  3,
	"four":   4,
	"een":    1,
	"twee":   2,
	"drie":   3,
	"vier":   4,
}

// ParseFrequency turns administration-frequency text into administrations
// per week. English and Dutch spellings are accepted.
func ParseFrequency(text string) (float64, bool) {
	s := strings.ToLower(strings.TrimSpace(text))
	if s == "" {
		return 0, false
	}

	switch s {
	case "daily", "ed", "qd", "every day", "dagelijks", "elke dag", "dag":
		return 7, true
	case "eod", "qod", "every other day", "om de dag", "om de andere dag":
		return 3.5, true
	case "biweekly", "bi-weekly", "eow", "every other week", "fortnightly", "om de week", "tweewekelijks":
		return 0.5, true
	case "weekly", "once weekly", "once a week", "wekelijks", "ew", "per week", "1x/week":
		return 1, true
	case "monthly", "maandelijks", "once a month", "every month":
		return 7.0 / 30, true
	}

	if m := everyNDays.FindStringSubmatch(s); m != nil {
		if n, ok := parseNumber(m[1]); ok && n > 0 {
			return 7 / n, true
		}
	}
	if m := everyNWeeks.FindStringSubmatch(s); m != nil {
		if n, ok := parseNumber(m[1]); ok && n > 0 {
			return 1 / n, true
		}
	}
	if m := timesPerWeek.FindStringSubmatch(s); m != nil {
		if n, ok := parseNumber(m[1]); ok && n > 0 {
			return n, true
		}
	}
	if m := timesWeekly.FindStringSubmatch(s); m != nil {
		if n, ok := parseNumber(m[1]); ok && n > 0 {
			return n, true
		}
	}

	fields := strings.Fields(strings.NewReplacer("-", " ", "/", " ").Replace(s))
	if len(fields) >= 2 {
		if n, ok := wordCounts[fields[0]]; ok {
			rest := strings.Join(fields[1:], " ")
			if strings.Contains(rest, "week") || strings.Contains(rest, "wekelijks") {
				return n, true
			}
		}
	}

	switch {
	case strings.Contains(s, "dagelijks"), strings.Contains(s, "daily"):
		return 7, true
	case strings.Contains(s, "eod"), strings.Contains(s, "every other day"):
		return 3.5, true
	case strings.Contains(s, "biweekly"), strings.Contains(s, "every other week"):
		return 0.5, true
	case strings.Contains(s, "weekly"), strings.Contains(s, "wekelijks"):
		return 1, true
	case strings.Contains(s, "monthly"), strings.Contains(s, "maandelijks"):
		return 7.0 / 30, true
	}
	return 0, false
}

// ParseDose extracts a milligram amount from dose text. perWeek reports
// whether the text states the amount is a weekly total.
func ParseDose(text string) (mg float64, perWeek bool, ok bool) {
	s := strings.ToLower(strings.TrimSpace(text))
	if s == "" {
		return 0, false, false
	}

	for _, m := range doseAmount.FindAllStringSubmatch(s, -1) {
		v, ok := parseNumber(m[1])
		if !ok || v <= 0 {
			continue
		}
		return v, perWeekHint.MatchString(s), true
	}
	if m := bareDose.FindStringSubmatch(s); m != nil {
		if v, ok := parseNumber(m[1]); ok && v > 0 {
			return v, perWeekHint.MatchString(s), true
		}
	}
	return 0, false, false
}

func parseNumber(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
