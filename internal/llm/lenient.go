package llm

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/joseph-ayodele/invoice-tracker/internal/common"
)

var (
	dateLayouts = []string{
		"2006-01-02",
		"2006/01/02",
		"01/02/2006",
		"1/2/2006",
		"01-02-2006",
		"Jan 2, 2006",
		"January 2, 2006",
		"Jan 2 2006",
		"2 Jan 2006",
		"2 January 2006",
		"02.01.2006",
		time.RFC3339,
	}

	currencySymbols = map[string]string{
		"$": "USD",
		"€": "EUR",
		"£": "GBP",
		"¥": "JPY",
	}
)

// normalizeDate rewrites a recognizable date as YYYY-MM-DD.
func normalizeDate(s string) (string, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02"), true
		}
	}
	return "", false
}

// normalizeCurrency accepts ISO codes in any case and a few bare symbols.
func normalizeCurrency(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if code, ok := currencySymbols[s]; ok {
		return code, true
	}
	s = strings.ToUpper(s)
	if common.CurrencyCode("currency", s) != nil {
		return "", false
	}
	return s, true
}

// coerceConfidence turns a model confidence into an int in 0..100. Fractions
// in (0,1) are read as probabilities; "85%" and "85" strings are accepted.
func coerceConfidence(v any) (int, bool) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case string:
		s := strings.TrimSuffix(strings.TrimSpace(t), "%")
		n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, false
		}
		f = n
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	if f > 0 && f < 1 {
		f *= 100
	}
	f = math.Round(f)
	switch {
	case f < 0:
		f = 0
	case f > 100:
		f = 100
	}
	return int(f), true
}

// coerceCount accepts whole non-negative numbers or numeric strings.
func coerceCount(v any) (int, bool) {
	switch t := v.(type) {
	case float64:
		if t < 0 || t != math.Trunc(t) {
			return 0, false
		}
		return int(t), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil || n < 0 {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

func isBlank(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "null", "n/a", "na", "none", "unknown", "-":
		return true
	}
	return false
}
