package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"maps"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/invoice-tracker/internal/entity"
)

// ErrNotArray is returned when a categorization response is valid JSON but
// not an array.
var ErrNotArray = errors.New("response is not a JSON array")

var (
	textPolicy = bluemonday.StrictPolicy()

	reBareAmount = regexp.MustCompile(`^-?\d+(\.\d+)?$`)
)

// cleanText strips markup from model output and collapses whitespace.
func cleanText(s string) string {
	s = html.UnescapeString(textPolicy.Sanitize(s))
	return strings.Join(strings.Fields(s), " ")
}

// SanitizeCategorizations normalizes a categorization array so it can be
// validated strictly:
// - confidence strings/fractions are coerced to 0..100 integers
// - markup is stripped from free-text fields
// - null or empty optionals and unknown keys are dropped
//
// Non-object elements are left alone and fail validation.
func SanitizeCategorizations(raw []byte, logger *slog.Logger) ([]byte, []string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, nil, fmt.Errorf("sanitize: decode: %w", err)
	}
	arr, ok := v.([]any)
	if !ok {
		return nil, nil, ErrNotArray
	}

	var dropped []string
	for i, el := range arr {
		m, ok := el.(map[string]any)
		if !ok {
			continue
		}
		drop := func(k, why string) {
			delete(m, k)
			dropped = append(dropped, fmt.Sprintf("[%d].%s(%s)", i, k, why))
		}

		for k := range maps.Clone(m) {
			switch k {
			case "category":
				s, ok := m[k].(string)
				if !ok || isBlank(s) {
					drop(k, "empty")
					continue
				}
				m[k] = strings.ToLower(cleanText(s))
			case "subcategory", "cleanDescription":
				s, ok := m[k].(string)
				if !ok {
					drop(k, "type")
					continue
				}
				if s = cleanText(s); isBlank(s) {
					drop(k, "empty")
					continue
				}
				m[k] = s
			case "confidence":
				n, ok := coerceConfidence(m[k])
				if !ok {
					drop(k, "type")
					continue
				}
				m[k] = n
			default:
				drop(k, "unknown")
			}
		}
	}

	out, err := json.Marshal(arr)
	if err != nil {
		return nil, dropped, fmt.Errorf("sanitize: encode: %w", err)
	}
	if len(dropped) > 0 {
		logger.Warn("llm.categorize.sanitize", "dropped", dropped)
	}
	return out, dropped, nil
}

// SanitizeHeader normalizes a header object: strings are cleaned, dates are
// rewritten as YYYY-MM-DD, totals become bare decimals without rounding, and
// values that cannot be normalized are dropped instead of failing the whole
// response. A total that is already a bare number is kept verbatim.
func SanitizeHeader(raw []byte, logger *slog.Logger) ([]byte, []string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, nil, fmt.Errorf("sanitize: decode: %w", err)
	}
	if m == nil {
		return nil, nil, fmt.Errorf("sanitize: response is not a JSON object")
	}

	var dropped []string
	drop := func(k, why string) {
		delete(m, k)
		dropped = append(dropped, k+"("+why+")")
	}

	for k := range maps.Clone(m) {
		v := m[k]
		switch k {
		case "line_items_count":
			n, ok := coerceCount(v)
			if !ok {
				drop(k, "type")
				continue
			}
			m[k] = n
			continue
		case "total_amount":
			if f, ok := v.(float64); ok {
				v = decimal.NewFromFloat(f).String()
			}
		case "supplier_name", "invoice_date", "invoice_number", "currency", "payment_terms", "invoice_type":
		default:
			drop(k, "unknown")
			continue
		}

		s, ok := v.(string)
		if !ok {
			drop(k, "type")
			continue
		}
		s = cleanText(s)
		if isBlank(s) {
			drop(k, "empty")
			continue
		}

		switch k {
		case "invoice_date":
			d, ok := normalizeDate(s)
			if !ok {
				drop(k, "format")
				continue
			}
			s = d
		case "currency":
			c, ok := normalizeCurrency(s)
			if !ok {
				drop(k, "format")
				continue
			}
			s = c
		case "total_amount":
			if reBareAmount.MatchString(s) {
				break
			}
			d, ok := entity.ParseMoney(s)
			if !ok {
				drop(k, "format")
				continue
			}
			s = d.String()
		case "invoice_type":
			s = strings.ToLower(s)
		}
		m[k] = s
	}

	out, err := json.Marshal(m)
	if err != nil {
		return nil, dropped, fmt.Errorf("sanitize: encode: %w", err)
	}
	if len(dropped) > 0 {
		logger.Warn("llm.header.sanitize", "dropped", dropped)
	}
	return out, dropped, nil
}
