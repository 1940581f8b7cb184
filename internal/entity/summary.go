package entity

import (
	"regexp"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// CategoryCount is the number of items and their summed amount in one category.
type CategoryCount struct {
	Category string `json:"category"`
	Items    int    `json:"items"`
	Amount   string `json:"amount"`
}

// Summary aggregates an invoice's line items by category.
type Summary struct {
	Categories          []CategoryCount `json:"categories"`
	AICategorized       int             `json:"aiCategorized"`
	AverageAIConfidence float64         `json:"averageAiConfidence"`
}

// Summarize groups line items by category (empty counts as "other"), sorted by
// descending item count then name. Unparseable amounts contribute nothing.
func Summarize(items []LineItem) Summary {
	type acc struct {
		n   int
		sum decimal.Decimal
	}
	byCat := map[string]*acc{}
	var s Summary
	confSum := 0

	for _, li := range items {
		cat := li.Category
		if cat == "" {
			cat = "other"
		}
		a, ok := byCat[cat]
		if !ok {
			a = &acc{}
			byCat[cat] = a
		}
		a.n++
		if d, ok := ParseMoney(Deref(li.Amount)); ok {
			a.sum = a.sum.Add(d)
		}
		if li.AICategorized {
			s.AICategorized++
		}
		if li.AIConfidence != nil {
			confSum += *li.AIConfidence
		}
	}

	for cat, a := range byCat {
		s.Categories = append(s.Categories, CategoryCount{Category: cat, Items: a.n, Amount: a.sum.StringFixed(2)})
	}
	sort.Slice(s.Categories, func(i, j int) bool {
		if s.Categories[i].Items != s.Categories[j].Items {
			return s.Categories[i].Items > s.Categories[j].Items
		}
		return s.Categories[i].Category < s.Categories[j].Category
	})
	if len(items) > 0 {
		s.AverageAIConfidence = float64(confSum) / float64(len(items))
	}
	return s
}

var (
	moneyReplacer   = strings.NewReplacer("$", "", "€", "", "£", "", " ", "")
	// commas are only read as thousands separators
	reGroupedAmount = regexp.MustCompile(`^-?\d{1,3}(,\d{3})+(\.\d+)?$`)
)

// ParseMoney parses display amounts like "$1,234.50" into a decimal. Amounts
// with a comma that is not a thousands separator ("2,50") are rejected rather
// than guessed at.
func ParseMoney(s string) (decimal.Decimal, bool) {
	s = moneyReplacer.Replace(strings.TrimSpace(s))
	if s == "" {
		return decimal.Zero, false
	}
	if strings.Contains(s, ",") {
		if !reGroupedAmount.MatchString(s) {
			return decimal.Zero, false
		}
		s = strings.ReplaceAll(s, ",", "")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}
