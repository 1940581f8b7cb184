package constants

import (
	"strings"
)

// Category is the spending bucket assigned to an invoice line item.
type Category string

const (
	Food           Category = "food"
	Cleaning       Category = "cleaning"
	Office         Category = "office"
	Transportation Category = "transportation"
	Healthcare     Category = "healthcare"
	Entertainment  Category = "entertainment"
	Utilities      Category = "utilities"
	PersonalCare   Category = "personal_care"
	Other          Category = "other"

	// Uncategorized is never assigned by this module but may arrive from callers.
	Uncategorized Category = "uncategorized"
)

// allCategories is the vocabulary offered to the completion model, in prompt order.
var allCategories = []Category{
	Food,
	Cleaning,
	Office,
	Transportation,
	Healthcare,
	Entertainment,
	Utilities,
	PersonalCare,
	Other,
}

// AsStringSlice returns the category vocabulary as a fresh string slice.
func AsStringSlice() []string {
	result := make([]string, len(allCategories))
	for i, cat := range allCategories {
		result[i] = string(cat)
	}
	return result
}

// NeedsCategorization reports whether an item's category is missing or a placeholder.
func NeedsCategorization(c string) bool {
	switch Category(strings.ToLower(strings.TrimSpace(c))) {
	case "", Other, Uncategorized:
		return true
	}
	return false
}

// Canonicalize maps a free-form category label onto the vocabulary.
// The bool is false when the label had to be replaced with Other.
func Canonicalize(input string) (Category, bool) {
	if input == "" {
		return Other, false
	}

	normalized := strings.ToLower(strings.TrimSpace(input))
	normalized = strings.NewReplacer("-", "_", " ", "_").Replace(normalized)

	// synonyms map
	synonyms := map[string]Category{
		"groceries":       Food,
		"grocery":         Food,
		"meals":           Food,
		"beverages":       Food,
		"household":       Cleaning,
		"office_supplies": Office,
		"stationery":      Office,
		"travel":          Transportation,
		"fuel":            Transportation,
		"medical":         Healthcare,
		"health":          Healthcare,
		"pharmacy":        Healthcare,
		"media":           Entertainment,
		"utility":         Utilities,
		"personal":        PersonalCare,
		"personalcare":    PersonalCare,
		"toiletries":      PersonalCare,
	}

	if cat, ok := synonyms[normalized]; ok {
		return cat, true
	}

	for _, cat := range allCategories {
		if normalized == string(cat) {
			return cat, true
		}
	}

	return Other, false
}
