// Package categorize assigns a spending category to free text using
// word-boundary keyword rules evaluated in a fixed priority order.
package categorize

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/joseph-ayodele/invoice-tracker/constants"
)

// Rule matches one category. Keywords ending in "*" are stems and match any
// word that starts with them; a space inside a keyword matches optional
// whitespace ("paper towel" also matches "papertowel").
type Rule struct {
	Category constants.Category `yaml:"category"`
	Keywords []string           `yaml:"keywords"`
}

// DefaultRules is the built-in rule set. Order is priority: the first rule
// that matches wins.
var DefaultRules = []Rule{
	{constants.Food, []string{
		"food", "bread", "milk", "egg", "chicken", "beef", "rice", "pasta", "fruit",
		"vegetable", "grocery", "groceries", "meal", "lunch", "dinner", "breakfast",
		"coffee", "tea", "juice", "water", "soda", "snack", "candy",
	}},
	{constants.Cleaning, []string{
		"clean*", "detergent", "soap", "bleach", "disinfect*", "sanitiz*", "paper towel",
		"toilet paper", "tissue", "sponge", "mop", "vacuum", "brush", "wipe",
	}},
	{constants.Office, []string{
		"pen", "pencil", "paper", "notebook", "stapler", "clip", "folder", "binder",
		"printer", "ink", "toner", "computer", "desk", "chair", "office",
	}},
	{constants.Transportation, []string{
		"gas", "fuel", "car", "vehicle", "transport*", "taxi", "uber", "bus", "train",
		"parking", "toll", "repair", "maintenance", "oil", "tire",
	}},
	{constants.Healthcare, []string{
		"medical", "medicine", "doctor", "hospital", "pharmacy", "pill", "tablet",
		"health", "dental", "vision", "insurance", "treatment",
	}},
	{constants.Entertainment, []string{
		"movie", "theater", "game", "sport", "entertainment", "music", "book",
		"magazine", "streaming", "netflix", "spotify",
	}},
	{constants.Utilities, []string{
		"utility", "utilities", "electric*", "internet", "broadband", "wifi", "phone",
		"telephone", "sewer", "trash", "garbage", "heating",
	}},
	{constants.PersonalCare, []string{
		"shampoo", "conditioner", "toothpaste", "toothbrush", "lotion", "deodorant",
		"razor", "cosmetic*", "makeup", "perfume", "haircut", "salon", "skincare",
		"moisturiz*",
	}},
}

type compiled struct {
	category constants.Category
	re       *regexp.Regexp
}

// Categorizer is safe for concurrent use.
type Categorizer struct {
	rules []compiled
}

var defaultCategorizer = MustNew(DefaultRules)

// Default returns the categorizer built from DefaultRules.
func Default() *Categorizer { return defaultCategorizer }

// New compiles rules in the given order.
func New(rules []Rule) (*Categorizer, error) {
	c := &Categorizer{rules: make([]compiled, 0, len(rules))}
	for i, r := range rules {
		if len(r.Keywords) == 0 {
			return nil, fmt.Errorf("rule %d (%s): no keywords", i, r.Category)
		}
		re, err := regexp.Compile(keywordPattern(r.Keywords))
		if err != nil {
			return nil, fmt.Errorf("rule %d (%s): %w", i, r.Category, err)
		}
		c.rules = append(c.rules, compiled{category: r.Category, re: re})
	}
	return c, nil
}

func MustNew(rules []Rule) *Categorizer {
	c, err := New(rules)
	if err != nil {
		panic(err)
	}
	return c
}

// Categorize returns the first matching category, or other.
func (c *Categorizer) Categorize(text string) constants.Category {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return constants.Other
	}
	for _, r := range c.rules {
		if r.re.MatchString(text) {
			return r.category
		}
	}
	return constants.Other
}

// keywordPattern builds `\b(?:k1|k2|...)s?\b`. The optional plural keeps
// "pens" and "tires" matching without admitting "cartoon" for "car".
func keywordPattern(keywords []string) string {
	alts := make([]string, 0, len(keywords))
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" {
			continue
		}
		stem := strings.HasSuffix(k, "*")
		k = strings.TrimSuffix(k, "*")

		words := strings.Fields(k)
		for i, w := range words {
			words[i] = regexp.QuoteMeta(w)
		}
		alt := strings.Join(words, `\s*`)
		if stem {
			alt += `\w*`
		}
		alts = append(alts, alt)
	}
	return `\b(?:` + strings.Join(alts, "|") + `)s?\b`
}
