package lineitems

import (
	"regexp"
	"strings"
)

// money is an optional "$", digits with optional thousands separators, and
// optional cents. The captured group excludes the currency sign.
const money = `\$?(\d{1,3}(?:,\d{3})+(?:\.\d{2})?|\d+(?:\.\d{2})?)`

var (
	reQuantity = regexp.MustCompile(`(?s)^\s*(\d+(?:\.\d+)?)\s+(.+)$`)
	// Monetary tokens are whitespace-delimited so a description like
	// "Model X200" does not lose its digits.
	rePricePair = regexp.MustCompile(`(?:^|\s)` + money + `\s+` + money + `\s*$`)
	reAmount    = regexp.MustCompile(`(?:^|\s)` + money + `\s*$`)
)

// FreeText is the result of segmenting one raw line-item string.
type FreeText struct {
	Quantity    *string
	UnitPrice   *string
	Amount      *string
	Description *string
}

// ParseFreeText peels quantity, prices and amount off a raw line and keeps
// what remains as the description. It is best effort: a description that
// legitimately ends in a number will lose it.
func ParseFreeText(text string) FreeText {
	var out FreeText

	out.Quantity, text = peelQuantity(text)

	var ok bool
	if out.UnitPrice, out.Amount, text, ok = peelPricePair(text); !ok {
		out.Amount, text = peelAmount(text)
	}

	if d := strings.TrimSpace(text); d != "" {
		out.Description = &d
	}
	return out
}

// peelQuantity takes a leading number followed by whitespace.
func peelQuantity(text string) (*string, string) {
	m := reQuantity.FindStringSubmatch(text)
	if m == nil {
		return nil, text
	}
	q := m[1]
	return &q, m[2]
}

// peelPricePair takes two trailing monetary tokens as unit price then amount.
func peelPricePair(text string) (unit, amount *string, rest string, ok bool) {
	loc := rePricePair.FindStringSubmatchIndex(text)
	if loc == nil {
		return nil, nil, text, false
	}
	u := text[loc[2]:loc[3]]
	a := text[loc[4]:loc[5]]
	return &u, &a, text[:loc[0]], true
}

// peelAmount takes one trailing monetary token.
func peelAmount(text string) (*string, string) {
	loc := reAmount.FindStringSubmatchIndex(text)
	if loc == nil {
		return nil, text
	}
	a := text[loc[2]:loc[3]]
	return &a, text[:loc[0]]
}
