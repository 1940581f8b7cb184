// Package lineitems turns line_item OCR entities into normalized line items.
package lineitems

import (
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/invoice-tracker/internal/categorize"
	"github.com/joseph-ayodele/invoice-tracker/internal/documentai"
	"github.com/joseph-ayodele/invoice-tracker/internal/entity"
)

type Parser struct {
	Logger      *slog.Logger
	Categorizer *categorize.Categorizer

	// fallback is swapped in tests to observe when free-text parsing runs.
	fallback func(string) FreeText
}

func NewParser(c *categorize.Categorizer, logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	if c == nil {
		c = categorize.Default()
	}
	return &Parser{Logger: logger, Categorizer: c, fallback: ParseFreeText}
}

// ParseAll parses every line_item entity in order. Items with no description
// and no raw text are dropped.
func (p *Parser) ParseAll(entities []documentai.Entity, docText string) []entity.LineItem {
	lineEntities := documentai.LineItemEntities(entities)
	items := make([]entity.LineItem, 0, len(lineEntities))
	fallbacks, dropped := 0, 0
	for _, e := range lineEntities {
		item, usedFallback, ok := p.parse(e, docText)
		if usedFallback {
			fallbacks++
		}
		if !ok {
			dropped++
			continue
		}
		items = append(items, item)
	}
	p.Logger.Debug("lineitems.parse.ok",
		"entities", len(lineEntities),
		"items", len(items),
		"free_text_fallbacks", fallbacks,
		"dropped", dropped,
	)
	return items
}

// Parse converts a single line_item entity. ok is false when the entity
// carries no usable text.
func (p *Parser) Parse(e documentai.Entity, docText string) (entity.LineItem, bool) {
	item, _, ok := p.parse(e, docText)
	return item, ok
}

func (p *Parser) parse(e documentai.Entity, docText string) (entity.LineItem, bool, bool) {
	item := entity.LineItem{
		RawText:     strings.TrimSpace(e.MentionText),
		Description: e.Property(documentai.TypeLineItemDescription),
		Quantity:    e.Property(documentai.TypeLineItemQuantity),
		UnitPrice:   e.Property(documentai.TypeLineItemUnitPrice),
		Amount:      e.Property(documentai.TypeLineItemAmount),
		ProductCode: e.Property(documentai.TypeLineItemProductCode),
	}
	if item.RawText == "" {
		item.RawText = documentai.Resolve(e.TextAnchor, docText)
	}

	usedFallback := false
	if item.Description == nil && item.RawText != "" {
		usedFallback = true
		ft := p.fallback(item.RawText)
		item.Description = ft.Description
		item.Quantity = firstNonNil(item.Quantity, ft.Quantity)
		item.UnitPrice = firstNonNil(item.UnitPrice, ft.UnitPrice)
		item.Amount = firstNonNil(item.Amount, ft.Amount)
	}

	desc := entity.Deref(item.Description)
	if desc == "" && item.RawText == "" {
		return entity.LineItem{}, usedFallback, false
	}

	source := desc
	if source == "" {
		source = item.RawText
	}
	item.Category = string(p.Categorizer.Categorize(source))
	return item, usedFallback, true
}

// structured values win over anything recovered from free text
func firstNonNil(a, b *string) *string {
	if a != nil {
		return a
	}
	return b
}
