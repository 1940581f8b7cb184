package documentai

import "strings"

// EntityType is the closed set of entity tags the pipeline reads.
type EntityType string

const (
	TypeSupplierName EntityType = "supplier_name"
	TypeTotalAmount  EntityType = "total_amount"
	TypeInvoiceDate  EntityType = "invoice_date"
	TypeInvoiceID    EntityType = "invoice_id"
	TypeLineItem     EntityType = "line_item"

	TypeLineItemDescription EntityType = "line_item/description"
	TypeLineItemQuantity    EntityType = "line_item/quantity"
	TypeLineItemUnitPrice   EntityType = "line_item/unit_price"
	TypeLineItemAmount      EntityType = "line_item/amount"
	TypeLineItemProductCode EntityType = "line_item/product_code"
)

var knownTypes = map[EntityType]struct{}{
	TypeSupplierName:        {},
	TypeTotalAmount:         {},
	TypeInvoiceDate:         {},
	TypeInvoiceID:           {},
	TypeLineItem:            {},
	TypeLineItemDescription: {},
	TypeLineItemQuantity:    {},
	TypeLineItemUnitPrice:   {},
	TypeLineItemAmount:      {},
	TypeLineItemProductCode: {},
}

// ParseEntityType validates a raw tag against the known set.
func ParseEntityType(s string) (EntityType, bool) {
	t := EntityType(s)
	_, ok := knownTypes[t]
	return t, ok
}

// Value returns the entity's normalized text, else its mention text, else "".
func (e Entity) Value() string {
	if e.NormalizedValue != nil {
		if v := strings.TrimSpace(e.NormalizedValue.Text); v != "" {
			return v
		}
	}
	return strings.TrimSpace(e.MentionText)
}

// ExtractHeader returns the value of the first entity whose type matches
// exactly, or nil. Later duplicates are ignored.
func ExtractHeader(entities []Entity, t EntityType) *string {
	for _, e := range entities {
		if EntityType(e.Type) != t {
			continue
		}
		if v := e.Value(); v != "" {
			return &v
		}
		return nil
	}
	return nil
}

// Header is the set of scalar invoice fields read from top-level entities.
type Header struct {
	Supplier      *string
	Total         *string
	Date          *string
	InvoiceNumber *string
}

func ExtractHeaderFields(entities []Entity) Header {
	return Header{
		Supplier:      ExtractHeader(entities, TypeSupplierName),
		Total:         ExtractHeader(entities, TypeTotalAmount),
		Date:          ExtractHeader(entities, TypeInvoiceDate),
		InvoiceNumber: ExtractHeader(entities, TypeInvoiceID),
	}
}

// LineItemEntities filters to line_item entities, preserving order.
func LineItemEntities(entities []Entity) []Entity {
	var out []Entity
	for _, e := range entities {
		if EntityType(e.Type) == TypeLineItem {
			out = append(out, e)
		}
	}
	return out
}

// Property returns the value of the first nested property of type t, or nil.
func (e Entity) Property(t EntityType) *string {
	return ExtractHeader(e.Properties, t)
}

// UnknownTypes lists entity tags outside the known set, for diagnostics.
func UnknownTypes(entities []Entity) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, e := range entities {
		if _, ok := ParseEntityType(e.Type); ok {
			continue
		}
		if _, dup := seen[e.Type]; dup {
			continue
		}
		seen[e.Type] = struct{}{}
		out = append(out, e.Type)
	}
	return out
}
