package entity

import (
	"time"

	"github.com/google/uuid"
)

// LineItem is one itemized row of an invoice.
// Numeric fields stay display strings; OCR and model output are not reliably numeric.
type LineItem struct {
	Description      *string `json:"description"`
	Quantity         *string `json:"quantity"`
	UnitPrice        *string `json:"unitPrice"`
	Amount           *string `json:"amount"`
	ProductCode      *string `json:"productCode,omitempty"`
	RawText          string  `json:"rawText"`
	Category         string  `json:"category,omitempty"`
	Subcategory      *string `json:"subcategory,omitempty"`
	CleanDescription *string `json:"cleanDescription,omitempty"`
	AIConfidence     *int    `json:"aiConfidence,omitempty"`
	AICategorized    bool    `json:"aiCategorized"`
}

// BestDescription returns the most useful label for the item.
func (li LineItem) BestDescription() string {
	for _, s := range []*string{li.CleanDescription, li.Description} {
		if s != nil && *s != "" {
			return *s
		}
	}
	return li.RawText
}

// Invoice is the normalized record produced for one processed document.
type Invoice struct {
	ID            uuid.UUID  `json:"id,omitempty"`
	Supplier      *string    `json:"supplier"`
	Total         *string    `json:"total"`
	Date          *string    `json:"date"`
	InvoiceNumber *string    `json:"invoiceNumber"`
	LineItems     []LineItem `json:"lineItems"`
	Confidence    float64    `json:"confidence"`
	RawText       string     `json:"rawText,omitempty"`

	// Populated only by header enrichment.
	Currency       *string `json:"currency,omitempty"`
	PaymentTerms   *string `json:"paymentTerms,omitempty"`
	InvoiceType    *string `json:"invoiceType,omitempty"`
	LineItemsCount *int    `json:"lineItemsCount,omitempty"`
	AIEnhanced     bool    `json:"aiEnhanced"`

	SourceName  string    `json:"sourceName,omitempty"`
	ContentHash string    `json:"contentHash,omitempty"`
	CreatedAt   time.Time `json:"createdAt,omitempty"`
}

// Clone returns a deep copy so enrichment stages never mutate a record the caller holds.
func (inv *Invoice) Clone() *Invoice {
	if inv == nil {
		return nil
	}
	out := *inv
	out.Supplier = cloneStr(inv.Supplier)
	out.Total = cloneStr(inv.Total)
	out.Date = cloneStr(inv.Date)
	out.InvoiceNumber = cloneStr(inv.InvoiceNumber)
	out.Currency = cloneStr(inv.Currency)
	out.PaymentTerms = cloneStr(inv.PaymentTerms)
	out.InvoiceType = cloneStr(inv.InvoiceType)
	if inv.LineItemsCount != nil {
		n := *inv.LineItemsCount
		out.LineItemsCount = &n
	}
	out.LineItems = CloneLineItems(inv.LineItems)
	return &out
}

// CloneLineItems deep-copies a line item slice.
func CloneLineItems(items []LineItem) []LineItem {
	if items == nil {
		return nil
	}
	out := make([]LineItem, len(items))
	for i, li := range items {
		out[i] = li.Clone()
	}
	return out
}

func (li LineItem) Clone() LineItem {
	out := li
	out.Description = cloneStr(li.Description)
	out.Quantity = cloneStr(li.Quantity)
	out.UnitPrice = cloneStr(li.UnitPrice)
	out.Amount = cloneStr(li.Amount)
	out.ProductCode = cloneStr(li.ProductCode)
	out.Subcategory = cloneStr(li.Subcategory)
	out.CleanDescription = cloneStr(li.CleanDescription)
	if li.AIConfidence != nil {
		c := *li.AIConfidence
		out.AIConfidence = &c
	}
	return out
}

func cloneStr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// Str returns a pointer to s.
func Str(s string) *string { return &s }

// Int returns a pointer to n.
func Int(n int) *int { return &n }

// Deref returns the pointed-to string or "".
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
