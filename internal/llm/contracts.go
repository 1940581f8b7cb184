package llm

import "context"

// CompletionRequest is one single-shot chat completion.
type CompletionRequest struct {
	System      string
	User        string
	Temperature float32
	MaxTokens   int
}

// Completer is the interface the enrichment stage depends on. It returns the
// completion text exactly as produced by the model.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// Categorization is one element of the line-item categorization array.
type Categorization struct {
	Category         string  `json:"category,omitempty"`
	Subcategory      *string `json:"subcategory,omitempty"`
	Confidence       *int    `json:"confidence,omitempty"` // 0..100
	CleanDescription *string `json:"cleanDescription,omitempty"`
}

// HeaderFields is the cleaned header object returned by header enrichment.
type HeaderFields struct {
	SupplierName   *string `json:"supplier_name,omitempty"`
	InvoiceDate    *string `json:"invoice_date,omitempty"` // YYYY-MM-DD
	InvoiceNumber  *string `json:"invoice_number,omitempty"`
	TotalAmount    *string `json:"total_amount,omitempty"` // bare decimal
	Currency       *string `json:"currency,omitempty"`     // ISO 4217
	PaymentTerms   *string `json:"payment_terms,omitempty"`
	LineItemsCount *int    `json:"line_items_count,omitempty"`
	InvoiceType    *string `json:"invoice_type,omitempty"` // receipt | invoice | bill
}

// CurrentHeader is the extracted header sent to the model for correction.
type CurrentHeader struct {
	Supplier      *string `json:"supplier"`
	Total         *string `json:"total"`
	Date          *string `json:"date"`
	InvoiceNumber *string `json:"invoiceNumber"`
}
