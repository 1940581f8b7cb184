package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/joseph-ayodele/invoice-tracker/constants"
	"github.com/joseph-ayodele/invoice-tracker/internal/documentai"
	"github.com/joseph-ayodele/invoice-tracker/internal/enrich"
	"github.com/joseph-ayodele/invoice-tracker/internal/entity"
	"github.com/joseph-ayodele/invoice-tracker/internal/llm"
)

type countingCompleter struct {
	calls   atomic.Int32
	respond func(llm.CompletionRequest) (string, error)
}

func (c *countingCompleter) Complete(_ context.Context, req llm.CompletionRequest) (string, error) {
	c.calls.Add(1)
	return c.respond(req)
}

func newProcessor(c llm.Completer) *Processor {
	var stage *EnrichStage
	if c != nil {
		stage = NewEnrichStage(enrich.New(c, nil, nil), nil)
	}
	return NewProcessor(nil, nil, stage)
}

func sampleResponse() *documentai.Response {
	text := "ACME Supplies\nINV-1001\n2 Printer paper 5.00 10.00\nMystery box $4.00\nTotal $14.00"
	return &documentai.Response{Document: &documentai.Document{
		Text: text,
		Entities: []documentai.Entity{
			{Type: "supplier_name", MentionText: "ACME Supplies"},
			{Type: "invoice_id", MentionText: "INV-1001"},
			{Type: "total_amount", MentionText: "$14.00"},
			{Type: "line_item", MentionText: "2 Printer paper 5.00 10.00", Properties: []documentai.Entity{
				{Type: "line_item/description", MentionText: "Printer paper"},
				{Type: "line_item/quantity", MentionText: "2"},
				{Type: "line_item/amount", MentionText: "10.00"},
			}},
			{Type: "line_item", MentionText: "Mystery box $4.00"},
		},
		Pages: []documentai.Page{{PageNumber: 1, PageAnchor: &documentai.PageAnchor{Confidence: 0.93}}},
	}}
}

func TestProcess_MissingDocument(t *testing.T) {
	cc := &countingCompleter{respond: func(llm.CompletionRequest) (string, error) { return "{}", nil }}
	p := newProcessor(cc)

	for _, resp := range []*documentai.Response{nil, {}} {
		out, err := p.Process(context.Background(), resp)
		var mde MissingDocumentError
		if !errors.As(err, &mde) {
			t.Errorf("err = %v, want MissingDocumentError", err)
		}
		if out != nil {
			t.Errorf("out = %+v, want nil", out)
		}
	}
	if n := cc.calls.Load(); n != 0 {
		t.Errorf("completer called %d times", n)
	}
}

func TestProcess_WithoutEnrichment(t *testing.T) {
	out, err := newProcessor(nil).Process(context.Background(), sampleResponse())
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	inv := out.Invoice
	if entity.Deref(inv.Supplier) != "ACME Supplies" || entity.Deref(inv.InvoiceNumber) != "INV-1001" ||
		entity.Deref(inv.Total) != "$14.00" || inv.Date != nil {
		t.Errorf("header = %+v", inv)
	}
	if inv.Confidence != 0.93 || !strings.HasPrefix(inv.RawText, "ACME Supplies") {
		t.Errorf("confidence=%v rawText=%q", inv.Confidence, inv.RawText)
	}
	if len(inv.LineItems) != 2 {
		t.Fatalf("line items = %d", len(inv.LineItems))
	}
	if inv.LineItems[0].Category != "office" || inv.LineItems[0].UnitPrice != nil {
		t.Errorf("item 0 = %+v", inv.LineItems[0])
	}
	if inv.LineItems[1].Category != "other" || entity.Deref(inv.LineItems[1].Description) != "Mystery box" ||
		entity.Deref(inv.LineItems[1].Amount) != "4.00" {
		t.Errorf("item 1 = %+v", inv.LineItems[1])
	}
	if inv.AIEnhanced || out.Items != constants.EnrichmentNotAttempted || out.Header != constants.EnrichmentNotAttempted {
		t.Errorf("enrichment = %+v aiEnhanced=%v", out.EnrichOutcome, inv.AIEnhanced)
	}
}

func TestProcess_WithEnrichment(t *testing.T) {
	cc := &countingCompleter{respond: func(req llm.CompletionRequest) (string, error) {
		if req.System == llm.HeaderSystemPrompt {
			return `{"supplier_name":"ACME Supplies Inc.","total_amount":"14.00","currency":"USD"}`, nil
		}
		return "```json\n[{\"category\":\"entertainment\",\"subcategory\":\"games\",\"confidence\":61}]\n```", nil
	}}
	out, err := newProcessor(cc).Process(context.Background(), sampleResponse())
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if n := cc.calls.Load(); n != 2 {
		t.Errorf("completer calls = %d, want 2", n)
	}
	inv := out.Invoice
	if !inv.AIEnhanced || entity.Deref(inv.Supplier) != "ACME Supplies Inc." || entity.Deref(inv.Total) != "14.00" ||
		entity.Deref(inv.Currency) != "USD" || entity.Deref(inv.InvoiceNumber) != "INV-1001" {
		t.Errorf("header = %+v", inv)
	}
	if out.Items != constants.EnrichmentSucceeded || out.Header != constants.EnrichmentSucceeded {
		t.Errorf("outcome = %+v", out.EnrichOutcome)
	}
	// order preserved; only the uncategorized item changed
	if inv.LineItems[0].Category != "office" || inv.LineItems[0].AICategorized {
		t.Errorf("item 0 = %+v", inv.LineItems[0])
	}
	li := inv.LineItems[1]
	if li.Category != "entertainment" || !li.AICategorized || *li.AIConfidence != 61 || entity.Deref(li.Subcategory) != "games" {
		t.Errorf("item 1 = %+v", li)
	}
}

func TestProcess_EnrichmentDegrades(t *testing.T) {
	cc := &countingCompleter{respond: func(llm.CompletionRequest) (string, error) {
		return "", errors.New("503 from upstream")
	}}
	out, err := newProcessor(cc).Process(context.Background(), sampleResponse())
	if err != nil {
		t.Fatalf("degraded enrichment must not fail the pipeline: %v", err)
	}
	if out.Items != constants.EnrichmentDegraded || out.Header != constants.EnrichmentDegraded {
		t.Errorf("outcome = %+v", out.EnrichOutcome)
	}
	if out.ItemsReason == "" || out.HeaderReason == "" {
		t.Error("degraded outcome should carry reasons")
	}
	inv := out.Invoice
	if inv.AIEnhanced || entity.Deref(inv.Supplier) != "ACME Supplies" {
		t.Errorf("header = %+v", inv)
	}
	li := inv.LineItems[1]
	if li.Category != "other" || li.AICategorized || li.AIConfidence == nil || *li.AIConfidence != 0 {
		t.Errorf("item 1 = %+v", li)
	}
}
