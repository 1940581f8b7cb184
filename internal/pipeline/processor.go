// Package pipeline turns an OCR process response into a normalized invoice
// record, optionally enriched by a completion model.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/invoice-tracker/constants"
	"github.com/joseph-ayodele/invoice-tracker/internal/common"
	"github.com/joseph-ayodele/invoice-tracker/internal/documentai"
	"github.com/joseph-ayodele/invoice-tracker/internal/entity"
)

// MissingDocumentError is returned when the OCR response carries no document.
// It is the only error Process returns.
type MissingDocumentError struct{}

func (MissingDocumentError) Error() string { return "ocr response contains no document" }

// Outcome is the processed record plus what happened during enrichment.
type Outcome struct {
	Invoice *entity.Invoice
	EnrichOutcome
}

// Processor coordinates extraction then optional enrichment.
type Processor struct {
	Logger  *slog.Logger
	Extract *ExtractStage
	Enrich  *EnrichStage
}

// NewProcessor wires the stages. A nil enrich stage, or one without a
// Completer, disables enrichment.
func NewProcessor(logger *slog.Logger, extract *ExtractStage, enrich *EnrichStage) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if extract == nil {
		extract = NewExtractStage(nil, logger)
	}
	return &Processor{Logger: logger, Extract: extract, Enrich: enrich}
}

// Process runs the pipeline over one OCR response. The returned record is
// built fresh; no partially enriched record is ever exposed.
func (p *Processor) Process(ctx context.Context, resp *documentai.Response) (*Outcome, error) {
	ctx, rid := common.EnsureRequestID(ctx)
	start := time.Now()

	if resp == nil || resp.Document == nil {
		p.Logger.Warn("pipeline.process.missing_document", "req_id", rid)
		return nil, MissingDocumentError{}
	}

	inv := p.Extract.Run(ctx, resp.Document)

	out := &Outcome{
		Invoice: inv,
		EnrichOutcome: EnrichOutcome{
			Items:  constants.EnrichmentNotAttempted,
			Header: constants.EnrichmentNotAttempted,
		},
	}
	if p.Enrich.Enabled() {
		out.Invoice, out.EnrichOutcome = p.Enrich.Run(ctx, inv)
	}

	p.Logger.Info("pipeline.process.ok",
		"req_id", rid,
		"line_items", len(out.Invoice.LineItems),
		"items_enrichment", out.Items,
		"header_enrichment", out.Header,
		"ai_enhanced", out.Invoice.AIEnhanced,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}
