package pipeline

import (
	"context"
	"log/slog"

	"github.com/joseph-ayodele/invoice-tracker/internal/common"
	"github.com/joseph-ayodele/invoice-tracker/internal/documentai"
	"github.com/joseph-ayodele/invoice-tracker/internal/entity"
	"github.com/joseph-ayodele/invoice-tracker/internal/lineitems"
)

// ExtractStage builds the deterministic record: header fields, parsed line
// items and rule-based categories. It never fails.
type ExtractStage struct {
	Parser *lineitems.Parser
	Logger *slog.Logger
}

func NewExtractStage(parser *lineitems.Parser, logger *slog.Logger) *ExtractStage {
	if logger == nil {
		logger = slog.Default()
	}
	if parser == nil {
		parser = lineitems.NewParser(nil, logger)
	}
	return &ExtractStage{Parser: parser, Logger: logger}
}

func (s *ExtractStage) Run(ctx context.Context, doc *documentai.Document) *entity.Invoice {
	h := documentai.ExtractHeaderFields(doc.Entities)
	inv := &entity.Invoice{
		Supplier:      h.Supplier,
		Total:         h.Total,
		Date:          h.Date,
		InvoiceNumber: h.InvoiceNumber,
		LineItems:     s.Parser.ParseAll(doc.Entities, doc.Text),
		Confidence:    doc.Confidence(),
		RawText:       doc.Text,
	}
	if inv.LineItems == nil {
		inv.LineItems = []entity.LineItem{}
	}

	if unknown := documentai.UnknownTypes(doc.Entities); len(unknown) > 0 {
		s.Logger.Debug("pipeline.extract.unknown_entity_types",
			"req_id", common.RequestIDFromContext(ctx), "types", unknown)
	}
	s.Logger.Info("pipeline.extract.ok",
		"req_id", common.RequestIDFromContext(ctx),
		"entities", len(doc.Entities),
		"line_items", len(inv.LineItems),
		"has_supplier", inv.Supplier != nil,
		"has_total", inv.Total != nil,
		"confidence", inv.Confidence,
	)
	return inv
}
