// Package invoices runs a document end to end: validation, optional image
// cleanup, OCR, the extraction pipeline and storage.
package invoices

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/invoice-tracker/constants"
	"github.com/joseph-ayodele/invoice-tracker/internal/common"
	"github.com/joseph-ayodele/invoice-tracker/internal/documentai"
	"github.com/joseph-ayodele/invoice-tracker/internal/entity"
	"github.com/joseph-ayodele/invoice-tracker/internal/ingest"
	"github.com/joseph-ayodele/invoice-tracker/internal/pipeline"
	"github.com/joseph-ayodele/invoice-tracker/internal/repository"
)

// Result is what callers get back for one document.
type Result struct {
	Invoice      *entity.Invoice        `json:"invoice"`
	Summary      entity.Summary         `json:"summary"`
	Enrichment   pipeline.EnrichOutcome `json:"enrichment"`
	Deduplicated bool                   `json:"deduplicated"`
	Pages        int                    `json:"pages,omitempty"`
}

type Service struct {
	Validator *ingest.Validator
	Enhancer  *ingest.Enhancer // nil leaves images untouched
	OCR       documentai.Processor
	Pipeline  *pipeline.Processor
	Repo      repository.InvoiceRepository // nil disables storage
	Dedupe    bool                         // reuse a stored record with the same content hash
	Logger    *slog.Logger
}

func NewService(v *ingest.Validator, ocr documentai.Processor, p *pipeline.Processor, repo repository.InvoiceRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if v == nil {
		v = ingest.NewValidator(ingest.DefaultLimits(), logger)
	}
	if p == nil {
		p = pipeline.NewProcessor(logger, nil, nil)
	}
	return &Service{Validator: v, OCR: ocr, Pipeline: p, Repo: repo, Logger: logger}
}

// Process validates the upload, sends it to OCR and runs the pipeline over the
// response. Validation errors carry the ingest sentinels, OCR failures wrap
// common.ErrUpstream and an empty OCR response yields
// pipeline.MissingDocumentError.
func (s *Service) Process(ctx context.Context, u ingest.Upload) (*Result, error) {
	ctx, rid := common.EnsureRequestID(ctx)
	start := time.Now()

	doc, err := s.Validator.Validate(ctx, u)
	if err != nil {
		s.Logger.Warn("invoices.process.rejected", "req_id", rid, "name", u.Name, "error", err)
		return nil, err
	}
	s.Logger.Info("invoices.process.start", "req_id", rid, "name", doc.Name, "mime_type", doc.MimeType, "bytes", len(doc.Data))

	if s.Dedupe && s.Repo != nil {
		existing, err := s.Repo.GetByHash(ctx, doc.HashHex)
		switch {
		case err == nil:
			s.Logger.Info("invoices.process.deduplicated", "req_id", rid, "invoice_id", existing.ID)
			return &Result{Invoice: existing, Summary: entity.Summarize(existing.LineItems), Deduplicated: true, Pages: doc.Pages}, nil
		case !errors.Is(err, common.ErrNotFound):
			return nil, err
		}
	}

	if s.OCR == nil {
		return nil, common.NewAppError("CONFIG_ERROR", "OCR processor is not configured", common.ErrInternal)
	}

	content := doc.Data
	if s.Enhancer != nil && constants.IsImageMime(doc.MimeType) {
		if enhanced, err := s.Enhancer.Enhance(content, doc.MimeType); err != nil {
			s.Logger.Warn("invoices.process.enhance_failed", "req_id", rid, "error", err)
		} else {
			content = enhanced
		}
	}

	resp, err := s.OCR.Process(ctx, content, doc.MimeType)
	if err != nil {
		s.Logger.Error("invoices.process.ocr_failed", "req_id", rid, "error", err)
		return nil, fmt.Errorf("%w: document ai: %v", common.ErrUpstream, err)
	}

	res, err := s.ProcessResponse(ctx, resp, doc.Name, doc.HashHex)
	if err != nil {
		return nil, err
	}
	res.Pages = doc.Pages

	s.Logger.Info("invoices.process.ok",
		"req_id", rid,
		"invoice_id", res.Invoice.ID,
		"line_items", len(res.Invoice.LineItems),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

// ProcessResponse runs the pipeline over an OCR response obtained elsewhere,
// e.g. a saved Document AI JSON, and stores the record when a repository is set.
func (s *Service) ProcessResponse(ctx context.Context, resp *documentai.Response, sourceName, hash string) (*Result, error) {
	out, err := s.Pipeline.Process(ctx, resp)
	if err != nil {
		return nil, err
	}
	inv := out.Invoice
	inv.SourceName = sourceName
	inv.ContentHash = hash

	if s.Repo != nil {
		saved, err := s.Repo.Create(ctx, inv)
		if err != nil {
			s.Logger.Error("invoices.store.failed", "req_id", common.RequestIDFromContext(ctx), "error", err)
			return nil, err
		}
		inv = saved
	}

	return &Result{
		Invoice:    inv,
		Summary:    entity.Summarize(inv.LineItems),
		Enrichment: out.EnrichOutcome,
	}, nil
}
