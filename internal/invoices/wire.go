package invoices

import (
	"context"
	"log/slog"

	"github.com/joseph-ayodele/invoice-tracker/internal/categorize"
	"github.com/joseph-ayodele/invoice-tracker/internal/common"
	"github.com/joseph-ayodele/invoice-tracker/internal/documentai"
	"github.com/joseph-ayodele/invoice-tracker/internal/enrich"
	"github.com/joseph-ayodele/invoice-tracker/internal/ingest"
	"github.com/joseph-ayodele/invoice-tracker/internal/lineitems"
	"github.com/joseph-ayodele/invoice-tracker/internal/llm/openai"
	"github.com/joseph-ayodele/invoice-tracker/internal/pipeline"
	"github.com/joseph-ayodele/invoice-tracker/internal/repository"
)

// BuildPipeline assembles extraction and, when an API key is configured,
// enrichment. A custom rules file replaces the default categorizer.
func BuildPipeline(cfg *common.Config, logger *slog.Logger) (*pipeline.Processor, error) {
	if logger == nil {
		logger = slog.Default()
	}

	cat := categorize.Default()
	if path := cfg.Processing.CategoryRulesFile; path != "" {
		c, err := categorize.LoadFile(path)
		if err != nil {
			return nil, common.NewAppError("CONFIG_ERROR", "could not load CATEGORY_RULES_FILE", err)
		}
		logger.Info("category rules loaded", "path", path)
		cat = c
	}

	extract := pipeline.NewExtractStage(lineitems.NewParser(cat, logger), logger)

	var enrichStage *pipeline.EnrichStage
	if cfg.EnrichmentEnabled() {
		client := openai.NewClient(openai.Config{
			APIKey:  cfg.LLM.APIKey,
			BaseURL: cfg.LLM.BaseURL,
			Model:   cfg.LLM.Model,
			Timeout: cfg.LLM.Timeout,
		}, logger)
		enrichStage = pipeline.NewEnrichStage(enrich.New(client, cat, logger), logger)
		logger.Info("OpenAI client initialized", "model", client.Model())
	} else {
		logger.Warn("OpenAI API key not configured, enrichment will be skipped")
	}

	return pipeline.NewProcessor(logger, extract, enrichStage), nil
}

// FromConfig builds a Service backed by Document AI. The returned func closes
// the OCR connection.
func FromConfig(ctx context.Context, cfg *common.Config, repo repository.InvoiceRepository, logger *slog.Logger) (*Service, func(), error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.ValidateDocumentAI(); err != nil {
		return nil, nil, err
	}

	p, err := BuildPipeline(cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	ocr, err := documentai.NewClient(ctx, documentai.Config{
		ProcessorName:   cfg.DocumentAI.ProcessorName(),
		Endpoint:        cfg.DocumentAI.GRPCEndpoint(),
		CredentialsFile: cfg.DocumentAI.CredentialsFile,
		Timeout:         cfg.DocumentAI.Timeout,
	}, logger)
	if err != nil {
		return nil, nil, common.NewAppError("CONFIG_ERROR", "could not create Document AI client", err)
	}

	v := ingest.NewValidator(ingest.Limits{
		MaxBytes:    cfg.Processing.MaxUploadBytes,
		MaxPDFPages: cfg.Processing.MaxPDFPages,
	}, logger)

	svc := NewService(v, ocr, p, repo, logger)
	if cfg.Processing.EnhanceImages {
		e := ingest.DefaultEnhancer()
		svc.Enhancer = &e
	}

	closeFn := func() {
		if err := ocr.Close(); err != nil {
			logger.Warn("closing Document AI client", "error", err)
		}
	}
	return svc, closeFn, nil
}
