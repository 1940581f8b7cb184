package pipeline

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/invoice-tracker/constants"
	"github.com/joseph-ayodele/invoice-tracker/internal/enrich"
	"github.com/joseph-ayodele/invoice-tracker/internal/entity"
)

// EnrichStage runs header and line-item enrichment side by side over the
// extracted record and assembles a new record from both results.
type EnrichStage struct {
	Enricher *enrich.Enricher
	Logger   *slog.Logger
}

func NewEnrichStage(e *enrich.Enricher, logger *slog.Logger) *EnrichStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &EnrichStage{Enricher: e, Logger: logger}
}

// Enabled reports whether a completion backend is configured.
func (s *EnrichStage) Enabled() bool {
	return s != nil && s.Enricher != nil && s.Enricher.Completer != nil
}

// EnrichOutcome records the status of both sub-operations.
type EnrichOutcome struct {
	Items        constants.EnrichmentStatus `json:"items"`
	ItemsReason  string                     `json:"itemsReason,omitempty"`
	Header       constants.EnrichmentStatus `json:"header"`
	HeaderReason string                     `json:"headerReason,omitempty"`
}

// Run never fails; degraded sub-operations are reported in the outcome. inv
// is only read.
func (s *EnrichStage) Run(ctx context.Context, inv *entity.Invoice) (*entity.Invoice, EnrichOutcome) {
	var (
		items  enrich.Result[[]entity.LineItem]
		header enrich.Result[*entity.Invoice]
		g      errgroup.Group
	)
	g.Go(func() error {
		items = s.Enricher.EnhanceLineItems(ctx, inv.LineItems)
		return nil
	})
	g.Go(func() error {
		header = s.Enricher.EnhanceHeader(ctx, inv)
		return nil
	})
	_ = g.Wait()

	out := header.Value
	out.LineItems = items.Value
	return out, EnrichOutcome{
		Items:        items.Status,
		ItemsReason:  items.Reason,
		Header:       header.Status,
		HeaderReason: header.Reason,
	}
}
