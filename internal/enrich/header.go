package enrich

import (
	"context"
	"time"

	"github.com/joseph-ayodele/invoice-tracker/internal/common"
	"github.com/joseph-ayodele/invoice-tracker/internal/entity"
	"github.com/joseph-ayodele/invoice-tracker/internal/llm"
)

// EnhanceHeader asks the model to clean the header using a prefix of the raw
// text and the current header. Non-empty returned fields overwrite the
// record. On failure the record comes back unchanged with AIEnhanced false.
func (e *Enricher) EnhanceHeader(ctx context.Context, inv *entity.Invoice) Result[*entity.Invoice] {
	out := inv.Clone()
	if out == nil {
		out = &entity.Invoice{}
	}
	out.AIEnhanced = false
	if e.Completer == nil {
		return NotAttempted(out)
	}

	rid := common.RequestIDFromContext(ctx)
	start := time.Now()
	res := Requested(out)
	e.Logger.Info("enrich.header.requested", "req_id", rid, "status", res.Status, "raw_text_len", len(out.RawText))

	h, err := e.requestHeader(ctx, out.RawText, llm.CurrentHeader{
		Supplier:      out.Supplier,
		Total:         out.Total,
		Date:          out.Date,
		InvoiceNumber: out.InvoiceNumber,
	})
	if err != nil {
		e.Logger.Warn("enrich.header.degraded",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return res.Degrade(out, err.Error())
	}

	mergeHeader(out, h)
	out.AIEnhanced = true
	e.Logger.Info("enrich.header.ok",
		"req_id", rid,
		"supplier", entity.Deref(out.Supplier),
		"total", entity.Deref(out.Total),
		"currency", entity.Deref(out.Currency),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return res.Succeed(out)
}

func mergeHeader(inv *entity.Invoice, h llm.HeaderFields) {
	set := func(dst **string, v *string) {
		if v != nil && *v != "" {
			s := *v
			*dst = &s
		}
	}
	set(&inv.Supplier, h.SupplierName)
	set(&inv.Date, h.InvoiceDate)
	set(&inv.InvoiceNumber, h.InvoiceNumber)
	set(&inv.Total, h.TotalAmount)
	set(&inv.Currency, h.Currency)
	set(&inv.PaymentTerms, h.PaymentTerms)
	set(&inv.InvoiceType, h.InvoiceType)
	if h.LineItemsCount != nil {
		inv.LineItemsCount = entity.Int(*h.LineItemsCount)
	}
}
