package enrich

import (
	"context"
	"fmt"
	"time"

	"github.com/joseph-ayodele/invoice-tracker/constants"
	"github.com/joseph-ayodele/invoice-tracker/internal/common"
	"github.com/joseph-ayodele/invoice-tracker/internal/entity"
	"github.com/joseph-ayodele/invoice-tracker/internal/llm"
)

const defaultAIConfidence = 50

// pending is an item that needs a category, with its position in the input.
type pending struct {
	index       int
	description string
}

// EnhanceLineItems asks the model to categorize every item whose category is
// missing or a placeholder. Response element k belongs to the k-th pending
// item. Items the response does not cover or leaves null, or every pending
// item when the call fails, get the rule-based category with aiConfidence 0. Items that
// already had a category are returned unchanged. The input is never mutated.
func (e *Enricher) EnhanceLineItems(ctx context.Context, items []entity.LineItem) Result[[]entity.LineItem] {
	out := entity.CloneLineItems(items)

	var needs []pending
	for i, li := range out {
		if constants.NeedsCategorization(li.Category) {
			needs = append(needs, pending{index: i, description: describe(li)})
		}
	}
	if len(needs) == 0 || e.Completer == nil {
		return NotAttempted(out)
	}

	rid := common.RequestIDFromContext(ctx)
	start := time.Now()
	res := Requested(out)
	e.Logger.Info("enrich.items.requested", "req_id", rid, "status", res.Status, "items", len(out), "needs_category", len(needs))

	descriptions := make([]string, len(needs))
	for k, p := range needs {
		descriptions[k] = p.description
	}

	results, err := e.requestCategories(ctx, descriptions)
	if err != nil {
		for _, p := range needs {
			e.fallback(&out[p.index])
		}
		e.Logger.Warn("enrich.items.degraded",
			"req_id", rid, "error", err, "fallback_items", len(needs),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return res.Degrade(out, err.Error())
	}

	missing := 0
	for k, p := range needs {
		if k >= len(results) || results[k] == nil {
			e.fallback(&out[p.index])
			missing++
			continue
		}
		apply(&out[p.index], *results[k])
	}

	e.Logger.Info("enrich.items.ok",
		"req_id", rid,
		"requested", len(needs),
		"received", len(results),
		"fallback_items", missing,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	res = res.Succeed(out)
	if missing > 0 {
		res.Reason = fmt.Sprintf("response covered %d of %d items", len(needs)-missing, len(needs))
	}
	return res
}

// Categorize applies only the rule-based categorizer to items that need a
// category. It is the path taken when enrichment is not configured.
func (e *Enricher) Categorize(items []entity.LineItem) []entity.LineItem {
	out := entity.CloneLineItems(items)
	for i := range out {
		if constants.NeedsCategorization(out[i].Category) {
			out[i].Category = string(e.Categorizer.Categorize(ruleSource(out[i])))
		}
	}
	return out
}

func (e *Enricher) fallback(li *entity.LineItem) {
	li.Category = string(e.Categorizer.Categorize(ruleSource(*li)))
	li.AIConfidence = entity.Int(0)
	li.AICategorized = false
}

func apply(li *entity.LineItem, r llm.Categorization) {
	cat, _ := constants.Canonicalize(r.Category)
	li.Category = string(cat)
	li.Subcategory = r.Subcategory
	if r.CleanDescription != nil {
		li.CleanDescription = r.CleanDescription
	}
	// zero is reserved for items that fell back
	conf := defaultAIConfidence
	if r.Confidence != nil && *r.Confidence > 0 {
		conf = *r.Confidence
	}
	li.AIConfidence = entity.Int(conf)
	li.AICategorized = true
}

func describe(li entity.LineItem) string {
	for _, s := range []*string{li.CleanDescription, li.Description} {
		if v := entity.Deref(s); v != "" {
			return v
		}
	}
	if li.RawText != "" {
		return li.RawText
	}
	return "Unknown item"
}

func ruleSource(li entity.LineItem) string {
	if d := entity.Deref(li.Description); d != "" {
		return d
	}
	return li.RawText
}
