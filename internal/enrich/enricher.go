package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/invoice-tracker/constants"
	"github.com/joseph-ayodele/invoice-tracker/internal/categorize"
	"github.com/joseph-ayodele/invoice-tracker/internal/llm"
)

const (
	categorizeTemperature = 0.2
	categorizeMaxTokens   = 2000
	headerTemperature     = 0.1
	headerMaxTokens       = 1000
)

var errEmptyResponse = errors.New("empty response")

// Enricher runs both enrichment sub-operations against one Completer.
// A nil Completer makes every call NOT_ATTEMPTED.
type Enricher struct {
	Completer   llm.Completer
	Categorizer *categorize.Categorizer
	Logger      *slog.Logger
	Vocabulary  []string
}

func New(c llm.Completer, cat *categorize.Categorizer, logger *slog.Logger) *Enricher {
	if logger == nil {
		logger = slog.Default()
	}
	if cat == nil {
		cat = categorize.Default()
	}
	return &Enricher{
		Completer:   c,
		Categorizer: cat,
		Logger:      logger,
		Vocabulary:  constants.AsStringSlice(),
	}
}

// complete runs one completion and returns the fence-stripped body.
func (e *Enricher) complete(ctx context.Context, req llm.CompletionRequest) ([]byte, error) {
	text, err := e.Completer.Complete(ctx, req)
	if err != nil {
		return nil, err
	}
	body := llm.StripCodeFence(text)
	if body == "" {
		return nil, errEmptyResponse
	}
	return []byte(body), nil
}

// requestCategories returns one element per response entry; nil marks an
// entry the model left null.
func (e *Enricher) requestCategories(ctx context.Context, descriptions []string) ([]*llm.Categorization, error) {
	body, err := e.complete(ctx, llm.CompletionRequest{
		System:      llm.CategorizationSystemPrompt,
		User:        llm.BuildCategorizationPrompt(descriptions, e.Vocabulary),
		Temperature: categorizeTemperature,
		MaxTokens:   categorizeMaxTokens,
	})
	if err != nil {
		return nil, err
	}
	clean, _, err := llm.SanitizeCategorizations(body, e.Logger)
	if err != nil {
		return nil, err
	}
	if err := llm.ValidateJSONAgainstSchema(llm.BuildCategorizationSchema(), clean); err != nil {
		return nil, err
	}
	var out []*llm.Categorization
	if err := json.Unmarshal(clean, &out); err != nil {
		return nil, fmt.Errorf("decode categorizations: %w", err)
	}
	return out, nil
}

func (e *Enricher) requestHeader(ctx context.Context, rawText string, current llm.CurrentHeader) (llm.HeaderFields, error) {
	body, err := e.complete(ctx, llm.CompletionRequest{
		System:      llm.HeaderSystemPrompt,
		User:        llm.BuildHeaderPrompt(rawText, current),
		Temperature: headerTemperature,
		MaxTokens:   headerMaxTokens,
	})
	if err != nil {
		return llm.HeaderFields{}, err
	}
	clean, _, err := llm.SanitizeHeader(body, e.Logger)
	if err != nil {
		return llm.HeaderFields{}, err
	}
	if err := llm.ValidateJSONAgainstSchema(llm.BuildHeaderSchema(), clean); err != nil {
		return llm.HeaderFields{}, err
	}
	var h llm.HeaderFields
	if err := json.Unmarshal(clean, &h); err != nil {
		return llm.HeaderFields{}, fmt.Errorf("decode header: %w", err)
	}
	return h, nil
}
