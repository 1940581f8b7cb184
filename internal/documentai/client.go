package documentai

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"github.com/google/uuid"
	"google.golang.org/api/option"
)

// Processor runs OCR entity extraction over raw document bytes.
type Processor interface {
	Process(ctx context.Context, content []byte, mimeType string) (*Response, error)
}

// Config addresses one Document AI processor.
type Config struct {
	ProcessorName   string        // projects/{p}/locations/{l}/processors/{id}
	Endpoint        string        // e.g. us-documentai.googleapis.com:443
	CredentialsFile string        // empty -> application default credentials
	Timeout         time.Duration // per-request timeout
}

// Client is a Processor backed by the Document AI gRPC API.
type Client struct {
	api    *documentai.DocumentProcessorClient
	cfg    Config
	logger *slog.Logger
}

func NewClient(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}

	var opts []option.ClientOption
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	api, err := documentai.NewDocumentProcessorClient(ctx, opts...)
	if err != nil {
		logger.Error("documentai.client.init_failed", "endpoint", cfg.Endpoint, "error", err)
		return nil, fmt.Errorf("create document ai client: %w", err)
	}
	logger.Info("documentai.client.ready", "processor", cfg.ProcessorName, "endpoint", cfg.Endpoint)
	return &Client{api: api, cfg: cfg, logger: logger}, nil
}

// Process sends the raw bytes to the configured processor. A response without
// a document is returned as-is; the pipeline decides what that means.
func (c *Client) Process(ctx context.Context, content []byte, mimeType string) (*Response, error) {
	rid := uuid.New().String()
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	c.logger.Info("documentai.process.start",
		"req_id", rid,
		"processor", c.cfg.ProcessorName,
		"mime_type", mimeType,
		"bytes", len(content),
	)

	resp, err := c.api.ProcessDocument(ctx, &documentaipb.ProcessRequest{
		Name: c.cfg.ProcessorName,
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{
				Content:  content,
				MimeType: mimeType,
			},
		},
	})
	if err != nil {
		c.logger.Error("documentai.process.failed",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, fmt.Errorf("process document: %w", err)
	}

	out := FromProto(resp.GetDocument())
	c.logger.Info("documentai.process.ok",
		"req_id", rid,
		"has_document", out.Document != nil,
		"entities", len(resp.GetDocument().GetEntities()),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

func (c *Client) Close() error {
	return c.api.Close()
}
