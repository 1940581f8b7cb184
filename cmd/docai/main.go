package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/joseph-ayodele/invoice-tracker/internal/common"
	"github.com/joseph-ayodele/invoice-tracker/internal/documentai"
	"github.com/joseph-ayodele/invoice-tracker/internal/ingest"
	"github.com/joseph-ayodele/invoice-tracker/internal/invoices"
)

func main() {
	var (
		replay  = flag.Bool("replay", false, "treat the argument as a saved Document AI JSON response")
		timeout = flag.Duration("timeout", 2*time.Minute, "overall deadline")
	)
	flag.Parse()

	cfg := common.LoadConfig()
	// stdout carries the record; logs go to stderr
	logger := common.NewLogger(os.Stderr, cfg.LogLevel)

	if flag.NArg() != 1 {
		logger.Error("usage", "cmd", "docai [-replay] <invoice.pdf|png|jpg | response.json>")
		os.Exit(2)
	}
	path := flag.Arg(0)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	start := time.Now()
	var (
		res *invoices.Result
		err error
	)
	if *replay {
		res, err = replayResponse(ctx, cfg, path, logger)
	} else {
		res, err = processFile(ctx, cfg, path, logger)
	}
	if err != nil {
		logger.Error("processing failed", "path", path, "error", err, "duration_ms", time.Since(start).Milliseconds())
		os.Exit(1)
	}

	logger.Info("processing OK",
		"path", path,
		"line_items", len(res.Invoice.LineItems),
		"items_enrichment", res.Enrichment.Items,
		"header_enrichment", res.Enrichment.Header,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		logger.Error("encode result", "error", err)
		os.Exit(1)
	}
}

func processFile(ctx context.Context, cfg *common.Config, path string, logger *slog.Logger) (*invoices.Result, error) {
	svc, closeOCR, err := invoices.FromConfig(ctx, cfg, nil, logger)
	if err != nil {
		return nil, err
	}
	defer closeOCR()

	u, err := ingest.ReadFile(path, cfg.Processing.MaxUploadBytes)
	if err != nil {
		return nil, err
	}
	return svc.Process(ctx, u)
}

func replayResponse(ctx context.Context, cfg *common.Config, path string, logger *slog.Logger) (*invoices.Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	resp, err := documentai.DecodeResponse(data)
	if err != nil {
		return nil, err
	}
	p, err := invoices.BuildPipeline(cfg, logger)
	if err != nil {
		return nil, err
	}
	return invoices.NewService(nil, nil, p, nil, logger).ProcessResponse(ctx, resp, filepath.Base(path), "")
}
