package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joseph-ayodele/invoice-tracker/internal/async"
	"github.com/joseph-ayodele/invoice-tracker/internal/common"
	"github.com/joseph-ayodele/invoice-tracker/internal/export"
	"github.com/joseph-ayodele/invoice-tracker/internal/ingest"
	"github.com/joseph-ayodele/invoice-tracker/internal/invoices"
	repo "github.com/joseph-ayodele/invoice-tracker/internal/repository"
	"github.com/joseph-ayodele/invoice-tracker/internal/server"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		dir        = flag.String("dir", "", "directory to process invoices from (required)")
		out        = flag.String("out", "", "output XLSX file path (optional, defaults to parent directory)")
		watch      = flag.Bool("watch", false, "keep running and process files as they appear")
		skipHidden = flag.Bool("skip-hidden", true, "ignore dot files and dot directories")
		workers    = flag.Int("workers", 0, "concurrent documents (defaults to WORKERS)")
	)
	flag.Parse()

	if *dir == "" {
		printError("Error: --dir is required\n")
		os.Exit(1)
	}
	if *out == "" {
		*out = filepath.Join(filepath.Dir(filepath.Clean(*dir)), "invoices.xlsx")
	}

	cfg := common.LoadConfig()
	if *workers > 0 {
		cfg.Processing.Workers = *workers
	}
	logger := common.NewLogger(os.Stdout, cfg.LogLevel)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		printError("Error: %v\n", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var invoiceRepo repo.InvoiceRepository
	if cfg.Database.DSN != "" {
		db, err := server.ConnectDB(ctx, cfg.Database, logger)
		if err != nil {
			os.Exit(1)
		}
		defer db.Close()
		invoiceRepo = repo.NewInvoiceRepository(db, logger)
	}

	svc, closeOCR, err := invoices.FromConfig(ctx, cfg, invoiceRepo, logger)
	if err != nil {
		logger.Error("failed to build invoice service", "error", err)
		os.Exit(1)
	}
	defer closeOCR()
	svc.Dedupe = true

	batch := invoices.NewBatch(svc, cfg.Processing.MaxUploadBytes, logger,
		async.WithWorkers(cfg.Processing.Workers),
		async.WithQueueSize(cfg.Processing.QueueSize),
		async.WithProcessTimeout(3*time.Minute),
	)

	var scanned ingest.DirStats
	if *watch {
		scanned, err = watchDirectory(ctx, batch, *dir, *skipHidden, logger)
	} else {
		scanned, err = scanDirectory(ctx, batch, *dir, *skipHidden, logger)
	}
	if err != nil {
		logger.Error("failed to read directory", "dir", *dir, "error", err)
	}

	report := batch.Wait(context.Background())
	logger.Info("processing complete",
		"scanned", scanned.Scanned,
		"matched", scanned.Matched,
		"succeeded", report.Stats.Succeeded,
		"deduplicated", report.Stats.Deduplicated,
		"failed", report.Stats.Failed)
	for _, r := range report.Results {
		if r.Err != "" {
			logger.Warn("file failed", "path", r.SourcePath, "error", r.Err)
		}
	}

	logger.Info("exporting to XLSX", "output", *out)
	xlsxBytes, err := export.WriteXLSX(report.Invoices)
	if err != nil {
		logger.Error("failed to build workbook", "error", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*out, xlsxBytes, 0o644); err != nil {
		logger.Error("failed to write output file", "error", err)
		os.Exit(1)
	}

	fmt.Printf("Batch processing complete!\n")
	fmt.Printf("- Files matched: %d\n", scanned.Matched)
	fmt.Printf("- Invoices processed: %d\n", report.Stats.Succeeded)
	fmt.Printf("- Duplicates skipped: %d\n", report.Stats.Deduplicated)
	fmt.Printf("- Failures: %d\n", report.Stats.Failed)
	fmt.Printf("- Output: %s\n", *out)

	if report.Stats.Failed > 0 {
		os.Exit(3)
	}
}

func scanDirectory(ctx context.Context, batch *invoices.Batch, dir string, skipHidden bool, logger *slog.Logger) (ingest.DirStats, error) {
	paths, stats, err := ingest.ScanDirectory(ctx, dir, skipHidden)
	if err != nil {
		return stats, err
	}
	logger.Info("starting batch", "dir", dir, "files", len(paths))
	for _, p := range paths {
		if err := batch.Submit(ctx, p); err != nil {
			return stats, err
		}
	}
	return stats, nil
}

// watchDirectory processes existing files, then new ones until ctx ends.
func watchDirectory(ctx context.Context, batch *invoices.Batch, dir string, skipHidden bool, logger *slog.Logger) (ingest.DirStats, error) {
	var stats ingest.DirStats
	paths, errs, err := ingest.Watch(ctx, ingest.WatchConfig{
		Roots:       []string{dir},
		InitialScan: true,
		SkipHidden:  skipHidden,
		Debounce:    500 * time.Millisecond,
		Logger:      logger,
	})
	if err != nil {
		return stats, err
	}
	logger.Info("watching for invoices", "dir", dir)

	for {
		select {
		case p, ok := <-paths:
			if !ok {
				return stats, nil
			}
			stats.Scanned++
			stats.Matched++
			if err := batch.Submit(ctx, p); err != nil {
				return stats, nil
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			logger.Warn("watcher error", "error", err)
		}
	}
}
