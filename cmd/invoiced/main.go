package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/invoice-tracker/internal/common"
	"github.com/joseph-ayodele/invoice-tracker/internal/export"
	"github.com/joseph-ayodele/invoice-tracker/internal/invoices"
	repo "github.com/joseph-ayodele/invoice-tracker/internal/repository"
	"github.com/joseph-ayodele/invoice-tracker/internal/server"
)

func main() {
	cfg := common.LoadConfig()
	logger := common.NewLogger(os.Stdout, cfg.LogLevel)
	logger = logger.With("service", "invoiced")

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Storage is optional; without it processed invoices are only returned.
	var invoiceRepo repo.InvoiceRepository
	var exportSvc *export.Service
	if cfg.Database.DSN != "" {
		db, err := server.ConnectDB(ctx, cfg.Database, logger)
		if err != nil {
			os.Exit(1)
		}
		defer db.Close()
		invoiceRepo = repo.NewInvoiceRepository(db, logger)
		exportSvc = export.NewService(invoiceRepo, logger)
	} else {
		logger.Warn("DB_URL not set, processed invoices will not be stored")
	}

	svc, closeOCR, err := invoices.FromConfig(ctx, cfg, invoiceRepo, logger)
	if err != nil {
		logger.Error("failed to build invoice service", "error", err)
		os.Exit(1)
	}
	defer closeOCR()

	deps := server.Deps{
		Invoices:       svc,
		Repo:           invoiceRepo,
		Export:         exportSvc,
		DocAI:          cfg.DocumentAI,
		MaxUploadBytes: cfg.Processing.MaxUploadBytes,
		RequestTimeout: cfg.Server.RequestTimeout,
		Logger:         logger,
	}

	httpServer := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           server.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}
	grpcServer, healthServer := server.NewGRPCServer(deps)

	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		logger.Error("failed to listen on address", "addr", cfg.Server.GRPCAddr, "error", err)
		os.Exit(1)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http listening", "addr", cfg.Server.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		logger.Info("grpc listening", "addr", cfg.Server.GRPCAddr)
		return grpcServer.Serve(lis)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down...")
		healthServer.Shutdown()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		err := httpServer.Shutdown(shutdownCtx)
		grpcServer.GracefulStop()
		return err
	})

	if err := g.Wait(); err != nil {
		logger.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("stopped")
}
