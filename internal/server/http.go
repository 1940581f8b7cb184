package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/invoice-tracker/constants"
	"github.com/joseph-ayodele/invoice-tracker/internal/common"
	"github.com/joseph-ayodele/invoice-tracker/internal/export"
	"github.com/joseph-ayodele/invoice-tracker/internal/ingest"
	"github.com/joseph-ayodele/invoice-tracker/internal/invoices"
	"github.com/joseph-ayodele/invoice-tracker/internal/repository"
)

// InvoiceProcessor is the part of invoices.Service the transports need.
type InvoiceProcessor interface {
	Process(ctx context.Context, u ingest.Upload) (*invoices.Result, error)
}

// Deps wires the HTTP and gRPC surfaces. Repo and Export may be nil when no
// database is configured; the read endpoints then answer 503.
type Deps struct {
	Invoices       InvoiceProcessor
	Repo           repository.InvoiceRepository
	Export         *export.Service
	DocAI          common.DocumentAIConfig
	MaxUploadBytes int64
	RequestTimeout time.Duration
	Logger         *slog.Logger
}

func (d *Deps) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.Default()
	}
	return d.Logger
}

// multipart framing on top of the file itself
const formOverheadBytes = 1 << 20

// NewRouter builds the HTTP API.
func NewRouter(d Deps) http.Handler {
	if d.MaxUploadBytes <= 0 {
		d.MaxUploadBytes = constants.MaxUploadBytesDefault
	}
	if d.RequestTimeout <= 0 {
		d.RequestTimeout = 2 * time.Minute
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(d.logger()))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(d.RequestTimeout))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/process-invoice", d.processInvoice)
		r.Get("/process-invoice", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{
				"message":   "Invoice processing API is running",
				"timestamp": time.Now().UTC().Format(time.RFC3339),
			})
		})
		r.Get("/config", d.documentAIConfig)

		r.Get("/invoices", d.listInvoices)
		r.Get("/invoices/export.xlsx", d.exportInvoices)
		r.Get("/invoices/{id}", d.getInvoice)
	})
	return r
}

// requestLogger logs one line per request with the chi request id.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			rid := middleware.GetReqID(r.Context())
			if rid != "" {
				r = r.WithContext(common.WithRequestID(r.Context(), rid))
			}
			next.ServeHTTP(ww, r)
			logger.Info("http.request",
				"req_id", rid,
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}

func (d *Deps) processInvoice(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	fail := func(code int, msg string) {
		writeJSON(w, code, ProcessingResult{Error: msg, ProcessingTime: time.Since(start).Milliseconds()})
	}

	r.Body = http.MaxBytesReader(w, r.Body, d.MaxUploadBytes+formOverheadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			fail(http.StatusRequestEntityTooLarge, fmt.Sprintf("File too large. Maximum size is %dMB.", d.MaxUploadBytes>>20))
			return
		}
		fail(http.StatusBadRequest, "No file uploaded")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		fail(http.StatusBadRequest, "No file uploaded")
		return
	}
	defer file.Close()

	if err := validateUploadMeta(header.Filename, header.Header.Get("Content-Type")); err != nil {
		fail(http.StatusBadRequest, err.Error())
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		d.logger().Error("http.upload.read_failed", "error", err)
		fail(http.StatusBadRequest, "could not read uploaded file")
		return
	}

	res, err := d.Invoices.Process(r.Context(), ingest.Upload{
		Name:     header.Filename,
		MimeType: header.Header.Get("Content-Type"),
		Data:     data,
	})
	if err != nil {
		fail(httpStatus(err), publicMessage(err))
		return
	}

	writeJSON(w, http.StatusOK, ProcessingResult{
		Success:        true,
		Data:           res.Invoice,
		Summary:        &res.Summary,
		Enrichment:     &res.Enrichment,
		Deduplicated:   res.Deduplicated,
		ProcessingTime: time.Since(start).Milliseconds(),
	})
}

func (d *Deps) documentAIConfig(w http.ResponseWriter, r *http.Request) {
	creds := "Missing"
	if d.DocAI.CredentialsFile != "" {
		creds = "Configured"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Document AI configuration",
		"config": map[string]string{
			"projectId":       d.DocAI.ProjectID,
			"location":        d.DocAI.Location,
			"processorId":     d.DocAI.ProcessorID,
			"credentialsPath": creds,
		},
		"processorName": d.DocAI.ProcessorName(),
		"endpointUrl":   d.DocAI.RESTURL(),
	})
}

func (d *Deps) listInvoices(w http.ResponseWriter, r *http.Request) {
	if d.Repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "storage is not configured"})
		return
	}
	f, err := listFilter(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	invs, err := d.Repo.List(r.Context(), f)
	if err != nil {
		writeJSON(w, httpStatus(err), errorBody{Error: publicMessage(err)})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"invoices": invs, "limit": f.Limit, "offset": f.Offset})
}

func (d *Deps) getInvoice(w http.ResponseWriter, r *http.Request) {
	if d.Repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "storage is not configured"})
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid invoice id"})
		return
	}
	inv, err := d.Repo.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody{Error: "invoice not found"})
			return
		}
		writeJSON(w, httpStatus(err), errorBody{Error: publicMessage(err)})
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

func (d *Deps) exportInvoices(w http.ResponseWriter, r *http.Request) {
	if d.Export == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "storage is not configured"})
		return
	}
	f, err := listFilter(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	buf, err := d.Export.ExportInvoicesXLSX(r.Context(), f)
	if err != nil {
		d.logger().Error("http.export.failed", "req_id", middleware.GetReqID(r.Context()), "error", err)
		writeJSON(w, httpStatus(err), errorBody{Error: publicMessage(err)})
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="invoices.xlsx"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(buf)))
	_, _ = w.Write(buf)
}

func listFilter(r *http.Request) (repository.ListFilter, error) {
	var f repository.ListFilter
	q := r.URL.Query()
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return f, errors.New("limit must be a non-negative integer")
		}
		f.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return f, errors.New("offset must be a non-negative integer")
		}
		f.Offset = n
	}
	return f, nil
}
