package invoices

import (
	"context"
	"log/slog"
	"sync"

	"github.com/joseph-ayodele/invoice-tracker/constants"
	"github.com/joseph-ayodele/invoice-tracker/internal/async"
	"github.com/joseph-ayodele/invoice-tracker/internal/common"
	"github.com/joseph-ayodele/invoice-tracker/internal/entity"
	"github.com/joseph-ayodele/invoice-tracker/internal/ingest"
)

// BatchReport is everything a directory run produced, in completion order.
type BatchReport struct {
	Results  []ingest.FileResult
	Invoices []*entity.Invoice
	Stats    ingest.DirStats
}

// Batch feeds local files through a Service on a bounded worker queue.
// Content seen earlier in the run is reported as deduplicated without another
// OCR call, whether or not the Service has a repository.
type Batch struct {
	svc      *Service
	maxBytes int64
	queue    async.Queue
	logger   *slog.Logger

	mu     sync.Mutex
	report BatchReport
	jobs   map[string]constants.JobStatus
	seen   map[string]string // content hash -> invoice id, "" while in flight
}

func NewBatch(svc *Service, maxBytes int64, logger *slog.Logger, opts ...async.Option) *Batch {
	if logger == nil {
		logger = slog.Default()
	}
	b := &Batch{
		svc:      svc,
		maxBytes: maxBytes,
		logger:   logger,
		jobs:     map[string]constants.JobStatus{},
		seen:     map[string]string{},
	}
	b.queue = async.NewWorkerQueue(b.handle, logger, opts...)
	return b
}

// Submit queues one file, blocking while the queue is full. A path that is
// already queued or running is not queued again.
func (b *Batch) Submit(ctx context.Context, path string) error {
	b.mu.Lock()
	switch b.jobs[path] {
	case constants.JobStatusQueued, constants.JobStatusRunning:
		b.mu.Unlock()
		b.logger.Debug("batch.submit.pending", "path", path)
		return nil
	}
	prev, had := b.jobs[path]
	b.jobs[path] = constants.JobStatusQueued
	b.mu.Unlock()

	if err := b.queue.Enqueue(ctx, async.Job{SourcePath: path}); err != nil {
		b.mu.Lock()
		if had {
			b.jobs[path] = prev
		} else {
			delete(b.jobs, path)
		}
		b.mu.Unlock()
		return err
	}
	return nil
}

// Status returns the latest job status for path.
func (b *Batch) Status(path string) (constants.JobStatus, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	st, ok := b.jobs[path]
	return st, ok
}

// Wait drains the queue and returns the report. Submit fails afterwards.
func (b *Batch) Wait(ctx context.Context) BatchReport {
	b.queue.Shutdown(ctx)
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.report
}

func (b *Batch) handle(ctx context.Context, job async.Job) error {
	ctx = common.WithRequestID(ctx, job.TraceID)
	b.setStatus(job.SourcePath, constants.JobStatusRunning)

	fr := ingest.FileResult{SourcePath: job.SourcePath}
	res, err := b.process(ctx, job.SourcePath, &fr)
	if err != nil {
		fr.Status = constants.JobStatusFailed
		fr.Err = err.Error()
	} else {
		fr.Status = constants.JobStatusSucceeded
		if res != nil {
			fr.InvoiceID = res.Invoice.ID.String()
			fr.Deduplicated = res.Deduplicated
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.jobs[job.SourcePath] = fr.Status
	b.report.Results = append(b.report.Results, fr)
	switch {
	case err != nil:
		b.report.Stats.Failed++
	case fr.Deduplicated:
		b.report.Stats.Deduplicated++
	default:
		b.report.Stats.Succeeded++
		b.report.Invoices = append(b.report.Invoices, res.Invoice)
	}
	return err
}

// process returns a nil Result when the content was already claimed by
// another file of this batch.
func (b *Batch) process(ctx context.Context, path string, fr *ingest.FileResult) (*Result, error) {
	u, err := ingest.ReadFile(path, b.maxBytes)
	if err != nil {
		return nil, err
	}
	fr.HashHex = ingest.HashHex(u.Data)

	if id, dup := b.claim(fr.HashHex); dup {
		b.logger.Info("batch.deduplicated", "path", path, "hash", fr.HashHex, "invoice_id", id)
		fr.InvoiceID = id
		fr.Deduplicated = true
		return nil, nil
	}

	res, err := b.svc.Process(ctx, u)
	b.mu.Lock()
	if err != nil {
		// let a later copy of the same content try again
		delete(b.seen, fr.HashHex)
	} else {
		b.seen[fr.HashHex] = res.Invoice.ID.String()
	}
	b.mu.Unlock()
	return res, err
}

// claim reserves hash for the caller. It reports true, with the invoice id
// when known, if another file already holds it.
func (b *Batch) claim(hash string) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if id, ok := b.seen[hash]; ok {
		return id, true
	}
	b.seen[hash] = ""
	return "", false
}

func (b *Batch) setStatus(path string, st constants.JobStatus) {
	b.mu.Lock()
	b.jobs[path] = st
	b.mu.Unlock()
}
