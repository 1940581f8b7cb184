package async

import (
	"context"
	"time"
)

// Job is one document waiting to be processed.
type Job struct {
	SourcePath  string
	SubmittedAt time.Time
	TraceID     string
}

// Handler processes a single job. Errors are logged by the queue; handlers
// that need per-job outcomes record them themselves.
type Handler func(ctx context.Context, job Job) error

// Queue accepts jobs until Shutdown, which waits for queued jobs to finish.
type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}

var _ Queue = (*WorkerQueue)(nil)
