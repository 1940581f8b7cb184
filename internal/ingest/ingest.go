// Package ingest admits documents into the pipeline: upload validation,
// PDF inspection, optional image cleanup and directory discovery.
package ingest

import "github.com/joseph-ayodele/invoice-tracker/constants"

// Upload is a document as received, before any checks.
type Upload struct {
	Name     string
	MimeType string // declared by the client or derived from the extension
	Data     []byte
}

// Document is an upload that passed validation.
type Document struct {
	Name     string
	MimeType string // sniffed type, agrees with the declared one
	Data     []byte
	HashHex  string
	Pages    int // PDFs only
}

// FileResult is the per-file outcome of a directory run.
type FileResult struct {
	SourcePath   string
	Status       constants.JobStatus
	InvoiceID    string
	HashHex      string
	Deduplicated bool
	Err          string
}

// DirStats summarizes a directory run.
type DirStats struct {
	Scanned      uint32
	Matched      uint32
	Succeeded    uint32
	Deduplicated uint32
	Failed       uint32
}
