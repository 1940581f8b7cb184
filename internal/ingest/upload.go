package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"mime"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/joseph-ayodele/invoice-tracker/constants"
	"github.com/joseph-ayodele/invoice-tracker/internal/common"
)

// Limits bounds what Validate accepts.
type Limits struct {
	MaxBytes    int64
	MaxPDFPages int
}

func DefaultLimits() Limits {
	return Limits{MaxBytes: constants.MaxUploadBytesDefault, MaxPDFPages: constants.MaxPDFPagesDefault}
}

type Validator struct {
	Limits Limits
	Logger *slog.Logger
}

func NewValidator(limits Limits, logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	if limits.MaxBytes <= 0 {
		limits.MaxBytes = constants.MaxUploadBytesDefault
	}
	if limits.MaxPDFPages <= 0 {
		limits.MaxPDFPages = constants.MaxPDFPagesDefault
	}
	return &Validator{Limits: limits, Logger: logger}
}

// Validate checks presence, size and type of an upload. The declared type must
// be accepted and must agree with the sniffed content; PDFs must also parse and
// stay within the page limit.
func (v *Validator) Validate(ctx context.Context, u Upload) (*Document, error) {
	rid := common.RequestIDFromContext(ctx)

	if len(u.Data) == 0 {
		return nil, common.NewAppError("NO_FILE", "No file uploaded", common.ErrInvalidInput)
	}
	if int64(len(u.Data)) > v.Limits.MaxBytes {
		return nil, common.NewAppError("FILE_TOO_LARGE",
			fmt.Sprintf("File too large. Maximum size is %s.", humanBytes(v.Limits.MaxBytes)), common.ErrTooLarge)
	}

	declared := baseMime(u.MimeType)
	sniffed := baseMime(mimetype.Detect(u.Data).String())
	if declared == "" {
		declared = sniffed
	}
	if _, ok := constants.AllowedMimeTypes[declared]; !ok {
		v.Logger.Warn("ingest.validate.unsupported_type", "req_id", rid, "name", u.Name, "declared", u.MimeType, "sniffed", sniffed)
		return nil, common.NewAppError("INVALID_TYPE",
			"Invalid file type. Please upload JPEG, PNG, or PDF.", common.ErrUnsupportedMedia)
	}
	if sniffed != declared {
		v.Logger.Warn("ingest.validate.type_mismatch", "req_id", rid, "name", u.Name, "declared", declared, "sniffed", sniffed)
		return nil, common.NewAppError("TYPE_MISMATCH",
			fmt.Sprintf("File content is %s but was declared as %s.", sniffed, declared), common.ErrUnsupportedMedia)
	}

	doc := &Document{Name: u.Name, MimeType: declared, Data: u.Data}
	if declared == constants.MimePDF {
		pages, err := PDFPageCount(u.Data)
		if err != nil {
			v.Logger.Warn("ingest.validate.bad_pdf", "req_id", rid, "name", u.Name, "error", err)
			return nil, common.NewAppError("INVALID_PDF", "PDF could not be read", fmt.Errorf("%w: %v", common.ErrInvalidInput, err))
		}
		if pages > v.Limits.MaxPDFPages {
			return nil, common.NewAppError("TOO_MANY_PAGES",
				fmt.Sprintf("PDF has %d pages; the maximum is %d.", pages, v.Limits.MaxPDFPages), common.ErrTooLarge)
		}
		doc.Pages = pages
	}

	doc.HashHex = HashHex(u.Data)

	v.Logger.Debug("ingest.validate.ok", "req_id", rid, "name", u.Name, "mime_type", doc.MimeType, "bytes", len(u.Data), "pages", doc.Pages)
	return doc, nil
}

// HashHex is the hex SHA-256 of a document's bytes, the key used for
// deduplication.
func HashHex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// baseMime drops parameters and lowercases, so "image/PNG; q=1" is "image/png".
func baseMime(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if mt, _, err := mime.ParseMediaType(s); err == nil {
		return mt
	}
	if i := strings.IndexByte(s, ';'); i >= 0 {
		s = s[:i]
	}
	return strings.ToLower(strings.TrimSpace(s))
}

func humanBytes(n int64) string {
	const mib = 1024 * 1024
	if n%mib == 0 {
		return fmt.Sprintf("%dMB", n/mib)
	}
	return fmt.Sprintf("%d bytes", n)
}
