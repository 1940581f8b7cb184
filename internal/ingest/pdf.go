package ingest

import (
	"bytes"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PDFPageCount reads and validates a PDF and returns its page count.
func PDFPageCount(data []byte) (int, error) {
	conf := model.NewDefaultConfiguration()
	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), conf)
	if err != nil {
		return 0, fmt.Errorf("pdfcpu read: %w", err)
	}
	if ctx.PageCount < 1 {
		return 0, fmt.Errorf("pdf has no pages")
	}
	return ctx.PageCount, nil
}
