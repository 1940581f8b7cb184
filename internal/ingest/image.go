package ingest

import (
	"bytes"
	"fmt"

	"github.com/disintegration/imaging"

	"github.com/joseph-ayodele/invoice-tracker/constants"
)

// Enhancer cleans up scanned images before OCR: grayscale, contrast boost,
// light sharpening and an optional size cap.
type Enhancer struct {
	Contrast float64 // percentage, -100..100
	Sharpen  float64 // sigma
	MaxSide  int     // 0 keeps the original size
}

func DefaultEnhancer() Enhancer {
	return Enhancer{Contrast: 20, Sharpen: 1.0, MaxSide: 3000}
}

// Enhance returns re-encoded image bytes in the same format. PDFs and other
// types are returned unchanged.
func (e Enhancer) Enhance(data []byte, mimeType string) ([]byte, error) {
	var format imaging.Format
	switch mimeType {
	case constants.MimeJPEG:
		format = imaging.JPEG
	case constants.MimePNG:
		format = imaging.PNG
	default:
		return data, nil
	}

	src, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	img := imaging.Grayscale(src)
	if e.Contrast != 0 {
		img = imaging.AdjustContrast(img, e.Contrast)
	}
	if e.Sharpen > 0 {
		img = imaging.Sharpen(img, e.Sharpen)
	}
	if b := img.Bounds(); e.MaxSide > 0 && (b.Dx() > e.MaxSide || b.Dy() > e.MaxSide) {
		img = imaging.Fit(img, e.MaxSide, e.MaxSide, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, format, imaging.JPEGQuality(92)); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	return buf.Bytes(), nil
}
