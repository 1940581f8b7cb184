package constants

import "strings"

const (
	MimeJPEG = "image/jpeg"
	MimePNG  = "image/png"
	MimePDF  = "application/pdf"

	// MaxUploadBytesDefault is the upload ceiling when MAX_UPLOAD_BYTES is unset.
	MaxUploadBytesDefault int64 = 10 * 1024 * 1024

	// MaxPDFPagesDefault matches the Document AI online processing page limit.
	MaxPDFPagesDefault = 15
)

// AllowedMimeTypes holds the content types accepted for invoice processing.
var AllowedMimeTypes = map[string]struct{}{
	MimeJPEG: {},
	MimePNG:  {},
	MimePDF:  {},
}

// AllowedExtensions holds the default allowed file extensions for batch ingestion.
var AllowedExtensions = map[string]string{
	"pdf":  MimePDF,
	"jpg":  MimeJPEG,
	"jpeg": MimeJPEG,
	"png":  MimePNG,
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// MimeForExt returns the content type for an allowed extension, or "".
func MimeForExt(ext string) string {
	return AllowedExtensions[NormalizeExt(ext)]
}

func IsImageMime(mt string) bool {
	return mt == MimeJPEG || mt == MimePNG
}
