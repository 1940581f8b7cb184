package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/invoice-tracker/constants"
	"github.com/joseph-ayodele/invoice-tracker/internal/common"
)

// AllowedExt checks if a file extension is in the allowed set (pdf/jpg/jpeg/png).
func AllowedExt(ext string) bool {
	_, ok := constants.AllowedExtensions[constants.NormalizeExt(ext)]
	return ok
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") && base != "." && base != ".."
}

// ScanDirectory walks root and returns the files with an accepted extension.
// Walk errors on single entries are counted as failures and skipped.
func ScanDirectory(ctx context.Context, root string, skipHidden bool) ([]string, DirStats, error) {
	var stats DirStats
	if strings.TrimSpace(root) == "" {
		return nil, stats, errors.New("root path is required")
	}

	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Scanned++
		if walkErr != nil {
			stats.Failed++
			return nil
		}
		if skipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !AllowedExt(filepath.Ext(path)) {
			return nil
		}
		stats.Matched++
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return paths, stats, fmt.Errorf("walk: %w", err)
	}
	return paths, stats, nil
}

// ReadFile loads a local document as an Upload, declaring the type from its
// extension. Oversized files are rejected before they are read.
func ReadFile(path string, maxBytes int64) (Upload, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Upload{}, err
	}
	mt := constants.MimeForExt(filepath.Ext(abs))
	if mt == "" {
		return Upload{}, common.NewAppError("INVALID_TYPE",
			fmt.Sprintf("unsupported or missing extension %q", filepath.Ext(abs)), common.ErrUnsupportedMedia)
	}

	fi, err := os.Stat(abs)
	if err != nil {
		return Upload{}, err
	}
	if maxBytes > 0 && fi.Size() > maxBytes {
		return Upload{}, common.NewAppError("FILE_TOO_LARGE",
			fmt.Sprintf("%s is %d bytes; the maximum is %d", filepath.Base(abs), fi.Size(), maxBytes), common.ErrTooLarge)
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return Upload{}, err
	}
	return Upload{Name: filepath.Base(abs), MimeType: mt, Data: data}, nil
}
