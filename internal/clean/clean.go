// Package clean removes files and directory trees matching a glob pattern.
package clean

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/dustin/go-humanize"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

var ErrEmptyPattern = errors.New("empty pattern")

// Stats summarizes a removal.
type Stats struct {
	// Paths is the number of matches removed
	Paths int

	// Bytes is the total size of the regular files removed
	Bytes uint64
}

// Remove expands pattern and recursively removes every match. The
// pattern supports doublestar syntax, so "dist/**/*.map" matches at
// any depth. A plain path matches itself. A pattern without matches
// is not an error. Removal errors are collected, not fatal.
func Remove(ctx context.Context, pattern string, log *zap.Logger) (Stats, error) {
	var stats Stats

	if log == nil {
		log = zap.NewNop()
	}

	if pattern == "" {
		return stats, ErrEmptyPattern
	}

	matches, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return stats, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}

	// parents sort before their children
	sort.Strings(matches)

	var errs error
	for _, path := range matches {
		if err := ctx.Err(); err != nil {
			errs = multierr.Append(errs, err)
			break
		}

		size, err := diskUsage(path)
		if errors.Is(err, fs.ErrNotExist) {
			// already removed along with a parent match
			continue
		}
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}

		if err := os.RemoveAll(path); err != nil {
			errs = multierr.Append(errs, err)
			continue
		}

		stats.Paths++
		stats.Bytes += size
	}

	log.Info("removed paths",
		zap.String("pattern", pattern),
		zap.Int("paths", stats.Paths),
		zap.String("size", humanize.Bytes(stats.Bytes)),
	)

	return stats, errs
}

// diskUsage sums the size of the regular files below path.
func diskUsage(path string) (uint64, error) {
	var size uint64

	err := filepath.WalkDir(path, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if !d.Type().IsRegular() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		size += uint64(info.Size())

		return nil
	})

	return size, err
}
