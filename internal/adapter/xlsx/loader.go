package xlsx

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/couchcryptid/rainfall-event-etl/internal/domain"
)

// DirLoader writes one workbook per report into a directory, named after the
// series ID. Rewriting a report replaces its file.
// It implements pipeline.BatchLoader.
type DirLoader struct {
	dir    string
	logger *slog.Logger
}

// NewDirLoader creates dir if needed and returns a loader writing into it.
func NewDirLoader(dir string, logger *slog.Logger) (*DirLoader, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create export dir: %w", err)
	}
	return &DirLoader{dir: dir, logger: logger}, nil
}

func (l *DirLoader) LoadBatch(ctx context.Context, reports []domain.Report) error {
	for i := range reports {
		if err := ctx.Err(); err != nil {
			return err
		}
		path, err := l.save(reports[i])
		if err != nil {
			return err
		}
		l.logger.Debug("workbook exported", "series_id", reports[i].SeriesID, "path", path)
	}
	return nil
}

// Path returns the file a report for seriesID is written to.
func (l *DirLoader) Path(seriesID string) string {
	return filepath.Join(l.dir, FileName(seriesID))
}

func (l *DirLoader) save(report domain.Report) (string, error) {
	path := l.Path(report.SeriesID)

	tmp, err := os.CreateTemp(l.dir, ".export-*")
	if err != nil {
		return "", fmt.Errorf("save workbook %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	if err := Write(tmp, report); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("save workbook %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("save workbook %s: %w", path, err)
	}
	return path, nil
}

// FileName maps a series ID to a safe workbook file name.
func FileName(seriesID string) string {
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		default:
			return '_'
		}
	}, seriesID)
	safe = strings.Trim(safe, ".")
	if safe == "" {
		safe = "series"
	}
	return safe + ".xlsx"
}
