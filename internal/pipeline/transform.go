package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/rainfall-event-etl/internal/domain"
)

// SeriesTransformer implements Transformer by decoding the message payload
// into a table and handing it to an Analyzer.
type SeriesTransformer struct {
	analyzer domain.Analyzer
	logger   *slog.Logger
}

// NewTransformer creates a SeriesTransformer around the given analyzer.
func NewTransformer(analyzer domain.Analyzer, logger *slog.Logger) *SeriesTransformer {
	return &SeriesTransformer{
		analyzer: analyzer,
		logger:   logger,
	}
}

func (t *SeriesTransformer) Transform(ctx context.Context, raw domain.RawSeries) (domain.Report, error) {
	table, err := domain.ParseRawSeries(raw)
	if err != nil {
		return domain.Report{}, err
	}
	t.logger.DebugContext(ctx, "series decoded",
		"series_id", table.SeriesID(),
		"columns", table.ColumnNames(),
		"topic", raw.Topic,
		"partition", raw.Partition,
		"offset", raw.Offset,
	)

	report, err := t.analyzer.Analyze(ctx, table)
	if err != nil {
		return domain.Report{}, fmt.Errorf("analyze series %q: %w", table.SeriesID(), err)
	}
	return report, nil
}
