package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/rainfall-event-etl/internal/domain"
	"github.com/couchcryptid/rainfall-event-etl/internal/observability"
)

// Retry delays after a failed extract or publish. The delay doubles on each
// consecutive failure and resets once a batch is read.
const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// BatchExtractor reads up to batchSize raw series messages from the source.
type BatchExtractor interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawSeries, error)
}

// Transformer analyzes one raw series message into a report.
type Transformer interface {
	Transform(ctx context.Context, raw domain.RawSeries) (domain.Report, error)
}

// BatchLoader publishes a batch of reports.
type BatchLoader interface {
	LoadBatch(ctx context.Context, reports []domain.Report) error
}

// Pipeline consumes series messages, analyzes each one, and publishes the
// resulting reports. A message's offset is committed once its report is
// published, or immediately when the series cannot be analyzed.
type Pipeline struct {
	extractor   BatchExtractor
	transformer Transformer
	loader      BatchLoader
	logger      *slog.Logger
	metrics     *observability.Metrics
	ready       atomic.Bool
	batchSize   int
	backoff     time.Duration
}

// New creates a Pipeline reading batches of up to batchSize series.
func New(e BatchExtractor, t Transformer, l BatchLoader, logger *slog.Logger, metrics *observability.Metrics, batchSize int) *Pipeline {
	return &Pipeline{
		extractor:   e,
		transformer: t,
		loader:      l,
		logger:      logger,
		metrics:     metrics,
		batchSize:   batchSize,
		backoff:     initialBackoff,
	}
}

// CheckReadiness reports ready once the first report has been published.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not processed any series yet")
	}
	return nil
}

// Run processes batches until ctx is cancelled. It returns nil on shutdown.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "batch_size", p.batchSize)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	for ctx.Err() == nil {
		if !p.step(ctx) {
			break
		}
	}
	p.logger.Info("pipeline stopping", "reason", ctx.Err())
	return nil
}

// step reads one batch and publishes its reports. It returns false once the
// pipeline should stop.
func (p *Pipeline) step(ctx context.Context) bool {
	start := time.Now()

	batch, err := p.extractor.ExtractBatch(ctx, p.batchSize)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		p.logger.Error("read series batch failed", "error", err)
		return p.retryAfterBackoff(ctx)
	}
	if len(batch) == 0 {
		return ctx.Err() == nil
	}

	p.metrics.SeriesConsumed.Add(float64(len(batch)))
	p.metrics.BatchSize.Observe(float64(len(batch)))
	p.backoff = initialBackoff

	reports, analyzed := p.analyze(ctx, batch)
	if len(reports) == 0 {
		return true
	}
	if err := p.loader.LoadBatch(ctx, reports); err != nil {
		p.logger.Error("publish reports failed", "error", err, "reports", len(reports))
		return p.retryAfterBackoff(ctx)
	}

	p.metrics.ReportsProduced.Add(float64(len(reports)))
	for _, raw := range analyzed {
		p.commitOffset(ctx, raw)
	}
	p.metrics.BatchProcessingDuration.Observe(time.Since(start).Seconds())
	p.ready.Store(true)
	return true
}

// analyze runs the transformer over a batch. Series that fail analysis are
// counted, committed, and dropped; the rest are returned alongside the
// messages they came from.
func (p *Pipeline) analyze(ctx context.Context, batch []domain.RawSeries) ([]domain.Report, []domain.RawSeries) {
	reports := make([]domain.Report, 0, len(batch))
	analyzed := make([]domain.RawSeries, 0, len(batch))

	for _, raw := range batch {
		report, err := p.transformer.Transform(ctx, raw)
		if err != nil {
			p.logger.Warn("analysis failed, skipping message",
				"error", err,
				"topic", raw.Topic,
				"partition", raw.Partition,
				"offset", raw.Offset,
			)
			p.metrics.AnalysisErrors.Inc()
			p.commitOffset(ctx, raw)
			continue
		}
		p.recordAnalysis(report)
		reports = append(reports, report)
		analyzed = append(analyzed, raw)
	}
	return reports, analyzed
}

// recordAnalysis updates the per-category event counters for one report.
func (p *Pipeline) recordAnalysis(report domain.Report) {
	for _, c := range report.Counts {
		p.metrics.EventsDetected.WithLabelValues(c.Category.String()).Add(float64(c.Count))
	}
	p.metrics.CurvesExcluded.Add(float64(len(report.ExcludedEvents)))
	p.logger.Debug("series analyzed",
		"series_id", report.SeriesID,
		"samples", report.SampleCount,
		"events", len(report.Events),
		"excluded", len(report.ExcludedEvents),
	)
}

// retryAfterBackoff waits out the current delay and doubles it for the next
// failure. It returns false if ctx ends first.
func (p *Pipeline) retryAfterBackoff(ctx context.Context) bool {
	if ctx.Err() != nil || !sleepWithContext(ctx, p.backoff) {
		return false
	}
	p.backoff = min(p.backoff*2, maxBackoff)
	return true
}

func (p *Pipeline) commitOffset(ctx context.Context, raw domain.RawSeries) {
	if raw.Commit == nil {
		return
	}
	if err := raw.Commit(ctx); err != nil {
		p.logger.Warn("commit offset failed", "error", err,
			"topic", raw.Topic, "partition", raw.Partition, "offset", raw.Offset)
	}
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
