package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"
)

// Analyzer turns a decoded table into a rainfall event report.
type Analyzer interface {
	Analyze(ctx context.Context, table Table) (Report, error)
}

// Options controls event detection and curve construction.
type Options struct {
	Origin      time.Time
	Interval    time.Duration
	Threshold   float64
	CurvePoints int
	Policy      ClassificationPolicy
}

// DefaultOptions returns a 5 minute interval from 2000-01-01 UTC, a zero
// threshold, 100-point curves, and the legacy classification policy.
func DefaultOptions() Options {
	return Options{
		Origin:      time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC),
		Interval:    5 * time.Minute,
		Threshold:   0,
		CurvePoints: DefaultCurvePoints,
		Policy:      PolicyLegacy,
	}
}

// Validate reports the first invalid option.
func (o Options) Validate() error {
	if o.Interval <= 0 {
		return fmt.Errorf("interval must be positive, got %s", o.Interval)
	}
	if math.IsNaN(o.Threshold) || math.IsInf(o.Threshold, 0) {
		return fmt.Errorf("threshold must be finite, got %g", o.Threshold)
	}
	if o.CurvePoints < 3 {
		return fmt.Errorf("curve points must be at least 3, got %d", o.CurvePoints)
	}
	if _, err := ParseClassificationPolicy(string(o.Policy)); err != nil {
		return err
	}
	return nil
}

// CategoryCount is the number of events in one category.
type CategoryCount struct {
	Category Category `json:"category"`
	Count    int      `json:"count"`
}

// EventCurve is the accumulation curve of one event, in source order.
type EventCurve struct {
	EventIndex int             `json:"event_index"`
	Category   Category        `json:"category"`
	Raw        RawCurve        `json:"raw"`
	Curve      NormalizedCurve `json:"curve"`
}

// Report is the full analysis of one series.
type Report struct {
	SeriesID        string               `json:"series_id"`
	GeneratedAt     time.Time            `json:"generated_at"`
	Origin          time.Time            `json:"origin"`
	IntervalMinutes float64              `json:"interval_minutes"`
	Threshold       float64              `json:"threshold"`
	Policy          ClassificationPolicy `json:"classification_policy"`
	SampleCount     int                  `json:"sample_count"`
	Events          []EventSummary       `json:"events"`
	Counts          []CategoryCount      `json:"category_counts"`
	Curves          []EventCurve         `json:"curves"`
	Patterns        []FittedPattern      `json:"patterns"`
	Overall         *FittedPattern       `json:"overall,omitempty"`
	ExcludedEvents  []int                `json:"excluded_events,omitempty"`
}

// EventsByCategory groups event summaries by category, preserving order
// within each group. Categories without events are absent.
func (r Report) EventsByCategory() map[Category][]EventSummary {
	groups := make(map[Category][]EventSummary)
	for _, e := range r.Events {
		groups[e.Category] = append(groups[e.Category], e)
	}
	return groups
}

// Pattern returns the fitted pattern for a category, if one was produced.
func (r Report) Pattern(c Category) (FittedPattern, bool) {
	for _, p := range r.Patterns {
		if p.Group == c.String() {
			return p, true
		}
	}
	return FittedPattern{}, false
}

// Engine is the in-process Analyzer.
type Engine struct {
	opts   Options
	logger *slog.Logger
}

// NewEngine validates opts and creates an Engine.
func NewEngine(opts Options, logger *slog.Logger) (*Engine, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("analysis options: %w", err)
	}
	return &Engine{opts: opts, logger: logger}, nil
}

// Options returns the engine's configuration.
func (e *Engine) Options() Options { return e.opts }

// Analyze runs the whole pipeline on one table: segmentation, summaries,
// curve normalization, and pattern fitting. A missing precipitation column
// or an event total that is not finite fails the run. Events with a zero or
// negative total are logged and left out of curve aggregation but kept in
// the event table.
func (e *Engine) Analyze(ctx context.Context, table Table) (Report, error) {
	values, err := table.Precipitation()
	if err != nil {
		return Report{}, err
	}

	opts := e.opts
	if table.Origin != nil {
		opts.Origin = *table.Origin
	}
	seriesID := table.SeriesID()

	events := SegmentEvents(NewSamples(values, opts.Origin, opts.Interval), opts.Threshold)

	report := Report{
		SeriesID:        seriesID,
		GeneratedAt:     clock.Now(),
		Origin:          opts.Origin,
		IntervalMinutes: opts.Interval.Minutes(),
		Threshold:       opts.Threshold,
		Policy:          opts.Policy,
		SampleCount:     len(values),
		Events:          make([]EventSummary, 0, len(events)),
	}

	var counts [len(categoryLabels)]int
	byCategory := make(map[Category][]NormalizedCurve, len(categoryLabels))
	all := make([]NormalizedCurve, 0, len(events))

	for i, ev := range events {
		summary := SummarizeEvent(i, ev, opts.Interval, opts.Policy)
		if total := summary.TotalPrecipitation; math.IsInf(total, 0) || math.IsNaN(total) {
			return Report{}, &DecodeError{
				Source: fmt.Sprintf("series %q", seriesID),
				Err:    fmt.Errorf("event starting at sample %d: total precipitation %g is not finite", summary.StartIndex, total),
			}
		}
		report.Events = append(report.Events, summary)
		counts[summary.Category]++

		raw, curve, err := e.curve(ev)
		if err != nil {
			e.logger.WarnContext(ctx, "event excluded from curve aggregation",
				"series_id", seriesID,
				"event_index", i,
				"start", summary.Start,
				"error", err,
			)
			report.ExcludedEvents = append(report.ExcludedEvents, i)
			continue
		}

		report.Curves = append(report.Curves, EventCurve{
			EventIndex: i,
			Category:   summary.Category,
			Raw:        raw,
			Curve:      curve,
		})
		byCategory[summary.Category] = append(byCategory[summary.Category], curve)
		all = append(all, curve)
	}

	for _, c := range Categories() {
		if counts[c] > 0 {
			report.Counts = append(report.Counts, CategoryCount{Category: c, Count: counts[c]})
		}

		pattern, err := FitPattern(c.String(), byCategory[c])
		if errors.Is(err, ErrEmptyCategory) {
			continue
		}
		if err != nil {
			return Report{}, err
		}
		report.Patterns = append(report.Patterns, pattern)
	}

	if len(all) == 0 {
		e.logger.DebugContext(ctx, "overall pattern omitted", "series_id", seriesID, "reason", ErrEmptySeries)
		return report, nil
	}
	overall, err := FitPattern(OverallGroup, all)
	if err != nil {
		return Report{}, err
	}
	report.Overall = &overall

	return report, nil
}

func (e *Engine) curve(ev Event) (RawCurve, NormalizedCurve, error) {
	raw, err := RawCumulativeCurve(ev)
	if err != nil {
		return RawCurve{}, nil, err
	}
	curve, err := raw.Resample(e.opts.CurvePoints)
	if err != nil {
		return RawCurve{}, nil, err
	}
	return raw, curve, nil
}
