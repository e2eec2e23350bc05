package domain

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/interp"
)

// DefaultCurvePoints is the length of a resampled accumulation curve.
const DefaultCurvePoints = 100

// NormalizedCurve is an event's cumulative rainfall fraction sampled at
// evenly spaced fractions of its duration. Values are non-decreasing and end
// at 1.
type NormalizedCurve []float64

// RawCurve holds an event's own (time fraction, cumulative fraction) pairs,
// one per sample, before resampling.
type RawCurve struct {
	Time       []float64 `json:"time"`
	Cumulative []float64 `json:"cumulative"`
}

// TimeGrid returns n points evenly spaced over [0,1]. A single point sits at 0.
func TimeGrid(n int) []float64 {
	switch {
	case n <= 0:
		return nil
	case n == 1:
		return []float64{0}
	}
	return floats.Span(make([]float64, n), 0, 1)
}

// RawCumulativeCurve rescales the event's time axis to [0,1] and its running
// rainfall total to a fraction of the event total.
func RawCumulativeCurve(e Event) (RawCurve, error) {
	values := e.Values()
	total := floats.Sum(values)
	if !(total > 0) || math.IsInf(total, 0) {
		return RawCurve{}, &ZeroTotalPrecipitationError{
			StartIndex: e.StartIndex(),
			Start:      e.Samples[0].Timestamp,
			Total:      total,
		}
	}

	cumulative := floats.CumSum(make([]float64, len(values)), values)
	floats.Scale(1/total, cumulative)

	return RawCurve{Time: TimeGrid(len(values)), Cumulative: cumulative}, nil
}

// Resample interpolates the raw curve linearly onto a grid of the given
// size. Grid points outside the raw domain take the nearest endpoint value.
func (r RawCurve) Resample(points int) (NormalizedCurve, error) {
	if points <= 0 {
		return nil, fmt.Errorf("resample: invalid point count %d", points)
	}
	if len(r.Time) == 0 || len(r.Time) != len(r.Cumulative) {
		return nil, fmt.Errorf("resample: raw curve has %d times and %d values", len(r.Time), len(r.Cumulative))
	}

	out := make(NormalizedCurve, points)
	if len(r.Time) == 1 {
		for i := range out {
			out[i] = r.Cumulative[0]
		}
		return out, nil
	}

	var pl interp.PiecewiseLinear
	if err := pl.Fit(r.Time, r.Cumulative); err != nil {
		return nil, fmt.Errorf("resample: %w", err)
	}
	for i, t := range TimeGrid(points) {
		out[i] = pl.Predict(t)
	}
	return out, nil
}

// NormalizeEvent builds the event's resampled accumulation curve.
func NormalizeEvent(e Event, points int) (NormalizedCurve, error) {
	raw, err := RawCumulativeCurve(e)
	if err != nil {
		return nil, err
	}
	return raw.Resample(points)
}
