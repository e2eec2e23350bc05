package domain

import "time"

// Sample is one reading of the series stamped with its synthesized time.
type Sample struct {
	Index     int       `json:"index"`
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// SynthesizeTimestamps returns n instants origin + i*interval for i in [0,n).
func SynthesizeTimestamps(n int, origin time.Time, interval time.Duration) []time.Time {
	if n <= 0 {
		return nil
	}
	out := make([]time.Time, n)
	for i := range out {
		out[i] = origin.Add(time.Duration(i) * interval)
	}
	return out
}

// NewSamples pairs each value with its synthesized timestamp, preserving order.
func NewSamples(values []float64, origin time.Time, interval time.Duration) []Sample {
	stamps := SynthesizeTimestamps(len(values), origin, interval)
	samples := make([]Sample, len(values))
	for i, v := range values {
		samples[i] = Sample{Index: i, Timestamp: stamps[i], Value: v}
	}
	return samples
}
