package domain

import "time"

// EventSummary is the read-only tabular projection of an Event.
type EventSummary struct {
	Index              int       `json:"index"`
	Category           Category  `json:"category"`
	Start              time.Time `json:"start"`
	End                time.Time `json:"end"`
	DurationMinutes    float64   `json:"duration_minutes"`
	TotalPrecipitation float64   `json:"total_precipitation"`
	PeakTime           time.Time `json:"peak_time"`
	PeakValue          float64   `json:"peak_value"`
	SampleCount        int       `json:"sample_count"`
	StartIndex         int       `json:"start_index"`
}

// SummarizeEvent computes the summary of the index-th event. Duration is
// sample count times the sampling interval; ties for the peak keep the first
// occurrence.
func SummarizeEvent(index int, e Event, interval time.Duration, policy ClassificationPolicy) EventSummary {
	first := e.Samples[0]
	last := e.Samples[len(e.Samples)-1]

	peak := first
	total := 0.0
	for _, s := range e.Samples {
		total += s.Value
		if s.Value > peak.Value {
			peak = s
		}
	}

	duration := float64(len(e.Samples)) * interval.Minutes()

	return EventSummary{
		Index:              index,
		Category:           Classify(duration, policy),
		Start:              first.Timestamp,
		End:                last.Timestamp,
		DurationMinutes:    duration,
		TotalPrecipitation: total,
		PeakTime:           peak.Timestamp,
		PeakValue:          peak.Value,
		SampleCount:        len(e.Samples),
		StartIndex:         first.Index,
	}
}
