package domain

// Event is a maximal run of consecutive above-threshold samples. Samples is
// never empty for events produced by SegmentEvents.
type Event struct {
	Samples []Sample
}

// StartIndex returns the series index of the first sample.
func (e Event) StartIndex() int { return e.Samples[0].Index }

// EndIndex returns the series index of the last sample.
func (e Event) EndIndex() int { return e.Samples[len(e.Samples)-1].Index }

// Len returns the number of samples in the event.
func (e Event) Len() int { return len(e.Samples) }

// Values returns a copy of the event's rainfall values.
func (e Event) Values() []float64 {
	out := make([]float64, len(e.Samples))
	for i, s := range e.Samples {
		out[i] = s.Value
	}
	return out
}

type segmentState int

const (
	stateIdle segmentState = iota
	stateInEvent
)

// SegmentEvents partitions samples into events: maximal runs where
// value > threshold. It makes a single forward pass; sub-threshold samples
// (and NaN) close the open run and are discarded.
func SegmentEvents(samples []Sample, threshold float64) []Event {
	var events []Event
	state := stateIdle
	start := 0

	for i, s := range samples {
		above := s.Value > threshold
		switch {
		case state == stateIdle && above:
			state = stateInEvent
			start = i
		case state == stateInEvent && !above:
			events = append(events, Event{Samples: samples[start:i:i]})
			state = stateIdle
		}
	}
	if state == stateInEvent {
		events = append(events, Event{Samples: samples[start:len(samples):len(samples)]})
	}
	return events
}
