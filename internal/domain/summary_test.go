package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarizeEvent_Example(t *testing.T) {
	events := SegmentEvents(samplesOf(0, 5, 5, 0, 0, 3, 3, 3, 3, 0), 0)
	require.Len(t, events, 2)

	a := SummarizeEvent(0, events[0], 5*time.Minute, PolicyLegacy)
	assert.Equal(t, 0, a.Index)
	assert.Equal(t, CategoryUnder30, a.Category)
	assert.Equal(t, 10.0, a.DurationMinutes)
	assert.Equal(t, 10.0, a.TotalPrecipitation)
	assert.Equal(t, testOrigin.Add(5*time.Minute), a.Start)
	assert.Equal(t, testOrigin.Add(10*time.Minute), a.End)
	assert.Equal(t, 2, a.SampleCount)
	assert.Equal(t, 1, a.StartIndex)

	b := SummarizeEvent(1, events[1], 5*time.Minute, PolicyLegacy)
	assert.Equal(t, CategoryUnder30, b.Category)
	assert.Equal(t, 20.0, b.DurationMinutes)
	assert.Equal(t, 12.0, b.TotalPrecipitation)
	assert.Equal(t, 3.0, b.PeakValue)
	assert.Equal(t, testOrigin.Add(25*time.Minute), b.PeakTime, "ties keep the first occurrence")
}

func TestSummarizeEvent_PeakAndDuration(t *testing.T) {
	events := SegmentEvents(samplesOf(1, 4, 2, 4, 1, 1), 0)
	require.Len(t, events, 1)

	s := SummarizeEvent(0, events[0], 5*time.Minute, PolicyLegacy)
	assert.Equal(t, 4.0, s.PeakValue)
	assert.Equal(t, testOrigin.Add(5*time.Minute), s.PeakTime)
	assert.Equal(t, float64(s.SampleCount*5), s.DurationMinutes)
	assert.Equal(t, CategoryOver180, s.Category, "exactly 30 minutes falls through under the legacy policy")

	inclusive := SummarizeEvent(0, events[0], 5*time.Minute, PolicyInclusive)
	assert.Equal(t, Category30To60, inclusive.Category)
}
