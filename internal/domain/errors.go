package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrEmptySeries is reported when a series contains no rain events at all.
	ErrEmptySeries = errors.New("series has no rain events")

	// ErrEmptyCategory is returned when averaging an empty set of curves.
	ErrEmptyCategory = errors.New("no curves to average")
)

// MissingColumnError reports that the decoded table lacks a required column.
type MissingColumnError struct {
	Column    string
	Available []string
}

func (e *MissingColumnError) Error() string {
	if len(e.Available) == 0 {
		return fmt.Sprintf("column %q not found: table has no columns", e.Column)
	}
	return fmt.Sprintf("column %q not found (available: %s)", e.Column, strings.Join(e.Available, ", "))
}

// DecodeError wraps a failure from the external table decoder, keeping its
// original diagnostic reachable through errors.Unwrap.
type DecodeError struct {
	Source string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Source, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// ZeroTotalPrecipitationError reports an event whose total rainfall is not a
// positive finite number, so its accumulation curve cannot be normalized.
type ZeroTotalPrecipitationError struct {
	StartIndex int
	Start      time.Time
	Total      float64
}

func (e *ZeroTotalPrecipitationError) Error() string {
	return fmt.Sprintf("event starting at sample %d (%s) has unusable total precipitation %g",
		e.StartIndex, e.Start.Format(time.RFC3339), e.Total)
}
