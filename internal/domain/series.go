package domain

import (
	"context"
	"encoding/json"
	"time"
)

// RawSeries represents an unprocessed series message from the source topic.
// Value carries one complete table as JSON.
type RawSeries struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// ParseRawSeries deserializes a message value into a Table. The message key
// is used as the series ID when the payload does not name one.
func ParseRawSeries(raw RawSeries) (Table, error) {
	var table Table
	if err := json.Unmarshal(raw.Value, &table); err != nil {
		return Table{}, &DecodeError{Source: "series message", Err: err}
	}
	if table.ID == "" {
		table.ID = string(raw.Key)
	}
	return table, nil
}
