package domain

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTable_Precipitation(t *testing.T) {
	t.Run("canonical column", func(t *testing.T) {
		table := Table{Columns: map[string][]float64{"Precipitacion": {0, 1}}}
		values, err := table.Precipitation()
		require.NoError(t, err)
		assert.Equal(t, []float64{0, 1}, values)
	})

	t.Run("gauge alias", func(t *testing.T) {
		table := Table{Columns: map[string][]float64{"valor": {2, 0}, "fecha": {1, 2}}}
		values, err := table.Precipitation()
		require.NoError(t, err)
		assert.Equal(t, []float64{2, 0}, values)
	})

	t.Run("canonical wins over alias", func(t *testing.T) {
		table := Table{Columns: map[string][]float64{"valor": {9}, "Precipitacion": {1}}}
		values, err := table.Precipitation()
		require.NoError(t, err)
		assert.Equal(t, []float64{1}, values)
	})

	t.Run("missing column", func(t *testing.T) {
		table := Table{Columns: map[string][]float64{"temperatura": {20}, "humedad": {80}}}
		_, err := table.Precipitation()

		var missing *MissingColumnError
		require.True(t, errors.As(err, &missing))
		assert.Equal(t, PrecipitationColumn, missing.Column)
		assert.Equal(t, []string{"humedad", "temperatura"}, missing.Available)
		assert.Contains(t, err.Error(), "Precipitacion")
	})

	t.Run("no columns", func(t *testing.T) {
		_, err := Table{}.Precipitation()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no columns")
	})
}

func TestTable_SeriesID(t *testing.T) {
	named := Table{ID: "gauge-7", Columns: map[string][]float64{"valor": {1}}}
	assert.Equal(t, "gauge-7", named.SeriesID())

	a := Table{Columns: map[string][]float64{"valor": {0, 1, 2}}}
	b := Table{Columns: map[string][]float64{"Precipitacion": {0, 1, 2}}}
	c := Table{Columns: map[string][]float64{"valor": {0, 1, 3}}}

	assert.Equal(t, a.SeriesID(), b.SeriesID(), "fingerprint depends on values, not column naming")
	assert.NotEqual(t, a.SeriesID(), c.SeriesID())
	assert.Regexp(t, `^series-[0-9a-f]{16}$`, a.SeriesID())

	origin := time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC)
	d := a
	d.Origin = &origin
	assert.NotEqual(t, a.Fingerprint(), d.Fingerprint())
}

func TestParseRawSeries(t *testing.T) {
	t.Run("payload with id and origin", func(t *testing.T) {
		raw := RawSeries{
			Key:   []byte("key-1"),
			Value: []byte(`{"series_id":"gauge-3","origin":"2021-05-01T00:00:00Z","columns":{"valor":[0,1.5,null,2]}}`),
		}
		table, err := ParseRawSeries(raw)
		require.NoError(t, err)
		assert.Equal(t, "gauge-3", table.ID)
		require.NotNil(t, table.Origin)
		assert.Equal(t, time.Date(2021, 5, 1, 0, 0, 0, 0, time.UTC), *table.Origin)
		values := table.Columns["valor"]
		require.Len(t, values, 4)
		assert.Equal(t, []float64{0, 1.5}, values[:2])
		assert.True(t, math.IsNaN(values[2]), "null reading is a missing sample")
		assert.Equal(t, 2.0, values[3])
	})

	t.Run("unknown field", func(t *testing.T) {
		_, err := ParseRawSeries(RawSeries{Value: []byte(`{"columns":{"valor":[1]},"rows":[]}`)})

		var decodeErr *DecodeError
		require.ErrorAs(t, err, &decodeErr)
		assert.Contains(t, err.Error(), `unknown field "rows"`)
	})

	t.Run("key as fallback id", func(t *testing.T) {
		raw := RawSeries{Key: []byte("gauge-9"), Value: []byte(`{"columns":{"valor":[1]}}`)}
		table, err := ParseRawSeries(raw)
		require.NoError(t, err)
		assert.Equal(t, "gauge-9", table.ID)
		assert.Nil(t, table.Origin)
	})

	t.Run("invalid JSON", func(t *testing.T) {
		_, err := ParseRawSeries(RawSeries{Value: []byte("{invalid")})

		var decodeErr *DecodeError
		require.True(t, errors.As(err, &decodeErr))
		assert.Equal(t, "series message", decodeErr.Source)
		assert.NotNil(t, errors.Unwrap(err))
	})
}

func TestTable_JSONNullReadings(t *testing.T) {
	var table Table
	require.NoError(t, json.Unmarshal([]byte(`{"series_id":"g","columns":{"valor":[1,null,1]}}`), &table))
	values := table.Columns["valor"]
	require.Len(t, values, 3)
	assert.True(t, math.IsNaN(values[1]))

	t.Run("null ends an event under a negative threshold", func(t *testing.T) {
		engine := newTestEngine(t, func(o *Options) { o.Threshold = -1 })
		report, err := engine.Analyze(context.Background(), table)
		require.NoError(t, err)
		require.Len(t, report.Events, 2)
		assert.Equal(t, 1, report.Events[0].SampleCount)
		assert.Equal(t, 2, report.Events[1].StartIndex)
	})

	t.Run("round trip keeps missing readings", func(t *testing.T) {
		data, err := json.Marshal(table)
		require.NoError(t, err)
		assert.JSONEq(t, `{"series_id":"g","columns":{"valor":[1,null,1]}}`, string(data))

		var back Table
		require.NoError(t, json.Unmarshal(data, &back))
		assert.Equal(t, table.Fingerprint(), back.Fingerprint())
	})
}
