package decoder

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/couchcryptid/rainfall-event-etl/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeCSV(t *testing.T) {
	input := "fecha,valor,temperatura\n" +
		"2000-01-01 00:00:00,0,12.5\n" +
		"2000-01-01 00:05:00,1.5,12.4\n" +
		"2000-01-01 00:10:00,,12.1\n"

	table, err := DecodeCSV(strings.NewReader(input), "gauge-3")
	require.NoError(t, err)

	assert.Equal(t, "gauge-3", table.ID)
	assert.Equal(t, []string{"temperatura", "valor"}, table.ColumnNames())

	values, err := table.Precipitation()
	require.NoError(t, err)
	require.Len(t, values, 3)
	assert.InDelta(t, 0.0, values[0], 0)
	assert.InDelta(t, 1.5, values[1], 0)
	assert.True(t, math.IsNaN(values[2]))
}

func TestDecodeCSV_CanonicalHeaderWithBOM(t *testing.T) {
	table, err := DecodeCSV(strings.NewReader("\ufeffPrecipitacion\n0.2\n0.4\n"), "")
	require.NoError(t, err)

	values, err := table.Precipitation()
	require.NoError(t, err)
	assert.Equal(t, []float64{0.2, 0.4}, values)
}

func TestDecodeCSV_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantMsg string
	}{
		{"empty", "", "missing header row"},
		{"ragged rows", "valor,otro\n1,2\n3\n", "wrong number of fields"},
		{"bad precipitation", "fecha,valor\nx,1\ny,lluvia\n", `column "valor": row 3: invalid number "lluvia"`},
		{"infinite precipitation", "valor\n1\n+Inf\n", "row 3: precipitation +Inf is not finite"},
		{"duplicate column", "valor,valor\n1,2\n", `duplicate column "valor"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeCSV(strings.NewReader(tt.input), "x")
			var decodeErr *domain.DecodeError
			require.ErrorAs(t, err, &decodeErr)
			assert.Equal(t, "csv", decodeErr.Source)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestDecodeCSV_MissingPrecipitationIsNotADecodeError(t *testing.T) {
	table, err := DecodeCSV(strings.NewReader("fecha,temperatura\na,1\n"), "x")
	require.NoError(t, err)

	_, err = table.Precipitation()
	var missing *domain.MissingColumnError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, []string{"temperatura"}, missing.Available)
}

func TestDecodeJSON(t *testing.T) {
	input := `{"series_id":"s-1","origin":"2010-03-01T06:00:00Z","columns":{"valor":[0,0.5,1]}}`

	table, err := DecodeJSON(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, "s-1", table.ID)
	require.NotNil(t, table.Origin)
	assert.Equal(t, 2010, table.Origin.Year())
	assert.Equal(t, []float64{0, 0.5, 1}, table.Columns["valor"])
}

func TestDecodeJSON_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantMsg string
	}{
		{"malformed", `{"columns":`, "unexpected EOF"},
		{"unknown field", `{"rows":[]}`, `unknown field "rows"`},
		{"ragged columns", `{"columns":{"a":[1,2],"b":[1]}}`, `column "b" has 1 rows, expected 2`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeJSON(strings.NewReader(tt.input))
			var decodeErr *domain.DecodeError
			require.ErrorAs(t, err, &decodeErr)
			assert.Equal(t, "json", decodeErr.Source)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestDecode_UnsupportedFormat(t *testing.T) {
	_, err := Decode(strings.NewReader(""), Format("sav"), "x")
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestDecode_JSONFallsBackToGivenID(t *testing.T) {
	table, err := Decode(strings.NewReader(`{"columns":{"valor":[1]}}`), FormatJSON, "upload")
	require.NoError(t, err)
	assert.Equal(t, "upload", table.ID)
}

func TestFormatFromPath(t *testing.T) {
	tests := []struct {
		path string
		want Format
		ok   bool
	}{
		{"data/series.csv", FormatCSV, true},
		{"SERIES.CSV", FormatCSV, true},
		{"series.json", FormatJSON, true},
		{"series.sav", "", false},
		{"series", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := FormatFromPath(tt.path)
			if !tt.ok {
				require.ErrorIs(t, err, ErrUnsupportedFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeFile_MockSeries(t *testing.T) {
	table, err := DecodeFile(filepath.Join("..", "..", "..", "data", "mock", "rainfall_series.csv"))
	require.NoError(t, err)

	assert.Equal(t, "rainfall_series", table.ID)
	assert.Equal(t, []string{"valor"}, table.ColumnNames())
	values, err := table.Precipitation()
	require.NoError(t, err)
	assert.Len(t, values, 144)
}

func TestDecodeFile_Errors(t *testing.T) {
	dir := t.TempDir()

	sav := filepath.Join(dir, "series.sav")
	require.NoError(t, os.WriteFile(sav, []byte("binary"), 0o600))

	_, err := DecodeFile(sav)
	var decodeErr *domain.DecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.Equal(t, sav, decodeErr.Source)
	require.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = DecodeFile(filepath.Join(dir, "missing.csv"))
	require.ErrorAs(t, err, &decodeErr)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
