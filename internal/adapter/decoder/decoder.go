// Package decoder turns uploaded gauge exports into domain tables. CSV and
// JSON are supported; every failure is reported as a *domain.DecodeError.
package decoder

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/couchcryptid/rainfall-event-etl/internal/domain"
)

// Format names an input encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// ErrUnsupportedFormat is wrapped when the input encoding is not recognized.
var ErrUnsupportedFormat = errors.New("unsupported input format")

// FormatFromPath picks a format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		return FormatCSV, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

// Decode reads a table in the given format. id names the series when the
// payload does not carry its own ID.
func Decode(r io.Reader, format Format, id string) (domain.Table, error) {
	switch format {
	case FormatCSV:
		return DecodeCSV(r, id)
	case FormatJSON:
		table, err := DecodeJSON(r)
		if err != nil {
			return domain.Table{}, err
		}
		if table.ID == "" {
			table.ID = id
		}
		return table, nil
	default:
		return domain.Table{}, &domain.DecodeError{
			Source: string(format),
			Err:    fmt.Errorf("%w: %q", ErrUnsupportedFormat, format),
		}
	}
}

// DecodeFile opens path and decodes it by extension. The file name without
// extension becomes the series ID unless the payload names one.
func DecodeFile(path string) (domain.Table, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return domain.Table{}, &domain.DecodeError{Source: path, Err: err}
	}

	f, err := os.Open(path)
	if err != nil {
		return domain.Table{}, &domain.DecodeError{Source: path, Err: err}
	}
	defer f.Close()

	id := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return Decode(f, format, id)
}

// DecodeCSV reads a header row followed by data rows. Blank cells decode as
// NaN. Columns with non-numeric cells are dropped, except the precipitation
// column, where a bad cell fails the decode with its row and column.
func DecodeCSV(r io.Reader, id string) (domain.Table, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	rows, err := reader.ReadAll()
	if err != nil {
		return domain.Table{}, &domain.DecodeError{Source: "csv", Err: err}
	}
	if len(rows) == 0 {
		return domain.Table{}, &domain.DecodeError{Source: "csv", Err: errors.New("missing header row")}
	}

	header := make([]string, len(rows[0]))
	seen := make(map[string]bool, len(header))
	for i, h := range rows[0] {
		name := strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if seen[name] {
			return domain.Table{}, &domain.DecodeError{Source: "csv", Err: fmt.Errorf("duplicate column %q", name)}
		}
		seen[name] = true
		header[i] = name
	}

	table := domain.Table{ID: id, Columns: make(map[string][]float64, len(header))}
	for col, name := range header {
		values, err := parseColumn(rows[1:], col)
		if err != nil {
			if domain.CanonicalColumn(name) == domain.PrecipitationColumn {
				return domain.Table{}, &domain.DecodeError{Source: "csv", Err: fmt.Errorf("column %q: %w", name, err)}
			}
			continue
		}
		table.Columns[name] = values
	}

	if err := checkPrecipitation(table); err != nil {
		return domain.Table{}, &domain.DecodeError{Source: "csv", Err: err}
	}
	return table, nil
}

// DecodeJSON reads a table object: {"series_id": ..., "origin": ..., "columns": {...}}.
func DecodeJSON(r io.Reader) (domain.Table, error) {
	var table domain.Table
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&table); err != nil {
		return domain.Table{}, &domain.DecodeError{Source: "json", Err: err}
	}
	if err := checkLengths(table); err != nil {
		return domain.Table{}, &domain.DecodeError{Source: "json", Err: err}
	}
	return table, nil
}

func parseColumn(rows [][]string, col int) ([]float64, error) {
	values := make([]float64, len(rows))
	for i, row := range rows {
		cell := strings.TrimSpace(row[col])
		if cell == "" {
			values[i] = math.NaN()
			continue
		}
		v, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			// Data rows are numbered from 2; row 1 is the header.
			return nil, fmt.Errorf("row %d: invalid number %q", i+2, cell)
		}
		values[i] = v
	}
	return values, nil
}

// checkPrecipitation rejects infinite rainfall values, which no event total
// or exported report can represent. NaN is a missing reading and passes.
func checkPrecipitation(table domain.Table) error {
	values, err := table.Precipitation()
	if err != nil {
		return nil
	}
	for i, v := range values {
		if math.IsInf(v, 0) {
			return fmt.Errorf("row %d: precipitation %g is not finite", i+2, v)
		}
	}
	return nil
}

func checkLengths(table domain.Table) error {
	want := -1
	for _, name := range table.ColumnNames() {
		n := len(table.Columns[name])
		if want == -1 {
			want = n
			continue
		}
		if n != want {
			return fmt.Errorf("column %q has %d rows, expected %d", name, n, want)
		}
	}
	return nil
}
