package domain

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"math"
	"sort"
	"strings"
	"time"
)

const (
	// PrecipitationColumn holds rainfall in millimeters per interval.
	PrecipitationColumn = "Precipitacion"
	// DateColumn holds the gauge's own date labels, which the analysis ignores.
	DateColumn = "Fecha"
)

// columnAliases maps gauge export names to canonical column names.
var columnAliases = map[string]string{
	"valor": PrecipitationColumn,
	"fecha": DateColumn,
}

// CanonicalColumn resolves a column name through the alias table.
func CanonicalColumn(name string) string {
	if canonical, ok := columnAliases[name]; ok {
		return canonical
	}
	return name
}

// Table is a decoded series: numeric columns of equal length, in row order.
// Origin, when set, overrides the configured timestamp origin.
type Table struct {
	ID      string               `json:"series_id"`
	Origin  *time.Time           `json:"origin,omitempty"`
	Columns map[string][]float64 `json:"columns"`
}

// ColumnNames returns the table's column names in sorted order.
func (t Table) ColumnNames() []string {
	names := make([]string, 0, len(t.Columns))
	for name := range t.Columns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Column returns the column with the given canonical name. An exact match
// wins over an aliased one.
func (t Table) Column(name string) ([]float64, bool) {
	if values, ok := t.Columns[name]; ok {
		return values, true
	}
	for _, raw := range t.ColumnNames() {
		if CanonicalColumn(raw) == name {
			return t.Columns[raw], true
		}
	}
	return nil, false
}

// Precipitation returns the rainfall column or a *MissingColumnError.
func (t Table) Precipitation() ([]float64, error) {
	values, ok := t.Column(PrecipitationColumn)
	if !ok {
		return nil, &MissingColumnError{Column: PrecipitationColumn, Available: t.ColumnNames()}
	}
	return values, nil
}

// Fingerprint returns a deterministic identifier derived from the table's
// precipitation values and origin. Identical uploads share a fingerprint,
// which makes it usable both as a fallback series ID and as a cache key.
func (t Table) Fingerprint() string {
	h := sha256.New()
	if t.Origin != nil {
		h.Write([]byte(t.Origin.UTC().Format(time.RFC3339Nano)))
	}
	h.Write([]byte{0})
	values, _ := t.Precipitation()
	var buf [8]byte
	for _, v := range values {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
		h.Write(buf[:])
	}
	return hex.EncodeToString(h.Sum(nil)[:8])
}

// SeriesID returns the table's ID, falling back to "series-<fingerprint>".
func (t Table) SeriesID() string {
	if id := strings.TrimSpace(t.ID); id != "" {
		return id
	}
	return "series-" + t.Fingerprint()
}

// tableJSON is the wire form of a Table. A null reading is a missing sample.
type tableJSON struct {
	ID      string                `json:"series_id"`
	Origin  *time.Time            `json:"origin,omitempty"`
	Columns map[string][]*float64 `json:"columns"`
}

// MarshalJSON encodes NaN readings as null.
func (t Table) MarshalJSON() ([]byte, error) {
	wire := tableJSON{ID: t.ID, Origin: t.Origin}
	if t.Columns != nil {
		wire.Columns = make(map[string][]*float64, len(t.Columns))
		for name, values := range t.Columns {
			col := make([]*float64, len(values))
			for i := range values {
				if !math.IsNaN(values[i]) {
					col[i] = &values[i]
				}
			}
			wire.Columns[name] = col
		}
	}
	return json.Marshal(wire)
}

// UnmarshalJSON decodes null readings as NaN and rejects unknown fields.
func (t *Table) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}

	var wire tableJSON
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&wire); err != nil {
		return err
	}

	table := Table{ID: wire.ID, Origin: wire.Origin}
	if wire.Columns != nil {
		table.Columns = make(map[string][]float64, len(wire.Columns))
		for name, col := range wire.Columns {
			values := make([]float64, len(col))
			for i, v := range col {
				if v == nil {
					values[i] = math.NaN()
					continue
				}
				values[i] = *v
			}
			table.Columns[name] = values
		}
	}
	*t = table
	return nil
}
