// Package xlsx exports analysis reports as spreadsheet workbooks and reads
// them back for verification.
package xlsx

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/rainfall-event-etl/internal/domain"
	"github.com/xuri/excelize/v2"
)

// Sheet names fixed by the workbook layout. Category sheets are named by SheetName.
const (
	EventsSheet   = "Eventos"
	CountsSheet   = "Conteo"
	PatternsSheet = "Patrones"
	CurvesSheet   = "Curvas"
)

// maxSheetName is the spreadsheet limit on sheet name length, in characters.
const maxSheetName = 31

// EventColumns is the header row of the event sheets.
var EventColumns = []string{
	"Categoria",
	"Inicio",
	"Fin",
	"Duracion (min)",
	"Precipitacion Total",
	"Fecha Maxima Precipitacion",
	"Precipitacion Maxima",
}

var (
	countColumns   = []string{"Categoria", "Cantidad de Eventos"}
	patternColumns = []string{"Grupo", "Eventos", "a", "b", "c", "Ecuacion"}
)

// SheetName derives a sheet name from a category label: spaces become
// underscores and the result is cut to 31 characters.
func SheetName(label string) string {
	name := strings.ReplaceAll(label, " ", "_")
	if r := []rune(name); len(r) > maxSheetName {
		name = string(r[:maxSheetName])
	}
	return name
}

// Build lays out a report as a workbook: every event, one sheet per present
// category, category counts, fitted patterns, and the averaged curves.
// The caller owns the returned file and must Close it.
func Build(report domain.Report) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", EventsSheet); err != nil {
		_ = f.Close()
		return nil, err
	}

	b := &builder{f: f}
	b.writeEvents(EventsSheet, report.Events)

	groups := report.EventsByCategory()
	for _, c := range domain.Categories() {
		events, ok := groups[c]
		if !ok {
			continue
		}
		b.newSheet(SheetName(c.String()))
		b.writeEvents(SheetName(c.String()), events)
	}

	b.newSheet(CountsSheet)
	b.writeCounts(report.Counts)

	b.newSheet(PatternsSheet)
	b.writePatterns(patternsOf(report))

	b.newSheet(CurvesSheet)
	b.writeCurves(patternsOf(report))

	if b.err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("build workbook for %q: %w", report.SeriesID, b.err)
	}
	f.SetActiveSheet(0)
	return f, nil
}

// Write builds the report workbook and streams it to w.
func Write(w io.Writer, report domain.Report) error {
	f, err := Build(report)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook for %q: %w", report.SeriesID, err)
	}
	return nil
}

// patternsOf lists category patterns in category order followed by the overall pattern.
func patternsOf(report domain.Report) []domain.FittedPattern {
	patterns := make([]domain.FittedPattern, 0, len(report.Patterns)+1)
	patterns = append(patterns, report.Patterns...)
	if report.Overall != nil {
		patterns = append(patterns, *report.Overall)
	}
	return patterns
}

// builder accumulates the first error so the layout code reads top to bottom.
type builder struct {
	f   *excelize.File
	err error
}

func (b *builder) newSheet(name string) {
	if b.err != nil {
		return
	}
	_, b.err = b.f.NewSheet(name)
}

func (b *builder) row(sheet string, row int, values []any) {
	if b.err != nil {
		return
	}
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		b.err = err
		return
	}
	b.err = b.f.SetSheetRow(sheet, cell, &values)
}

func (b *builder) header(sheet string, columns []string) {
	values := make([]any, len(columns))
	for i, c := range columns {
		values[i] = c
	}
	b.row(sheet, 1, values)
}

func (b *builder) writeEvents(sheet string, events []domain.EventSummary) {
	b.header(sheet, EventColumns)
	for i, e := range events {
		b.row(sheet, i+2, []any{
			e.Category.String(),
			e.Start,
			e.End,
			e.DurationMinutes,
			e.TotalPrecipitation,
			e.PeakTime,
			e.PeakValue,
		})
	}
}

func (b *builder) writeCounts(counts []domain.CategoryCount) {
	b.header(CountsSheet, countColumns)
	for i, c := range counts {
		b.row(CountsSheet, i+2, []any{c.Category.String(), c.Count})
	}
}

func (b *builder) writePatterns(patterns []domain.FittedPattern) {
	b.header(PatternsSheet, patternColumns)
	for i, p := range patterns {
		b.row(PatternsSheet, i+2, []any{
			p.Group,
			p.EventCount,
			p.Coefficients[0],
			p.Coefficients[1],
			p.Coefficients[2],
			p.Equation(),
		})
	}
}

// writeCurves lays out the averaged curve of each pattern as one column
// against the shared time grid.
func (b *builder) writeCurves(patterns []domain.FittedPattern) {
	columns := make([]string, 0, len(patterns)+1)
	columns = append(columns, "t")
	points := 0
	for _, p := range patterns {
		columns = append(columns, p.Group)
		points = max(points, len(p.Average))
	}
	b.header(CurvesSheet, columns)

	grid := domain.TimeGrid(points)
	for i, t := range grid {
		values := make([]any, 0, len(columns))
		values = append(values, t)
		for _, p := range patterns {
			if i < len(p.Average) {
				values = append(values, p.Average[i])
			} else {
				values = append(values, nil)
			}
		}
		b.row(CurvesSheet, i+2, values)
	}
}

// Workbook is a workbook read back as raw cell text, keyed by sheet name.
type Workbook struct {
	Sheets []string
	Rows   map[string][][]string
}

// Read loads every sheet of a workbook with unformatted cell values, so
// numbers and dates come back as their stored text.
func Read(r io.Reader) (Workbook, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return Workbook{}, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	wb := Workbook{Sheets: f.GetSheetList(), Rows: make(map[string][][]string)}
	for _, sheet := range wb.Sheets {
		rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
		if err != nil {
			return Workbook{}, fmt.Errorf("read sheet %q: %w", sheet, err)
		}
		wb.Rows[sheet] = rows
	}
	return wb, nil
}

// ParseTime converts a raw date cell back into a UTC time, rounded to the second.
func ParseTime(cell string) (time.Time, error) {
	serial, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("date cell %q: %w", cell, err)
	}
	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return time.Time{}, fmt.Errorf("date cell %q: %w", cell, err)
	}
	return t.UTC().Round(time.Second), nil
}

// ParseFloat converts a raw numeric cell.
func ParseFloat(cell string) (float64, error) {
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return 0, fmt.Errorf("numeric cell %q: %w", cell, err)
	}
	return v, nil
}
