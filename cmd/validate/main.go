// Command validate performs end-to-end integrity checks on an exported
// workbook: it re-analyzes the source series, then verifies the workbook's
// event rows, category sheets, counts, and patterns against the fresh
// report, along with the curve invariants of the report itself. When a
// second encoding of the series is given, both encodings must agree.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -series data/mock/rainfall_series.csv \
//	  -series-json data/mock/rainfall_series.json \
//	  -workbook eventos_detectados.xlsx
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"slices"
	"strconv"

	"github.com/couchcryptid/rainfall-event-etl/internal/adapter/decoder"
	"github.com/couchcryptid/rainfall-event-etl/internal/adapter/xlsx"
	"github.com/couchcryptid/rainfall-event-etl/internal/domain"
)

// tolerance is the relative error allowed when comparing stored numbers.
const tolerance = 1e-9

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	seriesPath := flag.String("series", "", "series file the workbook was exported from (.csv or .json)")
	seriesJSON := flag.String("series-json", "", "optional second encoding of the same series to check for parity")
	workbookPath := flag.String("workbook", "", "exported xlsx workbook")
	policy := flag.String("policy", string(domain.PolicyLegacy), "classification policy used for the export")
	flag.Parse()

	if *seriesPath == "" || *workbookPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(os.Stdout, *seriesPath, *seriesJSON, *workbookPath, *policy); code != 0 {
		os.Exit(code)
	}
}

func run(out io.Writer, seriesPath, seriesJSONPath, workbookPath, policyName string) int {
	fmt.Fprintln(out, "=== Rainfall Export Validation ===")
	fmt.Fprintln(out)

	// ── Load all data sources ──
	policy, err := domain.ParseClassificationPolicy(policyName)
	if err != nil {
		fmt.Fprintf(out, "FATAL: %v\n", err)
		return 1
	}

	table, err := decoder.DecodeFile(seriesPath)
	if err != nil {
		fmt.Fprintf(out, "FATAL: load series: %v\n", err)
		return 1
	}

	var tableJSON *domain.Table
	if seriesJSONPath != "" {
		t, err := decoder.DecodeFile(seriesJSONPath)
		if err != nil {
			fmt.Fprintf(out, "FATAL: load series JSON: %v\n", err)
			return 1
		}
		tableJSON = &t
	}

	wb, err := loadWorkbook(workbookPath)
	if err != nil {
		fmt.Fprintf(out, "FATAL: load workbook: %v\n", err)
		return 1
	}

	opts := domain.DefaultOptions()
	opts.Policy = policy
	engine, err := domain.NewEngine(opts, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		fmt.Fprintf(out, "FATAL: %v\n", err)
		return 1
	}
	report, err := engine.Analyze(context.Background(), table)
	if err != nil {
		fmt.Fprintf(out, "FATAL: analyze series: %v\n", err)
		return 1
	}

	// ── Run validation phases ──
	phases := []*phase{
		validateSourceParity(table, tableJSON),
		validateEventSheet(wb, report),
		validateCategorySheets(wb, report),
		validateCounts(wb, report),
		validatePatterns(wb, report),
		validateCurveInvariants(report),
	}

	// ── Report results ──
	fmt.Fprintln(out)
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(out, "  %-42s %s\n", p.name, status)
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Series %s: %d samples, %d events, %d sheets\n",
		report.SeriesID, report.SampleCount, len(report.Events), len(wb.Sheets))

	// Print detailed errors.
	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(out, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(out, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintln(out, "\nAll validations passed.")
		return 0
	}
	fmt.Fprintln(out, "\nValidation FAILED.")
	return 1
}

func loadWorkbook(path string) (xlsx.Workbook, error) {
	f, err := os.Open(path)
	if err != nil {
		return xlsx.Workbook{}, err
	}
	defer f.Close()
	return xlsx.Read(f)
}

// ── Phase: source parity ──

func validateSourceParity(table domain.Table, other *domain.Table) *phase {
	p := &phase{name: "Source parity (CSV ↔ JSON)"}
	if other == nil {
		return p
	}

	a, errA := table.Precipitation()
	b, errB := other.Precipitation()
	if errA != nil || errB != nil {
		p.errorf("precipitation column: %v / %v", errA, errB)
		return p
	}
	if len(a) != len(b) {
		p.errorf("sample count: %d vs %d", len(a), len(b))
		return p
	}
	for i := range a {
		if !sameValue(a[i], b[i]) {
			p.errorf("sample %d: %g vs %g", i, a[i], b[i])
		}
	}
	return p
}

// ── Phase: event sheet ──

func validateEventSheet(wb xlsx.Workbook, report domain.Report) *phase {
	p := &phase{name: "Event sheet (" + xlsx.EventsSheet + ")"}
	checkEventRows(p, wb, xlsx.EventsSheet, report.Events)
	return p
}

func checkEventRows(p *phase, wb xlsx.Workbook, sheet string, events []domain.EventSummary) {
	rows, ok := wb.Rows[sheet]
	if !ok {
		p.errorf("sheet %q missing", sheet)
		return
	}
	if len(rows) == 0 || !slices.Equal(rows[0], xlsx.EventColumns) {
		p.errorf("%s: unexpected header %v", sheet, firstRow(rows))
		return
	}
	if len(rows)-1 != len(events) {
		p.errorf("%s: %d rows, expected %d events", sheet, len(rows)-1, len(events))
		return
	}
	for i, e := range events {
		checkEventRow(p, sheet, i+2, rows[i+1], e)
	}
}

func checkEventRow(p *phase, sheet string, rowNum int, row []string, e domain.EventSummary) {
	if len(row) < len(xlsx.EventColumns) {
		p.errorf("%s row %d: %d cells, expected %d", sheet, rowNum, len(row), len(xlsx.EventColumns))
		return
	}
	if row[0] != e.Category.String() {
		p.errorf("%s row %d: category %q, expected %q", sheet, rowNum, row[0], e.Category)
	}
	checkTimeCell(p, sheet, rowNum, "Inicio", row[1], e.Start.Unix())
	checkTimeCell(p, sheet, rowNum, "Fin", row[2], e.End.Unix())
	checkFloatCell(p, sheet, rowNum, "Duracion (min)", row[3], e.DurationMinutes)
	checkFloatCell(p, sheet, rowNum, "Precipitacion Total", row[4], e.TotalPrecipitation)
	checkTimeCell(p, sheet, rowNum, "Fecha Maxima Precipitacion", row[5], e.PeakTime.Unix())
	checkFloatCell(p, sheet, rowNum, "Precipitacion Maxima", row[6], e.PeakValue)
}

// ── Phase: category sheets ──

func validateCategorySheets(wb xlsx.Workbook, report domain.Report) *phase {
	p := &phase{name: "Category sheets"}
	groups := report.EventsByCategory()
	for _, c := range domain.Categories() {
		sheet := xlsx.SheetName(c.String())
		events, present := groups[c]
		_, exists := wb.Rows[sheet]
		switch {
		case present:
			checkEventRows(p, wb, sheet, events)
		case exists:
			p.errorf("sheet %q exists but category has no events", sheet)
		}
	}
	return p
}

// ── Phase: counts ──

func validateCounts(wb xlsx.Workbook, report domain.Report) *phase {
	p := &phase{name: "Category counts (" + xlsx.CountsSheet + ")"}
	rows, ok := wb.Rows[xlsx.CountsSheet]
	if !ok {
		p.errorf("sheet %q missing", xlsx.CountsSheet)
		return p
	}
	if len(rows)-1 != len(report.Counts) {
		p.errorf("%d count rows, expected %d", len(rows)-1, len(report.Counts))
		return p
	}

	total := 0
	for i, c := range report.Counts {
		row := rows[i+1]
		if len(row) < 2 || row[0] != c.Category.String() || row[1] != strconv.Itoa(c.Count) {
			p.errorf("row %d: %v, expected [%s %d]", i+2, row, c.Category, c.Count)
		}
		total += c.Count
	}
	if total != len(report.Events) {
		p.errorf("counts sum to %d, but %d events were detected", total, len(report.Events))
	}
	return p
}

// ── Phase: patterns ──

func validatePatterns(wb xlsx.Workbook, report domain.Report) *phase {
	p := &phase{name: "Pattern coefficients (" + xlsx.PatternsSheet + ")"}
	rows, ok := wb.Rows[xlsx.PatternsSheet]
	if !ok {
		p.errorf("sheet %q missing", xlsx.PatternsSheet)
		return p
	}

	patterns := slices.Clone(report.Patterns)
	if report.Overall != nil {
		patterns = append(patterns, *report.Overall)
	}
	if len(rows)-1 != len(patterns) {
		p.errorf("%d pattern rows, expected %d", len(rows)-1, len(patterns))
		return p
	}

	for i, fp := range patterns {
		row := rows[i+1]
		rowNum := i + 2
		if len(row) < 6 {
			p.errorf("row %d: %d cells, expected 6", rowNum, len(row))
			continue
		}
		if row[0] != fp.Group {
			p.errorf("row %d: group %q, expected %q", rowNum, row[0], fp.Group)
		}
		if row[1] != strconv.Itoa(fp.EventCount) {
			p.errorf("row %d: event count %s, expected %d", rowNum, row[1], fp.EventCount)
		}
		for k, name := range []string{"a", "b", "c"} {
			checkFloatCell(p, xlsx.PatternsSheet, rowNum, name, row[2+k], fp.Coefficients[k])
		}
		if row[5] != fp.Equation() {
			p.errorf("row %d: equation %q, expected %q", rowNum, row[5], fp.Equation())
		}
	}
	return p
}

// ── Phase: curve invariants ──

func validateCurveInvariants(report domain.Report) *phase {
	p := &phase{name: "Curve invariants"}
	for _, c := range report.Curves {
		checkCurve(p, fmt.Sprintf("event %d", c.EventIndex), c.Curve)
	}
	for _, fp := range report.Patterns {
		checkCurve(p, "average "+fp.Group, fp.Average)
	}
	if report.Overall != nil {
		checkCurve(p, "average overall", report.Overall.Average)
		if report.Overall.EventCount != len(report.Curves) {
			p.errorf("overall pattern covers %d events, expected %d", report.Overall.EventCount, len(report.Curves))
		}
	}
	return p
}

func checkCurve(p *phase, label string, curve domain.NormalizedCurve) {
	if len(curve) == 0 {
		p.errorf("%s: empty curve", label)
		return
	}
	if curve[0] < -tolerance {
		p.errorf("%s: starts at %g", label, curve[0])
	}
	if math.Abs(curve[len(curve)-1]-1) > tolerance {
		p.errorf("%s: ends at %g, expected 1", label, curve[len(curve)-1])
	}
	for i := 1; i < len(curve); i++ {
		if curve[i] < curve[i-1]-tolerance {
			p.errorf("%s: decreases at point %d (%g < %g)", label, i, curve[i], curve[i-1])
			return
		}
	}
}

// ── Helpers ──

func checkTimeCell(p *phase, sheet string, row int, column, cell string, wantUnix int64) {
	got, err := xlsx.ParseTime(cell)
	if err != nil {
		p.errorf("%s row %d %s: %v", sheet, row, column, err)
		return
	}
	if got.Unix() != wantUnix {
		p.errorf("%s row %d %s: %s, expected unix %d", sheet, row, column, got, wantUnix)
	}
}

func checkFloatCell(p *phase, sheet string, row int, column, cell string, want float64) {
	got, err := xlsx.ParseFloat(cell)
	if err != nil {
		p.errorf("%s row %d %s: %v", sheet, row, column, err)
		return
	}
	if math.Abs(got-want) > tolerance*math.Max(1, math.Abs(want)) {
		p.errorf("%s row %d %s: %g, expected %g", sheet, row, column, got, want)
	}
}

func sameValue(a, b float64) bool {
	if math.IsNaN(a) || math.IsNaN(b) {
		return math.IsNaN(a) && math.IsNaN(b)
	}
	return a == b
}

func firstRow(rows [][]string) []string {
	if len(rows) == 0 {
		return nil
	}
	return rows[0]
}
