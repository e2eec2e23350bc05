// Command analyze runs the rainfall event analysis on one series file and
// writes the report as JSON and/or an xlsx workbook.
//
// Usage:
//
//	go run ./cmd/analyze \
//	  -in data/mock/rainfall_series.csv \
//	  -out-xlsx eventos_detectados.xlsx \
//	  -out-json report.json
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/rainfall-event-etl/internal/adapter/decoder"
	"github.com/couchcryptid/rainfall-event-etl/internal/adapter/xlsx"
	"github.com/couchcryptid/rainfall-event-etl/internal/domain"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		log.Fatal(err)
	}
}

func run(args []string, stdout io.Writer) error {
	defaults := domain.DefaultOptions()

	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	in := fs.String("in", "", "series file to analyze (.csv or .json)")
	outXLSX := fs.String("out-xlsx", "", "output path for the xlsx workbook")
	outJSON := fs.String("out-json", "", "output path for the JSON report")
	seriesID := fs.String("series-id", "", "series ID (defaults to the file name)")
	origin := fs.String("origin", defaults.Origin.Format(time.RFC3339), "timestamp of the first sample (RFC 3339)")
	interval := fs.Duration("interval", defaults.Interval, "sampling interval")
	threshold := fs.Float64("threshold", defaults.Threshold, "rain threshold; samples strictly above it are rain")
	points := fs.Int("points", defaults.CurvePoints, "resampled curve length")
	policy := fs.String("policy", string(defaults.Policy), "classification policy: legacy or inclusive")
	verbose := fs.Bool("v", false, "log per-event warnings")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *in == "" {
		fs.Usage()
		return fmt.Errorf("missing required flag: -in")
	}

	originTime, err := time.Parse(time.RFC3339, *origin)
	if err != nil {
		return fmt.Errorf("invalid -origin: %w", err)
	}
	parsedPolicy, err := domain.ParseClassificationPolicy(*policy)
	if err != nil {
		return fmt.Errorf("invalid -policy: %w", err)
	}

	level := slog.LevelError
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	engine, err := domain.NewEngine(domain.Options{
		Origin:      originTime,
		Interval:    *interval,
		Threshold:   *threshold,
		CurvePoints: *points,
		Policy:      parsedPolicy,
	}, logger)
	if err != nil {
		return err
	}

	table, err := decoder.DecodeFile(*in)
	if err != nil {
		return err
	}
	if *seriesID != "" {
		table.ID = *seriesID
	}

	report, err := engine.Analyze(context.Background(), table)
	if err != nil {
		return fmt.Errorf("analyze %s: %w", *in, err)
	}

	if *outJSON != "" {
		if err := writeJSON(*outJSON, report); err != nil {
			return fmt.Errorf("writing JSON report: %w", err)
		}
	}
	if *outXLSX != "" {
		if err := writeWorkbook(*outXLSX, report); err != nil {
			return fmt.Errorf("writing workbook: %w", err)
		}
	}

	printSummary(stdout, report)
	return nil
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}

func writeWorkbook(path string, report domain.Report) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := xlsx.Write(f, report); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func printSummary(w io.Writer, report domain.Report) {
	fmt.Fprintf(w, "Series %s: %d samples, %d events\n", report.SeriesID, report.SampleCount, len(report.Events))

	fmt.Fprintln(w, "\nEvents by category:")
	for _, c := range report.Counts {
		fmt.Fprintf(w, "  %-10s %d\n", c.Category, c.Count)
	}

	if len(report.ExcludedEvents) > 0 {
		fmt.Fprintf(w, "\nExcluded from curves (unusable totals): %v\n", report.ExcludedEvents)
	}

	fmt.Fprintln(w, "\nSynthetic patterns:")
	for _, p := range report.Patterns {
		fmt.Fprintf(w, "  %-10s (%d events)  %s\n", p.Group, p.EventCount, p.Equation())
	}
	if report.Overall != nil {
		fmt.Fprintf(w, "  %-10s (%d events)  %s\n", report.Overall.Group, report.Overall.EventCount, report.Overall.Equation())
	}
}
