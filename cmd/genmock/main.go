// Command genmock generates the rainfall series fixtures used by the test
// suites, as CSV (gauge export layout) and JSON (series message layout). It
// runs the generated series through the actual domain package and prints
// the figures the tests assert on.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -csv-out data/mock/rainfall_series.csv \
//	  -json-out data/mock/rainfall_series.json
//
// Pass -random-events N (and optionally -seed) for a larger random series.
package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"

	"github.com/couchcryptid/rainfall-event-etl/internal/domain"
)

const (
	seriesID     = "mock-rainfall"
	leadingDry   = 2
	gapBetween   = 3
	csvTimestamp = "2006-01-02 15:04:05"
)

// fixtureLengths are the event lengths in samples of the fixed fixture. At
// five minutes per sample they cover every category, including the 30 minute
// boundary.
var fixtureLengths = []int{2, 4, 6, 7, 12, 20, 30, 40}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	csvOut := flag.String("csv-out", "", "output path for the CSV fixture")
	jsonOut := flag.String("json-out", "", "output path for the JSON fixture")
	randomEvents := flag.Int("random-events", 0, "generate this many random events instead of the fixed fixture")
	seed := flag.Uint64("seed", 1, "seed for -random-events")
	flag.Parse()

	if *csvOut == "" || *jsonOut == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: -csv-out, -json-out")
	}

	values := fixtureSeries()
	if *randomEvents > 0 {
		values = randomSeries(*randomEvents, rand.New(rand.NewPCG(*seed, *seed)))
	}
	opts := domain.DefaultOptions()

	if err := writeCSV(*csvOut, values, opts); err != nil {
		return fmt.Errorf("writing CSV fixture: %w", err)
	}
	log.Printf("wrote CSV fixture: %s (%d samples)", *csvOut, len(values))

	table := domain.Table{ID: seriesID, Columns: map[string][]float64{"valor": values}}
	if err := writeJSON(*jsonOut, table); err != nil {
		return fmt.Errorf("writing JSON fixture: %w", err)
	}
	log.Printf("wrote JSON fixture: %s", *jsonOut)

	return printStats(table, opts)
}

// fixtureSeries lays out fixtureLengths separated by dry gaps, starting dry
// and ending inside the last event.
func fixtureSeries() []float64 {
	values := make([]float64, leadingDry)
	for k, n := range fixtureLengths {
		for j := range n {
			values = append(values, tenths(2+(j*7+n+k)%9))
		}
		if k < len(fixtureLengths)-1 {
			values = append(values, make([]float64, gapBetween)...)
		}
	}
	return values
}

func randomSeries(events int, rng *rand.Rand) []float64 {
	var values []float64
	for range events {
		values = append(values, make([]float64, 1+rng.IntN(6))...)
		for range 1 + rng.IntN(48) {
			values = append(values, tenths(1+rng.IntN(20)))
		}
	}
	return values
}

// tenths returns n/10.
func tenths(n int) float64 {
	return float64(n) / 10
}

func writeCSV(path string, values []float64, opts domain.Options) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	w := csv.NewWriter(f)
	w.Write([]string{"fecha", "valor"}) //nolint:errcheck // checked via w.Error
	for i, ts := range domain.SynthesizeTimestamps(len(values), opts.Origin, opts.Interval) {
		w.Write([]string{ts.Format(csvTimestamp), strconv.FormatFloat(values[i], 'f', 1, 64)}) //nolint:errcheck // checked via w.Error
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
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

func printStats(table domain.Table, opts domain.Options) error {
	fmt.Println("\n=== Stats for updating test assertions ===")
	for _, policy := range []domain.ClassificationPolicy{domain.PolicyLegacy, domain.PolicyInclusive} {
		opts.Policy = policy
		engine, err := domain.NewEngine(opts, slog.New(slog.NewTextHandler(io.Discard, nil)))
		if err != nil {
			return err
		}
		report, err := engine.Analyze(context.Background(), table)
		if err != nil {
			return err
		}

		fmt.Printf("\nPolicy %s: %d samples, %d events\n", policy, report.SampleCount, len(report.Events))
		for _, c := range report.Counts {
			fmt.Printf("  %-10s %d\n", c.Category, c.Count)
		}
		if policy != domain.PolicyLegacy {
			continue
		}
		for _, e := range report.Events {
			fmt.Printf("  event %d: start=%d duration=%gmin total=%.1f peak=%.1f\n",
				e.Index, e.StartIndex, e.DurationMinutes, e.TotalPrecipitation, e.PeakValue)
		}
		for _, p := range report.Patterns {
			fmt.Printf("  %s\n", p.Equation())
		}
	}
	return nil
}
