// Package domain models rainfall event analysis over a regularly sampled
// precipitation series.
//
// # Data Source
//
// Series originate from statistical data files exported by rain gauge
// networks. An upstream decoder turns each file into a column table and
// publishes it as JSON to the Kafka source topic (or hands it to the CLI).
// Rows carry no native timestamp; the table is implicitly time ordered.
//
// # Column Conventions
//
// The precipitation column is named "Precipitacion". Gauge exports use the
// short name "valor", which is accepted as an alias, and "fecha" is accepted
// for "Fecha". Values are millimeters per sampling interval. Missing cells
// (blank CSV cells, JSON nulls) decode as NaN, which is never above the
// threshold, so they never belong to an event. See [Table.Precipitation].
//
// # Timestamps
//
// Sample i is stamped origin + i*interval. The default origin is
// 2000-01-01T00:00:00Z and the default interval is 5 minutes. See
// [SynthesizeTimestamps].
//
// # Events
//
// An event is a maximal run of consecutive samples whose value is strictly
// greater than the threshold (0 by default). Events never overlap and the
// gaps between them hold only sub-threshold samples. See [SegmentEvents].
//
// # Duration Categories
//
//	d < 30          <30min
//	30 < d <= 60    30-60min
//	60 < d <= 120   60-120min
//	120 < d <= 180  120-180min
//	otherwise       >180min
//
// Under the legacy policy an event lasting exactly 30 minutes matches none
// of the bounded ranges and lands in >180min. The inclusive policy closes
// the gap (30 <= d <= 60). See [Classify].
//
// # Accumulation Curves
//
// Each event's cumulative rainfall is divided by its total and plotted
// against time scaled to [0,1], then resampled by linear interpolation onto
// a fixed grid of 100 points. Curves are averaged per category and overall,
// and a least-squares quadratic
//
//	P*(t) = a·t² + b·t + c
//
// is fitted to each average. Categories without curves produce no pattern.
package domain
