package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/couchcryptid/rainfall-event-etl/internal/domain"
	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	KafkaBrokers     []string
	KafkaSourceTopic string
	KafkaSinkTopic   string
	KafkaGroupID     string
	HTTPAddr         string
	LogLevel         string
	LogFormat        string
	ShutdownTimeout  time.Duration

	BatchSize          int
	BatchFlushInterval time.Duration

	// Analysis configuration.
	SeriesOrigin         time.Time
	SampleInterval       time.Duration
	RainThreshold        float64
	CurvePoints          int
	ClassificationPolicy domain.ClassificationPolicy

	// Workbook export and report caching.
	ExportDir       string
	ReportCacheSize int
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	origin, err := time.Parse(time.RFC3339, sharedcfg.EnvOrDefault("SERIES_ORIGIN", "2000-01-01T00:00:00Z"))
	if err != nil {
		return nil, fmt.Errorf("invalid SERIES_ORIGIN: %w", err)
	}

	interval, err := time.ParseDuration(sharedcfg.EnvOrDefault("SAMPLE_INTERVAL", "5m"))
	if err != nil || interval <= 0 {
		return nil, errors.New("invalid SAMPLE_INTERVAL")
	}

	threshold, err := strconv.ParseFloat(sharedcfg.EnvOrDefault("RAIN_THRESHOLD", "0"), 64)
	if err != nil || math.IsNaN(threshold) || math.IsInf(threshold, 0) {
		return nil, errors.New("invalid RAIN_THRESHOLD: must be a finite number")
	}

	curvePoints, err := strconv.Atoi(sharedcfg.EnvOrDefault("CURVE_POINTS", strconv.Itoa(domain.DefaultCurvePoints)))
	if err != nil || curvePoints < 3 {
		return nil, errors.New("invalid CURVE_POINTS: must be an integer >= 3")
	}

	policy, err := domain.ParseClassificationPolicy(sharedcfg.EnvOrDefault("CLASSIFICATION_POLICY", string(domain.PolicyLegacy)))
	if err != nil {
		return nil, fmt.Errorf("invalid CLASSIFICATION_POLICY: %w", err)
	}

	cfg := &Config{
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic:   sharedcfg.EnvOrDefault("KAFKA_SOURCE_TOPIC", "rainfall-series"),
		KafkaSinkTopic:     sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "rainfall-event-reports"),
		KafkaGroupID:       sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "rainfall-etl"),
		HTTPAddr:           sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		SeriesOrigin:         origin,
		SampleInterval:       interval,
		RainThreshold:        threshold,
		CurvePoints:          curvePoints,
		ClassificationPolicy: policy,

		ExportDir:       os.Getenv("EXPORT_DIR"),
		ReportCacheSize: parseReportCacheSize(),
	}

	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.KafkaSourceTopic == "" {
		return nil, errors.New("KAFKA_SOURCE_TOPIC is required")
	}
	if cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_SINK_TOPIC is required")
	}

	return cfg, nil
}

// AnalysisOptions converts the analysis settings into engine options.
func (c *Config) AnalysisOptions() domain.Options {
	return domain.Options{
		Origin:      c.SeriesOrigin,
		Interval:    c.SampleInterval,
		Threshold:   c.RainThreshold,
		CurvePoints: c.CurvePoints,
		Policy:      c.ClassificationPolicy,
	}
}

// parseReportCacheSize falls back to 128 on unparsable or negative values. Zero disables the cache.
func parseReportCacheSize() int {
	if s := os.Getenv("REPORT_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n >= 0 {
			return n
		}
	}
	return 128
}
