package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/agrisense/sensor-fusion-service/internal/domain"
)

const maxBatchSize = 1000

// Config holds all service settings, populated from environment variables.
type Config struct {
	KafkaBrokers       []string
	KafkaSourceTopic   string
	KafkaSnapshotTopic string
	KafkaReportTopic   string
	KafkaGroupID       string
	HTTPAddr           string
	LogLevel           string
	LogFormat          string
	ShutdownTimeout    time.Duration

	BatchSize          int
	BatchFlushInterval time.Duration

	// Fusion engine configuration.
	FieldID       string
	Calibrations  map[string]domain.Calibration
	FusionWeights map[string]float64

	// Streaming buffer configuration.
	BufferCapacity int
	StreamWindow   time.Duration

	// Periodic report publishing (feature-flagged via REPORT_ENABLED).
	ReportEnabled  bool
	ReportInterval time.Duration
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}

	flushInterval, err := parseDuration("BATCH_FLUSH_INTERVAL", 500*time.Millisecond)
	if err != nil {
		return nil, err
	}

	streamWindow, err := parseDuration("STREAM_WINDOW", time.Hour)
	if err != nil {
		return nil, err
	}

	reportInterval, err := parseDuration("REPORT_INTERVAL", 15*time.Minute)
	if err != nil {
		return nil, err
	}

	batchSize, err := parseBatchSize()
	if err != nil {
		return nil, err
	}

	bufferCapacity, err := parsePositiveInt("BUFFER_CAPACITY", 1000)
	if err != nil {
		return nil, err
	}

	calibrations, err := parseCalibrations()
	if err != nil {
		return nil, err
	}

	weights, err := parseFusionWeights()
	if err != nil {
		return nil, err
	}

	reportEnabled := true
	if v := os.Getenv("REPORT_ENABLED"); v != "" {
		reportEnabled = v == "true"
	}

	cfg := &Config{
		KafkaBrokers:       parseBrokers(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic:   envOrDefault("KAFKA_SOURCE_TOPIC", "sensor-readings"),
		KafkaSnapshotTopic: envOrDefault("KAFKA_SNAPSHOT_TOPIC", "fused-snapshots"),
		KafkaReportTopic:   envOrDefault("KAFKA_REPORT_TOPIC", "fusion-reports"),
		KafkaGroupID:       envOrDefault("KAFKA_GROUP_ID", "sensor-fusion"),
		HTTPAddr:           envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           envOrDefault("LOG_LEVEL", "info"),
		LogFormat:          envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		FieldID:       envOrDefault("FIELD_ID", "field-1"),
		Calibrations:  calibrations,
		FusionWeights: weights,

		BufferCapacity: bufferCapacity,
		StreamWindow:   streamWindow,

		ReportEnabled:  reportEnabled,
		ReportInterval: reportInterval,
	}

	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.KafkaSourceTopic == "" {
		return nil, errors.New("KAFKA_SOURCE_TOPIC is required")
	}
	if cfg.KafkaSnapshotTopic == "" {
		return nil, errors.New("KAFKA_SNAPSHOT_TOPIC is required")
	}
	if cfg.KafkaReportTopic == "" {
		return nil, errors.New("KAFKA_REPORT_TOPIC is required")
	}
	if cfg.FieldID == "" {
		return nil, errors.New("FIELD_ID is required")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseBrokers(s string) []string {
	parts := strings.Split(s, ",")
	brokers := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			brokers = append(brokers, p)
		}
	}
	return brokers
}

func parseDuration(key string, fallback time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return d, nil
}

func parsePositiveInt(key string, fallback int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return n, nil
}

func parseBatchSize() (int, error) {
	n, err := parsePositiveInt("BATCH_SIZE", 50)
	if err != nil {
		return 0, err
	}
	if n > maxBatchSize {
		return 0, fmt.Errorf("invalid BATCH_SIZE: must be at most %d", maxBatchSize)
	}
	return n, nil
}

// parseCalibrations reads CALIBRATION_JSON, a JSON object keyed by sensor
// type, e.g. {"soil_moisture": {"slope": 1.02, "offset": -0.5}}.
func parseCalibrations() (map[string]domain.Calibration, error) {
	s := os.Getenv("CALIBRATION_JSON")
	if s == "" {
		return nil, nil
	}
	var raw map[string]struct {
		Slope  *float64 `json:"slope"`
		Offset *float64 `json:"offset"`
	}
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		return nil, fmt.Errorf("invalid CALIBRATION_JSON: %w", err)
	}
	calibrations := make(map[string]domain.Calibration, len(raw))
	for sensorType, c := range raw {
		cal := domain.IdentityCalibration()
		if c.Slope != nil {
			cal.Slope = *c.Slope
		}
		if c.Offset != nil {
			cal.Offset = *c.Offset
		}
		calibrations[sensorType] = cal
	}
	return calibrations, nil
}

// parseFusionWeights reads FUSION_WEIGHTS_JSON, a JSON object keyed by
// sensor type, e.g. {"temperature": 1.5}. Weights must be positive.
func parseFusionWeights() (map[string]float64, error) {
	s := os.Getenv("FUSION_WEIGHTS_JSON")
	if s == "" {
		return nil, nil
	}
	var weights map[string]float64
	if err := json.Unmarshal([]byte(s), &weights); err != nil {
		return nil, fmt.Errorf("invalid FUSION_WEIGHTS_JSON: %w", err)
	}
	for sensorType, w := range weights {
		if w <= 0 {
			return nil, fmt.Errorf("invalid FUSION_WEIGHTS_JSON: weight for %q must be positive", sensorType)
		}
	}
	return weights, nil
}
