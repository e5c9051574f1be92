package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrisense/sensor-fusion-service/internal/domain"
)

const defaultBroker = "localhost:9092"

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{defaultBroker}, cfg.KafkaBrokers)
	assert.Equal(t, "sensor-readings", cfg.KafkaSourceTopic)
	assert.Equal(t, "fused-snapshots", cfg.KafkaSnapshotTopic)
	assert.Equal(t, "fusion-reports", cfg.KafkaReportTopic)
	assert.Equal(t, "sensor-fusion", cfg.KafkaGroupID)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 50, cfg.BatchSize)
	assert.Equal(t, 500*time.Millisecond, cfg.BatchFlushInterval)
	assert.Equal(t, "field-1", cfg.FieldID)
	assert.Nil(t, cfg.Calibrations)
	assert.Nil(t, cfg.FusionWeights)
	assert.Equal(t, 1000, cfg.BufferCapacity)
	assert.Equal(t, time.Hour, cfg.StreamWindow)
	assert.True(t, cfg.ReportEnabled)
	assert.Equal(t, 15*time.Minute, cfg.ReportInterval)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_SOURCE_TOPIC", "custom-source")
	t.Setenv("KAFKA_SNAPSHOT_TOPIC", "custom-snapshots")
	t.Setenv("KAFKA_REPORT_TOPIC", "custom-reports")
	t.Setenv("KAFKA_GROUP_ID", "custom-group")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("BATCH_SIZE", "100")
	t.Setenv("BATCH_FLUSH_INTERVAL", "1s")
	t.Setenv("FIELD_ID", "north-paddock")
	t.Setenv("BUFFER_CAPACITY", "250")
	t.Setenv("STREAM_WINDOW", "30m")
	t.Setenv("REPORT_ENABLED", "false")
	t.Setenv("REPORT_INTERVAL", "5m")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "custom-source", cfg.KafkaSourceTopic)
	assert.Equal(t, "custom-snapshots", cfg.KafkaSnapshotTopic)
	assert.Equal(t, "custom-reports", cfg.KafkaReportTopic)
	assert.Equal(t, "custom-group", cfg.KafkaGroupID)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 100, cfg.BatchSize)
	assert.Equal(t, 1*time.Second, cfg.BatchFlushInterval)
	assert.Equal(t, "north-paddock", cfg.FieldID)
	assert.Equal(t, 250, cfg.BufferCapacity)
	assert.Equal(t, 30*time.Minute, cfg.StreamWindow)
	assert.False(t, cfg.ReportEnabled)
	assert.Equal(t, 5*time.Minute, cfg.ReportInterval)
}

func TestLoad_CalibrationJSON(t *testing.T) {
	t.Setenv("CALIBRATION_JSON", `{"soil_moisture": {"slope": 1.02, "offset": -0.5}, "temperature": {"offset": 0.3}}`)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, domain.Calibration{Slope: 1.02, Offset: -0.5}, cfg.Calibrations["soil_moisture"])
	assert.Equal(t, domain.Calibration{Slope: 1.0, Offset: 0.3}, cfg.Calibrations["temperature"])
}

func TestLoad_InvalidCalibrationJSON(t *testing.T) {
	t.Setenv("CALIBRATION_JSON", "{not json")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CALIBRATION_JSON")
}

func TestLoad_FusionWeightsJSON(t *testing.T) {
	t.Setenv("FUSION_WEIGHTS_JSON", `{"temperature": 1.5, "humidity": 0.8}`)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, map[string]float64{"temperature": 1.5, "humidity": 0.8}, cfg.FusionWeights)
}

func TestLoad_NonPositiveFusionWeight(t *testing.T) {
	t.Setenv("FUSION_WEIGHTS_JSON", `{"temperature": 0}`)
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FUSION_WEIGHTS_JSON")
}

func TestLoad_InvalidShutdownTimeout(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "not-a-duration")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_NegativeShutdownTimeout(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "-1s")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_InvalidBatchSize(t *testing.T) {
	t.Setenv("BATCH_SIZE", "0")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BATCH_SIZE")
}

func TestLoad_BatchSizeTooLarge(t *testing.T) {
	t.Setenv("BATCH_SIZE", "9999")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BATCH_SIZE")
}

func TestLoad_InvalidBatchFlushInterval(t *testing.T) {
	t.Setenv("BATCH_FLUSH_INTERVAL", "not-a-duration")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BATCH_FLUSH_INTERVAL")
}

func TestLoad_InvalidBufferCapacity(t *testing.T) {
	t.Setenv("BUFFER_CAPACITY", "-5")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BUFFER_CAPACITY")
}

func TestLoad_InvalidStreamWindow(t *testing.T) {
	t.Setenv("STREAM_WINDOW", "0s")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STREAM_WINDOW")
}
