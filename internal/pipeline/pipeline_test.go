package pipeline_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrisense/sensor-fusion-service/internal/domain"
	"github.com/agrisense/sensor-fusion-service/internal/fusion"
	"github.com/agrisense/sensor-fusion-service/internal/observability"
	"github.com/agrisense/sensor-fusion-service/internal/pipeline"
)

// --- mocks ---

type mockExtractor struct {
	batches [][]domain.RawEvent
	index   atomic.Int64
}

func (m *mockExtractor) ExtractBatch(ctx context.Context, _ int) ([]domain.RawEvent, error) {
	i := int(m.index.Add(1) - 1)
	if i >= len(m.batches) {
		// block until context cancelled to simulate waiting for messages
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return m.batches[i], nil
}

type mockIngestor struct {
	readings []domain.Reading
	err      error
}

func (m *mockIngestor) Ingest(r domain.Reading) (map[string]float64, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.readings = append(m.readings, r)
	return map[string]float64{r.SensorType: r.Value}, nil
}

type mockPublisher struct {
	snapshots []domain.FusedSnapshot
	err       error
}

func (m *mockPublisher) PublishSnapshot(_ context.Context, s domain.FusedSnapshot) error {
	if m.err != nil {
		return m.err
	}
	m.snapshots = append(m.snapshots, s)
	return nil
}

func newTestMetrics() *observability.Metrics {
	// Use a fresh registry to avoid "already registered" panics in tests.
	return observability.NewMetricsForTesting()
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestTransformer(calibrations map[string]domain.Calibration) *pipeline.ReadingTransformer {
	engine := fusion.NewEngine("field-test", calibrations, nil, testLogger())
	return pipeline.NewTransformer(engine, testLogger())
}

// --- tests ---

func TestPipeline_Run_HappyPath(t *testing.T) {
	raw := makeRawReading(t, "temperature", 21.5)

	ext := &mockExtractor{batches: [][]domain.RawEvent{{raw}}}
	ing := &mockIngestor{}
	pub := &mockPublisher{}

	p := pipeline.New(ext, newTestTransformer(nil), ing, pub, "field-test", testLogger(), newTestMetrics(), 50)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	err := p.Run(ctx)
	require.NoError(t, err)

	require.Len(t, ing.readings, 1)
	assert.Equal(t, "temperature", ing.readings[0].SensorType)
	assert.InDelta(t, 21.5, ing.readings[0].Value, 1e-9)

	require.Len(t, pub.snapshots, 1)
	assert.Equal(t, "field-test", pub.snapshots[0].FieldID)
	assert.InDelta(t, 21.5, pub.snapshots[0].Values["temperature"], 1e-9)

	assert.NoError(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_ContextCancellation(t *testing.T) {
	ext := &mockExtractor{} // no batches — will block
	ing := &mockIngestor{}
	pub := &mockPublisher{}

	p := pipeline.New(ext, newTestTransformer(nil), ing, pub, "field-test", testLogger(), newTestMetrics(), 50)

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // cancel immediately

	err := p.Run(ctx)
	require.NoError(t, err)
	assert.Empty(t, pub.snapshots)
}

func TestPipeline_Run_MalformedMessageSkippedAndCommitted(t *testing.T) {
	committed := false
	raw := domain.RawEvent{
		Value:  []byte("not json"),
		Topic:  "sensor-readings",
		Commit: func(_ context.Context) error { committed = true; return nil },
	}

	ext := &mockExtractor{batches: [][]domain.RawEvent{{raw}}}
	ing := &mockIngestor{}
	pub := &mockPublisher{}

	p := pipeline.New(ext, newTestTransformer(nil), ing, pub, "field-test", testLogger(), newTestMetrics(), 50)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	err := p.Run(ctx)
	require.NoError(t, err)
	assert.Empty(t, ing.readings)
	assert.Empty(t, pub.snapshots)
	assert.True(t, committed, "poison pill must be committed so it is not redelivered")
	assert.Error(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_IngestRejectionCommitted(t *testing.T) {
	committed := false
	raw := makeRawReading(t, "temperature", 21.5)
	raw.Commit = func(_ context.Context) error { committed = true; return nil }

	ext := &mockExtractor{batches: [][]domain.RawEvent{{raw}}}
	ing := &mockIngestor{err: errors.New("buffer rejected reading")}
	pub := &mockPublisher{}

	p := pipeline.New(ext, newTestTransformer(nil), ing, pub, "field-test", testLogger(), newTestMetrics(), 50)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	err := p.Run(ctx)
	require.NoError(t, err)
	assert.Empty(t, pub.snapshots)
	assert.True(t, committed)
}

func TestPipeline_Run_CommitsAfterIngest(t *testing.T) {
	commitCalled := false
	raw := makeRawReading(t, "soil_moisture", 0.31)
	raw.Topic = "sensor-readings"
	raw.Commit = func(_ context.Context) error {
		commitCalled = true
		return nil
	}

	ext := &mockExtractor{batches: [][]domain.RawEvent{{raw}}}
	ing := &mockIngestor{}
	pub := &mockPublisher{}

	p := pipeline.New(ext, newTestTransformer(nil), ing, pub, "field-test", testLogger(), newTestMetrics(), 50)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	err := p.Run(ctx)
	require.NoError(t, err)
	assert.True(t, commitCalled)
}

func TestPipeline_Run_PublishFailureNotReady(t *testing.T) {
	raw := makeRawReading(t, "temperature", 21.5)

	ext := &mockExtractor{batches: [][]domain.RawEvent{{raw}}}
	ing := &mockIngestor{}
	pub := &mockPublisher{err: errors.New("broker unavailable")}

	p := pipeline.New(ext, newTestTransformer(nil), ing, pub, "field-test", testLogger(), newTestMetrics(), 50)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	err := p.Run(ctx)
	require.NoError(t, err)
	assert.Error(t, p.CheckReadiness(context.Background()))
}

func TestReadingTransformer_Transform(t *testing.T) {
	raw := makeRawReading(t, "temperature", 20.0)

	tfm := newTestTransformer(map[string]domain.Calibration{
		"temperature": {Slope: 1.1, Offset: -0.5},
	})

	reading, err := tfm.Transform(context.Background(), raw)
	require.NoError(t, err)
	assert.InDelta(t, 21.5, reading.Value, 1e-9)
	assert.Equal(t, true, reading.Metadata["calibrated"])
}

func TestReadingTransformer_Transform_NoCalibration(t *testing.T) {
	raw := makeRawReading(t, "humidity", 55.0)

	tfm := newTestTransformer(nil)

	reading, err := tfm.Transform(context.Background(), raw)
	require.NoError(t, err)
	assert.InDelta(t, 55.0, reading.Value, 1e-9)
	assert.NotContains(t, reading.Metadata, "calibrated")
}

func TestReadingTransformer_Transform_Invalid(t *testing.T) {
	raw := makeRawReading(t, "", 20.0) // missing sensor_type

	tfm := newTestTransformer(nil)

	_, err := tfm.Transform(context.Background(), raw)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidReading)
}

// --- helpers ---

func makeRawReading(t *testing.T, sensorType string, value float64) domain.RawEvent {
	t.Helper()
	payload, err := json.Marshal(map[string]any{
		"sensor_id":   "sensor-1",
		"sensor_type": sensorType,
		"value":       value,
		"unit":        "unit",
		"timestamp":   time.Date(2026, 6, 14, 8, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return domain.RawEvent{
		Key:   []byte("sensor-1"),
		Value: payload,
	}
}
