// Package stream provides the continuously updated, bounded-memory variant
// of the fusion pipeline. Each sensor type gets a fixed-capacity FIFO buffer
// of its most recent readings; every ingest re-fuses the readings across all
// types whose age falls within a sliding window.
package stream

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/agrisense/sensor-fusion-service/internal/domain"
	"github.com/agrisense/sensor-fusion-service/internal/fusion"
	"github.com/agrisense/sensor-fusion-service/internal/observability"
)

const (
	// DefaultCapacity is the per-type buffer size when none is configured.
	DefaultCapacity = 1000

	// DefaultWindow is the sliding window for the live fused snapshot.
	DefaultWindow = time.Hour
)

// BufferStatus is a read-only projection of one sensor type's buffer.
type BufferStatus struct {
	Size            int       `json:"size"`
	Capacity        int       `json:"capacity"`
	LatestTimestamp time.Time `json:"latest_timestamp"`
	LatestValue     float64   `json:"latest_value"`
	AvgQuality      float64   `json:"avg_quality"`
}

// buffer is a bounded FIFO of readings for a single sensor type. It carries
// its own lock so that cross-type operations never contend on a single
// global mutex.
type buffer struct {
	mu       sync.Mutex
	readings []domain.Reading
}

// add appends a reading, evicting the oldest when the buffer is at capacity.
// Returns the resulting size.
func (b *buffer) add(r domain.Reading, capacity int) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.readings) >= capacity {
		evict := len(b.readings) - capacity + 1
		b.readings = append(b.readings[:0], b.readings[evict:]...)
	}
	b.readings = append(b.readings, r)
	return len(b.readings)
}

// recent copies out the readings whose age relative to now is within window.
func (b *buffer) recent(now time.Time, window time.Duration) []domain.Reading {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]domain.Reading, 0, len(b.readings))
	for _, r := range b.readings {
		if now.Sub(r.Timestamp) <= window {
			out = append(out, r)
		}
	}
	return out
}

// snapshot copies out every buffered reading.
func (b *buffer) snapshot() []domain.Reading {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]domain.Reading, len(b.readings))
	copy(out, b.readings)
	return out
}

// status computes the read-only projection without re-fusing anything.
func (b *buffer) status(capacity int) (BufferStatus, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.readings) == 0 {
		return BufferStatus{}, false
	}

	latest := b.readings[0]
	totalQuality := 0.0
	for _, r := range b.readings {
		totalQuality += r.QualityScore
		if r.Timestamp.After(latest.Timestamp) {
			latest = r
		}
	}

	return BufferStatus{
		Size:            len(b.readings),
		Capacity:        capacity,
		LatestTimestamp: latest.Timestamp,
		LatestValue:     latest.Value,
		AvgQuality:      totalQuality / float64(len(b.readings)),
	}, true
}

// Service ingests live readings into per-type bounded buffers and produces
// a fused snapshot after every accepted reading. Safe for concurrent use.
type Service struct {
	engine   *fusion.Engine
	capacity int
	window   time.Duration
	clock    clockwork.Clock
	metrics  *observability.Metrics
	logger   *slog.Logger

	mu      sync.RWMutex
	buffers map[string]*buffer
}

// NewService builds a streaming service around engine. Non-positive capacity
// and window fall back to the defaults; a nil clock uses the real clock.
func NewService(engine *fusion.Engine, capacity int, window time.Duration, clock clockwork.Clock, metrics *observability.Metrics, logger *slog.Logger) *Service {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if window <= 0 {
		window = DefaultWindow
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		engine:   engine,
		capacity: capacity,
		window:   window,
		clock:    clock,
		metrics:  metrics,
		logger:   logger,
		buffers:  make(map[string]*buffer),
	}
}

// Ingest accepts one reading and returns the fused snapshot over all
// buffered readings currently inside the sliding window. The buffer for the
// reading's sensor type is created lazily and never exceeds capacity.
func (s *Service) Ingest(r domain.Reading) (map[string]float64, error) {
	if err := r.Validate(); err != nil {
		s.logger.Warn("rejected reading",
			"sensor_id", r.SensorID,
			"sensor_type", r.SensorType,
			"error", err)
		return nil, fmt.Errorf("ingest: %w", err)
	}

	size := s.bufferFor(r.SensorType).add(r, s.capacity)
	s.metrics.BufferOccupancy.WithLabelValues(r.SensorType).Set(float64(size))

	start := time.Now()
	fused := s.engine.Fuse(s.windowed(), fusion.MethodWeightedAverage)
	s.metrics.FusionDuration.Observe(time.Since(start).Seconds())

	return fused, nil
}

// Status reports per-type buffer occupancy, latest observation, and average
// quality. Types whose buffers are empty are omitted.
func (s *Service) Status() map[string]BufferStatus {
	out := make(map[string]BufferStatus)
	for sensorType, b := range s.bufferSet() {
		if st, ok := b.status(s.capacity); ok {
			out[sensorType] = st
		}
	}
	return out
}

// BufferedReadings returns a copy of every buffered reading across all types.
func (s *Service) BufferedReadings() []domain.Reading {
	var out []domain.Reading
	for _, b := range s.bufferSet() {
		out = append(out, b.snapshot()...)
	}
	return out
}

// Report builds a full fusion report over the currently buffered readings.
func (s *Service) Report() fusion.Report {
	return s.engine.BuildReport(s.BufferedReadings())
}

// windowed collects the buffered readings across all types whose age is
// within the sliding window.
func (s *Service) windowed() []domain.Reading {
	now := s.clock.Now()
	var out []domain.Reading
	for _, b := range s.bufferSet() {
		out = append(out, b.recent(now, s.window)...)
	}
	return out
}

// bufferFor returns the buffer for sensorType, creating it on first use.
func (s *Service) bufferFor(sensorType string) *buffer {
	s.mu.RLock()
	b, ok := s.buffers[sensorType]
	s.mu.RUnlock()
	if ok {
		return b
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok = s.buffers[sensorType]; !ok {
		b = &buffer{}
		s.buffers[sensorType] = b
		s.logger.Debug("created buffer", "sensor_type", sensorType, "capacity", s.capacity)
	}
	return b
}

// bufferSet copies the buffer map so buffers can be visited without holding
// the map lock.
func (s *Service) bufferSet() map[string]*buffer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set := make(map[string]*buffer, len(s.buffers))
	for k, v := range s.buffers {
		set[k] = v
	}
	return set
}
