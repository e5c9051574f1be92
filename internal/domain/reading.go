package domain

import (
	"fmt"
	"math"
	"time"
)

// Location is a WGS-84 latitude/longitude coordinate pair.
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Calibration is a linear correction for one sensor type, applied as
// calibrated = Slope*raw + Offset. The zero-value correction is not the
// identity; use [IdentityCalibration] for that.
type Calibration struct {
	Slope  float64 `json:"slope"`
	Offset float64 `json:"offset"`
}

// IdentityCalibration returns the correction that leaves values unchanged.
func IdentityCalibration() Calibration {
	return Calibration{Slope: 1.0, Offset: 0.0}
}

// Reading is one timestamped sensor observation. Construct with [NewReading]
// or [ParseRawReading] so defaults and metadata copying are applied.
type Reading struct {
	SensorID     string         `json:"sensor_id"`
	SensorType   string         `json:"sensor_type"`
	Value        float64        `json:"value"`
	Unit         string         `json:"unit"`
	Timestamp    time.Time      `json:"timestamp"`
	Location     *Location      `json:"location,omitempty"`
	QualityScore float64        `json:"quality_score"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// NewReading builds a fully-trusted reading (quality 1.0) with its own
// metadata map.
func NewReading(sensorID, sensorType string, value float64, unit string, ts time.Time) Reading {
	return Reading{
		SensorID:     sensorID,
		SensorType:   sensorType,
		Value:        value,
		Unit:         unit,
		Timestamp:    ts,
		QualityScore: 1.0,
		Metadata:     map[string]any{},
	}
}

// Validate checks the reading invariants enforced at ingestion. All
// violations wrap [ErrInvalidReading].
func (r Reading) Validate() error {
	if r.SensorType == "" {
		return fmt.Errorf("%w: missing sensor_type", ErrInvalidReading)
	}
	if math.IsNaN(r.Value) || math.IsInf(r.Value, 0) {
		return fmt.Errorf("%w: non-finite value %v", ErrInvalidReading, r.Value)
	}
	if r.QualityScore < 0 || r.QualityScore > 1 {
		return fmt.Errorf("%w: quality_score %g outside [0,1]", ErrInvalidReading, r.QualityScore)
	}
	if r.Timestamp.IsZero() {
		return fmt.Errorf("%w: missing timestamp", ErrInvalidReading)
	}
	return nil
}

// Derive returns a copy of the reading with a new value and the given
// metadata entries merged in. The original reading, including its metadata
// map, is left untouched.
func (r Reading) Derive(value float64, extra map[string]any) Reading {
	derived := r
	derived.Value = value
	derived.Metadata = make(map[string]any, len(r.Metadata)+len(extra))
	for k, v := range r.Metadata {
		derived.Metadata[k] = v
	}
	for k, v := range extra {
		derived.Metadata[k] = v
	}
	return derived
}

// Located reports whether the reading carries device coordinates.
func (r Reading) Located() bool {
	return r.Location != nil
}
