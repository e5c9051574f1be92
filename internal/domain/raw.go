package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// RawEvent represents an unprocessed message from the source topic.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// rawReading is the flat JSON structure produced by the collectors.
// quality_score is a pointer so an absent field can default to 1.0 rather
// than 0.
type rawReading struct {
	SensorID     string         `json:"sensor_id"`
	SensorType   string         `json:"sensor_type"`
	Value        float64        `json:"value"`
	Unit         string         `json:"unit"`
	Timestamp    time.Time      `json:"timestamp"`
	Location     *Location      `json:"location,omitempty"`
	QualityScore *float64       `json:"quality_score,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// ParseRawReading deserializes a RawEvent's value into a validated Reading.
// A missing quality_score defaults to 1.0; a missing timestamp inherits the
// message timestamp set by the collector.
func ParseRawReading(raw RawEvent) (Reading, error) {
	var rec rawReading
	if err := json.Unmarshal(raw.Value, &rec); err != nil {
		return Reading{}, fmt.Errorf("parse raw reading: %w", err)
	}

	quality := 1.0
	if rec.QualityScore != nil {
		quality = *rec.QualityScore
	}
	ts := rec.Timestamp
	if ts.IsZero() {
		ts = raw.Timestamp
	}
	metadata := make(map[string]any, len(rec.Metadata))
	for k, v := range rec.Metadata {
		metadata[k] = v
	}

	reading := Reading{
		SensorID:     rec.SensorID,
		SensorType:   rec.SensorType,
		Value:        rec.Value,
		Unit:         rec.Unit,
		Timestamp:    ts,
		Location:     rec.Location,
		QualityScore: quality,
		Metadata:     metadata,
	}
	if err := reading.Validate(); err != nil {
		return Reading{}, err
	}
	return reading, nil
}

// FusedSnapshot is the consensus estimate published to the snapshot topic:
// one fused value per sensor type over the current streaming window.
type FusedSnapshot struct {
	FieldID     string             `json:"field_id"`
	GeneratedAt time.Time          `json:"generated_at"`
	Values      map[string]float64 `json:"values"`
}
