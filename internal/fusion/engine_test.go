package fusion

import (
	"io"
	"log/slog"
	"time"

	"github.com/agrisense/sensor-fusion-service/internal/domain"
)

var baseTime = time.Date(2026, 6, 14, 8, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEngine() *Engine {
	return NewEngine("field-test", nil, nil, discardLogger())
}

// reading builds a fully-trusted reading offset minutes after baseTime.
func reading(sensorType string, value float64, offsetMinutes int) domain.Reading {
	return domain.NewReading("dev-1", sensorType, value, "u", baseTime.Add(time.Duration(offsetMinutes)*time.Minute))
}

// qualityReading builds a reading with an explicit quality score.
func qualityReading(sensorType string, value, quality float64, offsetMinutes int) domain.Reading {
	r := reading(sensorType, value, offsetMinutes)
	r.QualityScore = quality
	return r
}

// locatedReading builds a reading carrying coordinates.
func locatedReading(sensorType string, value, lat, lng, quality float64) domain.Reading {
	r := qualityReading(sensorType, value, quality, 0)
	r.Location = &domain.Location{Lat: lat, Lng: lng}
	return r
}
