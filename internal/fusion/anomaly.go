package fusion

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/agrisense/sensor-fusion-service/internal/domain"
)

// DefaultAnomalyThreshold is the deviation factor used when none is given.
const DefaultAnomalyThreshold = 2.0

// minAnomalySampleSize is the smallest per-type group anomaly detection
// runs on; smaller groups are skipped silently.
const minAnomalySampleSize = 5

// DetectAnomalies flags readings whose value deviates from their type's
// mean by at least thresholdFactor standard deviations. Flagged readings
// are returned unmodified, ordered by sensor type then arrival. Types with
// fewer than five readings, or with zero dispersion, yield no flags.
func (e *Engine) DetectAnomalies(readings []domain.Reading, thresholdFactor float64) []domain.Reading {
	if thresholdFactor <= 0 {
		thresholdFactor = DefaultAnomalyThreshold
	}

	groups := groupByType(readings)

	var anomalies []domain.Reading
	for _, sensorType := range sortedTypes(groups) {
		group := groups[sensorType]
		if len(group) < minAnomalySampleSize {
			continue
		}

		vs := values(group)
		mean := stat.Mean(vs, nil)
		std := stat.PopStdDev(vs, nil)
		if std == 0 {
			continue
		}

		for _, r := range group {
			if math.Abs(r.Value-mean) >= thresholdFactor*std {
				anomalies = append(anomalies, r)
			}
		}
	}

	return anomalies
}
