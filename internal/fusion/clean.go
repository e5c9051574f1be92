package fusion

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/agrisense/sensor-fusion-service/internal/domain"
)

// minQualityScore is the floor below which a reading is discarded outright.
const minQualityScore = 0.5

// minOutlierGroupSize is the smallest per-type group that gets z-score
// outlier rejection; smaller groups have too little dispersion information.
const minOutlierGroupSize = 4

// CleanOptions controls the cleaning stage.
type CleanOptions struct {
	// RemoveOutliers enables per-type z-score outlier rejection after the
	// quality filter.
	RemoveOutliers bool
	// ZThreshold is the absolute z-score at or beyond which a reading is
	// rejected.
	ZThreshold float64
}

// DefaultCleanOptions matches the standard pipeline configuration.
func DefaultCleanOptions() CleanOptions {
	return CleanOptions{RemoveOutliers: true, ZThreshold: 3.0}
}

// Clean discards readings with quality below 0.5, then — per sensor type
// with more than three surviving readings — rejects statistical outliers by
// z-score. Input order is preserved in the output. Empty input yields an
// empty result, never an error.
func (e *Engine) Clean(readings []domain.Reading, opts CleanOptions) []domain.Reading {
	if opts.ZThreshold <= 0 {
		opts.ZThreshold = DefaultCleanOptions().ZThreshold
	}

	// Group surviving indices per type so order can be restored at the end.
	typeIndices := make(map[string][]int)
	for i, r := range readings {
		if r.QualityScore < minQualityScore {
			continue
		}
		typeIndices[r.SensorType] = append(typeIndices[r.SensorType], i)
	}

	keep := make([]bool, len(readings))
	for _, indices := range typeIndices {
		if !opts.RemoveOutliers || len(indices) < minOutlierGroupSize {
			for _, i := range indices {
				keep[i] = true
			}
			continue
		}

		vs := make([]float64, len(indices))
		for j, i := range indices {
			vs[j] = readings[i].Value
		}
		mean := stat.Mean(vs, nil)
		std := stat.PopStdDev(vs, nil)
		if std == 0 {
			// No dispersion: identical values carry no outliers.
			for _, i := range indices {
				keep[i] = true
			}
			continue
		}
		for j, i := range indices {
			if math.Abs(vs[j]-mean)/std < opts.ZThreshold {
				keep[i] = true
			}
		}
	}

	cleaned := make([]domain.Reading, 0, len(readings))
	for i, r := range readings {
		if keep[i] {
			cleaned = append(cleaned, r)
		}
	}

	e.logger.Info("cleaned readings", "before", len(readings), "after", len(cleaned))
	return cleaned
}

// CleanAndCalibrate runs the cleaning stage followed by calibration.
func (e *Engine) CleanAndCalibrate(readings []domain.Reading, opts CleanOptions) []domain.Reading {
	return e.Calibrate(e.Clean(readings, opts))
}
