package fusion

import "github.com/agrisense/sensor-fusion-service/internal/domain"

// Calibrate applies the engine's per-type linear correction to each reading.
// Readings whose type has a registered calibration are replaced by derived
// readings with value slope*raw + offset and a calibrated=true metadata
// flag; all others pass through unchanged. The mapping is pure, one-to-one,
// and order-preserving.
func (e *Engine) Calibrate(readings []domain.Reading) []domain.Reading {
	calibrated := make([]domain.Reading, 0, len(readings))
	for _, r := range readings {
		cal, ok := e.calibrations[r.SensorType]
		if !ok {
			calibrated = append(calibrated, r)
			continue
		}
		calibrated = append(calibrated, r.Derive(
			cal.Slope*r.Value+cal.Offset,
			map[string]any{"calibrated": true},
		))
	}
	return calibrated
}
