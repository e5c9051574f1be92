package fusion

import (
	"math"

	"github.com/agrisense/sensor-fusion-service/internal/domain"
)

const (
	// kalmanProcessNoise is the fixed variance added at each prediction
	// step; readings of one type are modeled as a slowly drifting state.
	kalmanProcessNoise = 0.1

	// kalmanQualityFloor bounds the measurement noise 1/quality. A
	// zero-quality reading is a legal input, so its noise is clamped to
	// 1/floor instead of dividing by zero — the reading then contributes
	// almost nothing to the estimate.
	kalmanQualityFloor = 1e-3
)

// kalmanState is a 1-D recursive estimator: a belief (estimate) plus its
// uncertainty, updated per observation with measurement noise 1/quality so
// higher-quality readings pull the estimate harder.
type kalmanState struct {
	estimate      float64
	estimateError float64
}

func newKalmanState(initial float64) kalmanState {
	return kalmanState{estimate: initial, estimateError: 1.0}
}

func (k *kalmanState) update(value, quality float64) {
	predictedError := k.estimateError + kalmanProcessNoise

	noise := 1.0 / math.Max(quality, kalmanQualityFloor)
	gain := predictedError / (predictedError + noise)

	k.estimate += gain * (value - k.estimate)
	k.estimateError = (1 - gain) * predictedError
}

// kalmanFuse runs the estimator over the readings in arrival order and
// returns the final estimate. The first reading seeds the state; order is
// deliberately not re-sorted by timestamp.
func kalmanFuse(group []domain.Reading) float64 {
	if len(group) == 0 {
		return 0
	}
	k := newKalmanState(group[0].Value)
	for _, r := range group[1:] {
		k.update(r.Value, r.QualityScore)
	}
	return k.estimate
}
