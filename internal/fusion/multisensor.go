package fusion

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/agrisense/sensor-fusion-service/internal/domain"
)

// Method selects the multi-sensor consensus strategy.
type Method int

const (
	// MethodWeightedAverage fuses by quality-weighted mean; when a group's
	// total quality is zero it degrades to the plain mean. The default.
	MethodWeightedAverage Method = iota

	// MethodKalman runs a scalar recursive estimator over the readings in
	// arrival order. Arrival order is part of the contract: the same
	// readings in a different order produce a different estimate.
	MethodKalman

	// MethodMedian takes the statistical median, robust to outliers that
	// survived cleaning.
	MethodMedian

	// MethodMean is the plain unweighted mean. It is also what Fuse applies
	// to any Method value it does not recognize, preserving the historical
	// fallback for unknown wire names.
	MethodMean
)

// methodNames maps wire-format names to methods.
var methodNames = map[string]Method{
	"weighted_average": MethodWeightedAverage,
	"kalman_filter":    MethodKalman,
	"median":           MethodMedian,
	"mean":             MethodMean,
}

// ParseMethod maps a wire-format method name to a Method. Unrecognized
// names map to MethodMean, the documented fallback.
func ParseMethod(name string) Method {
	if m, ok := methodNames[name]; ok {
		return m
	}
	return MethodMean
}

func (m Method) String() string {
	switch m {
	case MethodWeightedAverage:
		return "weighted_average"
	case MethodKalman:
		return "kalman_filter"
	case MethodMedian:
		return "median"
	default:
		return "mean"
	}
}

// Fuse reduces each sensor type present in the readings to one consensus
// value using the given method. Empty input yields an empty map.
func (e *Engine) Fuse(readings []domain.Reading, method Method) map[string]float64 {
	fused := make(map[string]float64)
	for sensorType, group := range groupByType(readings) {
		switch method {
		case MethodWeightedAverage:
			fused[sensorType] = weightedAverage(group)
		case MethodKalman:
			fused[sensorType] = kalmanFuse(group)
		case MethodMedian:
			fused[sensorType] = median(values(group))
		default:
			// MethodMean and anything unrecognized.
			fused[sensorType] = stat.Mean(values(group), nil)
		}
	}
	return fused
}

// weightedAverage is Σ(value·quality)/Σ(quality), degrading to the plain
// mean when the group's total quality is zero.
func weightedAverage(group []domain.Reading) float64 {
	var num, den float64
	for _, r := range group {
		num += r.Value * r.QualityScore
		den += r.QualityScore
	}
	if den > 0 {
		return num / den
	}
	return stat.Mean(values(group), nil)
}

// median averages the two middle elements for even-length input, matching
// the conventional definition (gonum's empirical quantiles do not).
func median(vs []float64) float64 {
	s := append([]float64(nil), vs...)
	sort.Float64s(s)
	n := len(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}
