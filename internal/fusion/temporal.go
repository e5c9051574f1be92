package fusion

import (
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/agrisense/sensor-fusion-service/internal/domain"
)

// DefaultWindow is the temporal fusion window used when none is given.
const DefaultWindow = time.Hour

// Series is a time-ordered fused value sequence for one sensor type. Times
// are window start instants in UTC.
type Series struct {
	Times  []time.Time `json:"times"`
	Values []float64   `json:"values"`
}

// FuseTemporal resamples each sensor type into fixed windows using a
// quality-weighted average, Σ(value·quality·weight)/Σ(quality), where
// weight is the type's configured fusion weight. A window whose total
// quality is zero falls back to the plain mean (times the weight); windows
// with no readings at all simply do not appear in the output.
func (e *Engine) FuseTemporal(readings []domain.Reading, window time.Duration) map[string]Series {
	if window <= 0 {
		window = DefaultWindow
	}
	if len(readings) == 0 {
		return map[string]Series{}
	}

	type accum struct {
		weightedSum float64
		qualitySum  float64
		values      []float64
	}

	fused := make(map[string]Series)
	for sensorType, group := range groupByType(readings) {
		weight := e.weight(sensorType)

		buckets := make(map[time.Time]*accum)
		for _, r := range group {
			w := r.Timestamp.UTC().Truncate(window)
			b := buckets[w]
			if b == nil {
				b = &accum{}
				buckets[w] = b
			}
			b.weightedSum += r.Value * r.QualityScore * weight
			b.qualitySum += r.QualityScore
			b.values = append(b.values, r.Value)
		}

		times := make([]time.Time, 0, len(buckets))
		for w := range buckets {
			times = append(times, w)
		}
		sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })

		vals := make([]float64, len(times))
		for i, w := range times {
			b := buckets[w]
			if b.qualitySum > 0 {
				vals[i] = b.weightedSum / b.qualitySum
			} else {
				vals[i] = stat.Mean(b.values, nil) * weight
			}
		}

		fused[sensorType] = Series{Times: times, Values: vals}
	}

	return fused
}
