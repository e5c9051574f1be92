package fusion

import (
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/agrisense/sensor-fusion-service/internal/domain"
)

// DefaultResolution is the time grid step used when none is given.
const DefaultResolution = time.Hour

// Table is a regular time grid with one value column per sensor type.
// Every column has exactly len(Times) entries.
type Table struct {
	Times   []time.Time          `json:"times"`
	Columns map[string][]float64 `json:"columns"`
}

// Empty reports whether the table holds no grid points.
func (t Table) Empty() bool {
	return len(t.Times) == 0
}

// samplePoint is one observed value on a type's time series after
// same-timestamp averaging.
type samplePoint struct {
	t time.Time
	v float64
}

// InterpolateTemporal pivots readings into one series per sensor type
// (averaging multiple readings at the same instant), builds a regular time
// grid spanning [min, max] of all timestamps at the given resolution, and
// fills every grid point by time-weighted linear interpolation. Grid points
// before a type's first observation (or after its last) take that boundary
// observation's value. Empty input returns an empty table.
func (e *Engine) InterpolateTemporal(readings []domain.Reading, resolution time.Duration) Table {
	if resolution <= 0 {
		resolution = DefaultResolution
	}
	if len(readings) == 0 {
		return Table{Columns: map[string][]float64{}}
	}

	series := pivotByType(readings)

	start, end := readings[0].Timestamp, readings[0].Timestamp
	for _, r := range readings[1:] {
		if r.Timestamp.Before(start) {
			start = r.Timestamp
		}
		if r.Timestamp.After(end) {
			end = r.Timestamp
		}
	}

	var times []time.Time
	for t := start; !t.After(end); t = t.Add(resolution) {
		times = append(times, t)
	}

	columns := make(map[string][]float64, len(series))
	for sensorType, samples := range series {
		col := make([]float64, len(times))
		for i, t := range times {
			col[i] = interpolateAt(samples, t)
		}
		columns[sensorType] = col
	}

	return Table{Times: times, Columns: columns}
}

// pivotByType builds a sorted, deduplicated series per sensor type,
// averaging values that share an exact timestamp.
func pivotByType(readings []domain.Reading) map[string][]samplePoint {
	byType := make(map[string]map[time.Time][]float64)
	for _, r := range readings {
		ts := r.Timestamp.UTC()
		if byType[r.SensorType] == nil {
			byType[r.SensorType] = make(map[time.Time][]float64)
		}
		byType[r.SensorType][ts] = append(byType[r.SensorType][ts], r.Value)
	}

	series := make(map[string][]samplePoint, len(byType))
	for sensorType, buckets := range byType {
		samples := make([]samplePoint, 0, len(buckets))
		for ts, vs := range buckets {
			samples = append(samples, samplePoint{t: ts, v: stat.Mean(vs, nil)})
		}
		sort.Slice(samples, func(i, j int) bool { return samples[i].t.Before(samples[j].t) })
		series[sensorType] = samples
	}
	return series
}

// interpolateAt evaluates a sorted sample series at t: exact hits return the
// sample, interior points interpolate linearly by elapsed time, and points
// outside the observed span clamp to the nearest boundary sample.
func interpolateAt(samples []samplePoint, t time.Time) float64 {
	first, last := samples[0], samples[len(samples)-1]
	if !t.After(first.t) {
		return first.v
	}
	if !t.Before(last.t) {
		return last.v
	}

	// Index of the first sample at or after t.
	hi := sort.Search(len(samples), func(i int) bool { return !samples[i].t.Before(t) })
	if samples[hi].t.Equal(t) {
		return samples[hi].v
	}
	lo := hi - 1

	span := samples[hi].t.Sub(samples[lo].t).Seconds()
	frac := t.Sub(samples[lo].t).Seconds() / span
	return samples[lo].v + frac*(samples[hi].v-samples[lo].v)
}
