package fusion

import (
	"github.com/agrisense/sensor-fusion-service/internal/domain"
)

const (
	// DefaultCellSizeMeters is the grid cell edge used when none is given.
	DefaultCellSizeMeters = 10.0

	// metersPerDegree is the flat-earth approximation used to convert cell
	// sizes to degrees; adequate at field scale.
	metersPerDegree = 111000.0

	// minSpatialPoints is the smallest located group a surface can be
	// fitted through.
	minSpatialPoints = 3
)

// Grid is a fitted value surface over a rectangular lat/lng grid.
// Values[i][j] is the surface evaluated at (Lats[i], Lngs[j]). Points is
// the number of source readings behind the fit. The grid is owned by the
// caller; the engine retains nothing.
type Grid struct {
	Lats   []float64   `json:"lats"`
	Lngs   []float64   `json:"lngs"`
	Values [][]float64 `json:"values"`
	Points int         `json:"points"`
}

// FuseSpatial fits a quality-weighted multiquadric RBF surface per sensor
// type over the bounding box of that type's located readings and evaluates
// it at every grid cell. Types with fewer than three located readings are
// skipped, and types whose fit fails are omitted; both are logged, neither
// aborts the remaining types.
func (e *Engine) FuseSpatial(readings []domain.Reading, cellSizeMeters float64) map[string]Grid {
	if cellSizeMeters <= 0 {
		cellSizeMeters = DefaultCellSizeMeters
	}
	step := cellSizeMeters / metersPerDegree

	located := make([]domain.Reading, 0, len(readings))
	for _, r := range readings {
		if r.Located() {
			located = append(located, r)
		}
	}

	grids := make(map[string]Grid)
	for sensorType, group := range groupByType(located) {
		if len(group) < minSpatialPoints {
			e.logger.Info("skipping spatial fusion, too few located readings",
				"sensor_type", sensorType, "points", len(group))
			continue
		}

		lats := make([]float64, len(group))
		lngs := make([]float64, len(group))
		vals := make([]float64, len(group))
		quals := make([]float64, len(group))
		for i, r := range group {
			lats[i] = r.Location.Lat
			lngs[i] = r.Location.Lng
			vals[i] = r.Value
			quals[i] = r.QualityScore
		}

		surface, err := fitRBF(lats, lngs, vals, quals)
		if err != nil {
			e.logger.Warn("spatial surface fit failed, omitting type",
				"sensor_type", sensorType, "error", err)
			continue
		}

		gridLats := gridAxis(minOf(lats), maxOf(lats), step)
		gridLngs := gridAxis(minOf(lngs), maxOf(lngs), step)

		values := make([][]float64, len(gridLats))
		for i, lat := range gridLats {
			row := make([]float64, len(gridLngs))
			for j, lng := range gridLngs {
				row[j] = surface.eval(lat, lng)
			}
			values[i] = row
		}

		grids[sensorType] = Grid{
			Lats:   gridLats,
			Lngs:   gridLngs,
			Values: values,
			Points: len(group),
		}
	}

	return grids
}

// gridAxis returns cell centers from min (inclusive) to max (exclusive) at
// the given step. A degenerate axis (all points sharing the coordinate)
// still yields one cell at min.
func gridAxis(min, max, step float64) []float64 {
	var axis []float64
	for v := min; v < max; v += step {
		axis = append(axis, v)
	}
	if len(axis) == 0 {
		axis = []float64{min}
	}
	return axis
}

func minOf(vs []float64) float64 {
	m := vs[0]
	for _, v := range vs[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

func maxOf(vs []float64) float64 {
	m := vs[0]
	for _, v := range vs[1:] {
		if v > m {
			m = v
		}
	}
	return m
}
