package fusion

import (
	"log/slog"
	"sort"

	"github.com/agrisense/sensor-fusion-service/internal/domain"
)

// Engine fuses readings from many independent devices into consolidated
// per-type estimates. Configuration is copied at construction and never
// mutated afterwards.
type Engine struct {
	fieldID      string
	calibrations map[string]domain.Calibration
	weights      map[string]float64
	logger       *slog.Logger
}

// NewEngine creates an Engine for one monitored field. A sensor type with
// no calibration entry passes through uncalibrated, and one with no weight
// entry fuses at weight 1.0 — missing configuration is never an error.
func NewEngine(fieldID string, calibrations map[string]domain.Calibration, weights map[string]float64, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	cals := make(map[string]domain.Calibration, len(calibrations))
	for k, v := range calibrations {
		cals[k] = v
	}
	ws := make(map[string]float64, len(weights))
	for k, v := range weights {
		ws[k] = v
	}
	return &Engine{
		fieldID:      fieldID,
		calibrations: cals,
		weights:      ws,
		logger:       logger,
	}
}

// FieldID returns the identifier of the monitored field.
func (e *Engine) FieldID() string {
	return e.fieldID
}

// weight returns the configured fusion weight for a sensor type, 1.0 if unset.
func (e *Engine) weight(sensorType string) float64 {
	if w, ok := e.weights[sensorType]; ok {
		return w
	}
	return 1.0
}

// groupByType buckets readings per sensor type, preserving arrival order
// within each group.
func groupByType(readings []domain.Reading) map[string][]domain.Reading {
	groups := make(map[string][]domain.Reading)
	for _, r := range readings {
		groups[r.SensorType] = append(groups[r.SensorType], r)
	}
	return groups
}

// sortedTypes returns the group keys in lexical order so outputs that
// flatten across types are deterministic.
func sortedTypes(groups map[string][]domain.Reading) []string {
	types := make([]string, 0, len(groups))
	for t := range groups {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

func values(readings []domain.Reading) []float64 {
	vs := make([]float64, len(readings))
	for i, r := range readings {
		vs[i] = r.Value
	}
	return vs
}
