package fusion

import (
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/agrisense/sensor-fusion-service/internal/domain"
)

// highQualityThreshold is the quality score at or above which a reading
// counts as high quality in the report's quality summary.
const highQualityThreshold = 0.8

// TypeStats are descriptive statistics for one sensor type.
type TypeStats struct {
	Count int     `json:"count"`
	Mean  float64 `json:"mean"`
	Std   float64 `json:"std"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Unit  string  `json:"unit"`
}

// QualitySummary summarizes reading confidence for one sensor type.
type QualitySummary struct {
	AvgQuality     float64 `json:"avg_quality"`
	MinQuality     float64 `json:"min_quality"`
	HighQualityPct float64 `json:"high_quality_percentage"`
}

// TemporalCoverage describes the observed time span for one sensor type.
type TemporalCoverage struct {
	Start                  time.Time `json:"start"`
	End                    time.Time `json:"end"`
	DurationHours          float64   `json:"duration_hours"`
	ReadingIntervalMinutes float64   `json:"reading_interval_minutes"`
}

// Anomaly is one flagged reading in a report.
type Anomaly struct {
	SensorID   string    `json:"sensor_id"`
	SensorType string    `json:"sensor_type"`
	Value      float64   `json:"value"`
	Timestamp  time.Time `json:"timestamp"`
}

// Report is an on-demand aggregate snapshot over a reading set. It is
// deterministic for a given reading set and engine configuration, never
// mutates its inputs, and is not persisted by the engine.
type Report struct {
	GeneratedAt   time.Time                   `json:"generated_at"`
	FieldID       string                      `json:"field_id"`
	TotalReadings int                         `json:"total_readings"`
	Types         map[string]TypeStats        `json:"sensor_types"`
	Quality       map[string]QualitySummary   `json:"quality_summary"`
	Coverage      map[string]TemporalCoverage `json:"temporal_coverage"`
	Anomalies     []Anomaly                   `json:"anomalies"`
	FusedValues   map[string]float64          `json:"fusion_summary"`
}

// BuildReport aggregates per-type statistics, quality, and temporal
// coverage, and embeds the anomaly list and a weighted-average fusion
// snapshot for the given readings.
func (e *Engine) BuildReport(readings []domain.Reading) Report {
	report := Report{
		GeneratedAt:   domain.Now(),
		FieldID:       e.fieldID,
		TotalReadings: len(readings),
		Types:         make(map[string]TypeStats),
		Quality:       make(map[string]QualitySummary),
		Coverage:      make(map[string]TemporalCoverage),
		Anomalies:     []Anomaly{},
		FusedValues:   map[string]float64{},
	}
	if len(readings) == 0 {
		return report
	}

	for sensorType, group := range groupByType(readings) {
		report.Types[sensorType] = typeStats(group)
		report.Quality[sensorType] = qualitySummary(group)
		report.Coverage[sensorType] = temporalCoverage(group)
	}

	for _, r := range e.DetectAnomalies(readings, DefaultAnomalyThreshold) {
		report.Anomalies = append(report.Anomalies, Anomaly{
			SensorID:   r.SensorID,
			SensorType: r.SensorType,
			Value:      r.Value,
			Timestamp:  r.Timestamp,
		})
	}

	report.FusedValues = e.Fuse(readings, MethodWeightedAverage)
	return report
}

func typeStats(group []domain.Reading) TypeStats {
	vs := values(group)
	return TypeStats{
		Count: len(group),
		Mean:  stat.Mean(vs, nil),
		Std:   stat.PopStdDev(vs, nil),
		Min:   minOf(vs),
		Max:   maxOf(vs),
		Unit:  group[0].Unit,
	}
}

func qualitySummary(group []domain.Reading) QualitySummary {
	qs := make([]float64, len(group))
	high := 0
	for i, r := range group {
		qs[i] = r.QualityScore
		if r.QualityScore >= highQualityThreshold {
			high++
		}
	}
	return QualitySummary{
		AvgQuality:     stat.Mean(qs, nil),
		MinQuality:     minOf(qs),
		HighQualityPct: float64(high) / float64(len(group)) * 100,
	}
}

func temporalCoverage(group []domain.Reading) TemporalCoverage {
	start, end := group[0].Timestamp, group[0].Timestamp
	for _, r := range group[1:] {
		if r.Timestamp.Before(start) {
			start = r.Timestamp
		}
		if r.Timestamp.After(end) {
			end = r.Timestamp
		}
	}
	span := end.Sub(start)

	var intervalMinutes float64
	if len(group) > 1 {
		intervalMinutes = span.Minutes() / float64(len(group))
	}
	return TemporalCoverage{
		Start:                  start,
		End:                    end,
		DurationHours:          span.Hours(),
		ReadingIntervalMinutes: intervalMinutes,
	}
}
