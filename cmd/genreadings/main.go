// Command genreadings generates a mock sensor reading fixture for tests and
// local pipeline runs. Each sensor follows a bounded random walk around a
// per-type baseline, with a configurable share of outliers and low-quality
// readings mixed in so cleaning and anomaly detection have something to do.
//
// Usage:
//
//	go run ./cmd/genreadings -out data/mock/readings.json -sensors 4 -hours 24 -seed 42
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/agrisense/sensor-fusion-service/internal/domain"
)

var baseTime = time.Date(2026, time.June, 14, 0, 0, 0, 0, time.UTC)

type sensorDef struct {
	sensorType string
	unit       string
	baseline   float64
	step       float64
	outlier    float64 // value used for injected outliers
}

var defs = []sensorDef{
	{sensorType: "soil_moisture", unit: "m3/m3", baseline: 0.32, step: 0.01, outlier: 0.95},
	{sensorType: "temperature", unit: "celsius", baseline: 21.0, step: 0.4, outlier: 85.0},
	{sensorType: "humidity", unit: "percent", baseline: 58.0, step: 1.2, outlier: 5.0},
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "output path for the readings JSON fixture")
	sensors := flag.Int("sensors", 3, "number of sensors per type")
	hours := flag.Int("hours", 24, "time span to cover")
	interval := flag.Duration("interval", 10*time.Minute, "spacing between readings per sensor")
	outlierPct := flag.Float64("outlier-pct", 0.02, "fraction of readings replaced with outliers")
	lowQualityPct := flag.Float64("low-quality-pct", 0.05, "fraction of readings given quality below 0.5")
	seed := flag.Int64("seed", 1, "random seed for reproducible fixtures")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}

	// Fixed clock so regenerated fixtures stay byte-identical.
	domain.SetClock(clockwork.NewFakeClockAt(baseTime.Add(time.Duration(*hours) * time.Hour)))
	defer domain.SetClock(nil)

	rng := rand.New(rand.NewSource(*seed))
	readings := generate(rng, *sensors, *hours, *interval, *outlierPct, *lowQualityPct)

	data, err := json.MarshalIndent(readings, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal readings: %w", err)
	}
	if err := os.WriteFile(*out, data, 0o644); err != nil {
		return fmt.Errorf("write fixture: %w", err)
	}

	log.Printf("wrote %d readings to %s", len(readings), *out)
	return nil
}

func generate(rng *rand.Rand, sensors, hours int, interval time.Duration, outlierPct, lowQualityPct float64) []domain.Reading {
	var readings []domain.Reading

	for _, def := range defs {
		for s := 0; s < sensors; s++ {
			sensorID := fmt.Sprintf("%s-%s", def.sensorType, uuid.NewString()[:8])
			lat := 44.80 + rng.Float64()*0.01
			lng := 20.40 + rng.Float64()*0.01
			value := def.baseline

			for ts := baseTime; ts.Before(baseTime.Add(time.Duration(hours) * time.Hour)); ts = ts.Add(interval) {
				value += (rng.Float64()*2 - 1) * def.step

				r := domain.NewReading(sensorID, def.sensorType, value, def.unit, ts)
				r.Location = &domain.Location{Lat: lat, Lng: lng}
				r.QualityScore = 0.75 + rng.Float64()*0.25

				switch {
				case rng.Float64() < outlierPct:
					r = r.Derive(def.outlier, map[string]any{"injected": "outlier"})
				case rng.Float64() < lowQualityPct:
					r.QualityScore = rng.Float64() * 0.5
					r.Metadata["injected"] = "low_quality"
				}

				readings = append(readings, r)
			}
		}
	}

	return readings
}
