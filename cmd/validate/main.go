// Command validate runs the batch fusion engine offline over a readings
// fixture and checks the results: every record must parse and validate,
// cleaning must only ever shrink the set, and the report must cover every
// surviving sensor type. Useful for vetting fixtures produced by genreadings
// or exported from a live topic before feeding them to tests.
//
// Usage:
//
//	go run ./cmd/validate -readings data/mock/readings.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/agrisense/sensor-fusion-service/internal/domain"
	"github.com/agrisense/sensor-fusion-service/internal/fusion"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	readingsPath := flag.String("readings", "", "path to readings JSON fixture")
	fieldID := flag.String("field-id", "field-validate", "field identifier for the report")
	flag.Parse()

	if *readingsPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*readingsPath, *fieldID); code != 0 {
		os.Exit(code)
	}
}

func run(readingsPath, fieldID string) int {
	fmt.Println("=== Sensor Reading Fixture Validation ===")
	fmt.Println()

	data, err := os.ReadFile(readingsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: read fixture: %v\n", err)
		return 1
	}

	var readings []domain.Reading
	if err := json.Unmarshal(data, &readings); err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: parse fixture: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateReadings(readings),
		validateCleaning(readings, fieldID),
		validateReport(readings, fieldID),
	}

	failed := 0
	for _, p := range phases {
		if p.passed() {
			fmt.Printf("PASS  %s\n", p.name)
			continue
		}
		failed++
		fmt.Printf("FAIL  %s\n", p.name)
		for _, e := range p.errors {
			fmt.Printf("      - %s\n", e)
		}
	}

	fmt.Println()
	if failed > 0 {
		fmt.Printf("%d of %d phases failed\n", failed, len(phases))
		return 1
	}
	fmt.Printf("all %d phases passed (%d readings)\n", len(phases), len(readings))
	return 0
}

func validateReadings(readings []domain.Reading) *phase {
	p := &phase{name: "reading integrity"}
	if len(readings) == 0 {
		p.errorf("fixture contains no readings")
		return p
	}
	for i, r := range readings {
		if err := r.Validate(); err != nil {
			p.errorf("reading %d (%s): %v", i, r.SensorID, err)
		}
	}
	return p
}

func validateCleaning(readings []domain.Reading, fieldID string) *phase {
	p := &phase{name: "cleaning"}
	engine := fusion.NewEngine(fieldID, nil, nil, discardLogger())

	cleaned := engine.Clean(readings, fusion.DefaultCleanOptions())
	if len(cleaned) > len(readings) {
		p.errorf("cleaning grew the set: %d -> %d", len(readings), len(cleaned))
	}
	for i, r := range cleaned {
		if r.QualityScore < 0.5 {
			p.errorf("cleaned reading %d (%s) kept quality %.2f", i, r.SensorID, r.QualityScore)
		}
	}

	fmt.Printf("      cleaning: %d -> %d readings\n", len(readings), len(cleaned))
	return p
}

func validateReport(readings []domain.Reading, fieldID string) *phase {
	p := &phase{name: "report coverage"}
	engine := fusion.NewEngine(fieldID, nil, nil, discardLogger())

	cleaned := engine.Clean(readings, fusion.DefaultCleanOptions())
	report := engine.BuildReport(cleaned)

	types := map[string]bool{}
	for _, r := range cleaned {
		types[r.SensorType] = true
	}
	for sensorType := range types {
		if _, ok := report.Types[sensorType]; !ok {
			p.errorf("report missing stats for %s", sensorType)
		}
		if _, ok := report.FusedValues[sensorType]; !ok {
			p.errorf("report missing fused value for %s", sensorType)
		}
	}
	if report.TotalReadings != len(cleaned) {
		p.errorf("report counted %d readings, expected %d", report.TotalReadings, len(cleaned))
	}

	fmt.Printf("      report: %d types, %d anomalies\n", len(report.Types), len(report.Anomalies))
	return p
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
