package pipeline

import (
	"context"
	"log/slog"

	"github.com/agrisense/sensor-fusion-service/internal/domain"
	"github.com/agrisense/sensor-fusion-service/internal/fusion"
)

// ReadingTransformer implements Transformer by parsing the collector JSON
// and applying the engine's per-type calibration.
type ReadingTransformer struct {
	engine *fusion.Engine
	logger *slog.Logger
}

// NewTransformer creates a ReadingTransformer backed by engine.
func NewTransformer(engine *fusion.Engine, logger *slog.Logger) *ReadingTransformer {
	return &ReadingTransformer{
		engine: engine,
		logger: logger,
	}
}

func (t *ReadingTransformer) Transform(_ context.Context, raw domain.RawEvent) (domain.Reading, error) {
	reading, err := domain.ParseRawReading(raw)
	if err != nil {
		return domain.Reading{}, err
	}

	return t.engine.Calibrate([]domain.Reading{reading})[0], nil
}
