package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/agrisense/sensor-fusion-service/internal/domain"
	"github.com/agrisense/sensor-fusion-service/internal/observability"
)

// BatchExtractor reads up to batchSize raw events from the source.
type BatchExtractor interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawEvent, error)
}

// Transformer converts a raw event into a calibrated reading.
type Transformer interface {
	Transform(ctx context.Context, raw domain.RawEvent) (domain.Reading, error)
}

// Ingestor accepts one reading and returns the current fused snapshot values.
type Ingestor interface {
	Ingest(r domain.Reading) (map[string]float64, error)
}

// SnapshotPublisher writes a fused snapshot to the destination.
type SnapshotPublisher interface {
	PublishSnapshot(ctx context.Context, snapshot domain.FusedSnapshot) error
}

// Pipeline orchestrates the extract-transform-ingest loop and publishes a
// fused snapshot after every batch that accepts at least one reading.
type Pipeline struct {
	extractor   BatchExtractor
	transformer Transformer
	ingestor    Ingestor
	publisher   SnapshotPublisher
	fieldID     string
	logger      *slog.Logger
	metrics     *observability.Metrics
	ready       atomic.Bool
	batchSize   int
}

// New creates a Pipeline with the given stages and observability.
func New(e BatchExtractor, t Transformer, i Ingestor, pub SnapshotPublisher, fieldID string, logger *slog.Logger, metrics *observability.Metrics, batchSize int) *Pipeline {
	return &Pipeline{
		extractor:   e,
		transformer: t,
		ingestor:    i,
		publisher:   pub,
		fieldID:     fieldID,
		logger:      logger,
		metrics:     metrics,
		batchSize:   batchSize,
	}
}

// CheckReadiness returns nil if the pipeline has processed at least one reading,
// or an error describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not processed any readings yet")
	}
	return nil
}

// Run executes the batch loop until the context is cancelled.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "batch_size", p.batchSize, "field_id", p.fieldID)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	// Exponential backoff: start at 200ms, double each retry, cap at 5s.
	// Keeps retry storms short while avoiding tight loops during Kafka outages.
	backoff := 200 * time.Millisecond
	maxBackoff := 5 * time.Second

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		default:
		}

		if !p.processBatch(ctx, &backoff, maxBackoff) {
			return nil
		}
	}
}

// processBatch runs one extract-transform-ingest cycle. Returns false if the pipeline should stop.
func (p *Pipeline) processBatch(ctx context.Context, backoff *time.Duration, maxBackoff time.Duration) bool {
	start := time.Now()

	rawBatch, err := p.extractor.ExtractBatch(ctx, p.batchSize)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		p.logger.Error("extract batch failed", "error", err)
		return p.backoffOrStop(ctx, backoff, maxBackoff)
	}

	if len(rawBatch) == 0 {
		return ctx.Err() == nil
	}

	p.metrics.ReadingsConsumed.Add(float64(len(rawBatch)))
	p.metrics.BatchSize.Observe(float64(len(rawBatch)))
	*backoff = 200 * time.Millisecond

	accepted, fused := p.transformAndIngest(ctx, rawBatch)
	if accepted == 0 {
		return true
	}

	snapshot := domain.FusedSnapshot{
		FieldID:     p.fieldID,
		GeneratedAt: domain.Now(),
		Values:      fused,
	}
	if err := p.publisher.PublishSnapshot(ctx, snapshot); err != nil {
		if ctx.Err() != nil {
			return false
		}
		p.logger.Error("publish snapshot failed", "error", err, "accepted", accepted)
		return p.backoffOrStop(ctx, backoff, maxBackoff)
	}
	p.metrics.SnapshotsProduced.Inc()

	p.metrics.BatchProcessingDuration.Observe(time.Since(start).Seconds())
	p.ready.Store(true)
	return true
}

// transformAndIngest parses, calibrates, and ingests each message in the
// batch, committing offsets as it goes. Malformed or invalid readings are
// skipped and committed so they are never redelivered. Returns the number of
// accepted readings and the fused snapshot values after the last ingest.
func (p *Pipeline) transformAndIngest(ctx context.Context, rawBatch []domain.RawEvent) (int, map[string]float64) {
	accepted := 0
	var fused map[string]float64

	for _, raw := range rawBatch {
		reading, err := p.transformer.Transform(ctx, raw)
		if err != nil {
			p.logger.Warn("transform failed, skipping message",
				"error", err,
				"topic", raw.Topic,
				"partition", raw.Partition,
				"offset", raw.Offset,
			)
			p.metrics.TransformErrors.Inc()
			p.metrics.ReadingsRejected.Inc()
			p.commitOffset(ctx, raw)
			continue
		}

		snapshot, err := p.ingestor.Ingest(reading)
		if err != nil {
			p.logger.Warn("ingest rejected reading, skipping message",
				"error", err,
				"sensor_id", reading.SensorID,
				"sensor_type", reading.SensorType,
			)
			p.metrics.ReadingsRejected.Inc()
			p.commitOffset(ctx, raw)
			continue
		}

		accepted++
		fused = snapshot
		p.commitOffset(ctx, raw)
	}

	return accepted, fused
}

// backoffOrStop checks for context cancellation, sleeps with the current backoff,
// and advances the backoff. Returns false if the pipeline should stop.
func (p *Pipeline) backoffOrStop(ctx context.Context, backoff *time.Duration, maxBackoff time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	if !sleepWithContext(ctx, *backoff) {
		return false
	}
	*backoff = nextBackoff(*backoff, maxBackoff)
	return true
}

// commitOffset commits the message offset if a commit function is available.
func (p *Pipeline) commitOffset(ctx context.Context, raw domain.RawEvent) {
	if raw.Commit == nil {
		return
	}
	if err := raw.Commit(ctx); err != nil {
		p.logger.Warn("commit offset failed", "error", err,
			"topic", raw.Topic, "partition", raw.Partition, "offset", raw.Offset)
	}
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
