package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/agrisense/sensor-fusion-service/internal/config"
	"github.com/agrisense/sensor-fusion-service/internal/domain"
	"github.com/agrisense/sensor-fusion-service/internal/fusion"
)

// Writer produces fused snapshots and fusion reports to their topics.
// It implements pipeline.SnapshotPublisher and scheduler.ReportPublisher.
type Writer struct {
	snapshots *kafkago.Writer
	reports   *kafkago.Writer
	logger    *slog.Logger
}

// NewWriter creates Kafka producers for the configured snapshot and report topics.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	newTopicWriter := func(topic string) *kafkago.Writer {
		return &kafkago.Writer{
			Addr:         kafkago.TCP(cfg.KafkaBrokers...),
			Topic:        topic,
			Balancer:     &kafkago.LeastBytes{},
			RequiredAcks: kafkago.RequireAll,
		}
	}
	return &Writer{
		snapshots: newTopicWriter(cfg.KafkaSnapshotTopic),
		reports:   newTopicWriter(cfg.KafkaReportTopic),
		logger:    logger,
	}
}

// PublishSnapshot serializes and publishes a fused snapshot.
func (w *Writer) PublishSnapshot(ctx context.Context, snapshot domain.FusedSnapshot) error {
	msg, err := snapshotToMessage(snapshot)
	if err != nil {
		return err
	}
	return w.snapshots.WriteMessages(ctx, msg)
}

// PublishReport serializes and publishes a fusion report.
func (w *Writer) PublishReport(ctx context.Context, report fusion.Report) error {
	msg, err := reportToMessage(report)
	if err != nil {
		return err
	}
	return w.reports.WriteMessages(ctx, msg)
}

func (w *Writer) Close() error {
	snapErr := w.snapshots.Close()
	if err := w.reports.Close(); err != nil {
		return err
	}
	return snapErr
}

// snapshotToMessage marshals a FusedSnapshot into a Kafka message keyed by field.
func snapshotToMessage(snapshot domain.FusedSnapshot) (kafkago.Message, error) {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize fused snapshot: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(snapshot.FieldID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "field_id", Value: []byte(snapshot.FieldID)},
			{Key: "generated_at", Value: []byte(snapshot.GeneratedAt.Format(time.RFC3339))},
		},
	}, nil
}

// reportToMessage marshals a fusion Report into a Kafka message keyed by field.
func reportToMessage(report fusion.Report) (kafkago.Message, error) {
	data, err := json.Marshal(report)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize fusion report: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(report.FieldID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "field_id", Value: []byte(report.FieldID)},
			{Key: "generated_at", Value: []byte(report.GeneratedAt.Format(time.RFC3339))},
		},
	}, nil
}
