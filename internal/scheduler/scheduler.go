// Package scheduler publishes periodic fusion reports over the readings
// currently held by the streaming service.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/agrisense/sensor-fusion-service/internal/fusion"
	"github.com/agrisense/sensor-fusion-service/internal/observability"
)

const publishTimeout = 30 * time.Second

// Reporter produces a fusion report over the current stream state.
type Reporter interface {
	Report() fusion.Report
}

// ReportPublisher writes a fusion report to the destination.
type ReportPublisher interface {
	PublishReport(ctx context.Context, report fusion.Report) error
}

// Scheduler periodically builds and publishes a fusion report.
type Scheduler struct {
	scheduler *gocron.Scheduler
	reporter  Reporter
	publisher ReportPublisher
	interval  time.Duration
	metrics   *observability.Metrics
	logger    *slog.Logger
}

// New creates a report Scheduler firing at the given interval.
func New(reporter Reporter, publisher ReportPublisher, interval time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		reporter:  reporter,
		publisher: publisher,
		interval:  interval,
		metrics:   metrics,
		logger:    logger,
	}
}

// Start schedules the periodic report job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	_, err := s.scheduler.Every(s.interval).Do(s.publishReport)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	s.logger.Info("report scheduler started", "interval", s.interval)
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

func (s *Scheduler) publishReport() {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	report := s.reporter.Report()
	if report.TotalReadings == 0 {
		s.logger.Debug("skipping report, no buffered readings")
		return
	}

	if err := s.publisher.PublishReport(ctx, report); err != nil {
		s.logger.Error("publish report failed", "error", err, "field_id", report.FieldID)
		return
	}

	s.metrics.ReportsProduced.Inc()
	s.metrics.AnomaliesDetected.Add(float64(len(report.Anomalies)))
	s.logger.Info("published fusion report",
		"field_id", report.FieldID,
		"total_readings", report.TotalReadings,
		"anomalies", len(report.Anomalies))
}
