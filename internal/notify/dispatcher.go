package notify

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/mr1hm/safespot-alerts/internal/models"
	"github.com/mr1hm/safespot-alerts/internal/observability"
	"github.com/mr1hm/safespot-alerts/internal/worker"
)

const sendTimeout = 5 * time.Second

// Dispatcher is a notification sink.
type Dispatcher interface {
	Name() string
	Send(ctx context.Context, n Notification) error
}

// Service fans notifications out to every sink on a worker pool. Delivery is
// best effort and never reported back to the caller.
type Service struct {
	sinks   []Dispatcher
	pool    *worker.WorkerPool[Notification]
	metrics *observability.Metrics
}

func NewService(sinks []Dispatcher, workers, bufferSize int, metrics *observability.Metrics) *Service {
	s := &Service{
		sinks:   sinks,
		metrics: metrics,
	}
	s.pool = worker.NewWorkerPool("notify", workers, bufferSize, s.deliver)
	return s
}

func (s *Service) Start(ctx context.Context) {
	s.pool.Start(ctx)
}

// Stop drains queued notifications and waits for the workers.
func (s *Service) Stop() {
	s.pool.Stop()
	slog.Info("notification service stopped")
}

// Dispatch queues one notification per alert and returns immediately.
func (s *Service) Dispatch(ctx context.Context, alerts []models.Alert) {
	for _, a := range alerts {
		n := FromAlert(a)
		if err := s.pool.TrySubmit(n); err != nil {
			if errors.Is(err, worker.ErrQueueFull) {
				slog.Warn("notification queue full, dropping", "hazard_id", n.HazardID)
			} else {
				slog.Warn("notification not queued", "hazard_id", n.HazardID, "error", err)
			}
			s.count("queue", "dropped")
			continue
		}
		slog.Debug("notification queued", "hazard_id", n.HazardID, "priority", n.Priority)
	}
}

func (s *Service) deliver(ctx context.Context, n Notification) error {
	var errs []error
	for _, sink := range s.sinks {
		sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
		err := sink.Send(sendCtx, n)
		cancel()
		if err != nil {
			slog.Error("notification send failed", "sink", sink.Name(), "hazard_id", n.HazardID, "error", err)
			s.count(sink.Name(), "error")
			errs = append(errs, err)
			continue
		}
		s.count(sink.Name(), "success")
	}
	return errors.Join(errs...)
}

func (s *Service) count(sink, outcome string) {
	if s.metrics != nil {
		s.metrics.Notifications.WithLabelValues(sink, outcome).Inc()
	}
}
