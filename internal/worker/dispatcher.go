// Package worker runs background jobs that drain the notification outbox.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"fitcrush/config"
	"fitcrush/internal/metrics"
	"fitcrush/internal/models"
	"fitcrush/internal/mq"
	"fitcrush/internal/repository"
)

// Deliverer presents one event to its recipient.
type Deliverer interface {
	Deliver(ctx context.Context, evt *models.OutboxEvent) error
}

// Dispatcher polls due outbox events and hands them to the notification
// channels. It owns the retry policy; failures never reach the request that
// wrote the event.
type Dispatcher struct {
	outbox    *repository.OutboxRepository
	deliverer Deliverer
	publisher mq.Publisher
	cfg       config.WorkerConfig
	stopCh    chan struct{}
	now       func() time.Time
}

// NewDispatcher builds a dispatcher. publisher may be nil when no broker is
// configured.
func NewDispatcher(outbox *repository.OutboxRepository, deliverer Deliverer, publisher mq.Publisher, cfg config.WorkerConfig) *Dispatcher {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 5
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = 2 * time.Second
	}
	if cfg.MaxBackoff < cfg.BaseBackoff {
		cfg.MaxBackoff = cfg.BaseBackoff
	}
	return &Dispatcher{
		outbox:    outbox,
		deliverer: deliverer,
		publisher: publisher,
		cfg:       cfg,
		stopCh:    make(chan struct{}),
		now:       time.Now,
	}
}

func (d *Dispatcher) Start(ctx context.Context) {
	slog.Info("outbox dispatcher started", "interval", d.cfg.PollInterval, "max_retries", d.cfg.MaxRetries)

	ticker := time.NewTicker(d.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("outbox dispatcher stopped", "reason", ctx.Err())
			return
		case <-d.stopCh:
			slog.Info("outbox dispatcher stopped")
			return
		case <-ticker.C:
			d.RunOnce(ctx)
		}
	}
}

func (d *Dispatcher) Stop() {
	close(d.stopCh)
}

// RunOnce dispatches one batch and returns how many events were attempted.
func (d *Dispatcher) RunOnce(ctx context.Context) int {
	events, err := d.outbox.Due(ctx, d.now(), d.cfg.BatchSize)
	if err != nil {
		slog.Error("load due outbox events", "error", err)
		return 0
	}
	for i := range events {
		d.dispatch(ctx, &events[i])
	}
	return len(events)
}

func (d *Dispatcher) dispatch(ctx context.Context, evt *models.OutboxEvent) {
	err := d.deliver(ctx, evt)
	if err == nil {
		if err := d.outbox.MarkSent(ctx, evt.ID, d.now()); err != nil {
			slog.Error("mark outbox event sent", "event_id", evt.EventID, "error", err)
		}
		metrics.OutboxDispatched.WithLabelValues(evt.Type, "sent").Inc()
		return
	}

	attempt := evt.RetryCount + 1
	if attempt >= d.cfg.MaxRetries {
		slog.Error("outbox event failed permanently",
			"event_id", evt.EventID, "type", evt.Type, "user_id", evt.UserID, "attempts", attempt, "error", err)
		if merr := d.outbox.MarkFailed(ctx, evt.ID, err.Error()); merr != nil {
			slog.Error("mark outbox event failed", "event_id", evt.EventID, "error", merr)
		}
		metrics.OutboxDispatched.WithLabelValues(evt.Type, "failed").Inc()
		return
	}

	next := d.now().Add(Backoff(d.cfg.BaseBackoff, d.cfg.MaxBackoff, evt.RetryCount))
	slog.Warn("outbox event delivery failed, retrying",
		"event_id", evt.EventID, "type", evt.Type, "attempt", attempt, "next_attempt_at", next, "error", err)
	if serr := d.outbox.ScheduleRetry(ctx, evt.ID, next, err.Error()); serr != nil {
		slog.Error("schedule outbox retry", "event_id", evt.EventID, "error", serr)
	}
	metrics.OutboxDispatched.WithLabelValues(evt.Type, "retry").Inc()
}

// busEvent is the Kafka message body.
type busEvent struct {
	EventID string          `json:"event_id"`
	Type    string          `json:"type"`
	UserID  uint            `json:"user_id"`
	Payload json.RawMessage `json:"payload"`
}

func (d *Dispatcher) deliver(ctx context.Context, evt *models.OutboxEvent) error {
	if err := d.deliverer.Deliver(ctx, evt); err != nil {
		return err
	}
	if d.publisher == nil {
		return nil
	}
	body, err := json.Marshal(busEvent{EventID: evt.EventID, Type: evt.Type, UserID: evt.UserID, Payload: json.RawMessage(evt.Payload)})
	if err != nil {
		return err
	}
	if err := d.publisher.Publish(ctx, evt.EventID, body); err != nil {
		return fmt.Errorf("publish %s: %w", evt.Type, err)
	}
	return nil
}

// Backoff returns base * 2^retry, capped at max.
func Backoff(base, max time.Duration, retry int) time.Duration {
	if retry < 0 {
		retry = 0
	}
	d := base
	for i := 0; i < retry; i++ {
		d *= 2
		if d >= max {
			return max
		}
	}
	if d > max {
		return max
	}
	return d
}
