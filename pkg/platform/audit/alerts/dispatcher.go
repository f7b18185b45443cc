// Package alerts delivers high-risk audit events to an on-call notifier.
// Delivery is best effort: the queue is bounded, failures are retried a
// fixed number of times, and nothing here ever blocks or fails the audit
// write path.
package alerts

import (
	"context"
	"log/slog"
	"time"

	audit "garrison/pkg/platform/audit"
	auditmetrics "garrison/pkg/platform/audit/metrics"
)

// Notifier receives an alert for a single high-risk event.
type Notifier interface {
	Notify(ctx context.Context, event audit.Event, riskScore int) error
}

const (
	defaultQueueSize   = 128
	defaultMaxAttempts = 3
	defaultRetryDelay  = 250 * time.Millisecond
)

// Dispatcher fans high-risk events out to a Notifier from a background
// worker. Enqueue never blocks; when the queue is full the alert is dropped
// and counted.
type Dispatcher struct {
	notifier Notifier
	queue    chan audit.Event
	logger   *slog.Logger
	metrics  *auditmetrics.Metrics
	breaker  *breaker

	maxAttempts int
	retryDelay  time.Duration
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = logger }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *auditmetrics.Metrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

// WithQueueSize overrides the bounded queue capacity.
func WithQueueSize(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.queue = make(chan audit.Event, n)
		}
	}
}

// WithRetry overrides the delivery attempt count and backoff delay.
func WithRetry(attempts int, delay time.Duration) Option {
	return func(d *Dispatcher) {
		if attempts > 0 {
			d.maxAttempts = attempts
		}
		if delay > 0 {
			d.retryDelay = delay
		}
	}
}

// NewDispatcher creates a dispatcher for the given notifier.
func NewDispatcher(notifier Notifier, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		notifier:    notifier,
		queue:       make(chan audit.Event, defaultQueueSize),
		logger:      slog.Default(),
		breaker:     newBreaker(5, time.Minute),
		maxAttempts: defaultMaxAttempts,
		retryDelay:  defaultRetryDelay,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Enqueue queues an event for alert delivery. Returns immediately; a full
// queue drops the alert.
func (d *Dispatcher) Enqueue(event audit.Event) {
	select {
	case d.queue <- event:
	default:
		if d.metrics != nil {
			d.metrics.AlertsDropped.Inc()
		}
		d.logger.Warn("alert queue full, dropping alert",
			"action", event.Action,
			"risk_score", event.RiskScore,
		)
	}
}

// Run drains the queue until ctx is cancelled, then delivers whatever is
// already queued before returning.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			d.drain()
			return
		case event := <-d.queue:
			d.deliver(ctx, event)
		}
	}
}

func (d *Dispatcher) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		select {
		case event := <-d.queue:
			d.deliver(ctx, event)
		default:
			return
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, event audit.Event) {
	if d.notifier == nil {
		return
	}
	if !d.breaker.allow() {
		if d.metrics != nil {
			d.metrics.AlertsDropped.Inc()
		}
		return
	}

	var err error
	for attempt := 1; attempt <= d.maxAttempts; attempt++ {
		err = d.notifier.Notify(ctx, event, event.RiskScore)
		if err == nil {
			d.breaker.recordSuccess()
			if d.metrics != nil {
				d.metrics.AlertsDispatched.Inc()
			}
			return
		}
		if attempt < d.maxAttempts {
			select {
			case <-ctx.Done():
				attempt = d.maxAttempts
			case <-time.After(d.retryDelay):
			}
		}
	}

	d.breaker.recordFailure()
	if d.metrics != nil {
		d.metrics.AlertFailures.Inc()
	}
	d.logger.Error("alert delivery failed",
		"action", event.Action,
		"risk_score", event.RiskScore,
		"error", err,
	)
}

// Pending reports queued alerts. Test helper.
func (d *Dispatcher) Pending() int { return len(d.queue) }
