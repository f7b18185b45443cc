// Package security provides the buffered, non-blocking publisher for
// security-category audit events.
//
// Emission never blocks the request path: events land in a bounded ring
// buffer and a background loop flushes them to the configured sinks (the
// audit store, optionally a SIEM feed). Under sustained pressure the oldest
// buffered events are dropped and counted.
package security

import (
	"context"
	"log/slog"
	"time"

	audit "garrison/pkg/platform/audit"
	auditmetrics "garrison/pkg/platform/audit/metrics"
)

// Sink receives flushed security events. The audit store satisfies this, as
// does the SIEM publisher.
type Sink interface {
	Append(ctx context.Context, event audit.Event) error
}

// Publisher emits security events asynchronously.
type Publisher struct {
	buffer  *ringBuffer
	sinks   []Sink
	logger  *slog.Logger
	metrics *auditmetrics.Metrics

	flushInterval time.Duration
	batchSize     int
}

// Option configures the Publisher.
type Option func(*Publisher)

// WithLogger sets a logger for flush failures.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) { p.logger = logger }
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *auditmetrics.Metrics) Option {
	return func(p *Publisher) { p.metrics = m }
}

// WithBufferCapacity bounds the ring buffer.
func WithBufferCapacity(capacity int) Option {
	return func(p *Publisher) { p.buffer = newRingBuffer(capacity) }
}

// WithFlushInterval overrides how often the background loop drains the buffer.
func WithFlushInterval(interval time.Duration) Option {
	return func(p *Publisher) { p.flushInterval = interval }
}

// New creates a security publisher flushing to the given sinks.
func New(sinks []Sink, opts ...Option) *Publisher {
	p := &Publisher{
		buffer:        newRingBuffer(0),
		sinks:         sinks,
		flushInterval: time.Second,
		batchSize:     256,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit buffers a security event. Never blocks and never fails; the category
// is stamped here so sinks always see a security-tagged event.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) {
	event.Category = audit.CategorySecurity
	if dropped := p.buffer.enqueue(event); dropped {
		if p.metrics != nil {
			p.metrics.SecurityBufferDrops.Inc()
		}
		if p.logger != nil {
			p.logger.WarnContext(ctx, "security event buffer full, dropped oldest",
				"dropped_total", p.buffer.droppedTotal(),
			)
		}
	}
}

// Run drains the buffer until ctx is cancelled, then performs a final flush.
func (p *Publisher) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// Last drain so shutdown does not lose buffered events.
			p.flush(context.WithoutCancel(ctx))
			return nil
		case <-ticker.C:
			p.flush(ctx)
		}
	}
}

func (p *Publisher) flush(ctx context.Context) {
	for {
		batch := p.buffer.dequeueBatch(p.batchSize)
		if len(batch) == 0 {
			return
		}
		for _, event := range batch {
			for _, sink := range p.sinks {
				if err := sink.Append(ctx, event); err != nil {
					if p.metrics != nil {
						p.metrics.SecurityFlushFailures.Inc()
					}
					if p.logger != nil {
						p.logger.ErrorContext(ctx, "security event flush failed",
							"action", event.Action,
							"error", err,
						)
					}
				}
			}
		}
	}
}

// Pending reports how many events are buffered. Test helper.
func (p *Publisher) Pending() int { return p.buffer.len() }

// Flush drains the buffer synchronously. Test helper.
func (p *Publisher) Flush(ctx context.Context) { p.flush(ctx) }
