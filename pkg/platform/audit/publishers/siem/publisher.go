// Package siem publishes security-category audit events to Kafka for SIEM
// consumption. Delivery is fire-and-forget: a failed produce is logged and
// counted but never propagated to the caller.
package siem

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	audit "garrison/pkg/platform/audit"
)

// Publisher produces audit events to a Kafka topic.
type Publisher struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

// New connects a Kafka producer for the given brokers and topic.
func New(brokers []string, topic string, logger *slog.Logger) (*Publisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("siem publisher requires at least one broker")
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return &Publisher{client: client, topic: topic, logger: logger}, nil
}

// payload is the JSON shape consumed by the SIEM pipeline. Field names are
// stable; additions are fine, renames are not.
type payload struct {
	ID           string `json:"id"`
	Category     string `json:"category"`
	Timestamp    string `json:"timestamp"`
	ActorID      string `json:"actor_id,omitempty"`
	SessionID    string `json:"session_id,omitempty"`
	IPAddress    string `json:"ip_address,omitempty"`
	UserAgent    string `json:"user_agent,omitempty"`
	RequestID    string `json:"request_id,omitempty"`
	ResourceType string `json:"resource_type"`
	ResourceID   string `json:"resource_id,omitempty"`
	Action       string `json:"action"`
	FieldName    string `json:"field_name,omitempty"`
	Failed       bool   `json:"failed,omitempty"`
	Details      string `json:"details,omitempty"`
	Severity     string `json:"severity"`
	RiskScore    int    `json:"risk_score"`
}

// Append publishes one event. Satisfies the security publisher's Sink so the
// SIEM feed can sit next to the audit store in the flush fan-out.
func (p *Publisher) Append(ctx context.Context, event audit.Event) error {
	body := payload{
		ID:           event.ID.String(),
		Category:     string(event.Category),
		Timestamp:    event.Timestamp.Format(time.RFC3339Nano),
		IPAddress:    event.IPAddress,
		UserAgent:    event.UserAgent,
		RequestID:    event.RequestID,
		ResourceType: event.ResourceType,
		ResourceID:   event.ResourceID,
		Action:       event.Action,
		FieldName:    event.FieldName,
		Failed:       event.Failed,
		Details:      event.Details,
		Severity:     string(event.Severity),
		RiskScore:    event.RiskScore,
	}
	if !event.ActorID.IsNil() {
		body.ActorID = event.ActorID.String()
	}
	if !event.SessionID.IsNil() {
		body.SessionID = event.SessionID.String()
	}

	value, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal siem payload: %w", err)
	}

	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(event.ResourceID),
		Value: value,
	}
	p.client.Produce(ctx, record, func(_ *kgo.Record, err error) {
		if err != nil && p.logger != nil {
			p.logger.Error("siem produce failed",
				"action", event.Action,
				"error", err,
			)
		}
	})
	return nil
}

// Close flushes outstanding produces and releases the client.
func (p *Publisher) Close(ctx context.Context) error {
	if err := p.client.Flush(ctx); err != nil {
		p.client.Close()
		return fmt.Errorf("flush kafka producer: %w", err)
	}
	p.client.Close()
	return nil
}
