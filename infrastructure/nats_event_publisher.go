package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"goldennest/events"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// ChannelNATS names the forwarder in side-channel failure metrics
const ChannelNATS = "nats"

// MessagePublisher sends raw bytes to a subject
type MessagePublisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// FailureRecorder counts side-channel failures per channel
type FailureRecorder interface {
	RecordSideChannelFailure(ctx context.Context, channel string)
}

// EventEnvelope wraps every forwarded event
type EventEnvelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	Timestamp     time.Time       `json:"timestamp"`
	SourceService string          `json:"source_service"`
	Payload       json.RawMessage `json:"payload"`
}

// NATSEventPublisher forwards committed domain events to NATS
type NATSEventPublisher struct {
	client        MessagePublisher
	subjectMapper *EventSubjectMapper
	failures      FailureRecorder
	now           func() time.Time
}

// NewNATSEventPublisher creates a new NATS event publisher. failures may be nil.
func NewNATSEventPublisher(client MessagePublisher, subjectMapper *EventSubjectMapper, failures FailureRecorder) *NATSEventPublisher {
	return &NATSEventPublisher{
		client:        client,
		subjectMapper: subjectMapper,
		failures:      failures,
		now:           time.Now,
	}
}

// Publish wraps an event in an envelope and publishes it on its subject.
// Events without a subject are skipped.
func (p *NATSEventPublisher) Publish(ctx context.Context, event events.Event) error {
	subject, ok := p.subjectMapper.MapEventToSubject(event)
	if !ok {
		return nil
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}

	envelope := EventEnvelope{
		EventID:       uuid.New().String(),
		EventType:     string(event.Type()),
		Timestamp:     p.now().UTC(),
		SourceService: "goldennest",
		Payload:       payload,
	}

	envelopeData, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal event envelope: %w", err)
	}

	if err := p.client.Publish(ctx, subject, envelopeData); err != nil {
		return fmt.Errorf("failed to publish event to NATS: %w", err)
	}

	log.WithFields(log.Fields{
		"eventType": event.Type(),
		"eventId":   envelope.EventID,
		"subject":   subject,
	}).Debug("Successfully published event to NATS")

	return nil
}

// Attach forwards every event emitted on the bus. Failures are logged and
// counted, never returned to the emitter.
func (p *NATSEventPublisher) Attach(bus *events.Bus) {
	bus.SubscribeAll(func(ctx context.Context, event events.Event) {
		if err := p.Publish(ctx, event); err != nil {
			log.WithFields(log.Fields{
				"eventType": event.Type(),
				"error":     err,
			}).Warn("Failed to forward event to NATS")
			if p.failures != nil {
				p.failures.RecordSideChannelFailure(ctx, ChannelNATS)
			}
		}
	})
}

// EnsureEventStream creates the stream holding every forwarded subject
func EnsureEventStream(client *NATSClient, streamName string, mapper *EventSubjectMapper) error {
	return client.EnsureStream(streamName, mapper.GetAllSubjects())
}
