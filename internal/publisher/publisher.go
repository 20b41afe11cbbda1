package publisher

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/tradedeck/delta-adapter/internal/metrics"
	"github.com/tradedeck/delta-adapter/pkg/logger"
	"github.com/tradedeck/delta-adapter/pkg/model"
)

// Publisher wraps a NATS connection and provides helpers for publishing canonical events.
type Publisher struct {
	nc      *nats.Conn
	js      nats.JetStreamContext
	subject string
	service string
}

// New creates a new Publisher with JetStream enabled if available.
func New(nc *nats.Conn, subject, service string) (*Publisher, error) {
	js, err := nc.JetStream()
	if err != nil {
		return nil, err
	}
	return &Publisher{
		nc:      nc,
		js:      js,
		subject: subject,
		service: service,
	}, nil
}

// PublishEnvelope serializes and publishes a canonical event envelope to NATS.
func (p *Publisher) PublishEnvelope(ctx context.Context, subject string, env *model.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		logger.S().Errorw("publisher.marshal_failed",
			"subject", subject,
			"event_type", env.EventType,
			"error", err,
		)
		metrics.IncError("publisher", "marshal_failed")
		return err
	}

	if subject == "" {
		subject = p.subject
	}

	msg := &nats.Msg{
		Subject: subject,
		Data:    data,
		Header: nats.Header{
			"event_type":     []string{env.EventType},
			"correlation_id": []string{env.CorrelationID.String()},
			"service":        []string{p.service},
			"content_type":   []string{"application/json"},
			"client_id":      []string{env.ClientID},
		},
	}

	start := time.Now()
	_, err = p.js.PublishMsg(msg)
	metrics.ObserveDuration(metrics.NATSMessageLatency, start, subject)

	if err != nil {
		logger.S().Errorw("publisher.publish_failed",
			"subject", subject,
			"event_type", env.EventType,
			"client_id", env.ClientID,
			"error", err,
		)
		metrics.IncNATSMessage(subject, "error")
		return err
	}

	logger.S().Infow("publisher.publish_success",
		"subject", subject,
		"event_type", env.EventType,
		"client_id", env.ClientID,
	)

	metrics.IncNATSMessage(subject, "ok")
	return nil
}

// PublishOrderPlaced emits an order.placed event for a trade relayed to the venue.
func (p *Publisher) PublishOrderPlaced(ctx context.Context, clientID string, trade model.Trade) error {
	env := &model.Envelope{
		ID:            uuid.New(),
		CorrelationID: uuid.New(),
		ClientID:      clientID,
		Topic:         "evt.delta.order.placed.v1",
		EventType:     model.EventOrderPlaced,
		OccurredAt:    time.Now().UTC(),
		Payload:       trade,
	}
	return p.PublishEnvelope(ctx, env.Topic, env)
}

// PublishConnectionTested emits a connection.tested event with the outcome.
func (p *Publisher) PublishConnectionTested(ctx context.Context, clientID string, success bool) error {
	env := &model.Envelope{
		ID:            uuid.New(),
		CorrelationID: uuid.New(),
		ClientID:      clientID,
		Topic:         "evt.delta.connection.tested.v1",
		EventType:     model.EventConnectionTest,
		OccurredAt:    time.Now().UTC(),
		Payload:       map[string]bool{"success": success},
	}
	return p.PublishEnvelope(ctx, env.Topic, env)
}

// PublishOrderCancelled emits an order.cancelled event.
func (p *Publisher) PublishOrderCancelled(ctx context.Context, clientID, venueOrderID string) error {
	env := &model.Envelope{
		ID:            uuid.New(),
		CorrelationID: uuid.New(),
		ClientID:      clientID,
		Topic:         "evt.delta.order.cancelled.v1",
		EventType:     model.EventOrderCancelled,
		OccurredAt:    time.Now().UTC(),
		Payload:       map[string]string{"venue_order_id": venueOrderID},
	}
	return p.PublishEnvelope(ctx, env.Topic, env)
}
