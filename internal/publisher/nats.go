// Package publisher emits relay outcome events to NATS for downstream
// consumers. Publishing is best effort and optional; the relay runs fine
// without a broker.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/tgwatch/relay/internal/relay"
)

// Subjects, one event per outcome.
const (
	SubjectRelayed = "relay.forwarded"
	SubjectFailed  = "relay.failed"
)

// NATSClient interface to allow mocking
type NATSClient interface {
	Publish(subject string, data []byte) error
}

// NATSPublisher implements relay.EventPublisher
type NATSPublisher struct {
	conn NATSClient
}

// Connect dials the broker and returns a publisher over the connection.
func Connect(url string) (*NATSPublisher, *nats.Conn, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to nats: %w", err)
	}
	return NewNATSPublisher(conn), conn, nil
}

// NewNATSPublisher creates a publisher over an existing connection.
func NewNATSPublisher(conn NATSClient) *NATSPublisher {
	return &NATSPublisher{conn: conn}
}

// PublishRelayed publishes a forwarded-message event.
func (p *NATSPublisher) PublishRelayed(_ context.Context, event relay.RelayedEvent) error {
	return p.publish(SubjectRelayed, event)
}

// PublishFailed publishes an abandoned-message event.
func (p *NATSPublisher) PublishFailed(_ context.Context, event relay.FailedEvent) error {
	return p.publish(SubjectFailed, event)
}

func (p *NATSPublisher) publish(subject string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}

	return nil
}
