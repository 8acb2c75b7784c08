package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/tgwatch/relay/internal/relay"
)

type mockNATS struct {
	subject string
	data    []byte
	err     error
}

func (m *mockNATS) Publish(subject string, data []byte) error {
	m.subject = subject
	m.data = data
	return m.err
}

func TestPublishRelayed(t *testing.T) {
	mock := &mockNATS{}
	p := NewNATSPublisher(mock)

	event := relay.RelayedEvent{
		SourceChatID: 1111111111,
		SourceMsgID:  10,
		DestMsgID:    1001,
		Topic:        15,
		HasMedia:     true,
		RelayedAt:    time.Now().UTC(),
	}

	if err := p.PublishRelayed(context.Background(), event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if mock.subject != SubjectRelayed {
		t.Errorf("subject = %s, want %s", mock.subject, SubjectRelayed)
	}

	var got relay.RelayedEvent
	if err := json.Unmarshal(mock.data, &got); err != nil {
		t.Fatalf("payload is not valid json: %v", err)
	}
	if got.SourceChatID != event.SourceChatID || got.DestMsgID != event.DestMsgID {
		t.Errorf("roundtrip mismatch: got %+v", got)
	}
}

func TestPublishFailed(t *testing.T) {
	mock := &mockNATS{}
	p := NewNATSPublisher(mock)

	event := relay.FailedEvent{
		SourceChatID: 1111111111,
		SourceMsgID:  10,
		Reason:       "peer flood",
		FailedAt:     time.Now().UTC(),
	}

	if err := p.PublishFailed(context.Background(), event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if mock.subject != SubjectFailed {
		t.Errorf("subject = %s, want %s", mock.subject, SubjectFailed)
	}

	var got relay.FailedEvent
	if err := json.Unmarshal(mock.data, &got); err != nil {
		t.Fatalf("payload is not valid json: %v", err)
	}
	if got.Reason != event.Reason {
		t.Errorf("Reason = %s, want %s", got.Reason, event.Reason)
	}
}

func TestPublishRelayed_BrokerError(t *testing.T) {
	mock := &mockNATS{err: errors.New("connection closed")}
	p := NewNATSPublisher(mock)

	if err := p.PublishRelayed(context.Background(), relay.RelayedEvent{}); err == nil {
		t.Error("expected error from broker")
	}
}
