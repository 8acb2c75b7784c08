package relay

import (
	"context"
	"strings"
	"time"

	"github.com/tgwatch/relay/internal/logger"
)

// EventPublisher publishes relay outcome events.
type EventPublisher interface {
	PublishRelayed(ctx context.Context, event RelayedEvent) error
	PublishFailed(ctx context.Context, event FailedEvent) error
}

// RelayedEvent describes one message delivered to the destination.
type RelayedEvent struct {
	SourceChatID int64     `json:"source_chat_id"`
	SourceMsgID  int       `json:"source_msg_id"`
	DestMsgID    int       `json:"dest_msg_id"`
	Topic        int       `json:"topic,omitempty"`
	HasMedia     bool      `json:"has_media"`
	RelayedAt    time.Time `json:"relayed_at"`
}

// FailedEvent describes one message abandoned after delivery failed.
type FailedEvent struct {
	SourceChatID int64     `json:"source_chat_id"`
	SourceMsgID  int       `json:"source_msg_id"`
	Reason       string    `json:"reason"`
	FailedAt     time.Time `json:"failed_at"`
}

// Service runs one incoming message through classification, reply
// reconstruction, media relay and forwarding.
type Service struct {
	classifier *Classifier
	fwd        *Forwarder
	tr         Transport
	cache      *Cache
	store      *Store
	reg        *Registry
	publisher  EventPublisher // optional
	log        *logger.Logger
}

// NewService wires the pipeline components over an initialized registry.
func NewService(reg *Registry, tr Transport, cache *Cache, store *Store, pub EventPublisher, log *logger.Logger) *Service {
	return &Service{
		classifier: NewClassifier(reg),
		fwd:        NewForwarder(tr, reg, log),
		tr:         tr,
		cache:      cache,
		store:      store,
		reg:        reg,
		publisher:  pub,
		log:        log,
	}
}

// Process handles one incoming message end to end. Every steady-state failure
// is caught here; the consumer loop never sees an error.
func (s *Service) Process(ctx context.Context, msg Message) {
	dec := s.classifier.Classify(msg)
	if !dec.Forward {
		s.log.Debug().
			Int64("chat_id", msg.Chat.ID).
			Int64("sender_id", msg.From.ID).
			Msg("relay: message filtered")
		return
	}

	threadID := dec.Topic
	if msg.ReplyTo != 0 {
		if id, ok := s.relayRepliedTo(ctx, msg, dec.Topic); ok {
			threadID = id
		}
	}

	destID, err := s.relayOne(ctx, msg, threadID)
	if err != nil {
		s.log.Error().Err(err).
			Int64("chat_id", msg.Chat.ID).
			Int("msg_id", msg.MsgID).
			Msg("relay: forwarding failed, message abandoned")
		if s.publisher != nil {
			event := FailedEvent{
				SourceChatID: msg.Chat.ID,
				SourceMsgID:  msg.MsgID,
				Reason:       err.Error(),
				FailedAt:     time.Now().UTC(),
			}
			if err := s.publisher.PublishFailed(ctx, event); err != nil {
				s.log.Warn().Err(err).Msg("relay: failed to publish failure event")
			}
		}
		return
	}

	s.log.Info().
		Int64("chat_id", msg.Chat.ID).
		Int("msg_id", msg.MsgID).
		Int("dest_msg_id", destID).
		Int("topic", dec.Topic).
		Msg("relay: message forwarded")

	if s.publisher != nil {
		event := RelayedEvent{
			SourceChatID: msg.Chat.ID,
			SourceMsgID:  msg.MsgID,
			DestMsgID:    destID,
			Topic:        dec.Topic,
			HasMedia:     msg.Media != nil,
			RelayedAt:    time.Now().UTC(),
		}
		if err := s.publisher.PublishRelayed(ctx, event); err != nil {
			s.log.Warn().Err(err).Msg("relay: failed to publish relay event")
		}
	}
}

// relayOne delivers a single message body: media with text fallback when
// media is attached, plain text otherwise. Returns the destination id.
func (s *Service) relayOne(ctx context.Context, msg Message, threadID int) (int, error) {
	chat := s.reg.ResolvedChat(msg.Chat)
	body := composeBody(chat, msg.From, msg.Text)

	if msg.Media != nil {
		id, err := s.relayMedia(ctx, msg, body, threadID)
		if err == nil {
			return id, nil
		}
		// the textual content must still be delivered
		s.log.Warn().Err(err).
			Int64("chat_id", msg.Chat.ID).
			Int("msg_id", msg.MsgID).
			Msg("relay: media relay failed, falling back to text")
	}

	return s.fwd.Deliver(ctx, Outbound{Text: body, ThreadID: threadID})
}

// composeBody builds the destination text with the source attribution the
// destination reader needs: origin chat, author, then the original text.
func composeBody(chat Chat, from User, text string) string {
	var b strings.Builder

	title := chat.Title
	if title == "" && chat.Username != "" {
		title = "@" + chat.Username
	}
	b.WriteString("From: ")
	b.WriteString(title)

	if author := authorLine(from); author != "" {
		b.WriteString("\nAuthor: ")
		b.WriteString(author)
	}

	if text != "" {
		b.WriteString("\n\n")
		b.WriteString(text)
	}
	return b.String()
}

func authorLine(from User) string {
	if from.Username != "" {
		return "@" + from.Username
	}
	return from.DisplayName
}
