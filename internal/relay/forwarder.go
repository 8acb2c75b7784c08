package relay

import (
	"context"
	"errors"
	"time"

	"github.com/tgwatch/relay/internal/logger"
)

// Outbound is one composed payload ready for submission.
type Outbound struct {
	Text     string
	FilePath string // when set, sent as media with Text as the caption
	ThreadID int    // reply-reconstruction id or resolved topic, 0 = main chat
}

// Forwarder submits composed payloads to the destination chat.
//
// Rate-limit policy: when the transport signals a required wait, the
// forwarder sleeps for the signaled duration and retries exactly once. A
// failure of the retry abandons the message. The policy is uniform for text
// and media sends.
type Forwarder struct {
	tr  Transport
	reg *Registry
	log *logger.Logger
}

// NewForwarder creates a forwarder bound to the registry's destination.
func NewForwarder(tr Transport, reg *Registry, log *logger.Logger) *Forwarder {
	return &Forwarder{tr: tr, reg: reg, log: log}
}

// Deliver submits the payload and returns the destination message id.
func (f *Forwarder) Deliver(ctx context.Context, out Outbound) (int, error) {
	id, err := f.send(ctx, out)

	var limited *RateLimitedError
	if errors.As(err, &limited) {
		f.log.Warn().
			Dur("retry_after", limited.RetryAfter).
			Msg("relay: destination throttled, waiting before single retry")

		select {
		case <-time.After(limited.RetryAfter):
		case <-ctx.Done():
			return 0, ctx.Err()
		}
		return f.send(ctx, out)
	}

	return id, err
}

func (f *Forwarder) send(ctx context.Context, out Outbound) (int, error) {
	dest := f.reg.Destination()
	if out.FilePath != "" {
		return f.tr.SendFile(ctx, dest, out.FilePath, out.Text, out.ThreadID)
	}
	return f.tr.SendText(ctx, dest, out.Text, out.ThreadID)
}
