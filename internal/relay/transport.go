package relay

import (
	"context"

	"github.com/gotd/td/tg"
)

// Transport is the messaging client contract consumed by the pipeline.
// Implementations surface throttling as *RateLimitedError and map lookup
// failures to ErrNotFound / ErrPermissionDenied.
type Transport interface {
	// ResolvePeer resolves a numeric id or @username to a chat descriptor.
	ResolvePeer(ctx context.Context, identifier string) (*Chat, error)

	// GetMessage fetches a single message from a source chat, with its
	// sender descriptor hydrated.
	GetMessage(ctx context.Context, chat Chat, msgID int) (*Message, error)

	// SendText sends text to a destination chat and returns the new
	// destination message id. threadID of 0 targets the main chat.
	SendText(ctx context.Context, dest Chat, text string, threadID int) (int, error)

	// SendFile uploads a local file and sends it with a caption.
	SendFile(ctx context.Context, dest Chat, path string, caption string, threadID int) (int, error)

	// Download fetches the media payload into dir and returns the local path.
	Download(ctx context.Context, media tg.MessageMediaClass, dir string) (string, error)
}
