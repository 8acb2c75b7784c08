package telegram

import (
	"fmt"
	"strings"
	"time"

	"github.com/tgwatch/relay/internal/relay"
)

// floodWaitSeconds extracts the wait from a FLOOD_WAIT error, 0 when the
// error is something else. The error string is the most stable surface to
// probe without coupling to the raw RPC error types; the format is
// "rpc error code 420: FLOOD_WAIT_15".
func floodWaitSeconds(err error) int {
	if err == nil {
		return 0
	}

	str := err.Error()
	parts := strings.Split(str, "FLOOD_WAIT_")
	if len(parts) < 2 {
		return 0
	}

	var seconds int
	_, _ = fmt.Sscanf(strings.TrimSpace(parts[1]), "%d", &seconds)
	return seconds
}

// wrapRPCError maps raw transport failures onto the relay error taxonomy.
// FLOOD_WAIT additionally arms the shared rate limiter so unrelated calls
// back off too.
func (c *Client) wrapRPCError(op string, err error) error {
	if err == nil {
		return nil
	}

	if secs := floodWaitSeconds(err); secs > 0 {
		c.rateLimiter.SetFloodWait(secs)
		return &relay.RateLimitedError{RetryAfter: time.Duration(secs) * time.Second}
	}

	str := err.Error()
	switch {
	case strings.Contains(str, "USERNAME_NOT_OCCUPIED"),
		strings.Contains(str, "USERNAME_INVALID"),
		strings.Contains(str, "PEER_ID_INVALID"),
		strings.Contains(str, "CHANNEL_INVALID"),
		strings.Contains(str, "not found"):
		return fmt.Errorf("%s: %w", op, relay.ErrNotFound)
	case strings.Contains(str, "CHANNEL_PRIVATE"),
		strings.Contains(str, "CHAT_ADMIN_REQUIRED"):
		return fmt.Errorf("%s: %w", op, relay.ErrPermissionDenied)
	}

	return fmt.Errorf("%s: %w", op, err)
}
