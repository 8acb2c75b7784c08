package relay

import (
	"errors"
	"fmt"
	"time"
)

// transport error taxonomy
var (
	ErrNotFound         = errors.New("peer not found")
	ErrPermissionDenied = errors.New("access to peer denied")
)

// RateLimitedError is a throttling signal from the transport carrying the
// wait the server demands before the call may be repeated.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}
