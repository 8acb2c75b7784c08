package relay

import (
	"context"
	"fmt"
)

// relayMedia downloads the attached media into a per-operation scratch
// directory and forwards it with the composed caption. The caller falls back
// to a text-only send when this fails.
func (s *Service) relayMedia(ctx context.Context, msg Message, caption string, threadID int) (int, error) {
	dir, release, err := s.store.Acquire()
	if err != nil {
		return 0, fmt.Errorf("acquire media dir: %w", err)
	}
	defer release()

	path, err := s.tr.Download(ctx, msg.Media, dir)
	if err != nil {
		return 0, fmt.Errorf("download media: %w", err)
	}

	id, err := s.fwd.Deliver(ctx, Outbound{Text: caption, FilePath: path, ThreadID: threadID})
	if err != nil {
		return 0, fmt.Errorf("send media: %w", err)
	}
	return id, nil
}
