package relay

import "context"

// Reply reconstruction: the destination shares no message graph with the
// sources, so a relayed reply loses its context unless the replied-to content
// is relayed first and the reply is threaded to it.

// relayRepliedTo fetches the message the incoming one replies to, relays it
// anchored to the resolved topic, and returns the destination id the actual
// message should thread to. The destination's reply semantics keep the reply
// in the same topic as the message it threads to.
//
// The id mapping lives only for this call. A later reply to the same original
// message repeats the whole sequence; there is no cross-reply deduplication.
//
// On any failure the main message must not be lost: ok is false and the
// caller anchors it to the topic directly.
func (s *Service) relayRepliedTo(ctx context.Context, msg Message, topic int) (destID int, ok bool) {
	ref, err := s.tr.GetMessage(ctx, msg.Chat, msg.ReplyTo)
	if err != nil {
		s.log.Warn().Err(err).
			Int64("chat_id", msg.Chat.ID).
			Int("reply_to", msg.ReplyTo).
			Msg("relay: replied-to message unavailable, relaying without context")
		return 0, false
	}

	// reuse a previously seen sender descriptor when the fetch came back
	// without one (e.g. anonymous admins)
	if ref.From.ID != 0 {
		if ref.From.Username == "" && ref.From.DisplayName == "" {
			if known := s.cache.User(ref.From.ID); known != nil {
				ref.From = *known
			}
		} else {
			s.cache.PutUser(&User{
				ID:          ref.From.ID,
				AccessHash:  ref.From.AccessHash,
				Username:    ref.From.Username,
				DisplayName: ref.From.DisplayName,
			})
		}
	}

	id, err := s.relayOne(ctx, *ref, topic)
	if err != nil {
		s.log.Warn().Err(err).
			Int64("chat_id", msg.Chat.ID).
			Int("reply_to", msg.ReplyTo).
			Msg("relay: replied-to relay failed, relaying without context")
		return 0, false
	}
	return id, true
}
