package telegram

import (
	"github.com/celestix/gotgproto/dispatcher/handlers"
	"github.com/celestix/gotgproto/dispatcher/handlers/filters"
	"github.com/celestix/gotgproto/ext"
	"github.com/gotd/td/tg"

	"github.com/tgwatch/relay/internal/relay"
)

// OnNewMessage registers a dispatcher handler that converts every incoming
// message into a relay.Message and offers it to enqueue. A false return from
// enqueue means the intake queue is full; the message is dropped with a log
// line rather than blocking the update loop.
func (c *Client) OnNewMessage(enqueue func(relay.Message) bool) {
	proto := c.manager.Client()
	if proto == nil {
		return
	}

	proto.Dispatcher.AddHandler(handlers.NewMessage(filters.Message.All, func(_ *ext.Context, update *ext.Update) error {
		m := update.EffectiveMessage
		if m == nil || m.Out {
			return nil
		}

		msg := relay.Message{
			Chat:    c.eventChat(update),
			MsgID:   m.ID,
			Text:    m.Text,
			Media:   downloadableMedia(m.Media),
			ReplyTo: replyTargetID(m.ReplyTo),
		}
		if u := update.EffectiveUser(); u != nil {
			msg.From = relay.User{
				ID:          u.ID,
				AccessHash:  u.AccessHash,
				Username:    u.Username,
				DisplayName: displayName(u),
			}
			c.cache.PutUser(&msg.From)
		}

		if !enqueue(msg) {
			c.log.Warn().
				Int64("chat_id", msg.Chat.ID).
				Int("msg_id", msg.MsgID).
				Msg("telegram: intake queue full, message dropped")
		}
		return nil
	}))
}

// eventChat builds the chat descriptor for an update, preferring the full
// descriptor resolved at startup over the bare id the update carries.
func (c *Client) eventChat(update *ext.Update) relay.Chat {
	id := update.EffectiveChat().GetID()
	if known := c.cache.Chat(relay.CanonicalChatID(id)); known != nil {
		return *known
	}
	return relay.Chat{
		ID:         relay.CanonicalChatID(id),
		AccessHash: update.EffectiveChat().GetAccessHash(),
		Kind:       relay.PeerChannel,
	}
}

// replyTargetID extracts the replied-to message id. In forum chats every
// message carries a reply header pointing at the topic root; that header has
// ForumTopic set and no ReplyToTopID, and is not a reply.
func replyTargetID(raw tg.MessageReplyHeaderClass) int {
	h, ok := raw.(*tg.MessageReplyHeader)
	if !ok {
		return 0
	}
	if h.ForumTopic && h.ReplyToTopID == 0 {
		return 0
	}
	return h.ReplyToMsgID
}

// downloadableMedia keeps only attachments the relay can re-upload. Webpage
// previews, polls, geo and the like relay as text.
func downloadableMedia(media tg.MessageMediaClass) tg.MessageMediaClass {
	switch media.(type) {
	case *tg.MessageMediaPhoto, *tg.MessageMediaDocument:
		return media
	}
	return nil
}
