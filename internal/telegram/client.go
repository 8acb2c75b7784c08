package telegram

import (
	"context"
	"fmt"
	"math/rand/v2"
	"mime"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gotd/td/telegram/downloader"
	"github.com/gotd/td/telegram/uploader"
	"github.com/gotd/td/tg"

	"github.com/tgwatch/relay/internal/logger"
	"github.com/tgwatch/relay/internal/relay"
)

// Client implements relay.Transport over the MTProto connection. All calls
// pass through a shared flood-wait-aware rate limiter, and resolved peers are
// memoized in the entity cache.
type Client struct {
	manager     *Manager
	cache       *relay.Cache
	rateLimiter *RateLimiter
	log         *logger.Logger
}

// NewClient creates a client wrapper over a started manager.
func NewClient(manager *Manager, cache *relay.Cache) *Client {
	return &Client{
		manager:     manager,
		cache:       cache,
		rateLimiter: DefaultRateLimiter(),
		log:         logger.Get(),
	}
}

// api returns the raw MTProto API surface.
func (c *Client) api() (*tg.Client, error) {
	proto := c.manager.Client()
	if proto == nil {
		return nil, fmt.Errorf("telegram client not started")
	}
	return proto.API(), nil
}

// ResolvePeer resolves a numeric id or @username to a chat descriptor.
func (c *Client) ResolvePeer(ctx context.Context, identifier string) (*relay.Chat, error) {
	identifier = strings.TrimSpace(identifier)

	if id, err := strconv.ParseInt(identifier, 10, 64); err == nil {
		return c.resolveID(ctx, id)
	}
	return c.resolveUsername(ctx, identifier)
}

func (c *Client) resolveID(ctx context.Context, id int64) (*relay.Chat, error) {
	canonical := relay.CanonicalChatID(id)
	if known := c.cache.Chat(canonical); known != nil {
		return known, nil
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}
	api, err := c.api()
	if err != nil {
		return nil, err
	}

	// channels first: the session already knows peers the account monitors,
	// so a zero access hash is accepted for them
	res, chErr := api.ChannelsGetChannels(ctx, []tg.InputChannelClass{
		&tg.InputChannel{ChannelID: canonical},
	})
	if chErr == nil {
		if chat := firstChat(res); chat != nil {
			c.cache.PutChat(chat)
			return chat, nil
		}
	}

	// fall back to legacy groups, which need no access hash at all
	res, err = api.MessagesGetChats(ctx, []int64{canonical})
	if err != nil {
		if chErr != nil {
			err = chErr
		}
		return nil, c.wrapRPCError(fmt.Sprintf("resolve chat %d", id), err)
	}
	if chat := firstChat(res); chat != nil {
		c.cache.PutChat(chat)
		return chat, nil
	}

	return nil, fmt.Errorf("resolve chat %d: %w", id, relay.ErrNotFound)
}

func (c *Client) resolveUsername(ctx context.Context, username string) (*relay.Chat, error) {
	username = strings.TrimPrefix(username, "@")
	if known := c.cache.ChatByName(username); known != nil {
		return known, nil
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}
	api, err := c.api()
	if err != nil {
		return nil, err
	}

	resolved, err := api.ContactsResolveUsername(ctx, &tg.ContactsResolveUsernameRequest{
		Username: username,
	})
	if err != nil {
		return nil, c.wrapRPCError(fmt.Sprintf("resolve username %s", username), err)
	}

	for _, raw := range resolved.Chats {
		if chat := chatDescriptor(raw); chat != nil {
			c.cache.PutChat(chat)
			return chat, nil
		}
	}
	for _, raw := range resolved.Users {
		u, ok := raw.(*tg.User)
		if !ok {
			continue
		}
		chat := &relay.Chat{
			ID:         u.ID,
			AccessHash: u.AccessHash,
			Username:   u.Username,
			Title:      displayName(u),
			Kind:       relay.PeerUser,
		}
		c.cache.PutChat(chat)
		return chat, nil
	}

	return nil, fmt.Errorf("resolve username %s: %w", username, relay.ErrNotFound)
}

// GetMessage fetches a single message from a source chat with its sender
// descriptor hydrated from the response.
func (c *Client) GetMessage(ctx context.Context, chat relay.Chat, msgID int) (*relay.Message, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}
	api, err := c.api()
	if err != nil {
		return nil, err
	}

	ids := []tg.InputMessageClass{&tg.InputMessageID{ID: msgID}}

	var res tg.MessagesMessagesClass
	if chat.Kind == relay.PeerChannel {
		res, err = api.ChannelsGetMessages(ctx, &tg.ChannelsGetMessagesRequest{
			Channel: &tg.InputChannel{ChannelID: chat.ID, AccessHash: chat.AccessHash},
			ID:      ids,
		})
	} else {
		res, err = api.MessagesGetMessages(ctx, ids)
	}
	if err != nil {
		return nil, c.wrapRPCError(fmt.Sprintf("get message %d", msgID), err)
	}

	messages, users := splitMessages(res)
	for _, raw := range messages {
		m, ok := raw.(*tg.Message)
		if !ok || m.ID != msgID {
			continue
		}

		from := senderOf(m, users)
		if from.ID != 0 {
			c.cache.PutUser(&from)
		}

		return &relay.Message{
			Chat:    chat,
			From:    from,
			MsgID:   m.ID,
			Text:    m.Message,
			Media:   downloadableMedia(m.Media),
			ReplyTo: replyTargetID(m.ReplyTo),
		}, nil
	}

	return nil, fmt.Errorf("get message %d: %w", msgID, relay.ErrNotFound)
}

// SendText sends text to the destination and returns the new message id.
func (c *Client) SendText(ctx context.Context, dest relay.Chat, text string, threadID int) (int, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return 0, err
	}
	api, err := c.api()
	if err != nil {
		return 0, err
	}

	req := &tg.MessagesSendMessageRequest{
		Peer:     inputPeer(dest),
		Message:  text,
		RandomID: rand.Int64(),
	}
	if threadID > 0 {
		req.SetReplyTo(&tg.InputReplyToMessage{ReplyToMsgID: threadID})
	}

	updates, err := api.MessagesSendMessage(ctx, req)
	if err != nil {
		return 0, c.wrapRPCError("send text", err)
	}
	return sentMessageID(updates), nil
}

// SendFile uploads a local file and sends it with a caption.
func (c *Client) SendFile(ctx context.Context, dest relay.Chat, path string, caption string, threadID int) (int, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return 0, err
	}
	api, err := c.api()
	if err != nil {
		return 0, err
	}

	file, err := uploader.NewUploader(api).FromPath(ctx, path)
	if err != nil {
		return 0, fmt.Errorf("upload %s: %w", filepath.Base(path), err)
	}

	req := &tg.MessagesSendMediaRequest{
		Peer:     inputPeer(dest),
		Media:    uploadedMedia(path, file),
		Message:  caption,
		RandomID: rand.Int64(),
	}
	if threadID > 0 {
		req.SetReplyTo(&tg.InputReplyToMessage{ReplyToMsgID: threadID})
	}

	updates, err := api.MessagesSendMedia(ctx, req)
	if err != nil {
		return 0, c.wrapRPCError("send media", err)
	}
	return sentMessageID(updates), nil
}

// Download fetches the media payload into dir and returns the local path.
func (c *Client) Download(ctx context.Context, media tg.MessageMediaClass, dir string) (string, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return "", err
	}
	api, err := c.api()
	if err != nil {
		return "", err
	}

	loc, name, err := downloadTarget(media)
	if err != nil {
		return "", err
	}

	path := filepath.Join(dir, name)
	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}
	defer out.Close()

	if _, err := downloader.NewDownloader().Download(api, loc).Stream(ctx, out); err != nil {
		os.Remove(path)
		return "", c.wrapRPCError("download media", err)
	}
	return path, nil
}

// inputPeer builds the wire peer reference for a resolved descriptor.
func inputPeer(chat relay.Chat) tg.InputPeerClass {
	switch chat.Kind {
	case relay.PeerChannel:
		return &tg.InputPeerChannel{ChannelID: chat.ID, AccessHash: chat.AccessHash}
	case relay.PeerUser:
		return &tg.InputPeerUser{UserID: chat.ID, AccessHash: chat.AccessHash}
	default:
		return &tg.InputPeerChat{ChatID: chat.ID}
	}
}

// firstChat extracts the first usable descriptor from a chats response.
func firstChat(res tg.MessagesChatsClass) *relay.Chat {
	var chats []tg.ChatClass
	switch v := res.(type) {
	case *tg.MessagesChats:
		chats = v.Chats
	case *tg.MessagesChatsSlice:
		chats = v.Chats
	}
	for _, raw := range chats {
		if chat := chatDescriptor(raw); chat != nil {
			return chat
		}
	}
	return nil
}

// chatDescriptor normalizes a wire chat into the closed descriptor set.
func chatDescriptor(raw tg.ChatClass) *relay.Chat {
	switch v := raw.(type) {
	case *tg.Channel:
		return &relay.Chat{
			ID:         v.ID,
			AccessHash: v.AccessHash,
			Username:   v.Username,
			Title:      v.Title,
			Kind:       relay.PeerChannel,
			Forum:      v.Forum,
		}
	case *tg.Chat:
		return &relay.Chat{
			ID:    v.ID,
			Title: v.Title,
			Kind:  relay.PeerGroup,
		}
	}
	return nil
}

// splitMessages unpacks a messages response into messages and users.
func splitMessages(res tg.MessagesMessagesClass) ([]tg.MessageClass, []tg.UserClass) {
	switch v := res.(type) {
	case *tg.MessagesMessages:
		return v.Messages, v.Users
	case *tg.MessagesMessagesSlice:
		return v.Messages, v.Users
	case *tg.MessagesChannelMessages:
		return v.Messages, v.Users
	}
	return nil, nil
}

// senderOf resolves the message author against the response user list.
// Channel posts have no attributable author and yield the zero User.
func senderOf(m *tg.Message, users []tg.UserClass) relay.User {
	peer, ok := m.FromID.(*tg.PeerUser)
	if !ok {
		return relay.User{}
	}
	for _, raw := range users {
		u, uok := raw.(*tg.User)
		if !uok || u.ID != peer.UserID {
			continue
		}
		return relay.User{
			ID:          u.ID,
			AccessHash:  u.AccessHash,
			Username:    u.Username,
			DisplayName: displayName(u),
		}
	}
	return relay.User{ID: peer.UserID}
}

func displayName(u *tg.User) string {
	return strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
}

// sentMessageID digs the id of the freshly sent message out of the updates
// response.
func sentMessageID(updates tg.UpdatesClass) int {
	switch v := updates.(type) {
	case *tg.UpdateShortSentMessage:
		return v.ID
	case *tg.Updates:
		return findMessageID(v.Updates)
	case *tg.UpdatesCombined:
		return findMessageID(v.Updates)
	}
	return 0
}

func findMessageID(updates []tg.UpdateClass) int {
	for _, raw := range updates {
		if u, ok := raw.(*tg.UpdateMessageID); ok {
			return u.ID
		}
	}
	return 0
}

// downloadTarget maps a media attachment to its file location and a local
// file name.
func downloadTarget(media tg.MessageMediaClass) (tg.InputFileLocationClass, string, error) {
	switch m := media.(type) {
	case *tg.MessageMediaPhoto:
		if m.Photo == nil {
			return nil, "", fmt.Errorf("photo media without photo payload")
		}
		photo, ok := m.Photo.AsNotEmpty()
		if !ok {
			return nil, "", fmt.Errorf("empty photo payload")
		}
		if len(photo.Sizes) == 0 {
			return nil, "", fmt.Errorf("photo %d has no sizes", photo.ID)
		}
		// sizes are ordered smallest to largest
		largest := photo.Sizes[len(photo.Sizes)-1]
		loc := &tg.InputPhotoFileLocation{
			ID:            photo.ID,
			AccessHash:    photo.AccessHash,
			FileReference: photo.FileReference,
			ThumbSize:     largest.GetType(),
		}
		return loc, fmt.Sprintf("photo_%d.jpg", photo.ID), nil

	case *tg.MessageMediaDocument:
		if m.Document == nil {
			return nil, "", fmt.Errorf("document media without document payload")
		}
		doc, ok := m.Document.AsNotEmpty()
		if !ok {
			return nil, "", fmt.Errorf("empty document payload")
		}
		loc := &tg.InputDocumentFileLocation{
			ID:            doc.ID,
			AccessHash:    doc.AccessHash,
			FileReference: doc.FileReference,
		}
		return loc, documentFileName(doc), nil
	}

	return nil, "", fmt.Errorf("unsupported media type %T", media)
}

func documentFileName(doc *tg.Document) string {
	for _, attr := range doc.Attributes {
		if f, ok := attr.(*tg.DocumentAttributeFilename); ok && f.FileName != "" {
			return filepath.Base(f.FileName)
		}
	}
	if exts, err := mime.ExtensionsByType(doc.MimeType); err == nil && len(exts) > 0 {
		return fmt.Sprintf("doc_%d%s", doc.ID, exts[0])
	}
	return fmt.Sprintf("doc_%d.bin", doc.ID)
}

// uploadedMedia wraps an uploaded file as photo or document depending on the
// file type.
func uploadedMedia(path string, file tg.InputFileClass) tg.InputMediaClass {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".webp":
		return &tg.InputMediaUploadedPhoto{File: file}
	}

	mimeType := mime.TypeByExtension(ext)
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	return &tg.InputMediaUploadedDocument{
		File:     file,
		MimeType: mimeType,
		Attributes: []tg.DocumentAttributeClass{
			&tg.DocumentAttributeFilename{FileName: filepath.Base(path)},
		},
	}
}
