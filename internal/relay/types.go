// Package relay implements the message routing pipeline: classifying incoming
// chat events against configured source rules, reconstructing reply context at
// the destination, relaying media and submitting the final payload.
package relay

import (
	"strconv"
	"strings"

	"github.com/gotd/td/tg"
)

// SourceKind identifies the configured type of a monitored chat.
type SourceKind string

// Source kinds. Exactly one per rule.
const (
	KindChannel      SourceKind = "channel"
	KindPublicGroup  SourceKind = "public_group"
	KindPrivateGroup SourceKind = "private_group"
)

// SenderFilter is an allow-list of senders that enable forwarding from a
// filtered source. A sender passes when its username or its id matches.
type SenderFilter struct {
	Usernames []string
	UserIDs   []int64
}

// Empty reports whether the filter constrains nothing.
func (f *SenderFilter) Empty() bool {
	return f == nil || (len(f.Usernames) == 0 && len(f.UserIDs) == 0)
}

// Allows reports whether the sender matches any configured username or id.
func (f *SenderFilter) Allows(u User) bool {
	if f == nil {
		return false
	}
	if u.Username != "" {
		name := NormalizeUsername(u.Username)
		for _, allowed := range f.Usernames {
			if NormalizeUsername(allowed) == name {
				return true
			}
		}
	}
	for _, id := range f.UserIDs {
		if id == u.ID {
			return true
		}
	}
	return false
}

// SourceRule is one configured source chat plus its matching and filtering
// policy.
type SourceRule struct {
	Kind     SourceKind
	ID       int64  // channel and private_group rules
	Username string // public_group rules
	Allow    *SenderFilter
	Topic    int // destination topic override, 0 = use default
}

// Identifier returns the configured chat identifier as passed to the
// transport resolver. The numeric id wins when both fields are set.
func (r *SourceRule) Identifier() string {
	if r.ID != 0 {
		return strconv.FormatInt(r.ID, 10)
	}
	return r.Username
}

// Config is the routing configuration consumed by the registry.
type Config struct {
	Destination  string // destination chat: numeric id or @username
	DefaultTopic int    // 0 = no default topic
	Sources      []SourceRule
}

// PeerKind tags the closed set of peer descriptor shapes.
type PeerKind int

// Peer kinds.
const (
	PeerChannel PeerKind = iota // channel or supergroup
	PeerGroup                   // legacy group
	PeerUser
)

// Chat is a normalized chat descriptor resolved at the transport boundary.
type Chat struct {
	ID         int64
	AccessHash int64
	Username   string // without @, may be empty
	Title      string
	Kind       PeerKind
	Forum      bool
}

// User is a normalized sender descriptor.
type User struct {
	ID          int64
	AccessHash  int64
	Username    string
	DisplayName string
}

// Message is one incoming event normalized by the transport.
type Message struct {
	Chat    Chat
	From    User // zero value for channel posts
	MsgID   int
	Text    string
	Media   tg.MessageMediaClass // nil when no relayable media attached
	ReplyTo int                  // source message id this replies to, 0 = none
}

// Decision is the classifier output for one incoming message.
type Decision struct {
	Rule    *SourceRule
	Forward bool
	Topic   int // resolved destination topic, 0 = none
}

// channelIDOffset separates the bare internal channel id from the
// -100-prefixed form used by bot-style APIs and exported links.
const channelIDOffset = int64(1000000000000)

// CanonicalChatID maps every numeric spelling of a chat id to a single
// canonical positive form: -100-prefixed channel ids lose the prefix, legacy
// negative group ids lose the sign.
func CanonicalChatID(id int64) int64 {
	if id <= -channelIDOffset {
		return -id - channelIDOffset
	}
	if id < 0 {
		return -id
	}
	return id
}

// NormalizeUsername lowercases a username and strips a leading @.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(username), "@"))
}
