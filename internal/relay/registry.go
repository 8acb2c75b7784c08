package relay

import (
	"context"
	"fmt"

	"github.com/tgwatch/relay/internal/logger"
)

// Resolver resolves a configured identifier to a peer descriptor.
type Resolver interface {
	ResolvePeer(ctx context.Context, identifier string) (*Chat, error)
}

// sourceEntry pairs a rule with its startup-resolved descriptor.
// chat == nil means resolution failed and the rule is inert for this run.
type sourceEntry struct {
	rule *SourceRule
	chat *Chat
}

// Registry is the immutable-after-init set of source rules plus the resolved
// destination. It is built once at startup and safe for concurrent reads.
type Registry struct {
	byID     map[int64]*sourceEntry
	byName   map[string]*sourceEntry
	dest     Chat
	defTopic int
}

// BuildRegistry resolves the destination and every configured source through
// the transport and indexes the rules for lookup.
//
// A source that cannot be resolved is logged and stays inert for the rest of
// the process run. A destination that cannot be resolved is a fatal error.
func BuildRegistry(ctx context.Context, cfg *Config, res Resolver, log *logger.Logger) (*Registry, error) {
	dest, err := res.ResolvePeer(ctx, cfg.Destination)
	if err != nil {
		return nil, fmt.Errorf("resolve destination %q: %w", cfg.Destination, err)
	}
	log.Info().
		Str("destination", cfg.Destination).
		Int64("chat_id", dest.ID).
		Str("title", dest.Title).
		Msg("relay: destination resolved")

	r := &Registry{
		byID:     make(map[int64]*sourceEntry),
		byName:   make(map[string]*sourceEntry),
		dest:     *dest,
		defTopic: cfg.DefaultTopic,
	}

	for i := range cfg.Sources {
		rule := cfg.Sources[i]
		entry := &sourceEntry{rule: &rule}

		if dup := r.register(entry); dup {
			log.Warn().
				Str("identifier", rule.Identifier()).
				Msg("relay: duplicate source rule, keeping the first one")
			continue
		}

		chat, err := res.ResolvePeer(ctx, rule.Identifier())
		if err != nil {
			log.Warn().Err(err).
				Str("kind", string(rule.Kind)).
				Str("identifier", rule.Identifier()).
				Msg("relay: source unresolved, rule disabled for this run")
			continue
		}
		entry.chat = chat

		// events carry ids, so a source configured by username is also
		// indexed under its resolved id
		if rule.ID == 0 {
			key := CanonicalChatID(chat.ID)
			if _, taken := r.byID[key]; !taken {
				r.byID[key] = entry
			}
		}

		log.Info().
			Str("kind", string(rule.Kind)).
			Str("identifier", rule.Identifier()).
			Str("title", chat.Title).
			Msg("relay: source resolved")
	}

	return r, nil
}

// register indexes the entry under whichever identifier the rule carries and
// reports whether the key was already taken.
func (r *Registry) register(entry *sourceEntry) bool {
	if entry.rule.ID != 0 {
		key := CanonicalChatID(entry.rule.ID)
		if _, taken := r.byID[key]; taken {
			return true
		}
		r.byID[key] = entry
		return false
	}
	key := NormalizeUsername(entry.rule.Username)
	if _, taken := r.byName[key]; taken {
		return true
	}
	r.byName[key] = entry
	return false
}

// Lookup returns the single source rule matching the chat, or nil. Inert
// rules never match.
func (r *Registry) Lookup(chat Chat) *SourceRule {
	if e, ok := r.byID[CanonicalChatID(chat.ID)]; ok && e.chat != nil {
		return e.rule
	}
	if chat.Username != "" {
		if e, ok := r.byName[NormalizeUsername(chat.Username)]; ok && e.chat != nil {
			return e.rule
		}
	}
	return nil
}

// ResolvedChat returns the startup-resolved descriptor for the chat when one
// exists, falling back to the event-supplied descriptor.
func (r *Registry) ResolvedChat(chat Chat) Chat {
	if e, ok := r.byID[CanonicalChatID(chat.ID)]; ok && e.chat != nil {
		return *e.chat
	}
	if chat.Username != "" {
		if e, ok := r.byName[NormalizeUsername(chat.Username)]; ok && e.chat != nil {
			return *e.chat
		}
	}
	return chat
}

// Destination returns the resolved destination chat.
func (r *Registry) Destination() Chat {
	return r.dest
}

// DefaultTopic returns the configured global default topic, 0 when unset.
func (r *Registry) DefaultTopic() int {
	return r.defTopic
}
