package relay

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tgwatch/relay/internal/logger"
)

func classifierFixture(t *testing.T, defaultTopic int, sources ...SourceRule) *Classifier {
	t.Helper()

	tr := newFakeTransport()
	tr.peers["dest"] = &Chat{ID: 900, Kind: PeerChannel}
	tr.peers["1111111111"] = &Chat{ID: 1111111111, Kind: PeerChannel}
	tr.peers["2222222222"] = &Chat{ID: 2222222222, Kind: PeerChannel}
	tr.peers["workchat"] = &Chat{ID: 3333333333, Username: "workchat", Kind: PeerChannel}

	cfg := &Config{Destination: "dest", DefaultTopic: defaultTopic, Sources: sources}
	reg, err := BuildRegistry(context.Background(), cfg, tr, logger.Get())
	require.NoError(t, err)
	return NewClassifier(reg)
}

func TestClassify_UnknownChatIgnored(t *testing.T) {
	c := classifierFixture(t, 0, SourceRule{Kind: KindChannel, ID: 1111111111})

	dec := c.Classify(Message{Chat: Chat{ID: 42}})
	if dec.Forward {
		t.Error("message from unmonitored chat must not forward")
	}
}

func TestClassify_ChannelForwardsUnconditionally(t *testing.T) {
	// a filter on a channel rule is ignored: posts have no attributable sender
	c := classifierFixture(t, 0, SourceRule{
		Kind:  KindChannel,
		ID:    1111111111,
		Allow: &SenderFilter{Usernames: []string{"nobody"}},
	})

	dec := c.Classify(Message{Chat: Chat{ID: 1111111111}})
	if !dec.Forward {
		t.Error("channel post must forward regardless of filter")
	}
}

func TestClassify_GroupWithoutFilterForwardsAll(t *testing.T) {
	c := classifierFixture(t, 0, SourceRule{Kind: KindPrivateGroup, ID: -2222222222})

	dec := c.Classify(Message{
		Chat: Chat{ID: 2222222222},
		From: User{ID: 1, Username: "anyone"},
	})
	if !dec.Forward {
		t.Error("group without allow-list must forward every sender")
	}
}

func TestClassify_GroupFilter(t *testing.T) {
	c := classifierFixture(t, 0, SourceRule{
		Kind:     KindPublicGroup,
		Username: "workchat",
		Allow:    &SenderFilter{Usernames: []string{"alice"}, UserIDs: []int64{42}},
	})

	tests := []struct {
		name string
		from User
		want bool
	}{
		{"allowed username", User{ID: 1, Username: "alice"}, true},
		{"allowed username uppercase", User{ID: 1, Username: "ALICE"}, true},
		{"allowed id", User{ID: 42}, true},
		{"either match suffices", User{ID: 42, Username: "not_listed"}, true},
		{"unlisted sender", User{ID: 7, Username: "mallory"}, false},
		{"anonymous sender", User{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dec := c.Classify(Message{Chat: Chat{ID: 3333333333}, From: tt.from})
			if dec.Forward != tt.want {
				t.Errorf("Forward = %v, want %v", dec.Forward, tt.want)
			}
		})
	}
}

func TestClassify_TopicPrecedence(t *testing.T) {
	tests := []struct {
		name         string
		ruleTopic    int
		defaultTopic int
		want         int
	}{
		{"per-source topic wins", 15, 7, 15},
		{"default topic applies", 0, 7, 7},
		{"no topic configured", 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := classifierFixture(t, tt.defaultTopic, SourceRule{
				Kind:  KindChannel,
				ID:    1111111111,
				Topic: tt.ruleTopic,
			})

			dec := c.Classify(Message{Chat: Chat{ID: 1111111111}})
			if dec.Topic != tt.want {
				t.Errorf("Topic = %d, want %d", dec.Topic, tt.want)
			}
		})
	}
}
