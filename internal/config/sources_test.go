package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tgwatch/relay/internal/relay"
)

func writeSources(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sources.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadSources(t *testing.T) {
	path := writeSources(t, `
destination: "@dest_group"
default_topic: 2
sources:
  - kind: channel
    id: -1001111111111
    topic: 15
  - kind: public_group
    username: "@WorkChat"
    allow:
      usernames: ["@Alice", "bob"]
      user_ids: [42]
  - kind: private_group
    id: -987654321
`)

	cfg, err := LoadSources(path)
	require.NoError(t, err)

	assert.Equal(t, "@dest_group", cfg.Destination)
	assert.Equal(t, 2, cfg.DefaultTopic)
	require.Len(t, cfg.Sources, 3)

	channel := cfg.Sources[0]
	assert.Equal(t, relay.KindChannel, channel.Kind)
	assert.Equal(t, int64(-1001111111111), channel.ID)
	assert.Equal(t, 15, channel.Topic)
	assert.True(t, channel.Allow.Empty())

	group := cfg.Sources[1]
	assert.Equal(t, relay.KindPublicGroup, group.Kind)
	assert.Equal(t, "workchat", group.Username, "username is normalized")
	require.NotNil(t, group.Allow)
	assert.Equal(t, []string{"alice", "bob"}, group.Allow.Usernames)
	assert.Equal(t, []int64{42}, group.Allow.UserIDs)

	private := cfg.Sources[2]
	assert.Equal(t, relay.KindPrivateGroup, private.Kind)
	assert.Equal(t, int64(-987654321), private.ID)
}

func TestLoadSources_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "missing destination",
			content: "sources:\n  - kind: channel\n    id: 1\n",
		},
		{
			name:    "no sources",
			content: "destination: \"@dest\"\n",
		},
		{
			name:    "unknown kind",
			content: "destination: \"@dest\"\nsources:\n  - kind: supergroup\n    id: 1\n",
		},
		{
			name:    "channel without identifier",
			content: "destination: \"@dest\"\nsources:\n  - kind: channel\n",
		},
		{
			name:    "private group without id",
			content: "destination: \"@dest\"\nsources:\n  - kind: private_group\n    username: nope\n",
		},
		{
			name:    "negative topic",
			content: "destination: \"@dest\"\nsources:\n  - kind: channel\n    id: 1\n    topic: -3\n",
		},
		{
			name:    "empty allow username",
			content: "destination: \"@dest\"\nsources:\n  - kind: channel\n    id: 1\n    allow:\n      usernames: [\"@\"]\n",
		},
		{
			name:    "not yaml",
			content: "{{{",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeSources(t, tt.content)
			_, err := LoadSources(path)
			assert.Error(t, err)
		})
	}
}

func TestLoadSources_MissingFile(t *testing.T) {
	_, err := LoadSources(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
