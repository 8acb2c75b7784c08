package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/tgwatch/relay/internal/relay"
)

// sourcesFile mirrors the YAML layout of the source rules file.
type sourcesFile struct {
	Destination  string       `yaml:"destination"`
	DefaultTopic int          `yaml:"default_topic"`
	Sources      []sourceRule `yaml:"sources"`
}

type sourceRule struct {
	Kind     string       `yaml:"kind"`
	ID       int64        `yaml:"id"`
	Username string       `yaml:"username"`
	Topic    int          `yaml:"topic"`
	Allow    senderFilter `yaml:"allow"`
}

type senderFilter struct {
	Usernames []string `yaml:"usernames"`
	UserIDs   []int64  `yaml:"user_ids"`
}

// LoadSources reads and validates the source rules file.
func LoadSources(path string) (*relay.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sources file: %w", err)
	}

	var file sourcesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse sources file: %w", err)
	}

	if file.Destination == "" {
		return nil, fmt.Errorf("destination is required")
	}
	if len(file.Sources) == 0 {
		return nil, fmt.Errorf("at least one source is required")
	}

	cfg := &relay.Config{
		Destination:  file.Destination,
		DefaultTopic: file.DefaultTopic,
	}
	for i, src := range file.Sources {
		rule, err := src.toRule()
		if err != nil {
			return nil, fmt.Errorf("source %d: %w", i, err)
		}
		cfg.Sources = append(cfg.Sources, rule)
	}
	return cfg, nil
}

// toRule validates a raw entry against its kind. Channels and public groups
// are addressable by username or id; private groups have no username and need
// an explicit id.
func (s sourceRule) toRule() (relay.SourceRule, error) {
	var kind relay.SourceKind
	switch s.Kind {
	case "channel":
		kind = relay.KindChannel
	case "public_group":
		kind = relay.KindPublicGroup
	case "private_group":
		kind = relay.KindPrivateGroup
	default:
		return relay.SourceRule{}, fmt.Errorf("unknown kind %q", s.Kind)
	}

	switch kind {
	case relay.KindChannel, relay.KindPublicGroup:
		if s.Username == "" && s.ID == 0 {
			return relay.SourceRule{}, fmt.Errorf("%s needs a username or id", s.Kind)
		}
	case relay.KindPrivateGroup:
		if s.ID == 0 {
			return relay.SourceRule{}, fmt.Errorf("private_group needs an id")
		}
	}

	if s.Topic < 0 {
		return relay.SourceRule{}, fmt.Errorf("topic must not be negative")
	}

	rule := relay.SourceRule{
		Kind:     kind,
		ID:       s.ID,
		Username: relay.NormalizeUsername(s.Username),
		Topic:    s.Topic,
	}

	if len(s.Allow.Usernames) > 0 || len(s.Allow.UserIDs) > 0 {
		filter := &relay.SenderFilter{UserIDs: s.Allow.UserIDs}
		for _, u := range s.Allow.Usernames {
			n := relay.NormalizeUsername(u)
			if n == "" {
				return relay.SourceRule{}, fmt.Errorf("empty username in allow list")
			}
			filter.Usernames = append(filter.Usernames, n)
		}
		rule.Allow = filter
	}

	return rule, nil
}
