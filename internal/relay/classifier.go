package relay

// Classifier matches incoming messages against the source registry and
// computes the forward decision and topic target.
type Classifier struct {
	reg *Registry
}

// NewClassifier creates a classifier over an initialized registry.
func NewClassifier(reg *Registry) *Classifier {
	return &Classifier{reg: reg}
}

// Classify decides whether the message is forwarded and to which topic.
//
// Channels forward unconditionally: channel posts carry no individually
// attributable sender to filter. Groups forward all senders unless an
// allow-list is configured, in which case the sender must match a configured
// username or user id.
func (c *Classifier) Classify(msg Message) Decision {
	rule := c.reg.Lookup(msg.Chat)
	if rule == nil {
		return Decision{}
	}

	d := Decision{Rule: rule}

	switch rule.Kind {
	case KindChannel:
		d.Forward = true
	default:
		if rule.Allow.Empty() {
			d.Forward = true
		} else {
			d.Forward = rule.Allow.Allows(msg.From)
		}
	}

	if d.Forward {
		d.Topic = c.resolveTopic(rule)
	}
	return d
}

// resolveTopic applies the precedence per-source topic > global default > none.
func (c *Classifier) resolveTopic(rule *SourceRule) int {
	if rule.Topic != 0 {
		return rule.Topic
	}
	return c.reg.DefaultTopic()
}
