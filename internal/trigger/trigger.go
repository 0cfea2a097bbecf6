package trigger

import (
	"regexp"
	"strings"

	"media-relay/internal/metrics"
)

// Action is the result of evaluating a message.
type Action int

const (
	Ignore Action = iota
	Acknowledge
	Ingest
)

func (a Action) String() string {
	switch a {
	case Acknowledge:
		return "acknowledge"
	case Ingest:
		return "ingest"
	default:
		return "ignore"
	}
}

// DefaultThreadName is the thread that is always allowed.
const DefaultThreadName = "wow-stuff"

// DefaultAllowedChannels are the channels monitored when none are configured.
var DefaultAllowedChannels = []string{
	"the-funny", "🦝general🦝", "bot-spam", "bot-commands",
	"bot commands", "music", "🎼music🎶", "general",
}

// DefaultKeywords make the bot acknowledge a message instead of processing it.
var DefaultKeywords = []string{"silky", "silkybot"}

// urlPattern matches watch, short-link and shorts URLs.
var urlPattern = regexp.MustCompile(`(?i)(https?://(?:www\.)?(?:youtube\.com/watch\?v=|youtu\.be/|youtube\.com/shorts/)[\w\-]+[^\s]*)`)

// Message is a chat message as seen by the detector. Thread is set when the
// message was posted in a thread, in which case Parent names the thread's
// channel and Channel is not consulted.
type Message struct {
	Author      string `json:"author"`
	Channel     string `json:"channel"`
	Thread      string `json:"thread,omitempty"`
	Parent      string `json:"parent,omitempty"`
	Content     string `json:"content"`
	MentionsBot bool   `json:"mentionsBot,omitempty"`
	FromSelf    bool   `json:"fromSelf,omitempty"`
}

// Decision is what to do with a message. URL is set for Ingest.
type Decision struct {
	Action Action
	URL    string
}

// Detector evaluates messages.
type Detector struct {
	allowed    map[string]bool
	threadName string
	keywords   []string
}

// NewDetector creates a detector. Channel names are compared
// case-insensitively; an empty channel list uses DefaultAllowedChannels.
func NewDetector(channels []string, threadName string, keywords []string) *Detector {
	if len(channels) == 0 {
		channels = DefaultAllowedChannels
	}
	if threadName == "" {
		threadName = DefaultThreadName
	}
	if keywords == nil {
		keywords = DefaultKeywords
	}

	d := &Detector{
		allowed:    make(map[string]bool, len(channels)),
		threadName: strings.ToLower(threadName),
	}
	for _, c := range channels {
		if c = strings.TrimSpace(c); c != "" {
			d.allowed[strings.ToLower(c)] = true
		}
	}
	for _, k := range keywords {
		d.keywords = append(d.keywords, strings.ToLower(k))
	}
	return d
}

// Evaluate classifies msg. Mentions take precedence over links, and the
// channel check applies only to ingestion.
func (d *Detector) Evaluate(msg Message) Decision {
	metrics.MessagesScannedTotal.Inc()
	decision := d.evaluate(msg)
	metrics.TriggerDecisionsTotal.WithLabelValues(decision.Action.String()).Inc()
	return decision
}

func (d *Detector) evaluate(msg Message) Decision {
	if msg.FromSelf {
		return Decision{Action: Ignore}
	}
	if msg.MentionsBot || d.mentioned(msg.Content) {
		return Decision{Action: Acknowledge}
	}
	if !d.ChannelAllowed(msg) {
		return Decision{Action: Ignore}
	}
	if url := FindURL(msg.Content); url != "" {
		return Decision{Action: Ingest, URL: url}
	}
	return Decision{Action: Ignore}
}

func (d *Detector) mentioned(content string) bool {
	lower := strings.ToLower(content)
	for _, k := range d.keywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

// ChannelAllowed applies the channel allow-list and the thread rule.
func (d *Detector) ChannelAllowed(msg Message) bool {
	if msg.Thread != "" {
		return strings.ToLower(msg.Thread) == d.threadName || d.allowed[strings.ToLower(msg.Parent)]
	}
	return d.allowed[strings.ToLower(msg.Channel)]
}

// FindURL returns the first supported link in content, or "".
func FindURL(content string) string {
	return urlPattern.FindString(content)
}
