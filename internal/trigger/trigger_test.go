package trigger

import "testing"

func TestFindURL(t *testing.T) {
	tests := []struct {
		content string
		want    string
	}{
		{"check this https://www.youtube.com/watch?v=dQw4w9WgXcQ lol", "https://www.youtube.com/watch?v=dQw4w9WgXcQ"},
		{"https://youtu.be/dQw4w9WgXcQ?t=42", "https://youtu.be/dQw4w9WgXcQ?t=42"},
		{"shorts: http://youtube.com/shorts/abc-DEF_123", "http://youtube.com/shorts/abc-DEF_123"},
		{"HTTPS://YOUTU.BE/Abc", "HTTPS://YOUTU.BE/Abc"},
		{"two https://youtu.be/first and https://youtu.be/second", "https://youtu.be/first"},
		{"https://vimeo.com/12345", ""},
		{"https://www.youtube.com/channel/UC123", ""},
		{"no links here", ""},
	}

	for _, tt := range tests {
		t.Run(tt.content, func(t *testing.T) {
			if got := FindURL(tt.content); got != tt.want {
				t.Errorf("FindURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEvaluate(t *testing.T) {
	d := NewDetector([]string{"general", "Bot-Spam"}, "", nil)
	link := "https://youtu.be/abc123"

	tests := []struct {
		name string
		msg  Message
		want Decision
	}{
		{"link in allowed channel", Message{Channel: "general", Content: link}, Decision{Action: Ingest, URL: link}},
		{"channel match is case-insensitive", Message{Channel: "bot-spam", Content: link}, Decision{Action: Ingest, URL: link}},
		{"link in other channel", Message{Channel: "random", Content: link}, Decision{Action: Ignore}},
		{"no link", Message{Channel: "general", Content: "hello"}, Decision{Action: Ignore}},
		{"keyword mention", Message{Channel: "random", Content: "hey Silky look"}, Decision{Action: Acknowledge}},
		{"direct mention wins over link", Message{Channel: "general", Content: link, MentionsBot: true}, Decision{Action: Acknowledge}},
		{"own message", Message{Channel: "general", Content: link, FromSelf: true}, Decision{Action: Ignore}},
		{"designated thread", Message{Thread: "WOW-stuff", Parent: "random", Content: link}, Decision{Action: Ingest, URL: link}},
		{"thread under allowed parent", Message{Thread: "misc", Parent: "general", Content: link}, Decision{Action: Ingest, URL: link}},
		{"thread under other parent", Message{Thread: "misc", Parent: "random", Channel: "general", Content: link}, Decision{Action: Ignore}},
		{"thread without parent", Message{Thread: "misc", Content: link}, Decision{Action: Ignore}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := d.Evaluate(tt.msg); got != tt.want {
				t.Errorf("Evaluate() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestNewDetectorDefaults(t *testing.T) {
	d := NewDetector(nil, "", nil)
	for _, c := range DefaultAllowedChannels {
		if !d.ChannelAllowed(Message{Channel: c}) {
			t.Errorf("default channel %q not allowed", c)
		}
	}
	if d.Evaluate(Message{Channel: "x", Content: "@silkybot hi"}).Action != Acknowledge {
		t.Error("default keywords should include silkybot")
	}
}

func TestNoKeywords(t *testing.T) {
	d := NewDetector([]string{"general"}, "", []string{})
	if got := d.Evaluate(Message{Channel: "general", Content: "silky https://youtu.be/x"}); got.Action != Ingest {
		t.Errorf("Evaluate() = %+v, want ingest with keywords disabled", got)
	}
}

func TestActionString(t *testing.T) {
	for a, want := range map[Action]string{Ignore: "ignore", Acknowledge: "acknowledge", Ingest: "ingest"} {
		if a.String() != want {
			t.Errorf("%d.String() = %q, want %q", a, a.String(), want)
		}
	}
}
