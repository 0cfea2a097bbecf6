package delivery

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// Item is one finished artifact ready for delivery.
type Item struct {
	// Path is the compressed artifact on local storage. Sinks must not
	// modify or remove it.
	Path string
	// DisplayName is the source title, possibly empty.
	DisplayName string
	// Announcement is an optional text message posted after the file.
	Announcement string
	// PosterPath is an optional preview image.
	PosterPath string
	RequestID  string
}

// Sink accepts finished artifacts.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, item Item) error
}

// PreviewSink is a Sink that can attach a poster image.
type PreviewSink interface {
	Sink
	WantsPreview() bool
}

var unsafeChars = regexp.MustCompile(`[^a-z0-9]+`)

// maxSlugLength keeps generated file names well under filesystem limits.
const maxSlugLength = 60

// FileName builds the delivered file name for an item: a slug of the title
// followed by a short request id and the artifact's extension. Items without
// a title are named "video".
func FileName(item Item) string {
	slug := unsafeChars.ReplaceAllString(strings.ToLower(item.DisplayName), "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > maxSlugLength {
		slug = strings.TrimRight(slug[:maxSlugLength], "-")
	}
	if slug == "" {
		slug = "video"
	}

	short := item.RequestID
	if len(short) > 8 {
		short = short[:8]
	}
	if short != "" {
		slug = fmt.Sprintf("%s-%s", slug, short)
	}
	return slug + filepath.Ext(item.Path)
}

// Announcement formats the repost message for a delivered source.
func Announcement(author, url, title string) string {
	if author == "" {
		author = "someone"
	}
	msg := fmt.Sprintf("%s posted: <%s>", author, url)
	if title != "" {
		msg += fmt.Sprintf(" (%s)", title)
	}
	return msg
}
