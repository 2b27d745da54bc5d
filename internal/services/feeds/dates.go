package feeds

import (
	"strings"
	"time"

	"github.com/reelscan/reelscan/internal/interfaces"
)

var rawDateLayouts = []string{
	time.RFC3339,
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ResolvePublishedAt derives a publication time for one feed item, trying
// fields from most to least authoritative: the explicit ISO date, the raw
// pubDate string, the parser-resolved published and updated timestamps, then
// any generic date field. The second return is false when the item carries
// no usable date at all.
func ResolvePublishedAt(item interfaces.FeedItem) (time.Time, bool) {
	if t, ok := parseRawDate(item.ISODate); ok {
		return t, true
	}
	if t, ok := parseRawDate(item.PubDate); ok {
		return t, true
	}
	if item.PublishedParsed != nil && !item.PublishedParsed.IsZero() {
		return *item.PublishedParsed, true
	}
	if item.UpdatedParsed != nil && !item.UpdatedParsed.IsZero() {
		return *item.UpdatedParsed, true
	}
	if t, ok := parseRawDate(item.Date); ok {
		return t, true
	}
	return time.Time{}, false
}

func parseRawDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range rawDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
