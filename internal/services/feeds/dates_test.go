package feeds

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/reelscan/reelscan/internal/interfaces"
)

func TestResolvePublishedAtCascade(t *testing.T) {
	parsed := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	updated := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		item interfaces.FeedItem
		want time.Time
	}{
		{
			name: "iso date wins over everything",
			item: interfaces.FeedItem{
				ISODate:         "2026-04-01T08:30:00Z",
				PubDate:         "Mon, 02 Mar 2026 10:00:00 +0000",
				PublishedParsed: &parsed,
			},
			want: time.Date(2026, 4, 1, 8, 30, 0, 0, time.UTC),
		},
		{
			name: "raw pubdate beats parser timestamps",
			item: interfaces.FeedItem{
				PubDate:         "Mon, 02 Mar 2026 10:00:00 +0000",
				PublishedParsed: &parsed,
			},
			want: time.Date(2026, 3, 2, 10, 0, 0, 0, time.FixedZone("", 0)),
		},
		{
			name: "parser published when raw fields absent",
			item: interfaces.FeedItem{PublishedParsed: &parsed, UpdatedParsed: &updated},
			want: parsed,
		},
		{
			name: "updated as fallback",
			item: interfaces.FeedItem{UpdatedParsed: &updated},
			want: updated,
		},
		{
			name: "generic date last",
			item: interfaces.FeedItem{Date: "2026-03-05"},
			want: time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "garbage raw date falls through to parser timestamp",
			item: interfaces.FeedItem{ISODate: "yesterday-ish", PublishedParsed: &parsed},
			want: parsed,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ResolvePublishedAt(tc.item)
			require.True(t, ok)
			require.True(t, got.Equal(tc.want), "got %s, want %s", got, tc.want)
		})
	}
}

func TestResolvePublishedAtUndated(t *testing.T) {
	_, ok := ResolvePublishedAt(interfaces.FeedItem{Title: "no dates at all"})
	require.False(t, ok)

	_, ok = ResolvePublishedAt(interfaces.FeedItem{ISODate: "not a date", PubDate: "also not"})
	require.False(t, ok)
}
