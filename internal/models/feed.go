package models

import (
	"time"

	"github.com/google/uuid"
)

// Feed is an RSS/Atom source. Health fields are mutated only by feed
// ingestion: FailCount resets to zero on a successful fetch and increments
// on failure, with LastError holding the most recent failure.
type Feed struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	XMLURL        string     `json:"xml_url"`
	HTMLURL       string     `json:"html_url,omitempty"`
	Type          string     `json:"type,omitempty"` // "rss" or "atom", informational
	Tags          []string   `json:"tags,omitempty"`
	LastFetchedAt *time.Time `json:"last_fetched_at,omitempty"`
	LastError     string     `json:"last_error,omitempty"`
	FailCount     int        `json:"fail_count"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// NewFeed creates a feed record.
func NewFeed(name, xmlURL, htmlURL string, tags []string) *Feed {
	now := time.Now().UTC()
	return &Feed{
		ID:        uuid.New().String(),
		Name:      name,
		XMLURL:    xmlURL,
		HTMLURL:   htmlURL,
		Tags:      tags,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// HasAnyTag reports whether the feed carries at least one of the given tags.
// An empty filter matches every feed.
func (f *Feed) HasAnyTag(tags []string) bool {
	if len(tags) == 0 {
		return true
	}
	for _, want := range tags {
		for _, have := range f.Tags {
			if have == want {
				return true
			}
		}
	}
	return false
}

// RecordSuccess marks a successful fetch, resetting the failure counter.
func (f *Feed) RecordSuccess() {
	now := time.Now().UTC()
	f.LastFetchedAt = &now
	f.LastError = ""
	f.FailCount = 0
	f.UpdatedAt = now
}

// RecordFailure increments the failure counter and records the error.
func (f *Feed) RecordFailure(err error) {
	now := time.Now().UTC()
	f.LastError = err.Error()
	f.FailCount++
	f.UpdatedAt = now
}
