package interfaces

import (
	"context"
	"errors"
	"time"

	"github.com/reelscan/reelscan/internal/models"
)

// ErrNotParsable is returned by an Analyzer when the model's output cannot
// be parsed into the expected shape. The pipeline treats it as a soft
// failure: the article still completes, just without scores.
var ErrNotParsable = errors.New("analysis output not parsable")

// FeedItem is one normalized item from a fetched feed. Date fields are kept
// raw alongside any parser-resolved timestamps so ingestion can apply its
// own resolution cascade.
type FeedItem struct {
	Title   string
	Link    string
	GUID    string // May be empty; ingestion falls back to Link
	ISODate string // Explicit ISO 8601 date, when the feed provides one
	PubDate string // Raw RFC-style pubDate string
	Date    string // Generic date field (e.g. dc:date)

	PublishedParsed *time.Time // Parser-resolved published timestamp
	UpdatedParsed   *time.Time // Parser-resolved updated timestamp
}

// FeedResult is the outcome of fetching and parsing one feed.
type FeedResult struct {
	Title string
	Items []FeedItem
}

// FeedSource fetches and parses an RSS/Atom feed into normalized items.
type FeedSource interface {
	FetchAndParse(ctx context.Context, xmlURL string) (*FeedResult, error)
}

// ContentExtractor retrieves the readable text of an article URL.
type ContentExtractor interface {
	Extract(ctx context.Context, url string) (string, error)
}

// AnalysisInput is everything the scoring step knows about an article.
type AnalysisInput struct {
	Title       string
	URL         string
	PublishedAt time.Time
	Content     string
}

// AnalysisResult is the structured scoring output.
type AnalysisResult struct {
	Summary        string
	Score          models.ScoreSet
	Recommendation models.Recommendation
	VideoAngle     string
}

// Analyzer scores an article's potential as video content. Implementations
// return ErrNotParsable (possibly wrapped) when the backend responded but
// the response could not be parsed into an AnalysisResult.
type Analyzer interface {
	Analyze(ctx context.Context, input AnalysisInput) (*AnalysisResult, error)
}

// Notifier delivers an outbound notification message.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}
