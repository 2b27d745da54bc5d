package models

import (
	"time"

	"github.com/google/uuid"
)

// ArticleStatus is the per-article processing state.
type ArticleStatus string

const (
	ArticleStatusPending    ArticleStatus = "pending"
	ArticleStatusProcessing ArticleStatus = "processing"
	ArticleStatusCompleted  ArticleStatus = "completed"
	ArticleStatusFailed     ArticleStatus = "failed"
)

// Recommendation is the analyzer's verdict on an article's video potential.
type Recommendation string

const (
	RecommendationHighly Recommendation = "highly_recommended"
	RecommendationYes    Recommendation = "recommended"
	RecommendationMaybe  Recommendation = "maybe"
	RecommendationNo     Recommendation = "not_recommended"
)

// ValidRecommendation reports whether r is one of the closed enum values.
func ValidRecommendation(r Recommendation) bool {
	switch r {
	case RecommendationHighly, RecommendationYes, RecommendationMaybe, RecommendationNo:
		return true
	}
	return false
}

// ScoreSet holds the four 1-10 analysis scores, each with an optional
// short rationale from the analyzer.
type ScoreSet struct {
	Relevance       int    `json:"relevance"`
	RelevanceNote   string `json:"relevance_note,omitempty"`
	Uniqueness      int    `json:"uniqueness"`
	UniquenessNote  string `json:"uniqueness_note,omitempty"`
	Engagement      int    `json:"engagement"`
	EngagementNote  string `json:"engagement_note,omitempty"`
	Credibility     int    `json:"credibility"`
	CredibilityNote string `json:"credibility_note,omitempty"`
}

// Article is a discovered piece of content. Articles accumulate across scans;
// the scan queue only references them by id. The GUID (feed guid, falling
// back to the link URL) is the global natural key used for deduplication.
type Article struct {
	ID          string        `json:"id"`
	GUID        string        `json:"guid" badgerhold:"unique"`
	Title       string        `json:"title"`
	URL         string        `json:"url"`
	SourceID    string        `json:"source_id"`
	ScanID      string        `json:"scan_id"` // Scan that discovered this article
	PublishedAt time.Time     `json:"published_at"`
	Status      ArticleStatus `json:"status" badgerhold:"index"`

	// Populated by the extraction step (capped length).
	ExtractedContent string `json:"extracted_content,omitempty"`

	// Populated by the analysis step.
	Summary        string         `json:"summary,omitempty"`
	Score          *ScoreSet      `json:"score,omitempty"`
	Recommendation Recommendation `json:"recommendation,omitempty"`
	VideoAngle     string         `json:"video_angle,omitempty"`

	// Set by the digest notifier once the article has been included
	// in an outbound digest.
	Notified bool `json:"notified"`

	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewArticle creates a pending article discovered by a scan.
func NewArticle(scanID, sourceID, guid, title, url string, publishedAt time.Time) *Article {
	now := time.Now().UTC()
	return &Article{
		ID:          uuid.New().String(),
		GUID:        guid,
		Title:       title,
		URL:         url,
		SourceID:    sourceID,
		ScanID:      scanID,
		PublishedAt: publishedAt,
		Status:      ArticleStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// ResetForRetry returns a failed article to pending, clearing every field
// derived by the extraction and analysis steps.
func (a *Article) ResetForRetry() {
	a.Status = ArticleStatusPending
	a.ExtractedContent = ""
	a.Summary = ""
	a.Score = nil
	a.Recommendation = ""
	a.VideoAngle = ""
	a.Error = ""
	a.UpdatedAt = time.Now().UTC()
}

// IsRecommended reports whether the article ended up recommended or better.
func (a *Article) IsRecommended() bool {
	return a.Recommendation == RecommendationHighly || a.Recommendation == RecommendationYes
}
