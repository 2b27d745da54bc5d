package interfaces

import (
	"context"
	"errors"

	"github.com/reelscan/reelscan/internal/models"
)

// ErrKeyNotFound is returned (possibly wrapped) by KeyValueStorage.Get when
// no document exists for the key.
var ErrKeyNotFound = errors.New("key not found")

// ScanStorage persists scan records.
type ScanStorage interface {
	SaveScan(ctx context.Context, scan *models.Scan) error

	// GetScan returns nil without error when no scan exists for the id.
	GetScan(ctx context.Context, scanID string) (*models.Scan, error)

	// GetActiveScan returns the single non-completed scan, or nil when none
	// exists. At most one non-completed scan exists at any time.
	GetActiveScan(ctx context.Context) (*models.Scan, error)

	// ListActiveScans returns every non-completed scan. Used by the watchdog,
	// which must repair even states that violate the single-flight invariant.
	ListActiveScans(ctx context.Context) ([]*models.Scan, error)

	ListScans(ctx context.Context, limit, offset int) ([]*models.Scan, error)

	// IncrementProcessed atomically advances the processed-articles counter
	// and returns the new value.
	IncrementProcessed(ctx context.Context, scanID string) (int, error)
}

// QueueStorage persists the per-scan work queue. PopNext is the sole
// concurrency-correctness primitive of the pipeline: it must be atomic under
// concurrent callers, delivering each queued id to exactly one caller.
type QueueStorage interface {
	CreateQueue(ctx context.Context, scanID string, articleIDs []string) (*models.ScanQueue, error)

	// SaveQueue persists the queue as given, overwriting any existing state.
	SaveQueue(ctx context.Context, queue *models.ScanQueue) error

	// GetQueue returns nil without error when no queue exists for the scan.
	GetQueue(ctx context.Context, scanID string) (*models.ScanQueue, error)

	// PopNext atomically removes and returns the front article id. ok is
	// false when the queue is empty or missing; an empty queue is marked
	// completed as a side effect (idempotent).
	PopNext(ctx context.Context, scanID string) (articleID string, ok bool, err error)

	// Length returns the remaining count, for diagnostics and the watchdog.
	Length(ctx context.Context, scanID string) (int, error)

	// CancelQueue clears the list and marks the queue completed, terminal
	// regardless of current state.
	CancelQueue(ctx context.Context, scanID string) error

	// MarkProcessing flips a queue back to processing. Used by the watchdog
	// to repair a queue that claims completion with items remaining.
	MarkProcessing(ctx context.Context, scanID string) error
}

// ArticleListOptions filters article listings.
type ArticleListOptions struct {
	Status         models.ArticleStatus
	Recommendation models.Recommendation
	ScanID         string
	Limit          int
	Offset         int
}

// ArticleStorage persists articles across scans.
type ArticleStorage interface {
	SaveArticle(ctx context.Context, article *models.Article) error

	// GetArticle returns nil without error when no article exists for the id.
	GetArticle(ctx context.Context, articleID string) (*models.Article, error)

	// GetArticleByGUID returns nil without error when no article carries the
	// guid. Backed by a unique index; used for deduplication.
	GetArticleByGUID(ctx context.Context, guid string) (*models.Article, error)

	ListArticles(ctx context.Context, opts *ArticleListOptions) ([]*models.Article, error)
	ListByStatus(ctx context.Context, status models.ArticleStatus) ([]*models.Article, error)
	CountByStatus(ctx context.Context, status models.ArticleStatus) (int, error)

	// UnnotifiedRecommended returns completed, recommended-or-better articles
	// not yet included in a digest, oldest first.
	UnnotifiedRecommended(ctx context.Context, limit int) ([]*models.Article, error)
	MarkNotified(ctx context.Context, articleIDs []string) error
}

// FeedStorage persists feed sources and their health fields.
type FeedStorage interface {
	SaveFeed(ctx context.Context, feed *models.Feed) error

	// GetFeed returns nil without error when no feed exists for the id.
	GetFeed(ctx context.Context, feedID string) (*models.Feed, error)
	DeleteFeed(ctx context.Context, feedID string) error
	ListFeeds(ctx context.Context) ([]*models.Feed, error)

	// ListFeedsByTags returns feeds carrying at least one of the given tags
	// (any-tag-match). An empty tag list returns all feeds.
	ListFeedsByTags(ctx context.Context, tags []string) ([]*models.Feed, error)
}

// KeyValueStorage stores small configuration documents by key.
type KeyValueStorage interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// StorageManager provides access to all storage interfaces.
type StorageManager interface {
	ScanStorage() ScanStorage
	QueueStorage() QueueStorage
	ArticleStorage() ArticleStorage
	FeedStorage() FeedStorage
	KeyValueStorage() KeyValueStorage
	Close() error
}
