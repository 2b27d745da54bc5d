package scan

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/reelscan/reelscan/internal/common"
	"github.com/reelscan/reelscan/internal/interfaces"
	"github.com/reelscan/reelscan/internal/models"
	"github.com/reelscan/reelscan/internal/storage/badger"
)

// fakeFeedSource serves canned results per feed URL. An optional gate blocks
// FetchAndParse until released, for tests that need a scan held mid-ingest.
type fakeFeedSource struct {
	mu      sync.Mutex
	results map[string]*interfaces.FeedResult
	errs    map[string]error
	gate    chan struct{}
}

func (f *fakeFeedSource) FetchAndParse(ctx context.Context, xmlURL string) (*interfaces.FeedResult, error) {
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.errs[xmlURL]; ok {
		return nil, err
	}
	if result, ok := f.results[xmlURL]; ok {
		return result, nil
	}
	return &interfaces.FeedResult{}, nil
}

// fakeExtractor returns canned content. An optional gate blocks Extract
// until released, for tests that need a worker held mid-article.
type fakeExtractor struct {
	mu      sync.Mutex
	content string
	err     error
	gate    chan struct{}
}

func (f *fakeExtractor) Extract(ctx context.Context, url string) (string, error) {
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.content, f.err
}

func (f *fakeExtractor) set(content string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.content, f.err = content, err
}

type fakeAnalyzer struct {
	mu     sync.Mutex
	result *interfaces.AnalysisResult
	err    error
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, input interfaces.AnalysisInput) (*interfaces.AnalysisResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	result := *f.result
	return &result, nil
}

func testScanConfig() *common.ScanConfig {
	return &common.ScanConfig{
		WorkerStagger:    "1ms",
		WatchdogInterval: "20ms",
		InitTimeout:      "100ms",
		RunTimeout:       "200ms",
	}
}

func recommendedResult() *interfaces.AnalysisResult {
	return &interfaces.AnalysisResult{
		Summary:        "A short summary.",
		Score:          models.ScoreSet{Relevance: 8, Uniqueness: 7, Engagement: 8, Credibility: 9},
		Recommendation: models.RecommendationYes,
		VideoAngle:     "Explainer with charts.",
	}
}

func newTestService(t *testing.T, source interfaces.FeedSource, extractor interfaces.ContentExtractor, analyzer interfaces.Analyzer) (*Service, interfaces.StorageManager) {
	t.Helper()
	logger := arbor.NewLogger()
	store, err := badger.NewManager(logger, &common.BadgerConfig{Path: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	service := NewService(testScanConfig(), store, source, extractor, analyzer, logger)
	t.Cleanup(service.Stop)
	return service, store
}

func feedItem(guid, link, title string, published time.Time) interfaces.FeedItem {
	return interfaces.FeedItem{
		Title:           title,
		Link:            link,
		GUID:            guid,
		PublishedParsed: &published,
	}
}

func waitFor(t *testing.T, timeout time.Duration, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func waitForScanDone(t *testing.T, store interfaces.StorageManager, scanID string) *models.Scan {
	t.Helper()
	ctx := context.Background()
	var scan *models.Scan
	waitFor(t, 5*time.Second, "scan to complete", func() bool {
		var err error
		scan, err = store.ScanStorage().GetScan(ctx, scanID)
		require.NoError(t, err)
		return scan != nil && scan.IsTerminal()
	})
	return scan
}

func seedFeed(t *testing.T, store interfaces.StorageManager, name, url string, tags []string) *models.Feed {
	t.Helper()
	feed := models.NewFeed(name, url, "", tags)
	require.NoError(t, store.FeedStorage().SaveFeed(context.Background(), feed))
	return feed
}

func TestScanSingleFlight(t *testing.T) {
	source := &fakeFeedSource{gate: make(chan struct{})}
	service, store := newTestService(t, source, &fakeExtractor{}, &fakeAnalyzer{result: recommendedResult()})
	ctx := context.Background()

	seedFeed(t, store, "held", "https://example.com/held.xml", nil)

	first, err := service.StartScan(ctx, models.ScanOptions{Parallelism: 1, DaysBack: 7}, 0)
	require.NoError(t, err)

	_, err = service.StartScan(ctx, models.ScanOptions{Parallelism: 1, DaysBack: 7}, 0)
	require.ErrorIs(t, err, ErrScanAlreadyRunning)

	close(source.gate)
	done := waitForScanDone(t, store, first.ID)
	require.Empty(t, done.Error)

	// Once terminal, a new scan may start.
	_, err = service.StartScan(ctx, models.ScanOptions{Parallelism: 1, DaysBack: 7}, 0)
	require.NoError(t, err)
}

func TestEmptyScanCompletesWithoutWorkers(t *testing.T) {
	source := &fakeFeedSource{}
	service, store := newTestService(t, source, &fakeExtractor{}, &fakeAnalyzer{result: recommendedResult()})
	ctx := context.Background()

	seedFeed(t, store, "empty", "https://example.com/empty.xml", nil)

	started, err := service.StartScan(ctx, models.ScanOptions{Parallelism: 3, DaysBack: 7}, 0)
	require.NoError(t, err)

	done := waitForScanDone(t, store, started.ID)
	require.Equal(t, models.ScanStatusCompleted, done.Status)
	require.Zero(t, done.TotalArticles)
	require.Empty(t, done.Error)
	require.NotNil(t, done.CompletedAt)
}

func TestScanPipelineEndToEnd(t *testing.T) {
	now := time.Now().UTC()
	source := &fakeFeedSource{
		results: map[string]*interfaces.FeedResult{
			"https://example.com/a.xml": {Items: []interfaces.FeedItem{
				feedItem("a-1", "https://example.com/a/1", "Fresh A1", now.Add(-time.Hour)),
				feedItem("a-old", "https://example.com/a/old", "Stale", now.AddDate(0, 0, -30)),
			}},
			"https://example.com/b.xml": {Items: []interfaces.FeedItem{
				feedItem("b-1", "https://example.com/b/1", "Fresh B1", now.Add(-2*time.Hour)),
				feedItem("dup-1", "https://example.com/b/dup", "Already Seen", now.Add(-time.Hour)),
			}},
		},
		errs: map[string]error{
			"https://example.com/broken.xml": errors.New("connection refused"),
		},
	}
	service, store := newTestService(t, source, &fakeExtractor{content: "body text"}, &fakeAnalyzer{result: recommendedResult()})
	ctx := context.Background()

	feedA := seedFeed(t, store, "A", "https://example.com/a.xml", nil)
	feedB := seedFeed(t, store, "B", "https://example.com/b.xml", nil)
	broken := seedFeed(t, store, "Broken", "https://example.com/broken.xml", nil)

	// dup-1 was discovered by an earlier scan.
	existing := models.NewArticle("old-scan", feedB.ID, "dup-1", "Already Seen", "https://example.com/b/dup", now.Add(-time.Hour))
	require.NoError(t, store.ArticleStorage().SaveArticle(ctx, existing))

	started, err := service.StartScan(ctx, models.ScanOptions{Parallelism: 2, DaysBack: 7}, 0)
	require.NoError(t, err)

	done := waitForScanDone(t, store, started.ID)
	require.Equal(t, 2, done.TotalArticles, "stale, duplicate and broken-feed items must be excluded")
	require.Equal(t, 2, done.ProcessedArticles)
	require.Empty(t, done.Error)

	// Feed health: only the broken feed accumulates failures.
	for _, tc := range []struct {
		feed      *models.Feed
		failCount int
	}{{feedA, 0}, {feedB, 0}, {broken, 1}} {
		stored, err := store.FeedStorage().GetFeed(ctx, tc.feed.ID)
		require.NoError(t, err)
		require.Equal(t, tc.failCount, stored.FailCount, "feed %s", stored.Name)
	}

	// Both articles fully analyzed.
	articles, err := store.ArticleStorage().ListArticles(ctx, &interfaces.ArticleListOptions{ScanID: started.ID})
	require.NoError(t, err)
	require.Len(t, articles, 2)
	for _, article := range articles {
		require.Equal(t, models.ArticleStatusCompleted, article.Status)
		require.NotNil(t, article.Score)
		require.Equal(t, models.RecommendationYes, article.Recommendation)
		require.Equal(t, "body text", article.ExtractedContent)
	}

	// A second scan over identical feeds discovers nothing new.
	second, err := service.StartScan(ctx, models.ScanOptions{Parallelism: 2, DaysBack: 7}, 0)
	require.NoError(t, err)
	secondDone := waitForScanDone(t, store, second.ID)
	require.Zero(t, secondDone.TotalArticles)
}

func TestUndatedItemsCappedPerFeed(t *testing.T) {
	items := make([]interfaces.FeedItem, 0, undatedPerFeedLimit+3)
	for i := 0; i < undatedPerFeedLimit+3; i++ {
		items = append(items, interfaces.FeedItem{
			Title: fmt.Sprintf("Undated %d", i),
			Link:  fmt.Sprintf("https://example.com/u/%d", i),
			GUID:  fmt.Sprintf("u-%d", i),
		})
	}
	source := &fakeFeedSource{results: map[string]*interfaces.FeedResult{
		"https://example.com/undated.xml": {Items: items},
	}}
	service, store := newTestService(t, source, &fakeExtractor{content: "body"}, &fakeAnalyzer{result: recommendedResult()})
	ctx := context.Background()

	seedFeed(t, store, "Undated", "https://example.com/undated.xml", nil)

	started, err := service.StartScan(ctx, models.ScanOptions{Parallelism: 1, DaysBack: 7}, 0)
	require.NoError(t, err)

	done := waitForScanDone(t, store, started.ID)
	require.Equal(t, undatedPerFeedLimit, done.TotalArticles)

	articles, err := store.ArticleStorage().ListArticles(ctx, &interfaces.ArticleListOptions{ScanID: started.ID})
	require.NoError(t, err)
	for _, article := range articles {
		require.True(t, article.PublishedAt.Equal(undatedSentinel), "undated article must carry the sentinel timestamp")
	}
}

func TestUndatedItemsGatedByFeedPosition(t *testing.T) {
	// Fresh dated items occupy the first undatedPerFeedLimit positions, so
	// undated items after them sit past the cutoff position and are dropped
	// even though fewer than the limit were kept.
	items := make([]interfaces.FeedItem, 0, undatedPerFeedLimit+2)
	for i := 0; i < undatedPerFeedLimit; i++ {
		items = append(items, feedItem(
			fmt.Sprintf("dated-%d", i),
			fmt.Sprintf("https://example.com/d/%d", i),
			fmt.Sprintf("Dated %d", i),
			time.Now().UTC().Add(-time.Hour),
		))
	}
	items = append(items,
		interfaces.FeedItem{Title: "Late undated A", Link: "https://example.com/u/a", GUID: "undated-late-a"},
		interfaces.FeedItem{Title: "Late undated B", Link: "https://example.com/u/b", GUID: "undated-late-b"},
	)
	source := &fakeFeedSource{results: map[string]*interfaces.FeedResult{
		"https://example.com/mixed.xml": {Items: items},
	}}
	service, store := newTestService(t, source, &fakeExtractor{content: "body"}, &fakeAnalyzer{result: recommendedResult()})
	ctx := context.Background()

	seedFeed(t, store, "Mixed", "https://example.com/mixed.xml", nil)

	started, err := service.StartScan(ctx, models.ScanOptions{Parallelism: 1, DaysBack: 7}, 0)
	require.NoError(t, err)

	done := waitForScanDone(t, store, started.ID)
	require.Equal(t, undatedPerFeedLimit, done.TotalArticles)

	for _, guid := range []string{"undated-late-a", "undated-late-b"} {
		article, err := store.ArticleStorage().GetArticleByGUID(ctx, guid)
		require.NoError(t, err)
		require.Nil(t, article, "undated item past the position limit must not be stored")
	}

	// An undated item inside the first positions is still kept.
	early := []interfaces.FeedItem{
		{Title: "Early undated", Link: "https://example.com/u/early", GUID: "undated-early"},
	}
	source.results["https://example.com/mixed.xml"] = &interfaces.FeedResult{Items: early}

	second, err := service.StartScan(ctx, models.ScanOptions{Parallelism: 1, DaysBack: 7}, 0)
	require.NoError(t, err)
	done = waitForScanDone(t, store, second.ID)
	require.Equal(t, 1, done.TotalArticles)

	article, err := store.ArticleStorage().GetArticleByGUID(ctx, "undated-early")
	require.NoError(t, err)
	require.NotNil(t, article)
	require.True(t, article.PublishedAt.Equal(undatedSentinel))
}

func TestUnparsableAnalysisCompletesWithoutScores(t *testing.T) {
	now := time.Now().UTC()
	source := &fakeFeedSource{results: map[string]*interfaces.FeedResult{
		"https://example.com/a.xml": {Items: []interfaces.FeedItem{
			feedItem("soft-1", "https://example.com/a/1", "Soft Fail", now.Add(-time.Hour)),
		}},
	}}
	analyzer := &fakeAnalyzer{err: fmt.Errorf("%w: gibberish", interfaces.ErrNotParsable)}
	service, store := newTestService(t, source, &fakeExtractor{content: "body"}, analyzer)
	ctx := context.Background()

	seedFeed(t, store, "A", "https://example.com/a.xml", nil)

	started, err := service.StartScan(ctx, models.ScanOptions{Parallelism: 1, DaysBack: 7}, 0)
	require.NoError(t, err)

	done := waitForScanDone(t, store, started.ID)
	require.Equal(t, 1, done.ProcessedArticles)

	articles, err := store.ArticleStorage().ListArticles(ctx, &interfaces.ArticleListOptions{ScanID: started.ID})
	require.NoError(t, err)
	require.Len(t, articles, 1)
	require.Equal(t, models.ArticleStatusCompleted, articles[0].Status)
	require.Nil(t, articles[0].Score)
	require.Empty(t, articles[0].Recommendation)
}

func TestFailedArticleRetry(t *testing.T) {
	now := time.Now().UTC()
	source := &fakeFeedSource{results: map[string]*interfaces.FeedResult{
		"https://example.com/a.xml": {Items: []interfaces.FeedItem{
			feedItem("hard-1", "https://example.com/a/1", "Hard Fail", now.Add(-time.Hour)),
		}},
	}}
	extractor := &fakeExtractor{err: errors.New("status 503")}
	service, store := newTestService(t, source, extractor, &fakeAnalyzer{result: recommendedResult()})
	ctx := context.Background()

	seedFeed(t, store, "A", "https://example.com/a.xml", nil)

	started, err := service.StartScan(ctx, models.ScanOptions{Parallelism: 1, DaysBack: 7}, 0)
	require.NoError(t, err)

	done := waitForScanDone(t, store, started.ID)
	require.Equal(t, 1, done.ProcessedArticles, "a failed article still counts as processed")

	articles, err := store.ArticleStorage().ListByStatus(ctx, models.ArticleStatusFailed)
	require.NoError(t, err)
	require.Len(t, articles, 1)
	failed := articles[0]
	require.Contains(t, failed.Error, "extraction failed")

	// Retrying a non-failed article is rejected.
	completedArticle := models.NewArticle(started.ID, "feed", "done-1", "Done", "https://example.com/done", now)
	completedArticle.Status = models.ArticleStatusCompleted
	require.NoError(t, store.ArticleStorage().SaveArticle(ctx, completedArticle))
	require.ErrorIs(t, service.RetryArticle(ctx, completedArticle.ID), ErrArticleNotFailed)
	require.ErrorIs(t, service.RetryArticle(ctx, "missing"), ErrArticleNotFound)

	// Fix the extractor and retry for real.
	extractor.set("recovered body", nil)
	require.NoError(t, service.RetryArticle(ctx, failed.ID))

	waitFor(t, 5*time.Second, "retried article to complete", func() bool {
		article, err := store.ArticleStorage().GetArticle(ctx, failed.ID)
		require.NoError(t, err)
		return article.Status == models.ArticleStatusCompleted
	})

	article, err := store.ArticleStorage().GetArticle(ctx, failed.ID)
	require.NoError(t, err)
	require.Equal(t, "recovered body", article.ExtractedContent)
	require.Empty(t, article.Error)
	require.NotNil(t, article.Score)
}

func TestCancelScan(t *testing.T) {
	source := &fakeFeedSource{gate: make(chan struct{})}
	service, store := newTestService(t, source, &fakeExtractor{}, &fakeAnalyzer{result: recommendedResult()})
	ctx := context.Background()

	seedFeed(t, store, "held", "https://example.com/held.xml", nil)

	started, err := service.StartScan(ctx, models.ScanOptions{Parallelism: 1, DaysBack: 7}, 0)
	require.NoError(t, err)

	require.NoError(t, service.CancelScan(ctx, started.ID))
	require.ErrorIs(t, service.CancelScan(ctx, started.ID), ErrScanCompleted)
	require.ErrorIs(t, service.CancelScan(ctx, "missing"), ErrScanNotFound)

	close(source.gate)

	done := waitForScanDone(t, store, started.ID)
	require.Equal(t, "cancelled", done.Error)

	// Ingestion releasing after the cancel must not resurrect the scan.
	time.Sleep(50 * time.Millisecond)
	final, err := store.ScanStorage().GetScan(ctx, started.ID)
	require.NoError(t, err)
	require.Equal(t, models.ScanStatusCompleted, final.Status)
	require.Equal(t, "cancelled", final.Error)
}
