package scan

import (
	"context"
	"fmt"
	"time"

	"github.com/reelscan/reelscan/internal/interfaces"
	"github.com/reelscan/reelscan/internal/models"
	"github.com/reelscan/reelscan/internal/services/feeds"
)

// undatedSentinel is the PublishedAt stored for items whose feed carried no
// usable date. It sorts such articles last in recency-ordered listings.
var undatedSentinel = time.Unix(0, 0).UTC()

// runIngestion executes the discovery phase of a scan: fetch feeds, filter
// and deduplicate items, persist new articles, build the queue, and launch
// the worker chains. Runs dispatched in the background; a failure here is
// terminal for the scan.
func (s *Service) runIngestion(scanID string) {
	ctx := context.Background()

	scan, err := s.store.ScanStorage().GetScan(ctx, scanID)
	if err != nil || scan == nil {
		s.logger.Error().Err(err).Str("scan_id", scanID).Msg("Ingestion could not load scan")
		return
	}
	if scan.IsTerminal() {
		// Cancelled (or timed out) before ingestion got scheduled.
		return
	}

	articleIDs, err := s.discoverArticles(ctx, scan)
	if err != nil {
		s.failScan(ctx, scan, fmt.Sprintf("ingestion failed: %v", err))
		return
	}

	// The scan may have been cancelled while feeds were being fetched.
	scan, err = s.store.ScanStorage().GetScan(ctx, scanID)
	if err != nil || scan == nil {
		s.logger.Error().Err(err).Str("scan_id", scanID).Msg("Ingestion could not reload scan")
		return
	}
	if scan.IsTerminal() {
		return
	}

	if _, err := s.store.QueueStorage().CreateQueue(ctx, scanID, articleIDs); err != nil {
		s.failScan(ctx, scan, fmt.Sprintf("failed to create queue: %v", err))
		return
	}

	if len(articleIDs) == 0 {
		scan.MarkRunning(0)
		scan.MarkCompleted("")
		if err := s.store.ScanStorage().SaveScan(ctx, scan); err != nil {
			s.logger.Error().Err(err).Str("scan_id", scanID).Msg("Failed to save empty completed scan")
		}
		s.logger.Info().Str("scan_id", scanID).Msg("Scan found no new articles")
		return
	}

	scan.MarkRunning(len(articleIDs))
	if err := s.store.ScanStorage().SaveScan(ctx, scan); err != nil {
		s.logger.Error().Err(err).Str("scan_id", scanID).Msg("Failed to mark scan running")
		return
	}

	workers := scan.Options.Parallelism
	if workers > len(articleIDs) {
		workers = len(articleIDs)
	}

	s.logger.Info().
		Str("scan_id", scanID).
		Int("articles", len(articleIDs)).
		Int("workers", workers).
		Msg("Ingestion complete, launching workers")

	s.launchWorkers(scanID, workers)
}

// discoverArticles fetches the scan's feeds and returns the ids of newly
// persisted articles in discovery order. Individual feed failures are
// recorded on the feed and skipped; only a storage-level failure aborts.
func (s *Service) discoverArticles(ctx context.Context, scan *models.Scan) ([]string, error) {
	candidates, err := s.store.FeedStorage().ListFeedsByTags(ctx, scan.Options.FilterTags)
	if err != nil {
		return nil, fmt.Errorf("failed to list feeds: %w", err)
	}
	if scan.Options.FeedCount > 0 && len(candidates) > scan.Options.FeedCount {
		candidates = candidates[:scan.Options.FeedCount]
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -scan.Options.DaysBack)
	var articleIDs []string

	for _, feed := range candidates {
		result, err := s.feedSource.FetchAndParse(ctx, feed.XMLURL)
		if err != nil {
			feed.RecordFailure(err)
			if saveErr := s.store.FeedStorage().SaveFeed(ctx, feed); saveErr != nil {
				s.logger.Warn().Err(saveErr).Str("feed_id", feed.ID).Msg("Failed to record feed failure")
			}
			s.logger.Warn().
				Err(err).
				Str("feed_id", feed.ID).
				Str("feed", feed.Name).
				Int("fail_count", feed.FailCount).
				Msg("Feed fetch failed, skipping")
			continue
		}

		feed.RecordSuccess()
		if err := s.store.FeedStorage().SaveFeed(ctx, feed); err != nil {
			s.logger.Warn().Err(err).Str("feed_id", feed.ID).Msg("Failed to record feed success")
		}

		ids, err := s.ingestFeedItems(ctx, scan, feed, result.Items, cutoff)
		if err != nil {
			return nil, err
		}
		articleIDs = append(articleIDs, ids...)
	}

	return articleIDs, nil
}

// ingestFeedItems filters one feed's items by recency, deduplicates them
// against all previously seen articles, and persists the survivors.
func (s *Service) ingestFeedItems(ctx context.Context, scan *models.Scan, feed *models.Feed, items []interfaces.FeedItem, cutoff time.Time) ([]string, error) {
	var ids []string

	for i, item := range items {
		guid := item.GUID
		if guid == "" {
			guid = item.Link
		}
		if guid == "" {
			continue
		}

		publishedAt, dated := feeds.ResolvePublishedAt(item)
		if dated {
			if publishedAt.Before(cutoff) {
				continue
			}
		} else {
			// Undated items are trusted only near the top of the feed,
			// where feeds conventionally place their newest entries.
			if i >= undatedPerFeedLimit {
				continue
			}
			publishedAt = undatedSentinel
		}

		existing, err := s.store.ArticleStorage().GetArticleByGUID(ctx, guid)
		if err != nil {
			return nil, fmt.Errorf("failed to check article guid: %w", err)
		}
		if existing != nil {
			continue
		}

		article := models.NewArticle(scan.ID, feed.ID, guid, item.Title, item.Link, publishedAt.UTC())
		if err := s.store.ArticleStorage().SaveArticle(ctx, article); err != nil {
			return nil, fmt.Errorf("failed to save article: %w", err)
		}
		ids = append(ids, article.ID)
	}

	return ids, nil
}

// failScan terminates a scan with an error message.
func (s *Service) failScan(ctx context.Context, scan *models.Scan, errMsg string) {
	scan.MarkCompleted(errMsg)
	if err := s.store.ScanStorage().SaveScan(ctx, scan); err != nil {
		s.logger.Error().Err(err).Str("scan_id", scan.ID).Msg("Failed to save failed scan")
		return
	}
	s.logger.Error().Str("scan_id", scan.ID).Str("error", errMsg).Msg("Scan failed")
}
