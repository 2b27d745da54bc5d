package badger

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/reelscan/reelscan/internal/interfaces"
	"github.com/reelscan/reelscan/internal/models"
)

// FeedStorage implements the FeedStorage interface for Badger
type FeedStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewFeedStorage creates a new FeedStorage instance
func NewFeedStorage(db *BadgerDB, logger arbor.ILogger) interfaces.FeedStorage {
	return &FeedStorage{
		db:     db,
		logger: logger,
	}
}

func (s *FeedStorage) SaveFeed(ctx context.Context, feed *models.Feed) error {
	if feed.ID == "" {
		return fmt.Errorf("feed ID is required")
	}
	if feed.XMLURL == "" {
		return fmt.Errorf("feed xml_url is required")
	}
	if err := s.db.Store().Upsert(feed.ID, *feed); err != nil {
		return fmt.Errorf("failed to save feed: %w", err)
	}
	return nil
}

func (s *FeedStorage) GetFeed(ctx context.Context, feedID string) (*models.Feed, error) {
	var feed models.Feed
	if err := s.db.Store().Get(feedID, &feed); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get feed: %w", err)
	}
	return &feed, nil
}

func (s *FeedStorage) DeleteFeed(ctx context.Context, feedID string) error {
	if err := s.db.Store().Delete(feedID, &models.Feed{}); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil
		}
		return fmt.Errorf("failed to delete feed: %w", err)
	}
	return nil
}

func (s *FeedStorage) ListFeeds(ctx context.Context) ([]*models.Feed, error) {
	var feeds []models.Feed
	if err := s.db.Store().Find(&feeds, badgerhold.Where("ID").Ne("").SortBy("Name")); err != nil {
		return nil, fmt.Errorf("failed to list feeds: %w", err)
	}

	result := make([]*models.Feed, len(feeds))
	for i := range feeds {
		result[i] = &feeds[i]
	}
	return result, nil
}

func (s *FeedStorage) ListFeedsByTags(ctx context.Context, tags []string) ([]*models.Feed, error) {
	feeds, err := s.ListFeeds(ctx)
	if err != nil {
		return nil, err
	}
	if len(tags) == 0 {
		return feeds, nil
	}

	// Tag match is any-of, filtered in memory; feed counts are small.
	matched := make([]*models.Feed, 0, len(feeds))
	for _, feed := range feeds {
		if feed.HasAnyTag(tags) {
			matched = append(matched, feed)
		}
	}
	return matched, nil
}
