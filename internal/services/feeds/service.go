package feeds

import (
	"context"
	"fmt"

	"github.com/mmcdole/gofeed"
	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/reelscan/reelscan/internal/common"
	"github.com/reelscan/reelscan/internal/httpclient"
	"github.com/reelscan/reelscan/internal/interfaces"
)

// Service fetches and parses RSS/Atom feeds into normalized items.
// Outbound fetches are paced by a shared rate limiter so a scan over many
// feeds does not hammer upstream hosts.
type Service struct {
	parser  *gofeed.Parser
	limiter *rate.Limiter
	logger  arbor.ILogger
}

// NewService creates a feed source backed by gofeed.
func NewService(config *common.FeedsConfig, logger arbor.ILogger) *Service {
	parser := gofeed.NewParser()
	parser.Client = httpclient.NewDefaultHTTPClient(common.MustDuration(config.FetchTimeout))
	parser.UserAgent = config.UserAgent

	perSecond := config.RatePerSecond
	if perSecond <= 0 {
		perSecond = 2
	}

	return &Service{
		parser:  parser,
		limiter: rate.NewLimiter(rate.Limit(perSecond), 1),
		logger:  logger,
	}
}

// FetchAndParse retrieves one feed and normalizes its items.
func (s *Service) FetchAndParse(ctx context.Context, xmlURL string) (*interfaces.FeedResult, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	feed, err := s.parser.ParseURLWithContext(xmlURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed %s: %w", xmlURL, err)
	}

	result := &interfaces.FeedResult{
		Title: feed.Title,
		Items: make([]interfaces.FeedItem, 0, len(feed.Items)),
	}

	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		result.Items = append(result.Items, normalizeItem(item))
	}

	s.logger.Debug().
		Str("url", xmlURL).
		Int("items", len(result.Items)).
		Msg("Feed fetched and parsed")

	return result, nil
}

// normalizeItem maps a gofeed item onto the collaborator shape, keeping raw
// date strings alongside any parser-resolved timestamps.
func normalizeItem(item *gofeed.Item) interfaces.FeedItem {
	normalized := interfaces.FeedItem{
		Title:           item.Title,
		Link:            item.Link,
		GUID:            item.GUID,
		PubDate:         item.Published,
		PublishedParsed: item.PublishedParsed,
		UpdatedParsed:   item.UpdatedParsed,
	}

	if iso, ok := item.Custom["isoDate"]; ok {
		normalized.ISODate = iso
	}
	if item.DublinCoreExt != nil && len(item.DublinCoreExt.Date) > 0 {
		normalized.Date = item.DublinCoreExt.Date[0]
	} else if date, ok := item.Custom["date"]; ok {
		normalized.Date = date
	}

	return normalized
}
