package badger

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/reelscan/reelscan/internal/interfaces"
	"github.com/reelscan/reelscan/internal/models"
)

// ArticleStorage implements the ArticleStorage interface for Badger
type ArticleStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewArticleStorage creates a new ArticleStorage instance
func NewArticleStorage(db *BadgerDB, logger arbor.ILogger) interfaces.ArticleStorage {
	return &ArticleStorage{
		db:     db,
		logger: logger,
	}
}

func (s *ArticleStorage) SaveArticle(ctx context.Context, article *models.Article) error {
	if article.ID == "" {
		return fmt.Errorf("article ID is required")
	}
	article.UpdatedAt = time.Now().UTC()
	if err := s.db.Store().Upsert(article.ID, *article); err != nil {
		return fmt.Errorf("failed to save article: %w", err)
	}
	return nil
}

func (s *ArticleStorage) GetArticle(ctx context.Context, articleID string) (*models.Article, error) {
	var article models.Article
	if err := s.db.Store().Get(articleID, &article); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get article: %w", err)
	}
	return &article, nil
}

func (s *ArticleStorage) GetArticleByGUID(ctx context.Context, guid string) (*models.Article, error) {
	var articles []models.Article
	if err := s.db.Store().Find(&articles, badgerhold.Where("GUID").Eq(guid).Index("GUID")); err != nil {
		return nil, fmt.Errorf("failed to query article by guid: %w", err)
	}
	if len(articles) == 0 {
		return nil, nil
	}
	return &articles[0], nil
}

func (s *ArticleStorage) ListArticles(ctx context.Context, opts *interfaces.ArticleListOptions) ([]*models.Article, error) {
	query := badgerhold.Where("ID").Ne("")

	if opts != nil {
		if opts.Status != "" {
			query = query.And("Status").Eq(opts.Status)
		}
		if opts.Recommendation != "" {
			query = query.And("Recommendation").Eq(opts.Recommendation)
		}
		if opts.ScanID != "" {
			query = query.And("ScanID").Eq(opts.ScanID)
		}
		query = query.SortBy("PublishedAt").Reverse()
		if opts.Limit > 0 {
			query = query.Limit(opts.Limit)
		}
		if opts.Offset > 0 {
			query = query.Skip(opts.Offset)
		}
	}

	var articles []models.Article
	if err := s.db.Store().Find(&articles, query); err != nil {
		return nil, fmt.Errorf("failed to list articles: %w", err)
	}

	result := make([]*models.Article, len(articles))
	for i := range articles {
		result[i] = &articles[i]
	}
	return result, nil
}

func (s *ArticleStorage) ListByStatus(ctx context.Context, status models.ArticleStatus) ([]*models.Article, error) {
	var articles []models.Article
	if err := s.db.Store().Find(&articles, badgerhold.Where("Status").Eq(status).Index("Status")); err != nil {
		return nil, fmt.Errorf("failed to list articles by status: %w", err)
	}

	result := make([]*models.Article, len(articles))
	for i := range articles {
		result[i] = &articles[i]
	}
	return result, nil
}

func (s *ArticleStorage) CountByStatus(ctx context.Context, status models.ArticleStatus) (int, error) {
	count, err := s.db.Store().Count(&models.Article{}, badgerhold.Where("Status").Eq(status))
	if err != nil {
		return 0, fmt.Errorf("failed to count articles: %w", err)
	}
	return int(count), nil
}

func (s *ArticleStorage) UnnotifiedRecommended(ctx context.Context, limit int) ([]*models.Article, error) {
	var articles []models.Article
	query := badgerhold.Where("Status").Eq(models.ArticleStatusCompleted).
		And("Notified").Eq(false).
		And("Recommendation").In(models.RecommendationHighly, models.RecommendationYes)
	if err := s.db.Store().Find(&articles, query); err != nil {
		return nil, fmt.Errorf("failed to query unnotified articles: %w", err)
	}

	sort.Slice(articles, func(i, j int) bool {
		return articles[i].PublishedAt.Before(articles[j].PublishedAt)
	})
	if limit > 0 && len(articles) > limit {
		articles = articles[:limit]
	}

	result := make([]*models.Article, len(articles))
	for i := range articles {
		result[i] = &articles[i]
	}
	return result, nil
}

func (s *ArticleStorage) MarkNotified(ctx context.Context, articleIDs []string) error {
	for _, id := range articleIDs {
		var article models.Article
		if err := s.db.Store().Get(id, &article); err != nil {
			if err == badgerhold.ErrNotFound {
				continue
			}
			return fmt.Errorf("failed to load article %s: %w", id, err)
		}
		article.Notified = true
		article.UpdatedAt = time.Now().UTC()
		if err := s.db.Store().Upsert(id, article); err != nil {
			return fmt.Errorf("failed to mark article %s notified: %w", id, err)
		}
	}
	return nil
}
