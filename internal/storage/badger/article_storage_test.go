package badger

import (
	"context"
	"testing"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/reelscan/reelscan/internal/models"
)

func TestArticleGUIDLookup(t *testing.T) {
	db := newTestDB(t)
	storage := NewArticleStorage(db, arbor.NewLogger())
	ctx := context.Background()

	article := models.NewArticle("scan-1", "feed-1", "guid-123", "Title", "https://example.com/a", time.Now().UTC())
	if err := storage.SaveArticle(ctx, article); err != nil {
		t.Fatalf("Failed to save article: %v", err)
	}

	found, err := storage.GetArticleByGUID(ctx, "guid-123")
	if err != nil {
		t.Fatal(err)
	}
	if found == nil || found.ID != article.ID {
		t.Fatalf("Expected article %s by guid, got %+v", article.ID, found)
	}

	missing, err := storage.GetArticleByGUID(ctx, "guid-unknown")
	if err != nil {
		t.Fatalf("Expected no error for unknown guid, got %v", err)
	}
	if missing != nil {
		t.Errorf("Expected nil for unknown guid, got %+v", missing)
	}
}

func TestResetForRetryRoundTrip(t *testing.T) {
	db := newTestDB(t)
	storage := NewArticleStorage(db, arbor.NewLogger())
	ctx := context.Background()

	article := models.NewArticle("scan-1", "feed-1", "guid-retry", "Title", "https://example.com/b", time.Now().UTC())
	article.Status = models.ArticleStatusFailed
	article.ExtractedContent = "partial content"
	article.Summary = "stale summary"
	article.Score = &models.ScoreSet{Relevance: 5}
	article.Recommendation = models.RecommendationMaybe
	article.VideoAngle = "stale angle"
	article.Error = "analysis failed: boom"
	if err := storage.SaveArticle(ctx, article); err != nil {
		t.Fatal(err)
	}

	article.ResetForRetry()
	if err := storage.SaveArticle(ctx, article); err != nil {
		t.Fatal(err)
	}

	stored, err := storage.GetArticle(ctx, article.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Status != models.ArticleStatusPending {
		t.Errorf("Expected pending after reset, got %s", stored.Status)
	}
	if stored.ExtractedContent != "" || stored.Summary != "" || stored.Score != nil ||
		stored.Recommendation != "" || stored.VideoAngle != "" || stored.Error != "" {
		t.Errorf("Expected derived fields cleared, got %+v", stored)
	}
}

func TestUnnotifiedRecommended(t *testing.T) {
	db := newTestDB(t)
	storage := NewArticleStorage(db, arbor.NewLogger())
	ctx := context.Background()

	base := time.Now().UTC().Add(-24 * time.Hour)
	mk := func(guid string, status models.ArticleStatus, rec models.Recommendation, notified bool, offset time.Duration) *models.Article {
		a := models.NewArticle("scan-1", "feed-1", guid, guid, "https://example.com/"+guid, base.Add(offset))
		a.Status = status
		a.Recommendation = rec
		a.Notified = notified
		if err := storage.SaveArticle(ctx, a); err != nil {
			t.Fatal(err)
		}
		return a
	}

	newer := mk("rec-new", models.ArticleStatusCompleted, models.RecommendationYes, false, 2*time.Hour)
	older := mk("rec-old", models.ArticleStatusCompleted, models.RecommendationHighly, false, time.Hour)
	mk("maybe", models.ArticleStatusCompleted, models.RecommendationMaybe, false, time.Hour)
	mk("already-sent", models.ArticleStatusCompleted, models.RecommendationHighly, true, time.Hour)
	mk("still-failed", models.ArticleStatusFailed, models.RecommendationHighly, false, time.Hour)

	pending, err := storage.UnnotifiedRecommended(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 2 {
		t.Fatalf("Expected 2 digest candidates, got %d", len(pending))
	}
	if pending[0].ID != older.ID || pending[1].ID != newer.ID {
		t.Errorf("Expected oldest-first order, got %s, %s", pending[0].GUID, pending[1].GUID)
	}

	if err := storage.MarkNotified(ctx, []string{older.ID, newer.ID}); err != nil {
		t.Fatal(err)
	}
	pending, err = storage.UnnotifiedRecommended(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 0 {
		t.Errorf("Expected no candidates after marking notified, got %d", len(pending))
	}
}

func TestCountByStatus(t *testing.T) {
	db := newTestDB(t)
	storage := NewArticleStorage(db, arbor.NewLogger())
	ctx := context.Background()

	for i, status := range []models.ArticleStatus{
		models.ArticleStatusPending,
		models.ArticleStatusPending,
		models.ArticleStatusFailed,
	} {
		a := models.NewArticle("scan-1", "feed-1", string(rune('a'+i)), "t", "https://example.com", time.Now().UTC())
		a.Status = status
		if err := storage.SaveArticle(ctx, a); err != nil {
			t.Fatal(err)
		}
	}

	pending, err := storage.CountByStatus(ctx, models.ArticleStatusPending)
	if err != nil {
		t.Fatal(err)
	}
	if pending != 2 {
		t.Errorf("Expected 2 pending, got %d", pending)
	}

	failed, err := storage.CountByStatus(ctx, models.ArticleStatusFailed)
	if err != nil {
		t.Fatal(err)
	}
	if failed != 1 {
		t.Errorf("Expected 1 failed, got %d", failed)
	}
}
