package scan

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"

	"github.com/reelscan/reelscan/internal/interfaces"
	"github.com/reelscan/reelscan/internal/models"
)

// popErrorBackoff is the delay before re-dispatching a worker chain whose
// queue pop failed at the storage level.
const popErrorBackoff = time.Second

// runWorkerStep performs one iteration of a worker chain: pop an article id,
// process it, then reschedule the next step. Each step is a separately
// dispatched, panic-protected task, so one poisoned article cannot kill the
// chain. An empty pop ends the chain and finalizes the scan.
func (s *Service) runWorkerStep(scanID string) {
	ctx := context.Background()

	articleID, ok, err := s.store.QueueStorage().PopNext(ctx, scanID)
	if err != nil {
		s.logger.Error().Err(err).Str("scan_id", scanID).Msg("Queue pop failed, backing off")
		s.dispatcher.Schedule("scan-worker-"+scanID, popErrorBackoff, func() {
			s.runWorkerStep(scanID)
		})
		return
	}

	if !ok {
		s.finalizeScan(ctx, scanID)
		return
	}

	if processed := s.processArticle(ctx, articleID); processed {
		if _, err := s.store.ScanStorage().IncrementProcessed(ctx, scanID); err != nil {
			s.logger.Warn().Err(err).Str("scan_id", scanID).Msg("Failed to increment processed counter")
		}
	}

	s.dispatcher.Schedule("scan-worker-"+scanID, 0, func() {
		s.runWorkerStep(scanID)
	})
}

// finalizeScan moves a scan to completed once its queue has drained. Safe
// under concurrent callers: each drained worker calls this, the watchdog
// may too, and a scan that is already terminal is left alone.
func (s *Service) finalizeScan(ctx context.Context, scanID string) {
	scan, err := s.store.ScanStorage().GetScan(ctx, scanID)
	if err != nil {
		s.logger.Error().Err(err).Str("scan_id", scanID).Msg("Failed to load scan for finalization")
		return
	}
	if scan == nil || scan.IsTerminal() {
		return
	}

	scan.MarkCompleted("")
	if err := s.store.ScanStorage().SaveScan(ctx, scan); err != nil {
		s.logger.Error().Err(err).Str("scan_id", scanID).Msg("Failed to save completed scan")
		return
	}

	s.logger.Info().
		Str("scan_id", scanID).
		Int("total", scan.TotalArticles).
		Int("processed", scan.ProcessedArticles).
		Msg("Scan completed")
}

// processArticle runs the extract-then-analyze pipeline for one article.
// Returns true when the article reached a terminal state (completed or
// failed), false when it was skipped because it no longer exists.
//
// An extraction or analysis transport failure marks the article failed; an
// unparsable analysis response is a soft failure that completes the article
// without scores.
func (s *Service) processArticle(ctx context.Context, articleID string) bool {
	article, err := s.store.ArticleStorage().GetArticle(ctx, articleID)
	if err != nil {
		s.logger.Error().Err(err).Str("article_id", articleID).Msg("Failed to load article")
		return false
	}
	if article == nil {
		s.logger.Warn().Str("article_id", articleID).Msg("Queued article no longer exists, skipping")
		return false
	}

	article.Status = models.ArticleStatusProcessing
	if err := s.store.ArticleStorage().SaveArticle(ctx, article); err != nil {
		s.logger.Error().Err(err).Str("article_id", articleID).Msg("Failed to mark article processing")
		return false
	}

	content, err := s.extractor.Extract(ctx, article.URL)
	if err != nil {
		s.failArticle(ctx, article, "extraction failed: "+err.Error())
		return true
	}
	if len(content) > maxContentChars {
		cut := maxContentChars
		for cut > 0 && !utf8.RuneStart(content[cut]) {
			cut--
		}
		content = content[:cut]
	}
	article.ExtractedContent = content

	result, err := s.analyzer.Analyze(ctx, interfaces.AnalysisInput{
		Title:       article.Title,
		URL:         article.URL,
		PublishedAt: article.PublishedAt,
		Content:     content,
	})
	switch {
	case err == nil:
		article.Summary = result.Summary
		score := result.Score
		article.Score = &score
		article.Recommendation = result.Recommendation
		article.VideoAngle = result.VideoAngle
		article.Status = models.ArticleStatusCompleted
	case errors.Is(err, interfaces.ErrNotParsable):
		article.Status = models.ArticleStatusCompleted
		article.Error = err.Error()
		s.logger.Warn().Str("article_id", articleID).Msg("Analysis unparsable, completing without scores")
	default:
		s.failArticle(ctx, article, "analysis failed: "+err.Error())
		return true
	}

	if err := s.store.ArticleStorage().SaveArticle(ctx, article); err != nil {
		s.logger.Error().Err(err).Str("article_id", articleID).Msg("Failed to save processed article")
		return true
	}

	s.logger.Debug().
		Str("article_id", articleID).
		Str("status", string(article.Status)).
		Str("recommendation", string(article.Recommendation)).
		Msg("Article processed")

	return true
}

func (s *Service) failArticle(ctx context.Context, article *models.Article, errMsg string) {
	article.Status = models.ArticleStatusFailed
	article.Error = errMsg
	if err := s.store.ArticleStorage().SaveArticle(ctx, article); err != nil {
		s.logger.Error().Err(err).Str("article_id", article.ID).Msg("Failed to save failed article")
		return
	}
	s.logger.Warn().
		Str("article_id", article.ID).
		Str("url", article.URL).
		Str("error", errMsg).
		Msg("Article failed")
}
