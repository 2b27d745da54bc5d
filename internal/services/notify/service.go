package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/reelscan/reelscan/internal/interfaces"
	"github.com/reelscan/reelscan/internal/models"
	"github.com/reelscan/reelscan/internal/services/settings"
)

// NotifierFactory builds a Notifier for a webhook URL. The URL lives in the
// scan settings document and may change between digest runs, so notifiers
// are constructed per run.
type NotifierFactory func(webhookURL string) interfaces.Notifier

// Service assembles and delivers the recommendation digest: completed,
// recommended-or-better articles that have not yet been sent, oldest first.
// Articles are marked notified only after successful delivery, so a failed
// send is retried in full on the next run.
type Service struct {
	articles    interfaces.ArticleStorage
	settings    *settings.Service
	newNotifier NotifierFactory
	logger      arbor.ILogger
}

func NewService(articles interfaces.ArticleStorage, settingsService *settings.Service, factory NotifierFactory, logger arbor.ILogger) *Service {
	return &Service{
		articles:    articles,
		settings:    settingsService,
		newNotifier: factory,
		logger:      logger,
	}
}

// SendDigest sends the pending digest if digests are enabled and there is
// anything to send. Returns the number of articles included.
func (s *Service) SendDigest(ctx context.Context) (int, error) {
	cfg, err := s.settings.Get(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load settings for digest: %w", err)
	}
	if !cfg.DigestEnabled || cfg.DigestWebhookURL == "" {
		return 0, nil
	}

	articles, err := s.articles.UnnotifiedRecommended(ctx, cfg.DigestLimit)
	if err != nil {
		return 0, fmt.Errorf("failed to collect digest articles: %w", err)
	}
	if len(articles) == 0 {
		s.logger.Debug().Msg("No articles pending for digest")
		return 0, nil
	}

	text := buildDigest(articles)
	if err := s.newNotifier(cfg.DigestWebhookURL).Notify(ctx, text); err != nil {
		return 0, fmt.Errorf("digest delivery failed: %w", err)
	}

	ids := make([]string, len(articles))
	for i, article := range articles {
		ids[i] = article.ID
	}
	if err := s.articles.MarkNotified(ctx, ids); err != nil {
		// Delivered but not recorded; the next digest may repeat entries.
		return len(articles), fmt.Errorf("failed to mark articles notified: %w", err)
	}

	s.logger.Info().Int("articles", len(articles)).Msg("Digest sent")
	return len(articles), nil
}

func buildDigest(articles []*models.Article) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*Reelscan digest*: %d recommended article(s)\n", len(articles))

	for _, article := range articles {
		marker := "👍"
		if article.Recommendation == models.RecommendationHighly {
			marker = "🔥"
		}
		fmt.Fprintf(&b, "\n%s *%s*\n%s\n", marker, article.Title, article.URL)
		if article.Summary != "" {
			fmt.Fprintf(&b, "_%s_\n", article.Summary)
		}
		if article.VideoAngle != "" {
			fmt.Fprintf(&b, "Angle: %s\n", article.VideoAngle)
		}
	}

	return b.String()
}
