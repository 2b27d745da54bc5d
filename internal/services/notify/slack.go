package notify

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/reelscan/reelscan/internal/httpclient"
	"github.com/reelscan/reelscan/internal/interfaces"
)

// SlackNotifier posts messages to a Slack incoming webhook.
type SlackNotifier struct {
	client     *http.Client
	webhookURL string
	logger     arbor.ILogger
}

func NewSlackNotifier(webhookURL string, logger arbor.ILogger) *SlackNotifier {
	return &SlackNotifier{
		client:     httpclient.NewDefaultHTTPClient(30 * time.Second),
		webhookURL: webhookURL,
		logger:     logger,
	}
}

// SlackFactory returns a NotifierFactory producing webhook notifiers that
// share the given logger.
func SlackFactory(logger arbor.ILogger) NotifierFactory {
	return func(webhookURL string) interfaces.Notifier {
		return NewSlackNotifier(webhookURL, logger)
	}
}

// Notify delivers one message to the webhook.
func (n *SlackNotifier) Notify(ctx context.Context, text string) error {
	if n.webhookURL == "" {
		return fmt.Errorf("webhook URL is not configured")
	}

	payload := map[string]string{"text": text}
	if err := httpclient.PostJSON(ctx, n.client, n.webhookURL, payload); err != nil {
		return fmt.Errorf("failed to post to webhook: %w", err)
	}

	n.logger.Debug().Int("length", len(text)).Msg("Webhook notification delivered")
	return nil
}
