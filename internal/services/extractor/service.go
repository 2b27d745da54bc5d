package extractor

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"

	"github.com/reelscan/reelscan/internal/common"
	"github.com/reelscan/reelscan/internal/httpclient"
)

// Service fetches an article page and reduces it to readable markdown.
// Boilerplate elements are stripped before conversion so the analysis
// prompt sees article text rather than navigation chrome.
type Service struct {
	client    *http.Client
	converter *md.Converter
	userAgent string
	logger    arbor.ILogger
}

// Selectors removed wholesale before conversion.
var strippedSelectors = []string{
	"script", "style", "noscript", "iframe", "svg",
	"nav", "header", "footer", "aside", "form",
	".advertisement", ".ads", ".social-share", ".comments", ".related-posts",
}

// Containers tried in order for the main article body. The first match with
// meaningful text wins; otherwise the cleaned body is used.
var contentSelectors = []string{
	"article", "main", "[role=main]", ".post-content", ".entry-content", ".article-body",
}

func NewService(config *common.ExtractorConfig, logger arbor.ILogger) *Service {
	converter := md.NewConverter("", true, nil)

	return &Service{
		client:    httpclient.NewDefaultHTTPClient(common.MustDuration(config.FetchTimeout)),
		converter: converter,
		userAgent: config.UserAgent,
		logger:    logger,
	}
}

// Extract downloads url and returns the article body as markdown.
func (s *Service) Extract(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request for %s: %w", url, err)
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("unexpected status %d fetching %s", resp.StatusCode, url)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML from %s: %w", url, err)
	}

	for _, selector := range strippedSelectors {
		doc.Find(selector).Remove()
	}

	content := selectContent(doc)
	html, err := content.Html()
	if err != nil {
		return "", fmt.Errorf("failed to render content from %s: %w", url, err)
	}

	markdown, err := s.converter.ConvertString(html)
	if err != nil {
		return "", fmt.Errorf("failed to convert %s to markdown: %w", url, err)
	}

	markdown = strings.TrimSpace(markdown)
	if markdown == "" {
		return "", fmt.Errorf("no readable content at %s", url)
	}

	s.logger.Debug().
		Str("url", url).
		Int("chars", len(markdown)).
		Msg("Content extracted")

	return markdown, nil
}

func selectContent(doc *goquery.Document) *goquery.Selection {
	for _, selector := range contentSelectors {
		sel := doc.Find(selector).First()
		if sel.Length() > 0 && len(strings.TrimSpace(sel.Text())) > 200 {
			return sel
		}
	}
	return doc.Find("body")
}
