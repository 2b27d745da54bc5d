package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/reelscan/reelscan/internal/interfaces"
	"github.com/reelscan/reelscan/internal/models"
)

// completer is the narrow contract the provider backends satisfy: one
// system+user prompt in, raw model text out.
type completer interface {
	complete(ctx context.Context, system, user string) (string, error)
	name() string
}

const systemPrompt = `You are an editorial assistant for a video production team. You evaluate written articles for their potential as short-form video content.

Respond with a single JSON object and nothing else, using exactly this shape:
{
  "summary": "two or three sentence summary of the article",
  "relevance": 1-10,
  "relevance_note": "one sentence",
  "uniqueness": 1-10,
  "uniqueness_note": "one sentence",
  "engagement": 1-10,
  "engagement_note": "one sentence",
  "credibility": 1-10,
  "credibility_note": "one sentence",
  "recommendation": "highly_recommended" | "recommended" | "maybe" | "not_recommended",
  "video_angle": "one sentence pitch for how to frame this as a video, or empty string"
}`

// Service scores articles through a configured LLM backend. Prompt assembly
// and response parsing are shared across backends; only the completion call
// differs per provider.
type Service struct {
	backend completer
	logger  arbor.ILogger
}

func newService(backend completer, logger arbor.ILogger) *Service {
	return &Service{backend: backend, logger: logger}
}

// Analyze sends the article to the backend and parses the structured verdict.
// A backend transport failure is returned as-is; a response that cannot be
// parsed is reported as interfaces.ErrNotParsable.
func (s *Service) Analyze(ctx context.Context, input interfaces.AnalysisInput) (*interfaces.AnalysisResult, error) {
	start := time.Now()

	raw, err := s.backend.complete(ctx, systemPrompt, buildUserPrompt(input))
	if err != nil {
		return nil, fmt.Errorf("analysis completion failed: %w", err)
	}

	result, err := parseResponse(raw)
	if err != nil {
		s.logger.Warn().
			Str("provider", s.backend.name()).
			Str("url", input.URL).
			Int("response_length", len(raw)).
			Msg("Analysis response was not parsable")
		return nil, err
	}

	s.logger.Debug().
		Str("provider", s.backend.name()).
		Str("url", input.URL).
		Str("recommendation", string(result.Recommendation)).
		Str("duration", time.Since(start).String()).
		Msg("Article analyzed")

	return result, nil
}

func buildUserPrompt(input interfaces.AnalysisInput) string {
	var b strings.Builder
	b.WriteString("Evaluate the following article.\n\n")
	fmt.Fprintf(&b, "Title: %s\n", input.Title)
	fmt.Fprintf(&b, "URL: %s\n", input.URL)
	if !input.PublishedAt.IsZero() {
		fmt.Fprintf(&b, "Published: %s\n", input.PublishedAt.Format("2006-01-02"))
	}
	b.WriteString("\nArticle content:\n\n")
	b.WriteString(input.Content)
	return b.String()
}

// rawVerdict mirrors the JSON shape requested in the system prompt.
type rawVerdict struct {
	Summary         string `json:"summary"`
	Relevance       int    `json:"relevance"`
	RelevanceNote   string `json:"relevance_note"`
	Uniqueness      int    `json:"uniqueness"`
	UniquenessNote  string `json:"uniqueness_note"`
	Engagement      int    `json:"engagement"`
	EngagementNote  string `json:"engagement_note"`
	Credibility     int    `json:"credibility"`
	CredibilityNote string `json:"credibility_note"`
	Recommendation  string `json:"recommendation"`
	VideoAngle      string `json:"video_angle"`
}

// parseResponse extracts and validates the JSON verdict from raw model text.
// Models sometimes wrap the object in markdown fences or surrounding prose,
// so the first balanced object is located before unmarshaling.
func parseResponse(raw string) (*interfaces.AnalysisResult, error) {
	jsonText, ok := extractJSON(raw)
	if !ok {
		return nil, fmt.Errorf("%w: no JSON object in response", interfaces.ErrNotParsable)
	}

	var verdict rawVerdict
	if err := json.Unmarshal([]byte(jsonText), &verdict); err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrNotParsable, err)
	}

	if strings.TrimSpace(verdict.Summary) == "" {
		return nil, fmt.Errorf("%w: missing summary", interfaces.ErrNotParsable)
	}

	recommendation := models.Recommendation(strings.ToLower(strings.TrimSpace(verdict.Recommendation)))
	if !models.ValidRecommendation(recommendation) {
		return nil, fmt.Errorf("%w: unknown recommendation %q", interfaces.ErrNotParsable, verdict.Recommendation)
	}

	return &interfaces.AnalysisResult{
		Summary: strings.TrimSpace(verdict.Summary),
		Score: models.ScoreSet{
			Relevance:       clampScore(verdict.Relevance),
			RelevanceNote:   verdict.RelevanceNote,
			Uniqueness:      clampScore(verdict.Uniqueness),
			UniquenessNote:  verdict.UniquenessNote,
			Engagement:      clampScore(verdict.Engagement),
			EngagementNote:  verdict.EngagementNote,
			Credibility:     clampScore(verdict.Credibility),
			CredibilityNote: verdict.CredibilityNote,
		},
		Recommendation: recommendation,
		VideoAngle:     strings.TrimSpace(verdict.VideoAngle),
	}, nil
}

// extractJSON returns the first balanced top-level JSON object in text.
func extractJSON(text string) (string, bool) {
	start := strings.Index(text, "{")
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}

func clampScore(score int) int {
	if score < 1 {
		return 1
	}
	if score > 10 {
		return 10
	}
	return score
}
