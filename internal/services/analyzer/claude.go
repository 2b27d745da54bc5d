package analyzer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/arbor"

	"github.com/reelscan/reelscan/internal/common"
)

// claudeBackend completes prompts against the Anthropic API.
type claudeBackend struct {
	client    anthropic.Client
	model     string
	timeout   time.Duration
	maxTokens int
}

func newClaudeBackend(config *common.ClaudeConfig, logger arbor.ILogger) (*claudeBackend, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("Anthropic API key is required (set ANTHROPIC_API_KEY or llm.claude.api_key)")
	}

	timeout, err := time.ParseDuration(config.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid claude timeout '%s': %w", config.Timeout, err)
	}

	maxTokens := config.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	backend := &claudeBackend{
		client:    anthropic.NewClient(option.WithAPIKey(config.APIKey)),
		model:     config.Model,
		timeout:   timeout,
		maxTokens: maxTokens,
	}

	logger.Debug().
		Str("model", backend.model).
		Str("timeout", timeout.String()).
		Int("max_tokens", maxTokens).
		Msg("Claude analysis backend initialized")

	return backend, nil
}

func (b *claudeBackend) name() string { return "claude" }

func (b *claudeBackend) complete(ctx context.Context, system, user string) (string, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(b.model),
		MaxTokens: int64(b.maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
		System: []anthropic.TextBlockParam{
			{Text: system},
		},
	}

	resp, err := b.client.Messages.New(timeoutCtx, params)
	if err != nil {
		return "", fmt.Errorf("Claude API call failed: %w", err)
	}

	var out strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			out.WriteString(block.Text)
		}
	}
	if out.Len() == 0 {
		return "", fmt.Errorf("no response generated from Claude API")
	}

	return out.String(), nil
}
