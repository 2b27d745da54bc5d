package analyzer

import (
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/reelscan/reelscan/internal/common"
	"github.com/reelscan/reelscan/internal/interfaces"
)

// NewAnalyzer creates the analysis service for the configured provider.
func NewAnalyzer(cfg *common.LLMConfig, logger arbor.ILogger) (interfaces.Analyzer, error) {
	logger.Info().Str("provider", string(cfg.Provider)).Msg("Initializing analysis service")

	switch cfg.Provider {
	case common.LLMProviderClaude:
		backend, err := newClaudeBackend(&cfg.Claude, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create Claude backend: %w", err)
		}
		return newService(backend, logger), nil

	case common.LLMProviderGemini:
		backend, err := newGeminiBackend(&cfg.Gemini, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create Gemini backend: %w", err)
		}
		return newService(backend, logger), nil

	default:
		return nil, fmt.Errorf("unsupported LLM provider '%s': must be 'claude' or 'gemini'", cfg.Provider)
	}
}
