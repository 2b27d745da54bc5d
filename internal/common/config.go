package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production"
	Server      ServerConfig    `toml:"server"`
	Storage     StorageConfig   `toml:"storage"`
	Logging     LoggingConfig   `toml:"logging"`
	Scan        ScanConfig      `toml:"scan"`
	Feeds       FeedsConfig     `toml:"feeds"`
	Extractor   ExtractorConfig `toml:"extractor"`
	LLM         LLMConfig       `toml:"llm"`
}

type ServerConfig struct {
	Port int    `toml:"port" validate:"min=1,max=65535"`
	Host string `toml:"host"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path" validate:"required"`
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
}

// ScanConfig tunes the scan pipeline and its watchdog.
type ScanConfig struct {
	WorkerStagger    string `toml:"worker_stagger"`    // Delay between worker chain launches, e.g. "100ms"
	WatchdogInterval string `toml:"watchdog_interval"` // How often the watchdog inspects scan state
	InitTimeout      string `toml:"init_timeout"`      // Max time a scan may sit initializing without a queue
	RunTimeout       string `toml:"run_timeout"`       // Max running time before a defensive worker relaunch
}

// FeedsConfig tunes feed fetching.
type FeedsConfig struct {
	FetchTimeout  string  `toml:"fetch_timeout"`   // Per-feed HTTP timeout
	RatePerSecond float64 `toml:"rate_per_second"` // Fetch pacing across all outbound feed requests
	UserAgent     string  `toml:"user_agent"`
}

// ExtractorConfig tunes article content extraction.
type ExtractorConfig struct {
	FetchTimeout string `toml:"fetch_timeout"`
	UserAgent    string `toml:"user_agent"`
}

// LLMProvider selects the analysis backend.
type LLMProvider string

const (
	LLMProviderClaude LLMProvider = "claude"
	LLMProviderGemini LLMProvider = "gemini"
)

type LLMConfig struct {
	Provider LLMProvider  `toml:"provider" validate:"oneof=claude gemini"`
	Claude   ClaudeConfig `toml:"claude"`
	Gemini   GeminiConfig `toml:"gemini"`
}

type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	Timeout     string  `toml:"timeout"`
	MaxTokens   int     `toml:"max_tokens"`
	Temperature float32 `toml:"temperature"`
}

type GeminiConfig struct {
	APIKey  string `toml:"api_key"`
	Model   string `toml:"model"`
	Timeout string `toml:"timeout"`
}

// NewDefaultConfig returns the configuration used before any file or
// environment override is applied.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8085,
			Host: "0.0.0.0",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data/reelscan",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout"},
		},
		Scan: ScanConfig{
			WorkerStagger:    "100ms",
			WatchdogInterval: "30s",
			InitTimeout:      "5m",
			RunTimeout:       "30m",
		},
		Feeds: FeedsConfig{
			FetchTimeout:  "30s",
			RatePerSecond: 2,
			UserAgent:     "reelscan/" + Version,
		},
		Extractor: ExtractorConfig{
			FetchTimeout: "30s",
			UserAgent:    "reelscan/" + Version,
		},
		LLM: LLMConfig{
			Provider: LLMProviderClaude,
			Claude: ClaudeConfig{
				Model:     "claude-sonnet-4-20250514",
				Timeout:   "120s",
				MaxTokens: 4096,
			},
			Gemini: GeminiConfig{
				Model:   "gemini-2.0-flash",
				Timeout: "120s",
			},
		},
	}
}

// LoadFromFile loads configuration from a TOML file layered over defaults,
// then applies environment overrides and validates the result. A missing
// file is not an error; defaults plus environment apply.
func LoadFromFile(path string) (*Config, error) {
	config := NewDefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
			}
		} else {
			if err := toml.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
			}
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func applyEnvOverrides(config *Config) {
	if env := os.Getenv("REELSCAN_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	if port := os.Getenv("REELSCAN_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("REELSCAN_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	if badgerPath := os.Getenv("REELSCAN_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}

	if level := os.Getenv("REELSCAN_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("REELSCAN_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	if provider := os.Getenv("REELSCAN_LLM_PROVIDER"); provider != "" {
		config.LLM.Provider = LLMProvider(provider)
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		config.LLM.Claude.APIKey = key
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		config.LLM.Gemini.APIKey = key
	}
}

// ApplyFlagOverrides applies command-line flag values (highest priority).
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// Validate checks structural validity plus the duration fields that are
// parsed lazily elsewhere.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	durations := map[string]string{
		"scan.worker_stagger":     c.Scan.WorkerStagger,
		"scan.watchdog_interval":  c.Scan.WatchdogInterval,
		"scan.init_timeout":       c.Scan.InitTimeout,
		"scan.run_timeout":        c.Scan.RunTimeout,
		"feeds.fetch_timeout":     c.Feeds.FetchTimeout,
		"extractor.fetch_timeout": c.Extractor.FetchTimeout,
		"llm.claude.timeout":      c.LLM.Claude.Timeout,
		"llm.gemini.timeout":      c.LLM.Gemini.Timeout,
	}
	for name, value := range durations {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid duration for %s: %q", name, value)
		}
	}
	return nil
}

// MustDuration parses a duration that Validate has already checked.
func MustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		panic(fmt.Sprintf("unvalidated duration %q: %v", value, err))
	}
	return d
}

// IsProduction returns true when running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
