package config

import (
	"os"
	"path/filepath"

	"github.com/kortfolk/chronicle/internal/kb"
)

// defaultModels maps each provider to its default extraction model.
var defaultModels = map[ProviderType]string{
	ProviderOpenRouter: "qwen/qwen3-coder",
	ProviderAnthropic:  "claude-sonnet-4-5-20250929",
	ProviderOllama:     "llama3",
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Provider:           ProviderOpenRouter,
		Model:              defaultModels[ProviderOpenRouter],
		RateLimitRPM:       20,
		BudgetUSDPerDay:    5.0,
		DataDir:            defaultDataDir(),
		SessionGlob:        "**/*.jsonl",
		ContextWindow:      10,
		RecentDecisionDays: 7,
		Matching: MatchingConfig{
			EntityThreshold:    kb.DefaultMatchThreshold,
			SatisfiedThreshold: 0.6,
		},
		Brief: BriefConfig{
			DomainLines: 40,
			TotalLines:  200,
		},
		Server: ServerConfig{Port: 8600},
	}
}

// DefaultModel returns the default model for a provider, falling back
// to the openrouter default.
func DefaultModel(provider ProviderType) string {
	if m, ok := defaultModels[provider]; ok {
		return m
	}
	return defaultModels[ProviderOpenRouter]
}

// defaultDataDir resolves ~/.chronicle, falling back to a relative
// directory when the home directory is unknown.
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".chronicle-data"
	}
	return filepath.Join(home, ".chronicle")
}
