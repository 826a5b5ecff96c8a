package config

import "github.com/kortfolk/chronicle/internal/kb"

// ProviderType identifies an LLM provider.
type ProviderType string

const (
	ProviderOpenRouter ProviderType = "openrouter"
	ProviderAnthropic  ProviderType = "anthropic"
	ProviderOllama     ProviderType = "ollama"
)

// Config is the top-level chronicle configuration, corresponding to
// .chronicle.yml.
type Config struct {
	Provider ProviderType `yaml:"provider" koanf:"provider"`
	Model    string       `yaml:"model" koanf:"model"`

	// RateLimitRPM caps model calls per minute; zero disables the cap.
	RateLimitRPM int `yaml:"rate_limit_rpm" koanf:"rate_limit_rpm"`

	// BudgetUSDPerDay stops extraction once the day's estimated model
	// spend reaches the limit; zero disables the cutoff.
	BudgetUSDPerDay float64 `yaml:"budget_usd_per_day" koanf:"budget_usd_per_day"`

	// DataDir holds the store, offsets, queues and the briefing.
	DataDir string `yaml:"data_dir" koanf:"data_dir"`

	// SessionsDir is the root transcripts are discovered under.
	SessionsDir string `yaml:"sessions_dir" koanf:"sessions_dir"`

	// SessionGlob selects transcript files under SessionsDir.
	SessionGlob string `yaml:"session_glob" koanf:"session_glob"`

	// ContextWindow is how many processed messages are replayed as
	// context ahead of new ones.
	ContextWindow int `yaml:"context_window" koanf:"context_window"`

	// RecentDecisionDays bounds the decision window used by the
	// context frame and conflict detection.
	RecentDecisionDays int `yaml:"recent_decision_days" koanf:"recent_decision_days"`

	Matching MatchingConfig  `yaml:"matching" koanf:"matching"`
	Brief    BriefConfig     `yaml:"brief" koanf:"brief"`
	Board    BoardConfig     `yaml:"board" koanf:"board"`
	Server   ServerConfig    `yaml:"server" koanf:"server"`
	Domains  []kb.DomainRule `yaml:"domains" koanf:"domains"`
}

// MatchingConfig tunes fuzzy matching thresholds.
type MatchingConfig struct {
	// EntityThreshold gates entity name resolution during writes.
	EntityThreshold float64 `yaml:"entity_threshold" koanf:"entity_threshold"`

	// SatisfiedThreshold gates artifact-to-item matching during
	// reconciliation.
	SatisfiedThreshold float64 `yaml:"satisfied_threshold" koanf:"satisfied_threshold"`
}

// BriefConfig caps briefing size.
type BriefConfig struct {
	DomainLines int `yaml:"domain_lines" koanf:"domain_lines"`
	TotalLines  int `yaml:"total_lines" koanf:"total_lines"`
}

// BoardConfig locates the external board API. The API key comes from
// the CHRONICLE_BOARD_TOKEN environment variable, never the file.
type BoardConfig struct {
	BaseURL string `yaml:"base_url" koanf:"base_url"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port" koanf:"port"`
}
