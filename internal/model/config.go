package model

import "time"

// Config holds the complete application configuration.
// Hierarchy (highest to lowest priority): CLI flags, environment
// variables (ACCOUNT_PLAN_*), config file, defaults.
type Config struct {
	Database    DatabaseConfig    `yaml:"database" mapstructure:"database"`
	LLM         LLMConfig         `yaml:"llm" mapstructure:"llm"`
	Evidence    EvidenceConfig    `yaml:"evidence" mapstructure:"evidence"`
	Elicitation ElicitationConfig `yaml:"elicitation" mapstructure:"elicitation"`
	Plan        PlanConfig        `yaml:"plan" mapstructure:"plan"`
	Catalog     CatalogConfig     `yaml:"catalog" mapstructure:"catalog"`
}

// DatabaseConfig configures the SQLite storage collaborator.
type DatabaseConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// LLMConfig configures the completion-service collaborator.
type LLMConfig struct {
	Provider          string  `yaml:"provider" mapstructure:"provider"` // "openai" or "" (disabled)
	Model             string  `yaml:"model" mapstructure:"model"`
	APIKey            string  `yaml:"api_key" mapstructure:"api_key"`
	BaseURL           string  `yaml:"base_url" mapstructure:"base_url"`
	Timeout           int     `yaml:"timeout" mapstructure:"timeout"` // seconds, per call
	MaxTokens         int     `yaml:"max_tokens" mapstructure:"max_tokens"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int     `yaml:"burst" mapstructure:"burst"`
}

// EvidenceConfig configures the evidence cache and collector.
type EvidenceConfig struct {
	StalenessHorizon time.Duration `yaml:"staleness_horizon" mapstructure:"staleness_horizon"`
	MemoryTTL        time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	FetchTimeout     time.Duration `yaml:"fetch_timeout" mapstructure:"fetch_timeout"`
	UserAgent        string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes     int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
}

// ElicitationConfig configures the conversational state machine and
// completeness evaluation.
type ElicitationConfig struct {
	FreshnessHorizon time.Duration `yaml:"freshness_horizon" mapstructure:"freshness_horizon"`
	MaxFollowUps     int           `yaml:"max_follow_ups" mapstructure:"max_follow_ups"`
	MinAnswerRunes   int           `yaml:"min_answer_runes" mapstructure:"min_answer_runes"`
}

// PlanConfig configures plan synthesis.
type PlanConfig struct {
	Author     string `yaml:"author" mapstructure:"author"`           // Change-log author label
	KeepLatest int    `yaml:"keep_latest" mapstructure:"keep_latest"` // Non-archived plans kept per account
}

// CatalogConfig configures question catalog loading.
type CatalogConfig struct {
	File string `yaml:"file" mapstructure:"file"` // Optional YAML file with extra templates
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path: "account-plan.db",
		},
		LLM: LLMConfig{
			Provider:          "openai",
			Model:             "", // Provider default
			Timeout:           30,
			MaxTokens:         1500,
			RequestsPerSecond: 2,
			Burst:             4,
		},
		Evidence: EvidenceConfig{
			StalenessHorizon: 30 * 24 * time.Hour,
			MemoryTTL:        10 * time.Minute,
			FetchTimeout:     15 * time.Second,
			MaxBodyBytes:     2_000_000,
			UserAgent:        "account-plan-agent/0.1 (+https://github.com/harry720320/account-plan-agent)",
		},
		Elicitation: ElicitationConfig{
			FreshnessHorizon: 30 * 24 * time.Hour,
			MaxFollowUps:     2,
			MinAnswerRunes:   40,
		},
		Plan: PlanConfig{
			Author:     "account-plan-agent",
			KeepLatest: 3,
		},
	}
}
