package llm

import (
	"fmt"
	"strings"

	"github.com/harry720320/account-plan-agent/internal/model"
)

// NewProvider creates a new completion provider based on configuration
func NewProvider(cfg model.LLMConfig) (Provider, error) {
	switch strings.ToLower(cfg.Provider) {
	case "openai":
		return NewOpenAIProvider(cfg)

	case "":
		// No provider configured - return nil (completions disabled)
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown completion provider: %s (supported: openai)", cfg.Provider)
	}
}

// NewClientFromConfig builds the retry/rate-limit client for the
// configured provider. A nil client with nil error means completions
// are disabled.
func NewClientFromConfig(cfg model.LLMConfig) (*Client, error) {
	provider, err := NewProvider(cfg)
	if err != nil {
		return nil, err
	}
	if provider == nil {
		return nil, nil
	}
	return NewClient(provider, cfg), nil
}
