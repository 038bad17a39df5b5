// Package llm wraps the completion-service collaborator. Providers are
// opaque: given a role description and a prompt they return a text
// completion, failing with either a transient kind (timeout, rate
// limit) or a permanent kind (malformed or refused input). Only the
// transient kind is retryable.
package llm

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/harry720320/account-plan-agent/internal/model"
)

// Provider defines the interface for completion services.
type Provider interface {
	// Name returns the provider name
	Name() string

	// Complete returns a text completion for the given role description
	// and prompt. Errors wrap model.ErrTransientService or
	// model.ErrPermanentService.
	Complete(ctx context.Context, role, prompt string, opts Options) (string, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// Options are per-call tuning options.
type Options struct {
	// Model overrides the configured default model
	Model string

	// MaxTokens limits the response length
	MaxTokens int

	// Temperature controls output variability (0 = deterministic)
	Temperature float32
}

// sleepFunc is a package-level var to allow test injection.
var sleepFunc = time.Sleep

// retryDelay is the pause before the single automatic retry.
const retryDelay = 2 * time.Second

// Client wraps a provider with the pipeline's call policy: rate
// limiting, a per-call timeout, and exactly one automatic retry on a
// transient failure with unchanged input.
type Client struct {
	provider Provider
	limiter  *rate.Limiter
	timeout  time.Duration
}

// NewClient builds a client around a provider.
func NewClient(provider Provider, cfg model.LLMConfig) *Client {
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 2
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		provider: provider,
		limiter:  rate.NewLimiter(rate.Limit(rps), burst),
		timeout:  timeout,
	}
}

// Enabled reports whether a provider is configured.
func (c *Client) Enabled() bool { return c != nil && c.provider != nil }

// ProviderName returns the underlying provider name, or "" when disabled.
func (c *Client) ProviderName() string {
	if !c.Enabled() {
		return ""
	}
	return c.provider.Name()
}

// Complete performs one completion call with the retry policy applied.
func (c *Client) Complete(ctx context.Context, role, prompt string, opts Options) (string, error) {
	if !c.Enabled() {
		return "", model.Permanentf("no completion provider configured")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return "", model.Transientf("rate limit wait: %v", err)
	}

	text, err := c.attempt(ctx, role, prompt, opts)
	if err == nil {
		return text, nil
	}
	if !model.IsTransient(err) {
		return "", err
	}

	// One retry with unchanged input, then the failure is surfaced.
	sleepFunc(retryDelay)
	if ctx.Err() != nil {
		return "", model.Transientf("canceled before retry: %v", ctx.Err())
	}
	return c.attempt(ctx, role, prompt, opts)
}

func (c *Client) attempt(ctx context.Context, role, prompt string, opts Options) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.provider.Complete(callCtx, role, prompt, opts)
}
