// Package llm adapts provider-specific chat-completion APIs (OpenAI,
// DeepSeek, Anthropic, Google Gemini) to a single interface the ensemble
// pipeline can fan out over. Cross-cutting concerns such as timeouts,
// rate limiting, circuit breaking, metrics, and tracing are composed
// through a middleware chain so the pipeline code never sees them.
//
// Basic usage:
//
//	client, err := llm.NewClient("deepseek", llm.ClientConfig{
//	    APIKey: os.Getenv("DEEPSEEK_API_KEY"),
//	    Model:  "deepseek-chat",
//	    Middleware: []llm.Middleware{
//	        llm.TimeoutMiddleware(45 * time.Second),
//	        llm.RateLimitMiddleware(10, 20),
//	    },
//	})
package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/mizanlegal/mizan/internal/ports"
)

// CoreLLM is the minimal surface a provider must implement. Middleware
// wraps any conforming implementation.
type CoreLLM interface {
	// DoRequest sends a prompt and returns the response text along with
	// input and output token counts. Provider-specific knobs travel in
	// opts ("temperature", "max_tokens", "system", ...).
	DoRequest(ctx context.Context, prompt string, opts map[string]any) (response string, tokensIn, tokensOut int, err error)

	// GetModel returns the configured model name.
	GetModel() string
}

// Middleware wraps a CoreLLM to add cross-cutting behavior. Middleware is
// applied in reverse order so the first entry is the outermost layer.
type Middleware func(CoreLLM) CoreLLM

// ClientConfig holds everything needed to construct a provider client.
type ClientConfig struct {
	// APIKey authenticates requests to the provider.
	APIKey string

	// Model names the model to use, e.g. "gpt-4o" or "gemini-2.0-flash".
	Model string

	// BaseURL overrides the provider's default endpoint. Empty uses the
	// default; the DeepSeek provider sets its own when empty.
	BaseURL string

	// Timeout bounds the underlying HTTP client where the SDK supports
	// it. TimeoutMiddleware is the preferred per-call bound.
	Timeout time.Duration

	// Middleware is applied around the provider, first entry outermost.
	Middleware []Middleware
}

// Client exposes a middleware-wrapped provider as ports.LLMClient.
type Client struct {
	core CoreLLM
}

var _ ports.LLMClient = (*Client)(nil)

// NewClient builds a client for the named provider type ("openai",
// "deepseek", "anthropic", "google") and composes its middleware chain.
func NewClient(providerType string, config ClientConfig) (*Client, error) {
	if config.APIKey == "" {
		return nil, ErrEmptyAPIKey
	}
	if config.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	factory, ok := providerFactories[providerType]
	if !ok {
		return nil, fmt.Errorf("unknown provider: %s", providerType)
	}

	core, err := factory(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s provider: %w", providerType, err)
	}

	for i := len(config.Middleware) - 1; i >= 0; i-- {
		core = config.Middleware[i](core)
	}

	return &Client{core: core}, nil
}

// CompleteWithUsage implements ports.LLMClient.
func (c *Client) CompleteWithUsage(ctx context.Context, prompt string, options map[string]any) (string, int, int, error) {
	return c.core.DoRequest(ctx, prompt, options)
}

// GetModel returns the model name of the underlying provider.
func (c *Client) GetModel() string { return c.core.GetModel() }

// ProviderFactory builds a CoreLLM from configuration.
type ProviderFactory func(ClientConfig) (CoreLLM, error)

var providerFactories = map[string]ProviderFactory{}

// RegisterProviderFactory registers a provider under a type name.
// Built-in providers register themselves in init; custom providers may be
// added the same way.
func RegisterProviderFactory(providerType string, factory ProviderFactory) {
	providerFactories[providerType] = factory
}
