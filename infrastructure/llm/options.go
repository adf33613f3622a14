package llm

import (
	"fmt"
	"net/url"
	"sync"
	"time"
)

// Valid ranges for common request parameters, shared across providers.
const (
	MinTemperature = 0.0
	MaxTemperature = 2.0
	MinTopP        = 0.0
	MaxTopP        = 1.0

	// DefaultMaxTokens bounds output length when the caller does not set
	// max_tokens explicitly.
	DefaultMaxTokens = 1024

	MinTimeout = 1 * time.Second
	MaxTimeout = 10 * time.Minute
)

// RequestOptions is the standardized parameter set extracted from the
// per-call options map.
type RequestOptions struct {
	MaxTokens   int
	Model       string
	Temperature *float64
	TopP        *float64
	System      string
	// Extra collects provider-specific options not covered above.
	Extra map[string]any
}

// ParseRequestOptions extracts standard parameters from an options map,
// falling back to defaults for missing or invalid entries.
func ParseRequestOptions(opts map[string]any, defaultModel string) RequestOptions {
	options := RequestOptions{
		MaxTokens: extractInt(opts, "max_tokens", DefaultMaxTokens, func(v int) bool { return v > 0 }),
		Model:     extractString(opts, "model", defaultModel),
		System:    extractString(opts, "system", ""),
		Extra:     make(map[string]any),
	}

	if temp, ok := extractFloat(opts, "temperature"); ok && temp >= MinTemperature && temp <= MaxTemperature {
		options.Temperature = &temp
	}
	if topP, ok := extractFloat(opts, "top_p"); ok && topP >= MinTopP && topP <= MaxTopP {
		options.TopP = &topP
	}

	for k, v := range opts {
		switch k {
		case "max_tokens", "model", "system", "temperature", "top_p":
		default:
			options.Extra[k] = v
		}
	}

	return options
}

func extractInt(opts map[string]any, key string, def int, valid func(int) bool) int {
	if v, ok := opts[key].(int); ok && (valid == nil || valid(v)) {
		return v
	}
	return def
}

func extractString(opts map[string]any, key, def string) string {
	if v, ok := opts[key].(string); ok && v != "" {
		return v
	}
	return def
}

func extractFloat(opts map[string]any, key string) (float64, bool) {
	switch v := opts[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	}
	return 0, false
}

// Clamp restricts v to the inclusive range [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ValidateBaseURL checks that a base URL override has an http(s) scheme
// and a host. An empty string is valid and means "use the default".
func ValidateBaseURL(baseURL string) (string, error) {
	if baseURL == "" {
		return "", nil
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid URL format: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("URL scheme must be http or https, got: %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("URL must include a host")
	}
	return u.String(), nil
}

// ValidateTimeout clamps a timeout to [MinTimeout, MaxTimeout]; zero or
// negative means "use the SDK default".
func ValidateTimeout(timeout time.Duration) time.Duration {
	if timeout <= 0 {
		return 0
	}
	if timeout < MinTimeout {
		return MinTimeout
	}
	if timeout > MaxTimeout {
		return MaxTimeout
	}
	return timeout
}

// BaseProvider supplies thread-safe model-name handling for providers.
type BaseProvider struct {
	mu    sync.RWMutex
	model string
}

// GetModel returns the configured model name.
func (b *BaseProvider) GetModel() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.model
}

// SetModel updates the model used by subsequent requests.
func (b *BaseProvider) SetModel(model string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.model = model
}

// charsPerToken approximates GPT-style tokenization for English and is a
// reasonable lower bound for Arabic, where tokens run shorter.
const charsPerToken = 4.0

// EstimateTokens approximates a token count from text length, used when a
// provider response omits usage metadata.
func EstimateTokens(text string) int {
	if len(text) == 0 {
		return 0
	}
	n := int(float64(len(text)) / charsPerToken)
	if n == 0 {
		n = 1
	}
	return n
}

// TokenCount prefers the provider-reported count, falling back to an
// estimate from the text.
func TokenCount(actual int, text string) int {
	if actual > 0 {
		return actual
	}
	return EstimateTokens(text)
}
