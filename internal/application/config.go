// Package application loads configuration and assembles the ensemble
// pipeline with real provider clients. It is the only layer that reads
// the environment; everything below it takes dependencies explicitly.
package application

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/mizanlegal/mizan/internal/ensemble"
)

// ModelSpec identifies one provider-backed model. API keys are never
// written in the config file; APIKeyEnv names the environment variable
// holding the key.
type ModelSpec struct {
	Provider  string `yaml:"provider" validate:"required,oneof=openai deepseek anthropic google"`
	Model     string `yaml:"model" validate:"required"`
	APIKeyEnv string `yaml:"api_key_env" validate:"required"`
	BaseURL   string `yaml:"base_url,omitempty" validate:"omitempty,url"`
}

// PipelineConfig carries the stage-level knobs in YAML-friendly units.
// Zero values take the ensemble defaults.
type PipelineConfig struct {
	PerCallTimeoutSeconds int     `yaml:"per_call_timeout_seconds" validate:"min=0,max=600"`
	MaxOutputTokens       int     `yaml:"max_output_tokens" validate:"min=0,max=16000"`
	Temperature           float64 `yaml:"temperature" validate:"min=0,max=2"`
	MaxConcurrency        int     `yaml:"max_concurrency" validate:"min=0,max=32"`
	SynthesisFlatCost     float64 `yaml:"synthesis_flat_cost" validate:"min=0"`
	RetrievalTopK         int     `yaml:"retrieval_top_k" validate:"min=0,max=20"`
}

// ToEnsemble converts to the pipeline's config, filling unset fields
// with defaults.
func (p PipelineConfig) ToEnsemble() ensemble.Config {
	cfg := ensemble.DefaultConfig()
	if p.PerCallTimeoutSeconds > 0 {
		cfg.PerCallTimeout = time.Duration(p.PerCallTimeoutSeconds) * time.Second
	}
	if p.MaxOutputTokens > 0 {
		cfg.MaxOutputTokens = p.MaxOutputTokens
	}
	if p.Temperature > 0 {
		cfg.Temperature = p.Temperature
	}
	if p.MaxConcurrency > 0 {
		cfg.MaxConcurrency = p.MaxConcurrency
	}
	if p.SynthesisFlatCost > 0 {
		cfg.SynthesisFlatCost = p.SynthesisFlatCost
	}
	if p.RetrievalTopK > 0 {
		cfg.RetrievalTopK = p.RetrievalTopK
	}
	return cfg
}

// RateLimitConfig bounds outbound request rate per client.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" validate:"min=0"`
	Burst             int     `yaml:"burst" validate:"min=0"`
}

// CircuitBreakerConfig trips a client after consecutive failures.
type CircuitBreakerConfig struct {
	MaxFailures     int `yaml:"max_failures" validate:"min=0"`
	CooldownSeconds int `yaml:"cooldown_seconds" validate:"min=0"`
}

// Config is the full application configuration, loaded from YAML.
type Config struct {
	// GeneratorModels answer the question independently. At least one
	// is required.
	GeneratorModels []ModelSpec `yaml:"generator_models" validate:"required,min=1,dive"`

	// JudgeModels score and extract from the generator outputs. An
	// empty list is valid and forces the degraded synthesis path.
	JudgeModels []ModelSpec `yaml:"judge_models" validate:"dive"`

	// SynthesisModel rewrites the pooled excerpts into the final answer.
	SynthesisModel ModelSpec `yaml:"synthesis_model" validate:"required"`

	// Pipeline holds the stage-level knobs. Zero values take defaults.
	Pipeline PipelineConfig `yaml:"pipeline"`

	RateLimit      RateLimitConfig      `yaml:"rate_limit"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`

	// EnableMetrics registers Prometheus collectors and wires them
	// through every stage and provider call.
	EnableMetrics bool `yaml:"enable_metrics"`

	// EnableRetrieval turns on the static-corpus retriever, embedding
	// matched statute chunks into the generation prompt.
	EnableRetrieval bool `yaml:"enable_retrieval"`
}

var validate = validator.New()

// LoadConfig reads, decodes, defaults, and validates a YAML config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes and validates configuration bytes.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.applyDefaults()
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.RateLimit.RequestsPerSecond == 0 {
		c.RateLimit.RequestsPerSecond = 2
	}
	if c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = 4
	}
	if c.CircuitBreaker.MaxFailures == 0 {
		c.CircuitBreaker.MaxFailures = 5
	}
	if c.CircuitBreaker.CooldownSeconds == 0 {
		c.CircuitBreaker.CooldownSeconds = 30
	}
}

// resolveAPIKey reads the key from the model's configured environment
// variable.
func (m ModelSpec) resolveAPIKey() (string, error) {
	key := os.Getenv(m.APIKeyEnv)
	if key == "" {
		return "", fmt.Errorf("environment variable %s is empty (provider %s, model %s)", m.APIKeyEnv, m.Provider, m.Model)
	}
	return key, nil
}
