package application

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/mizanlegal/mizan/infrastructure/llm"
	"github.com/mizanlegal/mizan/infrastructure/middleware"
	"github.com/mizanlegal/mizan/internal/classify"
	"github.com/mizanlegal/mizan/internal/ensemble"
	"github.com/mizanlegal/mizan/internal/ports"
	"github.com/mizanlegal/mizan/internal/retrieval"
)

// BuildPipeline assembles a ready-to-run pipeline from configuration:
// one provider client per configured model, wrapped in the shared
// middleware chain, injected into the ensemble stages.
func BuildPipeline(cfg *Config) (*ensemble.Pipeline, error) {
	pipelineCfg := cfg.Pipeline.ToEnsemble()

	var collector ports.MetricsCollector
	if cfg.EnableMetrics {
		collector = middleware.NewPrometheusMetrics(prometheus.DefaultRegisterer)
	}

	chain := buildMiddleware(cfg, collector)

	generators, err := buildClients(cfg.GeneratorModels, pipelineCfg.PerCallTimeout, chain)
	if err != nil {
		return nil, fmt.Errorf("generator clients: %w", err)
	}
	judges, err := buildClients(cfg.JudgeModels, pipelineCfg.PerCallTimeout, chain)
	if err != nil {
		return nil, fmt.Errorf("judge clients: %w", err)
	}
	synthesis, err := buildClient(cfg.SynthesisModel, pipelineCfg.PerCallTimeout, chain)
	if err != nil {
		return nil, fmt.Errorf("synthesis client: %w", err)
	}

	opts := []ensemble.Option{
		ensemble.WithClassifier(classify.New()),
	}
	if collector != nil {
		opts = append(opts, ensemble.WithMetrics(collector))
	}
	if cfg.EnableRetrieval {
		opts = append(opts, ensemble.WithRetriever(retrieval.NewStaticRetriever()))
	}

	return ensemble.New(generators, judges, synthesis, llm.DefaultRateTable(), pipelineCfg, opts...)
}

// buildMiddleware composes the per-client chain. Tracing sits outermost
// so its span covers rate-limit waits and breaker rejections; the
// breaker sits innermost so only real provider failures trip it.
func buildMiddleware(cfg *Config, collector ports.MetricsCollector) []llm.Middleware {
	var chain []llm.Middleware
	chain = append(chain, llm.TracingMiddleware("mizan"))
	if collector != nil {
		chain = append(chain, llm.MetricsMiddleware(collector))
	}
	if cfg.RateLimit.RequestsPerSecond > 0 {
		chain = append(chain, llm.RateLimitMiddleware(rate.Limit(cfg.RateLimit.RequestsPerSecond), cfg.RateLimit.Burst))
	}
	if cfg.CircuitBreaker.MaxFailures > 0 {
		cooldown := time.Duration(cfg.CircuitBreaker.CooldownSeconds) * time.Second
		chain = append(chain, llm.CircuitBreakerMiddleware(cfg.CircuitBreaker.MaxFailures, cooldown))
	}
	return chain
}

func buildClients(specs []ModelSpec, timeout time.Duration, chain []llm.Middleware) ([]ports.LLMClient, error) {
	clients := make([]ports.LLMClient, 0, len(specs))
	for _, spec := range specs {
		client, err := buildClient(spec, timeout, chain)
		if err != nil {
			return nil, err
		}
		clients = append(clients, client)
	}
	return clients, nil
}

func buildClient(spec ModelSpec, timeout time.Duration, chain []llm.Middleware) (ports.LLMClient, error) {
	apiKey, err := spec.resolveAPIKey()
	if err != nil {
		return nil, err
	}
	return llm.NewClient(spec.Provider, llm.ClientConfig{
		APIKey:     apiKey,
		Model:      spec.Model,
		BaseURL:    spec.BaseURL,
		Timeout:    timeout,
		Middleware: chain,
	})
}
