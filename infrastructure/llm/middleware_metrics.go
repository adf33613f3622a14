package llm

import (
	"context"
	"errors"
	"time"

	"github.com/mizanlegal/mizan/internal/ports"
)

// metricsLLM records latency, request counts, and token throughput per
// model and outcome.
type metricsLLM struct {
	next      CoreLLM
	collector ports.MetricsCollector
}

// MetricsMiddleware records per-request metrics through the collector.
func MetricsMiddleware(collector ports.MetricsCollector) Middleware {
	return func(next CoreLLM) CoreLLM {
		return &metricsLLM{next: next, collector: collector}
	}
}

func (m *metricsLLM) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	start := time.Now()
	response, tokensIn, tokensOut, err := m.next.DoRequest(ctx, prompt, opts)

	if m.collector == nil {
		return response, tokensIn, tokensOut, err
	}

	labels := map[string]string{
		"model":  m.next.GetModel(),
		"status": statusLabel(ctx, err),
	}
	m.collector.RecordLatency("llm_request", time.Since(start), labels)
	m.collector.RecordCounter("llm_requests_total", 1, labels)

	if err == nil {
		labels["token_type"] = "input"
		m.collector.RecordCounter("llm_tokens_total", float64(tokensIn), labels)
		labels["token_type"] = "output"
		m.collector.RecordCounter("llm_tokens_total", float64(tokensOut), labels)
	}

	return response, tokensIn, tokensOut, err
}

func statusLabel(ctx context.Context, err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrCircuitOpen):
		return "circuit_open"
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return "timeout"
	default:
		return "error"
	}
}

func (m *metricsLLM) GetModel() string { return m.next.GetModel() }
