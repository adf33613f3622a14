// Package testutils provides deterministic fakes for the pipeline's
// ports, so tests can script every model outcome without network access.
package testutils

import (
	"context"
	"sync"
	"time"

	"github.com/mizanlegal/mizan/internal/ports"
)

// ScriptedCall is one pre-programmed outcome for a ScriptedClient.
// Exactly one of Text or Err drives the result; Delay simulates call
// latency and honors context cancellation.
type ScriptedCall struct {
	Text      string
	TokensIn  int
	TokensOut int
	Err       error
	Delay     time.Duration
	Panic     string
}

// ScriptedClient implements ports.LLMClient by replaying a fixed script
// of calls in order. When the script runs out, the last call repeats,
// so a single-entry script behaves like a constant responder.
type ScriptedClient struct {
	model string

	mu     sync.Mutex
	script []ScriptedCall
	calls  int
	// prompts records every prompt received, for assertions on what the
	// pipeline actually sent.
	prompts []string
}

// NewScriptedClient builds a client that replays the given calls.
func NewScriptedClient(model string, script ...ScriptedCall) *ScriptedClient {
	return &ScriptedClient{model: model, script: script}
}

// CompleteWithUsage replays the next scripted call.
func (s *ScriptedClient) CompleteWithUsage(ctx context.Context, prompt string, options map[string]any) (string, int, int, error) {
	s.mu.Lock()
	s.prompts = append(s.prompts, prompt)
	idx := s.calls
	if idx >= len(s.script) {
		idx = len(s.script) - 1
	}
	s.calls++
	var call ScriptedCall
	if idx >= 0 {
		call = s.script[idx]
	}
	s.mu.Unlock()

	if call.Delay > 0 {
		select {
		case <-time.After(call.Delay):
		case <-ctx.Done():
			return "", 0, 0, ctx.Err()
		}
	}

	if call.Panic != "" {
		panic(call.Panic)
	}
	if call.Err != nil {
		return "", 0, 0, call.Err
	}
	return call.Text, call.TokensIn, call.TokensOut, nil
}

// GetModel returns the scripted model identifier.
func (s *ScriptedClient) GetModel() string { return s.model }

// Calls returns how many times the client was invoked.
func (s *ScriptedClient) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// Prompts returns a copy of every prompt the client has received.
func (s *ScriptedClient) Prompts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.prompts))
	copy(out, s.prompts)
	return out
}

// LastPrompt returns the most recent prompt, or empty if never called.
func (s *ScriptedClient) LastPrompt() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.prompts) == 0 {
		return ""
	}
	return s.prompts[len(s.prompts)-1]
}

// FixedCostModel charges a flat rate per token regardless of model,
// making cost assertions trivial.
type FixedCostModel struct {
	PerInputToken  float64
	PerOutputToken float64
}

// EstimateCost implements ports.CostModel.
func (f FixedCostModel) EstimateCost(model string, tokensIn, tokensOut int) float64 {
	return float64(tokensIn)*f.PerInputToken + float64(tokensOut)*f.PerOutputToken
}

// RecordingMetrics captures metric calls for assertions.
type RecordingMetrics struct {
	mu        sync.Mutex
	Latencies map[string]int
	Counters  map[string]float64
	Gauges    map[string]float64
}

// NewRecordingMetrics returns an empty recorder.
func NewRecordingMetrics() *RecordingMetrics {
	return &RecordingMetrics{
		Latencies: make(map[string]int),
		Counters:  make(map[string]float64),
		Gauges:    make(map[string]float64),
	}
}

// RecordLatency implements ports.MetricsCollector.
func (r *RecordingMetrics) RecordLatency(operation string, d time.Duration, labels map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Latencies[operation]++
}

// RecordCounter implements ports.MetricsCollector.
func (r *RecordingMetrics) RecordCounter(metric string, value float64, labels map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Counters[metric] += value
}

// RecordGauge implements ports.MetricsCollector.
func (r *RecordingMetrics) RecordGauge(metric string, value float64, labels map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Gauges[metric] = value
}

// CounterValue returns the accumulated value for a counter metric.
func (r *RecordingMetrics) CounterValue(metric string) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Counters[metric]
}

// Verify interface compliance at compile time.
var (
	_ ports.LLMClient        = (*ScriptedClient)(nil)
	_ ports.CostModel        = FixedCostModel{}
	_ ports.MetricsCollector = (*RecordingMetrics)(nil)
)
