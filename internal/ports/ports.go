// Package ports declares the interfaces the ensemble pipeline consumes.
// Implementations live under infrastructure/; the pipeline receives them
// by explicit dependency injection at construction time.
package ports

import (
	"context"
	"time"
)

// LLMClient is the chat-completion capability of one configured model.
// Implementations handle provider-specific authentication, request
// formatting, and response parsing; they surface transport and HTTP
// failures as errors, never as partial text.
type LLMClient interface {
	// CompleteWithUsage sends a prompt and returns the generated text with
	// input/output token counts for cost estimation. Common options:
	//   - "temperature": float64
	//   - "max_tokens": int
	//   - "system": string
	CompleteWithUsage(ctx context.Context, prompt string, options map[string]any) (text string, tokensIn, tokensOut int, err error)

	// GetModel returns the model identifier this client is bound to.
	GetModel() string
}

// CostModel estimates the USD cost of one call as a pure function of the
// model and its token counts. Rates are approximations that drift from
// real provider pricing; exactness is not a correctness property.
type CostModel interface {
	EstimateCost(model string, tokensIn, tokensOut int) float64
}

// Retriever is the optional "given a query, return ranked text chunks"
// capability. When configured, top chunks are embedded in the generation
// prompt ahead of the question; the pipeline does not depend on it.
type Retriever interface {
	Search(ctx context.Context, query string, topK int) ([]Chunk, error)
}

// Chunk is one ranked retrieval result.
type Chunk struct {
	Text  string
	Score float64
}

// Classifier assigns a coarse legal-topic label to a query.
// The pipeline may use the label to pick a prompt framing; a failed or
// low-confidence classification never fails a request.
type Classifier interface {
	Classify(query string) (label string, confidence float64)
}

// MetricsCollector records operational metrics. Implementations integrate
// with Prometheus or other monitoring backends.
type MetricsCollector interface {
	RecordLatency(operation string, duration time.Duration, labels map[string]string)
	RecordCounter(metric string, value float64, labels map[string]string)
	RecordGauge(metric string, value float64, labels map[string]string)
}
