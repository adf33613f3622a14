// Package ensemble implements the multi-model consensus pipeline: a
// question fans out to several generator models, judge models extract the
// best excerpt per generator, the excerpts are pooled, and one synthesis
// call produces the final answer. Partial failure is tolerated at every
// stage; only total generator failure aborts a run.
package ensemble

import (
	"context"
	"fmt"
	"time"

	"github.com/mizanlegal/mizan/internal/domain"
	"github.com/mizanlegal/mizan/internal/ports"
)

// Invoker is the provider client adapter for one configured model. It
// converts every outcome of a call (text, transport error, HTTP failure,
// timeout, even a panicking SDK) into a domain.ModelResponse, so sibling
// calls in a fan-out can never be cancelled by one model's failure.
// Single attempt per call; retries are deliberately absent.
type Invoker struct {
	client  ports.LLMClient
	costs   ports.CostModel
	timeout time.Duration
}

// NewInvoker wraps a client with cost estimation and a per-call timeout.
func NewInvoker(client ports.LLMClient, costs ports.CostModel, timeout time.Duration) (*Invoker, error) {
	if client == nil {
		return nil, fmt.Errorf("%w: client cannot be nil", domain.ErrInvalidConfiguration)
	}
	if costs == nil {
		return nil, fmt.Errorf("%w: cost model cannot be nil", domain.ErrInvalidConfiguration)
	}
	if timeout <= 0 {
		return nil, fmt.Errorf("%w: per-call timeout must be positive", domain.ErrInvalidConfiguration)
	}
	return &Invoker{client: client, costs: costs, timeout: timeout}, nil
}

// ModelName returns the identifier of the wrapped model.
func (inv *Invoker) ModelName() string { return inv.client.GetModel() }

// Invoke performs one bounded provider call. It never returns an error:
// failures come back as Succeeded=false with a descriptive message,
// empty text, and zero cost.
func (inv *Invoker) Invoke(ctx context.Context, prompt string, options map[string]any) (resp domain.ModelResponse) {
	start := time.Now()
	resp = domain.ModelResponse{ModelName: inv.ModelName()}

	defer func() {
		resp.Latency = time.Since(start)
		if r := recover(); r != nil {
			resp = domain.ModelResponse{
				ModelName:    inv.ModelName(),
				Latency:      time.Since(start),
				ErrorMessage: fmt.Sprintf("provider panicked: %v", r),
			}
		}
	}()

	if prompt == "" {
		resp.ErrorMessage = "prompt cannot be empty"
		return resp
	}

	ctx, cancel := context.WithTimeout(ctx, inv.timeout)
	defer cancel()

	text, tokensIn, tokensOut, err := inv.client.CompleteWithUsage(ctx, prompt, options)
	if err != nil {
		resp.ErrorMessage = err.Error()
		return resp
	}
	if text == "" {
		resp.ErrorMessage = "provider returned empty text"
		return resp
	}

	resp.Text = text
	resp.CostEstimate = inv.costs.EstimateCost(inv.ModelName(), tokensIn, tokensOut)
	resp.Succeeded = true
	return resp
}
