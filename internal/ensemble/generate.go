package ensemble

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/mizanlegal/mizan/internal/domain"
)

// GeneratorPool fans one prompt out to every configured generator model
// concurrently. The generator list is fixed at construction, never
// user-supplied, which keeps the fan-out bounded.
type GeneratorPool struct {
	invokers       []*Invoker
	maxConcurrency int
}

// NewGeneratorPool builds a pool over the invokers in configuration
// order. maxConcurrency <= 0 means one in-flight call per generator.
func NewGeneratorPool(invokers []*Invoker, maxConcurrency int) (*GeneratorPool, error) {
	if len(invokers) == 0 {
		return nil, domain.ErrInvalidConfiguration
	}
	if maxConcurrency <= 0 || maxConcurrency > len(invokers) {
		maxConcurrency = len(invokers)
	}
	return &GeneratorPool{invokers: invokers, maxConcurrency: maxConcurrency}, nil
}

// Size returns the number of configured generators.
func (gp *GeneratorPool) Size() int { return len(gp.invokers) }

// Generate dispatches the shared prompt to every generator and waits for
// all of them to settle. The returned slice always has exactly one entry
// per configured generator, in configuration order regardless of
// completion order. Individual failures are recorded in place; they never
// cancel sibling calls or abort the stage.
func (gp *GeneratorPool) Generate(ctx context.Context, prompt string, options map[string]any) []domain.ModelResponse {
	responses := make([]domain.ModelResponse, len(gp.invokers))

	// Results are collected positionally, so no goroutine ever touches
	// another's slot and the join needs no lock. Invoke never returns an
	// error, so the group only bounds concurrency.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(gp.maxConcurrency)

	for i, inv := range gp.invokers {
		g.Go(func() error {
			responses[i] = inv.Invoke(gctx, prompt, options)
			return nil
		})
	}
	_ = g.Wait()

	return responses
}

// Successful filters a generation result down to the responses that
// produced text, preserving order.
func Successful(responses []domain.ModelResponse) []domain.ModelResponse {
	ok := make([]domain.ModelResponse, 0, len(responses))
	for _, r := range responses {
		if r.Succeeded {
			ok = append(ok, r)
		}
	}
	return ok
}
