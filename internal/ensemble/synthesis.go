package ensemble

import (
	"context"
	"fmt"
	"strings"

	"github.com/mizanlegal/mizan/internal/domain"
)

// degradedDisclaimer is prepended to the fallback answer so the caller
// knows the content bypassed judge review.
const degradedDisclaimer = "تنبيه: لم تخضع الإجابات التالية للمراجعة والتقييم، وهي مجمّعة كما وردت من النماذج المولِّدة."

// SynthesisOutcome carries the final answer with its accounting.
type SynthesisOutcome struct {
	Answer   string
	Cost     float64
	Degraded bool
}

// Synthesizer produces the final answer from the pooled excerpts with one
// rewrite call. When no judge evaluation survived, it falls back to the
// raw generator output without any LLM call.
type Synthesizer struct {
	invoker *Invoker
	// flatCost is charged when the degraded path skips the rewrite call,
	// keeping total cost accounting additive in both modes.
	flatCost float64
}

// NewSynthesizer builds a synthesizer around the final-rewrite model.
func NewSynthesizer(invoker *Invoker, flatCost float64) (*Synthesizer, error) {
	if invoker == nil {
		return nil, fmt.Errorf("%w: synthesizer invoker cannot be nil", domain.ErrInvalidConfiguration)
	}
	if flatCost < 0 {
		return nil, fmt.Errorf("%w: synthesis flat cost cannot be negative", domain.ErrInvalidConfiguration)
	}
	return &Synthesizer{invoker: invoker, flatCost: flatCost}, nil
}

// Synthesize never fails: if the pooled excerpts are empty, or the
// rewrite call itself errors, it falls back to the degraded concatenation
// of raw generator text. The pipeline has already guaranteed at least one
// successful generator by this point, so the answer is never empty.
func (s *Synthesizer) Synthesize(ctx context.Context, question string, consensus domain.ConsensusResult, generated []domain.ModelResponse, options map[string]any) SynthesisOutcome {
	if strings.TrimSpace(consensus.CombinedExcerpts) == "" {
		return s.degraded(generated)
	}

	prompt, err := buildSynthesisPrompt(question, consensus.CombinedExcerpts)
	if err != nil {
		return s.degraded(generated)
	}

	resp := s.invoker.Invoke(ctx, prompt, options)
	if !resp.Succeeded {
		return s.degraded(generated)
	}

	return SynthesisOutcome{Answer: resp.Text, Cost: resp.CostEstimate}
}

// degraded concatenates the raw successful generator answers under a
// disclaimer, so the user still receives an answer when every judge
// failed rather than a hard error.
func (s *Synthesizer) degraded(generated []domain.ModelResponse) SynthesisOutcome {
	var sb strings.Builder
	sb.WriteString(degradedDisclaimer)
	for i, resp := range Successful(generated) {
		fmt.Fprintf(&sb, "\n\nالإجابة %d:\n%s", i+1, strings.TrimSpace(resp.Text))
	}
	return SynthesisOutcome{Answer: sb.String(), Cost: s.flatCost, Degraded: true}
}
