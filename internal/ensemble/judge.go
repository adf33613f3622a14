package ensemble

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"

	"github.com/mizanlegal/mizan/internal/domain"
)

// judgeReply is the fixed structured shape every judge must return.
// OverallScore is a pointer so a missing field is distinguishable from a
// legitimate zero; both required fields failing validation fail the whole
// evaluation rather than being defaulted away.
type judgeReply struct {
	Excerpts     []string `json:"excerpts" validate:"required"`
	OverallScore *float64 `json:"overall_score" validate:"required,min=0,max=10"`
}

// JudgePanel dispatches the compare-and-extract prompt to every
// configured judge model concurrently and parses each reply strictly.
type JudgePanel struct {
	invokers       []*Invoker
	validate       *validator.Validate
	maxConcurrency int
}

// NewJudgePanel builds a panel over the invokers in configuration order.
// An empty panel is valid: the pipeline then runs the degraded synthesis
// path on every request.
func NewJudgePanel(invokers []*Invoker, maxConcurrency int) *JudgePanel {
	if maxConcurrency <= 0 || maxConcurrency > len(invokers) {
		maxConcurrency = max(len(invokers), 1)
	}
	return &JudgePanel{
		invokers:       invokers,
		validate:       validator.New(),
		maxConcurrency: maxConcurrency,
	}
}

// Size returns the number of configured judges.
func (jp *JudgePanel) Size() int { return len(jp.invokers) }

// Evaluate shows the successful generator outputs to every judge and
// waits for all of them to settle. The returned slice has one entry per
// configured judge, in configuration order. A judge whose call fails or
// whose reply cannot be parsed is recorded as failed; it never aborts the
// stage or its siblings.
func (jp *JudgePanel) Evaluate(ctx context.Context, question string, generated []domain.ModelResponse, options map[string]any) ([]domain.JudgeEvaluation, error) {
	prompt, err := buildJudgePrompt(question, generated)
	if err != nil {
		return nil, err
	}

	evaluations := make([]domain.JudgeEvaluation, len(jp.invokers))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jp.maxConcurrency)

	for i, inv := range jp.invokers {
		g.Go(func() error {
			evaluations[i] = jp.evaluateOne(gctx, inv, prompt, len(generated), options)
			return nil
		})
	}
	_ = g.Wait()

	return evaluations, nil
}

func (jp *JudgePanel) evaluateOne(ctx context.Context, inv *Invoker, prompt string, wantExcerpts int, options map[string]any) domain.JudgeEvaluation {
	start := time.Now()
	eval := domain.JudgeEvaluation{JudgeName: inv.ModelName()}

	resp := inv.Invoke(ctx, prompt, options)
	eval.Processing = time.Since(start)
	eval.CostEstimate = resp.CostEstimate

	if !resp.Succeeded {
		eval.ErrorMessage = resp.ErrorMessage
		return eval
	}

	elements, err := jp.parseReply(inv.ModelName(), resp.Text, wantExcerpts)
	if err != nil {
		// The judge's call cost is real even when its reply is garbage,
		// so the cost estimate stays on the failed evaluation.
		eval.ErrorMessage = err.Error()
		return eval
	}

	eval.Elements = elements
	eval.Succeeded = true
	return eval
}

// parseReply decodes a judge's raw reply into BestElements. Any missing
// field, malformed syntax, out-of-range score, or excerpt-count mismatch
// fails the whole reply; partial recovery would mask judge malfunction
// and corrupt the consensus score.
func (jp *JudgePanel) parseReply(judgeName, raw string, wantExcerpts int) (domain.BestElements, error) {
	jsonStr := extractJSON(raw)
	if jsonStr == "" {
		return domain.BestElements{}, domain.NewParseError(judgeName,
			fmt.Sprintf("no JSON object found in reply (%d chars)", len(raw)), nil)
	}

	var reply judgeReply
	if err := json.Unmarshal([]byte(jsonStr), &reply); err != nil {
		return domain.BestElements{}, domain.NewParseError(judgeName, "malformed JSON", err)
	}

	if err := jp.validate.Struct(reply); err != nil {
		return domain.BestElements{}, domain.NewParseError(judgeName, "missing or invalid fields", err)
	}

	if len(reply.Excerpts) != wantExcerpts {
		return domain.BestElements{}, domain.NewParseError(judgeName,
			fmt.Sprintf("expected %d excerpts, got %d", wantExcerpts, len(reply.Excerpts)), nil)
	}

	return domain.BestElements{
		Excerpts:     reply.Excerpts,
		OverallScore: *reply.OverallScore,
	}, nil
}

// extractJSON pulls a JSON object out of a reply that may wrap it in
// markdown fences or surrounding prose. Models rarely honor "JSON only"
// perfectly, so the extractor tolerates fenced blocks and leading text
// while the decode itself stays strict.
func extractJSON(response string) string {
	response = strings.TrimSpace(response)

	if idx := strings.Index(response, "```json"); idx != -1 {
		rest := response[idx+len("```json"):]
		if end := strings.Index(rest, "```"); end != -1 {
			return strings.TrimSpace(rest[:end])
		}
	}

	if idx := strings.Index(response, "```"); idx != -1 {
		rest := response[idx+3:]
		if nl := strings.Index(rest, "\n"); nl != -1 {
			rest = rest[nl+1:]
		}
		if end := strings.Index(rest, "```"); end != -1 {
			if candidate := strings.TrimSpace(rest[:end]); strings.HasPrefix(candidate, "{") {
				return candidate
			}
		}
	}

	start := strings.Index(response, "{")
	if start == -1 {
		return ""
	}

	// Walk to the matching closing brace, skipping braces inside strings.
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(response); i++ {
		c := response[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			escaped = true
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return response[start : i+1]
				}
			}
		}
	}
	return ""
}
