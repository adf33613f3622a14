// Package domain defines the core types produced by the multi-model
// ensemble pipeline. Every type here lives for the duration of a single
// query and is immutable once created; nothing is persisted.
package domain

import "time"

// Stage identifies where the pipeline orchestrator currently is.
// Transitions run strictly forward; StageFailed is reachable only from
// StageGenerating (total generator failure).
type Stage int

const (
	StageStart Stage = iota
	StageGenerating
	StageJudging
	StageAggregating
	StageSynthesizing
	StageDone
	StageFailed
)

// String returns a human-readable stage name for logging and metrics labels.
func (s Stage) String() string {
	switch s {
	case StageStart:
		return "start"
	case StageGenerating:
		return "generating"
	case StageJudging:
		return "judging"
	case StageAggregating:
		return "aggregating"
	case StageSynthesizing:
		return "synthesizing"
	case StageDone:
		return "done"
	case StageFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ModelResponse is the result of a single generator call.
// On failure, Text is empty, CostEstimate is zero, and ErrorMessage holds
// the reason; a failed call never surfaces as a Go error past the adapter.
type ModelResponse struct {
	// ModelName identifies the generator, e.g. "gpt-4o" or "deepseek-chat".
	ModelName string `json:"model_name"`

	// Text is the raw generated output. Empty when the call failed.
	Text string `json:"text"`

	// CostEstimate is the estimated USD cost of the call, computed from
	// token counts by the configured cost model. Zero on failure.
	CostEstimate float64 `json:"cost_estimate"`

	// Latency is the wall-clock duration of the call, including failures.
	Latency time.Duration `json:"latency"`

	// Succeeded reports whether the call produced usable text.
	Succeeded bool `json:"succeeded"`

	// ErrorMessage describes the failure. Empty iff Succeeded.
	ErrorMessage string `json:"error_message,omitempty"`
}

// BestElements is one judge's structured extraction over the full set of
// successful generator outputs.
type BestElements struct {
	// Excerpts holds one extracted excerpt per successful generator, in the
	// same positional order the generators were shown to the judge. An
	// entry may be empty if the judge found nothing worth keeping.
	Excerpts []string `json:"excerpts"`

	// OverallScore is the judge's 0-10 quality rating of the full input set.
	OverallScore float64 `json:"overall_score"`
}

// JudgeEvaluation wraps a BestElements with per-call metadata.
// Elements is only meaningful when Succeeded is true; a judge whose reply
// could not be parsed is recorded as failed, never partially recovered.
type JudgeEvaluation struct {
	JudgeName    string        `json:"judge_name"`
	Elements     BestElements  `json:"elements"`
	Processing   time.Duration `json:"processing"`
	CostEstimate float64       `json:"cost_estimate"`
	Succeeded    bool          `json:"succeeded"`
	ErrorMessage string        `json:"error_message,omitempty"`
}

// ConsensusResult is the pooled union of judge-selected excerpts.
// Pooling is concatenation, not voting; overlapping excerpts pass through
// untouched and the synthesis stage merges near-duplicates during rewriting.
type ConsensusResult struct {
	// CombinedExcerpts concatenates every non-empty excerpt from every
	// successful judge, each labelled with its source position, separated
	// by blank lines. Empty when no judge succeeded.
	CombinedExcerpts string `json:"combined_excerpts"`

	// AverageScore is the mean of OverallScore across successful judges,
	// 0.0 when none succeeded.
	AverageScore float64 `json:"average_score"`

	// OverlapRatio measures pairwise textual similarity of the pooled
	// excerpts (0 distinct .. 1 identical). Observability only; the pooled
	// text is never deduplicated.
	OverlapRatio float64 `json:"overlap_ratio"`
}

// PipelineResult is the externally visible outcome of one Process call.
type PipelineResult struct {
	// FinalAnswer is the synthesized answer text. Non-empty whenever at
	// least one generator succeeded; the degraded path guarantees this.
	FinalAnswer string `json:"final_answer"`

	// TotalProcessingMs is the wall-clock duration of the full pipeline run.
	TotalProcessingMs int64 `json:"total_processing_ms"`

	// TotalCostEstimate sums every generator cost, every judge cost, and
	// the synthesis-stage cost.
	TotalCostEstimate float64 `json:"total_cost_estimate"`

	GeneratorsInvoked   int `json:"generators_invoked"`
	GeneratorsSucceeded int `json:"generators_succeeded"`
	JudgesInvoked       int `json:"judges_invoked"`
	JudgesSucceeded     int `json:"judges_succeeded"`

	// ConsensusScore is the averaged judge quality score, rounded to two
	// decimal places. Zero when no judge succeeded.
	ConsensusScore float64 `json:"consensus_score"`

	// TopicLabel is the classifier's legal-topic label for the question,
	// empty when no classifier is configured.
	TopicLabel string `json:"topic_label,omitempty"`

	// Degraded reports that synthesis fell back to concatenating raw
	// generator output because no judge evaluation survived parsing.
	Degraded bool `json:"degraded"`
}
