package ensemble

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mizanlegal/mizan/internal/arabic"
	"github.com/mizanlegal/mizan/internal/domain"
	"github.com/mizanlegal/mizan/internal/ports"
)

// Defaults applied by DefaultConfig.
const (
	DefaultPerCallTimeout    = 60 * time.Second
	DefaultMaxOutputTokens   = 2048
	DefaultTemperature       = 0.3
	DefaultMaxConcurrency    = 8
	DefaultSynthesisFlatCost = 0.002
	DefaultRetrievalTopK     = 4

	// minClassifierConfidence gates whether the topic label makes it
	// into the generation prompt.
	minClassifierConfidence = 0.5
)

var configValidator = validator.New()

// Config is the construction-time configuration surface of the pipeline.
// Nothing here varies per request; fan-out width and timeouts stay
// bounded and predictable.
type Config struct {
	// PerCallTimeout bounds each individual provider call.
	PerCallTimeout time.Duration `validate:"required,min=1s,max=600s"`

	// MaxOutputTokens caps the length of every generated reply.
	MaxOutputTokens int `validate:"required,min=50,max=16000"`

	// Temperature is shared by generator and synthesis calls. Judges
	// always run at 0 for consistent extraction.
	Temperature float64 `validate:"min=0,max=2"`

	// MaxConcurrency bounds in-flight calls within one stage.
	MaxConcurrency int `validate:"min=1,max=32"`

	// SynthesisFlatCost is charged when the degraded path skips the
	// synthesis call, keeping cost totals additive.
	SynthesisFlatCost float64 `validate:"min=0"`

	// RetrievalTopK is how many retrieved chunks to embed in the
	// generation prompt when a retriever is configured.
	RetrievalTopK int `validate:"min=1,max=20"`
}

// DefaultConfig returns the configuration used when a field is unset.
func DefaultConfig() Config {
	return Config{
		PerCallTimeout:    DefaultPerCallTimeout,
		MaxOutputTokens:   DefaultMaxOutputTokens,
		Temperature:       DefaultTemperature,
		MaxConcurrency:    DefaultMaxConcurrency,
		SynthesisFlatCost: DefaultSynthesisFlatCost,
		RetrievalTopK:     DefaultRetrievalTopK,
	}
}

// Pipeline orchestrates the four ensemble stages for one question at a
// time. Runs are fully independent: no state is shared or retained
// across calls, so a single Pipeline is safe for concurrent use.
type Pipeline struct {
	generators  *GeneratorPool
	judges      *JudgePanel
	synthesizer *Synthesizer
	config      Config

	retriever  ports.Retriever
	classifier ports.Classifier
	metrics    ports.MetricsCollector
	tracer     trace.Tracer
}

// Option customizes optional pipeline collaborators.
type Option func(*Pipeline)

// WithRetriever embeds top-ranked chunks from the retriever in the
// generation prompt. Retrieval failure is non-fatal.
func WithRetriever(r ports.Retriever) Option {
	return func(p *Pipeline) { p.retriever = r }
}

// WithClassifier labels the question's legal topic to pick the prompt
// framing. Classification failure or low confidence is non-fatal.
func WithClassifier(c ports.Classifier) Option {
	return func(p *Pipeline) { p.classifier = c }
}

// WithMetrics records stage latencies, call outcomes, and consensus
// quality.
func WithMetrics(m ports.MetricsCollector) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// New wires the pipeline from explicitly injected clients: one per
// generator model, one per judge model, and one synthesis model. There
// are no package-level singletons; tests substitute fakes through the
// same constructor.
func New(
	generators []ports.LLMClient,
	judges []ports.LLMClient,
	synthesizer ports.LLMClient,
	costs ports.CostModel,
	config Config,
	opts ...Option,
) (*Pipeline, error) {
	if err := configValidator.Struct(config); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidConfiguration, err)
	}
	if len(generators) == 0 {
		return nil, fmt.Errorf("%w: at least one generator model is required", domain.ErrInvalidConfiguration)
	}
	if synthesizer == nil {
		return nil, fmt.Errorf("%w: a synthesis model is required", domain.ErrInvalidConfiguration)
	}

	genInvokers, err := wrapAll(generators, costs, config.PerCallTimeout)
	if err != nil {
		return nil, err
	}
	judgeInvokers, err := wrapAll(judges, costs, config.PerCallTimeout)
	if err != nil {
		return nil, err
	}
	synthInvoker, err := NewInvoker(synthesizer, costs, config.PerCallTimeout)
	if err != nil {
		return nil, err
	}

	pool, err := NewGeneratorPool(genInvokers, config.MaxConcurrency)
	if err != nil {
		return nil, err
	}
	synth, err := NewSynthesizer(synthInvoker, config.SynthesisFlatCost)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		generators:  pool,
		judges:      NewJudgePanel(judgeInvokers, config.MaxConcurrency),
		synthesizer: synth,
		config:      config,
		tracer:      otel.Tracer("mizan/ensemble"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func wrapAll(clients []ports.LLMClient, costs ports.CostModel, timeout time.Duration) ([]*Invoker, error) {
	invokers := make([]*Invoker, 0, len(clients))
	for _, c := range clients {
		inv, err := NewInvoker(c, costs, timeout)
		if err != nil {
			return nil, err
		}
		invokers = append(invokers, inv)
	}
	return invokers, nil
}

// Process runs the full pipeline for one question. It returns
// domain.ErrNoGenerators only when every generator fails; every other
// partial failure degrades and is reflected in the result counters
// instead of an error.
func (p *Pipeline) Process(ctx context.Context, question string) (*domain.PipelineResult, error) {
	start := time.Now()

	ctx, span := p.tracer.Start(ctx, "ensemble.process")
	defer span.End()

	question = arabic.Normalize(question)
	if strings.TrimSpace(question) == "" {
		span.SetStatus(codes.Error, domain.ErrEmptyQuestion.Error())
		return nil, domain.ErrEmptyQuestion
	}

	stage := domain.StageStart
	var totalCost float64

	// GENERATING: the shared prompt races across every generator.
	stage = domain.StageGenerating
	topic := p.classifyTopic(question)
	prompt, err := buildGenerationPrompt(question, topic, p.retrieve(ctx, question))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	genStart := time.Now()
	generated := p.generators.Generate(ctx, prompt, map[string]any{
		"temperature": p.config.Temperature,
		"max_tokens":  p.config.MaxOutputTokens,
	})
	p.recordStage(domain.StageGenerating, time.Since(genStart))

	succeeded := Successful(generated)
	for _, r := range generated {
		totalCost += r.CostEstimate
	}

	if len(succeeded) == 0 {
		stage = domain.StageFailed
		span.SetAttributes(attribute.String("ensemble.stage", stage.String()))
		span.SetStatus(codes.Error, domain.ErrNoGenerators.Error())
		p.recordFailure()
		return nil, fmt.Errorf("%w: %d generators failed", domain.ErrNoGenerators, len(generated))
	}

	// JUDGING: judges settle independently; the pipeline proceeds even
	// with zero successes.
	stage = domain.StageJudging
	judgeStart := time.Now()
	evaluations, err := p.judges.Evaluate(ctx, question, succeeded, map[string]any{
		"temperature": 0.0,
		"max_tokens":  p.config.MaxOutputTokens,
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	p.recordStage(domain.StageJudging, time.Since(judgeStart))

	judgesSucceeded := 0
	for _, eval := range evaluations {
		totalCost += eval.CostEstimate
		if eval.Succeeded {
			judgesSucceeded++
		}
	}

	// AGGREGATING is pure computation; it cannot fail.
	stage = domain.StageAggregating
	consensus := BuildConsensus(evaluations)

	// SYNTHESIZING falls back to the degraded concatenation rather than
	// failing, so an answer always comes back from here on.
	stage = domain.StageSynthesizing
	synthStart := time.Now()
	outcome := p.synthesizer.Synthesize(ctx, question, consensus, generated, map[string]any{
		"temperature": p.config.Temperature,
		"max_tokens":  p.config.MaxOutputTokens,
	})
	p.recordStage(domain.StageSynthesizing, time.Since(synthStart))
	totalCost += outcome.Cost

	stage = domain.StageDone
	result := &domain.PipelineResult{
		FinalAnswer:         outcome.Answer,
		TotalProcessingMs:   time.Since(start).Milliseconds(),
		TotalCostEstimate:   totalCost,
		GeneratorsInvoked:   p.generators.Size(),
		GeneratorsSucceeded: len(succeeded),
		JudgesInvoked:       p.judges.Size(),
		JudgesSucceeded:     judgesSucceeded,
		ConsensusScore:      math.Round(consensus.AverageScore*100) / 100,
		TopicLabel:          topic,
		Degraded:            outcome.Degraded,
	}

	span.SetAttributes(
		attribute.String("ensemble.stage", stage.String()),
		attribute.Int("ensemble.generators_succeeded", result.GeneratorsSucceeded),
		attribute.Int("ensemble.judges_succeeded", result.JudgesSucceeded),
		attribute.Float64("ensemble.consensus_score", result.ConsensusScore),
		attribute.Bool("ensemble.degraded", result.Degraded),
	)
	p.recordResult(result, consensus)

	return result, nil
}

// classifyTopic returns the classifier's label when it is confident
// enough, otherwise empty so the general framing is used.
func (p *Pipeline) classifyTopic(question string) string {
	if p.classifier == nil {
		return ""
	}
	label, confidence := p.classifier.Classify(question)
	if confidence < minClassifierConfidence {
		return ""
	}
	return label
}

// retrieve fetches prompt context when a retriever is configured.
// Retrieval failure only costs the prompt its context.
func (p *Pipeline) retrieve(ctx context.Context, question string) []ports.Chunk {
	if p.retriever == nil {
		return nil
	}
	chunks, err := p.retriever.Search(ctx, question, p.config.RetrievalTopK)
	if err != nil {
		if p.metrics != nil {
			p.metrics.RecordCounter("retrieval_failures_total", 1, nil)
		}
		return nil
	}
	return chunks
}

func (p *Pipeline) recordStage(stage domain.Stage, elapsed time.Duration) {
	if p.metrics == nil {
		return
	}
	p.metrics.RecordLatency("stage_"+stage.String(), elapsed, nil)
}

func (p *Pipeline) recordFailure() {
	if p.metrics == nil {
		return
	}
	p.metrics.RecordCounter("pipeline_failures_total", 1, map[string]string{"status": "no_generators"})
}

func (p *Pipeline) recordResult(result *domain.PipelineResult, consensus domain.ConsensusResult) {
	if p.metrics == nil {
		return
	}
	p.metrics.RecordCounter("pipeline_runs_total", 1, map[string]string{"status": "done"})
	p.metrics.RecordGauge("consensus_score", result.ConsensusScore, nil)
	p.metrics.RecordGauge("excerpt_overlap_ratio", consensus.OverlapRatio, nil)
	p.metrics.RecordGauge("total_cost_estimate_usd", result.TotalCostEstimate, nil)
}
