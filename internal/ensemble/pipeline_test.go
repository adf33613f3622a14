package ensemble

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mizanlegal/mizan/internal/classify"
	"github.com/mizanlegal/mizan/internal/domain"
	"github.com/mizanlegal/mizan/internal/ports"
	"github.com/mizanlegal/mizan/internal/testutils"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.PerCallTimeout = 2 * time.Second
	return cfg
}

func judgeJSON(score float64, excerpts ...string) string {
	quoted := ""
	for i, e := range excerpts {
		if i > 0 {
			quoted += ", "
		}
		quoted += fmt.Sprintf("%q", e)
	}
	return fmt.Sprintf(`{"excerpts": [%s], "overall_score": %g}`, quoted, score)
}

func asClients(scripted ...*testutils.ScriptedClient) []ports.LLMClient {
	clients := make([]ports.LLMClient, len(scripted))
	for i, s := range scripted {
		clients[i] = s
	}
	return clients
}

func TestPipeline_HappyPath(t *testing.T) {
	gen1 := testutils.NewScriptedClient("gen-1", testutils.ScriptedCall{Text: "إجابة أولى", TokensIn: 100, TokensOut: 50})
	gen2 := testutils.NewScriptedClient("gen-2", testutils.ScriptedCall{Text: "إجابة ثانية", TokensIn: 100, TokensOut: 50})
	gen3 := testutils.NewScriptedClient("gen-3", testutils.ScriptedCall{Text: "إجابة ثالثة", TokensIn: 100, TokensOut: 50})
	judge1 := testutils.NewScriptedClient("judge-1", testutils.ScriptedCall{Text: judgeJSON(8, "م١", "م٢", "م٣"), TokensIn: 200, TokensOut: 40})
	judge2 := testutils.NewScriptedClient("judge-2", testutils.ScriptedCall{Text: judgeJSON(6, "م٤", "م٥", "م٦"), TokensIn: 200, TokensOut: 40})
	synth := testutils.NewScriptedClient("synth", testutils.ScriptedCall{Text: "الإجابة النهائية", TokensIn: 300, TokensOut: 150})

	p, err := New(asClients(gen1, gen2, gen3), asClients(judge1, judge2), synth, testCosts, testConfig())
	require.NoError(t, err)

	result, err := p.Process(context.Background(), "ما حكم الفصل التعسفي؟")
	require.NoError(t, err)

	assert.Equal(t, "الإجابة النهائية", result.FinalAnswer)
	assert.False(t, result.Degraded)
	assert.Equal(t, 3, result.GeneratorsInvoked)
	assert.Equal(t, 3, result.GeneratorsSucceeded)
	assert.Equal(t, 2, result.JudgesInvoked)
	assert.Equal(t, 2, result.JudgesSucceeded)
	assert.InDelta(t, 7.0, result.ConsensusScore, 1e-9)
	assert.GreaterOrEqual(t, result.TotalProcessingMs, int64(0))

	// Every generator, judge, and synthesis call contributes to the
	// total; nothing is double-counted.
	perGen := 100*0.001 + 50*0.002
	perJudge := 200*0.001 + 40*0.002
	synthCost := 300*0.001 + 150*0.002
	assert.InDelta(t, 3*perGen+2*perJudge+synthCost, result.TotalCostEstimate, 1e-9)
}

func TestPipeline_AllGeneratorsFail(t *testing.T) {
	gen1 := testutils.NewScriptedClient("gen-1", testutils.ScriptedCall{Err: errors.New("503")})
	gen2 := testutils.NewScriptedClient("gen-2", testutils.ScriptedCall{Err: errors.New("timeout")})
	judge := testutils.NewScriptedClient("judge-1", testutils.ScriptedCall{Text: judgeJSON(8, "x")})
	synth := testutils.NewScriptedClient("synth", testutils.ScriptedCall{Text: "unused"})

	p, err := New(asClients(gen1, gen2), asClients(judge), synth, testCosts, testConfig())
	require.NoError(t, err)

	result, err := p.Process(context.Background(), "سؤال")
	require.ErrorIs(t, err, domain.ErrNoGenerators)
	assert.Nil(t, result)

	// The run aborts before the judging stage; no judge or synthesis
	// call is ever made.
	assert.Equal(t, 0, judge.Calls())
	assert.Equal(t, 0, synth.Calls())
}

func TestPipeline_PartialGeneratorFailure(t *testing.T) {
	gen1 := testutils.NewScriptedClient("gen-1", testutils.ScriptedCall{Text: "إجابة أولى", TokensIn: 10, TokensOut: 10})
	gen2 := testutils.NewScriptedClient("gen-2", testutils.ScriptedCall{Err: errors.New("down")})
	gen3 := testutils.NewScriptedClient("gen-3", testutils.ScriptedCall{Text: "إجابة ثالثة", TokensIn: 10, TokensOut: 10})
	// Judges see only the two survivors, so replies carry two excerpts.
	judge := testutils.NewScriptedClient("judge-1", testutils.ScriptedCall{Text: judgeJSON(7, "أ", "ب")})
	synth := testutils.NewScriptedClient("synth", testutils.ScriptedCall{Text: "النهائية", TokensIn: 10, TokensOut: 10})

	p, err := New(asClients(gen1, gen2, gen3), asClients(judge), synth, testCosts, testConfig())
	require.NoError(t, err)

	result, err := p.Process(context.Background(), "سؤال")
	require.NoError(t, err)

	assert.Equal(t, 3, result.GeneratorsInvoked)
	assert.Equal(t, 2, result.GeneratorsSucceeded)
	assert.False(t, result.Degraded)

	prompt := judge.LastPrompt()
	assert.Contains(t, prompt, "=== MODEL 2 ===")
	assert.NotContains(t, prompt, "=== MODEL 3 ===")
}

func TestPipeline_AllJudgesFail_Degrades(t *testing.T) {
	gen := testutils.NewScriptedClient("gen-1", testutils.ScriptedCall{Text: "الإجابة الخام", TokensIn: 100, TokensOut: 50})
	judge1 := testutils.NewScriptedClient("judge-1", testutils.ScriptedCall{Text: "not json at all", TokensIn: 50, TokensOut: 10})
	judge2 := testutils.NewScriptedClient("judge-2", testutils.ScriptedCall{Err: errors.New("429 rate limited")})
	synth := testutils.NewScriptedClient("synth", testutils.ScriptedCall{Text: "unused"})

	cfg := testConfig()
	cfg.SynthesisFlatCost = 0.005
	p, err := New(asClients(gen), asClients(judge1, judge2), synth, testCosts, cfg)
	require.NoError(t, err)

	result, err := p.Process(context.Background(), "سؤال")
	require.NoError(t, err)

	assert.True(t, result.Degraded)
	assert.Zero(t, result.JudgesSucceeded)
	assert.Zero(t, result.ConsensusScore)
	assert.Contains(t, result.FinalAnswer, "الإجابة الخام")
	// No synthesis call on the degraded path.
	assert.Equal(t, 0, synth.Calls())

	// Cost: generator + the parse-failed judge's real call + flat cost.
	genCost := 100*0.001 + 50*0.002
	judgeCost := 50*0.001 + 10*0.002
	assert.InDelta(t, genCost+judgeCost+0.005, result.TotalCostEstimate, 1e-9)
}

func TestPipeline_NoJudgesConfigured_Degrades(t *testing.T) {
	gen := testutils.NewScriptedClient("gen-1", testutils.ScriptedCall{Text: "الإجابة", TokensIn: 10, TokensOut: 10})
	synth := testutils.NewScriptedClient("synth", testutils.ScriptedCall{Text: "unused"})

	p, err := New(asClients(gen), nil, synth, testCosts, testConfig())
	require.NoError(t, err)

	result, err := p.Process(context.Background(), "سؤال")
	require.NoError(t, err)

	assert.True(t, result.Degraded)
	assert.Zero(t, result.JudgesInvoked)
	assert.Contains(t, result.FinalAnswer, "الإجابة")
}

func TestPipeline_EmptyQuestion(t *testing.T) {
	gen := testutils.NewScriptedClient("gen-1", testutils.ScriptedCall{Text: "x"})
	synth := testutils.NewScriptedClient("synth", testutils.ScriptedCall{Text: "x"})

	p, err := New(asClients(gen), nil, synth, testCosts, testConfig())
	require.NoError(t, err)

	for _, q := range []string{"", "   ", "\n\t"} {
		_, err := p.Process(context.Background(), q)
		assert.ErrorIs(t, err, domain.ErrEmptyQuestion)
	}
	assert.Equal(t, 0, gen.Calls())
}

func TestNew_Validation(t *testing.T) {
	gen := testutils.NewScriptedClient("gen", testutils.ScriptedCall{Text: "x"})
	synth := testutils.NewScriptedClient("synth", testutils.ScriptedCall{Text: "x"})

	tests := []struct {
		name  string
		build func() (*Pipeline, error)
	}{
		{
			name: "no generators",
			build: func() (*Pipeline, error) {
				return New(nil, nil, synth, testCosts, testConfig())
			},
		},
		{
			name: "nil synthesizer",
			build: func() (*Pipeline, error) {
				return New(asClients(gen), nil, nil, testCosts, testConfig())
			},
		},
		{
			name: "timeout out of range",
			build: func() (*Pipeline, error) {
				cfg := testConfig()
				cfg.PerCallTimeout = time.Millisecond
				return New(asClients(gen), nil, synth, testCosts, cfg)
			},
		},
		{
			name: "output tokens too small",
			build: func() (*Pipeline, error) {
				cfg := testConfig()
				cfg.MaxOutputTokens = 10
				return New(asClients(gen), nil, synth, testCosts, cfg)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.build()
			assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
		})
	}
}

func TestPipeline_ClassifierSetsTopic(t *testing.T) {
	gen := testutils.NewScriptedClient("gen-1", testutils.ScriptedCall{Text: "إجابة", TokensIn: 10, TokensOut: 10})
	judge := testutils.NewScriptedClient("judge-1", testutils.ScriptedCall{Text: judgeJSON(8, "م")})
	synth := testutils.NewScriptedClient("synth", testutils.ScriptedCall{Text: "النهائية", TokensIn: 10, TokensOut: 10})

	p, err := New(asClients(gen), asClients(judge), synth, testCosts, testConfig(),
		WithClassifier(classify.New()))
	require.NoError(t, err)

	result, err := p.Process(context.Background(), "ما شروط حضانة الأطفال بعد الطلاق؟")
	require.NoError(t, err)

	assert.Equal(t, classify.TopicFamily, result.TopicLabel)
	assert.Contains(t, gen.LastPrompt(), classify.TopicFamily)
}

type stubRetriever struct {
	chunks []ports.Chunk
	err    error
}

func (s stubRetriever) Search(ctx context.Context, query string, topK int) ([]ports.Chunk, error) {
	return s.chunks, s.err
}

func TestPipeline_RetrieverContextInPrompt(t *testing.T) {
	gen := testutils.NewScriptedClient("gen-1", testutils.ScriptedCall{Text: "إجابة", TokensIn: 10, TokensOut: 10})
	synth := testutils.NewScriptedClient("synth", testutils.ScriptedCall{Text: "unused"})

	p, err := New(asClients(gen), nil, synth, testCosts, testConfig(),
		WithRetriever(stubRetriever{chunks: []ports.Chunk{{Text: "نص المادة ٧٧ من نظام العمل", Score: 0.9}}}))
	require.NoError(t, err)

	_, err = p.Process(context.Background(), "سؤال")
	require.NoError(t, err)

	assert.Contains(t, gen.LastPrompt(), "نص المادة ٧٧ من نظام العمل")
}

func TestPipeline_RetrieverFailureIsNonFatal(t *testing.T) {
	gen := testutils.NewScriptedClient("gen-1", testutils.ScriptedCall{Text: "إجابة", TokensIn: 10, TokensOut: 10})
	synth := testutils.NewScriptedClient("synth", testutils.ScriptedCall{Text: "unused"})
	metrics := testutils.NewRecordingMetrics()

	p, err := New(asClients(gen), nil, synth, testCosts, testConfig(),
		WithRetriever(stubRetriever{err: errors.New("index offline")}),
		WithMetrics(metrics))
	require.NoError(t, err)

	result, err := p.Process(context.Background(), "سؤال")
	require.NoError(t, err)
	assert.NotEmpty(t, result.FinalAnswer)
	assert.Equal(t, float64(1), metrics.CounterValue("retrieval_failures_total"))
}

func TestPipeline_MetricsRecorded(t *testing.T) {
	gen := testutils.NewScriptedClient("gen-1", testutils.ScriptedCall{Text: "إجابة", TokensIn: 10, TokensOut: 10})
	judge := testutils.NewScriptedClient("judge-1", testutils.ScriptedCall{Text: judgeJSON(9, "م")})
	synth := testutils.NewScriptedClient("synth", testutils.ScriptedCall{Text: "النهائية", TokensIn: 10, TokensOut: 10})
	metrics := testutils.NewRecordingMetrics()

	p, err := New(asClients(gen), asClients(judge), synth, testCosts, testConfig(),
		WithMetrics(metrics))
	require.NoError(t, err)

	_, err = p.Process(context.Background(), "سؤال")
	require.NoError(t, err)

	assert.Equal(t, float64(1), metrics.CounterValue("pipeline_runs_total"))
	assert.Equal(t, 9.0, metrics.Gauges["consensus_score"])
	assert.Equal(t, 1, metrics.Latencies["stage_generating"])
	assert.Equal(t, 1, metrics.Latencies["stage_judging"])
	assert.Equal(t, 1, metrics.Latencies["stage_synthesizing"])
}

func TestPipeline_GeneratorsRunConcurrently(t *testing.T) {
	// Three generators each sleeping 60ms must finish well under the
	// 180ms a sequential run would take.
	mk := func(name string) *testutils.ScriptedClient {
		return testutils.NewScriptedClient(name,
			testutils.ScriptedCall{Text: "إجابة", TokensIn: 10, TokensOut: 10, Delay: 60 * time.Millisecond})
	}
	synth := testutils.NewScriptedClient("synth", testutils.ScriptedCall{Text: "unused"})

	p, err := New(asClients(mk("a"), mk("b"), mk("c")), nil, synth, testCosts, testConfig())
	require.NoError(t, err)

	start := time.Now()
	_, err = p.Process(context.Background(), "سؤال")
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 150*time.Millisecond)
}
