package ensemble

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mizanlegal/mizan/internal/domain"
)

func successfulEval(judge string, score float64, excerpts ...string) domain.JudgeEvaluation {
	return domain.JudgeEvaluation{
		JudgeName: judge,
		Elements:  domain.BestElements{Excerpts: excerpts, OverallScore: score},
		Succeeded: true,
	}
}

func TestBuildConsensus_PoolsInJudgeThenPositionOrder(t *testing.T) {
	evals := []domain.JudgeEvaluation{
		successfulEval("j1", 8, "المادة الأولى", "المادة الثانية"),
		successfulEval("j2", 6, "المادة الثالثة", "المادة الرابعة"),
	}

	result := BuildConsensus(evals)

	want := "From Model 1: المادة الأولى\n\n" +
		"From Model 2: المادة الثانية\n\n" +
		"From Model 1: المادة الثالثة\n\n" +
		"From Model 2: المادة الرابعة"
	assert.Equal(t, want, result.CombinedExcerpts)
	assert.InDelta(t, 7.0, result.AverageScore, 1e-9)
}

func TestBuildConsensus_SkipsFailedJudges(t *testing.T) {
	evals := []domain.JudgeEvaluation{
		successfulEval("j1", 9, "مقتطف"),
		{JudgeName: "j2", ErrorMessage: "parse failed"},
	}

	result := BuildConsensus(evals)

	assert.Equal(t, "From Model 1: مقتطف", result.CombinedExcerpts)
	// Only the successful judge contributes to the mean.
	assert.InDelta(t, 9.0, result.AverageScore, 1e-9)
}

func TestBuildConsensus_NoSuccessfulJudges(t *testing.T) {
	evals := []domain.JudgeEvaluation{
		{JudgeName: "j1", ErrorMessage: "timeout"},
		{JudgeName: "j2", ErrorMessage: "malformed JSON"},
	}

	result := BuildConsensus(evals)

	assert.Empty(t, result.CombinedExcerpts)
	assert.Zero(t, result.AverageScore)
	assert.Zero(t, result.OverlapRatio)
}

func TestBuildConsensus_NeverDeduplicates(t *testing.T) {
	// Both judges picked the identical excerpt; pooling keeps both
	// copies and only the overlap ratio reflects the redundancy.
	evals := []domain.JudgeEvaluation{
		successfulEval("j1", 7, "نفس المقتطف"),
		successfulEval("j2", 7, "نفس المقتطف"),
	}

	result := BuildConsensus(evals)

	assert.Equal(t, 2, strings.Count(result.CombinedExcerpts, "نفس المقتطف"))
	assert.InDelta(t, 1.0, result.OverlapRatio, 1e-9)
}

func TestBuildConsensus_SkipsEmptyExcerpts(t *testing.T) {
	evals := []domain.JudgeEvaluation{
		successfulEval("j1", 5, "مقتطف مفيد", "", "   "),
	}

	result := BuildConsensus(evals)

	assert.Equal(t, "From Model 1: مقتطف مفيد", result.CombinedExcerpts)
}

func TestBuildConsensus_EmptyInput(t *testing.T) {
	result := BuildConsensus(nil)

	assert.Empty(t, result.CombinedExcerpts)
	assert.Zero(t, result.AverageScore)
}

func TestOverlapRatio(t *testing.T) {
	tests := []struct {
		name     string
		excerpts []string
		wantLow  float64
		wantHigh float64
	}{
		{"single excerpt", []string{"a"}, 0, 0},
		{"identical pair", []string{"same text", "same text"}, 1, 1},
		{"distinct pair", []string{"aaaaaaaa", "bbbbbbbb"}, 0, 0},
		{"partial overlap", []string{"النص القانوني الأول", "النص القانوني الثاني"}, 0.4, 0.95},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := overlapRatio(tt.excerpts)
			assert.GreaterOrEqual(t, got, tt.wantLow)
			assert.LessOrEqual(t, got, tt.wantHigh)
		})
	}
}
