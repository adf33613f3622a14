package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseError(t *testing.T) {
	inner := errors.New("unexpected end of JSON input")
	perr := NewParseError("judge-1", "malformed JSON", inner)

	assert.Contains(t, perr.Error(), "judge-1")
	assert.Contains(t, perr.Error(), "malformed JSON")
	require.ErrorIs(t, perr, inner)

	var target *ParseError
	require.ErrorAs(t, fmt.Errorf("wrapped: %w", perr), &target)
	assert.Equal(t, "judge-1", target.JudgeName)
}

func TestParseError_NoWrapped(t *testing.T) {
	perr := NewParseError("judge-2", "expected 3 excerpts, got 1", nil)

	assert.Contains(t, perr.Error(), "expected 3 excerpts")
	assert.Nil(t, errors.Unwrap(perr))
}

func TestStageString(t *testing.T) {
	tests := []struct {
		stage Stage
		want  string
	}{
		{StageStart, "start"},
		{StageGenerating, "generating"},
		{StageJudging, "judging"},
		{StageAggregating, "aggregating"},
		{StageSynthesizing, "synthesizing"},
		{StageDone, "done"},
		{StageFailed, "failed"},
		{Stage(99), "unknown"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.stage.String())
	}
}
