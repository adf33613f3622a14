package ensemble

import (
	"fmt"
	"math"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/mizanlegal/mizan/internal/domain"
)

// BuildConsensus pools the excerpts of every successful judge evaluation
// into one combined text and averages the judges' quality scores.
//
// Pooling is a deliberate union, not a vote: judges already performed
// selection, so the aggregator concatenates their picks in judge order
// then position order, labelled by source position, separated by blank
// lines. Overlapping excerpts pass through untouched (the synthesis stage
// merges near-duplicates during rewriting), but their similarity is
// measured and reported so the redundancy stays observable.
func BuildConsensus(evaluations []domain.JudgeEvaluation) domain.ConsensusResult {
	var pooled []string
	var scoreSum float64
	succeeded := 0

	for _, eval := range evaluations {
		if !eval.Succeeded {
			continue
		}
		succeeded++
		scoreSum += eval.Elements.OverallScore

		for pos, excerpt := range eval.Elements.Excerpts {
			trimmed := strings.TrimSpace(excerpt)
			if trimmed == "" {
				continue
			}
			pooled = append(pooled, fmt.Sprintf("From Model %d: %s", pos+1, trimmed))
		}
	}

	result := domain.ConsensusResult{
		CombinedExcerpts: strings.Join(pooled, "\n\n"),
		OverlapRatio:     overlapRatio(pooled),
	}
	if succeeded > 0 {
		result.AverageScore = scoreSum / float64(succeeded)
	}
	return result
}

// overlapRatio is the mean pairwise Levenshtein similarity across the
// pooled excerpts: 0 for fully distinct content, 1 for identical. With
// fewer than two excerpts there is nothing to overlap.
func overlapRatio(excerpts []string) float64 {
	if len(excerpts) < 2 {
		return 0
	}

	var sum float64
	pairs := 0
	for i := 0; i < len(excerpts); i++ {
		for j := i + 1; j < len(excerpts); j++ {
			sum += similarity(excerpts[i], excerpts[j])
			pairs++
		}
	}
	return sum / float64(pairs)
}

func similarity(a, b string) float64 {
	longest := math.Max(float64(len([]rune(a))), float64(len([]rune(b))))
	if longest == 0 {
		return 1
	}
	dist := float64(levenshtein.ComputeDistance(a, b))
	return 1 - dist/longest
}
