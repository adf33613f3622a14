package llm

import (
	"strings"
	"sync"

	"github.com/mizanlegal/mizan/internal/ports"
)

// ModelRate holds per-model pricing in USD per million tokens.
type ModelRate struct {
	InputPerMTok  float64
	OutputPerMTok float64
}

// RateTable implements ports.CostModel from a static per-model rate table.
// Rates are approximations that drift from real provider pricing over
// time; callers needing accuracy should supply their own table. Cost
// estimation is a pure function of token counts and never calls out to a
// metering API.
type RateTable struct {
	mu       sync.RWMutex
	rates    map[string]ModelRate
	fallback ModelRate
}

var _ ports.CostModel = (*RateTable)(nil)

// DefaultRateTable returns a table covering the models the ensemble ships
// configured with, plus a conservative fallback for unknown models.
func DefaultRateTable() *RateTable {
	return &RateTable{
		rates: map[string]ModelRate{
			"gpt-4o":                     {InputPerMTok: 2.50, OutputPerMTok: 10.00},
			"gpt-4o-mini":                {InputPerMTok: 0.15, OutputPerMTok: 0.60},
			"deepseek-chat":              {InputPerMTok: 0.27, OutputPerMTok: 1.10},
			"deepseek-reasoner":          {InputPerMTok: 0.55, OutputPerMTok: 2.19},
			"claude-3-5-sonnet-20241022": {InputPerMTok: 3.00, OutputPerMTok: 15.00},
			"gemini-2.0-flash":           {InputPerMTok: 0.10, OutputPerMTok: 0.40},
			"gemini-1.5-pro":             {InputPerMTok: 1.25, OutputPerMTok: 5.00},
		},
		fallback: ModelRate{InputPerMTok: 1.00, OutputPerMTok: 3.00},
	}
}

// SetRate adds or replaces the rate for a model.
func (t *RateTable) SetRate(model string, rate ModelRate) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rates[model] = rate
}

// EstimateCost implements ports.CostModel. Unknown models use the
// fallback rate; versioned model names fall back to their prefix entry
// (e.g. "gpt-4o-2024-08-06" matches "gpt-4o").
func (t *RateTable) EstimateCost(model string, tokensIn, tokensOut int) float64 {
	if tokensIn < 0 {
		tokensIn = 0
	}
	if tokensOut < 0 {
		tokensOut = 0
	}

	rate := t.lookup(model)
	return float64(tokensIn)/1e6*rate.InputPerMTok + float64(tokensOut)/1e6*rate.OutputPerMTok
}

func (t *RateTable) lookup(model string) ModelRate {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if rate, ok := t.rates[model]; ok {
		return rate
	}

	// Longest prefix wins so "gpt-4o-mini-2024-07-18" matches
	// "gpt-4o-mini", not "gpt-4o".
	best := ""
	for prefix := range t.rates {
		if strings.HasPrefix(model, prefix) && len(prefix) > len(best) {
			best = prefix
		}
	}
	if best != "" {
		return t.rates[best]
	}
	return t.fallback
}
