package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRateTable_EstimateCost(t *testing.T) {
	table := DefaultRateTable()

	tests := []struct {
		name      string
		model     string
		tokensIn  int
		tokensOut int
		want      float64
	}{
		{"known model", "gpt-4o", 1_000_000, 1_000_000, 2.50 + 10.00},
		{"cheap model", "gpt-4o-mini", 1_000_000, 0, 0.15},
		{"versioned name uses prefix", "gpt-4o-mini-2024-07-18", 1_000_000, 0, 0.15},
		{"unknown model uses fallback", "mystery-model", 1_000_000, 1_000_000, 1.00 + 3.00},
		{"zero tokens", "gpt-4o", 0, 0, 0},
		{"negative tokens clamp to zero", "gpt-4o", -5, -5, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, table.EstimateCost(tt.model, tt.tokensIn, tt.tokensOut), 1e-9)
		})
	}
}

func TestRateTable_SetRate(t *testing.T) {
	table := DefaultRateTable()
	table.SetRate("custom-model", ModelRate{InputPerMTok: 5, OutputPerMTok: 20})

	assert.InDelta(t, 25.0, table.EstimateCost("custom-model", 1_000_000, 1_000_000), 1e-9)
}
