package llm

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestCostFor(t *testing.T) {
	tests := []struct {
		name      string
		model     string
		tokensIn  int64
		tokensOut int64
		want      float64
	}{
		{
			name:      "haiku input only",
			model:     "claude-3-5-haiku-20241022",
			tokensIn:  1_000_000,
			tokensOut: 0,
			want:      0.80,
		},
		{
			name:      "sonnet mixed",
			model:     "claude-sonnet-4-20250514",
			tokensIn:  1_000_000,
			tokensOut: 1_000_000,
			want:      18.00,
		},
		{
			name:      "small call",
			model:     "claude-3-5-haiku-20241022",
			tokensIn:  1000,
			tokensOut: 500,
			want:      0.0008 + 0.002,
		},
		{
			name:      "unknown model uses conservative pricing",
			model:     "some-future-model",
			tokensIn:  1_000_000,
			tokensOut: 0,
			want:      15.00,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CostFor(tt.model, tt.tokensIn, tt.tokensOut)
			if !almostEqual(got, tt.want) {
				t.Errorf("CostFor(%s, %d, %d) = %v, want %v",
					tt.model, tt.tokensIn, tt.tokensOut, got, tt.want)
			}
		})
	}
}

func TestEstimateCostAssumesFullOutput(t *testing.T) {
	// Pre-call estimates charge the full MaxTokens so budget checks
	// never under-count.
	est := EstimateCost("claude-sonnet-4-20250514", 10_000, 4096)
	actual := CostFor("claude-sonnet-4-20250514", 10_000, 1000)
	if est <= actual {
		t.Errorf("estimate %v should exceed a smaller actual %v", est, actual)
	}
}
