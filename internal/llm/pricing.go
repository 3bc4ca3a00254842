package llm

import "strings"

// modelPricing is the cost per million tokens for one model.
type modelPricing struct {
	inputPerMillion  float64
	outputPerMillion float64
}

// pricingTable maps model identifier prefixes to pricing. Lookup matches
// by prefix so dated model snapshots resolve to their family.
var pricingTable = map[string]modelPricing{
	"claude-3-5-haiku":  {inputPerMillion: 0.80, outputPerMillion: 4.00},
	"claude-haiku-4-5":  {inputPerMillion: 1.00, outputPerMillion: 5.00},
	"claude-sonnet-4":   {inputPerMillion: 3.00, outputPerMillion: 15.00},
	"claude-3-7-sonnet": {inputPerMillion: 3.00, outputPerMillion: 15.00},
	"claude-opus-4":     {inputPerMillion: 15.00, outputPerMillion: 75.00},
}

// defaultPricing is used for unrecognized models. It is the most
// expensive tier so cost estimates err on the high side.
var defaultPricing = modelPricing{inputPerMillion: 15.00, outputPerMillion: 75.00}

func pricingFor(model string) modelPricing {
	for prefix, p := range pricingTable {
		if strings.HasPrefix(model, prefix) {
			return p
		}
	}
	return defaultPricing
}

// CostFor returns the dollar cost of a call with the given token counts.
func CostFor(model string, tokensIn, tokensOut int64) float64 {
	p := pricingFor(model)
	return float64(tokensIn)/1_000_000*p.inputPerMillion +
		float64(tokensOut)/1_000_000*p.outputPerMillion
}

// EstimateCost predicts the cost of a call before it is made, given an
// estimated prompt size and the response cap. It assumes the full
// MaxTokens is consumed, which keeps pre-call budget checks conservative.
func EstimateCost(model string, estTokensIn int64, maxTokensOut int) float64 {
	return CostFor(model, estTokensIn, int64(maxTokensOut))
}
