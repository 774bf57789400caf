package llm

// rates holds per-token USD costs for one model.
type rates struct {
	input  float64
	output float64
}

// pricing maps provider -> model -> per-token rates. Unknown models cost 0
// rather than erroring; the tables are estimation data, not a correctness
// invariant.
var pricing = map[string]map[string]rates{
	"anthropic": {
		"claude-3-haiku-20240307":    {input: 0.25 / 1_000_000, output: 1.25 / 1_000_000},
		"claude-3-5-sonnet-20241022": {input: 3.0 / 1_000_000, output: 15.0 / 1_000_000},
	},
	"openai": {
		"gpt-4o-mini": {input: 0.150 / 1_000_000, output: 0.600 / 1_000_000},
		"gpt-4o":      {input: 2.50 / 1_000_000, output: 10.0 / 1_000_000},
		"gpt-4-turbo": {input: 10.0 / 1_000_000, output: 30.0 / 1_000_000},
	},
	"gemini": {
		"gemini-1.5-flash": {input: 0.075 / 1_000_000, output: 0.30 / 1_000_000},
		"gemini-1.5-pro":   {input: 1.25 / 1_000_000, output: 5.0 / 1_000_000},
		"gemini-pro":       {input: 0.50 / 1_000_000, output: 1.50 / 1_000_000},
	},
}

// Cost computes the USD cost of a call from the provider's pricing table.
func Cost(provider, model string, inputTokens, outputTokens int) float64 {
	r, ok := pricing[provider][model]
	if !ok {
		return 0
	}
	return float64(inputTokens)*r.input + float64(outputTokens)*r.output
}
