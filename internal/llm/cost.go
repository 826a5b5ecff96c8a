package llm

// modelPricing holds per-model pricing in USD per 1M tokens.
type modelPricing struct {
	InputPerMillion  float64
	OutputPerMillion float64
}

// priceTable maps model identifiers to their pricing. OpenRouter
// models use the vendor/model form the API reports back.
var priceTable = map[string]modelPricing{
	// OpenRouter-routed models
	"qwen/qwen3-coder":           {InputPerMillion: 0.30, OutputPerMillion: 1.20},
	"z-ai/glm-4.7":               {InputPerMillion: 0.40, OutputPerMillion: 1.60},
	"minimax/minimax-m2.5":       {InputPerMillion: 0.30, OutputPerMillion: 1.20},
	"deepseek/deepseek-chat":     {InputPerMillion: 0.27, OutputPerMillion: 1.10},
	"openai/gpt-4o-mini":         {InputPerMillion: 0.15, OutputPerMillion: 0.60},
	"anthropic/claude-3.5-haiku": {InputPerMillion: 0.80, OutputPerMillion: 4.00},

	// Anthropic direct
	"claude-sonnet-4-5-20250929": {InputPerMillion: 3.00, OutputPerMillion: 15.00},
	"claude-haiku-4-5-20251001":  {InputPerMillion: 0.80, OutputPerMillion: 4.00},
}

// EstimateCost returns the estimated cost in USD for the given model
// and token counts. Unknown models (local Ollama included) cost 0.
func EstimateCost(model string, inputTokens, outputTokens int) float64 {
	pricing, ok := priceTable[model]
	if !ok {
		return 0
	}

	inputCost := float64(inputTokens) / 1_000_000.0 * pricing.InputPerMillion
	outputCost := float64(outputTokens) / 1_000_000.0 * pricing.OutputPerMillion
	return inputCost + outputCost
}

// EstimateTokens provides a rough token count estimation for the given
// text, at roughly 4 characters per token.
func EstimateTokens(text string) int {
	n := len(text) / 4
	if n == 0 && len(text) > 0 {
		return 1
	}
	return n
}
