package observability

import (
	"strconv"
	"strings"

	"github.com/Conceptual-Machines/scoreviz/internal/llm"
)

// Pricing constants
const (
	tokensPerMillion    = 1_000_000.0
	costFormatPrecision = 6

	// Gemini 2.5 Flash pricing
	gemini25FlashInputPrice  = 0.30
	gemini25FlashOutputPrice = 2.50

	// Gemini 2.5 Pro pricing
	gemini25ProInputPrice  = 1.25
	gemini25ProOutputPrice = 10.0

	// Gemini 2.0 Flash (including the image generation preview)
	gemini20FlashInputPrice  = 0.10
	gemini20FlashOutputPrice = 0.40

	// GPT-4.1-mini pricing
	gpt41MiniInputPrice  = 0.40
	gpt41MiniOutputPrice = 1.60

	// GPT-4o-mini pricing
	gpt4oMiniInputPrice  = 0.15
	gpt4oMiniOutputPrice = 0.60
)

// ModelPricing contains pricing information per 1M tokens
type ModelPricing struct {
	InputPricePer1M  float64 // Price per 1M input tokens in USD
	OutputPricePer1M float64 // Price per 1M output tokens in USD
}

// PricingTable contains pricing by model prefix; the longest matching prefix wins
var PricingTable = map[string]ModelPricing{
	"gemini-2.5-flash": {InputPricePer1M: gemini25FlashInputPrice, OutputPricePer1M: gemini25FlashOutputPrice},
	"gemini-2.5-pro":   {InputPricePer1M: gemini25ProInputPrice, OutputPricePer1M: gemini25ProOutputPrice},
	"gemini-2.0-flash": {InputPricePer1M: gemini20FlashInputPrice, OutputPricePer1M: gemini20FlashOutputPrice},
	"gpt-4.1-mini":     {InputPricePer1M: gpt41MiniInputPrice, OutputPricePer1M: gpt41MiniOutputPrice},
	"gpt-4o-mini":      {InputPricePer1M: gpt4oMiniInputPrice, OutputPricePer1M: gpt4oMiniOutputPrice},
}

const defaultPricingModel = "gemini-2.5-flash"

// PricingFor returns the pricing entry for model, defaulting to Gemini 2.5 Flash
func PricingFor(model string) ModelPricing {
	best, bestLen := PricingTable[defaultPricingModel], 0
	for prefix, pricing := range PricingTable {
		if strings.HasPrefix(model, prefix) && len(prefix) > bestLen {
			best, bestLen = pricing, len(prefix)
		}
	}
	return best
}

// CalculateCost calculates the cost in USD for one model call
func CalculateCost(model string, usage llm.Usage) float64 {
	pricing := PricingFor(model)
	inputCost := (float64(usage.InputTokens) / tokensPerMillion) * pricing.InputPricePer1M
	outputCost := (float64(usage.OutputTokens) / tokensPerMillion) * pricing.OutputPricePer1M
	return inputCost + outputCost
}

// FormatCost formats a cost value as a USD string
func FormatCost(cost float64) string {
	return "$" + strconv.FormatFloat(cost, 'f', costFormatPrecision, 64)
}
