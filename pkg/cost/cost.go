// Package cost estimates LLM spend for extraction runs.
package cost

import (
	"strings"
	"sync"
)

// PricingModel defines the cost per 1M tokens (standard industry pricing unit)
type PricingModel struct {
	InputPrice  float64 // Cost per 1M input tokens
	OutputPrice float64 // Cost per 1M output tokens
}

// CostCalculator calculates estimated costs for LLM usage
type CostCalculator struct {
	mu     sync.RWMutex
	prices map[string]PricingModel
}

// NewCostCalculator creates a new calculator with default pricing
func NewCostCalculator() *CostCalculator {
	c := &CostCalculator{
		prices: make(map[string]PricingModel),
	}
	c.loadDefaults()
	return c
}

// SetPrice registers or overrides pricing for a model.
func (c *CostCalculator) SetPrice(model string, price PricingModel) {
	c.mu.Lock()
	c.prices[strings.ToLower(model)] = price
	c.mu.Unlock()
}

// CalculateCost returns the estimated cost in USD
func (c *CostCalculator) CalculateCost(model string, promptTokens, completionTokens int) float64 {
	c.mu.RLock()
	price, ok := c.prices[strings.ToLower(model)]
	if !ok {
		price = PricingModel{0, 0}

		// Heuristic: Check for common prefixes
		if strings.HasPrefix(strings.ToLower(model), "gpt-4") {
			price = c.prices["gpt-4o"]
		} else if strings.HasPrefix(strings.ToLower(model), "gpt-3.5") {
			price = c.prices["gpt-3.5-turbo"]
		} else if strings.HasPrefix(strings.ToLower(model), "claude-3-opus") {
			price = c.prices["claude-3-opus"]
		} else if strings.HasPrefix(strings.ToLower(model), "claude-3-sonnet") {
			price = c.prices["claude-3-sonnet"]
		} else if strings.HasPrefix(strings.ToLower(model), "claude-3-haiku") {
			price = c.prices["claude-3-haiku"]
		}
	}
	c.mu.RUnlock()

	inputCost := (float64(promptTokens) / 1_000_000.0) * price.InputPrice
	outputCost := (float64(completionTokens) / 1_000_000.0) * price.OutputPrice

	return inputCost + outputCost
}

// Usage is the accumulated token consumption of a run.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	Calls            int
	EstimatedCost    float64
}

// Tracker accumulates per-call token usage across the windows and retries of
// a single document extraction.
type Tracker struct {
	mu         sync.Mutex
	model      string
	calculator *CostCalculator
	usage      Usage
}

// NewTracker creates a tracker for the given model.
func NewTracker(model string, calculator *CostCalculator) *Tracker {
	if calculator == nil {
		calculator = NewCostCalculator()
	}
	return &Tracker{model: model, calculator: calculator}
}

// Record adds one completion's token counts.
func (t *Tracker) Record(promptTokens, completionTokens int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.usage.PromptTokens += promptTokens
	t.usage.CompletionTokens += completionTokens
	t.usage.Calls++
	t.usage.EstimatedCost += t.calculator.CalculateCost(t.model, promptTokens, completionTokens)
}

// Usage returns a snapshot of the accumulated totals.
func (t *Tracker) Usage() Usage {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.usage
}

// Reset clears the accumulated totals.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.usage = Usage{}
}

// loadDefaults loads standard pricing for major providers (as of late 2024/early 2025)
func (c *CostCalculator) loadDefaults() {
	// OpenAI
	c.prices["gpt-4o"] = PricingModel{InputPrice: 2.50, OutputPrice: 10.00}
	c.prices["gpt-4o-mini"] = PricingModel{InputPrice: 0.15, OutputPrice: 0.60}
	c.prices["gpt-4-turbo"] = PricingModel{InputPrice: 10.00, OutputPrice: 30.00}
	c.prices["gpt-3.5-turbo"] = PricingModel{InputPrice: 0.50, OutputPrice: 1.50}
	c.prices["o1-preview"] = PricingModel{InputPrice: 15.00, OutputPrice: 60.00}
	c.prices["o1-mini"] = PricingModel{InputPrice: 3.00, OutputPrice: 12.00}

	// Anthropic
	c.prices["claude-3-5-sonnet"] = PricingModel{InputPrice: 3.00, OutputPrice: 15.00}
	c.prices["claude-3-opus"] = PricingModel{InputPrice: 15.00, OutputPrice: 75.00}
	c.prices["claude-3-sonnet"] = PricingModel{InputPrice: 3.00, OutputPrice: 15.00}
	c.prices["claude-3-haiku"] = PricingModel{InputPrice: 0.25, OutputPrice: 1.25}

	// Default/Fallback mappings
	c.prices["gpt-4"] = c.prices["gpt-4o"]
	c.prices["unknown"] = PricingModel{0, 0}

	// Llama
	c.prices["meta-llama/llama-3.3-70b-instruct-turbo"] = PricingModel{InputPrice: 0.88, OutputPrice: 0.88}
	c.prices["meta-llama/meta-llama-3.1-8b-instruct-turbo"] = PricingModel{InputPrice: 0.18, OutputPrice: 0.18}
	c.prices["meta-llama/meta-llama-3.1-70b-instruct-turbo"] = PricingModel{InputPrice: 0.88, OutputPrice: 0.88}

	// Qwen 2.5
	c.prices["qwen/qwen2.5-7b-instruct-turbo"] = PricingModel{InputPrice: 0.30, OutputPrice: 0.30}
	c.prices["qwen/qwen2.5-72b-instruct-turbo"] = PricingModel{InputPrice: 1.20, OutputPrice: 1.20}

	// DeepSeek
	c.prices["deepseek-ai/deepseek-v3"] = PricingModel{InputPrice: 1.25, OutputPrice: 1.25}
}
