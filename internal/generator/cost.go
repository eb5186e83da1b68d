package generator

import (
	"math"

	"github.com/principlequiz/backend/internal/models"
)

const (
	promptTokensPerPrinciple = 200
	outputTokensPerQuestion  = 150

	promptRatePer1K     = 0.03
	completionRatePer1K = 0.06
)

// CostEstimate is a pre-flight guess at the size and price of a generation call.
type CostEstimate struct {
	PromptTokens     int     `json:"promptTokens"`
	CompletionTokens int     `json:"completionTokens"`
	EstimatedCostUSD float64 `json:"estimatedCostUsd"`
}

// EstimateTokenCost estimates a call for the given principles. It never
// touches the network.
func EstimateTokenCost(principles []models.Principle, questionsPerPrinciple int) CostEstimate {
	return EstimateForCount(len(principles), questionsPerPrinciple)
}

// EstimateForCount is EstimateTokenCost for callers that only know how many
// principles they will send. Negative inputs count as zero.
func EstimateForCount(principleCount, questionsPerPrinciple int) CostEstimate {
	principleCount = max(principleCount, 0)
	questionsPerPrinciple = max(questionsPerPrinciple, 0)

	prompt := principleCount * promptTokensPerPrinciple
	completion := principleCount * questionsPerPrinciple * outputTokensPerQuestion

	cost := float64(prompt)/1000*promptRatePer1K + float64(completion)/1000*completionRatePer1K

	return CostEstimate{
		PromptTokens:     prompt,
		CompletionTokens: completion,
		EstimatedCostUSD: math.Round(cost*100) / 100,
	}
}
