package services

import (
	"strings"

	"snapsolve/internal/models"
)

// reasoningMinThinkingTokens is the minimum self-reported thinking budget
// required before the review's own "reasoner" recommendation is honored. The
// recommendation field alone is untrusted: a high token budget is required
// corroboration, preventing reflexive over-selection of the expensive tier.
const reasoningMinThinkingTokens = 128

// SelectAnsweringModel decides which tier answers a reviewed question.
// The reasoning tier is chosen only when the review recommends it AND the
// suggested thinking length clears the corroboration threshold.
func SelectAnsweringModel(review *models.ReviewResult) models.ModelTier {
	if review == nil {
		return models.TierFast
	}
	recommended := strings.ToLower(strings.TrimSpace(review.RecommendedModel))
	if recommended == "reasoner" && int(review.SuggestThinkingLength) >= reasoningMinThinkingTokens {
		return models.TierReasoning
	}
	return models.TierFast
}
