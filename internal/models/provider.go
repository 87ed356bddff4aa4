package models

// LLMConfig is the resolved endpoint configuration used for pipeline runs.
type LLMConfig struct {
	BaseURL          string `json:"base_url"`
	APIKey           string `json:"api_key"`
	FastModel        string `json:"fast_model"`
	ReasoningModel   string `json:"reasoning_model"`
	SingleStageModel string `json:"single_stage_model"`
}

// ModelForTier maps a tier to the configured model name.
func (c LLMConfig) ModelForTier(tier ModelTier) string {
	if tier == TierReasoning {
		return c.ReasoningModel
	}
	return c.FastModel
}

// TierOf reports the tier a configured model name belongs to. Models that are
// neither tier (a dedicated single-stage model) count as fast.
func (c LLMConfig) TierOf(model string) ModelTier {
	if model == c.ReasoningModel {
		return TierReasoning
	}
	return TierFast
}

// ProvidersFile mirrors the optional on-disk endpoint override
// (PROVIDERS_FILE). Empty fields keep their environment-derived values.
type ProvidersFile struct {
	BaseURL          string `json:"base_url,omitempty"`
	APIKey           string `json:"api_key,omitempty"`
	FastModel        string `json:"fast_model,omitempty"`
	ReasoningModel   string `json:"reasoning_model,omitempty"`
	SingleStageModel string `json:"single_stage_model,omitempty"`
}
