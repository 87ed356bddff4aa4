package services

import (
	"log"
	"sync"

	"snapsolve/internal/models"
)

// ProviderRegistry holds the LLM endpoint configuration consulted at the
// start of each pipeline run and supports atomic replacement when the
// providers file changes on disk. In-flight runs keep the snapshot they
// started with.
type ProviderRegistry struct {
	mu  sync.RWMutex
	cfg models.LLMConfig
}

// NewProviderRegistry creates a registry seeded from the environment config.
func NewProviderRegistry(cfg models.LLMConfig) *ProviderRegistry {
	return &ProviderRegistry{cfg: cfg}
}

// Current returns the configuration snapshot for a new run.
func (r *ProviderRegistry) Current() models.LLMConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cfg
}

// Apply overlays non-empty fields from the providers file onto the current
// configuration.
func (r *ProviderRegistry) Apply(file *models.ProvidersFile) {
	if file == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if file.BaseURL != "" {
		r.cfg.BaseURL = file.BaseURL
	}
	if file.APIKey != "" {
		r.cfg.APIKey = file.APIKey
	}
	if file.FastModel != "" {
		r.cfg.FastModel = file.FastModel
	}
	if file.ReasoningModel != "" {
		r.cfg.ReasoningModel = file.ReasoningModel
	}
	if file.SingleStageModel != "" {
		r.cfg.SingleStageModel = file.SingleStageModel
	}

	log.Printf("🔄 [PROVIDERS] Endpoint config updated (fast: %s, reasoning: %s, single-stage: %s)",
		r.cfg.FastModel, r.cfg.ReasoningModel, r.cfg.SingleStageModel)
}
