package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"snapsolve/internal/models"
)

// Config holds all application configuration
type Config struct {
	Port        string
	Environment string

	// LLM endpoint configuration
	LLMBaseURL       string
	LLMAPIKey        string
	FastModel        string
	ReasoningModel   string
	SingleStageModel string

	// Pipeline behavior
	StageMode      string // "single" or "multi"; invalid values default to multi
	RetryAttempts  int
	AnswerTimeout  time.Duration // per-call override for the answering/single-stage request
	OutputLanguage string        // "en" or "zh", substituted into the answer prompt
	ReviewCacheTTL time.Duration // 0 disables the stage-1 review cache
	Concurrency    int           // concurrent pipeline runs admitted before 429

	// Service surface
	ServiceAPIKey string // empty disables API-key auth (local use)
	ProvidersFile string // optional JSON file overriding the LLM endpoint config
}

// Load loads configuration from environment variables with defaults
func Load() *Config {
	return &Config{
		Port:        getEnv("PORT", "3001"),
		Environment: getEnv("ENVIRONMENT", "development"),

		LLMBaseURL:       getEnv("LLM_BASE_URL", "https://api.deepseek.com/v1"),
		LLMAPIKey:        getEnv("LLM_API_KEY", ""),
		FastModel:        getEnv("FAST_MODEL", "deepseek-chat"),
		ReasoningModel:   getEnv("REASONING_MODEL", "deepseek-reasoner"),
		SingleStageModel: getEnv("SINGLE_STAGE_MODEL", "deepseek-chat"),

		StageMode:      normalizeStageMode(getEnv("ANALYSIS_STAGE_MODE", "multi")),
		RetryAttempts:  getIntEnv("REQUEST_RETRY_ATTEMPTS", 3),
		AnswerTimeout:  time.Duration(getIntEnv("ANSWER_TIMEOUT_SECONDS", 60)) * time.Second,
		OutputLanguage: strings.ToLower(getEnv("OUTPUT_LANGUAGE", "en")),
		ReviewCacheTTL: time.Duration(getIntEnv("REVIEW_CACHE_TTL_SECONDS", 0)) * time.Second,
		Concurrency:    getIntEnv("ANALYZE_CONCURRENCY", 1),

		ServiceAPIKey: getEnv("SERVICE_API_KEY", ""),
		ProvidersFile: getEnv("PROVIDERS_FILE", ""),
	}
}

// LLM returns the endpoint configuration derived from the environment.
func (c *Config) LLM() models.LLMConfig {
	return models.LLMConfig{
		BaseURL:          c.LLMBaseURL,
		APIKey:           c.LLMAPIKey,
		FastModel:        c.FastModel,
		ReasoningModel:   c.ReasoningModel,
		SingleStageModel: c.SingleStageModel,
	}
}

// LoadProvidersFile loads the optional endpoint override from a JSON file
func LoadProvidersFile(filePath string) (*models.ProvidersFile, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read providers file: %w", err)
	}

	var file models.ProvidersFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse providers JSON: %w", err)
	}

	return &file, nil
}

func normalizeStageMode(mode string) string {
	mode = strings.ToLower(strings.TrimSpace(mode))
	if mode != "single" && mode != "multi" {
		return "multi"
	}
	return mode
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}
