package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestLoadDefaults tests the defaults used when the environment is empty
func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Port != "3001" {
		t.Errorf("Port = %q, want 3001", cfg.Port)
	}
	if cfg.StageMode != "multi" {
		t.Errorf("StageMode = %q, want multi", cfg.StageMode)
	}
	if cfg.RetryAttempts != 3 {
		t.Errorf("RetryAttempts = %d, want 3", cfg.RetryAttempts)
	}
	if cfg.AnswerTimeout != 60*time.Second {
		t.Errorf("AnswerTimeout = %v, want 60s", cfg.AnswerTimeout)
	}
	if cfg.ReviewCacheTTL != 0 {
		t.Errorf("ReviewCacheTTL = %v, want 0 (disabled)", cfg.ReviewCacheTTL)
	}
	if cfg.FastModel != "deepseek-chat" || cfg.ReasoningModel != "deepseek-reasoner" {
		t.Errorf("models = %q/%q, want deepseek defaults", cfg.FastModel, cfg.ReasoningModel)
	}
	if cfg.OutputLanguage != "en" {
		t.Errorf("OutputLanguage = %q, want en", cfg.OutputLanguage)
	}
}

// TestNormalizeStageMode tests stage-mode sanitization
func TestNormalizeStageMode(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"single", "single"},
		{"multi", "multi"},
		{" Single ", "single"},
		{"two-stage", "multi"},
		{"", "multi"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Setenv("ANALYSIS_STAGE_MODE", tt.input)
			if got := Load().StageMode; got != tt.want {
				t.Errorf("StageMode for %q = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// TestLoadEnvOverrides tests that environment values take precedence
func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("REQUEST_RETRY_ATTEMPTS", "5")
	t.Setenv("ANSWER_TIMEOUT_SECONDS", "30")
	t.Setenv("OUTPUT_LANGUAGE", "ZH")

	cfg := Load()
	if cfg.RetryAttempts != 5 {
		t.Errorf("RetryAttempts = %d, want 5", cfg.RetryAttempts)
	}
	if cfg.AnswerTimeout != 30*time.Second {
		t.Errorf("AnswerTimeout = %v, want 30s", cfg.AnswerTimeout)
	}
	if cfg.OutputLanguage != "zh" {
		t.Errorf("OutputLanguage = %q, want zh (lowercased)", cfg.OutputLanguage)
	}
}

// TestGetIntEnvInvalid tests that unparseable integers fall back to defaults
func TestGetIntEnvInvalid(t *testing.T) {
	t.Setenv("REQUEST_RETRY_ATTEMPTS", "not-a-number")
	if got := Load().RetryAttempts; got != 3 {
		t.Errorf("RetryAttempts = %d, want default 3 on bad input", got)
	}
}

// TestLoadProvidersFile tests reading the optional endpoint override
func TestLoadProvidersFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "providers.json")
	content := `{"base_url": "http://localhost:8080/v1", "fast_model": "local-fast"}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	file, err := LoadProvidersFile(path)
	if err != nil {
		t.Fatalf("LoadProvidersFile failed: %v", err)
	}
	if file.BaseURL != "http://localhost:8080/v1" {
		t.Errorf("BaseURL = %q", file.BaseURL)
	}
	if file.FastModel != "local-fast" {
		t.Errorf("FastModel = %q", file.FastModel)
	}
	if file.ReasoningModel != "" {
		t.Errorf("ReasoningModel = %q, want empty (keeps env value)", file.ReasoningModel)
	}
}

func TestLoadProvidersFileMissing(t *testing.T) {
	if _, err := LoadProvidersFile("/nonexistent/providers.json"); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestLoadProvidersFileMalformed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "providers.json")
	if err := os.WriteFile(path, []byte("{broken"), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
	if _, err := LoadProvidersFile(path); err == nil {
		t.Error("expected an error for malformed JSON")
	}
}
