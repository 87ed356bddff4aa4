package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"snapsolve/internal/models"
)

const (
	// Default per-attempt timeouts: reasoning models get longer to think.
	fastStageTimeout      = 90 * time.Second
	reasoningStageTimeout = 120 * time.Second
)

// LLMClient performs chat-completion requests against the configured
// endpoint. The underlying http.Client (and its connection pool) is shared by
// all pipeline runs; per-attempt timeouts are applied via request contexts.
type LLMClient struct {
	httpClient *http.Client
	metrics    *Metrics
}

// NewLLMClient creates a client sharing one connection pool.
func NewLLMClient(metrics *Metrics) *LLMClient {
	return &LLMClient{
		httpClient: &http.Client{},
		metrics:    metrics,
	}
}

// Execute performs exactly one network call for the given stage. All failure
// modes are classified and returned in the outcome; no error or panic crosses
// this boundary. timeoutOverride <= 0 selects the model-based default.
func (c *LLMClient) Execute(ctx context.Context, cfg models.LLMConfig, payload models.ChatCompletionRequest, stage string, timeoutOverride time.Duration) models.RequestOutcome {
	timeout := timeoutOverride
	if timeout <= 0 {
		if strings.Contains(payload.Model, "reason") {
			timeout = reasoningStageTimeout
		} else {
			timeout = fastStageTimeout
		}
	}

	log.Printf("📤 [LLM-REQUEST] Sending %s request (model: %s, timeout: %s)", stage, payload.Model, timeout)

	body, err := json.Marshal(payload)
	if err != nil {
		return c.fail(stage, models.ErrorKindUnknown, fmt.Sprintf("failed to encode payload: %v", err), "", 0)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.BaseURL+"/chat/completions", bytes.NewBuffer(body))
	if err != nil {
		return c.fail(stage, models.ErrorKindUnknown, fmt.Sprintf("failed to create request: %v", err), "", 0)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+cfg.APIKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	elapsed := time.Since(start)

	if err != nil {
		if isTimeout(ctx, err) {
			return c.fail(stage, models.ErrorKindTimeout, err.Error(), "", elapsed)
		}
		return c.fail(stage, models.ErrorKindNetwork, err.Error(), "", elapsed)
	}
	defer resp.Body.Close()

	respBody, readErr := io.ReadAll(resp.Body)

	log.Printf("📥 [LLM-REQUEST] %s request complete (status: %d, time: %.2fs)", stage, resp.StatusCode, elapsed.Seconds())

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.fail(stage, models.ErrorKindHTTP, fmt.Sprintf("unexpected status %d", resp.StatusCode), string(respBody), elapsed)
	}
	if readErr != nil {
		return c.fail(stage, models.ErrorKindUnknown, fmt.Sprintf("failed to read response body: %v", readErr), "", elapsed)
	}

	var data models.ChatCompletionResponse
	if err := json.Unmarshal(respBody, &data); err != nil {
		return c.fail(stage, models.ErrorKindUnknown, fmt.Sprintf("failed to decode response: %v", err), "", elapsed)
	}

	c.metrics.RecordStageLatency(stage, elapsed.Seconds())
	return models.RequestOutcome{Data: &data, Elapsed: elapsed}
}

func (c *LLMClient) fail(stage string, kind models.ErrorKind, message, body string, elapsed time.Duration) models.RequestOutcome {
	log.Printf("❌ [LLM-REQUEST] %s request failed (%s): %s", stage, kind, message)
	c.metrics.RecordRequestError(string(kind))
	return models.RequestOutcome{
		Elapsed: elapsed,
		Err: &models.RequestError{
			Kind:    kind,
			Message: message,
			Body:    body,
		},
	}
}

// isTimeout distinguishes deadline expiry from other transport failures.
func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
