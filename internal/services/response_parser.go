package services

import (
	"encoding/json"
	"strings"

	"snapsolve/internal/models"
)

// ExtractJSONObject recovers a JSON object from free-form model output.
// Models wrap JSON in prose or code fences, so three attempts are made in
// order, first success wins:
//  1. parse the entire text as JSON
//  2. if a code-fence marker is present, parse the substring between the
//     first '{' and the last '}'
//  3. parse that same brace span regardless of fencing
//
// Returns the recovered object bytes, or ok=false when no attempt yields a
// JSON object.
func ExtractJSONObject(raw string) ([]byte, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, false
	}

	if obj, ok := tryObject([]byte(trimmed)); ok {
		return obj, true
	}

	if strings.Contains(raw, "```") {
		if obj, ok := tryObject(braceSpan(raw)); ok {
			return obj, true
		}
	}

	if obj, ok := tryObject(braceSpan(raw)); ok {
		return obj, true
	}

	return nil, false
}

// braceSpan returns the substring between the first '{' and the last '}'
// inclusive, or nil when no such pair exists.
func braceSpan(s string) []byte {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end == -1 || end <= start {
		return nil
	}
	return []byte(s[start : end+1])
}

// tryObject validates that b is a parseable JSON object (not an array or a
// bare scalar).
func tryObject(b []byte) ([]byte, bool) {
	if len(b) == 0 {
		return nil, false
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(b, &obj); err != nil {
		return nil, false
	}
	return b, true
}

// DecodeReview parses raw model output into a ReviewResult.
func DecodeReview(raw string) (*models.ReviewResult, bool) {
	b, ok := ExtractJSONObject(raw)
	if !ok {
		return nil, false
	}
	var review models.ReviewResult
	if err := json.Unmarshal(b, &review); err != nil {
		return nil, false
	}
	return &review, true
}

// DecodeFinalAnswer parses raw model output into a FinalAnswer.
func DecodeFinalAnswer(raw string) (*models.FinalAnswer, bool) {
	b, ok := ExtractJSONObject(raw)
	if !ok {
		return nil, false
	}
	var answer models.FinalAnswer
	if err := json.Unmarshal(b, &answer); err != nil {
		return nil, false
	}
	return &answer, true
}

// DecodeSingleStage parses raw model output into the combined review+final
// envelope returned by single-stage calls.
func DecodeSingleStage(raw string) (*models.SingleStageResult, bool) {
	b, ok := ExtractJSONObject(raw)
	if !ok {
		return nil, false
	}
	var result models.SingleStageResult
	if err := json.Unmarshal(b, &result); err != nil {
		return nil, false
	}
	return &result, true
}
