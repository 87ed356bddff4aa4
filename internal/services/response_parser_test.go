package services

import (
	"encoding/json"
	"testing"
)

// TestExtractJSONObject tests the three-tier JSON recovery strategy
func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantOK  bool
	}{
		{
			name:   "plain JSON object",
			input:  `{"a":1}`,
			want:   `{"a":1}`,
			wantOK: true,
		},
		{
			name:   "fenced code block with prose",
			input:  "prefix ```json\n{\"a\":1}\n``` suffix",
			want:   `{"a":1}`,
			wantOK: true,
		},
		{
			name:   "no braces at all",
			input:  "no braces here",
			wantOK: false,
		},
		{
			name:   "outer brace span with trailing text",
			input:  `{"a": {"b": 1}} trailing`,
			want:   `{"a": {"b": 1}}`,
			wantOK: true,
		},
		{
			name:   "prose-wrapped object without fences",
			input:  `Sure, here is the result: {"x": "y"} hope it helps`,
			want:   `{"x": "y"}`,
			wantOK: true,
		},
		{
			name:   "bare array is not an object",
			input:  `[1, 2, 3]`,
			wantOK: false,
		},
		{
			name:   "empty input",
			input:  "",
			wantOK: false,
		},
		{
			name:   "unbalanced braces",
			input:  `{"a": 1`,
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractJSONObject(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("ExtractJSONObject(%q) ok = %v, want %v", tt.input, ok, tt.wantOK)
			}
			if !tt.wantOK {
				return
			}

			var gotObj, wantObj map[string]interface{}
			if err := json.Unmarshal(got, &gotObj); err != nil {
				t.Fatalf("recovered bytes are not valid JSON: %v", err)
			}
			if err := json.Unmarshal([]byte(tt.want), &wantObj); err != nil {
				t.Fatalf("bad test fixture: %v", err)
			}
			if len(gotObj) != len(wantObj) {
				t.Errorf("recovered object %v, want %v", gotObj, wantObj)
			}
		})
	}
}

// TestDecodeReview tests typed decoding of stage-1 output
func TestDecodeReview(t *testing.T) {
	raw := "```json\n" + `{
		"fixed_text": "What is 2+2?",
		"content_type": "question",
		"question": "What is 2+2?",
		"options": [{"label": "A", "text": "3"}, {"label": "B", "text": "4"}],
		"question_kind": "single",
		"choice_type": "single",
		"recommended_model": "chat",
		"confidence": 0.9,
		"related_topics": ["arithmetic"],
		"suggest_thinking_length": 32
	}` + "\n```"

	review, ok := DecodeReview(raw)
	if !ok {
		t.Fatal("expected review to decode")
	}
	if !review.IsQuestion() {
		t.Error("expected content to be a question")
	}
	if len(review.Options) != 2 || review.Options[1].Label != "B" {
		t.Errorf("unexpected options: %+v", review.Options)
	}
	if int(review.SuggestThinkingLength) != 32 {
		t.Errorf("suggest_thinking_length = %d, want 32", int(review.SuggestThinkingLength))
	}
	if review.Confidence == nil || *review.Confidence != 0.9 {
		t.Errorf("confidence = %v, want 0.9", review.Confidence)
	}
}

// TestDecodeReviewTolerantFields tests that sloppy numeric fields do not
// reject the whole review
func TestDecodeReviewTolerantFields(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		wantLen int
	}{
		{
			name:    "float thinking length",
			raw:     `{"question": "q", "suggest_thinking_length": 256.0}`,
			wantLen: 256,
		},
		{
			name:    "string thinking length",
			raw:     `{"question": "q", "suggest_thinking_length": "128"}`,
			wantLen: 128,
		},
		{
			name:    "non-numeric thinking length collapses to zero",
			raw:     `{"question": "q", "suggest_thinking_length": "a lot"}`,
			wantLen: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			review, ok := DecodeReview(tt.raw)
			if !ok {
				t.Fatal("expected review to decode")
			}
			if int(review.SuggestThinkingLength) != tt.wantLen {
				t.Errorf("suggest_thinking_length = %d, want %d", int(review.SuggestThinkingLength), tt.wantLen)
			}
		})
	}
}

// TestDecodeFinalAnswerLetters tests the string-or-list letters field
func TestDecodeFinalAnswerLetters(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{
			name: "single letter as string",
			raw:  `{"final_answer_letters": "B", "final_answer_text": "4"}`,
			want: []string{"B"},
		},
		{
			name: "multiple letters as list",
			raw:  `{"final_answer_letters": ["A", "C"], "explanation": "both hold"}`,
			want: []string{"A", "C"},
		},
		{
			name: "missing letters",
			raw:  `{"final_answer_text": "42"}`,
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			answer, ok := DecodeFinalAnswer(tt.raw)
			if !ok {
				t.Fatal("expected answer to decode")
			}
			if len(answer.Letters) != len(tt.want) {
				t.Fatalf("letters = %v, want %v", answer.Letters, tt.want)
			}
			for i := range tt.want {
				if answer.Letters[i] != tt.want[i] {
					t.Errorf("letters[%d] = %q, want %q", i, answer.Letters[i], tt.want[i])
				}
			}
		})
	}
}

// TestDecodeSingleStage tests the combined review+final envelope
func TestDecodeSingleStage(t *testing.T) {
	raw := `{"review": {"content_type": "question", "question": "q"}, "final": {"final_answer_letters": "A"}}`

	result, ok := DecodeSingleStage(raw)
	if !ok {
		t.Fatal("expected single-stage payload to decode")
	}
	if result.Review == nil || result.Review.Question != "q" {
		t.Errorf("unexpected review: %+v", result.Review)
	}
	if result.Final == nil || result.Final.Letters.String() != "A" {
		t.Errorf("unexpected final: %+v", result.Final)
	}
}
