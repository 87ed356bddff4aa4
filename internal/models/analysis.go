package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ModelTier identifies which LLM backend answers a question.
type ModelTier string

const (
	TierFast      ModelTier = "fast"      // cheap, low-latency model
	TierReasoning ModelTier = "reasoning" // higher-capability, higher-latency model
)

// ErrorKind classifies a failed LLM request attempt.
type ErrorKind string

const (
	ErrorKindTimeout ErrorKind = "timeout"
	ErrorKindNetwork ErrorKind = "network"
	ErrorKindHTTP    ErrorKind = "http"
	ErrorKindUnknown ErrorKind = "unknown"
	// ErrorKindParse marks an attempt whose payload arrived but did not
	// contain a recoverable JSON object.
	ErrorKindParse ErrorKind = "parse_failure"
)

// Label returns the operator-facing description used in retry log lines.
func (k ErrorKind) Label() string {
	switch k {
	case ErrorKindTimeout:
		return "timeout"
	case ErrorKindNetwork:
		return "network error"
	case ErrorKindHTTP:
		return "HTTP error"
	case ErrorKindParse:
		return "unparseable response"
	default:
		return "unknown error"
	}
}

// ChatMessage is one entry in a chat-completion request.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatCompletionRequest is the wire payload sent to the LLM endpoint.
type ChatCompletionRequest struct {
	Model    string        `json:"model"`
	Messages []ChatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

// ChatChoice is one completion choice in the endpoint response.
type ChatChoice struct {
	Message ChatMessage `json:"message"`
}

// Usage reports token consumption for one completion.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatCompletionResponse is the wire payload returned by the LLM endpoint.
type ChatCompletionResponse struct {
	Choices []ChatChoice `json:"choices"`
	Usage   *Usage       `json:"usage,omitempty"`
}

// Content returns the first choice's message content, or "" when absent.
func (r *ChatCompletionResponse) Content() string {
	if r == nil || len(r.Choices) == 0 {
		return ""
	}
	return r.Choices[0].Message.Content
}

// RequestError describes a failed request attempt.
type RequestError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
	Body    string    `json:"body,omitempty"` // response body for HTTP errors, when available
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// RequestOutcome is the result of exactly one request attempt. Either Data is
// set (the endpoint returned a decodable 2xx response) or Err is set; failures
// never propagate as Go errors past the executor boundary.
type RequestOutcome struct {
	Data    *ChatCompletionResponse
	Elapsed time.Duration
	Err     *RequestError
}

// OK reports whether the attempt produced a usable payload.
func (o RequestOutcome) OK() bool {
	return o.Err == nil && o.Data != nil
}

// Option is a labeled answer choice extracted from the recognized text.
type Option struct {
	Label string `json:"label"`
	Text  string `json:"text"`
}

// FlexInt decodes an integer that models sometimes emit as a float or a
// numeric string. Undecodable values collapse to zero instead of failing the
// surrounding object.
type FlexInt int

func (f *FlexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		*f = FlexInt(int(n))
		return nil
	}
	*f = 0
	return nil
}

// ReviewResult is the parsed stage-1 output: the model's classification and
// normalization of the recognized text. Never mutated after creation.
type ReviewResult struct {
	FixedText             string   `json:"fixed_text"`
	ContentType           string   `json:"content_type"`
	ContentSummary        string   `json:"content_summary"`
	Question              string   `json:"question"`
	Options               []Option `json:"options"`
	QuestionKind          string   `json:"question_kind"`
	ChoiceType            string   `json:"choice_type"`
	RecommendedModel      string   `json:"recommended_model"`
	WhyModel              string   `json:"why_model"`
	Confidence            *float64 `json:"confidence,omitempty"`
	BackgroundKnowledge   string   `json:"background_knowledge"`
	RelatedTopics         []string `json:"related_topics"`
	SuggestThinkingLength FlexInt  `json:"suggest_thinking_length"`
}

// IsQuestion reports whether the reviewed content is a solvable question.
// A missing content_type defaults to question.
func (r *ReviewResult) IsQuestion() bool {
	ct := strings.ToLower(strings.TrimSpace(r.ContentType))
	return ct == "" || ct == "question"
}

// CleanedQuestion returns the normalized question text, falling back to the
// fixed text and finally the raw input.
func (r *ReviewResult) CleanedQuestion(raw string) string {
	if r.Question != "" {
		return r.Question
	}
	if r.FixedText != "" {
		return r.FixedText
	}
	return raw
}

// Summary returns the best available description of non-question content.
func (r *ReviewResult) Summary(raw string) string {
	for _, s := range []string{r.ContentSummary, r.FixedText, r.Question} {
		if s != "" {
			return s
		}
	}
	return raw
}

// EffectiveChoiceType resolves the legacy choice_type field, falling back to
// question_kind and then "none".
func (r *ReviewResult) EffectiveChoiceType() string {
	if r.ChoiceType != "" {
		return strings.ToLower(r.ChoiceType)
	}
	if r.QuestionKind != "" {
		return strings.ToLower(r.QuestionKind)
	}
	return "none"
}

// EffectiveQuestionKind resolves question_kind, deriving it from choice_type
// for payloads that only carry the legacy field.
func (r *ReviewResult) EffectiveQuestionKind() string {
	if r.QuestionKind != "" {
		return strings.ToLower(r.QuestionKind)
	}
	switch r.EffectiveChoiceType() {
	case "single", "multiple":
		return r.EffectiveChoiceType()
	default:
		return "free"
	}
}

// TrimmedTopics returns the non-blank related topics.
func (r *ReviewResult) TrimmedTopics() []string {
	topics := make([]string, 0, len(r.RelatedTopics))
	for _, t := range r.RelatedTopics {
		if s := strings.TrimSpace(t); s != "" {
			topics = append(topics, s)
		}
	}
	return topics
}

// ReviewOutcome is the stage-1 result: either a parsed review or the raw text
// the parser could not recover a JSON object from. Consumers must branch on
// Degraded instead of reading default-valued fields.
type ReviewOutcome struct {
	Parsed *ReviewResult
	Raw    string
}

// Degraded reports whether parsing failed after all retries.
func (o ReviewOutcome) Degraded() bool {
	return o.Parsed == nil
}

// Letters accepts both a bare string ("B") and a list (["A","C"]) for the
// final answer letters field.
type Letters []string

func (l *Letters) UnmarshalJSON(b []byte) error {
	var single string
	if err := json.Unmarshal(b, &single); err == nil {
		if single == "" {
			*l = nil
		} else {
			*l = Letters{single}
		}
		return nil
	}
	var many []string
	if err := json.Unmarshal(b, &many); err == nil {
		*l = many
		return nil
	}
	*l = nil
	return nil
}

func (l Letters) String() string {
	return strings.Join(l, ", ")
}

// FinalAnswer is the parsed stage-2 (or single-stage final) output.
type FinalAnswer struct {
	Letters     Letters  `json:"final_answer_letters"`
	Text        string   `json:"final_answer_text"`
	Explanation string   `json:"explanation"`
	Confidence  *float64 `json:"confidence,omitempty"`
}

// SingleStageResult is the combined payload returned by a single-stage call.
type SingleStageResult struct {
	Review *ReviewResult `json:"review"`
	Final  *FinalAnswer  `json:"final"`
}

// ResultKind discriminates the pipeline outcome.
type ResultKind string

const (
	ResultNonQuestion ResultKind = "non_question"
	ResultAnswered    ResultKind = "answered"
	ResultFailed      ResultKind = "failed"
)

// NonQuestionSummary describes recognized text that is not a solvable
// question (instructions, schedules, explanatory text).
type NonQuestionSummary struct {
	ContentType string   `json:"content_type"`
	Summary     string   `json:"summary"`
	Reason      string   `json:"reason,omitempty"`
	Background  string   `json:"background_knowledge,omitempty"`
	Topics      []string `json:"related_topics,omitempty"`
}

// AnsweredQuestion is the fully solved outcome of a pipeline run.
type AnsweredQuestion struct {
	Question         string      `json:"question"`
	Options          []Option    `json:"options,omitempty"`
	QuestionKind     string      `json:"question_kind"`
	ChoiceType       string      `json:"choice_type"`
	ModelTier        ModelTier   `json:"model_tier"`
	Model            string      `json:"model"`
	DegradedReview   bool        `json:"degraded_review,omitempty"`
	ReviewConfidence *float64    `json:"review_confidence,omitempty"`
	Answer           FinalAnswer `json:"answer"`
	Usage            *Usage      `json:"usage,omitempty"`
}

// Failure carries the last raw model text (if any) for operator visibility
// when retries are exhausted.
type Failure struct {
	Stage         string    `json:"stage"`
	LastErrorKind ErrorKind `json:"last_error_kind,omitempty"`
	RawText       string    `json:"raw_text,omitempty"`
}

// PipelineResult is the discriminated outcome of one pipeline run. Exactly
// one of NonQuestion, Answered or Failure is set, matching Kind.
type PipelineResult struct {
	Kind        ResultKind          `json:"kind"`
	RunID       string              `json:"run_id"`
	NonQuestion *NonQuestionSummary `json:"non_question,omitempty"`
	Answered    *AnsweredQuestion   `json:"answered,omitempty"`
	Failure     *Failure            `json:"failure,omitempty"`
}
