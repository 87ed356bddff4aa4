package services

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"snapsolve/internal/logging"
	"snapsolve/internal/models"
)

// AnalysisOptions configures pipeline behavior at construction time.
type AnalysisOptions struct {
	StageMode      string // "single" or "multi"; anything else is multi
	RetryAttempts  int
	AnswerTimeout  time.Duration // per-call override for answering/single-stage requests
	OutputLanguage string
	ReviewCacheTTL time.Duration // 0 disables the review cache
}

// AnalysisService coordinates the recognized-text analysis pipeline: stage
// dispatch, retry and fallback, strict JSON recovery, model-tier gating and
// the cross-run memory store. Runs are synchronous; the caller bounds
// concurrency through AnalysisQueue.
type AnalysisService struct {
	registry *ProviderRegistry
	client   *LLMClient
	memory   *MemoryService
	metrics  *Metrics

	stageMode      string
	retryAttempts  int
	answerTimeout  time.Duration
	outputLanguage string
	reviewCache    *cache.Cache
}

// NewAnalysisService wires the pipeline coordinator.
func NewAnalysisService(registry *ProviderRegistry, client *LLMClient, memory *MemoryService, metrics *Metrics, opts AnalysisOptions) *AnalysisService {
	mode := opts.StageMode
	if mode != "single" {
		mode = "multi"
	}
	attempts := opts.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}

	var reviewCache *cache.Cache
	if opts.ReviewCacheTTL > 0 {
		reviewCache = cache.New(opts.ReviewCacheTTL, opts.ReviewCacheTTL)
	}

	return &AnalysisService{
		registry:       registry,
		client:         client,
		memory:         memory,
		metrics:        metrics,
		stageMode:      mode,
		retryAttempts:  attempts,
		answerTimeout:  opts.AnswerTimeout,
		outputLanguage: opts.OutputLanguage,
		reviewCache:    reviewCache,
	}
}

// Memory exposes the run-shared memory store (read-side consumers only;
// mutation stays inside the pipeline).
func (s *AnalysisService) Memory() *MemoryService {
	return s.memory
}

// StageMode reports the mode selected at construction.
func (s *AnalysisService) StageMode() string {
	return s.stageMode
}

// Run executes one full pipeline invocation for the recognized text and
// returns a structured outcome. It never returns an error or panics: every
// failure state folds into the result's Failed kind.
func (s *AnalysisService) Run(ctx context.Context, text string) models.PipelineResult {
	runID := uuid.NewString()
	start := time.Now()
	log.Printf("🚀 [PIPELINE %s] Starting %s-stage analysis (%d chars)", runID, s.stageMode, len(text))

	var result models.PipelineResult
	if s.stageMode == "single" {
		result = s.runSingleStage(ctx, runID, text)
	} else {
		result = s.runMultiStage(ctx, runID, text)
	}
	result.RunID = runID

	s.metrics.RecordRun(string(result.Kind))
	logging.WithRun(runID, s.stageMode).Info("pipeline run complete",
		"outcome", string(result.Kind),
		"elapsed_ms", time.Since(start).Milliseconds())
	log.Printf("🏁 [PIPELINE %s] Completed in %.2fs (outcome: %s)", runID, time.Since(start).Seconds(), result.Kind)
	return result
}

// ---------------- Multi-stage ----------------

func (s *AnalysisService) runMultiStage(ctx context.Context, runID, text string) models.PipelineResult {
	cfg := s.registry.Current()

	review := s.reviewStage(ctx, runID, cfg, text)

	var parsed *models.ReviewResult
	degraded := review.Degraded()
	if degraded {
		log.Printf("⚠️  [PIPELINE %s] Review parsing exhausted after %d attempt(s), treating raw text as the question", runID, s.retryAttempts)
		parsed = degradedReview(text)
	} else {
		parsed = review.Parsed
		s.memory.Update(parsed.TrimmedTopics(), parsed.BackgroundKnowledge)

		if !parsed.IsQuestion() {
			log.Printf("📄 [PIPELINE %s] Content classified as non-question, skipping answer stage", runID)
			return nonQuestionResult(parsed, text)
		}
		log.Printf("✅ [PIPELINE %s] Review parsed (kind: %s, recommended: %s, thinking: %d)",
			runID, parsed.EffectiveQuestionKind(), parsed.RecommendedModel, int(parsed.SuggestThinkingLength))
	}

	tier := SelectAnsweringModel(parsed)
	model := cfg.ModelForTier(tier)
	question := parsed.CleanedQuestion(text)
	choiceType := parsed.EffectiveChoiceType()

	log.Printf("🎯 [PIPELINE %s] Answering with %s tier (model: %s)", runID, tier, model)

	payload := models.ChatCompletionRequest{
		Model: model,
		Messages: []models.ChatMessage{
			{Role: "system", Content: answerSystemPrompt(s.outputLanguage, s.memory.BackgroundBlock(parsed.BackgroundKnowledge), int(parsed.SuggestThinkingLength))},
			{Role: "user", Content: answerUserPrompt(question, parsed.Options, choiceType)},
		},
	}

	answer, usage, raw, lastKind := s.answerAttempts(ctx, runID, cfg, payload, "answer")

	// The selected tier never produced a payload; try the fast tier once
	// before giving up.
	if answer == nil && raw == "" && model != cfg.FastModel {
		log.Printf("🔄 [PIPELINE %s] %s tier unreachable (%s), falling back to fast tier", runID, tier, lastKind.Label())
		payload.Model = cfg.FastModel
		outcome := s.client.Execute(ctx, cfg, payload, "answer-fallback", s.answerTimeout)
		if outcome.OK() {
			raw = outcome.Data.Content()
			if fallback, ok := DecodeFinalAnswer(raw); ok {
				answer = fallback
				usage = outcome.Data.Usage
				tier = models.TierFast
				model = cfg.FastModel
			} else {
				lastKind = models.ErrorKindParse
			}
		} else {
			lastKind = outcome.Err.Kind
		}
	}

	if answer == nil {
		return models.PipelineResult{
			Kind: models.ResultFailed,
			Failure: &models.Failure{
				Stage:         "answer",
				LastErrorKind: lastKind,
				RawText:       raw,
			},
		}
	}

	s.recordUsage(runID, usage)

	return models.PipelineResult{
		Kind: models.ResultAnswered,
		Answered: &models.AnsweredQuestion{
			Question:         question,
			Options:          parsed.Options,
			QuestionKind:     parsed.EffectiveQuestionKind(),
			ChoiceType:       choiceType,
			ModelTier:        tier,
			Model:            model,
			DegradedReview:   degraded,
			ReviewConfidence: parsed.Confidence,
			Answer:           *answer,
			Usage:            usage,
		},
	}
}

// reviewStage requests the stage-1 review from the fast tier, re-issuing the
// request until a parseable review is obtained or attempts run out.
func (s *AnalysisService) reviewStage(ctx context.Context, runID string, cfg models.LLMConfig, text string) models.ReviewOutcome {
	if s.reviewCache != nil {
		if v, found := s.reviewCache.Get(reviewCacheKey(text)); found {
			log.Printf("⚡ [PIPELINE %s] Review cache hit, skipping review request", runID)
			return models.ReviewOutcome{Parsed: v.(*models.ReviewResult)}
		}
	}

	payload := models.ChatCompletionRequest{
		Model: cfg.FastModel,
		Messages: []models.ChatMessage{
			{Role: "system", Content: reviewSystemPrompt(s.memory.PromptBlock())},
			{Role: "user", Content: recognizedTextPrompt(text)},
		},
	}

	var lastRaw string
	var lastKind models.ErrorKind
	for attempt := 1; attempt <= s.retryAttempts; attempt++ {
		if attempt > 1 {
			s.metrics.RecordRetry()
			log.Printf("🔁 [PIPELINE %s] Retrying review (attempt %d/%d, last failure: %s)", runID, attempt, s.retryAttempts, lastKind.Label())
		}

		outcome := s.client.Execute(ctx, cfg, payload, "review", 0)
		if !outcome.OK() {
			lastKind = outcome.Err.Kind
			continue
		}

		raw := outcome.Data.Content()
		lastRaw = raw
		if parsed, ok := DecodeReview(raw); ok {
			if s.reviewCache != nil {
				s.reviewCache.SetDefault(reviewCacheKey(text), parsed)
			}
			return models.ReviewOutcome{Parsed: parsed, Raw: raw}
		}
		lastKind = models.ErrorKindParse
	}

	return models.ReviewOutcome{Raw: lastRaw}
}

// answerAttempts runs the stage-2 retry loop against the payload's model.
// Returns the parsed answer, or the last raw text and failure kind when every
// attempt failed. raw == "" means no attempt ever produced a payload.
func (s *AnalysisService) answerAttempts(ctx context.Context, runID string, cfg models.LLMConfig, payload models.ChatCompletionRequest, stage string) (*models.FinalAnswer, *models.Usage, string, models.ErrorKind) {
	var lastRaw string
	var lastKind models.ErrorKind
	for attempt := 1; attempt <= s.retryAttempts; attempt++ {
		if attempt > 1 {
			s.metrics.RecordRetry()
			log.Printf("🔁 [PIPELINE %s] Retrying %s (attempt %d/%d, last failure: %s)", runID, stage, attempt, s.retryAttempts, lastKind.Label())
		}

		outcome := s.client.Execute(ctx, cfg, payload, stage, s.answerTimeout)
		if !outcome.OK() {
			lastKind = outcome.Err.Kind
			continue
		}

		raw := outcome.Data.Content()
		lastRaw = raw
		if answer, ok := DecodeFinalAnswer(raw); ok {
			return answer, outcome.Data.Usage, raw, ""
		}
		lastKind = models.ErrorKindParse
	}
	return nil, nil, lastRaw, lastKind
}

// ---------------- Single-stage ----------------

func (s *AnalysisService) runSingleStage(ctx context.Context, runID, text string) models.PipelineResult {
	cfg := s.registry.Current()

	payload := models.ChatCompletionRequest{
		Model: cfg.SingleStageModel,
		Messages: []models.ChatMessage{
			{Role: "system", Content: singleStageSystemPrompt(s.memory.PromptBlock())},
			{Role: "user", Content: recognizedTextPrompt(text)},
		},
	}

	var parsed *models.SingleStageResult
	var usage *models.Usage
	var lastRaw string
	var lastKind models.ErrorKind
	for attempt := 1; attempt <= s.retryAttempts; attempt++ {
		if attempt > 1 {
			s.metrics.RecordRetry()
			log.Printf("🔁 [PIPELINE %s] Retrying single-stage (attempt %d/%d, last failure: %s)", runID, attempt, s.retryAttempts, lastKind.Label())
		}

		outcome := s.client.Execute(ctx, cfg, payload, "single-stage", s.answerTimeout)
		if !outcome.OK() {
			lastKind = outcome.Err.Kind
			// A timeout on a slower model downgrades the remaining attempts
			// to the fast tier.
			if lastKind == models.ErrorKindTimeout && payload.Model != cfg.FastModel {
				log.Printf("⏬ [PIPELINE %s] Single-stage timeout on %s, downgrading remaining attempts to %s", runID, payload.Model, cfg.FastModel)
				payload.Model = cfg.FastModel
			}
			continue
		}

		lastRaw = outcome.Data.Content()
		if p, ok := DecodeSingleStage(lastRaw); ok {
			parsed = p
			usage = outcome.Data.Usage
			break
		}
		lastKind = models.ErrorKindParse
	}

	if parsed == nil {
		return models.PipelineResult{
			Kind: models.ResultFailed,
			Failure: &models.Failure{
				Stage:         "single-stage",
				LastErrorKind: lastKind,
				RawText:       lastRaw,
			},
		}
	}

	review := parsed.Review
	if review == nil {
		review = &models.ReviewResult{}
	}
	s.memory.Update(review.TrimmedTopics(), review.BackgroundKnowledge)

	if !review.IsQuestion() {
		log.Printf("📄 [PIPELINE %s] Content classified as non-question, ignoring final section", runID)
		return nonQuestionResult(review, text)
	}

	answer := parsed.Final
	if answer == nil {
		answer = &models.FinalAnswer{}
	}

	s.recordUsage(runID, usage)

	return models.PipelineResult{
		Kind: models.ResultAnswered,
		Answered: &models.AnsweredQuestion{
			Question:         review.CleanedQuestion(text),
			Options:          review.Options,
			QuestionKind:     review.EffectiveQuestionKind(),
			ChoiceType:       review.EffectiveChoiceType(),
			ModelTier:        cfg.TierOf(payload.Model),
			Model:            payload.Model,
			ReviewConfidence: review.Confidence,
			Answer:           *answer,
			Usage:            usage,
		},
	}
}

// ---------------- Helpers ----------------

// degradedReview substitutes the raw input as the question when stage-1
// parsing is exhausted. The recommendation fields still flow through the
// selector's gate, so the degraded default lands on the fast tier.
func degradedReview(text string) *models.ReviewResult {
	return &models.ReviewResult{
		ContentType:           "question",
		Question:              text,
		ChoiceType:            "none",
		RecommendedModel:      "reasoner",
		SuggestThinkingLength: 64,
	}
}

func nonQuestionResult(review *models.ReviewResult, text string) models.PipelineResult {
	return models.PipelineResult{
		Kind: models.ResultNonQuestion,
		NonQuestion: &models.NonQuestionSummary{
			ContentType: "non_question",
			Summary:     review.Summary(text),
			Reason:      review.WhyModel,
			Background:  review.BackgroundKnowledge,
			Topics:      review.TrimmedTopics(),
		},
	}
}

func (s *AnalysisService) recordUsage(runID string, usage *models.Usage) {
	if usage == nil {
		return
	}
	log.Printf("📊 [PIPELINE %s] Token usage: prompt=%d, completion=%d, total=%d",
		runID, usage.PromptTokens, usage.CompletionTokens, usage.TotalTokens)
	s.metrics.RecordUsage(usage.PromptTokens, usage.CompletionTokens)
}

func reviewCacheKey(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
