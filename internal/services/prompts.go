package services

import (
	"fmt"
	"strings"

	"snapsolve/internal/models"
)

// reviewSystemTemplate instructs the fast-tier model to normalize OCR text
// and classify it. The model is told to emit exactly the review schema and
// nothing else; the parser still tolerates fenced or prose-wrapped output.
const reviewSystemTemplate = `You are an exam content analysis assistant. Please complete:
1) Fix OCR defects and output standardized text 'fixed_text';
2) Extract 'question' and 'options' (if any, [{"label":"A","text":"..."}]);
3) Determine 'content_type' ∈ {question, non_question}; if non_question, summarize main content in 'content_summary' (e.g., test instructions, schedule, explanatory text).
4) If content_type == 'question', determine 'question_kind' ∈ {single, multiple, free}; also set 'choice_type' ∈ {single, multiple, none} for backward compatibility;
5) Model recommendation policy: you are FORBIDDEN to always pick 'reasoner' or always pick 'chat/fast'. Repeated bias toward either will be treated as a severe violation. Choose 'reasoner' ONLY when structured multi-step reasoning, decomposition, or formal justification is clearly necessary (e.g., proofs, derivations, case analyses, multi-constraint tasks). For straightforward recognition, short factual Q&A, simple calculations, or direct lookup, you MUST prefer 'chat/fast'. Misclassification WILL BE COUNTED AS A CRITICAL FAILURE. Provide brief 'why_model'.
6) Provide 'confidence' in [0,1]; use high values only when the recommendation is well justified; if uncertain, lean to 'chat/fast' unless strong evidence indicates 'reasoner'.
7) Provide 'background_knowledge' relevant facts/formulas (no length limit);
8) Provide 'related_topics' as string list (no length limit);
9) Provide 'suggest_thinking_length' as integer token count for reasoning.
Output ONLY valid JSON in this exact schema without extra text/code blocks:
{
  "fixed_text": "string",
  "content_type": "question|non_question",
  "content_summary": "string",
  "question": "string",
  "options": [{"label": "A", "text": "string"}],
  "question_kind": "single|multiple|free",
  "choice_type": "single|multiple|none",
  "recommended_model": "reasoner|chat",
  "why_model": "string",
  "confidence": 0.0,
  "background_knowledge": "string",
  "related_topics": ["string"],
  "suggest_thinking_length": 64
}`

// singleStageSystemTemplate asks for review and final answer in one pass.
const singleStageSystemTemplate = `You will perform initial review and formal solving in a single pass.
Tasks: fix OCR defects; determine if the content is a question or non_question. If non_question, summarize the main content. If question, extract question/options, detect question_kind ∈ {single, multiple, free} (and choice_type ∈ {single, multiple, none} for compatibility), also provide confidence, background_knowledge, related_topics; then solve the problem and output final answer.
Return ONLY valid JSON: {
  "review": {
    "fixed_text": "string",
    "content_type": "question|non_question",
    "content_summary": "string",
    "question": "string",
    "options": [{"label": "A", "text": "string"}],
    "question_kind": "single|multiple|free",
    "choice_type": "single|multiple|none",
    "confidence": 0.0,
    "background_knowledge": "string",
    "related_topics": ["string"]
  },
  "final": {
    "final_answer_letters": ["A", "C"] or "B",
    "final_answer_text": "string",
    "explanation": "string",
    "confidence": 0.0
  }
}`

func reviewSystemPrompt(memoryBlock string) string {
	return reviewSystemTemplate + memoryBlock
}

func singleStageSystemPrompt(memoryBlock string) string {
	return singleStageSystemTemplate + memoryBlock
}

func recognizedTextPrompt(text string) string {
	return "Original recognized text:\n" + text
}

// answerSystemPrompt instructs the answering model. backgroundBlock comes
// from the memory store, thinkingLength from the review's own estimate.
func answerSystemPrompt(language, backgroundBlock string, thinkingLength int) string {
	token := languageToken(language)
	return fmt.Sprintf(`You are a %s problem-solving assistant, answer based on provided question and options.
Strictly output only JSON, no additional text allowed.
Output format: {
  "final_answer_letters": ["A", "C"] or "B",
  "final_answer_text": "string",
  "explanation": "string",
  "confidence": 0.0
}
Rules: choice_type=single gives only one letter; multiple gives all correct letters; none gives concise answer. Answer in %s.`, token, token) +
		backgroundBlock +
		fmt.Sprintf("\n\nSuggested reasoning length (tokens): %d", thinkingLength)
}

func answerUserPrompt(question string, options []models.Option, choiceType string) string {
	block := optionsBlock(options)
	if block == "" {
		block = "(No options)"
	}
	return fmt.Sprintf("question:\n%s\n\noptions:\n%s\n\nchoice_type: %s\nPlease return only JSON.", question, block, choiceType)
}

func optionsBlock(options []models.Option) string {
	lines := make([]string, 0, len(options))
	for _, opt := range options {
		lines = append(lines, fmt.Sprintf("%s. %s", opt.Label, opt.Text))
	}
	return strings.Join(lines, "\n")
}

func languageToken(language string) string {
	if strings.EqualFold(language, "zh") {
		return "Chinese"
	}
	return "English"
}
