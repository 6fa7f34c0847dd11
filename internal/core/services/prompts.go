package services

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/logger"
)

// RefusalSentence is what strict mode answers when the context is silent.
const RefusalSentence = "The document does not contain this information."

// Placeholders shown in place of empty prompt sections.
const (
	noHistory    = "[NO PRIOR CONVERSATION]"
	noContext    = "[NO DOCUMENT CONTEXT]"
	emptyContext = "[EMPTY]"
)

const answerPrompt = `You are a knowledgeable question-answering assistant.

%s

Conversation History:
%s

Document Context:
%s

Question:
%s

Answer:
`

const strictRules = `Rules:
- Use ONLY the document context provided below.
- If the answer is not explicitly and clearly present, say:
  "` + RefusalSentence + `"
- Structure the answer using headings and bullet points where appropriate.
- Do NOT use general knowledge.
- Do NOT infer, guess, or extrapolate.
- Do NOT mention sources, pages, PDFs, confidence, or metadata.
- Answer in plain text only.`

const hybridRules = `Rules:
- Prefer the document context when it is relevant.
- If the document does not fully answer the question:
  - You MAY use general knowledge to explain the concept.
- Structure the answer using headings and bullet points where appropriate.
- If document context is used, relate your explanation to it.
- Clearly explain concepts in simple language.
- Do NOT fabricate document-specific facts.
- Do NOT mention sources, pages, PDFs, confidence, or metadata.
- Answer in plain text only.`

const verifyPrompt = `You are a verifier.

Check if the answer is DIRECTLY supported by the document context.

Document Context:
%s

Answer:
%s

Rules:
- If answer relies on general world knowledge -> NOT supported
- If answer is only implied -> weak
- If answer is explicitly stated -> strong

Return ONLY valid JSON:
{
  "supported": true | false,
  "strength": "strong" | "weak" | "none"
}
`

const questionsPrompt = `You are an expert reader.

Based on the summary below, generate 10 insightful questions that help a reader deeply understand the document.
Mix:
- conceptual questions
- evidence-based questions
- critical thinking questions
- Each question must be SHORT (max 12 words)
- One clear idea per question
- Conversational, natural language
- No markdown
- No headings
- No explanations
- No prefixes
- Only plain questions
- Every item must end with a question mark

Avoid yes/no questions.
Avoid generic phrasing.

Summary:
%s
`

// DefaultPrompts returns the built-in prompt templates keyed by name.
// File-backed prompt stores seed themselves from this map.
func DefaultPrompts() map[string]string {
	return map[string]string{
		driven.PromptAnswer:      answerPrompt,
		driven.PromptStrictRules: strictRules,
		driven.PromptHybridRules: hybridRules,
		driven.PromptVerify:      verifyPrompt,
		driven.PromptQuestions:   questionsPrompt,
	}
}

// prompts resolves templates from an optional store, falling back to the
// built-in defaults.
type prompts struct {
	store driven.PromptStore
}

func (p *prompts) load(name string) string {
	if p.store != nil {
		tmpl, err := p.store.Load(name)
		if err == nil && strings.TrimSpace(tmpl) != "" {
			return tmpl
		}
		if err != nil {
			logger.Warn("Prompt %q unavailable, using built-in: %v", name, err)
		}
	}
	return DefaultPrompts()[name]
}

// render fills a template. Templates with the wrong number of verbs are
// reported and replaced by the built-in version.
func (p *prompts) render(name string, args ...any) string {
	out := fmt.Sprintf(p.load(name), args...)
	if strings.Contains(out, "%!") {
		logger.Warn("Prompt %q has mismatched placeholders, using built-in", name)
		out = fmt.Sprintf(DefaultPrompts()[name], args...)
	}
	return out
}
