package driven

// PromptStore provides access to LLM prompt templates.
// Implementations may load prompts from files, embed them in the binary,
// or fetch them from a remote configuration service.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	Reload()
}

// Well-known prompt names used throughout the application.
const (
	// PromptAnswer is the generation prompt.
	// Placeholders: %s rules, %s history, %s context, %s question.
	PromptAnswer = "answer"

	// PromptStrictRules are the rules for strict mode. No placeholders.
	PromptStrictRules = "rules_strict"

	// PromptHybridRules are the rules for hybrid mode. No placeholders.
	PromptHybridRules = "rules_hybrid"

	// PromptVerify asks for a JSON support judgment.
	// Placeholders: %s context, %s answer.
	PromptVerify = "verify"

	// PromptQuestions asks for suggested questions.
	// Placeholder: %s overview.
	PromptQuestions = "questions"
)

// PromptStoreAware is an optional interface for services that can use custom prompts.
type PromptStoreAware interface {
	// SetPromptStore sets the prompt store for loading customisable prompts.
	// If not set, the service should use built-in default prompts.
	SetPromptStore(store PromptStore)
}
