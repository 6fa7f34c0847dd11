package domain

// AnswerMode selects the generation policy.
type AnswerMode string

// Available answer modes.
const (
	// AnswerModeStrict answers only from document context.
	AnswerModeStrict AnswerMode = "strict"

	// AnswerModeHybrid prefers document context and may use general knowledge.
	AnswerModeHybrid AnswerMode = "hybrid"
)

// IsValid returns true if the mode is recognised.
func (m AnswerMode) IsValid() bool {
	return m == AnswerModeStrict || m == AnswerModeHybrid
}

// String returns the string representation.
func (m AnswerMode) String() string {
	return string(m)
}

// Description returns a human-readable description of the mode.
func (m AnswerMode) Description() string {
	switch m {
	case AnswerModeStrict:
		return "Strict (document only)"
	case AnswerModeHybrid:
		return "Hybrid (document first, general knowledge allowed)"
	default:
		return unknownDescription
	}
}

// Strength grades how directly an answer is supported by context.
type Strength string

// Verification strengths.
const (
	StrengthStrong Strength = "strong"
	StrengthWeak   Strength = "weak"
	StrengthNone   Strength = "none"
)

// Verification is the verifier's judgment of a generated answer.
type Verification struct {
	Supported bool     `json:"supported"`
	Strength  Strength `json:"strength"`
}

// Unsupported is the fail-closed verification result.
var Unsupported = Verification{Supported: false, Strength: StrengthNone}

// AnswerType tells the caller where an answer came from.
type AnswerType string

// Answer types.
const (
	AnswerTypeDocument         AnswerType = "DOCUMENT"
	AnswerTypeMixed            AnswerType = "MIXED"
	AnswerTypeGeneralKnowledge AnswerType = "GENERAL_KNOWLEDGE"
)

// Confidence values attached to each answer type.
const (
	ConfidenceDocument         = 0.8
	ConfidenceMixed            = 0.4
	ConfidenceGeneralKnowledge = 0.1
)

// Classify maps a verification to the user-facing answer type and confidence.
// The mapping is total: anything other than supported+strong or
// supported+weak is general knowledge.
func (v Verification) Classify() (AnswerType, float64) {
	if v.Supported {
		switch v.Strength {
		case StrengthStrong:
			return AnswerTypeDocument, ConfidenceDocument
		case StrengthWeak:
			return AnswerTypeMixed, ConfidenceMixed
		}
	}
	return AnswerTypeGeneralKnowledge, ConfidenceGeneralKnowledge
}

// ExposesSources returns true if citations may be shown.
func (v Verification) ExposesSources() bool {
	return v.Supported && v.Strength == StrengthStrong
}

// Passage is a retrieved chunk with its similarity to the query.
type Passage struct {
	Chunk      Chunk
	Offset     int
	Similarity float64
}

// Retrieval is the context assembled for one question.
type Retrieval struct {
	// Context is the deduplicated passage text joined by blank lines.
	Context string

	// Passages are the surviving passages, most similar first.
	Passages []Passage

	// Sources are the unique (document, page) pairs, first-seen order.
	Sources []Source
}

// Question is a request to answer against one document.
type Question struct {
	// Owner is the asking identity.
	Owner Identity

	// DocumentID is the fingerprint of the document to query.
	DocumentID string

	// ConversationID keys chat memory. Empty disables history.
	ConversationID string

	// Text is the question.
	Text string

	// Mode is the answer policy. Empty means strict.
	Mode AnswerMode
}

// Answer is the final response to a question.
type Answer struct {
	Text           string     `json:"text"`
	Type           AnswerType `json:"answer_type"`
	Confidence     float64    `json:"confidence"`
	Sources        []string   `json:"sources"`
	ConversationID string     `json:"conversation_id,omitempty"`
}

// StreamEvent is one element of a streamed answer.
// Exactly one of Token, Err or Done is meaningful.
type StreamEvent struct {
	Token string
	Err   error
	Done  bool
}
