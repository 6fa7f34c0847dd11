package domain

import "time"

// ChatRole is the author of a chat turn.
type ChatRole string

// Chat roles.
const (
	RoleUser      ChatRole = "user"
	RoleAssistant ChatRole = "assistant"
)

// IsValid returns true if the role is recognised.
func (r ChatRole) IsValid() bool {
	return r == RoleUser || r == RoleAssistant
}

// ChatTurn is one message in a conversation.
type ChatTurn struct {
	Role    ChatRole `json:"role"`
	Content string   `json:"content"`
}

// Summary is the cached overview of a document for one owner.
type Summary struct {
	// DocumentID is the fingerprint of the summarised document.
	DocumentID string `json:"pdf_id"`

	// Owner is the subject of the owning identity.
	Owner string `json:"user_id"`

	// Overview is the generated high-level summary.
	Overview string `json:"overview"`

	// SuggestedQuestions are short follow-up questions.
	SuggestedQuestions []string `json:"suggested_questions"`

	// Version increases on every forced regeneration.
	Version int `json:"version"`

	// UpdatedAt is when the summary was last generated.
	UpdatedAt time.Time `json:"updated_at"`
}
