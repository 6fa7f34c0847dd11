package messages

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

func TestViewType_String(t *testing.T) {
	tests := []struct {
		view     ViewType
		expected string
	}{
		{ViewDocuments, "documents"},
		{ViewChat, "chat"},
		{ViewHelp, "help"},
		{ViewType(42), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.view.String())
		})
	}
}

func TestViewChanged(t *testing.T) {
	msg := ViewChanged{View: ViewChat}
	assert.Equal(t, ViewChat, msg.View)
}

func TestAnswerReceived(t *testing.T) {
	answer := &domain.Answer{Text: "42", Type: domain.AnswerTypeDocument}

	ok := AnswerReceived{Answer: answer}
	assert.Equal(t, "42", ok.Answer.Text)
	assert.NoError(t, ok.Err)

	failed := AnswerReceived{Err: errors.New("boom")}
	assert.Nil(t, failed.Answer)
	assert.EqualError(t, failed.Err, "boom")
}

func TestSummaryLoaded_NoneYet(t *testing.T) {
	msg := SummaryLoaded{}
	assert.Nil(t, msg.Summary)
	assert.NoError(t, msg.Err)
}

func TestDocumentSelected(t *testing.T) {
	msg := DocumentSelected{Document: domain.DocumentRecord{ID: "abc", Name: "report.pdf"}}
	assert.Equal(t, "abc", msg.Document.ID)
}
