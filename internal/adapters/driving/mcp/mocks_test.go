package mcp

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// mockAnswerService is a mock implementation of driving.AnswerService.
type mockAnswerService struct {
	got    domain.Question
	answer *domain.Answer
	err    error
}

func (m *mockAnswerService) Ask(_ context.Context, q domain.Question) (*domain.Answer, error) {
	m.got = q
	return m.answer, m.err
}

func (m *mockAnswerService) AskStream(_ context.Context, _ domain.Question) (<-chan domain.StreamEvent, error) {
	return nil, m.err
}

// mockDocumentService is a mock implementation of driving.DocumentService.
type mockDocumentService struct {
	owner     domain.Identity
	documents []domain.DocumentRecord
	err       error
}

func (m *mockDocumentService) List(_ context.Context, owner domain.Identity) ([]domain.DocumentRecord, error) {
	m.owner = owner
	return m.documents, m.err
}

func (m *mockDocumentService) Get(_ context.Context, _ domain.Identity, _ string) (*domain.DocumentRecord, error) {
	return nil, m.err
}

func (m *mockDocumentService) Delete(_ context.Context, _ domain.Identity, _ string) error {
	return m.err
}

// mockSummaryService is a mock implementation of driving.SummaryService.
type mockSummaryService struct {
	summary *domain.Summary
	forced  bool
	err     error
}

func (m *mockSummaryService) Get(_ context.Context, _ domain.Identity, _ string) (*domain.Summary, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.summary == nil {
		return nil, domain.ErrNotFound
	}
	return m.summary, nil
}

func (m *mockSummaryService) Summarize(
	_ context.Context, _ domain.Identity, _ string, force bool,
) (*domain.Summary, error) {
	m.forced = force
	return m.summary, m.err
}
