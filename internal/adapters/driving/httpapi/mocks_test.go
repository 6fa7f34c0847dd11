package httpapi

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/adapters/driving/httpapi/auth"
	"github.com/custodia-labs/docqa/internal/core/domain"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var alice = domain.Identity{Subject: "alice", Email: "alice@example.com", Name: "Alice"}

type mockIngest struct {
	mu     sync.Mutex
	got    domain.IngestRequest
	result *domain.IngestResult
	err    error
}

func (m *mockIngest) Ingest(_ context.Context, req domain.IngestRequest) (*domain.IngestResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.got = req
	return m.result, m.err
}

type mockDocuments struct {
	records []domain.DocumentRecord
	deleted string
	err     error
}

func (m *mockDocuments) List(_ context.Context, owner domain.Identity) ([]domain.DocumentRecord, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []domain.DocumentRecord
	for _, r := range m.records {
		if r.Owner == owner.Subject {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockDocuments) Get(_ context.Context, owner domain.Identity, id string) (*domain.DocumentRecord, error) {
	for _, r := range m.records {
		if r.Owner == owner.Subject && r.ID == id {
			return &r, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockDocuments) Delete(ctx context.Context, owner domain.Identity, id string) error {
	if _, err := m.Get(ctx, owner, id); err != nil {
		return err
	}
	m.deleted = id
	return nil
}

type mockAnswers struct {
	got    domain.Question
	answer *domain.Answer
	events []domain.StreamEvent
	err    error
}

func (m *mockAnswers) Ask(_ context.Context, q domain.Question) (*domain.Answer, error) {
	m.got = q
	return m.answer, m.err
}

func (m *mockAnswers) AskStream(_ context.Context, q domain.Question) (<-chan domain.StreamEvent, error) {
	m.got = q
	if m.err != nil {
		return nil, m.err
	}
	ch := make(chan domain.StreamEvent, len(m.events))
	for _, ev := range m.events {
		ch <- ev
	}
	close(ch)
	return ch, nil
}

// mockChat keys conversations by owner subject and conversation ID.
type mockChat struct {
	turns map[string][]domain.ChatTurn
}

func chatKey(owner domain.Identity, id string) string {
	return owner.Subject + ":" + id
}

func (m *mockChat) History(_ context.Context, owner domain.Identity, id string) ([]domain.ChatTurn, error) {
	return m.turns[chatKey(owner, id)], nil
}

func (m *mockChat) Reset(_ context.Context, owner domain.Identity, id string) error {
	delete(m.turns, chatKey(owner, id))
	return nil
}

type mockSummaries struct {
	summary *domain.Summary
	forced  bool
	err     error
}

func (m *mockSummaries) Get(_ context.Context, _ domain.Identity, _ string) (*domain.Summary, error) {
	if m.summary == nil {
		return nil, domain.ErrNotFound
	}
	return m.summary, nil
}

func (m *mockSummaries) Summarize(_ context.Context, owner domain.Identity, id string, force bool) (*domain.Summary, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.forced = force
	version := 1
	if m.summary != nil {
		version = m.summary.Version
		if force {
			version++
		}
	}
	m.summary = &domain.Summary{DocumentID: id, Owner: owner.Subject, Overview: "overview", Version: version}
	return m.summary, nil
}

type testEnv struct {
	server    *Server
	tokens    *auth.Manager
	ingest    *mockIngest
	documents *mockDocuments
	answers   *mockAnswers
	chat      *mockChat
	summaries *mockSummaries
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	tokens, err := auth.NewManager("test-secret", time.Hour)
	require.NoError(t, err)

	env := &testEnv{
		tokens:    tokens,
		ingest:    &mockIngest{},
		documents: &mockDocuments{},
		answers:   &mockAnswers{},
		chat:      &mockChat{turns: map[string][]domain.ChatTurn{}},
		summaries: &mockSummaries{},
	}
	env.server = NewServer(Config{Version: "test", MaxUploadBytes: 1 << 20}, Services{
		Ingest:    env.ingest,
		Documents: env.documents,
		Answers:   env.answers,
		Chat:      env.chat,
		Summaries: env.summaries,
	}, tokens)
	return env
}

func (e *testEnv) bearer(t *testing.T, id domain.Identity) string {
	t.Helper()
	token, err := e.tokens.Issue(id)
	require.NoError(t, err)
	return "Bearer " + token
}
