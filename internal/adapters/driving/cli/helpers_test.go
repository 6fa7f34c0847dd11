package cli

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// mockSettings implements driving.SettingsService for testing.
type mockSettings struct {
	settings domain.AppSettings
	getErr   error

	keys   map[domain.AIProvider]string
	mode   domain.AnswerMode
	unset  []string
	embErr error
	llmErr error
}

func newMockSettings() *mockSettings {
	s := domain.DefaultAppSettings()
	return &mockSettings{settings: s, keys: make(map[domain.AIProvider]string)}
}

func (m *mockSettings) Get() (*domain.AppSettings, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	s := m.settings
	return &s, nil
}

func (m *mockSettings) SetAPIKey(p domain.AIProvider, key string) error {
	m.keys[p] = key
	return nil
}

func (m *mockSettings) SetAnswerMode(mode domain.AnswerMode) error {
	m.mode = mode
	return nil
}

func (m *mockSettings) GetDefaults() domain.AppSettings { return domain.DefaultAppSettings() }

func (m *mockSettings) ValidateEmbeddingConfig(context.Context) error { return m.embErr }

func (m *mockSettings) ValidateLLMConfig(context.Context) error { return m.llmErr }

func (m *mockSettings) Unset(key string) error {
	if key == "" {
		return domain.ErrInvalidInput
	}
	m.unset = append(m.unset, key)
	return nil
}

func (m *mockSettings) ConfigPath() string { return "/home/test/.docqa/config.toml" }

// mockDocuments implements driving.DocumentService over a fixed list.
type mockDocuments struct {
	records []domain.DocumentRecord
	deleted []string
	owners  []domain.Identity
}

func (m *mockDocuments) List(_ context.Context, owner domain.Identity) ([]domain.DocumentRecord, error) {
	m.owners = append(m.owners, owner)
	return m.records, nil
}

func (m *mockDocuments) Get(_ context.Context, _ domain.Identity, id string) (*domain.DocumentRecord, error) {
	for _, r := range m.records {
		if r.ID == id {
			return &r, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockDocuments) Delete(_ context.Context, _ domain.Identity, id string) error {
	m.deleted = append(m.deleted, id)
	return nil
}

type mockIngest struct {
	requests []domain.IngestRequest
	result   *domain.IngestResult
	err      error
}

func (m *mockIngest) Ingest(_ context.Context, req domain.IngestRequest) (*domain.IngestResult, error) {
	m.requests = append(m.requests, req)
	if m.err != nil {
		return nil, m.err
	}
	res := *m.result
	res.Name = req.Name
	return &res, nil
}

type mockAnswers struct {
	questions []domain.Question
	answer    *domain.Answer
	tokens    []string
	streamErr error
}

func (m *mockAnswers) Ask(_ context.Context, q domain.Question) (*domain.Answer, error) {
	m.questions = append(m.questions, q)
	if m.answer == nil {
		return nil, domain.ErrLLMUnavailable
	}
	return m.answer, nil
}

func (m *mockAnswers) AskStream(_ context.Context, q domain.Question) (<-chan domain.StreamEvent, error) {
	m.questions = append(m.questions, q)
	ch := make(chan domain.StreamEvent, len(m.tokens)+1)
	for _, tok := range m.tokens {
		ch <- domain.StreamEvent{Token: tok}
	}
	if m.streamErr != nil {
		ch <- domain.StreamEvent{Err: m.streamErr}
	} else {
		ch <- domain.StreamEvent{Done: true}
	}
	close(ch)
	return ch, nil
}

type mockChat struct {
	turns  map[string][]domain.ChatTurn
	reset  []string
	owners []string
}

func (m *mockChat) History(_ context.Context, owner domain.Identity, id string) ([]domain.ChatTurn, error) {
	m.owners = append(m.owners, owner.Subject)
	return m.turns[id], nil
}

func (m *mockChat) Reset(_ context.Context, owner domain.Identity, id string) error {
	m.owners = append(m.owners, owner.Subject)
	m.reset = append(m.reset, id)
	return nil
}

type mockSummaries struct {
	existing *domain.Summary
	forced   []bool
}

func (m *mockSummaries) Get(context.Context, domain.Identity, string) (*domain.Summary, error) {
	if m.existing == nil {
		return nil, domain.ErrNotFound
	}
	return m.existing, nil
}

func (m *mockSummaries) Summarize(_ context.Context, _ domain.Identity, id string, force bool) (*domain.Summary, error) {
	m.forced = append(m.forced, force)
	version := 1
	if force {
		version = 2
	}
	return &domain.Summary{
		DocumentID:         id,
		Overview:           "Leave and expenses policy.",
		SuggestedQuestions: []string{"Who approves leave?", "How are expenses claimed?"},
		Version:            version,
	}, nil
}

// fixture holds the mocks wired behind the CLI for one test.
type fixture struct {
	settings  *mockSettings
	documents *mockDocuments
	ingest    *mockIngest
	answers   *mockAnswers
	chat      *mockChat
	summaries *mockSummaries
	closed    bool
}

func handbook() domain.DocumentRecord {
	return domain.DocumentRecord{
		ID: "3f2a9c0d1e2f3a4b5c6d", Name: "handbook.pdf", Indexed: true, ChunkCount: 42,
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		settings:  newMockSettings(),
		documents: &mockDocuments{records: []domain.DocumentRecord{handbook()}},
		ingest:    &mockIngest{result: &domain.IngestResult{DocumentID: "abcdef0123456789", Chunks: 7}},
		answers:   &mockAnswers{},
		chat:      &mockChat{turns: map[string][]domain.ChatTurn{}},
		summaries: &mockSummaries{},
	}

	SetSettingsService(f.settings)
	SetLoader(func(context.Context) (*Services, error) {
		return &Services{
			Ingest:    f.ingest,
			Documents: f.documents,
			Answers:   f.answers,
			Chat:      f.chat,
			Summaries: f.summaries,
			Close: func() error {
				f.closed = true
				return nil
			},
		}, nil
	})
	t.Cleanup(func() {
		SetSettingsService(nil)
		SetLoader(nil)
	})
	return f
}

// execute runs the root command with args and returns combined output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}

// resetFlags restores every flag to its default so runs do not leak state.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

var errBoom = errors.New("boom")
