package mcp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

func TestNewServer(t *testing.T) {
	t.Run("nil answer service returns error", func(t *testing.T) {
		ports := &Ports{Documents: &mockDocumentService{}}
		server, err := NewServer(ports)
		require.Error(t, err)
		assert.Nil(t, server)
		assert.ErrorIs(t, err, ErrMissingAnswerService)
	})

	t.Run("valid ports creates server", func(t *testing.T) {
		ports := &Ports{
			Answers:   &mockAnswerService{},
			Documents: &mockDocumentService{},
		}
		server, err := NewServer(ports)
		require.NoError(t, err)
		assert.NotNil(t, server)
	})
}

func TestPorts_Validate(t *testing.T) {
	t.Run("nil document service returns error", func(t *testing.T) {
		ports := &Ports{Answers: &mockAnswerService{}}
		err := ports.Validate()
		assert.ErrorIs(t, err, ErrMissingDocumentService)
	})

	t.Run("missing owner defaults to local identity", func(t *testing.T) {
		ports := &Ports{
			Answers:   &mockAnswerService{},
			Documents: &mockDocumentService{},
		}
		require.NoError(t, ports.Validate())
		assert.Equal(t, domain.LocalIdentity, ports.Owner)
	})

	t.Run("configured owner is kept", func(t *testing.T) {
		owner := domain.Identity{Subject: "alice"}
		ports := &Ports{
			Answers:   &mockAnswerService{},
			Documents: &mockDocumentService{},
			Summaries: &mockSummaryService{},
			Owner:     owner,
		}
		require.NoError(t, ports.Validate())
		assert.Equal(t, owner, ports.Owner)
	})
}
