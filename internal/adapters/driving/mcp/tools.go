package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// AskInput is the input schema for the ask tool.
type AskInput struct {
	DocumentID     string `json:"document_id" jsonschema:"fingerprint of the indexed document to ask about"`
	Question       string `json:"question" jsonschema:"the question to answer"`
	ConversationID string `json:"conversation_id,omitempty" jsonschema:"conversation to continue; omit for a one-off question"`
	Mode           string `json:"mode,omitempty" jsonschema:"strict (document only) or hybrid (general knowledge allowed)"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	Answer     string   `json:"answer"`
	AnswerType string   `json:"answer_type"`
	Confidence float64  `json:"confidence"`
	Sources    []string `json:"sources"`
}

// SummarizeInput is the input schema for the summarize tool.
type SummarizeInput struct {
	DocumentID string `json:"document_id" jsonschema:"fingerprint of the indexed document"`
	Regenerate bool   `json:"regenerate,omitempty" jsonschema:"discard the cached summary and generate a new version"`
}

// SummarizeOutput is the output schema for the summarize tool.
type SummarizeOutput struct {
	Overview           string   `json:"overview"`
	SuggestedQuestions []string `json:"suggested_questions"`
	Version            int      `json:"version"`
}

// ListDocumentsInput is the input schema for the list_documents tool.
type ListDocumentsInput struct{}

// ListDocumentsOutput is the output schema for the list_documents tool.
type ListDocumentsOutput struct {
	Documents []DocumentOutput `json:"documents"`
	Count     int              `json:"count"`
}

// DocumentOutput represents a single document.
type DocumentOutput struct {
	DocumentID string `json:"document_id"`
	Name       string `json:"name"`
	Indexed    bool   `json:"indexed"`
	Chunks     int    `json:"chunks"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name: "ask",
		Description: "Answer a question from an indexed document. The answer_type tells " +
			"whether the answer is grounded in the document (DOCUMENT), partly grounded " +
			"(MIXED) or not supported by it (GENERAL_KNOWLEDGE).",
	}, s.handleAsk)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_documents",
		Description: "List the indexed documents that can be asked about",
	}, s.handleListDocuments)

	if s.ports.Summaries != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "summarize",
			Description: "Summarize an indexed document and suggest questions to ask about it",
		}, s.handleSummarize)
	}
}

// handleAsk handles the ask tool invocation.
func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	if strings.TrimSpace(input.DocumentID) == "" {
		return nil, AskOutput{}, fmt.Errorf("document_id is required: %w", domain.ErrInvalidInput)
	}

	answer, err := s.ports.Answers.Ask(ctx, domain.Question{
		Owner:          s.ports.Owner,
		DocumentID:     input.DocumentID,
		ConversationID: input.ConversationID,
		Text:           input.Question,
		Mode:           domain.AnswerMode(strings.ToLower(input.Mode)),
	})
	if err != nil {
		return nil, AskOutput{}, err
	}

	sources := answer.Sources
	if sources == nil {
		sources = []string{}
	}
	return nil, AskOutput{
		Answer:     answer.Text,
		AnswerType: string(answer.Type),
		Confidence: answer.Confidence,
		Sources:    sources,
	}, nil
}

// handleListDocuments handles the list_documents tool invocation.
func (s *Server) handleListDocuments(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ ListDocumentsInput,
) (*mcp.CallToolResult, ListDocumentsOutput, error) {
	records, err := s.ports.Documents.List(ctx, s.ports.Owner)
	if err != nil {
		return nil, ListDocumentsOutput{}, err
	}

	output := ListDocumentsOutput{
		Documents: make([]DocumentOutput, len(records)),
		Count:     len(records),
	}
	for i := range records {
		output.Documents[i] = DocumentOutput{
			DocumentID: records[i].ID,
			Name:       records[i].Name,
			Indexed:    records[i].Indexed,
			Chunks:     records[i].ChunkCount,
		}
	}
	return nil, output, nil
}

// handleSummarize handles the summarize tool invocation.
func (s *Server) handleSummarize(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SummarizeInput,
) (*mcp.CallToolResult, SummarizeOutput, error) {
	summary, err := s.ports.Summaries.Summarize(ctx, s.ports.Owner, input.DocumentID, input.Regenerate)
	if err != nil {
		return nil, SummarizeOutput{}, err
	}

	questions := summary.SuggestedQuestions
	if questions == nil {
		questions = []string{}
	}
	return nil, SummarizeOutput{
		Overview:           summary.Overview,
		SuggestedQuestions: questions,
		Version:            summary.Version,
	}, nil
}
