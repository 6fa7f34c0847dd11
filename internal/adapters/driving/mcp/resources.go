package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

const (
	// uriScheme is the custom URI scheme for docqa resources.
	uriScheme = "docqa://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	// Static resource for listing documents.
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "documents",
		Name:        "documents",
		Description: "Indexed documents of the current owner",
		MIMEType:    "application/json",
	}, s.handleDocumentsResource)

	if s.ports.Summaries == nil {
		return
	}

	// Template for cached summaries. Reading never generates one.
	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "documents/{documentId}/summary",
		Name:        "document-summary",
		Description: "Cached overview and suggested questions of a document",
		MIMEType:    "text/markdown",
	}, s.handleSummaryResource)
}

// handleDocumentsResource returns the owner's documents.
func (s *Server) handleDocumentsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	records, err := s.ports.Documents.List(ctx, s.ports.Owner)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}

	type docInfo struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		Indexed bool   `json:"indexed"`
	}

	infos := make([]docInfo, len(records))
	for i := range records {
		infos[i] = docInfo{
			ID:      records[i].ID,
			Name:    records[i].Name,
			Indexed: records[i].Indexed,
		}
	}

	data, err := json.MarshalIndent(infos, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling documents: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// handleSummaryResource renders a cached summary as markdown.
func (s *Server) handleSummaryResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	docID := extractSummaryDocumentID(req.Params.URI)
	if docID == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	summary, err := s.ports.Summaries.Get(ctx, s.ports.Owner, docID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	if err != nil {
		return nil, fmt.Errorf("getting summary: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "text/markdown",
			Text:     renderSummary(summary),
		}},
	}, nil
}

func renderSummary(summary *domain.Summary) string {
	var b strings.Builder
	b.WriteString(summary.Overview)
	if len(summary.SuggestedQuestions) > 0 {
		b.WriteString("\n\n## Suggested questions\n\n")
		for _, q := range summary.SuggestedQuestions {
			b.WriteString("- ")
			b.WriteString(q)
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// extractSummaryDocumentID extracts the document ID from a URI like
// docqa://documents/{documentId}/summary.
func extractSummaryDocumentID(uri string) string {
	const prefix = uriScheme + "documents/"
	const suffix = "/summary"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}

	uri = strings.TrimPrefix(uri, prefix)
	if !strings.HasSuffix(uri, suffix) {
		return ""
	}

	id := strings.TrimSuffix(uri, suffix)
	if strings.Contains(id, "/") {
		return ""
	}
	return id
}
