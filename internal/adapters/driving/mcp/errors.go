// Package mcp provides an MCP (Model Context Protocol) server adapter for docqa.
// It lets AI assistants ask grounded questions about indexed documents.
package mcp

import "errors"

// Port errors returned by NewServer.
var (
	// ErrMissingAnswerService is returned when the answer service is not provided.
	ErrMissingAnswerService = errors.New("mcp: answer service is required")

	// ErrMissingDocumentService is returned when the document service is not provided.
	ErrMissingDocumentService = errors.New("mcp: document service is required")
)
