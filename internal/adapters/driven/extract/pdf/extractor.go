// Package pdf extracts page text from PDF documents using poppler's pdftotext.
package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.PageExtractor = (*Extractor)(nil)

// MIMEType is the content type this extractor handles.
const MIMEType = "application/pdf"

const toolName = "pdftotext"

// pageBreak separates pages in pdftotext output.
const pageBreak = "\f"

// ErrPDFToolNotFound is returned when pdftotext is not installed.
var ErrPDFToolNotFound = errors.New("pdftotext not found in PATH")

// CommandRunner runs an external command and returns its standard output.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// execRunner runs commands with os/exec.
type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%w: %s", err, msg)
		}
		return nil, err
	}
	return out, nil
}

// Extractor turns PDF bytes into ordered pages.
type Extractor struct {
	runner CommandRunner
	check  func() error
}

// New creates an extractor that runs pdftotext from PATH.
func New() *Extractor {
	return &Extractor{runner: execRunner{}, check: CheckAvailable}
}

// NewWithRunner creates an extractor with a custom command runner.
func NewWithRunner(runner CommandRunner) *Extractor {
	return &Extractor{runner: runner, check: func() error { return nil }}
}

// SupportedMIMETypes returns the MIME types this extractor handles.
func (e *Extractor) SupportedMIMETypes() []string {
	return []string{MIMEType}
}

// Extract returns the text of every page in order. Pages keep their
// original numbers; pages without text are omitted.
func (e *Extractor) Extract(ctx context.Context, data []byte) ([]domain.Page, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("pdf: empty input: %w", domain.ErrInvalidInput)
	}
	if err := e.check(); err != nil {
		return nil, err
	}

	tmp, err := os.CreateTemp("", "docqa-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("pdf: create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("pdf: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("pdf: write temp file: %w", err)
	}

	out, err := e.runner.Run(ctx, toolName, "-q", "-enc", "UTF-8", tmp.Name(), "-")
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: pdftotext failed: %v", domain.ErrInvalidInput, err)
	}

	return splitPages(string(out)), nil
}

// splitPages cuts pdftotext output on form feeds.
func splitPages(out string) []domain.Page {
	var pages []domain.Page
	for i, text := range strings.Split(out, pageBreak) {
		text = strings.ReplaceAll(text, "\r\n", "\n")
		if strings.TrimSpace(text) == "" {
			continue
		}
		pages = append(pages, domain.Page{Number: i + 1, Text: text})
	}
	return pages
}

// CheckAvailable reports whether pdftotext can be found.
func CheckAvailable() error {
	if _, err := exec.LookPath(toolName); err != nil {
		return ErrPDFToolNotFound
	}
	return nil
}

// InstallInstructions describes how to install pdftotext.
func InstallInstructions() string {
	return `docqa needs pdftotext (from poppler) to read PDF files.

  macOS:          brew install poppler
  Debian/Ubuntu:  sudo apt install poppler-utils
  Fedora:         sudo dnf install poppler-utils
  Windows:        choco install poppler`
}
