package chunker

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

func TestNew(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		p := New()
		if p.maxChars != DefaultMaxChars {
			t.Errorf("expected maxChars %d, got %d", DefaultMaxChars, p.maxChars)
		}
		if p.overlap != DefaultOverlap {
			t.Errorf("expected overlap %d, got %d", DefaultOverlap, p.overlap)
		}
		if p.minParagraph != DefaultMinParagraph {
			t.Errorf("expected minParagraph %d, got %d", DefaultMinParagraph, p.minParagraph)
		}
	})

	t.Run("custom values", func(t *testing.T) {
		p := New(WithMaxChars(500), WithOverlap(100), WithMinParagraph(5))
		if p.maxChars != 500 || p.overlap != 100 || p.minParagraph != 5 {
			t.Errorf("unexpected processor %+v", p)
		}
	})

	t.Run("overlap too large is reduced", func(t *testing.T) {
		p := New(WithMaxChars(100), WithOverlap(80))
		if p.overlap != 25 {
			t.Errorf("expected overlap 25, got %d", p.overlap)
		}
	})

	t.Run("invalid values ignored", func(t *testing.T) {
		p := New(WithMaxChars(0), WithOverlap(-1), WithMinParagraph(-3))
		if p.maxChars != DefaultMaxChars || p.overlap != DefaultOverlap || p.minParagraph != DefaultMinParagraph {
			t.Errorf("expected defaults, got %+v", p)
		}
	})
}

func TestProcessor_Name(t *testing.T) {
	if New().Name() != "chunker" {
		t.Errorf("expected name 'chunker', got '%s'", New().Name())
	}
}

func TestProcessor_Process_SkipsEmptyPages(t *testing.T) {
	p := New()
	doc := &driven.ChunkInput{
		Label: "empty.pdf",
		Pages: []domain.Page{{Number: 1, Text: "   \n\n  "}, {Number: 2, Text: ""}},
	}

	chunks, err := p.Process(context.Background(), doc, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 0 {
		t.Errorf("expected no chunks, got %d", len(chunks))
	}
}

func TestProcessor_Process_TagsSourceAndPage(t *testing.T) {
	p := New()
	doc := &driven.ChunkInput{
		Label: "guide.pdf",
		Pages: []domain.Page{
			{Number: 1, Text: "The first page talks about installation steps."},
			{Number: 3, Text: "The third page covers configuration in depth."},
		},
	}

	chunks, err := p.Process(context.Background(), doc, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks (one per page), got %d", len(chunks))
	}
	if chunks[0].Page != 1 || chunks[1].Page != 3 {
		t.Errorf("unexpected pages %d, %d", chunks[0].Page, chunks[1].Page)
	}
	for _, c := range chunks {
		if c.Source != "guide.pdf" {
			t.Errorf("expected source guide.pdf, got %q", c.Source)
		}
	}
}

func TestProcessor_Process_ParagraphFiltering(t *testing.T) {
	p := New()
	text := "Page 7\n\nAuthor: Jane\n\nISBN 12345\n\nThis paragraph is long enough to be kept."
	doc := &driven.ChunkInput{Label: "book.pdf", Pages: []domain.Page{{Number: 1, Text: text}}}

	chunks, err := p.Process(context.Background(), doc, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}

	got := chunks[0].Text
	if strings.Contains(got, "Page 7") {
		t.Errorf("short running header should be dropped: %q", got)
	}
	for _, want := range []string{"Author: Jane", "ISBN 12345", "long enough"} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in chunk %q", want, got)
		}
	}
}

func TestProcessor_Process_ParagraphWithoutBoundaries(t *testing.T) {
	p := New()
	text := "a heading without any terminal punctuation at all"
	doc := &driven.ChunkInput{Label: "x.pdf", Pages: []domain.Page{{Number: 1, Text: text}}}

	chunks, err := p.Process(context.Background(), doc, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 1 || chunks[0].Text != text {
		t.Errorf("expected the paragraph as one chunk, got %+v", chunks)
	}
}

func TestProcessor_Process_RespectsBudget(t *testing.T) {
	p := New(WithMaxChars(120), WithOverlap(20))
	text := strings.Repeat("Every sentence here is about thirty chars. ", 40)
	doc := &driven.ChunkInput{Label: "x.pdf", Pages: []domain.Page{{Number: 1, Text: text}}}

	chunks, err := p.Process(context.Background(), doc, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected several chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if n := utf8.RuneCountInString(c.Text); n > 120 {
			t.Errorf("chunk %d has %d chars, budget is 120", i, n)
		}
	}
}

func TestProcessor_Process_OverlapContinuity(t *testing.T) {
	p := New(WithMaxChars(100), WithOverlap(20))
	sentences := []string{
		"Alpha begins the story here.",
		"Bravo follows right after alpha.",
		"Charlie is the third sentence.",
		"Delta adds more words to it.",
		"Echo is nearly the last one.",
		"Foxtrot closes the paragraph.",
	}
	doc := &driven.ChunkInput{
		Label: "x.pdf",
		Pages: []domain.Page{{Number: 1, Text: strings.Join(sentences, " ")}},
	}

	chunks, err := p.Process(context.Background(), doc, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected overflow into several chunks, got %d", len(chunks))
	}

	// Each chunk after the first starts with the tail of its predecessor.
	for i := 1; i < len(chunks); i++ {
		tail := p.tail(chunks[i-1].Text)
		if !strings.HasPrefix(chunks[i].Text, tail+" ") {
			t.Errorf("chunk %d %q does not start with tail %q", i, chunks[i].Text, tail)
		}
	}

	// Removing the overlap restores the reading order with nothing lost.
	rebuilt := chunks[0].Text
	for i := 1; i < len(chunks); i++ {
		tail := p.tail(chunks[i-1].Text)
		rebuilt += " " + strings.TrimPrefix(chunks[i].Text, tail+" ")
	}
	if rebuilt != strings.Join(sentences, " ") {
		t.Errorf("rebuilt text differs:\n got %q\nwant %q", rebuilt, strings.Join(sentences, " "))
	}
}

func TestProcessor_Process_LongSentenceIsWindowed(t *testing.T) {
	p := New(WithMaxChars(60), WithOverlap(10))
	long := strings.Repeat("x", 200)
	doc := &driven.ChunkInput{Label: "x.pdf", Pages: []domain.Page{{Number: 1, Text: long}}}

	chunks, err := p.Process(context.Background(), doc, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	total := 0
	for _, c := range chunks {
		if utf8.RuneCountInString(c.Text) > 60 {
			t.Errorf("chunk exceeds budget: %d", utf8.RuneCountInString(c.Text))
		}
		total += strings.Count(c.Text, "x")
	}
	if total < 200 {
		t.Errorf("expected every character to be kept, counted %d", total)
	}
}

func TestProcessor_Process_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	doc := &driven.ChunkInput{Label: "x.pdf", Pages: []domain.Page{{Number: 1, Text: "Some text here."}}}
	if _, err := New().Process(ctx, doc, nil); err == nil {
		t.Error("expected context error")
	}
}

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"simple", "One. Two! Three?", []string{"One.", "Two!", "Three?"}},
		{"decimal stays", "Pi is 3.14 roughly. Next.", []string{"Pi is 3.14 roughly.", "Next."}},
		{"closing quote", `He said "stop." Then left.`, []string{`He said "stop."`, "Then left."}},
		{"no terminator", "just words", []string{"just words"}},
		{"newlines collapsed", "Line one\ncontinues. Two.", []string{"Line one continues.", "Two."}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitSentences(tt.text)
			if strings.Join(got, "|") != strings.Join(tt.want, "|") {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
