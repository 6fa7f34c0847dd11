// Package chunker provides a sentence-aware text chunking processor.
package chunker

import (
	"context"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Defaults for the chunker.
const (
	// DefaultMaxChars is the character budget of a chunk.
	DefaultMaxChars = 900

	// DefaultOverlap is the number of trailing characters carried into the next chunk.
	DefaultOverlap = 150

	// DefaultMinParagraph is the shortest paragraph kept without a metadata keyword.
	DefaultMinParagraph = 20
)

// metadataKeywords keep short paragraphs that carry bibliographic data.
var metadataKeywords = []string{"author", "isbn", "title"}

// blankLine matches paragraph boundaries, tolerating whitespace-only lines.
var blankLine = regexp.MustCompile(`\n[ \t\r]*\n`)

// Processor splits page text into overlapping sentence-aligned chunks.
// It implements the PostProcessor interface.
type Processor struct {
	maxChars     int
	overlap      int
	minParagraph int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithMaxChars sets the chunk budget in characters.
func WithMaxChars(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.maxChars = n
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// WithMinParagraph sets the shortest paragraph kept without a metadata keyword.
func WithMinParagraph(n int) Option {
	return func(p *Processor) {
		if n >= 0 {
			p.minParagraph = n
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		maxChars:     DefaultMaxChars,
		overlap:      DefaultOverlap,
		minParagraph: DefaultMinParagraph,
	}

	for _, opt := range opts {
		opt(p)
	}

	// The overlap plus a sentence window must fit in the budget.
	if p.overlap >= p.maxChars/2 {
		p.overlap = p.maxChars / 4
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// Process splits every page into chunks tagged with the document label and
// page number. Input chunks are ignored. The buffer is flushed at the end of
// each page so a chunk never spans pages.
func (p *Processor) Process(ctx context.Context, doc *driven.ChunkInput, _ []domain.Chunk) ([]domain.Chunk, error) {
	var chunks []domain.Chunk

	for _, page := range doc.Pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		text := strings.TrimSpace(page.Text)
		if text == "" {
			continue
		}

		for _, c := range p.chunkParagraphs(p.splitParagraphs(text)) {
			chunks = append(chunks, domain.Chunk{
				Text:   c,
				Source: doc.Label,
				Page:   page.Number,
			})
		}
	}

	return chunks, nil
}

// splitParagraphs returns the paragraph blocks worth keeping.
func (p *Processor) splitParagraphs(text string) []string {
	var paragraphs []string
	for _, block := range blankLine.Split(text, -1) {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		if utf8.RuneCountInString(block) >= p.minParagraph || hasMetadataKeyword(block) {
			paragraphs = append(paragraphs, block)
		}
	}
	return paragraphs
}

func hasMetadataKeyword(block string) bool {
	lower := strings.ToLower(block)
	for _, k := range metadataKeywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

// chunkParagraphs greedily packs sentences into chunks. On overflow the
// buffer is emitted and the next one starts with its tail followed by the
// sentence that did not fit.
func (p *Processor) chunkParagraphs(paragraphs []string) []string {
	var (
		chunks  []string
		current string
	)

	for _, para := range paragraphs {
		for _, sentence := range splitSentences(para) {
			for _, piece := range p.windows(sentence) {
				switch {
				case current == "":
					current = piece
				case runeLen(current)+1+runeLen(piece) <= p.maxChars:
					current += " " + piece
				default:
					chunks = append(chunks, current)
					current = joinNonEmpty(p.tail(current), piece)
				}
			}
		}
	}

	if strings.TrimSpace(current) != "" {
		chunks = append(chunks, current)
	}
	return chunks
}

// windows cuts a sentence longer than the budget into pieces that fit
// after an overlap tail.
func (p *Processor) windows(sentence string) []string {
	size := p.maxChars - p.overlap - 1
	if size <= 0 || runeLen(sentence) <= size {
		return []string{sentence}
	}

	runes := []rune(sentence)
	var pieces []string
	for start := 0; start < len(runes); start += size {
		end := min(start+size, len(runes))
		if piece := strings.TrimSpace(string(runes[start:end])); piece != "" {
			pieces = append(pieces, piece)
		}
	}
	return pieces
}

// tail returns the last overlap characters of s, starting at a word
// boundary when one is available.
func (p *Processor) tail(s string) string {
	if p.overlap == 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= p.overlap {
		return s
	}
	t := string(runes[len(runes)-p.overlap:])
	if i := strings.IndexByte(t, ' '); i >= 0 && i < len(t)-1 {
		t = t[i+1:]
	}
	return t
}

// splitSentences splits on terminal punctuation followed by whitespace.
// Text without a terminator is returned as one sentence. Internal whitespace
// is collapsed.
func splitSentences(text string) []string {
	text = strings.Join(strings.Fields(text), " ")

	var sentences []string
	start := 0
	for i := 0; i < len(text); i++ {
		if !isTerminal(text[i]) {
			continue
		}
		j := i + 1
		for j < len(text) && (isTerminal(text[j]) || isCloser(text[j])) {
			j++
		}
		if j == len(text) || text[j] == ' ' {
			if s := strings.TrimSpace(text[start:j]); s != "" {
				sentences = append(sentences, s)
			}
			start = j
		}
		i = j - 1
	}

	if s := strings.TrimSpace(text[start:]); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

func isTerminal(c byte) bool {
	return c == '.' || c == '!' || c == '?'
}

func isCloser(c byte) bool {
	return c == '"' || c == '\'' || c == ')' || c == ']'
}

func joinNonEmpty(a, b string) string {
	if a == "" {
		return b
	}
	return a + " " + b
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
