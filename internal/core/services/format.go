package services

import (
	"regexp"
	"strings"
)

// Markdown clean-up rules, applied in order.
var markdownRules = []struct {
	re   *regexp.Regexp
	repl string
}{
	// "** bold **" -> "**bold**"
	{regexp.MustCompile(`\*\*\s+(.*?)\s+\*\*`), "**${1}**"},
	// blank line before numbered items
	{regexp.MustCompile(`([^\n])(\d+\.\s)`), "${1}\n\n${2}"},
	// blank line before bullets
	{regexp.MustCompile(`([^\n])(-\s)`), "${1}\n\n${2}"},
	// space after heading markers
	{regexp.MustCompile(`(#+)([^#\s])`), "${1} ${2}"},
	// blank line before headings
	{regexp.MustCompile(`\n(#+)`), "\n\n${1}"},
	{regexp.MustCompile(`\n{3,}`), "\n\n"},
}

// NormalizeMarkdown tidies model output so lists and headings render.
func NormalizeMarkdown(text string) string {
	for _, rule := range markdownRules {
		text = rule.re.ReplaceAllString(text, rule.repl)
	}
	return strings.TrimSpace(text)
}
