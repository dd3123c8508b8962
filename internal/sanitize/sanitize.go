// Package sanitize cleans user free text before it is interpolated into a
// generation request.
package sanitize

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
)

// DefaultMaxLength bounds a single free-text field, in runes.
const DefaultMaxLength = 500

// Filtered replaces any neutralized phrase.
const Filtered = "[filtered]"

var injectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(ignore|disregard|forget|override)\s+(all\s+|any\s+)?(of\s+)?(the\s+|your\s+|my\s+)?(previous|prior|above|earlier|preceding|system)\s+(instructions?|prompts?|rules|messages|context)`),
	regexp.MustCompile(`(?i)\byou\s+are\s+(now|no\s+longer)\b`),
	regexp.MustCompile(`(?i)\b(act|pretend|behave)\s+as\s+(if\s+you\s+were\s+|an?\s+)?(system|developer|admin|jailbroken|dan)\b`),
	regexp.MustCompile(`(?i)\bnew\s+(system\s+)?instructions?\s*:`),
	regexp.MustCompile(`(?i)(^|\s)(system|assistant|developer)\s*:`),
	regexp.MustCompile(`<\|[^|>]*\|>`),
	regexp.MustCompile(`(?i)\[/?(inst|sys)\]`),
	regexp.MustCompile("```+"),
	regexp.MustCompile(`<<<|>>>`),
}

var whitespace = regexp.MustCompile(`\s+`)

// htmlTag matches an opening, closing or self-closing element tag or a comment.
var htmlTag = regexp.MustCompile(`<!--.*?-->|</?[a-zA-Z][a-zA-Z0-9-]*(\s[^<>]*)?/?>`)

// Text cleans s with DefaultMaxLength.
func Text(s string) string {
	return Clean(s, DefaultMaxLength)
}

// Clean strips markup and control characters, collapses whitespace,
// neutralizes prompt-injection phrasings and truncates to maxLen runes.
func Clean(s string, maxLen int) string {
	if htmlTag.MatchString(s) {
		s = stripHTML(s)
	}
	s = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' || r == '\r' {
			return ' '
		}
		if unicode.IsControl(r) || r == unicode.ReplacementChar {
			return -1
		}
		return r
	}, s)
	for _, p := range injectionPatterns {
		s = p.ReplaceAllString(s, " "+Filtered+" ")
	}
	s = strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
	return truncate(s, maxLen)
}

// List cleans every entry and drops the ones that end up empty.
func List(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if c := Text(item); c != "" {
			out = append(out, c)
		}
	}
	return out
}

// stripHTML drops markup. A '<' outside a tag is escaped first so the parser
// does not read the rest of the text as an unclosed element.
func stripHTML(s string) string {
	var sb strings.Builder
	last := 0
	for _, loc := range htmlTag.FindAllStringIndex(s, -1) {
		sb.WriteString(strings.ReplaceAll(s[last:loc[0]], "<", "&lt;"))
		sb.WriteString(s[loc[0]:loc[1]])
		last = loc[1]
	}
	sb.WriteString(strings.ReplaceAll(s[last:], "<", "&lt;"))

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(sb.String()))
	if err != nil {
		return s
	}
	doc.Find("script,style,noscript,iframe").Remove()
	return doc.Text()
}

func truncate(s string, maxLen int) string {
	if maxLen <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return strings.TrimSpace(string(runes[:maxLen]))
}
