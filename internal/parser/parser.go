// Package parser extracts tags and a display title from journal entry text.
package parser

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxTitleRunes bounds the derived title length.
const MaxTitleRunes = 80

var tagRe = regexp.MustCompile(`(?:^|\s)#([A-Za-z][A-Za-z0-9_/-]*)`)

// Result holds the output of parsing an entry.
type Result struct {
	Title string
	Tags  []string
}

// Parse derives a title and the inline #tags from entry text.
func Parse(text string) Result {
	return Result{
		Title: deriveTitle(text),
		Tags:  extractTags(text),
	}
}

// extractTags collects #tags in order of first appearance, lowercased and
// deduplicated.
func extractTags(text string) []string {
	matches := tagRe.FindAllStringSubmatch(text, -1)
	seen := make(map[string]struct{}, len(matches))
	var out []string
	for _, m := range matches {
		t := strings.ToLower(m[1])
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// deriveTitle returns the first non-blank line, shortened to MaxTitleRunes.
func deriveTitle(text string) string {
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if utf8.RuneCountInString(trimmed) <= MaxTitleRunes {
			return trimmed
		}
		runes := []rune(trimmed)
		return strings.TrimSpace(string(runes[:MaxTitleRunes-1])) + "…"
	}
	return ""
}
