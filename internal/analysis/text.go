package analysis

import (
	"fmt"
	"math"
	"strings"
	"unicode"
	"unicode/utf8"
)

const minFallbackTokenRunes = 4

var stopwords = map[string]bool{
	"about": true, "after": true, "again": true, "also": true, "because": true,
	"been": true, "before": true, "being": true, "could": true,
	"does": true, "doesn": true, "down": true, "each": true, "even": true,
	"every": true, "from": true, "have": true, "having": true, "here": true,
	"into": true, "just": true, "like": true, "more": true, "most": true,
	"much": true, "only": true, "other": true, "over": true, "same": true,
	"should": true, "some": true, "still": true, "such": true, "than": true,
	"that": true, "their": true, "them": true, "then": true, "there": true,
	"these": true, "they": true, "this": true, "those": true, "through": true,
	"time": true, "under": true, "until": true, "very": true, "want": true,
	"were": true, "what": true, "when": true, "where": true, "which": true,
	"while": true, "will": true, "with": true, "without": true, "would": true,
	"your": true, "error": true, "issue": true, "problem": true,
	"있습니다": true, "했습니다": true, "않습니다": true, "되었습니다": true, "발생합니다": true,
	"그렇지만": true, "그러므로": true,
}

// fallbackKeywords returns the alphanumeric tokens of text with at least four
// runes, lowercased, minus stop-words, in order of first appearance.
func fallbackKeywords(text string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, tok := range strings.FieldsFunc(text, func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_')
	}) {
		tok = strings.ToLower(tok)
		if utf8.RuneCountInString(tok) < minFallbackTokenRunes || stopwords[tok] || seen[tok] {
			continue
		}
		seen[tok] = true
		out = append(out, tok)
	}
	return out
}

// dedupe trims items and drops empty and repeated ones, comparing
// case-insensitively and keeping the first spelling.
func dedupe(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, it := range items {
		it = strings.TrimSpace(it)
		key := strings.ToLower(it)
		if it == "" || seen[key] || isUnknown(key) {
			continue
		}
		seen[key] = true
		out = append(out, it)
	}
	return out
}

func isUnknown(s string) bool {
	switch s {
	case "unknown", "n/a", "none", "알 수 없음", "모름":
		return true
	}
	return false
}

// numberLines prefixes each line of the chunk with its line number and
// truncates the result to maxChars runes.
func numberLines(text string, startLine, maxChars int) string {
	lines := strings.Split(text, "\n")
	width := len(fmt.Sprint(startLine + len(lines) - 1))
	var b strings.Builder
	for i, line := range lines {
		fmt.Fprintf(&b, "%*d | %s\n", width, startLine+i, line)
	}
	return truncateRunes(strings.TrimSuffix(b.String(), "\n"), maxChars)
}

func truncateRunes(s string, maxChars int) string {
	if maxChars <= 0 || utf8.RuneCountInString(s) <= maxChars {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxChars]) + "\n... (truncated)"
}

// clamp maps v into [lo, hi]; NaN maps to lo.
func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return max(lo, min(hi, v))
}
