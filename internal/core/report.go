package core

import (
	"strings"
	"unicode/utf8"
)

const maxTitleRunes = 120

// BugReport is the free-text description of observed misbehaviour. It is not
// modified after load.
type BugReport struct {
	Text     string `json:"text"`
	Title    string `json:"title,omitempty"`
	Reporter string `json:"reporter,omitempty"`
	Source   string `json:"source,omitempty"`
}

// NewBugReport builds a report from raw text. The first non-blank line becomes
// the title when it is short enough to be one.
func NewBugReport(text, source string) BugReport {
	r := BugReport{Text: text, Source: source}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if utf8.RuneCountInString(line) < maxTitleRunes {
			r.Title = line
		}
		break
	}
	return r
}

// IsEmpty reports whether the report carries no text at all.
func (r BugReport) IsEmpty() bool {
	return strings.TrimSpace(r.Text) == ""
}
