package core

import (
	"fmt"
	"strings"
)

// Confidence is the model's own assessment of a judgment or suggestion.
type Confidence int

const (
	ConfidenceLow Confidence = iota
	ConfidenceMedium
	ConfidenceHigh
)

func (c Confidence) String() string {
	switch c {
	case ConfidenceHigh:
		return "high"
	case ConfidenceMedium:
		return "medium"
	default:
		return "low"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (c Confidence) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText accepts the same labels as ParseConfidence.
func (c *Confidence) UnmarshalText(b []byte) error {
	*c = ParseConfidence(string(b))
	return nil
}

// ParseConfidence maps a free-form label to a Confidence. Unknown labels map
// to ConfidenceLow.
func ParseConfidence(s string) Confidence {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high", "높음", "상":
		return ConfidenceHigh
	case "medium", "med", "moderate", "중간", "보통", "중":
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// CodeReference is a single line the model pointed at, with its reason.
type CodeReference struct {
	Line   int    `json:"line"`
	Code   string `json:"code"`
	Reason string `json:"reason"`
}

// RelevanceJudgment is the model's assessment of one chunk.
type RelevanceJudgment struct {
	Chunk        SourceChunk     `json:"chunk"`
	Score        float64         `json:"score"`
	SuspectLines []int           `json:"suspect_lines,omitempty"`
	Rationale    string          `json:"rationale"`
	Confidence   Confidence      `json:"confidence"`
	References   []CodeReference `json:"references,omitempty"`
	// Failed marks a judgment synthesised after the model call failed.
	Failed bool `json:"failed,omitempty"`
}

// FailedJudgment is the stand-in for a chunk the model could not judge.
func FailedJudgment(chunk SourceChunk, err error) RelevanceJudgment {
	return RelevanceJudgment{
		Chunk:      chunk,
		Score:      0,
		Confidence: ConfidenceLow,
		Rationale:  fmt.Sprintf("judgment unavailable: %v", err),
		Failed:     true,
	}
}

// RankedResult holds judgments ordered by score descending, then file path
// ascending, then start line ascending.
type RankedResult struct {
	Judgments []RelevanceJudgment `json:"judgments"`
}

// Top returns at most n leading judgments.
func (r RankedResult) Top(n int) []RelevanceJudgment {
	if n < 0 || n > len(r.Judgments) {
		n = len(r.Judgments)
	}
	return r.Judgments[:n]
}
