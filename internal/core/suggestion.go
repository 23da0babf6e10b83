package core

// Anchor points a suggestion at a line range of one file.
type Anchor struct {
	FilePath  string `json:"file_path"`
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
}

// Overlaps reports whether both anchors touch the same lines of the same file.
func (a Anchor) Overlaps(b Anchor) bool {
	return a.FilePath == b.FilePath && a.StartLine <= b.EndLine && b.StartLine <= a.EndLine
}

// FixSuggestion is a proposed change tied to one or more locations.
type FixSuggestion struct {
	Anchors     []Anchor   `json:"anchors"`
	Change      string     `json:"change"`
	Rationale   string     `json:"rationale"`
	Confidence  Confidence `json:"confidence"`
	Placeholder bool       `json:"placeholder,omitempty"`
}
