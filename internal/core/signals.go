package core

// BugSignals is the structured summary of a report. It is produced once per
// run and only read afterwards.
type BugSignals struct {
	Keywords         []string `json:"keywords"`
	Categories       []string `json:"categories"`
	Confidence       float64  `json:"confidence"`
	SuspectedSymbols []string `json:"suspected_symbols,omitempty"`
	Summary          string   `json:"summary,omitempty"`
	Severity         string   `json:"severity,omitempty"`
	// Degraded is set when the signals came from the deterministic fallback
	// instead of the model.
	Degraded bool `json:"degraded"`
}
