package core

import "time"

// RunStats records the size of each stage of a run.
type RunStats struct {
	Files           int           `json:"files"`
	Chunks          int           `json:"chunks"`
	KnowledgeCount  int           `json:"knowledge_entries"`
	ScriptCount     int           `json:"script_entries"`
	Shortlisted     int           `json:"shortlisted"`
	Judged          int           `json:"judged"`
	FailedJudgments int           `json:"failed_judgments"`
	Duration        time.Duration `json:"duration"`
}

// AnalysisResult is everything a run produced, handed to the output layer.
type AnalysisResult struct {
	Report      BugReport       `json:"report"`
	Signals     BugSignals      `json:"signals"`
	Ranked      RankedResult    `json:"ranked"`
	Suggestions []FixSuggestion `json:"suggestions"`
	Warnings    []string        `json:"warnings,omitempty"`
	// Revision is the HEAD commit of the source tree when it is a git work tree.
	Revision string    `json:"revision,omitempty"`
	Stats    RunStats  `json:"stats"`
	Started  time.Time `json:"started"`
}
