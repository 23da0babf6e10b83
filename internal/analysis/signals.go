package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sevigo/bug-warden/internal/core"
	"github.com/sevigo/bug-warden/internal/knowledge"
	"github.com/sevigo/bug-warden/internal/llm"
)

const signalsSchema = `{"keywords": ["string"], "categories": ["string"], "confidence": 0.0, "suspected_functions": ["string"], "summary": "string", "severity": "low|medium|high|critical"}`

type signalsPromptData struct {
	Report      string
	Knowledge   string
	BugPatterns []string
	Schema      string
}

type signalsReply struct {
	Keywords           []string   `json:"keywords"`
	Categories         []string   `json:"categories"`
	Confidence         llm.Number `json:"confidence"`
	SuspectedFunctions []string   `json:"suspected_functions"`
	Summary            string     `json:"summary"`
	Severity           string     `json:"severity"`
	BugType            string     `json:"bug_type"`
}

// Extractor turns a bug report into BugSignals.
type Extractor struct {
	asker  asker
	logger *slog.Logger
}

// NewExtractor creates an extractor.
func NewExtractor(model LLM, prompts *llm.PromptManager, provider llm.ModelProvider, logger *slog.Logger) *Extractor {
	return &Extractor{
		asker:  asker{llm: model, prompts: prompts, provider: provider},
		logger: logger,
	}
}

// Extract asks the model for the report's signals. When the model fails the
// deterministic fallback is returned together with the error, so callers can
// always continue with the signals and treat the error as a warning.
func (e *Extractor) Extract(ctx context.Context, report core.BugReport, store *knowledge.Store) (core.BugSignals, error) {
	if report.IsEmpty() {
		signals := FallbackSignals(report)
		signals.Keywords = []string{}
		return signals, nil
	}

	patterns := store.Entries(core.CategoryBugPattern)
	data := signalsPromptData{
		Report:    report.Text,
		Knowledge: knowledge.Render(store.InText(report.Text)),
		Schema:    signalsSchema,
	}
	for _, p := range patterns {
		data.BugPatterns = append(data.BugPatterns, p.Term)
	}

	var reply signalsReply
	if err := e.asker.ask(ctx, llm.BugSignalsPrompt, data, signalsSchema, &reply); err != nil {
		e.logger.Warn("bug signal extraction failed, using keyword fallback", "error", err)
		return FallbackSignals(report), fmt.Errorf("bug signal extraction: %w", err)
	}

	signals := normalizeSignals(reply, patterns)
	e.logger.Info("bug signals extracted",
		"keywords", len(signals.Keywords),
		"categories", strings.Join(signals.Categories, ","),
		"confidence", signals.Confidence)
	return signals, nil
}

// FallbackSignals derives signals from the report text alone.
func FallbackSignals(report core.BugReport) core.BugSignals {
	return core.BugSignals{
		Keywords:   fallbackKeywords(report.Text),
		Categories: []string{},
		Confidence: 0,
		Degraded:   true,
	}
}

func normalizeSignals(reply signalsReply, patterns []core.KnowledgeEntry) core.BugSignals {
	symbols := dedupe(reply.SuspectedFunctions)
	cats := reply.Categories
	if len(cats) == 0 && reply.BugType != "" {
		cats = []string{reply.BugType}
	}

	return core.BugSignals{
		Keywords:         dedupe(append(append([]string{}, reply.Keywords...), symbols...)),
		Categories:       normalizeCategories(cats, patterns),
		Confidence:       clamp(float64(reply.Confidence), 0, 1),
		SuspectedSymbols: symbols,
		Summary:          strings.TrimSpace(reply.Summary),
		Severity:         strings.ToLower(strings.TrimSpace(reply.Severity)),
	}
}

// normalizeCategories keeps only categories naming a known bug pattern, using
// the pattern's own spelling. Without known patterns the model's categories
// are kept as given.
func normalizeCategories(cats []string, patterns []core.KnowledgeEntry) []string {
	cats = dedupe(cats)
	if len(patterns) == 0 {
		return cats
	}
	known := make(map[string]string, len(patterns))
	for _, p := range patterns {
		known[strings.ToLower(p.Term)] = p.Term
	}
	out := []string{}
	seen := make(map[string]bool)
	for _, c := range cats {
		term, ok := known[strings.ToLower(c)]
		if ok && !seen[term] {
			seen[term] = true
			out = append(out, term)
		}
	}
	return out
}
