package analysis

import (
	"fmt"
	"strings"

	"github.com/sevigo/bug-warden/internal/core"
	"github.com/sevigo/bug-warden/internal/knowledge"
)

const maxKeywordLines = 5

// rankOffline fills res without any model call: report keywords drive the
// pre-filter and the filter score, scaled so the best chunk gets 10, becomes
// the relevance score.
func (p *Pipeline) rankOffline(res *core.AnalysisResult, report core.BugReport, chunks []core.SourceChunk, store *knowledge.Store, warn func(string, ...any)) {
	warn("offline mode: locations are ranked by keyword overlap only")

	signals := FallbackSignals(report)
	if report.IsEmpty() {
		signals.Keywords = []string{}
	}
	res.Signals = signals

	shortlist := p.shortlist(res, report, signals, chunks, store, warn)
	judgments := keywordJudgments(shortlist, signals.Keywords)
	res.Stats.Judged = len(judgments)
	res.Ranked = Rank(judgments)

	if cands := p.suggester.Candidates(res.Ranked); len(cands) > 0 {
		res.Suggestions = []core.FixSuggestion{placeholder(cands, "offline mode: no model was asked for a fix")}
	}
	p.logger.Info("offline analysis complete",
		"chunks", res.Stats.Chunks,
		"shortlisted", res.Stats.Shortlisted,
		"keywords", len(signals.Keywords))
}

// keywordJudgments turns shortlist scores into low-confidence judgments. The
// lines mentioning a keyword become the suspect lines.
func keywordJudgments(shortlist Shortlist, keywords []string) []core.RelevanceJudgment {
	best := 0.0
	for _, sc := range shortlist.Chunks {
		best = max(best, sc.Score)
	}
	lower := lowerAll(keywords)

	out := make([]core.RelevanceJudgment, 0, len(shortlist.Chunks))
	for _, sc := range shortlist.Chunks {
		j := core.RelevanceJudgment{
			Chunk:      sc.Chunk,
			Confidence: core.ConfidenceLow,
		}
		if best > 0 {
			j.Score = clamp(10*sc.Score/best, 0, 10)
		}
		var matched []string
		j.SuspectLines, matched = keywordLines(sc.Chunk, lower)
		if len(matched) > 0 {
			j.Rationale = fmt.Sprintf("mentions %s", strings.Join(matched, ", "))
		}
		out = append(out, j)
	}
	return out
}

// keywordLines returns up to maxKeywordLines line numbers of chunk containing
// a keyword, and the keywords found anywhere in it.
func keywordLines(chunk core.SourceChunk, keywords []string) ([]int, []string) {
	var (
		lines   []int
		matched []string
		seen    = make(map[string]bool)
	)
	for i, line := range strings.Split(strings.ToLower(chunk.Text), "\n") {
		hit := false
		for _, kw := range keywords {
			if kw == "" || !strings.Contains(line, kw) {
				continue
			}
			hit = true
			if !seen[kw] {
				seen[kw] = true
				matched = append(matched, kw)
			}
		}
		if hit && len(lines) < maxKeywordLines {
			lines = append(lines, chunk.StartLine+i)
		}
	}
	return lines, matched
}
