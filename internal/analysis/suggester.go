package analysis

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/sevigo/bug-warden/internal/config"
	"github.com/sevigo/bug-warden/internal/core"
	"github.com/sevigo/bug-warden/internal/knowledge"
	"github.com/sevigo/bug-warden/internal/llm"
)

const (
	fixSchema = `{"suggestions": [{"anchors": [{"file": "string", "start_line": 0, "end_line": 0}], "change": "string", "rationale": "string", "confidence": "high|medium|low"}]}`

	placeholderAnchors = 3
	placeholderChange  = "No concrete fix could be generated. Inspect the listed locations manually."
)

type candidateData struct {
	Rank         int
	Path         string
	StartLine    int
	EndLine      int
	Score        float64
	Rationale    string
	SuspectLines string
	Code         string
}

type fixPromptData struct {
	Report     string
	Summary    string
	Knowledge  string
	Candidates []candidateData
	Schema     string
}

type anchorReply struct {
	File      string     `json:"file"`
	FilePath  string     `json:"file_path"`
	StartLine llm.Number `json:"start_line"`
	EndLine   llm.Number `json:"end_line"`
}

type suggestionReply struct {
	Anchors    []anchorReply `json:"anchors"`
	Change     string        `json:"change"`
	Rationale  string        `json:"rationale"`
	Confidence string        `json:"confidence"`
}

// suggestionsReply accepts {"suggestions": [...]} or a bare array.
type suggestionsReply []suggestionReply

// UnmarshalJSON implements json.Unmarshaler.
func (s *suggestionsReply) UnmarshalJSON(data []byte) error {
	var list []suggestionReply
	if err := json.Unmarshal(data, &list); err == nil {
		*s = list
		return nil
	}
	var wrapped struct {
		Suggestions []suggestionReply `json:"suggestions"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return err
	}
	*s = wrapped.Suggestions
	return nil
}

// Suggester turns the top of the ranking into fix suggestions.
type Suggester struct {
	asker         asker
	cfg           config.SuggesterConfig
	maxChunkChars int
	logger        *slog.Logger
}

// NewSuggester creates a suggester. maxChunkChars bounds the code shown per
// candidate.
func NewSuggester(model LLM, prompts *llm.PromptManager, provider llm.ModelProvider, cfg config.SuggesterConfig, maxChunkChars int, logger *slog.Logger) *Suggester {
	return &Suggester{
		asker:         asker{llm: model, prompts: prompts, provider: provider},
		cfg:           cfg,
		maxChunkChars: maxChunkChars,
		logger:        logger,
	}
}

// Candidates returns the judgments suggestions are drawn from: the top N with
// a positive score, or the top N regardless when none scored.
func (s *Suggester) Candidates(ranked core.RankedResult) []core.RelevanceJudgment {
	top := ranked.Top(s.cfg.TopN)
	var positive []core.RelevanceJudgment
	for _, j := range top {
		if j.Score > 0 {
			positive = append(positive, j)
		}
	}
	if len(positive) > 0 {
		return positive
	}
	return top
}

// Suggest proposes fixes anchored to the candidate chunks. Every anchor lies
// inside a candidate chunk and no two suggestions overlap. When the model
// fails, or proposes nothing usable, a single placeholder pointing at the top
// candidates is returned, together with the model error if there was one.
// An empty ranking yields no suggestions.
func (s *Suggester) Suggest(ctx context.Context, report core.BugReport, signals core.BugSignals, ranked core.RankedResult, store *knowledge.Store) ([]core.FixSuggestion, error) {
	candidates := s.Candidates(ranked)
	if len(candidates) == 0 {
		return []core.FixSuggestion{}, nil
	}

	data := fixPromptData{
		Report:  report.Text,
		Summary: signals.Summary,
		Schema:  fixSchema,
	}
	var allCode strings.Builder
	for i, c := range candidates {
		data.Candidates = append(data.Candidates, candidateData{
			Rank:         i + 1,
			Path:         c.Chunk.FilePath,
			StartLine:    c.Chunk.StartLine,
			EndLine:      c.Chunk.EndLine,
			Score:        c.Score,
			Rationale:    c.Rationale,
			SuspectLines: joinInts(c.SuspectLines),
			Code:         numberLines(c.Chunk.Text, c.Chunk.StartLine, s.maxChunkChars),
		})
		allCode.WriteString(c.Chunk.Text)
		allCode.WriteByte('\n')
	}
	if store != nil {
		data.Knowledge = knowledge.Render(store.InText(allCode.String()))
	}

	var reply suggestionsReply
	if err := s.asker.ask(ctx, llm.FixPrompt, data, fixSchema, &reply); err != nil {
		s.logger.Warn("fix suggestion failed, returning placeholder", "error", err)
		return []core.FixSuggestion{placeholder(candidates, err.Error())}, fmt.Errorf("fix suggestion: %w", err)
	}

	var suggestions []core.FixSuggestion
	for _, r := range reply {
		if sug, ok := anchorSuggestion(r, candidates); ok {
			suggestions = append(suggestions, sug)
		}
	}
	suggestions = mergeOverlapping(suggestions)
	if len(suggestions) == 0 {
		return []core.FixSuggestion{placeholder(candidates, "the model proposed no usable change")}, nil
	}
	s.logger.Info("fix suggestions generated", "count", len(suggestions))
	return suggestions, nil
}

func anchorSuggestion(r suggestionReply, candidates []core.RelevanceJudgment) (core.FixSuggestion, bool) {
	change := strings.TrimSpace(r.Change)
	if change == "" {
		return core.FixSuggestion{}, false
	}
	sug := core.FixSuggestion{
		Change:     change,
		Rationale:  strings.TrimSpace(r.Rationale),
		Confidence: core.ParseConfidence(r.Confidence),
	}
	for _, a := range r.Anchors {
		if anchor, ok := resolveAnchor(a, candidates); ok {
			sug.Anchors = mergeAnchors(append(sug.Anchors, anchor))
		}
	}
	if len(sug.Anchors) == 0 {
		top := candidates[0].Chunk
		sug.Anchors = []core.Anchor{{FilePath: top.FilePath, StartLine: top.StartLine, EndLine: top.EndLine}}
	}
	return sug, true
}

// resolveAnchor maps a model anchor onto a candidate chunk. The file must name
// a candidate's path exactly or by path suffix; lines are clamped into the
// overlapping chunk, or the whole first chunk of that file when none overlaps.
func resolveAnchor(a anchorReply, candidates []core.RelevanceJudgment) (core.Anchor, bool) {
	file := strings.TrimSpace(cmp.Or(a.File, a.FilePath))
	file = strings.TrimPrefix(strings.ReplaceAll(file, "\\", "/"), "./")
	if file == "" {
		return core.Anchor{}, false
	}
	start, end := int(a.StartLine), int(a.EndLine)
	if end < start {
		end = start
	}

	var first *core.SourceChunk
	for i := range candidates {
		c := &candidates[i].Chunk
		if !samePath(c.FilePath, file) {
			continue
		}
		if first == nil {
			first = c
		}
		if start > 0 && start <= c.EndLine && end >= c.StartLine {
			return core.Anchor{
				FilePath:  c.FilePath,
				StartLine: max(start, c.StartLine),
				EndLine:   min(end, c.EndLine),
			}, true
		}
	}
	if first == nil {
		return core.Anchor{}, false
	}
	return core.Anchor{FilePath: first.FilePath, StartLine: first.StartLine, EndLine: first.EndLine}, true
}

func samePath(chunkPath, file string) bool {
	return chunkPath == file ||
		strings.HasSuffix(chunkPath, "/"+file) ||
		strings.HasSuffix(file, "/"+chunkPath)
}

// mergeOverlapping folds suggestions whose anchors overlap into the one with
// the highest confidence, which keeps its change and gains the others'
// anchors and rationale.
func mergeOverlapping(in []core.FixSuggestion) []core.FixSuggestion {
	sorted := slices.Clone(in)
	slices.SortStableFunc(sorted, func(a, b core.FixSuggestion) int {
		return cmp.Compare(b.Confidence, a.Confidence)
	})

	var out []core.FixSuggestion
	for _, s := range sorted {
		merged := false
		for i := range out {
			if anyOverlap(out[i].Anchors, s.Anchors) {
				out[i].Anchors = mergeAnchors(append(out[i].Anchors, s.Anchors...))
				if s.Rationale != "" {
					out[i].Rationale = strings.TrimSpace(out[i].Rationale + "\n" + s.Rationale)
				}
				merged = true
				break
			}
		}
		if !merged {
			out = append(out, s)
		}
	}
	// A merge can widen anchors into a later suggestion's range.
	if len(out) < len(in) {
		return mergeOverlapping(out)
	}
	return out
}

func anyOverlap(a, b []core.Anchor) bool {
	for _, x := range a {
		for _, y := range b {
			if x.Overlaps(y) {
				return true
			}
		}
	}
	return false
}

// mergeAnchors unions overlapping anchors of the same file.
func mergeAnchors(anchors []core.Anchor) []core.Anchor {
	sorted := slices.Clone(anchors)
	slices.SortFunc(sorted, func(a, b core.Anchor) int {
		if c := strings.Compare(a.FilePath, b.FilePath); c != 0 {
			return c
		}
		return cmp.Compare(a.StartLine, b.StartLine)
	})
	var out []core.Anchor
	for _, a := range sorted {
		if n := len(out); n > 0 && out[n-1].Overlaps(a) {
			out[n-1].EndLine = max(out[n-1].EndLine, a.EndLine)
			continue
		}
		out = append(out, a)
	}
	return out
}

func placeholder(candidates []core.RelevanceJudgment, reason string) core.FixSuggestion {
	p := core.FixSuggestion{
		Change:      placeholderChange,
		Rationale:   reason,
		Confidence:  core.ConfidenceLow,
		Placeholder: true,
	}
	for _, c := range candidates[:min(placeholderAnchors, len(candidates))] {
		p.Anchors = append(p.Anchors, core.Anchor{
			FilePath:  c.Chunk.FilePath,
			StartLine: c.Chunk.StartLine,
			EndLine:   c.Chunk.EndLine,
		})
	}
	p.Anchors = mergeAnchors(p.Anchors)
	return p
}

func joinInts(nums []int) string {
	parts := make([]string, len(nums))
	for i, n := range nums {
		parts[i] = fmt.Sprint(n)
	}
	return strings.Join(parts, ", ")
}
