package analysis

import (
	"cmp"
	"log/slog"
	"path"
	"slices"
	"strings"

	"github.com/sevigo/bug-warden/internal/config"
	"github.com/sevigo/bug-warden/internal/core"
	"github.com/sevigo/bug-warden/internal/knowledge"
	"github.com/sevigo/bug-warden/internal/metrics"
)

// ScoredChunk is a chunk with its keyword pre-filter score.
type ScoredChunk struct {
	Chunk core.SourceChunk
	Score float64
}

// Shortlist is the filter output.
type Shortlist struct {
	Chunks []ScoredChunk
	// Fallback is set when no chunk passed the threshold and the chunks of
	// the most frequently mentioned files were used instead.
	Fallback bool
}

// SourceChunks returns the shortlisted chunks in shortlist order.
func (s Shortlist) SourceChunks() []core.SourceChunk {
	out := make([]core.SourceChunk, len(s.Chunks))
	for i, sc := range s.Chunks {
		out[i] = sc.Chunk
	}
	return out
}

// Filter narrows all chunks to a shortlist worth a model call.
type Filter struct {
	cfg    config.FilterConfig
	logger *slog.Logger
}

// NewFilter creates a filter.
func NewFilter(cfg config.FilterConfig, logger *slog.Logger) *Filter {
	return &Filter{cfg: cfg, logger: logger}
}

// scoringTerms is everything the score of a chunk depends on.
type scoringTerms struct {
	keywords []string // lowercased
	symbols  []string // class/function knowledge terms relevant to the run
	patterns []string // bug pattern terms named by the signals
}

func (f *Filter) terms(report core.BugReport, signals core.BugSignals, store *knowledge.Store) scoringTerms {
	t := scoringTerms{}
	for _, k := range signals.Keywords {
		t.keywords = append(t.keywords, strings.ToLower(k))
	}
	t.keywords = dedupe(t.keywords)

	lowered := append(append([]string{}, t.keywords...), lowerAll(signals.SuspectedSymbols)...)
	for _, e := range store.All() {
		if e.Category != core.CategoryClassOrStruct && e.Category != core.CategoryFunction {
			continue
		}
		if strings.Contains(report.Text, e.Term) || relatesToAny(strings.ToLower(e.Term), lowered) {
			t.symbols = append(t.symbols, e.Term)
		}
	}

	named := make(map[string]bool, len(signals.Categories))
	for _, c := range signals.Categories {
		named[strings.ToLower(c)] = true
	}
	for _, e := range store.Entries(core.CategoryBugPattern) {
		if named[strings.ToLower(e.Term)] {
			t.patterns = append(t.patterns, e.Term)
		}
	}
	return t
}

func relatesToAny(term string, keywords []string) bool {
	for _, k := range keywords {
		if k != "" && (strings.Contains(term, k) || strings.Contains(k, term)) {
			return true
		}
	}
	return false
}

func lowerAll(items []string) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = strings.ToLower(it)
	}
	return out
}

// score counts the keywords present in the chunk (case-insensitive) and adds
// a bonus for every relevant knowledge symbol and named bug pattern present
// verbatim. Every term contributes a non-negative amount, so adding a keyword
// never lowers a score.
func (f *Filter) score(chunk core.SourceChunk, t scoringTerms) float64 {
	lower := strings.ToLower(chunk.Text)
	var s float64
	for _, k := range t.keywords {
		if strings.Contains(lower, k) {
			s++
		}
	}
	for _, sym := range t.symbols {
		if strings.Contains(chunk.Text, sym) {
			s += f.cfg.KnowledgeBonus
		}
	}
	for _, p := range t.patterns {
		if strings.Contains(chunk.Text, p) {
			s += f.cfg.CategoryBonus
		}
	}
	return s
}

// Shortlist scores every chunk and keeps the best ones above the threshold.
// When none qualifies it falls back to whole files ranked by how often the
// report and signals mention them, so a non-empty chunk list always yields a
// non-empty shortlist.
func (f *Filter) Shortlist(report core.BugReport, signals core.BugSignals, chunks []core.SourceChunk, store *knowledge.Store) Shortlist {
	t := f.terms(report, signals, store)

	var passed []ScoredChunk
	for _, c := range chunks {
		if s := f.score(c, t); s > f.cfg.MinScore {
			passed = append(passed, ScoredChunk{Chunk: c, Score: s})
		}
	}

	if len(passed) > 0 {
		slices.SortStableFunc(passed, compareScored)
		if len(passed) > f.cfg.ShortlistSize {
			passed = passed[:f.cfg.ShortlistSize]
		}
		f.logger.Info("candidate chunks shortlisted", "total", len(chunks), "shortlisted", len(passed))
		return Shortlist{Chunks: passed}
	}

	fallback := f.fileFallback(report, t, chunks)
	metrics.FilterFallbacks.Inc()
	f.logger.Warn("no chunk passed the keyword filter, using file-frequency fallback",
		"keywords", len(t.keywords), "chunks", len(fallback))
	return Shortlist{Chunks: fallback, Fallback: true}
}

func compareScored(a, b ScoredChunk) int {
	if c := cmp.Compare(b.Score, a.Score); c != 0 {
		return c
	}
	if c := strings.Compare(a.Chunk.FilePath, b.Chunk.FilePath); c != 0 {
		return c
	}
	return cmp.Compare(a.Chunk.StartLine, b.Chunk.StartLine)
}

type fileScore struct {
	path   string
	score  int
	chunks []core.SourceChunk
}

func (f *Filter) fileFallback(report core.BugReport, t scoringTerms, chunks []core.SourceChunk) []ScoredChunk {
	if len(chunks) == 0 {
		return nil
	}

	var files []*fileScore
	byPath := make(map[string]*fileScore)
	for _, c := range chunks {
		fs, ok := byPath[c.FilePath]
		if !ok {
			fs = &fileScore{path: c.FilePath}
			byPath[c.FilePath] = fs
			files = append(files, fs)
		}
		fs.chunks = append(fs.chunks, c)
	}

	lowerReport := strings.ToLower(report.Text)
	for _, fs := range files {
		for _, c := range fs.chunks {
			lower := strings.ToLower(c.Text)
			for _, k := range t.keywords {
				fs.score += strings.Count(lower, k)
			}
			for _, sym := range t.symbols {
				fs.score += strings.Count(c.Text, sym)
			}
		}
		fs.score += fileMentions(lowerReport, fs.path)
	}

	slices.SortStableFunc(files, func(a, b *fileScore) int {
		if c := cmp.Compare(b.score, a.score); c != 0 {
			return c
		}
		return strings.Compare(a.path, b.path)
	})

	n := min(f.cfg.FallbackFiles, len(files))
	var out []ScoredChunk
	for _, fs := range files[:n] {
		for _, c := range fs.chunks {
			if len(out) == f.cfg.ShortlistSize {
				return out
			}
			out = append(out, ScoredChunk{Chunk: c, Score: 0})
		}
	}
	return out
}

// fileMentions counts literal mentions of the file name, or of its stem when
// the stem is distinctive enough, in the lowercased report.
func fileMentions(lowerReport, filePath string) int {
	if lowerReport == "" {
		return 0
	}
	base := strings.ToLower(path.Base(filePath))
	if n := strings.Count(lowerReport, base); n > 0 {
		return n
	}
	stem := strings.TrimSuffix(base, path.Ext(base))
	if len([]rune(stem)) < 3 {
		return 0
	}
	return strings.Count(lowerReport, stem)
}
