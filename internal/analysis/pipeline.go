package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sevigo/bug-warden/internal/chunker"
	"github.com/sevigo/bug-warden/internal/config"
	"github.com/sevigo/bug-warden/internal/core"
	"github.com/sevigo/bug-warden/internal/gitutil"
	"github.com/sevigo/bug-warden/internal/knowledge"
	"github.com/sevigo/bug-warden/internal/llm"
	"github.com/sevigo/bug-warden/internal/metrics"
)

// Input names everything a run reads.
type Input struct {
	Report        core.BugReport
	SourceRoot    string
	KnowledgePath string
	ScriptDir     string
}

// Translator moves text between the report's language and the language the
// code model is prompted in.
type Translator interface {
	ToEnglish(ctx context.Context, text string) (string, error)
	ToKorean(ctx context.Context, text string) (string, error)
}

// Pipeline runs one analysis end to end. It holds no per-run state and may be
// shared by concurrent runs.
type Pipeline struct {
	cfg        *config.Config
	extractor  *Extractor
	filter     *Filter
	matcher    *Matcher
	suggester  *Suggester
	translator Translator
	offline    bool
	git        *gitutil.Client
	logger     *slog.Logger
}

type pipelineOptions struct {
	matcher    LLM
	suggester  LLM
	translator Translator
}

// Option customizes the stages of a Pipeline.
type Option func(*pipelineOptions)

// WithMatcherModel judges chunks on m instead of the default model.
func WithMatcherModel(m LLM) Option {
	return func(o *pipelineOptions) {
		o.matcher = m
	}
}

// WithSuggesterModel writes fix suggestions on m instead of the default model.
func WithSuggesterModel(m LLM) Option {
	return func(o *pipelineOptions) {
		o.suggester = m
	}
}

// WithTranslator translates the report into English before analysis and the
// findings back into Korean afterwards.
func WithTranslator(t Translator) Option {
	return func(o *pipelineOptions) {
		o.translator = t
	}
}

// NewPipeline wires the stages from the configuration.
func NewPipeline(cfg *config.Config, model LLM, prompts *llm.PromptManager, git *gitutil.Client, logger *slog.Logger, opts ...Option) *Pipeline {
	o := pipelineOptions{matcher: model, suggester: model}
	for _, opt := range opts {
		opt(&o)
	}
	provider := llm.ModelProvider(cfg.LLM.Provider)
	matcherProvider := llm.ModelProvider(cfg.LLM.With(cfg.LLM.Matcher).Provider)
	suggesterProvider := llm.ModelProvider(cfg.LLM.With(cfg.LLM.Suggester).Provider)
	return &Pipeline{
		cfg:        cfg,
		extractor:  NewExtractor(model, prompts, provider, logger),
		filter:     NewFilter(cfg.Filter, logger),
		matcher:    NewMatcher(o.matcher, prompts, matcherProvider, cfg.Matcher, logger),
		suggester:  NewSuggester(o.suggester, prompts, suggesterProvider, cfg.Suggester, cfg.Matcher.MaxChunkChars, logger),
		translator: o.translator,
		offline:    cfg.Offline,
		git:        git,
		logger:     logger,
	}
}

func observe(stage string, start time.Time) {
	metrics.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// Run analyses one report against one source tree. Only a tree without any
// chunk fails the run (core.ErrNoChunks); every other problem degrades the
// affected stage and is recorded in AnalysisResult.Warnings. When ctx is
// cancelled during matching, the partial result is returned with ctx.Err().
func (p *Pipeline) Run(ctx context.Context, in Input) (*core.AnalysisResult, error) {
	res := &core.AnalysisResult{
		Report:      in.Report,
		Suggestions: []core.FixSuggestion{},
		Started:     time.Now(),
	}
	warn := func(msg string, args ...any) {
		res.Warnings = append(res.Warnings, fmt.Sprintf(msg, args...))
	}

	tree, err := config.LoadTreeConfig(in.SourceRoot)
	if err != nil && !errors.Is(err, config.ErrConfigNotFound) {
		warn("ignoring %s: %v", config.TreeConfigFile, err)
	}
	if tree == nil {
		tree = core.DefaultTreeConfig()
	}

	decoder, err := chunker.NewDecoder(p.cfg.Chunker.Encodings)
	if err != nil {
		return nil, fmt.Errorf("invalid encodings: %w", err)
	}

	start := time.Now()
	store, skipped, err := knowledge.Load(in.KnowledgePath, decoder, p.logger)
	if err != nil {
		warn("knowledge file unusable, continuing without it: %v", err)
		store = knowledge.NewStore()
	}
	if len(skipped) > 0 {
		warn("%d knowledge lines could not be parsed", len(skipped))
	}
	scripts, err := knowledge.LoadScripts(in.ScriptDir, decoder, p.logger)
	if err != nil {
		warn("game scripts unusable, continuing without them: %v", err)
	}
	res.Stats.KnowledgeCount = store.Len()
	res.Stats.ScriptCount = scripts.Len()
	observe("knowledge", start)

	start = time.Now()
	ch, err := chunker.New(p.cfg.Chunker.ApplyTree(tree), p.logger)
	if err != nil {
		return nil, fmt.Errorf("invalid chunker configuration: %w", err)
	}
	chunks, err := ch.Chunk(ctx, in.SourceRoot)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %w", core.ErrNoChunks, err)
	}
	observe("chunk", start)
	for _, w := range chunks.Warnings {
		warn("%v", w)
	}
	if len(chunks.LossyFiles) > 0 {
		warn("%d files were decoded with replacement characters", len(chunks.LossyFiles))
	}
	res.Stats.Files = chunks.Files
	res.Stats.Chunks = len(chunks.Chunks)
	if len(chunks.Chunks) == 0 {
		return nil, fmt.Errorf("%w: %s", core.ErrNoChunks, in.SourceRoot)
	}

	if rev, err := p.git.HeadRevision(in.SourceRoot); err != nil {
		p.logger.Debug("could not read source revision", "error", err)
	} else {
		res.Revision = rev.String()
	}

	if p.offline {
		p.rankOffline(res, in.Report, chunks.Chunks, store, warn)
		res.Stats.Duration = time.Since(res.Started)
		return res, ctx.Err()
	}

	report := p.toEnglish(ctx, in.Report, warn)

	start = time.Now()
	signals, err := p.extractor.Extract(ctx, report, store)
	if err != nil {
		warn("bug signals degraded to keyword fallback: %v", err)
	}
	res.Signals = signals
	observe("signals", start)

	start = time.Now()
	shortlist := p.shortlist(res, in.Report, signals, chunks.Chunks, store, warn)
	observe("filter", start)

	start = time.Now()
	judgments, matchErr := p.matcher.Judge(ctx, MatchInput{
		Report:       report,
		Signals:      signals,
		Chunks:       shortlist.SourceChunks(),
		Knowledge:    store,
		Scripts:      scripts,
		Instructions: tree.CustomInstructions,
	})
	observe("match", start)
	res.Stats.Judged = len(judgments)
	for _, j := range judgments {
		if j.Failed {
			res.Stats.FailedJudgments++
		}
	}
	if res.Stats.FailedJudgments > 0 {
		warn("%d of %d chunk judgments failed and were scored 0", res.Stats.FailedJudgments, len(judgments))
	}

	res.Ranked = Rank(judgments)

	if matchErr != nil {
		warn("analysis interrupted after %d of %d chunks: %v", len(judgments), len(shortlist.Chunks), matchErr)
		if cands := p.suggester.Candidates(res.Ranked); len(cands) > 0 {
			res.Suggestions = []core.FixSuggestion{placeholder(cands, "analysis was interrupted before fixes could be generated")}
		}
		res.Stats.Duration = time.Since(res.Started)
		return res, matchErr
	}

	start = time.Now()
	suggestions, err := p.suggester.Suggest(ctx, report, signals, res.Ranked, store)
	if err != nil {
		warn("fix suggestions degraded to placeholder: %v", err)
	}
	res.Suggestions = suggestions
	observe("suggest", start)

	p.toKorean(ctx, res, warn)

	res.Stats.Duration = time.Since(res.Started)
	p.logger.Info("analysis complete",
		"chunks", res.Stats.Chunks,
		"shortlisted", res.Stats.Shortlisted,
		"failed_judgments", res.Stats.FailedJudgments,
		"suggestions", len(res.Suggestions),
		"duration", res.Stats.Duration)
	return res, ctx.Err()
}

// shortlist runs the keyword pre-filter on the untranslated report, so terms
// in the report's own language still meet code comments and knowledge.
func (p *Pipeline) shortlist(res *core.AnalysisResult, report core.BugReport, signals core.BugSignals, chunks []core.SourceChunk, store *knowledge.Store, warn func(string, ...any)) Shortlist {
	shortlist := p.filter.Shortlist(report, signals, chunks, store)
	if shortlist.Fallback {
		warn("%v: using the %d chunks of the most mentioned files", core.ErrEmptyShortlist, len(shortlist.Chunks))
	}
	res.Stats.Shortlisted = len(shortlist.Chunks)
	return shortlist
}

// toEnglish returns report with its text translated. On failure the original
// report is analysed.
func (p *Pipeline) toEnglish(ctx context.Context, report core.BugReport, warn func(string, ...any)) core.BugReport {
	if p.translator == nil || report.IsEmpty() {
		return report
	}
	start := time.Now()
	defer observe("translate", start)

	text, err := p.translator.ToEnglish(ctx, report.Text)
	if err != nil {
		warn("report translation failed, analysing the original text: %v", err)
		return report
	}
	out := report
	out.Text = text
	return out
}

// toKorean translates the prose of res in place: the signal summary, the
// rationales of the top judgments and of the fix suggestions. Code and
// identifiers are left alone. Texts that fail to translate stay in English.
func (p *Pipeline) toKorean(ctx context.Context, res *core.AnalysisResult, warn func(string, ...any)) {
	if p.translator == nil {
		return
	}
	start := time.Now()
	defer observe("translate", start)

	failed := 0
	translate := func(s *string) {
		if *s == "" || ctx.Err() != nil {
			return
		}
		out, err := p.translator.ToKorean(ctx, *s)
		if err != nil {
			failed++
			p.logger.Debug("translation failed", "error", err)
			return
		}
		*s = out
	}

	translate(&res.Signals.Summary)
	top := res.Ranked.Judgments[:min(p.cfg.Suggester.TopN, len(res.Ranked.Judgments))]
	for i := range top {
		if !top[i].Failed {
			translate(&top[i].Rationale)
		}
	}
	for i := range res.Suggestions {
		if !res.Suggestions[i].Placeholder {
			translate(&res.Suggestions[i].Rationale)
		}
	}
	if failed > 0 {
		warn("%d translations failed; those texts are left in English", failed)
	}
}
