package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/sevigo/bug-warden/internal/config"
	"github.com/sevigo/bug-warden/internal/core"
	"github.com/sevigo/bug-warden/internal/knowledge"
	"github.com/sevigo/bug-warden/internal/llm"
	"github.com/sevigo/bug-warden/internal/metrics"
)

const (
	judgmentSchema      = `{"relevance_score": 0, "reasoning": "string", "suspected_lines": [0], "referenced_code": [{"line": 0, "code": "string", "reason": "string"}], "confidence": "high|medium|low"}`
	batchJudgmentSchema = `{"chunk_index": 1, "relevance_score": 0, "reasoning": "string", "suspected_lines": [0], "confidence": "high|medium|low"}`
)

type chunkPromptData struct {
	Report       string
	Summary      string
	Keywords     string
	Knowledge    string
	Scripts      string
	Instructions []string
	Path         string
	StartLine    int
	EndLine      int
	Code         string
	Schema       string
}

type batchChunkData struct {
	Index     int
	Path      string
	StartLine int
	EndLine   int
	Knowledge string
	Code      string
}

type batchPromptData struct {
	Report       string
	Summary      string
	Keywords     string
	Instructions []string
	Chunks       []batchChunkData
	Schema       string
}

type referenceReply struct {
	Line   llm.Number `json:"line"`
	Code   string     `json:"code"`
	Reason string     `json:"reason"`
}

type judgmentReply struct {
	ChunkIndex     llm.Number       `json:"chunk_index"`
	RelevanceScore llm.Number       `json:"relevance_score"`
	Reasoning      string           `json:"reasoning"`
	SuspectedLines llm.Lines        `json:"suspected_lines"`
	ReferencedCode []referenceReply `json:"referenced_code"`
	Confidence     string           `json:"confidence"`
}

// batchReply accepts a bare array of judgments or an object wrapping one,
// e.g. {"judgments": [...]}, since small models do both.
type batchReply []judgmentReply

// UnmarshalJSON implements json.Unmarshaler.
func (b *batchReply) UnmarshalJSON(data []byte) error {
	var list []judgmentReply
	if err := json.Unmarshal(data, &list); err == nil {
		*b = list
		return nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("batch reply is neither an array nor an object: %w", err)
	}
	if _, single := obj["chunk_index"]; single {
		var one judgmentReply
		if err := json.Unmarshal(data, &one); err != nil {
			return err
		}
		*b = batchReply{one}
		return nil
	}
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		if err := json.Unmarshal(obj[k], &list); err == nil && len(list) > 0 {
			*b = list
			return nil
		}
	}
	return errors.New("batch reply contains no judgment array")
}

// MatchInput is everything the matcher needs for one run.
type MatchInput struct {
	Report       core.BugReport
	Signals      core.BugSignals
	Chunks       []core.SourceChunk
	Knowledge    *knowledge.Store
	Scripts      *knowledge.ScriptStore
	Instructions []string
}

// Matcher asks the model to judge each shortlisted chunk.
type Matcher struct {
	asker  asker
	cfg    config.MatcherConfig
	logger *slog.Logger
}

// NewMatcher creates a matcher.
func NewMatcher(model LLM, prompts *llm.PromptManager, provider llm.ModelProvider, cfg config.MatcherConfig, logger *slog.Logger) *Matcher {
	return &Matcher{
		asker:  asker{llm: model, prompts: prompts, provider: provider},
		cfg:    cfg,
		logger: logger,
	}
}

// Judge returns exactly one judgment per chunk, unless ctx ends first. A
// chunk whose model call failed gets a zero-score failed judgment. When ctx
// is cancelled Judge stops dispatching, drops judgments still in flight and
// returns the completed ones together with ctx.Err().
func (m *Matcher) Judge(ctx context.Context, in MatchInput) ([]core.RelevanceJudgment, error) {
	batches := splitBatches(in.Chunks, max(1, m.cfg.BatchSize))
	results := make([][]core.RelevanceJudgment, len(batches))

	var g errgroup.Group
	g.SetLimit(max(1, m.cfg.Workers))
	for i, batch := range batches {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			results[i] = m.judgeBatch(ctx, in, batch)
			return nil
		})
	}
	_ = g.Wait()

	var out []core.RelevanceJudgment
	for _, r := range results {
		out = append(out, r...)
	}
	if err := ctx.Err(); err != nil {
		m.logger.Warn("chunk matching interrupted", "judged", len(out), "total", len(in.Chunks))
		return out, err
	}
	return out, nil
}

func splitBatches(chunks []core.SourceChunk, size int) [][]core.SourceChunk {
	var out [][]core.SourceChunk
	for start := 0; start < len(chunks); start += size {
		out = append(out, chunks[start:min(start+size, len(chunks))])
	}
	return out
}

// judgeBatch returns nil when ctx ended during the call, so the caller can
// tell cancelled work from failed work.
func (m *Matcher) judgeBatch(ctx context.Context, in MatchInput, batch []core.SourceChunk) []core.RelevanceJudgment {
	if len(batch) == 1 {
		j, err := m.judgeOne(ctx, in, batch[0])
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			m.logger.Warn("chunk judgment failed", "chunk", batch[0].Location(), "error", err)
			metrics.ChunksJudged.WithLabelValues("failed").Inc()
			return []core.RelevanceJudgment{core.FailedJudgment(batch[0], err)}
		}
		metrics.ChunksJudged.WithLabelValues("ok").Inc()
		return []core.RelevanceJudgment{j}
	}

	replies, err := m.askBatch(ctx, in, batch)
	if err != nil && ctx.Err() != nil {
		return nil
	}
	out := make([]core.RelevanceJudgment, len(batch))
	for i, chunk := range batch {
		if err != nil {
			out[i] = core.FailedJudgment(chunk, err)
			metrics.ChunksJudged.WithLabelValues("failed").Inc()
			continue
		}
		reply, ok := replies[i+1]
		if !ok {
			out[i] = core.FailedJudgment(chunk, fmt.Errorf("%w: no judgment for fragment %d", core.ErrMalformedResponse, i+1))
			metrics.ChunksJudged.WithLabelValues("failed").Inc()
			continue
		}
		out[i] = toJudgment(chunk, reply)
		metrics.ChunksJudged.WithLabelValues("ok").Inc()
	}
	if err != nil {
		m.logger.Warn("batch judgment failed", "chunks", len(batch), "first", batch[0].Location(), "error", err)
	}
	return out
}

func (m *Matcher) judgeOne(ctx context.Context, in MatchInput, chunk core.SourceChunk) (core.RelevanceJudgment, error) {
	data := chunkPromptData{
		Report:       in.Report.Text,
		Summary:      in.Signals.Summary,
		Keywords:     strings.Join(in.Signals.Keywords, ", "),
		Knowledge:    m.knowledgeFor(in, chunk),
		Scripts:      knowledge.RenderScripts(in.Scripts.InText(chunk.Text, m.cfg.MaxScriptEntries)),
		Instructions: in.Instructions,
		Path:         chunk.FilePath,
		StartLine:    chunk.StartLine,
		EndLine:      chunk.EndLine,
		Code:         numberLines(chunk.Text, chunk.StartLine, m.cfg.MaxChunkChars),
		Schema:       judgmentSchema,
	}
	var reply judgmentReply
	if err := m.asker.ask(ctx, llm.ChunkMatchPrompt, data, judgmentSchema, &reply); err != nil {
		return core.RelevanceJudgment{}, err
	}
	return toJudgment(chunk, reply), nil
}

// askBatch returns the replies keyed by their 1-based fragment index.
func (m *Matcher) askBatch(ctx context.Context, in MatchInput, batch []core.SourceChunk) (map[int]judgmentReply, error) {
	data := batchPromptData{
		Report:       in.Report.Text,
		Summary:      in.Signals.Summary,
		Keywords:     strings.Join(in.Signals.Keywords, ", "),
		Instructions: in.Instructions,
		Schema:       batchJudgmentSchema,
	}
	for i, chunk := range batch {
		data.Chunks = append(data.Chunks, batchChunkData{
			Index:     i + 1,
			Path:      chunk.FilePath,
			StartLine: chunk.StartLine,
			EndLine:   chunk.EndLine,
			Knowledge: m.knowledgeFor(in, chunk),
			Code:      numberLines(chunk.Text, chunk.StartLine, m.cfg.MaxChunkChars),
		})
	}

	var reply batchReply
	if err := m.asker.ask(ctx, llm.BatchMatchPrompt, data, batchJudgmentSchema, &reply); err != nil {
		return nil, err
	}
	byIndex := make(map[int]judgmentReply, len(reply))
	for _, r := range reply {
		idx := int(r.ChunkIndex)
		if _, dup := byIndex[idx]; !dup && idx >= 1 && idx <= len(batch) {
			byIndex[idx] = r
		}
	}
	return byIndex, nil
}

func (m *Matcher) knowledgeFor(in MatchInput, chunk core.SourceChunk) string {
	if in.Knowledge == nil {
		return ""
	}
	return knowledge.Render(in.Knowledge.InText(chunk.Text))
}

// toJudgment clamps the reply into the chunk: the score into [0, 10], suspect
// lines into the chunk's range, and references to code that really is there.
func toJudgment(chunk core.SourceChunk, r judgmentReply) core.RelevanceJudgment {
	j := core.RelevanceJudgment{
		Chunk:      chunk,
		Score:      clamp(float64(r.RelevanceScore), 0, 10),
		Rationale:  strings.TrimSpace(r.Reasoning),
		Confidence: core.ParseConfidence(r.Confidence),
	}

	seen := make(map[int]bool)
	for _, line := range r.SuspectedLines {
		if chunk.Contains(line) && !seen[line] {
			seen[line] = true
			j.SuspectLines = append(j.SuspectLines, line)
		}
	}
	slices.Sort(j.SuspectLines)

	lines := strings.Split(chunk.Text, "\n")
	for _, ref := range r.ReferencedCode {
		line := int(ref.Line)
		if !chunk.Contains(line) || line-chunk.StartLine >= len(lines) {
			continue
		}
		actual := lines[line-chunk.StartLine]
		code := strings.TrimSpace(ref.Code)
		if code == "" {
			code = strings.TrimSpace(actual)
		} else if !strings.Contains(squash(chunk.Text), squash(code)) {
			continue
		}
		j.References = append(j.References, core.CodeReference{
			Line:   line,
			Code:   code,
			Reason: strings.TrimSpace(ref.Reason),
		})
	}
	return j
}

// squash collapses all whitespace runs to a single space.
func squash(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
