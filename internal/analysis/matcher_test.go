package analysis

import (
	"context"
	"encoding/json"
	"math"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/bug-warden/internal/core"
	"github.com/sevigo/bug-warden/internal/knowledge"
	"github.com/sevigo/bug-warden/internal/llm"
)

func matchInput(chunks ...core.SourceChunk) MatchInput {
	return MatchInput{
		Report:    core.NewBugReport("skill fires without enough mana", "test"),
		Signals:   core.BugSignals{Keywords: []string{"mana"}},
		Chunks:    chunks,
		Knowledge: knowledge.NewStore(),
	}
}

func TestMatcher_OneJudgmentPerChunk(t *testing.T) {
	model := newFakeLLM(func(req llm.Request) (string, error) {
		if strings.Contains(req.Prompt, "ConsumeMana") {
			return `{"relevance_score": 9, "reasoning": "mana consumed without a check", "suspected_lines": [2, "2", "99", "1-2"], "referenced_code": [{"line": 2, "code": "p->ConsumeMana(cost);", "reason": "no check"}, {"line": 3, "code": "if (p->mana < cost) return false;", "reason": "invented"}], "confidence": "high"}`, nil
		}
		if strings.Contains(req.Prompt, "Renderer.cpp") {
			return "", core.ErrServiceUnavailable
		}
		return `{"relevance_score": "1", "reasoning": "unrelated", "confidence": "low"}`, nil
	})

	chunks := testChunks()
	m := NewMatcher(model, testPrompts(t), llm.DefaultProvider, testConfig().Matcher, testLogger())
	got, err := m.Judge(context.Background(), matchInput(chunks...))
	require.NoError(t, err)
	require.Len(t, got, len(chunks))
	assert.Equal(t, len(chunks), model.count(llm.ChunkMatchPrompt))

	byPath := make(map[string]core.RelevanceJudgment)
	for _, j := range got {
		byPath[j.Chunk.FilePath] = j
	}

	skill := byPath["Game/Skill.cpp"]
	assert.Equal(t, 9.0, skill.Score)
	assert.Equal(t, []int{1, 2}, skill.SuspectLines)
	assert.Equal(t, core.ConfidenceHigh, skill.Confidence)
	require.Len(t, skill.References, 1, "references to code not in the chunk are dropped")
	assert.Equal(t, 2, skill.References[0].Line)

	assert.Equal(t, 1.0, byPath["Game/Inventory.cpp"].Score)

	failed := byPath["Render/Renderer.cpp"]
	assert.True(t, failed.Failed)
	assert.Zero(t, failed.Score)
	assert.Equal(t, core.ConfidenceLow, failed.Confidence)
}

func TestMatcher_ScoreClamped(t *testing.T) {
	model := newFakeLLM(func(llm.Request) (string, error) {
		return `{"relevance_score": 42, "reasoning": "sure"}`, nil
	})
	m := NewMatcher(model, testPrompts(t), llm.DefaultProvider, testConfig().Matcher, testLogger())
	got, err := m.Judge(context.Background(), matchInput(testChunks()[0]))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 10.0, got[0].Score)
}

func TestMatcher_Batches(t *testing.T) {
	model := newFakeLLM(func(req llm.Request) (string, error) {
		if req.Name == string(llm.BatchMatchPrompt) {
			return `{"judgments": [{"chunk_index": 2, "relevance_score": 8, "suspected_lines": [2]}, {"chunk_index": 7, "relevance_score": 10}]}`, nil
		}
		return `{"relevance_score": 3}`, nil
	})
	cfg := testConfig().Matcher
	cfg.BatchSize = 2

	m := NewMatcher(model, testPrompts(t), llm.DefaultProvider, cfg, testLogger())
	got, err := m.Judge(context.Background(), matchInput(testChunks()...))
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, 1, model.count(llm.BatchMatchPrompt))
	assert.Equal(t, 1, model.count(llm.ChunkMatchPrompt), "a batch of one uses the single-chunk prompt")

	assert.Equal(t, "Game/Inventory.cpp", got[0].Chunk.FilePath)
	assert.True(t, got[0].Failed, "fragment 1 was not answered")
	assert.Contains(t, got[0].Rationale, core.ErrMalformedResponse.Error())

	assert.Equal(t, "Game/Skill.cpp", got[1].Chunk.FilePath)
	assert.Equal(t, 8.0, got[1].Score)
	assert.Equal(t, []int{2}, got[1].SuspectLines)

	assert.Equal(t, "Render/Renderer.cpp", got[2].Chunk.FilePath)
	assert.Equal(t, 3.0, got[2].Score)
}

func TestMatcher_BatchFailureFailsEveryChunk(t *testing.T) {
	cfg := testConfig().Matcher
	cfg.BatchSize = 3
	m := NewMatcher(failingLLM(), testPrompts(t), llm.DefaultProvider, cfg, testLogger())

	got, err := m.Judge(context.Background(), matchInput(testChunks()...))
	require.NoError(t, err)
	require.Len(t, got, 3)
	for _, j := range got {
		assert.True(t, j.Failed)
		assert.Zero(t, j.Score)
	}
}

func TestMatcher_CancelReturnsPartialResults(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	model := newFakeLLM(func(llm.Request) (string, error) {
		if calls.Add(1) == 2 {
			cancel()
			return "", context.Canceled
		}
		return `{"relevance_score": 5}`, nil
	})
	cfg := testConfig().Matcher
	cfg.Workers = 1

	m := NewMatcher(model, testPrompts(t), llm.DefaultProvider, cfg, testLogger())
	got, err := m.Judge(ctx, matchInput(testChunks()...))

	require.ErrorIs(t, err, context.Canceled)
	require.Len(t, got, 1, "the in-flight judgment is dropped and the rest are skipped")
	assert.Equal(t, "Game/Inventory.cpp", got[0].Chunk.FilePath)
	assert.Equal(t, int32(2), calls.Load())
}

func TestBatchReply_Shapes(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    []int
		wantErr bool
	}{
		{name: "array", raw: `[{"chunk_index": 1}, {"chunk_index": 2}]`, want: []int{1, 2}},
		{name: "wrapped", raw: `{"results": [{"chunk_index": 3}]}`, want: []int{3}},
		{name: "single object", raw: `{"chunk_index": "2", "relevance_score": 4}`, want: []int{2}},
		{name: "no array", raw: `{"note": "nothing"}`, wantErr: true},
		{name: "not json object", raw: `"text"`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var reply batchReply
			err := json.Unmarshal([]byte(tt.raw), &reply)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			var idx []int
			for _, r := range reply {
				idx = append(idx, int(r.ChunkIndex))
			}
			assert.Equal(t, tt.want, idx)
		})
	}
}

func TestToJudgment_FillsMissingReferenceCode(t *testing.T) {
	c := chunk("a.cpp", 10, "int a = 0;", "a = b / c;")
	j := toJudgment(c, judgmentReply{
		RelevanceScore: -3,
		ReferencedCode: []referenceReply{{Line: 11}, {Line: 9, Code: "int a = 0;"}},
	})
	assert.Zero(t, j.Score)
	require.Len(t, j.References, 1)
	assert.Equal(t, core.CodeReference{Line: 11, Code: "a = b / c;"}, j.References[0])
}

func TestToJudgment_NaNScoreStaysInRange(t *testing.T) {
	c := chunk("a.cpp", 1, "UseSkill(id);")
	j := toJudgment(c, judgmentReply{RelevanceScore: llm.Number(math.NaN())})
	assert.Zero(t, j.Score)

	_, err := json.Marshal(core.RankedResult{Judgments: []core.RelevanceJudgment{j}})
	assert.NoError(t, err)
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0.0, clamp(math.NaN(), 0, 10))
	assert.Equal(t, 10.0, clamp(math.Inf(1), 0, 10))
	assert.Equal(t, 0.0, clamp(math.Inf(-1), 0, 10))
	assert.Equal(t, 4.5, clamp(4.5, 0, 10))
}
