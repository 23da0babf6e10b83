package analysis

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/sevigo/bug-warden/internal/core"
)

func judgment(path string, start int, score float64) core.RelevanceJudgment {
	return core.RelevanceJudgment{
		Chunk: core.SourceChunk{FilePath: path, StartLine: start, EndLine: start + 9},
		Score: score,
	}
}

func TestRank(t *testing.T) {
	in := []core.RelevanceJudgment{
		judgment("b.cpp", 1, 3),
		judgment("a.cpp", 11, 7),
		judgment("a.cpp", 1, 7),
		judgment("c.cpp", 1, 0),
		judgment("a.cpp", 21, 3),
	}
	original := append([]core.RelevanceJudgment(nil), in...)

	ranked := Rank(in)

	want := []core.RelevanceJudgment{
		judgment("a.cpp", 1, 7),
		judgment("a.cpp", 11, 7),
		judgment("a.cpp", 21, 3),
		judgment("b.cpp", 1, 3),
		judgment("c.cpp", 1, 0),
	}
	if diff := cmp.Diff(want, ranked.Judgments); diff != "" {
		t.Errorf("Rank() mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, original, in, "input must not be reordered")
}

func TestRank_Idempotent(t *testing.T) {
	in := []core.RelevanceJudgment{
		judgment("z.cpp", 5, 1),
		judgment("y.cpp", 5, 9),
		judgment("x.cpp", 5, 1),
		judgment("y.cpp", 1, 9),
	}
	once := Rank(in)
	twice := Rank(once.Judgments)
	if diff := cmp.Diff(once, twice); diff != "" {
		t.Errorf("ranking is not idempotent (-once +twice):\n%s", diff)
	}
}

func TestRank_Empty(t *testing.T) {
	ranked := Rank(nil)
	assert.NotNil(t, ranked.Judgments)
	assert.Empty(t, ranked.Top(5))
}
