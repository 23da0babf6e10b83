package analysis

import (
	"cmp"
	"slices"
	"strings"

	"github.com/sevigo/bug-warden/internal/core"
)

// Rank orders judgments by score descending, then file path and start line
// ascending. The input is not modified and ranking a ranked list is a no-op.
func Rank(judgments []core.RelevanceJudgment) core.RankedResult {
	out := slices.Clone(judgments)
	slices.SortStableFunc(out, func(a, b core.RelevanceJudgment) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		if c := strings.Compare(a.Chunk.FilePath, b.Chunk.FilePath); c != 0 {
			return c
		}
		return cmp.Compare(a.Chunk.StartLine, b.Chunk.StartLine)
	})
	if out == nil {
		out = []core.RelevanceJudgment{}
	}
	return core.RankedResult{Judgments: out}
}
