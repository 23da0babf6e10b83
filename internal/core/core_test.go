package core

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfidence(t *testing.T) {
	tests := map[string]Confidence{
		"high":     ConfidenceHigh,
		" HIGH ":   ConfidenceHigh,
		"높음":       ConfidenceHigh,
		"medium":   ConfidenceMedium,
		"moderate": ConfidenceMedium,
		"보통":       ConfidenceMedium,
		"low":      ConfidenceLow,
		"":         ConfidenceLow,
		"certain":  ConfidenceLow,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseConfidence(in), "input %q", in)
	}
}

func TestConfidence_JSON(t *testing.T) {
	b, err := json.Marshal(struct {
		C Confidence `json:"c"`
	}{ConfidenceMedium})
	require.NoError(t, err)
	assert.JSONEq(t, `{"c":"medium"}`, string(b))

	var out struct {
		C Confidence `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"c":"high"}`), &out))
	assert.Equal(t, ConfidenceHigh, out.C)
}

func TestNewBugReport(t *testing.T) {
	r := NewBugReport("\n\n  스킬 사용 시 마나가 차감되지 않음  \n자세한 내용...", "report.txt")
	assert.Equal(t, "스킬 사용 시 마나가 차감되지 않음", r.Title)
	assert.Equal(t, "report.txt", r.Source)
	assert.False(t, r.IsEmpty())

	long := NewBugReport(strings.Repeat("x", 200)+"\nsecond", "")
	assert.Empty(t, long.Title, "an overlong first line is not a title")

	assert.True(t, NewBugReport(" \n\t", "").IsEmpty())
}

func TestAnchor_Overlaps(t *testing.T) {
	a := Anchor{FilePath: "a.cpp", StartLine: 10, EndLine: 20}
	assert.True(t, a.Overlaps(Anchor{FilePath: "a.cpp", StartLine: 20, EndLine: 25}))
	assert.True(t, a.Overlaps(Anchor{FilePath: "a.cpp", StartLine: 12, EndLine: 13}))
	assert.False(t, a.Overlaps(Anchor{FilePath: "a.cpp", StartLine: 21, EndLine: 30}))
	assert.False(t, a.Overlaps(Anchor{FilePath: "b.cpp", StartLine: 10, EndLine: 20}))
}

func TestSourceChunk(t *testing.T) {
	c := SourceChunk{FilePath: "Game/Skill.cpp", StartLine: 101, EndLine: 200}
	assert.True(t, c.Contains(101))
	assert.True(t, c.Contains(200))
	assert.False(t, c.Contains(201))
	assert.Equal(t, 100, c.Lines())
	assert.Equal(t, "Game/Skill.cpp:101-200", c.Location())
}

func TestRankedResult_Top(t *testing.T) {
	r := RankedResult{Judgments: make([]RelevanceJudgment, 3)}
	assert.Len(t, r.Top(2), 2)
	assert.Len(t, r.Top(10), 3)
	assert.Len(t, r.Top(-1), 3)
}

func TestFailedJudgment(t *testing.T) {
	j := FailedJudgment(SourceChunk{FilePath: "a.cpp"}, ErrServiceUnavailable)
	assert.True(t, j.Failed)
	assert.Zero(t, j.Score)
	assert.Equal(t, ConfidenceLow, j.Confidence)
	assert.Contains(t, j.Rationale, ErrServiceUnavailable.Error())
	assert.False(t, errors.Is(ErrNoChunks, ErrServiceUnavailable))
}

func TestCategory_Text(t *testing.T) {
	for _, c := range Categories {
		b, err := c.MarshalText()
		require.NoError(t, err)
		var back Category
		require.NoError(t, back.UnmarshalText(b))
		assert.Equal(t, c, back)
	}
}
