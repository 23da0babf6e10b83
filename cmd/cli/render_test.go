package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/bug-warden/internal/core"
)

func sampleResult() *core.AnalysisResult {
	skill := core.SourceChunk{FilePath: "Game/Skill.cpp", StartLine: 1, EndLine: 100}
	render := core.SourceChunk{FilePath: "Render/Renderer.cpp", StartLine: 101, EndLine: 200}
	return &core.AnalysisResult{
		Report: core.NewBugReport("마나 부족 시 스킬 발동\n마나가 0인데 스킬이 나갑니다.", "bug.txt"),
		Signals: core.BugSignals{
			Keywords:   []string{"마나", "스킬"},
			Categories: []string{"missing check"},
			Confidence: 0.8,
			Severity:   "high",
			Summary:    "Skill fires without enough mana",
		},
		Ranked: core.RankedResult{Judgments: []core.RelevanceJudgment{
			{
				Chunk: skill, Score: 9, SuspectLines: []int{42, 43}, Confidence: core.ConfidenceHigh,
				Rationale:  "UseSkill never compares m_nMana with the cost",
				References: []core.CodeReference{{Line: 42, Code: "  UseSkill(id);", Reason: "no mana check"}},
			},
			core.FailedJudgment(render, core.ErrServiceUnavailable),
		}},
		Suggestions: []core.FixSuggestion{{
			Anchors:    []core.Anchor{{FilePath: "Game/Skill.cpp", StartLine: 40, EndLine: 45}},
			Change:     "Return early when m_nMana < cost.",
			Rationale:  "The cost is deducted after the effect.",
			Confidence: core.ConfidenceMedium,
		}},
		Warnings: []string{"1 files were decoded with replacement characters"},
		Revision: "main@0123456789ab",
		Stats:    core.RunStats{Files: 2, Chunks: 2, Shortlisted: 2, Judged: 2, FailedJudgments: 1},
		Started:  time.Date(2024, 1, 2, 15, 4, 5, 0, time.UTC),
	}
}

func TestCheckFormat(t *testing.T) {
	for _, f := range []string{"text", "md", "json"} {
		assert.NoError(t, checkFormat(f))
	}
	assert.Error(t, checkFormat("html"))
}

func TestRenderMarkdown(t *testing.T) {
	md := renderMarkdown(sampleResult())

	assert.True(t, strings.HasPrefix(md, "# Bug analysis: 마나 부족 시 스킬 발동\n"))
	assert.Contains(t, md, "- **Revision:** `main@0123456789ab`")
	assert.Contains(t, md, "- **Keywords:** 마나, 스킬")
	assert.Contains(t, md, "| 1 | `Game/Skill.cpp:1-100` | 9.0 | high | 42, 43 |")
	assert.Contains(t, md, "| 2 | `Render/Renderer.cpp:101-200` | n/a | low |  |")
	assert.Contains(t, md, "- line 42: `UseSkill(id);` (no mana check)")
	assert.Contains(t, md, "**Where:** Game/Skill.cpp:40-45")
	assert.Contains(t, md, "> The cost is deducted after the effect.")
	assert.Contains(t, md, "## Warnings")
	assert.Less(t, strings.Index(md, "## Likely locations"), strings.Index(md, "## Fix suggestions"))
}

func TestRenderMarkdown_EmptyResult(t *testing.T) {
	md := renderMarkdown(&core.AnalysisResult{})
	assert.Contains(t, md, "# Bug analysis: Untitled report")
	assert.Contains(t, md, "- **Keywords:** (none)")
	assert.Contains(t, md, "Nothing was judged.")
	assert.Contains(t, md, "None.")
	assert.NotContains(t, md, "## Warnings")
}

func TestPrintText(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	printText(&buf, sampleResult())
	out := buf.String()

	assert.Contains(t, out, "마나 부족 시 스킬 발동")
	assert.Contains(t, out, "Keywords:   마나, 스킬")
	assert.Contains(t, out, "1. Game/Skill.cpp:1-100  (high)")
	assert.Contains(t, out, "Lines: 42, 43")
	assert.Contains(t, out, "42: UseSkill(id);  // no mana check")
	assert.Contains(t, out, " n/a ")
	assert.Contains(t, out, "Return early when m_nMana < cost.")
	assert.Contains(t, out, "WARNINGS (1)")
	assert.Contains(t, out, "2 files, 2 chunks, 2 shortlisted, 2 judged (1 failed)")
}

func TestPrintResult_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printResult(&buf, sampleResult(), formatJSON))

	var got core.AnalysisResult
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "main@0123456789ab", got.Revision)
	require.Len(t, got.Ranked.Judgments, 2)
	assert.Equal(t, core.ConfidenceHigh, got.Ranked.Judgments[0].Confidence)
	assert.True(t, got.Ranked.Judgments[1].Failed)
}

func TestWriteReports(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	paths, err := writeReports(dir, sampleResult())
	require.NoError(t, err)
	require.Len(t, paths, 2)

	assert.Equal(t, "bug-마나-부족-시-스킬-발동-20240102-150405.md", filepath.Base(paths[0]))
	assert.Equal(t, "bug-마나-부족-시-스킬-발동-20240102-150405.json", filepath.Base(paths[1]))

	md, err := os.ReadFile(paths[0])
	require.NoError(t, err)
	assert.Contains(t, string(md), "## Fix suggestions")

	raw, err := os.ReadFile(paths[1])
	require.NoError(t, err)
	assert.True(t, json.Valid(raw))
}
