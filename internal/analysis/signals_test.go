package analysis

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/sevigo/bug-warden/internal/core"
	"github.com/sevigo/bug-warden/internal/knowledge"
	"github.com/sevigo/bug-warden/internal/llm"
	"github.com/sevigo/bug-warden/mocks"
)

func replyWith(raw string) func(context.Context, llm.Request, any) error {
	return func(_ context.Context, _ llm.Request, out any) error {
		return llm.DecodeJSON(raw, out)
	}
}

func TestExtractor_Extract(t *testing.T) {
	store := knowledgeStore(t, "# 클래스\nCSkillUse,스킬 사용 처리\n# 버그 패턴\nMissingCheck,조건 검사 누락\n")
	report := core.NewBugReport("마나가 부족해도 CSkillUse 스킬이 발동됩니다", "test")

	tests := []struct {
		name  string
		reply string
		want  core.BugSignals
	}{
		{
			name:  "normalised reply",
			reply: `{"keywords": ["mana", "Mana", " skill ", "unknown"], "categories": ["missingcheck", "Rendering"], "confidence": "0.8", "suspected_functions": ["CSkillUse::Execute"], "summary": " skill ignores mana ", "severity": "HIGH"}`,
			want: core.BugSignals{
				Keywords:         []string{"mana", "skill", "CSkillUse::Execute"},
				Categories:       []string{"MissingCheck"},
				Confidence:       0.8,
				SuspectedSymbols: []string{"CSkillUse::Execute"},
				Summary:          "skill ignores mana",
				Severity:         "high",
			},
		},
		{
			name:  "confidence clamped and bug_type used",
			reply: "```json\n{\"keywords\": [\"mana\"], \"confidence\": 7, \"bug_type\": \"MissingCheck\"}\n```",
			want: core.BugSignals{
				Keywords:   []string{"mana"},
				Categories: []string{"MissingCheck"},
				Confidence: 1,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			model := mocks.NewMockLLM(ctrl)
			model.EXPECT().
				Submit(gomock.Any(), gomock.Cond(func(req llm.Request) bool {
					return req.Name == string(llm.BugSignalsPrompt) &&
						assert.Contains(t, req.Prompt, "MissingCheck") &&
						assert.Contains(t, req.Prompt, "스킬 사용 처리")
				}), gomock.Any()).
				DoAndReturn(replyWith(tt.reply))

			e := NewExtractor(model, testPrompts(t), llm.DefaultProvider, testLogger())
			got, err := e.Extract(context.Background(), report, store)
			require.NoError(t, err)
			if tt.want.SuspectedSymbols == nil {
				tt.want.SuspectedSymbols = []string{}
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractor_EmptyReportSkipsModel(t *testing.T) {
	ctrl := gomock.NewController(t)
	model := mocks.NewMockLLM(ctrl)

	e := NewExtractor(model, testPrompts(t), llm.DefaultProvider, testLogger())
	got, err := e.Extract(context.Background(), core.NewBugReport("  \n ", "test"), knowledge.NewStore())
	require.NoError(t, err)
	assert.Empty(t, got.Keywords)
	assert.NotNil(t, got.Keywords)
	assert.NotNil(t, got.Categories)
	assert.True(t, got.Degraded)
	assert.Zero(t, got.Confidence)
}

func TestExtractor_FallbackOnFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	model := mocks.NewMockLLM(ctrl)
	model.EXPECT().Submit(gomock.Any(), gomock.Any(), gomock.Any()).Return(core.ErrServiceUnavailable)

	e := NewExtractor(model, testPrompts(t), llm.DefaultProvider, testLogger())
	got, err := e.Extract(context.Background(), core.NewBugReport("Player inventory loses items after teleport, see CInventory", "test"), knowledge.NewStore())

	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrServiceUnavailable))
	assert.True(t, got.Degraded)
	assert.Equal(t, []string{"player", "inventory", "loses", "items", "teleport", "cinventory"}, got.Keywords)
}

func TestNormalizeCategories_NoKnownPatterns(t *testing.T) {
	got := normalizeCategories([]string{"NullDeref", "nullderef", ""}, nil)
	assert.Equal(t, []string{"NullDeref"}, got)
}
