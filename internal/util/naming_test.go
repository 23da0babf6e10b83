package util

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGenerateReportName(t *testing.T) {
	started := time.Date(2024, 1, 2, 15, 4, 5, 0, time.UTC)
	tests := []struct {
		name  string
		title string
		ext   string
		want  string
	}{
		{name: "Plain title", title: "Mana check skipped", ext: "md", want: "bug-mana-check-skipped-20240102-150405.md"},
		{name: "Korean title", title: "마나 부족 시 스킬 발동", ext: ".json", want: "bug-마나-부족-시-스킬-발동-20240102-150405.json"},
		{name: "Punctuation collapses", title: "  [Crash] Inventory::Add()!! ", ext: "md", want: "bug-crash-inventory-add-20240102-150405.md"},
		{name: "Empty title", title: "", ext: "md", want: "bug-report-20240102-150405.md"},
		{name: "Only symbols", title: "?!/", ext: "md", want: "bug-report-20240102-150405.md"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GenerateReportName(tt.title, started, tt.ext))
		})
	}
}

func TestGenerateReportName_TruncatesLongTitles(t *testing.T) {
	title := strings.Repeat("스킬 ", 40)
	name := GenerateReportName(title, time.Unix(0, 0).UTC(), "md")
	slug := strings.TrimSuffix(strings.TrimPrefix(name, "bug-"), "-19700101-000000.md")
	assert.LessOrEqual(t, len([]rune(slug)), maxSlugRunes)
	assert.False(t, strings.HasSuffix(slug, "-"))
}
