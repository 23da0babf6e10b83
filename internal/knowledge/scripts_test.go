package knowledge

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/bug-warden/internal/core"
)

func TestParseScript(t *testing.T) {
	text := "// skill table\n[Fireball]\nname=화염구\ncost=30\n\nfree text line\n"
	got := ParseScript("skill_table.txt", text)

	want := []core.ScriptEntry{
		{File: "skill_table.txt", Kind: "skill", Section: "Fireball", Key: "name", Value: "화염구"},
		{File: "skill_table.txt", Kind: "skill", Section: "Fireball", Key: "cost", Value: "30"},
		{File: "skill_table.txt", Kind: "skill", Section: "Fireball", Value: "free text line"},
	}
	assert.Equal(t, want, got)
}

func TestScriptKind(t *testing.T) {
	assert.Equal(t, "dialog", ScriptKind("npc/Talk_01.txt"))
	assert.Equal(t, "quest", ScriptKind("MainMission.txt"))
	assert.Equal(t, "item", ScriptKind("weapons.txt"))
	assert.Equal(t, "skill", ScriptKind("spellbook.txt"))
	assert.Equal(t, "misc", ScriptKind("strings.txt"))
}

func TestLoadScripts(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "skill.txt"), []byte("[Heal]\nname=치유\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ignored.ini"), []byte("x=y\n"), 0o600))

	store, err := LoadScripts(dir, plainDecoder{}, discard)
	require.NoError(t, err)
	require.Equal(t, 1, store.Len())

	hits := store.InText("if (skill == 치유) { ... }", 5)
	require.Len(t, hits, 1)
	assert.Equal(t, "Heal", hits[0].Section)
	assert.Empty(t, store.InText("unrelated", 5))

	missing, err := LoadScripts(filepath.Join(dir, "nope"), plainDecoder{}, discard)
	require.NoError(t, err)
	assert.Equal(t, 0, missing.Len())
}

func TestRenderScripts(t *testing.T) {
	out := RenderScripts([]core.ScriptEntry{{File: "a.txt", Kind: "misc", Section: "S", Key: "k", Value: "v"}})
	assert.Equal(t, "- (misc) a.txt [S] k=v", out)
}
