package knowledge

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/sevigo/bug-warden/internal/core"
)

const minScriptMatchRunes = 2

var scriptKinds = []struct {
	kind  string
	words []string
}{
	{"dialog", []string{"dialog", "conversation", "talk", "대화"}},
	{"quest", []string{"quest", "mission", "퀘스트"}},
	{"item", []string{"item", "equip", "weapon", "아이템"}},
	{"skill", []string{"skill", "ability", "spell", "스킬"}},
}

// ScriptStore holds game-script entries in walk order.
type ScriptStore struct {
	entries []core.ScriptEntry
}

// Len returns the number of entries.
func (s *ScriptStore) Len() int {
	if s == nil {
		return 0
	}
	return len(s.entries)
}

// Entries returns every entry.
func (s *ScriptStore) Entries() []core.ScriptEntry {
	if s == nil {
		return nil
	}
	return append([]core.ScriptEntry(nil), s.entries...)
}

// InText returns at most limit entries whose key or value occurs in text.
func (s *ScriptStore) InText(text string, limit int) []core.ScriptEntry {
	if s == nil || text == "" || limit <= 0 {
		return nil
	}
	var out []core.ScriptEntry
	for _, e := range s.entries {
		if mentions(text, e.Key) || mentions(text, e.Value) {
			out = append(out, e)
			if len(out) == limit {
				break
			}
		}
	}
	return out
}

func mentions(text, s string) bool {
	return utf8.RuneCountInString(s) >= minScriptMatchRunes && strings.Contains(text, s)
}

// LoadScripts reads every *.txt file under dir. A missing or empty dir yields
// an empty store.
func LoadScripts(dir string, dec TextDecoder, logger *slog.Logger) (*ScriptStore, error) {
	store := &ScriptStore{}
	if dir == "" {
		return store, nil
	}
	if _, err := os.Stat(dir); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Warn("script directory not found", "path", dir)
			return store, nil
		}
		return nil, fmt.Errorf("failed to stat script directory: %w", err)
	}

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".txt") {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("skipping unreadable script", "file", path, "error", err)
			return nil
		}
		rel, _ := filepath.Rel(dir, path)
		text, _, _ := dec.Decode(data)
		store.entries = append(store.entries, ParseScript(filepath.ToSlash(rel), text)...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk script directory: %w", err)
	}
	logger.Info("game scripts loaded", "path", dir, "entries", store.Len())
	return store, nil
}

// ParseScript reads INI-like script text: "[section]" lines open a section,
// "key=value" lines become keyed entries, other lines become bare values.
// Blank lines and "//" comments are ignored.
func ParseScript(file, text string) []core.ScriptEntry {
	kind := ScriptKind(file)
	section := ""
	var out []core.ScriptEntry
	for _, raw := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			section = strings.TrimSpace(line[1 : len(line)-1])
			continue
		}
		e := core.ScriptEntry{File: file, Kind: kind, Section: section}
		if k, v, ok := strings.Cut(line, "="); ok {
			e.Key = strings.TrimSpace(k)
			e.Value = strings.TrimSpace(v)
		} else {
			e.Value = line
		}
		out = append(out, e)
	}
	return out
}

// ScriptKind derives the script category from its file name.
func ScriptKind(file string) string {
	name := strings.ToLower(filepath.Base(file))
	for _, sk := range scriptKinds {
		for _, w := range sk.words {
			if strings.Contains(name, w) {
				return sk.kind
			}
		}
	}
	return "misc"
}

// RenderScripts formats script entries for a prompt.
func RenderScripts(entries []core.ScriptEntry) string {
	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "- (%s) %s", e.Kind, e.File)
		if e.Section != "" {
			fmt.Fprintf(&b, " [%s]", e.Section)
		}
		if e.Key != "" {
			fmt.Fprintf(&b, " %s=%s\n", e.Key, e.Value)
		} else {
			fmt.Fprintf(&b, " %s\n", e.Value)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
