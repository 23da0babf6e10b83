// Package knowledge loads the curated developer knowledge file and optional
// game-script directories, and answers which entries a piece of text mentions.
package knowledge

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/sevigo/bug-warden/internal/core"
)

// TextDecoder turns raw file bytes into text.
type TextDecoder interface {
	Decode(data []byte) (text string, encoding string, lossy bool)
}

// Store holds knowledge entries grouped by category, in file order.
type Store struct {
	byCategory map[core.Category][]core.KnowledgeEntry
	all        []core.KnowledgeEntry
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{byCategory: make(map[core.Category][]core.KnowledgeEntry)}
}

// Add appends an entry, keeping insertion order.
func (s *Store) Add(e core.KnowledgeEntry) {
	s.byCategory[e.Category] = append(s.byCategory[e.Category], e)
	s.all = append(s.all, e)
}

// Len returns the number of entries.
func (s *Store) Len() int {
	return len(s.all)
}

// All returns every entry in insertion order.
func (s *Store) All() []core.KnowledgeEntry {
	return append([]core.KnowledgeEntry(nil), s.all...)
}

// Entries returns the entries of one category in insertion order.
func (s *Store) Entries(cat core.Category) []core.KnowledgeEntry {
	return append([]core.KnowledgeEntry(nil), s.byCategory[cat]...)
}

// InText returns the entries whose term appears verbatim in text, restricted
// to cats when any are given. Order follows the store.
func (s *Store) InText(text string, cats ...core.Category) []core.KnowledgeEntry {
	if text == "" {
		return nil
	}
	allowed := func(core.Category) bool { return true }
	if len(cats) > 0 {
		set := make(map[core.Category]bool, len(cats))
		for _, c := range cats {
			set[c] = true
		}
		allowed = func(c core.Category) bool { return set[c] }
	}

	var out []core.KnowledgeEntry
	for _, e := range s.all {
		if allowed(e.Category) && strings.Contains(text, e.Term) {
			out = append(out, e)
		}
	}
	return out
}

// Load reads a knowledge file. A missing file yields an empty store and no
// error. Lines that cannot be parsed are skipped and returned as warnings.
func Load(path string, dec TextDecoder, logger *slog.Logger) (*Store, []string, error) {
	if path == "" {
		return NewStore(), nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Warn("knowledge file not found, continuing without domain knowledge", "path", path)
			return NewStore(), nil, nil
		}
		return nil, nil, fmt.Errorf("failed to read knowledge file: %w", err)
	}
	text, enc, lossy := dec.Decode(data)
	if lossy {
		logger.Warn("knowledge file decoded lossily", "path", path)
	}

	store, warnings := Parse(text)
	for _, w := range warnings {
		logger.Debug("knowledge line skipped", "path", path, "reason", w)
	}
	logger.Info("knowledge loaded", "path", path, "encoding", enc, "entries", store.Len(), "skipped", len(warnings))
	return store, warnings, nil
}

// Parse reads knowledge text. Lines starting with '#' open a section whose
// header decides the category; other non-blank lines are "term,description",
// split at the first comma. Lines before any header land in CategoryOther.
func Parse(text string) (*Store, []string) {
	store := NewStore()
	var warnings []string
	current := core.CategoryOther

	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#") {
			current = CategoryForHeader(strings.TrimLeft(line, "# "))
			continue
		}
		term, desc, ok := strings.Cut(line, ",")
		term = strings.TrimSpace(term)
		if !ok || term == "" {
			warnings = append(warnings, fmt.Sprintf("line %d: expected \"term,description\": %q", lineNo, line))
			continue
		}
		store.Add(core.KnowledgeEntry{
			Category:    current,
			Term:        term,
			Description: strings.TrimSpace(desc),
		})
	}
	if err := sc.Err(); err != nil {
		warnings = append(warnings, fmt.Sprintf("line %d: %v", lineNo+1, err))
	}
	return store, warnings
}

var headerWords = []struct {
	cat   core.Category
	words []string
}{
	{core.CategoryClassOrStruct, []string{"class", "struct", "클래스", "구조체"}},
	{core.CategoryFunction, []string{"function", "method", "함수", "메서드", "메소드"}},
	{core.CategoryBugPattern, []string{"bug", "pattern", "버그", "패턴"}},
	{core.CategoryVariable, []string{"variable", "member", "field", "변수", "멤버"}},
}

// CategoryForHeader maps a section header to a category. Unknown headers map
// to CategoryOther.
func CategoryForHeader(header string) core.Category {
	h := strings.ToLower(header)
	for _, hw := range headerWords {
		for _, w := range hw.words {
			if strings.Contains(h, w) {
				return hw.cat
			}
		}
	}
	return core.CategoryOther
}

// Render formats entries for a prompt, grouped by category in a fixed order.
func Render(entries []core.KnowledgeEntry) string {
	if len(entries) == 0 {
		return ""
	}
	var b strings.Builder
	for _, cat := range core.Categories {
		first := true
		for _, e := range entries {
			if e.Category != cat {
				continue
			}
			if first {
				fmt.Fprintf(&b, "[%s]\n", cat)
				first = false
			}
			if e.Description != "" {
				fmt.Fprintf(&b, "- %s: %s\n", e.Term, e.Description)
			} else {
				fmt.Fprintf(&b, "- %s\n", e.Term)
			}
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
