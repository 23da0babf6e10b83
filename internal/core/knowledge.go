package core

import "fmt"

// Category classifies a knowledge entry.
type Category int

const (
	CategoryClassOrStruct Category = iota
	CategoryFunction
	CategoryVariable
	CategoryBugPattern
	CategoryOther
)

// Categories lists every category in rendering order.
var Categories = []Category{
	CategoryClassOrStruct,
	CategoryFunction,
	CategoryVariable,
	CategoryBugPattern,
	CategoryOther,
}

var categoryNames = map[Category]string{
	CategoryClassOrStruct: "class_or_struct",
	CategoryFunction:      "function",
	CategoryVariable:      "variable",
	CategoryBugPattern:    "bug_pattern",
	CategoryOther:         "other",
}

func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return fmt.Sprintf("category(%d)", int(c))
}

// MarshalText implements encoding.TextMarshaler.
func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Category) UnmarshalText(b []byte) error {
	for cat, name := range categoryNames {
		if name == string(b) {
			*c = cat
			return nil
		}
	}
	return fmt.Errorf("unknown knowledge category %q", string(b))
}

// KnowledgeEntry is one curated fact about the codebase.
type KnowledgeEntry struct {
	Category    Category `json:"category"`
	Term        string   `json:"term"`
	Description string   `json:"description"`
}

// ScriptEntry is one key/value line of a game-script file. Scripts give the
// model the in-game wording a bug report tends to use.
type ScriptEntry struct {
	File    string `json:"file"`
	Kind    string `json:"kind"`
	Section string `json:"section,omitempty"`
	Key     string `json:"key,omitempty"`
	Value   string `json:"value"`
}
