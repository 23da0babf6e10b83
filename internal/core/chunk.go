package core

import "fmt"

// SourceChunk is a contiguous range of lines from one source file. Line
// numbers are 1-indexed and inclusive.
type SourceChunk struct {
	FilePath  string `json:"file_path"`
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
	Text      string `json:"-"`
}

// Contains reports whether line falls inside the chunk.
func (c SourceChunk) Contains(line int) bool {
	return line >= c.StartLine && line <= c.EndLine
}

// Lines returns the number of lines the chunk spans.
func (c SourceChunk) Lines() int {
	return c.EndLine - c.StartLine + 1
}

// Location renders the chunk as path:start-end.
func (c SourceChunk) Location() string {
	return fmt.Sprintf("%s:%d-%d", c.FilePath, c.StartLine, c.EndLine)
}
