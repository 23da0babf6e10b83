// Package chunker walks a source tree and cuts every included file into
// fixed-size, non-overlapping line ranges.
package chunker

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/sevigo/bug-warden/internal/config"
	"github.com/sevigo/bug-warden/internal/core"
)

// Result is the outcome of chunking one tree.
type Result struct {
	Chunks []core.SourceChunk
	// Files counts the files that produced at least one line.
	Files int
	// LossyFiles lists files decoded with replacement characters.
	LossyFiles []string
	// Warnings holds one error per skipped file, each wrapping
	// core.ErrUnreadableSource.
	Warnings []error
}

// Chunker turns a source tree into an ordered sequence of chunks.
type Chunker struct {
	size        int
	extensions  map[string]bool
	excludeDirs map[string]bool
	decoder     *Decoder
	logger      *slog.Logger
}

// New builds a chunker from the chunker configuration.
func New(cfg config.ChunkerConfig, logger *slog.Logger) (*Chunker, error) {
	if cfg.ChunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", cfg.ChunkSize)
	}
	dec, err := NewDecoder(cfg.Encodings)
	if err != nil {
		return nil, err
	}
	c := &Chunker{
		size:        cfg.ChunkSize,
		extensions:  make(map[string]bool, len(cfg.Extensions)),
		excludeDirs: make(map[string]bool, len(cfg.ExcludeDirs)),
		decoder:     dec,
		logger:      logger,
	}
	for _, ext := range cfg.Extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		c.extensions[ext] = true
	}
	for _, d := range cfg.ExcludeDirs {
		c.excludeDirs[d] = true
	}
	return c, nil
}

// Chunk walks root in lexical order and chunks every included file. Only a
// missing root or a cancelled context is returned as an error; unreadable
// files are recorded in Result.Warnings and skipped.
func (c *Chunker) Chunk(ctx context.Context, root string) (*Result, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to stat source root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("source root %s is not a directory", root)
	}

	res := &Result{}
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return fmt.Errorf("failed to compute relative path for %s: %w", path, relErr)
		}
		if walkErr != nil {
			if rel == "." {
				return walkErr
			}
			res.Warnings = append(res.Warnings, fmt.Errorf("%w: %s: %w", core.ErrUnreadableSource, filepath.ToSlash(rel), walkErr))
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if rel == "." {
			return nil
		}
		if d.IsDir() {
			if c.shouldSkipDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !c.included(path) {
			return nil
		}

		rel = filepath.ToSlash(rel)
		chunks, lossy, err := c.chunkFile(path, rel)
		if err != nil {
			c.logger.Warn("skipping unreadable source file", "file", rel, "error", err)
			res.Warnings = append(res.Warnings, err)
			return nil
		}
		if lossy {
			c.logger.Debug("file decoded lossily", "file", rel)
			res.LossyFiles = append(res.LossyFiles, rel)
		}
		if len(chunks) > 0 {
			res.Files++
			res.Chunks = append(res.Chunks, chunks...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info("source tree chunked", "root", root, "files", res.Files, "chunks", len(res.Chunks), "skipped", len(res.Warnings))
	return res, nil
}

func (c *Chunker) chunkFile(path, rel string) ([]core.SourceChunk, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %s: %w", core.ErrUnreadableSource, rel, err)
	}
	text, _, lossy := c.decoder.Decode(data)
	return SplitText(rel, text, c.size), lossy, nil
}

func (c *Chunker) shouldSkipDir(name string) bool {
	if strings.HasPrefix(name, ".") && name != "." {
		return true
	}
	return c.excludeDirs[name]
}

func (c *Chunker) included(path string) bool {
	return c.extensions[strings.ToLower(filepath.Ext(path))]
}

// SplitText cuts decoded text into chunks of at most size lines. Line endings
// are normalised to LF and a single trailing newline does not count as an
// extra line, so joining the chunk texts with "\n" gives back the text
// without its final newline.
func SplitText(path, text string, size int) []core.SourceChunk {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	if text == "" || size <= 0 {
		return nil
	}
	lines := strings.Split(strings.TrimSuffix(text, "\n"), "\n")

	chunks := make([]core.SourceChunk, 0, (len(lines)+size-1)/size)
	for start := 0; start < len(lines); start += size {
		end := min(start+size, len(lines))
		chunks = append(chunks, core.SourceChunk{
			FilePath:  path,
			StartLine: start + 1,
			EndLine:   end,
			Text:      strings.Join(lines[start:end], "\n"),
		})
	}
	return chunks
}
