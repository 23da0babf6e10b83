// Package gitutil reads version information from the analysed source tree.
package gitutil

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-git/go-git/v5"
)

// Revision identifies the commit a source tree was analysed at.
type Revision struct {
	Hash   string
	Branch string
	// Dirty is set when the work tree has uncommitted changes.
	Dirty bool
}

// String renders the revision as "branch@hash", with a "+dirty" suffix.
func (r Revision) String() string {
	if r.Hash == "" {
		return ""
	}
	s := r.Hash
	if len(s) > 12 {
		s = s[:12]
	}
	if r.Branch != "" {
		s = r.Branch + "@" + s
	}
	if r.Dirty {
		s += "+dirty"
	}
	return s
}

// Client handles interacting with Git repositories.
type Client struct {
	Logger *slog.Logger
}

// NewClient returns a new Client instance.
func NewClient(logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{Logger: logger}
}

// Open opens the Git repository containing path.
func (c *Client) Open(path string) (*git.Repository, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open repository at %s: %w", path, err)
	}
	return repo, nil
}

// HeadRevision returns the HEAD revision of the work tree containing path.
// A tree that is not under git yields a zero Revision and no error.
func (c *Client) HeadRevision(path string) (Revision, error) {
	repo, err := c.Open(path)
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return Revision{}, nil
		}
		return Revision{}, err
	}

	head, err := repo.Head()
	if err != nil {
		return Revision{}, fmt.Errorf("failed to resolve HEAD: %w", err)
	}
	rev := Revision{Hash: head.Hash().String()}
	if head.Name().IsBranch() {
		rev.Branch = head.Name().Short()
	}

	wt, err := repo.Worktree()
	if err != nil {
		c.Logger.Debug("no work tree for repository", "path", path, "error", err)
		return rev, nil
	}
	status, err := wt.Status()
	if err != nil {
		c.Logger.Debug("could not read work tree status", "path", path, "error", err)
		return rev, nil
	}
	rev.Dirty = !status.IsClean()
	return rev, nil
}
