// Package git reads repository facts with go-git: where a scan root sits in
// a checkout, which commit it is at, and how long each line has existed.
package git

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// Metadata is best-effort repository identity.
type Metadata struct {
	Repo   string `json:"repo,omitempty"`
	Commit string `json:"commit,omitempty"`
	Branch string `json:"branch,omitempty"`
}

// Repo is an opened checkout plus the scan root's position inside it.
type Repo struct {
	repo *gogit.Repository
	head *object.Commit
	// prefix is the scan root relative to the worktree root, slash separated.
	prefix string

	mu    sync.Mutex
	blame map[string][]*gogit.Line
}

// validateRoot cleans root and checks that it is a directory.
func validateRoot(root string) (string, error) {
	if strings.ContainsRune(root, 0) {
		return "", fmt.Errorf("invalid path: contains null byte")
	}
	abs, err := filepath.Abs(filepath.Clean(root))
	if err != nil {
		return "", fmt.Errorf("invalid path %q: %w", root, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("cannot access path %q: %w", root, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("path is not a directory: %s", root)
	}
	return abs, nil
}

// Open finds the repository containing root, searching parent directories.
func Open(root string) (*Repo, error) {
	abs, err := validateRoot(root)
	if err != nil {
		return nil, err
	}
	r, err := gogit.PlainOpenWithOptions(abs, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, err
	}
	ref, err := r.Head()
	if err != nil {
		return nil, fmt.Errorf("resolve HEAD: %w", err)
	}
	head, err := r.CommitObject(ref.Hash())
	if err != nil {
		return nil, err
	}
	wt, err := r.Worktree()
	if err != nil {
		return nil, err
	}
	top, err := filepath.EvalSymlinks(wt.Filesystem.Root())
	if err != nil {
		return nil, err
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, err
	}
	rel, err := filepath.Rel(top, resolved)
	if err != nil {
		return nil, err
	}
	prefix := filepath.ToSlash(rel)
	if prefix == "." {
		prefix = ""
	}
	return &Repo{repo: r, head: head, prefix: prefix, blame: map[string][]*gogit.Line{}}, nil
}

// Metadata returns remote, commit and branch; missing parts stay empty.
func (r *Repo) Metadata() Metadata {
	m := Metadata{Commit: r.head.Hash.String()}
	if ref, err := r.repo.Head(); err == nil && ref.Name().IsBranch() {
		m.Branch = ref.Name().Short()
	}
	if rem, err := r.repo.Remote("origin"); err == nil && len(rem.Config().URLs) > 0 {
		m.Repo = shortRepo(rem.Config().URLs[0])
	}
	return m
}

// shortRepo keeps owner/name when the URL allows it.
func shortRepo(u string) string {
	s := strings.TrimSuffix(strings.TrimSpace(u), ".git")
	if i := strings.Index(s, "github.com/"); i >= 0 {
		return s[i+len("github.com/"):]
	}
	if i := strings.LastIndex(s, ":"); i >= 0 && !strings.Contains(s[i:], "//") {
		s = s[i+1:]
	}
	return s
}

// ErrUntracked marks a path or line HEAD knows nothing about.
var ErrUntracked = errors.New("not committed")

// LineDate returns when the given 1-based line of a scan-relative path was
// last committed. Blame results are cached per file.
func (r *Repo) LineDate(rel string, line int) (time.Time, error) {
	lines, err := r.blameFor(rel)
	if err != nil {
		return time.Time{}, err
	}
	if line < 1 || line > len(lines) {
		return time.Time{}, ErrUntracked
	}
	return lines[line-1].Date, nil
}

func (r *Repo) blameFor(rel string) ([]*gogit.Line, error) {
	p := path.Join(r.prefix, filepath.ToSlash(rel))
	r.mu.Lock()
	defer r.mu.Unlock()
	if lines, ok := r.blame[p]; ok {
		if lines == nil {
			return nil, ErrUntracked
		}
		return lines, nil
	}
	res, err := gogit.Blame(r.head, p)
	if err != nil {
		r.blame[p] = nil
		if errors.Is(err, object.ErrFileNotFound) {
			return nil, ErrUntracked
		}
		return nil, fmt.Errorf("blame %s: %w", p, err)
	}
	r.blame[p] = res.Lines
	return res.Lines, nil
}

// AgeDays returns whole days between the line's commit date and now, or 0
// when the line is not committed.
func (r *Repo) AgeDays(rel string, line int, now time.Time) int {
	when, err := r.LineDate(rel, line)
	if err != nil || when.After(now) {
		return 0
	}
	return int(now.Sub(when).Hours() / 24)
}
