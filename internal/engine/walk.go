package engine

import (
	"bytes"
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	doublestar "github.com/bmatcuk/doublestar/v4"
	"github.com/gabriel-vasile/mimetype"
	"github.com/leakgate/leakgate/internal/ignore"
)

// DefaultMaxBytes is the largest file the filesystem source hands on.
const DefaultMaxBytes = 512 << 10

// markerIgnoreFile anywhere in a file skips it entirely.
const markerIgnoreFile = "leakgate:ignore-file"

// WalkConfig selects files under Root.
type WalkConfig struct {
	Root            string
	Include         []string
	Exclude         []string
	MaxBytes        int64
	DefaultExcludes bool
}

// Walk enumerates eligible files under cfg.Root in lexical order. Files that
// cannot be read are returned with Err set so the orchestrator can record
// them; oversized, binary and ignored files are skipped silently.
func Walk(ctx context.Context, cfg WalkConfig) ([]File, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	maxBytes := cfg.MaxBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	ign, err := ignore.Load(filepath.Join(cfg.Root, ignore.FileName))
	if err != nil {
		return nil, err
	}
	var out []File
	err = filepath.WalkDir(cfg.Root, func(p string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		rel, _ := filepath.Rel(cfg.Root, p)
		rel = filepath.ToSlash(rel)
		if err != nil {
			if rel != "." {
				out = append(out, File{Path: rel, Err: err})
			}
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if rel == "." {
				return nil
			}
			if cfg.DefaultExcludes && isDefaultDirExcluded(d.Name()) {
				return filepath.SkipDir
			}
			if ign.Match(rel + "/x") {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if !allowedByGlobs(rel, cfg.Include, cfg.Exclude) || ign.Match(rel) {
			return nil
		}
		if cfg.DefaultExcludes && isDefaultFileExcluded(strings.ToLower(rel)) {
			return nil
		}
		if info, ierr := d.Info(); ierr == nil && info.Size() > maxBytes {
			return nil
		}
		b, rerr := os.ReadFile(p)
		if rerr != nil {
			out = append(out, File{Path: rel, Err: rerr})
			return nil
		}
		if bytes.Contains(b, []byte(markerIgnoreFile)) {
			return nil
		}
		if looksBinary(b) {
			return nil
		}
		out = append(out, File{Path: rel, Data: b})
		return nil
	})
	return out, err
}

func looksBinary(b []byte) bool {
	const sniff = 800
	n := min(len(b), sniff)
	if bytes.IndexByte(b[:n], 0) >= 0 {
		return true
	}
	if len(b) == 0 {
		return false
	}
	for m := mimetype.Detect(b); m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return false
		}
	}
	return true
}

func allowedByGlobs(rel string, include, exclude []string) bool {
	if len(include) > 0 && !matchAnyGlob(rel, include) {
		return false
	}
	return !matchAnyGlob(rel, exclude)
}

func matchAnyGlob(rel string, globs []string) bool {
	for _, g := range globs {
		g = strings.TrimPrefix(strings.TrimSpace(g), "./")
		if g == "" {
			continue
		}
		if ok, _ := doublestar.Match(g, rel); ok {
			return true
		}
		if ok, _ := doublestar.Match(g, filepath.Base(rel)); ok {
			return true
		}
	}
	return false
}

// SplitGlobs parses a comma-separated glob list.
func SplitGlobs(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
