// Package ignore reads .leakgateignore files: one doublestar pattern per
// line, '#' comments, and a trailing '/' for directories.
package ignore

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"

	doublestar "github.com/bmatcuk/doublestar/v4"
)

// FileName is the ignore file looked up at the scan root.
const FileName = ".leakgateignore"

// Matcher reports whether a slash-separated relative path is ignored.
type Matcher struct {
	patterns []rule
}

type rule struct {
	glob string
	dir  bool
	// anchored patterns contain a slash and match from the root only
	anchored bool
}

// Load parses the ignore file at p. A missing file yields an empty matcher.
func Load(p string) (Matcher, error) {
	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Matcher{}, nil
		}
		return Matcher{}, err
	}
	defer f.Close()
	var m Matcher
	sc := bufio.NewScanner(f)
	n := 0
	for sc.Scan() {
		n++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		r := rule{}
		if strings.HasSuffix(line, "/") {
			r.dir = true
			line = strings.TrimSuffix(line, "/")
		}
		line = strings.TrimPrefix(line, "/")
		r.anchored = strings.Contains(line, "/")
		if !doublestar.ValidatePattern(line) {
			return Matcher{}, fmt.Errorf("%s:%d: invalid pattern %q", p, n, line)
		}
		r.glob = line
		m.patterns = append(m.patterns, r)
	}
	return m, sc.Err()
}

// Match reports whether rel (slash separated, relative to the root) is ignored.
func (m Matcher) Match(rel string) bool {
	rel = strings.TrimPrefix(path.Clean(strings.ReplaceAll(rel, "\\", "/")), "./")
	segs := strings.Split(rel, "/")
	for _, r := range m.patterns {
		if r.matches(rel, segs) {
			return true
		}
	}
	return false
}

func (r rule) matches(rel string, segs []string) bool {
	if r.anchored {
		if ok, _ := doublestar.Match(r.glob, rel); ok && !r.dir {
			return true
		}
		// a directory pattern covers everything beneath it
		for i := 1; i < len(segs); i++ {
			if ok, _ := doublestar.Match(r.glob, strings.Join(segs[:i], "/")); ok {
				return true
			}
		}
		return false
	}
	last := len(segs) - 1
	for i, s := range segs {
		if r.dir && i == last {
			break
		}
		if ok, _ := doublestar.Match(r.glob, s); ok {
			return true
		}
	}
	return false
}
