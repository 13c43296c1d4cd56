// Package redact masks secret material before it is stored or displayed and
// rewrites files when remediation replaces a literal in place.
package redact

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// MaskMarker replaces every masked character run.
const MaskMarker = "****"

// keep is how many trailing characters of a value survive masking.
const keep = 4

// reSecretish matches substrings long enough to be credential material.
var reSecretish = regexp.MustCompile(`[A-Za-z0-9+/_=-]{16,}`)

// Mask hides all but the last four characters of s. Values of four
// characters or fewer are masked completely.
func Mask(s string) string {
	r := []rune(s)
	if len(r) <= keep {
		return MaskMarker
	}
	return MaskMarker + string(r[len(r)-keep:])
}

// Evidence redacts free text produced by validators. Every occurrence of a
// known value is masked first, then any remaining secret-length run.
func Evidence(s string, known ...string) string {
	if s == "" {
		return s
	}
	// longest first so a value containing another is masked whole
	vals := make([]string, 0, len(known))
	for _, k := range known {
		if len([]rune(k)) > keep {
			vals = append(vals, k)
		}
	}
	sort.Slice(vals, func(i, j int) bool { return len(vals[i]) > len(vals[j]) })
	for _, v := range vals {
		s = strings.ReplaceAll(s, v, Mask(v))
	}
	return reSecretish.ReplaceAllStringFunc(s, Mask)
}

// ReplaceLiteral substitutes every occurrence of literal on the given 1-based
// line only. It reports false when the line does not contain the literal.
func ReplaceLiteral(path string, line int, literal, replacement string) (bool, error) {
	if literal == "" {
		return false, fmt.Errorf("empty literal")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}
	lines := bytes.SplitAfter(b, []byte("\n"))
	if line < 1 || line > len(lines) {
		return false, fmt.Errorf("line %d out of range for %s", line, path)
	}
	cur := lines[line-1]
	if !bytes.Contains(cur, []byte(literal)) {
		return false, nil
	}
	lines[line-1] = bytes.ReplaceAll(cur, []byte(literal), []byte(replacement))
	return true, writeAtomic(path, bytes.Join(lines, nil))
}

func writeAtomic(path string, data []byte) error {
	mode := os.FileMode(0o644)
	if st, err := os.Stat(path); err == nil {
		mode = st.Mode().Perm()
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".leakgate-*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	name := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(name)
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(name)
		return err
	}
	if err := os.Chmod(name, mode); err != nil {
		_ = os.Remove(name)
		return err
	}
	return os.Rename(name, path)
}
