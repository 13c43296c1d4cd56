package detectors

import (
	"bufio"
	"iter"
	"regexp"
	"strings"

	"github.com/leakgate/leakgate/internal/redact"
	"github.com/leakgate/leakgate/internal/types"
)

// Inline suppression markers.
const (
	markerIgnore      = "leakgate:ignore"
	markerIgnoreNext  = "leakgate:ignore-next-line"
	markerIgnoreStart = "leakgate:ignore-start"
	markerIgnoreEnd   = "leakgate:ignore-end"
)

// maxLine bounds a single line; longer lines end the scan of that file.
const maxLine = 1 << 20

// lines yields 1-based line numbers and text, skipping lines suppressed by
// inline markers.
func lines(text string) iter.Seq2[int, string] {
	return func(yield func(int, string) bool) {
		sc := bufio.NewScanner(strings.NewReader(text))
		sc.Buffer(make([]byte, 0, 64*1024), maxLine)
		n := 0
		ignoreRegion := false
		skipNext := false
		for sc.Scan() {
			n++
			t := sc.Text()
			if strings.Contains(t, markerIgnoreStart) {
				ignoreRegion = true
				continue
			}
			if strings.Contains(t, markerIgnoreEnd) {
				ignoreRegion = false
				continue
			}
			if ignoreRegion {
				continue
			}
			if strings.Contains(t, markerIgnoreNext) {
				skipNext = true
				continue
			}
			if skipNext {
				skipNext = false
				continue
			}
			if strings.Contains(t, markerIgnore) {
				continue
			}
			if !yield(n, t) {
				return
			}
		}
	}
}

// pattern is one regex of a detector. group selects the capture holding the
// secret; 0 means the whole match.
type pattern struct {
	re     *regexp.Regexp
	group  int
	reason string
}

// regexDetector is the shared shape of line-oriented detectors.
type regexDetector struct {
	name     string
	kind     string
	patterns []pattern
	redact   bool
}

func (d *regexDetector) Name() string    { return d.name }
func (d *regexDetector) Kinds() []string { return []string{d.kind} }

func (d *regexDetector) Detect(path, text string) iter.Seq[types.Finding] {
	return func(yield func(types.Finding) bool) {
		for n, line := range lines(text) {
			for _, p := range d.patterns {
				for _, m := range p.re.FindAllStringSubmatch(line, -1) {
					if p.group >= len(m) || m[p.group] == "" {
						continue
					}
					f := newFinding(d.name, d.kind, path, n, m[p.group], p.reason)
					if !d.redact {
						f.Match = m[p.group]
					}
					if !yield(f) {
						return
					}
				}
			}
		}
	}
}

func newFinding(detector, kind, path string, line int, secret, reason string) types.Finding {
	return types.Finding{
		Path:     path,
		Line:     line,
		Kind:     kind,
		Detector: detector,
		Match:    redact.Mask(secret),
		IsSecret: true,
		Reason:   reason,
		Secret:   secret,
	}
}
