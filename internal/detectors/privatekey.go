package detectors

import (
	"iter"
	"regexp"
	"strings"

	"github.com/leakgate/leakgate/internal/types"
)

var rePrivateKeyHeader = regexp.MustCompile(`-----BEGIN ((?:[A-Z0-9]+ )*)PRIVATE KEY(?: BLOCK)?-----`)

type privateKey struct{}

// PrivateKey flags PEM private key headers. The match is a fixed description
// of the block type, so nothing of the key body is ever echoed.
func PrivateKey() Detector { return privateKey{} }

func (privateKey) Name() string    { return "private_key" }
func (privateKey) Kinds() []string { return []string{"private_key"} }

func (d privateKey) Detect(path, text string) iter.Seq[types.Finding] {
	return func(yield func(types.Finding) bool) {
		for n, line := range lines(text) {
			m := rePrivateKeyHeader.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			label := "BEGIN " + m[1] + "PRIVATE KEY"
			f := newFinding(d.Name(), "private_key", path, n, m[0], "PEM private key block")
			f.Match = label
			if t := strings.TrimSpace(m[1]); t != "" {
				f.Meta = map[string]string{"key_type": t}
			}
			if !yield(f) {
				return
			}
		}
	}
}
