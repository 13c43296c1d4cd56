package detectors

import (
	"iter"
	"regexp"

	"github.com/leakgate/leakgate/internal/types"
)

var (
	reAWSAccess = regexp.MustCompile(`\b(?:AKIA|ASIA)[0-9A-Z]{16}\b`)
	// Very broad on its own; only trusted inside a secret-key assignment.
	reAWSSecret = regexp.MustCompile(`(?i)(?:aws_secret_access_key|aws_secret_key|secret_access_key|secretaccesskey|secretKey)["'\s:=]+([A-Za-z0-9/+=]{40})(?:[^A-Za-z0-9/+=]|$)`)
)

type awsKeypair struct{}

// AWSKeypair detects access key IDs and secret access keys. When both halves
// appear in the same file they are paired so a validator can try the pair.
func AWSKeypair() Detector { return awsKeypair{} }

func (awsKeypair) Name() string    { return "aws_keypair" }
func (awsKeypair) Kinds() []string { return []string{"aws_keypair"} }

func (d awsKeypair) Detect(path, text string) iter.Seq[types.Finding] {
	return func(yield func(types.Finding) bool) {
		// first occurrence of each half anchors the pairing
		var firstAccess, firstSecret string
		if m := reAWSAccess.FindString(text); m != "" {
			firstAccess = m
		}
		if m := reAWSSecret.FindStringSubmatch(text); len(m) == 2 {
			firstSecret = m[1]
		}
		for n, line := range lines(text) {
			for _, ak := range reAWSAccess.FindAllString(line, -1) {
				f := newFinding(d.Name(), "aws_keypair", path, n, ak, "AWS access key ID")
				f.Companion = firstSecret
				if firstSecret != "" {
					f.Meta = map[string]string{"paired": "secret_access_key"}
				}
				if !yield(f) {
					return
				}
			}
			for _, m := range reAWSSecret.FindAllStringSubmatch(line, -1) {
				f := newFinding(d.Name(), "aws_keypair", path, n, m[1], "AWS secret access key assignment")
				f.Companion = firstAccess
				if firstAccess != "" {
					f.Meta = map[string]string{"paired": "access_key_id"}
				}
				if !yield(f) {
					return
				}
			}
		}
	}
}
