package detectors

import "regexp"

// PAT formats evolve; cover ghp_, gho_, ghu_, ghs_, ghr_ and fine-grained tokens.
var (
	reGHP         = regexp.MustCompile(`\bgh[pousr]_[A-Za-z0-9]{36,255}\b`)
	reGHFineGrain = regexp.MustCompile(`\bgithub_pat_[A-Za-z0-9_]{82,255}\b`)
)

// GitHubPAT detects classic and fine-grained GitHub tokens.
func GitHubPAT() Detector {
	return &regexDetector{
		name: "github_pat",
		kind: "github_pat",
		patterns: []pattern{
			{re: reGHP, reason: "GitHub token prefix with 36+ alphanumerics"},
			{re: reGHFineGrain, reason: "GitHub fine-grained personal access token"},
		},
		redact: true,
	}
}
