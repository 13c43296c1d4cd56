// Package autofix turns high-risk findings into remediation steps and,
// behind an explicit confirmation, applies the file-rewriting ones.
package autofix

import (
	"fmt"
	"sort"

	"github.com/leakgate/leakgate/internal/types"
)

// Action is the kind of remediation step.
type Action string

const (
	ActionReplaceWithSecretRef Action = "replace_with_secret_ref"
	ActionRevokeToken          Action = "revoke_token"
	ActionDeactivateKey        Action = "deactivate_key"
	ActionRevokeWebhook        Action = "revoke_webhook"
	ActionRotateAccountKey     Action = "rotate_account_key"
	ActionDeleteKey            Action = "delete_key"
)

// Revocation reports whether a is executed against the origin service rather
// than the working tree.
func (a Action) Revocation() bool {
	return a != ActionReplaceWithSecretRef
}

// PlanItem is one step of the plan. Path, Line, Kind and Match identify the
// finding; Match is the redacted form.
type PlanItem struct {
	Path        string `json:"path"`
	Line        int    `json:"line"`
	Kind        string `json:"kind"`
	Match       string `json:"match"`
	RiskScore   int    `json:"risk_score"`
	Action      Action `json:"action"`
	Provider    string `json:"provider"`
	Replacement string `json:"replacement,omitempty"`
	Reversible  bool   `json:"reversible"`
	SafetyNote  string `json:"safety_note"`
	Description string `json:"description"`

	// Literal is the raw value a replacement step rewrites.
	Literal string `json:"-"`
}

type provider struct {
	name        string
	replacement string
	revoke      Action
	revokeNote  string
}

var providers = map[string]provider{
	"github_pat": {
		name:        "github",
		replacement: "${{ secrets.GITHUB_TOKEN }}",
		revoke:      ActionRevokeToken,
		revokeNote:  "token revocation cannot be undone",
	},
	"aws_keypair": {
		name:        "aws",
		replacement: "{{resolve:secretsmanager:aws-access-keys:SecretString:AccessKeyId}}",
		revoke:      ActionDeactivateKey,
		revokeNote:  "workloads still using the key fail once it is deactivated",
	},
	"slack_webhook": {
		name:        "slack",
		replacement: "${SLACK_WEBHOOK_URL}",
		revoke:      ActionRevokeWebhook,
		revokeNote:  "a revoked webhook URL cannot be restored; a new one must be issued",
	},
	"azure_storage_sas": {
		name:        "azure",
		replacement: "@Microsoft.KeyVault(SecretUri=https://<vault>.vault.azure.net/secrets/storage-sas)",
		revoke:      ActionRotateAccountKey,
		revokeNote:  "rotating the account key invalidates every SAS signed with it",
	},
	"gcp_service_account_key": {
		name:        "gcp",
		replacement: "projects/<project>/secrets/sa-key/versions/latest",
		revoke:      ActionDeleteKey,
		revokeNote:  "a deleted service account key cannot be recovered",
	},
}

var fallback = provider{name: "env", replacement: "${LEAKGATE_SECRET}"}

// Planner builds plans for findings at or above MinRiskScore.
type Planner struct {
	MinRiskScore int
}

// Plan returns the steps for every qualifying finding, highest risk first and
// in finding order among equal scores. Each finding yields a replacement step
// followed by a revocation step when its provider supports one. Plan never
// touches files or the network.
func (p Planner) Plan(findings []types.Finding) []PlanItem {
	idx := make([]int, 0, len(findings))
	for i, f := range findings {
		if f.RiskScore >= p.MinRiskScore {
			idx = append(idx, i)
		}
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return findings[idx[a]].RiskScore > findings[idx[b]].RiskScore
	})

	items := make([]PlanItem, 0, 2*len(idx))
	for _, i := range idx {
		items = append(items, stepsFor(findings[i])...)
	}
	return items
}

func stepsFor(f types.Finding) []PlanItem {
	pv, ok := providers[f.Kind]
	if !ok {
		pv = fallback
	}
	base := PlanItem{
		Path:      f.Path,
		Line:      f.Line,
		Kind:      f.Kind,
		Match:     f.Match,
		RiskScore: f.RiskScore,
		Provider:  pv.name,
	}
	replace := base
	replace.Action = ActionReplaceWithSecretRef
	replace.Replacement = pv.replacement
	replace.Reversible = true
	replace.Literal = f.Secret
	replace.SafetyNote = "the literal stays in history; revoke or rotate it as well"
	replace.Description = fmt.Sprintf("replace %s literal %s in %s:%d with a %s secret reference", f.Kind, f.Match, f.Path, f.Line, pv.name)
	if f.Kind == "private_key" {
		replace.SafetyNote = "only the header line is replaced; remove the key body by hand"
	}
	steps := []PlanItem{replace}
	if pv.revoke == "" {
		return steps
	}
	revoke := base
	revoke.Action = pv.revoke
	revoke.Reversible = false
	revoke.SafetyNote = pv.revokeNote
	revoke.Description = fmt.Sprintf("%s %s credential %s at the origin service", pv.revoke, pv.name, f.Match)
	return append(steps, revoke)
}
