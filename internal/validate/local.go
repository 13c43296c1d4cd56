package validate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/mail"
	"regexp"
	"strings"

	"github.com/leakgate/leakgate/internal/redact"
	"github.com/leakgate/leakgate/internal/types"
)

// localValidator wraps a pure format check.
type localValidator struct {
	name  string
	kinds []string
	check func(f types.Finding) Outcome
}

func (l localValidator) Name() string    { return l.name }
func (l localValidator) Kinds() []string { return l.kinds }
func (l localValidator) Network() bool   { return false }
func (l localValidator) Validate(_ context.Context, f types.Finding) (Outcome, error) {
	return l.check(f), nil
}

// GitHubPATFormat checks prefix, length and alphabet.
func GitHubPATFormat() Validator {
	return localValidator{name: "github_pat_format", kinds: []string{"github_pat"}, check: func(f types.Finding) Outcome {
		if !LooksLikeGitHubToken(f.Secret) {
			return invalid("not a well-formed GitHub token")
		}
		return valid("well-formed GitHub token", "token "+redact.Mask(f.Secret))
	}}
}

// AWSKeypairFormat checks the access key ID and, when paired, the secret.
func AWSKeypairFormat() Validator {
	return localValidator{name: "aws_keypair_format", kinds: []string{"aws_keypair"}, check: func(f types.Finding) Outcome {
		ak, sk := splitAWSPair(f)
		if ak != "" && !LooksLikeAWSAccessKey(ak) {
			return invalid("malformed access key ID")
		}
		if sk != "" && !LooksLikeAWSSecretKey(sk) {
			return invalid("malformed secret access key")
		}
		if ak == "" || sk == "" {
			return indeterminate("only one half of the key pair present")
		}
		return valid("well-formed access key pair", "access key "+redact.Mask(ak))
	}}
}

// splitAWSPair returns (access key ID, secret key) whichever half was matched.
func splitAWSPair(f types.Finding) (string, string) {
	if strings.HasPrefix(f.Secret, "AKIA") || strings.HasPrefix(f.Secret, "ASIA") {
		return f.Secret, f.Companion
	}
	return f.Companion, f.Secret
}

var reSlackWebhook = regexp.MustCompile(`^https://hooks\.slack\.com/services/(T[A-Z0-9]{8,10})/([BC][A-Z0-9]{8,10})/([A-Za-z0-9]{24})$`)

// SlackWebhookFormat checks team, channel and token segments.
func SlackWebhookFormat() Validator {
	return localValidator{name: "slack_webhook_format", kinds: []string{"slack_webhook"}, check: func(f types.Finding) Outcome {
		m := reSlackWebhook.FindStringSubmatch(f.Secret)
		if m == nil {
			return invalid("team, channel or token segment malformed")
		}
		return valid("well-formed Slack webhook", "team "+m[1]+" token "+redact.Mask(m[3]))
	}}
}

// JWTStructure decodes header and payload and reports the exp claim.
func JWTStructure() Validator {
	return localValidator{name: "jwt_structure", kinds: []string{"jwt_generic"}, check: func(f types.Finding) Outcome {
		header, _, ok := JWTClaims(f.Secret)
		if !ok {
			return invalid("header or payload is not base64url JSON")
		}
		alg, _ := header["alg"].(string)
		out := valid("decodable JWT", fmt.Sprintf("alg=%s token %s", alg, redact.Mask(f.Secret)))
		if exp, ok := JWTExpiry(f.Secret); ok {
			out.ExpiresAt = &exp
		}
		return out
	}}
}

// AzureSASFormat checks the required SAS parameters and reports se= expiry.
func AzureSASFormat() Validator {
	return localValidator{name: "azure_sas_format", kinds: []string{"azure_storage_sas"}, check: func(f types.Finding) Outcome {
		q, ok := SASParams(f.Secret)
		if !ok || !strings.HasPrefix(f.Secret, "https://") {
			return invalid("not an https URL with a query")
		}
		for _, p := range []string{"sv", "sig", "se"} {
			if q.Get(p) == "" {
				return invalid("missing " + p + " parameter")
			}
		}
		out := valid("well-formed SAS URL", fmt.Sprintf("sv=%s sp=%s sig=%s", q.Get("sv"), q.Get("sp"), redact.Mask(q.Get("sig"))))
		if se, ok := SASExpiry(f.Secret); ok {
			out.ExpiresAt = &se
		}
		return out
	}}
}

type serviceAccountKey struct {
	Type         string `json:"type"`
	ProjectID    string `json:"project_id"`
	PrivateKeyID string `json:"private_key_id"`
	PrivateKey   string `json:"private_key"`
	ClientEmail  string `json:"client_email"`
	TokenURI     string `json:"token_uri"`
}

// GCPServiceAccountFormat checks the fields a key needs to be usable.
func GCPServiceAccountFormat() Validator {
	return localValidator{name: "gcp_sa_format", kinds: []string{"gcp_service_account_key"}, check: func(f types.Finding) Outcome {
		var k serviceAccountKey
		if err := json.Unmarshal([]byte(f.Secret), &k); err != nil {
			return invalid("not a JSON document")
		}
		switch {
		case k.Type != "service_account":
			return invalid("type is not service_account")
		case k.PrivateKeyID == "" || !strings.Contains(k.PrivateKey, "PRIVATE KEY"):
			return invalid("private key fields missing")
		}
		addr, err := mail.ParseAddress(k.ClientEmail)
		if err != nil || !strings.HasSuffix(addr.Address, ".gserviceaccount.com") {
			return invalid("client_email is not a service account address")
		}
		return valid("well-formed service account key", "key id "+redact.Mask(k.PrivateKeyID)+" project "+k.ProjectID)
	}}
}

