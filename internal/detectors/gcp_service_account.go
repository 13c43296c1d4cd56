package detectors

import (
	"encoding/json"
	"iter"
	"strings"

	"github.com/leakgate/leakgate/internal/redact"
	"github.com/leakgate/leakgate/internal/types"
)

// maxServiceAccountBytes skips JSON parsing of large documents.
const maxServiceAccountBytes = 1 << 20

type gcpServiceAccount struct{}

// GCPServiceAccountKey detects JSON service account key files. The whole
// document is the secret since the key is useless without its metadata.
func GCPServiceAccountKey() Detector { return gcpServiceAccount{} }

func (gcpServiceAccount) Name() string    { return "gcp_service_account_key" }
func (gcpServiceAccount) Kinds() []string { return []string{"gcp_service_account_key"} }

func (d gcpServiceAccount) Detect(path, text string) iter.Seq[types.Finding] {
	return func(yield func(types.Finding) bool) {
		if len(text) > maxServiceAccountBytes || !strings.Contains(text, "service_account") {
			return
		}
		var obj struct {
			Type         string `json:"type"`
			ProjectID    string `json:"project_id"`
			PrivateKeyID string `json:"private_key_id"`
			PrivateKey   string `json:"private_key"`
		}
		if err := json.Unmarshal([]byte(text), &obj); err != nil {
			return
		}
		if obj.Type != "service_account" || !strings.Contains(obj.PrivateKey, "PRIVATE KEY") {
			return
		}
		line := 1
		for n, l := range lines(text) {
			if strings.Contains(l, `"private_key"`) {
				line = n
				break
			}
		}
		f := newFinding(d.Name(), "gcp_service_account_key", path, line, text, "GCP service account JSON with private_key")
		f.Match = redact.Mask(obj.PrivateKeyID)
		if obj.ProjectID != "" {
			f.Meta = map[string]string{"project_id": obj.ProjectID}
		}
		yield(f)
	}
}
