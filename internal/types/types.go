package types

import "time"

// Category is the classification bucket assigned to a finding.
type Category string

const (
	CategoryActual  Category = "actual"
	CategoryExpired Category = "expired"
	CategoryTest    Category = "test"
	CategoryUnknown Category = "unknown"
)

// Categories lists every category in reporting order.
var Categories = []Category{CategoryActual, CategoryExpired, CategoryTest, CategoryUnknown}

// Valid reports whether c is one of the four known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryActual, CategoryExpired, CategoryTest, CategoryUnknown:
		return true
	}
	return false
}

// ValidationState is the outcome reported by a validator.
type ValidationState string

const (
	StateValid         ValidationState = "valid"
	StateInvalid       ValidationState = "invalid"
	StateIndeterminate ValidationState = "indeterminate"
	// StateNone is never produced by a validator; it marks a finding no
	// validator looked at.
	StateNone ValidationState = ""
)

// ValidationResult is one validator's verdict on a finding. Evidence is always
// redacted before it is stored here.
type ValidationResult struct {
	State         ValidationState `json:"state"`
	Evidence      string          `json:"evidence,omitempty"`
	Reason        string          `json:"reason"`
	ValidatorName string          `json:"validator_name"`
	Timestamp     time.Time       `json:"timestamp"`
	// ExpiresAt is set when the validator learned the credential's expiry.
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// Finding describes one candidate secret occurrence at a path and 1-based line.
// Match is redact-safe; the raw value only travels in Secret and Companion,
// which are never serialized.
type Finding struct {
	Path        string             `json:"path"`
	Line        int                `json:"line"`
	Kind        string             `json:"kind"`
	Detector    string             `json:"detector"`
	Match       string             `json:"match"`
	IsSecret    bool               `json:"is_secret"`
	Reason      string             `json:"reason,omitempty"`
	Meta        map[string]string  `json:"meta,omitempty"`
	Validations []ValidationResult `json:"validations,omitempty"`
	RiskScore   int                `json:"risk_score"`
	Category    Category           `json:"category,omitempty"`

	Secret    string `json:"-"`
	Companion string `json:"-"`
}

// Key is the dedup identity of a finding.
type Key struct {
	Path  string
	Line  int
	Kind  string
	Match string
}

// Key returns the (path, line, kind, match) identity of f.
func (f Finding) Key() Key {
	return Key{Path: f.Path, Line: f.Line, Kind: f.Kind, Match: f.Match}
}

// ValidationState folds all attached results into one state: any valid wins,
// then any invalid, then any indeterminate.
func (f Finding) ValidationState() ValidationState {
	state := StateNone
	for _, r := range f.Validations {
		switch r.State {
		case StateValid:
			return StateValid
		case StateInvalid:
			state = StateInvalid
		case StateIndeterminate:
			if state == StateNone {
				state = StateIndeterminate
			}
		}
	}
	return state
}
