// Package classify buckets findings into actual, expired, test or unknown.
// It only reads results already attached to a finding; it never validates.
package classify

import (
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/leakgate/leakgate/internal/types"
	"github.com/leakgate/leakgate/internal/validate"
)

var testPaths = []*regexp.Regexp{
	regexp.MustCompile(`(^|/)tests?/`),
	regexp.MustCompile(`(^|/)fixtures?/`),
	regexp.MustCompile(`(^|/)examples?/`),
	regexp.MustCompile(`(^|/)samples?/`),
	regexp.MustCompile(`(^|/)mocks?/`),
	regexp.MustCompile(`(^|/)demos?/`),
	regexp.MustCompile(`(^|/)spec/`),
	regexp.MustCompile(`(^|/)__tests__/`),
	regexp.MustCompile(`(^|/)test_[^/]*\.py$`),
	regexp.MustCompile(`_test\.py$`),
	regexp.MustCompile(`_test\.go$`),
}

var filenameMarkers = []string{"test", "sample", "example", "dummy", "fixture", "mock", "demo"}

var valueMarkers = []string{"EXAMPLE", "DUMMY", "SAMPLE", "FAKE", "PLACEHOLDER", "XXXXXX"}

// minHeuristicLen is the shortest value the repetition and entropy checks apply to.
const minHeuristicLen = 10

const lowEntropy = 2.0

// Classify returns the first matching category and the reasons behind it:
// expired, then test, then actual, otherwise unknown.
func Classify(f types.Finding, now time.Time) (types.Category, []string) {
	if r := expiredReason(f, now); r != "" {
		return types.CategoryExpired, []string{r}
	}
	if r := testReason(f); r != "" {
		return types.CategoryTest, []string{r}
	}
	var valid []string
	for _, v := range f.Validations {
		if v.State == types.StateValid {
			valid = append(valid, "validator:"+v.ValidatorName+":valid")
		}
	}
	if len(valid) > 0 {
		return types.CategoryActual, valid
	}
	return types.CategoryUnknown, []string{"no rule matched"}
}

// Apply classifies every finding in place.
func Apply(findings []types.Finding, now time.Time) {
	for i := range findings {
		findings[i].Category, _ = Classify(findings[i], now)
	}
}

func expiredReason(f types.Finding, now time.Time) string {
	for _, v := range f.Validations {
		if v.ExpiresAt != nil && v.ExpiresAt.Before(now) {
			return "validator:" + v.ValidatorName + ":expired " + v.ExpiresAt.UTC().Format(time.RFC3339)
		}
	}
	if f.Kind == "jwt_generic" || validate.IsJWTStructure(f.Secret) {
		if exp, ok := validate.JWTExpiry(f.Secret); ok && exp.Before(now) {
			return "offline:jwt_expired " + exp.Format(time.RFC3339)
		}
	}
	if f.Kind == "azure_storage_sas" || strings.Contains(f.Secret, "se=") {
		if se, ok := validate.SASExpiry(f.Secret); ok && se.Before(now) {
			return "offline:sas_expired " + se.Format(time.RFC3339)
		}
	}
	return ""
}

func testReason(f types.Finding) string {
	p := strings.ToLower(strings.ReplaceAll(f.Path, "\\", "/"))
	for _, re := range testPaths {
		if re.MatchString(p) {
			return "path:" + re.String()
		}
	}
	for _, tok := range strings.FieldsFunc(path.Base(p), func(r rune) bool {
		return r == '.' || r == '_' || r == '-'
	}) {
		for _, m := range filenameMarkers {
			if markerToken(tok, m) {
				return "filename:" + m
			}
		}
	}
	return valueReason(f.Secret)
}

// markerToken reports whether tok is m, its plural, or m followed by digits.
func markerToken(tok, m string) bool {
	rest, ok := strings.CutPrefix(tok, m)
	if !ok {
		return false
	}
	if rest == "s" {
		return true
	}
	return strings.Trim(rest, "0123456789") == ""
}

func valueReason(v string) string {
	upper := strings.ToUpper(v)
	for _, m := range valueMarkers {
		if strings.Contains(upper, m) {
			return "value:" + strings.ToLower(m)
		}
	}
	if len(v) < minHeuristicLen {
		return ""
	}
	if strings.Trim(v, "0") == "" {
		return "value:all_zeros"
	}
	if strings.Trim(v, v[:1]) == "" {
		return "value:repeated_character"
	}
	if validate.ShannonEntropy(v) < lowEntropy {
		return "value:low_entropy"
	}
	return ""
}
