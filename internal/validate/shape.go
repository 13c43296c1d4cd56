package validate

import (
	"encoding/base64"
	"encoding/json"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	base62     = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	upperAlnum = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	b64like    = base62 + "+/="
)

// LengthBetween returns true if n is within [min,max].
func LengthBetween(s string, min, max int) bool {
	n := len(s)
	return n >= min && n <= max
}

// IsAlphabet returns true if every byte of s is in allowed.
func IsAlphabet(s, allowed string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if strings.IndexByte(allowed, s[i]) < 0 {
			return false
		}
	}
	return true
}

// IsBase64URLNoPad reports whether s is valid unpadded base64url.
func IsBase64URLNoPad(s string) bool {
	if s == "" {
		return false
	}
	_, err := base64.RawURLEncoding.DecodeString(s)
	return err == nil
}

// LooksLikeGitHubToken accepts classic tokens (gh[pousr]_ + 36 base62) and
// fine-grained github_pat_ tokens.
func LooksLikeGitHubToken(s string) bool {
	if rest, ok := strings.CutPrefix(s, "github_pat_"); ok {
		return LengthBetween(rest, 82, 255) && IsAlphabet(rest, base62+"_")
	}
	if len(s) < 4 || s[:2] != "gh" || s[3] != '_' || strings.IndexByte("pousr", s[2]) < 0 {
		return false
	}
	tail := s[4:]
	return LengthBetween(tail, 36, 255) && IsAlphabet(tail, base62)
}

// LooksLikeAWSAccessKey checks for AKIA/ASIA + 16 uppercase alnum.
func LooksLikeAWSAccessKey(s string) bool {
	if !(strings.HasPrefix(s, "AKIA") || strings.HasPrefix(s, "ASIA")) || len(s) != 20 {
		return false
	}
	return IsAlphabet(s[4:], upperAlnum)
}

// LooksLikeAWSSecretKey checks base64-like alphabet and exact length 40.
func LooksLikeAWSSecretKey(s string) bool {
	return len(s) == 40 && IsAlphabet(s, b64like)
}

// IsJWTStructure verifies three segments with base64url header and payload.
// The signature is not decoded.
func IsJWTStructure(s string) bool {
	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return false
	}
	return IsBase64URLNoPad(parts[0]) && IsBase64URLNoPad(parts[1])
}

// JWTClaims decodes the header and payload of a JWT as JSON objects.
func JWTClaims(s string) (header, payload map[string]any, ok bool) {
	if !IsJWTStructure(s) {
		return nil, nil, false
	}
	parts := strings.Split(s, ".")
	hb, _ := base64.RawURLEncoding.DecodeString(parts[0])
	pb, _ := base64.RawURLEncoding.DecodeString(parts[1])
	if json.Unmarshal(hb, &header) != nil || json.Unmarshal(pb, &payload) != nil {
		return nil, nil, false
	}
	return header, payload, true
}

// JWTExpiry returns the exp claim of a JWT, if present and numeric.
func JWTExpiry(s string) (time.Time, bool) {
	_, payload, ok := JWTClaims(s)
	if !ok {
		return time.Time{}, false
	}
	switch v := payload["exp"].(type) {
	case float64:
		return time.Unix(int64(v), 0).UTC(), true
	case string:
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return time.Unix(n, 0).UTC(), true
		}
	}
	return time.Time{}, false
}

// SASParams parses the query of an Azure SAS URL.
func SASParams(raw string) (url.Values, bool) {
	u, err := url.Parse(raw)
	if err != nil || u.RawQuery == "" {
		return nil, false
	}
	q, err := url.ParseQuery(u.RawQuery)
	if err != nil {
		return nil, false
	}
	return q, true
}

// SASExpiry returns the se= expiry of an Azure SAS URL. Azure accepts
// full RFC 3339 timestamps and bare dates.
func SASExpiry(raw string) (time.Time, bool) {
	q, ok := SASParams(raw)
	if !ok {
		return time.Time{}, false
	}
	se := q.Get("se")
	if se == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04Z", "2006-01-02"} {
		if t, err := time.Parse(layout, se); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// ShannonEntropy returns the per-character entropy of s in bits.
func ShannonEntropy(s string) float64 {
	if s == "" {
		return 0
	}
	var freq [256]float64
	for i := 0; i < len(s); i++ {
		freq[s[i]]++
	}
	var h float64
	n := float64(len(s))
	for _, c := range freq {
		if c == 0 {
			continue
		}
		p := c / n
		h -= p * math.Log2(p)
	}
	return h
}
