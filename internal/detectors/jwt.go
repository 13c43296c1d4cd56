package detectors

import "regexp"

var reJWT = regexp.MustCompile(`\beyJ[A-Za-z0-9_-]{5,}\.eyJ[A-Za-z0-9_-]{2,}\.[A-Za-z0-9_-]{8,}`)

// JWTGeneric detects signed JSON Web Tokens whose header and payload are JSON objects.
func JWTGeneric() Detector {
	return &regexDetector{
		name:     "jwt_generic",
		kind:     "jwt_generic",
		patterns: []pattern{{re: reJWT, reason: "three-segment JWT with JSON header and payload"}},
		redact:   true,
	}
}
