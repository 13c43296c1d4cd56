package detectors

import "regexp"

// Require both sig and sv parameters (order-insensitive) without lookaheads.
var reAzureSAS = regexp.MustCompile(`https?://[A-Za-z0-9.-]+\.core\.windows\.net/[^?\s"']*\?[^\s"']*sig=[^\s&"']+[^\s"']*sv=[^\s&"']+[^\s"']*|https?://[A-Za-z0-9.-]+\.core\.windows\.net/[^?\s"']*\?[^\s"']*sv=[^\s&"']+[^\s"']*sig=[^\s&"']+[^\s"']*`)

// AzureStorageSAS detects storage URLs carrying a shared access signature.
func AzureStorageSAS() Detector {
	return &regexDetector{
		name:     "azure_storage_sas",
		kind:     "azure_storage_sas",
		patterns: []pattern{{re: reAzureSAS, reason: "Azure Storage URL with sv and sig parameters"}},
		redact:   true,
	}
}
