package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Fingerprint returns the lowercase hex SHA-256 of the trimmed payload,
// or an empty string when the payload is blank
func Fingerprint(payload string) string {
	trimmed := strings.TrimSpace(payload)
	if trimmed == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(trimmed))
	return hex.EncodeToString(sum[:])
}

// NormalizeTaxID trims surrounding whitespace from a taxpayer identifier
func NormalizeTaxID(taxID string) string {
	return strings.TrimSpace(taxID)
}

// NormalizeSeries trims and upper-cases a document series number
func NormalizeSeries(series string) string {
	return strings.ToUpper(strings.TrimSpace(series))
}
