package state

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// DomainDocument separates document fingerprints from any other hash the
// history tables might hold. The version suffix allows changing the scheme.
const DomainDocument = "stateshift/document/v1"

// hashWithDomain computes SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Fingerprint returns a content hash of the canonical form of d. Two
// documents that differ only in key order or whitespace share a fingerprint.
func Fingerprint(d Document) (string, error) {
	canonical, err := MarshalCanonical(d)
	if err != nil {
		return "", fmt.Errorf("fingerprint: %w", err)
	}
	return hashWithDomain(DomainDocument, canonical), nil
}

// MustFingerprint is like Fingerprint but panics on error.
// Use only in tests or on documents that came out of Parse.
func MustFingerprint(d Document) string {
	fp, err := Fingerprint(d)
	if err != nil {
		panic(err)
	}
	return fp
}
