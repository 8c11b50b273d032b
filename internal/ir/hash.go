package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainModel = "dopt/model/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ModelHash computes the content hash of a model's structure.
// Handles are not part of the structure, so a model and all of its clones
// share one hash; two compilations of the same instance do too.
func ModelHash(m *Model) (string, error) {
	canonical, err := MarshalCanonical(m.CanonicalMap())
	if err != nil {
		return "", fmt.Errorf("ModelHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainModel, canonical), nil
}

// MustModelHash is like ModelHash but panics on error.
// Use only in tests or when the model is known to be well formed.
func MustModelHash(m *Model) string {
	h, err := ModelHash(m)
	if err != nil {
		panic(err)
	}
	return h
}
