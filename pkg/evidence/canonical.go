// Package evidence canonicalizes decision explanations and archives them in a
// content-addressed store, so a stored digest can always be resolved back to
// the exact bytes it was computed over.
package evidence

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gowebpki/jcs"
)

// DigestPrefix marks the hash algorithm in every digest string.
const DigestPrefix = "sha256:"

// Canonicalize returns the RFC 8785 canonical JSON encoding of v and its digest.
func Canonicalize(v any) ([]byte, string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, "", fmt.Errorf("jcs: pre-marshal failed: %w", err)
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return nil, "", fmt.Errorf("jcs: transform failed: %w", err)
	}
	return canonical, Digest(canonical), nil
}

// Digest returns the prefixed SHA-256 of data.
func Digest(data []byte) string {
	sum := sha256.Sum256(data)
	return DigestPrefix + hex.EncodeToString(sum[:])
}

// parseDigest validates a "sha256:<hex>" string and returns the hex part.
func parseDigest(digest string) (string, error) {
	raw, ok := strings.CutPrefix(digest, DigestPrefix)
	if !ok {
		return "", fmt.Errorf("invalid hash format: %s", digest)
	}
	b, err := hex.DecodeString(raw)
	if err != nil {
		return "", fmt.Errorf("invalid hash hex: %w", err)
	}
	if len(b) != sha256.Size {
		return "", fmt.Errorf("invalid hash length: %s", digest)
	}
	return raw, nil
}
