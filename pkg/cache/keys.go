package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode"
)

// MaxKeyLength is the longest key a layer accepts.
const MaxKeyLength = 250

// ValidateKey checks a key against the layer rules:
// non-empty, at most MaxKeyLength bytes, no control characters,
// no leading or trailing whitespace.
func ValidateKey(key string) error {
	if key == "" {
		return ErrInvalidKey
	}

	if len(key) > MaxKeyLength {
		return fmt.Errorf("%w: key too long (max %d characters)", ErrInvalidKey, MaxKeyLength)
	}

	for _, r := range key {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: key contains control character", ErrInvalidKey)
		}
	}

	if strings.TrimSpace(key) != key {
		return fmt.Errorf("%w: key has leading or trailing whitespace", ErrInvalidKey)
	}

	return nil
}

// KeyPattern builds namespaced keys such as "assess:fraud:<digest>".
type KeyPattern struct {
	prefix    string
	separator string
}

// NewKeyPattern creates a key pattern with the given prefix and separator.
func NewKeyPattern(prefix, separator string) *KeyPattern {
	if separator == "" {
		separator = ":"
	}
	return &KeyPattern{
		prefix:    prefix,
		separator: separator,
	}
}

// Build joins the prefix and parts with the separator.
// Example: pattern.Build("fraud", "ab12") -> "assess:fraud:ab12"
func (kp *KeyPattern) Build(parts ...string) string {
	var b strings.Builder
	b.WriteString(kp.prefix)
	for _, part := range parts {
		b.WriteString(kp.separator)
		b.WriteString(part)
	}
	return b.String()
}

// Digest builds a key whose last part is the SHA-256 of payload.
// Prompts are arbitrary user text, so they are never used as keys directly.
func (kp *KeyPattern) Digest(kind string, payload string) string {
	sum := sha256.Sum256([]byte(payload))
	return kp.Build(kind, hex.EncodeToString(sum[:]))
}
