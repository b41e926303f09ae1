package ledger

import (
	"crypto/rand"
	"math/big"
	"strings"
)

const (
	CodePrefix   = "RES-"
	codeLength   = 8
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	// MaxCodeAttempts bounds the retries when a generated code collides.
	MaxCodeAttempts = 10
)

// NewCode returns a short human-shareable code such as RES-7K2M9QXA.
func NewCode() (string, error) {
	var b strings.Builder
	b.Grow(len(CodePrefix) + codeLength)
	b.WriteString(CodePrefix)
	limit := big.NewInt(int64(len(codeAlphabet)))
	for i := 0; i < codeLength; i++ {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		b.WriteByte(codeAlphabet[n.Int64()])
	}
	return b.String(), nil
}

// NormalizeCode canonicalizes what a user typed: trimmed, upper-case and
// prefixed. A bare 8-character code gets the prefix added.
func NormalizeCode(s string) string {
	c := strings.ToUpper(strings.TrimSpace(s))
	if len(c) == codeLength && !strings.HasPrefix(c, CodePrefix) {
		return CodePrefix + c
	}
	return c
}

// ValidCode reports whether c has the canonical shape.
func ValidCode(c string) bool {
	if !strings.HasPrefix(c, CodePrefix) || len(c) != len(CodePrefix)+codeLength {
		return false
	}
	for _, r := range c[len(CodePrefix):] {
		if !strings.ContainsRune(codeAlphabet, r) {
			return false
		}
	}
	return true
}
