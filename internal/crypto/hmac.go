package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

// MinSecretLen is the shortest accepted HMAC secret, in bytes.
const MinSecretLen = 32

var ErrWeakSecret = errors.New("secret too short")

// MAC computes the authentication tag over a message.
type MAC interface {
	Sum(message []byte) []byte
}

// Key is an HMAC-SHA256 key. It is immutable and safe for concurrent use.
type Key struct {
	secret []byte
}

// NewKey copies secret into a new key.
func NewKey(secret []byte) (*Key, error) {
	if len(secret) < MinSecretLen {
		return nil, ErrWeakSecret
	}
	return &Key{secret: append([]byte(nil), secret...)}, nil
}

// ParseSecret accepts either a hex encoded secret or raw bytes.
func ParseSecret(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if b, err := hex.DecodeString(s); err == nil && len(b) >= MinSecretLen {
		return b, nil
	}
	if len(s) < MinSecretLen {
		return nil, ErrWeakSecret
	}
	return []byte(s), nil
}

func (k *Key) Sum(message []byte) []byte {
	m := hmac.New(sha256.New, k.secret)
	m.Write(message)
	return m.Sum(nil)
}

// String never reveals the secret.
func (k *Key) String() string { return "hmac-sha256:[redacted]" }

// Equal compares two tags in constant time.
func Equal(a, b []byte) bool {
	return hmac.Equal(a, b)
}
