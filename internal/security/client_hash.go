package security

import (
	"encoding/hex"
	"errors"
	"strings"

	"golang.org/x/crypto/blake2b"
)

var errShortHashKey = errors.New("client hash key must be at least 16 bytes")

// ClientHasher pseudonymises visitor attributes (IP, user agent) with a keyed BLAKE2b-256,
// so stored consent rows can be grouped per client without keeping the raw values.
type ClientHasher struct {
	key []byte
}

func NewClientHasher(secret string) (*ClientHasher, error) {
	key := []byte(secret)
	if len(key) < 16 {
		return nil, errShortHashKey
	}
	if len(key) > blake2b.Size {
		sum := blake2b.Sum256(key)
		key = sum[:]
	}
	return &ClientHasher{key: key}, nil
}

// Hash joins parts with a separator that cannot appear in headers and returns the hex digest.
func (h *ClientHasher) Hash(parts ...string) string {
	digest, err := blake2b.New256(h.key)
	if err != nil {
		return ""
	}
	_, _ = digest.Write([]byte(strings.Join(parts, "\x00")))
	return hex.EncodeToString(digest.Sum(nil))
}
