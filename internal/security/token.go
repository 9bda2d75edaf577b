// Package security holds the small crypto helpers shared by the session and consent code.
package security

import (
	"crypto/rand"
	"errors"
	"fmt"
)

// TokenAlphabet is safe to place in cookies, URLs and Redis keys without escaping.
const TokenAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// tokenByteLimit is the largest multiple of len(TokenAlphabet) that fits in a byte. Bytes at or
// above it are discarded so every character is equally likely.
const tokenByteLimit = 256 - 256%len(TokenAlphabet)

var errNonPositiveLength = errors.New("token length must be positive")

// RandomToken returns length characters of TokenAlphabet drawn from crypto/rand.
func RandomToken(length int) (string, error) {
	if length <= 0 {
		return "", errNonPositiveLength
	}

	token := make([]byte, 0, length)
	batch := make([]byte, length+length/4)
	for len(token) < length {
		if _, err := rand.Read(batch); err != nil {
			return "", fmt.Errorf("read random bytes: %w", err)
		}
		for _, b := range batch {
			if int(b) >= tokenByteLimit {
				continue
			}
			token = append(token, TokenAlphabet[int(b)%len(TokenAlphabet)])
			if len(token) == length {
				break
			}
		}
	}
	return string(token), nil
}
