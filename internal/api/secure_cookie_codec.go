package api

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/blake2b"
)

const (
	secureCookieVersion       = "v1"
	secureCookiePurposePrefix = "dontwait.cookie."
	secureCookieKeyLabel      = "dontwait.secure-cookie.v1"
)

var errInvalidSecureCookieValue = errors.New("invalid secure cookie value")

// secureCookieCodec seals cookie values with AES-GCM. The purpose is bound as additional data,
// so a value sealed for one cookie cannot be replayed into another.
type secureCookieCodec struct {
	aead cipher.AEAD
}

func newSecureCookieCodec(secretKey []byte) (*secureCookieCodec, error) {
	if len(secretKey) == 0 {
		return nil, errors.New("secure cookie secret key is required")
	}

	derivedKey, err := deriveSecureCookieKey(secretKey)
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(derivedKey)
	if err != nil {
		return nil, fmt.Errorf("init secure cookie cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("init secure cookie aead: %w", err)
	}
	return &secureCookieCodec{aead: aead}, nil
}

func deriveSecureCookieKey(secretKey []byte) ([]byte, error) {
	key := secretKey
	if len(key) > blake2b.Size {
		sum := blake2b.Sum512(key)
		key = sum[:]
	}
	hash, err := blake2b.New256(key)
	if err != nil {
		return nil, fmt.Errorf("derive secure cookie key: %w", err)
	}
	hash.Write([]byte(secureCookieKeyLabel))
	return hash.Sum(nil), nil
}

func (codec *secureCookieCodec) seal(purpose string, plaintext []byte) (string, error) {
	aad, err := codec.additionalData(purpose)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, codec.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generate secure cookie nonce: %w", err)
	}

	payload := codec.aead.Seal(nonce, nonce, plaintext, aad)
	return secureCookieVersion + "." + base64.RawURLEncoding.EncodeToString(payload), nil
}

func (codec *secureCookieCodec) open(purpose string, rawValue string) ([]byte, error) {
	aad, err := codec.additionalData(purpose)
	if err != nil {
		return nil, err
	}

	version, encodedPayload, found := strings.Cut(strings.TrimSpace(rawValue), ".")
	if !found || version != secureCookieVersion || encodedPayload == "" {
		return nil, errInvalidSecureCookieValue
	}

	payload, err := base64.RawURLEncoding.DecodeString(encodedPayload)
	if err != nil {
		return nil, errInvalidSecureCookieValue
	}

	nonceSize := codec.aead.NonceSize()
	if len(payload) <= nonceSize {
		return nil, errInvalidSecureCookieValue
	}

	plaintext, err := codec.aead.Open(nil, payload[:nonceSize], payload[nonceSize:], aad)
	if err != nil {
		return nil, errInvalidSecureCookieValue
	}
	return plaintext, nil
}

func (codec *secureCookieCodec) sealJSON(purpose string, value any) (string, error) {
	serialized, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("encode secure cookie: %w", err)
	}
	return codec.seal(purpose, serialized)
}

func (codec *secureCookieCodec) openJSON(purpose string, rawValue string, target any) error {
	plaintext, err := codec.open(purpose, rawValue)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(plaintext, target); err != nil {
		return errInvalidSecureCookieValue
	}
	return nil
}

func (codec *secureCookieCodec) additionalData(purpose string) ([]byte, error) {
	trimmedPurpose := strings.TrimSpace(purpose)
	if trimmedPurpose == "" {
		return nil, errors.New("secure cookie purpose is required")
	}
	if codec == nil || codec.aead == nil {
		return nil, errors.New("secure cookie codec is not initialized")
	}
	return []byte(secureCookiePurposePrefix + trimmedPurpose), nil
}
