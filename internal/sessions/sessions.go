// Package sessions stores per-visitor form state between requests.
package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dontwait/dontwait/internal/security"
)

const (
	DriverMemory = "memory"
	DriverRedis  = "redis"

	DefaultTTL = 2 * time.Hour
)

const idLength = 32

var ErrEmptyKey = errors.New("session key is required")

// Store keeps opaque values for a limited time. A missing or expired key is not an error.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// NewID returns a fresh random session identifier.
func NewID() (string, error) {
	return security.RandomToken(idLength)
}

// Key namespaces a session id for one kind of state, e.g. Key("form:plan", id).
func Key(namespace string, id string) string {
	return fmt.Sprintf("%s:%s", namespace, id)
}

func GetJSON[T any](ctx context.Context, store Store, key string) (T, bool, error) {
	var value T
	raw, ok, err := store.Get(ctx, key)
	if err != nil || !ok {
		return value, false, err
	}
	if err := json.Unmarshal(raw, &value); err != nil {
		return value, false, fmt.Errorf("decode session %s: %w", key, err)
	}
	return value, true, nil
}

func SetJSON(ctx context.Context, store Store, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", key, err)
	}
	return store.Set(ctx, key, raw)
}

func checkKey(key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	return nil
}
