package security

import (
	"strings"
	"testing"
)

func TestRandomTokenLengthAndAlphabet(t *testing.T) {
	t.Parallel()

	for _, length := range []int{1, 7, 32, 257} {
		token, err := RandomToken(length)
		if err != nil {
			t.Fatalf("RandomToken(%d) error = %v", length, err)
		}
		if len(token) != length {
			t.Fatalf("RandomToken(%d) length = %d", length, len(token))
		}
		for _, char := range token {
			if !strings.ContainsRune(TokenAlphabet, char) {
				t.Fatalf("RandomToken(%d) = %q contains %q outside the alphabet", length, token, char)
			}
		}
	}
}

func TestRandomTokenRejectsNonPositiveLength(t *testing.T) {
	t.Parallel()

	for _, length := range []int{0, -3} {
		if _, err := RandomToken(length); err == nil {
			t.Fatalf("RandomToken(%d) expected error", length)
		}
	}
}

func TestRandomTokenIsNotRepeated(t *testing.T) {
	t.Parallel()

	seen := make(map[string]bool, 200)
	for index := 0; index < 200; index++ {
		token, err := RandomToken(16)
		if err != nil {
			t.Fatalf("RandomToken() error = %v", err)
		}
		if seen[token] {
			t.Fatalf("RandomToken() repeated %q", token)
		}
		seen[token] = true
	}
}

func TestRandomTokenUsesEveryCharacter(t *testing.T) {
	t.Parallel()

	token, err := RandomToken(20000)
	if err != nil {
		t.Fatalf("RandomToken() error = %v", err)
	}
	for _, char := range TokenAlphabet {
		if !strings.ContainsRune(token, char) {
			t.Fatalf("character %q never drawn in 20000 samples", char)
		}
	}
}
