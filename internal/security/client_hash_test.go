package security

import "testing"

func TestClientHasherIsKeyedAndStable(t *testing.T) {
	t.Parallel()

	first, err := NewClientHasher("0123456789abcdef0123456789abcdef")
	if err != nil {
		t.Fatalf("NewClientHasher() error = %v", err)
	}
	second, err := NewClientHasher("fedcba9876543210fedcba9876543210")
	if err != nil {
		t.Fatalf("NewClientHasher() error = %v", err)
	}

	a := first.Hash("203.0.113.7", "Mozilla/5.0")
	if len(a) != 64 {
		t.Fatalf("Hash() len = %d, want 64", len(a))
	}
	if again := first.Hash("203.0.113.7", "Mozilla/5.0"); again != a {
		t.Fatalf("Hash() not stable: %q != %q", again, a)
	}
	if other := second.Hash("203.0.113.7", "Mozilla/5.0"); other == a {
		t.Fatal("expected different keys to produce different hashes")
	}
	if joined := first.Hash("203.0.113.7Mozilla/5.0"); joined == a {
		t.Fatal("expected part boundaries to affect the hash")
	}
}

func TestNewClientHasherKeyLength(t *testing.T) {
	t.Parallel()

	if _, err := NewClientHasher("short"); err == nil {
		t.Fatal("expected error for short key")
	}
	long := make([]byte, 100)
	for index := range long {
		long[index] = 'k'
	}
	if _, err := NewClientHasher(string(long)); err != nil {
		t.Fatalf("expected long key to be accepted, got %v", err)
	}
}
