package security

import "testing"

func TestHasher_RoundTrip(t *testing.T) {
	h := NewHasher(4) // min cost keeps the test fast
	hash, err := h.Hash([]byte("correct horse battery staple"))
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if !h.Verify([]byte("correct horse battery staple"), hash) {
		t.Error("Verify returned false for the original plaintext")
	}
	if h.Verify([]byte("wrong password"), hash) {
		t.Error("Verify returned true for a different plaintext")
	}
}

func TestHasher_SaltedOutputDiffers(t *testing.T) {
	h := NewHasher(4)
	h1, err := h.Hash([]byte("same input"))
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	h2, err := h.Hash([]byte("same input"))
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if h1 == h2 {
		t.Error("two hashes of the same plaintext are identical; salt is not per-call")
	}
}

func TestHasher_MalformedHashVerifiesFalse(t *testing.T) {
	h := NewHasher(4)
	for _, stored := range []string{"", "not-a-bcrypt-hash", "$2a$zz$garbage"} {
		if h.Verify([]byte("anything"), stored) {
			t.Errorf("Verify(%q) = true, want false", stored)
		}
	}
}

func TestHasher_CostClamped(t *testing.T) {
	if h := NewHasher(0); h.Cost < 4 {
		t.Errorf("Cost = %d, want default", h.Cost)
	}
	if h := NewHasher(99); h.Cost > 31 {
		t.Errorf("Cost = %d, want clamped to max", h.Cost)
	}
}
