package twofactor

import "testing"

func TestGenerateCode_LengthAndDigits(t *testing.T) {
	for _, n := range []int{4, 6, 8} {
		code, err := GenerateCode(n)
		if err != nil {
			t.Fatalf("GenerateCode(%d): %v", n, err)
		}
		if len(code) != n {
			t.Errorf("len(code) = %d, want %d", len(code), n)
		}
		for _, c := range code {
			if c < '0' || c > '9' {
				t.Errorf("code %q contains non-digit %q", code, c)
			}
		}
	}
}

func TestGenerateCode_InvalidLength(t *testing.T) {
	if _, err := GenerateCode(0); err == nil {
		t.Error("expected error for zero length")
	}
	if _, err := GenerateCode(-1); err == nil {
		t.Error("expected error for negative length")
	}
}

func TestCodeEqual(t *testing.T) {
	hash := HashCode("482913")
	if !CodeEqual("482913", hash) {
		t.Error("matching code not accepted")
	}
	if CodeEqual("482914", hash) {
		t.Error("non-matching code accepted")
	}
	if CodeEqual("", hash) {
		t.Error("empty code accepted")
	}
}

func TestHashCode_Deterministic(t *testing.T) {
	if HashCode("123456") != HashCode("123456") {
		t.Error("hash is not deterministic")
	}
	if HashCode("123456") == HashCode("654321") {
		t.Error("distinct codes hash identically")
	}
}
