package signing

import (
	"testing"
)

func TestSignIsDeterministic(t *testing.T) {
	s := New("secret", SHA256)
	a := s.Sign("ts=1&symbol=BTCEUR")
	b := s.Sign("ts=1&symbol=BTCEUR")
	if a != b {
		t.Errorf("same message signed twice produced different MACs: %s vs %s", a, b)
	}
}

func TestSignDiffersByAlgorithm(t *testing.T) {
	msg := "ts=1&symbol=BTCEUR"
	sha256Sig := New("secret", SHA256).Sign(msg)
	sha512Sig := New("secret", SHA512).Sign(msg)
	if sha256Sig == sha512Sig {
		t.Error("SHA256 and SHA512 signatures should not collide")
	}
	if len(sha256Sig) != 64 {
		t.Errorf("SHA256 hex length = %d, want 64", len(sha256Sig))
	}
	if len(sha512Sig) != 128 {
		t.Errorf("SHA512 hex length = %d, want 128", len(sha512Sig))
	}
}

func TestSignDiffersBySecret(t *testing.T) {
	msg := "ts=1&symbol=BTCEUR"
	a := New("secret-a", SHA256).Sign(msg)
	b := New("secret-b", SHA256).Sign(msg)
	if a == b {
		t.Error("different secrets produced the same MAC")
	}
}

func TestNonceGeneratorIsStrictlyIncreasing(t *testing.T) {
	var g NonceGenerator
	prev := g.Next()
	for i := 0; i < 1000; i++ {
		next := g.Next()
		if next <= prev {
			t.Fatalf("nonce did not strictly increase: prev=%d next=%d", prev, next)
		}
		prev = next
	}
}
