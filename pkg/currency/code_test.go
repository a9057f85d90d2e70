package currency

import "testing"

func TestNewNormalizesCase(t *testing.T) {
	c := New(" btc ")
	if c.String() != "BTC" {
		t.Fatalf("got %q, want BTC", c.String())
	}
}

func TestNewTruncatesAtMaxLen(t *testing.T) {
	c := New("ABCDEFGHIJKLMNOP")
	if len(c.String()) != MaxLen {
		t.Fatalf("got length %d, want %d", len(c.String()), MaxLen)
	}
}

func TestNeutralIsZeroValue(t *testing.T) {
	if !Neutral.IsNeutral() {
		t.Fatal("Neutral should report IsNeutral")
	}
	if !(Code{}).IsNeutral() {
		t.Fatal("the zero Code should report IsNeutral")
	}
	if New("BTC").IsNeutral() {
		t.Fatal("a non-empty code should not report IsNeutral")
	}
}

func TestEqualAndLess(t *testing.T) {
	btc := New("BTC")
	eur := New("EUR")
	if !btc.Equal(New("btc")) {
		t.Fatal("expected BTC to equal a lower-case btc after normalization")
	}
	if btc.Equal(eur) {
		t.Fatal("BTC should not equal EUR")
	}
	if !btc.Less(eur) {
		t.Fatal("expected BTC < EUR")
	}
}

func TestNormalizeAppliesAliasesAndPrefixes(t *testing.T) {
	aliases := Aliases{"XBT": "BTC"}
	if got := Normalize("xbt", aliases, nil); got.String() != "BTC" {
		t.Fatalf("got %q, want BTC", got.String())
	}

	prefixes := Prefixes{"ARBITRUM": "ARB"}
	if got := Normalize("ARBITRUM FOO", nil, prefixes); got.String() != "ARB/FOO" {
		t.Fatalf("got %q, want ARB/FOO", got.String())
	}

	if got := Normalize("eth", nil, nil); got.String() != "ETH" {
		t.Fatalf("got %q, want ETH", got.String())
	}
}
