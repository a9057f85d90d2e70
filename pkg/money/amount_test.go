package money

import (
	"testing"

	"github.com/sjanel/coincenter/pkg/coinerr"
	"github.com/sjanel/coincenter/pkg/currency"
)

func btc() currency.Code { return currency.New("BTC") }

func mustParseFull(t *testing.T, s string) Amount {
	t.Helper()
	a, err := ParseFull(s)
	if err != nil {
		t.Fatalf("ParseFull(%q): %v", s, err)
	}
	return a
}

func TestParseRoundTrip(t *testing.T) {
	cases := []string{"1.50", "-0.5", ".5", "+3", "0", "123456789012.34"}
	for _, s := range cases {
		a, err := Parse(s, btc())
		if err != nil {
			t.Fatalf("Parse(%q): %v", s, err)
		}
		t.Logf("%q -> %s", s, a.String())
	}
}

func TestParseFullEmbeddedCurrency(t *testing.T) {
	a := mustParseFull(t, "1250.5 KRW")
	if a.Currency().String() != "KRW" {
		t.Errorf("currency = %s, want KRW", a.Currency())
	}
	if got := a.AmountString(); got != "1250.5" {
		t.Errorf("amount = %s, want 1250.5", got)
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := Parse("abc", btc())
	if err == nil {
		t.Fatal("expected parse error")
	}
	ce, ok := err.(*coinerr.Error)
	if !ok || ce.Kind != coinerr.Parse {
		t.Errorf("expected Parse kind, got %v", err)
	}
}

func TestAddSameCurrency(t *testing.T) {
	a := mustParseFull(t, "0.000017 BTC")
	b := mustParseFull(t, "0.0063 BTC")
	sum, err := a.Add(b)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if got, want := sum.String(), "0.006317 BTC"; got != want {
		t.Errorf("sum = %s, want %s", got, want)
	}
}

func TestAddCurrencyMismatch(t *testing.T) {
	a := mustParseFull(t, "1 BTC")
	b := mustParseFull(t, "1 ETH")
	if _, err := a.Add(b); err == nil {
		t.Fatal("expected CurrencyMismatch error")
	}
}

func TestAddSubRoundTrip(t *testing.T) {
	a := mustParseFull(t, "12.345 BTC")
	b := mustParseFull(t, "0.045 BTC")
	sum, err := a.Add(b)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	back, err := sum.Sub(b)
	if err != nil {
		t.Fatalf("Sub: %v", err)
	}
	if !back.Equal(a) {
		t.Errorf("(a+b)-b = %s, want %s", back, a)
	}
}

func TestConvertAtPrice(t *testing.T) {
	volume := mustParseFull(t, "50000 XLM")
	price := mustParseFull(t, "0.000017 BTC")
	got := volume.ConvertAtPrice(price)
	if want := "0.85 BTC"; got.String() != want {
		t.Errorf("50000 XLM * 0.000017 BTC = %s, want %s", got, want)
	}
}

func TestMulRequiresANeutralOperand(t *testing.T) {
	a := mustParseFull(t, "2 BTC")
	b := mustParseFull(t, "3 ETH")
	if _, err := a.Mul(b); err == nil {
		t.Fatal("expected NeutralRequired error")
	}
}

func TestMulScalar(t *testing.T) {
	a := mustParseFull(t, "1.5 BTC")
	got := a.MulScalar(3)
	if want := "4.5 BTC"; got.String() != want {
		t.Errorf("1.5 BTC * 3 = %s, want %s", got, want)
	}
}

func TestDivSameCurrencyYieldsNeutral(t *testing.T) {
	a := mustParseFull(t, "10 BTC")
	b := mustParseFull(t, "4 BTC")
	ratio, err := a.Div(b)
	if err != nil {
		t.Fatalf("Div: %v", err)
	}
	if !ratio.Currency().IsNeutral() {
		t.Errorf("currency = %s, want neutral", ratio.Currency())
	}
	if want := "2.5"; ratio.AmountString() != want {
		t.Errorf("10/4 = %s, want %s", ratio.AmountString(), want)
	}
}

func TestDivByZero(t *testing.T) {
	a := mustParseFull(t, "10 BTC")
	zero := Zero(btc())
	if _, err := a.Div(zero); err == nil {
		t.Fatal("expected error dividing by zero")
	}
}

func TestRoundNearest(t *testing.T) {
	a, _ := Parse("1.2345", currency.Neutral)
	step, _ := Parse("0.01", currency.Neutral)
	got, err := a.Round(step, RoundNearest)
	if err != nil {
		t.Fatalf("Round: %v", err)
	}
	if want := "1.23"; got.AmountString() != want {
		t.Errorf("round(1.2345, 0.01, nearest) = %s, want %s", got.AmountString(), want)
	}
}

func TestRoundDownUp(t *testing.T) {
	a, _ := Parse("1.27", currency.Neutral)
	step, _ := Parse("0.1", currency.Neutral)

	down, err := a.Round(step, RoundDown)
	if err != nil {
		t.Fatalf("Round down: %v", err)
	}
	if want := "1.2"; down.AmountString() != want {
		t.Errorf("round down = %s, want %s", down.AmountString(), want)
	}

	up, err := a.Round(step, RoundUp)
	if err != nil {
		t.Fatalf("Round up: %v", err)
	}
	if want := "1.3"; up.AmountString() != want {
		t.Errorf("round up = %s, want %s", up.AmountString(), want)
	}
}

func TestCompareAcrossDecimals(t *testing.T) {
	a, _ := Parse("1.5", btc())
	b, _ := Parse("1.500000", btc())
	if !a.Equal(b) {
		t.Errorf("%s should equal %s", a, b)
	}

	c, _ := Parse("1.6", btc())
	cmp, err := a.Cmp(c)
	if err != nil {
		t.Fatalf("Cmp: %v", err)
	}
	if cmp >= 0 {
		t.Errorf("1.5 should be less than 1.6, got cmp=%d", cmp)
	}
}

func TestCompareCurrencyMismatch(t *testing.T) {
	a, _ := Parse("1", btc())
	b, _ := Parse("1", currency.New("ETH"))
	if _, err := a.Cmp(b); err == nil {
		t.Fatal("expected CurrencyMismatch error")
	}
}

func TestFromFloatHeuristicRounding(t *testing.T) {
	// 0.1 + 0.2 in IEEE754 double yields 0.30000000000000004; the
	// heuristic should absorb the trailing noise.
	got := FromFloat(0.1+0.2, currency.Neutral)
	if want := "0.3"; got.AmountString() != want {
		t.Errorf("FromFloat(0.1+0.2) = %s, want %s", got.AmountString(), want)
	}
}

func TestStringOmitsNeutralCurrency(t *testing.T) {
	a, _ := Parse("42.5", currency.Neutral)
	if got, want := a.String(), "42.5"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestIsZeroAndSign(t *testing.T) {
	zero := Zero(btc())
	if !zero.IsZero() || zero.Sign() != 0 {
		t.Errorf("zero amount should report IsZero and Sign()==0")
	}
	pos, _ := Parse("1", btc())
	if pos.Sign() != 1 {
		t.Errorf("expected positive sign")
	}
	if pos.Neg().Sign() != -1 {
		t.Errorf("expected negative sign after Neg")
	}
}
