package path

import (
	"reflect"
	"testing"

	"github.com/sjanel/coincenter/pkg/currency"
	"github.com/sjanel/coincenter/pkg/market"
)

func mkt(base, quote string) market.Market {
	return market.New(currency.New(base), currency.New(quote))
}

func namesOf(markets []market.Market) []string {
	names := make([]string, len(markets))
	for i, m := range markets {
		names[i] = m.String()
	}
	return names
}

func TestFindMarketsPathDirectHop(t *testing.T) {
	markets := []market.Market{mkt("BTC", "EUR"), mkt("ETH", "EUR")}
	got := FindMarketsPath(markets, currency.New("BTC"), currency.New("EUR"), Config{})
	if want := []string{"BTC-EUR"}; !reflect.DeepEqual(namesOf(got), want) {
		t.Errorf("got %v, want %v", namesOf(got), want)
	}
}

func TestFindMarketsPathReverseDirection(t *testing.T) {
	markets := []market.Market{mkt("BTC", "EUR")}
	got := FindMarketsPath(markets, currency.New("EUR"), currency.New("BTC"), Config{})
	if want := []string{"BTC-EUR"}; !reflect.DeepEqual(namesOf(got), want) {
		t.Errorf("got %v, want %v", namesOf(got), want)
	}
}

func TestFindMarketsPathTwoHops(t *testing.T) {
	markets := []market.Market{mkt("BTC", "EUR"), mkt("BTC", "USDT")}
	got := FindMarketsPath(markets, currency.New("USDT"), currency.New("EUR"), Config{})
	want := []string{"BTC-USDT", "BTC-EUR"}
	if !reflect.DeepEqual(namesOf(got), want) {
		t.Errorf("got %v, want %v", namesOf(got), want)
	}
}

func TestFindMarketsPathEmptyWhenSameCurrency(t *testing.T) {
	got := FindMarketsPath(nil, currency.New("EUR"), currency.New("EUR"), Config{})
	if got == nil || len(got) != 0 {
		t.Errorf("got %v, want a non-nil empty path", got)
	}
}

func TestFindMarketsPathNilWhenNoPathExists(t *testing.T) {
	markets := []market.Market{mkt("BTC", "EUR")}
	got := FindMarketsPath(markets, currency.New("XRP"), currency.New("JPY"), Config{})
	if got != nil {
		t.Errorf("got %v, want nil", got)
	}
}

func TestFindMarketsPathPrefersFewerHopsOverBridge(t *testing.T) {
	// A direct BTC-EUR market exists, so the engine must not take the
	// longer stablecoin-bridged route even though one is configured.
	markets := []market.Market{mkt("BTC", "EUR"), mkt("BTC", "USDT")}
	cfg := Config{StablecoinAliases: map[currency.Code]currency.Code{currency.New("USDT"): currency.New("EUR")}}
	got := FindMarketsPath(markets, currency.New("BTC"), currency.New("EUR"), cfg)
	want := []string{"BTC-EUR"}
	if !reflect.DeepEqual(namesOf(got), want) {
		t.Errorf("got %v, want %v", namesOf(got), want)
	}
}

func TestFindMarketsPathUsesStablecoinBridgeAtExtremity(t *testing.T) {
	// No BTC-EUR market; BTC-USDT plus the USDT->EUR alias bridge (at the
	// path's last hop) is the only route.
	markets := []market.Market{mkt("BTC", "USDT")}
	cfg := Config{StablecoinAliases: map[currency.Code]currency.Code{currency.New("USDT"): currency.New("EUR")}}
	got := FindMarketsPath(markets, currency.New("BTC"), currency.New("EUR"), cfg)
	if len(got) != 2 {
		t.Fatalf("got %v, want a 2-hop path", namesOf(got))
	}
	if got[0].String() != "BTC-USDT" {
		t.Errorf("first hop = %s, want BTC-USDT", got[0])
	}
	if got[1].Kind != market.FiatConversion {
		t.Errorf("last hop kind = %v, want FiatConversion", got[1].Kind)
	}
}

func TestFindMarketsPathFiatBridgeNeverInteriorOnly(t *testing.T) {
	// EUR and USD are both fiat with no direct market and no stablecoin
	// alias linking them directly to a shared crypto base; a fiat-fiat
	// bridge from EUR to USD is the only possible (single-hop) path.
	cfg := Config{Fiats: map[currency.Code]bool{currency.New("EUR"): true, currency.New("USD"): true}}
	got := FindMarketsPath(nil, currency.New("EUR"), currency.New("USD"), cfg)
	if len(got) != 1 || got[0].Kind != market.FiatConversion {
		t.Fatalf("got %v, want a single fiat-conversion hop", namesOf(got))
	}
}

func TestFindCurrenciesPathIncludesEndpoints(t *testing.T) {
	markets := []market.Market{mkt("BTC", "EUR"), mkt("BTC", "USDT")}
	got := FindCurrenciesPath(markets, currency.New("USDT"), currency.New("EUR"), Config{})
	want := []string{"USDT", "BTC", "EUR"}
	gotStrs := make([]string, len(got))
	for i, c := range got {
		gotStrs[i] = c.String()
	}
	if !reflect.DeepEqual(gotStrs, want) {
		t.Errorf("got %v, want %v", gotStrs, want)
	}
}

func TestFindCurrenciesPathSameCurrency(t *testing.T) {
	got := FindCurrenciesPath(nil, currency.New("EUR"), currency.New("EUR"), Config{})
	want := []string{"EUR"}
	gotStrs := make([]string, len(got))
	for i, c := range got {
		gotStrs[i] = c.String()
	}
	if !reflect.DeepEqual(gotStrs, want) {
		t.Errorf("got %v, want %v", gotStrs, want)
	}
}
