// Package config builds CoincenterInfo, the single configuration value
// threaded by reference into every component that needs credentials or
// tunables (spec.md §9; SPEC_FULL.md §4.B). Grounded on the teacher's
// params/config.go godotenv-driven loader, generalized from one
// process-wide Config struct to the multi-venue credential/tunable shape
// this domain needs, plus envconfig for its scalar fields and three
// static JSON tables for currency normalization.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/sjanel/coincenter/pkg/currency"
	"github.com/sjanel/coincenter/pkg/exchange"
)

// Venues is the fixed list of venue identifiers this build knows how to
// configure, matching the six adapter packages under
// pkg/exchange/adapters.
var Venues = []string{"binance", "bithumb", "huobi", "kraken", "kucoin", "upbit"}

// Credentials is one account's API key pair.
type Credentials struct {
	APIKey    string
	APISecret string
}

// VenueConfig is one venue's tunables plus zero or more named accounts.
// An empty Accounts map means public-data-only: no VenuePrivateApi can be
// built for that venue.
type VenueConfig struct {
	MinInterval            time.Duration
	ProxyURL               string
	PlaceSimulateRealOrder bool
	Accounts               map[string]Credentials
}

// TradeConfig holds the orchestrator's default trade behavior (spec.md
// §4.10): which pricing strategy to use absent an explicit override, what
// to do with an unfilled maker order at its deadline, how often to
// re-price, and the currencies tried in priority order for smart
// buy/sell when no target currency is pinned.
type TradeConfig struct {
	Strategy                   exchange.PriceStrategy
	TimeoutAction              exchange.TimeoutAction
	Timeout                    time.Duration
	MinTimeBetweenPriceUpdates time.Duration
	PreferredPaymentCurrencies []currency.Code
}

// env holds the scalar fields envconfig.Process can populate directly;
// per-venue credentials and the static currency tables need custom
// handling and live outside this struct.
type env struct {
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	LogFile     string `envconfig:"LOG_FILE" default:""`
	DataDir     string `envconfig:"DATA_DIR" default:""`
	MetricsAddr string `envconfig:"METRICS_ADDR" default:""`
	WorkerPool  int    `envconfig:"WORKER_POOL" default:"8"`
}

// CoincenterInfo is the fully resolved configuration for one process: a
// venue table, the currency normalization tables, trade defaults, and the
// ambient logging/metrics/worker-pool settings. Passed by pointer to
// every component that needs it; never a package-level singleton.
type CoincenterInfo struct {
	Venues      map[string]VenueConfig
	Aliases     currency.Aliases
	Prefixes    currency.Prefixes
	Fiats       map[currency.Code]bool
	Stablecoins map[currency.Code]currency.Code

	Trade TradeConfig

	LogLevel    string
	LogFile     string
	DataDir     string
	MetricsAddr string
	WorkerPool  int
}

// Load builds a CoincenterInfo from an optional .env file (godotenv.Load
// silently does nothing if envPath doesn't exist), process environment
// variables, and the static JSON tables under DataDir (or bundled
// defaults when DataDir is empty or a table file is missing).
func Load(envPath string) (*CoincenterInfo, error) {
	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	var e env
	if err := envconfig.Process("COINCENTER", &e); err != nil {
		return nil, err
	}

	info := &CoincenterInfo{
		Venues:      loadVenueConfigs(),
		Trade:       loadTradeConfig(),
		LogLevel:    e.LogLevel,
		LogFile:     e.LogFile,
		DataDir:     e.DataDir,
		MetricsAddr: e.MetricsAddr,
		WorkerPool:  e.WorkerPool,
	}

	var err error
	if info.Aliases, err = loadAliases(info.DataDir); err != nil {
		return nil, err
	}
	if info.Prefixes, err = loadPrefixes(info.DataDir); err != nil {
		return nil, err
	}
	if info.Stablecoins, err = loadStablecoins(info.DataDir); err != nil {
		return nil, err
	}
	info.Fiats = defaultFiats()

	return info, nil
}

// loadVenueConfigs reads each venue's <VENUE>_API_KEY/<VENUE>_API_SECRET
// default-account pair (when present), every <VENUE>_<ACCOUNT>_API_KEY/
// <VENUE>_<ACCOUNT>_API_SECRET named-account pair, and
// <VENUE>_MIN_INTERVAL_MS / <VENUE>_PROXY_URL /
// <VENUE>_PLACE_SIMULATE_REAL_ORDER tunables directly off os.Environ(),
// since the set of account names is dynamic and not expressible as a
// fixed envconfig struct.
func loadVenueConfigs() map[string]VenueConfig {
	out := make(map[string]VenueConfig, len(Venues))
	for _, v := range Venues {
		out[v] = VenueConfig{Accounts: map[string]Credentials{}}
	}

	environ := os.Environ()
	prefixOf := make(map[string]string, len(Venues))
	for _, v := range Venues {
		prefixOf[v] = strings.ToUpper(v) + "_"
	}

	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || value == "" {
			continue
		}
		for _, v := range Venues {
			prefix := prefixOf[v]
			if !strings.HasPrefix(key, prefix) {
				continue
			}
			rest := key[len(prefix):]
			cfg := out[v]
			switch {
			case rest == "API_KEY":
				setCredential(cfg.Accounts, "main", value, true)
			case rest == "API_SECRET":
				setCredential(cfg.Accounts, "main", value, false)
			case rest == "MIN_INTERVAL_MS":
				if ms, err := strconv.Atoi(value); err == nil {
					cfg.MinInterval = time.Duration(ms) * time.Millisecond
				}
			case rest == "PROXY_URL":
				cfg.ProxyURL = value
			case rest == "PLACE_SIMULATE_REAL_ORDER":
				cfg.PlaceSimulateRealOrder = value == "true"
			case strings.HasSuffix(rest, "_API_KEY"):
				setCredential(cfg.Accounts, strings.ToLower(strings.TrimSuffix(rest, "_API_KEY")), value, true)
			case strings.HasSuffix(rest, "_API_SECRET"):
				setCredential(cfg.Accounts, strings.ToLower(strings.TrimSuffix(rest, "_API_SECRET")), value, false)
			}
			out[v] = cfg
		}
	}
	return out
}

func setCredential(accounts map[string]Credentials, account, value string, isKey bool) {
	c := accounts[account]
	if isKey {
		c.APIKey = value
	} else {
		c.APISecret = value
	}
	accounts[account] = c
}

func loadTradeConfig() TradeConfig {
	return TradeConfig{
		Strategy:                   exchange.Maker,
		TimeoutAction:              exchange.Cancel,
		Timeout:                    30 * time.Second,
		MinTimeBetweenPriceUpdates: 5 * time.Second,
		PreferredPaymentCurrencies: []currency.Code{currency.New("USDT"), currency.New("USDC"), currency.New("EUR")},
	}
}

func readTable(dataDir, filename string, fallback map[string]string) (map[string]string, error) {
	if dataDir == "" {
		return fallback, nil
	}
	data, err := os.ReadFile(filepath.Join(dataDir, filename))
	if os.IsNotExist(err) {
		return fallback, nil
	}
	if err != nil {
		return nil, err
	}
	var table map[string]string
	if err := json.Unmarshal(data, &table); err != nil {
		return nil, err
	}
	return table, nil
}

func loadAliases(dataDir string) (currency.Aliases, error) {
	table, err := readTable(dataDir, "aliases.json", defaultAliases)
	return currency.Aliases(table), err
}

func loadPrefixes(dataDir string) (currency.Prefixes, error) {
	table, err := readTable(dataDir, "prefixes.json", defaultPrefixes)
	return currency.Prefixes(table), err
}

func loadStablecoins(dataDir string) (map[currency.Code]currency.Code, error) {
	table, err := readTable(dataDir, "stablecoins.json", defaultStablecoins)
	if err != nil {
		return nil, err
	}
	out := make(map[currency.Code]currency.Code, len(table))
	for stable, fiat := range table {
		out[currency.New(stable)] = currency.New(fiat)
	}
	return out, nil
}

// defaultAliases, defaultPrefixes, defaultStablecoins are the bundled
// minimal tables used when DataDir is empty or a table file is absent
// (spec.md §6's "Persisted state (collaborator)").
var defaultAliases = map[string]string{
	"XBT":  "BTC",
	"IOTA": "MIOTA",
}

var defaultPrefixes = map[string]string{
	"ARBITRUM": "ARB",
}

var defaultStablecoins = map[string]string{
	"USDT": "USD",
	"USDC": "USD",
	"EURT": "EUR",
}

func defaultFiats() map[currency.Code]bool {
	fiats := map[currency.Code]bool{}
	for _, c := range []string{"USD", "EUR", "GBP", "KRW", "JPY", "CNY"} {
		fiats[currency.New(c)] = true
	}
	return fiats
}
