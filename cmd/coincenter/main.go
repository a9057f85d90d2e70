// Command coincenter is the CLI collaborator: it parses a verb and a
// handful of flags into an orchestrator call, dispatches it, and prints
// the result as a table, as JSON, or not at all. Grounded on
// cmd/node/main.go's flag-parsing -> config -> run shape; thin and
// untested beyond a smoke test, per spec.md's explicit "CLI is an
// external collaborator" scoping.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"go.uber.org/automaxprocs/maxprocs"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sjanel/coincenter/internal/config"
	"github.com/sjanel/coincenter/internal/logging"
	"github.com/sjanel/coincenter/internal/metrics"
	"github.com/sjanel/coincenter/pkg/cache"
	"github.com/sjanel/coincenter/pkg/cache/snapshot"
	"github.com/sjanel/coincenter/pkg/currency"
	"github.com/sjanel/coincenter/pkg/exchange"
	"github.com/sjanel/coincenter/pkg/exchange/adapters/binance"
	"github.com/sjanel/coincenter/pkg/exchange/adapters/bithumb"
	"github.com/sjanel/coincenter/pkg/exchange/adapters/common"
	"github.com/sjanel/coincenter/pkg/exchange/adapters/huobi"
	"github.com/sjanel/coincenter/pkg/exchange/adapters/kraken"
	"github.com/sjanel/coincenter/pkg/exchange/adapters/kucoin"
	"github.com/sjanel/coincenter/pkg/exchange/adapters/upbit"
	"github.com/sjanel/coincenter/pkg/exchange/path"
	"github.com/sjanel/coincenter/pkg/market"
	"github.com/sjanel/coincenter/pkg/money"
	"github.com/sjanel/coincenter/pkg/orchestrator"
)

// cacheTTL is how long a venue's costly public calls (markets, tickers,
// withdrawal fees) are memoized before being re-fetched.
const cacheTTL = 5 * time.Second

func main() {
	verb := flag.String("verb", "", "ticker|orderbook|balance|buy|sell|trade|withdraw|deposit")
	marketFlag := flag.String("market", "", "market as BASE-QUOTE, e.g. BTC-EUR")
	currencyFlag := flag.String("currency", "", "currency code, e.g. BTC")
	amountFlag := flag.String("amount", "", "amount, e.g. 0.5")
	percentage := flag.Bool("percentage", false, "treat -amount as a percentage of each account's balance")
	namesFlag := flag.String("accounts", "", "comma-separated venue[_account] references, empty means all")
	toFlag := flag.String("to", "", "destination venue[_account] reference, for withdraw")
	output := flag.String("output", "table", "table|json|off")
	envFile := flag.String("env", "", "path to a .env file (default: .env in the current directory)")
	flag.Parse()

	if *verb == "" {
		fmt.Fprintln(os.Stderr, "usage: coincenter -verb <verb> [flags]")
		os.Exit(2)
	}

	undo, err := maxprocs.Set()
	if err != nil {
		log.Fatalf("maxprocs: %v", err)
	}
	defer undo()

	cfg, err := config.Load(*envFile)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	level, err := parseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatalf("log level: %v", err)
	}
	logger, err := logging.New(level, cfg.LogFile)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	var sink metrics.Sink = metrics.NoopSink{}
	if cfg.MetricsAddr != "" {
		prom := metrics.NewPrometheusSink()
		sink = prom
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", prom.Handler())
			logger.Info("metrics server listening", zap.String("addr", cfg.MetricsAddr))
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
				logger.Error("metrics server stopped", zap.Error(err))
			}
		}()
	}
	recorder := metrics.NewHTTPRecorder(sink)

	orch, err := buildOrchestrator(cfg, logger, recorder)
	if err != nil {
		log.Fatalf("build orchestrator: %v", err)
	}

	names := splitNames(*namesFlag)
	result, err := dispatch(orch, *verb, names, *marketFlag, *currencyFlag, *amountFlag, *percentage, *toFlag, cfg)
	if err != nil {
		log.Fatalf("%s: %v", *verb, err)
	}

	printResult(result, *output)
}

func splitNames(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseLevel(s string) (zapcore.Level, error) {
	if s == "" {
		return zapcore.InfoLevel, nil
	}
	var level zapcore.Level
	err := level.UnmarshalText([]byte(s))
	return level, err
}

func parseMarket(s string) (market.Market, error) {
	base, quote, ok := strings.Cut(s, "-")
	if !ok {
		return market.Market{}, fmt.Errorf("market %q must be BASE-QUOTE", s)
	}
	return market.New(currency.New(base), currency.New(quote)), nil
}

// buildOrchestrator builds one Exchange (public adapter plus all
// configured accounts' private adapters) per known venue and assembles
// the Orchestrator, skipping a venue whose adapter fails to build rather
// than aborting the whole process.
func buildOrchestrator(cfg *config.CoincenterInfo, logger *zap.Logger, recorder *metrics.HTTPRecorder) (*orchestrator.Orchestrator, error) {
	exchanges := make(map[string]orchestrator.Exchange, len(config.Venues))

	for _, venue := range config.Venues {
		vc := cfg.Venues[venue]
		store, err := storeFor(cfg.DataDir, venue)
		if err != nil {
			logger.Warn("skipping venue: snapshot store", zap.String("venue", venue), zap.Error(err))
			continue
		}
		vault := cache.NewVault(venue, store)

		var mainCreds common.Credentials
		if c, ok := vc.Accounts["main"]; ok {
			mainCreds = common.Credentials{APIKey: c.APIKey, APISecret: c.APISecret}
		}
		pub, priv, err := newAdapter(venue, mainCreds, vault, recorder)
		if err != nil {
			logger.Warn("skipping venue: adapter build failed", zap.String("venue", venue), zap.Error(err))
			continue
		}

		accounts := make(map[string]exchange.VenuePrivateApi, len(vc.Accounts))
		for name, c := range vc.Accounts {
			if name == "main" {
				accounts[name] = priv
				continue
			}
			_, accPriv, err := newAdapter(venue, common.Credentials{APIKey: c.APIKey, APISecret: c.APISecret}, vault, recorder)
			if err != nil {
				logger.Warn("skipping account", zap.String("venue", venue), zap.String("account", name), zap.Error(err))
				continue
			}
			accounts[name] = accPriv
		}

		exchanges[venue] = orchestrator.Exchange{Public: pub, Accounts: accounts}
	}

	return orchestrator.New(config.Venues, exchanges, cfg.WorkerPool, logger), nil
}

func storeFor(dataDir, venue string) (snapshot.Store, error) {
	if dataDir == "" {
		return snapshot.NewMemoryStore(), nil
	}
	return snapshot.NewPebbleStore(dataDir + "/" + venue + ".db")
}

func newAdapter(venue string, creds common.Credentials, vault *cache.Vault, recorder *metrics.HTTPRecorder) (*common.PublicAdapter, *common.PrivateAdapter, error) {
	switch venue {
	case "binance":
		return binance.New(creds, vault, cacheTTL, recorder)
	case "bithumb":
		return bithumb.New(creds, vault, cacheTTL, recorder)
	case "huobi":
		return huobi.New(creds, vault, cacheTTL, recorder)
	case "kraken":
		return kraken.New(creds, vault, cacheTTL, recorder)
	case "kucoin":
		return kucoin.New(creds, vault, cacheTTL, recorder)
	case "upbit":
		return upbit.New(creds, vault, cacheTTL, recorder)
	default:
		return nil, nil, fmt.Errorf("unknown venue %q", venue)
	}
}

func dispatch(orch *orchestrator.Orchestrator, verb string, names []string, marketStr, curStr, amountStr string, isPercentage bool, to string, cfg *config.CoincenterInfo) (any, error) {
	tradeCfg := orchestrator.TradeConfig{
		Strategy:                   cfg.Trade.Strategy,
		TimeoutAction:              cfg.Trade.TimeoutAction,
		Timeout:                    cfg.Trade.Timeout,
		MinTimeBetweenPriceUpdates: cfg.Trade.MinTimeBetweenPriceUpdates,
		PathConfig:                 path.Config{Fiats: cfg.Fiats, StablecoinAliases: cfg.Stablecoins},
	}

	switch verb {
	case "ticker":
		mkt, err := parseMarket(marketStr)
		if err != nil {
			return nil, err
		}
		return orch.GetLastPricePerExchange(names, mkt)
	case "orderbook":
		mkt, err := parseMarket(marketStr)
		if err != nil {
			return nil, err
		}
		selected := orch.Select(names, orchestrator.OrderInitial, orchestrator.FilterAny)
		if len(selected) == 0 {
			return nil, fmt.Errorf("no venue matches %v", names)
		}
		return selected[0].Public.OrderBook(mkt, 0)
	case "balance":
		_, total, err := orch.Balance(names, orchestrator.OrderInitial, currency.New(curStr))
		return total, err
	case "buy":
		amount, err := money.Parse(amountStr, currency.New(curStr))
		if err != nil {
			return nil, err
		}
		return orch.Buy(names, orchestrator.OrderInitial, amount, cfg.Trade.PreferredPaymentCurrencies, tradeCfg)
	case "sell":
		mkt, err := parseMarket(marketStr)
		if err != nil {
			return nil, err
		}
		amount, err := money.Parse(amountStr, mkt.Base)
		if err != nil {
			return nil, err
		}
		return orch.Sell(names, orchestrator.OrderInitial, amount, isPercentage, mkt.Quote, tradeCfg)
	case "trade":
		mkt, err := parseMarket(marketStr)
		if err != nil {
			return nil, err
		}
		amount, err := money.Parse(amountStr, mkt.Base)
		if err != nil {
			return nil, err
		}
		return orch.Trade(names, orchestrator.OrderInitial, amount, isPercentage, mkt.Quote, tradeCfg)
	case "withdraw":
		if len(names) == 0 || to == "" {
			return nil, fmt.Errorf("withdraw requires -accounts <from> and -to <dest>")
		}
		amount, err := money.Parse(amountStr, currency.New(curStr))
		if err != nil {
			return nil, err
		}
		return orch.Withdraw(names[0], to, amount, orchestrator.WithdrawConfig{
			Sync:         true,
			Deadline:     cfg.Trade.Timeout,
			PollInterval: cfg.Trade.MinTimeBetweenPriceUpdates,
		})
	case "deposit":
		return orch.RecentDeposits(names, orchestrator.OrderInitial, exchange.OrderFilter{})
	default:
		return nil, fmt.Errorf("unknown verb %q", verb)
	}
}

func printResult(result any, output string) {
	switch output {
	case "off":
		return
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			log.Fatalf("encode result: %v", err)
		}
	default:
		fmt.Printf("%+v\n", result)
	}
}
