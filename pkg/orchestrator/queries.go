package orchestrator

import (
	"go.uber.org/zap"

	"github.com/sjanel/coincenter/pkg/currency"
	"github.com/sjanel/coincenter/pkg/exchange"
	"github.com/sjanel/coincenter/pkg/exchange/path"
	"github.com/sjanel/coincenter/pkg/market"
	"github.com/sjanel/coincenter/pkg/money"
)

// GetMarketsPerExchange fans out TradableMarkets() across the selected
// venues (SPEC_FULL.md §9, exchangesorchestrator.hpp getMarketsPerExchange).
// A venue whose query failed is omitted from the result rather than
// aborting the whole call.
func (o *Orchestrator) GetMarketsPerExchange(names []string) (map[string][]market.Market, error) {
	selected := o.SelectOneAccount(names, OrderInitial)
	results, err := fanOut(selected, o.workerPool, func(e Selected) ([]market.Market, error) {
		return e.Public.TradableMarkets()
	})
	if err != nil {
		return nil, err
	}
	out := make(map[string][]market.Market, len(selected))
	for i, e := range selected {
		if results[i].err != nil {
			o.logger.Warn("tradable markets failed", zap.String("venue", e.Venue), zap.Error(results[i].err))
			continue
		}
		out[e.Venue] = results[i].value
	}
	return out, nil
}

// GetExchangesTradingCurrency returns the names of every selected venue
// that lists cur among its tradable currencies.
func (o *Orchestrator) GetExchangesTradingCurrency(names []string, cur currency.Code) ([]string, error) {
	selected := o.SelectOneAccount(names, OrderInitial)
	results, err := fanOut(selected, o.workerPool, func(e Selected) ([]exchange.CurrencyExchange, error) {
		return e.Public.TradableCurrencies()
	})
	if err != nil {
		return nil, err
	}
	var out []string
	for i, e := range selected {
		if results[i].err != nil {
			o.logger.Warn("tradable currencies failed", zap.String("venue", e.Venue), zap.Error(results[i].err))
			continue
		}
		for _, c := range results[i].value {
			if c.Standard.Equal(cur) {
				out = append(out, e.Venue)
				break
			}
		}
	}
	return out, nil
}

// GetExchangesTradingMarket returns the names of every selected venue
// that lists mkt among its tradable markets.
func (o *Orchestrator) GetExchangesTradingMarket(names []string, mkt market.Market) ([]string, error) {
	selected := o.SelectOneAccount(names, OrderInitial)
	results, err := fanOut(selected, o.workerPool, func(e Selected) ([]market.Market, error) {
		return e.Public.TradableMarkets()
	})
	if err != nil {
		return nil, err
	}
	var out []string
	for i, e := range selected {
		if results[i].err != nil {
			o.logger.Warn("tradable markets failed", zap.String("venue", e.Venue), zap.Error(results[i].err))
			continue
		}
		for _, m := range results[i].value {
			if m.Equal(mkt) {
				out = append(out, e.Venue)
				break
			}
		}
	}
	return out, nil
}

// GetConversionPaths fans out TradableMarkets() and runs the path engine
// against each venue's market set (SPEC_FULL.md §9). cfg supplies the
// fiat/stablecoin bridging rules from CoincenterInfo; the same cfg is used
// for every venue since those tables are venue-independent.
func (o *Orchestrator) GetConversionPaths(names []string, from, to currency.Code, cfg path.Config) (map[string][]market.Market, error) {
	selected := o.SelectOneAccount(names, OrderInitial)
	results, err := fanOut(selected, o.workerPool, func(e Selected) ([]market.Market, error) {
		return e.Public.TradableMarkets()
	})
	if err != nil {
		return nil, err
	}
	out := make(map[string][]market.Market, len(selected))
	for i, e := range selected {
		if results[i].err != nil {
			o.logger.Warn("tradable markets failed", zap.String("venue", e.Venue), zap.Error(results[i].err))
			continue
		}
		out[e.Venue] = path.FindMarketsPath(results[i].value, from, to, cfg)
	}
	return out, nil
}

// GetLast24hTradedVolumePerExchange fans out Last24hVolume(mkt) across the
// selected venues.
func (o *Orchestrator) GetLast24hTradedVolumePerExchange(names []string, mkt market.Market) (map[string]money.Amount, error) {
	selected := o.SelectOneAccount(names, OrderInitial)
	results, err := fanOut(selected, o.workerPool, func(e Selected) (money.Amount, error) {
		return e.Public.Last24hVolume(mkt)
	})
	if err != nil {
		return nil, err
	}
	out := make(map[string]money.Amount, len(selected))
	for i, e := range selected {
		if results[i].err != nil {
			o.logger.Warn("24h volume failed", zap.String("venue", e.Venue), zap.Error(results[i].err))
			continue
		}
		out[e.Venue] = results[i].value
	}
	return out, nil
}

// GetLastTradesPerExchange fans out LastTrades(mkt, n) across the
// selected venues.
func (o *Orchestrator) GetLastTradesPerExchange(names []string, mkt market.Market, n int) (map[string][]exchange.PublicTrade, error) {
	selected := o.SelectOneAccount(names, OrderInitial)
	results, err := fanOut(selected, o.workerPool, func(e Selected) ([]exchange.PublicTrade, error) {
		return e.Public.LastTrades(mkt, n)
	})
	if err != nil {
		return nil, err
	}
	out := make(map[string][]exchange.PublicTrade, len(selected))
	for i, e := range selected {
		if results[i].err != nil {
			o.logger.Warn("last trades failed", zap.String("venue", e.Venue), zap.Error(results[i].err))
			continue
		}
		out[e.Venue] = results[i].value
	}
	return out, nil
}

// GetLastPricePerExchange fans out LastPrice(mkt) across the selected
// venues.
func (o *Orchestrator) GetLastPricePerExchange(names []string, mkt market.Market) (map[string]money.Amount, error) {
	selected := o.SelectOneAccount(names, OrderInitial)
	results, err := fanOut(selected, o.workerPool, func(e Selected) (money.Amount, error) {
		return e.Public.LastPrice(mkt)
	})
	if err != nil {
		return nil, err
	}
	out := make(map[string]money.Amount, len(selected))
	for i, e := range selected {
		if results[i].err != nil {
			o.logger.Warn("last price failed", zap.String("venue", e.Venue), zap.Error(results[i].err))
			continue
		}
		out[e.Venue] = results[i].value
	}
	return out, nil
}
