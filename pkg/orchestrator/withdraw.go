package orchestrator

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sjanel/coincenter/pkg/coinerr"
	"github.com/sjanel/coincenter/pkg/currency"
	"github.com/sjanel/coincenter/pkg/exchange"
	"github.com/sjanel/coincenter/pkg/market"
	"github.com/sjanel/coincenter/pkg/money"
)

// WithdrawConfig carries the polling behavior and optional address
// allowlist a Withdraw call uses (spec.md §4.10).
type WithdrawConfig struct {
	// Sync blocks until delivery is confirmed or Deadline elapses; async
	// returns as soon as the source confirms the transfer was sent.
	Sync         bool
	Deadline     time.Duration
	PollInterval time.Duration
	AddressAllow []string // empty means no allowlist restriction
}

func (o *Orchestrator) resolveOne(ref string) (Selected, error) {
	matches := o.Select([]string{ref}, OrderSelection, FilterAny)
	if len(matches) == 0 {
		return Selected{}, coinerr.New(coinerr.NotFound, fmt.Sprintf("no account matches %q", ref))
	}
	return matches[0], nil
}

// Withdraw moves gross of one currency from the account named fromRef to
// the account named toRef (spec.md §4.10). It refuses same-account
// transfers, unsupported source/destination currencies, and
// allowlist-failing destinations by returning a zero DeliveredWithdrawInfo
// with Initiated == false and a nil error, matching seed scenario 6's
// "does not call launch_withdraw" requirement rather than raising.
func (o *Orchestrator) Withdraw(fromRef, toRef string, gross money.Amount, cfg WithdrawConfig) (exchange.DeliveredWithdrawInfo, error) {
	from, err := o.resolveOne(fromRef)
	if err != nil {
		return exchange.DeliveredWithdrawInfo{}, err
	}
	to, err := o.resolveOne(toRef)
	if err != nil {
		return exchange.DeliveredWithdrawInfo{}, err
	}
	if from.Venue == to.Venue && from.Account == to.Account {
		return exchange.DeliveredWithdrawInfo{}, nil
	}
	if from.Private == nil || to.Private == nil {
		return exchange.DeliveredWithdrawInfo{}, nil
	}

	cur := gross.Currency()
	if !currencySupportsWithdraw(from.Public, cur) {
		o.logger.Info("withdraw refused: source cannot withdraw currency", zap.String("venue", from.Venue), zap.String("currency", cur.String()))
		return exchange.DeliveredWithdrawInfo{}, nil
	}
	if !currencySupportsDeposit(to.Public, cur) || !to.Private.CanGenerateDepositAddress() {
		o.logger.Info("withdraw refused: destination cannot deposit currency", zap.String("venue", to.Venue), zap.String("currency", cur.String()))
		return exchange.DeliveredWithdrawInfo{}, nil
	}

	wallet, err := to.Private.DepositWallet(cur)
	if err != nil {
		return exchange.DeliveredWithdrawInfo{}, err
	}
	if len(cfg.AddressAllow) > 0 && !addressAllowed(wallet.Address, cfg.AddressAllow) {
		o.logger.Warn("withdraw refused: destination address not allowlisted", zap.String("address", wallet.Address))
		return exchange.DeliveredWithdrawInfo{}, nil
	}

	init, err := from.Private.LaunchWithdraw(gross, wallet)
	if err != nil {
		return exchange.DeliveredWithdrawInfo{}, err
	}

	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	deadline := time.Now().Add(cfg.Deadline)

	var sent exchange.SentWithdrawInfo
	for {
		sent, err = from.Private.IsWithdrawSuccessfullySent(init)
		if err != nil {
			return exchange.DeliveredWithdrawInfo{Initiated: true, Init: init}, err
		}
		if sent.Sent || !time.Now().Before(deadline) {
			break
		}
		time.Sleep(pollInterval)
	}
	if !sent.Sent {
		return exchange.DeliveredWithdrawInfo{Initiated: true, Init: init}, coinerr.New(coinerr.Timeout, "withdraw not confirmed sent before deadline")
	}
	if !cfg.Sync {
		return exchange.DeliveredWithdrawInfo{Initiated: true, Init: init}, nil
	}

	for {
		net, err := to.Private.QueryWithdrawDelivery(init, sent)
		if err == nil && !net.IsZero() {
			return exchange.DeliveredWithdrawInfo{Initiated: true, Delivered: true, Init: init, NetReceived: net}, nil
		}
		if !time.Now().Before(deadline) {
			return exchange.DeliveredWithdrawInfo{Initiated: true, Init: init}, coinerr.New(coinerr.Timeout, "withdraw delivery not confirmed before deadline")
		}
		time.Sleep(pollInterval)
	}
}

func currencySupportsWithdraw(pub exchange.VenuePublicApi, cur currency.Code) bool {
	entries, err := pub.TradableCurrencies()
	if err != nil {
		return false
	}
	for _, e := range entries {
		if e.Standard.Equal(cur) {
			return e.WithdrawEnabled
		}
	}
	return false
}

func currencySupportsDeposit(pub exchange.VenuePublicApi, cur currency.Code) bool {
	entries, err := pub.TradableCurrencies()
	if err != nil {
		return false
	}
	for _, e := range entries {
		if e.Standard.Equal(cur) {
			return e.DepositEnabled
		}
	}
	return false
}

func addressAllowed(address string, allowlist []string) bool {
	for _, a := range allowlist {
		if a == address {
			return true
		}
	}
	return false
}

// SweepDust repeatedly sells the residual balance of cur on sel along any
// market containing it, stopping when the balance reaches zero, an
// iteration makes no progress, or maxIterations is reached (spec.md
// §4.10's dust sweeper).
func (o *Orchestrator) SweepDust(sel Selected, cur currency.Code, cfg TradeConfig, maxIterations int) ([]exchange.TradedAmounts, money.Amount, error) {
	if sel.Private == nil {
		return nil, money.Zero(cur), coinerr.New(coinerr.InvalidArgument, "dust sweep requires an account")
	}

	balances, err := sel.Private.AccountBalance(currency.Neutral)
	if err != nil {
		return nil, money.Zero(cur), err
	}
	residual, ok := balances[cur]
	if !ok {
		residual = money.Zero(cur)
	}

	var legs []exchange.TradedAmounts
	for i := 0; i < maxIterations && residual.Sign() > 0; i++ {
		markets, err := sel.Public.TradableMarkets()
		if err != nil {
			break
		}
		var target *market.Market
		for j := range markets {
			if markets[j].Contains(cur) {
				target = &markets[j]
				break
			}
		}
		if target == nil {
			break
		}

		traded, err := o.executeLeg(sel.Public, sel.Private, *target, residual, cfg)
		if err != nil {
			break
		}
		legs = append(legs, traded)

		balances, err = sel.Private.AccountBalance(currency.Neutral)
		if err != nil {
			break
		}
		newResidual, ok := balances[cur]
		if !ok {
			newResidual = money.Zero(cur)
		}
		if cmp, cErr := newResidual.Cmp(residual); cErr == nil && cmp >= 0 {
			residual = newResidual
			break
		}
		residual = newResidual
	}
	return legs, residual, nil
}
