package orchestrator

import (
	"go.uber.org/zap"

	"github.com/sjanel/coincenter/pkg/currency"
	"github.com/sjanel/coincenter/pkg/money"
)

// AccountBalance is one account's contribution to a Balance call: its
// per-currency amounts (already converted to equiCur when one was given),
// or Err if that account's query failed.
type AccountBalance struct {
	Venue    string
	Account  string
	Balances map[currency.Code]money.Amount
	Err      error
}

// Balance fans out AccountBalance across every selected account and sums
// the per-currency totals across accounts (spec.md §4.10). A zero
// (neutral) equiCur leaves each account's balances in their native
// currencies; a non-neutral one converts every entry first.
func (o *Orchestrator) Balance(names []string, order SelectOrder, equiCur currency.Code) ([]AccountBalance, map[currency.Code]money.Amount, error) {
	selected := o.Select(names, order, FilterWithAccountWhenEmpty)

	results, err := fanOut(selected, o.workerPool, func(e Selected) (map[currency.Code]money.Amount, error) {
		return e.Private.AccountBalance(equiCur)
	})
	if err != nil {
		return nil, nil, err
	}

	perAccount := make([]AccountBalance, len(selected))
	totals := make(map[currency.Code]money.Amount)
	for i, e := range selected {
		perAccount[i] = AccountBalance{Venue: e.Venue, Account: e.Account, Balances: results[i].value, Err: results[i].err}
		if results[i].err != nil {
			o.logger.Warn("account balance failed", zap.String("venue", e.Venue), zap.String("account", e.Account), zap.Error(results[i].err))
			continue
		}
		for cur, amt := range results[i].value {
			sum, ok := totals[cur]
			if !ok {
				totals[cur] = amt
				continue
			}
			merged, err := sum.Add(amt)
			if err != nil {
				o.logger.Warn("balance total merge failed", zap.String("currency", cur.String()), zap.Error(err))
				continue
			}
			totals[cur] = merged
		}
	}
	return perAccount, totals, nil
}
