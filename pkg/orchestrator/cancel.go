package orchestrator

import (
	"go.uber.org/zap"

	"github.com/sjanel/coincenter/pkg/exchange"
)

func accountKey(e Selected) string {
	if e.Account == "" {
		return e.Venue
	}
	return e.Venue + "_" + e.Account
}

// OpenedOrders fans out OpenedOrders(filter) across the selected accounts
// (spec.md §4.10's "Cancel & query").
func (o *Orchestrator) OpenedOrders(names []string, order SelectOrder, filter exchange.OrderFilter) (map[string][]exchange.Order, error) {
	selected := o.Select(names, order, FilterWithAccountWhenEmpty)
	results, err := fanOut(selected, o.workerPool, func(e Selected) ([]exchange.Order, error) {
		return e.Private.OpenedOrders(filter)
	})
	if err != nil {
		return nil, err
	}
	out := make(map[string][]exchange.Order, len(selected))
	for i, e := range selected {
		if results[i].err != nil {
			o.logger.Warn("opened orders failed", zap.String("account", accountKey(e)), zap.Error(results[i].err))
			continue
		}
		out[accountKey(e)] = results[i].value
	}
	return out, nil
}

// ClosedOrders fans out ClosedOrders(filter) across the selected accounts.
func (o *Orchestrator) ClosedOrders(names []string, order SelectOrder, filter exchange.OrderFilter) (map[string][]exchange.Order, error) {
	selected := o.Select(names, order, FilterWithAccountWhenEmpty)
	results, err := fanOut(selected, o.workerPool, func(e Selected) ([]exchange.Order, error) {
		return e.Private.ClosedOrders(filter)
	})
	if err != nil {
		return nil, err
	}
	out := make(map[string][]exchange.Order, len(selected))
	for i, e := range selected {
		if results[i].err != nil {
			o.logger.Warn("closed orders failed", zap.String("account", accountKey(e)), zap.Error(results[i].err))
			continue
		}
		out[accountKey(e)] = results[i].value
	}
	return out, nil
}

// CancelOrders fans out CancelOrders(filter) across the selected accounts,
// returning how many orders each account cancelled.
func (o *Orchestrator) CancelOrders(names []string, order SelectOrder, filter exchange.OrderFilter) (map[string]int, error) {
	selected := o.Select(names, order, FilterWithAccountWhenEmpty)
	results, err := fanOut(selected, o.workerPool, func(e Selected) (int, error) {
		return e.Private.CancelOrders(filter)
	})
	if err != nil {
		return nil, err
	}
	out := make(map[string]int, len(selected))
	for i, e := range selected {
		if results[i].err != nil {
			o.logger.Warn("cancel orders failed", zap.String("account", accountKey(e)), zap.Error(results[i].err))
			continue
		}
		out[accountKey(e)] = results[i].value
	}
	return out, nil
}

// RecentDeposits fans out RecentDeposits(filter) across the selected
// accounts.
func (o *Orchestrator) RecentDeposits(names []string, order SelectOrder, filter exchange.OrderFilter) (map[string][]exchange.Deposit, error) {
	selected := o.Select(names, order, FilterWithAccountWhenEmpty)
	results, err := fanOut(selected, o.workerPool, func(e Selected) ([]exchange.Deposit, error) {
		return e.Private.RecentDeposits(filter)
	})
	if err != nil {
		return nil, err
	}
	out := make(map[string][]exchange.Deposit, len(selected))
	for i, e := range selected {
		if results[i].err != nil {
			o.logger.Warn("recent deposits failed", zap.String("account", accountKey(e)), zap.Error(results[i].err))
			continue
		}
		out[accountKey(e)] = results[i].value
	}
	return out, nil
}

// RecentWithdraws fans out RecentWithdraws(filter) across the selected
// accounts.
func (o *Orchestrator) RecentWithdraws(names []string, order SelectOrder, filter exchange.OrderFilter) (map[string][]exchange.Withdraw, error) {
	selected := o.Select(names, order, FilterWithAccountWhenEmpty)
	results, err := fanOut(selected, o.workerPool, func(e Selected) ([]exchange.Withdraw, error) {
		return e.Private.RecentWithdraws(filter)
	})
	if err != nil {
		return nil, err
	}
	out := make(map[string][]exchange.Withdraw, len(selected))
	for i, e := range selected {
		if results[i].err != nil {
			o.logger.Warn("recent withdraws failed", zap.String("account", accountKey(e)), zap.Error(results[i].err))
			continue
		}
		out[accountKey(e)] = results[i].value
	}
	return out, nil
}
