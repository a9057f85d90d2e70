// Package orchestrator implements the multi-venue selection, fan-out, and
// aggregation logic (spec.md §4.10, C9): balance aggregation, smart
// trade/buy/sell, withdraw, the dust sweeper, and cancel/query aggregation,
// plus the read-only fan-out queries supplemented from original_source's
// exchangesorchestrator.hpp (SPEC_FULL.md §9).
//
// There is no dynamic dispatch beyond the exchange.VenuePublicApi/
// VenuePrivateApi interfaces themselves: the orchestrator holds a plain
// map of venue name to Exchange record (spec.md §9's "tagged enum
// VenueKind" note reduces, in Go, to just using the venue name string as
// the tag).
package orchestrator

import (
	"errors"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sjanel/coincenter/pkg/coinerr"
	"github.com/sjanel/coincenter/pkg/exchange"
)

// Exchange pairs one venue's public API with zero or more named private
// accounts (spec.md §4.10: "owns a vector of Exchange records ... private
// absent when no credentials"). An empty Accounts map means public-data
// only.
type Exchange struct {
	Public   exchange.VenuePublicApi
	Accounts map[string]exchange.VenuePrivateApi
}

// SelectOrder controls whether Select preserves the orchestrator's fixed
// venue order or the caller's name order.
type SelectOrder int

const (
	OrderInitial SelectOrder = iota
	OrderSelection
)

// SelectFilter controls whether an empty names list includes accountless
// (public-only) entries.
type SelectFilter int

const (
	FilterAny SelectFilter = iota
	FilterWithAccountWhenEmpty
)

// Selected is one resolved venue[_account] entry: always a usable public
// API, and a private API plus a non-empty Account name when the entry is
// account-scoped.
type Selected struct {
	Venue   string
	Account string
	Public  exchange.VenuePublicApi
	Private exchange.VenuePrivateApi
}

// Orchestrator holds const references to every configured venue's
// adapters plus the repo's fixed venue order; it owns no shared mutable
// state beyond per-call selection scratch (spec.md §5's "Shared state").
type Orchestrator struct {
	order      []string
	exchanges  map[string]Exchange
	workerPool int
	logger     *zap.Logger
}

// New builds an Orchestrator. order fixes the venue iteration order used
// whenever names is empty or SelectOrder is OrderInitial; workerPool
// bounds the concurrency of every fan-out this orchestrator performs. A
// nil logger is replaced with a no-op one.
func New(order []string, exchanges map[string]Exchange, workerPool int, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if workerPool <= 0 {
		workerPool = 1
	}
	return &Orchestrator{order: order, exchanges: exchanges, workerPool: workerPool, logger: logger}
}

// ParseRef splits a "venue" or "venue_account" reference. Venue
// identifiers never contain an underscore, so the split is on the first
// one.
func ParseRef(name string) (venue, account string) {
	venue, account, _ = strings.Cut(name, "_")
	return venue, account
}

// allEntries returns every Selected entry this orchestrator could ever
// produce, in fixed venue order, with each venue's accounts in sorted
// order for reproducibility across map iterations.
func (o *Orchestrator) allEntries() []Selected {
	var out []Selected
	for _, venue := range o.order {
		ex, ok := o.exchanges[venue]
		if !ok {
			continue
		}
		if len(ex.Accounts) == 0 {
			out = append(out, Selected{Venue: venue, Public: ex.Public})
			continue
		}
		names := make([]string, 0, len(ex.Accounts))
		for account := range ex.Accounts {
			names = append(names, account)
		}
		sort.Strings(names)
		for _, account := range names {
			out = append(out, Selected{Venue: venue, Account: account, Public: ex.Public, Private: ex.Accounts[account]})
		}
	}
	return out
}

type nameRef struct{ venue, account string }

func matchesRef(e Selected, r nameRef) bool {
	if e.Venue != r.venue {
		return false
	}
	if r.account == "" {
		return true
	}
	return e.Account == r.account
}

// Select resolves names into concrete entries (spec.md §4.10). An empty
// names list means "all venues", narrowed by filter. A non-empty list is
// split into venue[_account] references; order controls whether the
// result follows the orchestrator's fixed venue order or the order names
// were given in.
func (o *Orchestrator) Select(names []string, order SelectOrder, filter SelectFilter) []Selected {
	all := o.allEntries()

	if len(names) == 0 {
		out := make([]Selected, 0, len(all))
		for _, e := range all {
			if filter == FilterWithAccountWhenEmpty && e.Account == "" {
				continue
			}
			out = append(out, e)
		}
		return out
	}

	refs := make([]nameRef, len(names))
	for i, n := range names {
		venue, account := ParseRef(n)
		refs[i] = nameRef{venue: venue, account: account}
	}

	if order == OrderSelection {
		var out []Selected
		for _, r := range refs {
			for _, e := range all {
				if matchesRef(e, r) {
					out = append(out, e)
				}
			}
		}
		return out
	}

	var out []Selected
	for _, e := range all {
		for _, r := range refs {
			if matchesRef(e, r) {
				out = append(out, e)
				break
			}
		}
	}
	return out
}

// SelectOneAccount resolves names exactly as Select does, then drops every
// entry after the first one seen per venue (spec.md §4.10's
// select_one_account: "de-duplicates by venue so each venue is queried
// once regardless of how many accounts are configured"). Meant for
// public-data fan-outs that don't need a specific account.
func (o *Orchestrator) SelectOneAccount(names []string, order SelectOrder) []Selected {
	selected := o.Select(names, order, FilterAny)
	seen := make(map[string]bool, len(selected))
	out := make([]Selected, 0, len(selected))
	for _, e := range selected {
		if seen[e.Venue] {
			continue
		}
		seen[e.Venue] = true
		out = append(out, e)
	}
	return out
}

type fanResult[T any] struct {
	value T
	err   error
}

// fanOut issues fn once per item concurrently, bounded by the
// orchestrator's worker pool, and returns one result per item in the same
// order as items (spec.md §4.10's "parallel fan-out ... assembled into a
// vector preserving the selection order"). A per-item InvalidArgument
// error aborts the whole operation and is returned directly; any other
// per-item error is captured in that item's fanResult and does not affect
// its siblings (spec.md §7: "orchestrator aggregates partial failures
// into its per-venue result vector ... except InvalidArgument which
// aborts the whole operation").
func fanOut[T any](items []Selected, workerPool int, fn func(Selected) (T, error)) ([]fanResult[T], error) {
	results := make([]fanResult[T], len(items))
	var g errgroup.Group
	g.SetLimit(workerPool)
	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			v, err := fn(item)
			results[i] = fanResult[T]{value: v, err: err}
			if errors.Is(err, coinerr.InvalidArgument.Sentinel()) {
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

// HealthCheck fans out VenuePublicApi.HealthCheck() across the selected
// venues and returns a per-venue bool map (SPEC_FULL.md §9, grounded on
// original_source's exchangesorchestrator.hpp getHealthCheck). A venue
// whose HealthCheck call errored is reported as unhealthy; the error
// itself is logged, not surfaced, matching how partial venue failures are
// handled elsewhere in the orchestrator.
func (o *Orchestrator) HealthCheck(names []string) (map[string]bool, error) {
	selected := o.SelectOneAccount(names, OrderInitial)
	results, err := fanOut(selected, o.workerPool, func(e Selected) (bool, error) {
		return e.Public.HealthCheck()
	})
	if err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(selected))
	for i, e := range selected {
		ok := results[i].value
		if results[i].err != nil {
			o.logger.Warn("health check failed", zap.String("venue", e.Venue), zap.Error(results[i].err))
			ok = false
		}
		out[e.Venue] = ok
	}
	return out, nil
}
