// Package path implements the conversion path engine (spec.md §4.7): given
// a venue's tradable market set and a source/target currency pair, find the
// shortest sequence of markets that composes one into the other.
package path

import (
	"sort"

	"github.com/sjanel/coincenter/pkg/currency"
	"github.com/sjanel/coincenter/pkg/market"
)

// Config supplies the venue-independent bridging rules the engine may
// splice onto a path's extremities: a stablecoin-to-fiat alias table (e.g.
// USDT<->USD) and the set of fiat currencies that may be freely converted
// into one another. Both come from the repo's static configuration, not
// any one venue's market list.
type Config struct {
	Fiats             map[currency.Code]bool
	StablecoinAliases map[currency.Code]currency.Code
}

// IsFiat reports whether cur is configured as a fiat currency.
func (c Config) IsFiat(cur currency.Code) bool {
	return c.Fiats[cur]
}

// bridgeNeighbors returns the currencies directly reachable from cur by a
// single alias or fiat-cross leg: cur's stablecoin peer (in either
// direction of the configured table), plus, if cur is a fiat, every other
// configured fiat.
func (c Config) bridgeNeighbors(cur currency.Code) []currency.Code {
	var out []currency.Code
	if peer, ok := c.StablecoinAliases[cur]; ok {
		out = append(out, peer)
	}
	for stable, fiat := range c.StablecoinAliases {
		if fiat == cur {
			out = append(out, stable)
		}
	}
	if c.IsFiat(cur) {
		for other := range c.Fiats {
			if other != cur {
				out = append(out, other)
			}
		}
	}
	return out
}

// bridgesFrom returns one synthetic fiat-conversion edge from cur to every
// currency reachable by composing any chain of alias/fiat-cross legs (e.g.
// a stablecoin aliased to USD reaches every other configured fiat by
// splicing its alias with a fiat-fiat cross, even with no direct alias to
// that fiat). However many conceptual legs the composition takes, it
// collapses to a single bridge edge, since a bridge may only ever occupy
// one hop of a path.
func (c Config) bridgesFrom(cur currency.Code) []edge {
	visited := map[currency.Code]bool{cur: true}
	queue := []currency.Code{cur}
	var reachable []currency.Code
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		for _, next := range c.bridgeNeighbors(node) {
			if visited[next] {
				continue
			}
			visited[next] = true
			reachable = append(reachable, next)
			queue = append(queue, next)
		}
	}

	bridges := make([]edge, len(reachable))
	for i, dest := range reachable {
		bridges[i] = edge{m: market.NewTyped(cur, dest, market.FiatConversion), to: dest}
	}
	sortEdges(bridges)
	return bridges
}

type edge struct {
	m  market.Market
	to currency.Code
}

func sortEdges(edges []edge) {
	sort.Slice(edges, func(i, j int) bool { return edges[i].m.String() < edges[j].m.String() })
}

func buildAdjacency(markets []market.Market) map[currency.Code][]edge {
	sorted := append([]market.Market(nil), markets...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].String() < sorted[j].String() })

	adj := make(map[currency.Code][]edge)
	for _, m := range sorted {
		adj[m.Base] = append(adj[m.Base], edge{m: m, to: m.Quote})
		adj[m.Quote] = append(adj[m.Quote], edge{m: m, to: m.Base})
	}
	return adj
}

type hop struct {
	via  market.Market
	from currency.Code
}

// FindMarketsPath returns the shortest sequence of markets converting from
// into to, splicing fiat-conversion bridge edges only at the path's first
// and/or last hop (policy kWithPossibleFiatConversionAtExtremity; spec.md
// §4.7). Every interior hop is a genuine market from markets. Ties in path
// length are broken by market name, so the result is reproducible for a
// given market set and config. Returns a 0-length, non-nil slice when
// from == to, and nil when no path exists.
func FindMarketsPath(markets []market.Market, from, to currency.Code, cfg Config) []market.Market {
	if from.Equal(to) {
		return []market.Market{}
	}

	adj := buildAdjacency(markets)
	visited := map[currency.Code]bool{from: true}
	cameFrom := map[currency.Code]hop{}

	// reach tries to move onto neighbor via e. isNew reports whether e.to
	// had not been visited before (so it belongs in the next frontier);
	// isTarget reports whether e.to is `to` (BFS guarantees the first such
	// discovery is via a shortest hop count).
	reach := func(node currency.Code, e edge) (isNew, isTarget bool) {
		if visited[e.to] {
			return false, false
		}
		visited[e.to] = true
		cameFrom[e.to] = hop{via: e.m, from: node}
		return true, e.to.Equal(to)
	}

	// Depth 1: every regular market out of `from`, plus `from`'s own
	// bridge edges (the only point a bridge may be the *first* hop).
	frontier := append([]edge{}, adj[from]...)
	frontier = append(frontier, cfg.bridgesFrom(from)...)
	sortEdges(frontier)

	var queue []currency.Code
	for _, e := range frontier {
		isNew, isTarget := reach(from, e)
		if isTarget {
			return reconstructMarkets(cameFrom, from, to)
		}
		if isNew {
			queue = append(queue, e.to)
		}
	}

	for len(queue) > 0 {
		var next []currency.Code
		for _, node := range queue {
			// Every node may close the path directly to `to` via a bridge,
			// since a bridge is also permitted as the *last* hop.
			candidates := append([]edge{}, adj[node]...)
			candidates = append(candidates, closingBridges(cfg, node, to)...)
			sortEdges(candidates)

			for _, e := range candidates {
				isNew, isTarget := reach(node, e)
				if isTarget {
					return reconstructMarkets(cameFrom, from, to)
				}
				if isNew {
					next = append(next, e.to)
				}
			}
		}
		queue = next
	}

	return nil
}

// closingBridges returns, at most, the bridge edge from node straight to
// to, if node has one. Other bridges out of node are not offered here:
// a bridge used anywhere but the first or last hop would land in the
// interior of the path, which the policy forbids.
func closingBridges(cfg Config, node, to currency.Code) []edge {
	var out []edge
	for _, e := range cfg.bridgesFrom(node) {
		if e.to.Equal(to) {
			out = append(out, e)
		}
	}
	return out
}

func reconstructMarkets(cameFrom map[currency.Code]hop, from, to currency.Code) []market.Market {
	var reversed []market.Market
	cur := to
	for !cur.Equal(from) {
		h := cameFrom[cur]
		reversed = append(reversed, h.via)
		cur = h.from
	}
	path := make([]market.Market, len(reversed))
	for i, m := range reversed {
		path[len(reversed)-1-i] = m
	}
	return path
}

// FindCurrenciesPath returns the ordered currency nodes FindMarketsPath's
// result visits, starting with from and ending with to; the orchestrator
// uses this form to report the conversion route to callers (spec.md §4.7:
// "used backward by the orchestrator"). Returns nil when no path exists,
// and [from] when from == to.
func FindCurrenciesPath(markets []market.Market, from, to currency.Code, cfg Config) []currency.Code {
	if from.Equal(to) {
		return []currency.Code{from}
	}
	mkts := FindMarketsPath(markets, from, to, cfg)
	if mkts == nil {
		return nil
	}
	nodes := make([]currency.Code, 0, len(mkts)+1)
	nodes = append(nodes, from)
	cur := from
	for _, m := range mkts {
		next, _ := m.Other(cur)
		nodes = append(nodes, next)
		cur = next
	}
	return nodes
}
