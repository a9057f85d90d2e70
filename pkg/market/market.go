// Package market implements Market: an ordered pair of currency codes
// tradable on a venue, per spec.md section 3.
package market

import "github.com/sjanel/coincenter/pkg/currency"

// Type tags a Market as a regular spot market or a synthetic leg spliced
// in by the conversion path engine.
type Type int

const (
	Spot Type = iota
	FiatConversion
)

func (t Type) String() string {
	if t == FiatConversion {
		return "fiat-conversion"
	}
	return "spot"
}

// Market is an ordered pair (base, quote) of currency codes.
type Market struct {
	Base  currency.Code
	Quote currency.Code
	Kind  Type
}

// New builds a spot Market.
func New(base, quote currency.Code) Market {
	return Market{Base: base, Quote: quote, Kind: Spot}
}

// NewTyped builds a Market carrying an explicit type tag.
func NewTyped(base, quote currency.Code, kind Type) Market {
	return Market{Base: base, Quote: quote, Kind: kind}
}

// Reversed returns the market with base/quote swapped, preserving Kind.
func (m Market) Reversed() Market {
	return Market{Base: m.Quote, Quote: m.Base, Kind: m.Kind}
}

// Contains reports whether c is either leg of m.
func (m Market) Contains(c currency.Code) bool {
	return m.Base == c || m.Quote == c
}

// Other returns the leg of m that isn't c, and whether c was found at all.
func (m Market) Other(c currency.Code) (currency.Code, bool) {
	switch c {
	case m.Base:
		return m.Quote, true
	case m.Quote:
		return m.Base, true
	default:
		return currency.Neutral, false
	}
}

// String renders "BASE-QUOTE".
func (m Market) String() string {
	return m.Base.String() + "-" + m.Quote.String()
}

// Equal reports equality ignoring Kind (two markets on the same currency
// pair are the same market regardless of how a given path labelled one leg).
func (m Market) Equal(o Market) bool {
	return m.Base == o.Base && m.Quote == o.Quote
}
