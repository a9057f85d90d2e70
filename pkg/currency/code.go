// Package currency implements CurrencyCode: an upper-case alphanumeric
// identifier stored inline (no heap allocation), per spec.md section 3.
package currency

import (
	"strings"
)

// MaxLen is the maximum number of characters a CurrencyCode can hold.
const MaxLen = 10

// Code is a fixed-capacity, stack-allocated currency identifier.
// The zero Code is the neutral sentinel representing "unspecified".
type Code struct {
	data [MaxLen]byte
	size uint8
}

// Neutral is the sentinel value meaning "unspecified currency".
var Neutral = Code{}

// New normalizes and stores s as a Code. Lower-case input is upper-cased.
// Strings longer than MaxLen are truncated at MaxLen (callers needing
// stricter validation should check len(s) against MaxLen first).
func New(s string) Code {
	var c Code
	s = strings.ToUpper(strings.TrimSpace(s))
	n := len(s)
	if n > MaxLen {
		n = MaxLen
	}
	copy(c.data[:], s[:n])
	c.size = uint8(n)
	return c
}

// String returns the normalized currency string ("" for Neutral).
func (c Code) String() string {
	return string(c.data[:c.size])
}

// IsNeutral reports whether c is the unspecified sentinel.
func (c Code) IsNeutral() bool {
	return c.size == 0
}

// Equal reports byte-identical equality after normalization (New already
// normalizes, so plain == over the struct works, but Equal documents the
// intended comparison operator for callers that build a Code manually).
func (c Code) Equal(o Code) bool {
	return c == o
}

// Less provides the total order required by spec.md section 3.
func (c Code) Less(o Code) bool {
	return c.String() < o.String()
}

// Aliases maps configured aliases (e.g. XBT -> BTC) to their canonical
// code. It is supplied by internal/config as part of CoincenterInfo and
// consulted by Normalize.
type Aliases map[string]string

// Prefixes maps known currency prefixes (e.g. "ARBITRUM") to the
// replacement they splice in front of the remaining token, producing
// e.g. "ARBITRUM FOO" -> "ARB/FOO" as described in spec.md section 3.
type Prefixes map[string]string

// Normalize applies the configured alias table and prefix table to raw,
// returning the canonical Code. Unrecognized input is merely upper-cased.
func Normalize(raw string, aliases Aliases, prefixes Prefixes) Code {
	s := strings.ToUpper(strings.TrimSpace(raw))
	for prefix, replacement := range prefixes {
		up := strings.ToUpper(prefix)
		if strings.HasPrefix(s, up+" ") {
			rest := strings.TrimSpace(s[len(up):])
			s = replacement + "/" + rest
			break
		}
	}
	if canon, ok := aliases[s]; ok {
		s = canon
	}
	return New(s)
}
