// Package flatkv implements FlatKeyValue: an ordered set of string key/value
// pairs flattened into one delimited string. It backs the canonicalized
// query strings that venue adapters sign (pkg/exchange/adapters) and can
// double as a compact map key.
package flatkv

import (
	"strconv"
	"strings"

	"github.com/sjanel/coincenter/pkg/coinerr"
)

// ArrayElemSep separates sub-values when a value represents an array (a
// value ending in this character, per Append's doc comment).
const ArrayElemSep = ','

// FlatKeyValue stores key/value pairs in insertion order inside a single
// string, using pairSep to separate pairs and assignSep to separate a key
// from its value. Both separators are configurable so the same type can
// produce "a=1&b=2" (URL query strings) or "a=1,b=2" or any other venue's
// flavor of canonical parameter encoding.
type FlatKeyValue struct {
	data      strings.Builder
	pairSep   byte
	assignSep byte
}

// New returns an empty FlatKeyValue using the given separators.
func New(pairSep, assignSep byte) *FlatKeyValue {
	return &FlatKeyValue{pairSep: pairSep, assignSep: assignSep}
}

func (f *FlatKeyValue) validateValue(value string) error {
	if strings.IndexByte(value, f.pairSep) != -1 || strings.IndexByte(value, f.assignSep) != -1 {
		return coinerr.New(coinerr.DuplicateSeparatorInValue,
			"value "+strconv.Quote(value)+" contains a separator byte")
	}
	return nil
}

// Append adds a new key/value pair. The key must not already be present;
// callers that are unsure should use Set instead. A value ending in
// ArrayElemSep is treated by ToMap as an array of comma-separated elements.
// Panics if value contains a separator byte; use TryAppend to handle that
// as an error instead.
func (f *FlatKeyValue) Append(key, value string) *FlatKeyValue {
	if err := f.TryAppend(key, value); err != nil {
		panic(err)
	}
	return f
}

// TryAppend is Append's error-returning counterpart, for callers building a
// FlatKeyValue from untrusted or venue-echoed values.
func (f *FlatKeyValue) TryAppend(key, value string) error {
	if err := f.validateValue(value); err != nil {
		return err
	}
	if f.data.Len() > 0 {
		f.data.WriteByte(f.pairSep)
	}
	f.data.WriteString(key)
	f.data.WriteByte(f.assignSep)
	f.data.WriteString(value)
	return nil
}

// AppendInt appends a key with an integer value formatted in base 10.
func (f *FlatKeyValue) AppendInt(key string, i int64) *FlatKeyValue {
	return f.Append(key, strconv.FormatInt(i, 10))
}

// AppendAll appends every pair of o after this FlatKeyValue's existing
// content. No check is made for duplicate keys across the two.
func (f *FlatKeyValue) AppendAll(o *FlatKeyValue) *FlatKeyValue {
	if o == nil || o.data.Len() == 0 {
		return f
	}
	if f.data.Len() > 0 {
		f.data.WriteByte(f.pairSep)
	}
	f.data.WriteString(o.data.String())
	return f
}

// find locates key in the flattened string, returning the byte offset of
// its value (just past the assignment separator), or -1 if absent.
func (f *FlatKeyValue) find(key string) int {
	s := f.data.String()
	start := 0
	for start <= len(s) {
		idx := strings.Index(s[start:], key)
		if idx == -1 {
			return -1
		}
		pos := start + idx
		valStart := pos + len(key)
		atBoundaryStart := pos == 0 || s[pos-1] == f.pairSep
		atAssign := valStart < len(s) && s[valStart] == f.assignSep
		if atBoundaryStart && atAssign {
			return valStart + 1
		}
		start = pos + 1
	}
	return -1
}

func (f *FlatKeyValue) valueSpan(valStart int) (start, end int) {
	s := f.data.String()
	end = strings.IndexByte(s[valStart:], f.pairSep)
	if end == -1 {
		return valStart, len(s)
	}
	return valStart, valStart + end
}

// Contains reports whether key is present.
func (f *FlatKeyValue) Contains(key string) bool {
	return f.find(key) != -1
}

// Get returns the value associated with key, or "" if absent.
func (f *FlatKeyValue) Get(key string) string {
	valStart := f.find(key)
	if valStart == -1 {
		return ""
	}
	start, end := f.valueSpan(valStart)
	return f.data.String()[start:end]
}

// Set updates the value for key, appending the pair if not already present.
// Panics if value contains a separator byte; use TrySet to handle that as
// an error instead.
func (f *FlatKeyValue) Set(key, value string) *FlatKeyValue {
	if err := f.TrySet(key, value); err != nil {
		panic(err)
	}
	return f
}

// TrySet is Set's error-returning counterpart.
func (f *FlatKeyValue) TrySet(key, value string) error {
	if err := f.validateValue(value); err != nil {
		return err
	}
	valStart := f.find(key)
	if valStart == -1 {
		return f.TryAppend(key, value)
	}
	start, end := f.valueSpan(valStart)
	s := f.data.String()
	var b strings.Builder
	b.Grow(len(s) - (end - start) + len(value))
	b.WriteString(s[:start])
	b.WriteString(value)
	b.WriteString(s[end:])
	f.data = b
	return nil
}

// SetInt is the integer-valued counterpart of Set.
func (f *FlatKeyValue) SetInt(key string, i int64) *FlatKeyValue {
	return f.Set(key, strconv.FormatInt(i, 10))
}

// Erase removes key (and its value) if present; a no-op otherwise.
func (f *FlatKeyValue) Erase(key string) *FlatKeyValue {
	valStart := f.find(key)
	if valStart == -1 {
		return f
	}
	keyStart := valStart - len(key) - 1
	_, end := f.valueSpan(valStart)
	s := f.data.String()
	var b strings.Builder
	if keyStart > 0 {
		b.WriteString(s[:keyStart-1]) // drop the preceding pair separator too
	}
	if end < len(s) {
		if keyStart == 0 {
			b.WriteString(s[end+1:]) // drop the following pair separator
		} else {
			b.WriteString(s[end:])
		}
	}
	f.data = b
	return f
}

// Empty reports whether no pair has been appended.
func (f *FlatKeyValue) Empty() bool { return f.data.Len() == 0 }

// Clear resets the FlatKeyValue to empty, keeping its separators.
func (f *FlatKeyValue) Clear() { f.data.Reset() }

// String returns the flattened representation.
func (f *FlatKeyValue) String() string { return f.data.String() }

// ToSigningString returns the exact byte sequence venue adapters feed into
// their HMAC: identical to String(), but named separately because the
// signing contract is "whatever order the caller built the pairs in",
// independent of String()'s other callers (logging, debug output).
func (f *FlatKeyValue) ToSigningString() string { return f.String() }

func isURLEncodeUnreserved(c byte, allowed string) bool {
	if 'A' <= c && c <= 'Z' || 'a' <= c && c <= 'z' || '0' <= c && c <= '9' {
		return true
	}
	return strings.IndexByte(allowed, c) != -1
}

// URLEncodeExcept percent-encodes every byte of the flattened string not in
// allowed (beyond the always-safe ASCII letters/digits), uppercasing the two
// hex digits as venues expect (e.g. "%2C" not "%2c").
func (f *FlatKeyValue) URLEncodeExcept(allowed string) string {
	s := f.data.String()
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isURLEncodeUnreserved(c, allowed) {
			b.WriteByte(c)
		} else {
			b.WriteByte('%')
			const hex = "0123456789ABCDEF"
			b.WriteByte(hex[c>>4])
			b.WriteByte(hex[c&0xF])
		}
	}
	return b.String()
}

// Pairs returns every (key, value) in insertion order.
func (f *FlatKeyValue) Pairs() [][2]string {
	s := f.data.String()
	if s == "" {
		return nil
	}
	var pairs [][2]string
	for _, part := range strings.Split(s, string(f.pairSep)) {
		i := strings.IndexByte(part, f.assignSep)
		if i == -1 {
			continue
		}
		pairs = append(pairs, [2]string{part[:i], part[i+1:]})
	}
	return pairs
}

// ToMap expands the pairs into a map, splitting any value that ends in
// ArrayElemSep into its comma-separated elements.
func (f *FlatKeyValue) ToMap() map[string]any {
	out := make(map[string]any)
	for _, kv := range f.Pairs() {
		key, val := kv[0], kv[1]
		if val != "" && val[len(val)-1] == ArrayElemSep {
			trimmed := val[:len(val)-1]
			if trimmed == "" {
				out[key] = []string{}
			} else {
				out[key] = strings.Split(trimmed, string(ArrayElemSep))
			}
		} else {
			out[key] = val
		}
	}
	return out
}

