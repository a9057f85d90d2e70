// Package signing provides the HMAC primitives venue adapters use to
// authenticate private requests (spec.md §6): a message built from
// FlatKeyValue.ToSigningString() plus a nonce/timestamp, MAC'd with
// HMAC-SHA256 or HMAC-SHA512 depending on the venue, hex-encoded.
//
// This is the HMAC-keyed counterpart of the teacher's pkg/crypto, which
// signs with an ECDSA secp256k1 key for on-chain transactions; coincenter
// has no blockchain surface, so the asymmetric-key machinery is replaced
// outright by a symmetric shared-secret MAC, but the "small signer type
// wrapping a stdlib crypto primitive, exposing Sign plus a couple of
// encoding helpers" shape is kept.
package signing

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"sync/atomic"
	"time"
)

// Algorithm selects the hash function underlying the MAC.
type Algorithm int

const (
	SHA256 Algorithm = iota
	SHA512
)

// Signer holds one venue account's API secret and signs messages with it.
// Never log or serialize a Signer; it exists only to produce MACs.
type Signer struct {
	secret []byte
	algo   Algorithm
}

// New builds a Signer from a venue account's raw API secret.
func New(secret string, algo Algorithm) *Signer {
	return &Signer{secret: []byte(secret), algo: algo}
}

// Sign returns the lower-case hex-encoded HMAC of message under the
// signer's secret and configured algorithm.
func (s *Signer) Sign(message string) string {
	var mac []byte
	switch s.algo {
	case SHA512:
		h := hmac.New(sha512.New, s.secret)
		h.Write([]byte(message))
		mac = h.Sum(nil)
	default:
		h := hmac.New(sha256.New, s.secret)
		h.Write([]byte(message))
		mac = h.Sum(nil)
	}
	return hex.EncodeToString(mac)
}

// NonceGenerator hands out strictly increasing millisecond timestamps
// within one process, per spec.md §6's "monotonic within one handle to
// satisfy nonce ordering": two calls in the same millisecond still
// produce distinct, increasing values, which venues that reject
// non-increasing nonces require.
type NonceGenerator struct {
	last int64
}

// Next returns the current time in milliseconds since epoch, bumped by
// one if that would not exceed the previous value returned.
func (g *NonceGenerator) Next() int64 {
	now := time.Now().UnixMilli()
	for {
		prev := atomic.LoadInt64(&g.last)
		next := now
		if next <= prev {
			next = prev + 1
		}
		if atomic.CompareAndSwapInt64(&g.last, prev, next) {
			return next
		}
	}
}

// FormatTimestamp renders ms as a decimal string, the form most venues
// expect embedded in either a header or the signed payload.
func FormatTimestamp(ms int64) string {
	return fmt.Sprintf("%d", ms)
}
