// Package common factors the plumbing every venue adapter under
// pkg/exchange/adapters needs in identical form: an HTTP client pair
// (public, private) wrapped in retry policies, an HMAC signer, and a
// monotonic nonce source (spec.md §4.8/§6; SPEC_FULL.md §4.E). Adapters
// hold a *Stack and build their venue-specific endpoint tables, JSON
// schemas, and accept() predicates around it.
package common

import (
	"context"
	"net/http"
	"time"

	"github.com/sjanel/coincenter/pkg/coinerr"
	"github.com/sjanel/coincenter/pkg/flatkv"
	"github.com/sjanel/coincenter/pkg/httpclient"
	"github.com/sjanel/coincenter/pkg/signing"
)

// Stack bundles one venue's two HTTP surfaces (public market data, private
// account operations share the same base URLs but are rate-limited and
// retried independently since venues often give private endpoints their
// own quota) plus its signing material.
type Stack struct {
	Venue string

	Public     *httpclient.Client
	PublicRR   *httpclient.RequestRetry
	Private    *httpclient.Client
	PrivateRR  *httpclient.RequestRetry
	APIKey     string
	APISecret  string
	signer     *signing.Signer
	nonce      signing.NonceGenerator
}

// Credentials carries one account's venue API key pair. A zero-value
// Credentials means the adapter is public-data-only.
type Credentials struct {
	APIKey    string
	APISecret string
}

// NewStack builds the shared HTTP/signing plumbing for one venue. minSpacing
// enforces the venue's rate limit per Client (pkg/httpclient); algo picks
// the MAC scheme the venue expects over FlatKeyValue.ToSigningString().
// recorder, if non-nil, is attached to both the public and private Client so
// every request they issue reports a latency/outcome sample; pass nil to get
// the Client's built-in no-op recorder.
func NewStack(venue string, baseURLs []string, minSpacing time.Duration, policy httpclient.RetryPolicy,
	creds Credentials, algo signing.Algorithm, recorder httpclient.MetricsRecorder) (*Stack, error) {
	picker, err := httpclient.NewBestURLPicker(baseURLs...)
	if err != nil {
		return nil, err
	}
	privatePicker, err := httpclient.NewBestURLPicker(baseURLs...)
	if err != nil {
		return nil, err
	}

	var opts []httpclient.Option
	if recorder != nil {
		opts = append(opts, httpclient.WithMetrics(recorder))
	}

	public := httpclient.New(venue, picker, minSpacing, opts...)
	private := httpclient.New(venue+"-private", privatePicker, minSpacing, opts...)

	var signer *signing.Signer
	if creds.APISecret != "" {
		signer = signing.New(creds.APISecret, algo)
	}

	return &Stack{
		Venue:     venue,
		Public:    public,
		PublicRR:  httpclient.NewRequestRetry(public, policy),
		Private:   private,
		PrivateRR: httpclient.NewRequestRetry(private, policy),
		APIKey:    creds.APIKey,
		APISecret: creds.APISecret,
		signer:    signer,
	}, nil
}

// HasCredentials reports whether this Stack was built with an API key pair,
// i.e. whether its private surface can actually sign requests.
func (s *Stack) HasCredentials() bool {
	return s.signer != nil
}

// NextTimestamp returns the next strictly increasing millisecond timestamp
// for this Stack's nonce sequence.
func (s *Stack) NextTimestamp() int64 {
	return s.nonce.Next()
}

// Sign returns the hex MAC of fkv's signing string under this Stack's
// secret, or a Capability error if no credentials were configured.
func (s *Stack) Sign(fkv *flatkv.FlatKeyValue) (string, error) {
	if s.signer == nil {
		return "", coinerr.New(coinerr.Capability, s.Venue+": no API secret configured for signing")
	}
	return s.signer.Sign(fkv.ToSigningString()), nil
}

// GetJSON issues a signed-or-unsigned GET against path with query appended
// as a "?"-prefixed query string, decoding each retry attempt's body into T
// and applying accept to decide whether the venue's response should be
// retried (spec.md §4.8).
func GetJSON[T any](ctx context.Context, rr *httpclient.RequestRetry, path string, query *flatkv.FlatKeyValue,
	headers map[string]string, accept func(T) httpclient.ResponseStatus) (T, error) {
	full := path
	if query != nil {
		if qs := query.String(); qs != "" {
			full += "?" + qs
		}
	}
	return httpclient.Query(ctx, rr, http.MethodGet, full, nil, headers, nil, accept)
}

// PostSigned issues a signed POST of fkv's flattened form against path,
// attaching the MAC and API key in headers (the venue-conventional
// placement varies; callers pass the header names they need filled).
func PostSigned[T any](ctx context.Context, s *Stack, rr *httpclient.RequestRetry, path string, fkv *flatkv.FlatKeyValue,
	apiKeyHeader, macHeader string, accept func(T) httpclient.ResponseStatus) (T, error) {
	var zero T
	mac, err := s.Sign(fkv)
	if err != nil {
		return zero, err
	}
	headers := map[string]string{
		"Content-Type": "application/x-www-form-urlencoded",
		apiKeyHeader:   s.APIKey,
		macHeader:      mac,
	}
	body := []byte(fkv.String())
	return httpclient.Query(ctx, rr, http.MethodPost, path, body, headers, nil, accept)
}
