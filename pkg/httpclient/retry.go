package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/sjanel/coincenter/pkg/coinerr"
)

// ResponseStatus is the application-level verdict a RequestRetry predicate
// returns after decoding a response: ResponseOK accepts the result as-is,
// ResponseError triggers another retry attempt.
type ResponseStatus int8

const (
	ResponseOK ResponseStatus = iota
	ResponseError
)

// TooManyFailuresPolicy selects what RequestRetry.Query does once retries
// are exhausted and the predicate is still rejecting the response.
type TooManyFailuresPolicy int8

const (
	// ReturnLastOnFailure returns the last decoded value with no error.
	ReturnLastOnFailure TooManyFailuresPolicy = iota
	// FailOnFailure returns a Transport error.
	FailOnFailure
)

// RetryPolicy configures RequestRetry's exponential backoff loop.
type RetryPolicy struct {
	InitialInterval       time.Duration
	Multiplier            float64
	MaxRetries            int
	TooManyFailuresPolicy TooManyFailuresPolicy
}

// DefaultRetryPolicy mirrors the original client's defaults: 500ms initial
// delay, doubling, five retries, return the last value on exhaustion.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		InitialInterval:       500 * time.Millisecond,
		Multiplier:            2,
		MaxRetries:            5,
		TooManyFailuresPolicy: ReturnLastOnFailure,
	}
}

// RequestRetry factors the retry mechanism around a Client query: constant
// request parameters, a JSON-decoded response type, and an application
// predicate deciding whether a syntactically valid response should still be
// retried (e.g. a venue's {"code": "too many requests"} envelope).
type RequestRetry struct {
	client *Client
	policy RetryPolicy
}

// NewRequestRetry builds a RequestRetry over client using policy.
func NewRequestRetry(client *Client, policy RetryPolicy) *RequestRetry {
	return &RequestRetry{client: client, policy: policy}
}

func (r *RequestRetry) backoffFor() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.policy.InitialInterval
	b.Multiplier = r.policy.Multiplier
	b.MaxElapsedTime = 0 // bounded by MaxRetries instead of wall-clock time
	return backoff.WithMaxRetries(b, uint64(r.policy.MaxRetries))
}

// Query performs method+path, decoding each attempt's body into a fresh T
// and calling accept(result) to decide whether to retry. postDataUpdate, if
// non-nil, is called before every attempt (including the first) so callers
// can refresh a timestamp or nonce in the request before it is sent.
func Query[T any](ctx context.Context, r *RequestRetry, method, path string, body []byte, headers map[string]string,
	postDataUpdate func(attempt int) []byte, accept func(T) ResponseStatus) (T, error) {
	var result T
	var lastErr error
	attempt := 0

	op := func() error {
		reqBody := body
		if postDataUpdate != nil {
			reqBody = postDataUpdate(attempt)
		}
		attempt++
		var reader io.Reader
		if reqBody != nil {
			reader = bytes.NewReader(reqBody)
		}

		resp, err := r.client.Do(ctx, method, path, reader, headers)
		if err != nil {
			lastErr = err
			return err
		}
		raw, err := ReadAll(resp)
		if err != nil {
			lastErr = err
			return err
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			lastErr = coinerr.New(coinerr.Transport, "server error "+resp.Status)
			return lastErr
		}

		var decoded T
		if err := json.Unmarshal(raw, &decoded); err != nil {
			lastErr = coinerr.Wrap(coinerr.VenueProtocol, "decode response", err)
			return lastErr
		}

		if accept(decoded) == ResponseError {
			lastErr = coinerr.New(coinerr.VenueProtocol, "venue rejected query, retrying")
			result = decoded
			return lastErr
		}

		result = decoded
		lastErr = nil
		return nil
	}

	err := backoff.Retry(op, backoff.WithContext(r.backoffFor(), ctx))
	if err == nil {
		return result, nil
	}

	switch r.policy.TooManyFailuresPolicy {
	case FailOnFailure:
		var zero T
		return zero, coinerr.Wrap(coinerr.Transport, "too many query errors", lastErr)
	default:
		return result, nil
	}
}
