package transport

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// newBackOff builds the exponential backoff sequence spec.md section 4.3
// requires: sleep 2^tries * 500ms between attempts, no jitter.
func newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0 // bounded by WithMaxRetries, not wall-clock
	b.Reset()
	return b
}

// Exec runs f, retrying while the result is a ServerError, for up to retry
// additional attempts beyond the first (retry+1 attempts total when every
// attempt fails). Any attempt that returns a non-nil error is treated as a
// permanent failure: it is not retried and Exec returns that error.
// Handle's methods return an error only when the request cannot be built
// or a gzip body cannot be decoded; network-layer failures come back as a
// synthetic 500 response with a nil error and are retried.
func Exec(ctx context.Context, retry int, f func() (*Response, error)) (*Response, error) {
	if retry < 0 {
		retry = 0
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(newBackOff(), uint64(retry)), ctx)

	var last *Response
	err := backoff.Retry(func() error {
		resp, err := f()
		if err != nil {
			return backoff.Permanent(err)
		}
		last = resp
		if resp.ServerError() {
			return errRetryable
		}
		return nil
	}, policy)

	if err != nil && err != errRetryable {
		return last, err
	}
	return last, nil
}

// errRetryable is a sentinel distinguishing "retry me" from a permanent
// failure; it is never surfaced to callers of Exec.
var errRetryable = retryableError{}

type retryableError struct{}

func (retryableError) Error() string { return "server error, retrying" }
