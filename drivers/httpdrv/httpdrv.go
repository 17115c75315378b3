// Package httpdrv implements the generic HTTP(S) Driver and supplies the
// Base embeddable type the cloud-provider drivers (s3, azure, gcs,
// onedrive) build their request execution path on top of.
package httpdrv

import (
	"context"
	"net/http"

	"github.com/golang/glog"

	"github.com/arbiter-go/storage/drivers"
	"github.com/arbiter-go/storage/errs"
	"github.com/arbiter-go/storage/transport"
)

// Base wires a driver to the shared transport pool and retry policy. It is
// embedded by every HTTP-derived driver (s3, azure, gcs, onedrive, and this
// package's own plain HTTP driver) rather than reimplementing the
// acquire/retry dance per backend.
type Base struct {
	Pool    *transport.Pool
	Retry   int
	profile string
}

// NewBase constructs a Base over pool with the given profile and per-call
// retry budget.
func NewBase(pool *transport.Pool, retry int, profile string) Base {
	if profile == "" {
		profile = "default"
	}
	return Base{Pool: pool, Retry: retry, profile: profile}
}

func (b Base) Profile() string { return b.profile }

// Do executes method against rawURL with the retry policy applied,
// acquiring and releasing a transport handle around the call. sign, when
// non-nil, is invoked once per attempt so a signer can stamp a fresh date
// and Authorization header on each retried attempt.
func (b Base) Do(ctx context.Context, method, rawURL string, headers, query map[string]string, body []byte, sign func(headers map[string]string)) (*transport.Response, error) {
	borrow, err := b.Pool.Acquire(ctx)
	if err != nil {
		return nil, errs.Wrap(errs.NetworkError, "httpdrv.Do", rawURL, err)
	}
	defer borrow.Release()

	return transport.Exec(ctx, b.Retry, func() (*transport.Response, error) {
		h := cloneHeaders(headers)
		if sign != nil {
			sign(h)
		}
		switch method {
		case http.MethodGet:
			return borrow.Handle.Get(ctx, rawURL, h, query)
		case http.MethodHead:
			return borrow.Handle.Head(ctx, rawURL, h, query)
		case http.MethodPut:
			return borrow.Handle.Put(ctx, rawURL, h, query, body)
		case http.MethodPost:
			return borrow.Handle.Post(ctx, rawURL, h, query, body)
		default:
			return nil, errs.New(errs.ConfigError, "httpdrv.Do", method)
		}
	})
}

func cloneHeaders(h map[string]string) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		out[k] = v
	}
	return out
}

// ParseContentLength reads and decimal-parses the Content-Length header,
// returning 0 if absent; parsing stops at the first non-digit, so a value
// with no leading digits yields 0. Shared by every HEAD-based Size
// implementation (this package's plain driver, s3, azure) so a HEAD
// response's empty body is never mistaken for its Content-Length.
func ParseContentLength(h http.Header) int64 {
	v := h.Get("Content-Length")
	var n int64
	for i := 0; i < len(v); i++ {
		if v[i] < '0' || v[i] > '9' {
			break
		}
		n = n*10 + int64(v[i]-'0')
	}
	return n
}

// StatusToKind classifies a non-2xx HTTP status into the error taxonomy.
func StatusToKind(status int) errs.Kind {
	switch {
	case status == http.StatusNotFound:
		return errs.NotFound
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return errs.PermissionDenied
	case status >= 400 && status < 500:
		return errs.ClientError
	default:
		return errs.BackendError
	}
}

// Driver is the plain HTTP(S) backend: Get/Head/Put only, no listing
// capability (a generic endpoint has no notion of a prefix to enumerate).
type Driver struct {
	Base
	scheme string
}

// New returns the generic HTTP(S) driver for scheme ("http" or "https").
func New(scheme string, pool *transport.Pool, retry int, profile string) *Driver {
	return &Driver{Base: NewBase(pool, retry, profile), scheme: scheme}
}

var (
	_ drivers.Driver      = (*Driver)(nil)
	_ drivers.RangeGetter = (*Driver)(nil)
)

func (d *Driver) Protocol() string         { return d.scheme }
func (d *Driver) IsRemote() bool           { return true }
func (d *Driver) ProfiledProtocol() string { return drivers.ProfiledProtocol(d.scheme, d.Profile()) }

func (d *Driver) Get(ctx context.Context, path string) ([]byte, error) {
	resp, err := d.Do(ctx, http.MethodGet, path, nil, nil, nil, nil)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, errs.New(StatusToKind(resp.StatusCode), "http.Get", path)
	}
	return resp.Body, nil
}

func (d *Driver) TryGet(ctx context.Context, path string) ([]byte, bool, error) {
	data, err := d.Get(ctx, path)
	if err != nil {
		if errs.KindOf(err) == errs.NotFound {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}

// GetRange fetches [offset, offset+length) of path via a Range header.
func (d *Driver) GetRange(ctx context.Context, path string, offset, length int64, headers, query map[string]string) ([]byte, error) {
	h := cloneHeaders(headers)
	h["Range"] = rangeHeader(offset, length)
	resp, err := d.Do(ctx, http.MethodGet, path, h, query, nil, nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusPartialContent && !resp.OK() {
		return nil, errs.New(StatusToKind(resp.StatusCode), "http.GetRange", path)
	}
	return resp.Body, nil
}

func rangeHeader(offset, length int64) string {
	return "bytes=" + itoa(offset) + "-" + itoa(offset+length-1)
}

func itoa(n int64) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

func (d *Driver) Put(ctx context.Context, path string, data []byte) error {
	resp, err := d.Do(ctx, http.MethodPut, path, nil, nil, data, nil)
	if err != nil {
		return err
	}
	if !resp.OK() {
		return errs.New(StatusToKind(resp.StatusCode), "http.Put", path)
	}
	return nil
}

func (d *Driver) Size(ctx context.Context, path string) (int64, error) {
	resp, err := d.Do(ctx, http.MethodHead, path, nil, nil, nil, nil)
	if err != nil {
		return 0, err
	}
	if !resp.OK() {
		return 0, errs.New(StatusToKind(resp.StatusCode), "http.Size", path)
	}
	return ParseContentLength(resp.Header), nil
}

func (d *Driver) TrySize(ctx context.Context, path string) (int64, bool, error) {
	size, err := d.Size(ctx, path)
	if err != nil {
		if errs.KindOf(err) == errs.NotFound {
			return 0, false, nil
		}
		return 0, false, err
	}
	return size, true, nil
}

func (d *Driver) Copy(ctx context.Context, src, dst string) error {
	data, err := d.Get(ctx, src)
	if err != nil {
		return err
	}
	return d.Put(ctx, dst, data)
}

// Glob is unsupported: a bare HTTP(S) endpoint has no enumerable prefix.
func (d *Driver) Glob(ctx context.Context, pattern string, verbose bool) ([]string, error) {
	if verbose {
		glog.V(2).Infof("http driver: glob not supported for %s", pattern)
	}
	return nil, errs.New(errs.UnsupportedOperation, "http.Glob", pattern)
}
