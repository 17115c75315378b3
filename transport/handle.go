package transport

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// Handle wraps one persistent client connection state, reusable across
// requests. It is exclusively owned by its current borrower; see Pool for
// the acquire/release discipline.
type Handle struct {
	// id is a random per-handle identifier; nothing in the module logs or
	// reads it, and it has no bearing on request semantics.
	id     string
	client *http.Client
}

func newHandle(opts Options) (*Handle, error) {
	tlsCfg, err := opts.tlsConfig()
	if err != nil {
		return nil, err
	}
	transport := &http.Transport{
		TLSClientConfig: tlsCfg,
		DialContext: (&net.Dialer{
			Timeout: opts.ConnectTimeout,
		}).DialContext,
	}
	client := &http.Client{
		Transport: transport,
		Timeout:   opts.LowSpeedTimeout,
	}
	if !opts.FollowRedirect {
		client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}
	return &Handle{id: uuid.NewString(), client: client}, nil
}

// buildURL appends a ?k=v&... query string, pairs in map iteration order
// (unspecified). Callers
// needing percent-encoded values (S3's canonical query, for instance) must
// pre-encode them; buildURL does not re-encode already-encoded values.
func buildURL(raw string, query map[string]string) string {
	if len(query) == 0 {
		return raw
	}
	var b strings.Builder
	b.WriteString(raw)
	if strings.Contains(raw, "?") {
		b.WriteByte('&')
	} else {
		b.WriteByte('?')
	}
	first := true
	for k, v := range query {
		if !first {
			b.WriteByte('&')
		}
		first = false
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(v)
	}
	return b.String()
}

func (h *Handle) do(ctx context.Context, method, rawURL string, headers map[string]string, query map[string]string, body []byte) (*Response, error) {
	full := buildURL(rawURL, query)
	if !strings.Contains(full, "://") {
		full = "https://" + full
	}
	if _, err := url.Parse(full); err != nil {
		return synthetic500(err), err
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, full, reader)
	if err != nil {
		return synthetic500(err), err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return synthetic500(err), nil
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return synthetic500(err), nil
	}

	decoded, err := maybeDecompress(resp.Header.Get("Content-Encoding"), raw)
	if err != nil {
		return &Response{StatusCode: 502, Body: []byte(err.Error()), Header: resp.Header}, err
	}

	header := make(http.Header, len(resp.Header))
	for k, vs := range resp.Header {
		var trimmed []string
		for _, v := range vs {
			trimmed = append(trimmed, strings.TrimSpace(v))
		}
		header[k] = trimmed
	}

	return &Response{StatusCode: resp.StatusCode, Body: decoded, Header: header}, nil
}

// Get issues a GET request.
func (h *Handle) Get(ctx context.Context, rawURL string, headers, query map[string]string) (*Response, error) {
	return h.do(ctx, http.MethodGet, rawURL, headers, query, nil)
}

// Head issues a HEAD request.
func (h *Handle) Head(ctx context.Context, rawURL string, headers, query map[string]string) (*Response, error) {
	return h.do(ctx, http.MethodHead, rawURL, headers, query, nil)
}

// Put issues a PUT request with the given body.
func (h *Handle) Put(ctx context.Context, rawURL string, headers, query map[string]string, body []byte) (*Response, error) {
	return h.do(ctx, http.MethodPut, rawURL, headers, query, body)
}

// Post issues a POST request with the given body.
func (h *Handle) Post(ctx context.Context, rawURL string, headers, query map[string]string, body []byte) (*Response, error) {
	return h.do(ctx, http.MethodPost, rawURL, headers, query, body)
}
