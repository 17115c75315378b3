package transport

import "net/http"

// Response is an immutable view of a completed HTTP round trip: status
// code, collected body bytes, and response headers.
type Response struct {
	StatusCode int
	Body       []byte
	Header     http.Header
}

// OK reports whether the response is a 2xx.
func (r *Response) OK() bool { return r.StatusCode >= 200 && r.StatusCode < 300 }

// ClientError reports whether the response is a 4xx.
func (r *Response) ClientError() bool { return r.StatusCode >= 400 && r.StatusCode < 500 }

// ServerError reports whether the response is a 5xx. Only server errors
// (and synthetic 500s standing in for transport failures) are retried.
func (r *Response) ServerError() bool { return r.StatusCode >= 500 && r.StatusCode < 600 }

// synthetic500 builds a Response standing in for a network-layer failure,
// so that the retry policy can treat transport errors and real 5xx
// responses identically.
func synthetic500(err error) *Response {
	return &Response{StatusCode: 500, Body: []byte(err.Error())}
}
