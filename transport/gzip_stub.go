//go:build !gzip

package transport

import "github.com/arbiter-go/storage/errs"

// maybeDecompress is the default, gzip-disabled build: a response declaring
// Content-Encoding: gzip is refused rather than silently returned as raw
// (compressed) bytes. Build with -tags gzip to enable transparent decoding.
func maybeDecompress(header string, body []byte) ([]byte, error) {
	if header == "gzip" {
		return nil, errs.New(errs.BackendError, "decompress", "")
	}
	return body, nil
}
