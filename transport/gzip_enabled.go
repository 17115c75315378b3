//go:build gzip

package transport

import (
	"bytes"
	"compress/gzip"
	"io"
)

// maybeDecompress transparently gunzips the body when the server declared
// Content-Encoding: gzip. Enabled by building with -tags gzip.
func maybeDecompress(header string, body []byte) ([]byte, error) {
	if header != "gzip" {
		return body, nil
	}
	zr, err := gzip.NewReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}
