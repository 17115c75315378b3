package transport

import (
	"crypto/tls"
	"crypto/x509"
	"os"
	"strconv"
	"time"
)

// Options configures a Pool's Handles. DefaultOptions supplies the defaults
// and applies environment-variable overrides; nothing in the module maps
// the registry configuration document's http section onto Options.
type Options struct {
	// LowSpeedTimeout bounds total header+body transfer time. Default 5s.
	LowSpeedTimeout time.Duration
	// ConnectTimeout bounds connection establishment. Default 2s.
	ConnectTimeout time.Duration
	// FollowRedirect, when false, makes the client stop at the first
	// redirect response instead of following it.
	FollowRedirect bool
	// VerifyPeer disables TLS certificate verification when false.
	VerifyPeer bool
	// CABundle is a PEM blob of additional trusted root certificates.
	CABundle []byte
	// CAPath/CAInfo name filesystem locations for CA material; CAInfo is a
	// single bundle file, CAPath a directory of hashed certs (directory
	// lookup is not implemented by Go's stdlib, so CAPath entries are read
	// as a single file for compatibility with simple deployments).
	CAPath string
	CAInfo string
}

// DefaultOptions returns the baseline Options, then applies the
// environment-variable overrides documented in spec.md section 6.
func DefaultOptions() Options {
	o := Options{
		LowSpeedTimeout: 5 * time.Second,
		ConnectTimeout:  2 * time.Second,
		FollowRedirect:  true,
		VerifyPeer:      true,
	}
	if v := os.Getenv("CURL_TIMEOUT"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil {
			o.LowSpeedTimeout = time.Duration(secs) * time.Second
		}
	}
	if v := os.Getenv("ARBITER_VERIFY_PEER"); v != "" {
		o.VerifyPeer = v != "0" && v != "false"
	}
	if v := os.Getenv("ARBITER_CA_PATH"); v != "" {
		o.CAPath = v
	}
	if v := os.Getenv("CURL_CA_PATH"); v != "" {
		o.CAPath = v
	}
	if v := os.Getenv("CURL_CAINFO"); v != "" {
		o.CAInfo = v
	}
	return o
}

// tlsConfig builds the *tls.Config implied by the Options.
func (o Options) tlsConfig() (*tls.Config, error) {
	cfg := &tls.Config{InsecureSkipVerify: !o.VerifyPeer}
	if len(o.CABundle) == 0 && o.CAInfo == "" && o.CAPath == "" {
		return cfg, nil
	}

	pool, err := x509.SystemCertPool()
	if err != nil || pool == nil {
		pool = x509.NewCertPool()
	}
	if len(o.CABundle) > 0 {
		pool.AppendCertsFromPEM(o.CABundle)
	}
	for _, path := range []string{o.CAInfo, o.CAPath} {
		if path == "" {
			continue
		}
		if data, err := os.ReadFile(path); err == nil {
			pool.AppendCertsFromPEM(data)
		}
	}
	cfg.RootCAs = pool
	return cfg, nil
}
