package gcs

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/oauth2"

	"github.com/arbiter-go/storage/errs"
	"github.com/arbiter-go/storage/transport"
)

const (
	tokenEndpoint = "https://oauth2.googleapis.com/token"
	scope         = "https://www.googleapis.com/auth/devstorage.read_write"
	// refreshSkewSeconds is the margin maybeRefresh uses against expiry, per
	// spec.md section 3 Invariants.
	refreshSkewSeconds = 120
)

// serviceAccountKey is the subset of a Google service-account JSON file
// auth.go needs.
type serviceAccountKey struct {
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
	TokenURI    string `json:"token_uri"`
}

// Auth holds the parsed service-account key and the cached bearer token.
// maybeRefresh is guarded by mu so concurrent callers see either the
// pre-refresh or post-refresh token, never a torn value. The cache is kept
// in golang.org/x/oauth2's own Token shape rather than a bare string so
// callers that want the standard struct (Token) don't need a second
// representation.
type Auth struct {
	mu         sync.Mutex
	email      string
	privateKey *rsa.PrivateKey
	tokenURI   string

	cached oauth2.Token
}

// NewAuth parses a service-account JSON document (raw bytes — the registry
// resolves whether the Config.GS value is a path or an inline object
// before calling this).
func NewAuth(keyJSON []byte) (*Auth, error) {
	var key serviceAccountKey
	if err := json.Unmarshal(keyJSON, &key); err != nil {
		return nil, errs.Wrap(errs.ConfigError, "gcs.NewAuth", "", err)
	}
	privateKey, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(key.PrivateKey))
	if err != nil {
		return nil, errs.Wrap(errs.CryptoError, "gcs.NewAuth", "", err)
	}
	uri := key.TokenURI
	if uri == "" {
		uri = tokenEndpoint
	}
	return &Auth{email: key.ClientEmail, privateKey: privateKey, tokenURI: uri}, nil
}

// assertion builds and RS256-signs the JWT-bearer claim set per spec.md
// section 4.7 steps 1-2: header {alg:RS256,typ:JWT}, claims
// {iss,scope,aud,iat,exp=iat+3600}.
func (a *Auth) assertion(now time.Time) (string, error) {
	claims := jwt.MapClaims{
		"iss":   a.email,
		"scope": scope,
		"aud":   a.tokenURI,
		"iat":   now.Unix(),
		"exp":   now.Add(time.Hour).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signed, err := token.SignedString(a.privateKey)
	if err != nil {
		return "", errs.Wrap(errs.CryptoError, "gcs.assertion", "", err)
	}
	return signed, nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// maybeRefresh exchanges the JWT assertion for a bearer token via
// tokenExec (the transport-backed executor gcs.Driver supplies) when the
// cached token is within refreshSkewSeconds of expiry.
func (a *Auth) maybeRefresh(ctx context.Context, now time.Time, tokenExec func(ctx context.Context, form string) ([]byte, error)) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.cached.AccessToken != "" && a.cached.Expiry.Sub(now) > refreshSkewSeconds*time.Second {
		return a.cached.AccessToken, nil
	}

	assertion, err := a.assertion(now)
	if err != nil {
		return "", err
	}
	form := url.Values{
		"grant_type": {"urn:ietf:params:oauth:grant-type:jwt-bearer"},
		"assertion":  {assertion},
	}.Encode()

	body, err := tokenExec(ctx, form)
	if err != nil {
		return "", err
	}

	var resp tokenResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", errs.Wrap(errs.BackendError, "gcs.maybeRefresh", "", err)
	}

	a.cached = oauth2.Token{
		AccessToken: resp.AccessToken,
		Expiry:      now.Add(time.Duration(resp.ExpiresIn) * time.Second),
		TokenType:   "Bearer",
	}
	return a.cached.AccessToken, nil
}

// Token returns a copy of the cached token in golang.org/x/oauth2's shape,
// for callers that want the standard Token struct rather than a bare
// access-token string.
func (a *Auth) Token() *oauth2.Token {
	a.mu.Lock()
	defer a.mu.Unlock()
	tok := a.cached
	return &tok
}

// doTokenRequest is the default tokenExec implementation, executed over
// the shared transport pool rather than oauth2's own HTTP client.
func doTokenRequest(ctx context.Context, pool *transport.Pool, form string) ([]byte, error) {
	borrow, err := pool.Acquire(ctx)
	if err != nil {
		return nil, errs.Wrap(errs.NetworkError, "gcs.doTokenRequest", "", err)
	}
	defer borrow.Release()

	resp, err := borrow.Handle.Post(ctx, tokenEndpoint, map[string]string{
		"Content-Type": "application/x-www-form-urlencoded",
	}, nil, []byte(form))
	if err != nil {
		return nil, errs.Wrap(errs.NetworkError, "gcs.doTokenRequest", "", err)
	}
	if !resp.OK() {
		return nil, errs.New(errs.PermissionDenied, "gcs.doTokenRequest", strings.TrimSpace(string(resp.Body)))
	}
	return resp.Body, nil
}
