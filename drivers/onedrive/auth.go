// Package onedrive implements the OneDrive driver: OAuth2 refresh-token
// auth and Microsoft Graph v1.0 calls over the shared transport pool.
package onedrive

import (
	"context"
	"encoding/json"
	"net/url"
	"sync"
	"time"

	"github.com/arbiter-go/storage/errs"
	"github.com/arbiter-go/storage/transport"
)

// Credentials is the credential record spec.md section 4.8 describes:
// access/refresh tokens, client id/secret, tenant, redirect URL, and
// expiry, refreshed under mutex.
type Credentials struct {
	mu           sync.Mutex
	AccessToken  string
	RefreshToken string
	ClientID     string
	ClientSecret string
	TenantID     string
	RedirectURI  string
	Expiry       time.Time
}

type refreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// refresh POSTs a refresh_token grant to the tenant's v2.0 token endpoint
// when expiry is within 120 seconds, per spec.md section 4.8.
func (c *Credentials) refresh(ctx context.Context, now time.Time, exec func(ctx context.Context, tenant, form string) ([]byte, error)) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.AccessToken != "" && c.Expiry.Sub(now) > 120*time.Second {
		return c.AccessToken, nil
	}

	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {c.RefreshToken},
		"client_id":     {c.ClientID},
		"client_secret": {c.ClientSecret},
		"scope":         {"files.readwrite offline_access"},
	}.Encode()

	body, err := exec(ctx, c.TenantID, form)
	if err != nil {
		return "", err
	}

	var resp refreshResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", errs.Wrap(errs.BackendError, "onedrive.refresh", "", err)
	}

	c.AccessToken = resp.AccessToken
	if resp.RefreshToken != "" {
		c.RefreshToken = resp.RefreshToken
	}
	c.Expiry = now.Add(3599 * time.Second)
	return c.AccessToken, nil
}

func tokenURL(tenant string) string {
	if tenant == "" {
		tenant = "common"
	}
	return "https://login.microsoftonline.com/" + tenant + "/oauth2/v2.0/token"
}

func doRefreshRequest(ctx context.Context, pool *transport.Pool, tenant, form string) ([]byte, error) {
	borrow, err := pool.Acquire(ctx)
	if err != nil {
		return nil, errs.Wrap(errs.NetworkError, "onedrive.doRefreshRequest", "", err)
	}
	defer borrow.Release()

	resp, err := borrow.Handle.Post(ctx, tokenURL(tenant), map[string]string{
		"Content-Type": "application/x-www-form-urlencoded",
	}, nil, []byte(form))
	if err != nil {
		return nil, errs.Wrap(errs.NetworkError, "onedrive.doRefreshRequest", "", err)
	}
	if !resp.OK() {
		return nil, errs.New(errs.PermissionDenied, "onedrive.doRefreshRequest", string(resp.Body))
	}
	return resp.Body, nil
}
