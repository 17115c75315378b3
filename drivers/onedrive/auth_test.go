package onedrive

import (
	"context"
	"testing"
	"time"
)

func TestRefreshCachesUntilSkew(t *testing.T) {
	creds := &Credentials{RefreshToken: "r1", ClientID: "id", ClientSecret: "secret", TenantID: "tenant"}
	now := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)

	calls := 0
	exec := func(ctx context.Context, tenant, form string) ([]byte, error) {
		calls++
		return []byte(`{"access_token":"tokA","refresh_token":"r2","expires_in":3599}`), nil
	}

	tok, err := creds.refresh(context.Background(), now, exec)
	if err != nil {
		t.Fatal(err)
	}
	if tok != "tokA" || calls != 1 {
		t.Fatalf("tok=%q calls=%d", tok, calls)
	}
	if creds.RefreshToken != "r2" {
		t.Errorf("refresh token not rotated: %q", creds.RefreshToken)
	}

	tok2, err := creds.refresh(context.Background(), now.Add(time.Minute), exec)
	if err != nil {
		t.Fatal(err)
	}
	if tok2 != "tokA" || calls != 1 {
		t.Errorf("expected cached token, got tok=%q calls=%d", tok2, calls)
	}

	_, err = creds.refresh(context.Background(), now.Add(3500*time.Second), exec)
	if err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2 after skew window passed", calls)
	}
}

func TestTokenURLDefaultsToCommon(t *testing.T) {
	if got := tokenURL(""); got != "https://login.microsoftonline.com/common/oauth2/v2.0/token" {
		t.Errorf("got %q", got)
	}
	if got := tokenURL("mytenant"); got != "https://login.microsoftonline.com/mytenant/oauth2/v2.0/token" {
		t.Errorf("got %q", got)
	}
}
