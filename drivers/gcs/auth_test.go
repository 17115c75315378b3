package gcs

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"testing"
	"time"
)

func testServiceAccountJSON(t *testing.T) []byte {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	der := x509.MarshalPKCS1PrivateKey(key)
	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: der})

	doc, err := json.Marshal(map[string]string{
		"client_email": "test@example.iam.gserviceaccount.com",
		"private_key":  string(pemBytes),
		"token_uri":    tokenEndpoint,
	})
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

func TestAssertionIsSignedJWT(t *testing.T) {
	auth, err := NewAuth(testServiceAccountJSON(t))
	if err != nil {
		t.Fatal(err)
	}
	signed, err := auth.assertion(time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatal(err)
	}
	if signed == "" {
		t.Fatal("empty assertion")
	}
	parts := 0
	for _, c := range signed {
		if c == '.' {
			parts++
		}
	}
	if parts != 2 {
		t.Errorf("expected a 3-segment JWT, got %d separators", parts)
	}
}

func TestMaybeRefreshCachesUntilSkew(t *testing.T) {
	auth, err := NewAuth(testServiceAccountJSON(t))
	if err != nil {
		t.Fatal(err)
	}
	now := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)

	calls := 0
	exec := func(ctx context.Context, form string) ([]byte, error) {
		calls++
		return []byte(`{"access_token":"tok1","expires_in":3600}`), nil
	}

	tok, err := auth.maybeRefresh(context.Background(), now, exec)
	if err != nil {
		t.Fatal(err)
	}
	if tok != "tok1" {
		t.Errorf("token = %q", tok)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}

	// Well within the skew window: no refresh.
	tok2, err := auth.maybeRefresh(context.Background(), now.Add(time.Minute), exec)
	if err != nil {
		t.Fatal(err)
	}
	if tok2 != "tok1" || calls != 1 {
		t.Errorf("expected cached token, got tok=%q calls=%d", tok2, calls)
	}

	// Past expiry-120s: refresh triggers again.
	_, err = auth.maybeRefresh(context.Background(), now.Add(3500*time.Second), exec)
	if err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2 after skew window passed", calls)
	}
}

func TestAuthTokenReflectsCache(t *testing.T) {
	auth, err := NewAuth(testServiceAccountJSON(t))
	if err != nil {
		t.Fatal(err)
	}
	now := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	exec := func(ctx context.Context, form string) ([]byte, error) {
		return []byte(`{"access_token":"tok1","expires_in":3600}`), nil
	}

	if _, err := auth.maybeRefresh(context.Background(), now, exec); err != nil {
		t.Fatal(err)
	}

	tok := auth.Token()
	if tok.AccessToken != "tok1" {
		t.Errorf("AccessToken = %q, want tok1", tok.AccessToken)
	}
	if !tok.Expiry.Equal(now.Add(3600 * time.Second)) {
		t.Errorf("Expiry = %v, want %v", tok.Expiry, now.Add(3600*time.Second))
	}
	if tok.TokenType != "Bearer" {
		t.Errorf("TokenType = %q, want Bearer", tok.TokenType)
	}
}
