package azure

import (
	"encoding/base64"
	"testing"
	"time"
)

func TestParseResource(t *testing.T) {
	cases := []struct {
		path           string
		container, obj string
	}{
		{"container/a/b.bin", "container", "a/b.bin"},
		{"container-only", "container-only", ""},
	}
	for _, c := range cases {
		got := ParseResource(c.path)
		if got.Container != c.container || got.Object != c.obj {
			t.Errorf("ParseResource(%q) = %+v", c.path, got)
		}
	}
}

func TestSignRequestSharedKeyDeterministic(t *testing.T) {
	creds := Credentials{Account: "myaccount", Key: "ZmFrZWtleQ=="}
	now := time.Date(2020, 6, 1, 12, 0, 0, 0, time.UTC)
	res := Resource{Container: "mycontainer", Object: "blob.txt"}

	h1 := map[string]string{}
	h2 := map[string]string{}
	signRequest("GET", res, nil, h1, 0, creds, now)
	signRequest("GET", res, nil, h2, 0, creds, now)

	if h1["Authorization"] == "" {
		t.Fatal("missing Authorization")
	}
	if h1["Authorization"] != h2["Authorization"] {
		t.Errorf("signature not stable: %q vs %q", h1["Authorization"], h2["Authorization"])
	}
	if h1["x-ms-version"] != apiVersion {
		t.Errorf("x-ms-version = %q", h1["x-ms-version"])
	}
}

func TestSignRequestSASModeSkipsAuthorization(t *testing.T) {
	creds := Credentials{Account: "myaccount", SAS: "sv=2019-12-12&sig=abc"}
	headers := map[string]string{}
	signRequest("GET", Resource{Container: "c"}, nil, headers, 0, creds, time.Now())

	if _, ok := headers["Authorization"]; ok {
		t.Error("SAS mode must not set Authorization")
	}
	if headers["x-ms-date"] == "" {
		t.Error("missing x-ms-date even in SAS mode")
	}
}

func TestBuildStringToSignEmptyContentLength(t *testing.T) {
	headers := map[string]string{}
	s := buildStringToSign("PUT", headers, 0, "", "/acct/container")
	lines := []byte(s)
	_ = lines
	// Content-Length is the 4th field; with bodyLen=0 it must render empty
	// rather than "0".
	fields := splitLines(s)
	if fields[3] != "" {
		t.Errorf("Content-Length field = %q, want empty", fields[3])
	}
}

// TestBase64RFC4648Vectors pins the key-decode/signature-encode step
// signRequest relies on (base64.StdEncoding) against the published RFC-4648
// test vectors.
func TestBase64RFC4648Vectors(t *testing.T) {
	cases := []struct{ plain, encoded string }{
		{"", ""},
		{"f", "Zg=="},
		{"fo", "Zm8="},
		{"foo", "Zm9v"},
		{"foob", "Zm9vYg=="},
		{"fooba", "Zm9vYmE="},
		{"foobar", "Zm9vYmFy"},
	}
	for _, c := range cases {
		if got := base64.StdEncoding.EncodeToString([]byte(c.plain)); got != c.encoded {
			t.Errorf("EncodeToString(%q) = %q, want %q", c.plain, got, c.encoded)
		}
		decoded, err := base64.StdEncoding.DecodeString(c.encoded)
		if err != nil {
			t.Fatalf("DecodeString(%q): %v", c.encoded, err)
		}
		if string(decoded) != c.plain {
			t.Errorf("DecodeString(%q) = %q, want %q", c.encoded, decoded, c.plain)
		}
	}
}

// TestBase64RoundTrip covers the general round-trip property for arbitrary
// byte strings, including non-UTF8 bytes.
func TestBase64RoundTrip(t *testing.T) {
	cases := [][]byte{
		{},
		{0x00, 0x01, 0xff, 0xfe},
		[]byte("the quick brown fox"),
	}
	for _, c := range cases {
		encoded := base64.StdEncoding.EncodeToString(c)
		decoded, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			t.Fatalf("DecodeString: %v", err)
		}
		if string(decoded) != string(c) {
			t.Errorf("round trip mismatch for %v", c)
		}
	}
}

func splitLines(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	out = append(out, s[start:])
	return out
}
