package s3

import (
	"testing"
	"time"
)

func TestParseResource(t *testing.T) {
	cases := []struct {
		path       string
		bucket, ob string
	}{
		{"my-bucket/a/b/c.bin", "my-bucket", "a/b/c.bin"},
		{"bucket-only", "bucket-only", ""},
		{"/leading-slash/obj", "leading-slash", "obj"},
	}
	for _, c := range cases {
		got := ParseResource(c.path)
		if got.Bucket != c.bucket || got.Object != c.ob {
			t.Errorf("ParseResource(%q) = %+v, want {%q %q}", c.path, got, c.bucket, c.ob)
		}
	}
}

func TestSignRequestDeterministic(t *testing.T) {
	creds := Credentials{AccessKeyID: "AKIDEXAMPLE", SecretAccessKey: "wJalrXUtnFEMI/K7MDENG/bPxRfiCYEXAMPLEKEY"}
	now := time.Date(2015, 8, 30, 12, 36, 0, 0, time.UTC)

	headers := map[string]string{"host": "examplebucket.s3.amazonaws.com"}
	signRequest("GET", "/test.txt", nil, headers, nil, "us-east-1", now, creds)

	if headers["x-amz-date"] != "20150830T123600Z" {
		t.Errorf("x-amz-date = %q", headers["x-amz-date"])
	}
	if headers["x-amz-content-sha256"] == "" {
		t.Error("missing x-amz-content-sha256")
	}
	auth := headers["Authorization"]
	if auth == "" {
		t.Fatal("missing Authorization header")
	}
	wantPrefix := "AWS4-HMAC-SHA256 Credential=AKIDEXAMPLE/20150830/us-east-1/s3/aws4_request"
	if len(auth) < len(wantPrefix) || auth[:len(wantPrefix)] != wantPrefix {
		t.Errorf("Authorization = %q, want prefix %q", auth, wantPrefix)
	}
}

func TestSignRequestStableAcrossCalls(t *testing.T) {
	creds := Credentials{AccessKeyID: "A", SecretAccessKey: "S"}
	now := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

	h1 := map[string]string{"host": "b.s3.amazonaws.com"}
	h2 := map[string]string{"host": "b.s3.amazonaws.com"}
	signRequest("PUT", "/b/obj", map[string]string{"prefix": "obj"}, h1, []byte("data"), "us-west-2", now, creds)
	signRequest("PUT", "/b/obj", map[string]string{"prefix": "obj"}, h2, []byte("data"), "us-west-2", now, creds)

	if h1["Authorization"] != h2["Authorization"] {
		t.Errorf("signature not stable: %q vs %q", h1["Authorization"], h2["Authorization"])
	}
}

func TestCanonicalizeQuerySorted(t *testing.T) {
	q := map[string]string{"marker": "b", "prefix": "a"}
	got := canonicalizeQuery(q)
	want := "marker=b&prefix=a"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
