package httpdrv

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/arbiter-go/storage/errs"
	"github.com/arbiter-go/storage/transport"
)

func testPool(t *testing.T) *transport.Pool {
	t.Helper()
	pool, err := transport.NewPool(2, 0, transport.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	return pool
}

func TestGetOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("body"))
	}))
	defer srv.Close()

	d := New("http", testPool(t), 0, "")
	data, err := d.Get(context.Background(), srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "body" {
		t.Errorf("data = %q", data)
	}
}

func TestGetNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	d := New("http", testPool(t), 0, "")
	_, err := d.Get(context.Background(), srv.URL)
	if errs.KindOf(err) != errs.NotFound {
		t.Errorf("kind = %v, want NotFound", errs.KindOf(err))
	}
}

func TestTryGetNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	d := New("http", testPool(t), 0, "")
	data, ok, err := d.TryGet(context.Background(), srv.URL)
	if err != nil || ok || data != nil {
		t.Errorf("TryGet = %v, %v, %v", data, ok, err)
	}
}

func TestGetRange(t *testing.T) {
	var gotRange string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotRange = r.Header.Get("Range")
		w.WriteHeader(http.StatusPartialContent)
		_, _ = w.Write([]byte("abc"))
	}))
	defer srv.Close()

	d := New("http", testPool(t), 0, "")
	data, err := d.GetRange(context.Background(), srv.URL, 2, 3, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "abc" {
		t.Errorf("data = %q", data)
	}
	if gotRange != "bytes=2-4" {
		t.Errorf("range header = %q", gotRange)
	}
}

func TestGlobUnsupported(t *testing.T) {
	d := New("http", testPool(t), 0, "")
	_, err := d.Glob(context.Background(), "http://x/*", false)
	if errs.KindOf(err) != errs.UnsupportedOperation {
		t.Errorf("kind = %v, want UnsupportedOperation", errs.KindOf(err))
	}
}

func TestProfiledProtocol(t *testing.T) {
	d := New("https", testPool(t), 0, "staging")
	if got := d.ProfiledProtocol(); got != "https+staging" {
		t.Errorf("got %q", got)
	}
}
