package transport

import (
	"context"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

func TestPoolFairness(t *testing.T) {
	const delay = 50 * time.Millisecond

	pool, err := NewPool(2, 0, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}

	const callers = 4
	start := time.Now()
	var wg sync.WaitGroup
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func() {
			defer wg.Done()
			b, err := pool.Acquire(context.Background())
			if err != nil {
				t.Error(err)
				return
			}
			time.Sleep(delay)
			b.Release()
		}()
	}
	wg.Wait()

	elapsed := time.Since(start)
	want := time.Duration(callers/2) * delay
	if elapsed < want {
		t.Errorf("elapsed %v shorter than expected minimum %v", elapsed, want)
	}
	if elapsed > want*3 {
		t.Errorf("elapsed %v much larger than expected %v", elapsed, want)
	}
}

func TestHandleGet(t *testing.T) {
	srv := httptest.NewServer(okHandler("hello"))
	defer srv.Close()

	pool, err := NewPool(1, 0, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	b, err := pool.Acquire(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer b.Release()

	resp, err := b.Handle.Get(context.Background(), srv.URL, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !resp.OK() {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if string(resp.Body) != "hello" {
		t.Errorf("body = %q", resp.Body)
	}
}
