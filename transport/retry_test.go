package transport

import (
	"context"
	"testing"
)

func TestRetryAttemptCount(t *testing.T) {
	cases := []struct {
		name        string
		fail503s    int
		retry       int
		wantOK      bool
		wantAttempt int
	}{
		{"enough retries", 3, 3, true, 4},
		{"exact boundary", 2, 2, true, 3},
		{"insufficient retries", 3, 1, false, 2},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			attempts := 0
			f := func() (*Response, error) {
				attempts++
				if attempts <= c.fail503s {
					return &Response{StatusCode: 503}, nil
				}
				return &Response{StatusCode: 200}, nil
			}
			resp, err := Exec(context.Background(), c.retry, f)
			if err != nil {
				t.Fatalf("Exec returned error: %v", err)
			}
			if resp.OK() != c.wantOK {
				t.Errorf("ok = %v, want %v", resp.OK(), c.wantOK)
			}
			if attempts != c.wantAttempt {
				t.Errorf("attempts = %d, want %d", attempts, c.wantAttempt)
			}
		})
	}
}
