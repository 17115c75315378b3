package transport

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Pool owns a fixed number of reusable HTTP Handles. Acquisition blocks
// until a Handle is free. The bounded-pool discipline is expressed with a
// weighted semaphore guarding an intrusive free-list channel, per the
// Design Notes' suggestion to prefer a semaphore over a hand-rolled
// condition variable + slice.
type Pool struct {
	sem          *semaphore.Weighted
	free         chan *Handle
	DefaultRetry int
}

// NewPool pre-builds n Handles configured with opts and records
// defaultRetry as DefaultRetry. Exec does not read DefaultRetry; every
// caller passes its retry count to Exec explicitly.
func NewPool(n int, defaultRetry int, opts Options) (*Pool, error) {
	p := &Pool{
		sem:          semaphore.NewWeighted(int64(n)),
		free:         make(chan *Handle, n),
		DefaultRetry: defaultRetry,
	}
	for i := 0; i < n; i++ {
		h, err := newHandle(opts)
		if err != nil {
			return nil, err
		}
		p.free <- h
	}
	return p, nil
}

// Borrow is a scoped, single-owner lease on a Handle. Callers must call
// Release exactly once, typically via defer.
type Borrow struct {
	pool   *Pool
	Handle *Handle
}

// Acquire blocks until a Handle is free or ctx is done.
func (p *Pool) Acquire(ctx context.Context) (*Borrow, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	h := <-p.free
	return &Borrow{pool: p, Handle: h}, nil
}

// Release returns the Handle to the pool, unblocking one waiter.
func (b *Borrow) Release() {
	b.pool.free <- b.Handle
	b.pool.sem.Release(1)
}
