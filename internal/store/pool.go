package store

import (
	"context"
	"fmt"
	"time"

	"github.com/skypath/gis/internal/apierr"
	"github.com/skypath/gis/pkg/config"
)

// Pool bounds concurrent logical acquisitions against the backend,
// independent of database/sql's own physical connection pool. Waiters
// queue on a buffered channel, which the Go runtime wakes in the order
// they parked (first acquired, first served), and a deadline turns a
// stuck queue into a StoreUnavailable signal rather than a hang.
type Pool struct {
	slots   chan struct{}
	timeout time.Duration
}

// NewPool builds a Pool from the configured bounds. MaxConns sizes the
// slot channel; AcquireTimeoutMS bounds how long a caller waits before
// acquisition is treated as backend overload.
func NewPool(cfg config.PoolConfig) *Pool {
	max := cfg.MaxConns
	if max <= 0 {
		max = 1
	}
	return &Pool{
		slots:   make(chan struct{}, max),
		timeout: time.Duration(cfg.AcquireTimeoutMS) * time.Millisecond,
	}
}

// Acquire reserves a slot, blocking FIFO until one frees, the pool's
// own acquire timeout elapses, or ctx is cancelled. A timed-out
// acquisition returns apierr.StoreUnavailable so callers can retry.
func (p *Pool) Acquire(ctx context.Context) (release func(), err error) {
	deadlineCtx := ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		deadlineCtx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	select {
	case p.slots <- struct{}{}:
		return func() { <-p.slots }, nil
	case <-deadlineCtx.Done():
		return nil, fmt.Errorf("%w: pool acquisition timed out", apierr.StoreUnavailable)
	}
}
