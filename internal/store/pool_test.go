package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/skypath/gis/internal/apierr"
	"github.com/skypath/gis/pkg/config"
)

func TestPoolAcquireRespectsBound(t *testing.T) {
	p := NewPool(config.PoolConfig{MaxConns: 1, AcquireTimeoutMS: 50})

	release, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("first Acquire() error = %v", err)
	}
	defer release()

	_, err = p.Acquire(context.Background())
	if !errors.Is(err, apierr.StoreUnavailable) {
		t.Errorf("second Acquire() error = %v, want StoreUnavailable", err)
	}
}

func TestPoolAcquireReleaseFreesSlot(t *testing.T) {
	p := NewPool(config.PoolConfig{MaxConns: 1, AcquireTimeoutMS: 200})

	release, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	release()

	if _, err := p.Acquire(context.Background()); err != nil {
		t.Errorf("expected slot to be free after release, got %v", err)
	}
}

func TestPoolAcquireContextCancelled(t *testing.T) {
	p := NewPool(config.PoolConfig{MaxConns: 1, AcquireTimeoutMS: 5000})

	release, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := p.Acquire(ctx); err == nil {
		t.Error("expected error once ctx is cancelled")
	}
}
