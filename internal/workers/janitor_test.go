package workers

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sievelab/sieved/domain"
)

type sweepRecorder struct {
	sweeps atomic.Int64
}

func (r *sweepRecorder) GetRange(ctx context.Context, key string, rng domain.Range) (domain.RangeResult, error) {
	return domain.RangeResult{}, nil
}

func (r *sweepRecorder) Stats(ctx context.Context) []domain.DomainStats { return nil }

func (r *sweepRecorder) EvictExpired(ctx context.Context) int {
	r.sweeps.Add(1)
	return 1
}

func TestJanitor_SweepsPeriodically(t *testing.T) {
	repo := &sweepRecorder{}
	j := NewCacheJanitor(repo, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		j.Start(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		return repo.sweeps.Load() >= 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop on context cancel")
	}
}

func TestJanitor_DisabledWithoutInterval(t *testing.T) {
	repo := &sweepRecorder{}
	j := NewCacheJanitor(repo, 0)

	done := make(chan struct{})
	go func() {
		j.Start(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("disabled janitor must return immediately")
	}
	assert.Equal(t, int64(0), repo.sweeps.Load())
}
