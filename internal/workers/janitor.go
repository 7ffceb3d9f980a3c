package workers

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sievelab/sieved/domain"
)

type cacheJanitor struct {
	repo     domain.SieveRepository
	interval time.Duration
}

var _ domain.Worker = cacheJanitor{}

// NewCacheJanitor creates the background sweeper that applies the cache
// TTL and capacity policy.
func NewCacheJanitor(repo domain.SieveRepository, interval time.Duration) *cacheJanitor {
	return &cacheJanitor{
		repo:     repo,
		interval: interval,
	}
}

func (j cacheJanitor) Start(ctx context.Context) {
	if j.interval <= 0 {
		logrus.Info("cache janitor disabled")
		return
	}

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := j.repo.EvictExpired(ctx); n > 0 {
				logrus.Infof("cache janitor evicted %d entries", n)
			}
		case <-ctx.Done():
			logrus.Info("shutting down cache janitor")
			return
		}
	}
}
