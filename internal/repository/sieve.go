package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/sievelab/sieved/domain"
	"github.com/sievelab/sieved/internal/metrics"
	"github.com/sievelab/sieved/internal/repository/cache"
)

// Options tunes the cache policy of the repository.
type Options struct {
	TTL        time.Duration // idle lifetime of an entry; 0 disables
	MaxEntries int           // entry-count ceiling; 0 disables
	MaxBytes   uint64        // total cached bytes ceiling; 0 disables
}

// sieveRepository 协调层，协调内存前缀缓存、快照存储和引擎
type sieveRepository struct {
	engines   domain.EngineRegistry
	store     *cache.Store
	snapshots domain.PrefixSnapshotCache // nil when persistence is disabled
	loadGroup singleflight.Group
	opts      Options
}

var _ domain.SieveRepository = (*sieveRepository)(nil)

// NewSieveRepository 创建协调层repository
func NewSieveRepository(engines domain.EngineRegistry, snapshots domain.PrefixSnapshotCache, opts Options) *sieveRepository {
	return &sieveRepository{
		engines:   engines,
		store:     cache.NewStore(),
		snapshots: snapshots,
		opts:      opts,
	}
}

// GetRange serves survivors inside r for the given domain. Fast path:
// the published prefix already covers r.Upper and is sliced without any
// locking. Slow path: take the per-entry extension lock, re-check the
// bound (another caller may have extended it while we waited), run the
// engine for the delta, publish atomically.
func (s *sieveRepository) GetRange(ctx context.Context, domainKey string, r domain.Range) (domain.RangeResult, error) {
	eng, ok := s.engines.Get(domainKey)
	if !ok {
		return domain.RangeResult{}, domain.ErrUnknownDomain
	}

	entry, created := s.store.GetOrCreate(domainKey)
	if created {
		s.warmStart(ctx, domainKey, entry)
	}
	entry.Touch()

	if p := entry.Prefix(); p.Bound >= r.Upper {
		metrics.CacheHits.WithLabelValues(domainKey).Inc()
		return sliceResult(domainKey, p, r), nil
	}

	entry.Lock()
	defer entry.Unlock()

	// 重新检查：等锁期间其他调用者可能已经扩展过了
	p := entry.Prefix()
	if p.Bound >= r.Upper {
		return sliceResult(domainKey, p, r), nil
	}

	metrics.CacheRecomputes.WithLabelValues(domainKey).Inc()
	start := time.Now()
	extended, err := eng.Extend(p, r.Upper)
	if err != nil {
		// 缓存保持原样，全有或全无
		return domain.RangeResult{}, fmt.Errorf("extend %s to %d: %w", domainKey, r.Upper, err)
	}
	metrics.ExtendDuration.WithLabelValues(domainKey).Observe(time.Since(start).Seconds())

	entry.Publish(extended)
	entry.Touch()
	s.saveSnapshotAsync(domainKey, extended)

	return sliceResult(domainKey, extended, r), nil
}

// warmStart tries to seed a freshly created entry from the snapshot
// store. singleflight collapses concurrent first accesses so the load
// happens once; failures are logged and treated as an empty cache.
func (s *sieveRepository) warmStart(ctx context.Context, domainKey string, entry *cache.Entry) {
	if s.snapshots == nil {
		return
	}

	v, err, _ := s.loadGroup.Do(domainKey, func() (any, error) {
		return s.snapshots.GetPrefix(ctx, domainKey)
	})
	if err != nil {
		if !errors.Is(err, domain.ErrCacheMiss) {
			logrus.Warnf("snapshot load for %s failed: %v", domainKey, err)
		}
		return
	}

	loaded := v.(domain.Prefix)
	entry.Lock()
	defer entry.Unlock()
	if entry.Prefix().Bound < loaded.Bound {
		entry.Publish(loaded)
		metrics.SnapshotLoads.Inc()
	}
}

func (s *sieveRepository) saveSnapshotAsync(domainKey string, p domain.Prefix) {
	if s.snapshots == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.snapshots.SetPrefix(ctx, domainKey, p); err != nil {
			logrus.Warnf("failed to save snapshot for %s: %v", domainKey, err)
		}
	}()
}

// Stats reports the cached state of every live entry.
func (s *sieveRepository) Stats(ctx context.Context) []domain.DomainStats {
	entries := s.store.Snapshot()
	out := make([]domain.DomainStats, 0, len(entries))
	for key, entry := range entries {
		eng, ok := s.engines.Get(key)
		if !ok {
			continue
		}
		p := entry.Prefix()
		out = append(out, domain.DomainStats{
			Domain:     key,
			Kind:       eng.Filter().Kind,
			Bound:      p.Bound,
			ValueCount: len(p.Values),
			SizeBytes:  p.SizeBytes(),
		})
	}
	return out
}

// EvictExpired applies the TTL and capacity policy. Evicted domains also
// lose their snapshot: an entry the policy aged out must recompute from
// scratch on next access, not resurrect through the snapshot store.
func (s *sieveRepository) EvictExpired(ctx context.Context) int {
	victims := s.store.EvictExpired(s.opts.TTL, s.opts.MaxEntries, s.opts.MaxBytes)
	for _, key := range victims {
		metrics.CacheEvictions.Inc()
		logrus.Infof("evicted sieve cache entry %s", key)
		if s.snapshots != nil {
			if err := s.snapshots.DeletePrefix(ctx, key); err != nil {
				logrus.Warnf("failed to drop snapshot for %s: %v", key, err)
			}
		}
	}
	return len(victims)
}

func sliceResult(domainKey string, p domain.Prefix, r domain.Range) domain.RangeResult {
	return domain.RangeResult{
		Domain: domainKey,
		Lower:  r.Lower,
		Upper:  r.Upper,
		Values: p.Slice(r),
	}
}
