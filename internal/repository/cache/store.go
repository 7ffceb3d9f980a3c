// Package cache holds the in-process prefix store: one entry per sieve
// domain, created on first use and evicted by TTL or capacity policy.
package cache

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sievelab/sieved/domain"
)

// Entry is the cached state of one sieve domain. The published prefix is
// read through an atomic pointer so concurrent readers never wait on a
// writer; mutation is serialized by the extension lock.
type Entry struct {
	mu       sync.Mutex
	prefix   atomic.Pointer[domain.Prefix]
	lastUsed atomic.Int64 // UnixNano of last access
}

// Lock acquires the entry's extension lock. At most one extension runs
// per entry; callers must re-check the published bound after acquiring.
func (e *Entry) Lock() { e.mu.Lock() }

// Unlock releases the extension lock.
func (e *Entry) Unlock() { e.mu.Unlock() }

// Prefix returns the currently published prefix snapshot.
func (e *Entry) Prefix() domain.Prefix {
	if p := e.prefix.Load(); p != nil {
		return *p
	}
	return domain.Prefix{}
}

// Publish installs a fully computed prefix. Never called with partial
// results; a failed extension leaves the previous prefix in place.
func (e *Entry) Publish(p domain.Prefix) {
	e.prefix.Store(&p)
}

// Touch records an access for the TTL and LRU policies.
func (e *Entry) Touch() {
	e.lastUsed.Store(time.Now().UnixNano())
}

// LastUsed reports the most recent access time.
func (e *Entry) LastUsed() time.Time {
	return time.Unix(0, e.lastUsed.Load())
}

// Store maps domain keys to their entries.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{entries: make(map[string]*Entry)}
}

// GetOrCreate returns the entry for key, creating it on first access.
// The second result reports whether the entry was just created.
func (s *Store) GetOrCreate(key string) (*Entry, bool) {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	if ok {
		return e, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// Another goroutine may have created it while we upgraded the lock.
	if e, ok := s.entries[key]; ok {
		return e, false
	}
	e = &Entry{}
	e.Touch()
	s.entries[key] = e
	return e, true
}

// Get returns the entry for key if present.
func (s *Store) Get(key string) (*Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	return e, ok
}

// Delete removes the entry for key.
func (s *Store) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
}

// Len reports the number of live entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Snapshot returns a stable view of the current entries.
func (s *Store) Snapshot() map[string]*Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]*Entry, len(s.entries))
	for k, e := range s.entries {
		out[k] = e
	}
	return out
}

// EvictExpired removes entries idle longer than ttl, then enforces the
// entry-count and byte ceilings by evicting in least-recently-used order.
// Whole entries only; a victim's next access recomputes from scratch.
// Returns the evicted keys.
func (s *Store) EvictExpired(ttl time.Duration, maxEntries int, maxBytes uint64) []string {
	type aged struct {
		key      string
		lastUsed time.Time
		size     uint64
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var victims []string
	now := time.Now()

	if ttl > 0 {
		for k, e := range s.entries {
			if now.Sub(e.LastUsed()) > ttl {
				victims = append(victims, k)
				delete(s.entries, k)
			}
		}
	}

	var total uint64
	survivors := make([]aged, 0, len(s.entries))
	for k, e := range s.entries {
		size := e.Prefix().SizeBytes()
		total += size
		survivors = append(survivors, aged{key: k, lastUsed: e.LastUsed(), size: size})
	}
	sort.Slice(survivors, func(i, j int) bool {
		return survivors[i].lastUsed.Before(survivors[j].lastUsed)
	})

	for _, v := range survivors {
		overEntries := maxEntries > 0 && len(s.entries) > maxEntries
		overBytes := maxBytes > 0 && total > maxBytes
		if !overEntries && !overBytes {
			break
		}
		victims = append(victims, v.key)
		delete(s.entries, v.key)
		total -= v.size
	}

	return victims
}
