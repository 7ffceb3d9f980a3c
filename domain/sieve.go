package domain

import (
	"context"
	"sort"
)

// Range is an inclusive interval of the integer line requested by a caller.
type Range struct {
	Lower uint64 // Inclusive lower bound
	Upper uint64 // Inclusive upper bound
}

// Prefix is the largest contiguous computed result for a sieve domain,
// covering [0, Bound]. A Prefix is immutable once published: extensions
// produce a new Prefix rather than mutating Values in place, so concurrent
// readers can hold a snapshot without locking.
type Prefix struct {
	Bound  uint64   // Highest integer the sieve has covered
	Values []uint64 // Survivors in ascending order
}

// Slice returns the survivors of p that fall inside r. Values is sorted,
// so both edges are found by binary search. The returned slice aliases
// p.Values; callers must treat it as read-only.
func (p Prefix) Slice(r Range) []uint64 {
	lo := sort.Search(len(p.Values), func(i int) bool { return p.Values[i] >= r.Lower })
	hi := sort.Search(len(p.Values), func(i int) bool { return p.Values[i] > r.Upper })
	return p.Values[lo:hi]
}

// SizeBytes approximates the memory held by the prefix, used for the
// cache byte ceiling.
func (p Prefix) SizeBytes() uint64 {
	return uint64(len(p.Values)) * 8
}

// RangeResult is what a sieve query returns: the survivors inside the
// requested range plus the bounds they were sliced with.
type RangeResult struct {
	Domain string
	Lower  uint64
	Upper  uint64
	Values []uint64
}

// Filter kinds supported by the engine.
const (
	FilterPrimes  = "primes"
	FilterCoprime = "coprime"
)

// FilterSpec describes the elimination predicate for one sieve domain.
// Kind selects the algorithm; Base is only meaningful for FilterCoprime,
// where survivors are the integers not divisible by any base modulus.
type FilterSpec struct {
	Kind string   `yaml:"kind"`
	Base []uint64 `yaml:"base,omitempty"`
}

// SieveEngine is the pure computation contract. Extend grows prefix so it
// covers [0, bound], sieving only the increment beyond the prefix's current
// bound. A prefix already covering bound is returned unchanged.
type SieveEngine interface {
	Extend(prefix Prefix, bound uint64) (Prefix, error)
	Filter() FilterSpec
}

// EngineRegistry resolves domain keys to engines. Built once at startup,
// read-only afterwards.
type EngineRegistry interface {
	Get(name string) (SieveEngine, bool)
	Domains() []FilterDomain
}

// DomainStats describes the cached state of one sieve domain.
type DomainStats struct {
	Domain     string `json:"domain"`
	Kind       string `json:"kind"`
	Bound      uint64 `json:"bound"`
	ValueCount int    `json:"value_count"`
	SizeBytes  uint64 `json:"size_bytes"`
}

// SieveRepository coordinates the per-domain prefix cache and the engine.
type SieveRepository interface {
	// GetRange serves the survivors inside r for the given domain,
	// extending the cached prefix when r.Upper exceeds it. Extension is
	// serialized per domain; reads of an already-computed prefix do not
	// wait on writers.
	GetRange(ctx context.Context, domain string, r Range) (RangeResult, error)

	// Stats reports the cached bound and size of every live entry.
	Stats(ctx context.Context) []DomainStats

	// EvictExpired removes entries idle longer than the TTL and enforces
	// the entry-count and byte ceilings in LRU order. Returns the number
	// of entries evicted.
	EvictExpired(ctx context.Context) int
}

// SieveUsecase is the service-layer contract consumed by the REST handlers.
type SieveUsecase interface {
	Query(ctx context.Context, domain string, r Range) (RangeResult, error)
	Domains(ctx context.Context) []FilterDomain
	Stats(ctx context.Context) []DomainStats
}

// FilterDomain pairs a domain key with its filter definition.
type FilterDomain struct {
	Name string   `json:"name"`
	Kind string   `json:"kind"`
	Base []uint64 `json:"base,omitempty"`
}

// PrefixSnapshotCache persists computed prefixes across restarts. It is a
// best-effort collaborator: load misses and store failures must never fail
// a request.
type PrefixSnapshotCache interface {
	GetPrefix(ctx context.Context, domain string) (Prefix, error)
	SetPrefix(ctx context.Context, domain string, p Prefix) error
	DeletePrefix(ctx context.Context, domain string) error
}
