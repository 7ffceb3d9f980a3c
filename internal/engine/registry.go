package engine

import (
	"sort"

	"github.com/sievelab/sieved/domain"
)

// Registry maps domain keys to their engines. It is built once at startup
// from configuration and read-only afterwards.
type Registry struct {
	engines map[string]domain.SieveEngine
}

var _ domain.EngineRegistry = (*Registry)(nil)

// NewRegistry builds engines for every configured filter. The primes
// filter is always present even when the configuration names none.
func NewRegistry(filters map[string]domain.FilterSpec) (*Registry, error) {
	engines := make(map[string]domain.SieveEngine, len(filters)+1)
	for name, spec := range filters {
		e, err := New(spec)
		if err != nil {
			return nil, err
		}
		engines[name] = e
	}
	if _, ok := engines[domain.FilterPrimes]; !ok {
		engines[domain.FilterPrimes] = primeSieve{}
	}
	return &Registry{engines: engines}, nil
}

// Get returns the engine for a domain key.
func (r *Registry) Get(name string) (domain.SieveEngine, bool) {
	e, ok := r.engines[name]
	return e, ok
}

// Domains lists the configured filter domains in stable order.
func (r *Registry) Domains() []domain.FilterDomain {
	out := make([]domain.FilterDomain, 0, len(r.engines))
	for name, e := range r.engines {
		spec := e.Filter()
		out = append(out, domain.FilterDomain{Name: name, Kind: spec.Kind, Base: spec.Base})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
