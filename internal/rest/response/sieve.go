package response

import (
	"github.com/sievelab/sieved/domain"
)

type SieveRange struct {
	Domain string   `json:"domain"`
	Lower  uint64   `json:"lower"`
	Upper  uint64   `json:"upper"`
	Count  int      `json:"count"`
	Values []uint64 `json:"values"`
}

// FromDomain: Domain -> Response
func NewSieveRangeFromDomain(r *domain.RangeResult) SieveRange {
	values := r.Values
	if values == nil {
		values = []uint64{}
	}
	return SieveRange{
		Domain: r.Domain,
		Lower:  r.Lower,
		Upper:  r.Upper,
		Count:  len(values),
		Values: values,
	}
}

type FilterDomain struct {
	Name string   `json:"name"`
	Kind string   `json:"kind"`
	Base []uint64 `json:"base,omitempty"`
}

type DomainList struct {
	Domains []FilterDomain `json:"domains"`
	Count   int            `json:"count"`
}

func NewDomainList(ds []domain.FilterDomain) DomainList {
	out := make([]FilterDomain, len(ds))
	for i, d := range ds {
		out[i] = FilterDomain{Name: d.Name, Kind: d.Kind, Base: d.Base}
	}
	return DomainList{Domains: out, Count: len(out)}
}
