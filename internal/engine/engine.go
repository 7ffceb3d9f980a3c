// Package engine implements the sieve computation itself: pure,
// incremental elimination over the integer line. Engines are stateless;
// all accumulated work lives in the domain.Prefix passed through Extend.
package engine

import (
	"fmt"
	"sort"

	"github.com/sievelab/sieved/domain"
)

// New builds an engine for the given filter definition.
func New(spec domain.FilterSpec) (domain.SieveEngine, error) {
	switch spec.Kind {
	case domain.FilterPrimes:
		return primeSieve{}, nil
	case domain.FilterCoprime:
		if len(spec.Base) == 0 {
			return nil, fmt.Errorf("coprime filter requires at least one base modulus")
		}
		base := make([]uint64, len(spec.Base))
		copy(base, spec.Base)
		sort.Slice(base, func(i, j int) bool { return base[i] < base[j] })
		for _, b := range base {
			if b < 2 {
				return nil, fmt.Errorf("coprime base modulus must be >= 2, got %d", b)
			}
		}
		return coprimeSieve{base: base}, nil
	default:
		return nil, fmt.Errorf("unknown filter kind %q", spec.Kind)
	}
}

// primeSieve is the classic Eratosthenes elimination, extended segment by
// segment. When the target bound outruns the square of the current bound,
// the prefix is grown in intermediate steps so the base primes needed for
// each segment are always already in the prefix.
type primeSieve struct{}

func (primeSieve) Filter() domain.FilterSpec {
	return domain.FilterSpec{Kind: domain.FilterPrimes}
}

func (primeSieve) Extend(p domain.Prefix, bound uint64) (domain.Prefix, error) {
	for p.Bound < bound {
		next := bound
		if p.Bound < 2 {
			// Bootstrap segment: no base primes known yet, so stop at 3
			// where trial marking is not needed.
			if next > 3 {
				next = 3
			}
		} else if p.Bound < 1<<32 {
			if sq := p.Bound * p.Bound; sq < next {
				next = sq
			}
		}
		p = extendPrimeSegment(p, next)
	}
	return p, nil
}

// extendPrimeSegment sieves (p.Bound, next] against the base primes already
// in p.Values. Requires sqrt(next) <= p.Bound once p.Bound >= 2.
func extendPrimeSegment(p domain.Prefix, next uint64) domain.Prefix {
	lo := p.Bound + 1
	composite := make([]bool, next-p.Bound)

	for _, q := range p.Values {
		if q > next/q {
			break
		}
		start := (lo + q - 1) / q * q
		if start < q*q {
			start = q * q
		}
		for m := start; m <= next; m += q {
			composite[m-lo] = true
		}
	}

	values := p.Values
	for n := lo; n <= next; n++ {
		if n < 2 || composite[n-lo] {
			continue
		}
		values = append(values, n)
	}
	return domain.Prefix{Bound: next, Values: values}
}

// coprimeSieve eliminates multiples of a fixed, configured base set.
// Survivors are the integers in [1, bound] not divisible by any base
// modulus. Unlike primes the base never grows, so a single segment pass
// covers any increment.
type coprimeSieve struct {
	base []uint64
}

func (s coprimeSieve) Filter() domain.FilterSpec {
	return domain.FilterSpec{Kind: domain.FilterCoprime, Base: s.base}
}

func (s coprimeSieve) Extend(p domain.Prefix, bound uint64) (domain.Prefix, error) {
	if bound <= p.Bound {
		return p, nil
	}

	lo := p.Bound + 1
	excluded := make([]bool, bound-p.Bound)
	for _, b := range s.base {
		start := (lo + b - 1) / b * b
		for m := start; m <= bound; m += b {
			excluded[m-lo] = true
		}
	}

	values := p.Values
	for n := lo; n <= bound; n++ {
		if excluded[n-lo] {
			continue
		}
		values = append(values, n)
	}
	return domain.Prefix{Bound: bound, Values: values}, nil
}
