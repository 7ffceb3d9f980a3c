package sieve

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sievelab/sieved/domain"
)

type Service struct {
	repo           domain.SieveRepository
	engines        domain.EngineRegistry
	maxBound       uint64
	computeTimeout time.Duration
}

var _ domain.SieveUsecase = (*Service)(nil)

// NewService will create a new sieve service object
func NewService(repo domain.SieveRepository, engines domain.EngineRegistry, maxBound uint64, computeTimeout time.Duration) *Service {
	return &Service{
		repo:           repo,
		engines:        engines,
		maxBound:       maxBound,
		computeTimeout: computeTimeout,
	}
}

// Query validates the requested range and serves it through the cache.
// The extension itself runs detached from the request: a client that
// disconnects or times out does not cancel the computation, which still
// finishes and populates the cache for the next caller.
func (s *Service) Query(ctx context.Context, domainKey string, r domain.Range) (domain.RangeResult, error) {
	if r.Lower > r.Upper {
		return domain.RangeResult{}, domain.ErrInvalidBound
	}
	if r.Upper > s.maxBound {
		return domain.RangeResult{}, domain.ErrInvalidBound
	}
	if _, ok := s.engines.Get(domainKey); !ok {
		return domain.RangeResult{}, domain.ErrUnknownDomain
	}

	type outcome struct {
		res domain.RangeResult
		err error
	}
	ch := make(chan outcome, 1)

	go func() {
		// Detached context: the computation outlives the request on purpose.
		res, err := s.repo.GetRange(context.Background(), domainKey, r)
		ch <- outcome{res: res, err: err}
	}()

	timer := time.NewTimer(s.computeTimeout)
	defer timer.Stop()

	select {
	case out := <-ch:
		return out.res, out.err
	case <-timer.C:
		logrus.Warnf("sieve query %s upper=%d exceeded compute timeout %s", domainKey, r.Upper, s.computeTimeout)
		return domain.RangeResult{}, domain.ErrComputationTimeout
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return domain.RangeResult{}, domain.ErrComputationTimeout
		}
		return domain.RangeResult{}, ctx.Err()
	}
}

// Domains lists the configured filter domains.
func (s *Service) Domains(ctx context.Context) []domain.FilterDomain {
	return s.engines.Domains()
}

// Stats reports the cached state per domain.
func (s *Service) Stats(ctx context.Context) []domain.DomainStats {
	return s.repo.Stats(ctx)
}
