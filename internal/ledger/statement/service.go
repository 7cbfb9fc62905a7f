package statement

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/singleflight"
)

type Service struct {
	repo  Repository
	cache *Cache
	group singleflight.Group
}

func NewService(repo Repository, cache *Cache) *Service {
	return &Service{repo: repo, cache: cache}
}

// Build computes opening balance plus a chronological running balance for
// the subject. Pure read; safe to call concurrently and repeatedly.
// Concurrent misses for the same query are collapsed into one computation.
func (s *Service) Build(ctx context.Context, q Query) (Statement, error) {
	if q.CompanyID == 0 || q.SubjectID == 0 {
		return Statement{}, errors.New("statement: company and subject required")
	}
	if q.Kind == "" {
		q.Kind = SubjectAccount
	}
	if q.To.IsZero() {
		q.To = time.Now()
	}
	if q.From.After(q.To) {
		return Statement{}, errors.New("statement: from date after to date")
	}
	if st, ok := s.cache.Get(ctx, q); ok {
		return st, nil
	}
	result, err, _ := s.group.Do(cacheKey(q), func() (any, error) {
		opening, err := s.repo.OpeningBalance(ctx, q)
		if err != nil {
			return nil, err
		}
		rows, err := s.repo.RowsBetween(ctx, q)
		if err != nil {
			return nil, err
		}
		st := Build(opening, rows, q.Kind.NormalSide(), Period{From: q.From, To: q.To})
		s.cache.Set(ctx, q, st)
		return st, nil
	})
	if err != nil {
		return Statement{}, err
	}
	return result.(Statement), nil
}

// TrialBalance aggregates per-account movement over the window.
func (s *Service) TrialBalance(ctx context.Context, companyID int64, from, to time.Time) (TrialBalance, error) {
	if companyID == 0 {
		return TrialBalance{}, errors.New("statement: company required")
	}
	balances, err := s.repo.AccountBalances(ctx, companyID, Query{CompanyID: companyID, From: from, To: to})
	if err != nil {
		return TrialBalance{}, err
	}
	return BuildTrialBalance(balances), nil
}
