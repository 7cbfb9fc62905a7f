package mappings

import "context"

// Resolver is the read-only port posting flows use to turn a semantic role
// into an account ID. A missing mapping is fatal for the whole posting.
type Resolver interface {
	Resolve(ctx context.Context, companyID int64, mappingType MappingType) (int64, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Resolve(ctx context.Context, companyID int64, mappingType MappingType) (int64, error) {
	m, err := s.repo.GetDefault(ctx, companyID, mappingType)
	if err != nil {
		return 0, err
	}
	return m.AccountID, nil
}

func (s *Service) List(ctx context.Context, companyID int64) ([]AccountMapping, error) {
	return s.repo.List(ctx, companyID)
}

func (s *Service) SetDefault(ctx context.Context, companyID int64, mappingType MappingType, accountID int64) (AccountMapping, error) {
	return s.repo.SetDefault(ctx, companyID, mappingType, accountID)
}
