package accounts

import (
	"context"
	"errors"
	"strings"

	"github.com/meridian-erp/meridian-ledger/internal/ledger/shared"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, companyID int64) ([]Account, error) {
	return s.repo.List(ctx, companyID)
}

func (s *Service) Get(ctx context.Context, companyID, id int64) (Account, error) {
	if id <= 0 {
		return Account{}, errors.New("accounts: invalid account id")
	}
	return s.repo.Get(ctx, companyID, id)
}

func (s *Service) Create(ctx context.Context, account Account) (Account, error) {
	if account.CompanyID == 0 {
		return Account{}, errors.New("accounts: company id required")
	}
	if strings.TrimSpace(account.Code) == "" {
		return Account{}, errors.New("accounts: code required")
	}
	if strings.TrimSpace(account.Name) == "" {
		return Account{}, errors.New("accounts: name required")
	}
	if !IsValidType(account.Type) {
		return Account{}, errors.New("accounts: unknown account type")
	}
	if account.Category == "" {
		account.Category = CategoryOther
	}
	account.IsActive = true
	return s.repo.Create(ctx, account)
}

func (s *Service) Update(ctx context.Context, account Account) error {
	if account.ID <= 0 {
		return errors.New("accounts: invalid account id")
	}
	if strings.TrimSpace(account.Name) == "" {
		return errors.New("accounts: name required")
	}
	return s.repo.Update(ctx, account)
}

// Remove deletes an account when safe and soft-deactivates otherwise. System
// accounts and accounts referenced by journal entries are never physically
// deleted.
func (s *Service) Remove(ctx context.Context, companyID, id int64) error {
	account, err := s.repo.Get(ctx, companyID, id)
	if err != nil {
		return err
	}
	if account.IsSystem {
		return shared.ErrAccountProtected
	}
	referenced, err := s.repo.HasEntries(ctx, companyID, id)
	if err != nil {
		return err
	}
	if referenced {
		return s.repo.Deactivate(ctx, companyID, id)
	}
	return s.repo.Delete(ctx, companyID, id)
}
