package mappings

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-ledger/internal/ledger/shared"
)

type fakeRepo struct {
	defaults map[MappingType]AccountMapping
}

func (f *fakeRepo) GetDefault(_ context.Context, companyID int64, mappingType MappingType) (AccountMapping, error) {
	m, ok := f.defaults[mappingType]
	if !ok || m.CompanyID != companyID {
		return AccountMapping{}, shared.ErrMappingNotFound
	}
	return m, nil
}

func (f *fakeRepo) List(_ context.Context, _ int64) ([]AccountMapping, error) {
	var out []AccountMapping
	for _, m := range f.defaults {
		out = append(out, m)
	}
	return out, nil
}

func (f *fakeRepo) SetDefault(_ context.Context, companyID int64, mappingType MappingType, accountID int64) (AccountMapping, error) {
	m := AccountMapping{CompanyID: companyID, Type: mappingType, AccountID: accountID, IsDefault: true}
	f.defaults[mappingType] = m
	return m, nil
}

func TestResolveReturnsMappedAccount(t *testing.T) {
	repo := &fakeRepo{defaults: map[MappingType]AccountMapping{
		MappingCash: {CompanyID: 1, Type: MappingCash, AccountID: 42, IsDefault: true},
	}}
	svc := NewService(repo)

	id, err := svc.Resolve(context.Background(), 1, MappingCash)
	require.NoError(t, err)
	require.Equal(t, int64(42), id)
}

func TestResolveUnmappedRoleFails(t *testing.T) {
	svc := NewService(&fakeRepo{defaults: map[MappingType]AccountMapping{}})

	_, err := svc.Resolve(context.Background(), 1, MappingRetainedEarnings)
	require.ErrorIs(t, err, shared.ErrMappingNotFound)
}

func TestResolveScopedToCompany(t *testing.T) {
	repo := &fakeRepo{defaults: map[MappingType]AccountMapping{
		MappingBank: {CompanyID: 2, Type: MappingBank, AccountID: 9, IsDefault: true},
	}}
	svc := NewService(repo)

	_, err := svc.Resolve(context.Background(), 1, MappingBank)
	require.ErrorIs(t, err, shared.ErrMappingNotFound)
}

func TestSetDefaultReplacesMapping(t *testing.T) {
	repo := &fakeRepo{defaults: map[MappingType]AccountMapping{}}
	svc := NewService(repo)

	first, err := svc.SetDefault(context.Background(), 1, MappingCash, 10)
	require.NoError(t, err)
	require.True(t, first.IsDefault)

	second, err := svc.SetDefault(context.Background(), 1, MappingCash, 11)
	require.NoError(t, err)
	require.Equal(t, int64(11), second.AccountID)

	id, err := svc.Resolve(context.Background(), 1, MappingCash)
	require.NoError(t, err)
	require.Equal(t, int64(11), id)
}

func TestIsValidType(t *testing.T) {
	for _, mt := range ValidTypes {
		require.True(t, IsValidType(mt))
	}
	require.False(t, IsValidType("petty_cash_drawer"))
}
