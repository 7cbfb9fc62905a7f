package statement

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	opening  decimal.Decimal
	rows     []Row
	balances []AccountBalance
	calls    int
}

func (f *fakeRepo) OpeningBalance(context.Context, Query) (decimal.Decimal, error) {
	f.calls++
	return f.opening, nil
}

func (f *fakeRepo) RowsBetween(context.Context, Query) ([]Row, error) {
	return f.rows, nil
}

func (f *fakeRepo) AccountBalances(context.Context, int64, Query) ([]AccountBalance, error) {
	return f.balances, nil
}

func testCache(t *testing.T) *Cache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, time.Minute)
}

func TestBuildServesFromCacheOnRepeat(t *testing.T) {
	repo := &fakeRepo{
		opening: dec(100),
		rows:    []Row{{Date: day(2), Debit: dec(50)}},
	}
	svc := NewService(repo, testCache(t))

	q := Query{CompanyID: 1, Kind: SubjectAccount, SubjectID: 7, From: day(1), To: day(31)}

	first, err := svc.Build(context.Background(), q)
	require.NoError(t, err)
	require.True(t, first.ClosingBalance.Equal(dec(150)))
	require.Equal(t, 1, repo.calls)

	// Mutate the source; a cache hit must not reach the repository.
	repo.opening = dec(999)
	second, err := svc.Build(context.Background(), q)
	require.NoError(t, err)
	require.True(t, second.ClosingBalance.Equal(dec(150)))
	require.Equal(t, 1, repo.calls)
}

func TestBuildDistinctQueriesMissCache(t *testing.T) {
	repo := &fakeRepo{opening: dec(10)}
	svc := NewService(repo, testCache(t))

	base := Query{CompanyID: 1, Kind: SubjectCustomer, SubjectID: 3, From: day(1), To: day(31)}
	_, err := svc.Build(context.Background(), base)
	require.NoError(t, err)

	other := base
	other.SubjectID = 4
	_, err = svc.Build(context.Background(), other)
	require.NoError(t, err)
	require.Equal(t, 2, repo.calls)
}

func TestBuildWorksWithoutCache(t *testing.T) {
	repo := &fakeRepo{opening: dec(5)}
	svc := NewService(repo, nil)

	st, err := svc.Build(context.Background(), Query{CompanyID: 1, SubjectID: 2, From: day(1), To: day(31)})
	require.NoError(t, err)
	require.True(t, st.ClosingBalance.Equal(dec(5)))
}

func TestBuildValidatesInput(t *testing.T) {
	svc := NewService(&fakeRepo{}, nil)

	_, err := svc.Build(context.Background(), Query{CompanyID: 0, SubjectID: 2})
	require.Error(t, err)

	_, err = svc.Build(context.Background(), Query{CompanyID: 1, SubjectID: 2, From: day(10), To: day(1)})
	require.Error(t, err)
}

func TestTrialBalanceAggregates(t *testing.T) {
	repo := &fakeRepo{balances: []AccountBalance{
		{Code: "11.01", Name: "Cash", Type: "ASSET", Opening: dec(100), Debit: dec(40), Credit: dec(10)},
		{Code: "21.01", Name: "Payables", Type: "LIABILITY", Opening: dec(-100), Debit: dec(10), Credit: dec(40)},
	}}
	svc := NewService(repo, nil)

	tb, err := svc.TrialBalance(context.Background(), 1, day(1), day(31))
	require.NoError(t, err)
	require.Len(t, tb.Groups, 2)
	require.True(t, tb.TotalDebit.Equal(tb.TotalCredit))
	require.True(t, tb.TotalClosing.IsZero())
}
