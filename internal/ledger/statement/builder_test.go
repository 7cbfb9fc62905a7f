package statement

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func day(d int) time.Time {
	return time.Date(2025, 3, d, 0, 0, 0, 0, time.UTC)
}

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func TestBuildDebitNormalRunningBalance(t *testing.T) {
	rows := []Row{
		{Date: day(1), Debit: dec(1000), DocNo: "JE-2025-0000001-D", TypeName: "SALE_PAYMENT"},
		{Date: day(5), Credit: dec(400), DocNo: "JE-2025-0000002-C", TypeName: "SALE_PAYMENT"},
		{Date: day(9), Debit: dec(250), DocNo: "JE-2025-0000003-D", TypeName: "MANUAL"},
	}

	st := Build(dec(100), rows, SideDebit, Period{From: day(1), To: day(31)})

	require.True(t, st.OpeningBalance.Equal(dec(100)))
	require.Len(t, st.Transactions, 3)
	require.True(t, st.Transactions[0].Balance.Equal(dec(1100)))
	require.True(t, st.Transactions[1].Balance.Equal(dec(700)))
	require.True(t, st.Transactions[2].Balance.Equal(dec(950)))
	require.True(t, st.TotalDebit.Equal(dec(1250)))
	require.True(t, st.TotalCredit.Equal(dec(400)))
	require.True(t, st.ClosingBalance.Equal(dec(950)))
}

func TestBuildCreditNormalGrowsWithCredits(t *testing.T) {
	rows := []Row{
		{Date: day(2), Credit: dec(500)},
		{Date: day(6), Debit: dec(200)},
	}

	st := Build(decimal.Zero, rows, SideCredit, Period{From: day(1), To: day(31)})

	require.True(t, st.Transactions[0].Balance.Equal(dec(500)))
	require.True(t, st.Transactions[1].Balance.Equal(dec(300)))
	require.True(t, st.ClosingBalance.Equal(dec(300)))
}

func TestBuildKeepsNegativeBalancesSigned(t *testing.T) {
	rows := []Row{
		{Date: day(3), Credit: dec(800)},
	}

	st := Build(dec(300), rows, SideDebit, Period{From: day(1), To: day(31)})

	require.True(t, st.ClosingBalance.Equal(dec(-500)))
	require.True(t, st.Transactions[0].Balance.IsNegative())
}

func TestBuildClosingFeedsNextOpening(t *testing.T) {
	first := Build(decimal.Zero, []Row{
		{Date: day(1), Debit: dec(900)},
		{Date: day(15), Credit: dec(350)},
	}, SideDebit, Period{From: day(1), To: day(31)})

	second := Build(first.ClosingBalance, []Row{
		{Date: time.Date(2025, 4, 2, 0, 0, 0, 0, time.UTC), Debit: dec(100)},
	}, SideDebit, Period{})

	require.True(t, second.OpeningBalance.Equal(dec(550)))
	require.True(t, second.ClosingBalance.Equal(dec(650)))
}

func TestBuildEmptyWindow(t *testing.T) {
	st := Build(dec(42), nil, SideDebit, Period{From: day(1), To: day(31)})

	require.Empty(t, st.Transactions)
	require.True(t, st.OpeningBalance.Equal(dec(42)))
	require.True(t, st.ClosingBalance.Equal(dec(42)))
	require.True(t, st.TotalDebit.IsZero())
}

func TestBuildTrialBalanceGroupsAndTotals(t *testing.T) {
	balances := []AccountBalance{
		{Code: "11.01", Name: "Cash", Type: "ASSET", Opening: dec(500), Debit: dec(300), Credit: dec(100)},
		{Code: "11.02", Name: "Bank", Type: "ASSET", Opening: dec(200), Debit: dec(50), Credit: decimal.Zero},
		{Code: "41.01", Name: "Sales", Type: "REVENUE", Opening: dec(-700), Debit: decimal.Zero, Credit: dec(250)},
	}

	tb := BuildTrialBalance(balances)

	require.Len(t, tb.Groups, 2)
	require.Equal(t, "11", tb.Groups[0].Key)
	require.Equal(t, "41", tb.Groups[1].Key)
	require.Len(t, tb.Groups[0].Accounts, 2)

	require.True(t, tb.Groups[0].Opening.Equal(dec(700)))
	require.True(t, tb.Groups[0].Closing.Equal(dec(950)))
	require.True(t, tb.Groups[1].Closing.Equal(dec(-950)))

	require.True(t, tb.TotalDebit.Equal(dec(350)))
	require.True(t, tb.TotalCredit.Equal(dec(350)))
	// Signed totals cancel when the books balance.
	require.True(t, tb.TotalClosing.IsZero())
}
