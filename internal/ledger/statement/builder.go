package statement

import "github.com/shopspring/decimal"

// Build walks the ordered rows maintaining a running balance from the
// opening balance. The running total stays signed: a balance that dips
// below zero is shown as negative rather than masked.
func Build(opening decimal.Decimal, rows []Row, normal Side, period Period) Statement {
	st := Statement{
		OpeningBalance: opening,
		TotalDebit:     decimal.Zero,
		TotalCredit:    decimal.Zero,
		Period:         period,
	}
	running := opening
	for _, row := range rows {
		st.TotalDebit = st.TotalDebit.Add(row.Debit)
		st.TotalCredit = st.TotalCredit.Add(row.Credit)
		if normal == SideCredit {
			running = running.Add(row.Credit).Sub(row.Debit)
		} else {
			running = running.Add(row.Debit).Sub(row.Credit)
		}
		st.Transactions = append(st.Transactions, Line{
			Date:        row.Date,
			Debit:       row.Debit,
			Credit:      row.Credit,
			Balance:     running,
			Description: row.Description,
			DocNo:       row.DocNo,
			TypeName:    row.TypeName,
		})
	}
	st.ClosingBalance = running
	return st
}
