package journal

import "fmt"

// Entry numbers follow JE-<4-digit-year>-<7-digit-sequence>-<suffix>. The
// base identifies the logical transaction; the suffix disambiguates legs.
// The sequence read is advisory only: uniqueness is enforced by the store
// constraint on entry_number, with the posting retried on conflict.

// FormatEntryNumber builds the shared base for one posting.
func FormatEntryNumber(year int, sequence int64) string {
	return fmt.Sprintf("JE-%04d-%07d", year, sequence)
}

// LegSuffix returns the per-leg suffix. Two-leg postings use D/C so the
// printed document distinguishes the sides; larger sets are numbered.
func LegSuffix(leg Leg, index, total int) string {
	if total == 2 {
		if leg.Debit.IsPositive() {
			return "D"
		}
		return "C"
	}
	return fmt.Sprintf("%d", index+1)
}
