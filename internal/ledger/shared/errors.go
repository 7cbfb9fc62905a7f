package shared

import "errors"

var (
	// ErrUnbalanced indicates debit != credit.
	ErrUnbalanced = errors.New("ledger: journal legs must balance")
	// ErrTooFewLegs indicates less than two legs.
	ErrTooFewLegs = errors.New("ledger: posting requires at least two legs")
	// ErrZeroAmount indicates a leg without a debit or credit amount.
	ErrZeroAmount = errors.New("ledger: leg amount must be positive")
	// ErrTwoSidedLeg indicates a leg carrying both debit and credit.
	ErrTwoSidedLeg = errors.New("ledger: leg cannot be both debit and credit")
	// ErrMappingNotFound indicates account mapping missing.
	ErrMappingNotFound = errors.New("ledger: account mapping not found")
	// ErrAccountNotFound indicates missing account.
	ErrAccountNotFound = errors.New("ledger: account not found")
	// ErrAccountProtected indicates a system account cannot be removed.
	ErrAccountProtected = errors.New("ledger: account is protected")
	// ErrEntryNotFound indicates missing journal entry.
	ErrEntryNotFound = errors.New("ledger: journal entry not found")
	// ErrEntryNumberTaken indicates the generated entry number collided.
	ErrEntryNumberTaken = errors.New("ledger: entry number already issued")
	// ErrPeriodNotFound indicates missing fiscal period.
	ErrPeriodNotFound = errors.New("ledger: fiscal period not found")
	// ErrPeriodClosed indicates the posting date falls in a closed period.
	ErrPeriodClosed = errors.New("ledger: fiscal period is closed")
	// ErrAlreadyClosed indicates a second close attempt on the same period.
	ErrAlreadyClosed = errors.New("ledger: fiscal period already closed")
	// ErrDuplicateCode indicates a unique code conflict.
	ErrDuplicateCode = errors.New("ledger: code already in use")
)
