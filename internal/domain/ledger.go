package domain

import (
	"time"

	"github.com/google/uuid"
)

type LedgerCategory string

const (
	LedgerCategoryEntryFee   LedgerCategory = "entry_fee"
	LedgerCategoryRefund     LedgerCategory = "refund"
	LedgerCategoryWinnings   LedgerCategory = "winnings"
	LedgerCategoryDeposit    LedgerCategory = "deposit"
	LedgerCategoryWithdrawal LedgerCategory = "withdrawal"
	LedgerCategoryAdjustment LedgerCategory = "adjustment"
	LedgerCategoryPromo      LedgerCategory = "promo"
)

func (c LedgerCategory) IsValid() bool {
	switch c {
	case LedgerCategoryEntryFee, LedgerCategoryRefund, LedgerCategoryWinnings,
		LedgerCategoryDeposit, LedgerCategoryWithdrawal, LedgerCategoryAdjustment,
		LedgerCategoryPromo:
		return true
	}
	return false
}

type ReferenceType string

const (
	ReferenceTypeContest    ReferenceType = "contest"
	ReferenceTypeDeposit    ReferenceType = "deposit"
	ReferenceTypeWithdrawal ReferenceType = "withdrawal"
)

// LedgerEntry is the immutable audit record of one balance change. Amount is
// signed: credits are positive, debits negative. Entries are inserted once
// and never updated or deleted.
type LedgerEntry struct {
	ID             uuid.UUID
	AccountID      uuid.UUID
	Amount         int64
	Category       LedgerCategory
	BalanceBefore  int64
	BalanceAfter   int64
	ReferenceType  *ReferenceType
	ReferenceID    *uuid.UUID
	IdempotencyKey *string
	CreatedAt      time.Time
}
