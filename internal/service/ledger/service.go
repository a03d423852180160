// Package ledger is the single authorized path for changing an account
// balance. Every mutation appends an immutable ledger entry and updates the
// owning account's balance in one atomic unit, under the account's row lock.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/draftpool/backend/internal/domain"
	"github.com/draftpool/backend/internal/logging"
)

type accountRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	ListIDs(ctx context.Context) ([]uuid.UUID, error)
	GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Account, error)
	UpdateBalance(ctx context.Context, tx *sql.Tx, id uuid.UUID, newBalance int64, newVersion int64) error
}

type entryRepo interface {
	Create(ctx context.Context, tx *sql.Tx, entry *domain.LedgerEntry) error
	GetByIdempotencyKey(ctx context.Context, tx *sql.Tx, key string) (*domain.LedgerEntry, error)
	GetByAccountID(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]domain.LedgerEntry, int, error)
	SumByAccountID(ctx context.Context, accountID uuid.UUID) (int64, error)
}

type Service struct {
	accounts accountRepo
	entries  entryRepo
	db       *sql.DB
}

func NewService(accounts accountRepo, entries entryRepo, db *sql.DB) *Service {
	return &Service{accounts: accounts, entries: entries, db: db}
}

// RecordRequest describes one balance change. Amount is signed: positive
// credits, negative debits.
type RecordRequest struct {
	AccountID      uuid.UUID
	Amount         int64
	Category       domain.LedgerCategory
	ReferenceType  *domain.ReferenceType
	ReferenceID    *uuid.UUID
	IdempotencyKey *string
}

type RecordResult struct {
	Entry     *domain.LedgerEntry
	Duplicate bool
}

// Record applies one balance change in its own transaction.
func (s *Service) Record(ctx context.Context, req RecordRequest) (*RecordResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("Record: begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := s.RecordInTx(ctx, tx, req)
	if err != nil {
		return nil, fmt.Errorf("Record: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("Record: commit: %w", err)
	}
	return res, nil
}

// RecordInTx applies one balance change inside a caller-supplied transaction,
// so settlement can compose many credits into one all-or-nothing unit.
//
// If the idempotency key already has an entry, the original entry is returned
// with Duplicate set and nothing is applied. The key is checked only after
// the account row lock is held, so of two concurrent writers with the same
// key the second waits on the lock and then observes the first's entry.
func (s *Service) RecordInTx(ctx context.Context, tx *sql.Tx, req RecordRequest) (*RecordResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, fmt.Errorf("RecordInTx: %w", err)
	}

	account, err := s.accounts.GetForUpdate(ctx, tx, req.AccountID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("RecordInTx: %w", domain.ErrAccountNotFound)
		}
		return nil, fmt.Errorf("RecordInTx: %w", err)
	}

	if req.IdempotencyKey != nil {
		existing, err := s.entries.GetByIdempotencyKey(ctx, tx, *req.IdempotencyKey)
		if err == nil {
			logging.FromContext(ctx).Info("ledger replay short-circuited",
				"idempotency_key", *req.IdempotencyKey,
				"entry_id", existing.ID,
			)
			return &RecordResult{Entry: existing, Duplicate: true}, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("RecordInTx: %w", err)
		}
	}

	if err := verifyAccountUsable(account, req.Amount); err != nil {
		return nil, fmt.Errorf("RecordInTx: %w", err)
	}

	newBalance := account.Balance + req.Amount
	if newBalance < 0 {
		return nil, fmt.Errorf("RecordInTx: %w", domain.ErrInsufficientFunds)
	}

	entry := &domain.LedgerEntry{
		ID:             uuid.New(),
		AccountID:      account.ID,
		Amount:         req.Amount,
		Category:       req.Category,
		BalanceBefore:  account.Balance,
		BalanceAfter:   newBalance,
		ReferenceType:  req.ReferenceType,
		ReferenceID:    req.ReferenceID,
		IdempotencyKey: req.IdempotencyKey,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.entries.Create(ctx, tx, entry); err != nil {
		return nil, fmt.Errorf("RecordInTx: create entry: %w", err)
	}

	if err := s.accounts.UpdateBalance(ctx, tx, account.ID, newBalance, account.Version+1); err != nil {
		return nil, fmt.Errorf("RecordInTx: update balance: %w", err)
	}

	return &RecordResult{Entry: entry}, nil
}

// EntriesForAccount returns a page of the account statement, newest first.
func (s *Service) EntriesForAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]domain.LedgerEntry, int, error) {
	entries, total, err := s.entries.GetByAccountID(ctx, accountID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("EntriesForAccount: %w", err)
	}
	return entries, total, nil
}

func validateRequest(req RecordRequest) error {
	if req.Amount == 0 {
		return domain.ErrInvalidAmount
	}
	if !req.Category.IsValid() {
		return fmt.Errorf("%q: %w", req.Category, domain.ErrInvalidCategory)
	}
	return nil
}

// Closed accounts accept nothing; frozen accounts still accept credits so
// winnings are never lost, but cannot be debited.
func verifyAccountUsable(account *domain.Account, amount int64) error {
	if account.Status == domain.AccountStatusClosed {
		return domain.ErrAccountClosed
	}
	if account.Status == domain.AccountStatusFrozen && amount < 0 {
		return domain.ErrAccountFrozen
	}
	return nil
}
