package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/draftpool/backend/internal/domain"
)

const ledgerColumns = `id, account_id, amount, category, balance_before, balance_after,
	reference_type, reference_id, idempotency_key, created_at`

type LedgerRepository struct {
	db *sql.DB
}

func NewLedgerRepository(db *sql.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

func (r *LedgerRepository) Create(ctx context.Context, tx *sql.Tx, entry *domain.LedgerEntry) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO ledger_entries (
			id, account_id, amount, category, balance_before, balance_after,
			reference_type, reference_id, idempotency_key, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		entry.ID, entry.AccountID, entry.Amount, entry.Category,
		entry.BalanceBefore, entry.BalanceAfter,
		entry.ReferenceType, entry.ReferenceID, entry.IdempotencyKey,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

// GetByIdempotencyKey runs inside the caller's transaction so a concurrent
// writer holding the account lock is observed before deciding a key is new.
func (r *LedgerRepository) GetByIdempotencyKey(ctx context.Context, tx *sql.Tx, key string) (*domain.LedgerEntry, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+ledgerColumns+` FROM ledger_entries WHERE idempotency_key = $1`, key,
	)
	e, err := scanLedgerEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByIdempotencyKey: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByIdempotencyKey: %w", err)
	}
	return e, nil
}

func (r *LedgerRepository) GetByAccountID(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]domain.LedgerEntry, int, error) {
	var total int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM ledger_entries WHERE account_id = $1`, accountID,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("GetByAccountID: count: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+ledgerColumns+` FROM ledger_entries
		WHERE account_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		accountID, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("GetByAccountID: %w", err)
	}
	defer rows.Close()

	var entries []domain.LedgerEntry
	for rows.Next() {
		e, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("GetByAccountID: scan: %w", err)
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("GetByAccountID: rows: %w", err)
	}
	return entries, total, nil
}

func (r *LedgerRepository) GetByReference(ctx context.Context, refType domain.ReferenceType, refID uuid.UUID) ([]domain.LedgerEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+ledgerColumns+` FROM ledger_entries
		WHERE reference_type = $1 AND reference_id = $2 ORDER BY created_at`,
		refType, refID,
	)
	if err != nil {
		return nil, fmt.Errorf("GetByReference: %w", err)
	}
	defer rows.Close()

	var entries []domain.LedgerEntry
	for rows.Next() {
		e, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("GetByReference: scan: %w", err)
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("GetByReference: rows: %w", err)
	}
	return entries, nil
}

// SumByAccountID totals every entry for an account, for reconciliation
// against the stored balance.
func (r *LedgerRepository) SumByAccountID(ctx context.Context, accountID uuid.UUID) (int64, error) {
	var sum int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM ledger_entries WHERE account_id = $1`,
		accountID,
	).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("SumByAccountID: %w", err)
	}
	return sum, nil
}

func scanLedgerEntry(s scanner) (*domain.LedgerEntry, error) {
	var e domain.LedgerEntry
	err := s.Scan(
		&e.ID, &e.AccountID, &e.Amount, &e.Category,
		&e.BalanceBefore, &e.BalanceAfter,
		&e.ReferenceType, &e.ReferenceID, &e.IdempotencyKey,
		&e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}
