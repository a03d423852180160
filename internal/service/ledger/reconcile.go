package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/draftpool/backend/internal/domain"
	"github.com/draftpool/backend/internal/logging"
)

// Discrepancies up to one cent are tolerated; anything larger is reported.
const reconcileToleranceCents = 1

type ReconcileReport struct {
	AccountID   uuid.UUID
	Balance     int64
	LedgerSum   int64
	Discrepancy int64
	Reconciled  bool
}

type ReconcileAllReport struct {
	Total      int
	Mismatched int
	Mismatches []ReconcileReport
}

// Reconcile compares an account's stored balance against the sum of its
// ledger entries. A mismatch is reported, never auto-corrected.
func (s *Service) Reconcile(ctx context.Context, accountID uuid.UUID) (*ReconcileReport, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("Reconcile: %w", err)
	}

	sum, err := s.entries.SumByAccountID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("Reconcile: %w", err)
	}

	discrepancy := account.Balance - sum
	report := &ReconcileReport{
		AccountID:   accountID,
		Balance:     account.Balance,
		LedgerSum:   sum,
		Discrepancy: discrepancy,
		Reconciled:  abs(discrepancy) <= reconcileToleranceCents,
	}

	if !report.Reconciled {
		logging.FromContext(ctx).Error("reconciliation mismatch",
			"account_id", accountID,
			"balance", account.Balance,
			"ledger_sum", sum,
			"discrepancy", discrepancy,
			"error", domain.ErrReconciliationMismatch,
		)
	}
	return report, nil
}

// ReconcileAll sweeps every account and collects the mismatches.
func (s *Service) ReconcileAll(ctx context.Context) (*ReconcileAllReport, error) {
	ids, err := s.accounts.ListIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("ReconcileAll: %w", err)
	}

	report := &ReconcileAllReport{Total: len(ids)}
	for _, id := range ids {
		r, err := s.Reconcile(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("ReconcileAll: account %s: %w", id, err)
		}
		if !r.Reconciled {
			report.Mismatched++
			report.Mismatches = append(report.Mismatches, *r)
		}
	}
	return report, nil
}

func abs(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}
