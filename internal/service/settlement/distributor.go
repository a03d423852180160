package settlement

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/draftpool/backend/internal/domain"
	"github.com/draftpool/backend/internal/logging"
	"github.com/draftpool/backend/internal/service/ledger"
)

type ledgerService interface {
	RecordInTx(ctx context.Context, tx *sql.Tx, req ledger.RecordRequest) (*ledger.RecordResult, error)
}

// Recipient is one prize to credit: the account to pay, the entry that won
// it, and the amount in cents.
type Recipient struct {
	AccountID   uuid.UUID
	EntryID     uuid.UUID
	Rank        int
	AmountCents int64
}

type PayoutSummary struct {
	Credited       int
	TotalPaidCents int64
}

// Distributor credits a batch of prize winners through the ledger inside one
// shared transaction. All credits apply or none do: the first failure
// propagates so the caller rolls the whole unit back.
type Distributor struct {
	ledger ledgerService
}

func NewDistributor(l ledgerService) *Distributor {
	return &Distributor{ledger: l}
}

func (d *Distributor) Payout(ctx context.Context, tx *sql.Tx, contestID uuid.UUID, recipients []Recipient) (*PayoutSummary, error) {
	log := logging.FromContext(ctx)

	summary := &PayoutSummary{}
	for _, rcpt := range recipients {
		if rcpt.AmountCents <= 0 {
			log.Warn("skipping non-positive payout",
				"contest_id", contestID,
				"entry_id", rcpt.EntryID,
				"amount_cents", rcpt.AmountCents,
			)
			continue
		}

		refType := domain.ReferenceTypeContest
		refID := contestID
		key := payoutIdempotencyKey(contestID, rcpt.EntryID)

		res, err := d.ledger.RecordInTx(ctx, tx, ledger.RecordRequest{
			AccountID:      rcpt.AccountID,
			Amount:         rcpt.AmountCents,
			Category:       domain.LedgerCategoryWinnings,
			ReferenceType:  &refType,
			ReferenceID:    &refID,
			IdempotencyKey: &key,
		})
		if err != nil {
			return nil, fmt.Errorf("Payout: entry %s: %w", rcpt.EntryID, err)
		}
		if res.Duplicate {
			log.Info("payout already credited, skipping",
				"contest_id", contestID,
				"entry_id", rcpt.EntryID,
			)
			continue
		}

		summary.Credited++
		summary.TotalPaidCents += rcpt.AmountCents
	}
	return summary, nil
}

// payoutIdempotencyKey makes a replayed settlement attempt for the same
// contest and entry a no-op at the ledger.
func payoutIdempotencyKey(contestID, entryID uuid.UUID) string {
	return fmt.Sprintf("settle:%s:%s", contestID, entryID)
}
