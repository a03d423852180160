package settlement

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/draftpool/backend/internal/domain"
)

// RankedEntry is an entry with its standard competition rank: equal scores
// share a rank, and the next distinct score resumes at sorted position + 1.
type RankedEntry struct {
	domain.Entry
	Rank int
}

// Strategy settles one contest type. The set is closed: NewStrategy is the
// only constructor and rejects unknown types outright.
type Strategy interface {
	// ComputePrizes maps entry id to prize cents for one ranked group (a
	// room for fixed-pool, the whole field for tiered-pool). Entries that
	// win nothing are absent from the map.
	ComputePrizes(contest *domain.Contest, ranked []RankedEntry) map[uuid.UUID]int64
	// Settle ranks the contest's scored entries, persists ranks, prizes and
	// results, and credits winners, all inside the settlement transaction.
	Settle(ctx context.Context, tx *sql.Tx, contest *domain.Contest) (*Outcome, error)
	// Preview computes ranks and projected prizes without locks or writes.
	Preview(ctx context.Context, contest *domain.Contest) (*PreviewResult, error)
}

func NewStrategy(contest *domain.Contest, deps strategyDeps) (Strategy, error) {
	switch contest.Type {
	case domain.ContestTypeFixedPool:
		return &fixedPoolStrategy{deps: deps}, nil
	case domain.ContestTypeTieredPool:
		return &tieredPoolStrategy{deps: deps}, nil
	default:
		return nil, fmt.Errorf("NewStrategy: %q: %w", contest.Type, domain.ErrUnknownContestType)
	}
}

type strategyDeps struct {
	entries     entryRepo
	results     resultRepo
	accounts    accountRepo
	distributor *Distributor
}

// rankEntries sorts by score descending, breaking exact ties by earliest
// entry time (display order only, never prize money), then assigns standard
// competition ranks.
func rankEntries(entries []domain.Entry) []RankedEntry {
	sorted := make([]domain.Entry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].TotalScore != sorted[j].TotalScore {
			return sorted[i].TotalScore > sorted[j].TotalScore
		}
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})

	ranked := make([]RankedEntry, len(sorted))
	rank := 1
	for i, e := range sorted {
		if i > 0 && sorted[i].TotalScore != sorted[i-1].TotalScore {
			rank = i + 1
		}
		ranked[i] = RankedEntry{Entry: e, Rank: rank}
	}
	return ranked
}

// splitEvenly divides an amount between n recipients, flooring to whole
// cents so the shares never sum to more than the amount.
func splitEvenly(amountCents int64, n int) int64 {
	if n <= 0 {
		return 0
	}
	return decimal.NewFromInt(amountCents).
		Div(decimal.NewFromInt(int64(n))).
		Floor().
		IntPart()
}

// Outcome is what one settlement run produced.
type Outcome struct {
	TotalEntries   int
	Winners        []Winner
	Results        []domain.Result
	SkippedRooms   []int
	Credited       int
	TotalPaidCents int64
}

type Winner struct {
	EntryID    uuid.UUID
	UserID     uuid.UUID
	Rank       int
	PrizeCents int64
}

func (o *Outcome) merge(other *Outcome) {
	o.TotalEntries += other.TotalEntries
	o.Winners = append(o.Winners, other.Winners...)
	o.Results = append(o.Results, other.Results...)
	o.SkippedRooms = append(o.SkippedRooms, other.SkippedRooms...)
	o.Credited += other.Credited
	o.TotalPaidCents += other.TotalPaidCents
}

// applyResults persists rank and prize on every entry, writes the Result
// receipts, and credits positive prizes through the distributor. Runs inside
// the settlement transaction; any error aborts the whole unit.
func applyResults(ctx context.Context, tx *sql.Tx, deps strategyDeps, contest *domain.Contest, ranked []RankedEntry, prizes map[uuid.UUID]int64) (*Outcome, error) {
	outcome := &Outcome{TotalEntries: len(ranked)}
	now := time.Now().UTC()

	var recipients []Recipient
	for _, re := range ranked {
		prize := prizes[re.ID]

		if err := deps.entries.SetSettlement(ctx, tx, re.ID, re.Rank, prize); err != nil {
			return nil, fmt.Errorf("applyResults: %w", err)
		}

		account, err := deps.accounts.GetByUserID(ctx, re.UserID)
		if err != nil {
			return nil, fmt.Errorf("applyResults: account for user %s: %w", re.UserID, err)
		}

		result := &domain.Result{
			ID:         uuid.New(),
			ContestID:  contest.ID,
			EntryID:    re.ID,
			UserID:     re.UserID,
			AccountID:  account.ID,
			Rank:       re.Rank,
			Score:      re.TotalScore,
			PrizeCents: prize,
			CreatedAt:  now,
		}
		if err := deps.results.Create(ctx, tx, result); err != nil {
			return nil, fmt.Errorf("applyResults: result for entry %s: %w", re.ID, err)
		}
		outcome.Results = append(outcome.Results, *result)

		if prize > 0 {
			outcome.Winners = append(outcome.Winners, Winner{
				EntryID:    re.ID,
				UserID:     re.UserID,
				Rank:       re.Rank,
				PrizeCents: prize,
			})
			recipients = append(recipients, Recipient{
				AccountID:   account.ID,
				EntryID:     re.ID,
				Rank:        re.Rank,
				AmountCents: prize,
			})
		}
	}

	summary, err := deps.distributor.Payout(ctx, tx, contest.ID, recipients)
	if err != nil {
		return nil, fmt.Errorf("applyResults: %w", err)
	}
	outcome.Credited = summary.Credited
	outcome.TotalPaidCents = summary.TotalPaidCents

	return outcome, nil
}
