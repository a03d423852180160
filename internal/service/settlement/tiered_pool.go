package settlement

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/draftpool/backend/internal/domain"
)

// tieredPoolStrategy settles large tournaments against a rank-indexed payout
// table. A group of n entries tied at rank r occupies ranks r..r+n-1; each
// member gets an equal share of the table amounts over that span, with ranks
// past the last paid rank contributing zero. That keeps the total payout
// bounded by the published pool even when a tie straddles the paid/unpaid
// boundary.
type tieredPoolStrategy struct {
	deps strategyDeps
}

func (s *tieredPoolStrategy) ComputePrizes(contest *domain.Contest, ranked []RankedEntry) map[uuid.UUID]int64 {
	prizes := make(map[uuid.UUID]int64)

	for i := 0; i < len(ranked); {
		j := i
		for j < len(ranked) && ranked[j].Rank == ranked[i].Rank {
			j++
		}
		group := ranked[i:j]

		var spanTotal int64
		for offset := range group {
			spanTotal += contest.PayoutTable.AmountForRank(group[0].Rank + offset)
		}

		share := splitEvenly(spanTotal, len(group))
		if share > 0 {
			for _, re := range group {
				prizes[re.ID] = share
			}
		}
		i = j
	}
	return prizes
}

func (s *tieredPoolStrategy) Settle(ctx context.Context, tx *sql.Tx, contest *domain.Contest) (*Outcome, error) {
	entries, err := s.deps.entries.ListScored(ctx, tx, contest.ID)
	if err != nil {
		return nil, fmt.Errorf("tieredPool.Settle: %w", err)
	}

	ranked := rankEntries(entries)
	prizes := s.ComputePrizes(contest, ranked)

	outcome, err := applyResults(ctx, tx, s.deps, contest, ranked, prizes)
	if err != nil {
		return nil, fmt.Errorf("tieredPool.Settle: %w", err)
	}
	return outcome, nil
}

func (s *tieredPoolStrategy) Preview(ctx context.Context, contest *domain.Contest) (*PreviewResult, error) {
	entries, err := s.deps.entries.ListScoredReadOnly(ctx, contest.ID)
	if err != nil {
		return nil, fmt.Errorf("tieredPool.Preview: %w", err)
	}

	ranked := rankEntries(entries)
	prizes := s.ComputePrizes(contest, ranked)

	preview := &PreviewResult{ContestID: contest.ID}
	preview.appendRanked(ranked, prizes)
	return preview, nil
}
