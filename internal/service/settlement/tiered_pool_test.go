package settlement

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/draftpool/backend/internal/domain"
)

func tieredContest(table domain.PayoutTable) *domain.Contest {
	return &domain.Contest{
		Type:        domain.ContestTypeTieredPool,
		PayoutTable: table,
	}
}

// A typical tournament structure: deep tiers with flat ranges further down.
var tournamentTable = domain.PayoutTable{
	{FromRank: 1, ToRank: 1, AmountCents: 2_500_000},
	{FromRank: 2, ToRank: 2, AmountCents: 1_500_000},
	{FromRank: 3, ToRank: 3, AmountCents: 1_000_000},
	{FromRank: 4, ToRank: 10, AmountCents: 250_000},
	{FromRank: 11, ToRank: 100, AmountCents: 50_000},
}

func TestTieredPoolComputePrizes_DistinctScores(t *testing.T) {
	s := &tieredPoolStrategy{}
	ranked := rankEntries([]domain.Entry{
		scoredEntry(300, 0),
		scoredEntry(280, 1),
		scoredEntry(260, 2),
		scoredEntry(240, 3),
	})

	prizes := s.ComputePrizes(tieredContest(tournamentTable), ranked)

	assert.Equal(t, int64(2_500_000), prizes[ranked[0].ID])
	assert.Equal(t, int64(1_500_000), prizes[ranked[1].ID])
	assert.Equal(t, int64(1_000_000), prizes[ranked[2].ID])
	assert.Equal(t, int64(250_000), prizes[ranked[3].ID])
}

func TestTieredPoolComputePrizes_TwoTiedForFirstSplitTopTwoTiers(t *testing.T) {
	s := &tieredPoolStrategy{}
	ranked := rankEntries([]domain.Entry{
		scoredEntry(300, 0),
		scoredEntry(300, 1),
		scoredEntry(260, 2),
	})

	prizes := s.ComputePrizes(tieredContest(tournamentTable), ranked)

	// Tied pair occupies ranks 1 and 2: (2,500,000 + 1,500,000) / 2.
	assert.Equal(t, int64(2_000_000), prizes[ranked[0].ID])
	assert.Equal(t, int64(2_000_000), prizes[ranked[1].ID])
	// Next entry ranks 3, not 2.
	assert.Equal(t, 3, ranked[2].Rank)
	assert.Equal(t, int64(1_000_000), prizes[ranked[2].ID])
}

func TestTieredPoolComputePrizes_TieStraddlingPaidBoundary(t *testing.T) {
	table := domain.PayoutTable{
		{FromRank: 1, ToRank: 1, AmountCents: 10_000},
		{FromRank: 2, ToRank: 2, AmountCents: 5_000},
	}
	s := &tieredPoolStrategy{}

	// Three entries tied at rank 2 span ranks 2-4; only rank 2 pays.
	ranked := rankEntries([]domain.Entry{
		scoredEntry(100, 0),
		scoredEntry(80, 1),
		scoredEntry(80, 2),
		scoredEntry(80, 3),
	})

	prizes := s.ComputePrizes(tieredContest(table), ranked)

	assert.Equal(t, int64(10_000), prizes[ranked[0].ID])
	// (5000 + 0 + 0) / 3 floors to 1666.
	for i := 1; i <= 3; i++ {
		assert.Equal(t, int64(1666), prizes[ranked[i].ID], "position %d", i)
	}

	var total int64
	for _, p := range prizes {
		total += p
	}
	assert.LessOrEqual(t, total, int64(15_000))
}

func TestTieredPoolComputePrizes_RanksBeyondTablePayNothing(t *testing.T) {
	table := domain.PayoutTable{
		{FromRank: 1, ToRank: 2, AmountCents: 1_000},
	}
	s := &tieredPoolStrategy{}
	ranked := rankEntries([]domain.Entry{
		scoredEntry(100, 0),
		scoredEntry(90, 1),
		scoredEntry(80, 2),
		scoredEntry(70, 3),
	})

	prizes := s.ComputePrizes(tieredContest(table), ranked)

	require.Len(t, prizes, 2)
	assert.Equal(t, int64(1_000), prizes[ranked[0].ID])
	assert.Equal(t, int64(1_000), prizes[ranked[1].ID])
}

func TestTieredPoolComputePrizes_TieEntirelyPastTableIsAbsent(t *testing.T) {
	table := domain.PayoutTable{
		{FromRank: 1, ToRank: 1, AmountCents: 1_000},
	}
	s := &tieredPoolStrategy{}
	ranked := rankEntries([]domain.Entry{
		scoredEntry(100, 0),
		scoredEntry(50, 1),
		scoredEntry(50, 2),
	})

	prizes := s.ComputePrizes(tieredContest(table), ranked)

	require.Len(t, prizes, 1)
	assert.Equal(t, int64(1_000), prizes[ranked[0].ID])
}

func TestTieredPoolConservation(t *testing.T) {
	s := &tieredPoolStrategy{}

	var tableTotal int64
	for _, tier := range tournamentTable {
		tableTotal += tier.AmountCents * int64(tier.ToRank-tier.FromRank+1)
	}

	// Heavy ties everywhere: 3-way at the top, 5-way across ranks 4-8.
	entries := []domain.Entry{
		scoredEntry(300, 0), scoredEntry(300, 1), scoredEntry(300, 2),
		scoredEntry(200, 3), scoredEntry(200, 4), scoredEntry(200, 5),
		scoredEntry(200, 6), scoredEntry(200, 7),
		scoredEntry(100, 8),
	}
	prizes := s.ComputePrizes(tieredContest(tournamentTable), rankEntries(entries))

	var total int64
	for _, p := range prizes {
		total += p
	}
	assert.LessOrEqual(t, total, tableTotal)
}
