package settlement

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/draftpool/backend/internal/domain"
)

var testBase = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func scoredEntry(score float64, createdOffset int) domain.Entry {
	return domain.Entry{
		ID:         uuid.New(),
		ContestID:  uuid.New(),
		UserID:     uuid.New(),
		Status:     domain.EntryStatusScored,
		TotalScore: score,
		CreatedAt:  testBase.Add(time.Duration(createdOffset) * time.Second),
	}
}

func TestRankEntries_DistinctScores(t *testing.T) {
	entries := []domain.Entry{
		scoredEntry(90, 0),
		scoredEntry(150, 1),
		scoredEntry(70, 2),
		scoredEntry(120, 3),
		scoredEntry(80, 4),
	}

	ranked := rankEntries(entries)
	require.Len(t, ranked, 5)

	wantScores := []float64{150, 120, 90, 80, 70}
	wantRanks := []int{1, 2, 3, 4, 5}
	for i, re := range ranked {
		assert.Equal(t, wantScores[i], re.TotalScore)
		assert.Equal(t, wantRanks[i], re.Rank)
	}
}

func TestRankEntries_TiesShareRankAndSkipPositions(t *testing.T) {
	entries := []domain.Entry{
		scoredEntry(150, 0),
		scoredEntry(150, 1),
		scoredEntry(90, 2),
		scoredEntry(90, 3),
		scoredEntry(90, 4),
		scoredEntry(70, 5),
	}

	ranked := rankEntries(entries)
	require.Len(t, ranked, 6)

	wantRanks := []int{1, 1, 3, 3, 3, 6}
	for i, re := range ranked {
		assert.Equal(t, wantRanks[i], re.Rank, "position %d", i)
	}
}

func TestRankEntries_TieBreakByEntryTimeOrdersDisplayOnly(t *testing.T) {
	later := scoredEntry(100, 10)
	earlier := scoredEntry(100, 1)

	ranked := rankEntries([]domain.Entry{later, earlier})
	require.Len(t, ranked, 2)

	// Earlier entry sorts first, but both still share rank 1.
	assert.Equal(t, earlier.ID, ranked[0].ID)
	assert.Equal(t, later.ID, ranked[1].ID)
	assert.Equal(t, 1, ranked[0].Rank)
	assert.Equal(t, 1, ranked[1].Rank)
}

func TestRankEntries_AllNegativeScores(t *testing.T) {
	entries := []domain.Entry{
		scoredEntry(-50, 0),
		scoredEntry(-10, 1),
		scoredEntry(-30, 2),
	}

	ranked := rankEntries(entries)
	require.Len(t, ranked, 3)

	assert.Equal(t, float64(-10), ranked[0].TotalScore)
	assert.Equal(t, 1, ranked[0].Rank)
	assert.Equal(t, float64(-30), ranked[1].TotalScore)
	assert.Equal(t, 2, ranked[1].Rank)
	assert.Equal(t, float64(-50), ranked[2].TotalScore)
	assert.Equal(t, 3, ranked[2].Rank)
}

func TestRankEntries_Empty(t *testing.T) {
	assert.Empty(t, rankEntries(nil))
}

func TestSplitEvenly(t *testing.T) {
	tests := []struct {
		name   string
		amount int64
		n      int
		want   int64
	}{
		{"exact division", 2400, 2, 1200},
		{"floors fractional cents", 5000, 3, 1666},
		{"single recipient", 2400, 1, 2400},
		{"zero recipients", 2400, 0, 0},
		{"zero amount", 0, 3, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, splitEvenly(tt.amount, tt.n))
		})
	}
}

func TestSplitEvenly_NeverOverpays(t *testing.T) {
	for n := 1; n <= 7; n++ {
		share := splitEvenly(2400, n)
		assert.LessOrEqual(t, share*int64(n), int64(2400), "n=%d", n)
	}
}

func TestNewStrategy(t *testing.T) {
	fixed, err := NewStrategy(&domain.Contest{Type: domain.ContestTypeFixedPool}, strategyDeps{})
	require.NoError(t, err)
	assert.IsType(t, &fixedPoolStrategy{}, fixed)

	tiered, err := NewStrategy(&domain.Contest{Type: domain.ContestTypeTieredPool}, strategyDeps{})
	require.NoError(t, err)
	assert.IsType(t, &tieredPoolStrategy{}, tiered)

	_, err = NewStrategy(&domain.Contest{Type: "head_to_head"}, strategyDeps{})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnknownContestType)
}

func TestGroupByRoom(t *testing.T) {
	e1 := scoredEntry(10, 0)
	e1.RoomNumber = 2
	e2 := scoredEntry(20, 1)
	e2.RoomNumber = 1
	e3 := scoredEntry(30, 2)
	e3.RoomNumber = 2

	rooms := groupByRoom([]domain.Entry{e1, e2, e3})
	require.Len(t, rooms, 2)

	assert.Equal(t, 1, rooms[0].number)
	assert.Len(t, rooms[0].entries, 1)
	assert.Equal(t, 2, rooms[1].number)
	assert.Len(t, rooms[1].entries, 2)
}
