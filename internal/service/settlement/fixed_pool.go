package settlement

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/draftpool/backend/internal/domain"
	"github.com/draftpool/backend/internal/logging"
)

// fixedPoolStrategy settles small cash games. Entries are grouped into rooms
// of contest.RoomSize; each room pays its flat pool, split evenly between
// every entry tied at the room's top score. Rooms with a wrong entry count
// are skipped with a warning and left unsettled rather than guessed at.
type fixedPoolStrategy struct {
	deps strategyDeps
}

func (s *fixedPoolStrategy) ComputePrizes(contest *domain.Contest, ranked []RankedEntry) map[uuid.UUID]int64 {
	prizes := make(map[uuid.UUID]int64)
	if len(ranked) == 0 {
		return prizes
	}

	var winners []uuid.UUID
	for _, re := range ranked {
		if re.Rank == 1 {
			winners = append(winners, re.ID)
		}
	}

	share := splitEvenly(contest.PrizePoolCents, len(winners))
	for _, id := range winners {
		prizes[id] = share
	}
	return prizes
}

func (s *fixedPoolStrategy) Settle(ctx context.Context, tx *sql.Tx, contest *domain.Contest) (*Outcome, error) {
	log := logging.FromContext(ctx)

	entries, err := s.deps.entries.ListScored(ctx, tx, contest.ID)
	if err != nil {
		return nil, fmt.Errorf("fixedPool.Settle: %w", err)
	}

	outcome := &Outcome{}
	for _, room := range groupByRoom(entries) {
		if len(room.entries) != contest.RoomSize {
			log.Warn("skipping room with unexpected entry count",
				"contest_id", contest.ID,
				"room_number", room.number,
				"entry_count", len(room.entries),
				"room_size", contest.RoomSize,
				"error", domain.ErrRoomSizeMismatch,
			)
			outcome.SkippedRooms = append(outcome.SkippedRooms, room.number)
			continue
		}

		ranked := rankEntries(room.entries)
		prizes := s.ComputePrizes(contest, ranked)

		roomOutcome, err := applyResults(ctx, tx, s.deps, contest, ranked, prizes)
		if err != nil {
			return nil, fmt.Errorf("fixedPool.Settle: room %d: %w", room.number, err)
		}
		outcome.merge(roomOutcome)
	}
	return outcome, nil
}

func (s *fixedPoolStrategy) Preview(ctx context.Context, contest *domain.Contest) (*PreviewResult, error) {
	entries, err := s.deps.entries.ListScoredReadOnly(ctx, contest.ID)
	if err != nil {
		return nil, fmt.Errorf("fixedPool.Preview: %w", err)
	}

	preview := &PreviewResult{ContestID: contest.ID}
	for _, room := range groupByRoom(entries) {
		if len(room.entries) != contest.RoomSize {
			preview.SkippedRooms = append(preview.SkippedRooms, room.number)
			continue
		}
		ranked := rankEntries(room.entries)
		prizes := s.ComputePrizes(contest, ranked)
		preview.appendRanked(ranked, prizes)
	}
	return preview, nil
}

type room struct {
	number  int
	entries []domain.Entry
}

func groupByRoom(entries []domain.Entry) []room {
	byNumber := make(map[int][]domain.Entry)
	for _, e := range entries {
		byNumber[e.RoomNumber] = append(byNumber[e.RoomNumber], e)
	}

	numbers := make([]int, 0, len(byNumber))
	for n := range byNumber {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)

	rooms := make([]room, 0, len(numbers))
	for _, n := range numbers {
		rooms = append(rooms, room{number: n, entries: byNumber[n]})
	}
	return rooms
}
