package domain

import (
	"time"

	"github.com/google/uuid"
)

type ContestType string

const (
	// ContestTypeFixedPool is a small cash game split into rooms of a fixed
	// size; each room pays its flat pool to the top score(s) in that room.
	ContestTypeFixedPool ContestType = "fixed_pool"
	// ContestTypeTieredPool is a large tournament paying out by rank against
	// a published payout table.
	ContestTypeTieredPool ContestType = "tiered_pool"
)

type ContestStatus string

const (
	ContestStatusOpen       ContestStatus = "open"
	ContestStatusClosed     ContestStatus = "closed"
	ContestStatusInProgress ContestStatus = "in_progress"
	ContestStatusCompleted  ContestStatus = "completed"
	ContestStatusSettled    ContestStatus = "settled"
)

// PayoutTier maps an inclusive rank range to a per-rank prize in cents.
type PayoutTier struct {
	FromRank    int   `json:"from_rank"`
	ToRank      int   `json:"to_rank"`
	AmountCents int64 `json:"amount_cents"`
}

type PayoutTable []PayoutTier

// AmountForRank returns the prize for a single rank; ranks beyond the table
// pay zero.
func (t PayoutTable) AmountForRank(rank int) int64 {
	for _, tier := range t {
		if rank >= tier.FromRank && rank <= tier.ToRank {
			return tier.AmountCents
		}
	}
	return 0
}

type Contest struct {
	ID             uuid.UUID
	Name           string
	Type           ContestType
	Status         ContestStatus
	EntryFeeCents  int64
	PrizePoolCents int64
	PayoutTable    PayoutTable
	Capacity       int
	RoomSize       int
	SettledAt      *time.Time
	CreatedAt      time.Time
}

// Settleable reports whether the contest status permits settlement.
func (c *Contest) Settleable() bool {
	switch c.Status {
	case ContestStatusClosed, ContestStatusInProgress, ContestStatusCompleted:
		return true
	}
	return false
}
