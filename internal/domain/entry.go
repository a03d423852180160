package domain

import (
	"time"

	"github.com/google/uuid"
)

type EntryStatus string

const (
	EntryStatusPending EntryStatus = "pending"
	EntryStatusActive  EntryStatus = "active"
	// EntryStatusScored is the terminal pre-settlement status: the scoring
	// pipeline has written a final TotalScore and will not touch it again.
	EntryStatusScored EntryStatus = "scored"
)

// Entry is one user's participation in one contest. RoomNumber groups
// fixed-pool entries into independently settled rooms; it is zero for
// tiered-pool contests. FinalRank and PrizeCents are written exactly once,
// at settlement.
type Entry struct {
	ID         uuid.UUID
	ContestID  uuid.UUID
	UserID     uuid.UUID
	RoomNumber int
	Status     EntryStatus
	TotalScore float64
	FinalRank  *int
	PrizeCents *int64
	CreatedAt  time.Time
}
