package domain

import (
	"time"

	"github.com/google/uuid"
)

// Result is the permanent settlement receipt for one entry, denormalized so
// payout history survives any later changes to contest or entry rows.
type Result struct {
	ID         uuid.UUID
	ContestID  uuid.UUID
	EntryID    uuid.UUID
	UserID     uuid.UUID
	AccountID  uuid.UUID
	Rank       int
	Score      float64
	PrizeCents int64
	CreatedAt  time.Time
}
