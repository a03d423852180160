package domain

import (
	"time"

	"github.com/google/uuid"
)

type AccountStatus string

const (
	AccountStatusActive AccountStatus = "active"
	AccountStatusFrozen AccountStatus = "frozen"
	AccountStatusClosed AccountStatus = "closed"
)

// Account holds a user's cash balance in cents. The balance column is only
// ever written by the ledger service, inside the same transaction that
// inserts the matching ledger entry.
type Account struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Balance   int64
	Version   int64
	Status    AccountStatus
	CreatedAt time.Time
}
