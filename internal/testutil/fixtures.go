package testutil

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/draftpool/backend/internal/domain"
	"github.com/draftpool/backend/internal/repository"
)

// SeedTestUser creates a user with an active zero-balance account and
// returns both.
func SeedTestUser(t *testing.T, db *sql.DB, email, name string) (*domain.User, *domain.Account) {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	u := &domain.User{
		ID:           uuid.New(),
		Email:        email,
		Name:         name,
		PasswordHash: string(hash),
		Status:       domain.UserStatusActive,
		CreatedAt:    time.Now().UTC(),
	}

	_, err = db.Exec(
		`INSERT INTO users (id, email, name, password_hash, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		u.ID, u.Email, u.Name, u.PasswordHash, u.Status, u.CreatedAt,
	)
	if err != nil {
		t.Fatalf("seed test user %s: %v", email, err)
	}

	return u, SeedTestAccount(t, db, u.ID, 0)
}

func SeedTestAccount(t *testing.T, db *sql.DB, userID uuid.UUID, balance int64) *domain.Account {
	t.Helper()

	a := &domain.Account{
		ID:        uuid.New(),
		UserID:    userID,
		Balance:   balance,
		Version:   0,
		Status:    domain.AccountStatusActive,
		CreatedAt: time.Now().UTC(),
	}

	if err := repository.NewAccountRepository(db).Create(context.Background(), a); err != nil {
		t.Fatalf("seed test account for user %s: %v", userID, err)
	}
	return a
}

func SeedFixedPoolContest(t *testing.T, db *sql.DB, poolCents int64, roomSize, capacity int) *domain.Contest {
	t.Helper()

	c := &domain.Contest{
		ID:             uuid.New(),
		Name:           "test fixed pool",
		Type:           domain.ContestTypeFixedPool,
		Status:         domain.ContestStatusCompleted,
		PrizePoolCents: poolCents,
		Capacity:       capacity,
		RoomSize:       roomSize,
		CreatedAt:      time.Now().UTC(),
	}
	insertContest(t, db, c)
	return c
}

func SeedTieredPoolContest(t *testing.T, db *sql.DB, table domain.PayoutTable, capacity int) *domain.Contest {
	t.Helper()

	c := &domain.Contest{
		ID:          uuid.New(),
		Name:        "test tiered pool",
		Type:        domain.ContestTypeTieredPool,
		Status:      domain.ContestStatusCompleted,
		PayoutTable: table,
		Capacity:    capacity,
		RoomSize:    0,
		CreatedAt:   time.Now().UTC(),
	}
	insertContest(t, db, c)
	return c
}

func insertContest(t *testing.T, db *sql.DB, c *domain.Contest) {
	t.Helper()

	if err := repository.NewContestRepository(db).Create(context.Background(), c); err != nil {
		t.Fatalf("seed contest: %v", err)
	}
}

func SetContestStatus(t *testing.T, db *sql.DB, contestID uuid.UUID, status domain.ContestStatus) {
	t.Helper()

	if _, err := db.Exec(`UPDATE contests SET status = $1 WHERE id = $2`, status, contestID); err != nil {
		t.Fatalf("set contest status: %v", err)
	}
}

// SeedScoredEntry creates an entry already in terminal scored status.
// CreatedAt is staggered by insertion order so tie-break ordering is stable
// in tests.
func SeedScoredEntry(t *testing.T, db *sql.DB, contestID, userID uuid.UUID, roomNumber int, score float64) *domain.Entry {
	t.Helper()

	e := &domain.Entry{
		ID:         uuid.New(),
		ContestID:  contestID,
		UserID:     userID,
		RoomNumber: roomNumber,
		Status:     domain.EntryStatusScored,
		TotalScore: score,
		CreatedAt:  nextEntryTime(),
	}

	if err := repository.NewEntryRepository(db).Create(context.Background(), e); err != nil {
		t.Fatalf("seed entry: %v", err)
	}
	return e
}

var entrySeedClock = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func nextEntryTime() time.Time {
	entrySeedClock = entrySeedClock.Add(time.Second)
	return entrySeedClock
}

func GetAccountBalance(t *testing.T, db *sql.DB, accountID uuid.UUID) int64 {
	t.Helper()

	var balance int64
	err := db.QueryRow(`SELECT balance FROM accounts WHERE id = $1`, accountID).Scan(&balance)
	if err != nil {
		t.Fatalf("get account balance %s: %v", accountID, err)
	}
	return balance
}

func GetContestStatus(t *testing.T, db *sql.DB, contestID uuid.UUID) string {
	t.Helper()

	var status string
	err := db.QueryRow(`SELECT status FROM contests WHERE id = $1`, contestID).Scan(&status)
	if err != nil {
		t.Fatalf("get contest status %s: %v", contestID, err)
	}
	return status
}

func CountLedgerEntriesForContest(t *testing.T, db *sql.DB, contestID uuid.UUID) int {
	t.Helper()

	var count int
	err := db.QueryRow(
		`SELECT COUNT(*) FROM ledger_entries WHERE reference_type = 'contest' AND reference_id = $1`,
		contestID,
	).Scan(&count)
	if err != nil {
		t.Fatalf("count ledger entries for contest %s: %v", contestID, err)
	}
	return count
}

func CountResults(t *testing.T, db *sql.DB, contestID uuid.UUID) int {
	t.Helper()

	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM results WHERE contest_id = $1`, contestID).Scan(&count)
	if err != nil {
		t.Fatalf("count results for contest %s: %v", contestID, err)
	}
	return count
}
