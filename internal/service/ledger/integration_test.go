package ledger_test

import (
	"context"
	"database/sql"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/draftpool/backend/internal/domain"
	"github.com/draftpool/backend/internal/repository"
	"github.com/draftpool/backend/internal/service/ledger"
	"github.com/draftpool/backend/internal/testutil"
)

func setupLedgerTest(t *testing.T, db *sql.DB) *ledger.Service {
	t.Helper()
	return ledger.NewService(
		repository.NewAccountRepository(db),
		repository.NewLedgerRepository(db),
		db,
	)
}

func countEntriesForAccount(t *testing.T, db *sql.DB, accountID uuid.UUID) int {
	t.Helper()
	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM ledger_entries WHERE account_id = $1`, accountID).Scan(&count)
	require.NoError(t, err)
	return count
}

func TestRecord_CreditUpdatesBalanceAndAppendsEntry(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	svc := setupLedgerTest(t, db)

	_, acct := testutil.SeedTestUser(t, db, "alice@test.com", "Alice")

	res, err := svc.Record(ctx, ledger.RecordRequest{
		AccountID: acct.ID,
		Amount:    5000,
		Category:  domain.LedgerCategoryDeposit,
	})
	require.NoError(t, err)
	require.False(t, res.Duplicate)

	assert.Equal(t, int64(5000), res.Entry.Amount)
	assert.Equal(t, int64(0), res.Entry.BalanceBefore)
	assert.Equal(t, int64(5000), res.Entry.BalanceAfter)
	assert.Equal(t, int64(5000), testutil.GetAccountBalance(t, db, acct.ID))
	assert.Equal(t, 1, countEntriesForAccount(t, db, acct.ID))
}

func TestRecord_DebitAgainstSufficientBalance(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	svc := setupLedgerTest(t, db)

	_, acct := testutil.SeedTestUser(t, db, "bob@test.com", "Bob")
	_, err := svc.Record(ctx, ledger.RecordRequest{
		AccountID: acct.ID,
		Amount:    10_000,
		Category:  domain.LedgerCategoryDeposit,
	})
	require.NoError(t, err)

	res, err := svc.Record(ctx, ledger.RecordRequest{
		AccountID: acct.ID,
		Amount:    -4_000,
		Category:  domain.LedgerCategoryEntryFee,
	})
	require.NoError(t, err)

	assert.Equal(t, int64(10_000), res.Entry.BalanceBefore)
	assert.Equal(t, int64(6_000), res.Entry.BalanceAfter)
	assert.Equal(t, int64(6_000), testutil.GetAccountBalance(t, db, acct.ID))
}

func TestRecord_InsufficientFundsLeavesNothingBehind(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	svc := setupLedgerTest(t, db)

	_, acct := testutil.SeedTestUser(t, db, "dave@test.com", "Dave")

	_, err := svc.Record(ctx, ledger.RecordRequest{
		AccountID: acct.ID,
		Amount:    -100,
		Category:  domain.LedgerCategoryEntryFee,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)

	assert.Equal(t, int64(0), testutil.GetAccountBalance(t, db, acct.ID))
	assert.Equal(t, 0, countEntriesForAccount(t, db, acct.ID))
}

func TestRecord_IdempotentReplayShortCircuits(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	svc := setupLedgerTest(t, db)

	_, acct := testutil.SeedTestUser(t, db, "erin@test.com", "Erin")

	key := "provider:tx-abc-123"
	req := ledger.RecordRequest{
		AccountID:      acct.ID,
		Amount:         2_500,
		Category:       domain.LedgerCategoryDeposit,
		IdempotencyKey: &key,
	}

	first, err := svc.Record(ctx, req)
	require.NoError(t, err)
	require.False(t, first.Duplicate)

	second, err := svc.Record(ctx, req)
	require.NoError(t, err)
	assert.True(t, second.Duplicate)
	assert.Equal(t, first.Entry.ID, second.Entry.ID)

	// Exactly one entry and one balance change.
	assert.Equal(t, int64(2_500), testutil.GetAccountBalance(t, db, acct.ID))
	assert.Equal(t, 1, countEntriesForAccount(t, db, acct.ID))
}

func TestRecord_ConcurrentSameKeyAppliesOnce(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	svc := setupLedgerTest(t, db)

	_, acct := testutil.SeedTestUser(t, db, "mallory@test.com", "Mallory")

	key := "provider:tx-race-1"
	req := ledger.RecordRequest{
		AccountID:      acct.ID,
		Amount:         2_500,
		Category:       domain.LedgerCategoryDeposit,
		IdempotencyKey: &key,
	}

	// The key is checked under the account row lock, so of two concurrent
	// writers one applies and the other short-circuits as a duplicate
	// instead of tripping the unique constraint.
	var wg sync.WaitGroup
	results := make([]*ledger.RecordResult, 2)
	errs := make([]error, 2)
	for i := range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = svc.Record(ctx, req)
		}()
	}
	wg.Wait()

	duplicates := 0
	for i := range 2 {
		require.NoError(t, errs[i])
		if results[i].Duplicate {
			duplicates++
		}
	}
	assert.Equal(t, 1, duplicates)

	assert.Equal(t, int64(2_500), testutil.GetAccountBalance(t, db, acct.ID))
	assert.Equal(t, 1, countEntriesForAccount(t, db, acct.ID))
}

func TestRecord_ReplayOnFrozenAccountStillShortCircuits(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	svc := setupLedgerTest(t, db)

	_, acct := testutil.SeedTestUser(t, db, "nina@test.com", "Nina")

	key := "provider:tx-def-456"
	req := ledger.RecordRequest{
		AccountID: acct.ID,
		Amount:    -1_000,
		Category:  domain.LedgerCategoryWithdrawal,
	}
	_, err := svc.Record(ctx, ledger.RecordRequest{
		AccountID: acct.ID,
		Amount:    5_000,
		Category:  domain.LedgerCategoryDeposit,
	})
	require.NoError(t, err)

	req.IdempotencyKey = &key
	first, err := svc.Record(ctx, req)
	require.NoError(t, err)
	require.False(t, first.Duplicate)

	_, err = db.Exec(`UPDATE accounts SET status = 'frozen' WHERE id = $1`, acct.ID)
	require.NoError(t, err)

	// The replay resolves by key before the status check, so freezing the
	// account afterwards does not turn a redelivery into an error.
	second, err := svc.Record(ctx, req)
	require.NoError(t, err)
	assert.True(t, second.Duplicate)
	assert.Equal(t, first.Entry.ID, second.Entry.ID)
	assert.Equal(t, int64(4_000), testutil.GetAccountBalance(t, db, acct.ID))
}

func TestRecord_FrozenAccountBlocksDebitsOnly(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	svc := setupLedgerTest(t, db)

	_, acct := testutil.SeedTestUser(t, db, "frank@test.com", "Frank")
	_, err := svc.Record(ctx, ledger.RecordRequest{
		AccountID: acct.ID,
		Amount:    5_000,
		Category:  domain.LedgerCategoryDeposit,
	})
	require.NoError(t, err)

	_, err = db.Exec(`UPDATE accounts SET status = 'frozen' WHERE id = $1`, acct.ID)
	require.NoError(t, err)

	_, err = svc.Record(ctx, ledger.RecordRequest{
		AccountID: acct.ID,
		Amount:    -1_000,
		Category:  domain.LedgerCategoryWithdrawal,
	})
	assert.ErrorIs(t, err, domain.ErrAccountFrozen)

	res, err := svc.Record(ctx, ledger.RecordRequest{
		AccountID: acct.ID,
		Amount:    750,
		Category:  domain.LedgerCategoryWinnings,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5_750), res.Entry.BalanceAfter)
}

func TestRecord_ClosedAccountBlocksEverything(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	svc := setupLedgerTest(t, db)

	_, acct := testutil.SeedTestUser(t, db, "grace@test.com", "Grace")
	_, err := db.Exec(`UPDATE accounts SET status = 'closed' WHERE id = $1`, acct.ID)
	require.NoError(t, err)

	_, err = svc.Record(ctx, ledger.RecordRequest{
		AccountID: acct.ID,
		Amount:    100,
		Category:  domain.LedgerCategoryDeposit,
	})
	assert.ErrorIs(t, err, domain.ErrAccountClosed)
}

func TestRecord_UnknownAccount(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	svc := setupLedgerTest(t, db)

	_, err := svc.Record(ctx, ledger.RecordRequest{
		AccountID: uuid.New(),
		Amount:    100,
		Category:  domain.LedgerCategoryDeposit,
	})
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestReconcile_MatchAndMismatch(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	svc := setupLedgerTest(t, db)

	_, acct := testutil.SeedTestUser(t, db, "heidi@test.com", "Heidi")
	_, err := svc.Record(ctx, ledger.RecordRequest{
		AccountID: acct.ID,
		Amount:    3_000,
		Category:  domain.LedgerCategoryDeposit,
	})
	require.NoError(t, err)
	_, err = svc.Record(ctx, ledger.RecordRequest{
		AccountID: acct.ID,
		Amount:    -1_200,
		Category:  domain.LedgerCategoryEntryFee,
	})
	require.NoError(t, err)

	report, err := svc.Reconcile(ctx, acct.ID)
	require.NoError(t, err)
	assert.True(t, report.Reconciled)
	assert.Equal(t, int64(1_800), report.Balance)
	assert.Equal(t, int64(1_800), report.LedgerSum)
	assert.Equal(t, int64(0), report.Discrepancy)

	// Corrupt the balance behind the ledger's back.
	_, err = db.Exec(`UPDATE accounts SET balance = balance + 500 WHERE id = $1`, acct.ID)
	require.NoError(t, err)

	report, err = svc.Reconcile(ctx, acct.ID)
	require.NoError(t, err)
	assert.False(t, report.Reconciled)
	assert.Equal(t, int64(500), report.Discrepancy)
	// Report only: the stored balance is untouched.
	assert.Equal(t, int64(2_300), testutil.GetAccountBalance(t, db, acct.ID))
}

func TestReconcile_ToleranceBoundary(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	svc := setupLedgerTest(t, db)

	_, acct := testutil.SeedTestUser(t, db, "oscar@test.com", "Oscar")
	_, err := svc.Record(ctx, ledger.RecordRequest{
		AccountID: acct.ID,
		Amount:    2_000,
		Category:  domain.LedgerCategoryDeposit,
	})
	require.NoError(t, err)

	// A single cent of drift is within tolerance.
	_, err = db.Exec(`UPDATE accounts SET balance = balance + 1 WHERE id = $1`, acct.ID)
	require.NoError(t, err)

	report, err := svc.Reconcile(ctx, acct.ID)
	require.NoError(t, err)
	assert.True(t, report.Reconciled)
	assert.Equal(t, int64(1), report.Discrepancy)

	// Two cents is not, in either direction.
	_, err = db.Exec(`UPDATE accounts SET balance = balance - 3 WHERE id = $1`, acct.ID)
	require.NoError(t, err)

	report, err = svc.Reconcile(ctx, acct.ID)
	require.NoError(t, err)
	assert.False(t, report.Reconciled)
	assert.Equal(t, int64(-2), report.Discrepancy)
}

func TestReconcileAll_CollectsMismatches(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	svc := setupLedgerTest(t, db)

	_, good := testutil.SeedTestUser(t, db, "ivan@test.com", "Ivan")
	_, bad := testutil.SeedTestUser(t, db, "judy@test.com", "Judy")

	_, err := svc.Record(ctx, ledger.RecordRequest{
		AccountID: good.ID,
		Amount:    1_000,
		Category:  domain.LedgerCategoryDeposit,
	})
	require.NoError(t, err)

	_, err = db.Exec(`UPDATE accounts SET balance = 999 WHERE id = $1`, bad.ID)
	require.NoError(t, err)

	report, err := svc.ReconcileAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Total)
	require.Equal(t, 1, report.Mismatched)
	assert.Equal(t, bad.ID, report.Mismatches[0].AccountID)
}

func TestEntriesForAccount_PagesNewestFirst(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	svc := setupLedgerTest(t, db)

	_, acct := testutil.SeedTestUser(t, db, "kate@test.com", "Kate")
	for i := range 5 {
		_, err := svc.Record(ctx, ledger.RecordRequest{
			AccountID: acct.ID,
			Amount:    int64(100 * (i + 1)),
			Category:  domain.LedgerCategoryDeposit,
		})
		require.NoError(t, err)
	}

	page, total, err := svc.EntriesForAccount(ctx, acct.ID, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, page, 2)
	assert.Equal(t, int64(500), page[0].Amount)
	assert.Equal(t, int64(400), page[1].Amount)

	rest, _, err := svc.EntriesForAccount(ctx, acct.ID, 10, 2)
	require.NoError(t, err)
	assert.Len(t, rest, 3)
}
