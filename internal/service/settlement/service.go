// Package settlement converts a finished contest's ranked entries into prize
// payouts, exactly once per contest.
package settlement

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/draftpool/backend/internal/domain"
	"github.com/draftpool/backend/internal/logging"
)

type contestRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Contest, error)
	GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Contest, error)
	ListByStatus(ctx context.Context, status domain.ContestStatus, limit int) ([]domain.Contest, error)
	UpdateStatus(ctx context.Context, tx *sql.Tx, id uuid.UUID, status domain.ContestStatus) error
	MarkSettled(ctx context.Context, tx *sql.Tx, id uuid.UUID, settledAt time.Time) error
	CountEntries(ctx context.Context, tx *sql.Tx, contestID uuid.UUID) (int, error)
}

type entryRepo interface {
	ListScored(ctx context.Context, tx *sql.Tx, contestID uuid.UUID) ([]domain.Entry, error)
	ListScoredReadOnly(ctx context.Context, contestID uuid.UUID) ([]domain.Entry, error)
	SetSettlement(ctx context.Context, tx *sql.Tx, entryID uuid.UUID, rank int, prizeCents int64) error
}

type resultRepo interface {
	Create(ctx context.Context, tx *sql.Tx, result *domain.Result) error
}

type accountRepo interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Account, error)
}

// Service is the settlement orchestrator. All collaborators are injected at
// construction; it owns no state beyond them.
type Service struct {
	contests   contestRepo
	deps       strategyDeps
	db         *sql.DB
	batchLimit int
}

func NewService(
	contests contestRepo,
	entries entryRepo,
	results resultRepo,
	accounts accountRepo,
	distributor *Distributor,
	db *sql.DB,
	batchLimit int,
) *Service {
	return &Service{
		contests: contests,
		deps: strategyDeps{
			entries:     entries,
			results:     results,
			accounts:    accounts,
			distributor: distributor,
		},
		db:         db,
		batchLimit: batchLimit,
	}
}

type Summary struct {
	ContestID      uuid.UUID
	Settled        bool
	TotalEntries   int
	Winners        []Winner
	Results        []domain.Result
	SkippedRooms   []int
	Credited       int
	TotalPaidCents int64
	SettledAt      time.Time
}

// SettleContest settles one contest in a single serializable transaction.
// The contest row lock taken up front totally orders concurrent attempts:
// the loser of the race ends with ErrAlreadySettled and no side effects.
//
// Under serializable isolation the losing transaction aborts with a
// serialization failure when the winner commits under it, so one retry is
// made: the fresh snapshot observes the committed settled status.
func (s *Service) SettleContest(ctx context.Context, contestID uuid.UUID) (*Summary, error) {
	summary, err := s.settleContestOnce(ctx, contestID)
	if err != nil && isSerializationFailure(err) {
		logging.FromContext(ctx).Warn("settlement transaction aborted by concurrent update, retrying",
			"contest_id", contestID,
		)
		return s.settleContestOnce(ctx, contestID)
	}
	return summary, err
}

func isSerializationFailure(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "40001"
}

func (s *Service) settleContestOnce(ctx context.Context, contestID uuid.UUID) (*Summary, error) {
	log := logging.FromContext(ctx)

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, fmt.Errorf("SettleContest: begin tx: %w", err)
	}
	defer tx.Rollback()

	contest, err := s.contests.GetForUpdate(ctx, tx, contestID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("SettleContest: %w", domain.ErrContestNotFound)
		}
		return nil, fmt.Errorf("SettleContest: %w", err)
	}

	if contest.Status == domain.ContestStatusSettled {
		return nil, fmt.Errorf("SettleContest: %w", domain.ErrAlreadySettled)
	}

	if contest.Status == domain.ContestStatusOpen {
		if err := s.repairOpenAtCapacity(ctx, tx, contest); err != nil {
			return nil, fmt.Errorf("SettleContest: %w", err)
		}
	}

	if !contest.Settleable() {
		return nil, fmt.Errorf("SettleContest: status %q: %w", contest.Status, domain.ErrContestNotReady)
	}

	strategy, err := NewStrategy(contest, s.deps)
	if err != nil {
		return nil, fmt.Errorf("SettleContest: %w", err)
	}

	outcome, err := strategy.Settle(ctx, tx, contest)
	if err != nil {
		return nil, fmt.Errorf("SettleContest: %w", err)
	}

	now := time.Now().UTC()
	if err := s.contests.MarkSettled(ctx, tx, contestID, now); err != nil {
		return nil, fmt.Errorf("SettleContest: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("SettleContest: commit: %w", err)
	}

	log.Info("contest settled",
		"contest_id", contestID,
		"contest_type", contest.Type,
		"total_entries", outcome.TotalEntries,
		"winners", len(outcome.Winners),
		"total_paid_cents", outcome.TotalPaidCents,
		"skipped_rooms", len(outcome.SkippedRooms),
	)

	return &Summary{
		ContestID:      contestID,
		Settled:        true,
		TotalEntries:   outcome.TotalEntries,
		Winners:        outcome.Winners,
		Results:        outcome.Results,
		SkippedRooms:   outcome.SkippedRooms,
		Credited:       outcome.Credited,
		TotalPaidCents: outcome.TotalPaidCents,
		SettledAt:      now,
	}, nil
}

// repairOpenAtCapacity flips a full contest that upstream lifecycle left in
// open status to closed, inside the settlement lock. The condition is an
// upstream race; it is repaired here so settlement can proceed, and logged
// loudly so it gets fixed at the source.
func (s *Service) repairOpenAtCapacity(ctx context.Context, tx *sql.Tx, contest *domain.Contest) error {
	count, err := s.contests.CountEntries(ctx, tx, contest.ID)
	if err != nil {
		return fmt.Errorf("repairOpenAtCapacity: %w", err)
	}
	if count < contest.Capacity {
		return nil
	}

	logging.FromContext(ctx).Warn("contest open at capacity, auto-closing before settlement",
		"contest_id", contest.ID,
		"entry_count", count,
		"capacity", contest.Capacity,
	)
	if err := s.contests.UpdateStatus(ctx, tx, contest.ID, domain.ContestStatusClosed); err != nil {
		return fmt.Errorf("repairOpenAtCapacity: %w", err)
	}
	contest.Status = domain.ContestStatusClosed
	return nil
}

type ContestOutcome struct {
	ContestID uuid.UUID
	Summary   *Summary
	Err       error
}

type BatchSummary struct {
	Total      int
	Successful int
	Failed     int
	Outcomes   []ContestOutcome
}

// SettleAllReady settles every completed contest independently; one
// contest's failure never blocks the rest.
func (s *Service) SettleAllReady(ctx context.Context) (*BatchSummary, error) {
	log := logging.FromContext(ctx)

	contests, err := s.contests.ListByStatus(ctx, domain.ContestStatusCompleted, s.batchLimit)
	if err != nil {
		return nil, fmt.Errorf("SettleAllReady: %w", err)
	}

	batch := &BatchSummary{Total: len(contests)}
	for _, c := range contests {
		summary, err := s.SettleContest(ctx, c.ID)
		if err != nil {
			log.Error("contest settlement failed",
				"contest_id", c.ID,
				"error", err,
			)
			batch.Failed++
			batch.Outcomes = append(batch.Outcomes, ContestOutcome{ContestID: c.ID, Err: err})
			continue
		}
		batch.Successful++
		batch.Outcomes = append(batch.Outcomes, ContestOutcome{ContestID: c.ID, Summary: summary})
	}
	return batch, nil
}

type ProjectedEntry struct {
	EntryID             uuid.UUID
	UserID              uuid.UUID
	RoomNumber          int
	Rank                int
	Score               float64
	ProjectedPrizeCents int64
}

type PreviewResult struct {
	ContestID           uuid.UUID
	Entries             []ProjectedEntry
	SkippedRooms        []int
	TotalProjectedCents int64
}

func (p *PreviewResult) appendRanked(ranked []RankedEntry, prizes map[uuid.UUID]int64) {
	for _, re := range ranked {
		prize := prizes[re.ID]
		p.Entries = append(p.Entries, ProjectedEntry{
			EntryID:             re.ID,
			UserID:              re.UserID,
			RoomNumber:          re.RoomNumber,
			Rank:                re.Rank,
			Score:               re.TotalScore,
			ProjectedPrizeCents: prize,
		})
		p.TotalProjectedCents += prize
	}
}

// PreviewSettlement computes ranks and projected prizes for operator review
// without taking locks or writing anything.
func (s *Service) PreviewSettlement(ctx context.Context, contestID uuid.UUID) (*PreviewResult, error) {
	contest, err := s.contests.GetByID(ctx, contestID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("PreviewSettlement: %w", domain.ErrContestNotFound)
		}
		return nil, fmt.Errorf("PreviewSettlement: %w", err)
	}

	strategy, err := NewStrategy(contest, s.deps)
	if err != nil {
		return nil, fmt.Errorf("PreviewSettlement: %w", err)
	}

	preview, err := strategy.Preview(ctx, contest)
	if err != nil {
		return nil, fmt.Errorf("PreviewSettlement: %w", err)
	}
	return preview, nil
}
