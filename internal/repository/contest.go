package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/draftpool/backend/internal/domain"
)

const contestColumns = `id, name, contest_type, status, entry_fee_cents, prize_pool_cents,
	payout_table, capacity, room_size, settled_at, created_at`

type ContestRepository struct {
	db *sql.DB
}

func NewContestRepository(db *sql.DB) *ContestRepository {
	return &ContestRepository{db: db}
}

func (r *ContestRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Contest, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+contestColumns+` FROM contests WHERE id = $1`, id,
	)
	c, err := scanContest(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return c, nil
}

// GetForUpdate takes the contest row lock that serializes settlement
// attempts for one contest.
func (r *ContestRepository) GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Contest, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+contestColumns+` FROM contests WHERE id = $1 FOR UPDATE`, id,
	)
	c, err := scanContest(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetForUpdate: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetForUpdate: %w", err)
	}
	return c, nil
}

func (r *ContestRepository) Create(ctx context.Context, contest *domain.Contest) error {
	table, err := marshalPayoutTable(contest.PayoutTable)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO contests (
			id, name, contest_type, status, entry_fee_cents, prize_pool_cents,
			payout_table, capacity, room_size, settled_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		contest.ID, contest.Name, contest.Type, contest.Status,
		contest.EntryFeeCents, contest.PrizePoolCents, table,
		contest.Capacity, contest.RoomSize, contest.SettledAt, contest.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *ContestRepository) ListByStatus(ctx context.Context, status domain.ContestStatus, limit int) ([]domain.Contest, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+contestColumns+` FROM contests
		WHERE status = $1 ORDER BY created_at LIMIT $2`,
		status, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("ListByStatus: %w", err)
	}
	defer rows.Close()

	var contests []domain.Contest
	for rows.Next() {
		c, err := scanContest(rows)
		if err != nil {
			return nil, fmt.Errorf("ListByStatus: scan: %w", err)
		}
		contests = append(contests, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListByStatus: rows: %w", err)
	}
	return contests, nil
}

func (r *ContestRepository) UpdateStatus(ctx context.Context, tx *sql.Tx, id uuid.UUID, status domain.ContestStatus) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE contests SET status = $1 WHERE id = $2`, status, id,
	)
	if err != nil {
		return fmt.Errorf("UpdateStatus: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("UpdateStatus: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("UpdateStatus: %w", domain.ErrNotFound)
	}
	return nil
}

func (r *ContestRepository) MarkSettled(ctx context.Context, tx *sql.Tx, id uuid.UUID, settledAt time.Time) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE contests SET status = $1, settled_at = $2 WHERE id = $3 AND status <> $1`,
		domain.ContestStatusSettled, settledAt, id,
	)
	if err != nil {
		return fmt.Errorf("MarkSettled: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("MarkSettled: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("MarkSettled: %w", domain.ErrAlreadySettled)
	}
	return nil
}

func (r *ContestRepository) CountEntries(ctx context.Context, tx *sql.Tx, contestID uuid.UUID) (int, error) {
	var count int
	err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM entries WHERE contest_id = $1`, contestID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("CountEntries: %w", err)
	}
	return count, nil
}

func marshalPayoutTable(table domain.PayoutTable) ([]byte, error) {
	if table == nil {
		return nil, nil
	}
	b, err := json.Marshal(table)
	if err != nil {
		return nil, fmt.Errorf("marshal payout table: %w", err)
	}
	return b, nil
}

func scanContest(s scanner) (*domain.Contest, error) {
	var (
		c        domain.Contest
		rawTable []byte
	)
	err := s.Scan(
		&c.ID, &c.Name, &c.Type, &c.Status,
		&c.EntryFeeCents, &c.PrizePoolCents, &rawTable,
		&c.Capacity, &c.RoomSize, &c.SettledAt, &c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(rawTable) > 0 {
		if err := json.Unmarshal(rawTable, &c.PayoutTable); err != nil {
			return nil, fmt.Errorf("unmarshal payout table: %w", err)
		}
	}
	return &c, nil
}
