package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/draftpool/backend/internal/domain"
)

const entryColumns = `id, contest_id, user_id, room_number, status, total_score,
	final_rank, prize_cents, created_at`

type EntryRepository struct {
	db *sql.DB
}

func NewEntryRepository(db *sql.DB) *EntryRepository {
	return &EntryRepository{db: db}
}

// ListScored returns every entry of a contest in terminal scored status,
// inside the settlement transaction.
func (r *EntryRepository) ListScored(ctx context.Context, tx *sql.Tx, contestID uuid.UUID) ([]domain.Entry, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM entries
		WHERE contest_id = $1 AND status = $2
		ORDER BY total_score DESC, created_at ASC`,
		contestID, domain.EntryStatusScored,
	)
	if err != nil {
		return nil, fmt.Errorf("ListScored: %w", err)
	}
	return collectEntries(rows, "ListScored")
}

// ListScoredReadOnly is the lock-free variant used by settlement previews.
func (r *EntryRepository) ListScoredReadOnly(ctx context.Context, contestID uuid.UUID) ([]domain.Entry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM entries
		WHERE contest_id = $1 AND status = $2
		ORDER BY total_score DESC, created_at ASC`,
		contestID, domain.EntryStatusScored,
	)
	if err != nil {
		return nil, fmt.Errorf("ListScoredReadOnly: %w", err)
	}
	return collectEntries(rows, "ListScoredReadOnly")
}

func (r *EntryRepository) Create(ctx context.Context, entry *domain.Entry) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO entries (
			id, contest_id, user_id, room_number, status, total_score,
			final_rank, prize_cents, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		entry.ID, entry.ContestID, entry.UserID, entry.RoomNumber,
		entry.Status, entry.TotalScore, entry.FinalRank, entry.PrizeCents,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

// SetSettlement writes the final rank and prize once, at settlement time.
func (r *EntryRepository) SetSettlement(ctx context.Context, tx *sql.Tx, entryID uuid.UUID, rank int, prizeCents int64) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE entries SET final_rank = $1, prize_cents = $2
		WHERE id = $3 AND final_rank IS NULL`,
		rank, prizeCents, entryID,
	)
	if err != nil {
		return fmt.Errorf("SetSettlement: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("SetSettlement: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("SetSettlement: entry %s already settled: %w", entryID, domain.ErrAlreadySettled)
	}
	return nil
}

func collectEntries(rows *sql.Rows, op string) ([]domain.Entry, error) {
	defer rows.Close()

	var entries []domain.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", op, err)
	}
	return entries, nil
}

func scanEntry(s scanner) (*domain.Entry, error) {
	var e domain.Entry
	err := s.Scan(
		&e.ID, &e.ContestID, &e.UserID, &e.RoomNumber, &e.Status,
		&e.TotalScore, &e.FinalRank, &e.PrizeCents, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}
