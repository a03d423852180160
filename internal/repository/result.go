package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/draftpool/backend/internal/domain"
)

const resultColumns = `id, contest_id, entry_id, user_id, account_id, rank, score,
	prize_cents, created_at`

type ResultRepository struct {
	db *sql.DB
}

func NewResultRepository(db *sql.DB) *ResultRepository {
	return &ResultRepository{db: db}
}

func (r *ResultRepository) Create(ctx context.Context, tx *sql.Tx, result *domain.Result) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO results (
			id, contest_id, entry_id, user_id, account_id, rank, score,
			prize_cents, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		result.ID, result.ContestID, result.EntryID, result.UserID,
		result.AccountID, result.Rank, result.Score, result.PrizeCents,
		result.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *ResultRepository) GetByContestID(ctx context.Context, contestID uuid.UUID) ([]domain.Result, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+resultColumns+` FROM results
		WHERE contest_id = $1 ORDER BY rank, created_at`,
		contestID,
	)
	if err != nil {
		return nil, fmt.Errorf("GetByContestID: %w", err)
	}
	defer rows.Close()

	var results []domain.Result
	for rows.Next() {
		res, err := scanResult(rows)
		if err != nil {
			return nil, fmt.Errorf("GetByContestID: scan: %w", err)
		}
		results = append(results, *res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("GetByContestID: rows: %w", err)
	}
	return results, nil
}

func scanResult(s scanner) (*domain.Result, error) {
	var r domain.Result
	err := s.Scan(
		&r.ID, &r.ContestID, &r.EntryID, &r.UserID, &r.AccountID,
		&r.Rank, &r.Score, &r.PrizeCents, &r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}
