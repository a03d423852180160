package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/draftpool/backend/internal/domain"
)

type contestReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Contest, error)
}

type resultReader interface {
	GetByContestID(ctx context.Context, contestID uuid.UUID) ([]domain.Result, error)
}

type ResultsHandler struct {
	contests contestReader
	results  resultReader
}

func NewResultsHandler(contests contestReader, results resultReader) *ResultsHandler {
	return &ResultsHandler{contests: contests, results: results}
}

type contestResultResponse struct {
	EntryID    uuid.UUID `json:"entry_id"`
	UserID     uuid.UUID `json:"user_id"`
	Rank       int       `json:"rank"`
	Score      float64   `json:"score"`
	PrizeCents int64     `json:"prize_cents"`
	CreatedAt  time.Time `json:"created_at"`
}

// GetContestResults returns the final standings written at settlement,
// ordered by rank. An unsettled contest has an empty list.
func (h *ResultsHandler) GetContestResults(w http.ResponseWriter, r *http.Request) {
	contestID, err := uuid.Parse(r.PathValue("contestID"))
	if err != nil {
		RespondValidationError(w, []FieldError{{Field: "contestID", Message: "must be a valid UUID"}})
		return
	}

	contest, err := h.contests.GetByID(r.Context(), contestID)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	results, err := h.results.GetByContestID(r.Context(), contestID)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	resp := make([]contestResultResponse, 0, len(results))
	for _, res := range results {
		resp = append(resp, contestResultResponse{
			EntryID:    res.EntryID,
			UserID:     res.UserID,
			Rank:       res.Rank,
			Score:      res.Score,
			PrizeCents: res.PrizeCents,
			CreatedAt:  res.CreatedAt,
		})
	}

	RespondSuccess(w, http.StatusOK, map[string]any{
		"contest_id": contest.ID,
		"status":     contest.Status,
		"settled_at": contest.SettledAt,
		"results":    resp,
	})
}
