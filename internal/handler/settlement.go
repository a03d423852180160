package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/draftpool/backend/internal/logging"
	"github.com/draftpool/backend/internal/service/settlement"
)

type settlementService interface {
	SettleContest(ctx context.Context, contestID uuid.UUID) (*settlement.Summary, error)
	SettleAllReady(ctx context.Context) (*settlement.BatchSummary, error)
	PreviewSettlement(ctx context.Context, contestID uuid.UUID) (*settlement.PreviewResult, error)
}

type SettlementHandler struct {
	settlements settlementService
}

func NewSettlementHandler(settlements settlementService) *SettlementHandler {
	return &SettlementHandler{settlements: settlements}
}

type winnerResponse struct {
	EntryID    uuid.UUID `json:"entry_id"`
	UserID     uuid.UUID `json:"user_id"`
	Rank       int       `json:"rank"`
	PrizeCents int64     `json:"prize_cents"`
}

type resultResponse struct {
	EntryID    uuid.UUID `json:"entry_id"`
	UserID     uuid.UUID `json:"user_id"`
	Rank       int       `json:"rank"`
	Score      float64   `json:"score"`
	PrizeCents int64     `json:"prize_cents"`
}

type settlementResponse struct {
	ContestID      uuid.UUID        `json:"contest_id"`
	Settled        bool             `json:"settled"`
	TotalEntries   int              `json:"total_entries"`
	Winners        []winnerResponse `json:"winners"`
	Results        []resultResponse `json:"results"`
	SkippedRooms   []int            `json:"skipped_rooms,omitempty"`
	TotalPaidCents int64            `json:"total_paid_cents"`
	SettledAt      time.Time        `json:"settled_at"`
}

func (h *SettlementHandler) SettleContest(w http.ResponseWriter, r *http.Request) {
	contestID, err := uuid.Parse(r.PathValue("contestID"))
	if err != nil {
		RespondValidationError(w, []FieldError{{Field: "contestID", Message: "must be a valid UUID"}})
		return
	}

	summary, err := h.settlements.SettleContest(r.Context(), contestID)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toSettlementResponse(summary))
}

func (h *SettlementHandler) SettleAllReady(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	batch, err := h.settlements.SettleAllReady(r.Context())
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	log.Info("batch settlement finished",
		"total", batch.Total,
		"successful", batch.Successful,
		"failed", batch.Failed,
	)

	type contestOutcome struct {
		ContestID uuid.UUID           `json:"contest_id"`
		Settled   bool                `json:"settled"`
		Summary   *settlementResponse `json:"summary,omitempty"`
		Error     string              `json:"error,omitempty"`
	}

	outcomes := make([]contestOutcome, 0, len(batch.Outcomes))
	for _, o := range batch.Outcomes {
		oc := contestOutcome{ContestID: o.ContestID, Settled: o.Err == nil}
		if o.Err != nil {
			oc.Error = o.Err.Error()
		} else {
			resp := toSettlementResponse(o.Summary)
			oc.Summary = &resp
		}
		outcomes = append(outcomes, oc)
	}

	RespondSuccess(w, http.StatusOK, map[string]any{
		"total":      batch.Total,
		"successful": batch.Successful,
		"failed":     batch.Failed,
		"contests":   outcomes,
	})
}

func (h *SettlementHandler) PreviewSettlement(w http.ResponseWriter, r *http.Request) {
	contestID, err := uuid.Parse(r.PathValue("contestID"))
	if err != nil {
		RespondValidationError(w, []FieldError{{Field: "contestID", Message: "must be a valid UUID"}})
		return
	}

	preview, err := h.settlements.PreviewSettlement(r.Context(), contestID)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	type projectedEntry struct {
		EntryID             uuid.UUID `json:"entry_id"`
		UserID              uuid.UUID `json:"user_id"`
		RoomNumber          int       `json:"room_number,omitempty"`
		Rank                int       `json:"rank"`
		Score               float64   `json:"score"`
		ProjectedPrizeCents int64     `json:"projected_prize_cents"`
	}

	entries := make([]projectedEntry, 0, len(preview.Entries))
	for _, e := range preview.Entries {
		entries = append(entries, projectedEntry{
			EntryID:             e.EntryID,
			UserID:              e.UserID,
			RoomNumber:          e.RoomNumber,
			Rank:                e.Rank,
			Score:               e.Score,
			ProjectedPrizeCents: e.ProjectedPrizeCents,
		})
	}

	RespondSuccess(w, http.StatusOK, map[string]any{
		"contest_id":            preview.ContestID,
		"ranked_entries":        entries,
		"skipped_rooms":         preview.SkippedRooms,
		"total_projected_cents": preview.TotalProjectedCents,
	})
}

func toSettlementResponse(s *settlement.Summary) settlementResponse {
	winners := make([]winnerResponse, 0, len(s.Winners))
	for _, win := range s.Winners {
		winners = append(winners, winnerResponse{
			EntryID:    win.EntryID,
			UserID:     win.UserID,
			Rank:       win.Rank,
			PrizeCents: win.PrizeCents,
		})
	}

	results := make([]resultResponse, 0, len(s.Results))
	for _, res := range s.Results {
		results = append(results, resultResponse{
			EntryID:    res.EntryID,
			UserID:     res.UserID,
			Rank:       res.Rank,
			Score:      res.Score,
			PrizeCents: res.PrizeCents,
		})
	}

	return settlementResponse{
		ContestID:      s.ContestID,
		Settled:        s.Settled,
		TotalEntries:   s.TotalEntries,
		Winners:        winners,
		Results:        results,
		SkippedRooms:   s.SkippedRooms,
		TotalPaidCents: s.TotalPaidCents,
		SettledAt:      s.SettledAt,
	}
}
