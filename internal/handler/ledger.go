package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/draftpool/backend/internal/domain"
)

type ledgerStatementService interface {
	EntriesForAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]domain.LedgerEntry, int, error)
}

type LedgerHandler struct {
	ledger ledgerStatementService
}

func NewLedgerHandler(l ledgerStatementService) *LedgerHandler {
	return &LedgerHandler{ledger: l}
}

const (
	defaultStatementLimit = 50
	maxStatementLimit     = 200
)

type ledgerEntryResponse struct {
	ID            uuid.UUID             `json:"id"`
	Amount        int64                 `json:"amount_cents"`
	Category      domain.LedgerCategory `json:"category"`
	BalanceBefore int64                 `json:"balance_before_cents"`
	BalanceAfter  int64                 `json:"balance_after_cents"`
	ReferenceType *domain.ReferenceType `json:"reference_type,omitempty"`
	ReferenceID   *uuid.UUID            `json:"reference_id,omitempty"`
	CreatedAt     time.Time             `json:"created_at"`
}

func (h *LedgerHandler) GetStatement(w http.ResponseWriter, r *http.Request) {
	accountID, err := uuid.Parse(r.PathValue("accountID"))
	if err != nil {
		RespondValidationError(w, []FieldError{{Field: "accountID", Message: "must be a valid UUID"}})
		return
	}

	limit := queryInt(r, "limit", defaultStatementLimit)
	if limit < 1 || limit > maxStatementLimit {
		limit = defaultStatementLimit
	}
	offset := queryInt(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	entries, total, err := h.ledger.EntriesForAccount(r.Context(), accountID, limit, offset)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	resp := make([]ledgerEntryResponse, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, ledgerEntryResponse{
			ID:            e.ID,
			Amount:        e.Amount,
			Category:      e.Category,
			BalanceBefore: e.BalanceBefore,
			BalanceAfter:  e.BalanceAfter,
			ReferenceType: e.ReferenceType,
			ReferenceID:   e.ReferenceID,
			CreatedAt:     e.CreatedAt,
		})
	}

	RespondSuccess(w, http.StatusOK, map[string]any{
		"entries": resp,
		"total":   total,
		"limit":   limit,
		"offset":  offset,
	})
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
