package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/draftpool/backend/internal/service/ledger"
)

type reconcileService interface {
	Reconcile(ctx context.Context, accountID uuid.UUID) (*ledger.ReconcileReport, error)
	ReconcileAll(ctx context.Context) (*ledger.ReconcileAllReport, error)
}

type ReconcileHandler struct {
	ledger reconcileService
}

func NewReconcileHandler(l reconcileService) *ReconcileHandler {
	return &ReconcileHandler{ledger: l}
}

type reconcileResponse struct {
	AccountID   uuid.UUID `json:"account_id"`
	Balance     int64     `json:"balance_cents"`
	LedgerSum   int64     `json:"ledger_sum_cents"`
	Discrepancy int64     `json:"discrepancy_cents"`
	Reconciled  bool      `json:"reconciled"`
}

func (h *ReconcileHandler) ReconcileAccount(w http.ResponseWriter, r *http.Request) {
	accountID, err := uuid.Parse(r.PathValue("accountID"))
	if err != nil {
		RespondValidationError(w, []FieldError{{Field: "accountID", Message: "must be a valid UUID"}})
		return
	}

	report, err := h.ledger.Reconcile(r.Context(), accountID)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toReconcileResponse(report))
}

func (h *ReconcileHandler) ReconcileAll(w http.ResponseWriter, r *http.Request) {
	report, err := h.ledger.ReconcileAll(r.Context())
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	mismatches := make([]reconcileResponse, 0, len(report.Mismatches))
	for i := range report.Mismatches {
		mismatches = append(mismatches, toReconcileResponse(&report.Mismatches[i]))
	}

	RespondSuccess(w, http.StatusOK, map[string]any{
		"total":      report.Total,
		"mismatched": report.Mismatched,
		"mismatches": mismatches,
	})
}

func toReconcileResponse(r *ledger.ReconcileReport) reconcileResponse {
	return reconcileResponse{
		AccountID:   r.AccountID,
		Balance:     r.Balance,
		LedgerSum:   r.LedgerSum,
		Discrepancy: r.Discrepancy,
		Reconciled:  r.Reconciled,
	}
}
