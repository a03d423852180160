package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/draftpool/backend/internal/domain"
	"github.com/draftpool/backend/internal/service/ledger"
)

type webhookRepo interface {
	GetPending(ctx context.Context, limit int) ([]domain.WebhookEvent, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.WebhookEventStatus) error
}

type depositLedger interface {
	Record(ctx context.Context, req ledger.RecordRequest) (*ledger.RecordResult, error)
}

type depositAccountRepo interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Account, error)
}

// DepositProcessor applies confirmed payment-provider events to user
// balances through the ledger. The ledger idempotency key is derived from
// the provider's transaction id, so a redelivered or re-polled event can
// never double-apply money.
type DepositProcessor struct {
	webhooks webhookRepo
	accounts depositAccountRepo
	ledger   depositLedger
	logger   *slog.Logger
	interval time.Duration
}

func NewDepositProcessor(
	webhooks webhookRepo,
	accounts depositAccountRepo,
	l depositLedger,
	logger *slog.Logger,
	interval time.Duration,
) *DepositProcessor {
	return &DepositProcessor{
		webhooks: webhooks,
		accounts: accounts,
		ledger:   l,
		logger:   logger,
		interval: interval,
	}
}

func (p *DepositProcessor) Start(ctx context.Context) {
	p.logger.Info("deposit processor started", "interval", p.interval)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("deposit processor stopped")
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

func (p *DepositProcessor) poll(ctx context.Context) {
	events, err := p.webhooks.GetPending(ctx, 10)
	if err != nil {
		p.logger.Error("failed to fetch pending webhook events", "error", err)
		return
	}

	for _, event := range events {
		if err := p.processEvent(ctx, event); err != nil {
			p.logger.Error("failed to process webhook event",
				"webhook_event_id", event.ID,
				"error", err,
			)
		}
	}
}

type providerEventPayload struct {
	EventID      string `json:"event_id"`
	UserID       string `json:"user_id"`
	AmountCents  int64  `json:"amount_cents"`
	ProviderTxID string `json:"provider_tx_id"`
	Timestamp    string `json:"timestamp"`
}

func (p *DepositProcessor) processEvent(ctx context.Context, event domain.WebhookEvent) error {
	var payload providerEventPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		p.logger.Error("malformed provider payload", "webhook_event_id", event.ID, "error", err)
		return p.webhooks.UpdateStatus(ctx, event.ID, domain.WebhookEventStatusFailed)
	}

	userID, err := uuid.Parse(payload.UserID)
	if err != nil {
		p.logger.Error("invalid user_id in provider event", "webhook_event_id", event.ID, "user_id", payload.UserID)
		return p.webhooks.UpdateStatus(ctx, event.ID, domain.WebhookEventStatusFailed)
	}

	account, err := p.accounts.GetByUserID(ctx, userID)
	if err != nil {
		p.logger.Warn("no account for provider event", "webhook_event_id", event.ID, "user_id", userID)
		return p.webhooks.UpdateStatus(ctx, event.ID, domain.WebhookEventStatusFailed)
	}

	amount := payload.AmountCents
	category := domain.LedgerCategoryDeposit
	refType := domain.ReferenceTypeDeposit
	if event.EventType == domain.WebhookEventTypeWithdrawalCompleted {
		amount = -amount
		category = domain.LedgerCategoryWithdrawal
		refType = domain.ReferenceTypeWithdrawal
	}

	key := fmt.Sprintf("provider:%s", payload.ProviderTxID)
	res, err := p.ledger.Record(ctx, ledger.RecordRequest{
		AccountID:      account.ID,
		Amount:         amount,
		Category:       category,
		ReferenceType:  &refType,
		ReferenceID:    &event.ID,
		IdempotencyKey: &key,
	})
	if err != nil {
		return fmt.Errorf("processEvent: %w", err)
	}

	if res.Duplicate {
		p.logger.Info("provider event already applied",
			"webhook_event_id", event.ID,
			"provider_tx_id", payload.ProviderTxID,
		)
	} else {
		p.logger.Info("provider event applied",
			"webhook_event_id", event.ID,
			"account_id", account.ID,
			"amount_cents", amount,
			"category", category,
		)
	}

	return p.webhooks.UpdateStatus(ctx, event.ID, domain.WebhookEventStatusProcessed)
}
