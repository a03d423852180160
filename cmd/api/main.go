package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"github.com/draftpool/backend/internal/config"
	"github.com/draftpool/backend/internal/handler"
	"github.com/draftpool/backend/internal/logging"
	"github.com/draftpool/backend/internal/middleware"
	"github.com/draftpool/backend/internal/repository"
	"github.com/draftpool/backend/internal/service"
	"github.com/draftpool/backend/internal/service/ledger"
	"github.com/draftpool/backend/internal/service/settlement"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logging.Init("draftpool-api", cfg.LogLevel, cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := repository.NewPostgresDB(ctx, cfg.DatabaseURL, repository.PoolConfig{
		MaxOpenConns:     cfg.DBMaxOpenConns,
		MaxIdleConns:     cfg.DBMaxIdleConns,
		ConnMaxLifetimeS: cfg.DBConnMaxLifetimeS,
		ConnMaxIdleTimeS: cfg.DBConnMaxIdleTimeS,
	})
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	userRepo := repository.NewUserRepository(db)
	accountRepo := repository.NewAccountRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)
	contestRepo := repository.NewContestRepository(db)
	entryRepo := repository.NewEntryRepository(db)
	resultRepo := repository.NewResultRepository(db)
	webhookRepo := repository.NewWebhookEventRepository(db)

	ledgerSvc := ledger.NewService(accountRepo, ledgerRepo, db)
	distributor := settlement.NewDistributor(ledgerSvc)
	settlementSvc := settlement.NewService(
		contestRepo, entryRepo, resultRepo, accountRepo,
		distributor, db, cfg.SettleBatchLimit,
	)

	processor := service.NewDepositProcessor(
		webhookRepo, accountRepo, ledgerSvc, logger,
		time.Duration(cfg.WebhookPollIntervalS)*time.Second,
	)
	go processor.Start(ctx)

	authHandler := handler.NewAuthHandler(userRepo, cfg.JWTSecret, time.Duration(cfg.JWTExpiryH)*time.Hour)
	settlementHandler := handler.NewSettlementHandler(settlementSvc)
	resultsHandler := handler.NewResultsHandler(contestRepo, resultRepo)
	reconcileHandler := handler.NewReconcileHandler(ledgerSvc)
	ledgerHandler := handler.NewLedgerHandler(ledgerSvc)
	webhookHandler := handler.NewWebhookHandler(webhookRepo, cfg.WebhookSecret)

	requireAuth := middleware.Auth(cfg.JWTSecret)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", handler.Health)
	mux.HandleFunc("POST /api/v1/webhooks/provider", webhookHandler.ReceiveProviderWebhook)
	mux.HandleFunc("POST /api/v1/auth/login", authHandler.Login)
	mux.Handle("GET /api/v1/contests/{contestID}/results", requireAuth(http.HandlerFunc(resultsHandler.GetContestResults)))
	mux.Handle("POST /api/v1/settlements/run", requireAuth(http.HandlerFunc(settlementHandler.SettleAllReady)))
	mux.Handle("POST /api/v1/settlements/{contestID}", requireAuth(http.HandlerFunc(settlementHandler.SettleContest)))
	mux.Handle("GET /api/v1/settlements/{contestID}/preview", requireAuth(http.HandlerFunc(settlementHandler.PreviewSettlement)))
	mux.Handle("GET /api/v1/reconciliation/accounts/{accountID}", requireAuth(http.HandlerFunc(reconcileHandler.ReconcileAccount)))
	mux.Handle("POST /api/v1/reconciliation/run", requireAuth(http.HandlerFunc(reconcileHandler.ReconcileAll)))
	mux.Handle("GET /api/v1/accounts/{accountID}/ledger", requireAuth(http.HandlerFunc(ledgerHandler.GetStatement)))

	chain := middleware.Tracing(middleware.Logging(middleware.Recovery(mux)))

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           chain,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("server started", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}
