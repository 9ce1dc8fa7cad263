package main

import (
	"context"
	"encoding/hex"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	httpapi "github.com/settlement-hub/settlement-hub/internal/api/http"
	"github.com/settlement-hub/settlement-hub/internal/application/account"
	appAudit "github.com/settlement-hub/settlement-hub/internal/application/audit"
	"github.com/settlement-hub/settlement-hub/internal/application/auth"
	appLedger "github.com/settlement-hub/settlement-hub/internal/application/ledger"
	appParams "github.com/settlement-hub/settlement-hub/internal/application/params"
	appPolicy "github.com/settlement-hub/settlement-hub/internal/application/policy"
	"github.com/settlement-hub/settlement-hub/internal/application/settlement"
	appSigner "github.com/settlement-hub/settlement-hub/internal/application/signer"
	"github.com/settlement-hub/settlement-hub/internal/config"
	"github.com/settlement-hub/settlement-hub/internal/domain/atomic"
	"github.com/settlement-hub/settlement-hub/internal/domain/audit"
	"github.com/settlement-hub/settlement-hub/internal/domain/authtoken"
	"github.com/settlement-hub/settlement-hub/internal/domain/clock"
	"github.com/settlement-hub/settlement-hub/internal/domain/dispute"
	"github.com/settlement-hub/settlement-hub/internal/domain/ledger"
	"github.com/settlement-hub/settlement-hub/internal/domain/params"
	"github.com/settlement-hub/settlement-hub/internal/domain/policy"
	"github.com/settlement-hub/settlement-hub/internal/domain/releaseauth"
	"github.com/settlement-hub/settlement-hub/internal/domain/session"
	"github.com/settlement-hub/settlement-hub/internal/domain/user"
	"github.com/settlement-hub/settlement-hub/internal/infrastructure/keystore"
	"github.com/settlement-hub/settlement-hub/internal/infrastructure/memory"
	"github.com/settlement-hub/settlement-hub/internal/infrastructure/postgres"
	"github.com/settlement-hub/settlement-hub/internal/infrastructure/sse"
)

// backends bundles the storage implementations main wires into services.
type backends struct {
	sessions session.Repository
	params   params.Repository
	disputes dispute.Repository
	rules    policy.Repository
	signers  releaseauth.SignerRepository
	nonces   releaseauth.NonceStore
	ledger   ledger.Ledger
	balances ledger.BalanceLister
	audits   audit.Repository
	users    user.Repository
	tokens   authtoken.Repository
	scope    atomic.Scope
}

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	ctx := context.Background()
	var be backends
	switch cfg.StoreBackend {
	case "postgres":
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("db error: %v", err)
		}
		defer pool.Close()
		if err := postgres.RunMigrations(ctx, pool); err != nil {
			log.Fatalf("migration error: %v", err)
		}
		pgLedger := postgres.NewLedger(pool)
		be = backends{
			sessions: postgres.NewSessionRepository(pool),
			params:   postgres.NewParamsRepository(pool),
			disputes: postgres.NewDisputeRepository(pool),
			rules:    postgres.NewPolicyRepository(pool),
			signers:  postgres.NewSignerRepository(pool),
			nonces:   postgres.NewNonceStore(pool),
			ledger:   pgLedger,
			balances: pgLedger,
			audits:   postgres.NewAuditRepository(pool),
			users:    postgres.NewUserRepository(pool),
			tokens:   postgres.NewAuthTokenRepository(pool),
			scope:    postgres.NewTxScope(pool),
		}
	default:
		store := memory.NewStore()
		be = backends{
			sessions: store.Sessions(),
			params:   store.Params(),
			disputes: store.Disputes(),
			rules:    store.Rules(),
			signers:  store.Signers(),
			nonces:   store.Nonces(),
			ledger:   store.Ledger(),
			balances: store.Ledger(),
			audits:   store.Audits(),
			users:    store.Users(),
			tokens:   store.Tokens(),
			scope:    store.Scope(),
		}
	}

	// infrastructure
	sseHub := sse.NewHub()
	clk := clock.System{}

	auditKey := loadHexKey(cfg.AuditSigningKeyHex)
	if auditKey == nil {
		if ks, err := keystore.NewFromEnv(); err == nil && ks != nil {
			auditKey = ks.DefaultKey()
		}
	}

	// services
	auditSvc := appAudit.NewService(be.audits, logger, auditKey)
	paramsSvc := appParams.NewService(be.params, sseHub, auditSvc, clk, logger)
	settlementSvc := settlement.NewService(
		be.sessions, be.params, be.disputes, be.rules, be.signers, be.nonces,
		be.ledger, be.scope, clk, sseHub, auditSvc, logger,
	)
	ledgerSvc := appLedger.NewService(be.ledger, be.balances, auditSvc, logger)
	signerSvc := appSigner.NewService(be.signers, auditSvc, clk, logger)
	policySvc := appPolicy.NewService(be.rules, auditSvc, logger)
	accountSvc := account.NewService(be.users, auditSvc, logger)
	authSvc := auth.NewService(be.users, be.tokens, cfg.TokenTTL, auditSvc, logger)

	if cfg.BootstrapAdmin != "" && cfg.BootstrapPassword != "" {
		if _, err := accountSvc.BootstrapAdmin(ctx, cfg.BootstrapAdmin, cfg.BootstrapPassword); err != nil {
			logger.Warn().Err(err).Msg("bootstrap admin failed")
		}
	}

	// API server
	apiServer := httpapi.NewServer(
		settlementSvc, paramsSvc, ledgerSvc, signerSvc, policySvc,
		auditSvc, authSvc, accountSvc, sseHub,
		cfg.SessionCookieName, cfg.SessionCookieSecure,
	)

	httpServer := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      apiServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// background loops
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			if n, err := authSvc.PurgeExpired(context.Background()); err == nil && n > 0 {
				logger.Debug().Int("purged", n).Msg("expired tokens removed")
			}
		}
	}()

	// start server
	go func() {
		logger.Info().Str("addr", cfg.ServerAddr).Str("backend", cfg.StoreBackend).Msg("http server started")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	// graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	sseHub.Stop()
	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(ctxShutdown)
}

func loadHexKey(hexStr string) []byte {
	if hexStr == "" {
		return nil
	}
	b, err := hex.DecodeString(hexStr)
	if err != nil {
		return nil
	}
	return b
}
