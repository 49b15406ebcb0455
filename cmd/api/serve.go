package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/sangkips/invoicecore/internal/application/service"
	"github.com/sangkips/invoicecore/internal/config"
	domainRepo "github.com/sangkips/invoicecore/internal/domain/repository"
	"github.com/sangkips/invoicecore/internal/infrastructure/authority"
	"github.com/sangkips/invoicecore/internal/infrastructure/database"
	"github.com/sangkips/invoicecore/internal/infrastructure/repository"
	"github.com/sangkips/invoicecore/internal/presentation/http/handler"
	"github.com/sangkips/invoicecore/internal/presentation/http/routes"
	"github.com/sangkips/invoicecore/pkg/oauth"
	"github.com/sangkips/invoicecore/pkg/utils"
	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if port != "" {
				cfg.App.Port = port
			}
			return runServer(cfg)
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "", "listen port (overrides APP_PORT)")
	return cmd
}

func runServer(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgresDB(&cfg.Database, cfg.App.Debug)
	if err != nil {
		return err
	}

	accountingDB, err := database.NewAccountingDB(&cfg.Accounting)
	mirror := repository.NewAccountingMirror(accountingDB)
	if err != nil {
		log.Error().Err(err).Msg("accounting store unavailable, mirror writes will fail")
		mirror = repository.NewUnavailableAccountingMirror(err)
	}

	// Repositories
	documentRepo := repository.NewDocumentRepository(db)
	reportRepo := repository.NewExpenseReportRepository(db)
	sequenceRepo := repository.NewSequenceRepository(db)
	idempotencyRepo := repository.NewIdempotencyRepository(db)

	// Tax authority
	tokens := oauth.NewTokenProvider(oauth.ClientCredentialsConfig{
		ClientID:     cfg.Authority.ClientID,
		ClientSecret: cfg.Authority.ClientSecret,
		TokenURL:     cfg.Authority.TokenEndpoint(),
		Scopes:       cfg.Authority.Scopes,
		ExpirySkew:   cfg.Authority.TokenExpirySkew,
	})
	if !tokens.IsConfigured() {
		log.Warn().Msg("tax authority credentials missing, verification calls will fail")
	}
	authorityClient := authority.NewClient(authority.Config{
		BaseURL:        cfg.Authority.BaseURL,
		RequestTimeout: cfg.Authority.RequestTimeout,
		RatePerSecond:  cfg.Authority.RatePerSecond,
		RateBurst:      cfg.Authority.RateBurst,
	}, tokens)

	// Services
	sequenceService := service.NewSequenceService(sequenceRepo, cfg.Sequence.TxTimeout)
	duplicateService := service.NewDuplicateService(documentRepo)
	verificationService := service.NewVerificationService(authorityClient, documentRepo, service.VerificationConfig{
		TransientRetries: cfg.Authority.TransientRetries,
		RetryDelay:       cfg.Authority.RetryDelay,
		MaxVariations:    cfg.Authority.MaxVariations,
		VerifiableTypes:  cfg.Authority.VerifiableTypes,
	})
	documentService := service.NewDocumentService(documentRepo, duplicateService, verificationService)
	approvalService := service.NewApprovalService(reportRepo, sequenceService, mirror, cfg.Accounting.Timeout)

	handlers := &routes.Handlers{
		Document:      handler.NewDocumentHandler(documentService, duplicateService, verificationService),
		ExpenseReport: handler.NewExpenseReportHandler(approvalService),
	}

	router := routes.Setup(ctx, handlers, &routes.Deps{
		JWTManager:      utils.NewJWTManager(cfg.JWT.Secret, cfg.JWT.ExpiryHours),
		Cfg:             cfg,
		IdempotencyRepo: idempotencyRepo,
	})

	go purgeIdempotencyKeys(ctx, idempotencyRepo, time.Hour)

	port := cfg.App.Port
	if port == "" {
		port = "8080"
	}
	server := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", port).Str("env", cfg.App.Env).Msgf("starting %s", cfg.App.Name)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// purgeIdempotencyKeys removes expired keys until ctx is cancelled
func purgeIdempotencyKeys(ctx context.Context, repo domainRepo.IdempotencyRepository, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := repo.DeleteExpired(ctx)
			if err != nil {
				log.Warn().Err(err).Msg("failed to purge idempotency keys")
				continue
			}
			if removed > 0 {
				log.Debug().Int64("removed", removed).Msg("purged expired idempotency keys")
			}
		}
	}
}
