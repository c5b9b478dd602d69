// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Remova Inc.

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/removahq/portal/internal/audit"
	"github.com/removahq/portal/internal/auth"
	authpg "github.com/removahq/portal/internal/auth/postgres"
	"github.com/removahq/portal/internal/config"
	"github.com/removahq/portal/internal/logging"
	"github.com/removahq/portal/internal/mailer"
	"github.com/removahq/portal/internal/observability"
	"github.com/removahq/portal/internal/store"
	"github.com/removahq/portal/internal/web"
	"github.com/removahq/portal/pkg/errutil"
)

const (
	shutdownTimeout = 10 * time.Second
	sweepInterval   = time.Hour
)

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the portal server",
		Long: `Start the portal HTTP server, the observability endpoints, and
the background sweep of expired sign-in tokens.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(ctx context.Context) error {
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logging.SetDefault("portal", version, cfg.Log.Format)
	logger := slog.Default()

	logger.Info("starting portal",
		"environment", cfg.Environment,
		"http_addr", cfg.HTTP.Addr,
		"base_url", cfg.BaseURL,
	)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	pool, err := store.Connect(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer pool.Close()

	accounts := authpg.NewAccountRepository(pool)
	tokens := authpg.NewLoginTokenRepository(pool)
	recorder := audit.NewPostgresRecorder(pool)

	var sender mailer.Sender
	if cfg.Mail.Host != "" {
		smtp, senderErr := mailer.NewSMTPSender(mailer.SMTPConfig{
			Host:     cfg.Mail.Host,
			Port:     cfg.Mail.Port,
			Username: cfg.Mail.Username,
			Password: cfg.Mail.Password,
			From:     cfg.Mail.From,
			SSL:      cfg.Mail.SSL,
		})
		if senderErr != nil {
			return senderErr
		}
		sender = smtp
	}

	linkMailer, err := mailer.NewMagicLinkMailer(sender, logger, !cfg.Production())
	if err != nil {
		return err
	}

	signer, err := auth.NewCredentialSigner(cfg.Session.Secret, cfg.Session.TTL, cfg.Session.AllowLegacy)
	if err != nil {
		return err
	}

	// Observability server first so the mailer and recorder can be
	// instrumented, and readiness reflects the web server.
	var (
		obsServer *observability.Server
		metrics   *observability.Metrics
		webUp     atomic.Bool
	)
	if cfg.Metrics.Addr != "" {
		obsServer = observability.NewServer(cfg.Metrics.Addr, webUp.Load)
		obsErrCh, obsErr := obsServer.Start()
		if obsErr != nil {
			return obsErr
		}
		metrics = obsServer.Metrics()
		go func() {
			if serveErr := <-obsErrCh; serveErr != nil {
				logger.Error("observability server failed", "error", serveErr)
				cancel()
			}
		}()
	}

	serviceMailer := auth.LinkMailer(linkMailer)
	serviceRecorder := audit.Recorder(recorder)
	if metrics != nil {
		serviceMailer = &instrumentedMailer{next: serviceMailer, metrics: metrics}
		serviceRecorder = &instrumentedRecorder{next: serviceRecorder, metrics: metrics}
	}

	service, err := auth.NewMagicLinkService(accounts, tokens, serviceRecorder, serviceMailer, auth.ServiceConfig{
		BaseURL: cfg.BaseURL,
	}, logger)
	if err != nil {
		return err
	}

	webServer, err := web.NewServer(web.Config{
		Addr:       cfg.HTTP.Addr,
		Production: cfg.Production(),
	}, service, signer, metrics, logger)
	if err != nil {
		return err
	}

	webErrCh, err := webServer.Start()
	if err != nil {
		return err
	}
	webUp.Store(true)
	go func() {
		if serveErr := <-webErrCh; serveErr != nil {
			logger.Error("web server failed", "error", serveErr)
			cancel()
		}
	}()

	// Expired tokens accumulate slowly; an hourly sweep keeps the table
	// small without mattering for correctness (Consume checks expiry).
	go runSweepLoop(ctx, tokens, logger)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("shutting down after server failure")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := webServer.Stop(shutdownCtx); err != nil {
		errutil.LogError(logger, "web server shutdown failed", err)
	}
	if obsServer != nil {
		if err := obsServer.Stop(shutdownCtx); err != nil {
			errutil.LogError(logger, "observability server shutdown failed", err)
		}
	}

	logger.Info("portal stopped")
	return nil
}

// runSweepLoop deletes expired sign-in tokens on a fixed interval until ctx
// is cancelled.
func runSweepLoop(ctx context.Context, tokens auth.LoginTokenRepository, logger *slog.Logger) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := tokens.DeleteExpired(ctx)
			if err != nil {
				errutil.LogWarn(logger, "expired token sweep failed", err)
				continue
			}
			if deleted > 0 {
				logger.Info("swept expired login tokens", "deleted", deleted)
			}
		}
	}
}

// requireDatabaseURL loads config for the maintenance subcommands.
func requireDatabaseURL() (*config.Config, error) {
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		return nil, err
	}
	if cfg.Database.URL == "" {
		return nil, oops.Code("CONFIG_INVALID").Errorf("database.url is required")
	}
	return cfg, nil
}
