// Package main запускает HTTP-сервер платформы передачи излишков еды.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/foodshare/internal/config"
	"github.com/mmeshcher/foodshare/internal/handler"
	"github.com/mmeshcher/foodshare/internal/identity"
	"github.com/mmeshcher/foodshare/internal/middleware"
	"github.com/mmeshcher/foodshare/internal/notify"
	"github.com/mmeshcher/foodshare/internal/realtime"
	"github.com/mmeshcher/foodshare/internal/repository"
	"github.com/mmeshcher/foodshare/internal/service"
	"github.com/mmeshcher/foodshare/internal/storage"
)

const sessionTTL = 24 * time.Hour

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	repo, err := repository.NewPostgresRepository(cfg.DatabaseURI)
	if err != nil {
		sugar.Fatalw("database initialization error", "error", err.Error())
	}

	var provider identity.Provider = identity.NewLocalProvider(repo)
	if cfg.IdentityURL != "" {
		provider = identity.NewHTTPProvider(cfg.IdentityURL, cfg.IdentityServiceKey, repo)
		sugar.Infow("using external identity provider", "url", cfg.IdentityURL)
	}

	tokens := identity.NewTokens(cfg.JWTSecret, sessionTTL)
	hub := realtime.NewHub(logger)

	var mailer notify.Mailer
	if cfg.SendGridAPIKey != "" {
		mailer = notify.NewSendGridMailer(cfg.SendGridAPIKey, cfg.MailFrom)
	}

	var images service.ImageStore
	if cfg.CloudinaryURL != "" {
		store, err := storage.NewCloudinary(cfg.CloudinaryURL)
		if err != nil {
			sugar.Fatalw("image storage initialization error", "error", err.Error())
		}
		images = store
	}

	svc := service.NewService(repo, provider, tokens, logger, service.Options{
		Timeout:          cfg.RequestTimeout,
		SignupWindow:     cfg.SignupWindow,
		SignupIPLimit:    cfg.SignupIPLimit,
		SignupEmailLimit: cfg.SignupEmailLimit,
		Publisher:        hub,
		Notifier:         notify.New(repo, hub, mailer, logger),
		Images:           images,
	})
	defer svc.Close()

	sweeper, err := service.NewExpirySweeper(svc, cfg.ExpirySchedule, logger)
	if err != nil {
		sugar.Fatalw("expiry schedule error", "error", err.Error())
	}

	trustedProxies, err := cfg.TrustedProxyPrefixes()
	if err != nil {
		sugar.Fatalw("trusted proxies error", "error", err.Error())
	}

	authMiddleware := middleware.NewAuthMiddleware(tokens)
	h := handler.NewHandler(svc, logger, authMiddleware, hub, trustedProxies)

	server := &http.Server{
		Addr:              cfg.RunAddress,
		Handler:           h.SetupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// Периодическое истечение просроченных объявлений
	g.Go(func() error {
		sweeper.Start()
		<-ctx.Done()
		sweeper.Stop()
		return nil
	})

	g.Go(func() error {
		sugar.Infow("starting foodshare server", "addr", cfg.RunAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		// Shutdown не закрывает перехваченные WebSocket-соединения.
		hub.Close()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}
