package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"yafs_miniapp/internal/api"
	"yafs_miniapp/internal/middleware"
	"yafs_miniapp/internal/notify"
	"yafs_miniapp/internal/repository"
	"yafs_miniapp/internal/service"
	"yafs_miniapp/pkg/auth"
	"yafs_miniapp/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type store interface {
	service.UserRepository
	service.ReferralRepository
	api.Pinger
	Close() error
}

func main() {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	err = logger.Initialize(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	zapLogger := logger.Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, err := openStore(cfg.Database)
	if err != nil {
		zapLogger.Fatal("Failed to initialize repository", zap.Error(err))
	}
	defer repo.Close()

	var verifier *auth.Verifier
	if cfg.Telegram.BotToken != "" {
		verifier = auth.NewVerifier(cfg.Telegram.BotToken,
			auth.WithMaxAge(cfg.Auth.MaxAge),
			auth.WithMaxFutureSkew(cfg.Auth.FutureSkew))
	} else {
		zapLogger.Warn("TELEGRAM_BOT_TOKEN is not set, only demo users can claim")
	}
	authenticator := auth.NewAuthenticator(verifier, cfg.Auth.DemoPrefix)

	var notifier service.Notifier
	if cfg.Telegram.Enabled && cfg.Telegram.BotToken != "" {
		telegramNotifier, err := notify.NewTelegramNotifier(cfg.Telegram)
		if err != nil {
			zapLogger.Warn("Referral notifications disabled", zap.Error(err))
		} else {
			notifier = telegramNotifier
			go func() {
				if err := telegramNotifier.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					zapLogger.Error("Notifier stopped", zap.Error(err))
				}
			}()
		}
	}

	rewards := cfg.Rewards
	box := service.BoxPolicy(rewards.BoxCooldown, rewards.BoxMin, rewards.BoxMax)
	mining := service.MiningPolicy(rewards.MiningCooldown, rewards.MiningAmount)

	svc := service.NewService(
		service.NewRewardService(repo, box, mining),
		service.NewReferralService(repo, rewards.ReferralBonus, notifier),
		service.NewUserService(repo, box, mining),
	)

	gin.SetMode(cfg.Server.Mode)
	router := api.NewRouter(api.Deps{
		Rewards:       svc.RewardService,
		Referrals:     svc.ReferralService,
		Users:         svc.UserService,
		Authorization: middleware.NewAuthorization(authenticator),
		RateLimiter:   middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst),
		Store:         repo,
	})

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
	}

	go func() {
		zapLogger.Info("Starting server", zap.String("addr", server.Addr), zap.String("store", cfg.Database.Driver))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zapLogger.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}
}

func openStore(cfg DatabaseConfig) (store, error) {
	switch cfg.Driver {
	case driverMemory:
		logger.Logger().Warn("Using in-memory store, data is lost on restart")
		return repository.NewMemory(), nil
	case driverPostgres:
		if cfg.Migrate {
			if err := repository.Migrate(cfg.Config); err != nil {
				return nil, err
			}
		}
		return repository.New(cfg.Config)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}
