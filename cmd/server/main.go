package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"dexfolio/internal/config"
	"dexfolio/internal/database"
	"dexfolio/internal/handlers"
	"dexfolio/internal/market"
	"dexfolio/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func main() {
	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("config: %v", err)
	}
	logger.SetLevel(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := database.Open(ctx, database.Options{
		Backend:     cfg.StoreBackend,
		DataDir:     cfg.DataDir,
		PostgresURL: cfg.PostgresURL,
		SQLitePath:  cfg.SQLitePath,
	}, logger)
	if err != nil {
		logger.Fatalf("store open failed: %v", err)
	}
	defer store.Close()

	hasher, err := service.NewPasswordHasher(cfg.PasswordHasher)
	if err != nil {
		logger.Fatalf("config: %v", err)
	}

	client := market.NewClient(market.Config{
		BaseURL:     cfg.DexBaseURL,
		Chain:       cfg.DexChain,
		MinInterval: cfg.DexMinInterval,
		Timeout:     cfg.HTTPTimeout,
	}, logger)

	auth := service.NewAuthService(store.Users, service.NewMemorySessions(cfg.SessionTTL), hasher, logger)
	portfolio := service.NewPortfolioService(client, store.Portfolios, store.Holdings, logger)

	// refuse to start on unreadable data rather than overwrite it later
	if err := auth.Load(ctx); err != nil {
		logger.Fatalf("load failed: %v", err)
	}
	if err := portfolio.Load(ctx); err != nil {
		logger.Fatalf("load failed: %v", err)
	}

	client.Probe(ctx, cfg.ProbeInterval)

	rg := gin.Default()
	handlers.NewHandler(auth, portfolio, client, logger).Routes(rg)

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: rg}
	go func() {
		logger.Infof("server starting on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("listen: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("shutdown: %v", err)
	}
}
