package main

import (
	"context"
	"errors"
	"fmt"
	"log"

	"dexfolio/internal/config"
	"dexfolio/internal/database"
	"dexfolio/internal/market"
	"dexfolio/internal/models"
	"dexfolio/internal/service"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const (
	demoUser     = "demo"
	demoPassword = "demo-password"
)

var demoHoldings = []models.HoldingInput{
	{TokenAddress: "So11111111111111111111111111111111111111112", TokenSymbol: "SOL", TokenName: "Wrapped SOL", Quantity: decimal.RequireFromString("12.5"), AveragePrice: decimal.RequireFromString("98.40")},
	{TokenAddress: "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263", TokenSymbol: "Bonk", TokenName: "Bonk", Quantity: decimal.RequireFromString("2500000"), AveragePrice: decimal.RequireFromString("0.0000152")},
	{TokenAddress: "JUPyiwrYJFskUPiHa7hkeR8VUtAeFoSYbKedZNsDvCN", TokenSymbol: "JUP", TokenName: "Jupiter", Quantity: decimal.RequireFromString("800"), AveragePrice: decimal.RequireFromString("0.85")},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logrus.New()
	logger.SetLevel(cfg.LogLevel)

	ctx := context.Background()
	store, err := database.Open(ctx, database.Options{
		Backend:     cfg.StoreBackend,
		DataDir:     cfg.DataDir,
		PostgresURL: cfg.PostgresURL,
		SQLitePath:  cfg.SQLitePath,
	}, logger)
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}
	defer store.Close()

	hasher, err := service.NewPasswordHasher(cfg.PasswordHasher)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	client := market.NewClient(market.Config{BaseURL: cfg.DexBaseURL, Chain: cfg.DexChain, MinInterval: cfg.DexMinInterval, Timeout: cfg.HTTPTimeout}, logger)
	auth := service.NewAuthService(store.Users, service.NewMemorySessions(0), hasher, logger)
	portfolio := service.NewPortfolioService(client, store.Portfolios, store.Holdings, logger)
	if err := auth.Load(ctx); err != nil {
		log.Fatalf("load users: %v", err)
	}
	if err := portfolio.Load(ctx); err != nil {
		log.Fatalf("load portfolios: %v", err)
	}

	payload, err := auth.Register(ctx, demoUser, demoPassword)
	switch {
	case errors.Is(err, service.ErrAlreadyExists):
		fmt.Printf("User %q already exists, nothing to do\n", demoUser)
		return
	case err != nil:
		log.Fatalf("register demo user: %v", err)
	}
	fmt.Printf("Created user %q (%s)\n", demoUser, payload.User.ID)
	fmt.Printf("Recovery phrase: %s\n", payload.User.RecoveryPhrase)

	for _, in := range demoHoldings {
		h, err := portfolio.AddHolding(ctx, payload.User.ID, in)
		if err != nil {
			fmt.Printf("Warning: could not add %s: %v\n", in.TokenSymbol, err)
			continue
		}
		fmt.Printf("Added %s %s at %s\n", h.Quantity, h.TokenSymbol, h.AveragePrice)
	}

	p := portfolio.GetPortfolio(ctx, payload.User.ID)
	fmt.Printf("Portfolio %s is worth $%s at current prices\n", p.ID, p.TotalValue.StringFixed(2))
	fmt.Printf("Log in with %s / %s\n", demoUser, demoPassword)
}
