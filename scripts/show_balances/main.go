package main

import (
	"context"
	"fmt"
	"os"

	"hearth-backend/config"
	"hearth-backend/database"
	"hearth-backend/ledger"
	"hearth-backend/repository"
	"hearth-backend/services"

	"go.uber.org/zap"
)

func main() {
	logger, _ := zap.NewDevelopment()
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: show_balances <household-id>")
		os.Exit(2)
	}
	householdID := os.Args[1]

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	ctx := context.Background()
	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	householdRepo := repository.NewHouseholdRepository(db)
	memberIDs, err := services.HouseholdMemberIDs(ctx, householdRepo, householdID)
	if err != nil {
		logger.Fatal("Failed to load members", zap.String("household_id", householdID), zap.Error(err))
	}

	settlementService := services.NewSettlementService(
		repository.NewExpenseRepository(db),
		repository.NewSettlementRepository(db),
		householdRepo,
		cfg.LedgerHistoryLimit,
	)

	// Any member may read balances; the first one stands in for the caller.
	balances, err := settlementService.GetBalances(ctx, householdID, memberIDs[0])
	if err != nil {
		logger.Fatal("Failed to compute balances", zap.Error(err))
	}

	if len(balances.Currencies) == 0 {
		fmt.Println("Everyone is settled up.")
		return
	}
	for _, c := range balances.Currencies {
		fmt.Printf("%s\n", c.Currency)
		for _, m := range c.Members {
			fmt.Printf("  %-38s %12s\n", m.UserID, m.FormattedNet)
		}
		for _, s := range c.Suggestions {
			fmt.Printf("  -> %s pays %s %s\n", s.FromUserID, s.ToUserID, ledger.FormatCurrency(s.AmountCents, s.Currency))
		}
	}
}
