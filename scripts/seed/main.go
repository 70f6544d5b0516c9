package main

import (
	"context"
	"fmt"

	"hearth-backend/config"
	"hearth-backend/database"
	"hearth-backend/ledger"
	"hearth-backend/repository"
	"hearth-backend/services"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Same ids scripts/generate_token prints, so seeded data can be queried
// through the API right away.
var members = []struct {
	name string
	id   string
}{
	{"Alice", "d5a2089c-e39a-4b62-a973-778f6729323d"},
	{"Bob", "38c072a2-43f9-42b9-b603-6061c49d5c2d"},
	{"Charlie", "ad655801-23a9-4a33-8695-81d4426604fb"},
	{"Diana", "0cc055a7-860a-4ac9-8018-82380ba204a3"},
}

func main() {
	logger, _ := zap.NewDevelopment()
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

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

	if err := db.Migrate(ctx); err != nil {
		logger.Fatal("Failed to apply schema", zap.Error(err))
	}

	householdID := uuid.New().String()
	for _, m := range members {
		if _, err := db.Pool.Exec(ctx,
			`INSERT INTO household_members (household_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			householdID, m.id,
		); err != nil {
			logger.Fatal("Failed to add member", zap.String("member", m.name), zap.Error(err))
		}
	}

	householdRepo := repository.NewHouseholdRepository(db)
	expenseRepo := repository.NewExpenseRepository(db)
	settlementRepo := repository.NewSettlementRepository(db)
	expenseService := services.NewExpenseService(expenseRepo, householdRepo, db, nil, cfg.ReceiptsBucket, cfg.LedgerHistoryLimit)
	settlementService := services.NewSettlementService(expenseRepo, settlementRepo, householdRepo, cfg.LedgerHistoryLimit)

	alice, bob, charlie, diana := members[0].id, members[1].id, members[2].id, members[3].id
	pct := func(v float64) *float64 { return &v }
	shares := func(v int64) *int64 { return &v }

	expenses := []services.ExpenseInput{
		{Description: "October rent", AmountCents: 320000, Currency: "USD", PaidByUserID: alice, SplitType: ledger.SplitTypePercentage,
			Members: []ledger.SplitInput{
				{UserID: alice, Percentage: pct(30)},
				{UserID: bob, Percentage: pct(30)},
				{UserID: charlie, Percentage: pct(20)},
				{UserID: diana, Percentage: pct(20)},
			}},
		{Description: "Groceries", AmountCents: 8734, Currency: "USD", PaidByUserID: bob},
		{Description: "Internet", AmountCents: 6000, Currency: "USD", PaidByUserID: charlie, SplitType: ledger.SplitTypeShares,
			Members: []ledger.SplitInput{
				{UserID: alice, Shares: shares(1)},
				{UserID: bob, Shares: shares(1)},
				{UserID: charlie, Shares: shares(2)},
			}},
		{Description: "Ski cabin deposit", AmountCents: 45000, Currency: "EUR", PaidByUserID: diana, SplitType: ledger.SplitTypeEqual,
			Members: []ledger.SplitInput{{UserID: diana}, {UserID: alice}}},
	}
	for _, input := range expenses {
		if _, err := expenseService.Create(ctx, householdID, input.PaidByUserID, input); err != nil {
			logger.Fatal("Failed to seed expense", zap.String("description", input.Description), zap.Error(err))
		}
	}

	if _, err := settlementService.Create(ctx, householdID, bob, services.SettlementInput{
		ToUserID:    alice,
		AmountCents: 50000,
		Currency:    "USD",
	}); err != nil {
		logger.Fatal("Failed to seed settlement", zap.Error(err))
	}

	fmt.Println("Seeded household:", householdID)
	for _, m := range members {
		fmt.Printf("  %-8s %s\n", m.name, m.id)
	}
}
