package services

import (
	"context"
	"testing"

	apperrors "hearth-backend/errors"
	"hearth-backend/ledger"
	"hearth-backend/metrics"
	"hearth-backend/models"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func equalExpense(id, paidBy string, amount int64, currency string, members ...string) models.Expense {
	inputs := make([]ledger.SplitInput, len(members))
	for i, m := range members {
		inputs[i] = ledger.SplitInput{UserID: m}
	}
	results, err := ledger.ComputeSplits(amount, ledger.SplitTypeEqual, inputs)
	if err != nil {
		panic(err)
	}
	splits := make([]models.ExpenseSplit, len(results))
	for i, r := range results {
		splits[i] = models.ExpenseSplit{ExpenseID: id, UserID: r.UserID, AmountCents: r.AmountCents}
	}
	return models.Expense{
		ID: id, HouseholdID: household, AmountCents: amount, Currency: currency,
		PaidByUserID: paidBy, SplitType: ledger.SplitTypeEqual, Splits: splits,
	}
}

func newTestSettlementService(expenses []models.Expense, settlements ...models.Settlement) (SettlementService, *mockSettlementRepo) {
	settlementRepo := newMockSettlementRepo(settlements...)
	households := &mockHouseholdRepo{members: map[string][]string{
		household:  {"alice", "bob", "carol"},
		otherHouse: {"mallory"},
	}}
	return NewSettlementService(newMockExpenseRepo(expenses...), settlementRepo, households, 1000), settlementRepo
}

func TestCalculateSettlements(t *testing.T) {
	tests := []struct {
		name        string
		expenses    []models.Expense
		settlements []models.Settlement
		expected    []ledger.SettlementSuggestion
	}{
		{
			name:     "two people",
			expenses: []models.Expense{equalExpense("e1", "alice", 1000, "USD", "alice", "bob")},
			expected: []ledger.SettlementSuggestion{
				{FromUserID: "bob", ToUserID: "alice", AmountCents: 500, Currency: "USD"},
			},
		},
		{
			name:     "three way residue stays in cents",
			expenses: []models.Expense{equalExpense("e1", "alice", 1000, "USD", "alice", "bob", "carol")},
			expected: []ledger.SettlementSuggestion{
				{FromUserID: "carol", ToUserID: "alice", AmountCents: 333, Currency: "USD"},
				{FromUserID: "bob", ToUserID: "alice", AmountCents: 333, Currency: "USD"},
			},
		},
		{
			name:     "settled up",
			expenses: []models.Expense{equalExpense("e1", "alice", 1000, "USD", "alice", "bob")},
			settlements: []models.Settlement{
				{ID: "s1", HouseholdID: household, FromUserID: "bob", ToUserID: "alice", AmountCents: 500, Currency: "USD"},
			},
			expected: []ledger.SettlementSuggestion{},
		},
		{
			name: "currencies are planned separately in code order",
			expenses: []models.Expense{
				equalExpense("e1", "alice", 1000, "USD", "alice", "bob"),
				equalExpense("e2", "bob", 800, "EUR", "alice", "bob"),
			},
			expected: []ledger.SettlementSuggestion{
				{FromUserID: "alice", ToUserID: "bob", AmountCents: 400, Currency: "EUR"},
				{FromUserID: "bob", ToUserID: "alice", AmountCents: 500, Currency: "USD"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestSettlementService(tt.expenses, tt.settlements...)
			got, err := svc.CalculateSettlements(context.Background(), household, "alice")
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestCalculateSettlementsRequiresMembership(t *testing.T) {
	svc, _ := newTestSettlementService(nil)
	_, err := svc.CalculateSettlements(context.Background(), household, "mallory")
	requireCode(t, err, apperrors.CodeNotHouseholdMember)
}

func TestGetBalances(t *testing.T) {
	svc, _ := newTestSettlementService([]models.Expense{
		equalExpense("e1", "alice", 900, "USD", "alice", "bob", "carol"),
		equalExpense("e2", "bob", 600, "USD", "alice", "bob", "carol"),
	})

	got, err := svc.GetBalances(context.Background(), household, "carol")
	require.NoError(t, err)
	require.Len(t, got.Currencies, 1)

	usd := got.Currencies[0]
	assert.Equal(t, "USD", usd.Currency)
	assert.Equal(t, []models.MemberBalance{
		{UserID: "alice", NetCents: 400, FormattedNet: "$4.00"},
		{UserID: "bob", NetCents: 100, FormattedNet: "$1.00"},
		{UserID: "carol", NetCents: -500, FormattedNet: "-$5.00"},
	}, usd.Members)
	assert.Equal(t, []ledger.SettlementSuggestion{
		{FromUserID: "carol", ToUserID: "alice", AmountCents: 400, Currency: "USD"},
		{FromUserID: "carol", ToUserID: "bob", AmountCents: 100, Currency: "USD"},
	}, usd.Suggestions)
}

func TestGetBalancesEmptyHousehold(t *testing.T) {
	svc, _ := newTestSettlementService(nil)
	got, err := svc.GetBalances(context.Background(), household, "alice")
	require.NoError(t, err)
	assert.NotNil(t, got.Currencies)
	assert.Empty(t, got.Currencies)
}

func TestCreateSettlement(t *testing.T) {
	svc, repo := newTestSettlementService(nil)

	s, err := svc.Create(context.Background(), household, "bob", SettlementInput{
		ToUserID:    "alice",
		AmountCents: 250,
		Currency:    "usd",
	})
	require.NoError(t, err)
	assert.Equal(t, "bob", s.FromUserID, "payer defaults to the caller")
	assert.Equal(t, "USD", s.Currency)
	assert.Equal(t, "bob", s.CreatedByUserID)
	assert.Len(t, repo.settlements, 1)
}

func TestCreateSettlementValidation(t *testing.T) {
	tests := []struct {
		name  string
		input SettlementInput
		code  apperrors.ErrorCode
	}{
		{"self payment", SettlementInput{FromUserID: "bob", ToUserID: "bob", AmountCents: 100, Currency: "USD"}, apperrors.CodeInvalidSettlement},
		{"missing payee", SettlementInput{AmountCents: 100, Currency: "USD"}, apperrors.CodeMissingRequiredField},
		{"zero amount", SettlementInput{ToUserID: "alice", Currency: "USD"}, apperrors.CodeInvalidAmount},
		{"bad currency", SettlementInput{ToUserID: "alice", AmountCents: 100, Currency: "dollars"}, apperrors.CodeInvalidCurrency},
		{"outsider payee", SettlementInput{ToUserID: "mallory", AmountCents: 100, Currency: "USD"}, apperrors.CodeInvalidRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo := newTestSettlementService(nil)
			_, err := svc.Create(context.Background(), household, "bob", tt.input)
			requireCode(t, err, tt.code)
			assert.Empty(t, repo.settlements)
		})
	}
}

func TestAcceptSuggestion(t *testing.T) {
	svc, repo := newTestSettlementService([]models.Expense{equalExpense("e1", "alice", 1000, "USD", "alice", "bob")})
	suggestion := ledger.SettlementSuggestion{FromUserID: "bob", ToUserID: "alice", AmountCents: 500, Currency: "USD"}
	accepted := metrics.SettlementsRecorded.WithLabelValues("suggestion")
	before := testutil.ToFloat64(accepted)

	s, err := svc.AcceptSuggestion(context.Background(), household, "alice", suggestion)
	require.NoError(t, err)
	assert.Equal(t, int64(500), s.AmountCents)
	assert.Len(t, repo.settlements, 1)
	assert.Equal(t, before+1, testutil.ToFloat64(accepted))

	remaining, err := svc.CalculateSettlements(context.Background(), household, "alice")
	require.NoError(t, err)
	assert.Empty(t, remaining)

	_, err = svc.AcceptSuggestion(context.Background(), household, "alice", suggestion)
	requireCode(t, err, apperrors.CodeConflict)
	assert.Len(t, repo.settlements, 1)
}

func TestDeleteSettlement(t *testing.T) {
	const id = "9a0b1c2d-3e4f-4a5b-8c6d-7e8f9a0b1c2d"
	svc, repo := newTestSettlementService(nil, models.Settlement{
		ID: id, HouseholdID: household, FromUserID: "bob", ToUserID: "alice", AmountCents: 100, Currency: "USD",
	})

	err := svc.Delete(context.Background(), id, "mallory")
	requireCode(t, err, apperrors.CodeNotHouseholdMember)

	require.NoError(t, svc.Delete(context.Background(), id, "carol"))
	assert.Empty(t, repo.settlements)

	err = svc.Delete(context.Background(), id, "carol")
	requireCode(t, err, apperrors.CodeSettlementNotFound)
}
