package services

import (
	"context"
	"sort"
	"strings"

	apperrors "hearth-backend/errors"
	"hearth-backend/ledger"
	"hearth-backend/metrics"
	"hearth-backend/models"
	"hearth-backend/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type SettlementInput struct {
	FromUserID  string  `json:"from_user_id"`
	ToUserID    string  `json:"to_user_id"`
	AmountCents int64   `json:"amount_cents"`
	Currency    string  `json:"currency"`
	Notes       *string `json:"notes,omitempty"`
}

type SettlementService interface {
	Create(ctx context.Context, householdID, userID string, input SettlementInput) (*models.Settlement, error)
	Delete(ctx context.Context, settlementID, userID string) error
	ListByHousehold(ctx context.Context, householdID, userID string) ([]models.Settlement, error)
	GetBalances(ctx context.Context, householdID, userID string) (*models.HouseholdBalances, error)
	CalculateSettlements(ctx context.Context, householdID, userID string) ([]ledger.SettlementSuggestion, error)
	AcceptSuggestion(ctx context.Context, householdID, userID string, suggestion ledger.SettlementSuggestion) (*models.Settlement, error)
}

type settlementService struct {
	expenseRepo    repository.ExpenseRepository
	settlementRepo repository.SettlementRepository
	householdRepo  repository.HouseholdRepository
	historyLimit   int
}

func NewSettlementService(
	expenseRepo repository.ExpenseRepository,
	settlementRepo repository.SettlementRepository,
	householdRepo repository.HouseholdRepository,
	historyLimit int,
) SettlementService {
	return &settlementService{
		expenseRepo:    expenseRepo,
		settlementRepo: settlementRepo,
		householdRepo:  householdRepo,
		historyLimit:   historyLimit,
	}
}

func (s *settlementService) requireMembership(ctx context.Context, householdID, userID string) error {
	return RequireHouseholdMembership(ctx, s.householdRepo, householdID, userID)
}

func (s *settlementService) Create(ctx context.Context, householdID, userID string, input SettlementInput) (*models.Settlement, error) {
	return s.create(ctx, householdID, userID, input, "manual")
}

func (s *settlementService) create(ctx context.Context, householdID, userID string, input SettlementInput, source string) (*models.Settlement, error) {
	if err := s.requireMembership(ctx, householdID, userID); err != nil {
		return nil, err
	}

	if input.FromUserID == "" {
		input.FromUserID = userID
	}
	if input.ToUserID == "" {
		return nil, apperrors.MissingRequiredField("to_user_id")
	}
	if input.FromUserID == input.ToUserID {
		return nil, apperrors.CannotSettleToSelf()
	}
	if input.AmountCents <= 0 {
		return nil, apperrors.InvalidAmount("Settlement amount must be greater than zero.")
	}
	if input.AmountCents > MaxExpenseCents {
		return nil, apperrors.InvalidAmount("Settlement amount is too large.")
	}
	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if !ledger.ValidCurrencyCode(currency) {
		return nil, apperrors.InvalidCurrency(input.Currency)
	}
	if input.Notes != nil && len(*input.Notes) > MaxNotesLength {
		return nil, apperrors.InvalidRequest("Notes are too long.")
	}

	for _, party := range []string{input.FromUserID, input.ToUserID} {
		isMember, err := s.householdRepo.IsMember(ctx, householdID, party)
		if err != nil {
			return nil, apperrors.DatabaseError("checking membership", err)
		}
		if !isMember {
			return nil, apperrors.InvalidRequestWithDetails("Both sides of a settlement must belong to this household.", party)
		}
	}

	settlement := &models.Settlement{
		ID:              uuid.New().String(),
		HouseholdID:     householdID,
		FromUserID:      input.FromUserID,
		ToUserID:        input.ToUserID,
		AmountCents:     input.AmountCents,
		Currency:        currency,
		Notes:           input.Notes,
		CreatedByUserID: userID,
	}
	if err := s.settlementRepo.Create(ctx, settlement); err != nil {
		zap.L().Error("Failed to record settlement", zap.String("household_id", householdID), zap.Error(err))
		return nil, apperrors.DatabaseError("creating settlement", err)
	}

	zap.L().Info("Settlement recorded",
		zap.String("settlement_id", settlement.ID),
		zap.String("household_id", householdID),
		zap.String("from_user_id", settlement.FromUserID),
		zap.String("to_user_id", settlement.ToUserID),
		zap.Int64("amount_cents", settlement.AmountCents),
		zap.String("currency", settlement.Currency),
		zap.String("source", source))
	metrics.SettlementsRecorded.WithLabelValues(source).Inc()
	return settlement, nil
}

func (s *settlementService) Delete(ctx context.Context, settlementID, userID string) error {
	if _, err := uuid.Parse(settlementID); err != nil {
		return apperrors.InvalidUUID("settlement id")
	}
	settlement, err := s.settlementRepo.GetByID(ctx, settlementID)
	if err != nil {
		if apperrors.IsNotFoundError(err) {
			return apperrors.SettlementNotFound()
		}
		return apperrors.DatabaseError("getting settlement", err)
	}

	if err := s.requireMembership(ctx, settlement.HouseholdID, userID); err != nil {
		return err
	}

	if err := s.settlementRepo.Delete(ctx, settlementID); err != nil {
		if apperrors.IsNotFoundError(err) {
			return apperrors.SettlementNotFound()
		}
		return apperrors.DatabaseError("deleting settlement", err)
	}
	zap.L().Info("Settlement deleted", zap.String("settlement_id", settlementID), zap.String("user_id", userID))
	return nil
}

func (s *settlementService) ListByHousehold(ctx context.Context, householdID, userID string) ([]models.Settlement, error) {
	if err := s.requireMembership(ctx, householdID, userID); err != nil {
		return nil, err
	}
	settlements, err := s.settlementRepo.ListByHousehold(ctx, householdID, s.historyLimit)
	if err != nil {
		return nil, apperrors.DatabaseError("listing settlements", err)
	}
	if settlements == nil {
		settlements = []models.Settlement{}
	}
	return settlements, nil
}

func (s *settlementService) GetBalances(ctx context.Context, householdID, userID string) (*models.HouseholdBalances, error) {
	if err := s.requireMembership(ctx, householdID, userID); err != nil {
		return nil, err
	}

	balances, err := s.computeBalances(ctx, householdID)
	if err != nil {
		return nil, err
	}

	result := &models.HouseholdBalances{
		HouseholdID: householdID,
		Currencies:  make([]models.CurrencyBalances, 0, len(balances)),
	}
	for _, currency := range ledger.Currencies(balances) {
		net := ledger.NetBalances(balances, currency)

		userIDs := make([]string, 0, len(net))
		for id := range net {
			userIDs = append(userIDs, id)
		}
		sort.Strings(userIDs)

		members := make([]models.MemberBalance, len(userIDs))
		for i, id := range userIDs {
			members[i] = models.MemberBalance{
				UserID:       id,
				NetCents:     net[id],
				FormattedNet: ledger.FormatCurrency(net[id], currency),
			}
		}

		result.Currencies = append(result.Currencies, models.CurrencyBalances{
			Currency:    currency,
			Members:     members,
			Suggestions: ledger.SimplifyDebts(net, currency),
		})
	}
	return result, nil
}

func (s *settlementService) CalculateSettlements(ctx context.Context, householdID, userID string) ([]ledger.SettlementSuggestion, error) {
	if err := s.requireMembership(ctx, householdID, userID); err != nil {
		return nil, err
	}

	balances, err := s.computeBalances(ctx, householdID)
	if err != nil {
		return nil, err
	}
	return ledger.SimplifyDebtsByCurrency(balances), nil
}

// AcceptSuggestion records a suggested payment as a settlement. The
// suggestion must still be part of the current plan, so a stale plan cannot
// be applied twice.
func (s *settlementService) AcceptSuggestion(ctx context.Context, householdID, userID string, suggestion ledger.SettlementSuggestion) (*models.Settlement, error) {
	current, err := s.CalculateSettlements(ctx, householdID, userID)
	if err != nil {
		return nil, err
	}

	found := false
	for _, c := range current {
		if c == suggestion {
			found = true
			break
		}
	}
	if !found {
		zap.L().Info("Rejected stale settlement suggestion",
			zap.String("household_id", householdID),
			zap.String("from_user_id", suggestion.FromUserID),
			zap.String("to_user_id", suggestion.ToUserID),
			zap.Int64("amount_cents", suggestion.AmountCents))
		return nil, apperrors.Conflict("Balances have changed since this suggestion was made. Refresh and try again.")
	}

	return s.create(ctx, householdID, userID, SettlementInput{
		FromUserID:  suggestion.FromUserID,
		ToUserID:    suggestion.ToUserID,
		AmountCents: suggestion.AmountCents,
		Currency:    suggestion.Currency,
	}, "suggestion")
}

func (s *settlementService) computeBalances(ctx context.Context, householdID string) (ledger.BalancesByCurrency, error) {
	expenses, err := s.expenseRepo.ListByHousehold(ctx, householdID, s.historyLimit)
	if err != nil {
		zap.L().Error("Failed to load expenses for balances", zap.String("household_id", householdID), zap.Error(err))
		return nil, apperrors.DatabaseError("loading expenses", err)
	}
	settlements, err := s.settlementRepo.ListByHousehold(ctx, householdID, s.historyLimit)
	if err != nil {
		zap.L().Error("Failed to load settlements for balances", zap.String("household_id", householdID), zap.Error(err))
		return nil, apperrors.DatabaseError("loading settlements", err)
	}

	if s.historyLimit > 0 && (len(expenses) >= s.historyLimit || len(settlements) >= s.historyLimit) {
		zap.L().Warn("Ledger history reached the configured limit, balances may be incomplete",
			zap.String("household_id", householdID),
			zap.Int("limit", s.historyLimit))
	}

	expenseRecords := make([]ledger.ExpenseRecord, len(expenses))
	for i := range expenses {
		expenseRecords[i] = expenses[i].Record()
	}
	settlementRecords := make([]ledger.SettlementRecord, len(settlements))
	for i := range settlements {
		settlementRecords[i] = settlements[i].Record()
	}
	return ledger.ComputeBalances(expenseRecords, settlementRecords), nil
}
