package services

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"hearth-backend/database"
	apperrors "hearth-backend/errors"
	"hearth-backend/ledger"
	"hearth-backend/metrics"
	"hearth-backend/models"
	"hearth-backend/repository"
	"hearth-backend/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ExpenseInput is what a client submits to create or edit an expense.
// Members may be left empty for an equal split across the whole household.
type ExpenseInput struct {
	Description  string              `json:"description"`
	AmountCents  int64               `json:"amount_cents"`
	Currency     string              `json:"currency"`
	PaidByUserID string              `json:"paid_by_user_id"`
	SplitType    ledger.SplitType    `json:"split_type"`
	Members      []ledger.SplitInput `json:"members"`
	Notes        *string             `json:"notes,omitempty"`
}

type ExpenseService interface {
	GetByID(ctx context.Context, expenseID, userID string) (*models.Expense, error)
	ListByHousehold(ctx context.Context, householdID, userID string) ([]models.Expense, error)
	Create(ctx context.Context, householdID, userID string, input ExpenseInput) (*models.Expense, error)
	Update(ctx context.Context, expenseID, userID string, input ExpenseInput) (*models.Expense, error)
	Delete(ctx context.Context, expenseID, userID string) error
	AttachReceipt(ctx context.Context, expenseID, userID string, file io.Reader, filename, contentType string) (*models.Expense, error)
}

type expenseService struct {
	expenseRepo    repository.ExpenseRepository
	householdRepo  repository.HouseholdRepository
	tx             database.Transactor
	storage        storage.Storage
	receiptsBucket string
	listLimit      int
}

func NewExpenseService(
	expenseRepo repository.ExpenseRepository,
	householdRepo repository.HouseholdRepository,
	tx database.Transactor,
	receipts storage.Storage,
	receiptsBucket string,
	listLimit int,
) ExpenseService {
	return &expenseService{
		expenseRepo:    expenseRepo,
		householdRepo:  householdRepo,
		tx:             tx,
		storage:        receipts,
		receiptsBucket: receiptsBucket,
		listLimit:      listLimit,
	}
}

func (s *expenseService) GetByID(ctx context.Context, expenseID, userID string) (*models.Expense, error) {
	zap.L().Debug("Getting expense by ID", zap.String("expense_id", expenseID), zap.String("user_id", userID))
	expense, err := s.load(ctx, expenseID)
	if err != nil {
		return nil, err
	}

	if err := RequireHouseholdMembership(ctx, s.householdRepo, expense.HouseholdID, userID); err != nil {
		return nil, err
	}
	return expense, nil
}

func (s *expenseService) ListByHousehold(ctx context.Context, householdID, userID string) ([]models.Expense, error) {
	zap.L().Debug("Listing household expenses", zap.String("household_id", householdID), zap.String("user_id", userID))
	if err := RequireHouseholdMembership(ctx, s.householdRepo, householdID, userID); err != nil {
		return nil, err
	}

	expenses, err := s.expenseRepo.ListByHousehold(ctx, householdID, s.listLimit)
	if err != nil {
		zap.L().Error("Failed to list household expenses", zap.String("household_id", householdID), zap.Error(err))
		return nil, apperrors.DatabaseError("listing expenses", err)
	}
	if expenses == nil {
		expenses = []models.Expense{}
	}
	return expenses, nil
}

func (s *expenseService) Create(ctx context.Context, householdID, userID string, input ExpenseInput) (*models.Expense, error) {
	if err := RequireHouseholdMembership(ctx, s.householdRepo, householdID, userID); err != nil {
		return nil, err
	}

	expense := &models.Expense{
		ID:              uuid.New().String(),
		HouseholdID:     householdID,
		CreatedByUserID: userID,
	}
	if err := s.apply(ctx, expense, userID, input); err != nil {
		return nil, err
	}

	err := s.tx.WithTx(ctx, func(q database.Querier) error {
		txRepo := s.expenseRepo.WithTx(q)
		if err := txRepo.Create(ctx, expense); err != nil {
			if apperrors.IsDuplicateError(err) {
				return apperrors.DuplicateEntry("Expense")
			}
			return apperrors.DatabaseError("creating expense", err)
		}
		if err := txRepo.ReplaceSplits(ctx, expense.ID, expense.Splits); err != nil {
			return apperrors.DatabaseError("creating expense splits", err)
		}
		return nil
	})
	if err != nil {
		zap.L().Error("Failed to create expense transactionally", zap.String("household_id", householdID), zap.Error(err))
		return nil, err
	}

	zap.L().Info("Expense created",
		zap.String("expense_id", expense.ID),
		zap.String("household_id", householdID),
		zap.Int64("amount_cents", expense.AmountCents),
		zap.String("currency", expense.Currency))
	metrics.ExpensesRecorded.WithLabelValues("create", string(expense.SplitType)).Inc()
	return expense, nil
}

func (s *expenseService) Update(ctx context.Context, expenseID, userID string, input ExpenseInput) (*models.Expense, error) {
	zap.L().Info("Updating expense", zap.String("expense_id", expenseID), zap.String("user_id", userID))
	existing, err := s.load(ctx, expenseID)
	if err != nil {
		return nil, err
	}

	if err := RequireHouseholdMembership(ctx, s.householdRepo, existing.HouseholdID, userID); err != nil {
		return nil, err
	}

	expense := *existing
	if input.SplitType == "" {
		input.SplitType = existing.SplitType
	}
	if err := s.apply(ctx, &expense, userID, input); err != nil {
		return nil, err
	}
	expense.LastEditedByUserID = &userID

	err = s.tx.WithTx(ctx, func(q database.Querier) error {
		txRepo := s.expenseRepo.WithTx(q)
		if err := txRepo.Update(ctx, &expense); err != nil {
			return apperrors.DatabaseError("updating expense", err)
		}
		if err := txRepo.ReplaceSplits(ctx, expense.ID, expense.Splits); err != nil {
			return apperrors.DatabaseError("replacing expense splits", err)
		}
		return nil
	})
	if err != nil {
		zap.L().Error("Failed to update expense transactionally", zap.String("expense_id", expenseID), zap.Error(err))
		return nil, err
	}

	zap.L().Info("Expense updated", zap.String("expense_id", expenseID), zap.Int64("amount_cents", expense.AmountCents))
	metrics.ExpensesRecorded.WithLabelValues("update", string(expense.SplitType)).Inc()
	return &expense, nil
}

func (s *expenseService) Delete(ctx context.Context, expenseID, userID string) error {
	zap.L().Info("Deleting expense", zap.String("expense_id", expenseID), zap.String("user_id", userID))
	expense, err := s.load(ctx, expenseID)
	if err != nil {
		return err
	}

	if err := RequireHouseholdMembership(ctx, s.householdRepo, expense.HouseholdID, userID); err != nil {
		return err
	}

	if err := s.expenseRepo.Delete(ctx, expenseID); err != nil {
		if apperrors.IsNotFoundError(err) {
			return apperrors.ExpenseNotFound()
		}
		zap.L().Error("Failed to delete expense", zap.String("expense_id", expenseID), zap.Error(err))
		return apperrors.DatabaseError("deleting expense", err)
	}

	if expense.ReceiptURL != nil {
		s.removeReceipt(ctx, *expense.ReceiptURL)
	}

	zap.L().Info("Expense deleted", zap.String("expense_id", expenseID))
	return nil
}

func (s *expenseService) AttachReceipt(ctx context.Context, expenseID, userID string, file io.Reader, filename, contentType string) (*models.Expense, error) {
	expense, err := s.GetByID(ctx, expenseID, userID)
	if err != nil {
		return nil, err
	}

	objectName := fmt.Sprintf("%s/%s%s", expense.HouseholdID, uuid.New().String(), strings.ToLower(filepath.Ext(filename)))
	url, err := s.storage.Upload(ctx, s.receiptsBucket, objectName, file, contentType)
	if err != nil {
		zap.L().Error("Failed to upload receipt", zap.String("expense_id", expenseID), zap.Error(err))
		return nil, apperrors.StorageError("uploading receipt", err)
	}

	if err := s.expenseRepo.UpdateReceiptURL(ctx, expenseID, url); err != nil {
		zap.L().Error("Failed to save receipt url", zap.String("expense_id", expenseID), zap.Error(err))
		return nil, apperrors.DatabaseError("saving receipt url", err)
	}

	if expense.ReceiptURL != nil {
		s.removeReceipt(ctx, *expense.ReceiptURL)
	}

	zap.L().Info("Receipt attached", zap.String("expense_id", expenseID), zap.String("object", objectName))
	expense.ReceiptURL = &url
	return expense, nil
}

// removeReceipt deletes a stored receipt. Failures only leave an orphaned
// object behind, so they are logged and not returned.
func (s *expenseService) removeReceipt(ctx context.Context, receiptURL string) {
	marker := "/" + s.receiptsBucket + "/"
	idx := strings.Index(receiptURL, marker)
	if idx < 0 {
		zap.L().Warn("Receipt url outside the receipts bucket", zap.String("url", receiptURL))
		return
	}
	objectName := receiptURL[idx+len(marker):]
	if err := s.storage.Delete(ctx, s.receiptsBucket, objectName); err != nil {
		zap.L().Warn("Failed to remove receipt object", zap.String("object", objectName), zap.Error(err))
	}
}

func (s *expenseService) load(ctx context.Context, expenseID string) (*models.Expense, error) {
	if _, err := uuid.Parse(expenseID); err != nil {
		return nil, apperrors.InvalidUUID("expense id")
	}
	expense, err := s.expenseRepo.GetByID(ctx, expenseID)
	if err != nil {
		if apperrors.IsNotFoundError(err) {
			zap.L().Debug("Expense not found", zap.String("expense_id", expenseID))
			return nil, apperrors.ExpenseNotFound()
		}
		zap.L().Error("Failed to get expense", zap.String("expense_id", expenseID), zap.Error(err))
		return nil, apperrors.DatabaseError("getting expense", err)
	}
	return expense, nil
}

// apply validates input against the household and writes the resolved
// fields and splits onto expense.
func (s *expenseService) apply(ctx context.Context, expense *models.Expense, userID string, input ExpenseInput) error {
	description := strings.TrimSpace(input.Description)
	if len(description) < MinDescriptionLength {
		return apperrors.MissingRequiredField("Description")
	}
	if len(description) > MaxDescriptionLength {
		return apperrors.InvalidRequest(fmt.Sprintf("Description must be at most %d characters.", MaxDescriptionLength))
	}
	if input.Notes != nil && len(*input.Notes) > MaxNotesLength {
		return apperrors.InvalidRequest(fmt.Sprintf("Notes must be at most %d characters.", MaxNotesLength))
	}
	if input.AmountCents <= 0 {
		return apperrors.InvalidAmount("Amount must be greater than zero.")
	}
	if input.AmountCents > MaxExpenseCents {
		return apperrors.InvalidAmount("Amount is too large.")
	}
	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if !ledger.ValidCurrencyCode(currency) {
		return apperrors.InvalidCurrency(input.Currency)
	}

	splitType := input.SplitType
	if splitType == "" {
		splitType = ledger.SplitTypeEqual
	}
	paidBy := input.PaidByUserID
	if paidBy == "" {
		paidBy = userID
	}

	memberIDs, err := HouseholdMemberIDs(ctx, s.householdRepo, expense.HouseholdID)
	if err != nil {
		return err
	}
	inHousehold := make(map[string]bool, len(memberIDs))
	for _, id := range memberIDs {
		inHousehold[id] = true
	}

	if !inHousehold[paidBy] {
		return apperrors.InvalidRequest("The payer must be a member of this household.")
	}

	members := input.Members
	if len(members) == 0 && splitType == ledger.SplitTypeEqual {
		members = make([]ledger.SplitInput, len(memberIDs))
		for i, id := range memberIDs {
			members[i] = ledger.SplitInput{UserID: id}
		}
	}
	for _, m := range members {
		if m.UserID != "" && !inHousehold[m.UserID] {
			return apperrors.InvalidRequestWithDetails("Every split member must belong to this household.", m.UserID)
		}
	}

	results, err := ledger.ComputeSplits(input.AmountCents, splitType, members)
	if err != nil {
		zap.L().Warn("Rejected split",
			zap.String("household_id", expense.HouseholdID),
			zap.String("split_type", string(splitType)),
			zap.Error(err))
		return apperrors.InvalidSplit(err)
	}

	directives := make(map[string]ledger.SplitInput, len(members))
	for _, m := range members {
		directives[m.UserID] = m
	}
	splits := make([]models.ExpenseSplit, len(results))
	for i, r := range results {
		d := directives[r.UserID]
		splits[i] = models.ExpenseSplit{
			ExpenseID:   expense.ID,
			UserID:      r.UserID,
			AmountCents: r.AmountCents,
		}
		switch splitType {
		case ledger.SplitTypePercentage:
			splits[i].Percentage = d.Percentage
		case ledger.SplitTypeShares:
			splits[i].Shares = d.Shares
		}
	}

	expense.Description = description
	expense.AmountCents = input.AmountCents
	expense.Currency = currency
	expense.PaidByUserID = paidBy
	expense.SplitType = splitType
	expense.Notes = input.Notes
	expense.Splits = splits

	return validateSplitTotal(expense)
}

// validateSplitTotal checks the stored splits still add up to the expense
// amount before anything is written.
func validateSplitTotal(expense *models.Expense) error {
	var total int64
	exceeds := false
	for _, split := range expense.Splits {
		if split.AmountCents < 0 || split.AmountCents > expense.AmountCents-total {
			exceeds = true
			break
		}
		total += split.AmountCents
	}
	if exceeds || total != expense.AmountCents {
		zap.L().Warn("Expense validation failed: amount mismatch",
			zap.Int64("split_total", total),
			zap.Int64("amount_cents", expense.AmountCents))
		return apperrors.AmountMismatch(total, expense.AmountCents, "split")
	}
	return nil
}
