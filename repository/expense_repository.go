package repository

import (
	"context"
	"fmt"

	"hearth-backend/database"
	"hearth-backend/models"

	"github.com/jackc/pgx/v5"
)

type ExpenseRepository interface {
	GetByID(ctx context.Context, id string) (*models.Expense, error)
	ListByHousehold(ctx context.Context, householdID string, limit int) ([]models.Expense, error)
	Create(ctx context.Context, expense *models.Expense) error
	Update(ctx context.Context, expense *models.Expense) error
	Delete(ctx context.Context, id string) error
	ReplaceSplits(ctx context.Context, expenseID string, splits []models.ExpenseSplit) error
	UpdateReceiptURL(ctx context.Context, id, url string) error
	WithTx(tx database.Querier) ExpenseRepository
}

type expenseRepository struct {
	db *database.DB
	tx database.Querier
}

func NewExpenseRepository(db *database.DB) ExpenseRepository {
	return &expenseRepository{db: db}
}

func (r *expenseRepository) WithTx(tx database.Querier) ExpenseRepository {
	return &expenseRepository{db: r.db, tx: tx}
}

func (r *expenseRepository) getQuerier() database.Querier {
	if r.tx != nil {
		return r.tx
	}
	return r.db.Pool
}

const expenseColumns = `id, household_id, description, amount_cents, currency, paid_by_user_id,
	split_type, notes, receipt_url, created_by_user_id, created_at, last_edited_by_user_id, last_edited_at`

func scanExpense(row pgx.Row, e *models.Expense) error {
	return row.Scan(
		&e.ID, &e.HouseholdID, &e.Description, &e.AmountCents, &e.Currency, &e.PaidByUserID,
		&e.SplitType, &e.Notes, &e.ReceiptURL, &e.CreatedByUserID, &e.CreatedAt,
		&e.LastEditedByUserID, &e.LastEditedAt,
	)
}

func (r *expenseRepository) GetByID(ctx context.Context, id string) (*models.Expense, error) {
	var expense models.Expense
	query := `SELECT ` + expenseColumns + ` FROM expenses WHERE id = $1`

	if err := scanExpense(r.getQuerier().QueryRow(ctx, query, id), &expense); err != nil {
		return nil, fmt.Errorf("getting expense by id: %w", err)
	}

	splits, err := r.getSplitsByExpenseIDs(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	expense.Splits = splits[id]
	if expense.Splits == nil {
		expense.Splits = []models.ExpenseSplit{}
	}
	return &expense, nil
}

// ListByHousehold returns the newest expenses first with their splits
// batch-loaded. A non-positive limit means no limit.
func (r *expenseRepository) ListByHousehold(ctx context.Context, householdID string, limit int) ([]models.Expense, error) {
	query := `SELECT ` + expenseColumns + ` FROM expenses WHERE household_id = $1
	          ORDER BY created_at DESC, id DESC`
	args := []interface{}{householdID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := r.getQuerier().Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing expenses: %w", err)
	}
	defer rows.Close()

	expenses := make([]models.Expense, 0)
	expenseIDs := make([]string, 0)
	for rows.Next() {
		var expense models.Expense
		if err := scanExpense(rows, &expense); err != nil {
			return nil, fmt.Errorf("scanning expense: %w", err)
		}
		expenses = append(expenses, expense)
		expenseIDs = append(expenseIDs, expense.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating expenses: %w", err)
	}

	allSplits, err := r.getSplitsByExpenseIDs(ctx, expenseIDs)
	if err != nil {
		return nil, err
	}
	for i := range expenses {
		if splits := allSplits[expenses[i].ID]; splits != nil {
			expenses[i].Splits = splits
		} else {
			expenses[i].Splits = []models.ExpenseSplit{}
		}
	}
	return expenses, nil
}

func (r *expenseRepository) Create(ctx context.Context, expense *models.Expense) error {
	query := `INSERT INTO expenses (id, household_id, description, amount_cents, currency, paid_by_user_id,
	          split_type, notes, receipt_url, created_by_user_id, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
	          RETURNING created_at`

	err := r.getQuerier().QueryRow(ctx, query,
		expense.ID, expense.HouseholdID, expense.Description, expense.AmountCents, expense.Currency,
		expense.PaidByUserID, expense.SplitType, expense.Notes, expense.ReceiptURL, expense.CreatedByUserID,
	).Scan(&expense.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating expense: %w", err)
	}
	return nil
}

func (r *expenseRepository) Update(ctx context.Context, expense *models.Expense) error {
	query := `UPDATE expenses SET description = $1, amount_cents = $2, currency = $3, paid_by_user_id = $4,
	          split_type = $5, notes = $6, last_edited_by_user_id = $7, last_edited_at = NOW()
	          WHERE id = $8
	          RETURNING last_edited_at`

	err := r.getQuerier().QueryRow(ctx, query,
		expense.Description, expense.AmountCents, expense.Currency, expense.PaidByUserID,
		expense.SplitType, expense.Notes, expense.LastEditedByUserID, expense.ID,
	).Scan(&expense.LastEditedAt)
	if err != nil {
		return fmt.Errorf("updating expense: %w", err)
	}
	return nil
}

func (r *expenseRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.getQuerier().Exec(ctx, `DELETE FROM expenses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting expense: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("deleting expense: %w", pgx.ErrNoRows)
	}
	return nil
}

// ReplaceSplits swaps the stored splits of an expense for the given set.
// Callers run it inside the same transaction as the expense write.
func (r *expenseRepository) ReplaceSplits(ctx context.Context, expenseID string, splits []models.ExpenseSplit) error {
	q := r.getQuerier()
	if _, err := q.Exec(ctx, `DELETE FROM expense_splits WHERE expense_id = $1`, expenseID); err != nil {
		return fmt.Errorf("deleting splits: %w", err)
	}

	query := `INSERT INTO expense_splits (expense_id, user_id, amount_cents, percentage, shares)
	          VALUES ($1, $2, $3, $4, $5)`
	for _, s := range splits {
		if _, err := q.Exec(ctx, query, expenseID, s.UserID, s.AmountCents, s.Percentage, s.Shares); err != nil {
			return fmt.Errorf("creating split for %s: %w", s.UserID, err)
		}
	}
	return nil
}

func (r *expenseRepository) UpdateReceiptURL(ctx context.Context, id, url string) error {
	tag, err := r.getQuerier().Exec(ctx, `UPDATE expenses SET receipt_url = $1 WHERE id = $2`, url, id)
	if err != nil {
		return fmt.Errorf("updating receipt url: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("updating receipt url: %w", pgx.ErrNoRows)
	}
	return nil
}

func (r *expenseRepository) getSplitsByExpenseIDs(ctx context.Context, expenseIDs []string) (map[string][]models.ExpenseSplit, error) {
	if len(expenseIDs) == 0 {
		return make(map[string][]models.ExpenseSplit), nil
	}

	query := `SELECT expense_id, user_id, amount_cents, percentage, shares
	          FROM expense_splits WHERE expense_id = ANY($1)
	          ORDER BY expense_id, user_id`

	rows, err := r.getQuerier().Query(ctx, query, expenseIDs)
	if err != nil {
		return nil, fmt.Errorf("batch getting splits: %w", err)
	}
	defer rows.Close()

	result := make(map[string][]models.ExpenseSplit)
	for rows.Next() {
		var split models.ExpenseSplit
		if err := rows.Scan(&split.ExpenseID, &split.UserID, &split.AmountCents, &split.Percentage, &split.Shares); err != nil {
			return nil, fmt.Errorf("scanning split: %w", err)
		}
		result[split.ExpenseID] = append(result[split.ExpenseID], split)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating splits: %w", err)
	}
	return result, nil
}
