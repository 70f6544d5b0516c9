package services

import (
	"context"
	"fmt"
	"io"
	"sort"

	"hearth-backend/database"
	"hearth-backend/models"
	"hearth-backend/repository"

	"github.com/jackc/pgx/v5"
)

type mockExpenseRepo struct {
	expenses  map[string]*models.Expense
	createErr error
}

func newMockExpenseRepo(expenses ...models.Expense) *mockExpenseRepo {
	m := &mockExpenseRepo{expenses: make(map[string]*models.Expense)}
	for i := range expenses {
		e := expenses[i]
		m.expenses[e.ID] = &e
	}
	return m
}

func (m *mockExpenseRepo) GetByID(ctx context.Context, id string) (*models.Expense, error) {
	e, ok := m.expenses[id]
	if !ok {
		return nil, fmt.Errorf("getting expense by id: %w", pgx.ErrNoRows)
	}
	cp := *e
	return &cp, nil
}

func (m *mockExpenseRepo) ListByHousehold(ctx context.Context, householdID string, limit int) ([]models.Expense, error) {
	var out []models.Expense
	for _, e := range m.expenses {
		if e.HouseholdID == householdID {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockExpenseRepo) Create(ctx context.Context, expense *models.Expense) error {
	if m.createErr != nil {
		return m.createErr
	}
	cp := *expense
	m.expenses[expense.ID] = &cp
	return nil
}

func (m *mockExpenseRepo) Update(ctx context.Context, expense *models.Expense) error {
	if _, ok := m.expenses[expense.ID]; !ok {
		return pgx.ErrNoRows
	}
	cp := *expense
	m.expenses[expense.ID] = &cp
	return nil
}

func (m *mockExpenseRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.expenses[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(m.expenses, id)
	return nil
}

func (m *mockExpenseRepo) ReplaceSplits(ctx context.Context, expenseID string, splits []models.ExpenseSplit) error {
	e, ok := m.expenses[expenseID]
	if !ok {
		return pgx.ErrNoRows
	}
	e.Splits = append([]models.ExpenseSplit(nil), splits...)
	return nil
}

func (m *mockExpenseRepo) UpdateReceiptURL(ctx context.Context, id, url string) error {
	e, ok := m.expenses[id]
	if !ok {
		return pgx.ErrNoRows
	}
	e.ReceiptURL = &url
	return nil
}

func (m *mockExpenseRepo) WithTx(tx database.Querier) repository.ExpenseRepository { return m }

type mockSettlementRepo struct {
	settlements map[string]*models.Settlement
}

func newMockSettlementRepo(settlements ...models.Settlement) *mockSettlementRepo {
	m := &mockSettlementRepo{settlements: make(map[string]*models.Settlement)}
	for i := range settlements {
		s := settlements[i]
		m.settlements[s.ID] = &s
	}
	return m
}

func (m *mockSettlementRepo) GetByID(ctx context.Context, id string) (*models.Settlement, error) {
	s, ok := m.settlements[id]
	if !ok {
		return nil, fmt.Errorf("getting settlement by id: %w", pgx.ErrNoRows)
	}
	cp := *s
	return &cp, nil
}

func (m *mockSettlementRepo) ListByHousehold(ctx context.Context, householdID string, limit int) ([]models.Settlement, error) {
	var out []models.Settlement
	for _, s := range m.settlements {
		if s.HouseholdID == householdID {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockSettlementRepo) Create(ctx context.Context, settlement *models.Settlement) error {
	cp := *settlement
	m.settlements[settlement.ID] = &cp
	return nil
}

func (m *mockSettlementRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.settlements[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(m.settlements, id)
	return nil
}

func (m *mockSettlementRepo) WithTx(tx database.Querier) repository.SettlementRepository { return m }

type mockHouseholdRepo struct {
	members map[string][]string
}

func (m *mockHouseholdRepo) IsMember(ctx context.Context, householdID, userID string) (bool, error) {
	for _, id := range m.members[householdID] {
		if id == userID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockHouseholdRepo) GetMemberIDs(ctx context.Context, householdID string) ([]string, error) {
	return m.members[householdID], nil
}

func (m *mockHouseholdRepo) WithTx(tx database.Querier) repository.HouseholdRepository { return m }

// fakeTx runs fn without a real transaction; the mocks ignore the querier.
type fakeTx struct {
	calls int
}

func (f *fakeTx) WithTx(ctx context.Context, fn func(database.Querier) error) error {
	f.calls++
	return fn(nil)
}

type mockStorage struct {
	uploaded map[string]string
	err      error
}

func (m *mockStorage) Upload(ctx context.Context, bucket string, filename string, file io.Reader, contentType string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	b, _ := io.ReadAll(file)
	if m.uploaded == nil {
		m.uploaded = make(map[string]string)
	}
	m.uploaded[bucket+"/"+filename] = string(b)
	return "https://files.example/" + bucket + "/" + filename, nil
}

func (m *mockStorage) Delete(ctx context.Context, bucket string, filename string) error {
	delete(m.uploaded, bucket+"/"+filename)
	return nil
}

func (m *mockStorage) GetURL(ctx context.Context, bucket string, filename string) (string, error) {
	return "https://files.example/" + bucket + "/" + filename, nil
}
