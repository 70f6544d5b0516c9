package models

import (
	"time"

	"hearth-backend/ledger"
)

type Expense struct {
	ID                 string           `json:"id" db:"id"`
	HouseholdID        string           `json:"household_id" db:"household_id"`
	Description        string           `json:"description" db:"description"`
	AmountCents        int64            `json:"amount_cents" db:"amount_cents"`
	Currency           string           `json:"currency" db:"currency"`
	PaidByUserID       string           `json:"paid_by_user_id" db:"paid_by_user_id"`
	SplitType          ledger.SplitType `json:"split_type" db:"split_type"`
	Notes              *string          `json:"notes,omitempty" db:"notes"`
	ReceiptURL         *string          `json:"receipt_url,omitempty" db:"receipt_url"`
	CreatedByUserID    string           `json:"created_by_user_id" db:"created_by_user_id"`
	CreatedAt          time.Time        `json:"created_at" db:"created_at"`
	LastEditedByUserID *string          `json:"last_edited_by_user_id,omitempty" db:"last_edited_by_user_id"`
	LastEditedAt       *time.Time       `json:"last_edited_at,omitempty" db:"last_edited_at"`
	Splits             []ExpenseSplit   `json:"splits"`
}

// ExpenseSplit is one member's resolved share. Percentage and Shares keep
// the directive the share was computed from so an edit form can be refilled.
type ExpenseSplit struct {
	ExpenseID   string   `json:"expense_id,omitempty" db:"expense_id"`
	UserID      string   `json:"user_id" db:"user_id"`
	AmountCents int64    `json:"amount_cents" db:"amount_cents"`
	Percentage  *float64 `json:"percentage,omitempty" db:"percentage"`
	Shares      *int64   `json:"shares,omitempty" db:"shares"`
}

// Record converts the expense into the shape the balance fold consumes.
func (e *Expense) Record() ledger.ExpenseRecord {
	splits := make([]ledger.SplitResult, len(e.Splits))
	for i, s := range e.Splits {
		splits[i] = ledger.SplitResult{UserID: s.UserID, AmountCents: s.AmountCents}
	}
	return ledger.ExpenseRecord{
		PaidByUserID: e.PaidByUserID,
		AmountCents:  e.AmountCents,
		Currency:     e.Currency,
		Splits:       splits,
	}
}

type Settlement struct {
	ID              string    `json:"id" db:"id"`
	HouseholdID     string    `json:"household_id" db:"household_id"`
	FromUserID      string    `json:"from_user_id" db:"from_user_id"`
	ToUserID        string    `json:"to_user_id" db:"to_user_id"`
	AmountCents     int64     `json:"amount_cents" db:"amount_cents"`
	Currency        string    `json:"currency" db:"currency"`
	Notes           *string   `json:"notes,omitempty" db:"notes"`
	CreatedByUserID string    `json:"created_by_user_id" db:"created_by_user_id"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}

func (s *Settlement) Record() ledger.SettlementRecord {
	return ledger.SettlementRecord{
		FromUserID:  s.FromUserID,
		ToUserID:    s.ToUserID,
		AmountCents: s.AmountCents,
		Currency:    s.Currency,
	}
}

type MemberBalance struct {
	UserID       string `json:"user_id"`
	NetCents     int64  `json:"net_cents"`
	FormattedNet string `json:"formatted_net"`
}

type CurrencyBalances struct {
	Currency    string                        `json:"currency"`
	Members     []MemberBalance               `json:"members"`
	Suggestions []ledger.SettlementSuggestion `json:"suggestions"`
}

type HouseholdBalances struct {
	HouseholdID string             `json:"household_id"`
	Currencies  []CurrencyBalances `json:"currencies"`
}

type SplitSuggestion struct {
	SplitType  ledger.SplitType    `json:"split_type"`
	Members    []ledger.SplitInput `json:"members"`
	Reasoning  string              `json:"reasoning"`
	Confidence float64             `json:"confidence"`
	Provider   string              `json:"provider"`
}
