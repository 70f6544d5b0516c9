package ledger

import "sort"

// ExpenseRecord is a persisted expense as the balance fold sees it. The
// splits are expected to add up to AmountCents; that is checked when the
// expense is written, not here.
type ExpenseRecord struct {
	PaidByUserID string
	AmountCents  int64
	Currency     string
	Splits       []SplitResult
}

// SettlementRecord is a real payment FromUserID made to ToUserID.
type SettlementRecord struct {
	FromUserID  string
	ToUserID    string
	AmountCents int64
	Currency    string
}

// BalancesByCurrency maps currency code to user id to signed net cents.
// Positive means the user is owed money, negative means the user owes.
type BalancesByCurrency map[string]map[string]int64

// ComputeBalances folds expenses and settlements into per-currency net
// balances. Within one currency the balances always sum to zero.
func ComputeBalances(expenses []ExpenseRecord, settlements []SettlementRecord) BalancesByCurrency {
	result := make(BalancesByCurrency)

	adjust := func(currency, userID string, delta int64) {
		byUser, ok := result[currency]
		if !ok {
			byUser = make(map[string]int64)
			result[currency] = byUser
		}
		byUser[userID] += delta
	}

	for _, e := range expenses {
		adjust(e.Currency, e.PaidByUserID, e.AmountCents)
		for _, s := range e.Splits {
			adjust(e.Currency, s.UserID, -s.AmountCents)
		}
	}

	for _, s := range settlements {
		adjust(s.Currency, s.FromUserID, s.AmountCents)
		adjust(s.Currency, s.ToUserID, -s.AmountCents)
	}

	return result
}

// NetBalances returns a copy of one currency's balances, including users
// whose net is exactly zero. An unknown currency yields an empty map.
func NetBalances(b BalancesByCurrency, currency string) map[string]int64 {
	byUser := b[currency]
	out := make(map[string]int64, len(byUser))
	for userID, amount := range byUser {
		out[userID] = amount
	}
	return out
}

// UserBalance returns the user's signed net in currency, or 0 when either
// is unknown.
func UserBalance(b BalancesByCurrency, userID, currency string) int64 {
	return b[currency][userID]
}

// Currencies lists the currencies present in b in ascending order.
func Currencies(b BalancesByCurrency) []string {
	out := make([]string, 0, len(b))
	for c := range b {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}
