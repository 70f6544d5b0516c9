package ledger

import "sort"

// SettlementSuggestion is a computed payment that would help zero out
// balances. It only becomes a settlement once someone records it.
type SettlementSuggestion struct {
	FromUserID  string `json:"from_user_id"`
	ToUserID    string `json:"to_user_id"`
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`
}

type position struct {
	userID string
	amount int64
}

// byAmountThenUserDesc orders positions largest amount first, ties broken
// by user id descending.
func byAmountThenUserDesc(ps []position) {
	sort.Slice(ps, func(i, j int) bool {
		if ps[i].amount != ps[j].amount {
			return ps[i].amount > ps[j].amount
		}
		return ps[i].userID > ps[j].userID
	})
}

// SimplifyDebts pairs the largest debtor with the largest creditor until
// one side runs out. Input that does not sum to zero is not rejected; the
// unmatched remainder is simply left over.
func SimplifyDebts(balances map[string]int64, currency string) []SettlementSuggestion {
	var creditors, debtors []position
	for userID, amount := range balances {
		switch {
		case amount > 0:
			creditors = append(creditors, position{userID: userID, amount: amount})
		case amount < 0:
			debtors = append(debtors, position{userID: userID, amount: -amount})
		}
	}
	byAmountThenUserDesc(creditors)
	byAmountThenUserDesc(debtors)

	suggestions := make([]SettlementSuggestion, 0)
	ci, di := 0, 0
	for ci < len(creditors) && di < len(debtors) {
		c, d := &creditors[ci], &debtors[di]

		amount := min(c.amount, d.amount)
		suggestions = append(suggestions, SettlementSuggestion{
			FromUserID:  d.userID,
			ToUserID:    c.userID,
			AmountCents: amount,
			Currency:    currency,
		})

		c.amount -= amount
		d.amount -= amount
		if c.amount == 0 {
			ci++
		}
		if d.amount == 0 {
			di++
		}
	}
	return suggestions
}

// SimplifyDebtsByCurrency runs SimplifyDebts for every currency, in
// ascending currency order, and concatenates the results.
func SimplifyDebtsByCurrency(b BalancesByCurrency) []SettlementSuggestion {
	all := make([]SettlementSuggestion, 0)
	for _, currency := range Currencies(b) {
		all = append(all, SimplifyDebts(b[currency], currency)...)
	}
	return all
}
