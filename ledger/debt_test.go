package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimplifyDebtsEmpty(t *testing.T) {
	assert.Empty(t, SimplifyDebts(map[string]int64{}, "USD"))
	assert.Empty(t, SimplifyDebts(nil, "USD"))
	assert.Empty(t, SimplifyDebts(map[string]int64{"a": 0, "b": 0}, "USD"))
	assert.NotNil(t, SimplifyDebts(nil, "USD"))
}

func TestSimplifyDebtsTwoPeople(t *testing.T) {
	got := SimplifyDebts(map[string]int64{"alice": 500, "bob": -500}, "USD")
	assert.Equal(t, []SettlementSuggestion{
		{FromUserID: "bob", ToUserID: "alice", AmountCents: 500, Currency: "USD"},
	}, got)
}

func TestSimplifyDebtsMultiParty(t *testing.T) {
	got := SimplifyDebts(map[string]int64{"alice": 400, "bob": 100, "carol": -300, "dave": -200}, "USD")

	paid := map[string]int64{}
	received := map[string]int64{}
	for _, s := range got {
		paid[s.FromUserID] += s.AmountCents
		received[s.ToUserID] += s.AmountCents
		assert.Equal(t, "USD", s.Currency)
	}
	assert.Equal(t, map[string]int64{"carol": 300, "dave": 200}, paid)
	assert.Equal(t, map[string]int64{"alice": 400, "bob": 100}, received)

	assert.Equal(t, []SettlementSuggestion{
		{FromUserID: "carol", ToUserID: "alice", AmountCents: 300, Currency: "USD"},
		{FromUserID: "dave", ToUserID: "alice", AmountCents: 100, Currency: "USD"},
		{FromUserID: "dave", ToUserID: "bob", AmountCents: 100, Currency: "USD"},
	}, got)
}

func TestSimplifyDebtsTieBreakIsDescendingUserID(t *testing.T) {
	got := SimplifyDebts(map[string]int64{"aaa": 500, "bbb": 500, "ccc": -500, "ddd": -500}, "USD")
	assert.Equal(t, []SettlementSuggestion{
		{FromUserID: "ddd", ToUserID: "bbb", AmountCents: 500, Currency: "USD"},
		{FromUserID: "ccc", ToUserID: "aaa", AmountCents: 500, Currency: "USD"},
	}, got)
}

func TestSimplifyDebtsIsDeterministic(t *testing.T) {
	first := map[string]int64{"alice": 300, "bob": -100, "carol": -200, "dave": 0, "erin": 100, "frank": -100}
	second := map[string]int64{}
	for _, id := range []string{"frank", "erin", "dave", "carol", "bob", "alice"} {
		second[id] = first[id]
	}

	want := SimplifyDebts(first, "USD")
	for i := 0; i < 20; i++ {
		require.Equal(t, want, SimplifyDebts(first, "USD"))
		require.Equal(t, want, SimplifyDebts(second, "USD"))
	}
}

func TestSimplifyDebtsNonConservingInput(t *testing.T) {
	got := SimplifyDebts(map[string]int64{"alice": 1000, "bob": -600}, "USD")
	assert.Equal(t, []SettlementSuggestion{
		{FromUserID: "bob", ToUserID: "alice", AmountCents: 600, Currency: "USD"},
	}, got)
}

func TestSimplifyDebtsDoesNotMutateInput(t *testing.T) {
	balances := map[string]int64{"alice": 800, "bob": -400, "carol": -400}
	SimplifyDebts(balances, "EUR")
	assert.Equal(t, map[string]int64{"alice": 800, "bob": -400, "carol": -400}, balances)
}

func TestSimplifyDebtsZeroesComputedBalances(t *testing.T) {
	expenses := []ExpenseRecord{
		{PaidByUserID: "a", AmountCents: 1001, Currency: "USD", Splits: mustSplit(t, 1001, "a", "b", "c")},
		{PaidByUserID: "b", AmountCents: 250, Currency: "USD", Splits: mustSplit(t, 250, "b", "c", "d")},
		{PaidByUserID: "d", AmountCents: 99, Currency: "USD", Splits: mustSplit(t, 99, "a", "d")},
	}
	b := ComputeBalances(expenses, nil)

	var settlements []SettlementRecord
	for _, s := range SimplifyDebts(NetBalances(b, "USD"), "USD") {
		settlements = append(settlements, SettlementRecord(s))
	}

	after := ComputeBalances(expenses, settlements)
	for _, v := range NetBalances(after, "USD") {
		assert.Zero(t, v)
	}
}

func TestSimplifyDebtsByCurrency(t *testing.T) {
	b := BalancesByCurrency{
		"USD": {"alice": 500, "bob": -500},
		"EUR": {"bob": 400, "alice": -400},
	}
	assert.Equal(t, []SettlementSuggestion{
		{FromUserID: "alice", ToUserID: "bob", AmountCents: 400, Currency: "EUR"},
		{FromUserID: "bob", ToUserID: "alice", AmountCents: 500, Currency: "USD"},
	}, SimplifyDebtsByCurrency(b))
}

func mustSplit(t *testing.T, total int64, ids ...string) []SplitResult {
	t.Helper()
	out, err := ComputeSplits(total, SplitTypeEqual, members(ids...))
	require.NoError(t, err)
	return out
}
