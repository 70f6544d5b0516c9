package ledger

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pct(v float64) *float64 { return &v }
func cents(v int64) *int64   { return &v }
func shares(v int64) *int64  { return &v }

func members(ids ...string) []SplitInput {
	out := make([]SplitInput, len(ids))
	for i, id := range ids {
		out[i] = SplitInput{UserID: id}
	}
	return out
}

func byUser(results []SplitResult) map[string]int64 {
	out := make(map[string]int64, len(results))
	for _, r := range results {
		out[r.UserID] = r.AmountCents
	}
	return out
}

func sum(results []SplitResult) int64 {
	var total int64
	for _, r := range results {
		total += r.AmountCents
	}
	return total
}

func TestComputeSplitsEqual(t *testing.T) {
	tests := []struct {
		name    string
		total   int64
		members []SplitInput
		want    map[string]int64
	}{
		{
			name:    "divides evenly",
			total:   300,
			members: members("a", "b", "c"),
			want:    map[string]int64{"a": 100, "b": 100, "c": 100},
		},
		{
			name:    "remainder of one goes to first user id",
			total:   100,
			members: members("c", "a", "b"),
			want:    map[string]int64{"a": 34, "b": 33, "c": 33},
		},
		{
			name:    "remainder of two",
			total:   101,
			members: members("c", "a", "b"),
			want:    map[string]int64{"a": 34, "b": 34, "c": 33},
		},
		{
			name:    "single member",
			total:   999,
			members: members("solo"),
			want:    map[string]int64{"solo": 999},
		},
		{
			name:    "zero total",
			total:   0,
			members: members("a", "b"),
			want:    map[string]int64{"a": 0, "b": 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ComputeSplits(tt.total, SplitTypeEqual, tt.members)
			require.NoError(t, err)
			assert.Equal(t, tt.want, byUser(got))
			assert.Equal(t, tt.total, sum(got))
		})
	}
}

func TestComputeSplitsEqualReturnsAscendingOrder(t *testing.T) {
	got, err := ComputeSplits(100, SplitTypeEqual, members("charlie", "alice", "bob"))
	require.NoError(t, err)
	assert.Equal(t, []SplitResult{
		{UserID: "alice", AmountCents: 34},
		{UserID: "bob", AmountCents: 33},
		{UserID: "charlie", AmountCents: 33},
	}, got)
}

func TestComputeSplitsPercentage(t *testing.T) {
	t.Run("even halves", func(t *testing.T) {
		got, err := ComputeSplits(200, SplitTypePercentage, []SplitInput{
			{UserID: "a", Percentage: pct(50)},
			{UserID: "b", Percentage: pct(50)},
		})
		require.NoError(t, err)
		assert.Equal(t, map[string]int64{"a": 100, "b": 100}, byUser(got))
	})

	t.Run("largest fraction gets the leftover cent", func(t *testing.T) {
		got, err := ComputeSplits(100, SplitTypePercentage, []SplitInput{
			{UserID: "a", Percentage: pct(33.33)},
			{UserID: "b", Percentage: pct(33.33)},
			{UserID: "c", Percentage: pct(33.34)},
		})
		require.NoError(t, err)
		assert.Equal(t, map[string]int64{"a": 33, "b": 33, "c": 34}, byUser(got))
	})

	t.Run("equal fractions break ties by user id descending", func(t *testing.T) {
		got, err := ComputeSplits(101, SplitTypePercentage, []SplitInput{
			{UserID: "a", Percentage: pct(50)},
			{UserID: "b", Percentage: pct(50)},
		})
		require.NoError(t, err)
		assert.Equal(t, map[string]int64{"a": 50, "b": 51}, byUser(got))
	})

	t.Run("keeps input order", func(t *testing.T) {
		got, err := ComputeSplits(100, SplitTypePercentage, []SplitInput{
			{UserID: "z", Percentage: pct(60)},
			{UserID: "a", Percentage: pct(40)},
		})
		require.NoError(t, err)
		assert.Equal(t, []SplitResult{{UserID: "z", AmountCents: 60}, {UserID: "a", AmountCents: 40}}, got)
	})

	t.Run("sum within tolerance still conserves a large total", func(t *testing.T) {
		got, err := ComputeSplits(1_000_000_007, SplitTypePercentage, []SplitInput{
			{UserID: "a", Percentage: pct(33.3334)},
			{UserID: "b", Percentage: pct(33.3333)},
			{UserID: "c", Percentage: pct(33.3338)},
		})
		require.NoError(t, err)
		assert.Equal(t, int64(1_000_000_007), sum(got))
	})
}

func TestComputeSplitsPercentageRejectsBadSum(t *testing.T) {
	_, err := ComputeSplits(100, SplitTypePercentage, []SplitInput{
		{UserID: "a", Percentage: pct(50)},
		{UserID: "b", Percentage: pct(40)},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPercentageSum))
	assert.Contains(t, err.Error(), "90")
}

func TestComputeSplitsExact(t *testing.T) {
	got, err := ComputeSplits(100, SplitTypeExact, []SplitInput{
		{UserID: "a", ExactCents: cents(75)},
		{UserID: "b", ExactCents: cents(25)},
	})
	require.NoError(t, err)
	assert.Equal(t, []SplitResult{{UserID: "a", AmountCents: 75}, {UserID: "b", AmountCents: 25}}, got)

	_, err = ComputeSplits(100, SplitTypeExact, []SplitInput{
		{UserID: "a", ExactCents: cents(60)},
		{UserID: "b", ExactCents: cents(30)},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExactSum)
	assert.Contains(t, err.Error(), "90")
}

func TestComputeSplitsShares(t *testing.T) {
	got, err := ComputeSplits(400, SplitTypeShares, []SplitInput{
		{UserID: "a", Shares: shares(1)},
		{UserID: "b", Shares: shares(2)},
		{UserID: "c", Shares: shares(1)},
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"a": 100, "b": 200, "c": 100}, byUser(got))

	got, err = ComputeSplits(100, SplitTypeShares, []SplitInput{
		{UserID: "a", Shares: shares(1)},
		{UserID: "b", Shares: shares(1)},
		{UserID: "c", Shares: shares(1)},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(100), sum(got))
	// thirds have equal fractions, so the descending tie-break favours "c"
	assert.Equal(t, map[string]int64{"a": 33, "b": 33, "c": 34}, byUser(got))
}

func TestComputeSplitsErrors(t *testing.T) {
	tests := []struct {
		name      string
		total     int64
		splitType SplitType
		members   []SplitInput
		wantErr   error
	}{
		{"no members", 100, SplitTypeEqual, nil, ErrNoMembers},
		{"negative total", -1, SplitTypeEqual, members("a"), ErrNegativeTotal},
		{"unknown type", 100, SplitType("weighted"), members("a"), ErrUnknownSplitType},
		{"empty user id", 100, SplitTypeEqual, members("a", ""), ErrMissingUserID},
		{"duplicate member", 100, SplitTypeEqual, members("a", "a"), ErrDuplicateMember},
		{"missing percentage", 100, SplitTypePercentage, []SplitInput{{UserID: "a", Percentage: pct(100)}, {UserID: "b"}}, ErrMissingPercentage},
		{"negative percentage", 100, SplitTypePercentage, []SplitInput{{UserID: "a", Percentage: pct(110)}, {UserID: "b", Percentage: pct(-10)}}, ErrInvalidPercentage},
		{"missing exact", 100, SplitTypeExact, []SplitInput{{UserID: "a"}}, ErrMissingExactAmount},
		{"negative exact", 100, SplitTypeExact, []SplitInput{{UserID: "a", ExactCents: cents(110)}, {UserID: "b", ExactCents: cents(-10)}}, ErrNegativeExactAmount},
		{"zero shares", 100, SplitTypeShares, []SplitInput{{UserID: "a", Shares: shares(0)}, {UserID: "b", Shares: shares(1)}}, ErrInvalidShares},
		{"missing shares", 100, SplitTypeShares, []SplitInput{{UserID: "a"}}, ErrInvalidShares},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ComputeSplits(tt.total, tt.splitType, tt.members)
			require.ErrorIs(t, err, tt.wantErr)
			assert.ErrorIs(t, ValidateSplits(tt.total, tt.splitType, tt.members), tt.wantErr)
		})
	}
}

func TestValidateSplitsAgreesWithComputeSplits(t *testing.T) {
	cases := []struct {
		total     int64
		splitType SplitType
		members   []SplitInput
	}{
		{0, SplitTypeEqual, members("a", "b")},
		{100, SplitTypePercentage, []SplitInput{{UserID: "a", Percentage: pct(50.0005)}, {UserID: "b", Percentage: pct(50)}}},
		{100, SplitTypePercentage, []SplitInput{{UserID: "a", Percentage: pct(50.05)}, {UserID: "b", Percentage: pct(50)}}},
		{100, SplitTypeExact, []SplitInput{{UserID: "a", ExactCents: cents(100)}}},
		{100, SplitTypeExact, []SplitInput{{UserID: "a", ExactCents: cents(99)}}},
		{100, SplitTypeShares, []SplitInput{{UserID: "a", Shares: shares(3)}}},
	}

	for _, c := range cases {
		_, computeErr := ComputeSplits(c.total, c.splitType, c.members)
		validateErr := ValidateSplits(c.total, c.splitType, c.members)
		assert.Equal(t, computeErr == nil, validateErr == nil, "%s %d %+v", c.splitType, c.total, c.members)
	}
}

func TestComputeSplitsConservesTotal(t *testing.T) {
	ids := []string{"u1", "u2", "u3", "u4", "u5", "u6", "u7"}
	for total := int64(0); total < 2000; total += 37 {
		for n := 1; n <= len(ids); n++ {
			check := func(splitType SplitType, group []SplitInput) {
				t.Helper()
				got, err := ComputeSplits(total, splitType, group)
				require.NoError(t, err, "%s total=%d n=%d", splitType, total, n)
				require.Equal(t, total, sum(got), "%s total=%d n=%d", splitType, total, n)
				for _, r := range got {
					require.GreaterOrEqual(t, r.AmountCents, int64(0))
				}
			}

			check(SplitTypeEqual, members(ids[:n]...))

			weighted := make([]SplitInput, n)
			for i := range weighted {
				weighted[i] = SplitInput{UserID: ids[i], Shares: shares(int64(i + 1))}
			}
			check(SplitTypeShares, weighted)

			exact := make([]SplitInput, n)
			var assigned int64
			for i := range exact {
				amount := total / int64(n+1)
				if i == n-1 {
					amount = total - assigned
				}
				assigned += amount
				exact[i] = SplitInput{UserID: ids[i], ExactCents: cents(amount)}
			}
			check(SplitTypeExact, exact)

			// Even shares, then nudged to both edges of the tolerance.
			for _, drift := range []float64{0, 0.0009, -0.0009} {
				if n == 1 && drift > 0 {
					continue
				}
				split := make([]SplitInput, n)
				for i := range split {
					p := 100 / float64(n)
					if i == n-1 {
						p += drift
					}
					split[i] = SplitInput{UserID: ids[i], Percentage: pct(p)}
				}
				check(SplitTypePercentage, split)
			}
		}
	}
}

func TestComputeSplitsExactRejectsWrappingAmounts(t *testing.T) {
	group := []SplitInput{
		{UserID: "a", ExactCents: cents(math.MaxInt64)},
		{UserID: "b", ExactCents: cents(math.MaxInt64)},
		{UserID: "c", ExactCents: cents(102)},
	}

	_, err := ComputeSplits(100, SplitTypeExact, group)
	require.ErrorIs(t, err, ErrExactSum)
	assert.ErrorIs(t, ValidateSplits(100, SplitTypeExact, group), ErrExactSum)

	_, err = ComputeSplits(100, SplitTypeExact, []SplitInput{{UserID: "a", ExactCents: cents(101)}, {UserID: "b", ExactCents: cents(0)}})
	assert.ErrorIs(t, err, ErrExactSum)
}

func TestComputeSplitsHugeShares(t *testing.T) {
	got, err := ComputeSplits(100, SplitTypeShares, []SplitInput{
		{UserID: "a", Shares: shares(math.MaxInt64)},
		{UserID: "b", Shares: shares(1)},
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"a": 100, "b": 0}, byUser(got))

	got, err = ComputeSplits(100, SplitTypeShares, []SplitInput{
		{UserID: "a", Shares: shares(math.MaxInt64)},
		{UserID: "b", Shares: shares(math.MaxInt64)},
		{UserID: "c", Shares: shares(2)},
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"a": 50, "b": 50, "c": 0}, byUser(got))
}
