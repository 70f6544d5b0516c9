// Package ledger holds the shared-expense money math: splitting a total
// across members, folding expenses and settlements into net balances, and
// turning balances into a short list of suggested payments.
//
// All amounts are integer cents. Every function is pure and safe for
// concurrent use.
package ledger

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

type SplitType string

const (
	SplitTypeEqual      SplitType = "equal"
	SplitTypePercentage SplitType = "percentage"
	SplitTypeExact      SplitType = "exact"
	SplitTypeShares     SplitType = "shares"
)

// Valid reports whether t is one of the known strategies.
func (t SplitType) Valid() bool {
	switch t {
	case SplitTypeEqual, SplitTypePercentage, SplitTypeExact, SplitTypeShares:
		return true
	}
	return false
}

const (
	// PercentageTolerance is the allowed absolute drift of a percentage sum from 100.
	PercentageTolerance = 0.001
	// fractionEpsilon treats two fractional remainders as equal.
	fractionEpsilon = 1e-10
)

var (
	ErrNoMembers           = errors.New("at least one member is required")
	ErrNegativeTotal       = errors.New("total must be non-negative")
	ErrMissingUserID       = errors.New("every member needs a user id")
	ErrDuplicateMember     = errors.New("a member may appear only once")
	ErrMissingPercentage   = errors.New("percentage required for every member")
	ErrInvalidPercentage   = errors.New("percentages must be between 0 and 100")
	ErrPercentageSum       = errors.New("percentages must sum to 100")
	ErrMissingExactAmount  = errors.New("exact amount required for every member")
	ErrNegativeExactAmount = errors.New("exact amounts cannot be negative")
	ErrExactSum            = errors.New("exact amounts must sum to the total")
	ErrInvalidShares       = errors.New("shares must be positive integers")
	ErrUnknownSplitType    = errors.New("unknown split type")
)

// SplitInput is one member's directive for a single expense. Only the field
// matching the chosen strategy is read.
type SplitInput struct {
	UserID     string   `json:"user_id"`
	Percentage *float64 `json:"percentage,omitempty"`
	ExactCents *int64   `json:"exact_cents,omitempty"`
	Shares     *int64   `json:"shares,omitempty"`
}

type SplitResult struct {
	UserID      string `json:"user_id"`
	AmountCents int64  `json:"amount_cents"`
}

// ComputeSplits partitions totalCents across members. The amounts of the
// returned results always add up to totalCents.
func ComputeSplits(totalCents int64, splitType SplitType, members []SplitInput) ([]SplitResult, error) {
	if err := ValidateSplits(totalCents, splitType, members); err != nil {
		return nil, err
	}

	switch splitType {
	case SplitTypeEqual:
		return splitEqual(totalCents, members), nil
	case SplitTypePercentage:
		pcts := make([]float64, len(members))
		for i, m := range members {
			pcts[i] = *m.Percentage
		}
		return distributeByWeight(totalCents, members, pcts), nil
	case SplitTypeExact:
		results := make([]SplitResult, len(members))
		for i, m := range members {
			results[i] = SplitResult{UserID: m.UserID, AmountCents: *m.ExactCents}
		}
		return results, nil
	default:
		return splitByShares(totalCents, members), nil
	}
}

// ValidateSplits runs the checks ComputeSplits runs, without allocating
// amounts. It returns nil exactly when ComputeSplits would succeed; the
// error text is meant to be shown on a form.
func ValidateSplits(totalCents int64, splitType SplitType, members []SplitInput) error {
	if !splitType.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownSplitType, splitType)
	}
	if totalCents < 0 {
		return fmt.Errorf("%w (got %d)", ErrNegativeTotal, totalCents)
	}
	if len(members) == 0 {
		return ErrNoMembers
	}

	seen := make(map[string]struct{}, len(members))
	for _, m := range members {
		if m.UserID == "" {
			return ErrMissingUserID
		}
		if _, dup := seen[m.UserID]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateMember, m.UserID)
		}
		seen[m.UserID] = struct{}{}
	}

	switch splitType {
	case SplitTypePercentage:
		return validatePercentages(members)
	case SplitTypeExact:
		return validateExact(totalCents, members)
	case SplitTypeShares:
		return validateShares(members)
	}
	return nil
}

func validatePercentages(members []SplitInput) error {
	var sum float64
	for _, m := range members {
		if m.Percentage == nil {
			return fmt.Errorf("%w: %s", ErrMissingPercentage, m.UserID)
		}
		p := *m.Percentage
		if math.IsNaN(p) || math.IsInf(p, 0) || p < 0 || p > 100 {
			return fmt.Errorf("%w: %s has %v", ErrInvalidPercentage, m.UserID, p)
		}
		sum += p
	}
	if math.Abs(sum-100) > PercentageTolerance {
		return fmt.Errorf("%w, got %s", ErrPercentageSum, formatPercent(sum))
	}
	return nil
}

func validateExact(totalCents int64, members []SplitInput) error {
	for _, m := range members {
		if m.ExactCents == nil {
			return fmt.Errorf("%w: %s", ErrMissingExactAmount, m.UserID)
		}
		if *m.ExactCents < 0 {
			return fmt.Errorf("%w: %s has %d", ErrNegativeExactAmount, m.UserID, *m.ExactCents)
		}
	}

	var sum int64
	for _, m := range members {
		if *m.ExactCents > totalCents-sum {
			return fmt.Errorf("%w: exact amounts exceed the total (%d)", ErrExactSum, totalCents)
		}
		sum += *m.ExactCents
	}
	if sum != totalCents {
		return fmt.Errorf("%w: exact split sum (%d) does not equal total (%d)", ErrExactSum, sum, totalCents)
	}
	return nil
}

func validateShares(members []SplitInput) error {
	for _, m := range members {
		if m.Shares == nil || *m.Shares <= 0 {
			return fmt.Errorf("%w: %s", ErrInvalidShares, m.UserID)
		}
	}
	return nil
}

func splitEqual(totalCents int64, members []SplitInput) []SplitResult {
	n := int64(len(members))
	base := totalCents / n
	remainder := totalCents % n

	ids := make([]string, len(members))
	for i, m := range members {
		ids[i] = m.UserID
	}
	sort.Strings(ids)

	results := make([]SplitResult, len(ids))
	for i, id := range ids {
		amount := base
		if int64(i) < remainder {
			amount++
		}
		results[i] = SplitResult{UserID: id, AmountCents: amount}
	}
	return results
}

func splitByShares(totalCents int64, members []SplitInput) []SplitResult {
	// Summed as float64 so very large share counts cannot wrap.
	var totalShares float64
	for _, m := range members {
		totalShares += float64(*m.Shares)
	}

	pcts := make([]float64, len(members))
	for i, m := range members {
		pcts[i] = float64(*m.Shares) / totalShares * 100
	}
	return distributeByWeight(totalCents, members, pcts)
}

type allocation struct {
	index    int
	userID   string
	floored  int64
	fraction float64
}

// distributeByWeight is the largest-remainder method. Weights are percentages
// that sum to roughly 100; dividing by their actual sum keeps the floored
// total within n cents of totalCents even at the edge of the tolerance.
func distributeByWeight(totalCents int64, members []SplitInput, weights []float64) []SplitResult {
	var weightSum float64
	for _, w := range weights {
		weightSum += w
	}

	allocs := make([]allocation, len(members))
	var flooredSum int64
	for i, m := range members {
		var raw float64
		if weightSum > 0 {
			raw = float64(totalCents) * weights[i] / weightSum
		}
		floor := math.Floor(raw)
		allocs[i] = allocation{
			index:    i,
			userID:   m.UserID,
			floored:  int64(floor),
			fraction: raw - floor,
		}
		flooredSum += int64(floor)
	}

	order := make([]allocation, len(allocs))
	copy(order, allocs)
	sort.SliceStable(order, func(i, j int) bool {
		if math.Abs(order[i].fraction-order[j].fraction) > fractionEpsilon {
			return order[i].fraction > order[j].fraction
		}
		return order[i].userID > order[j].userID
	})

	amounts := make([]int64, len(allocs))
	for i, a := range allocs {
		amounts[i] = a.floored
	}

	// Float noise can push the leftover outside [0, n); walking the order
	// cyclically keeps the sum exact either way.
	leftover := totalCents - flooredSum
	for k := 0; leftover > 0; k++ {
		amounts[order[k%len(order)].index]++
		leftover--
	}
	for k := len(order) - 1; leftover < 0; k-- {
		if k < 0 {
			k = len(order) - 1
		}
		idx := order[k].index
		if amounts[idx] > 0 {
			amounts[idx]--
			leftover++
		}
	}

	results := make([]SplitResult, len(allocs))
	for i, a := range allocs {
		results[i] = SplitResult{UserID: a.userID, AmountCents: amounts[i]}
	}
	return results
}

func formatPercent(p float64) string {
	return fmt.Sprintf("%.3f%%", p)
}
