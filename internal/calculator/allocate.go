package calculator

import (
	"errors"
	"sort"

	"github.com/shopspring/decimal"
)

// QuorumMet reports whether confirmed out of total reaches the quorum
// fraction. An empty period never meets quorum.
func QuorumMet(confirmed, total int, quorum decimal.Decimal) bool {
	if total <= 0 {
		return false
	}
	ratio := decimal.NewFromInt(int64(confirmed)).Div(decimal.NewFromInt(int64(total)))
	return ratio.GreaterThanOrEqual(quorum)
}

// Share is one participant's weight in a pro-rata allocation.
type Share struct {
	Key    string
	Weight int64
}

// Allocation is the amount assigned to one participant.
type Allocation struct {
	Key    string
	Amount int64
}

// ProRata divides total across shares in proportion to their weights using
// the largest remainder method, so the allocations always sum to total.
// Each allocation is additionally capped by capFor when it is non-nil;
// amounts that cannot be placed because of caps are returned as unallocated.
//
// Algorithm:
//   - base_i = floor(total × w_i / Σw)
//   - the leftover units go one each to the largest fractional remainders,
//     ties broken by input order
//   - caps clip each allocation; clipped excess is redistributed among the
//     participants still below their cap, by the same method
func ProRata(total int64, shares []Share, capFor func(key string) int64) ([]Allocation, int64, error) {
	if total < 0 {
		return nil, 0, errors.New("total cannot be negative")
	}
	out := make([]Allocation, len(shares))
	for i, s := range shares {
		if s.Weight < 0 {
			return nil, 0, errors.New("weights cannot be negative")
		}
		out[i].Key = s.Key
	}

	remaining := total
	open := make([]int, 0, len(shares))
	for i, s := range shares {
		if s.Weight > 0 {
			open = append(open, i)
		}
	}

	for remaining > 0 && len(open) > 0 {
		weights := make([]int64, len(open))
		for j, i := range open {
			weights[j] = shares[i].Weight
		}
		parts := largestRemainder(remaining, weights)

		next := open[:0:0]
		var placed int64
		for j, i := range open {
			amount := parts[j]
			if capFor != nil {
				room := capFor(out[i].Key) - out[i].Amount
				if room < 0 {
					room = 0
				}
				if amount >= room {
					amount = room
				} else {
					next = append(next, i)
				}
			} else {
				next = append(next, i)
			}
			out[i].Amount += amount
			placed += amount
		}
		remaining -= placed
		if placed == 0 || capFor == nil {
			break
		}
		open = next
	}

	return out, remaining, nil
}

// largestRemainder splits total by weights so the parts sum to total. The
// products total × w are taken in decimal so large amounts cannot overflow.
func largestRemainder(total int64, weights []int64) []int64 {
	sum := decimal.Zero
	for _, w := range weights {
		sum = sum.Add(decimal.NewFromInt(w))
	}
	parts := make([]int64, len(weights))
	if sum.IsZero() {
		return parts
	}

	type rem struct {
		idx int
		mod decimal.Decimal
	}
	rems := make([]rem, len(weights))
	var assigned int64
	whole := decimal.NewFromInt(total)
	for i, w := range weights {
		q, r := whole.Mul(decimal.NewFromInt(w)).QuoRem(sum, 0)
		parts[i] = q.IntPart()
		assigned += parts[i]
		rems[i] = rem{idx: i, mod: r}
	}

	sort.SliceStable(rems, func(a, b int) bool {
		return rems[a].mod.GreaterThan(rems[b].mod)
	})
	for k := int64(0); k < total-assigned; k++ {
		parts[rems[k].idx]++
	}
	return parts
}
