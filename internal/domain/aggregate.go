package domain

import (
	"context"
	"fmt"
	"sort"
)

// CategoryQuery returns duration sums grouped by category for the memberships that
// reference the person under either representation. No groups means no match.
type CategoryQuery interface {
	SumByCategory(ctx context.Context, ref PersonRef) ([]CategorySum, error)
}

// Aggregator computes TimeTotals for one person at a time.
type Aggregator struct {
	query CategoryQuery
}

// NewAggregator constructs an Aggregator over the supplied query capability.
func NewAggregator(query CategoryQuery) *Aggregator {
	return &Aggregator{query: query}
}

// Aggregate returns Present totals for the person, or Absent if nothing matched.
func (a *Aggregator) Aggregate(ctx context.Context, ref PersonRef) (Result, error) {
	groups, err := a.query.SumByCategory(ctx, ref)
	if err != nil {
		return Result{}, fmt.Errorf("%w: person %s: %w", ErrQuery, ref.Key, err)
	}
	if len(groups) == 0 {
		return Absent(), nil
	}
	return Present(FoldTotals(groups)), nil
}

// FoldTotals folds grouped sums into TimeTotals. Groups are added in category order
// so the floating point result does not depend on the order the store returned them.
// Unrecognised categories count toward Total only.
func FoldTotals(groups []CategorySum) TimeTotals {
	ordered := make([]CategorySum, len(groups))
	copy(ordered, groups)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Category < ordered[j].Category
	})

	var totals TimeTotals
	for _, g := range ordered {
		switch g.Category {
		case CategoryOnCampus:
			totals.OnCampus += g.Duration
		case CategoryOffCampus:
			totals.OffCampus += g.Duration
		case CategorySocialPractice:
			totals.SocialPractice += g.Duration
		}
		totals.Total += g.Duration
	}
	return totals
}

// SumMemberships selects the memberships referencing ref and sums their durations per
// category. References are compared in canonical form, so native and hex references
// to the same person are equivalent.
func SumMemberships(ref PersonRef, memberships []Membership) []CategorySum {
	sums := make(map[Category]float64)
	order := make([]Category, 0)
	for _, m := range memberships {
		key, ok := CanonicalKey(m.PersonRef)
		if !ok || key != ref.Key {
			continue
		}
		if _, seen := sums[m.Category]; !seen {
			order = append(order, m.Category)
		}
		sums[m.Category] += m.Duration
	}

	out := make([]CategorySum, 0, len(order))
	for _, category := range order {
		out = append(out, CategorySum{Category: category, Duration: sums[category]})
	}
	return out
}
