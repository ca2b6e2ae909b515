package domain

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type hexID string

func (h hexID) Hex() string { return string(h) }

const (
	personA = hexID("65a1f0c2e4b0a1b2c3d4e5f6")
	personB = hexID("65a1f0c2e4b0a1b2c3d4e5f7")
)

func TestAggregateScenarioTwoCategories(t *testing.T) {
	memberships := []Membership{
		{PersonRef: personA, Category: CategoryOnCampus, Duration: 2.0},
		{PersonRef: personA, Category: CategoryOffCampus, Duration: 1.5},
		{PersonRef: personB, Category: CategoryOnCampus, Duration: 9.0},
	}
	agg := NewAggregator(membershipQuery(memberships))

	result, err := agg.Aggregate(context.Background(), NormalizeIdentity(personA))
	require.NoError(t, err)
	require.True(t, result.IsPresent())
	require.Equal(t, TimeTotals{OnCampus: 2.0, OffCampus: 1.5, SocialPractice: 0, Total: 3.5}, result.Totals)
}

func TestAggregateAbsentWithoutMemberships(t *testing.T) {
	agg := NewAggregator(membershipQuery(nil))

	result, err := agg.Aggregate(context.Background(), NormalizeIdentity(personB))
	require.NoError(t, err)
	require.False(t, result.IsPresent())
}

func TestAggregateZeroDurationIsPresent(t *testing.T) {
	agg := NewAggregator(membershipQuery([]Membership{
		{PersonRef: personA, Category: CategorySocialPractice, Duration: 0},
	}))

	result, err := agg.Aggregate(context.Background(), NormalizeIdentity(personA))
	require.NoError(t, err)
	require.True(t, result.IsPresent())
	require.Equal(t, TimeTotals{}, result.Totals)
}

func TestAggregateUnknownCategoryCountsTowardTotalOnly(t *testing.T) {
	agg := NewAggregator(membershipQuery([]Membership{
		{PersonRef: personA, Category: "volunteer", Duration: 4.0},
	}))

	result, err := agg.Aggregate(context.Background(), NormalizeIdentity(personA))
	require.NoError(t, err)
	require.True(t, result.IsPresent())
	require.Equal(t, TimeTotals{Total: 4.0}, result.Totals)
}

func TestAggregateRepresentationInvariance(t *testing.T) {
	native := []Membership{
		{PersonRef: personA, Category: CategoryOnCampus, Duration: 2.0},
		{PersonRef: personA, Category: CategoryOffCampus, Duration: 1.5},
		{PersonRef: personA, Category: "volunteer", Duration: 0.25},
	}
	hexOnly := make([]Membership, len(native))
	mixed := make([]Membership, len(native))
	for i, m := range native {
		hexOnly[i] = Membership{PersonRef: personA.Hex(), Category: m.Category, Duration: m.Duration}
		mixed[i] = m
		if i%2 == 1 {
			mixed[i].PersonRef = personA.Hex()
		}
	}

	ref := NormalizeIdentity(personA)
	var got []TimeTotals
	for _, set := range [][]Membership{native, hexOnly, mixed} {
		result, err := NewAggregator(membershipQuery(set)).Aggregate(context.Background(), ref)
		require.NoError(t, err)
		require.True(t, result.IsPresent())
		got = append(got, result.Totals)
	}
	require.Equal(t, got[0], got[1])
	require.Equal(t, got[0], got[2])
	require.Equal(t, 3.75, got[0].Total)
}

func TestAggregateSubtotalInvariant(t *testing.T) {
	cases := []struct {
		name        string
		memberships []Membership
		equal       bool
	}{
		{
			name: "named categories only",
			memberships: []Membership{
				{PersonRef: personA, Category: CategoryOnCampus, Duration: 1.25},
				{PersonRef: personA, Category: CategorySocialPractice, Duration: 3},
			},
			equal: true,
		},
		{
			name: "with unknown category",
			memberships: []Membership{
				{PersonRef: personA, Category: CategoryOffCampus, Duration: 1},
				{PersonRef: personA, Category: "", Duration: 0.5},
			},
			equal: false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := NewAggregator(membershipQuery(tc.memberships)).Aggregate(context.Background(), NormalizeIdentity(personA))
			require.NoError(t, err)
			sub := result.Totals.OnCampus + result.Totals.OffCampus + result.Totals.SocialPractice
			require.LessOrEqual(t, sub, result.Totals.Total)
			if tc.equal {
				require.Equal(t, sub, result.Totals.Total)
			} else {
				require.Less(t, sub, result.Totals.Total)
			}
		})
	}
}

func TestAggregateWrapsQueryError(t *testing.T) {
	boom := errors.New("cursor closed")
	agg := NewAggregator(queryFunc(func(context.Context, PersonRef) ([]CategorySum, error) {
		return nil, boom
	}))

	_, err := agg.Aggregate(context.Background(), NormalizeIdentity(personA))
	require.ErrorIs(t, err, ErrQuery)
	require.ErrorIs(t, err, boom)
	require.Contains(t, err.Error(), personA.Hex())
}

func TestFoldTotalsIgnoresGroupOrder(t *testing.T) {
	groups := []CategorySum{
		{Category: CategoryOnCampus, Duration: 0.1},
		{Category: "volunteer", Duration: 0.2},
		{Category: CategoryOffCampus, Duration: 0.3},
	}
	reversed := []CategorySum{groups[2], groups[1], groups[0]}

	require.Equal(t, FoldTotals(groups), FoldTotals(reversed))
}

func TestCanonicalKey(t *testing.T) {
	key, ok := CanonicalKey(personA)
	require.True(t, ok)
	require.Equal(t, string(personA), key)

	padded := " " + string(personA) + " "
	key, ok = CanonicalKey(padded)
	require.True(t, ok)
	require.Equal(t, padded, key)

	groups := SumMemberships(NormalizeIdentity(personA), []Membership{
		{PersonRef: padded, Category: CategoryOnCampus, Duration: 2},
	})
	require.Empty(t, groups)

	_, ok = CanonicalKey(42)
	require.False(t, ok)
	_, ok = CanonicalKey("")
	require.False(t, ok)
}

type queryFunc func(context.Context, PersonRef) ([]CategorySum, error)

func (f queryFunc) SumByCategory(ctx context.Context, ref PersonRef) ([]CategorySum, error) {
	return f(ctx, ref)
}

func membershipQuery(memberships []Membership) CategoryQuery {
	return queryFunc(func(_ context.Context, ref PersonRef) ([]CategorySum, error) {
		return SumMemberships(ref, memberships), nil
	})
}
