package aggregation

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestKey_RoundTrip(t *testing.T) {
	k := NewKey("Electronics", "North")
	require.Equal(t, []string{"Electronics", "North"}, k.Parts())
	require.NotEqual(t, NewKey("North", "Electronics"), k)
}

func TestAggregator_Add(t *testing.T) {
	agg := New()
	agg.Add(NewKey("Electronics", "North"), decimal.RequireFromString("120.00"))
	agg.Add(NewKey("Electronics", "North"), decimal.RequireFromString("500.00"))
	agg.Add(NewKey("Books", "South"), decimal.RequireFromString("15.50"))

	require.Equal(t, 2, agg.Len())

	rows := agg.Snapshot()
	require.Len(t, rows, 2)

	// Sorted by key: Books before Electronics.
	require.Equal(t, NewKey("Books", "South"), rows[0].Key)
	require.Equal(t, NewKey("Electronics", "North"), rows[1].Key)

	require.True(t, rows[1].Total.Equal(decimal.RequireFromString("620.00")))
	require.Equal(t, int64(2), rows[1].Count)
	require.True(t, rows[1].Average.Equal(decimal.RequireFromString("310.00")))
}

func TestAggregator_AverageRounding(t *testing.T) {
	agg := New()
	agg.Add(NewKey("Books"), decimal.RequireFromString("10.00"))
	agg.Add(NewKey("Books"), decimal.RequireFromString("10.00"))
	agg.Add(NewKey("Books"), decimal.RequireFromString("10.01"))

	rows := agg.Snapshot()
	require.True(t, rows[0].Average.Equal(decimal.RequireFromString("10.00")), "got %s", rows[0].Average)
}

func TestAggregator_ExactAdditionNoDrift(t *testing.T) {
	// 0.1 added ten times is exactly 1 in decimal arithmetic.
	agg := New()
	tenth := decimal.RequireFromString("0.1")
	for i := 0; i < 10; i++ {
		agg.Add(NewKey("k"), tenth)
	}
	rows := agg.Snapshot()
	require.True(t, rows[0].Total.Equal(decimal.NewFromInt(1)), "got %s", rows[0].Total)
}

func TestAggregator_SnapshotProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("total is the exact sum and count the number of additions", prop.ForAll(
		func(cents []int64) bool {
			agg := New()
			want := decimal.Zero
			for _, c := range cents {
				amount := decimal.New(c, -2)
				agg.Add(NewKey("k"), amount)
				want = want.Add(amount)
			}
			rows := agg.Snapshot()
			if len(cents) == 0 {
				return len(rows) == 0
			}
			return len(rows) == 1 &&
				rows[0].Total.Equal(want) &&
				rows[0].Count == int64(len(cents))
		},
		gen.SliceOf(gen.Int64Range(1, 10_000_000)),
	))

	properties.Property("snapshot keys are sorted and distinct", prop.ForAll(
		func(keys []string) bool {
			agg := New()
			for _, k := range keys {
				agg.Add(NewKey(k), decimal.NewFromInt(1))
			}
			rows := agg.Snapshot()
			for i := 1; i < len(rows); i++ {
				if rows[i-1].Key >= rows[i].Key {
					return false
				}
			}
			return agg.Len() == len(rows)
		},
		gen.SliceOf(gen.AlphaString()),
	))

	properties.TestingRun(t)
}
