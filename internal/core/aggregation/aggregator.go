package aggregation

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// keySep separates the grouping-field values inside a Key. The unit
// separator never appears in real field values.
const keySep = "\x1f"

// Key is an ordered tuple of grouping-field values (e.g. category, region)
// canonicalized into a single comparable value.
type Key string

// NewKey builds a Key from grouping-field values. Order matters:
// NewKey("a", "b") != NewKey("b", "a").
func NewKey(parts ...string) Key {
	return Key(strings.Join(parts, keySep))
}

// Parts returns the grouping-field values in their original order.
func (k Key) Parts() []string {
	return strings.Split(string(k), keySep)
}

// Bucket holds the running state for one key: the exact sum of amounts and
// the number of additions. The derived average is computed at read time,
// never stored, so sum and average cannot drift apart.
type Bucket struct {
	Total decimal.Decimal
	Count int64
}

// Row is one key's aggregate at snapshot time.
type Row struct {
	Key     Key
	Total   decimal.Decimal
	Count   int64
	Average decimal.Decimal
}

// Aggregator groups numeric facts by composite key. It is invariant-pure
// arithmetic: callers filter non-positive or malformed amounts before Add.
// Not safe for concurrent use.
type Aggregator struct {
	buckets map[Key]*Bucket
}

func New() *Aggregator {
	return &Aggregator{buckets: make(map[Key]*Bucket)}
}

// Add folds amount into the bucket for key, creating the bucket on first
// observation. Buckets are never removed within a run.
func (a *Aggregator) Add(key Key, amount decimal.Decimal) {
	b, ok := a.buckets[key]
	if !ok {
		b = &Bucket{Total: decimal.Zero}
		a.buckets[key] = b
	}
	b.Total = b.Total.Add(amount)
	b.Count++
}

// Len returns the number of distinct keys observed.
func (a *Aggregator) Len() int {
	return len(a.buckets)
}

// Snapshot returns every bucket sorted by key. Average is Total/Count
// rounded to 2 decimal places, or zero when the count is zero.
func (a *Aggregator) Snapshot() []Row {
	rows := make([]Row, 0, len(a.buckets))
	for key, b := range a.buckets {
		avg := decimal.Zero
		if b.Count > 0 {
			avg = b.Total.DivRound(decimal.NewFromInt(b.Count), 2)
		}
		rows = append(rows, Row{Key: key, Total: b.Total, Count: b.Count, Average: avg})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Key < rows[j].Key })
	return rows
}
