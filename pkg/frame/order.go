package frame

import (
	"cmp"
	"sort"
	"time"

	"github.com/araddon/dateparse"
)

// ParseTime parses a datetime cell, returning false when it is null or not a
// recognisable date.
func (d *Dataset) ParseTime(column string, row int) (time.Time, bool) {
	if d.IsNull(column, row) {
		return time.Time{}, false
	}
	t, err := dateparse.ParseAny(d.format(column, row))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// SortIndex returns the row order that sorts ds ascending by the given
// columns. The sort is stable and nulls sort last.
func (d *Dataset) SortIndex(columns ...string) []int {
	type sortKey struct {
		kind  Kind
		nums  []float64
		times []time.Time
		valid []bool
		strs  []string
	}

	keys := make([]sortKey, len(columns))
	for c, name := range columns {
		k := sortKey{kind: d.Kind(name), valid: make([]bool, d.Nrow())}
		switch {
		case k.kind.IsNumeric() || k.kind == KindBoolean:
			k.nums = d.Floats(name)
			for i, null := range d.Nulls(name) {
				k.valid[i] = !null
			}
		case k.kind == KindDatetime:
			k.times = make([]time.Time, d.Nrow())
			for i := range k.times {
				k.times[i], k.valid[i] = d.ParseTime(name, i)
			}
		default:
			k.strs = d.Strings(name)
			for i, null := range d.Nulls(name) {
				k.valid[i] = !null
			}
		}
		keys[c] = k
	}

	order := make([]int, d.Nrow())
	for i := range order {
		order[i] = i
	}

	sort.SliceStable(order, func(a, b int) bool {
		ra, rb := order[a], order[b]
		for _, k := range keys {
			if k.valid[ra] != k.valid[rb] {
				return k.valid[ra]
			}
			if !k.valid[ra] {
				continue
			}
			var c int
			switch {
			case k.nums != nil:
				c = cmp.Compare(k.nums[ra], k.nums[rb])
			case k.times != nil:
				c = k.times[ra].Compare(k.times[rb])
			default:
				c = cmp.Compare(k.strs[ra], k.strs[rb])
			}
			if c != 0 {
				return c < 0
			}
		}
		return false
	})
	return order
}

// SortBy returns a copy of ds sorted by the given columns.
func (d *Dataset) SortBy(columns ...string) *Dataset {
	return d.Rows(d.SortIndex(columns...))
}
