package evaluate

import (
	"math"
	"rasgo-sdk/pkg/api"
	"rasgo-sdk/pkg/frame"
	"slices"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// finite returns nil for NaN and infinities, which have no JSON encoding.
func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// quantile interpolates linearly between the closest ranks of sorted x,
// the numpy default. stat.Quantile has no equivalent mode.
func quantile(q float64, sorted []float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}

func describe(values []float64, stats *api.FeatureStats) {
	if len(values) == 0 {
		return
	}
	sorted := slices.Clone(values)
	sort.Float64s(sorted)

	mean, std := stat.MeanStdDev(values, nil)
	stats.MeanVal = finite(mean)
	stats.MedianVal = finite(quantile(0.5, sorted))
	stats.MaxVal = finite(floats.Max(values))
	stats.MinVal = finite(floats.Min(values))
	stats.SumVal = finite(floats.Sum(values))
	stats.StdDevVal = finite(std)
	stats.VarianceVal = finite(stat.Variance(values, nil))
	if len(values) > 2 {
		stats.SkewVal = finite(stat.Skew(values, nil))
	}
	if len(values) > 3 {
		stats.KurtosisVal = finite(stat.ExKurtosis(values, nil))
	}
	stats.Q1Val = finite(quantile(0.25, sorted))
	stats.Q3Val = finite(quantile(0.75, sorted))
	stats.Pct5Val = finite(quantile(0.05, sorted))
	stats.Pct95Val = finite(quantile(0.95, sorted))
}

// binEdges returns n+1 evenly spaced edges covering [lo, hi]. A zero width
// range is widened by half a unit each side.
func binEdges(lo, hi float64, n int) []float64 {
	if lo == hi {
		lo, hi = lo-0.5, hi+0.5
	}
	return floats.Span(make([]float64, n+1), lo, hi)
}

// autoBinCount picks the smaller bin width of the Sturges and
// Freedman-Diaconis estimators, falling back to Sturges when the
// interquartile range is zero.
func autoBinCount(sorted []float64) int {
	n := float64(len(sorted))
	span := sorted[len(sorted)-1] - sorted[0]
	if span == 0 {
		return 1
	}

	width := span / (math.Log2(n) + 1)
	iqr := quantile(0.75, sorted) - quantile(0.25, sorted)
	if fd := 2 * iqr * math.Pow(n, -1.0/3); fd > 0 {
		width = math.Min(width, fd)
	}
	return max(int(math.Ceil(span/width)), 1)
}

// histogram counts values into the bins described by edges. The last bin is
// closed on both sides.
func histogram(values, edges []float64) []float64 {
	sorted := slices.Clone(values)
	sort.Float64s(sorted)

	dividers := slices.Clone(edges)
	dividers[len(dividers)-1] = math.Nextafter(dividers[len(dividers)-1], math.Inf(1))
	return stat.Histogram(nil, dividers, sorted, nil)
}

// binIndex returns the bin of v given ascending edges, clamping values on the
// outer edges into the first and last bins.
func binIndex(v float64, edges []float64) int {
	bins := len(edges) - 1
	i := sort.Search(bins, func(k int) bool { return edges[k+1] > v })
	return min(i, bins-1)
}

func numericHistogram(values []float64) []api.HistogramBucket {
	if len(values) == 0 {
		return nil
	}
	sorted := slices.Clone(values)
	sort.Float64s(sorted)

	edges := binEdges(sorted[0], sorted[len(sorted)-1], autoBinCount(sorted))
	counts := histogram(sorted, edges)

	buckets := make([]api.HistogramBucket, len(counts))
	for i, c := range counts {
		buckets[i] = api.HistogramBucket{
			Height:        int(c),
			BucketFloor:   edges[i],
			BucketCeiling: edges[i+1],
		}
	}
	return buckets
}

type valueCount struct {
	key   string
	value any
	count int
}

// valueCounts counts the non-null values of rows in a column, most frequent
// first with ties kept in order of first appearance.
func valueCounts(ds *frame.Dataset, column string, rows []int, asString bool) []valueCount {
	var strs []string
	if asString {
		strs = ds.Strings(column)
	}

	index := map[string]int{}
	var counts []valueCount
	for _, row := range rows {
		v := ds.Value(column, row)
		if v == nil {
			continue
		}
		key := ds.Key(row, []string{column})
		if i, ok := index[key]; ok {
			counts[i].count++
			continue
		}
		index[key] = len(counts)
		if asString {
			v = strs[row]
		}
		counts = append(counts, valueCount{key: key, value: v, count: 1})
	}

	sort.SliceStable(counts, func(a, b int) bool { return counts[a].count > counts[b].count })
	return counts
}

func distinctCount(ds *frame.Dataset, column string) int {
	seen := map[string]struct{}{}
	for row := 0; row < ds.Nrow(); row++ {
		if ds.IsNull(column, row) {
			continue
		}
		seen[ds.Key(row, []string{column})] = struct{}{}
	}
	return len(seen)
}

func zeroCount(ds *frame.Dataset, column string) int {
	count := 0
	for row := 0; row < ds.Nrow(); row++ {
		switch v := ds.Value(column, row).(type) {
		case int:
			if v == 0 {
				count++
			}
		case float64:
			if v == 0 {
				count++
			}
		case bool:
			if !v {
				count++
			}
		}
	}
	return count
}
