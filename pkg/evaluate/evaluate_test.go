package evaluate_test

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"math/rand"
	"rasgo-sdk/pkg/api"
	"rasgo-sdk/pkg/evaluate"
	"rasgo-sdk/pkg/frame"
	"testing"
	"time"

	"github.com/go-gota/gota/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	profiles    map[string]api.ColumnProfiles
	importances map[string]api.FeatureImportanceStats
	err         error
}

func newFakePublisher() *fakePublisher {
	return &fakePublisher{
		profiles:    map[string]api.ColumnProfiles{},
		importances: map[string]api.FeatureImportanceStats{},
	}
}

func (p *fakePublisher) PostDataframeProfile(ctx context.Context, id string, payload api.ColumnProfiles) error {
	if p.err != nil {
		return p.err
	}
	p.profiles[id] = payload
	return nil
}

func (p *fakePublisher) PostFeatureImportance(ctx context.Context, id string, payload api.FeatureImportanceStats) error {
	if p.err != nil {
		return p.err
	}
	p.importances[id] = payload
	return nil
}

type harness struct {
	publisher *fakePublisher
	out       *bytes.Buffer
	opened    []string
	evaluator *evaluate.Evaluator
}

func newHarness(opts ...evaluate.Option) *harness {
	h := &harness{publisher: newFakePublisher(), out: &bytes.Buffer{}}
	base := []evaluate.Option{
		evaluate.WithOutput(h.out),
		evaluate.WithBrowser(func(url string) error {
			h.opened = append(h.opened, url)
			return nil
		}),
		evaluate.WithRand(rand.New(rand.NewSource(42))),
		evaluate.WithClock(func() time.Time { return time.Date(2021, 3, 4, 5, 6, 7, 0, time.UTC) }),
	}
	h.evaluator = evaluate.New(h.publisher, "http://app.test/", append(base, opts...)...)
	return h
}

func records(t *testing.T, rows ...[]string) *frame.Dataset {
	t.Helper()
	ds, err := frame.FromRecords(rows)
	require.NoError(t, err)
	return ds
}

func profileDataset(t *testing.T) *frame.Dataset {
	nan := math.NaN()
	ds, err := frame.FromColumns(
		series.New([]float64{1, 2, 3, 4, nan}, series.Float, "a"),
		series.New([]string{"x", "y", "x", "z", "x"}, series.String, "b"),
		series.New([]float64{nan, nan, nan, nan, nan}, series.Float, "c"),
	)
	require.NoError(t, err)
	return ds
}

func TestProfile(t *testing.T) {
	h := newHarness()
	ds := profileDataset(t)

	result, err := h.evaluator.Profile(context.Background(), ds, evaluate.ProfileOptions{})
	require.NoError(t, err)

	id := ds.Attrs[frame.IDAttribute]
	require.NotEmpty(t, id)
	assert.Equal(t, fmt.Sprintf("http://app.test/dataframes/%s/features", id), result.URL)
	assert.Equal(t, "2021-03-04 05:06:07.000000", result.Timestamp)
	assert.Equal(t, []string{result.URL}, h.opened)
	assert.Contains(t, h.out.String(), "Profile URL: "+result.URL)
	assert.Equal(t, result, h.publisher.profiles[id])

	require.Len(t, result.ColumnProfiles, 3)

	a := result.ColumnProfiles[0]
	assert.Equal(t, "a", a.ColumnName)
	assert.Equal(t, "float", a.DataType)
	assert.Equal(t, 5, a.FeatureStats.RecCt)
	assert.Equal(t, 4, a.FeatureStats.DistinctCt)
	assert.Equal(t, 1, a.FeatureStats.NullRecCt)
	assert.Equal(t, 0, a.FeatureStats.ZeroValRecCt)
	assert.InDelta(t, 2.5, *a.FeatureStats.MeanVal, 1e-9)
	assert.InDelta(t, 2.5, *a.FeatureStats.MedianVal, 1e-9)
	assert.InDelta(t, 4, *a.FeatureStats.MaxVal, 1e-9)
	assert.InDelta(t, 1, *a.FeatureStats.MinVal, 1e-9)
	assert.InDelta(t, 10, *a.FeatureStats.SumVal, 1e-9)
	assert.InDelta(t, math.Sqrt(5.0/3), *a.FeatureStats.StdDevVal, 1e-9)
	assert.InDelta(t, 5.0/3, *a.FeatureStats.VarianceVal, 1e-9)
	assert.InDelta(t, 0, *a.FeatureStats.SkewVal, 1e-9)
	assert.InDelta(t, -1.2, *a.FeatureStats.KurtosisVal, 1e-9)
	assert.InDelta(t, 1.75, *a.FeatureStats.Q1Val, 1e-9)
	assert.InDelta(t, 3.25, *a.FeatureStats.Q3Val, 1e-9)
	assert.InDelta(t, 1.15, *a.FeatureStats.Pct5Val, 1e-9)
	assert.InDelta(t, 3.85, *a.FeatureStats.Pct95Val, 1e-9)

	require.Len(t, a.Histogram, 3)
	assert.Equal(t, api.HistogramBucket{Height: 1, BucketFloor: 1, BucketCeiling: 2}, a.Histogram[0])
	assert.Equal(t, api.HistogramBucket{Height: 1, BucketFloor: 2, BucketCeiling: 3}, a.Histogram[1])
	assert.Equal(t, api.HistogramBucket{Height: 2, BucketFloor: 3, BucketCeiling: 4}, a.Histogram[2])
	assert.Len(t, a.CommonValues, 4)

	b := result.ColumnProfiles[1]
	assert.Equal(t, "object", b.DataType)
	assert.Equal(t, 3, b.FeatureStats.DistinctCt)
	assert.Nil(t, b.FeatureStats.MeanVal)
	assert.Empty(t, b.Histogram)
	require.Len(t, b.CommonValues, 3)
	assert.Equal(t, api.CommonValue{Val: "x", RecCt: 2, Freq: 0.4}, b.CommonValues[0])
	assert.Equal(t, "y", b.CommonValues[1].Val)

	c := result.ColumnProfiles[2]
	assert.Equal(t, 5, c.FeatureStats.NullRecCt)
	assert.Equal(t, 0, c.FeatureStats.DistinctCt)
	assert.Empty(t, c.CommonValues)
	assert.NotNil(t, c.CommonValues)
}

func TestProfileOptions(t *testing.T) {
	h := newHarness(evaluate.WithExperiment("exp-1"))
	ds := profileDataset(t)

	result, err := h.evaluator.Profile(context.Background(), ds, evaluate.ProfileOptions{
		ExcludeColumns:    []string{"c"},
		ReturnCLIOnly:     true,
		TimestampOverride: "then",
	})
	require.NoError(t, err)

	assert.Equal(t, "exp-1", ds.Attrs[frame.IDAttribute])
	assert.Equal(t, "then", result.Timestamp)
	assert.Len(t, result.ColumnProfiles, 2)
	assert.Empty(t, h.opened)
	assert.NotContains(t, h.out.String(), "Profile URL")
	assert.Equal(t, []string{"a", "b", "c"}, ds.Names())
}

func TestProfileErrors(t *testing.T) {
	h := newHarness()
	ds := profileDataset(t)

	_, err := h.evaluator.Profile(context.Background(), ds, evaluate.ProfileOptions{ExcludeColumns: []string{"missing"}})
	assert.ErrorIs(t, err, api.ErrColumnNotFound)
	assert.EqualError(t, err, "Column missing does not exist in DataFrame")

	h.publisher.err = api.StatusError(500, "boom")
	_, err = h.evaluator.Profile(context.Background(), ds, evaluate.ProfileOptions{})
	assert.ErrorIs(t, err, api.ErrRequestFailed)
	assert.Empty(t, h.opened)
}

func importanceDataset(t *testing.T, n int) *frame.Dataset {
	rows := [][]string{{"date", "x1", "cat", "y"}}
	start := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		cat := "a"
		y := 2*float64(i) + 1
		if i%2 == 1 {
			cat = "b"
			y += 5
		}
		rows = append(rows, []string{
			start.AddDate(0, 0, i).Format("2006-01-02"),
			fmt.Sprintf("%d.5", i),
			cat,
			fmt.Sprintf("%g", y+1),
		})
	}
	return records(t, rows...)
}

func TestFeatureImportance(t *testing.T) {
	h := newHarness()
	ds := importanceDataset(t, 40)

	result, err := h.evaluator.FeatureImportance(context.Background(), ds, "y", evaluate.ImportanceOptions{TimeseriesIndex: "date"})
	require.NoError(t, err)

	id := ds.Attrs[frame.IDAttribute]
	url := fmt.Sprintf("http://app.test/dataframes/%s/importance", id)
	assert.Equal(t, []string{url}, h.opened)
	assert.Contains(t, h.out.String(), "Importance URL: "+url)

	assert.Equal(t, "y", result.TargetFeature)
	assert.Equal(t, h.publisher.profiles[id].Timestamp, result.Timestamp)
	assert.Equal(t, result, h.publisher.importances[id])

	require.Len(t, result.FeatureImportance, 2)
	assert.InDelta(t, 16, result.FeatureImportance["x1"], 0.01)
	assert.InDelta(t, 2.5, result.FeatureImportance["cat"], 0.01)

	assert.InDelta(t, 0, result.ModelPerformance.RMSE, 0.01)
	assert.InDelta(t, 1, result.ModelPerformance.R2, 0.001)

	x1 := result.FeatureShapleyDistributions["x1"]
	require.Len(t, x1.Histogram, 10)
	assert.Len(t, x1.FeatureEdges, 11)
	assert.Len(t, x1.ShapEdges, 11)
	total := 0.0
	for _, row := range x1.Histogram {
		require.Len(t, row, 10)
		for _, c := range row {
			total += c
		}
	}
	assert.Equal(t, 32.0, total)

	cat := result.FeatureShapleyDistributions["cat"]
	assert.ElementsMatch(t, []any{"a", "b"}, cat.FeatureEdges)
	require.Len(t, cat.Histogram, 2)
	assert.Len(t, cat.ShapEdges, 11)
	for _, row := range cat.Histogram {
		sum := 0.0
		for _, c := range row {
			sum += c
		}
		assert.Equal(t, 16.0, sum)
	}
}

func TestFeatureImportanceCLIOnlyRandomSplit(t *testing.T) {
	h := newHarness()
	ds := importanceDataset(t, 60)

	result, err := h.evaluator.FeatureImportance(context.Background(), ds, "y", evaluate.ImportanceOptions{
		ExcludeColumns: []string{"date", "y"},
		ReturnCLIOnly:  true,
	})
	require.NoError(t, err)

	assert.Empty(t, h.opened)
	assert.Contains(t, result.FeatureImportance, "x1")
	assert.NotContains(t, result.FeatureImportance, "date")
	assert.InDelta(t, 1, result.ModelPerformance.R2, 0.001)

	var profiled []string
	for _, p := range h.publisher.profiles[ds.Attrs[frame.IDAttribute]].ColumnProfiles {
		profiled = append(profiled, p.ColumnName)
	}
	assert.ElementsMatch(t, []string{"x1", "cat"}, profiled)
}

func TestFeatureImportanceErrors(t *testing.T) {
	h := newHarness()
	ds := importanceDataset(t, 10)
	ctx := context.Background()

	_, err := h.evaluator.FeatureImportance(ctx, ds, "missing", evaluate.ImportanceOptions{})
	assert.ErrorIs(t, err, api.ErrColumnNotFound)

	_, err = h.evaluator.FeatureImportance(ctx, ds, "y", evaluate.ImportanceOptions{TimeseriesIndex: "missing"})
	assert.ErrorIs(t, err, api.ErrColumnNotFound)

	_, err = h.evaluator.FeatureImportance(ctx, ds, "y", evaluate.ImportanceOptions{ExcludeColumns: []string{"missing"}})
	assert.ErrorIs(t, err, api.ErrColumnNotFound)

	_, err = h.evaluator.FeatureImportance(ctx, ds, "cat", evaluate.ImportanceOptions{})
	assert.ErrorIs(t, err, api.ErrInvalidParameter)

	assert.Empty(t, h.publisher.importances)
}

func TestDuplicateRows(t *testing.T) {
	h := newHarness()
	ds := records(t,
		[]string{"x", "y"},
		[]string{"1", "a"},
		[]string{"1", "b"},
		[]string{"1", "a"},
		[]string{"2", "b"},
	)

	out, err := h.evaluator.DuplicateRows(ds, nil)
	require.NoError(t, err)
	require.Equal(t, 1, out.Nrow())
	assert.Equal(t, "a", out.Value("y", 0))

	out, err = h.evaluator.DuplicateRows(ds, []string{"x", "y"})
	require.NoError(t, err)
	assert.Equal(t, 4, out.Nrow())
	assert.Equal(t, []string{"b", "a", "a", "b"}, out.Strings("y"))

	_, err = h.evaluator.DuplicateRows(ds, []string{"z"})
	assert.ErrorIs(t, err, api.ErrColumnNotFound)
}

func TestMissingData(t *testing.T) {
	h := newHarness()
	ds := profileDataset(t)

	out := h.evaluator.MissingData(ds)
	assert.Equal(t, 5, out.Nrow())

	printed := h.out.String()
	assert.Contains(t, printed, "Count of Nulls")
	assert.Contains(t, printed, "a")
	assert.Contains(t, printed, "c")
	assert.NotContains(t, printed, " b ")
}

func TestTimeseriesGaps(t *testing.T) {
	h := newHarness()
	ds := records(t,
		[]string{"store", "day", "sales"},
		[]string{"A", "2021-01-05", "4"},
		[]string{"B", "2021-01-02", "6"},
		[]string{"A", "2021-01-01", "1"},
		[]string{"A", "2021-01-03", "3"},
		[]string{"B", "2021-01-01", "5"},
		[]string{"A", "2021-01-02", "2"},
	)

	out, err := h.evaluator.TimeseriesGaps(ds, "day", []string{"store"})
	require.NoError(t, err)

	require.Equal(t, 5, out.Nrow())
	assert.Equal(t, []string{"A", "A", "A", "B", "B"}, out.Strings("store"))
	assert.Equal(t, []string{"1", "3", "4", "5", "6"}, out.Strings("sales"))

	assert.True(t, out.IsNull("TSGAPLastDate", 0))
	assert.Equal(t, "2021-01-02 00:00:00", out.Value("TSGAPNextDate", 0))
	assert.Equal(t, "2021-01-02 00:00:00", out.Value("TSGAPLastDate", 1))
	assert.Equal(t, "2021-01-05 00:00:00", out.Value("TSGAPNextDate", 1))
	assert.True(t, out.IsNull("TSGAPNextDate", 2))
	assert.True(t, out.IsNull("TSGAPLastDate", 3))

	_, err = h.evaluator.TimeseriesGaps(ds, "missing", nil)
	assert.ErrorIs(t, err, api.ErrColumnNotFound)
}

func TestTrainTestSplit(t *testing.T) {
	h := newHarness()
	rows := [][]string{{"day", "v"}}
	for i := 10; i > 0; i-- {
		rows = append(rows, []string{fmt.Sprintf("2021-01-%02d", i), fmt.Sprint(i)})
	}
	ds := records(t, rows...)

	train, test, err := h.evaluator.TrainTestSplit(ds, 0.8, "day")
	require.NoError(t, err)
	assert.Equal(t, 8, train.Nrow())
	assert.Equal(t, 2, test.Nrow())
	assert.Equal(t, []string{"1", "2", "3", "4", "5", "6", "7", "8"}, train.Strings("v"))
	assert.Equal(t, []string{"9", "10"}, test.Strings("v"))
	assert.Equal(t, "2021-01-10", ds.Value("day", 0))

	train, test, err = h.evaluator.TrainTestSplit(ds, 0.5, "")
	require.NoError(t, err)
	assert.Equal(t, 10, train.Nrow()+test.Nrow())

	_, _, err = h.evaluator.TrainTestSplit(ds, 1.5, "")
	assert.ErrorIs(t, err, api.ErrInvalidParameter)

	_, _, err = h.evaluator.TrainTestSplit(ds, 0.8, "missing")
	assert.ErrorIs(t, err, api.ErrColumnNotFound)
}

func TestTypeMismatches(t *testing.T) {
	h := newHarness()
	ds := records(t,
		[]string{"val"},
		[]string{"1"},
		[]string{"2.5"},
		[]string{"abc"},
		[]string{""},
	)

	out, err := h.evaluator.TypeMismatches(ds, "val", "numeric")
	require.NoError(t, err)
	assert.Equal(t, []string{"valCastToNumeric"}, out.Names())
	assert.Equal(t, 1.0, out.Value("valCastToNumeric", 0))
	assert.Equal(t, 2.5, out.Value("valCastToNumeric", 1))
	assert.True(t, out.IsNull("valCastToNumeric", 2))
	assert.True(t, out.IsNull("valCastToNumeric", 3))
	assert.Contains(t, h.out.String(), "66.67% convertible: 1 rows of 3 rows cannot convert.")

	dates := records(t, []string{"when"}, []string{"2021-02-03"}, []string{"soon"})
	out, err = h.evaluator.TypeMismatches(dates, "when", "datetime")
	require.NoError(t, err)
	assert.Equal(t, "2021-02-03 00:00:00", out.Value("whenCastToDatetime", 0))
	assert.True(t, out.IsNull("whenCastToDatetime", 1))

	_, err = h.evaluator.TypeMismatches(ds, "val", "boolean")
	assert.ErrorIs(t, err, api.ErrInvalidParameter)

	_, err = h.evaluator.TypeMismatches(ds, "missing", "numeric")
	assert.ErrorIs(t, err, api.ErrColumnNotFound)
}
