package frame_test

import (
	"bytes"
	"rasgo-sdk/pkg/frame"
	"strings"
	"testing"

	"github.com/go-gota/gota/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const salesCSV = `store,amount,open,region,day
1,1.5,true,east,2021-01-01
2,,false,west,2021-01-02
3,3.5,true,,2021-01-03
`

func readSales(t *testing.T) *frame.Dataset {
	t.Helper()
	ds, err := frame.ReadCSV(strings.NewReader(salesCSV))
	require.NoError(t, err)
	return ds
}

func TestKinds(t *testing.T) {
	ds := readSales(t)

	assert.Equal(t, frame.KindInteger, ds.Kind("store"))
	assert.Equal(t, frame.KindFloat, ds.Kind("amount"))
	assert.Equal(t, frame.KindBoolean, ds.Kind("open"))
	assert.Equal(t, frame.KindString, ds.Kind("region"))
	assert.Equal(t, frame.KindDatetime, ds.Kind("day"))
	assert.True(t, frame.KindFloat.IsNumeric())
	assert.False(t, frame.KindBoolean.IsNumeric())
}

func TestNulls(t *testing.T) {
	ds := readSales(t)

	assert.Equal(t, []bool{false, true, false}, ds.Nulls("amount"))
	assert.Equal(t, 1, ds.NullCount("region"))
	assert.Nil(t, ds.Value("amount", 1))
	assert.Nil(t, ds.Value("region", 2))
	assert.Equal(t, 1.5, ds.Value("amount", 0))
	assert.Equal(t, true, ds.Value("open", 0))
	assert.Equal(t, 2, ds.Value("store", 1))

	assert.Equal(t, []int{1, 2}, ds.NullRows())
	assert.Equal(t, []int{1}, ds.NullRows("amount"))
	assert.Equal(t, 1, ds.DropNullRows().Nrow())
}

func TestWriteCSV(t *testing.T) {
	ds := readSales(t)

	var out bytes.Buffer
	require.NoError(t, ds.WriteCSV(&out))
	assert.Equal(t, salesCSV, out.String())
}

func TestRowsAndColumns(t *testing.T) {
	ds := readSales(t)
	ds.Attrs["tag"] = "x"

	rows := ds.Rows([]int{2, 0})
	assert.Equal(t, []int{3, 1}, []int{rows.Value("store", 0).(int), rows.Value("store", 1).(int)})
	assert.Equal(t, "x", rows.Attrs["tag"])

	empty := ds.Rows(nil)
	assert.Equal(t, 0, empty.Nrow())
	assert.Equal(t, ds.Names(), empty.Names())

	dropped, err := ds.DropColumns("day", "open")
	require.NoError(t, err)
	assert.Equal(t, []string{"store", "amount", "region"}, dropped.Names())
	assert.Equal(t, 5, ds.Ncol())

	selected, err := ds.SelectColumns("region", "store")
	require.NoError(t, err)
	assert.Equal(t, []string{"region", "store"}, selected.Names())

	require.NoError(t, ds.RenameColumn("store", "shop"))
	assert.True(t, ds.HasColumn("shop"))
	assert.False(t, ds.HasColumn("store"))

	_, err = ds.SelectColumns("missing")
	assert.Error(t, err)
}

func TestConcat(t *testing.T) {
	ds := readSales(t)

	both, err := ds.Concat(ds)
	require.NoError(t, err)
	assert.Equal(t, 6, both.Nrow())

	same, err := ds.Concat(ds.Rows(nil))
	require.NoError(t, err)
	assert.Equal(t, 3, same.Nrow())
}

func TestDropEmptyColumns(t *testing.T) {
	ds, err := frame.FromColumns(
		series.New([]int{1, 2}, series.Int, "a"),
		frame.NullableStrings("b", []string{"x", "y"}, []bool{false, false}),
	)
	require.NoError(t, err)
	assert.Equal(t, 2, ds.NullCount("b"))

	out, err := ds.DropEmptyColumns()
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, out.Names())
}

func TestKeyAndSort(t *testing.T) {
	ds := readSales(t)

	assert.Equal(t, ds.Key(0, []string{"open"}), ds.Key(2, []string{"open"}))
	assert.NotEqual(t, ds.Key(0, []string{"store"}), ds.Key(2, []string{"store"}))

	assert.Equal(t, []int{1, 0, 2}, ds.SortIndex("open", "store"))
	assert.Equal(t, []int{0, 2, 1}, ds.SortIndex("amount"))

	sorted := ds.SortBy("day")
	assert.Equal(t, 1, sorted.Value("store", 0))

	tm, ok := ds.ParseTime("day", 1)
	require.True(t, ok)
	assert.Equal(t, 2, tm.Day())
}
