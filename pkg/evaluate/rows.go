package evaluate

import (
	"context"
	"fmt"
	"math"
	"rasgo-sdk/pkg/api"
	"rasgo-sdk/pkg/frame"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/go-gota/gota/series"
	"github.com/jedib0t/go-pretty/v6/table"
)

const (
	lastDateColumn = "TSGAPLastDate"
	nextDateColumn = "TSGAPNextDate"
	dateLayout     = "2006-01-02 15:04:05"
)

// DuplicateRowIndexes returns the rows DuplicateRows selects, in output order.
func DuplicateRowIndexes(ds *frame.Dataset, columns []string) []int {
	var groups [][]string
	if len(columns) == 0 {
		groups = [][]string{ds.Names()}
	} else {
		for _, c := range columns {
			groups = append(groups, []string{c})
		}
	}

	var rows []int
	for _, group := range groups {
		seen := map[string]struct{}{}
		for row := 0; row < ds.Nrow(); row++ {
			key := ds.Key(row, group)
			if _, ok := seen[key]; ok {
				rows = append(rows, row)
				continue
			}
			seen[key] = struct{}{}
		}
	}
	return rows
}

// DuplicateRows returns the rows that repeat an earlier row. When columns are
// given, each column is checked on its own and the repeats of every column
// are concatenated in column order, so a row can appear more than once.
func (e *Evaluator) DuplicateRows(ds *frame.Dataset, columns []string) (out *frame.Dataset, err error) {
	defer func(start time.Time) { e.track(context.Background(), "duplicate_rows", ds, start, err) }(time.Now())

	if err := confirmColumns(ds, columns...); err != nil {
		return nil, err
	}
	return ds.Rows(DuplicateRowIndexes(ds, columns)), nil
}

// MissingData prints the null count of every column that has nulls and
// returns the rows holding at least one null.
func (e *Evaluator) MissingData(ds *frame.Dataset) *frame.Dataset {
	defer func(start time.Time) { e.track(context.Background(), "missing_data", ds, start, nil) }(time.Now())

	t := table.NewWriter()
	t.SetOutputMirror(e.out)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Column", "Count of Nulls"})
	for _, column := range ds.Names() {
		if n := ds.NullCount(column); n > 0 {
			t.AppendRow(table.Row{column, n})
		}
	}
	t.Render()

	return ds.Rows(ds.NullRows())
}

// TimeseriesGaps returns the rows bordering a gap in a daily series: rows
// whose previous or next date within the same partition is not exactly one
// day away. The first and last rows of each partition always qualify. The
// output is sorted by partition and date, with the neighbouring dates added
// as TSGAPLastDate and TSGAPNextDate.
func (e *Evaluator) TimeseriesGaps(ds *frame.Dataset, datetimeColumn string, partitionColumns []string) (out *frame.Dataset, err error) {
	defer func(start time.Time) { e.track(context.Background(), "timeseries_gaps", ds, start, err) }(time.Now())

	sortColumns := append(append([]string{}, partitionColumns...), datetimeColumn)
	if err := confirmColumns(ds, sortColumns...); err != nil {
		return nil, err
	}

	sorted := ds.SortBy(sortColumns...)
	n := sorted.Nrow()

	dates := make([]time.Time, n)
	valid := make([]bool, n)
	partitions := make([]string, n)
	for row := 0; row < n; row++ {
		dates[row], valid[row] = sorted.ParseTime(datetimeColumn, row)
		partitions[row] = sorted.Key(row, partitionColumns)
	}

	neighbour := func(row, offset int) (time.Time, bool) {
		other := row + offset
		if other < 0 || other >= n || partitions[other] != partitions[row] || !valid[other] {
			return time.Time{}, false
		}
		return dates[other], true
	}

	var keep []int
	var last, next []string
	var lastValid, nextValid []bool
	for row := 0; row < n; row++ {
		prevDate, hasPrev := neighbour(row, -1)
		nextDate, hasNext := neighbour(row, 1)

		prevGap := !valid[row] || !hasPrev || dates[row].Sub(prevDate) != 24*time.Hour
		nextGap := !valid[row] || !hasNext || nextDate.Sub(dates[row]) != 24*time.Hour
		if !prevGap && !nextGap {
			continue
		}

		keep = append(keep, row)
		last = append(last, prevDate.Format(dateLayout))
		lastValid = append(lastValid, hasPrev)
		next = append(next, nextDate.Format(dateLayout))
		nextValid = append(nextValid, hasNext)
	}

	out = sorted.Rows(keep)
	if err := out.SetColumn(frame.NullableStrings(lastDateColumn, last, lastValid)); err != nil {
		return nil, err
	}
	if err := out.SetColumn(frame.NullableStrings(nextDateColumn, next, nextValid)); err != nil {
		return nil, err
	}
	return out, nil
}

// TrainTestSplit splits ds into training and test sets. Without a timeseries
// index each row lands in the training set with probability trainingPct. With
// one, rows are ordered by the index and the first rows form the training set.
func (e *Evaluator) TrainTestSplit(ds *frame.Dataset, trainingPct float64, timeseriesIndex string) (train, test *frame.Dataset, err error) {
	defer func(start time.Time) { e.track(context.Background(), "train_test_split", ds, start, err) }(time.Now())

	if trainingPct < 0 || trainingPct > 1 {
		return nil, nil, api.Errorf(api.ErrInvalidParameter, "training percentage must be between 0 and 1, got %v", trainingPct)
	}

	if timeseriesIndex == "" {
		var trainRows, testRows []int
		for row := 0; row < ds.Nrow(); row++ {
			if e.rng.Float64() <= trainingPct {
				trainRows = append(trainRows, row)
			} else {
				testRows = append(testRows, row)
			}
		}
		return ds.Rows(trainRows), ds.Rows(testRows), nil
	}

	if err := confirmColumns(ds, timeseriesIndex); err != nil {
		return nil, nil, err
	}

	order := ds.SortIndex(timeseriesIndex)
	n := len(order)
	trainCount := int(math.RoundToEven(float64(n) * trainingPct))
	testCount := int(math.RoundToEven(float64(n) * (1 - trainingPct)))
	return ds.Rows(order[:trainCount]), ds.Rows(order[n-testCount:]), nil
}

var castSuffixes = map[string]string{
	"datetime": "CastToDatetime",
	"numeric":  "CastToNumeric",
}

// TypeMismatches returns a single column dataset holding column cast to
// dataType, which is "datetime" or "numeric". Values that cannot be cast are
// null. The share of convertible values is printed.
func (e *Evaluator) TypeMismatches(ds *frame.Dataset, column, dataType string) (out *frame.Dataset, err error) {
	defer func(start time.Time) { e.track(context.Background(), "type_mismatches", ds, start, err) }(time.Now())

	suffix, ok := castSuffixes[dataType]
	if !ok {
		return nil, api.Errorf(api.ErrInvalidParameter, "Supported data_type values are: 'datetime' or 'numeric'")
	}
	if err := confirmColumns(ds, column); err != nil {
		return nil, err
	}

	raw := ds.Strings(column)
	nulls := ds.Nulls(column)
	name := column + suffix

	total, failed := 0, 0
	var cast series.Series
	switch dataType {
	case "datetime":
		values := make([]string, len(raw))
		valid := make([]bool, len(raw))
		for i, v := range raw {
			if nulls[i] {
				continue
			}
			total++
			t, err := dateparse.ParseAny(strings.TrimSpace(v))
			if err != nil {
				failed++
				continue
			}
			values[i], valid[i] = t.Format(dateLayout), true
		}
		cast = frame.NullableStrings(name, values, valid)
	case "numeric":
		values := make([]float64, len(raw))
		for i, v := range raw {
			values[i] = math.NaN()
			if nulls[i] {
				continue
			}
			total++
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				failed++
				continue
			}
			values[i] = f
		}
		cast = series.New(values, series.Float, name)
	}

	pct := 0.0
	if total > 0 {
		pct = 100 * float64(total-failed) / float64(total)
	}
	fmt.Fprintf(e.out, "%.2f%% convertible: %d rows of %d rows cannot convert.\n", pct, failed, total)

	return frame.FromColumns(cast)
}
