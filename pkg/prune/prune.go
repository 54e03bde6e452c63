// Package prune removes low value rows and columns from datasets.
package prune

import (
	"context"
	"fmt"
	"io"
	"math"
	"rasgo-sdk/pkg/api"
	"rasgo-sdk/pkg/evaluate"
	"rasgo-sdk/pkg/frame"
	"slices"
	"sort"
	"time"
)

type Pruner struct {
	evaluator *evaluate.Evaluator
	out       io.Writer
}

func New(evaluator *evaluate.Evaluator) *Pruner {
	return &Pruner{evaluator: evaluator, out: evaluator.Output()}
}

func (p *Pruner) track(ctx context.Context, operation string, ds *frame.Dataset, start time.Time, err error) {
	p.evaluator.Tracker().Track(ctx, operation, ds.Attrs[frame.IDAttribute], start, err)
}

// dropRows returns a copy of ds without the given rows, which may repeat.
func dropRows(ds *frame.Dataset, rows []int) *frame.Dataset {
	drop := make(map[int]struct{}, len(rows))
	for _, r := range rows {
		drop[r] = struct{}{}
	}
	keep := make([]int, 0, ds.Nrow()-len(drop))
	for row := 0; row < ds.Nrow(); row++ {
		if _, ok := drop[row]; !ok {
			keep = append(keep, row)
		}
	}
	return ds.Rows(keep)
}

func confirmColumns(ds *frame.Dataset, columns []string) error {
	for _, c := range columns {
		if !ds.HasColumn(c) {
			return api.ColumnNotFound(c)
		}
	}
	return nil
}

// ColumnsWithMissingData returns a copy of ds without the columns whose share
// of nulls, as a percentage, is at least thresholdPct. When columns is given
// only those columns are candidates.
func (p *Pruner) ColumnsWithMissingData(ds *frame.Dataset, columns []string, thresholdPct float64) (out *frame.Dataset, err error) {
	defer func(start time.Time) { p.track(context.Background(), "prune_columns_with_missing_data", ds, start, err) }(time.Now())

	if err := confirmColumns(ds, columns); err != nil {
		return nil, err
	}

	var drop []string
	for _, column := range ds.Names() {
		if len(columns) > 0 && !slices.Contains(columns, column) {
			continue
		}
		nulls := ds.NullCount(column)
		if nulls == 0 {
			continue
		}
		if float64(nulls)*100/float64(ds.Nrow()) >= thresholdPct {
			drop = append(drop, column)
			fmt.Fprintf(p.out, "Column deleted: %s\n", column)
		}
	}
	return ds.DropColumns(drop...)
}

// DuplicateRows returns a copy of ds without the rows the evaluator reports
// as duplicates.
func (p *Pruner) DuplicateRows(ds *frame.Dataset, columns []string) (out *frame.Dataset, err error) {
	defer func(start time.Time) { p.track(context.Background(), "prune_duplicate_rows", ds, start, err) }(time.Now())

	if err := confirmColumns(ds, columns); err != nil {
		return nil, err
	}

	out = dropRows(ds, evaluate.DuplicateRowIndexes(ds, columns))
	fmt.Fprintf(p.out, "Dropping %d rows\n", ds.Nrow()-out.Nrow())
	return out, nil
}

// RowsWithMissingData returns a copy of ds without rows holding a null in
// any of columns, or in any column when none are given.
func (p *Pruner) RowsWithMissingData(ds *frame.Dataset, columns []string) (out *frame.Dataset, err error) {
	defer func(start time.Time) { p.track(context.Background(), "prune_rows_with_missing_data", ds, start, err) }(time.Now())

	if err := confirmColumns(ds, columns); err != nil {
		return nil, err
	}

	out = dropRows(ds, ds.NullRows(columns...))
	fmt.Fprintf(p.out, "Dropping %d rows\n", ds.Nrow()-out.Nrow())
	return out, nil
}

// FeatureOptions selects how many features Features keeps. Exactly one of
// TopN, TopNPct and PctOfTopFeature is used, checked in that order.
type FeatureOptions struct {
	TimeseriesIndex string
	ExcludeColumns  []string

	// TopN keeps the n most important features.
	TopN *int
	// TopNPct keeps the given fraction of features, most important first.
	TopNPct *float64
	// PctOfTopFeature drops features whose importance is at or below this
	// fraction of the most important feature's.
	PctOfTopFeature *float64
}

type rankedFeature struct {
	name       string
	importance float64
}

// Features runs feature importance against targetColumn and returns a copy
// of ds without the least important features. Columns that take no part in
// the importance calculation are kept.
func (p *Pruner) Features(ctx context.Context, ds *frame.Dataset, targetColumn string, opts FeatureOptions) (out *frame.Dataset, err error) {
	defer func(start time.Time) { p.track(ctx, "prune_features", ds, start, err) }(time.Now())

	switch {
	case opts.TopN != nil:
		if *opts.TopN < 0 {
			return nil, api.Errorf(api.ErrInvalidParameter, "top_n must not be negative, got %d", *opts.TopN)
		}
		fmt.Fprintf(p.out, "Prune Method: Keeping top %d features\n", *opts.TopN)
	case opts.TopNPct != nil:
		if *opts.TopNPct < 0 || *opts.TopNPct > 1 {
			return nil, api.Errorf(api.ErrInvalidParameter, "top_n_pct must be between 0 and 1, got %v", *opts.TopNPct)
		}
		fmt.Fprintf(p.out, "Prune Method: Keeping top %v of features\n", *opts.TopNPct)
	case opts.PctOfTopFeature != nil:
		fmt.Fprintf(p.out, "Prune Method: Keeping features with importance above %v pct of max feature\n", *opts.PctOfTopFeature)
	default:
		return nil, api.Errorf(api.ErrInvalidParameter, "Must pass in one of the following parameters: top_n=#, top_n_pct=.#, pct_of_top_feature=.#")
	}

	out = ds.Copy()
	stats, err := p.evaluator.FeatureImportance(ctx, out, targetColumn, evaluate.ImportanceOptions{
		TimeseriesIndex: opts.TimeseriesIndex,
		ExcludeColumns:  opts.ExcludeColumns,
		ReturnCLIOnly:   true,
	})
	if err != nil {
		return nil, err
	}

	ranked := make([]rankedFeature, 0, len(stats.FeatureImportance))
	for name, importance := range stats.FeatureImportance {
		ranked = append(ranked, rankedFeature{name: name, importance: importance})
	}
	sort.Slice(ranked, func(a, b int) bool {
		if ranked[a].importance != ranked[b].importance {
			return ranked[a].importance > ranked[b].importance
		}
		return ranked[a].name < ranked[b].name
	})

	var drop []string
	switch {
	case opts.TopN != nil:
		drop = names(ranked[min(*opts.TopN, len(ranked)):])
		fmt.Fprintf(p.out, "Dropped features not in top %d: %v\n", *opts.TopN, drop)
	case opts.TopNPct != nil:
		keep := int(math.RoundToEven(float64(len(ranked)) * *opts.TopNPct))
		drop = names(ranked[keep:])
		fmt.Fprintf(p.out, "Dropped features not in top %v pct: %v\n", *opts.TopNPct, drop)
	default:
		cutoff := 0.0
		if len(ranked) > 0 {
			cutoff = ranked[0].importance * *opts.PctOfTopFeature
		}
		for _, f := range ranked {
			if f.importance <= cutoff {
				drop = append(drop, f.name)
			}
		}
		fmt.Fprintf(p.out, "Dropped features below importance threshold %v: %v\n", cutoff, drop)
	}

	return out.DropColumns(drop...)
}

func names(features []rankedFeature) []string {
	out := make([]string, len(features))
	for i, f := range features {
		out[i] = f.name
	}
	return out
}
