// Package transform derives new numeric columns from existing ones. Every
// function appends its output columns to the dataset in place and returns
// the same dataset.
package transform

import (
	"fmt"
	"math"
	"rasgo-sdk/pkg/api"
	"rasgo-sdk/pkg/frame"
	"strconv"

	"github.com/go-gota/gota/series"
)

type columnFunc func(values []float64) []float64

// target pairs a source column with the name of the column derived from it.
type target struct {
	column string
	alias  string
}

func resolveTargets(ds *frame.Dataset, columns, aliases []string, suffix string) ([]target, error) {
	if len(columns) == 0 {
		return nil, api.Errorf(api.ErrInvalidParameter, "at least one column must be provided")
	}
	if len(aliases) > 0 && len(aliases) != len(columns) {
		return nil, api.Errorf(api.ErrInvalidParameter, "got %d aliases for %d columns", len(aliases), len(columns))
	}

	targets := make([]target, len(columns))
	for i, column := range columns {
		if !ds.HasColumn(column) {
			return nil, api.ColumnNotFound(column)
		}
		if !ds.Kind(column).IsNumeric() {
			return nil, api.Errorf(api.ErrInvalidParameter, "column %s is not numeric", column)
		}
		alias := column + suffix
		if len(aliases) > 0 && aliases[i] != "" {
			alias = aliases[i]
		}
		targets[i] = target{column: column, alias: alias}
	}
	return targets, nil
}

func apply(ds *frame.Dataset, columns, aliases []string, suffix string, fn columnFunc) (*frame.Dataset, error) {
	targets, err := resolveTargets(ds, columns, aliases, suffix)
	if err != nil {
		return nil, err
	}

	for _, t := range targets {
		values := fn(ds.Floats(t.column))
		if err := ds.SetColumn(series.New(values, series.Float, t.alias)); err != nil {
			return nil, fmt.Errorf("error adding column %s: %w", t.alias, err)
		}
	}
	return ds, nil
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// RollingAverage adds the mean over the last window rows. Rows before the
// window fills, or whose window holds a null, are null.
func RollingAverage(ds *frame.Dataset, window int, columns, aliases []string) (*frame.Dataset, error) {
	if window < 1 {
		return nil, api.Errorf(api.ErrInvalidParameter, "window size must be at least 1, got %d", window)
	}
	return apply(ds, columns, aliases, "_roll_avg", func(values []float64) []float64 {
		out := make([]float64, len(values))
		sum, nulls := 0.0, 0
		for i, v := range values {
			if math.IsNaN(v) {
				nulls++
			} else {
				sum += v
			}
			if i >= window {
				old := values[i-window]
				if math.IsNaN(old) {
					nulls--
				} else {
					sum -= old
				}
			}
			if i+1 < window || nulls > 0 {
				out[i] = math.NaN()
			} else {
				out[i] = sum / float64(window)
			}
		}
		return out
	})
}

// CumulativeAverage adds the mean of all non-null values up to each row.
func CumulativeAverage(ds *frame.Dataset, columns, aliases []string) (*frame.Dataset, error) {
	return apply(ds, columns, aliases, "_cum_avg", func(values []float64) []float64 {
		out := make([]float64, len(values))
		sum, count := 0.0, 0
		for i, v := range values {
			if !math.IsNaN(v) {
				sum += v
				count++
			}
			if count == 0 {
				out[i] = math.NaN()
			} else {
				out[i] = sum / float64(count)
			}
		}
		return out
	})
}

func elementwise(fn func(float64) float64) columnFunc {
	return func(values []float64) []float64 {
		out := make([]float64, len(values))
		for i, v := range values {
			out[i] = fn(v)
		}
		return out
	}
}

func Add(ds *frame.Dataset, value float64, columns, aliases []string) (*frame.Dataset, error) {
	return apply(ds, columns, aliases, "_add_"+formatValue(value), elementwise(func(v float64) float64 { return v + value }))
}

func Subtract(ds *frame.Dataset, value float64, columns, aliases []string) (*frame.Dataset, error) {
	return apply(ds, columns, aliases, "_subtract_"+formatValue(value), elementwise(func(v float64) float64 { return v - value }))
}

// Divide by zero yields +/-Inf, or null for 0/0.
func Divide(ds *frame.Dataset, value float64, columns, aliases []string) (*frame.Dataset, error) {
	return apply(ds, columns, aliases, "_divide_"+formatValue(value), elementwise(func(v float64) float64 { return v / value }))
}

func Multiply(ds *frame.Dataset, value float64, columns, aliases []string) (*frame.Dataset, error) {
	return apply(ds, columns, aliases, "_mult_"+formatValue(value), elementwise(func(v float64) float64 { return v * value }))
}

// Mult is shorthand for Multiply.
func Mult(ds *frame.Dataset, value float64, columns, aliases []string) (*frame.Dataset, error) {
	return Multiply(ds, value, columns, aliases)
}
