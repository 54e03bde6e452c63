package evaluate

import (
	"errors"
	"log/slog"
	"math"
	"rasgo-sdk/pkg/api"
	"rasgo-sdk/pkg/frame"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// ridgePenalty scales the diagonal of the gram matrix so collinear or one-hot
// encoded features still give a unique solution.
const ridgePenalty = 1e-6

// designColumn is one column of the design matrix: a numeric feature as is,
// or the indicator of one category of a categorical feature.
type designColumn struct {
	feature  string
	category string
	numeric  bool
}

// linearModel is a ridge regression fitted on centered features. Its shapley
// values are exact: each feature contributes coef * (x - mean) summed over
// its design columns.
type linearModel struct {
	target    string
	columns   []designColumn
	means     []float64
	coef      []float64
	intercept float64
}

func designColumns(ds *frame.Dataset, features []string) []designColumn {
	rows := allRows(ds)
	var columns []designColumn
	for _, f := range features {
		if ds.Kind(f).IsNumeric() {
			columns = append(columns, designColumn{feature: f, numeric: true})
			continue
		}
		for _, c := range valueCounts(ds, f, rows, true) {
			columns = append(columns, designColumn{feature: f, category: c.value.(string)})
		}
	}
	return columns
}

func allRows(ds *frame.Dataset) []int {
	rows := make([]int, ds.Nrow())
	for i := range rows {
		rows[i] = i
	}
	return rows
}

// encode builds the design matrix of ds. Categories unseen during fitting
// encode as all zeros.
func encode(ds *frame.Dataset, columns []designColumn) *mat.Dense {
	x := mat.NewDense(ds.Nrow(), len(columns), nil)
	numeric := map[string][]float64{}
	categorical := map[string][]string{}

	for j, c := range columns {
		if c.numeric {
			values, ok := numeric[c.feature]
			if !ok {
				values = ds.Floats(c.feature)
				numeric[c.feature] = values
			}
			for i, v := range values {
				x.Set(i, j, v)
			}
			continue
		}

		values, ok := categorical[c.feature]
		if !ok {
			values = ds.Strings(c.feature)
			categorical[c.feature] = values
		}
		for i, v := range values {
			if v == c.category {
				x.Set(i, j, 1)
			}
		}
	}
	return x
}

func fitLinearModel(train *frame.Dataset, features []string, target string) (*linearModel, error) {
	columns := designColumns(train, features)
	if len(columns) == 0 || train.Nrow() == 0 {
		return nil, api.Errorf(api.ErrInvalidParameter, "no rows or features left to fit a model on after removing nulls")
	}

	x := encode(train, columns)
	n, p := x.Dims()

	means := make([]float64, p)
	for j := range means {
		means[j] = stat.Mean(mat.Col(nil, j, x), nil)
		for i := 0; i < n; i++ {
			x.Set(i, j, x.At(i, j)-means[j])
		}
	}

	y := train.Floats(target)
	yMean := stat.Mean(y, nil)
	centered := make([]float64, n)
	for i, v := range y {
		centered[i] = v - yMean
	}

	gram := mat.NewSymDense(p, nil)
	gram.SymOuterK(1, x.T())

	trace := 0.0
	for j := 0; j < p; j++ {
		trace += gram.At(j, j)
	}
	lambda := ridgePenalty * trace / float64(p)
	if lambda == 0 {
		lambda = ridgePenalty
	}
	for j := 0; j < p; j++ {
		gram.SetSym(j, j, gram.At(j, j)+lambda)
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(gram); !ok {
		return nil, api.Errorf(api.ErrInvalidParameter, "unable to fit model on target %s: feature matrix is degenerate", target)
	}

	var xty mat.VecDense
	xty.MulVec(x.T(), mat.NewVecDense(n, centered))

	var beta mat.VecDense
	if err := chol.SolveVecTo(&beta, &xty); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return nil, api.Errorf(api.ErrInvalidParameter, "unable to fit model on target %s: %v", target, err)
		}
		slog.Warn("feature matrix is ill conditioned", "target", target, "condition", float64(cond))
	}

	return &linearModel{
		target:    target,
		columns:   columns,
		means:     means,
		coef:      mat.Col(nil, 0, &beta),
		intercept: yMean,
	}, nil
}

func (m *linearModel) predict(ds *frame.Dataset) []float64 {
	x := encode(ds, m.columns)
	out := make([]float64, ds.Nrow())
	for i := range out {
		pred := m.intercept
		for j, c := range m.coef {
			pred += c * (x.At(i, j) - m.means[j])
		}
		out[i] = pred
	}
	return out
}

// shapley returns the per row shapley values of every feature.
func (m *linearModel) shapley(ds *frame.Dataset) map[string][]float64 {
	x := encode(ds, m.columns)
	out := map[string][]float64{}
	for j, c := range m.columns {
		values, ok := out[c.feature]
		if !ok {
			values = make([]float64, ds.Nrow())
			out[c.feature] = values
		}
		for i := range values {
			values[i] += m.coef[j] * (x.At(i, j) - m.means[j])
		}
	}
	return out
}

func (m *linearModel) performance(ds *frame.Dataset) api.ModelPerformance {
	actual := ds.Floats(m.target)
	pred := m.predict(ds)

	sq := 0.0
	for i := range actual {
		d := actual[i] - pred[i]
		sq += d * d
	}
	rmse := math.Sqrt(sq / float64(len(actual)))
	r2 := stat.RSquaredFrom(pred, actual, nil)

	if math.IsNaN(r2) || math.IsInf(r2, 0) {
		slog.Warn("r2 is undefined for a constant target", "target", m.target)
		r2 = 0
	}
	return api.ModelPerformance{RMSE: rmse, R2: r2}
}
